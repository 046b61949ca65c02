// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package capabilities

import (
	"context"
	"strings"
	"testing"
)

func openTestRooms(t *testing.T, seats ...int) *RoomStore {
	t.Helper()
	s, err := OpenRoomStore(context.Background(), seats...)
	if err != nil {
		t.Fatalf("OpenRoomStore failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRoomStorePicksSmallestFittingRoom(t *testing.T) {
	s := openTestRooms(t)
	ctx := context.Background()

	id, ok, err := s.Available(ctx, "2026-02-18", "morning", 4)
	if err != nil || !ok {
		t.Fatalf("Available() = %q, %v, %v", id, ok, err)
	}
	if id != "max_6_people" {
		t.Errorf("Available() = %q, want max_6_people", id)
	}
}

func TestRoomStoreBookingTakesRoom(t *testing.T) {
	s := openTestRooms(t, 6)
	ctx := context.Background()

	id, ok, err := s.Book(ctx, "2026-02-18", "morning", 4)
	if err != nil || !ok || id != "max_6_people" {
		t.Fatalf("Book() = %q, %v, %v", id, ok, err)
	}
	if _, ok, _ := s.Available(ctx, "2026-02-18", "morning", 4); ok {
		t.Error("booked room still reported available")
	}
	if _, ok, _ := s.Available(ctx, "2026-02-18", "afternoon", 4); !ok {
		t.Error("afternoon slot should still be free")
	}
	if _, ok, _ := s.Book(ctx, "2026-02-18", "morning", 2); ok {
		t.Error("double booking succeeded")
	}
	n, err := s.Bookings(ctx, "max_6_people")
	if err != nil || n != 1 {
		t.Errorf("Bookings() = %d, %v", n, err)
	}
}

func TestRoomCapabilities(t *testing.T) {
	s := openTestRooms(t)
	ctx := context.Background()
	check := CheckAvailableRoom(s)
	book := BookRoom(s)

	tests := []struct {
		name    string
		run     func() (string, error)
		contain string
	}{
		{
			name:    "check",
			run:     func() (string, error) { return check.Perform(ctx, "next Tuesday, in the Morning, 4 people") },
			contain: "Room max_6_people with more than 4 seats is available on next Tuesday for the morning",
		},
		{
			name:    "book",
			run:     func() (string, error) { return book.Perform(ctx, "next Tuesday, morning, 4") },
			contain: "booked on next Tuesday for the morning with id max_6_people",
		},
		{
			name:    "next room after booking",
			run:     func() (string, error) { return check.Perform(ctx, "next Tuesday, morning, 4") },
			contain: "Room max_8_people",
		},
		{
			name:    "too many people",
			run:     func() (string, error) { return check.Perform(ctx, "next Tuesday, morning, 40") },
			contain: "No room with more than 40 seats",
		},
		{
			name:    "bad slot",
			run:     func() (string, error) { return book.Perform(ctx, "next Tuesday, evening, 4") },
			contain: "error: rooms can only be booked for the morning or the afternoon",
		},
		{
			name:    "bad count",
			run:     func() (string, error) { return check.Perform(ctx, "next Tuesday, morning, many") },
			contain: "error: number of people",
		},
		{
			name:    "missing arguments",
			run:     func() (string, error) { return check.Perform(ctx, "next Tuesday") },
			contain: "error: expected 3 arguments",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.run()
			if err != nil {
				t.Fatalf("Perform failed: %v", err)
			}
			if !strings.Contains(got, tt.contain) {
				t.Errorf("Perform() = %q, want it to contain %q", got, tt.contain)
			}
		})
	}
}

func TestNewRoomStoreRequiresDB(t *testing.T) {
	if _, err := NewRoomStore(context.Background(), nil); err == nil {
		t.Fatal("expected error for nil db")
	}
}
