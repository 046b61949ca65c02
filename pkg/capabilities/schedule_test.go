// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package capabilities

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCheckAvailability(t *testing.T) {
	check := CheckAvailability(NewSchedule())
	tests := []struct {
		arg     string
		prefix  string
		contain string
	}{
		{arg: "2026-02-17, Bob", prefix: "Bob is available", contain: "Monday the 17th of February"},
		{arg: "2026-02-17, alice", prefix: "alice is not available", contain: "2026-02-17"},
		{arg: "2026-02-17, Dave", prefix: "Dave is unknown", contain: "system"},
		{arg: "Bob", prefix: "error: expected 2 arguments", contain: "person"},
	}
	for _, tt := range tests {
		got, err := check.Perform(context.Background(), tt.arg)
		if err != nil {
			t.Fatalf("Perform(%q) failed: %v", tt.arg, err)
		}
		if !strings.HasPrefix(got, tt.prefix) || !strings.Contains(got, tt.contain) {
			t.Errorf("Perform(%q) = %q", tt.arg, got)
		}
	}
}

func TestBookPerson(t *testing.T) {
	book := BookPerson(NewSchedule())
	ctx := context.Background()

	got, _ := book.Perform(ctx, "2026-02-17, morning, Bob")
	if got != "Bob is booked for a meeting on 2026-02-17 at morning." {
		t.Errorf("first booking = %q", got)
	}
	got, _ = book.Perform(ctx, "2026-02-17, Morning, bob")
	if !strings.Contains(got, "already booked") {
		t.Errorf("second booking = %q", got)
	}
	got, _ = book.Perform(ctx, "2026-02-17, morning, Zed")
	if got != "Zed is unknown to the system." {
		t.Errorf("unknown person = %q", got)
	}
}

func TestBuiltins(t *testing.T) {
	c, err := Builtins(context.Background())
	if err != nil {
		t.Fatalf("Builtins failed: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	want := []string{"book_person", "book_room", "calculate", "check_availability", "check_available_room", "dog_weight_for_breed"}
	if diff := cmp.Diff(want, c.Names()); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, BuiltinNames()); diff != "" {
		t.Errorf("BuiltinNames() mismatch (-want +got):\n%s", diff)
	}
	if !IsBuiltin("calculate") || IsBuiltin("teleport") {
		t.Error("IsBuiltin mismatch")
	}
	for _, name := range want {
		capab, ok := c.Lookup(name)
		if !ok || capab.Name() != name || capab.Description() == "" {
			t.Errorf("Lookup(%q) = %v, %v", name, capab, ok)
		}
	}
	if _, ok := c.Lookup("teleport"); ok {
		t.Error("unexpected capability")
	}

	// the room capabilities share the catalog's store
	book, _ := c.Lookup("book_room")
	if _, err := book.Perform(context.Background(), "monday, afternoon, 3"); err != nil {
		t.Fatalf("book_room failed: %v", err)
	}
	n, err := c.Rooms().Bookings(context.Background(), "max_4_people")
	if err != nil || n != 1 {
		t.Errorf("Bookings() = %d, %v", n, err)
	}
}
