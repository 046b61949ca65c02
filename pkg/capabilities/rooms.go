// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package capabilities

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jllopis/bringacrew/pkg/capability"
	"github.com/jllopis/bringacrew/pkg/errors"
)

// DefaultRoomSeats are the rooms seeded by NewRoomStore.
var DefaultRoomSeats = []int{4, 6, 8, 12, 20}

const freeRoomQuery = `
	SELECT id FROM rooms
	WHERE seats > ?
	  AND id NOT IN (SELECT room_id FROM room_bookings WHERE date = ? AND timeslot = ?)
	ORDER BY seats ASC, id ASC
	LIMIT 1
`

// RoomStore keeps meeting rooms and their bookings in SQLite.
type RoomStore struct {
	db *sql.DB
}

// OpenRoomStore opens an in-memory SQLite database seeded with seats.
func OpenRoomStore(ctx context.Context, seats ...int) (*RoomStore, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, err
	}
	// every connection to :memory: is a new database
	db.SetMaxOpenConns(1)

	s, err := NewRoomStore(ctx, db, seats...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewRoomStore ensures the schema on db and seeds one room per entry in
// seats (DefaultRoomSeats when empty).
func NewRoomStore(ctx context.Context, db *sql.DB, seats ...int) (*RoomStore, error) {
	if db == nil {
		return nil, errors.New(errors.CodeInvalidInput, "db is nil", nil)
	}
	if err := ensureRoomSchema(ctx, db); err != nil {
		return nil, err
	}
	if len(seats) == 0 {
		seats = DefaultRoomSeats
	}
	for _, n := range seats {
		if _, err := db.ExecContext(ctx,
			`INSERT OR IGNORE INTO rooms (id, seats) VALUES (?, ?)`, roomID(n), n); err != nil {
			return nil, err
		}
	}
	return &RoomStore{db: db}, nil
}

// Close releases the database.
func (s *RoomStore) Close() error {
	return s.db.Close()
}

// Available returns the smallest free room with more than people seats.
// ok is false when every such room is booked.
func (s *RoomStore) Available(ctx context.Context, date, slot string, people int) (id string, ok bool, err error) {
	err = s.db.QueryRowContext(ctx, freeRoomQuery, people, date, slot).Scan(&id)
	if stderrors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

// Book reserves the smallest free room with more than people seats.
func (s *RoomStore) Book(ctx context.Context, date, slot string, people int) (string, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", false, err
	}
	defer func() { _ = tx.Rollback() }()

	var id string
	err = tx.QueryRowContext(ctx, freeRoomQuery, people, date, slot).Scan(&id)
	if stderrors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO room_bookings (room_id, date, timeslot, people, booked_at)
		VALUES (?, ?, ?, ?, ?)
	`, id, date, slot, people, time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
		return "", false, err
	}
	if err := tx.Commit(); err != nil {
		return "", false, err
	}
	return id, true, nil
}

// Bookings counts the reservations held for room.
func (s *RoomStore) Bookings(ctx context.Context, room string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM room_bookings WHERE room_id = ?`, room).Scan(&n)
	return n, err
}

// CheckAvailableRoom returns the check_available_room capability.
func CheckAvailableRoom(s *RoomStore) capability.Capability {
	return capability.NewFunc("check_available_room",
		"Find an available room with more than the requested seats for the asked day and time. "+
			"Rooms can only be booked for the morning or the afternoon. Arguments: date, timeslot, number of people.",
		func(ctx context.Context, argument string) (string, error) {
			req, problem := parseRoomRequest(argument)
			if problem != "" {
				return problem, nil
			}
			id, ok, err := s.Available(ctx, req.date, req.slot, req.people)
			if err != nil {
				return "", err
			}
			if !ok {
				return fmt.Sprintf("No room with more than %d seats is available on %s for the %s.", req.people, req.date, req.slot), nil
			}
			return fmt.Sprintf("Room %s with more than %d seats is available on %s for the %s. You can book it.", id, req.people, req.date, req.slot), nil
		})
}

// BookRoom returns the book_room capability.
func BookRoom(s *RoomStore) capability.Capability {
	return capability.NewFunc("book_room",
		"Book a room with more than the requested seats for the asked day and time. "+
			"Rooms can only be booked for the morning or the afternoon. Arguments: date, timeslot, number of people. Returns the room id.",
		func(ctx context.Context, argument string) (string, error) {
			req, problem := parseRoomRequest(argument)
			if problem != "" {
				return problem, nil
			}
			id, ok, err := s.Book(ctx, req.date, req.slot, req.people)
			if err != nil {
				return "", err
			}
			if !ok {
				return fmt.Sprintf("No room with more than %d seats is free on %s for the %s, nothing was booked.", req.people, req.date, req.slot), nil
			}
			return fmt.Sprintf("Room with more than %d seats is booked on %s for the %s with id %s.", req.people, req.date, req.slot, id), nil
		})
}

type roomRequest struct {
	date   string
	slot   string
	people int
}

// parseRoomRequest reads "date, timeslot, people". A non-empty problem is a
// message for the oracle describing what was wrong.
func parseRoomRequest(argument string) (roomRequest, string) {
	args := capability.SplitArgs(argument)
	if len(args) != 3 {
		return roomRequest{}, "error: expected 3 arguments: date, timeslot, number of people"
	}
	slot, ok := normalizeSlot(args[1])
	if !ok {
		return roomRequest{}, "error: rooms can only be booked for the morning or the afternoon, got " + args[1]
	}
	fields := strings.Fields(args[2])
	people := 0
	if len(fields) > 0 {
		people, _ = strconv.Atoi(fields[0])
	}
	if people < 1 {
		return roomRequest{}, "error: number of people must be a positive number, got " + args[2]
	}
	return roomRequest{date: args[0], slot: slot, people: people}, ""
}

func normalizeSlot(s string) (string, bool) {
	s = strings.ToLower(s)
	switch {
	case strings.Contains(s, "morning"):
		return "morning", true
	case strings.Contains(s, "afternoon"):
		return "afternoon", true
	}
	return "", false
}

func roomID(seats int) string {
	return "max_" + strconv.Itoa(seats) + "_people"
}

func ensureRoomSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS rooms (
			id TEXT PRIMARY KEY,
			seats INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS room_bookings (
			room_id TEXT NOT NULL REFERENCES rooms(id),
			date TEXT NOT NULL,
			timeslot TEXT NOT NULL,
			people INTEGER NOT NULL,
			booked_at TEXT NOT NULL,
			PRIMARY KEY (room_id, date, timeslot)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
