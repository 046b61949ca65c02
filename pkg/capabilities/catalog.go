// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

// Package capabilities holds the built-in leaf handlers a crew file can
// reference by name.
package capabilities

import (
	"context"
	"sort"

	"github.com/jllopis/bringacrew/pkg/capability"
)

// Catalog owns the state shared by the built-in capabilities.
type Catalog struct {
	rooms    *RoomStore
	schedule *Schedule
	byName   map[string]capability.Capability
}

// Builtins opens the backing stores and returns the catalog.
func Builtins(ctx context.Context) (*Catalog, error) {
	rooms, err := OpenRoomStore(ctx)
	if err != nil {
		return nil, err
	}
	schedule := NewSchedule()

	c := &Catalog{rooms: rooms, schedule: schedule, byName: map[string]capability.Capability{}}
	for _, capab := range []capability.Capability{
		Calculator(),
		DogWeight(),
		CheckAvailableRoom(rooms),
		BookRoom(rooms),
		CheckAvailability(schedule),
		BookPerson(schedule),
	} {
		c.byName[capab.Name()] = capab
	}
	return c, nil
}

// Lookup returns the capability registered as name.
func (c *Catalog) Lookup(name string) (capability.Capability, bool) {
	capab, ok := c.byName[name]
	return capab, ok
}

// Names lists every built-in capability, sorted.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.byName))
	for n := range c.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Rooms exposes the room store.
func (c *Catalog) Rooms() *RoomStore { return c.rooms }

// Close releases the room database.
func (c *Catalog) Close() error {
	return c.rooms.Close()
}

// BuiltinNames lists the names Builtins provides, sorted.
func BuiltinNames() []string {
	return []string{
		"book_person",
		"book_room",
		"calculate",
		"check_availability",
		"check_available_room",
		"dog_weight_for_breed",
	}
}

// IsBuiltin reports whether name is a built-in capability.
func IsBuiltin(name string) bool {
	names := BuiltinNames()
	i := sort.SearchStrings(names, name)
	return i < len(names) && names[i] == name
}
