// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package capabilities

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/jllopis/bringacrew/pkg/capability"
)

// Schedule answers availability questions from a fixed calendar and keeps
// the meetings booked during the process lifetime.
type Schedule struct {
	availability map[string]string

	mu     sync.Mutex
	booked map[string]bool
}

// NewSchedule returns the demo calendar.
func NewSchedule() *Schedule {
	return &Schedule{
		availability: map[string]string{
			"alice":   "is not available in the week starting with %s.",
			"bob":     "is available in the week starting with %s on Monday the 17th of February. Tuesday on the 18th of February. Thursday on the 20th of February.",
			"charlie": "is available in the week starting with %s on Monday the 17th of February in the morning. Tuesday on the 18th of February. Thursday on the 20th of February. Friday on the 21st of February.",
		},
		booked: make(map[string]bool),
	}
}

// Availability describes when person is free in the week starting on date.
func (s *Schedule) Availability(date, person string) string {
	tmpl, ok := s.availability[strings.ToLower(person)]
	if !ok {
		return person + " is unknown to the system."
	}
	return person + " " + fmt.Sprintf(tmpl, date)
}

// Book reserves person for a meeting. It reports false when the slot was
// already taken.
func (s *Schedule) Book(date, slot, person string) bool {
	key := strings.ToLower(person) + "|" + strings.ToLower(date) + "|" + strings.ToLower(slot)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.booked[key] {
		return false
	}
	s.booked[key] = true
	return true
}

// CheckAvailability returns the check_availability capability.
func CheckAvailability(s *Schedule) capability.Capability {
	return capability.NewFunc("check_availability",
		"Ask for the availability of a person during a week, providing the start of the week. "+
			"Availability is in the morning and or the afternoon. Arguments: date, person.",
		func(_ context.Context, argument string) (string, error) {
			args := capability.SplitArgs(argument)
			if len(args) != 2 {
				return "error: expected 2 arguments: date, person", nil
			}
			return s.Availability(args[0], args[1]), nil
		})
}

// BookPerson returns the book_person capability.
func BookPerson(s *Schedule) capability.Capability {
	return capability.NewFunc("book_person",
		"Book a person for a meeting on a given date and time. Arguments: date, timeslot, person.",
		func(_ context.Context, argument string) (string, error) {
			args := capability.SplitArgs(argument)
			if len(args) != 3 {
				return "error: expected 3 arguments: date, timeslot, person", nil
			}
			date, slot, person := args[0], args[1], args[2]
			if _, known := s.availability[strings.ToLower(person)]; !known {
				return person + " is unknown to the system.", nil
			}
			if !s.Book(date, slot, person) {
				return fmt.Sprintf("%s is already booked on %s at %s.", person, date, slot), nil
			}
			return fmt.Sprintf("%s is booked for a meeting on %s at %s.", person, date, slot), nil
		})
}
