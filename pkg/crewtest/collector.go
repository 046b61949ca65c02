// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package crewtest

import (
	"context"
	"sync"

	"github.com/jllopis/bringacrew/pkg/agent"
)

// EventCollector is an agent.Hook that records every engine transition.
// Register it with agent.WithHooks; one collector can observe a whole crew.
type EventCollector struct {
	mu     sync.RWMutex
	events []agent.TurnEvent
}

// NewEventCollector creates a new event collector.
func NewEventCollector() *EventCollector {
	return &EventCollector{}
}

// OnTurn implements agent.Hook.
func (c *EventCollector) OnTurn(_ context.Context, ev agent.TurnEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

// Events returns all collected events.
func (c *EventCollector) Events() []agent.TurnEvent {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]agent.TurnEvent(nil), c.events...)
}

// States returns the state of every collected event, in order.
func (c *EventCollector) States() []agent.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	states := make([]agent.State, len(c.events))
	for i, ev := range c.events {
		states[i] = ev.State
	}
	return states
}

// Actions returns the dispatched actions, in order.
func (c *EventCollector) Actions() []ActionRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []ActionRecord
	for _, ev := range c.events {
		if ev.State != agent.StateActing {
			continue
		}
		out = append(out, ActionRecord{
			Agent:       ev.Agent,
			Name:        ev.Action,
			Argument:    ev.Argument,
			Observation: ev.Observation,
			Duration:    ev.Duration,
		})
	}
	return out
}

// Reset clears all collected events.
func (c *EventCollector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = c.events[:0]
}

var _ agent.Hook = (*EventCollector)(nil)
