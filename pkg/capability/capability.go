// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

// Package capability defines the uniform interface behind which leaf
// handlers and nested agents are dispatched, and the registry that maps
// action names to them.
package capability

import (
	"context"
	"strings"
)

// Capability is a named unit the turn engine can dispatch an action to.
type Capability interface {
	// Name is the identifier the oracle uses in "Action: <name>: ...".
	Name() string
	// Description is rendered into the oracle's system instructions.
	Description() string
	// Perform runs the capability with the raw argument text.
	Perform(ctx context.Context, argument string) (string, error)
}

// HandlerFunc is the signature of a leaf handler.
type HandlerFunc func(ctx context.Context, argument string) (string, error)

// Func adapts a plain handler function to a Capability.
type Func struct {
	name        string
	description string
	handler     HandlerFunc
}

// NewFunc builds a leaf capability.
func NewFunc(name, description string, handler HandlerFunc) *Func {
	return &Func{name: name, description: description, handler: handler}
}

// Simple adapts a context-free handler that cannot fail.
func Simple(name, description string, handler func(argument string) string) *Func {
	return NewFunc(name, description, func(_ context.Context, argument string) (string, error) {
		return handler(argument), nil
	})
}

func (f *Func) Name() string        { return f.name }
func (f *Func) Description() string { return f.description }

// Perform calls the wrapped handler.
func (f *Func) Perform(ctx context.Context, argument string) (string, error) {
	return f.handler(ctx, argument)
}

// SplitArgs splits a comma separated argument list and trims each element.
// Leaf handlers receive the raw text after "Action: name: " and most of them
// expect positional arguments.
func SplitArgs(argument string) []string {
	if strings.TrimSpace(argument) == "" {
		return nil
	}
	parts := strings.Split(argument, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

var _ Capability = (*Func)(nil)
