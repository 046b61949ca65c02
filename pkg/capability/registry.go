// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package capability

import (
	"reflect"
	"strings"
	"sync"

	"github.com/jllopis/bringacrew/pkg/errors"
)

// Registry maps capability names to capabilities, preserving registration
// order. Once sealed it is read-only and safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	order  []Capability
	byName map[string]Capability
	sealed bool
}

// NewRegistry creates a registry pre-populated with caps.
func NewRegistry(caps ...Capability) (*Registry, error) {
	r := &Registry{byName: make(map[string]Capability)}
	for _, c := range caps {
		if err := r.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds c. Names are unique within one registry.
func (r *Registry) Register(c Capability) error {
	if isNil(c) {
		return errors.New(errors.CodeInvalidInput, "capability is nil", nil)
	}
	name := c.Name()
	if name == "" {
		return errors.New(errors.CodeInvalidInput, "capability name is required", nil)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return errors.New(errors.CodeRegistrySealed, "registry is read-only after first use", nil).
			WithContext("capability", name)
	}
	if r.byName == nil {
		r.byName = make(map[string]Capability)
	}
	if _, exists := r.byName[name]; exists {
		return errors.New(errors.CodeDuplicateCapability, "capability already registered", nil).
			WithContext("capability", name).
			WithAttribute("crew.capability.name", name)
	}
	r.byName[name] = c
	r.order = append(r.order, c)
	return nil
}

// isNil also reports typed nil pointers held by the interface.
func isNil(c Capability) bool {
	if c == nil {
		return true
	}
	v := reflect.ValueOf(c)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Func, reflect.Slice, reflect.Chan, reflect.Interface:
		return v.IsNil()
	}
	return false
}

// Lookup returns the capability registered under name.
func (r *Registry) Lookup(name string) (Capability, error) {
	r.mu.RLock()
	c, ok := r.byName[name]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.New(errors.CodeUnknownCapability, "capability not registered", nil).
			WithContext("capability", name).
			WithAttribute("crew.capability.name", name)
	}
	return c, nil
}

// Seal makes the registry read-only. Further Register calls fail.
func (r *Registry) Seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}

// Sealed reports whether Seal has been called.
func (r *Registry) Sealed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sealed
}

// RenderForPrompt lists capabilities in registration order, one
// "- name: description" line each.
func (r *Registry) RenderForPrompt() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	lines := make([]string, 0, len(r.order))
	for _, c := range r.order {
		lines = append(lines, "- "+c.Name()+": "+c.Description())
	}
	return strings.Join(lines, "\n")
}

// Names returns capability names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.order))
	for i, c := range r.order {
		names[i] = c.Name()
	}
	return names
}

// All returns the capabilities in registration order.
func (r *Registry) All() []Capability {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Capability(nil), r.order...)
}

// Len returns the number of registered capabilities.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
