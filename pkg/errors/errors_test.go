// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
)

func TestNew(t *testing.T) {
	cause := errors.New("connection refused")
	ce := New(CodeLLMError, "oracle call failed", cause)

	if ce.Code != CodeLLMError {
		t.Errorf("expected CodeLLMError, got %v", ce.Code)
	}
	if ce.Message != "oracle call failed" {
		t.Errorf("expected message 'oracle call failed', got %q", ce.Message)
	}
	if ce.Err != cause {
		t.Errorf("expected cause to be preserved")
	}
	if !errors.Is(ce, cause) {
		t.Errorf("expected errors.Is to work with wrapped error")
	}
}

func TestWithContextAndAttribute(t *testing.T) {
	ce := New(CodeUnknownAction, "unknown action", nil).
		WithContext("action", "does_not_exist").
		WithAttribute("crew.action.name", "does_not_exist")

	if ce.Context["action"] != "does_not_exist" {
		t.Errorf("expected context action to be set")
	}
	if ce.Attributes["crew.action.name"] != "does_not_exist" {
		t.Errorf("expected attribute crew.action.name")
	}
	if ce.Recoverable {
		t.Errorf("expected recoverable to be false by default")
	}
	ce.WithRecoverable(true)
	if ce.RecoverableString() != "true" {
		t.Errorf("expected recoverable string true")
	}
}

func TestError(t *testing.T) {
	tests := []struct {
		name     string
		ce       *CrewError
		expected string
	}{
		{
			name:     "with cause",
			ce:       New(CodeCapabilityFailure, "capability failed", errors.New("room db closed")),
			expected: "[CAPABILITY_FAILURE] capability failed: room db closed",
		},
		{
			name:     "without cause",
			ce:       New(CodeNoActionOrAnswer, "no action or answer found", nil),
			expected: "[NO_ACTION_OR_ANSWER] no action or answer found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ce.Error(); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestSentinelsMatchByCode(t *testing.T) {
	err := fmt.Errorf("ask: %w", New(CodeUnknownAction, "unknown action", nil))

	if !errors.Is(err, ErrUnknownAction) {
		t.Fatal("expected wrapped error to match ErrUnknownAction")
	}
	if errors.Is(err, ErrTurnBudgetExceeded) {
		t.Fatal("did not expect match on a different code")
	}
	if !HasCode(err, CodeUnknownAction) {
		t.Fatal("HasCode() = false, want true")
	}
	if CodeOf(err) != CodeUnknownAction {
		t.Fatalf("CodeOf() = %q", CodeOf(err))
	}
}

func TestHasCodeSeesNestedCodes(t *testing.T) {
	inner := New(CodeTurnBudgetExceeded, "turn budget exceeded", nil)
	outer := New(CodeCapabilityFailure, "nested agent failed", inner)

	if CodeOf(outer) != CodeCapabilityFailure {
		t.Errorf("CodeOf() = %q, want outermost code", CodeOf(outer))
	}
	if !HasCode(outer, CodeTurnBudgetExceeded) {
		t.Error("expected inner code to be visible through the chain")
	}
}

func TestAsCrewError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorCode
	}{
		{name: "nil error", err: nil, expected: ""},
		{name: "already CrewError", err: New(CodeUnknownCapability, "missing", nil), expected: CodeUnknownCapability},
		{name: "wrapped CrewError", err: fmt.Errorf("x: %w", New(CodeTimeout, "slow", nil)), expected: CodeTimeout},
		{name: "generic error", err: errors.New("generic error"), expected: CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ce := AsCrewError(tt.err)
			if tt.expected == "" {
				if ce != nil {
					t.Errorf("expected nil for nil error")
				}
				return
			}
			if ce == nil {
				t.Fatalf("expected non-nil CrewError")
			}
			if ce.Code != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, ce.Code)
			}
		})
	}
}

func TestMarshalJSON(t *testing.T) {
	ce := New(CodeCapabilityFailure, "capability failed", errors.New("network error"))
	ce.WithContext("capability", "book_room").
		WithAttribute("retry_count", "1").
		WithRecoverable(true)

	data, err := json.Marshal(ce)
	if err != nil {
		t.Fatalf("unexpected error marshaling: %v", err)
	}

	var result map[string]interface{}
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("unexpected error unmarshaling: %v", err)
	}

	if result["code"] != "CAPABILITY_FAILURE" {
		t.Errorf("expected code 'CAPABILITY_FAILURE', got %v", result["code"])
	}
	if result["error"] != "network error" {
		t.Errorf("expected cause text, got %v", result["error"])
	}
	if result["recoverable"] != true {
		t.Errorf("expected recoverable true")
	}
}
