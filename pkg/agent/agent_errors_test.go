// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	stderrors "errors"
	"testing"

	"github.com/jllopis/bringacrew/pkg/conversation"
	"github.com/jllopis/bringacrew/pkg/errors"
)

func TestWrapLLMError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode errors.ErrorCode
	}{
		{name: "nil error", err: nil},
		{name: "plain error", err: stderrors.New("timeout"), wantCode: errors.CodeLLMError},
		{name: "crew error", err: errors.New(errors.CodeInternal, "test error", nil), wantCode: errors.CodeLLMError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ce := WrapLLMError(tt.err, "agent-1", "phi4", 3)
			if tt.err == nil {
				if ce != nil {
					t.Errorf("WrapLLMError() = %v, want nil", ce)
				}
				return
			}
			if ce == nil {
				t.Fatal("WrapLLMError() = nil, want non-nil")
			}
			if ce.Code != tt.wantCode {
				t.Errorf("Code = %s, want %s", ce.Code, tt.wantCode)
			}
			if ce.Context["model"] != "phi4" || ce.Context["turn"] != 3 {
				t.Errorf("Context = %v", ce.Context)
			}
			if ce.Attributes["gen_ai.request.model"] != "phi4" {
				t.Errorf("Attributes = %v", ce.Attributes)
			}
			if !ce.Recoverable {
				t.Error("LLM errors should be recoverable")
			}
			if !stderrors.Is(ce, tt.err) {
				t.Error("cause not preserved")
			}
		})
	}
}

func TestWrapCapabilityError(t *testing.T) {
	if WrapCapabilityError(nil, "a", "c", "x") != nil {
		t.Fatal("expected nil for nil error")
	}
	ce := WrapCapabilityError(stderrors.New("boom"), "rooms", "book_room", "2026-01-01")
	if ce.Code != errors.CodeCapabilityFailure {
		t.Errorf("Code = %s", ce.Code)
	}
	if ce.Context["capability"] != "book_room" || ce.Context["argument"] != "2026-01-01" {
		t.Errorf("Context = %v", ce.Context)
	}
	if ce.Recoverable {
		t.Error("capability failures are not recoverable")
	}
}

func TestNewUnknownActionError(t *testing.T) {
	ce := NewUnknownActionError(errors.ErrUnknownCapability, "a", "fly", "Paris")
	if ce.Code != errors.CodeUnknownAction {
		t.Errorf("Code = %s", ce.Code)
	}
	if ce.Message != "unknown action: fly: Paris" {
		t.Errorf("Message = %q", ce.Message)
	}
	if !errors.HasCode(ce, errors.CodeUnknownCapability) {
		t.Error("registry lookup error not preserved")
	}
}

func TestNewNoActionOrAnswerError(t *testing.T) {
	ce := NewNoActionOrAnswerError("a", "meh", 2)
	if ce.Code != errors.CodeNoActionOrAnswer {
		t.Errorf("Code = %s", ce.Code)
	}
	if ce.Context["reply"] != "meh" || ce.Context["turn"] != 2 {
		t.Errorf("Context = %v", ce.Context)
	}
}

func TestPartialConversation(t *testing.T) {
	partial := []conversation.Message{{Role: conversation.RoleUser, Content: "q"}}
	budget := NewTurnBudgetError("a", 5, partial)

	got, ok := PartialConversation(budget)
	if !ok || len(got) != 1 || got[0].Content != "q" {
		t.Fatalf("PartialConversation() = %v, %v", got, ok)
	}

	wrapped := WrapCapabilityError(budget, "parent", "a", "q")
	if got, ok := PartialConversation(wrapped); !ok || len(got) != 1 {
		t.Errorf("nested budget error not found: %v, %v", got, ok)
	}

	if _, ok := PartialConversation(stderrors.New("other")); ok {
		t.Error("unexpected conversation on unrelated error")
	}
}

func TestNewCycleError(t *testing.T) {
	ce := NewCycleError("a", "a -> b")
	if !errors.Is(ce, errors.ErrCapabilityCycle) {
		t.Errorf("expected CAPABILITY_CYCLE, got %v", ce)
	}
	if ce.Context["via"] != "a -> b" {
		t.Errorf("Context = %v", ce.Context)
	}
}

func TestNewInvalidInputError(t *testing.T) {
	ce := NewInvalidInputError("bad")
	if ce.Code != errors.CodeInvalidInput || ce.Message != "bad" {
		t.Errorf("got %v", ce)
	}
}
