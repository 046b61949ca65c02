// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"strconv"

	"github.com/jllopis/bringacrew/pkg/conversation"
	"github.com/jllopis/bringacrew/pkg/errors"
)

const conversationKey = "conversation"

// WrapLLMError wraps an oracle error with appropriate context.
func WrapLLMError(err error, agentName, model string, turn int) *errors.CrewError {
	if err == nil {
		return nil
	}
	return errors.New(errors.CodeLLMError, "LLM call failed", err).
		WithContext("agent", agentName).
		WithContext("model", model).
		WithContext("turn", turn).
		WithAttribute("gen_ai.request.model", model).
		WithRecoverable(true)
}

// WrapCapabilityError wraps a handler failure with appropriate context.
func WrapCapabilityError(err error, agentName, capabilityName, argument string) *errors.CrewError {
	if err == nil {
		return nil
	}
	return errors.New(errors.CodeCapabilityFailure, "capability execution failed", err).
		WithContext("agent", agentName).
		WithContext("capability", capabilityName).
		WithContext("argument", argument).
		WithAttribute("crew.capability.name", capabilityName).
		WithRecoverable(false)
}

// NewUnknownActionError reports an action naming a capability the agent does not have.
func NewUnknownActionError(cause error, agentName, name, argument string) *errors.CrewError {
	return errors.New(errors.CodeUnknownAction, "unknown action: "+name+": "+argument, cause).
		WithContext("agent", agentName).
		WithContext("action", name).
		WithContext("argument", argument).
		WithAttribute("crew.action.name", name).
		WithRecoverable(false)
}

// NewNoActionOrAnswerError reports an oracle reply holding no directive.
func NewNoActionOrAnswerError(agentName, reply string, turn int) *errors.CrewError {
	return errors.New(errors.CodeNoActionOrAnswer, "no action or answer found in oracle reply", nil).
		WithContext("agent", agentName).
		WithContext("reply", reply).
		WithContext("turn", turn).
		WithRecoverable(true)
}

// NewTurnBudgetError reports a loop that did not converge. The partial
// conversation is attached for diagnostics.
func NewTurnBudgetError(agentName string, maxTurns int, partial []conversation.Message) *errors.CrewError {
	return errors.New(errors.CodeTurnBudgetExceeded, "turn budget exceeded", nil).
		WithContext("agent", agentName).
		WithContext("max_turns", maxTurns).
		WithContext(conversationKey, partial).
		WithAttribute("crew.agent.max_turns", strconv.Itoa(maxTurns)).
		WithRecoverable(false)
}

// NewCycleError reports an agent that would dispatch to itself.
func NewCycleError(agentName, via string) *errors.CrewError {
	return errors.New(errors.CodeCapabilityCycle, "agent composition cycle", nil).
		WithContext("agent", agentName).
		WithContext("via", via).
		WithRecoverable(false)
}

// NewInvalidInputError creates a new invalid input error.
func NewInvalidInputError(msg string) *errors.CrewError {
	return errors.New(errors.CodeInvalidInput, msg, nil).
		WithRecoverable(false)
}

// PartialConversation extracts the conversation attached to a
// TURN_BUDGET_EXCEEDED error.
func PartialConversation(err error) ([]conversation.Message, bool) {
	for e := err; e != nil; e = errors.Unwrap(e) {
		ce, ok := e.(*errors.CrewError)
		if !ok || ce.Code != errors.CodeTurnBudgetExceeded {
			continue
		}
		msgs, ok := ce.Context[conversationKey].([]conversation.Message)
		return msgs, ok
	}
	return nil, false
}
