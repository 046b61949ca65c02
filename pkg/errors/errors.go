// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

// Package errors provides typed errors for the crew runtime.
//
// Every failure the turn engine can produce carries an ErrorCode so callers
// can tell a malformed oracle reply apart from a misconfigured registry or a
// transport failure without string matching.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
)

// ErrorCode classifies crew errors for monitoring and recovery.
type ErrorCode string

const (
	// CodeInternal indicates an internal system error.
	CodeInternal ErrorCode = "INTERNAL_ERROR"

	// CodeInvalidInput indicates the input was invalid.
	CodeInvalidInput ErrorCode = "INVALID_INPUT"

	// CodeDuplicateCapability indicates a capability name was registered twice.
	CodeDuplicateCapability ErrorCode = "DUPLICATE_CAPABILITY"

	// CodeUnknownCapability indicates a lookup for a name that is not registered.
	CodeUnknownCapability ErrorCode = "UNKNOWN_CAPABILITY"

	// CodeRegistrySealed indicates a registration after the registry went read-only.
	CodeRegistrySealed ErrorCode = "REGISTRY_SEALED"

	// CodeCapabilityCycle indicates an agent would (transitively) dispatch to itself.
	CodeCapabilityCycle ErrorCode = "CAPABILITY_CYCLE"

	// CodeInvalidSequencing indicates a conversation was appended to out of order.
	CodeInvalidSequencing ErrorCode = "INVALID_SEQUENCING"

	// CodeUnknownAction indicates the oracle named a capability absent from the registry.
	CodeUnknownAction ErrorCode = "UNKNOWN_ACTION"

	// CodeNoActionOrAnswer indicates the oracle reply carried neither an action nor an answer.
	CodeNoActionOrAnswer ErrorCode = "NO_ACTION_OR_ANSWER"

	// CodeTurnBudgetExceeded indicates the loop did not converge within max turns.
	CodeTurnBudgetExceeded ErrorCode = "TURN_BUDGET_EXCEEDED"

	// CodeCapabilityFailure indicates a capability handler returned an error.
	CodeCapabilityFailure ErrorCode = "CAPABILITY_FAILURE"

	// CodeTimeout indicates an operation exceeded its time limit.
	CodeTimeout ErrorCode = "TIMEOUT"

	// CodeLLMError indicates an oracle provider error.
	CodeLLMError ErrorCode = "LLM_ERROR"

	// CodeUnavailable indicates a dependency rejected by an open circuit breaker.
	CodeUnavailable ErrorCode = "UNAVAILABLE"
)

// Sentinels for errors.Is. They match any CrewError carrying the same code.
var (
	ErrDuplicateCapability = &CrewError{Code: CodeDuplicateCapability}
	ErrUnknownCapability   = &CrewError{Code: CodeUnknownCapability}
	ErrRegistrySealed      = &CrewError{Code: CodeRegistrySealed}
	ErrCapabilityCycle     = &CrewError{Code: CodeCapabilityCycle}
	ErrInvalidSequencing   = &CrewError{Code: CodeInvalidSequencing}
	ErrUnknownAction       = &CrewError{Code: CodeUnknownAction}
	ErrNoActionOrAnswer    = &CrewError{Code: CodeNoActionOrAnswer}
	ErrTurnBudgetExceeded  = &CrewError{Code: CodeTurnBudgetExceeded}
	ErrCapabilityFailure   = &CrewError{Code: CodeCapabilityFailure}
	ErrLLM                 = &CrewError{Code: CodeLLMError}
	ErrTimeout             = &CrewError{Code: CodeTimeout}
	ErrInvalidInput        = &CrewError{Code: CodeInvalidInput}
	ErrUnavailable         = &CrewError{Code: CodeUnavailable}
)

// CrewError is a typed error with rich context for observability.
// It implements the error interface and can be unwrapped with errors.As().
type CrewError struct {
	Code        ErrorCode
	Message     string
	Err         error
	Context     map[string]interface{}
	Attributes  map[string]string
	Recoverable bool
}

// Error implements the error interface.
func (e *CrewError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements errors.Unwrap for error chain traversal.
func (e *CrewError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a CrewError with the same code.
func (e *CrewError) Is(target error) bool {
	t, ok := target.(*CrewError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// MarshalJSON implements json.Marshaler for structured logging.
func (e *CrewError) MarshalJSON() ([]byte, error) {
	var cause string
	if e.Err != nil {
		cause = e.Err.Error()
	}
	return json.Marshal(&struct {
		Message     string                 `json:"message"`
		Code        string                 `json:"code"`
		Err         string                 `json:"error,omitempty"`
		Recoverable bool                   `json:"recoverable"`
		Context     map[string]interface{} `json:"context,omitempty"`
		Attributes  map[string]string      `json:"attributes,omitempty"`
	}{
		Message:     e.Error(),
		Code:        string(e.Code),
		Err:         cause,
		Recoverable: e.Recoverable,
		Context:     e.Context,
		Attributes:  e.Attributes,
	})
}

// New creates a new CrewError with the given code, message, and cause.
func New(code ErrorCode, msg string, cause error) *CrewError {
	return &CrewError{
		Code:       code,
		Message:    msg,
		Err:        cause,
		Context:    make(map[string]interface{}),
		Attributes: make(map[string]string),
	}
}

// WithContext adds a key-value pair to the error context.
// Returns the error for method chaining.
func (e *CrewError) WithContext(key string, value interface{}) *CrewError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithAttribute adds a string attribute for OTEL traces.
// Returns the error for method chaining.
func (e *CrewError) WithAttribute(key, value string) *CrewError {
	if e.Attributes == nil {
		e.Attributes = make(map[string]string)
	}
	e.Attributes[key] = value
	return e
}

// WithRecoverable sets whether the error can be recovered from.
// Returns the error for method chaining.
func (e *CrewError) WithRecoverable(recoverable bool) *CrewError {
	e.Recoverable = recoverable
	return e
}

// RecoverableString returns "true" or "false" as a string for observability.
func (e *CrewError) RecoverableString() string {
	if e.Recoverable {
		return "true"
	}
	return "false"
}

// AsCrewError finds the first CrewError in err's chain.
// Errors that carry none are wrapped as internal.
func AsCrewError(err error) *CrewError {
	if err == nil {
		return nil
	}
	var ce *CrewError
	if stderrors.As(err, &ce) {
		return ce
	}
	return New(CodeInternal, "wrapped error", err)
}

// CodeOf returns the code of the first CrewError in err's chain, or "" if none.
func CodeOf(err error) ErrorCode {
	var ce *CrewError
	if stderrors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

// HasCode reports whether any CrewError in err's chain carries code.
func HasCode(err error, code ErrorCode) bool {
	return stderrors.Is(err, &CrewError{Code: code})
}

// Is forwards to the standard library so callers need a single errors import.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As forwards to the standard library so callers need a single errors import.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// Unwrap forwards to the standard library.
func Unwrap(err error) error {
	return stderrors.Unwrap(err)
}
