// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jllopis/bringacrew/pkg/errors"
)

// CLIError wraps CrewError with a hint for the user.
type CLIError struct {
	*errors.CrewError
	Hint string
}

// Error returns the formatted error message with hints.
func (e *CLIError) Error() string {
	msg := e.CrewError.Error()
	if e.Hint != "" {
		msg += "\n  Hint: " + e.Hint
	}
	return msg
}

// Unwrap exposes the crew error to errors.Is and errors.As.
func (e *CLIError) Unwrap() error {
	return e.CrewError
}

// withHint attaches hint to err. Errors without a code become INTERNAL_ERROR.
func withHint(err error, hint string) error {
	return &CLIError{CrewError: errors.AsCrewError(err), Hint: hint}
}

// newConfigError creates a configuration error with CLI hints.
func newConfigError(err error, configPath string) error {
	hint := "check your configuration and --set overrides"
	if configPath != "" {
		hint = fmt.Sprintf("check %s for syntax errors", configPath)
	}
	ce := errors.AsCrewError(err)
	if errors.CodeOf(err) == "" {
		ce = errors.New(errors.CodeInvalidInput, "configuration error", err).
			WithContext("config_path", configPath)
	}
	return &CLIError{CrewError: ce, Hint: hint}
}

// hintFor suggests a next step for errors raised while answering.
func hintFor(code errors.ErrorCode) string {
	switch code {
	case errors.CodeLLMError:
		return "check that the model server is running and llm.model is pulled"
	case errors.CodeTurnBudgetExceeded:
		return "raise max_turns for the agent or agent.max_turns in the config"
	case errors.CodeNoActionOrAnswer:
		return "the model ignored the reply format; try --set agent.malformed_policy=reprompt"
	case errors.CodeUnknownAction:
		return "the model named an action the agent does not have; review the agent's capabilities"
	case errors.CodeCapabilityCycle:
		return "an agent delegates to itself; review the agents lists in the crew file"
	case errors.CodeTimeout:
		return "raise llm.timeout or crew.mcp_timeout"
	case errors.CodeUnavailable:
		return "an MCP server is unreachable or failing; check mcp_servers in the crew file"
	default:
		return ""
	}
}

// printError prints err with its code and hint, as text or JSON.
func printError(w io.Writer, err error, asJSON bool) {
	code := errors.CodeOf(err)
	msg := err.Error()
	hint := ""
	var cli *CLIError
	if errors.As(err, &cli) {
		msg = cli.CrewError.Error()
		hint = cli.Hint
	}
	if hint == "" {
		hint = hintFor(code)
	}
	if code == "" {
		code = "UNKNOWN"
	}

	if asJSON {
		payload := map[string]map[string]string{"error": {
			"code":    string(code),
			"message": msg,
			"hint":    hint,
		}}
		_ = json.NewEncoder(w).Encode(payload)
		return
	}
	fmt.Fprintf(w, "Error [%s]: %s\n", code, msg)
	if hint != "" {
		fmt.Fprintf(w, "  Hint: %s\n", hint)
	}
}
