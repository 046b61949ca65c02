// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

// Package telemetry provides logging, tracing and metrics for crew agents.
package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Semantic conventions for crew telemetry.
// These follow OpenTelemetry naming conventions where applicable.
const (
	// Crew resource attributes
	AttrCrewFile    = "crew.file"
	AttrCrewProfile = "crew.profile"

	// Agent attributes
	AttrAgentName     = "crew.agent.name"
	AttrAgentMaxTurns = "crew.agent.max_turns"
	AttrAgentDepth    = "crew.agent.depth"
	AttrAgentTurn     = "crew.agent.turn"

	// Turn attributes
	AttrTurnState = "crew.turn.state"

	// Action attributes
	AttrActionName       = "crew.action.name"
	AttrActionArgument   = "crew.action.argument"
	AttrActionSuccess    = "crew.action.success"
	AttrActionDurationMs = "crew.action.duration_ms"

	// Capability attributes
	AttrCapabilityName   = "crew.capability.name"
	AttrCapabilitySource = "crew.capability.source" // "builtin", "mcp", "agent"

	// LLM attributes (extending standard gen_ai conventions)
	AttrLLMModel        = "gen_ai.request.model"
	AttrLLMTokensInput  = "gen_ai.usage.input_tokens"
	AttrLLMTokensOutput = "gen_ai.usage.output_tokens"
	AttrLLMTokensTotal  = "gen_ai.usage.total_tokens"
	AttrLLMDurationMs   = "gen_ai.duration_ms"

	// Error attributes
	AttrErrorCode   = "error.code"
	AttrComponent   = "component"
	AttrRecoverable = "recoverable"
)

// CrewAttributes describes the running crew for the service resource.
// Empty values are omitted.
func CrewAttributes(file, profile string) []attribute.KeyValue {
	var attrs []attribute.KeyValue
	if file != "" {
		attrs = append(attrs, attribute.String(AttrCrewFile, file))
	}
	if profile != "" {
		attrs = append(attrs, attribute.String(AttrCrewProfile, profile))
	}
	return attrs
}

// AgentAttributes returns common attributes for agent spans.
func AgentAttributes(name string, turn, maxTurns, depth int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrAgentName, name),
		attribute.Int(AttrAgentDepth, depth),
	}
	if turn > 0 {
		attrs = append(attrs, attribute.Int(AttrAgentTurn, turn))
	}
	if maxTurns > 0 {
		attrs = append(attrs, attribute.Int(AttrAgentMaxTurns, maxTurns))
	}
	return attrs
}

// ActionAttributes returns attributes for a dispatched action.
// The argument is truncated to maxLen bytes.
func ActionAttributes(name, argument string, durationMs float64, success bool, maxLen int) []attribute.KeyValue {
	if maxLen <= 0 {
		maxLen = 500
	}
	if len(argument) > maxLen {
		argument = argument[:maxLen] + "..."
	}
	return []attribute.KeyValue{
		attribute.String(AttrActionName, name),
		attribute.String(AttrActionArgument, argument),
		attribute.Float64(AttrActionDurationMs, durationMs),
		attribute.Bool(AttrActionSuccess, success),
	}
}

// LLMAttributes returns attributes for an oracle call.
func LLMAttributes(model string, inputTokens, outputTokens int, durationMs float64) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.Int(AttrLLMTokensInput, inputTokens),
		attribute.Int(AttrLLMTokensOutput, outputTokens),
		attribute.Int(AttrLLMTokensTotal, inputTokens+outputTokens),
		attribute.Float64(AttrLLMDurationMs, durationMs),
	}
	if model != "" {
		attrs = append(attrs, attribute.String(AttrLLMModel, model))
	}
	return attrs
}
