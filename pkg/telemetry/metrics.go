// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/jllopis/bringacrew/pkg/errors"
)

const meterName = "bringacrew/agent"

// EngineMetrics records turn engine activity with OTEL instruments.
// A nil *EngineMetrics is valid and records nothing.
type EngineMetrics struct {
	// turnCounter counts completed Thinking phases by agent and resulting state
	turnCounter metric.Int64Counter

	// actionCounter counts dispatched actions by agent, action and outcome
	actionCounter metric.Int64Counter

	// actionDuration tracks handler latency
	actionDuration metric.Float64Histogram

	// questionCounter counts finished questions by agent and outcome
	questionCounter metric.Int64Counter

	// errorCounter tracks errors by code and component
	errorCounter metric.Int64Counter

	// tokenCounter accumulates oracle token usage
	tokenCounter metric.Int64Counter
}

// NewEngineMetrics creates engine instruments on the global meter provider.
func NewEngineMetrics() (*EngineMetrics, error) {
	return NewEngineMetricsWithMeter(otel.Meter(meterName))
}

// NewEngineMetricsWithMeter creates engine instruments on meter.
func NewEngineMetricsWithMeter(meter metric.Meter) (*EngineMetrics, error) {
	turnCounter, err := meter.Int64Counter(
		"crew.turns.total",
		metric.WithDescription("Completed oracle turns by agent and state"),
	)
	if err != nil {
		return nil, err
	}

	actionCounter, err := meter.Int64Counter(
		"crew.actions.total",
		metric.WithDescription("Dispatched actions by agent, action and outcome"),
	)
	if err != nil {
		return nil, err
	}

	actionDuration, err := meter.Float64Histogram(
		"crew.actions.duration",
		metric.WithDescription("Capability execution latency"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	questionCounter, err := meter.Int64Counter(
		"crew.questions.total",
		metric.WithDescription("Finished questions by agent and outcome"),
	)
	if err != nil {
		return nil, err
	}

	errorCounter, err := meter.Int64Counter(
		"crew.errors.total",
		metric.WithDescription("Total errors by code and component"),
	)
	if err != nil {
		return nil, err
	}

	tokenCounter, err := meter.Int64Counter(
		"crew.llm.tokens",
		metric.WithDescription("Oracle tokens consumed by agent"),
	)
	if err != nil {
		return nil, err
	}

	return &EngineMetrics{
		turnCounter:     turnCounter,
		actionCounter:   actionCounter,
		actionDuration:  actionDuration,
		questionCounter: questionCounter,
		errorCounter:    errorCounter,
		tokenCounter:    tokenCounter,
	}, nil
}

// RecordTurn counts a turn that ended in state.
func (m *EngineMetrics) RecordTurn(ctx context.Context, agent, state string, totalTokens int) {
	if m == nil {
		return
	}
	m.turnCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrAgentName, agent),
		attribute.String(AttrTurnState, state),
	))
	if totalTokens > 0 {
		m.tokenCounter.Add(ctx, int64(totalTokens), metric.WithAttributes(
			attribute.String(AttrAgentName, agent),
		))
	}
}

// RecordAction counts a dispatched action and its latency.
func (m *EngineMetrics) RecordAction(ctx context.Context, agent, action string, d time.Duration, success bool) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String(AttrAgentName, agent),
		attribute.String(AttrActionName, action),
		attribute.Bool(AttrActionSuccess, success),
	)
	m.actionCounter.Add(ctx, 1, attrs)
	m.actionDuration.Record(ctx, float64(d.Microseconds())/1000, attrs)
}

// RecordQuestion counts a finished question. err is nil on success.
func (m *EngineMetrics) RecordQuestion(ctx context.Context, agent string, err error) {
	if m == nil {
		return
	}
	outcome := "answered"
	if err != nil {
		outcome = "failed"
	}
	m.questionCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrAgentName, agent),
		attribute.String("outcome", outcome),
	))
	if err != nil {
		m.RecordError(ctx, err, agent)
	}
}

// RecordError increments the error counter for the given error and component.
func (m *EngineMetrics) RecordError(ctx context.Context, err error, component string) {
	if m == nil || err == nil {
		return
	}

	code := "UNKNOWN"
	recoverable := "unknown"
	var ce *errors.CrewError
	if errors.As(err, &ce) {
		code = string(ce.Code)
		recoverable = ce.RecoverableString()
	}
	m.errorCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrErrorCode, code),
		attribute.String(AttrComponent, component),
		attribute.String(AttrRecoverable, recoverable),
	))
}
