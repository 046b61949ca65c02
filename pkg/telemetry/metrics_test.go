// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/jllopis/bringacrew/pkg/errors"
)

func newTestMetrics(t *testing.T) (*EngineMetrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewEngineMetricsWithMeter(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewEngineMetricsWithMeter failed: %v", err)
	}
	return m, reader
}

func sumOf(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("metric %s is %T, want Sum[int64]", name, m.Data)
			}
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}

func TestNewEngineMetricsGlobal(t *testing.T) {
	m, err := NewEngineMetrics()
	if err != nil {
		t.Fatalf("NewEngineMetrics failed: %v", err)
	}
	if m == nil {
		t.Fatal("expected non-nil EngineMetrics")
	}
}

func TestRecordTurnsAndActions(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordTurn(ctx, "room_manager", "acting", 20)
	m.RecordTurn(ctx, "room_manager", "answered", 20)
	m.RecordAction(ctx, "room_manager", "book_room", 3*time.Millisecond, true)

	if got := sumOf(t, reader, "crew.turns.total"); got != 2 {
		t.Errorf("crew.turns.total = %d, want 2", got)
	}
	if got := sumOf(t, reader, "crew.llm.tokens"); got != 40 {
		t.Errorf("crew.llm.tokens = %d, want 40", got)
	}
	if got := sumOf(t, reader, "crew.actions.total"); got != 1 {
		t.Errorf("crew.actions.total = %d, want 1", got)
	}
}

func TestRecordQuestionCountsErrors(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordQuestion(ctx, "a", nil)
	m.RecordQuestion(ctx, "a", errors.New(errors.CodeUnknownAction, "unknown", nil))
	m.RecordError(ctx, stderrors.New("plain"), "a")
	m.RecordError(ctx, nil, "a")

	if got := sumOf(t, reader, "crew.questions.total"); got != 2 {
		t.Errorf("crew.questions.total = %d, want 2", got)
	}
	if got := sumOf(t, reader, "crew.errors.total"); got != 2 {
		t.Errorf("crew.errors.total = %d, want 2", got)
	}
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *EngineMetrics
	ctx := context.Background()
	m.RecordTurn(ctx, "a", "acting", 1)
	m.RecordAction(ctx, "a", "x", time.Second, false)
	m.RecordQuestion(ctx, "a", stderrors.New("boom"))
	m.RecordError(ctx, stderrors.New("boom"), "a")
}
