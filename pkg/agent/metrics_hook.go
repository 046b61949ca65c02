// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"context"

	"github.com/jllopis/bringacrew/pkg/telemetry"
)

// MetricsHook records engine transitions on m. A nil m yields a no-op hook.
func MetricsHook(m *telemetry.EngineMetrics) Hook {
	return HookFunc(func(ctx context.Context, ev TurnEvent) {
		switch ev.State {
		case StateThinking:
			m.RecordTurn(ctx, ev.Agent, string(ev.State), ev.Usage.TotalTokens)
		case StateActing:
			m.RecordAction(ctx, ev.Agent, ev.Action, ev.Duration, true)
		case StateTerminated:
			m.RecordQuestion(ctx, ev.Agent, ev.Err)
		}
	})
}
