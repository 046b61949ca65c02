// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jllopis/bringacrew/pkg/capability"
	"github.com/jllopis/bringacrew/pkg/conversation"
	"github.com/jllopis/bringacrew/pkg/errors"
	"github.com/jllopis/bringacrew/pkg/llm"
	"github.com/jllopis/bringacrew/pkg/protocol"
	"github.com/jllopis/bringacrew/pkg/telemetry"
)

// DefaultMaxTurns bounds a question when no budget is configured.
const DefaultMaxTurns = 10

const tracerName = "bringacrew/agent"

// State is a phase of the turn engine.
type State string

const (
	StateReady      State = "ready"
	StateThinking   State = "thinking"
	StateActing     State = "acting"
	StateAnswered   State = "answered"
	StateMalformed  State = "malformed"
	StateTerminated State = "terminated"
)

// MalformedPolicy decides what happens when a reply has no directive.
type MalformedPolicy int

const (
	// MalformedFail ends the question with NO_ACTION_OR_ANSWER.
	MalformedFail MalformedPolicy = iota
	// MalformedReprompt reminds the oracle of the grammar and keeps going,
	// still bounded by the turn budget.
	MalformedReprompt
)

// ParseMalformedPolicy maps a config string to a policy.
func ParseMalformedPolicy(s string) (MalformedPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fail":
		return MalformedFail, nil
	case "reprompt":
		return MalformedReprompt, nil
	default:
		return MalformedFail, NewInvalidInputError("unknown malformed policy: " + s)
	}
}

// String returns the config spelling of the policy.
func (p MalformedPolicy) String() string {
	if p == MalformedReprompt {
		return "reprompt"
	}
	return "fail"
}

const repromptText = "your reply contained neither an 'Action: <name>: <arguments>' line " +
	"nor an 'Answer: <text>' line. Reply with exactly one of them."

// TurnEvent describes one engine transition. Hooks receive one event per
// transition, in order.
type TurnEvent struct {
	Agent    string
	Turn     int
	State    State
	Reply    string
	Action   string
	Argument string
	// Observation is the formatted observation appended after an action.
	Observation string
	Answer      string
	Err         error
	Usage       llm.Usage
	Duration    time.Duration
}

// Hook observes engine transitions.
type Hook interface {
	OnTurn(ctx context.Context, ev TurnEvent)
}

// HookFunc adapts a function to Hook.
type HookFunc func(ctx context.Context, ev TurnEvent)

// OnTurn calls f.
func (f HookFunc) OnTurn(ctx context.Context, ev TurnEvent) { f(ctx, ev) }

// Engine drives the think, act, observe cycle for one agent.
type Engine struct {
	name                 string
	provider             llm.Provider
	registry             *capability.Registry
	model                string
	temperature          float64
	maxTurns             int
	malformed            MalformedPolicy
	propagateAgentErrors bool
	logger               *slog.Logger
	hooks                []Hook
	tracer               trace.Tracer
}

// Run appends question to conv and loops until the oracle answers, fails,
// or the turn budget runs out.
func (e *Engine) Run(ctx context.Context, conv *conversation.Conversation, question string) (string, error) {
	conv.AppendUser(question)
	e.emit(ctx, TurnEvent{State: StateReady})

	for turn := 1; turn <= e.maxTurns; turn++ {
		if err := ctx.Err(); err != nil {
			return e.fail(ctx, turn, err)
		}

		answer, done, err := e.turn(ctx, conv, turn)
		if err != nil {
			return e.fail(ctx, turn, err)
		}
		if done {
			e.emit(ctx, TurnEvent{Turn: turn, State: StateTerminated, Answer: answer})
			return answer, nil
		}
	}

	err := NewTurnBudgetError(e.name, e.maxTurns, conv.Snapshot())
	e.logger.WarnContext(ctx, "turn budget exceeded", "max_turns", e.maxTurns)
	return e.fail(ctx, e.maxTurns, err)
}

// turn runs one Thinking phase and at most one Acting phase.
func (e *Engine) turn(ctx context.Context, conv *conversation.Conversation, turn int) (string, bool, error) {
	ctx, span := e.tracer.Start(ctx, "agent.turn", trace.WithAttributes(
		attribute.String(telemetry.AttrAgentName, e.name),
		attribute.Int(telemetry.AttrAgentTurn, turn),
	))
	defer span.End()

	start := time.Now()
	resp, err := e.provider.Chat(ctx, llm.ChatRequest{
		Model:       e.model,
		Messages:    conversation.ToLLM(conv.Snapshot()),
		Stop:        []string{protocol.StopSequence},
		Temperature: e.temperature,
	})
	if err == nil && resp == nil {
		err = errors.New(errors.CodeInternal, "provider returned no response", nil)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "llm call failed")
		return "", false, WrapLLMError(err, e.name, e.model, turn)
	}

	reply := resp.Content
	conv.AppendAssistant(reply)
	e.emit(ctx, TurnEvent{Turn: turn, State: StateThinking, Reply: reply, Usage: resp.Usage, Duration: time.Since(start)})
	e.logger.DebugContext(ctx, "oracle reply", "turn", turn, "reply", reply)

	switch r := protocol.Parse(reply).(type) {
	case protocol.FinalAnswer:
		span.SetAttributes(attribute.String(telemetry.AttrTurnState, string(StateAnswered)))
		e.emit(ctx, TurnEvent{Turn: turn, State: StateAnswered, Answer: r.Text})
		e.logger.InfoContext(ctx, "final answer", "turn", turn, "answer", r.Text)
		return r.Text, true, nil

	case protocol.Action:
		span.SetAttributes(
			attribute.String(telemetry.AttrTurnState, string(StateActing)),
			attribute.String(telemetry.AttrActionName, r.Name),
		)
		if err := e.act(ctx, conv, turn, r); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "action failed")
			return "", false, err
		}
		return "", false, nil

	case protocol.Malformed:
		span.SetAttributes(attribute.String(telemetry.AttrTurnState, string(StateMalformed)))
		e.emit(ctx, TurnEvent{Turn: turn, State: StateMalformed, Reply: r.Raw})
		if e.malformed == MalformedReprompt {
			e.logger.WarnContext(ctx, "no action or answer, reprompting", "turn", turn)
			conv.AppendObservation(repromptText)
			return "", false, nil
		}
		e.logger.ErrorContext(ctx, "no action or answer found", "turn", turn, "reply", r.Raw)
		return "", false, NewNoActionOrAnswerError(e.name, r.Raw, turn)
	}

	return "", false, errors.New(errors.CodeInternal, "unreachable turn result", nil)
}

// act dispatches one action and appends its observation.
func (e *Engine) act(ctx context.Context, conv *conversation.Conversation, turn int, action protocol.Action) error {
	target, err := e.registry.Lookup(action.Name)
	if err != nil {
		e.logger.ErrorContext(ctx, "unknown action", "action", action.Name, "argument", action.Argument)
		return NewUnknownActionError(err, e.name, action.Name, action.Argument)
	}

	e.logger.InfoContext(ctx, "running action", "turn", turn, "action", action.Name, "argument", action.Argument)
	start := time.Now()
	result, err := target.Perform(ctx, action.Argument)
	if err != nil {
		result, err = e.recoverNested(ctx, target, err)
		if err != nil {
			return WrapCapabilityError(err, e.name, action.Name, action.Argument)
		}
	}

	msg := conv.AppendObservation(result)
	e.emit(ctx, TurnEvent{
		Turn:        turn,
		State:       StateActing,
		Action:      action.Name,
		Argument:    action.Argument,
		Observation: msg.Content,
		Duration:    time.Since(start),
	})
	e.logger.InfoContext(ctx, "observation", "turn", turn, "observation", msg.Content)
	return nil
}

// recoverNested turns a nested agent failure into an observation for the
// parent, unless propagation was requested or the failure cannot be
// meaningfully reported to the oracle.
func (e *Engine) recoverNested(ctx context.Context, target capability.Capability, err error) (string, error) {
	if _, nested := target.(*Agent); !nested || e.propagateAgentErrors {
		return "", err
	}
	if ctx.Err() != nil || errors.HasCode(err, errors.CodeCapabilityCycle) {
		return "", err
	}
	e.logger.WarnContext(ctx, "nested agent failed, reporting as observation", "capability", target.Name(), "error", err)
	return "error: " + err.Error(), nil
}

func (e *Engine) fail(ctx context.Context, turn int, err error) (string, error) {
	e.emit(ctx, TurnEvent{Turn: turn, State: StateTerminated, Err: err})
	return "", err
}

func (e *Engine) emit(ctx context.Context, ev TurnEvent) {
	ev.Agent = e.name
	for _, h := range e.hooks {
		h.OnTurn(ctx, ev)
	}
}

func newTracer() trace.Tracer {
	return otel.Tracer(tracerName)
}
