// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

// Package agent implements the ReAct turn engine and the Agent type that
// couples it with a capability registry and a conversation.
//
// An Agent is itself a capability, so agents can be registered inside other
// agents. Dispatching to a nested agent runs that agent's own loop to
// completion and feeds its answer back as the parent's observation.
package agent

import (
	"context"
	"log/slog"
	"sync"
	"text/template"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jllopis/bringacrew/pkg/capability"
	"github.com/jllopis/bringacrew/pkg/conversation"
	"github.com/jllopis/bringacrew/pkg/errors"
	"github.com/jllopis/bringacrew/pkg/llm"
	"github.com/jllopis/bringacrew/pkg/telemetry"
)

// Agent is a named, callable unit owning its registry and conversation.
type Agent struct {
	name         string
	intro        string
	provider     llm.Provider
	registry     *capability.Registry
	conv         *conversation.Conversation
	systemPrompt string
	promptTmpl   *template.Template
	engine       Engine
	pending      []capability.Capability

	mu       sync.Mutex
	prepared bool
}

// Option configures an Agent instance.
type Option func(*Agent) error

// New creates an Agent. The name is the identifier other agents use when
// this agent is registered as their capability.
func New(name string, provider llm.Provider, opts ...Option) (*Agent, error) {
	if name == "" {
		return nil, NewInvalidInputError("agent name is required")
	}
	if provider == nil {
		return nil, NewInvalidInputError("agent provider is required")
	}
	a := &Agent{
		name:     name,
		provider: provider,
		registry: &capability.Registry{},
		conv:     &conversation.Conversation{},
		engine: Engine{
			name:     name,
			provider: provider,
			maxTurns: DefaultMaxTurns,
			tracer:   newTracer(),
		},
	}
	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}
	if a.engine.maxTurns < 1 {
		return nil, NewInvalidInputError("max turns must be positive")
	}
	if a.engine.logger == nil {
		a.engine.logger = slog.Default()
	}
	a.engine.logger = a.engine.logger.With("agent", name)
	a.engine.registry = a.registry

	for _, c := range a.pending {
		if err := a.Register(c); err != nil {
			return nil, err
		}
	}
	a.pending = nil
	return a, nil
}

// WithIntro sets the short description used when this agent is nested.
func WithIntro(intro string) Option {
	return func(a *Agent) error {
		a.intro = intro
		return nil
	}
}

// WithSystemPrompt sets an explicit system prompt instead of rendering one
// from the registry.
func WithSystemPrompt(prompt string) Option {
	return func(a *Agent) error {
		a.systemPrompt = prompt
		return nil
	}
}

// WithPromptTemplate renders the system prompt with tmpl (see PromptData).
func WithPromptTemplate(tmpl *template.Template) Option {
	return func(a *Agent) error {
		a.promptTmpl = tmpl
		return nil
	}
}

// WithCapabilities registers capabilities, leaf handlers or agents alike.
func WithCapabilities(caps ...capability.Capability) Option {
	return func(a *Agent) error {
		a.pending = append(a.pending, caps...)
		return nil
	}
}

// WithMaxTurns bounds the number of oracle calls per question.
func WithMaxTurns(n int) Option {
	return func(a *Agent) error {
		if n < 1 {
			return NewInvalidInputError("max turns must be positive")
		}
		a.engine.maxTurns = n
		return nil
	}
}

// WithModel sets the model name sent to the provider.
func WithModel(model string) Option {
	return func(a *Agent) error {
		a.engine.model = model
		return nil
	}
}

// WithTemperature sets the sampling temperature. The default is 0.
func WithTemperature(t float64) Option {
	return func(a *Agent) error {
		a.engine.temperature = t
		return nil
	}
}

// WithLogger sets the logger. The agent name is added to every record.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Agent) error {
		a.engine.logger = logger
		return nil
	}
}

// WithMalformedPolicy chooses how replies without a directive are handled.
func WithMalformedPolicy(p MalformedPolicy) Option {
	return func(a *Agent) error {
		a.engine.malformed = p
		return nil
	}
}

// WithPropagateAgentErrors makes nested agent failures fatal for this agent
// instead of reporting them to the oracle as an observation.
func WithPropagateAgentErrors(propagate bool) Option {
	return func(a *Agent) error {
		a.engine.propagateAgentErrors = propagate
		return nil
	}
}

// WithHooks adds engine observers.
func WithHooks(hooks ...Hook) Option {
	return func(a *Agent) error {
		a.engine.hooks = append(a.engine.hooks, hooks...)
		return nil
	}
}

// WithTracer replaces the tracer taken from the global otel provider.
func WithTracer(tracer trace.Tracer) Option {
	return func(a *Agent) error {
		if tracer != nil {
			a.engine.tracer = tracer
		}
		return nil
	}
}

// Name returns the agent identifier.
func (a *Agent) Name() string { return a.name }

// Description returns the agent intro, used when it is rendered as a capability.
func (a *Agent) Description() string { return a.intro }

// MaxTurns returns the turn budget per question.
func (a *Agent) MaxTurns() int { return a.engine.maxTurns }

// Registry returns the agent's capability registry.
func (a *Agent) Registry() *capability.Registry { return a.registry }

// Conversation returns a snapshot of the agent's conversation.
func (a *Agent) Conversation() []conversation.Message { return a.conv.Snapshot() }

// Register adds a capability before the agent's first question. Registering
// an agent that is, or transitively contains, a is rejected.
func (a *Agent) Register(c capability.Capability) error {
	if nested, ok := c.(*Agent); ok && nested != nil {
		if nested == a || nested.contains(a, map[*Agent]bool{}) {
			return NewCycleError(a.name, nested.name)
		}
	}
	return a.registry.Register(c)
}

func (a *Agent) contains(target *Agent, seen map[*Agent]bool) bool {
	if seen[a] {
		return false
	}
	seen[a] = true
	for _, c := range a.registry.All() {
		nested, ok := c.(*Agent)
		if !ok {
			continue
		}
		if nested == target || nested.contains(target, seen) {
			return true
		}
	}
	return false
}

// SystemPrompt returns the system prompt the agent sends (or will send).
func (a *Agent) SystemPrompt() (string, error) {
	if a.systemPrompt != "" {
		return a.systemPrompt, nil
	}
	tmpl := a.promptTmpl
	if tmpl == nil {
		tmpl = defaultTemplateFor(a.registry)
	}
	return RenderPrompt(tmpl, newPromptData(a))
}

// AskQuestion runs the turn engine on question and returns the final answer.
// Calls on one Agent are serialised; use separate Agents for parallel work.
func (a *Agent) AskQuestion(ctx context.Context, question string) (string, error) {
	chain := callChain(ctx)
	for _, caller := range chain {
		if caller == a {
			return "", NewCycleError(a.name, chainNames(chain))
		}
	}
	ctx = withCaller(ctx, a)

	ctx, span := a.engine.tracer.Start(ctx, "agent.ask", trace.WithAttributes(
		attribute.String(telemetry.AttrAgentName, a.name),
		attribute.Int(telemetry.AttrAgentMaxTurns, a.engine.maxTurns),
		attribute.Int(telemetry.AttrAgentDepth, len(chain)),
	))
	defer span.End()

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.prepare(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "prepare failed")
		return "", err
	}

	a.engine.logger.InfoContext(ctx, "received question", "question", question, "depth", len(chain))
	answer, err := a.engine.Run(ctx, a.conv, question)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(errors.CodeOf(err)))
		return "", err
	}
	return answer, nil
}

// Perform implements capability.Capability so an Agent can be nested in
// another Agent's registry.
func (a *Agent) Perform(ctx context.Context, command string) (string, error) {
	return a.AskQuestion(ctx, command)
}

// prepare seals the registry and seeds the conversation on first use.
func (a *Agent) prepare() error {
	if a.prepared {
		return nil
	}
	a.registry.Seal()
	prompt, err := a.SystemPrompt()
	if err != nil {
		return err
	}
	if prompt != "" {
		if err := a.conv.AppendSystem(prompt); err != nil {
			return err
		}
	}
	a.engine.logger.Debug("agent initialised", "system_prompt", prompt)
	a.prepared = true
	return nil
}

type callerKey struct{}

func callChain(ctx context.Context) []*Agent {
	chain, _ := ctx.Value(callerKey{}).([]*Agent)
	return chain
}

func withCaller(ctx context.Context, a *Agent) context.Context {
	chain := callChain(ctx)
	next := make([]*Agent, len(chain), len(chain)+1)
	copy(next, chain)
	return context.WithValue(ctx, callerKey{}, append(next, a))
}

func chainNames(chain []*Agent) string {
	var out string
	for i, a := range chain {
		if i > 0 {
			out += " -> "
		}
		out += a.name
	}
	return out
}

var _ capability.Capability = (*Agent)(nil)
