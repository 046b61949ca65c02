// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package crew

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/jllopis/bringacrew/pkg/agent"
	"github.com/jllopis/bringacrew/pkg/capabilities"
	"github.com/jllopis/bringacrew/pkg/capability"
	"github.com/jllopis/bringacrew/pkg/errors"
	"github.com/jllopis/bringacrew/pkg/llm"
	"github.com/jllopis/bringacrew/pkg/mcp"
	"github.com/jllopis/bringacrew/pkg/resilience"
)

// ToolSource is a connected MCP server.
type ToolSource interface {
	mcp.ToolLister
	mcp.ToolCaller
	Close() error
}

// Connector opens a connection to an MCP server.
type Connector func(ctx context.Context, spec MCPServerSpec) (ToolSource, error)

// BuildOptions are the crew-wide agent settings.
type BuildOptions struct {
	Logger      *slog.Logger
	Model       string
	Temperature float64
	// MaxTurns applies to agents whose spec sets none.
	MaxTurns             int
	MalformedPolicy      agent.MalformedPolicy
	PropagateAgentErrors bool
	Hooks                []agent.Hook

	// Catalog provides built-in capabilities. When nil, Build opens one
	// and the crew closes it.
	Catalog *capabilities.Catalog

	// MCPTimeout bounds each MCP tool call and is the default server timeout.
	MCPTimeout time.Duration
	// Breaker configures one circuit breaker per MCP tool.
	Breaker resilience.CircuitBreakerConfig
	// Connect replaces the default stdio and HTTP connector.
	Connect Connector
}

// Crew is a built set of agents.
type Crew struct {
	root    string
	order   []string
	agents  map[string]*agent.Agent
	closers []func() error
}

// Build connects the MCP servers and builds every agent, delegates first.
// On error everything opened so far is closed.
func (d *Definition) Build(ctx context.Context, provider llm.Provider, opts BuildOptions) (_ *Crew, err error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	order, err := d.BuildOrder()
	if err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Connect == nil {
		opts.Connect = connectMCP
	}

	c := &Crew{root: d.Root, order: order, agents: map[string]*agent.Agent{}}
	defer func() {
		if err != nil {
			_ = c.Close()
		}
	}()

	catalog := opts.Catalog
	if catalog == nil {
		catalog, err = capabilities.Builtins(ctx)
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, catalog.Close)
	}

	tools, byServer, err := d.connectServers(ctx, c, opts)
	if err != nil {
		return nil, err
	}

	for _, name := range order {
		spec, _ := d.Agent(name)
		a, err := c.buildAgent(spec, provider, catalog, tools, byServer, opts)
		if err != nil {
			return nil, err
		}
		c.agents[name] = a
		opts.Logger.Debug("agent built", "agent", name, "capabilities", a.Registry().Names())
	}
	return c, nil
}

func (d *Definition) connectServers(ctx context.Context, c *Crew, opts BuildOptions) (map[string]capability.Capability, map[string][]capability.Capability, error) {
	tools := map[string]capability.Capability{}
	byServer := map[string][]capability.Capability{}
	for _, s := range d.MCPServers {
		if s.Timeout <= 0 {
			s.Timeout = opts.MCPTimeout
		}
		src, err := opts.Connect(ctx, s)
		if err != nil {
			return nil, nil, errors.New(errors.CodeUnavailable, "connect mcp server", err).
				WithContext("server", s.Name).
				WithRecoverable(true)
		}
		c.closers = append(c.closers, src.Close)

		caps, err := mcp.Capabilities(ctx, s.ToolPrefix(), src)
		if err != nil {
			return nil, nil, err
		}
		for _, tc := range caps {
			breakerCfg := opts.Breaker
			breakerCfg.Name = tc.Name()
			guarded := resilience.GuardCapability(tc, s.Timeout, resilience.NewCircuitBreaker(breakerCfg))
			tools[tc.Name()] = guarded
			byServer[s.Name] = append(byServer[s.Name], guarded)
		}
		opts.Logger.Info("mcp server connected", "server", s.Name, "tools", len(caps))
	}
	return tools, byServer, nil
}

func (c *Crew) buildAgent(spec AgentSpec, provider llm.Provider, catalog *capabilities.Catalog,
	tools map[string]capability.Capability, byServer map[string][]capability.Capability, opts BuildOptions,
) (*agent.Agent, error) {
	var caps []capability.Capability
	for _, name := range spec.Capabilities {
		if capab, ok := catalog.Lookup(name); ok {
			caps = append(caps, capab)
			continue
		}
		capab, ok := tools[name]
		if !ok {
			return nil, errors.New(errors.CodeUnknownCapability, "capability not offered by any mcp server", nil).
				WithContext("agent", spec.Name).
				WithContext("capability", name)
		}
		caps = append(caps, capab)
	}
	for _, server := range spec.MCP {
		caps = append(caps, byServer[server]...)
	}
	for _, name := range spec.Agents {
		caps = append(caps, c.agents[name])
	}

	maxTurns := opts.MaxTurns
	if spec.MaxTurns > 0 {
		maxTurns = spec.MaxTurns
	}
	if maxTurns < 1 {
		maxTurns = agent.DefaultMaxTurns
	}

	agentOpts := []agent.Option{
		agent.WithIntro(spec.Intro),
		agent.WithCapabilities(caps...),
		agent.WithMaxTurns(maxTurns),
		agent.WithModel(opts.Model),
		agent.WithTemperature(opts.Temperature),
		agent.WithLogger(opts.Logger),
		agent.WithMalformedPolicy(opts.MalformedPolicy),
		agent.WithPropagateAgentErrors(opts.PropagateAgentErrors),
		agent.WithHooks(opts.Hooks...),
	}
	if spec.Prompt != "" {
		tmpl, err := agent.ParsePromptTemplate(spec.Name, spec.Prompt)
		if err != nil {
			return nil, err
		}
		agentOpts = append(agentOpts, agent.WithPromptTemplate(tmpl))
	}
	return agent.New(spec.Name, provider, agentOpts...)
}

// Root returns the agent that receives questions.
func (c *Crew) Root() *agent.Agent {
	return c.agents[c.root]
}

// Agent returns the named agent.
func (c *Crew) Agent(name string) (*agent.Agent, bool) {
	a, ok := c.agents[name]
	return a, ok
}

// Names lists the agents in build order, delegates first.
func (c *Crew) Names() []string {
	return append([]string(nil), c.order...)
}

// Close releases MCP connections and the built-in stores, in reverse order.
func (c *Crew) Close() error {
	var first error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	c.closers = nil
	return first
}

func connectMCP(ctx context.Context, spec MCPServerSpec) (ToolSource, error) {
	var opts []mcp.ClientOption
	if spec.Timeout > 0 {
		opts = append(opts, mcp.WithTimeout(spec.Timeout))
	}
	if spec.URL != "" {
		return mcp.NewClientWithStreamableHTTP(ctx, spec.URL, opts...)
	}
	env := make([]string, 0, len(spec.Env))
	for k, v := range spec.Env {
		env = append(env, k+"="+v)
	}
	sort.Strings(env)
	return mcp.NewClientWithStdio(ctx, spec.Command, env, spec.Args, opts...)
}
