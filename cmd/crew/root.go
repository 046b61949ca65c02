// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jllopis/bringacrew/pkg/agent"
	"github.com/jllopis/bringacrew/pkg/config"
	"github.com/jllopis/bringacrew/pkg/crew"
	"github.com/jllopis/bringacrew/pkg/llm"
	"github.com/jllopis/bringacrew/pkg/resilience"
	"github.com/jllopis/bringacrew/pkg/telemetry"
)

type globalFlags struct {
	ConfigPath string
	Profile    string
	Sets       []string
	CrewFile   string
	JSON       bool
}

// app holds what every command needs once flags are parsed.
type app struct {
	flags    globalFlags
	cfg      *config.Config
	logger   *slog.Logger
	logFile  *os.File
	shutdown telemetry.ShutdownFunc
	metrics  *telemetry.EngineMetrics
	// provider overrides the configured one in tests.
	provider llm.Provider
}

// newRootCmd returns the command tree and the app it configures. Callers
// run a.teardown once the command returns.
func newRootCmd() (*cobra.Command, *app) {
	a := &app{}
	root := &cobra.Command{
		Use:           "crew",
		Short:         "Ask questions to a crew of ReAct agents",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.flags.ConfigPath, "config", "c", "", "config file (YAML)")
	pf.StringVar(&a.flags.Profile, "profile", "", "config profile overlay, e.g. dev loads config.dev.yaml")
	pf.StringArrayVar(&a.flags.Sets, "set", nil, "config override as key=value (repeatable)")
	pf.StringVar(&a.flags.CrewFile, "crew", "", "crew file (defaults to crew.file from config)")
	pf.BoolVar(&a.flags.JSON, "json", false, "print errors and results as JSON")

	root.AddCommand(
		newAskCmd(a),
		newChatCmd(a),
		newPromptCmd(a),
		newValidateCmd(a),
		newMCPCmd(a),
	)
	return root, a
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.LoadOptions(config.Options{
		Path:    a.flags.ConfigPath,
		Profile: a.flags.Profile,
		Sets:    a.flags.Sets,
	})
	if err != nil {
		return newConfigError(err, a.flags.ConfigPath)
	}
	a.cfg = cfg
	if a.flags.CrewFile != "" {
		a.cfg.Crew.File = a.flags.CrewFile
	}

	var extra []io.Writer
	if cfg.Log.File != "" {
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return newConfigError(err, a.flags.ConfigPath)
		}
		a.logFile = f
		extra = append(extra, f)
	}
	a.logger = telemetry.NewLogger(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format, extra...)

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.Setup(cmd.Context(), cfg.Telemetry, version, cmd.ErrOrStderr(),
			telemetry.CrewAttributes(a.cfg.Crew.File, a.flags.Profile)...)
		if err != nil {
			return newConfigError(err, a.flags.ConfigPath)
		}
		a.shutdown = shutdown
		metrics, err := telemetry.NewEngineMetrics()
		if err != nil {
			return err
		}
		a.metrics = metrics
	}
	return nil
}

func (a *app) teardown(ctx context.Context) error {
	if a.cfg == nil {
		return nil
	}
	var err error
	if a.shutdown != nil {
		err = a.shutdown(context.WithoutCancel(ctx))
		a.shutdown = nil
	}
	if a.logFile != nil {
		_ = a.logFile.Close()
		a.logFile = nil
	}
	return err
}

// newProvider returns the configured oracle wrapped with the configured
// timeout and retry policy.
func (a *app) newProvider() (llm.Provider, error) {
	p := a.provider
	if p == nil {
		switch a.cfg.LLM.Provider {
		case "ollama":
			p = llm.NewOllama(a.cfg.LLM.BaseURL)
		case "mock":
			p = &llm.MockProvider{}
		default:
			return nil, fmt.Errorf("unknown llm provider %q", a.cfg.LLM.Provider)
		}
	}
	if a.cfg.LLM.Timeout > 0 {
		p = resilience.TimeoutProvider(p, a.cfg.LLM.Timeout)
	}
	if a.cfg.LLM.Retries > 0 {
		p = resilience.RetryProvider(p, resilience.DefaultRetryConfig().WithMaxAttempts(a.cfg.LLM.Retries+1))
	}
	return p, nil
}

func (a *app) loadCrew() (*crew.Definition, error) {
	def, err := crew.Load(a.cfg.Crew.File)
	if err != nil {
		return nil, withHint(err, "check the crew file "+a.cfg.Crew.File)
	}
	return def, nil
}

// buildCrew loads the crew file and builds its agents.
func (a *app) buildCrew(ctx context.Context) (*crew.Crew, error) {
	def, err := a.loadCrew()
	if err != nil {
		return nil, err
	}
	provider, err := a.newProvider()
	if err != nil {
		return nil, err
	}
	policy, err := agent.ParseMalformedPolicy(a.cfg.Agent.MalformedPolicy)
	if err != nil {
		return nil, err
	}

	opts := crew.BuildOptions{
		Logger:               a.logger,
		Model:                a.cfg.LLM.Model,
		Temperature:          a.cfg.LLM.Temperature,
		MaxTurns:             a.cfg.Agent.MaxTurns,
		MalformedPolicy:      policy,
		PropagateAgentErrors: a.cfg.Agent.PropagateAgentErrors,
		MCPTimeout:           a.cfg.Crew.MCPTimeout,
	}
	if a.metrics != nil {
		opts.Hooks = append(opts.Hooks, agent.MetricsHook(a.metrics))
	}
	return def.Build(ctx, provider, opts)
}
