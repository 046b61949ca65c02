// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads crew settings from defaults, a YAML file, an optional
// profile overlay, CREW_* environment variables and key=value overrides,
// in that order.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/jllopis/bringacrew/pkg/errors"
)

// EnvPrefix prefixes environment overrides: CREW_LLM_MODEL -> llm.model.
const EnvPrefix = "CREW_"

type Config struct {
	Log       LogConfig       `koanf:"log"`
	LLM       LLMConfig       `koanf:"llm"`
	Agent     AgentConfig     `koanf:"agent"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Crew      CrewConfig      `koanf:"crew"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json, text
	// File, when set, receives a JSON copy of every record.
	File string `koanf:"file"`
}

type LLMConfig struct {
	Provider    string        `koanf:"provider"` // ollama, mock
	Model       string        `koanf:"model"`
	BaseURL     string        `koanf:"base_url"`
	Temperature float64       `koanf:"temperature"`
	Timeout     time.Duration `koanf:"timeout"`
	Retries     int           `koanf:"retries"`
}

type AgentConfig struct {
	MaxTurns             int    `koanf:"max_turns"`
	MalformedPolicy      string `koanf:"malformed_policy"` // fail, reprompt
	PropagateAgentErrors bool   `koanf:"propagate_agent_errors"`
}

type TelemetryConfig struct {
	Enabled      bool   `koanf:"enabled"`
	Exporter     string `koanf:"exporter"` // stdout, otlp, none
	OTLPEndpoint string `koanf:"otlp_endpoint"`
	OTLPInsecure bool   `koanf:"otlp_insecure"`
}

type CrewConfig struct {
	File string `koanf:"file"`
	// MCPTimeout bounds every MCP tool call. Zero disables the bound.
	MCPTimeout time.Duration `koanf:"mcp_timeout"`
}

// Options selects the sources Load merges on top of the defaults.
type Options struct {
	Path    string
	Profile string
	// Sets are key=value overrides applied last, e.g. "llm.model=phi4".
	Sets []string
}

var defaults = map[string]interface{}{
	"log.level":                    "info",
	"log.format":                   "text",
	"llm.provider":                 "ollama",
	"llm.model":                    "phi4",
	"llm.base_url":                 "http://localhost:11434",
	"llm.temperature":              0.0,
	"llm.timeout":                  "0s",
	"llm.retries":                  0,
	"agent.max_turns":              10,
	"agent.malformed_policy":       "fail",
	"agent.propagate_agent_errors": false,
	"telemetry.enabled":            false,
	"telemetry.exporter":           "stdout",
	"crew.file":                    "crew.yaml",
	"crew.mcp_timeout":             "30s",
}

// Load reads defaults, then path (if set), then the environment.
func Load(path string) (*Config, error) {
	return LoadOptions(Options{Path: path})
}

// LoadWithProfile is Load plus the <name>.<profile><ext> overlay next to path.
func LoadWithProfile(path, profile string) (*Config, error) {
	return LoadOptions(Options{Path: path, Profile: profile})
}

// LoadOptions merges every source in opts and validates the result.
func LoadOptions(opts Options) (*Config, error) {
	k := koanf.New(".")
	for key, v := range defaults {
		if err := k.Set(key, v); err != nil {
			return nil, err
		}
	}

	if opts.Path != "" {
		if err := k.Load(file.Provider(opts.Path), yaml.Parser()); err != nil {
			return nil, errors.New(errors.CodeInvalidInput, "load config file", err).
				WithContext("path", opts.Path)
		}
		if overlay := profileConfigPath(opts.Path, opts.Profile); overlay != "" {
			if err := k.Load(file.Provider(overlay), yaml.Parser()); err != nil {
				return nil, errors.New(errors.CodeInvalidInput, "load profile config", err).
					WithContext("path", overlay)
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return envKey(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, err
	}

	for _, kv := range opts.Sets {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, errors.New(errors.CodeInvalidInput, "override must be key=value", nil).
				WithContext("override", kv)
		}
		if err := k.Set(strings.TrimSpace(key), value); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, errors.New(errors.CodeInvalidInput, "decode config", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey maps LLM_BASE_URL to llm.base_url: the first underscore separates
// the section, the rest belong to the field name.
func envKey(s string) string {
	s = strings.ToLower(s)
	section, field, ok := strings.Cut(s, "_")
	if !ok {
		return s
	}
	return section + "." + field
}

// profileConfigPath returns the overlay file for profile, or "" when there
// is none on disk.
func profileConfigPath(base, profile string) string {
	if base == "" || profile == "" {
		return ""
	}
	ext := filepath.Ext(base)
	candidate := strings.TrimSuffix(base, ext) + "." + profile + ext
	if _, err := os.Stat(candidate); err != nil {
		return ""
	}
	return candidate
}

// Validate rejects settings the crew cannot run with.
func (c *Config) Validate() error {
	invalid := func(msg, key string, value interface{}) error {
		return errors.New(errors.CodeInvalidInput, msg, nil).
			WithContext("key", key).
			WithContext("value", value)
	}
	switch c.LLM.Provider {
	case "ollama", "mock":
	default:
		return invalid("unknown llm provider", "llm.provider", c.LLM.Provider)
	}
	if c.LLM.Retries < 0 {
		return invalid("retries must not be negative", "llm.retries", c.LLM.Retries)
	}
	if c.LLM.Timeout < 0 {
		return invalid("timeout must not be negative", "llm.timeout", c.LLM.Timeout)
	}
	if c.Agent.MaxTurns < 1 {
		return invalid("max turns must be positive", "agent.max_turns", c.Agent.MaxTurns)
	}
	switch strings.ToLower(c.Agent.MalformedPolicy) {
	case "", "fail", "reprompt":
	default:
		return invalid("unknown malformed policy", "agent.malformed_policy", c.Agent.MalformedPolicy)
	}
	switch c.Telemetry.Exporter {
	case "", "stdout", "otlp", "none":
	default:
		return invalid("unknown telemetry exporter", "telemetry.exporter", c.Telemetry.Exporter)
	}
	return nil
}
