// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

// Package crew loads crew files and builds the agents they describe.
//
// A crew file names agents, the built-in or MCP capabilities each one may
// call, the agents each one may delegate to, and the root agent that
// receives questions:
//
//	agents:
//	  - name: room_manager
//	    intro: checks the availability of rooms and books them.
//	    capabilities: [check_available_room, book_room]
//	  - name: orchestration_agent
//	    agents: [room_manager]
//	root: orchestration_agent
package crew

import (
	"bytes"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jllopis/bringacrew/pkg/capabilities"
	"github.com/jllopis/bringacrew/pkg/errors"
	"github.com/jllopis/bringacrew/pkg/mcp"
)

// Definition is a parsed crew file.
type Definition struct {
	Agents     []AgentSpec     `yaml:"agents"`
	MCPServers []MCPServerSpec `yaml:"mcp_servers"`
	Root       string          `yaml:"root"`
}

// AgentSpec describes one agent.
type AgentSpec struct {
	Name  string `yaml:"name"`
	Intro string `yaml:"intro"`
	// MaxTurns overrides the crew default when positive.
	MaxTurns int `yaml:"max_turns"`
	// Prompt is an optional system prompt template (see agent.PromptData).
	Prompt string `yaml:"prompt"`
	// Capabilities are built-in names or MCP tool names as prefix__tool.
	Capabilities []string `yaml:"capabilities"`
	// MCP names servers whose every tool the agent may call.
	MCP    []string `yaml:"mcp"`
	Agents []string `yaml:"agents"`
}

// MCPServerSpec describes an MCP server. Command starts a stdio server;
// URL connects to a streamable HTTP one.
type MCPServerSpec struct {
	Name    string            `yaml:"name"`
	Command string            `yaml:"command"`
	Args    []string          `yaml:"args"`
	Env     map[string]string `yaml:"env"`
	URL     string            `yaml:"url"`
	// Prefix namespaces tool names; it defaults to Name.
	Prefix  string        `yaml:"prefix"`
	Timeout time.Duration `yaml:"timeout"`
}

// ToolPrefix returns the namespace of the server's capabilities.
func (s MCPServerSpec) ToolPrefix() string {
	if s.Prefix != "" {
		return s.Prefix
	}
	return s.Name
}

// Load reads and validates a crew file.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(errors.CodeInvalidInput, "read crew file", err).
			WithContext("path", path)
	}
	def, err := Parse(data)
	if err != nil {
		if ce := errors.AsCrewError(err); ce != nil {
			return nil, ce.WithContext("path", path)
		}
		return nil, err
	}
	return def, nil
}

// Parse decodes and validates a crew definition.
func Parse(data []byte) (*Definition, error) {
	var def Definition
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&def); err != nil {
		return nil, errors.New(errors.CodeInvalidInput, "parse crew file", err)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

var nameRe = regexp.MustCompile(`^\w+$`)

// Validate checks names and references and rejects delegation cycles. When
// Root is empty and there is exactly one agent, that agent becomes the root.
func (d *Definition) Validate() error {
	if len(d.Agents) == 0 {
		return invalid("crew defines no agents")
	}

	servers := map[string]MCPServerSpec{}
	prefixes := map[string]bool{}
	for _, s := range d.MCPServers {
		if s.Name == "" {
			return invalid("mcp server name is required")
		}
		if _, dup := servers[s.Name]; dup {
			return invalid("duplicate mcp server").WithContext("server", s.Name)
		}
		if (s.Command == "") == (s.URL == "") {
			return invalid("mcp server needs exactly one of command or url").WithContext("server", s.Name)
		}
		servers[s.Name] = s
		prefixes[mcp.CapabilityName("", s.ToolPrefix())] = true
	}

	byName := map[string]AgentSpec{}
	for _, a := range d.Agents {
		if !nameRe.MatchString(a.Name) {
			return invalid("agent name must be a single word of letters, digits or underscores").
				WithContext("agent", a.Name)
		}
		if _, dup := byName[a.Name]; dup {
			return errors.New(errors.CodeDuplicateCapability, "duplicate agent", nil).
				WithContext("agent", a.Name)
		}
		if a.MaxTurns < 0 {
			return invalid("max_turns must not be negative").WithContext("agent", a.Name)
		}
		byName[a.Name] = a
	}

	for _, a := range d.Agents {
		seen := map[string]bool{}
		for _, c := range a.Capabilities {
			if seen[c] {
				return errors.New(errors.CodeDuplicateCapability, "capability listed twice", nil).
					WithContext("agent", a.Name).
					WithContext("capability", c)
			}
			seen[c] = true
			if !capabilities.IsBuiltin(c) && !hasToolPrefix(c, prefixes) {
				return errors.New(errors.CodeUnknownCapability, "unknown capability", nil).
					WithContext("agent", a.Name).
					WithContext("capability", c)
			}
		}
		for _, s := range a.MCP {
			if _, ok := servers[s]; !ok {
				return errors.New(errors.CodeUnknownCapability, "unknown mcp server", nil).
					WithContext("agent", a.Name).
					WithContext("server", s)
			}
		}
		for _, n := range a.Agents {
			if seen[n] {
				return errors.New(errors.CodeDuplicateCapability, "capability listed twice", nil).
					WithContext("agent", a.Name).
					WithContext("capability", n)
			}
			seen[n] = true
			if _, ok := byName[n]; !ok {
				return errors.New(errors.CodeUnknownCapability, "unknown agent", nil).
					WithContext("agent", a.Name).
					WithContext("delegate", n)
			}
		}
	}

	if _, err := d.BuildOrder(); err != nil {
		return err
	}

	if d.Root == "" {
		if len(d.Agents) != 1 {
			return invalid("root is required when the crew has several agents")
		}
		d.Root = d.Agents[0].Name
	}
	if _, ok := byName[d.Root]; !ok {
		return invalid("root names an unknown agent").WithContext("root", d.Root)
	}
	return nil
}

// Agent returns the AgentSpec named name.
func (d *Definition) Agent(name string) (AgentSpec, bool) {
	for _, a := range d.Agents {
		if a.Name == name {
			return a, true
		}
	}
	return AgentSpec{}, false
}

// BuildOrder returns agent names so that every agent comes after the
// agents it delegates to. A delegation cycle is a CAPABILITY_CYCLE error.
func (d *Definition) BuildOrder() ([]string, error) {
	const (
		unvisited = iota
		visiting
		done
	)
	state := map[string]int{}
	specs := map[string]AgentSpec{}
	for _, a := range d.Agents {
		specs[a.Name] = a
	}

	var order []string
	var path []string
	var visit func(name string) error
	visit = func(name string) error {
		switch state[name] {
		case done:
			return nil
		case visiting:
			return errors.New(errors.CodeCapabilityCycle, "agent delegation cycle", nil).
				WithContext("agent", name).
				WithContext("via", strings.Join(append(path, name), " -> "))
		}
		state[name] = visiting
		path = append(path, name)
		for _, n := range specs[name].Agents {
			if err := visit(n); err != nil {
				return err
			}
		}
		path = path[:len(path)-1]
		state[name] = done
		order = append(order, name)
		return nil
	}

	for _, a := range d.Agents {
		if err := visit(a.Name); err != nil {
			return nil, err
		}
	}
	return order, nil
}

func hasToolPrefix(name string, prefixes map[string]bool) bool {
	prefix, _, ok := strings.Cut(name, "__")
	return ok && prefixes[prefix]
}

func invalid(msg string) *errors.CrewError {
	return errors.New(errors.CodeInvalidInput, fmt.Sprintf("invalid crew: %s", msg), nil)
}
