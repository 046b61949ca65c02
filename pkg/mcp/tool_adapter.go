// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/jllopis/bringacrew/pkg/capability"
	"github.com/jllopis/bringacrew/pkg/errors"
)

// ToolCaller abstracts MCP tool execution for adapters.
type ToolCaller interface {
	CallTool(ctx context.Context, name string, args map[string]interface{}) (*mcp.CallToolResult, error)
}

// ToolLister lists the tools a server offers.
type ToolLister interface {
	ListTools(ctx context.Context) ([]mcp.Tool, error)
}

// ToolAdapter exposes an MCP tool as a leaf capability. The action argument
// is sent as {"input": argument}, or decoded as the arguments object when it
// is a JSON object.
type ToolAdapter struct {
	name   string
	tool   mcp.Tool
	caller ToolCaller
}

var nonWord = regexp.MustCompile(`\W+`)

// CapabilityName turns an MCP tool name into an action name the command
// grammar accepts, optionally namespaced as prefix__name.
func CapabilityName(prefix, tool string) string {
	name := nonWord.ReplaceAllString(tool, "_")
	if prefix != "" {
		name = nonWord.ReplaceAllString(prefix, "_") + "__" + name
	}
	return name
}

// NewToolAdapter builds a capability backed by an MCP tool definition and caller.
func NewToolAdapter(prefix string, tool mcp.Tool, caller ToolCaller) (*ToolAdapter, error) {
	if tool.Name == "" {
		return nil, errors.New(errors.CodeInvalidInput, "mcp tool name is required", nil)
	}
	if caller == nil {
		return nil, errors.New(errors.CodeInvalidInput, "tool caller is required", nil)
	}
	return &ToolAdapter{
		name:   CapabilityName(prefix, tool.Name),
		tool:   tool,
		caller: caller,
	}, nil
}

// Capabilities lists the server tools and adapts each one.
func Capabilities(ctx context.Context, prefix string, client interface {
	ToolLister
	ToolCaller
}) ([]capability.Capability, error) {
	tools, err := client.ListTools(ctx)
	if err != nil {
		return nil, errors.New(errors.CodeInternal, "list mcp tools", err).
			WithContext("server", prefix)
	}
	caps := make([]capability.Capability, 0, len(tools))
	for _, tool := range tools {
		adapter, err := NewToolAdapter(prefix, tool, client)
		if err != nil {
			return nil, err
		}
		caps = append(caps, adapter)
	}
	return caps, nil
}

// Name returns the grammar-safe capability name.
func (t *ToolAdapter) Name() string {
	return t.name
}

// ToolName returns the tool name on the server.
func (t *ToolAdapter) ToolName() string {
	return t.tool.Name
}

// Description returns the tool description followed by its argument names.
func (t *ToolAdapter) Description() string {
	desc := strings.TrimSpace(t.tool.Description)
	if len(t.tool.InputSchema.Properties) == 0 {
		return desc
	}
	names := make([]string, 0, len(t.tool.InputSchema.Properties))
	for name := range t.tool.InputSchema.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.TrimSpace(desc + " Arguments: " + strings.Join(names, ", ") + " (pass a JSON object for several).")
}

// Perform invokes the MCP tool. Argument problems and tool-reported errors
// are returned as observations; transport failures are errors.
func (t *ToolAdapter) Perform(ctx context.Context, argument string) (string, error) {
	args := normalizeToolArgs(argument)

	trimmed := strings.TrimSpace(argument)
	if trimmed != "" && !strings.HasPrefix(trimmed, "{") {
		if only, ok := singleRequiredField(t.tool); ok {
			args = map[string]interface{}{only: trimmed}
		}
	}

	if err := validateRequiredArgs(t.tool, args); err != nil {
		return "error: " + err.Error(), nil
	}

	result, err := t.caller.CallTool(ctx, t.tool.Name, args)
	if err != nil {
		return "", err
	}
	return toolResultToOutput(result)
}

func normalizeToolArgs(argument string) map[string]interface{} {
	trimmed := strings.TrimSpace(argument)
	if trimmed == "" {
		return map[string]interface{}{}
	}
	if strings.HasPrefix(trimmed, "{") {
		var decoded map[string]interface{}
		if err := json.Unmarshal([]byte(trimmed), &decoded); err == nil {
			return decoded
		}
	}
	return map[string]interface{}{"input": argument}
}

func validateRequiredArgs(tool mcp.Tool, args map[string]interface{}) error {
	schema := tool.InputSchema
	if schema.Type != "" && schema.Type != "object" {
		return nil
	}
	for _, key := range schema.Required {
		if _, ok := args[key]; !ok {
			return fmt.Errorf("missing required field %q", key)
		}
	}
	return nil
}

// singleRequiredField reports the only required field of tool, so a bare
// argument can be sent under its real name.
func singleRequiredField(tool mcp.Tool) (string, bool) {
	if len(tool.InputSchema.Required) != 1 {
		return "", false
	}
	return tool.InputSchema.Required[0], true
}

func toolResultToOutput(result *mcp.CallToolResult) (string, error) {
	if result == nil {
		return "", errors.New(errors.CodeInternal, "mcp tool result is nil", nil)
	}

	text := extractTextContent(result.Content)
	if result.IsError {
		return "error: " + text, nil
	}
	if text != "" {
		return text, nil
	}
	if result.StructuredContent != nil {
		encoded, err := json.Marshal(result.StructuredContent)
		if err != nil {
			return "", errors.New(errors.CodeInternal, "encode structured mcp result", err)
		}
		return string(encoded), nil
	}
	return "", nil
}

func extractTextContent(items []mcp.Content) string {
	var parts []string
	for _, item := range items {
		switch content := item.(type) {
		case mcp.TextContent:
			parts = append(parts, content.Text)
		case *mcp.TextContent:
			parts = append(parts, content.Text)
		default:
			parts = append(parts, fmt.Sprintf("[non-text content: %T]", item))
		}
	}
	return strings.Join(parts, "\n")
}

var _ capability.Capability = (*ToolAdapter)(nil)
