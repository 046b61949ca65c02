// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package mcp

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jllopis/bringacrew/pkg/capability"
)

// InputArgument is the single string argument of served capabilities.
const InputArgument = "input"

// Server exposes capabilities, agents included, as MCP tools.
type Server struct {
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// NewServer creates a new MCP server.
func NewServer(name, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		mcpServer: server.NewMCPServer(name, version, server.WithToolCapabilities(false)),
		logger:    logger,
	}
}

// AddCapability registers c as a tool taking one required "input" string.
// Capability failures are reported as tool errors, not protocol errors.
func (s *Server) AddCapability(c capability.Capability) {
	tool := mcp.NewTool(c.Name(),
		mcp.WithDescription(c.Description()),
		mcp.WithString(InputArgument,
			mcp.Required(),
			mcp.Description("Question or arguments for "+c.Name()),
		),
	)
	s.mcpServer.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		input, err := request.RequireString(InputArgument)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		s.logger.InfoContext(ctx, "mcp tool call", "tool", c.Name(), "input", input)
		out, err := c.Perform(ctx, input)
		if err != nil {
			s.logger.ErrorContext(ctx, "mcp tool failed", "tool", c.Name(), "error", err)
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(out), nil
	})
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio serves on stdin and stdout until the input is closed.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeStreamableHTTP serves on addr until ctx is done.
func (s *Server) ServeStreamableHTTP(ctx context.Context, addr string) error {
	httpServer := server.NewStreamableHTTPServer(s.mcpServer)
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start(addr)
	}()
	s.logger.Info("mcp server listening", "addr", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return httpServer.Shutdown(context.Background())
	}
}
