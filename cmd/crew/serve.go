// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/spf13/cobra"

	"github.com/jllopis/bringacrew/pkg/mcp"
	"github.com/jllopis/bringacrew/pkg/telemetry"
)

func newMCPCmd(a *app) *cobra.Command {
	var (
		httpAddr string
		all      bool
	)
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the crew as MCP tools",
		Long: `Serve the crew as MCP tools. Each served agent becomes a tool taking one
"input" string, the question, and returning the agent's answer.

Stdio is used unless --http is given; logs always go to stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.buildCrew(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			srv := newCrewServer(a, c, all)
			if httpAddr != "" {
				return srv.ServeStreamableHTTP(cmd.Context(), httpAddr)
			}
			return srv.ServeStdio()
		},
	}
	cmd.Flags().StringVar(&httpAddr, "http", "", "serve streamable HTTP on this address instead of stdio, e.g. :8088")
	cmd.Flags().BoolVar(&all, "all", false, "serve every agent, not only the root")
	return cmd
}

func newCrewServer(a *app, c agentSet, all bool) *mcp.Server {
	srv := mcp.NewServer(telemetry.ServiceName, version, a.logger)
	if !all {
		srv.AddCapability(c.Root())
		return srv
	}
	for _, name := range c.Names() {
		ag, _ := c.Agent(name)
		srv.AddCapability(ag)
	}
	return srv
}
