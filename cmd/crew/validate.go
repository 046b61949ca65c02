// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

type validateResult struct {
	File       string   `json:"file"`
	Root       string   `json:"root"`
	BuildOrder []string `json:"build_order"`
	MCPServers []string `json:"mcp_servers,omitempty"`
	Connected  bool     `json:"connected"`
}

func newValidateCmd(a *app) *cobra.Command {
	var connect bool
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the crew file for unknown references and delegation cycles",
		Long: `Check the crew file for unknown references and delegation cycles.

With --connect the crew is also built, which starts every MCP server and
resolves the MCP tools each agent names.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			def, err := a.loadCrew()
			if err != nil {
				return err
			}
			order, err := def.BuildOrder()
			if err != nil {
				return err
			}
			result := validateResult{File: a.cfg.Crew.File, Root: def.Root, BuildOrder: order}
			for _, s := range def.MCPServers {
				result.MCPServers = append(result.MCPServers, s.Name)
			}

			if connect {
				c, err := a.buildCrew(cmd.Context())
				if err != nil {
					return err
				}
				if err := c.Close(); err != nil {
					return err
				}
				result.Connected = true
			}

			out := cmd.OutOrStdout()
			if a.flags.JSON {
				return json.NewEncoder(out).Encode(result)
			}
			fmt.Fprintf(out, "%s: ok\n", result.File)
			fmt.Fprintf(out, "  root:        %s\n", result.Root)
			fmt.Fprintf(out, "  build order: %s\n", strings.Join(result.BuildOrder, " -> "))
			if len(result.MCPServers) > 0 {
				fmt.Fprintf(out, "  mcp servers: %s (connected: %t)\n", strings.Join(result.MCPServers, ", "), result.Connected)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&connect, "connect", false, "also build the crew and connect to its MCP servers")
	return cmd
}
