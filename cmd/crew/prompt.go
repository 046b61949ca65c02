// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPromptCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "prompt [agent]",
		Short: "Print the system prompt an agent sends to the model",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.buildCrew(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			target, err := pickAgent(c, name)
			if err != nil {
				return err
			}
			prompt, err := target.SystemPrompt()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), prompt)
			return nil
		},
	}
}
