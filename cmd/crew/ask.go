// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jllopis/bringacrew/pkg/agent"
	"github.com/jllopis/bringacrew/pkg/errors"
)

type askResult struct {
	Agent    string `json:"agent"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

func newAskCmd(a *app) *cobra.Command {
	var agentName string
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask the crew one question and print the answer",
		Long: `Ask the crew one question and print the answer.

The question is read from the arguments, or from stdin when none are given.

Examples:
  crew ask "What is 4 * 7 / 3?"
  crew ask --agent room_manager "Is a room free on Monday morning for 4?"
  echo "Book Alice on Tuesday afternoon" | crew ask`,
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.TrimSpace(strings.Join(args, " "))
			if question == "" {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				question = strings.TrimSpace(string(data))
			}
			if question == "" {
				return withHint(errors.New(errors.CodeInvalidInput, "question is required", nil),
					`pass the question as an argument, e.g. crew ask "What is 2 + 2?"`)
			}

			c, err := a.buildCrew(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			target, err := pickAgent(c, agentName)
			if err != nil {
				return err
			}
			answer, err := target.AskQuestion(cmd.Context(), question)
			if err != nil {
				return err
			}

			if a.flags.JSON {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(askResult{
					Agent:    target.Name(),
					Question: question,
					Answer:   answer,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), answer)
			return nil
		},
	}
	cmd.Flags().StringVarP(&agentName, "agent", "a", "", "agent to ask (defaults to the crew root)")
	return cmd
}

func newChatCmd(a *app) *cobra.Command {
	var agentName string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the crew interactively",
		Long: `Talk to the crew interactively. The agent keeps the conversation between
questions. Type "exit" to quit and "/new" to start a fresh conversation.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.buildCrew(cmd.Context())
			if err != nil {
				return err
			}
			defer func() {
				if c != nil {
					_ = c.Close()
				}
			}()

			target, err := pickAgent(c, agentName)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			errOut := cmd.ErrOrStderr()
			fmt.Fprintf(errOut, "Chatting with %s (model: %s). Type \"exit\" to quit, \"/new\" for a new conversation.\n\n",
				target.Name(), a.cfg.LLM.Model)

			scanner := bufio.NewScanner(cmd.InOrStdin())
			for {
				fmt.Fprint(errOut, "You: ")
				if !scanner.Scan() {
					break
				}
				input := strings.TrimSpace(scanner.Text())
				switch input {
				case "":
					continue
				case "exit", "quit":
					return nil
				case "/new":
					_ = c.Close()
					if c, err = a.buildCrew(cmd.Context()); err != nil {
						return err
					}
					if target, err = pickAgent(c, agentName); err != nil {
						return err
					}
					fmt.Fprintln(errOut, "New conversation.")
					continue
				}

				answer, err := target.AskQuestion(cmd.Context(), input)
				if err != nil {
					if cmd.Context().Err() != nil {
						return err
					}
					printError(errOut, err, false)
					continue
				}
				fmt.Fprintf(out, "%s\n\n", answer)
			}
			return scanner.Err()
		},
	}
	cmd.Flags().StringVarP(&agentName, "agent", "a", "", "agent to talk to (defaults to the crew root)")
	return cmd
}

type agentSet interface {
	Root() *agent.Agent
	Agent(name string) (*agent.Agent, bool)
	Names() []string
}

func pickAgent(c agentSet, name string) (*agent.Agent, error) {
	if name == "" {
		return c.Root(), nil
	}
	a, ok := c.Agent(name)
	if !ok {
		err := errors.New(errors.CodeInvalidInput, "unknown agent: "+name, nil).
			WithContext("agent", name)
		return nil, withHint(err, "agents in this crew: "+strings.Join(c.Names(), ", "))
	}
	return a, nil
}
