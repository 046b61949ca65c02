// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

// Package protocol implements the line-oriented text grammar exchanged with
// the oracle:
//
//	Action: <name>: <argument>
//	PAUSE
//	Observation: <result>
//	Answer: <text>
//
// Parse is the only place in the module that matches on oracle text.
package protocol

import (
	"regexp"
	"strings"
)

// StopSequence is passed to the oracle so it halts where an observation is due.
const StopSequence = "PAUSE"

const observationPrefix = "Observation: "

var (
	actionRe = regexp.MustCompile(`^Action: (\w+): (.*)$`)
	answerRe = regexp.MustCompile(`^Answer: (.*)$`)
)

// TurnResult is the classification of one oracle reply.
// It is one of Action, FinalAnswer or Malformed.
type TurnResult interface {
	isTurnResult()
}

// Action asks the engine to dispatch Argument to the capability Name.
type Action struct {
	Name     string
	Argument string
}

// FinalAnswer terminates the loop with Text.
type FinalAnswer struct {
	Text string
}

// Malformed carries a reply that holds neither an action nor an answer.
type Malformed struct {
	Raw string
}

func (Action) isTurnResult()      {}
func (FinalAnswer) isTurnResult() {}
func (Malformed) isTurnResult()   {}

// Parse classifies reply. The first action line wins and any later action
// lines are ignored; answer lines are only considered when no action line
// is present.
func Parse(reply string) TurnResult {
	lines := splitLines(reply)
	for _, line := range lines {
		if m := actionRe.FindStringSubmatch(line); m != nil {
			return Action{Name: m[1], Argument: m[2]}
		}
	}
	for _, line := range lines {
		if m := answerRe.FindStringSubmatch(line); m != nil {
			return FinalAnswer{Text: m[1]}
		}
	}
	return Malformed{Raw: reply}
}

// FormatObservation renders a capability result as the next oracle input.
func FormatObservation(result string) string {
	return observationPrefix + result
}

// FormatAction renders an action directive, including the trailing stop token.
func FormatAction(name, argument string) string {
	return "Action: " + name + ": " + argument + "\n" + StopSequence
}

// FormatAnswer renders a terminal directive.
func FormatAnswer(text string) string {
	return "Answer: " + text
}

func splitLines(reply string) []string {
	lines := strings.Split(reply, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}
