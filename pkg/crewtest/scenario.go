// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

// Package crewtest provides declarative scenarios for testing agents and
// crews against scripted oracles.
//
//	events := crewtest.NewEventCollector()
//	a, _ := agent.New("calc", provider, agent.WithHooks(events), ...)
//
//	crewtest.NewScenario("arithmetic").
//	    WithInput("What is 2 + 2?").
//	    ExpectAnswer(crewtest.Contains("4")).
//	    ExpectAction("calc", "calculate").
//	    Run(t, a, events).
//	    Assert(t)
package crewtest

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/jllopis/bringacrew/pkg/agent"
	"github.com/jllopis/bringacrew/pkg/errors"
	"github.com/jllopis/bringacrew/pkg/llm"
)

// Asker is what a scenario runs against; *agent.Agent implements it.
type Asker interface {
	AskQuestion(ctx context.Context, question string) (string, error)
}

// Scenario defines one question and what should happen while answering it.
type Scenario struct {
	name         string
	input        string
	timeout      time.Duration
	expectations []Expectation
}

// Expectation is a condition checked after a scenario ran.
type Expectation interface {
	Check(result *Result) error
	Description() string
}

// ActionRecord is one dispatched action.
type ActionRecord struct {
	Agent       string
	Name        string
	Argument    string
	Observation string
	Duration    time.Duration
}

// Result is the outcome of running a scenario.
type Result struct {
	scenario *Scenario

	Answer   string
	Err      error
	Events   []agent.TurnEvent
	Actions  []ActionRecord
	Usage    llm.Usage
	Duration time.Duration
}

// NewScenario creates a new test scenario with the given name.
func NewScenario(name string) *Scenario {
	return &Scenario{name: name, timeout: 30 * time.Second}
}

// WithInput sets the question.
func (s *Scenario) WithInput(input string) *Scenario {
	s.input = input
	return s
}

// WithTimeout bounds the run.
func (s *Scenario) WithTimeout(d time.Duration) *Scenario {
	s.timeout = d
	return s
}

// Expect adds an expectation.
func (s *Scenario) Expect(exp Expectation) *Scenario {
	s.expectations = append(s.expectations, exp)
	return s
}

// ExpectAnswer expects a final answer matching m.
func (s *Scenario) ExpectAnswer(m StringMatcher) *Scenario {
	return s.Expect(&answerExpectation{matcher: m})
}

// ExpectNoError expects the question to be answered.
func (s *Scenario) ExpectNoError() *Scenario {
	return s.Expect(noErrorExpectation{})
}

// ExpectErrorCode expects a failure carrying code.
func (s *Scenario) ExpectErrorCode(code errors.ErrorCode) *Scenario {
	return s.Expect(errorCodeExpectation{code: code})
}

// ExpectAction expects agentName to dispatch action at least once.
func (s *Scenario) ExpectAction(agentName, action string) *Scenario {
	return s.Expect(actionExpectation{agent: agentName, action: action})
}

// ExpectNoActions expects the oracle to answer without acting.
func (s *Scenario) ExpectNoActions() *Scenario {
	return s.Expect(noActionsExpectation{})
}

// ExpectMaxDuration expects the run to finish within d.
func (s *Scenario) ExpectMaxDuration(d time.Duration) *Scenario {
	return s.Expect(maxDurationExpectation{max: d})
}

// Run asks the question. events, when not nil, must be registered as a hook
// on the agents involved; it is reset before the run.
func (s *Scenario) Run(t testing.TB, a Asker, events *EventCollector) *Result {
	t.Helper()
	if events != nil {
		events.Reset()
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	answer, err := a.AskQuestion(ctx, s.input)
	r := &Result{scenario: s, Answer: answer, Err: err, Duration: time.Since(start)}

	if events != nil {
		r.Events = events.Events()
		r.Actions = events.Actions()
		for _, ev := range r.Events {
			r.Usage.PromptTokens += ev.Usage.PromptTokens
			r.Usage.CompletionTokens += ev.Usage.CompletionTokens
			r.Usage.TotalTokens += ev.Usage.TotalTokens
		}
	}
	return r
}

// Assert checks every expectation and reports failures to t.
func (r *Result) Assert(t testing.TB) {
	t.Helper()
	for _, exp := range r.scenario.expectations {
		if err := exp.Check(r); err != nil {
			t.Errorf("scenario %q: expectation %q failed: %v", r.scenario.name, exp.Description(), err)
		}
	}
}

// StringMatcher defines how to match strings in expectations.
type StringMatcher interface {
	Match(s string) bool
	Description() string
}

type matcher struct {
	desc  string
	match func(string) bool
}

func (m matcher) Match(s string) bool { return m.match(s) }
func (m matcher) Description() string { return m.desc }

// Contains matches strings containing substr.
func Contains(substr string) StringMatcher {
	return matcher{fmt.Sprintf("contains %q", substr), func(s string) bool { return strings.Contains(s, substr) }}
}

// Equals matches s exactly.
func Equals(expected string) StringMatcher {
	return matcher{fmt.Sprintf("equals %q", expected), func(s string) bool { return s == expected }}
}

// HasPrefix matches strings starting with prefix.
func HasPrefix(prefix string) StringMatcher {
	return matcher{fmt.Sprintf("has prefix %q", prefix), func(s string) bool { return strings.HasPrefix(s, prefix) }}
}

// Regex matches strings against pattern. It panics if pattern is invalid.
func Regex(pattern string) StringMatcher {
	re := regexp.MustCompile(pattern)
	return matcher{fmt.Sprintf("matches regex %q", pattern), re.MatchString}
}

type answerExpectation struct {
	matcher StringMatcher
}

func (e *answerExpectation) Check(r *Result) error {
	if r.Err != nil {
		return fmt.Errorf("no answer, got error: %v", r.Err)
	}
	if !e.matcher.Match(r.Answer) {
		return fmt.Errorf("answer %q does not match: %s", r.Answer, e.matcher.Description())
	}
	return nil
}

func (e *answerExpectation) Description() string {
	return "answer " + e.matcher.Description()
}

type noErrorExpectation struct{}

func (noErrorExpectation) Check(r *Result) error {
	if r.Err != nil {
		return fmt.Errorf("expected no error, got: %v", r.Err)
	}
	return nil
}

func (noErrorExpectation) Description() string { return "no error" }

type errorCodeExpectation struct {
	code errors.ErrorCode
}

func (e errorCodeExpectation) Check(r *Result) error {
	if r.Err == nil {
		return fmt.Errorf("expected %s, got answer %q", e.code, r.Answer)
	}
	if !errors.HasCode(r.Err, e.code) {
		return fmt.Errorf("expected %s, got: %v", e.code, r.Err)
	}
	return nil
}

func (e errorCodeExpectation) Description() string { return "error " + string(e.code) }

type actionExpectation struct {
	agent, action string
}

func (e actionExpectation) Check(r *Result) error {
	for _, a := range r.Actions {
		if a.Agent == e.agent && a.Name == e.action {
			return nil
		}
	}
	return fmt.Errorf("%s did not dispatch %q (actions: %v)", e.agent, e.action, actionNames(r.Actions))
}

func (e actionExpectation) Description() string {
	return fmt.Sprintf("%s dispatches %q", e.agent, e.action)
}

type noActionsExpectation struct{}

func (noActionsExpectation) Check(r *Result) error {
	if len(r.Actions) > 0 {
		return fmt.Errorf("expected no actions, got: %v", actionNames(r.Actions))
	}
	return nil
}

func (noActionsExpectation) Description() string { return "no actions" }

type maxDurationExpectation struct {
	max time.Duration
}

func (e maxDurationExpectation) Check(r *Result) error {
	if r.Duration > e.max {
		return fmt.Errorf("duration %v exceeds maximum %v", r.Duration, e.max)
	}
	return nil
}

func (e maxDurationExpectation) Description() string {
	return fmt.Sprintf("duration <= %v", e.max)
}

func actionNames(actions []ActionRecord) []string {
	names := make([]string, len(actions))
	for i, a := range actions {
		names[i] = a.Agent + "." + a.Name
	}
	return names
}
