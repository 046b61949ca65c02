// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package crew

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/jllopis/bringacrew/pkg/agent"
	"github.com/jllopis/bringacrew/pkg/crewtest"
	"github.com/jllopis/bringacrew/pkg/errors"
	"github.com/jllopis/bringacrew/pkg/llm"
	"github.com/jllopis/bringacrew/pkg/resilience"
)

type fakeSource struct {
	tools  []mcp.Tool
	err    error
	calls  int
	closed bool
}

func (f *fakeSource) ListTools(context.Context) ([]mcp.Tool, error) { return f.tools, nil }

func (f *fakeSource) CallTool(_ context.Context, name string, args map[string]interface{}) (*mcp.CallToolResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: name + ":" + args["input"].(string)}},
	}, nil
}

func (f *fakeSource) Close() error {
	f.closed = true
	return nil
}

func quietOptions() BuildOptions {
	return BuildOptions{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func TestBuildRoomCrewAnswersThroughDelegate(t *testing.T) {
	def, err := Parse([]byte(`
agents:
  - name: room_manager
    intro: checks the availability of rooms and books them.
    capabilities: [check_available_room, book_room]
  - name: orchestration_agent
    agents: [room_manager]
root: orchestration_agent
`))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	provider := llm.NewScriptedMockProvider(
		"Think: ask the room manager.\nAction: room_manager: is a room free monday morning for 4?\nPAUSE",
		"Think: check.\nAction: check_available_room: monday, morning, 4\nPAUSE",
		"Answer: room max_6_people is free.",
		"Answer: You can have max_6_people on Monday morning.",
	)
	c, err := def.Build(context.Background(), provider, quietOptions())
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	defer c.Close()

	if diff := cmp.Diff([]string{"room_manager", "orchestration_agent"}, c.Names()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}

	answer, err := c.Root().AskQuestion(context.Background(), "Book me a room for 4 on Monday morning")
	if err != nil {
		t.Fatalf("AskQuestion error: %v", err)
	}
	if answer != "You can have max_6_people on Monday morning." {
		t.Fatalf("answer = %q", answer)
	}

	room, _ := c.Agent("room_manager")
	var observation string
	for _, m := range room.Conversation() {
		if strings.HasPrefix(m.Content, "Observation: ") {
			observation = m.Content
		}
	}
	if !strings.Contains(observation, "max_6_people") {
		t.Fatalf("room manager observation = %q", observation)
	}
}

func TestBuildAppliesAgentSettings(t *testing.T) {
	def, err := Parse([]byte(`
agents:
  - name: calc
    max_turns: 3
    prompt: "{{ .Name }} can {{ join \", \" .Names }}"
    capabilities: [calculate]
  - name: boss
    agents: [calc]
root: boss
`))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	opts := quietOptions()
	opts.MaxTurns = 7
	c, err := def.Build(context.Background(), llm.NewScriptedMockProvider(), opts)
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	defer c.Close()

	calc, _ := c.Agent("calc")
	if calc.MaxTurns() != 3 || c.Root().MaxTurns() != 7 {
		t.Fatalf("max turns = %d, %d", calc.MaxTurns(), c.Root().MaxTurns())
	}
	prompt, err := calc.SystemPrompt()
	if err != nil || prompt != "calc can calculate" {
		t.Fatalf("prompt = %q, %v", prompt, err)
	}
	if diff := cmp.Diff([]string{"calc"}, c.Root().Registry().Names()); diff != "" {
		t.Fatalf("root registry mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildWiresMCPTools(t *testing.T) {
	def, err := Parse([]byte(`
agents:
  - name: reader
    capabilities: [fs__read_file]
  - name: web_agent
    mcp: [web]
  - name: boss
    agents: [reader, web_agent]
mcp_servers:
  - name: fs
    command: mcp-fs
  - name: web
    url: http://localhost:9000/mcp
    prefix: www
root: boss
`))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	sources := map[string]*fakeSource{
		"fs":  {tools: []mcp.Tool{{Name: "read_file"}, {Name: "write_file"}}},
		"web": {tools: []mcp.Tool{{Name: "fetch"}, {Name: "search"}}},
	}
	opts := quietOptions()
	opts.Connect = func(_ context.Context, spec MCPServerSpec) (ToolSource, error) {
		return sources[spec.Name], nil
	}
	c, err := def.Build(context.Background(), llm.NewScriptedMockProvider(), opts)
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}

	reader, _ := c.Agent("reader")
	if diff := cmp.Diff([]string{"fs__read_file"}, reader.Registry().Names()); diff != "" {
		t.Fatalf("reader registry mismatch (-want +got):\n%s", diff)
	}
	web, _ := c.Agent("web_agent")
	if diff := cmp.Diff([]string{"www__fetch", "www__search"}, web.Registry().Names()); diff != "" {
		t.Fatalf("web registry mismatch (-want +got):\n%s", diff)
	}

	read, _ := reader.Registry().Lookup("fs__read_file")
	out, err := read.Perform(context.Background(), "/etc/hosts")
	if err != nil || out != "read_file:/etc/hosts" {
		t.Fatalf("Perform = %q, %v", out, err)
	}

	if err := c.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if !sources["fs"].closed || !sources["web"].closed {
		t.Fatal("expected every mcp source to be closed")
	}
}

func TestBuildBreaksFailingMCPTool(t *testing.T) {
	def, err := Parse([]byte(`
agents:
  - name: reader
    mcp: [fs]
mcp_servers:
  - name: fs
    command: mcp-fs
`))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	src := &fakeSource{tools: []mcp.Tool{{Name: "read"}}, err: stderrors.New("broken pipe")}
	opts := quietOptions()
	opts.Breaker = resilience.CircuitBreakerConfig{FailureThreshold: 2}
	opts.Connect = func(context.Context, MCPServerSpec) (ToolSource, error) { return src, nil }

	c, err := def.Build(context.Background(), llm.NewScriptedMockProvider(), opts)
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	defer c.Close()

	read, _ := c.Root().Registry().Lookup("fs__read")
	for i := 0; i < 2; i++ {
		if _, err := read.Perform(context.Background(), "x"); err == nil {
			t.Fatal("expected transport error")
		}
	}
	_, err = read.Perform(context.Background(), "x")
	if !errors.Is(err, errors.ErrUnavailable) {
		t.Fatalf("expected UNAVAILABLE from open breaker, got %v", err)
	}
	if src.calls != 2 {
		t.Fatalf("expected 2 calls to reach the server, got %d", src.calls)
	}
}

func TestBuildClosesOnConnectFailure(t *testing.T) {
	def, err := Parse([]byte(`
agents:
  - name: a
    mcp: [one, two]
mcp_servers:
  - name: one
    command: a
  - name: two
    command: b
`))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	first := &fakeSource{}
	opts := quietOptions()
	opts.Connect = func(_ context.Context, spec MCPServerSpec) (ToolSource, error) {
		if spec.Name == "two" {
			return nil, stderrors.New("no such command")
		}
		return first, nil
	}

	_, err = def.Build(context.Background(), llm.NewScriptedMockProvider(), opts)
	if !errors.Is(err, errors.ErrUnavailable) {
		t.Fatalf("expected UNAVAILABLE, got %v", err)
	}
	if !first.closed {
		t.Fatal("expected the first server to be closed")
	}
}

func TestScheduleCrewScenario(t *testing.T) {
	def, err := Parse([]byte(`
agents:
  - name: schedule_manager
    intro: checks people's availability and books them.
    capabilities: [check_availability, book_person]
  - name: orchestration_agent
    agents: [schedule_manager]
root: orchestration_agent
`))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	events := crewtest.NewEventCollector()
	opts := quietOptions()
	opts.Hooks = []agent.Hook{events}
	provider := llm.NewScriptedMockProvider(
		"Action: schedule_manager: book alice on monday morning\nPAUSE",
		"Action: book_person: monday, morning, alice\nPAUSE",
		"Answer: Alice is booked.",
		"Answer: Done, Alice is booked on Monday morning.",
	)
	c, err := def.Build(context.Background(), provider, opts)
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	defer c.Close()

	crewtest.NewScenario("delegated booking").
		WithInput("Please book Alice on Monday morning").
		ExpectNoError().
		ExpectAnswer(crewtest.Contains("Monday morning")).
		ExpectAction("orchestration_agent", "schedule_manager").
		ExpectAction("schedule_manager", "book_person").
		Run(t, c.Root(), events).
		Assert(t)
}
