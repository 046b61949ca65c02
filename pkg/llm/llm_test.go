// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMockProvider(t *testing.T) {
	cause := errors.New("model not loaded")
	tests := []struct {
		name       string
		mock       *MockProvider
		messages   []Message
		want       string
		wantTokens int
		wantErr    error
	}{
		{
			name:       "fixed response",
			mock:       &MockProvider{Response: "Hello world"},
			messages:   []Message{{Role: RoleUser, Content: "Hi"}},
			want:       "Hello world",
			wantTokens: 3,
		},
		{
			name: "echoes last user message",
			mock: &MockProvider{},
			messages: []Message{
				{Role: RoleSystem, Content: "You are calc"},
				{Role: RoleUser, Content: "first"},
				{Role: RoleAssistant, Content: "Answer: first"},
				{Role: RoleUser, Content: "  is Bob free?  "},
			},
			want:       "Answer: is Bob free?",
			wantTokens: 13,
		},
		{
			name:    "error",
			mock:    &MockProvider{Err: cause, Response: "ignored"},
			wantErr: cause,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := tt.mock.Chat(context.Background(), ChatRequest{Messages: tt.messages})
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Chat failed: %v", err)
			}
			if resp.Content != tt.want {
				t.Errorf("Content = %q, want %q", resp.Content, tt.want)
			}
			if resp.Usage.TotalTokens != tt.wantTokens {
				t.Errorf("TotalTokens = %d, want %d", resp.Usage.TotalTokens, tt.wantTokens)
			}
		})
	}
}

func TestMockProviderChatFuncWins(t *testing.T) {
	mock := &MockProvider{
		Response: "ignored",
		ChatFunc: func(context.Context, ChatRequest) (*ChatResponse, error) {
			return &ChatResponse{Content: "from func"}, nil
		},
	}
	resp, err := mock.Chat(context.Background(), ChatRequest{})
	if err != nil || resp.Content != "from func" {
		t.Fatalf("Chat = %v, %v", resp, err)
	}
}

func TestScriptedMockProviderOrderAndExhaustion(t *testing.T) {
	p := NewScriptedMockProvider("first", "second")
	ctx := context.Background()

	for _, want := range []string{"first", "second"} {
		resp, err := p.Chat(ctx, ChatRequest{})
		if err != nil {
			t.Fatalf("Chat failed: %v", err)
		}
		if resp.Content != want {
			t.Errorf("got %q, want %q", resp.Content, want)
		}
	}
	if _, err := p.Chat(ctx, ChatRequest{}); !errors.Is(err, ErrScriptExhausted) {
		t.Fatalf("expected ErrScriptExhausted, got %v", err)
	}
	if p.CallCount() != 3 {
		t.Errorf("CallCount() = %d, want 3", p.CallCount())
	}
}

func TestScriptedMockProviderRepeat(t *testing.T) {
	p := NewScriptedMockProvider("again")
	p.Repeat = true
	for i := 0; i < 5; i++ {
		resp, err := p.Chat(context.Background(), ChatRequest{})
		if err != nil {
			t.Fatalf("call %d failed: %v", i, err)
		}
		if resp.Content != "again" {
			t.Fatalf("call %d got %q", i, resp.Content)
		}
	}
}

func TestScriptedMockProviderRecordsRequests(t *testing.T) {
	p := NewScriptedMockProvider("ok")
	msgs := []Message{{Role: RoleSystem, Content: "sys"}, {Role: RoleUser, Content: "q"}}
	if _, err := p.Chat(context.Background(), ChatRequest{Messages: msgs, Stop: []string{"PAUSE"}}); err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	msgs[1].Content = "mutated"

	last, ok := p.LastRequest()
	if !ok {
		t.Fatal("expected a recorded request")
	}
	if last.Messages[1].Content != "q" {
		t.Errorf("recorded request aliased caller slice: %q", last.Messages[1].Content)
	}
	if len(last.Stop) != 1 || last.Stop[0] != "PAUSE" {
		t.Errorf("stop sequences not recorded: %v", last.Stop)
	}
}

func TestOllamaForwardsStopAndTemperature(t *testing.T) {
	var got ollamaRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(ollamaResponse{
			Message:         Message{Role: RoleAssistant, Content: "Answer: 42"},
			Done:            true,
			PromptEvalCount: 7,
			EvalCount:       3,
		})
	}))
	defer srv.Close()

	p := NewOllama(srv.URL)
	resp, err := p.Chat(context.Background(), ChatRequest{
		Model:    "phi4",
		Messages: []Message{{Role: RoleUser, Content: "q"}},
		Stop:     []string{"PAUSE"},
	})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if resp.Content != "Answer: 42" {
		t.Errorf("content = %q", resp.Content)
	}
	if resp.Usage.TotalTokens != 10 {
		t.Errorf("total tokens = %d, want 10", resp.Usage.TotalTokens)
	}
	if got.Model != "phi4" || got.Stream {
		t.Errorf("unexpected request: %+v", got)
	}
	if temp, ok := got.Options["temperature"]; !ok || temp.(float64) != 0 {
		t.Errorf("temperature option = %v, want 0", got.Options["temperature"])
	}
	stop, ok := got.Options["stop"].([]interface{})
	if !ok || len(stop) != 1 || stop[0] != "PAUSE" {
		t.Errorf("stop option = %v", got.Options["stop"])
	}
}

func TestOllamaNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewOllama(srv.URL).Chat(context.Background(), ChatRequest{Model: "missing"})
	if err == nil {
		t.Fatal("expected error for non-200 status")
	}
}
