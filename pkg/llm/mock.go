// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"context"
	"errors"
	"strings"
)

// MockProvider is an offline Provider. ChatFunc takes precedence, then Err,
// then a fixed Response. With none of them set it echoes the latest user
// message as a final answer, which lets a crew run without a model.
type MockProvider struct {
	Response string
	Err      error
	ChatFunc func(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

func (m *MockProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	switch {
	case m.ChatFunc != nil:
		return m.ChatFunc(ctx, req)
	case m.Err != nil:
		return nil, m.Err
	case m.Response != "":
		return mockResponse(req, m.Response), nil
	}
	var last string
	for _, msg := range req.Messages {
		if msg.Role == RoleUser {
			last = msg.Content
		}
	}
	return mockResponse(req, "Answer: "+strings.TrimSpace(last)), nil
}

// mockResponse counts whitespace-separated words as tokens.
func mockResponse(req ChatRequest, content string) *ChatResponse {
	var prompt int
	for _, msg := range req.Messages {
		prompt += len(strings.Fields(msg.Content))
	}
	completion := len(strings.Fields(content))
	return &ChatResponse{
		Content: content,
		Usage: Usage{
			PromptTokens:     prompt,
			CompletionTokens: completion,
			TotalTokens:      prompt + completion,
		},
	}
}

// FailingMockProvider always fails with Err, or a generic error when unset.
type FailingMockProvider struct {
	Err error
}

func (f *FailingMockProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if f.Err == nil {
		return nil, errors.New("mock provider failure")
	}
	return nil, f.Err
}
