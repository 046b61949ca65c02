// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

// Package conversation holds the append-only message log that forms the
// oracle's input context.
package conversation

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jllopis/bringacrew/pkg/errors"
	"github.com/jllopis/bringacrew/pkg/llm"
	"github.com/jllopis/bringacrew/pkg/protocol"
)

// Role tags a message in the conversation.
type Role string

const (
	RoleSystem      Role = "system"
	RoleUser        Role = "user"
	RoleAssistant   Role = "assistant"
	RoleObservation Role = "observation"
)

// Message is a single entry in the conversation. Messages are values and
// are never edited once appended.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Conversation is an ordered, append-only log of messages.
// The zero value is an empty conversation ready to use.
type Conversation struct {
	mu       sync.RWMutex
	messages []Message
}

// New creates a conversation, seeded with a system prompt when one is given.
func New(systemPrompt string) *Conversation {
	c := &Conversation{}
	if systemPrompt != "" {
		c.messages = append(c.messages, newMessage(RoleSystem, systemPrompt))
	}
	return c
}

// AppendSystem appends a system message. It is only valid as the very first
// message.
func (c *Conversation) AppendSystem(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.messages) > 0 {
		return errors.New(errors.CodeInvalidSequencing, "system message must be the first message", nil).
			WithContext("length", len(c.messages))
	}
	c.messages = append(c.messages, newMessage(RoleSystem, text))
	return nil
}

// AppendUser appends a user message.
func (c *Conversation) AppendUser(text string) Message {
	return c.append(RoleUser, text)
}

// AppendAssistant appends an oracle reply.
func (c *Conversation) AppendAssistant(text string) Message {
	return c.append(RoleAssistant, text)
}

// AppendObservation appends a capability result, formatted as
// "Observation: <result>".
func (c *Conversation) AppendObservation(result string) Message {
	return c.append(RoleObservation, protocol.FormatObservation(result))
}

// Snapshot returns a copy of the full ordered sequence.
func (c *Conversation) Snapshot() []Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Message(nil), c.messages...)
}

// Len returns the number of messages.
func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.messages)
}

// Last returns the most recent message.
func (c *Conversation) Last() (Message, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.messages) == 0 {
		return Message{}, false
	}
	return c.messages[len(c.messages)-1], true
}

func (c *Conversation) append(role Role, text string) Message {
	msg := newMessage(role, text)
	c.mu.Lock()
	c.messages = append(c.messages, msg)
	c.mu.Unlock()
	return msg
}

func newMessage(role Role, content string) Message {
	return Message{
		ID:        uuid.New().String(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	}
}

// ToLLM converts messages to provider messages. Observations are fed back to
// the oracle as user input.
func ToLLM(messages []Message) []llm.Message {
	out := make([]llm.Message, len(messages))
	for i, m := range messages {
		out[i] = llm.Message{Role: m.Role.llmRole(), Content: m.Content}
	}
	return out
}

func (r Role) llmRole() llm.Role {
	switch r {
	case RoleSystem:
		return llm.RoleSystem
	case RoleAssistant:
		return llm.RoleAssistant
	default:
		return llm.RoleUser
	}
}
