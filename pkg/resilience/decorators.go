// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	"time"

	"github.com/jllopis/bringacrew/pkg/capability"
	"github.com/jllopis/bringacrew/pkg/llm"
)

// TimeoutProvider bounds every oracle call by d.
func TimeoutProvider(p llm.Provider, d time.Duration) llm.Provider {
	return llm.ProviderFunc(func(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
		return WithTimeout(ctx, d, func(ctx context.Context) (*llm.ChatResponse, error) {
			return p.Chat(ctx, req)
		})
	})
}

// RetryProvider retries failed oracle calls under rc.
func RetryProvider(p llm.Provider, rc RetryConfig) llm.Provider {
	return llm.ProviderFunc(func(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
		return Retry(ctx, rc, func(ctx context.Context) (*llm.ChatResponse, error) {
			return p.Chat(ctx, req)
		})
	})
}

type guardedCapability struct {
	capability.Capability
	timeout time.Duration
	breaker *CircuitBreaker
}

// GuardCapability bounds c by timeout and, when breaker is not nil, stops
// calling it while the breaker is open. Name and description are unchanged.
func GuardCapability(c capability.Capability, timeout time.Duration, breaker *CircuitBreaker) capability.Capability {
	return &guardedCapability{Capability: c, timeout: timeout, breaker: breaker}
}

func (g *guardedCapability) Perform(ctx context.Context, argument string) (string, error) {
	run := func(ctx context.Context) (string, error) {
		return WithTimeout(ctx, g.timeout, func(ctx context.Context) (string, error) {
			return g.Capability.Perform(ctx, argument)
		})
	}
	if g.breaker == nil {
		return run(ctx)
	}

	var out string
	err := g.breaker.Call(ctx, func(ctx context.Context) error {
		var err error
		out, err = run(ctx)
		return err
	})
	return out, err
}
