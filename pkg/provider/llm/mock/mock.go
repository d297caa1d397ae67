// Package mock provides an in-memory llm.Provider for tests.
package mock

import (
	"context"
	"sync"

	"github.com/varenhold/scriven/pkg/provider/llm"
)

// Provider is a configurable fake completion backend. The zero value answers
// every request with an empty completion.
type Provider struct {
	mu sync.Mutex

	// Response is returned for every successful Complete call.
	Response string

	// Err, when non-nil, is returned by every Complete call.
	Err error

	// ProviderName overrides the reported name. Defaults to "mock".
	ProviderName string

	calls []llm.CompletionRequest
}

// Name implements llm.Provider.
func (p *Provider) Name() string {
	if p.ProviderName != "" {
		return p.ProviderName
	}
	return "mock"
}

// Complete implements llm.Provider. It records the request and returns the
// configured response or error.
func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.calls = append(p.calls, req)
	p.mu.Unlock()

	if p.Err != nil {
		return nil, p.Err
	}
	return &llm.CompletionResponse{Content: p.Response}, nil
}

// Calls returns a copy of every request seen so far.
func (p *Provider) Calls() []llm.CompletionRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]llm.CompletionRequest, len(p.calls))
	copy(out, p.calls)
	return out
}
