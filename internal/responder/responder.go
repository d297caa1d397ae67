// Package responder turns a finalized input profile into an adapted model
// response: it renders the profile into a system prompt and requests a chat
// completion from a configured provider, falling back to a secondary
// provider when the primary fails.
package responder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/varenhold/scriven/internal/config"
	"github.com/varenhold/scriven/pkg/profile"
	"github.com/varenhold/scriven/pkg/provider/llm"
	"github.com/varenhold/scriven/pkg/provider/llm/anyllm"
	"github.com/varenhold/scriven/pkg/provider/llm/openai"
)

// ErrNotConfigured reports that no completion provider is configured.
var ErrNotConfigured = errors.New("responder not configured")

// Responder generates behavior-adapted responses. Safe for concurrent use.
type Responder struct {
	primary     llm.Provider
	fallback    llm.Provider
	temperature float64
	maxTokens   int
}

// Option is a functional option for [New].
type Option func(*Responder)

// WithFallback sets a secondary provider tried when the primary errors.
func WithFallback(p llm.Provider) Option {
	return func(r *Responder) {
		r.fallback = p
	}
}

// WithTemperature sets the sampling temperature for all requests.
func WithTemperature(t float64) Option {
	return func(r *Responder) {
		r.temperature = t
	}
}

// WithMaxTokens caps completion length for all requests.
func WithMaxTokens(n int) Option {
	return func(r *Responder) {
		r.maxTokens = n
	}
}

// New creates a Responder using the given primary provider.
func New(primary llm.Provider, opts ...Option) *Responder {
	r := &Responder{primary: primary}
	for _, o := range opts {
		o(r)
	}
	return r
}

// NewFromConfig builds a Responder from the responder configuration block.
// Returns (nil, nil) when no provider is configured — callers treat a nil
// Responder as a disabled respond surface.
func NewFromConfig(cfg config.ResponderConfig) (*Responder, error) {
	if cfg.Provider.Name == "" {
		return nil, nil
	}

	primary, err := buildProvider(cfg.Provider)
	if err != nil {
		return nil, fmt.Errorf("responder: primary: %w", err)
	}

	opts := []Option{
		WithTemperature(cfg.Temperature),
		WithMaxTokens(cfg.MaxTokens),
	}
	if cfg.Fallback.Name != "" {
		fb, err := buildProvider(cfg.Fallback)
		if err != nil {
			return nil, fmt.Errorf("responder: fallback: %w", err)
		}
		opts = append(opts, WithFallback(fb))
	}

	return New(primary, opts...), nil
}

// buildProvider constructs a provider from one config entry. The "openai"
// name gets the native OpenAI-compatible client so base_url overrides work
// against local servers; everything else goes through any-llm.
func buildProvider(e config.ProviderEntry) (llm.Provider, error) {
	if e.Name == "openai" {
		apiKey := e.APIKey
		if apiKey == "" && e.BaseURL != "" {
			// Local OpenAI-compatible servers accept any key.
			apiKey = "local"
		}
		var opts []openai.Option
		if e.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(e.BaseURL))
		}
		return openai.New(apiKey, e.Model, opts...)
	}

	var opts []anyllmlib.Option
	if e.APIKey != "" {
		opts = append(opts, anyllmlib.WithAPIKey(e.APIKey))
	}
	if e.BaseURL != "" {
		opts = append(opts, anyllmlib.WithBaseURL(e.BaseURL))
	}
	return anyllm.New(e.Name, e.Model, opts...)
}

// Generate produces a response to the user's text, steered by the profile.
// When the primary provider fails and a fallback is configured, the fallback
// is tried with the same request before the error is surfaced.
func (r *Responder) Generate(ctx context.Context, text string, p profile.InputProfile) (string, error) {
	if r == nil || r.primary == nil {
		return "", ErrNotConfigured
	}

	req := llm.CompletionRequest{
		SystemPrompt: BuildSystemPrompt(p),
		UserText:     text,
		Temperature:  r.temperature,
		MaxTokens:    r.maxTokens,
	}

	resp, err := r.primary.Complete(ctx, req)
	if err == nil {
		return resp.Content, nil
	}
	if r.fallback == nil {
		return "", fmt.Errorf("responder: %s: %w", r.primary.Name(), err)
	}

	slog.Warn("primary responder provider failed, trying fallback",
		"primary", r.primary.Name(),
		"fallback", r.fallback.Name(),
		"err", err,
	)

	fresp, ferr := r.fallback.Complete(ctx, req)
	if ferr != nil {
		return "", fmt.Errorf("responder: primary %s (%v); fallback %s: %w",
			r.primary.Name(), err, r.fallback.Name(), ferr)
	}
	return fresp.Content, nil
}
