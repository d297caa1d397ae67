// Package llm defines the Provider interface for the completion backends the
// Scriven responder can talk to.
//
// A provider wraps a remote or local model API (e.g., an OpenAI-compatible
// endpoint, a local Ollama instance, or Anthropic via any-llm) and exposes a
// uniform completion call so the responder never couples to a specific SDK.
//
// Implementors must be safe for concurrent use.
package llm

import "context"

// Usage holds token accounting information returned by the backend. Counts
// are in the model's native token unit and may differ between providers for
// the same textual content.
type Usage struct {
	// PromptTokens is the number of tokens consumed by the system prompt and
	// user message.
	PromptTokens int

	// CompletionTokens is the number of tokens generated in the response.
	CompletionTokens int

	// TotalTokens is PromptTokens + CompletionTokens. Some providers return
	// it directly rather than computing it from the parts.
	TotalTokens int
}

// CompletionRequest carries everything the model needs to produce a
// response. UserText must be non-empty.
type CompletionRequest struct {
	// SystemPrompt is a high-priority instruction injected before the user
	// message. The responder uses it to carry the behavioral profile.
	SystemPrompt string

	// UserText is the message the user composed.
	UserText string

	// Temperature controls output randomness in [0.0, 2.0]. Zero requests
	// the provider default.
	Temperature float64

	// MaxTokens caps the number of completion tokens. Zero means provider
	// default.
	MaxTokens int
}

// CompletionResponse is the model's answer.
type CompletionResponse struct {
	// Content is the generated text.
	Content string

	// Usage is the token accounting for this request. Zero-valued when the
	// backend does not report usage.
	Usage Usage
}

// Provider is a completion backend.
type Provider interface {
	// Name identifies the backend in logs and error messages.
	Name() string

	// Complete performs one blocking chat completion. It must respect
	// context cancellation and return an error rather than a partial result.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}
