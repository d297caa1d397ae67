// Package config provides the configuration schema and loader for the
// Scriven analytics server.
package config

// Config is the root configuration structure for Scriven.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Responder ResponderConfig `yaml:"responder"`
}

// ServerConfig holds network and logging settings for the API server.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity. Valid values: "debug", "info", "warn", "error".
	LogLevel LogLevel `yaml:"log_level"`

	// CORSOrigins lists origins allowed to call the API from a browser
	// front-end. An empty list disables CORS headers entirely.
	CORSOrigins []string `yaml:"cors_origins"`
}

// LogLevel is a validated slog verbosity name.
type LogLevel string

// Valid log levels.
const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is one of the known log levels.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// ResponderConfig wires the optional LLM responder. When Provider.Name is
// empty the respond endpoint is disabled and everything else works without a
// model server.
type ResponderConfig struct {
	// Provider is the primary completion backend.
	Provider ProviderEntry `yaml:"provider"`

	// Fallback, when configured, is tried whenever the primary provider
	// returns an error.
	Fallback ProviderEntry `yaml:"fallback"`

	// Temperature controls output randomness in [0.0, 2.0]. Zero requests
	// the provider default.
	Temperature float64 `yaml:"temperature"`

	// MaxTokens caps completion length. Zero means provider default.
	MaxTokens int `yaml:"max_tokens"`
}

// ProviderEntry is the common configuration block shared by all responder
// backends. The Name field selects the implementation.
type ProviderEntry struct {
	// Name selects the backend. Valid values: "openai" (any OpenAI-compatible
	// endpoint, including a local Ollama at http://localhost:11434/v1) or one
	// of the any-llm provider names ("anthropic", "ollama", "gemini",
	// "deepseek", "mistral", "groq", "llamacpp", "llamafile").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API. Local model
	// servers usually accept any value.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model (e.g., "gpt-4o", "llama3.2:3b").
	Model string `yaml:"model"`
}
