package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists the responder backends Scriven knows how to
// construct. Used by [Validate] to warn about unrecognised names.
var ValidProviderNames = []string{
	"openai", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile",
}

// Default returns the configuration used when no file is given: a server on
// :8391 at info verbosity with no responder.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr: ":8391",
			LogLevel:   LogInfo,
		},
	}
}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = Default().Server.ListenAddr
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	validateProviderEntry("responder.provider", cfg.Responder.Provider, &errs)
	validateProviderEntry("responder.fallback", cfg.Responder.Fallback, &errs)

	if cfg.Responder.Provider.Name == "" && cfg.Responder.Fallback.Name != "" {
		errs = append(errs, errors.New("responder.fallback is set but responder.provider is not"))
	}

	if t := cfg.Responder.Temperature; t < 0 || t > 2.0 {
		errs = append(errs, fmt.Errorf("responder.temperature %.2f is out of range [0.0, 2.0]", t))
	}
	if cfg.Responder.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("responder.max_tokens %d must not be negative", cfg.Responder.MaxTokens))
	}

	return errors.Join(errs...)
}

// validateProviderEntry checks one responder backend block. Unknown names
// only warn — they may be valid for a newer any-llm release.
func validateProviderEntry(prefix string, e ProviderEntry, errs *[]error) {
	if e.Name == "" {
		return
	}
	if e.Model == "" {
		*errs = append(*errs, fmt.Errorf("%s.model is required when %s.name is set", prefix, prefix))
	}
	if !slices.Contains(ValidProviderNames, e.Name) {
		slog.Warn("unknown responder provider name — may be a typo or a third-party backend",
			"entry", prefix,
			"name", e.Name,
			"known", ValidProviderNames,
		)
	}
}
