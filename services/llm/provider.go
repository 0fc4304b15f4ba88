package llm

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/assistant"
)

// ErrMissingKey is returned when the selected provider has no API key.
var ErrMissingKey = errors.New("AI API key is not configured")

// NewProvider builds the provider selected in conf.
// It returns ErrMissingKey when the selected provider has no key.
func NewProvider(conf core.AIConfig) (assistant.Provider, error) {
	switch conf.Provider {
	case "", "openai":
		return NewOpenAIProvider(conf.OpenAIKey, conf.Model, conf.OpenAIBaseURL)
	case "anthropic":
		return NewAnthropicProvider(conf.AnthropicKey, conf.Model)
	default:
		return nil, fmt.Errorf("unknown AI provider: %q", conf.Provider)
	}
}

// resolveModel maps a friendly model name to a provider model ID, falling back to def.
func resolveModel(name, def string, models map[string]string) string {
	if name == "" {
		return def
	}
	if id, ok := models[name]; ok {
		return id
	}
	return name
}
