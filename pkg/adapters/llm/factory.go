package llm

import (
	"fmt"
	"strings"

	"github.com/aretw0/taleweave/pkg/ports"
)

// Config selects and configures a provider.
type Config struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
}

// New returns the generator for cfg.Provider: "openai", "anthropic" (alias
// "claude"), "ollama" (OpenAI-compatible, base URL gets a /v1 suffix) or "echo".
func New(cfg Config) (ports.Generator, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		return NewOpenAIGenerator(cfg.APIKey, cfg.Model, cfg.BaseURL), nil
	case "anthropic", "claude":
		return NewAnthropicGenerator(cfg.APIKey, cfg.Model, cfg.BaseURL), nil
	case "ollama":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		if !strings.HasSuffix(baseURL, "/v1") {
			baseURL = strings.TrimRight(baseURL, "/") + "/v1"
		}
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = "ollama"
		}
		return NewOpenAIGenerator(apiKey, cfg.Model, baseURL), nil
	case "echo", "":
		return EchoGenerator{}, nil
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.Provider)
	}
}
