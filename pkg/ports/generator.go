package ports

import (
	"context"

	"github.com/aretw0/taleweave/pkg/domain"
)

// Generator is the remote text-generation collaborator.
// Timeouts and provider retries are its own concern.
type Generator interface {
	Generate(ctx context.Context, systemMessage, userMessage string, cfg domain.RuntimeConfig) (string, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, systemMessage, userMessage string, cfg domain.RuntimeConfig) (string, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, systemMessage, userMessage string, cfg domain.RuntimeConfig) (string, error) {
	return f(ctx, systemMessage, userMessage, cfg)
}
