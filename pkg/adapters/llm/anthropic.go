package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/taleweave/pkg/domain"
	"github.com/liushuangls/go-anthropic/v2"
)

// DefaultAnthropicMaxTokens is sent when the runtime config sets no limit;
// the Messages API requires one.
const DefaultAnthropicMaxTokens = 1024

// AnthropicGenerator calls the Anthropic Messages API.
type AnthropicGenerator struct {
	client *anthropic.Client
	model  string
}

// NewAnthropicGenerator creates a generator. An empty baseURL uses the public API.
func NewAnthropicGenerator(apiKey, model, baseURL string) *AnthropicGenerator {
	var opts []anthropic.ClientOption
	if baseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(baseURL))
	}
	return &AnthropicGenerator{
		client: anthropic.NewClient(apiKey, opts...),
		model:  model,
	}
}

func (g *AnthropicGenerator) Generate(ctx context.Context, systemMessage, userMessage string, cfg domain.RuntimeConfig) (string, error) {
	req := anthropic.MessagesRequest{
		Model:  anthropic.Model(firstNonEmpty(cfg.Model, g.model)),
		System: systemMessage,
		Messages: []anthropic.Message{
			{
				Role:    anthropic.RoleUser,
				Content: []anthropic.MessageContent{anthropic.NewTextMessageContent(userMessage)},
			},
		},
		MaxTokens: cfg.MaxTokens,
	}
	if req.MaxTokens <= 0 {
		req.MaxTokens = DefaultAnthropicMaxTokens
	}
	if cfg.Temperature != nil {
		t := float32(*cfg.Temperature)
		req.Temperature = &t
	}
	if cfg.TopP != nil {
		p := float32(*cfg.TopP)
		req.TopP = &p
	}

	resp, err := g.client.CreateMessages(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to create message: %w", err)
	}

	var sb strings.Builder
	for _, c := range resp.Content {
		if c.Text != nil {
			sb.WriteString(*c.Text)
		}
	}
	if sb.Len() == 0 {
		return "", errors.New("no response content")
	}
	return sb.String(), nil
}
