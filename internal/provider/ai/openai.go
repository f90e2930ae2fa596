// Package ai wraps the OpenAI chat API for drafting post copy.
package ai

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sashabaranov/go-openai"
)

const defaultModel = "gpt-4o-mini"

// Config holds AI-provider settings.
type Config struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// Generator drafts post text from a prompt.
type Generator struct {
	client *openai.Client
	model  string
}

// NewGenerator creates an OpenAI-backed generator.
func NewGenerator(cfg Config) (*Generator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key not configured")
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
		slog.Warn("OpenAI model not set, using default", "model", model)
	}
	return &Generator{
		client: openai.NewClient(cfg.APIKey),
		model:  model,
	}, nil
}

// GenerateCaption produces a single post body for the given prompt.
// Errors pass through untouched so the caller's classifier sees the
// provider's own shapes.
func (g *Generator) GenerateCaption(ctx context.Context, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You write concise social media posts. Reply with the post text only.",
			},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}

	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
