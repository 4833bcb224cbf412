package composer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/foxzi/smartreach/internal/config"
	"github.com/sashabaranov/go-openai"
)

// ErrMissingAPIKey is returned by OpenAI when no key is configured
var ErrMissingAPIKey = errors.New("OPENAI_API_KEY missing")

// OpenAI completes prompts with an OpenAI-compatible chat API
type OpenAI struct {
	client      *openai.Client
	model       string
	temperature float32
	hasKey      bool
}

func NewOpenAI(cfg config.AIConfig) *OpenAI {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &OpenAI{
		client:      openai.NewClientWithConfig(oc),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		hasKey:      cfg.APIKey != "",
	}
}

// Model returns the configured model name
func (o *OpenAI) Model() string {
	return o.model
}

// Complete sends one system and one user message and returns the first
// choice, or "" when the reply has none.
func (o *OpenAI) Complete(ctx context.Context, system, user string) (string, error) {
	if !o.hasKey {
		return "", ErrMissingAPIKey
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: o.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

// Ping asks the model for a one-word reply
func (o *OpenAI) Ping(ctx context.Context) (string, error) {
	if !o.hasKey {
		return "", ErrMissingAPIKey
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     o.model,
		MaxTokens: 5,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: "Reply with the single word: pong"},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to ping model: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
