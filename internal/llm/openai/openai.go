// Package openai implements domain.Completer on top of the OpenAI chat
// completions API or any compatible server.
package openai

import (
	"context"
	"errors"
	"fmt"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"docqa/internal/domain"
	"docqa/internal/openaicompat"
)

// Config configures the chat client.
type Config struct {
	BaseURL    string
	APIKey     string
	APIKeyEnv  string
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

// Client sends chat completion requests.
type Client struct {
	api   *goopenai.Client
	model string
	retry openaicompat.Config
}

// NewClient creates a chat client. Model defaults to gpt-4o.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Model == "" {
		cfg.Model = goopenai.GPT4o
	}
	rc := openaicompat.Config{
		BaseURL:    cfg.BaseURL,
		APIKey:     cfg.APIKey,
		APIKeyEnv:  cfg.APIKeyEnv,
		Timeout:    cfg.Timeout,
		MaxRetries: cfg.MaxRetries,
	}
	api, err := openaicompat.NewClient(rc)
	if err != nil {
		return nil, fmt.Errorf("openai llm: %w", err)
	}
	return &Client{api: api, model: cfg.Model, retry: rc}, nil
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

// Complete sends the messages and returns the first choice's content.
func (c *Client) Complete(ctx context.Context, req domain.CompletionRequest) (string, error) {
	if len(req.Messages) == 0 {
		return "", errors.New("no messages")
	}
	msgs := make([]goopenai.ChatCompletionMessage, len(req.Messages))
	for i, m := range req.Messages {
		msgs[i] = goopenai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content}
	}
	var resp goopenai.ChatCompletionResponse
	err := openaicompat.Do(ctx, c.retry, func(ctx context.Context) error {
		var callErr error
		resp, callErr = c.api.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
			Model:       c.model,
			Messages:    msgs,
			Temperature: req.Temperature,
			MaxTokens:   req.MaxTokens,
		})
		return callErr
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
