// Package llm adapts OpenAI-compatible chat endpoints to the plain
// prompt-in, text-out capability used for query and alt-text generation.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// GeminiBaseURL is Google's OpenAI-compatible endpoint for Gemini models.
const GeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"

// Client is the subset of *openai.Client the completer needs, so tests and
// other OpenAI-compatible backends can stand in.
type Client interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Completer turns a prompt into free text.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ChatCompleter sends a single user message and returns the first choice.
type ChatCompleter struct {
	Client      Client
	Model       string
	Temperature float32
	// Timeout bounds each call. Zero means the caller's context decides.
	Timeout time.Duration
}

// NewOpenAI builds a ChatCompleter for any OpenAI-compatible base URL.
// An empty baseURL targets api.openai.com.
func NewOpenAI(baseURL, apiKey, model string, timeout time.Duration) *ChatCompleter {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}
	return &ChatCompleter{
		Client:      openai.NewClientWithConfig(cfg),
		Model:       model,
		Temperature: 0.4,
		Timeout:     timeout,
	}
}

// Complete implements Completer.
func (c *ChatCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	if c == nil || c.Client == nil || c.Model == "" {
		return "", errors.New("llm not configured")
	}
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	resp, err := c.Client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: c.Temperature,
		N:           1,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
