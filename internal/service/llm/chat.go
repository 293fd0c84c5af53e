package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dzerik/campaign-portal/pkg/resilience/circuitbreaker"
	"github.com/dzerik/campaign-portal/pkg/tracing"
)

// ChatOptions configures a ChatClient.
type ChatOptions struct {
	Provider    string
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

// ChatClient talks to an OpenAI-compatible /chat/completions endpoint
// (Groq, OpenAI).
type ChatClient struct {
	opts     ChatOptions
	client   *http.Client
	breakers *circuitbreaker.Manager
	recorder RequestRecorder
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

// NewChatClient creates a ChatClient.
func NewChatClient(opts ChatOptions, breakers *circuitbreaker.Manager, recorder RequestRecorder) *ChatClient {
	if opts.Provider == "" {
		opts.Provider = "groq"
	}
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.groq.com/openai/v1"
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.Model == "" {
		opts.Model = "llama-3.1-8b-instant"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	return &ChatClient{
		opts:     opts,
		client:   tracing.Client(nil),
		breakers: breakers,
		recorder: recorder,
	}
}

// Name returns the provider name
func (c *ChatClient) Name() string {
	return c.opts.Provider
}

// Complete returns choices[0].message.content.
func (c *ChatClient) Complete(ctx context.Context, messages []Message) (string, error) {
	ctx, span := tracing.Start(ctx, "llm.complete")
	defer span.End()
	span.SetAttributes(tracing.AttrLLMProvider.String(c.opts.Provider))

	out, err := observe(ctx, c.breakers, c.recorder, c.opts.Provider, func(ctx context.Context) (string, error) {
		return c.complete(ctx, messages)
	})
	if err != nil {
		span.RecordError(err)
	}
	return out, err
}

func (c *ChatClient) complete(ctx context.Context, messages []Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	payload, err := json.Marshal(chatRequest{
		Model:       c.opts.Model,
		Messages:    messages,
		Temperature: c.opts.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.opts.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	return parsed.Choices[0].Message.Content, nil
}
