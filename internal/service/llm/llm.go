// Package llm sends chat completions to a hosted language model.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dzerik/campaign-portal/internal/config"
	"github.com/dzerik/campaign-portal/pkg/resilience/circuitbreaker"
)

var (
	ErrNotConfigured   = errors.New("language model API key is not configured")
	ErrEmptyCompletion = errors.New("language model returned no content")
)

// Roles of a chat message.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// System returns a system message.
func System(content string) Message { return Message{Role: RoleSystem, Content: content} }

// User returns a user message.
func User(content string) Message { return Message{Role: RoleUser, Content: content} }

// Completer turns a conversation into the model's reply.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (string, error)
	Name() string
}

// RequestRecorder counts completion calls.
type RequestRecorder interface {
	RecordLLMRequest(provider, status string, seconds float64)
}

// APIError is a non-2xx answer from the completion endpoint.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API Error %d: %s", e.StatusCode, e.Body)
}

// New creates the Completer for cfg.Provider.
func New(ctx context.Context, cfg config.LLMConfig, breakers *circuitbreaker.Manager, recorder RequestRecorder) (Completer, error) {
	if cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}
	switch cfg.Provider {
	case "groq", "openai", "":
		return NewChatClient(ChatOptions{
			Provider:    cfg.Provider,
			BaseURL:     cfg.BaseURL,
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		}, breakers, recorder), nil
	case "gemini":
		return NewGenAIClient(ctx, GenAIOptions{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		}, breakers, recorder)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

// observe runs fn through the LLM breaker and records the outcome.
func observe(ctx context.Context, breakers *circuitbreaker.Manager, recorder RequestRecorder, provider string, fn func(context.Context) (string, error)) (string, error) {
	start := time.Now()
	out, err := circuitbreaker.Do(ctx, breakers, circuitbreaker.ServiceLLM, fn)
	if recorder != nil {
		status := "ok"
		switch {
		case errors.Is(err, circuitbreaker.ErrOpen):
			status = "circuit_open"
		case err != nil:
			status = "error"
		}
		recorder.RecordLLMRequest(provider, status, time.Since(start).Seconds())
	}
	return out, err
}
