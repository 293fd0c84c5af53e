package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/genai"

	"github.com/dzerik/campaign-portal/pkg/resilience/circuitbreaker"
	"github.com/dzerik/campaign-portal/pkg/tracing"
)

// GenAIOptions configures a GenAIClient.
type GenAIOptions struct {
	APIKey string
	// BaseURL overrides the Gemini API endpoint.
	BaseURL     string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

// GenAIClient completes with Google's Gemini API.
type GenAIClient struct {
	client      *genai.Client
	model       string
	temperature float32
	timeout     time.Duration
	breakers    *circuitbreaker.Manager
	recorder    RequestRecorder
}

// NewGenAIClient creates a GenAIClient.
func NewGenAIClient(ctx context.Context, opts GenAIOptions, breakers *circuitbreaker.Manager, recorder RequestRecorder) (*GenAIClient, error) {
	if opts.APIKey == "" {
		return nil, ErrNotConfigured
	}
	if opts.Model == "" {
		opts.Model = "gemini-2.0-flash"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}

	cc := &genai.ClientConfig{
		APIKey:     opts.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: tracing.Client(&http.Client{}),
	}
	if opts.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GenAIClient{
		client:      client,
		model:       opts.Model,
		temperature: float32(opts.Temperature),
		timeout:     opts.Timeout,
		breakers:    breakers,
		recorder:    recorder,
	}, nil
}

// Name returns the provider name
func (c *GenAIClient) Name() string {
	return "gemini"
}

// Complete sends system messages as the system instruction and the rest as
// the conversation.
func (c *GenAIClient) Complete(ctx context.Context, messages []Message) (string, error) {
	ctx, span := tracing.Start(ctx, "llm.complete")
	defer span.End()
	span.SetAttributes(tracing.AttrLLMProvider.String("gemini"))

	cfg := &genai.GenerateContentConfig{Temperature: genai.Ptr(c.temperature)}
	var contents []*genai.Content
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			cfg.SystemInstruction = genai.NewContentFromText(m.Content, genai.RoleUser)
		case RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}

	out, err := observe(ctx, c.breakers, c.recorder, "gemini", func(ctx context.Context) (string, error) {
		ctx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, cfg)
		if err != nil {
			return "", fmt.Errorf("GenAI generate failed: %w", err)
		}
		text := resp.Text()
		if text == "" {
			return "", ErrEmptyCompletion
		}
		return text, nil
	})
	if err != nil {
		span.RecordError(err)
	}
	return out, err
}
