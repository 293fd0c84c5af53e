// Package campaign generates targeting rules and copy with a language model
// and dispatches campaigns through the webhook.
package campaign

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dzerik/campaign-portal/internal/model"
	"github.com/dzerik/campaign-portal/internal/service/customer"
	"github.com/dzerik/campaign-portal/internal/service/llm"
	"github.com/dzerik/campaign-portal/internal/service/webhook"
	"github.com/dzerik/campaign-portal/pkg/logger"
	"github.com/dzerik/campaign-portal/pkg/tracing"
)

var (
	ErrInvalidModelOutput = errors.New("invalid model output")
	ErrEmptyDescription   = errors.New("description is required")
	ErrEmptyCampaignName  = errors.New("campaign name is required")
	ErrMissingSubject     = errors.New("subject is required")
	ErrMissingBody        = errors.New("body is required")
	ErrNoRecipients       = errors.New("no recipients selected")
)

// IsValidation reports whether err is a problem with the caller's input.
func IsValidation(err error) bool {
	return errors.Is(err, ErrEmptyDescription) ||
		errors.Is(err, ErrEmptyCampaignName) ||
		errors.Is(err, ErrMissingSubject) ||
		errors.Is(err, ErrMissingBody) ||
		errors.Is(err, ErrNoRecipients)
}

// Sender delivers one message.
type Sender interface {
	Send(ctx context.Context, msg webhook.Message) error
	Configured() bool
}

// SendRecorder counts campaign dispatches.
type SendRecorder interface {
	RecordCampaignSend(outcome string)
}

// Message is a generated subject and email body.
type Message struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// SendRequest is a campaign to dispatch. Empty CustomerIDs sends to every
// customer.
type SendRequest struct {
	Subject     string   `json:"subject"`
	Body        string   `json:"body"`
	CustomerIDs []string `json:"customer_ids,omitempty"`
}

// Failure is one recipient the webhook did not accept.
type Failure struct {
	CustomerID string `json:"customer_id"`
	Email      string `json:"email"`
	Error      string `json:"error"`
}

// Report summarises a dispatch.
type Report struct {
	CampaignID   string    `json:"campaign_id"`
	Total        int       `json:"total"`
	Succeeded    int       `json:"succeeded"`
	Failed       []Failure `json:"failed"`
	AllSucceeded bool      `json:"all_succeeded"`
}

// Options configures a Service.
type Options struct {
	// Concurrency bounds in-flight webhook requests. Defaults to 8.
	Concurrency int
	Recorder    SendRecorder
}

// Service is the campaign glue between the model, the customer list and
// the webhook.
type Service struct {
	completer   llm.Completer
	customers   customer.Source
	sender      Sender
	policy      *bluemonday.Policy
	concurrency int
	recorder    SendRecorder
}

// NewService creates a Service. completer may be nil when no model is
// configured; generation then fails with llm.ErrNotConfigured.
func NewService(completer llm.Completer, customers customer.Source, sender Sender, opts Options) *Service {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 8
	}
	return &Service{
		completer:   completer,
		customers:   customers,
		sender:      sender,
		policy:      bluemonday.UGCPolicy(),
		concurrency: concurrency,
		recorder:    opts.Recorder,
	}
}

// GenerateRules turns a natural-language segment description into rules.
func (s *Service) GenerateRules(ctx context.Context, description string) ([]model.Rule, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, ErrEmptyDescription
	}
	if s.completer == nil {
		return nil, llm.ErrNotConfigured
	}

	content, err := s.completer.Complete(ctx, []llm.Message{
		llm.System(rulesSystemPrompt),
		llm.User(rulesUserPrompt(description)),
	})
	if err != nil {
		return nil, err
	}

	rules, err := parseRules(content)
	if err != nil {
		logger.FromContext(ctx).Warn("model returned unusable rules",
			zap.Int("response_length", len(content)),
			zap.Error(err),
		)
		return nil, err
	}
	return rules, nil
}

// GenerateMessage writes a subject line for campaignName, then an email
// body for that subject and rules. The body is sanitized HTML.
func (s *Service) GenerateMessage(ctx context.Context, campaignName string, rules []model.Rule) (*Message, error) {
	campaignName = strings.TrimSpace(campaignName)
	if campaignName == "" {
		return nil, ErrEmptyCampaignName
	}
	if s.completer == nil {
		return nil, llm.ErrNotConfigured
	}

	subject, err := s.completer.Complete(ctx, []llm.Message{
		llm.System(subjectSystemPrompt),
		llm.User(subjectUserPrompt(campaignName)),
	})
	if err != nil {
		return nil, err
	}
	subject = cleanSubject(subject)
	if subject == "" {
		return nil, fmt.Errorf("%w: empty subject", ErrInvalidModelOutput)
	}

	body, err := s.completer.Complete(ctx, []llm.Message{
		llm.System(bodySystemPrompt),
		llm.User(bodyUserPrompt(subject, model.RulesText(rules), campaignName)),
	})
	if err != nil {
		return nil, fmt.Errorf("generating email body: %w", err)
	}

	return &Message{Subject: subject, Body: s.Sanitize(paragraphs(body))}, nil
}

// Sanitize strips unsafe markup from an email body.
func (s *Service) Sanitize(body string) string {
	return strings.TrimSpace(s.policy.Sanitize(body))
}

// Customers lists every customer.
func (s *Service) Customers(ctx context.Context) ([]model.Customer, error) {
	return s.customers.List(ctx)
}

// Send posts one webhook request per recipient. Individual failures are
// reported, not returned; an error means nothing was sent.
func (s *Service) Send(ctx context.Context, req SendRequest) (*Report, error) {
	subject := strings.TrimSpace(req.Subject)
	body := s.Sanitize(req.Body)
	if subject == "" {
		return nil, ErrMissingSubject
	}
	if body == "" {
		return nil, ErrMissingBody
	}
	if !s.sender.Configured() {
		return nil, webhook.ErrNotConfigured
	}

	all, err := s.customers.List(ctx)
	if err != nil {
		return nil, err
	}
	var recipients []model.Customer
	for _, c := range customer.Select(all, req.CustomerIDs) {
		if c.Reachable() {
			recipients = append(recipients, c)
		}
	}
	if len(recipients) == 0 {
		return nil, ErrNoRecipients
	}

	report := &Report{CampaignID: uuid.NewString(), Total: len(recipients), Failed: []Failure{}}

	ctx, span := tracing.Start(ctx, "campaign.send")
	defer span.End()
	span.SetAttributes(
		tracing.AttrRecipients.Int(len(recipients)),
		attribute.String("campaign.id", report.CampaignID),
	)

	log := logger.FromContext(ctx).With(zap.String("campaign_id", report.CampaignID))
	start := time.Now()

	errs := make([]error, len(recipients))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, c := range recipients {
		g.Go(func() error {
			errs[i] = s.sender.Send(gctx, webhook.Message{Subject: subject, Body: body, To: c.Email})
			return nil
		})
	}
	_ = g.Wait()

	for i, err := range errs {
		if err == nil {
			report.Succeeded++
			continue
		}
		report.Failed = append(report.Failed, Failure{
			CustomerID: recipients[i].ID,
			Email:      recipients[i].Email,
			Error:      err.Error(),
		})
	}
	report.AllSucceeded = len(report.Failed) == 0

	outcome := "all_succeeded"
	switch {
	case report.Succeeded == 0:
		outcome = "failed"
	case !report.AllSucceeded:
		outcome = "partial"
	}
	if s.recorder != nil {
		s.recorder.RecordCampaignSend(outcome)
	}

	log.Info("campaign dispatched",
		zap.String("outcome", outcome),
		zap.Int("recipients", report.Total),
		zap.Int("failed", len(report.Failed)),
		zap.Duration("duration", time.Since(start)),
	)
	return report, nil
}
