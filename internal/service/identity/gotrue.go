package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/dzerik/campaign-portal/internal/model"
	"github.com/dzerik/campaign-portal/pkg/logger"
	"github.com/dzerik/campaign-portal/pkg/resilience/circuitbreaker"
	"github.com/dzerik/campaign-portal/pkg/tracing"
)

// GoTrueProvider implements Provider against the GoTrue REST API.
type GoTrueProvider struct {
	baseURL  string
	anonKey  string
	timeout  time.Duration
	client   *http.Client
	breakers *circuitbreaker.Manager
	recorder RequestRecorder
}

// NewGoTrueProvider creates a provider for the project at baseURL.
func NewGoTrueProvider(baseURL, anonKey string, timeout time.Duration, client *http.Client, breakers *circuitbreaker.Manager, recorder RequestRecorder) *GoTrueProvider {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &GoTrueProvider{
		baseURL:  baseURL,
		anonKey:  anonKey,
		timeout:  timeout,
		client:   tracing.Client(client),
		breakers: breakers,
		recorder: recorder,
	}
}

// Name returns the provider name
func (p *GoTrueProvider) Name() string {
	return "gotrue"
}

// AuthorizeURL builds {url}/auth/v1/authorize?provider=..&redirect_to=..
func (p *GoTrueProvider) AuthorizeURL(provider, redirectTo string) string {
	q := url.Values{}
	q.Set("provider", provider)
	q.Set("redirect_to", redirectTo)
	return p.baseURL + "/auth/v1/authorize?" + q.Encode()
}

type response struct {
	status int
	body   []byte
}

// GetUser calls GET /auth/v1/user with the access token.
func (p *GoTrueProvider) GetUser(ctx context.Context, accessToken string) (*model.User, error) {
	res, err := p.call(ctx, "get_user", http.MethodGet, "/auth/v1/user", accessToken)
	if err != nil {
		return nil, err
	}
	if res.status == http.StatusUnauthorized || res.status == http.StatusForbidden {
		return nil, ErrUnauthorized
	}
	if res.status != http.StatusOK {
		return nil, fmt.Errorf("%w: get user returned %d", ErrProviderUnavailable, res.status)
	}

	var user model.User
	if err := json.Unmarshal(res.body, &user); err != nil {
		return nil, fmt.Errorf("%w: decode user: %v", ErrProviderUnavailable, err)
	}
	if user.ID == "" {
		return nil, ErrUnauthorized
	}
	return &user, nil
}

// Logout calls POST /auth/v1/logout. An already revoked token is not an
// error.
func (p *GoTrueProvider) Logout(ctx context.Context, accessToken string) error {
	res, err := p.call(ctx, "logout", http.MethodPost, "/auth/v1/logout", accessToken)
	if err != nil {
		return err
	}
	switch {
	case res.status >= 200 && res.status < 300,
		res.status == http.StatusUnauthorized,
		res.status == http.StatusForbidden:
		return nil
	default:
		return fmt.Errorf("%w: logout returned %d", ErrProviderUnavailable, res.status)
	}
}

// call performs one request through the breaker. 4xx answers are results,
// not breaker failures.
func (p *GoTrueProvider) call(ctx context.Context, op, method, path, accessToken string) (*response, error) {
	ctx, span := tracing.Start(ctx, "identity."+op)
	defer span.End()

	start := time.Now()
	res, err := circuitbreaker.Do(ctx, p.breakers, circuitbreaker.ServiceIdentity, func(ctx context.Context) (*response, error) {
		return p.do(ctx, method, path, accessToken)
	})

	status := "ok"
	switch {
	case err != nil:
		status = "error"
		span.RecordError(err)
		logger.FromContext(ctx).Warn("identity provider request failed",
			zap.String("operation", op),
			zap.Error(err),
		)
	case res.status == http.StatusUnauthorized || res.status == http.StatusForbidden:
		status = "unauthorized"
	case res.status >= 300:
		status = "error"
	}
	if p.recorder != nil {
		p.recorder.RecordIdentityRequest(op, status, time.Since(start).Seconds())
	}

	if err != nil {
		if errors.Is(err, circuitbreaker.ErrOpen) {
			return nil, errors.Join(ErrProviderUnavailable, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	return res, nil
}

func (p *GoTrueProvider) do(ctx context.Context, method, path, accessToken string) (*response, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", p.anonKey)
	req.Header.Set("Accept", "application/json")

	client := oauth2.NewClient(
		context.WithValue(ctx, oauth2.HTTPClient, p.client),
		oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}),
	)
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return &response{status: resp.StatusCode, body: body}, nil
}
