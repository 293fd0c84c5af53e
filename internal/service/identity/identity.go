// Package identity talks to the hosted identity provider (Supabase GoTrue).
package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dzerik/campaign-portal/internal/config"
	"github.com/dzerik/campaign-portal/internal/model"
	"github.com/dzerik/campaign-portal/internal/service/crypto"
	"github.com/dzerik/campaign-portal/pkg/resilience/circuitbreaker"
)

var (
	ErrNotConfigured       = errors.New("authentication configuration is missing")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrUnsupportedProvider = errors.New("unsupported sign-in provider")
	ErrProviderUnavailable = errors.New("identity provider unavailable")
)

// Provider is the part of the identity provider the portal consumes.
type Provider interface {
	// Name returns the provider name
	Name() string

	// AuthorizeURL returns where the browser goes to sign in with the
	// given social provider. redirectTo is where the provider sends it back.
	AuthorizeURL(provider, redirectTo string) string

	// GetUser resolves an access token to its user
	GetUser(ctx context.Context, accessToken string) (*model.User, error)

	// Logout revokes the session of an access token
	Logout(ctx context.Context, accessToken string) error
}

// RequestRecorder counts identity provider calls.
type RequestRecorder interface {
	RecordIdentityRequest(operation, status string, seconds float64)
}

// Option configures a Manager.
type Option func(*managerOptions)

type managerOptions struct {
	client   *http.Client
	breakers *circuitbreaker.Manager
	recorder RequestRecorder
	now      func() time.Time
}

// WithHTTPClient sets the client used to reach the provider.
func WithHTTPClient(c *http.Client) Option {
	return func(o *managerOptions) { o.client = c }
}

// WithBreakers routes provider calls through circuit breakers.
func WithBreakers(m *circuitbreaker.Manager) Option {
	return func(o *managerOptions) { o.breakers = m }
}

// WithRecorder records provider calls.
func WithRecorder(r RequestRecorder) Option {
	return func(o *managerOptions) { o.recorder = r }
}

// Manager resolves sessions and sign-in URLs.
type Manager struct {
	provider  Provider
	verifier  *crypto.TokenVerifier
	providers []string
	devMode   bool
	devUser   *model.User
	now       func() time.Time
}

// NewManager creates a Manager. Without a project URL and anon key (and
// outside dev mode) the manager is disabled and every session lookup fails
// with ErrNotConfigured.
func NewManager(cfg *config.IdentityConfig, devCfg *config.DevModeConfig, opts ...Option) (*Manager, error) {
	o := managerOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	m := &Manager{providers: cfg.Providers, now: o.now}

	if devCfg != nil && devCfg.Enabled {
		dev := NewDevProvider(devCfg.User)
		m.provider = dev
		m.devMode = true
		m.devUser = dev.user
		return m, nil
	}

	if !cfg.Configured() {
		return m, nil
	}

	m.provider = NewGoTrueProvider(cfg.URL, cfg.AnonKey, cfg.Timeout, o.client, o.breakers, o.recorder)

	if cfg.JWTSecret != "" {
		v, err := crypto.NewTokenVerifier(cfg.JWTSecret, cfg.JWTAudience)
		if err != nil {
			return nil, fmt.Errorf("failed to create token verifier: %w", err)
		}
		m.verifier = v
	}
	return m, nil
}

// Enabled reports whether sessions can be resolved at all.
func (m *Manager) Enabled() bool {
	return m.provider != nil
}

// IsDevMode returns true if running in dev mode
func (m *Manager) IsDevMode() bool {
	return m.devMode
}

// Provider returns the underlying provider, nil when disabled.
func (m *Manager) Provider() Provider {
	return m.provider
}

// Providers returns the social providers offered on the sign-in page.
func (m *Manager) Providers() []string {
	return m.providers
}

// RedirectTarget is where the provider must send the browser back. It is
// always derived from the origin the request came in on, with a
// cache-busting timestamp so a stale redirect captured elsewhere is never
// reused.
func (m *Manager) RedirectTarget(origin string) string {
	return strings.TrimRight(origin, "/") + "/?t=" + strconv.FormatInt(m.now().Unix(), 10)
}

// LoginURL returns the sign-in URL for provider, returning to origin.
func (m *Manager) LoginURL(provider, origin string) (string, error) {
	if !m.Enabled() {
		return "", ErrNotConfigured
	}
	if !m.devMode && len(m.providers) > 0 && !slices.Contains(m.providers, provider) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedProvider, provider)
	}
	return m.provider.AuthorizeURL(provider, m.RedirectTarget(origin)), nil
}

// Authenticate resolves an access token to a session. With a JWT secret the
// token is verified locally, otherwise the provider is asked.
func (m *Manager) Authenticate(ctx context.Context, accessToken string) (*model.Session, error) {
	if m.devMode {
		return &model.Session{User: m.devUser, Source: model.SessionSourceDev}, nil
	}
	if !m.Enabled() {
		return nil, ErrNotConfigured
	}
	if accessToken == "" {
		return nil, ErrUnauthorized
	}

	if m.verifier != nil {
		claims, err := m.verifier.Verify(accessToken)
		if err != nil {
			return nil, errors.Join(ErrUnauthorized, err)
		}
		s := &model.Session{User: userFromClaims(claims), Source: model.SessionSourceToken}
		if claims.ExpiresAt != nil {
			s.ExpiresAt = claims.ExpiresAt.Time
		}
		return s, nil
	}

	user, err := m.provider.GetUser(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	return &model.Session{User: user, Source: model.SessionSourceProvider}, nil
}

// Logout revokes the session behind accessToken.
func (m *Manager) Logout(ctx context.Context, accessToken string) error {
	if !m.Enabled() {
		return ErrNotConfigured
	}
	return m.provider.Logout(ctx, accessToken)
}

func userFromClaims(c *crypto.AccessClaims) *model.User {
	u := &model.User{
		ID:           c.Subject,
		Role:         c.Role,
		Email:        c.Email,
		Phone:        c.Phone,
		AppMetadata:  c.AppMetadata,
		UserMetadata: c.UserMetadata,
	}
	if len(c.Audience) > 0 {
		u.Aud = c.Audience[0]
	}
	return u
}

// BearerToken extracts the token of an "Authorization: Bearer" header.
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// RequestOrigin returns scheme://host of the request as seen by the
// browser, honouring X-Forwarded-Proto and X-Forwarded-Host.
func RequestOrigin(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if p := r.Header.Get("X-Forwarded-Proto"); p == "http" || p == "https" {
		scheme = p
	}
	host := r.Host
	if h := r.Header.Get("X-Forwarded-Host"); h != "" {
		host, _, _ = strings.Cut(h, ",")
		host = strings.TrimSpace(host)
	}
	u := url.URL{Scheme: scheme, Host: host}
	return u.String()
}
