package identity

import (
	"context"
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dzerik/campaign-portal/internal/config"
	"github.com/dzerik/campaign-portal/internal/model"
	"github.com/dzerik/campaign-portal/internal/service/crypto"
	"github.com/dzerik/campaign-portal/pkg/resilience/circuitbreaker"
)

const testSecret = "super-secret-jwt-token-with-at-least-32-characters"

func signToken(t *testing.T, claims crypto.AccessClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return tok
}

type recordedCall struct {
	operation, status string
}

type fakeRecorder struct {
	calls []recordedCall
}

func (f *fakeRecorder) RecordIdentityRequest(operation, status string, _ float64) {
	f.calls = append(f.calls, recordedCall{operation, status})
}

func gotrueServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		if r.Header.Get("apikey") != "anon" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		switch {
		case r.URL.Path == "/auth/v1/user" && r.Header.Get("Authorization") == "Bearer good":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"user-1","email":"ada@example.com","user_metadata":{"full_name":"Ada"}}`))
		case r.URL.Path == "/auth/v1/user" && r.Header.Get("Authorization") == "Bearer boom":
			w.WriteHeader(http.StatusBadGateway)
		case r.URL.Path == "/auth/v1/user":
			w.WriteHeader(http.StatusUnauthorized)
		case r.URL.Path == "/auth/v1/logout" && r.Method == http.MethodPost:
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNewManager_Disabled(t *testing.T) {
	m, err := NewManager(&config.IdentityConfig{}, &config.DevModeConfig{})
	require.NoError(t, err)

	assert.False(t, m.Enabled())
	_, err = m.Authenticate(context.Background(), "token")
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.Equal(t, "authentication configuration is missing", err.Error())

	_, err = m.LoginURL("google", "https://app.example.com")
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.ErrorIs(t, m.Logout(context.Background(), "t"), ErrNotConfigured)
}

func TestManager_DevMode(t *testing.T) {
	m, err := NewManager(&config.IdentityConfig{}, &config.DevModeConfig{
		Enabled: true,
		User:    config.DevUserConfig{ID: "dev-1", Email: "dev@localhost", Name: "Dev"},
	})
	require.NoError(t, err)
	assert.True(t, m.IsDevMode())

	s, err := m.Authenticate(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, model.SessionSourceDev, s.Source)
	assert.Equal(t, "dev-1", s.User.ID)
	assert.Equal(t, "Dev", s.User.DisplayName())

	target, err := m.LoginURL("anything", "http://localhost:8080")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(target, "http://localhost:8080/?t="))
}

func TestManager_LoginURL(t *testing.T) {
	m, err := NewManager(&config.IdentityConfig{
		URL: "https://proj.supabase.co", AnonKey: "anon", Providers: []string{"google"},
	}, nil)
	require.NoError(t, err)
	m.now = func() time.Time { return time.Unix(1700000000, 0) }

	got, err := m.LoginURL("google", "https://my-app.example.com/")
	require.NoError(t, err)
	assert.Equal(t,
		"https://proj.supabase.co/auth/v1/authorize?provider=google&redirect_to=https%3A%2F%2Fmy-app.example.com%2F%3Ft%3D1700000000",
		got)

	_, err = m.LoginURL("github", "https://my-app.example.com")
	assert.ErrorIs(t, err, ErrUnsupportedProvider)
}

func TestManager_Authenticate_LocalVerification(t *testing.T) {
	var hits atomic.Int32
	srv := gotrueServer(t, &hits)

	m, err := NewManager(&config.IdentityConfig{
		URL: srv.URL, AnonKey: "anon", JWTSecret: testSecret, JWTAudience: "authenticated",
	}, nil)
	require.NoError(t, err)

	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token := signToken(t, crypto.AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-42",
			Audience:  jwt.ClaimStrings{"authenticated"},
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Email:        "ada@example.com",
		Role:         "authenticated",
		UserMetadata: map[string]any{"name": "Ada"},
	})

	s, err := m.Authenticate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, model.SessionSourceToken, s.Source)
	assert.Equal(t, "user-42", s.User.ID)
	assert.Equal(t, "authenticated", s.User.Aud)
	assert.Equal(t, "Ada", s.User.DisplayName())
	assert.True(t, s.ExpiresAt.Equal(exp))
	assert.Zero(t, hits.Load(), "local verification must not call the provider")

	expired := signToken(t, crypto.AccessClaims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "user-42",
		Audience:  jwt.ClaimStrings{"authenticated"},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}})
	_, err = m.Authenticate(context.Background(), expired)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.ErrorIs(t, err, crypto.ErrTokenExpired)

	_, err = m.Authenticate(context.Background(), "")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestManager_Authenticate_ViaProvider(t *testing.T) {
	srv := gotrueServer(t, nil)
	rec := &fakeRecorder{}

	m, err := NewManager(&config.IdentityConfig{URL: srv.URL, AnonKey: "anon"}, nil, WithRecorder(rec))
	require.NoError(t, err)

	s, err := m.Authenticate(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, model.SessionSourceProvider, s.Source)
	assert.Equal(t, "user-1", s.User.ID)

	_, err = m.Authenticate(context.Background(), "bad")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = m.Authenticate(context.Background(), "boom")
	assert.ErrorIs(t, err, ErrProviderUnavailable)

	assert.Equal(t, []recordedCall{
		{"get_user", "ok"},
		{"get_user", "unauthorized"},
		{"get_user", "error"},
	}, rec.calls)
}

func TestManager_Logout(t *testing.T) {
	srv := gotrueServer(t, nil)
	m, err := NewManager(&config.IdentityConfig{URL: srv.URL, AnonKey: "anon"}, nil)
	require.NoError(t, err)

	assert.NoError(t, m.Logout(context.Background(), "good"))
}

func TestGoTrueProvider_BreakerOpens(t *testing.T) {
	var hits atomic.Int32
	srv := gotrueServer(t, &hits)

	breakers := circuitbreaker.NewManager(circuitbreaker.Config{
		Enabled: true,
		Default: circuitbreaker.Settings{MaxRequests: 1, Timeout: time.Minute, FailureThreshold: 2},
	})
	p := NewGoTrueProvider(srv.URL, "anon", time.Second, nil, breakers, nil)

	for i := 0; i < 2; i++ {
		_, err := p.GetUser(context.Background(), "boom")
		require.ErrorIs(t, err, ErrProviderUnavailable)
	}
	_, err := p.GetUser(context.Background(), "boom")
	assert.ErrorIs(t, err, circuitbreaker.ErrOpen)
	assert.Equal(t, int32(2), hits.Load())
}

func TestGoTrueProvider_UnauthorizedDoesNotTrip(t *testing.T) {
	srv := gotrueServer(t, nil)
	breakers := circuitbreaker.NewManager(circuitbreaker.Config{
		Enabled: true,
		Default: circuitbreaker.Settings{MaxRequests: 1, Timeout: time.Minute, FailureThreshold: 1},
	})
	p := NewGoTrueProvider(srv.URL, "anon", time.Second, nil, breakers, nil)

	for i := 0; i < 3; i++ {
		_, err := p.GetUser(context.Background(), "bad")
		require.ErrorIs(t, err, ErrUnauthorized)
	}
	assert.Equal(t, "closed", breakers.State(circuitbreaker.ServiceIdentity).String())
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header   string
		expected string
	}{
		{"Bearer abc", "abc"},
		{"bearer abc ", "abc"},
		{"Basic abc", ""},
		{"Bearer", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			assert.Equal(t, tt.expected, BearerToken(r))
		})
	}
}

func TestRequestOrigin(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "http://my-app.example.com/login/google", nil)
	assert.Equal(t, "http://my-app.example.com", RequestOrigin(r))

	r.Header.Set("X-Forwarded-Proto", "https")
	r.Header.Set("X-Forwarded-Host", "public.example.com, internal:8080")
	assert.Equal(t, "https://public.example.com", RequestOrigin(r))

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Host = "secure.example.com"
	r.TLS = &tls.ConnectionState{}
	assert.Equal(t, "https://secure.example.com", RequestOrigin(r))
}
