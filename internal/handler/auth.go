package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/dzerik/campaign-portal/internal/model"
	"github.com/dzerik/campaign-portal/internal/service/identity"
	"github.com/dzerik/campaign-portal/pkg/logger"
)

// AuthHandler handles sign-in and session routes
type AuthHandler struct {
	identity *identity.Manager
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(idm *identity.Manager) *AuthHandler {
	return &AuthHandler{identity: idm}
}

// SessionResponse is the body of GET /api/session
type SessionResponse struct {
	User        *model.User         `json:"user"`
	DisplayName string              `json:"display_name"`
	AvatarURL   string              `json:"avatar_url,omitempty"`
	Provider    string              `json:"provider,omitempty"`
	Source      model.SessionSource `json:"source"`
	ExpiresAt   *time.Time          `json:"expires_at,omitempty"`
}

// AuthConfigResponse tells the client which sign-in options exist
type AuthConfigResponse struct {
	Enabled   bool     `json:"enabled"`
	DevMode   bool     `json:"dev_mode"`
	Providers []string `json:"providers"`
}

// HandleAuthConfig returns the sign-in options
func (h *AuthHandler) HandleAuthConfig(w http.ResponseWriter, r *http.Request) {
	providers := h.identity.Providers()
	if providers == nil {
		providers = []string{}
	}
	writeJSON(w, http.StatusOK, AuthConfigResponse{
		Enabled:   h.identity.Enabled(),
		DevMode:   h.identity.IsDevMode(),
		Providers: providers,
	})
}

// HandleLogin redirects the browser to the identity provider. The callback
// target is always the origin this request arrived on.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	if provider == "" {
		renderJSONError(w, "Provider not specified", http.StatusBadRequest)
		return
	}

	target, err := h.identity.LoginURL(provider, identity.RequestOrigin(r))
	switch {
	case errors.Is(err, identity.ErrNotConfigured):
		renderJSONError(w, err.Error(), http.StatusServiceUnavailable)
		return
	case errors.Is(err, identity.ErrUnsupportedProvider):
		renderJSONError(w, "Unknown sign-in provider", http.StatusBadRequest)
		return
	case err != nil:
		renderJSONError(w, "Failed to start sign-in", http.StatusInternalServerError)
		return
	}

	logger.FromContext(r.Context()).Debug("redirecting to identity provider",
		zap.String("provider", provider),
	)
	http.Redirect(w, r, target, http.StatusFound)
}

// HandleSession returns the user behind the bearer token
func (h *AuthHandler) HandleSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	resp := SessionResponse{
		User:        sess.User,
		DisplayName: sess.User.DisplayName(),
		AvatarURL:   sess.User.AvatarURL(),
		Provider:    sess.User.Provider(),
		Source:      sess.Source,
	}
	if !sess.ExpiresAt.IsZero() {
		exp := sess.ExpiresAt
		resp.ExpiresAt = &exp
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleLogout revokes the bearer token's session at the provider
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if h.identity.IsDevMode() {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	token := identity.BearerToken(r)
	if token == "" {
		renderJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	if err := h.identity.Logout(r.Context(), token); err != nil {
		status := authErrorStatus(err)
		if status == http.StatusInternalServerError {
			logger.FromContext(r.Context()).Error("logout failed", zap.Error(err))
		}
		renderJSONError(w, authErrorMessage(status), status)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// authenticate resolves the request's session or writes the error response.
func (h *AuthHandler) authenticate(w http.ResponseWriter, r *http.Request) (*model.Session, bool) {
	if sess := SessionFromContext(r.Context()); sess != nil {
		return sess, true
	}

	sess, err := h.identity.Authenticate(r.Context(), identity.BearerToken(r))
	if err != nil {
		status := authErrorStatus(err)
		if status >= http.StatusInternalServerError {
			logger.FromContext(r.Context()).Warn("session lookup failed", zap.Error(err))
		}
		renderJSONError(w, authErrorMessage(status), status)
		return nil, false
	}
	return sess, true
}

func authErrorStatus(err error) int {
	switch {
	case errors.Is(err, identity.ErrNotConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, identity.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, identity.ErrProviderUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func authErrorMessage(status int) string {
	switch status {
	case http.StatusServiceUnavailable:
		return identity.ErrNotConfigured.Error()
	case http.StatusUnauthorized:
		return "Authentication required"
	case http.StatusBadGateway:
		return "Identity provider unavailable"
	default:
		return "Internal error"
	}
}
