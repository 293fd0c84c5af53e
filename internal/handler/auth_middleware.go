package handler

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/dzerik/campaign-portal/internal/model"
	"github.com/dzerik/campaign-portal/pkg/logger"
)

type sessionContextKey struct{}

// SessionFromContext returns the session stored by RequireSession, if any.
func SessionFromContext(ctx context.Context) *model.Session {
	s, _ := ctx.Value(sessionContextKey{}).(*model.Session)
	return s
}

// ContextWithSession stores s in ctx.
func ContextWithSession(ctx context.Context, s *model.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, s)
}

// RequireSession is a middleware that requires a bearer token resolving to a
// session and returns JSON errors. With authentication disabled every request
// passes through.
func (h *AuthHandler) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.identity.Enabled() {
			next.ServeHTTP(w, r)
			return
		}

		sess, ok := h.authenticate(w, r)
		if !ok {
			return
		}

		ctx := ContextWithSession(r.Context(), sess)
		if sess.User != nil {
			ctx = logger.ToContext(ctx, logger.FromContext(ctx).With(zap.String("user_id", sess.User.ID)))
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
