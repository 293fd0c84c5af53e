// Package bootstrap evaluates a page load before the application mounts.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dzerik/campaign-portal/internal/service/recovery"
	"github.com/dzerik/campaign-portal/internal/service/redirect"
	"github.com/dzerik/campaign-portal/pkg/logger"
	"github.com/dzerik/campaign-portal/pkg/tracing"
)

// Reasons reported when the corrector is not reached.
const (
	ReasonInvalidLocation = "invalid_location"
	ReasonInternalError   = "internal_error"
)

// PageLoad is what the browser reports before mounting.
type PageLoad struct {
	// Href is location.href.
	Href string
	// TabID identifies the browser tab. A missing or malformed id is
	// replaced by a fresh one returned in the Outcome.
	TabID string
	// NavigationAvailable reports whether location.replace is usable.
	NavigationAvailable bool
}

// Outcome is what the browser must do. Reload is set when a navigation only
// changes the fragment, which the browser would not treat as a page load.
type Outcome struct {
	Decision redirect.Decision   `json:"decision"`
	Mount    bool                `json:"mount"`
	Reload   bool                `json:"reload,omitempty"`
	State    redirect.State      `json:"state"`
	Reason   string              `json:"reason"`
	TabID    string              `json:"tab_id"`
	Error    *redirect.ErrorInfo `json:"error,omitempty"`
}

// DecisionRecorder counts decisions.
type DecisionRecorder interface {
	RecordRedirectDecision(kind, reason string)
}

// Service runs the redirect corrector against a tab's recovery record.
type Service struct {
	corrector *redirect.Corrector
	store     *recovery.Store
	recorder  DecisionRecorder
}

// NewService creates a Service.
func NewService(corrector *redirect.Corrector, store *recovery.Store, recorder DecisionRecorder) *Service {
	return &Service{corrector: corrector, store: store, recorder: recorder}
}

// Evaluate decides what the page must do. It never fails: anything that
// goes wrong yields NoAction and lets the application mount.
func (s *Service) Evaluate(ctx context.Context, load PageLoad) (out Outcome) {
	ctx, span := tracing.Start(ctx, "bootstrap.evaluate")
	defer span.End()

	tabID, fresh := normalizeTabID(load.TabID)
	log := logger.FromContext(ctx).With(zap.String("tab_id", tabID))
	span.SetAttributes(tracing.AttrTabID.String(tabID))

	defer func() {
		if r := recover(); r != nil {
			log.Error("bootstrap evaluation panicked", zap.Any("panic", r))
			span.RecordError(fmt.Errorf("panic: %v", r))
			out = fallback(tabID, ReasonInternalError)
		}
		span.SetAttributes(
			tracing.AttrRedirectDecision.String(string(out.Decision.Kind)),
			tracing.AttrRedirectReason.String(out.Reason),
		)
		if s.recorder != nil {
			s.recorder.RecordRedirectDecision(string(out.Decision.Kind), out.Reason)
		}
	}()

	page, err := redirect.NewPageContext(load.Href)
	if err != nil {
		log.Debug("unparsable page location", zap.Error(err))
		return fallback(tabID, ReasonInvalidLocation)
	}
	page.NavigationAvailable = load.NavigationAvailable

	tab := s.store.Tab(tabID)
	var prev redirect.RecoveryState
	if !fresh {
		prev = tab.Load(ctx)
	}

	res := s.corrector.Evaluate(page, prev)
	tab.Apply(ctx, prev, res.Next)

	fields := []zap.Field{
		zap.String("decision", string(res.Decision.Kind)),
		zap.String("state", string(res.State)),
		zap.String("reason", res.Reason),
		zap.String("environment", page.Environment().String()),
		zap.String("host", page.Host),
	}
	reload := false
	switch res.Decision.Kind {
	case redirect.KindNavigate:
		reload = page.SameDocument(res.Decision.TargetURL)
		fields = append(fields, zap.Bool("reload", reload))
		cred, _ := s.credential(res.Next.StagedFragment)
		log.Info("redirect recovery", append(fields, cred...)...)
	case redirect.KindRestoreStaged:
		cred, expired := s.credential(res.Decision.Fragment)
		if expired {
			log.Warn("restoring an expired credential", append(fields, cred...)...)
		} else {
			log.Info("redirect recovery", append(fields, cred...)...)
		}
	case redirect.KindRewriteInPlace:
		log.Info("identity provider returned an error", append(fields,
			zap.String("error_code", res.Err.Code),
			zap.String("error_description", res.Err.Description),
		)...)
	default:
		if res.Reason == "navigation_unavailable" {
			log.Warn("navigation unavailable, skipping redirect recovery", fields...)
		} else {
			log.Debug("redirect recovery", fields...)
		}
	}

	return Outcome{
		Decision: res.Decision,
		Mount:    res.Decision.MountsUI(),
		Reload:   reload,
		State:    res.State,
		Reason:   res.Reason,
		TabID:    tabID,
		Error:    res.Err,
	}
}

// credential describes the credential carried by fragment without exposing
// the token itself. expired is only reported for a known expiry.
func (s *Service) credential(fragment string) (fields []zap.Field, expired bool) {
	tok := redirect.ParseFragment(fragment, s.corrector.DevHost()).Token()
	if tok == nil {
		return nil, false
	}
	fields = []zap.Field{zap.String("token_type", tok.Type())}
	if !tok.Expiry.IsZero() {
		expired = time.Now().After(tok.Expiry)
		fields = append(fields, zap.Time("token_expiry", tok.Expiry), zap.Bool("token_expired", expired))
	}
	return fields, expired
}

func fallback(tabID, reason string) Outcome {
	return Outcome{
		Decision: redirect.NoAction(),
		Mount:    true,
		State:    redirect.StatePassThrough,
		Reason:   reason,
		TabID:    tabID,
	}
}

// normalizeTabID returns id in canonical form, or a new id when id is not a
// UUID. fresh reports a newly minted id with no record behind it.
func normalizeTabID(id string) (tabID string, fresh bool) {
	if u, err := uuid.Parse(id); err == nil {
		return u.String(), false
	}
	return uuid.NewString(), true
}
