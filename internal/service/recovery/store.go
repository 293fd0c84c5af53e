package recovery

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/dzerik/campaign-portal/internal/service/crypto"
	"github.com/dzerik/campaign-portal/internal/service/redirect"
	"github.com/dzerik/campaign-portal/pkg/logger"
)

// ErrorRecorder counts degraded backend operations.
type ErrorRecorder interface {
	RecordStoreError(backend, operation string)
}

// Options configures a Store.
type Options struct {
	TTL time.Duration
	// Encryptor seals the staged fragment at rest. Nil stores it in clear.
	Encryptor *crypto.Encryptor
	Errors    ErrorRecorder
}

// Store hands out tab-scoped views over a Backend.
//
// A backend failure never reaches the caller: reads degrade to "absent",
// writes to no-ops, and both are logged and counted.
type Store struct {
	backend Backend
	ttl     time.Duration
	enc     *crypto.Encryptor
	errs    ErrorRecorder
}

// NewStore creates a Store over backend.
func NewStore(backend Backend, opts Options) *Store {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{backend: backend, ttl: ttl, enc: opts.Encryptor, errs: opts.Errors}
}

// Backend returns the underlying backend.
func (s *Store) Backend() Backend {
	return s.backend
}

// Close closes the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

// Tab returns the record handle for one browser tab. An empty tab id yields a
// handle on which every read is absent and every write is dropped.
func (s *Store) Tab(tabID string) *Tab {
	return &Tab{store: s, id: tabID}
}

// Tab is the recovery record of one browser tab.
type Tab struct {
	store *Store
	id    string
}

// ID returns the tab identifier.
func (t *Tab) ID() string {
	return t.id
}

// Stage records the corrected fragment, overwriting any previous one.
func (t *Tab) Stage(ctx context.Context, fragment string) {
	if t.id == "" {
		return
	}
	value := fragment
	if t.store.enc != nil {
		sealed, err := t.store.enc.Seal(fragment)
		if err != nil {
			t.fail(ctx, "stage", err)
			return
		}
		value = sealed
	}
	if err := t.store.backend.Set(ctx, t.key(KeyStagedFragment), value, t.store.ttl); err != nil {
		t.fail(ctx, "stage", err)
	}
}

// ReadStaged returns the staged fragment, if any.
func (t *Tab) ReadStaged(ctx context.Context) (string, bool) {
	if t.id == "" {
		return "", false
	}
	value, ok, err := t.store.backend.Get(ctx, t.key(KeyStagedFragment))
	if err != nil {
		t.fail(ctx, "read_staged", err)
		return "", false
	}
	if !ok {
		return "", false
	}
	if t.store.enc != nil {
		plain, err := t.store.enc.Open(value)
		if err != nil {
			t.fail(ctx, "read_staged", err)
			return "", false
		}
		value = plain
	}
	return value, true
}

// Clear removes both keys of the record.
func (t *Tab) Clear(ctx context.Context) {
	if t.id == "" {
		return
	}
	if err := t.store.backend.Delete(ctx, t.key(KeyStagedFragment), t.key(KeyInFlight)); err != nil {
		t.fail(ctx, "clear", err)
	}
}

// SetInFlight sets or removes the in-flight marker.
func (t *Tab) SetInFlight(ctx context.Context, inFlight bool) {
	if t.id == "" {
		return
	}
	var err error
	if inFlight {
		err = t.store.backend.Set(ctx, t.key(KeyInFlight), "true", t.store.ttl)
	} else {
		err = t.store.backend.Delete(ctx, t.key(KeyInFlight))
	}
	if err != nil {
		t.fail(ctx, "set_in_flight", err)
	}
}

// IsInFlight reports whether a corrective navigation is pending.
func (t *Tab) IsInFlight(ctx context.Context) bool {
	if t.id == "" {
		return false
	}
	value, ok, err := t.store.backend.Get(ctx, t.key(KeyInFlight))
	if err != nil {
		t.fail(ctx, "is_in_flight", err)
		return false
	}
	return ok && value == "true"
}

// Load reads the whole record.
func (t *Tab) Load(ctx context.Context) redirect.RecoveryState {
	staged, has := t.ReadStaged(ctx)
	return redirect.RecoveryState{
		StagedFragment: staged,
		HasStaged:      has,
		InFlight:       t.IsInFlight(ctx),
	}
}

// Apply writes the transition from prev to next with the minimum of
// operations.
func (t *Tab) Apply(ctx context.Context, prev, next redirect.RecoveryState) {
	if next.IsZero() {
		if !prev.IsZero() {
			t.Clear(ctx)
		}
		return
	}
	if next.HasStaged && (!prev.HasStaged || next.StagedFragment != prev.StagedFragment) {
		t.Stage(ctx, next.StagedFragment)
	}
	if next.InFlight != prev.InFlight {
		t.SetInFlight(ctx, next.InFlight)
	}
}

// key keeps both keys of a tab in one Redis Cluster hash slot.
func (t *Tab) key(name string) string {
	return "{" + t.id + "}:" + name
}

func (t *Tab) fail(ctx context.Context, op string, err error) {
	level := zap.WarnLevel
	if errors.Is(err, context.Canceled) {
		level = zap.DebugLevel
	}
	logger.FromContext(ctx).Check(level, "recovery store unavailable").Write(
		zap.String("backend", t.store.backend.Name()),
		zap.String("operation", op),
		zap.String("tab_id", t.id),
		zap.Error(err),
	)
	if t.store.errs != nil {
		t.store.errs.RecordStoreError(t.store.backend.Name(), op)
	}
}
