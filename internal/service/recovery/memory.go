package recovery

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryBackend keeps records in process memory.
// Suitable for single-instance deployments and development.
type MemoryBackend struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time

	done      chan struct{}
	closeOnce sync.Once
}

// NewMemoryBackend creates a memory backend and starts its cleanup goroutine.
func NewMemoryBackend() *MemoryBackend {
	return newMemoryBackend(time.Minute, time.Now)
}

func newMemoryBackend(sweep time.Duration, now func() time.Time) *MemoryBackend {
	b := &MemoryBackend{
		entries: make(map[string]memoryEntry),
		now:     now,
		done:    make(chan struct{}),
	}
	go b.cleanup(sweep)
	return b
}

// Get returns a live value.
func (b *MemoryBackend) Get(_ context.Context, key string) (string, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	e, ok := b.entries[key]
	if !ok || !b.now().Before(e.expiresAt) {
		return "", false, nil
	}
	return e.value, true, nil
}

// Set stores value for ttl.
func (b *MemoryBackend) Set(_ context.Context, key, value string, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[key] = memoryEntry{value: value, expiresAt: b.now().Add(ttl)}
	return nil
}

// Delete removes keys.
func (b *MemoryBackend) Delete(_ context.Context, keys ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, k := range keys {
		delete(b.entries, k)
	}
	return nil
}

// Len returns the number of stored entries, expired ones included until swept.
func (b *MemoryBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

// Close stops the cleanup goroutine. Safe to call more than once.
func (b *MemoryBackend) Close() error {
	b.closeOnce.Do(func() { close(b.done) })
	return nil
}

// Name returns the backend type name.
func (b *MemoryBackend) Name() string {
	return "memory"
}

func (b *MemoryBackend) cleanup(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-b.done:
			return
		case <-ticker.C:
			b.sweep()
		}
	}
}

func (b *MemoryBackend) sweep() {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.now()
	for k, e := range b.entries {
		if !now.Before(e.expiresAt) {
			delete(b.entries, k)
		}
	}
}
