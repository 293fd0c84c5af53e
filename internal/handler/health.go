package handler

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"
)

// Pinger is a dependency the readiness probe can check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BreakerStates reports circuit breaker states by service name.
type BreakerStates interface {
	States() map[string]string
}

// HealthHandler handles health check endpoints
type HealthHandler struct {
	version   string
	startTime time.Time
	timeout   time.Duration
	breakers  BreakerStates
	mu        sync.RWMutex
	ready     bool
	checks    map[string]Pinger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(version string, breakers BreakerStates) *HealthHandler {
	return &HealthHandler{
		version:   version,
		startTime: time.Now(),
		timeout:   2 * time.Second,
		breakers:  breakers,
		checks:    make(map[string]Pinger),
	}
}

// AddCheck registers a dependency checked by /ready.
func (h *HealthHandler) AddCheck(name string, p Pinger) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = p
}

// SetReady marks the service as ready
func (h *HealthHandler) SetReady(ready bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ready = ready
}

// IsReady returns the ready status
func (h *HealthHandler) IsReady() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.ready
}

// HealthResponse represents a health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Uptime    string            `json:"uptime"`
	Version   string            `json:"version,omitempty"`
	Checks    map[string]string `json:"checks,omitempty"`
	Breakers  map[string]string `json:"breakers,omitempty"`
}

// HandleHealth handles the /health endpoint (liveness probe)
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Version:   h.version,
	})
}

// HandleReady handles the /ready endpoint (readiness probe). Open breakers
// are reported but do not fail readiness.
func (h *HealthHandler) HandleReady(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)
	allHealthy := true

	if !h.IsReady() {
		checks["startup"] = "not ready"
		allHealthy = false
	} else {
		checks["startup"] = "ok"
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	h.mu.RLock()
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	pingers := make([]Pinger, len(names))
	for i, name := range names {
		pingers[i] = h.checks[name]
	}
	h.mu.RUnlock()

	for i, name := range names {
		if err := pingers[i].Ping(ctx); err != nil {
			checks[name] = err.Error()
			allHealthy = false
		} else {
			checks[name] = "ok"
		}
	}

	response := HealthResponse{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Version:   h.version,
		Checks:    checks,
	}
	if h.breakers != nil {
		if states := h.breakers.States(); len(states) > 0 {
			response.Breakers = states
		}
	}

	status := http.StatusOK
	response.Status = "ready"
	if !allHealthy {
		status = http.StatusServiceUnavailable
		response.Status = "not ready"
	}
	writeJSON(w, status, response)
}
