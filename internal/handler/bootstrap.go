package handler

import (
	"net/http"

	"github.com/dzerik/campaign-portal/internal/service/bootstrap"
)

// BootstrapHandler answers the page-load check the client runs before
// mounting the application.
type BootstrapHandler struct {
	service      *bootstrap.Service
	maxBodyBytes int64
}

// NewBootstrapHandler creates a new bootstrap handler
func NewBootstrapHandler(svc *bootstrap.Service, maxBodyBytes int64) *BootstrapHandler {
	return &BootstrapHandler{service: svc, maxBodyBytes: maxBodyBytes}
}

// BootstrapRequest is the body of POST /api/bootstrap
type BootstrapRequest struct {
	Href  string `json:"href"`
	TabID string `json:"tab_id"`
	// Navigation defaults to true when omitted.
	Navigation *bool `json:"navigation,omitempty"`
}

// HandleBootstrap evaluates one page load. Only a malformed body is an
// error; every other case answers 200 with a decision.
func (h *BootstrapHandler) HandleBootstrap(w http.ResponseWriter, r *http.Request) {
	var req BootstrapRequest
	if err := decodeJSON(w, r, h.maxBodyBytes, &req); err != nil {
		renderJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	navigation := true
	if req.Navigation != nil {
		navigation = *req.Navigation
	}

	out := h.service.Evaluate(r.Context(), bootstrap.PageLoad{
		Href:                req.Href,
		TabID:               req.TabID,
		NavigationAvailable: navigation,
	})

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, out)
}
