package handler

import (
	"html/template"
	"net/http"
	"slices"

	"go.uber.org/zap"

	"github.com/dzerik/campaign-portal/internal/model"
	"github.com/dzerik/campaign-portal/internal/service/security"
	"github.com/dzerik/campaign-portal/pkg/logger"
)

// PortalHandler serves the application page
type PortalHandler struct {
	title            string
	templates        *template.Template
	securityWarnings []security.Warning
	adminRoles       []string
	// showWarnings renders security warnings on the page itself.
	showWarnings bool
}

// PortalHandlerOption is a functional option for PortalHandler.
type PortalHandlerOption func(*PortalHandler)

// WithSecurityWarnings sets security warnings to display to admins.
func WithSecurityWarnings(warnings []security.Warning) PortalHandlerOption {
	return func(h *PortalHandler) {
		h.securityWarnings = warnings
	}
}

// WithAdminRoles sets the roles that can see security warnings.
func WithAdminRoles(roles []string) PortalHandlerOption {
	return func(h *PortalHandler) {
		h.adminRoles = roles
	}
}

// WithPageWarnings renders security warnings on the page for everyone.
// Meant for development mode.
func WithPageWarnings(show bool) PortalHandlerOption {
	return func(h *PortalHandler) {
		h.showWarnings = show
	}
}

// NewPortalHandler creates a new portal handler
func NewPortalHandler(title string, templates *template.Template, opts ...PortalHandlerOption) *PortalHandler {
	h := &PortalHandler{
		title:      title,
		templates:  templates,
		adminRoles: []string{"admin", "service_role"},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// PortalPageData represents data for the portal page template
type PortalPageData struct {
	Title            string             `json:"title"`
	SecurityWarnings []security.Warning `json:"security_warnings,omitempty"`
}

// ErrorPageData represents data for the error page template
type ErrorPageData struct {
	Title   string
	Message string
	Status  int
}

// HandlePortal serves the page shell. The bootstrap script it loads decides
// whether the application mounts.
func (h *PortalHandler) HandlePortal(w http.ResponseWriter, r *http.Request) {
	data := PortalPageData{Title: h.title}
	if h.showWarnings {
		data.SecurityWarnings = h.securityWarnings
	}

	w.Header().Set("Cache-Control", "no-store")
	if h.templates != nil {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := h.templates.ExecuteTemplate(w, "index.html", data); err != nil {
			logger.FromContext(r.Context()).Error("failed to render portal page", zap.Error(err))
			h.renderError(w, "Failed to render portal page", http.StatusInternalServerError)
		}
		return
	}

	// Fallback: JSON response
	writeJSON(w, http.StatusOK, data)
}

// HandleNotFound renders the error page for unknown routes
func (h *PortalHandler) HandleNotFound(w http.ResponseWriter, r *http.Request) {
	h.renderError(w, "The page you are looking for does not exist.", http.StatusNotFound)
}

// HandleWarnings returns the configuration security warnings to admins
func (h *PortalHandler) HandleWarnings(w http.ResponseWriter, r *http.Request) {
	sess := SessionFromContext(r.Context())
	if sess == nil || !h.isUserAdmin(sess.User) {
		renderJSONError(w, "Forbidden", http.StatusForbidden)
		return
	}

	warnings := h.securityWarnings
	if warnings == nil {
		warnings = []security.Warning{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"summary":  security.FormatSummary(warnings),
		"warnings": warnings,
	})
}

// isUserAdmin checks the user's role and its app_metadata role. User
// metadata is writable by the user and is never consulted.
func (h *PortalHandler) isUserAdmin(user *model.User) bool {
	if user == nil {
		return false
	}
	if slices.Contains(h.adminRoles, user.Role) {
		return true
	}
	role, _ := user.AppMetadata["role"].(string)
	return role != "" && slices.Contains(h.adminRoles, role)
}

// renderError renders an error page or JSON response
func (h *PortalHandler) renderError(w http.ResponseWriter, message string, status int) {
	if h.templates != nil {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		h.templates.ExecuteTemplate(w, "error.html", ErrorPageData{
			Title:   http.StatusText(status),
			Message: message,
			Status:  status,
		})
		return
	}

	renderJSONError(w, message, status)
}
