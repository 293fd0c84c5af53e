// Package security provides security configuration analysis and warnings.
package security

import (
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/dzerik/campaign-portal/internal/config"
)

// Severity represents the severity level of a security warning.
type Severity string

const (
	// SeverityCritical indicates a critical security issue that must be fixed before production.
	SeverityCritical Severity = "critical"
	// SeverityHigh indicates a high-risk security issue.
	SeverityHigh Severity = "high"
	// SeverityMedium indicates a medium-risk security issue.
	SeverityMedium Severity = "medium"
	// SeverityLow indicates a low-risk informational issue.
	SeverityLow Severity = "low"
)

// Warning represents a security warning.
type Warning struct {
	// Code is a unique identifier for the warning (e.g., "SEC-001").
	Code     string   `json:"code"`
	Severity Severity `json:"severity"`
	Title    string   `json:"title"`
	// Description provides detailed explanation of the risk.
	Description string `json:"description"`
	// Component is the affected part of the configuration, if any.
	Component      string `json:"component,omitempty"`
	Recommendation string `json:"recommendation"`
}

// Checker analyzes configuration for security issues.
type Checker struct {
	cfg *config.Config
}

// NewChecker creates a new security checker.
func NewChecker(cfg *config.Config) *Checker {
	return &Checker{cfg: cfg}
}

// Check analyzes the configuration and returns all security warnings.
func (c *Checker) Check() []Warning {
	var warnings []Warning

	warnings = append(warnings, c.checkDevMode()...)
	warnings = append(warnings, c.checkIdentity()...)
	warnings = append(warnings, c.checkRecovery()...)
	warnings = append(warnings, c.checkTransport()...)
	warnings = append(warnings, c.checkOutbound()...)

	return warnings
}

// HasCritical returns true if there are any critical warnings.
func (c *Checker) HasCritical() bool {
	for _, w := range c.Check() {
		if w.Severity == SeverityCritical {
			return true
		}
	}
	return false
}

// GetByComponent returns warnings for a specific component plus global ones.
func GetByComponent(warnings []Warning, component string) []Warning {
	var result []Warning
	for _, w := range warnings {
		if w.Component == component || w.Component == "" {
			result = append(result, w)
		}
	}
	return result
}

// GetBySeverity returns warnings filtered by severity.
func GetBySeverity(warnings []Warning, severity Severity) []Warning {
	var result []Warning
	for _, w := range warnings {
		if w.Severity == severity {
			result = append(result, w)
		}
	}
	return result
}

func (c *Checker) checkDevMode() []Warning {
	if c.cfg.DevMode.Enabled {
		return []Warning{{
			Code:           "SEC-001",
			Severity:       SeverityCritical,
			Title:          "Development mode enabled",
			Description:    "Dev mode serves a fixed developer user for every request without contacting the identity provider.",
			Component:      "dev_mode",
			Recommendation: "Set dev_mode.enabled: false outside local development.",
		}}
	}
	return nil
}

func (c *Checker) checkIdentity() []Warning {
	if c.cfg.DevMode.Enabled {
		return nil
	}

	id := c.cfg.Identity
	if !id.Configured() {
		return []Warning{{
			Code:           "SEC-002",
			Severity:       SeverityHigh,
			Title:          "Authentication disabled",
			Description:    "No identity provider is configured, so the customer list and campaign routes are reachable without a session.",
			Component:      "identity",
			Recommendation: "Set identity.url and identity.anon_key.",
		}}
	}

	var warnings []Warning
	if insecureURL(id.URL) {
		warnings = append(warnings, Warning{
			Code:           "SEC-003",
			Severity:       SeverityHigh,
			Title:          "Identity provider reached over plain HTTP",
			Description:    "Access tokens are sent to the identity provider unencrypted.",
			Component:      "identity",
			Recommendation: "Use an https:// identity.url.",
		})
	}
	if id.JWTSecret == "" {
		warnings = append(warnings, Warning{
			Code:           "SEC-004",
			Severity:       SeverityLow,
			Title:          "Sessions verified remotely",
			Description:    "Without a JWT secret every API request asks the identity provider to resolve the access token.",
			Component:      "identity",
			Recommendation: "Set identity.jwt_secret to verify access tokens locally.",
		})
	}
	return warnings
}

func (c *Checker) checkRecovery() []Warning {
	rc := c.cfg.Recovery
	if rc.EncryptionKey != "" {
		return nil
	}

	severity := SeverityMedium
	if rc.Store == "redis" {
		severity = SeverityHigh
	}
	return []Warning{{
		Code:           "SEC-005",
		Severity:       severity,
		Title:          "Staged callback fragments stored unencrypted",
		Description:    fmt.Sprintf("The %s recovery store holds corrected callback fragments, which carry access and refresh tokens, in clear text.", rc.Store),
		Component:      "recovery",
		Recommendation: "Set recovery.encryption_key to a 32-byte key (see --generate-key).",
	}}
}

func (c *Checker) checkTransport() []Warning {
	var warnings []Warning

	if slices.Contains(c.cfg.Server.CORS.AllowedOrigins, "*") {
		warnings = append(warnings, Warning{
			Code:           "SEC-006",
			Severity:       SeverityMedium,
			Title:          "CORS allows any origin",
			Description:    "Any web page can call the API with a user's bearer token.",
			Component:      "server",
			Recommendation: "List the portal origins in server.cors.allowed_origins.",
		})
	}

	if !c.cfg.DevMode.Enabled && !c.cfg.Server.TLS.Enabled {
		warnings = append(warnings, Warning{
			Code:           "SEC-007",
			Severity:       SeverityLow,
			Title:          "TLS disabled",
			Description:    "The server listens on plain HTTP. This is fine behind a TLS-terminating proxy.",
			Component:      "server",
			Recommendation: "Ensure TLS termination happens upstream or enable server.tls.enabled.",
		})
	}

	if !c.cfg.Resilience.RateLimit.Enabled {
		warnings = append(warnings, Warning{
			Code:           "SEC-008",
			Severity:       SeverityLow,
			Title:          "Rate limiting disabled",
			Description:    "Campaign generation and dispatch can be called without limit, each call spending language model quota.",
			Component:      "resilience",
			Recommendation: "Set resilience.rate_limit.enabled: true.",
		})
	}

	return warnings
}

func (c *Checker) checkOutbound() []Warning {
	var warnings []Warning

	if insecureURL(c.cfg.Webhook.URL) {
		warnings = append(warnings, Warning{
			Code:           "SEC-009",
			Severity:       SeverityMedium,
			Title:          "Webhook reached over plain HTTP",
			Description:    "Campaign emails and recipient addresses are posted unencrypted.",
			Component:      "webhook",
			Recommendation: "Use an https:// webhook.url.",
		})
	}
	if c.cfg.Customers.Source == "http" && insecureURL(c.cfg.Customers.HTTP.URL) {
		warnings = append(warnings, Warning{
			Code:           "SEC-010",
			Severity:       SeverityMedium,
			Title:          "Customer backend reached over plain HTTP",
			Description:    "Customer contact details are fetched unencrypted.",
			Component:      "customers",
			Recommendation: "Use an https:// customers.http.url.",
		})
	}
	return warnings
}

// insecureURL reports whether raw is a plain http URL to a non-loopback host.
func insecureURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || !strings.EqualFold(u.Scheme, "http") {
		return false
	}
	switch u.Hostname() {
	case "localhost", "127.0.0.1", "::1":
		return false
	}
	return true
}

// CountBySeverity returns the count of warnings by severity.
func CountBySeverity(warnings []Warning) map[Severity]int {
	counts := map[Severity]int{
		SeverityCritical: 0,
		SeverityHigh:     0,
		SeverityMedium:   0,
		SeverityLow:      0,
	}
	for _, w := range warnings {
		counts[w.Severity]++
	}
	return counts
}

// FormatSummary returns a formatted summary of warnings.
func FormatSummary(warnings []Warning) string {
	if len(warnings) == 0 {
		return "No security warnings found"
	}

	counts := CountBySeverity(warnings)
	return fmt.Sprintf("Security warnings: %d critical, %d high, %d medium, %d low",
		counts[SeverityCritical],
		counts[SeverityHigh],
		counts[SeverityMedium],
		counts[SeverityLow],
	)
}
