// Package help provides help text generation for campaign-portal.
package help

import (
	"fmt"
	"strings"
)

// AppInfo contains application metadata.
type AppInfo struct {
	Name        string
	Description string
	Version     string
	BuildTime   string
	DocsURL     string
}

// Generator generates help text for the application.
type Generator struct {
	appInfo      AppInfo
	envVarPrefix string
}

// NewGenerator creates a new help generator.
func NewGenerator(appInfo AppInfo, envVarPrefix string) *Generator {
	return &Generator{
		appInfo:      appInfo,
		envVarPrefix: envVarPrefix,
	}
}

// PrintVersion prints version information.
func (g *Generator) PrintVersion() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s %s\n", g.appInfo.Name, g.appInfo.Version))
	sb.WriteString(fmt.Sprintf("  Build time: %s\n", g.appInfo.BuildTime))
	return sb.String()
}

// PrintUsage prints basic usage information.
func (g *Generator) PrintUsage() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Usage: %s [OPTIONS]\n\n", g.appInfo.Name))
	sb.WriteString(fmt.Sprintf("%s\n\n", g.appInfo.Description))
	sb.WriteString("Use --help for detailed configuration documentation\n")
	return sb.String()
}

// PrintExtendedHelp prints detailed help with all configuration options.
func (g *Generator) PrintExtendedHelp() string {
	var sb strings.Builder

	// Header
	sb.WriteString(g.header())
	sb.WriteString("\n")

	// Description section
	sb.WriteString("DESCRIPTION\n")
	sb.WriteString(fmt.Sprintf("    %s\n\n", g.appInfo.Description))

	// Usage section
	sb.WriteString("USAGE\n")
	sb.WriteString(fmt.Sprintf("    %s [OPTIONS]\n\n", g.appInfo.Name))

	// Options section
	sb.WriteString("OPTIONS\n")
	sb.WriteString(g.optionsSection())
	sb.WriteString("\n")

	// Separator
	sb.WriteString(g.separator())

	// Configuration section
	sb.WriteString("CONFIGURATION\n\n")
	sb.WriteString(g.configSection())
	sb.WriteString("\n")

	// Separator
	sb.WriteString(g.separator())

	// Environment variables section
	sb.WriteString("ENVIRONMENT VARIABLES\n\n")
	sb.WriteString(g.envVarsSection())
	sb.WriteString("\n")

	// Separator
	sb.WriteString(g.separator())

	// Redirect recovery section
	sb.WriteString("REDIRECT RECOVERY\n\n")
	sb.WriteString(g.recoverySection())
	sb.WriteString("\n")

	// Separator
	sb.WriteString(g.separator())

	// API section
	sb.WriteString("API ENDPOINTS\n\n")
	sb.WriteString(g.endpointsSection())
	sb.WriteString("\n")

	// Separator
	sb.WriteString(g.separator())

	// Examples section
	sb.WriteString("EXAMPLES\n\n")
	sb.WriteString(g.examplesSection())
	sb.WriteString("\n")

	// Separator
	sb.WriteString(g.separator())

	// Health endpoints section
	sb.WriteString("HEALTH ENDPOINTS\n\n")
	sb.WriteString("    GET /health               Overall health status\n")
	sb.WriteString("    GET /ready                Readiness probe\n")
	sb.WriteString("    GET /metrics              Prometheus metrics\n\n")

	// Separator
	sb.WriteString(g.separator())

	// Version section
	sb.WriteString("VERSION\n")
	sb.WriteString(fmt.Sprintf("    %s\n", g.appInfo.Version))
	sb.WriteString(fmt.Sprintf("    Built: %s\n\n", g.appInfo.BuildTime))

	if g.appInfo.DocsURL != "" {
		sb.WriteString("DOCUMENTATION\n")
		sb.WriteString(fmt.Sprintf("    %s\n\n", g.appInfo.DocsURL))
	}

	return sb.String()
}

// header generates the header box.
func (g *Generator) header() string {
	width := 80
	title := strings.ToUpper(g.appInfo.Name)
	subtitle := g.appInfo.Description

	if len(subtitle) > width-4 {
		subtitle = subtitle[:width-7] + "..."
	}

	var sb strings.Builder
	sb.WriteString("\n")

	// Top border
	sb.WriteString("+" + strings.Repeat("-", width-2) + "+\n")

	// Title centered
	titlePadding := (width - 2 - len(title)) / 2
	sb.WriteString("|" + strings.Repeat(" ", titlePadding) + title + strings.Repeat(" ", width-2-titlePadding-len(title)) + "|\n")

	// Subtitle centered
	subtitlePadding := (width - 2 - len(subtitle)) / 2
	sb.WriteString("|" + strings.Repeat(" ", subtitlePadding) + subtitle + strings.Repeat(" ", width-2-subtitlePadding-len(subtitle)) + "|\n")

	// Bottom border
	sb.WriteString("+" + strings.Repeat("-", width-2) + "+\n")

	return sb.String()
}

// separator generates a section separator line.
func (g *Generator) separator() string {
	return strings.Repeat("-", 80) + "\n\n"
}

// optionsSection generates the options section.
func (g *Generator) optionsSection() string {
	return fmt.Sprintf(`    --config <path>       Path to configuration YAML file (optional)
                          Env: %s_CONFIG

    --env-file <path>     Dotenv file to load before configuration
                          Repeatable. Default: .env

    --dev                 Enable development mode (fixed local user)
    --version             Show version information
    --help, -h            Show this help message
    --schema              Generate JSON Schema and exit
    --schema-output <file> Output file for schema (default: stdout)
    --generate-key        Print a random recovery encryption key and exit
    --print-config        Print the effective configuration (secrets masked)
`, g.envVarPrefix)
}

// configSection generates the configuration section.
func (g *Generator) configSection() string {
	return fmt.Sprintf(`    Configuration is loaded from defaults, an optional YAML file and the
    environment.

    CONFIGURATION FILE STRUCTURE
    ----------------------------
    server:               HTTP server settings (port, timeouts, TLS, CORS)
    redirect:             Development host used by misrouted callbacks
    recovery:             Tab-scoped recovery store (memory | redis)
    identity:             Hosted identity provider (Supabase)
    customers:            Customer source (http | sql), sql.migrate creates the table
    llm:                  Language model (groq | openai | gemini)
    webhook:              Campaign delivery endpoint
    campaign:             Send concurrency
    observability:        Metrics, tracing
    resilience:           Rate limiting, circuit breaker
    log:                  Logging configuration
    dev_mode:             Development mode settings

    CONFIGURATION SOURCES (in order of priority):

    1. COMMAND LINE FLAGS
       Highest priority. Override all other configuration.

    2. ENVIRONMENT VARIABLES
       Pattern: %s_<SECTION>_<KEY>
       Dotenv files are loaded first and never override the process
       environment.

       Examples:
         %s_SERVER_HTTP_PORT=8080
         %s_LOG_LEVEL=debug
         %s_RECOVERY_STORE=redis

    3. CONFIGURATION FILE (YAML)
       Optional. Built-in defaults apply when absent.

    SECRETS MANAGEMENT
    ------------------
    Use environment variables for secrets:
      SUPABASE_ANON_KEY      Identity project anon key
      SUPABASE_JWT_SECRET    Access token signing secret
      GROQ_API_KEY           Language model API key
      ENCRYPTION_KEY         Recovery store encryption key (32 bytes)
      REDIS_PASSWORD         Redis password
`, g.envVarPrefix, g.envVarPrefix, g.envVarPrefix, g.envVarPrefix)
}

// envVarsSection generates the environment variables section.
func (g *Generator) envVarsSection() string {
	return fmt.Sprintf(`    Pattern: %s_<SECTION>_<KEY>

    Notes:
    - All keys are converted to UPPER_SNAKE_CASE
    - Nested keys use underscore as separator
    - Boolean values: true, false, 1, 0
    - Duration values: 10s, 5m, 1h, 100ms

    KEY ENVIRONMENT VARIABLES:
    --------------------------

    [Identity]
      SUPABASE_URL               Project URL (also VITE_SUPABASE_URL)
      SUPABASE_ANON_KEY          Anon key (also VITE_SUPABASE_ANON_KEY)
      SUPABASE_JWT_SECRET        Enables local token verification

    [Campaigns]
      GROQ_API_KEY               Model API key (also VITE_GROQ_API_KEY, GEMINI_API_KEY)
      CUSTOMERS_URL              Customer list endpoint
      DATABASE_URL               PostgreSQL DSN for the sql source
      WEBHOOK_URL                Campaign delivery endpoint

    [Recovery]
      ENCRYPTION_KEY             AES-256 key sealing staged fragments
      REDIS_PASSWORD             Redis password

    [Server]
      HTTP_PORT, PORT            HTTP listen port

    [Logging]
      LOG_LEVEL                  Log level (debug, info, warn, error)
      DEV_MODE                   Enable development mode
`, g.envVarPrefix)
}

// recoverySection describes how misrouted sign-in callbacks are repaired.
func (g *Generator) recoverySection() string {
	return `    A provider configured with a development Site URL sends users back with
    the development host appended to the callback fragment. On page load the
    browser posts its location to /api/bootstrap and follows the decision:

      navigate             Leave for the corrected URL (fragment staged first)
      rewrite_in_place     Replace the fragment without reloading
      restore_staged       Put a staged fragment back after a lost hash
      no_action            Mount the application

    Staged fragments are kept per browser tab for recovery.ttl and can be
    sealed with recovery.encryption_key. Use recovery.store=redis when
    several instances serve the same users; outside dev mode the redis
    store requires an encryption key.
`
}

// endpointsSection lists the HTTP API.
func (g *Generator) endpointsSection() string {
	return `    POST /api/bootstrap           Redirect recovery decision
    GET  /login/{provider}        Start sign-in with a provider
    GET  /api/auth/config         Sign-in options
    GET  /api/session             Current user
    POST /api/logout              Sign out
    GET  /api/customers           Customer list
    POST /api/campaigns/rules     Segment rules from a description
    POST /api/campaigns/message   Subject and body for a campaign
    POST /api/campaigns/send      Deliver a campaign
    GET  /api/admin/warnings      Configuration warnings (admins)
`
}

// examplesSection generates the examples section.
func (g *Generator) examplesSection() string {
	return fmt.Sprintf(`    # Start from defaults and .env
    %s

    # Start with config file
    %s --config /etc/campaign-portal/config.yaml

    # Development mode
    %s --dev

    # Generate JSON schema
    %s --schema > config.schema.json

    # Generate an encryption key
    %s --generate-key

    # Environment variable overrides
    GROQ_API_KEY=gsk_example \
    LOG_LEVEL=debug \
    %s --config config.yaml

    # Docker
    docker run --env-file .env -p 8080:8080 %s:latest
`, g.appInfo.Name, g.appInfo.Name, g.appInfo.Name, g.appInfo.Name, g.appInfo.Name, g.appInfo.Name, g.appInfo.Name)
}
