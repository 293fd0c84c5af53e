package help

import (
	"strings"
	"testing"
)

func newTestGenerator() *Generator {
	return NewGenerator(AppInfo{
		Name:        "campaign-portal",
		Description: "Marketing campaign portal",
		Version:     "1.2.3",
		BuildTime:   "2026-03-01T10:30:00Z",
		DocsURL:     "https://docs.example.com",
	}, "CAMPAIGN_PORTAL")
}

func assertContainsAll(t *testing.T, what, output string, want []string) {
	t.Helper()
	for _, s := range want {
		if !strings.Contains(output, s) {
			t.Errorf("%s should contain %q", what, s)
		}
	}
}

func TestNewGenerator(t *testing.T) {
	g := NewGenerator(AppInfo{Name: "test-app"}, "TEST_PREFIX")

	if g == nil {
		t.Fatal("NewGenerator returned nil")
	}
	if g.appInfo.Name != "test-app" {
		t.Errorf("appInfo.Name = %s, want test-app", g.appInfo.Name)
	}
	if g.envVarPrefix != "TEST_PREFIX" {
		t.Errorf("envVarPrefix = %s, want TEST_PREFIX", g.envVarPrefix)
	}
}

func TestGenerator_PrintVersion(t *testing.T) {
	output := newTestGenerator().PrintVersion()

	assertContainsAll(t, "PrintVersion", output, []string{
		"campaign-portal 1.2.3",
		"Build time: 2026-03-01T10:30:00Z",
	})
}

func TestGenerator_PrintUsage(t *testing.T) {
	output := newTestGenerator().PrintUsage()

	assertContainsAll(t, "PrintUsage", output, []string{
		"Usage: campaign-portal [OPTIONS]",
		"Marketing campaign portal",
		"--help",
	})
}

func TestGenerator_PrintExtendedHelp(t *testing.T) {
	output := newTestGenerator().PrintExtendedHelp()

	tests := []struct {
		name string
		want []string
	}{
		{
			name: "sections",
			want: []string{
				"DESCRIPTION", "USAGE", "OPTIONS", "CONFIGURATION", "ENVIRONMENT VARIABLES",
				"REDIRECT RECOVERY", "API ENDPOINTS", "EXAMPLES", "HEALTH ENDPOINTS", "VERSION", "DOCUMENTATION",
			},
		},
		{
			name: "options",
			want: []string{
				"--config", "--env-file", "--dev", "--version", "--help",
				"--schema", "--schema-output", "--generate-key",
			},
		},
		{
			name: "environment variables",
			want: []string{
				"SUPABASE_URL", "SUPABASE_ANON_KEY", "SUPABASE_JWT_SECRET", "GROQ_API_KEY",
				"CUSTOMERS_URL", "DATABASE_URL", "WEBHOOK_URL", "ENCRYPTION_KEY",
				"REDIS_PASSWORD", "HTTP_PORT", "LOG_LEVEL", "DEV_MODE",
			},
		},
		{
			name: "decisions",
			want: []string{"navigate", "rewrite_in_place", "restore_staged", "no_action"},
		},
		{
			name: "endpoints",
			want: []string{
				"/api/bootstrap", "/login/{provider}", "/api/session", "/api/customers",
				"/api/campaigns/rules", "/api/campaigns/message", "/api/campaigns/send",
				"/health", "/ready", "/metrics",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertContainsAll(t, "PrintExtendedHelp", output, tt.want)
		})
	}
}

func TestGenerator_PrintExtendedHelp_NoDocsURL(t *testing.T) {
	g := NewGenerator(AppInfo{Name: "campaign-portal", Description: "desc"}, "CAMPAIGN_PORTAL")

	if strings.Contains(g.PrintExtendedHelp(), "DOCUMENTATION\n") {
		t.Error("PrintExtendedHelp should not include DOCUMENTATION section when DocsURL is empty")
	}
}

func TestGenerator_Header(t *testing.T) {
	output := newTestGenerator().header()

	assertContainsAll(t, "header", output, []string{"+", "-", "|", "CAMPAIGN-PORTAL", "Marketing campaign portal"})

	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		if len(line) != 80 {
			t.Errorf("header line %q has width %d, want 80", line, len(line))
		}
	}
}

func TestGenerator_Header_LongDescription(t *testing.T) {
	g := NewGenerator(AppInfo{
		Name:        "app",
		Description: strings.Repeat("A very long description that exceeds the width of the box", 3),
	}, "PREFIX")

	if !strings.Contains(g.header(), "...") {
		t.Error("header should truncate long descriptions with ...")
	}
}

func TestGenerator_Separator(t *testing.T) {
	sep := newTestGenerator().separator()

	if !strings.HasPrefix(sep, strings.Repeat("-", 80)) {
		t.Error("separator should start with 80 dashes")
	}
}

func TestGenerator_ConfigSection(t *testing.T) {
	g := NewGenerator(AppInfo{Name: "app"}, "MY_APP")
	output := g.configSection()

	assertContainsAll(t, "configSection", output, []string{
		"server:", "redirect:", "recovery:", "identity:", "customers:", "llm:",
		"webhook:", "campaign:", "observability:", "resilience:", "log:", "dev_mode:",
		"MY_APP_RECOVERY_STORE",
	})
}

func TestGenerator_EnvVarsSection(t *testing.T) {
	g := NewGenerator(AppInfo{Name: "app"}, "MY_APP")
	output := g.envVarsSection()

	assertContainsAll(t, "envVarsSection", output, []string{
		"MY_APP_", "UPPER_SNAKE_CASE", "underscore", "Boolean", "Duration",
		"VITE_SUPABASE_URL", "VITE_GROQ_API_KEY",
	})
}

func TestGenerator_ExamplesSection(t *testing.T) {
	g := NewGenerator(AppInfo{Name: "my-app"}, "PREFIX")
	output := g.examplesSection()

	if strings.Count(output, "my-app") < 5 {
		t.Error("examplesSection should use app name in multiple examples")
	}
	assertContainsAll(t, "examplesSection", output, []string{"--config", "--dev", "--schema", "--generate-key", "docker run"})
}

func BenchmarkPrintExtendedHelp(b *testing.B) {
	g := newTestGenerator()

	for i := 0; i < b.N; i++ {
		_ = g.PrintExtendedHelp()
	}
}
