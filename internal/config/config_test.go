package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParse_DefaultsAndExpansion(t *testing.T) {
	t.Setenv("WAYPOINT_TEST_SERP", "serp-secret")

	cfg, err := Parse([]byte(`
provider: openai
agent:
  currency: USD
  max_hotels: 3
  preferences: [direct flights, 4 stars]
search:
  serpapi_key: ${WAYPOINT_TEST_SERP}
  timeout: 5s
`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if cfg.Search.SerpAPIKey != "serp-secret" {
		t.Errorf("expected expanded key, got %q", cfg.Search.SerpAPIKey)
	}
	if cfg.Search.Timeout != 5*time.Second {
		t.Errorf("expected 5s timeout, got %s", cfg.Search.Timeout)
	}
	if cfg.Agent.Currency != "USD" || cfg.Agent.MaxHotels != 3 {
		t.Errorf("expected overridden agent values, got %+v", cfg.Agent)
	}
	// untouched keys keep defaults
	if cfg.Agent.Model != "gpt-4o" || cfg.Agent.MaxFlights != 5 {
		t.Errorf("expected defaults to survive, got %+v", cfg.Agent)
	}
	if cfg.Search.SerpAPIURL != "https://serpapi.com/search.json" {
		t.Errorf("expected default SerpAPI URL, got %q", cfg.Search.SerpAPIURL)
	}
	if len(cfg.Agent.Preferences) != 2 {
		t.Errorf("expected 2 preferences, got %v", cfg.Agent.Preferences)
	}
}

func TestParse_EnvFallback(t *testing.T) {
	t.Setenv("SENDGRID_API_KEY", "sg-key")

	cfg, err := Parse([]byte("provider: openai\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.Email.APIKey != "sg-key" {
		t.Errorf("expected SendGrid key from environment, got %q", cfg.Email.APIKey)
	}
}

func TestParse_Invalid(t *testing.T) {
	cases := map[string]string{
		"provider":    "provider: anthropic\n",
		"temperature": "agent:\n  temperature: 3\n",
		"max_turns":   "agent:\n  max_turns: 0\n",
		"cap":         "agent:\n  max_hotels: -1\n",
		"remote":      "agent:\n  remote_options: [SOMETIMES]\n",
		"store":       "store:\n  type: redis\n",
		"store_dsn":   "store:\n  type: sqlite\n",
		"watch":       "watches:\n  - name: w\n    schedule: '@daily'\n    domain: cars\n    request: x\n",
		"mcp":         "mcp:\n  servers:\n    - name: bad name\n      transport: stdio\n      command: x\n",
	}
	for name, doc := range cases {
		if _, err := Parse([]byte(doc)); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "waypoint.yaml")
	content := `
provider: gemini
watches:
  - name: paris-weekend
    schedule: "0 8 * * MON"
    domain: travel
    request: Weekend in Paris next month
    email:
      to: me@example.com
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Provider != "gemini" {
		t.Errorf("expected gemini provider, got %s", cfg.Provider)
	}
	if len(cfg.Watches) != 1 || cfg.Watches[0].Email.To != "me@example.com" {
		t.Errorf("unexpected watches: %+v", cfg.Watches)
	}
}

func TestAgentConfig_MergeDoesNotMutate(t *testing.T) {
	base := DefaultAgentConfig()
	base.Preferences = []string{"window seat"}

	currency := "GBP"
	hotels := 2
	merged := base.Merge(&Overrides{
		Currency:    &currency,
		MaxHotels:   &hotels,
		Preferences: []string{"aisle seat"},
	})

	if merged.Currency != "GBP" || merged.MaxHotels != 2 {
		t.Errorf("overrides not applied: %+v", merged)
	}
	if base.Currency != "EUR" || base.MaxHotels != 5 {
		t.Errorf("base mutated: %+v", base)
	}
	if base.Preferences[0] != "window seat" {
		t.Errorf("base preferences mutated: %v", base.Preferences)
	}

	merged.Preferences[0] = "changed"
	if base.Preferences[0] != "window seat" {
		t.Error("merged config shares preference storage with base")
	}
}

func TestAgentConfig_MergeTrainsTokensContract(t *testing.T) {
	base := DefaultAgentConfig()

	trains, tokens, contract := 3, 800, "CDI"
	merged := base.Merge(&Overrides{MaxTrains: &trains, MaxTokens: &tokens, ContractType: &contract})

	if merged.MaxTrains != 3 || merged.MaxTokens != 800 || merged.ContractType != "CDI" {
		t.Errorf("overrides not applied: %+v", merged)
	}
	if base.MaxTrains != 10 || base.MaxTokens != 0 || base.ContractType != "Prestataire" {
		t.Errorf("base mutated: %+v", base)
	}

	negative := -1
	if err := base.Merge(&Overrides{MaxTokens: &negative}).Validate(); err == nil {
		t.Error("expected negative max_tokens to be rejected")
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("WAYPOINT_TOKEN", "abc")
	got := ExpandEnv("Bearer ${WAYPOINT_TOKEN} and $WAYPOINT_TOKEN")
	if got != "Bearer abc and abc" {
		t.Errorf("unexpected expansion: %q", got)
	}
}

func TestLoadDotenv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("WAYPOINT_DOTENV_PROBE=loaded\n"), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("WAYPOINT_DOTENV_PROBE") })

	if err := LoadDotenv(path, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("LoadDotenv failed: %v", err)
	}
	if v := os.Getenv("WAYPOINT_DOTENV_PROBE"); v != "loaded" {
		t.Errorf("expected variable from .env, got %q", v)
	}
}

func TestWatchConfig_EmailRequiresRecipient(t *testing.T) {
	w := WatchConfig{Name: "w", Schedule: "@daily", Domain: "jobs", Request: "go jobs", Email: &WatchEmail{}}
	err := w.Validate()
	if err == nil || !strings.Contains(err.Error(), "email.to") {
		t.Errorf("expected email.to error, got %v", err)
	}
}
