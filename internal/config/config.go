package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete waypoint configuration
type Config struct {
	// Provider selects the model backend: "openai" or "gemini".
	Provider string         `yaml:"provider"`
	LogLevel string         `yaml:"log_level"`
	OpenAI   ProviderConfig `yaml:"openai"`
	Gemini   ProviderConfig `yaml:"gemini"`
	Agent    AgentConfig    `yaml:"agent"`
	Search   SearchConfig   `yaml:"search"`
	Email    EmailConfig    `yaml:"email"`
	Store    StoreConfig    `yaml:"store"`
	Server   ServerConfig   `yaml:"server"`
	Hooks    HooksConfig    `yaml:"hooks"`
	MCP      MCPConfig      `yaml:"mcp"`
	Watches  []WatchConfig  `yaml:"watches"`
}

// ProviderConfig holds credentials for a model provider
type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// SearchConfig holds credentials and endpoints for the upstream search APIs
type SearchConfig struct {
	SerpAPIKey string        `yaml:"serpapi_key"`
	SerpAPIURL string        `yaml:"serpapi_url"`
	Language   string        `yaml:"language"`
	Country    string        `yaml:"country"`
	SNCFKey    string        `yaml:"sncf_key"`
	SNCFURL    string        `yaml:"sncf_url"`
	AirbnbKey  string        `yaml:"airbnb_key"`
	AirbnbURL  string        `yaml:"airbnb_url"`
	Timeout    time.Duration `yaml:"timeout"`
}

// EmailConfig configures the summary email step
type EmailConfig struct {
	APIKey string `yaml:"api_key"`
	// Host overrides the SendGrid API host.
	Host        string  `yaml:"host"`
	From        string  `yaml:"from"`
	Subject     string  `yaml:"subject"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
}

// StoreConfig selects where session checkpoints live
type StoreConfig struct {
	Type string `yaml:"type"` // memory, sqlite or postgres
	DSN  string `yaml:"dsn"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// HooksConfig contains hook-related settings
type HooksConfig struct {
	// EmailConfirm asks for confirmation on the terminal before an email is sent
	EmailConfirm bool `yaml:"email_confirm"`
	// ToolConfirm enables user confirmation before specified tools
	ToolConfirm []string `yaml:"tool_confirm"`
}

// MCPConfig contains MCP-specific settings
type MCPConfig struct {
	Servers []MCPServerConfig `yaml:"servers"`
}

// MCPServerConfig defines a single MCP server
type MCPServerConfig struct {
	Name      string            `yaml:"name"`      // Unique server identifier
	Transport string            `yaml:"transport"` // "stdio" only
	Command   string            `yaml:"command"`   // Executable to run
	Args      []string          `yaml:"args"`      // Command arguments
	Env       map[string]string `yaml:"env"`       // Environment variables with ${VAR} support
	Disabled  bool              `yaml:"disabled"`  // Skip this server if true
}

// WatchConfig is a saved search run on a cron schedule
type WatchConfig struct {
	Name     string      `yaml:"name"`
	Schedule string      `yaml:"schedule"`
	Domain   string      `yaml:"domain"`
	Request  string      `yaml:"request"`
	Email    *WatchEmail `yaml:"email"`
}

// WatchEmail addresses the summary of a watch run
type WatchEmail struct {
	From    string `yaml:"from"`
	To      string `yaml:"to"`
	Subject string `yaml:"subject"`
}

// Default returns the configuration used when no file is found.
func Default() *Config {
	return &Config{
		Provider: "openai",
		LogLevel: "info",
		Agent:    DefaultAgentConfig(),
		Search: SearchConfig{
			SerpAPIURL: "https://serpapi.com/search.json",
			Language:   "fr",
			Country:    "fr",
			SNCFURL:    "https://api.sncf.com/v1/coverage/sncf/journeys",
			AirbnbURL:  "https://api.airbnb.com/v2/search_results",
			Timeout:    30 * time.Second,
		},
		Email: EmailConfig{
			Subject:     "Travel Information",
			Model:       "gpt-4o",
			Temperature: 0.1,
		},
		Store:  StoreConfig{Type: "memory"},
		Server: ServerConfig{Addr: ":8080"},
	}
}

// Load reads and parses the YAML config file on top of Default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML config contents after expanding environment variables.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal([]byte(ExpandEnv(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}

	cfg.applyEnvFallbacks()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// LoadWithDefaults loads config with fallback to default locations
// Checks: ./waypoint.yaml, ./configs/waypoint.yaml, ~/.config/waypoint/waypoint.yaml, /etc/waypoint/waypoint.yaml
func LoadWithDefaults() (*Config, error) {
	locations := []string{
		"./waypoint.yaml",
		"./configs/waypoint.yaml",
	}

	if home, err := os.UserHomeDir(); err == nil {
		locations = append(locations, filepath.Join(home, ".config", "waypoint", "waypoint.yaml"))
	}

	locations = append(locations, "/etc/waypoint/waypoint.yaml")

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return Load(loc)
		}
	}

	// No config found - defaults plus environment
	cfg := Default()
	cfg.applyEnvFallbacks()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// applyEnvFallbacks fills empty credentials from well-known environment variables.
func (c *Config) applyEnvFallbacks() {
	fallback := func(dst *string, key string) {
		if *dst == "" {
			*dst = os.Getenv(key)
		}
	}
	fallback(&c.OpenAI.APIKey, "OPENAI_API_KEY")
	fallback(&c.OpenAI.BaseURL, "OPENAI_API_BASE_URL")
	fallback(&c.Gemini.APIKey, "GEMINI_API_KEY")
	fallback(&c.Search.SerpAPIKey, "SERPAPI_API_KEY")
	fallback(&c.Search.SNCFKey, "SNCF_API_KEY")
	fallback(&c.Search.AirbnbKey, "AIRBNB_API_KEY")
	fallback(&c.Email.APIKey, "SENDGRID_API_KEY")
}

// Validate checks config correctness
func (c *Config) Validate() error {
	switch c.Provider {
	case "openai", "gemini":
	default:
		return fmt.Errorf("unsupported provider: %s", c.Provider)
	}

	if err := c.Agent.Validate(); err != nil {
		return fmt.Errorf("agent: %w", err)
	}

	if c.Email.Temperature < 0 || c.Email.Temperature > 2 {
		return fmt.Errorf("email: temperature %.2f out of range [0, 2]", c.Email.Temperature)
	}

	switch c.Store.Type {
	case "", "memory":
	case "sqlite", "postgres":
		if c.Store.DSN == "" {
			return fmt.Errorf("store: dsn is required for %s", c.Store.Type)
		}
	default:
		return fmt.Errorf("unsupported store type: %s", c.Store.Type)
	}

	names := make(map[string]bool)
	for i, server := range c.MCP.Servers {
		if server.Name == "" {
			return fmt.Errorf("server #%d: name cannot be empty", i+1)
		}
		if names[server.Name] {
			return fmt.Errorf("duplicate server name: %s", server.Name)
		}
		names[server.Name] = true

		if err := server.Validate(); err != nil {
			return fmt.Errorf("server %s: %w", server.Name, err)
		}
	}

	for i, w := range c.Watches {
		if err := w.Validate(); err != nil {
			return fmt.Errorf("watch #%d: %w", i+1, err)
		}
	}

	return nil
}

// Validate checks a single server config
func (s *MCPServerConfig) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	// Tool names are exposed as <server>_<tool> and must match ^[a-zA-Z0-9_-]+$
	for _, ch := range s.Name {
		if !((ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') || ch == '_' || ch == '-') {
			return fmt.Errorf("server name '%s' contains invalid character '%c' (only alphanumeric, underscore, and hyphen allowed)", s.Name, ch)
		}
	}

	if s.Transport == "" {
		return fmt.Errorf("transport is required")
	}

	if s.Transport != "stdio" {
		return fmt.Errorf("unsupported transport: %s (only 'stdio' is supported)", s.Transport)
	}

	if s.Command == "" {
		return fmt.Errorf("command is required")
	}

	return nil
}

// Validate checks a saved search definition
func (w *WatchConfig) Validate() error {
	if w.Name == "" {
		return errors.New("name is required")
	}
	if w.Schedule == "" {
		return fmt.Errorf("%s: schedule is required", w.Name)
	}
	if w.Request == "" {
		return fmt.Errorf("%s: request is required", w.Name)
	}
	switch w.Domain {
	case "travel", "jobs":
	default:
		return fmt.Errorf("%s: unknown domain %q", w.Name, w.Domain)
	}
	if w.Email != nil && w.Email.To == "" {
		return fmt.Errorf("%s: email.to is required when email is set", w.Name)
	}
	return nil
}
