package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"waypoint/internal/agent"
	"waypoint/internal/cli"
	"waypoint/internal/config"
	"waypoint/internal/email"
	"waypoint/internal/hook"
	"waypoint/internal/hook/handlers"
	"waypoint/internal/llm"
	"waypoint/internal/llm/gemini"
	"waypoint/internal/llm/openai"
	"waypoint/internal/logger"
	"waypoint/internal/mcp"
	"waypoint/internal/search"
	"waypoint/internal/session"
	"waypoint/internal/tool"
	"waypoint/internal/tool/finder"
)

// appOptions selects the parts of the wiring that differ per command.
type appOptions struct {
	// logOut receives log output. The mcp command keeps stdout for the protocol.
	logOut io.Writer
	// interactive registers the terminal confirmation hooks.
	interactive bool
	// skipEmailConfirm disables the email confirmation even when configured.
	skipEmailConfirm bool
	// mountMCP connects the configured external MCP servers.
	mountMCP bool
}

type app struct {
	cfg      *config.Config
	log      *logger.Logger
	registry *tool.Registry
	agent    *agent.Agent
	store    session.Store
	mcp      *mcp.Manager
}

func loadConfig() (*config.Config, error) {
	if err := config.LoadDotenv(); err != nil {
		return nil, err
	}

	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.Load(configPath)
	} else {
		cfg, err = config.LoadWithDefaults()
	}
	if err != nil {
		return nil, err
	}

	if provider != "" {
		cfg.Provider = provider
	}
	if model != "" {
		cfg.Agent.Model = model
	}
	if temperature >= 0 {
		cfg.Agent.Temperature = temperature
	}
	if maxTurns > 0 {
		cfg.Agent.MaxTurns = maxTurns
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config, out io.Writer) *logger.Logger {
	level := logger.ParseLevel(cfg.LogLevel)
	if verbose {
		level = logger.LevelDebug
	}
	log := logger.NewLogger(out, level)
	if noColor {
		log.SetColorMode(false)
	}
	return log
}

func newLLMClient(ctx context.Context, cfg *config.Config) (llm.Client, error) {
	switch cfg.Provider {
	case "", "openai":
		if cfg.OpenAI.APIKey == "" {
			return nil, errors.New("OpenAI API key required (set OPENAI_API_KEY or openai.api_key)")
		}
		return openai.NewClient(cfg.OpenAI.APIKey, cfg.Agent.Model, cfg.OpenAI.BaseURL), nil
	case "gemini":
		if cfg.Gemini.APIKey == "" {
			return nil, errors.New("Gemini API key required (set GEMINI_API_KEY or gemini.api_key)")
		}
		return gemini.NewClient(ctx, cfg.Gemini.APIKey, cfg.Agent.Model, cfg.Gemini.BaseURL)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}
}

func searchClients(cfg config.SearchConfig) finder.Clients {
	return finder.Clients{
		SerpAPI: search.NewSerpAPI(search.SerpAPIOptions{
			APIKey:   cfg.SerpAPIKey,
			BaseURL:  cfg.SerpAPIURL,
			Language: cfg.Language,
			Country:  cfg.Country,
			Timeout:  cfg.Timeout,
		}),
		SNCF: search.NewSNCF(search.SNCFOptions{
			APIKey:  cfg.SNCFKey,
			BaseURL: cfg.SNCFURL,
			Timeout: cfg.Timeout,
		}),
		Airbnb: search.NewAirbnb(search.AirbnbOptions{
			APIKey:  cfg.AirbnbKey,
			BaseURL: cfg.AirbnbURL,
			Timeout: cfg.Timeout,
		}),
	}
}

// newRegistry registers the finders only. Used directly by the mcp command.
func newRegistry(cfg *config.Config) (*tool.Registry, error) {
	registry := tool.NewRegistry()
	if err := finder.Register(registry, searchClients(cfg.Search)); err != nil {
		return nil, err
	}
	return registry, nil
}

func newApp(ctx context.Context, opts appOptions) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if opts.logOut == nil {
		opts.logOut = os.Stdout
	}
	log := newLogger(cfg, opts.logOut)

	client, err := newLLMClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	registry, err := newRegistry(cfg)
	if err != nil {
		return nil, err
	}
	log.Debug("Registered %d tools: %v", registry.Len(), registry.Names())

	a := &app{cfg: cfg, log: log, registry: registry}

	domains := agent.Domains()
	if opts.mountMCP && len(cfg.MCP.Servers) > 0 {
		a.mcp = mcp.NewManager(registry, log)
		if err := a.mcp.Mount(ctx, cfg.MCP); err != nil {
			log.Warn("%v", err)
		}
		if names := a.mcp.ToolNames(); len(names) > 0 {
			domains[0] = domains[0].WithTools(names...)
		}
	}

	hooks := hook.NewManager()
	if opts.interactive {
		if cfg.Hooks.EmailConfirm && !opts.skipEmailConfirm {
			hooks.Register(handlers.NewEmailConfirmHandler())
		}
		if len(cfg.Hooks.ToolConfirm) > 0 {
			hooks.Register(handlers.NewToolConfirmHandler(cfg.Hooks.ToolConfirm...))
		}
	}

	var mailer *email.Service
	if cfg.Email.APIKey != "" {
		emailModel := cfg.Email.Model
		if emailModel == "" {
			emailModel = cfg.Agent.Model
		}
		mailer = email.NewService(
			email.NewFormatter(client, emailModel, cfg.Email.Temperature),
			email.NewSendGridSender(cfg.Email.APIKey, cfg.Email.Host),
			cfg.Email.From,
			cfg.Email.Subject,
		)
		mailer.SetHookManager(hooks)
	} else {
		log.Debug("Email step disabled: no SendGrid API key configured")
	}

	store, err := session.NewStore(cfg.Store)
	if err != nil {
		a.close()
		return nil, err
	}
	a.store = store

	a.agent, err = agent.New(agent.Options{
		Client:   client,
		Registry: registry,
		Store:    store,
		Email:    mailer,
		Hooks:    hooks,
		Logger:   log,
		Config:   cfg.Agent,
		Domains:  domains,
	})
	if err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) close() {
	if a.mcp != nil {
		if err := a.mcp.Close(); err != nil {
			a.log.Warn("Closing MCP servers: %v", err)
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("Closing session store: %v", err)
		}
	}
}

func newRenderer(cmd *cobra.Command) *cli.Renderer {
	w := cli.NewWriter(cmd.OutOrStdout())
	w.SetColorMode(!noColor)
	return cli.NewRenderer(w)
}
