package mcp

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"waypoint/internal/config"
	"waypoint/internal/logger"
	"waypoint/internal/tool"
)

type dialFunc func(ctx context.Context, cfg config.MCPServerConfig) (*Client, error)

// Manager owns the connections to external MCP servers and the tools they
// contributed to the registry.
type Manager struct {
	registry *tool.Registry
	log      *logger.Logger
	dial     dialFunc

	mu      sync.RWMutex
	clients map[string]*Client
	tools   []string
}

func NewManager(registry *tool.Registry, log *logger.Logger) *Manager {
	if log == nil {
		log = logger.Discard()
	}
	return &Manager{
		registry: registry,
		log:      log,
		dial:     dialConfig,
		clients:  make(map[string]*Client),
	}
}

func dialConfig(ctx context.Context, cfg config.MCPServerConfig) (*Client, error) {
	return Dial(ctx, cfg.Name, cfg.Command, cfg.Args, config.ExpandEnvMap(cfg.Env))
}

// Mount connects to every enabled server concurrently and registers their
// tools. It fails only when every server failed; partial failures are logged.
func (m *Manager) Mount(ctx context.Context, cfg config.MCPConfig) error {
	var enabled []config.MCPServerConfig
	for _, s := range cfg.Servers {
		if !s.Disabled {
			enabled = append(enabled, s)
		}
	}
	if len(enabled) == 0 {
		return nil
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, s := range enabled {
		wg.Add(1)
		go func(s config.MCPServerConfig) {
			defer wg.Done()
			if err := m.mountServer(ctx, s); err != nil {
				m.log.Warn("MCP server %s unavailable: %v", s.Name, err)
				mu.Lock()
				errs = append(errs, fmt.Errorf("server %s: %w", s.Name, err))
				mu.Unlock()
			}
		}(s)
	}
	wg.Wait()

	if len(errs) == len(enabled) {
		return fmt.Errorf("all MCP servers failed to start: %w", errors.Join(errs...))
	}
	return nil
}

func (m *Manager) mountServer(ctx context.Context, cfg config.MCPServerConfig) error {
	client, err := m.dial(ctx, cfg)
	if err != nil {
		return err
	}
	return m.add(client)
}

func (m *Manager) add(client *Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.clients[client.Name()]; ok {
		client.Close()
		return fmt.Errorf("duplicate server name: %s", client.Name())
	}

	var names []string
	for _, remote := range client.Tools() {
		t := NewRemoteTool(client, remote)
		if err := m.registry.Register(t); err != nil {
			for _, name := range names {
				m.registry.Unregister(name)
			}
			client.Close()
			return fmt.Errorf("failed to register tool %s: %w", t.Name(), err)
		}
		names = append(names, t.Name())
	}

	m.clients[client.Name()] = client
	m.tools = append(m.tools, names...)
	m.log.Info("🔌 MCP server %s mounted (%d tools)", client.Name(), len(names))
	return nil
}

// ToolNames returns the registry names of every mounted remote tool.
func (m *Manager) ToolNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := append([]string(nil), m.tools...)
	sort.Strings(out)
	return out
}

// Servers returns the connected server names.
func (m *Manager) Servers() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.clients))
	for name := range m.clients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close disconnects every server.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for name, c := range m.clients {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("server %s: %w", name, err))
		}
	}
	m.clients = make(map[string]*Client)
	return errors.Join(errs...)
}
