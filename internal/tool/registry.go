package tool

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"waypoint/internal/llm"
)

// ErrNotFound is returned by Get for unregistered tool names.
var ErrNotFound = errors.New("tool not found")

type Registry struct {
	tools map[string]Tool
	mu    sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

func (r *Registry) Register(tool Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := tool.Name()
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %s already registered", name)
	}

	r.tools[name] = tool
	return nil
}

// Unregister removes name. Unknown names are ignored.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, name)
}

// MustRegister registers tools and panics on duplicates. Meant for wiring code.
func (r *Registry) MustRegister(tools ...Tool) {
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			panic(err)
		}
	}
}

func (r *Registry) Get(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, exists := r.tools[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	return tool, nil
}

// List returns tools sorted by name so tool definitions are stable across calls.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		tools = append(tools, t)
	}
	sort.Slice(tools, func(i, j int) bool {
		return tools[i].Name() < tools[j].Name()
	})
	return tools
}

// Names returns the sorted tool names.
func (r *Registry) Names() []string {
	tools := r.List()
	names := make([]string, len(tools))
	for i, t := range tools {
		names[i] = t.Name()
	}
	return names
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Subset builds a new registry holding only the named tools. Every name must exist.
func (r *Registry) Subset(names ...string) (*Registry, error) {
	sub := NewRegistry()
	for _, name := range names {
		t, err := r.Get(name)
		if err != nil {
			return nil, err
		}
		if err := sub.Register(t); err != nil {
			return nil, err
		}
	}
	return sub, nil
}

// GetToolDefinitions returns the function definitions advertised to the model.
func (r *Registry) GetToolDefinitions() []*llm.ToolDefinition {
	tools := r.List()
	defs := make([]*llm.ToolDefinition, 0, len(tools))
	for _, t := range tools {
		defs = append(defs, llm.NewFunctionTool(t.Name(), t.Description(), t.Parameters()))
	}
	return defs
}

// GetToolBestPractices collects best practices from all registered tools
func (r *Registry) GetToolBestPractices() string {
	var practices []string
	for _, t := range r.List() {
		if bp := t.BestPractices(); bp != "" {
			practices = append(practices, bp)
		}
	}

	if len(practices) == 0 {
		return ""
	}

	return "# Tool Usage Best Practices\n\n" + strings.Join(practices, "\n\n")
}
