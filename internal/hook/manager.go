package hook

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Manager dispatches hook points to registered handlers, highest priority first.
type Manager struct {
	handlers map[HookPoint][]Handler
	mu       sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		handlers: make(map[HookPoint][]Handler),
	}
}

// Register subscribes handler to each of its points.
func (m *Manager) Register(handler Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, point := range handler.Points() {
		hs := append(m.handlers[point], handler)
		sort.SliceStable(hs, func(i, j int) bool {
			return hs[i].Priority() > hs[j].Priority()
		})
		m.handlers[point] = hs
	}
}

// Trigger runs the handlers of data.Point in priority order. The first denial wins.
// A nil manager allows everything.
func (m *Manager) Trigger(ctx context.Context, data *HookData) (*Feedback, error) {
	if m == nil {
		return AllowFeedback(), nil
	}

	m.mu.RLock()
	handlers := m.handlers[data.Point]
	m.mu.RUnlock()

	for _, handler := range handlers {
		feedback, err := handler.Handle(ctx, data)
		if err != nil {
			return nil, fmt.Errorf("hook %s: %w", handler.Name(), err)
		}
		if feedback != nil && !feedback.Allow {
			return feedback, nil
		}
	}

	return AllowFeedback(), nil
}

// HasHandlers reports whether anything listens on point. Callers use it to
// skip building hook data.
func (m *Manager) HasHandlers(point HookPoint) bool {
	if m == nil {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.handlers[point]) > 0
}
