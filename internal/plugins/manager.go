package plugins

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/embercms/ember/internal/hooks"
)

// TransitionObserver receives plugin lifecycle transition outcomes,
// typically for metrics. Implementations must be safe for concurrent use.
type TransitionObserver interface {
	PluginTransition(plugin, transition string, err error)
}

// Manager tracks registered plugins and drives their lifecycle against the
// hook registry. Safe for concurrent use.
type Manager struct {
	registry *hooks.Registry
	logger   *slog.Logger
	observer TransitionObserver

	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	plugin Plugin
	state  State
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithManagerLogger sets the manager logger.
func WithManagerLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger.With("component", "plugins")
		}
	}
}

// WithTransitionObserver sets the lifecycle observer (metrics sink).
func WithTransitionObserver(o TransitionObserver) ManagerOption {
	return func(m *Manager) {
		m.observer = o
	}
}

// NewManager creates a manager bound to a hook registry.
func NewManager(registry *hooks.Registry, opts ...ManagerOption) *Manager {
	m := &Manager{
		registry: registry,
		logger:   slog.Default().With("component", "plugins"),
		entries:  make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Register makes a plugin known to the manager without activating it.
// The plugin's manifest must validate and its ID must be unused.
func (m *Manager) Register(p Plugin) error {
	manifest := p.Manifest()
	if err := manifest.Validate(); err != nil {
		return fmt.Errorf("plugins: register: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[manifest.ID]; exists {
		return fmt.Errorf("plugins: %q is already registered", manifest.ID)
	}
	m.entries[manifest.ID] = &entry{plugin: p, state: StateInactive}
	m.logger.Debug("registered plugin", "plugin", manifest.ID, "version", manifest.Version)
	return nil
}

// Activate transitions a plugin to active, handing it an owner-scoped hook
// binding. If the plugin's Activate fails, every registration it made
// before failing is rolled back and the plugin stays inactive.
func (m *Manager) Activate(ctx context.Context, id string) error {
	m.mu.Lock()
	e, ok := m.entries[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("plugins: unknown plugin %q", id)
	}
	if e.state == StateActive {
		m.mu.Unlock()
		return fmt.Errorf("plugins: %q is already active", id)
	}
	// Claim the active state before calling out so a concurrent Activate
	// for the same plugin fails fast instead of double-activating.
	e.state = StateActive
	m.mu.Unlock()

	binding := NewHookBinding(m.registry, id)
	err := e.plugin.Activate(ctx, binding)
	m.observeTransition(id, "activate", err)
	if err != nil {
		// Roll back whatever the plugin managed to register.
		m.registry.RemoveOwner(id)
		m.mu.Lock()
		e.state = StateInactive
		m.mu.Unlock()
		return fmt.Errorf("plugins: activate %q: %w", id, err)
	}

	m.logger.Info("activated plugin", "plugin", id, "hooks", m.registry.OwnerCount(id))
	if derr := m.registry.DoActionContext(ctx, hooks.EventPluginActivated, id); derr != nil {
		m.logger.Warn("plugin.activated dispatch failed", "plugin", id, "error", derr)
	}
	return nil
}

// Deactivate transitions a plugin to inactive. The plugin's registrations
// are removed from the registry even when its own Deactivate errors; the
// error is still returned.
func (m *Manager) Deactivate(ctx context.Context, id string) error {
	m.mu.Lock()
	e, ok := m.entries[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("plugins: unknown plugin %q", id)
	}
	if e.state != StateActive {
		m.mu.Unlock()
		return fmt.Errorf("plugins: %q is not active", id)
	}
	e.state = StateInactive
	m.mu.Unlock()

	err := e.plugin.Deactivate(ctx)
	removed := m.registry.RemoveOwner(id)
	m.observeTransition(id, "deactivate", err)

	m.logger.Info("deactivated plugin", "plugin", id, "hooks_removed", removed)
	if derr := m.registry.DoActionContext(ctx, hooks.EventPluginDeactivated, id); derr != nil {
		m.logger.Warn("plugin.deactivated dispatch failed", "plugin", id, "error", derr)
	}

	if err != nil {
		return fmt.Errorf("plugins: deactivate %q: %w", id, err)
	}
	return nil
}

// Statuses returns the state of every managed plugin, sorted by ID.
func (m *Manager) Statuses() []Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Status, 0, len(m.entries))
	for id, e := range m.entries {
		manifest := e.plugin.Manifest()
		out = append(out, Status{
			ID:      id,
			Name:    manifest.Name,
			Version: manifest.Version,
			State:   e.state,
			Hooks:   m.registry.OwnerCount(id),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Active returns the IDs of active plugins, sorted.
func (m *Manager) Active() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []string
	for id, e := range m.entries {
		if e.state == StateActive {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

func (m *Manager) observeTransition(plugin, transition string, err error) {
	if m.observer != nil {
		m.observer.PluginTransition(plugin, transition, err)
	}
}
