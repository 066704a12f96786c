package plugins

import (
	"github.com/embercms/ember/internal/hooks"
)

// HookBinding is a registration handle scoped to one plugin. It stamps the
// plugin's ID as the owner of every registration made through it, which is
// what lets the manager remove them all on deactivation.
type HookBinding struct {
	owner    string
	registry *hooks.Registry
}

// NewHookBinding creates a binding for the given owner. The manager creates
// one per activation; tests may construct their own.
func NewHookBinding(registry *hooks.Registry, owner string) *HookBinding {
	return &HookBinding{owner: owner, registry: registry}
}

// Owner returns the plugin ID the binding attributes registrations to.
func (b *HookBinding) Owner() string {
	return b.owner
}

// AddAction registers an action owned by the plugin. A caller-supplied
// WithOwner option is overridden.
func (b *HookBinding) AddAction(event string, fn hooks.ActionFunc, opts ...hooks.Option) (string, error) {
	return b.registry.AddAction(event, fn, append(opts, hooks.WithOwner(b.owner))...)
}

// AddFilter registers a filter owned by the plugin.
func (b *HookBinding) AddFilter(event string, fn hooks.FilterFunc, opts ...hooks.Option) (string, error) {
	return b.registry.AddFilter(event, fn, append(opts, hooks.WithOwner(b.owner))...)
}

// RemoveAction removes one of the plugin's own action registrations by ID.
func (b *HookBinding) RemoveAction(event, id string) bool {
	return b.registry.RemoveAction(event, id)
}

// RemoveFilter removes one of the plugin's own filter registrations by ID.
func (b *HookBinding) RemoveFilter(event, id string) bool {
	return b.registry.RemoveFilter(event, id)
}
