// Package plugins manages plugin lifecycle and binds plugin hook
// registrations to their owner, so deactivating a plugin removes every
// callback it registered. Loading plugin code from the filesystem is the
// host's concern; plugins arrive here as constructed values.
package plugins

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Plugin is the contract a plugin implements. Activate receives a
// HookBinding scoped to the plugin's ID; every action and filter the plugin
// registers through it is attributed to the plugin and removed in bulk on
// deactivation.
type Plugin interface {
	Manifest() Manifest
	Activate(ctx context.Context, hooks *HookBinding) error
	Deactivate(ctx context.Context) error
}

// Manifest describes a plugin.
type Manifest struct {
	ID          string `json:"id"`
	Name        string `json:"name,omitempty"`
	Version     string `json:"version,omitempty"`
	Description string `json:"description,omitempty"`
	Author      string `json:"author,omitempty"`
}

// DecodeManifest parses a JSON manifest.
func DecodeManifest(data []byte) (*Manifest, error) {
	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	return &manifest, nil
}

// Validate checks the manifest for required fields.
func (m *Manifest) Validate() error {
	if m == nil {
		return fmt.Errorf("manifest is nil")
	}
	if strings.TrimSpace(m.ID) == "" {
		return fmt.Errorf("manifest id is required")
	}
	return nil
}

// State is a plugin's lifecycle state.
type State string

const (
	StateInactive State = "inactive"
	StateActive   State = "active"
)

// Status is the serializable view of one managed plugin.
type Status struct {
	ID      string `json:"id"`
	Name    string `json:"name,omitempty"`
	Version string `json:"version,omitempty"`
	State   State  `json:"state"`

	// Hooks is the number of live registrations attributed to the plugin.
	Hooks int `json:"hooks"`
}
