// Package hooks provides the action/filter extension registry at the heart
// of the CMS. Core code and plugins register callbacks against named events;
// extension points dispatch actions (fire-and-observe notifications) or
// apply filters (value-transforming pipelines) in priority order.
package hooks

import (
	"context"
	"errors"
	"time"
)

// Action event names fired by core extension points.
const (
	EventPostCreated       = "post.created"
	EventPostUpdated       = "post.updated"
	EventPostDeleted       = "post.deleted"
	EventSettingsUpdated   = "settings.updated"
	EventPluginActivated   = "plugin.activated"
	EventPluginDeactivated = "plugin.deactivated"
	EventStartup           = "cms.startup"
	EventShutdown          = "cms.shutdown"
)

// Filter event names applied by core extension points.
const (
	FilterContentRender  = "content.render"
	FilterContentExcerpt = "content.excerpt"
	FilterAdminMenu      = "admin.menu"
	FilterDocumentTitle  = "document.title"
)

// DefaultPriority is used when a registration does not specify one.
// Lower priorities run earlier.
const DefaultPriority = 10

// OwnerCore attributes a registration to the CMS itself rather than a plugin.
const OwnerCore = "core"

var (
	// ErrEmptyEvent is returned when registering against an empty event name.
	ErrEmptyEvent = errors.New("hooks: event name is empty")

	// ErrNilCallback is returned when registering a nil callback.
	ErrNilCallback = errors.New("hooks: callback is nil")
)

// ActionFunc observes an event. Errors abort the remaining dispatch chain
// and propagate to the dispatching call site.
type ActionFunc func(ctx context.Context, args ...any) error

// FilterFunc transforms a value. It receives the current pipeline value and
// returns the value handed to the next filter (or to the caller, for the
// last filter in the chain).
type FilterFunc func(ctx context.Context, value any, args ...any) (any, error)

// Registration is one registered callback. Registrations are immutable once
// inserted; changing priority or callback means remove and re-add.
type Registration struct {
	// ID uniquely identifies this registration for removal.
	ID string

	// Event is the event name the callback listens for.
	Event string

	// Priority determines call order; lower values run earlier. Equal
	// priorities run in registration order.
	Priority int

	// Owner identifies who registered the callback (plugin ID or "core").
	Owner string

	// Name is an optional human-readable label for inspection.
	Name string

	action ActionFunc
	filter FilterFunc
}

// Option configures a registration.
type Option func(*Registration)

// WithPriority sets the registration priority. Lower runs earlier.
func WithPriority(p int) Option {
	return func(r *Registration) {
		r.Priority = p
	}
}

// WithOwner attributes the registration to a plugin or subsystem.
func WithOwner(owner string) Option {
	return func(r *Registration) {
		if owner != "" {
			r.Owner = owner
		}
	}
}

// WithName sets a human-readable label for inspection and logging.
func WithName(name string) Option {
	return func(r *Registration) {
		r.Name = name
	}
}

// Observer receives dispatch outcomes, typically for metrics. Implementations
// must be safe for concurrent use.
type Observer interface {
	ObserveDispatch(event, kind, status string, elapsed time.Duration)
	RegistrationsChanged(total int)
}
