package hooks

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	kindAction = "action"
	kindFilter = "filter"
)

// Registry holds two independent priority-ordered callback tables: actions
// and filters, keyed by event name. A zero Registry is not usable; construct
// with New. Registries are safe for concurrent use.
type Registry struct {
	logger   *slog.Logger
	observer Observer

	mu      sync.RWMutex
	actions map[string][]*Registration
	filters map[string][]*Registration
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the registry logger.
func WithLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger.With("component", "hooks")
		}
	}
}

// WithObserver sets the dispatch observer (metrics sink).
func WithObserver(o Observer) RegistryOption {
	return func(r *Registry) {
		r.observer = o
	}
}

// New creates an empty registry.
func New(opts ...RegistryOption) *Registry {
	r := &Registry{
		logger:  slog.Default().With("component", "hooks"),
		actions: make(map[string][]*Registration),
		filters: make(map[string][]*Registration),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AddAction registers an action callback for an event. Duplicate
// registrations of the same callback are allowed and independent.
// Returns the registration ID for later removal.
func (r *Registry) AddAction(event string, fn ActionFunc, opts ...Option) (string, error) {
	if fn == nil {
		return "", ErrNilCallback
	}
	reg := newRegistration(event, opts)
	reg.action = fn
	return r.add(r.actions, reg, kindAction)
}

// AddFilter registers a filter callback for an event.
func (r *Registry) AddFilter(event string, fn FilterFunc, opts ...Option) (string, error) {
	if fn == nil {
		return "", ErrNilCallback
	}
	reg := newRegistration(event, opts)
	reg.filter = fn
	return r.add(r.filters, reg, kindFilter)
}

func newRegistration(event string, opts []Option) *Registration {
	reg := &Registration{
		ID:       uuid.NewString(),
		Event:    event,
		Priority: DefaultPriority,
		Owner:    OwnerCore,
	}
	for _, opt := range opts {
		opt(reg)
	}
	return reg
}

func (r *Registry) add(table map[string][]*Registration, reg *Registration, kind string) (string, error) {
	if reg.Event == "" {
		return "", ErrEmptyEvent
	}

	r.mu.Lock()
	table[reg.Event] = append(table[reg.Event], reg)
	// Stable sort: equal priorities keep registration order.
	sort.SliceStable(table[reg.Event], func(i, j int) bool {
		return table[reg.Event][i].Priority < table[reg.Event][j].Priority
	})
	total := r.totalLocked()
	r.mu.Unlock()

	r.logger.Debug("registered hook",
		"kind", kind,
		"event", reg.Event,
		"id", reg.ID,
		"owner", reg.Owner,
		"priority", reg.Priority)
	r.registrationsChanged(total)

	return reg.ID, nil
}

// RemoveAction removes the action registration with the given ID. Removing
// an unknown ID is a silent no-op; the return value reports whether a
// registration was removed.
func (r *Registry) RemoveAction(event, id string) bool {
	return r.remove(r.actions, event, id, kindAction)
}

// RemoveFilter removes the filter registration with the given ID.
func (r *Registry) RemoveFilter(event, id string) bool {
	return r.remove(r.filters, event, id, kindFilter)
}

func (r *Registry) remove(table map[string][]*Registration, event, id, kind string) bool {
	r.mu.Lock()
	regs, ok := table[event]
	if !ok {
		r.mu.Unlock()
		return false
	}
	removed := false
	for i, reg := range regs {
		if reg.ID == id {
			table[event] = append(regs[:i], regs[i+1:]...)
			removed = true
			break
		}
	}
	if len(table[event]) == 0 {
		delete(table, event)
	}
	total := r.totalLocked()
	r.mu.Unlock()

	if removed {
		r.logger.Debug("removed hook", "kind", kind, "event", event, "id", id)
		r.registrationsChanged(total)
	}
	return removed
}

// RemoveOwner removes every action and filter registration attributed to
// the given owner, across all events. Returns the number removed.
func (r *Registry) RemoveOwner(owner string) int {
	r.mu.Lock()
	removed := removeOwnerLocked(r.actions, owner)
	removed += removeOwnerLocked(r.filters, owner)
	total := r.totalLocked()
	r.mu.Unlock()

	if removed > 0 {
		r.logger.Debug("removed hooks by owner", "owner", owner, "count", removed)
		r.registrationsChanged(total)
	}
	return removed
}

func removeOwnerLocked(table map[string][]*Registration, owner string) int {
	removed := 0
	for event, regs := range table {
		kept := regs[:0]
		for _, reg := range regs {
			if reg.Owner == owner {
				removed++
				continue
			}
			kept = append(kept, reg)
		}
		if len(kept) == 0 {
			delete(table, event)
		} else {
			table[event] = kept
		}
	}
	return removed
}

// DoAction invokes every action registered for the event in priority order
// with a background context. See DoActionContext.
func (r *Registry) DoAction(event string, args ...any) error {
	return r.DoActionContext(context.Background(), event, args...)
}

// DoActionContext invokes every action registered for the event, in
// ascending priority order (ties in registration order), passing args to
// each. Callback i completes before callback i+1 starts. A callback error
// (or recovered panic) aborts the remaining chain and propagates to the
// caller. An event with no registrations is a no-op.
//
// The set of callbacks to invoke is snapshotted when dispatch starts;
// registrations or removals made while the dispatch is in flight do not
// affect it.
func (r *Registry) DoActionContext(ctx context.Context, event string, args ...any) error {
	r.mu.RLock()
	regs := snapshotLocked(r.actions[event])
	r.mu.RUnlock()
	if len(regs) == 0 {
		return nil
	}

	start := time.Now()
	for _, reg := range regs {
		if err := callAction(ctx, reg, args); err != nil {
			r.logger.Warn("action hook failed",
				"event", event,
				"id", reg.ID,
				"owner", reg.Owner,
				"error", err)
			r.observeDispatch(event, kindAction, "error", time.Since(start))
			return fmt.Errorf("hooks: action %q (owner %s): %w", event, reg.Owner, err)
		}
	}
	r.observeDispatch(event, kindAction, "ok", time.Since(start))
	return nil
}

// ApplyFilters threads value through every filter registered for the event
// with a background context. See ApplyFiltersContext.
func (r *Registry) ApplyFilters(event string, value any, args ...any) (any, error) {
	return r.ApplyFiltersContext(context.Background(), event, value, args...)
}

// ApplyFiltersContext threads value through every filter registered for the
// event in ascending priority order; each filter receives the previous
// filter's output plus args. With no filters registered the input value is
// returned unchanged. A filter error (or recovered panic) aborts the chain
// and propagates; the partially filtered value is discarded.
//
// The filter set is snapshotted when dispatch starts, as for actions.
func (r *Registry) ApplyFiltersContext(ctx context.Context, event string, value any, args ...any) (any, error) {
	r.mu.RLock()
	regs := snapshotLocked(r.filters[event])
	r.mu.RUnlock()
	if len(regs) == 0 {
		return value, nil
	}

	start := time.Now()
	current := value
	for _, reg := range regs {
		next, err := callFilter(ctx, reg, current, args)
		if err != nil {
			r.logger.Warn("filter hook failed",
				"event", event,
				"id", reg.ID,
				"owner", reg.Owner,
				"error", err)
			r.observeDispatch(event, kindFilter, "error", time.Since(start))
			return nil, fmt.Errorf("hooks: filter %q (owner %s): %w", event, reg.Owner, err)
		}
		current = next
	}
	r.observeDispatch(event, kindFilter, "ok", time.Since(start))
	return current, nil
}

func snapshotLocked(regs []*Registration) []*Registration {
	if len(regs) == 0 {
		return nil
	}
	out := make([]*Registration, len(regs))
	copy(out, regs)
	return out
}

func callAction(ctx context.Context, reg *Registration, args []any) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return reg.action(ctx, args...)
}

func callFilter(ctx context.Context, reg *Registration, value any, args []any) (out any, err error) {
	defer func() {
		if p := recover(); p != nil {
			out = nil
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return reg.filter(ctx, value, args...)
}

// HasAction reports whether at least one action is registered for the event.
func (r *Registry) HasAction(event string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.actions[event]) > 0
}

// HasFilter reports whether at least one filter is registered for the event.
func (r *Registry) HasFilter(event string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.filters[event]) > 0
}

// ActionCount returns the number of actions registered for the event.
func (r *Registry) ActionCount(event string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.actions[event])
}

// FilterCount returns the number of filters registered for the event.
func (r *Registry) FilterCount(event string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.filters[event])
}

// OwnerCount returns the number of live registrations attributed to the
// given owner, across both tables.
func (r *Registry) OwnerCount(owner string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, regs := range r.actions {
		for _, reg := range regs {
			if reg.Owner == owner {
				count++
			}
		}
	}
	for _, regs := range r.filters {
		for _, reg := range regs {
			if reg.Owner == owner {
				count++
			}
		}
	}
	return count
}

// Events returns the sorted union of event names with at least one live
// registration in either table.
func (r *Registry) Events() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{}, len(r.actions)+len(r.filters))
	for event := range r.actions {
		seen[event] = struct{}{}
	}
	for event := range r.filters {
		seen[event] = struct{}{}
	}
	events := make([]string, 0, len(seen))
	for event := range seen {
		events = append(events, event)
	}
	sort.Strings(events)
	return events
}

func (r *Registry) totalLocked() int {
	total := 0
	for _, regs := range r.actions {
		total += len(regs)
	}
	for _, regs := range r.filters {
		total += len(regs)
	}
	return total
}

func (r *Registry) observeDispatch(event, kind, status string, elapsed time.Duration) {
	if r.observer != nil {
		r.observer.ObserveDispatch(event, kind, status, elapsed)
	}
}

func (r *Registry) registrationsChanged(total int) {
	if r.observer != nil {
		r.observer.RegistrationsChanged(total)
	}
}
