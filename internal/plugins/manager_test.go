package plugins

import (
	"context"
	"errors"
	"testing"

	"github.com/embercms/ember/internal/hooks"
)

// fakePlugin is a scriptable Plugin for tests.
type fakePlugin struct {
	manifest     Manifest
	onActivate   func(ctx context.Context, b *HookBinding) error
	onDeactivate func(ctx context.Context) error
}

func (p *fakePlugin) Manifest() Manifest { return p.manifest }

func (p *fakePlugin) Activate(ctx context.Context, b *HookBinding) error {
	if p.onActivate != nil {
		return p.onActivate(ctx, b)
	}
	return nil
}

func (p *fakePlugin) Deactivate(ctx context.Context) error {
	if p.onDeactivate != nil {
		return p.onDeactivate(ctx)
	}
	return nil
}

func noopAction(ctx context.Context, args ...any) error { return nil }

func identityFilter(ctx context.Context, v any, args ...any) (any, error) { return v, nil }

func TestRegisterValidation(t *testing.T) {
	m := NewManager(hooks.New())

	if err := m.Register(&fakePlugin{}); err == nil {
		t.Error("expected error for empty manifest ID")
	}

	p := &fakePlugin{manifest: Manifest{ID: "seo"}}
	if err := m.Register(p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.Register(p); err == nil {
		t.Error("expected error for duplicate registration")
	}
}

func TestActivateBindsOwner(t *testing.T) {
	registry := hooks.New()
	m := NewManager(registry)

	p := &fakePlugin{
		manifest: Manifest{ID: "seo", Name: "SEO Tools", Version: "1.2.0"},
		onActivate: func(ctx context.Context, b *HookBinding) error {
			if _, err := b.AddAction(hooks.EventPostCreated, noopAction); err != nil {
				return err
			}
			if _, err := b.AddFilter(hooks.FilterDocumentTitle, identityFilter); err != nil {
				return err
			}
			return nil
		},
	}
	if err := m.Register(p); err != nil {
		t.Fatal(err)
	}
	if err := m.Activate(context.Background(), "seo"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := registry.OwnerCount("seo"); got != 2 {
		t.Errorf("expected 2 owned registrations, got %d", got)
	}
	snap := registry.Snapshot()
	if snap.Actions[hooks.EventPostCreated][0].Owner != "seo" {
		t.Error("registration not attributed to the plugin")
	}

	active := m.Active()
	if len(active) != 1 || active[0] != "seo" {
		t.Errorf("unexpected active set: %v", active)
	}
}

func TestActivateErrors(t *testing.T) {
	m := NewManager(hooks.New())
	p := &fakePlugin{manifest: Manifest{ID: "seo"}}
	if err := m.Register(p); err != nil {
		t.Fatal(err)
	}

	if err := m.Activate(context.Background(), "missing"); err == nil {
		t.Error("expected error for unknown plugin")
	}
	if err := m.Activate(context.Background(), "seo"); err != nil {
		t.Fatal(err)
	}
	if err := m.Activate(context.Background(), "seo"); err == nil {
		t.Error("expected error for double activation")
	}
}

func TestActivateFailureRollsBack(t *testing.T) {
	registry := hooks.New()
	m := NewManager(registry)

	p := &fakePlugin{
		manifest: Manifest{ID: "broken"},
		onActivate: func(ctx context.Context, b *HookBinding) error {
			if _, err := b.AddAction(hooks.EventPostCreated, noopAction); err != nil {
				return err
			}
			return errors.New("activation failed halfway")
		},
	}
	if err := m.Register(p); err != nil {
		t.Fatal(err)
	}

	if err := m.Activate(context.Background(), "broken"); err == nil {
		t.Fatal("expected activation error")
	}
	if got := registry.OwnerCount("broken"); got != 0 {
		t.Errorf("partial registrations must be rolled back, %d remain", got)
	}
	if len(m.Active()) != 0 {
		t.Error("failed plugin must stay inactive")
	}

	// A failed activation can be retried.
	p.onActivate = nil
	if err := m.Activate(context.Background(), "broken"); err != nil {
		t.Errorf("retry after failure should work: %v", err)
	}
}

func TestDeactivateRemovesHooks(t *testing.T) {
	registry := hooks.New()
	m := NewManager(registry)

	p := &fakePlugin{
		manifest: Manifest{ID: "seo"},
		onActivate: func(ctx context.Context, b *HookBinding) error {
			_, err := b.AddFilter(hooks.FilterContentRender, identityFilter)
			return err
		},
	}
	if err := m.Register(p); err != nil {
		t.Fatal(err)
	}
	if err := m.Activate(context.Background(), "seo"); err != nil {
		t.Fatal(err)
	}
	if !registry.HasFilter(hooks.FilterContentRender) {
		t.Fatal("expected filter registered")
	}

	if err := m.Deactivate(context.Background(), "seo"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if registry.HasFilter(hooks.FilterContentRender) {
		t.Error("deactivation must remove the plugin's registrations")
	}
	if err := m.Deactivate(context.Background(), "seo"); err == nil {
		t.Error("expected error for deactivating an inactive plugin")
	}
}

func TestDeactivateErrorStillCleansUp(t *testing.T) {
	registry := hooks.New()
	m := NewManager(registry)

	p := &fakePlugin{
		manifest: Manifest{ID: "stubborn"},
		onActivate: func(ctx context.Context, b *HookBinding) error {
			_, err := b.AddAction(hooks.EventPostDeleted, noopAction)
			return err
		},
		onDeactivate: func(ctx context.Context) error {
			return errors.New("refusing to go quietly")
		},
	}
	if err := m.Register(p); err != nil {
		t.Fatal(err)
	}
	if err := m.Activate(context.Background(), "stubborn"); err != nil {
		t.Fatal(err)
	}

	err := m.Deactivate(context.Background(), "stubborn")
	if err == nil {
		t.Fatal("expected deactivation error to propagate")
	}
	if registry.OwnerCount("stubborn") != 0 {
		t.Error("registrations must be removed even when Deactivate errors")
	}
}

func TestLifecycleActionsDispatched(t *testing.T) {
	registry := hooks.New()
	m := NewManager(registry)

	var events []string
	if _, err := registry.AddAction(hooks.EventPluginActivated, func(ctx context.Context, args ...any) error {
		events = append(events, "activated:"+args[0].(string))
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := registry.AddAction(hooks.EventPluginDeactivated, func(ctx context.Context, args ...any) error {
		events = append(events, "deactivated:"+args[0].(string))
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	p := &fakePlugin{manifest: Manifest{ID: "seo"}}
	if err := m.Register(p); err != nil {
		t.Fatal(err)
	}
	if err := m.Activate(context.Background(), "seo"); err != nil {
		t.Fatal(err)
	}
	if err := m.Deactivate(context.Background(), "seo"); err != nil {
		t.Fatal(err)
	}

	if len(events) != 2 || events[0] != "activated:seo" || events[1] != "deactivated:seo" {
		t.Errorf("unexpected lifecycle events: %v", events)
	}
}

func TestStatuses(t *testing.T) {
	registry := hooks.New()
	m := NewManager(registry)

	a := &fakePlugin{
		manifest: Manifest{ID: "analytics", Name: "Analytics", Version: "0.3.1"},
		onActivate: func(ctx context.Context, b *HookBinding) error {
			_, err := b.AddAction(hooks.EventPostCreated, noopAction)
			return err
		},
	}
	b := &fakePlugin{manifest: Manifest{ID: "seo"}}
	if err := m.Register(b); err != nil {
		t.Fatal(err)
	}
	if err := m.Register(a); err != nil {
		t.Fatal(err)
	}
	if err := m.Activate(context.Background(), "analytics"); err != nil {
		t.Fatal(err)
	}

	statuses := m.Statuses()
	if len(statuses) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(statuses))
	}
	// Sorted by ID.
	if statuses[0].ID != "analytics" || statuses[1].ID != "seo" {
		t.Errorf("statuses not sorted: %+v", statuses)
	}
	if statuses[0].State != StateActive || statuses[0].Hooks != 1 {
		t.Errorf("unexpected analytics status: %+v", statuses[0])
	}
	if statuses[1].State != StateInactive || statuses[1].Hooks != 0 {
		t.Errorf("unexpected seo status: %+v", statuses[1])
	}
}
