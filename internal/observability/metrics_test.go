package observability

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveDispatch(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsWith(reg)

	m.ObserveDispatch("post.created", "action", "ok", 5*time.Millisecond)
	m.ObserveDispatch("post.created", "action", "ok", time.Millisecond)
	m.ObserveDispatch("content.render", "filter", "error", time.Millisecond)

	if got := testutil.ToFloat64(m.HookDispatches.WithLabelValues("post.created", "action", "ok")); got != 2 {
		t.Errorf("expected 2 ok dispatches, got %v", got)
	}
	if got := testutil.ToFloat64(m.HookDispatches.WithLabelValues("content.render", "filter", "error")); got != 1 {
		t.Errorf("expected 1 error dispatch, got %v", got)
	}
}

func TestRegistrationsChanged(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsWith(reg)

	m.RegistrationsChanged(7)
	if got := testutil.ToFloat64(m.HookRegistrations); got != 7 {
		t.Errorf("expected gauge 7, got %v", got)
	}
	m.RegistrationsChanged(3)
	if got := testutil.ToFloat64(m.HookRegistrations); got != 3 {
		t.Errorf("expected gauge 3, got %v", got)
	}
}

func TestPluginTransition(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsWith(reg)

	m.PluginTransition("seo", "activate", nil)
	m.PluginTransition("seo", "activate", errors.New("boom"))

	if got := testutil.ToFloat64(m.PluginTransitions.WithLabelValues("seo", "activate", "ok")); got != 1 {
		t.Errorf("expected 1 ok transition, got %v", got)
	}
	if got := testutil.ToFloat64(m.PluginTransitions.WithLabelValues("seo", "activate", "error")); got != 1 {
		t.Errorf("expected 1 error transition, got %v", got)
	}
}
