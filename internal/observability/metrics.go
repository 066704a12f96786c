// Package observability provides Prometheus metrics and slog construction
// for the CMS extensibility core.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects hook and plugin metrics. It implements hooks.Observer.
type Metrics struct {
	// HookDispatches counts dispatches by event, kind (action|filter) and
	// status (ok|error).
	HookDispatches *prometheus.CounterVec

	// HookDispatchDuration measures full-chain dispatch latency in seconds.
	// Labels: event, kind
	HookDispatchDuration *prometheus.HistogramVec

	// HookRegistrations tracks the current number of live registrations
	// across both tables.
	HookRegistrations prometheus.Gauge

	// PluginTransitions counts plugin lifecycle transitions.
	// Labels: plugin, transition (activate|deactivate), status (ok|error)
	PluginTransitions *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics with the default Prometheus
// registry. Call once at startup.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith registers all metrics with the given registerer. Tests use
// this with a throwaway registry to avoid duplicate registration.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		HookDispatches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ember_hook_dispatches_total",
				Help: "Total number of hook dispatches by event, kind, and status",
			},
			[]string{"event", "kind", "status"},
		),

		HookDispatchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ember_hook_dispatch_duration_seconds",
				Help:    "Duration of full hook dispatch chains in seconds",
				Buckets: []float64{0.0001, 0.001, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"event", "kind"},
		),

		HookRegistrations: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "ember_hook_registrations",
				Help: "Current number of live hook registrations",
			},
		),

		PluginTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ember_plugin_transitions_total",
				Help: "Total number of plugin lifecycle transitions by status",
			},
			[]string{"plugin", "transition", "status"},
		),
	}
}

// ObserveDispatch records one completed dispatch chain.
func (m *Metrics) ObserveDispatch(event, kind, status string, elapsed time.Duration) {
	m.HookDispatches.WithLabelValues(event, kind, status).Inc()
	m.HookDispatchDuration.WithLabelValues(event, kind).Observe(elapsed.Seconds())
}

// RegistrationsChanged records the current live registration count.
func (m *Metrics) RegistrationsChanged(total int) {
	m.HookRegistrations.Set(float64(total))
}

// PluginTransition records a plugin lifecycle transition outcome.
func (m *Metrics) PluginTransition(plugin, transition string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.PluginTransitions.WithLabelValues(plugin, transition, status).Inc()
}
