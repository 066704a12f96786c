// Package web serves the read-only inspection API: hook registry snapshots,
// plugin states, scheduler jobs, and process status. It deliberately exposes
// no mutating route; admin UIs observe the registry, they do not edit it.
package web

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/embercms/ember/internal/hooks"
	"github.com/embercms/ember/internal/plugins"
)

// CronInspector lists scheduled job names. Satisfied by *cron.Scheduler.
type CronInspector interface {
	Jobs() []string
}

// Config wires the handler's collaborators.
type Config struct {
	// Registry is the hook registry to expose (required).
	Registry *hooks.Registry

	// PluginManager exposes plugin states (optional).
	PluginManager *plugins.Manager

	// CronScheduler exposes scheduled job names (optional).
	CronScheduler CronInspector

	// Metrics mounts /metrics when true.
	Metrics bool

	// Logger for request logging.
	Logger *slog.Logger

	// StartTime for uptime calculation.
	StartTime time.Time
}

// Handler is the inspection API HTTP handler.
type Handler struct {
	config *Config
	mux    *http.ServeMux
}

// NewHandler creates the inspection API handler.
func NewHandler(cfg *Config) *Handler {
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.StartTime.IsZero() {
		cfg.StartTime = time.Now()
	}

	h := &Handler{
		config: cfg,
		mux:    http.NewServeMux(),
	}
	h.setupRoutes()
	return h
}

func (h *Handler) setupRoutes() {
	h.mux.HandleFunc("/api/hooks", h.apiHooks)
	h.mux.HandleFunc("/api/hooks/events", h.apiHookEvents)
	h.mux.HandleFunc("/api/plugins", h.apiPlugins)
	h.mux.HandleFunc("/api/status", h.apiStatus)
	if h.config.Metrics {
		h.mux.Handle("/metrics", promhttp.Handler())
	}
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// apiHooks handles GET /api/hooks.
func (h *Handler) apiHooks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.config.Registry == nil {
		h.jsonError(w, "Registry not configured", http.StatusServiceUnavailable)
		return
	}
	h.jsonResponse(w, h.config.Registry.Snapshot())
}

// EventSummary is one row of the event list response.
type EventSummary struct {
	Event   string `json:"event"`
	Actions int    `json:"actions"`
	Filters int    `json:"filters"`
}

// APIHookEventsResponse is the JSON response for the event list.
type APIHookEventsResponse struct {
	Events []EventSummary `json:"events"`
	Total  int            `json:"total"`
}

// apiHookEvents handles GET /api/hooks/events.
func (h *Handler) apiHookEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.config.Registry == nil {
		h.jsonError(w, "Registry not configured", http.StatusServiceUnavailable)
		return
	}

	registry := h.config.Registry
	names := registry.Events()
	resp := APIHookEventsResponse{Events: make([]EventSummary, 0, len(names))}
	for _, name := range names {
		summary := EventSummary{
			Event:   name,
			Actions: registry.ActionCount(name),
			Filters: registry.FilterCount(name),
		}
		resp.Events = append(resp.Events, summary)
		resp.Total += summary.Actions + summary.Filters
	}
	h.jsonResponse(w, resp)
}

// APIPluginsResponse is the JSON response for the plugin list.
type APIPluginsResponse struct {
	Plugins []plugins.Status `json:"plugins"`
}

// apiPlugins handles GET /api/plugins.
func (h *Handler) apiPlugins(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.config.PluginManager == nil {
		h.jsonError(w, "Plugin manager not configured", http.StatusServiceUnavailable)
		return
	}
	h.jsonResponse(w, APIPluginsResponse{Plugins: h.config.PluginManager.Statuses()})
}

// SystemStatus holds process health information.
type SystemStatus struct {
	Uptime        string   `json:"uptime"`
	GoVersion     string   `json:"go_version"`
	NumGoroutines int      `json:"num_goroutines"`
	Events        int      `json:"events"`
	Registrations int      `json:"registrations"`
	CronJobs      []string `json:"cron_jobs,omitempty"`
}

// apiStatus handles GET /api/status.
func (h *Handler) apiStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	status := SystemStatus{
		Uptime:        time.Since(h.config.StartTime).Round(time.Second).String(),
		GoVersion:     runtime.Version(),
		NumGoroutines: runtime.NumGoroutine(),
	}
	if h.config.Registry != nil {
		status.Events = len(h.config.Registry.Events())
		status.Registrations = h.config.Registry.Snapshot().Total
	}
	if h.config.CronScheduler != nil {
		status.CronJobs = h.config.CronScheduler.Jobs()
	}
	h.jsonResponse(w, status)
}

// jsonResponse writes a JSON response.
func (h *Handler) jsonResponse(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.config.Logger.Error("json encode error", "error", err)
	}
}

// jsonError writes a JSON error response.
func (h *Handler) jsonError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
