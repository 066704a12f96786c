package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/embercms/ember/internal/builtin/readingtime"
	"github.com/embercms/ember/internal/config"
	"github.com/embercms/ember/internal/cron"
	"github.com/embercms/ember/internal/hooks"
	"github.com/embercms/ember/internal/observability"
	"github.com/embercms/ember/internal/plugins"
	"github.com/embercms/ember/internal/web"
)

// buildServeCmd creates the "serve" command that runs the extensibility
// core: hook registry, enabled plugins, cron dispatch, and the inspection
// API server. Shuts down gracefully on SIGINT/SIGTERM.
func buildServeCmd() *cobra.Command {
	var (
		configPath string
		debug      bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the extensibility core and inspection API",
		Example: `  # Start with defaults
  ember serve

  # Start with a config file and debug logging
  ember serve --config ember.yaml --debug`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath, debug)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "",
		"Path to YAML configuration file")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false,
		"Enable debug logging")

	return cmd
}

func runServe(ctx context.Context, configPath string, debug bool) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if debug {
		cfg.Logging.Level = "debug"
	}

	logger, err := observability.NewLogger(observability.LogConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	metrics := observability.NewMetrics()
	registry := hooks.New(hooks.WithLogger(logger), hooks.WithObserver(metrics))
	manager := plugins.NewManager(registry,
		plugins.WithManagerLogger(logger),
		plugins.WithTransitionObserver(metrics))

	for _, p := range builtinPlugins(logger) {
		if err := manager.Register(p); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for _, id := range cfg.Plugins.Enabled {
		if err := manager.Activate(ctx, id); err != nil {
			logger.Warn("plugin not activated", "plugin", id, "error", err)
		}
	}

	scheduler, err := cron.NewScheduler(cfg.Cron, registry, cron.WithLogger(logger))
	if err != nil {
		return err
	}
	scheduler.Start(ctx)

	handler := web.NewHandler(&web.Config{
		Registry:      registry,
		PluginManager: manager,
		CronScheduler: scheduler,
		Metrics:       cfg.Server.Metrics,
		Logger:        logger,
		StartTime:     time.Now(),
	})
	server := &http.Server{
		Addr:    cfg.Server.Listen,
		Handler: handler,
	}

	if err := registry.DoActionContext(ctx, hooks.EventStartup); err != nil {
		logger.Warn("startup hook failed", "error", err)
	}
	logger.Info("inspection API listening", "addr", cfg.Server.Listen, "metrics", cfg.Server.Metrics)

	serveErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("inspection API server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := registry.DoActionContext(shutdownCtx, hooks.EventShutdown); err != nil {
		logger.Warn("shutdown hook failed", "error", err)
	}
	for _, id := range manager.Active() {
		if err := manager.Deactivate(shutdownCtx, id); err != nil {
			logger.Warn("plugin not deactivated cleanly", "plugin", id, "error", err)
		}
	}
	if err := scheduler.Stop(shutdownCtx); err != nil {
		logger.Warn("scheduler did not stop in time", "error", err)
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// builtinPlugins lists plugins compiled into the binary. They still need
// enabling via plugins.enabled in config.
func builtinPlugins(logger *slog.Logger) []plugins.Plugin {
	return []plugins.Plugin{
		readingtime.New(logger),
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}
