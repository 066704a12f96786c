// Package config loads and validates the YAML configuration for the CMS
// extensibility core. Environment variables in the file are expanded
// before parsing.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
	Cron    CronConfig    `yaml:"cron"`
	Plugins PluginsConfig `yaml:"plugins"`
}

// ServerConfig configures the inspection HTTP server.
type ServerConfig struct {
	// Listen is the address the inspection API binds to.
	Listen string `yaml:"listen"`

	// Metrics exposes /metrics when true.
	Metrics bool `yaml:"metrics"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LoggingConfig configures slog output.
type LoggingConfig struct {
	// Level: debug, info, warn, error.
	Level string `yaml:"level"`

	// Format: text or json.
	Format string `yaml:"format"`
}

// CronConfig holds scheduled action entries.
type CronConfig struct {
	Entries []CronEntry `yaml:"entries"`
}

// CronEntry fires a named action on a cron schedule.
type CronEntry struct {
	// Name labels the entry in logs.
	Name string `yaml:"name"`

	// Schedule is a cron expression (5-field, optional seconds field, or
	// a descriptor like @hourly).
	Schedule string `yaml:"schedule"`

	// Event is the action event name to dispatch.
	Event string `yaml:"event"`

	// Args are passed positionally to the action callbacks.
	Args []string `yaml:"args"`
}

// PluginsConfig selects which registered plugins activate at startup.
type PluginsConfig struct {
	Enabled []string `yaml:"enabled"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Listen:          "127.0.0.1:8465",
			Metrics:         true,
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a YAML config file, expanding ${VAR} environment references.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML config bytes over the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for errors a typo would cause.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.Listen) == "" {
		return fmt.Errorf("config: server.listen is required")
	}
	if c.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("config: server.shutdown_timeout must not be negative")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("config: unknown logging.level %q", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("config: unknown logging.format %q", c.Logging.Format)
	}

	seen := make(map[string]bool, len(c.Cron.Entries))
	for i, entry := range c.Cron.Entries {
		if strings.TrimSpace(entry.Schedule) == "" {
			return fmt.Errorf("config: cron.entries[%d]: schedule is required", i)
		}
		if strings.TrimSpace(entry.Event) == "" {
			return fmt.Errorf("config: cron.entries[%d]: event is required", i)
		}
		if entry.Name != "" {
			if seen[entry.Name] {
				return fmt.Errorf("config: cron.entries[%d]: duplicate name %q", i, entry.Name)
			}
			seen[entry.Name] = true
		}
	}

	return nil
}
