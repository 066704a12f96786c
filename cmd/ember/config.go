package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/embercms/ember/internal/config"
	"github.com/embercms/ember/internal/cron"
)

// buildConfigCmd creates the "config" command group.
func buildConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration helpers",
	}
	cmd.AddCommand(buildConfigValidateCmd())
	return cmd
}

func buildConfigValidateCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			// Cron schedules only fail at scheduler construction, so build
			// one against a throwaway dispatcher to catch bad expressions.
			if _, err := cron.NewScheduler(cfg.Cron, noopDispatcher{}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: OK (%d cron entries, %d plugins enabled)\n",
				configPath, len(cfg.Cron.Entries), len(cfg.Plugins.Enabled))
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML configuration file")
	return cmd
}

type noopDispatcher struct{}

func (noopDispatcher) DoActionContext(ctx context.Context, event string, args ...any) error {
	return nil
}
