// Package main provides the CLI entry point for the Ember extensibility
// core: the hook registry, plugin lifecycle, scheduled actions, and the
// read-only inspection API.
//
// # Basic Usage
//
// Start the server:
//
//	ember serve --config ember.yaml
//
// Validate a config file without starting anything:
//
//	ember config validate --config ember.yaml
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "ember",
		Short:         "Ember CMS extensibility core",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(buildServeCmd(), buildConfigCmd(), buildVersionCmd())
	return cmd
}

func buildVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "ember", version)
		},
	}
}
