// Package main provides the CLI entry point for deskpilot, an agent that
// drives a virtual desktop through the Anthropic Messages API.
//
// # Basic Usage
//
// Run a task against the configured display:
//
//	deskpilot run "open a browser and search for the weather"
//
// # Environment Variables
//
//   - ANTHROPIC_API_KEY: API key for the first-party backend
//   - CLOUD_ML_REGION: Vertex region (provider vertex)
//   - ANTHROPIC_VERTEX_PROJECT_ID: Vertex project (provider vertex)
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Build information, populated by ldflags during build.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "deskpilot",
		Short:        "deskpilot - desktop automation agent",
		Long:         "deskpilot runs an agentic sampling loop that controls a virtual desktop\nwith the computer, bash and editor tools.",
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}

	rootCmd.AddCommand(buildRunCmd())
	return rootCmd
}
