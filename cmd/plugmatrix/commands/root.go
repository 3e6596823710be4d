package commands

import (
	"context"
	"fmt"
	"path"

	"github.com/spf13/cobra"

	"github.com/plugmatrix/plugmatrix/pkg/config"
	"github.com/plugmatrix/plugmatrix/pkg/telemetry"
)

var (
	// Global flags
	configPath string
	verbose    bool
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "plugmatrix",
		Short: "Plugmatrix - Plugin Configuration Resolver",
		Long: `Plugmatrix resolves plugin registries into flat, ordered lists of
plugin configurations, one per (plugin, release, module) combination.

Features:
  - Version-range scoped dependency declarations
  - Prerequisite merging with fail-fast diagnostics
  - Roots-first ordering for safe downstream consumption
  - Typed workspace configs via CUE
  - Optional run recording in SQLite`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "workspace CUE file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	rootCmd.AddCommand(newResolveCommand())
	rootCmd.AddCommand(newListCommand())
	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newRunsCommand())

	return rootCmd
}

// loadWorkspace returns the workspace configuration: the parsed
// --config file when given, defaults otherwise.
func loadWorkspace(ctx context.Context) (config.WorkspaceConfig, error) {
	if configPath == "" {
		ws := config.DefaultWorkspace()
		ws.Releases = nil
		return ws, nil
	}

	parser := config.NewCUEParser()
	ws, err := parser.Evaluate(ctx, []string{configPath})
	if err != nil {
		return config.WorkspaceConfig{}, fmt.Errorf("failed to load workspace %s: %w", configPath, err)
	}
	return *ws, nil
}

// newWorkspaceLogger builds the telemetry logger for a workspace.
func newWorkspaceLogger(ws config.WorkspaceConfig) *telemetry.Logger {
	level := ws.Log.Level
	if verbose {
		level = "debug"
	}
	return telemetry.NewLogger(telemetry.Config{
		Level:   level,
		Console: ws.Log.Console,
	})
}

// pluginFilter compiles include glob patterns into an engine filter.
// Nil means every plugin is admitted.
func pluginFilter(patterns []string) func(string) bool {
	if len(patterns) == 0 {
		return nil
	}
	return func(pluginID string) bool {
		for _, pattern := range patterns {
			if ok, err := path.Match(pattern, pluginID); err == nil && ok {
				return true
			}
		}
		return false
	}
}
