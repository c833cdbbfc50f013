package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	verbose    bool
	jsonOutput bool
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "brewplan",
		Short: "Brewplan - declarative Homebrew manifest compiler",
		Long: `Brewplan compiles a typed, declarative description of your Homebrew
setup (taps, formulae, casks, Mac App Store apps, Docker images) into a
Brewfile manifest plus the environment and activation command that drive
'brew bundle'.

Features:
  - Typed configs via CUE or YAML
  - Light config generation via Starlark
  - Policy checks via OPA/rego
  - Generation ledger backed by SQLite
  - Watch mode with policy hot reload
  - Manifest push to remote hosts over SSH`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	// Add subcommands
	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newGenerateCommand())
	rootCmd.AddCommand(newEnvCommand())
	rootCmd.AddCommand(newActivateCommand())
	rootCmd.AddCommand(newWatchCommand())
	rootCmd.AddCommand(newHistoryCommand())
	rootCmd.AddCommand(newPushCommand())

	return rootCmd
}
