package commands

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/brewplan/brewplan/pkg/bundle"
	"github.com/brewplan/brewplan/pkg/config"
)

func newEnvCommand() *cobra.Command {
	var (
		output string
		shell  bool
	)

	cmd := &cobra.Command{
		Use:   "env",
		Short: "Print the environment variables derived from the configuration",
		Long: `Print the HOMEBREW_* environment variables derived from the
configuration's global options, such as HOMEBREW_BUNDLE_FILE and
HOMEBREW_BUNDLE_NO_LOCK.`,
		Example: `  # Print KEY=VALUE pairs
  brewplan env

  # Emit export statements for eval in a shell profile
  eval "$(brewplan env --shell)"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			source, err := resolveConfigPath()
			if err != nil {
				return err
			}

			loaded, err := config.NewLoader().Load(ctx, source)
			if err != nil {
				return err
			}

			env := bundle.Environment(loaded.Bundle.Global, output)
			if jsonOutput {
				return printJSON(env)
			}

			keys := make([]string, 0, len(env))
			for k := range env {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			for _, k := range keys {
				if shell {
					fmt.Printf("export %s=%q\n", k, env[k])
				} else {
					fmt.Printf("%s=%s\n", k, env[k])
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "Brewfile", "manifest path the environment refers to")
	cmd.Flags().BoolVar(&shell, "shell", false, "emit shell export statements")

	return cmd
}
