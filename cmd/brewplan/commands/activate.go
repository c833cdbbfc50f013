package commands

import (
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/brewplan/brewplan/pkg/generator"
	"github.com/brewplan/brewplan/pkg/policy"
)

func newActivateCommand() *cobra.Command {
	var (
		output      string
		dryRun      bool
		policyPaths []string
		enforce     bool
		statePath   string
	)

	cmd := &cobra.Command{
		Use:   "activate",
		Short: "Compile the manifest and run 'brew bundle' against it",
		Long: `Compile the configuration into a Brewfile and run the derived
activation command ('brew bundle' with the configured flags) against it.

The derived environment variables are set for the child process, and the
run is recorded in the generation ledger with its exit code.`,
		Example: `  # Compile and apply
  brewplan activate

  # Show the command that would run, without running it
  brewplan activate --dry-run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			source, err := resolveConfigPath()
			if err != nil {
				return err
			}

			log.Info().
				Str("source", source).
				Str("output", output).
				Bool("dry_run", dryRun).
				Msg("Activating configuration")

			mode := policy.ModeAdvisory
			if enforce {
				mode = policy.ModeEnforcing
			}

			opts := generator.Options{
				ConfigPath:   source,
				ManifestPath: output,
				PolicyPaths:  policyPaths,
				PolicyMode:   mode,
				Logger:       commandLogger(),
			}
			if !dryRun {
				store, err := openStore(ctx, statePath)
				if err != nil {
					return err
				}
				defer store.Close()
				opts.Store = store
			}

			gen, err := generator.New(ctx, opts)
			if err != nil {
				return err
			}
			result, err := gen.Generate(ctx)
			if err != nil {
				return err
			}

			if dryRun {
				fmt.Println(result.Command)
				return nil
			}

			fmt.Printf("Running: %s\n", result.Command)

			child := exec.CommandContext(ctx, "/bin/sh", "-c", result.Command)
			child.Stdout = os.Stdout
			child.Stderr = os.Stderr
			child.Env = os.Environ()
			for k, v := range result.Environment {
				child.Env = append(child.Env, k+"="+v)
			}

			runErr := child.Run()
			exitCode := 0
			var exitErr *exec.ExitError
			if errors.As(runErr, &exitErr) {
				exitCode = exitErr.ExitCode()
			}
			gen.RecordActivation(ctx, result.GenerationID, result.Command, runErr, exitCode)

			if runErr != nil {
				return fmt.Errorf("activation failed: %w", runErr)
			}
			fmt.Printf("✓ Activated generation %s\n", result.GenerationID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "Brewfile", "manifest output path")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the activation command without running it")
	cmd.Flags().StringSliceVar(&policyPaths, "policy", nil, "extra policy files or directories")
	cmd.Flags().BoolVar(&enforce, "enforce", false, "abort on policy violations")
	cmd.Flags().StringVar(&statePath, "state", "", "generation ledger path (default "+defaultStatePath+")")

	return cmd
}
