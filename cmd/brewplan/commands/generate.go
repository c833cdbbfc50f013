package commands

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/brewplan/brewplan/pkg/generator"
	"github.com/brewplan/brewplan/pkg/policy"
)

// generationSummary is the JSON shape reported for a completed generation.
type generationSummary struct {
	GenerationID string        `json:"generation_id"`
	Source       string        `json:"source"`
	ManifestPath string        `json:"manifest_path,omitempty"`
	Checksum     string        `json:"checksum"`
	Bytes        int           `json:"bytes"`
	Unchanged    bool          `json:"unchanged"`
	Violations   int           `json:"violations"`
	Warnings     int           `json:"warnings"`
	Duration     time.Duration `json:"duration_ns"`
}

func summarize(source string, result *generator.Result, manifestPath string) generationSummary {
	return generationSummary{
		GenerationID: result.GenerationID,
		Source:       source,
		ManifestPath: manifestPath,
		Checksum:     result.Checksum,
		Bytes:        len(result.Manifest),
		Unchanged:    result.Unchanged,
		Violations:   len(result.Policy.Violations),
		Warnings:     len(result.Policy.Warnings),
		Duration:     result.Duration,
	}
}

func newGenerateCommand() *cobra.Command {
	var (
		output      string
		dryRun      bool
		policyPaths []string
		enforce     bool
		force       bool
		statePath   string
		noLedger    bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Compile the configuration into a Brewfile manifest",
		Long: `Compile the declarative configuration into a Brewfile manifest.

The pipeline loads the configuration (CUE or YAML), evaluates policies,
compiles the manifest, and writes it atomically. When the manifest is
byte-identical to the previous generation the write is skipped. Each run
is recorded in the generation ledger unless --no-ledger is set.`,
		Example: `  # Compile brewplan.cue into ./Brewfile
  brewplan generate

  # Compile a specific config to a specific manifest
  brewplan generate -c setup.cue -o ~/.Brewfile

  # Print the manifest without writing anything
  brewplan generate --dry-run

  # Enforce policies, loading extra rules from a directory
  brewplan generate --enforce --policy ./policies`,
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
				Bool("enforce", enforce).
				Msg("Generating manifest")

			mode := policy.ModeAdvisory
			if enforce {
				mode = policy.ModeEnforcing
			}

			opts := generator.Options{
				ConfigPath:   source,
				ManifestPath: output,
				PolicyPaths:  policyPaths,
				PolicyMode:   mode,
				Force:        force,
				Logger:       commandLogger(),
			}
			if dryRun {
				opts.ManifestPath = ""
			}
			if !noLedger && !dryRun {
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

			if jsonOutput {
				return printJSON(summarize(source, result, opts.ManifestPath))
			}

			if dryRun {
				fmt.Print(result.Manifest)
				return nil
			}

			if result.Unchanged {
				fmt.Printf("Manifest unchanged: %s (sha256 %s)\n", output, result.Checksum[:12])
			} else {
				fmt.Printf("✓ Wrote %s (%d bytes, sha256 %s)\n", output, len(result.Manifest), result.Checksum[:12])
			}
			if n := len(result.Policy.Violations); n > 0 {
				fmt.Printf("  %d policy violation(s), see log for details\n", n)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "Brewfile", "manifest output path")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the manifest instead of writing it")
	cmd.Flags().StringSliceVar(&policyPaths, "policy", nil, "extra policy files or directories")
	cmd.Flags().BoolVar(&enforce, "enforce", false, "abort on policy violations")
	cmd.Flags().BoolVar(&force, "force", false, "rewrite the manifest even when unchanged")
	cmd.Flags().StringVar(&statePath, "state", "", "generation ledger path (default "+defaultStatePath+")")
	cmd.Flags().BoolVar(&noLedger, "no-ledger", false, "do not record the generation in the ledger")

	return cmd
}
