package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/brewplan/brewplan/pkg/generator"
	"github.com/brewplan/brewplan/pkg/policy"
	"github.com/brewplan/brewplan/pkg/telemetry"
)

func newWatchCommand() *cobra.Command {
	var (
		output      string
		policyPaths []string
		enforce     bool
		statePath   string
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch the configuration and regenerate the manifest on change",
		Long: `Watch the configuration source and regenerate the Brewfile whenever it
changes. Edits are debounced so editors that write in multiple steps
trigger a single rebuild.

Policy files passed with --policy are watched too and hot reloaded
without restarting the watcher.`,
		Example: `  # Watch the default config
  brewplan watch

  # Watch with policies and a Prometheus endpoint
  brewplan watch --policy ./policies --metrics-addr :9464`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			source, err := resolveConfigPath()
			if err != nil {
				return err
			}

			log.Info().
				Str("source", source).
				Str("output", output).
				Strs("policies", policyPaths).
				Msg("Watching configuration")

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

			store, err := openStore(ctx, statePath)
			if err != nil {
				return err
			}
			defer store.Close()
			opts.Store = store

			if metricsAddr != "" {
				cfg := telemetry.DefaultConfig()
				cfg.Metrics.Enabled = true
				cfg.Metrics.ListenAddress = metricsAddr
				tel, err := telemetry.NewTelemetry(cfg)
				if err != nil {
					return err
				}
				if err := tel.StartMetricsServer(); err != nil {
					return err
				}
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = tel.Shutdown(shutdownCtx)
				}()
				opts.Telemetry = tel
			}

			gen, err := generator.New(ctx, opts)
			if err != nil {
				return err
			}

			if len(policyPaths) > 0 {
				loader := policy.NewLoader(commandLogger())
				err := loader.Watch(ctx, policyPaths, func(policies []policy.Policy) error {
					log.Info().Int("policies", len(policies)).Msg("Reloading policies")
					return gen.Engine().ApplyPolicies(ctx, policies)
				})
				if err != nil {
					return err
				}
				defer loader.StopWatching()
			}

			watcher := generator.NewWatcher(gen, commandLogger())
			return watcher.Run(ctx, func(result *generator.Result, err error) {
				switch {
				case err != nil:
					fmt.Printf("✗ generation failed: %v\n", err)
				case result.Unchanged:
					fmt.Printf("· manifest unchanged (sha256 %s)\n", result.Checksum[:12])
				default:
					fmt.Printf("✓ wrote %s (%d bytes, sha256 %s)\n", output, len(result.Manifest), result.Checksum[:12])
				}
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "Brewfile", "manifest output path")
	cmd.Flags().StringSliceVar(&policyPaths, "policy", nil, "extra policy files or directories")
	cmd.Flags().BoolVar(&enforce, "enforce", false, "abort rebuilds on policy violations")
	cmd.Flags().StringVar(&statePath, "state", "", "generation ledger path (default "+defaultStatePath+")")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")

	return cmd
}
