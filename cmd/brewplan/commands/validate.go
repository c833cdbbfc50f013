package commands

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/brewplan/brewplan/pkg/config"
	"github.com/brewplan/brewplan/pkg/policy"
)

func newValidateCommand() *cobra.Command {
	var (
		policyPaths []string
		strict      bool
	)

	cmd := &cobra.Command{
		Use:   "validate [path]",
		Short: "Validate a configuration without writing a manifest",
		Long: `Validate a configuration file or directory.

This command checks:
  - CUE/YAML syntax validity
  - Schema conformance and removed options
  - Policy compliance (OPA/rego)

Advisories and warning-level violations are reported but do not fail the
command; error-level violations fail it when --strict is set.`,
		Example: `  # Validate the default config
  brewplan validate

  # Validate a specific file with extra policies
  brewplan validate setup.cue --policy ./policies

  # Fail on any error-level violation
  brewplan validate --strict`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			source := configPath
			if len(args) > 0 {
				source = args[0]
			}
			if source == "" {
				var err error
				source, err = resolveConfigPath()
				if err != nil {
					return err
				}
			}

			log.Info().
				Str("source", source).
				Bool("strict", strict).
				Msg("Validating configuration")

			loaded, err := config.NewLoader().Load(ctx, source)
			if err != nil {
				return err
			}

			engine, err := policy.NewEngine(commandLogger())
			if err != nil {
				return err
			}
			if len(policyPaths) > 0 {
				if err := engine.LoadPolicies(ctx, policyPaths); err != nil {
					return err
				}
			}
			result, err := engine.Evaluate(ctx, &loaded.Bundle)
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(struct {
					Source     string         `json:"source"`
					Advisories interface{}    `json:"advisories,omitempty"`
					Policy     *policy.Result `json:"policy"`
					Packages   map[string]int `json:"packages"`
				}{
					Source:     source,
					Advisories: loaded.Advisories,
					Policy:     result,
					Packages: map[string]int{
						"taps":       len(loaded.Bundle.Taps),
						"brews":      len(loaded.Bundle.Brews),
						"casks":      len(loaded.Bundle.Casks),
						"mas_apps":   len(loaded.Bundle.MasApps),
						"whalebrews": len(loaded.Bundle.Whalebrews),
					},
				})
			}

			for _, adv := range loaded.Advisories {
				fmt.Printf("advisory: %s: %s\n", adv.Field, adv.Message)
			}
			for _, w := range result.Warnings {
				fmt.Printf("warning: %s\n", w)
			}
			for _, v := range result.Violations {
				fmt.Printf("%s: %s: %s (%s)\n", v.Severity, v.Policy, v.Message, v.Entity)
			}

			if !result.Allowed {
				if strict {
					return fmt.Errorf("validation failed: %d violation(s)", len(result.Violations))
				}
				fmt.Printf("✗ %s has %d violation(s)\n", source, len(result.Violations))
				return nil
			}

			fmt.Printf("✓ %s is valid (%d policies evaluated)\n", source, len(result.EvaluatedPolicies))
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&policyPaths, "policy", nil, "extra policy files or directories")
	cmd.Flags().BoolVar(&strict, "strict", false, "fail on error-level violations")

	return cmd
}
