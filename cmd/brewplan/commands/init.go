package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const sampleConfig = `// Brewplan configuration.
//
// Everything below is optional; an empty config compiles to an empty
// Brewfile. See 'brewplan validate' to check your edits.

taps: ["homebrew/services"]

brews: [
	"git",
	"jq",
]

casks: []

global: {
	brewfile: true
}

onActivation: {
	autoUpdate: false
	upgrade:    false
	cleanup:    "none"
}
`

func newInitCommand() *cobra.Command {
	var (
		force bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a brewplan workspace",
		Long: `Initialize a brewplan workspace: a starter configuration file, the
data directory, and the SQLite generation ledger.`,
		Example: `  # Initialize in the current directory
  brewplan init

  # Initialize with a custom config path
  brewplan init --config ./machines/laptop.cue`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			target := configPath
			if target == "" {
				target = "brewplan.cue"
			}

			log.Info().
				Str("config", target).
				Msg("Initializing workspace")

			dataDir := filepath.Dir(defaultStatePath)
			if err := os.MkdirAll(dataDir, 0o700); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", dataDir, err)
			}
			fmt.Printf("✓ Created directory: %s\n", dataDir)

			store, err := openStore(ctx, defaultStatePath)
			if err != nil {
				return err
			}
			defer store.Close()
			fmt.Printf("✓ Initialized generation ledger: %s\n", defaultStatePath)

			if _, err := os.Stat(target); err == nil && !force {
				fmt.Printf("✓ Config already exists: %s\n", target)
			} else {
				if err := os.WriteFile(target, []byte(sampleConfig), 0o644); err != nil {
					return fmt.Errorf("failed to write config file: %w", err)
				}
				fmt.Printf("✓ Created config file: %s\n", target)
			}

			fmt.Printf("\n✅ Workspace initialized successfully!\n\n")
			fmt.Printf("Next steps:\n")
			fmt.Printf("  1. Edit %s to describe your setup\n", target)
			fmt.Printf("  2. Validate it:\n")
			fmt.Printf("     brewplan validate\n\n")
			fmt.Printf("  3. Compile and apply:\n")
			fmt.Printf("     brewplan activate\n\n")

			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")

	return cmd
}
