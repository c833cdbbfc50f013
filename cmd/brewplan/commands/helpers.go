package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/brewplan/brewplan/pkg/stores"
)

// defaultConfigCandidates are tried in order when --config is not set.
var defaultConfigCandidates = []string{
	"brewplan.cue",
	"brewplan.yaml",
	"brewplan.yml",
}

// resolveConfigPath returns the configuration source, either the --config
// flag or the first default candidate that exists.
func resolveConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	for _, candidate := range defaultConfigCandidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no configuration found: pass --config or create one of %v", defaultConfigCandidates)
}

// defaultStatePath is where the generation ledger lives unless overridden.
const defaultStatePath = "./data/brewplan.db"

// openStore opens and migrates the SQLite generation ledger. An empty path
// selects the default location.
func openStore(ctx context.Context, path string) (*stores.SQLiteStore, error) {
	if path == "" {
		path = defaultStatePath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	store, err := stores.NewSQLiteStore(stores.Config{Path: path})
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return store, nil
}

// commandLogger returns the logger for a command, honoring --verbose.
func commandLogger() zerolog.Logger {
	logger := log.Logger
	if verbose {
		logger = logger.Level(zerolog.DebugLevel)
	}
	return logger
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
