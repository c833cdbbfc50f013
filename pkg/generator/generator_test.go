package generator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/brewplan/brewplan/pkg/policy"
	"github.com/brewplan/brewplan/pkg/stores"
)

const testConfig = `
taps: ["homebrew/services"]
brews: ["git", "jq"]
casks: ["firefox"]
global: brewfile: true
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.cue")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func testStore(t *testing.T) *stores.SQLiteStore {
	t.Helper()
	store, err := stores.NewSQLiteStore(stores.Config{Path: ":memory:"})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestGenerate_WritesManifest(t *testing.T) {
	ctx := context.Background()
	configPath := writeConfig(t, testConfig)
	manifestPath := filepath.Join(t.TempDir(), "Brewfile")

	gen, err := New(ctx, Options{
		ConfigPath:   configPath,
		ManifestPath: manifestPath,
		Logger:       zerolog.New(nil).Level(zerolog.Disabled),
	})
	if err != nil {
		t.Fatalf("failed to create generator: %v", err)
	}

	result, err := gen.Generate(ctx)
	if err != nil {
		t.Fatalf("generation failed: %v", err)
	}

	data, err := os.ReadFile(manifestPath)
	if err != nil {
		t.Fatalf("failed to read manifest: %v", err)
	}
	if string(data) != result.Manifest {
		t.Error("manifest on disk does not match result")
	}
	if !strings.Contains(result.Manifest, `brew "git"`) {
		t.Errorf("manifest missing formula line:\n%s", result.Manifest)
	}
	if !strings.Contains(result.Manifest, `cask "firefox"`) {
		t.Errorf("manifest missing cask line:\n%s", result.Manifest)
	}

	sum := sha256.Sum256([]byte(result.Manifest))
	if result.Checksum != hex.EncodeToString(sum[:]) {
		t.Error("checksum does not match manifest content")
	}

	if result.Environment["HOMEBREW_BUNDLE_FILE"] != manifestPath {
		t.Errorf("Environment = %v, want HOMEBREW_BUNDLE_FILE=%s", result.Environment, manifestPath)
	}
	if !strings.Contains(result.Command, "brew bundle --file='"+manifestPath+"'") {
		t.Errorf("Command = %q", result.Command)
	}
	if result.Unchanged {
		t.Error("first generation should not be unchanged")
	}
}

func TestGenerate_SkipsUnchangedManifest(t *testing.T) {
	ctx := context.Background()
	configPath := writeConfig(t, testConfig)
	manifestPath := filepath.Join(t.TempDir(), "Brewfile")
	store := testStore(t)

	gen, err := New(ctx, Options{
		ConfigPath:   configPath,
		ManifestPath: manifestPath,
		Store:        store,
		Logger:       zerolog.New(nil).Level(zerolog.Disabled),
	})
	if err != nil {
		t.Fatalf("failed to create generator: %v", err)
	}

	first, err := gen.Generate(ctx)
	if err != nil {
		t.Fatalf("first generation failed: %v", err)
	}
	if first.Unchanged {
		t.Error("first generation should write the manifest")
	}

	second, err := gen.Generate(ctx)
	if err != nil {
		t.Fatalf("second generation failed: %v", err)
	}
	if !second.Unchanged {
		t.Error("second generation of identical config should be unchanged")
	}
	if second.Checksum != first.Checksum {
		t.Error("checksums should match for identical config")
	}

	gens, err := store.ListGenerations(ctx, 10, 0)
	if err != nil {
		t.Fatalf("failed to list generations: %v", err)
	}
	if len(gens) != 2 {
		t.Errorf("expected 2 ledger records, got %d", len(gens))
	}

	forced, err := New(ctx, Options{
		ConfigPath:   configPath,
		ManifestPath: manifestPath,
		Store:        store,
		Force:        true,
		Logger:       zerolog.New(nil).Level(zerolog.Disabled),
	})
	if err != nil {
		t.Fatalf("failed to create forced generator: %v", err)
	}
	third, err := forced.Generate(ctx)
	if err != nil {
		t.Fatalf("forced generation failed: %v", err)
	}
	if third.Unchanged {
		t.Error("forced generation should rewrite the manifest")
	}
}

func TestGenerate_EnforcingPolicyBlocks(t *testing.T) {
	ctx := context.Background()
	configPath := writeConfig(t, `
taps: ["not-a-valid-tap"]
brews: ["git"]
`)

	gen, err := New(ctx, Options{
		ConfigPath: configPath,
		PolicyMode: policy.ModeEnforcing,
		Logger:     zerolog.New(nil).Level(zerolog.Disabled),
	})
	if err != nil {
		t.Fatalf("failed to create generator: %v", err)
	}

	if _, err := gen.Generate(ctx); err == nil {
		t.Fatal("expected enforcing mode to reject invalid tap name")
	}
}

func TestGenerate_AdvisoryPolicyReports(t *testing.T) {
	ctx := context.Background()
	configPath := writeConfig(t, `
taps: ["not-a-valid-tap"]
brews: ["git"]
`)

	gen, err := New(ctx, Options{
		ConfigPath: configPath,
		PolicyMode: policy.ModeAdvisory,
		Logger:     zerolog.New(nil).Level(zerolog.Disabled),
	})
	if err != nil {
		t.Fatalf("failed to create generator: %v", err)
	}

	result, err := gen.Generate(ctx)
	if err != nil {
		t.Fatalf("advisory mode should not block: %v", err)
	}
	if result.Policy.Allowed {
		t.Error("expected policy result to be disallowed")
	}
	if len(result.Policy.Violations) == 0 {
		t.Error("expected violations to be reported")
	}
}

func TestGenerate_RecordsFailure(t *testing.T) {
	ctx := context.Background()
	configPath := writeConfig(t, `cleanup: "zap"`)
	store := testStore(t)

	gen, err := New(ctx, Options{
		ConfigPath: configPath,
		Store:      store,
		Logger:     zerolog.New(nil).Level(zerolog.Disabled),
	})
	if err != nil {
		t.Fatalf("failed to create generator: %v", err)
	}

	if _, err := gen.Generate(ctx); err == nil {
		t.Fatal("expected removed option to fail generation")
	}

	gens, err := store.ListGenerations(ctx, 10, 0)
	if err != nil {
		t.Fatalf("failed to list generations: %v", err)
	}
	if len(gens) != 1 {
		t.Fatalf("expected 1 ledger record, got %d", len(gens))
	}
	if gens[0].Status != stores.GenerationStatusFailed {
		t.Errorf("Status = %q, want failed", gens[0].Status)
	}
	if gens[0].Error == nil {
		t.Error("expected failure reason to be recorded")
	}
}

func TestRecordActivation(t *testing.T) {
	ctx := context.Background()
	configPath := writeConfig(t, testConfig)
	manifestPath := filepath.Join(t.TempDir(), "Brewfile")
	store := testStore(t)

	gen, err := New(ctx, Options{
		ConfigPath:   configPath,
		ManifestPath: manifestPath,
		Store:        store,
		Logger:       zerolog.New(nil).Level(zerolog.Disabled),
	})
	if err != nil {
		t.Fatalf("failed to create generator: %v", err)
	}

	result, err := gen.Generate(ctx)
	if err != nil {
		t.Fatalf("generation failed: %v", err)
	}

	gen.RecordActivation(ctx, result.GenerationID, result.Command, nil, 0)

	acts, err := store.ListActivationsByGeneration(ctx, result.GenerationID)
	if err != nil {
		t.Fatalf("failed to list activations: %v", err)
	}
	if len(acts) != 1 {
		t.Fatalf("expected 1 activation, got %d", len(acts))
	}
	if acts[0].Status != stores.ActivationStatusCompleted {
		t.Errorf("Status = %q, want completed", acts[0].Status)
	}
	if acts[0].ExitCode == nil || *acts[0].ExitCode != 0 {
		t.Error("expected exit code 0 to be recorded")
	}

	infoLevel := stores.EventLevelInfo
	events, err := store.GetEvents(ctx, &result.GenerationID, &infoLevel, 50, 0)
	if err != nil {
		t.Fatalf("failed to get events: %v", err)
	}
	var activated bool
	for _, e := range events {
		if e.Message == "activation completed" {
			activated = true
		}
	}
	if !activated {
		t.Error("expected an 'activation completed' event")
	}

	got, err := store.GetGeneration(ctx, result.GenerationID)
	if err != nil {
		t.Fatalf("failed to get generation: %v", err)
	}
	if got.Status != stores.GenerationStatusActivated {
		t.Errorf("generation Status = %q, want activated", got.Status)
	}
}

func TestGenerate_RecordsLedgerEvents(t *testing.T) {
	ctx := context.Background()
	configPath := writeConfig(t, `
taps: ["not-a-valid-tap"]
brews: ["git"]
`)
	manifestPath := filepath.Join(t.TempDir(), "Brewfile")
	store := testStore(t)

	gen, err := New(ctx, Options{
		ConfigPath:   configPath,
		ManifestPath: manifestPath,
		Store:        store,
		PolicyMode:   policy.ModeAdvisory,
		Logger:       zerolog.New(nil).Level(zerolog.Disabled),
	})
	if err != nil {
		t.Fatalf("failed to create generator: %v", err)
	}

	result, err := gen.Generate(ctx)
	if err != nil {
		t.Fatalf("generation failed: %v", err)
	}

	events, err := store.GetEvents(ctx, &result.GenerationID, nil, 50, 0)
	if err != nil {
		t.Fatalf("failed to get events: %v", err)
	}
	if len(events) == 0 {
		t.Fatal("expected ledger events for the generation")
	}

	var wroteManifest, violationWarning bool
	for _, e := range events {
		if e.Level == stores.EventLevelInfo && e.Message == "manifest written" {
			wroteManifest = true
			if e.Details == nil || !strings.Contains(*e.Details, result.Checksum) {
				t.Error("expected manifest event details to carry the checksum")
			}
		}
		if e.Level == stores.EventLevelWarning {
			violationWarning = true
		}
	}
	if !wroteManifest {
		t.Error("expected a 'manifest written' info event")
	}
	if !violationWarning {
		t.Error("expected a warning event per policy violation")
	}
}

func TestGenerate_RecordsFailureEvent(t *testing.T) {
	ctx := context.Background()
	configPath := writeConfig(t, `cleanup: "zap"`)
	store := testStore(t)

	gen, err := New(ctx, Options{
		ConfigPath: configPath,
		Store:      store,
		Logger:     zerolog.New(nil).Level(zerolog.Disabled),
	})
	if err != nil {
		t.Fatalf("failed to create generator: %v", err)
	}

	if _, err := gen.Generate(ctx); err == nil {
		t.Fatal("expected removed option to fail generation")
	}

	gens, err := store.ListGenerations(ctx, 10, 0)
	if err != nil {
		t.Fatalf("failed to list generations: %v", err)
	}
	if len(gens) != 1 {
		t.Fatalf("expected 1 ledger record, got %d", len(gens))
	}

	errLevel := stores.EventLevelError
	events, err := store.GetEvents(ctx, &gens[0].ID, &errLevel, 10, 0)
	if err != nil {
		t.Fatalf("failed to get events: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 error event, got %d", len(events))
	}
	if events[0].Message != "generation failed" {
		t.Errorf("Message = %q, want 'generation failed'", events[0].Message)
	}
}
