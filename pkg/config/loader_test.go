package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/brewplan/brewplan/pkg/bundle"
)

func TestLoadInlineShorthandCoercion(t *testing.T) {
	loader := NewLoader()
	res, err := loader.LoadInline(context.Background(), `
taps: ["homebrew/services", {name: "me/private", cloneTarget: "git@example.org:me/private.git"}]
brews: ["ripgrep", {name: "dnsmasq", restartService: true}]
casks: ["firefox", {name: "google-chrome", greedy: true}]
`)
	if err != nil {
		t.Fatalf("LoadInline returned error: %v", err)
	}
	b := res.Bundle

	if len(b.Taps) != 2 {
		t.Fatalf("got %d taps, want 2", len(b.Taps))
	}
	if b.Taps[0].Name != "homebrew/services" || b.Taps[0].CloneTarget != "" {
		t.Errorf("string shorthand tap decoded wrong: %+v", b.Taps[0])
	}
	if b.Taps[1].CloneTarget != "git@example.org:me/private.git" {
		t.Errorf("record tap decoded wrong: %+v", b.Taps[1])
	}

	if len(b.Brews) != 2 {
		t.Fatalf("got %d brews, want 2", len(b.Brews))
	}
	if b.Brews[1].RestartService == nil || b.Brews[1].RestartService.Changed || !b.Brews[1].RestartService.Enabled {
		t.Errorf("restartService: true decoded wrong: %+v", b.Brews[1].RestartService)
	}

	if len(b.Casks) != 2 {
		t.Fatalf("got %d casks, want 2", len(b.Casks))
	}
	if b.Casks[1].Greedy == nil || !*b.Casks[1].Greedy {
		t.Errorf("cask record decoded wrong: %+v", b.Casks[1])
	}
}

func TestLoadInlineRestartServiceChanged(t *testing.T) {
	loader := NewLoader()
	res, err := loader.LoadInline(context.Background(), `
brews: [{name: "dnsmasq", restartService: "changed"}]
`)
	if err != nil {
		t.Fatalf("LoadInline returned error: %v", err)
	}
	rs := res.Bundle.Brews[0].RestartService
	if rs == nil || !rs.Changed {
		t.Errorf("restartService: \"changed\" decoded wrong: %+v", rs)
	}
}

func TestLoadInlineRestartServiceBadValue(t *testing.T) {
	loader := NewLoader()
	_, err := loader.LoadInline(context.Background(), `
brews: [{name: "dnsmasq", restartService: "sometimes"}]
`)
	if err == nil {
		t.Fatal("LoadInline accepted an invalid restartService value")
	}
	if !bundle.IsAuthoring(err) {
		t.Errorf("error is not an authoring error: %v", err)
	}
}

func TestLoadInlineRemovedOptions(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		replacement string
	}{
		{"top-level cleanup", `cleanup: "zap"`, "onActivation.cleanup"},
		{"top-level autoUpdate", `autoUpdate: true`, "onActivation.autoUpdate"},
		{"top-level upgrade", `upgrade: true`, "onActivation.upgrade"},
		{"global noLock", `global: noLock: true`, "global.lockfiles"},
	}

	loader := NewLoader()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loader.LoadInline(context.Background(), tt.content)
			if err == nil {
				t.Fatal("LoadInline accepted a removed option")
			}
			if !bundle.IsRemovedOption(err) {
				t.Fatalf("error is not a removed-option error: %v", err)
			}
			if !strings.Contains(err.Error(), tt.replacement) {
				t.Errorf("error %q does not name the replacement %q", err, tt.replacement)
			}
		})
	}
}

func TestLoadInlineAdvisory(t *testing.T) {
	loader := NewLoader()
	res, err := loader.LoadInline(context.Background(), `
global: lockfiles: true
`)
	if err != nil {
		t.Fatalf("LoadInline returned error: %v", err)
	}
	if len(res.Advisories) != 1 {
		t.Fatalf("got %d advisories, want 1: %v", len(res.Advisories), res.Advisories)
	}
	if res.Advisories[0].Field != "global.lockfiles" {
		t.Errorf("advisory field = %q, want global.lockfiles", res.Advisories[0].Field)
	}

	// With brewfile enabled the same setting is effective, so no advisory.
	res, err = loader.LoadInline(context.Background(), `
global: {brewfile: true, lockfiles: true}
`)
	if err != nil {
		t.Fatalf("LoadInline returned error: %v", err)
	}
	if len(res.Advisories) != 0 {
		t.Errorf("unexpected advisories: %v", res.Advisories)
	}
}

func TestLoadInlineNormalizes(t *testing.T) {
	loader := NewLoader()
	res, err := loader.LoadInline(context.Background(), `
masApps: {"Xcode": 497799835, "Keynote": 409183694}
`)
	if err != nil {
		t.Fatalf("LoadInline returned error: %v", err)
	}
	b := res.Bundle

	if len(b.MasApps) != 2 || b.MasApps[0].Name != "Keynote" {
		t.Errorf("MasApps not name-ordered: %+v", b.MasApps)
	}
	var hasMas bool
	for _, f := range b.Brews {
		if f.Name == "mas" {
			hasMas = true
		}
	}
	if !hasMas {
		t.Errorf("mas formula not injected: %+v", b.Brews)
	}
}

func TestLoadInlineValidation(t *testing.T) {
	loader := NewLoader()
	_, err := loader.LoadInline(context.Background(), `
masApps: {"Xcode": 0}
`)
	if err == nil {
		t.Fatal("LoadInline accepted a non-positive mas id")
	}

	_, err = loader.LoadInline(context.Background(), `
onActivation: cleanup: "obliterate"
`)
	if err == nil {
		t.Fatal("LoadInline accepted an invalid cleanup value")
	}
}

func TestLoadInlineGlobalAutoUpdateDefault(t *testing.T) {
	loader := NewLoader()
	res, err := loader.LoadInline(context.Background(), `global: brewfile: true`)
	if err != nil {
		t.Fatalf("LoadInline returned error: %v", err)
	}
	if !res.Bundle.Global.AutoUpdate {
		t.Error("global.autoUpdate default is false, want true")
	}

	res, err = loader.LoadInline(context.Background(), `global: autoUpdate: false`)
	if err != nil {
		t.Fatalf("LoadInline returned error: %v", err)
	}
	if res.Bundle.Global.AutoUpdate {
		t.Error("explicit global.autoUpdate: false was ignored")
	}
}

func TestLoadYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "desired.yaml")
	content := `
taps:
  - homebrew/services
brews:
  - ripgrep
  - name: dnsmasq
    restartService: changed
casks:
  - name: alfred
    args:
      appdir: ~/Applications
onActivation:
  cleanup: zap
  extraFlags: ["--verbose"]
global:
  brewfile: true
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	loader := NewLoader()
	res, err := loader.Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	b := res.Bundle

	if len(b.Taps) != 1 || b.Taps[0].Name != "homebrew/services" {
		t.Errorf("taps decoded wrong: %+v", b.Taps)
	}
	if len(b.Brews) != 2 || b.Brews[1].RestartService == nil || !b.Brews[1].RestartService.Changed {
		t.Errorf("brews decoded wrong: %+v", b.Brews)
	}
	if len(b.Casks) != 1 || b.Casks[0].Args == nil || b.Casks[0].Args.Appdir == nil {
		t.Fatalf("cask args decoded wrong: %+v", b.Casks)
	}
	if *b.Casks[0].Args.Appdir != "~/Applications" {
		t.Errorf("appdir = %q", *b.Casks[0].Args.Appdir)
	}
	if b.OnActivation.Cleanup != bundle.CleanupZap {
		t.Errorf("cleanup = %q, want zap", b.OnActivation.Cleanup)
	}

	manifest, err := b.Compile()
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}
	if !strings.Contains(manifest, `brew "dnsmasq", restart_service: :changed`) {
		t.Errorf("manifest missing restart_service symbol:\n%s", manifest)
	}
}

func TestLoadCUEFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "desired.cue")
	content := `
brews: ["ripgrep"]
casks: [{name: "firefox", greedy: true}]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	loader := NewLoader()
	res, err := loader.Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(res.Bundle.Brews) != 1 || len(res.Bundle.Casks) != 1 {
		t.Errorf("bundle decoded wrong: %+v", res.Bundle)
	}
	if len(res.SourceFiles) != 1 || res.SourceFiles[0] != path {
		t.Errorf("SourceFiles = %v, want [%s]", res.SourceFiles, path)
	}
}

func TestLoadUnsupportedExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "desired.toml")
	if err := os.WriteFile(path, []byte("x = 1"), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	loader := NewLoader()
	_, err := loader.Load(context.Background(), path)
	if err == nil {
		t.Fatal("Load accepted an unsupported format")
	}
	if !bundle.IsAuthoring(err) {
		t.Errorf("error is not an authoring error: %v", err)
	}
}

func TestGenerateHook(t *testing.T) {
	loader := NewLoader()
	res, err := loader.LoadInline(context.Background(), `
brews: ["ripgrep"]
generate: """
	extra_brews = ["jq-" + str(n) for n in [1]]
	extra_casks = ["firefox"] if "ripgrep" in brews else []
	"""
`)
	if err != nil {
		t.Fatalf("LoadInline returned error: %v", err)
	}
	b := res.Bundle

	names := make([]string, len(b.Brews))
	for i, f := range b.Brews {
		names[i] = f.Name
	}
	if len(b.Brews) != 2 || names[1] != "jq-1" {
		t.Errorf("generate hook brews not applied: %v", names)
	}
	if len(b.Casks) != 1 || b.Casks[0].Name != "firefox" {
		t.Errorf("generate hook casks not applied: %+v", b.Casks)
	}
}

func TestGenerateHookBadOutput(t *testing.T) {
	loader := NewLoader()
	_, err := loader.LoadInline(context.Background(), `
generate: "extra_brews = 42"
`)
	if err == nil {
		t.Fatal("LoadInline accepted a non-list generate output")
	}
	if !bundle.IsAuthoring(err) {
		t.Errorf("error is not an authoring error: %v", err)
	}
}
