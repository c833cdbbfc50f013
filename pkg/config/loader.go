package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/brewplan/brewplan/pkg/bundle"
)

// removedOptions maps options that no longer exist to their replacements.
// Using one is a fatal error, not a silent migration.
var removedOptions = map[string]string{
	"cleanup":    "onActivation.cleanup",
	"autoUpdate": "onActivation.autoUpdate",
	"upgrade":    "onActivation.upgrade",
	"noLock":     "global.lockfiles",
}

// removedGlobalOptions covers removed fields nested under global.
var removedGlobalOptions = map[string]string{
	"noLock": "global.lockfiles",
}

// Loader parses brewplan configuration from CUE or YAML sources.
type Loader struct {
	cuectx    *cue.Context
	validate  *validator.Validate
	generator *Evaluator
}

// NewLoader creates a loader with a fresh CUE context and a 30 second
// Starlark budget.
func NewLoader() *Loader {
	return &Loader{
		cuectx:    cuecontext.New(),
		validate:  validator.New(),
		generator: NewEvaluator(30 * time.Second),
	}
}

// Load reads the configuration at path. Directories are loaded as a CUE
// package; files dispatch on extension (.cue, .yaml, .yml).
func (l *Loader) Load(ctx context.Context, path string) (*LoadResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat source %s: %w", path, err)
	}
	if info.IsDir() {
		return l.loadCUEDir(ctx, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read source %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		return l.loadCUE(ctx, string(data), path)
	case ".yaml", ".yml":
		return l.loadYAML(ctx, data, path)
	default:
		return nil, bundle.NewAuthoringError("unsupported configuration format", nil).
			WithDetail("path", path)
	}
}

// LoadInline parses inline CUE content, mainly for tests and tooling.
func (l *Loader) LoadInline(ctx context.Context, content string) (*LoadResult, error) {
	return l.loadCUE(ctx, content, "inline")
}

func (l *Loader) loadCUE(ctx context.Context, content, filename string) (*LoadResult, error) {
	val := l.cuectx.CompileString(content, cue.Filename(filename))
	if err := val.Err(); err != nil {
		return nil, cueError(err)
	}
	if err := val.Validate(cue.Concrete(true)); err != nil {
		return nil, cueError(err)
	}
	data, err := val.MarshalJSON()
	if err != nil {
		return nil, cueError(err)
	}
	return l.build(ctx, data, []string{filename})
}

func (l *Loader) loadCUEDir(ctx context.Context, dir string) (*LoadResult, error) {
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, bundle.NewAuthoringError("no CUE files found", nil).WithDetail("dir", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, cueError(inst.Err)
	}

	val := l.cuectx.BuildInstance(inst)
	if err := val.Err(); err != nil {
		return nil, cueError(err)
	}
	if err := val.Validate(cue.Concrete(true)); err != nil {
		return nil, cueError(err)
	}
	data, err := val.MarshalJSON()
	if err != nil {
		return nil, cueError(err)
	}

	var files []string
	for _, f := range inst.Files {
		if f.Filename != "" {
			files = append(files, f.Filename)
		}
	}
	return l.build(ctx, data, files)
}

func (l *Loader) loadYAML(ctx context.Context, data []byte, filename string) (*LoadResult, error) {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, bundle.NewAuthoringError("invalid YAML configuration", err).
			WithDetail("path", filename)
	}
	if doc == nil {
		doc = map[string]interface{}{}
	}
	// Funnel through JSON so shorthand coercion is shared with the CUE path.
	jsonData, err := json.Marshal(doc)
	if err != nil {
		return nil, bundle.NewAuthoringError("configuration is not JSON-representable", err).
			WithDetail("path", filename)
	}
	return l.build(ctx, jsonData, []string{filename})
}

// build runs the shared pipeline: removed-option check, strict decode,
// advisories, Starlark hook, validation, normalization.
func (l *Loader) build(ctx context.Context, data []byte, sources []string) (*LoadResult, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, bundle.NewAuthoringError("configuration must be a mapping at top level", err)
	}
	if err := checkRemoved(top); err != nil {
		return nil, err
	}

	var raw rawConfig
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, asConfigError(err)
	}

	var advisories []bundle.Advisory
	if raw.Global.Lockfiles != nil && !raw.Global.Brewfile {
		advisories = append(advisories, bundle.Advisory{
			Field:   "global.lockfiles",
			Message: "has no effect while global.brewfile is disabled",
		})
	}

	b := l.toBundle(raw)

	if raw.Generate != "" {
		if err := l.applyGenerated(ctx, &b, raw.Generate); err != nil {
			return nil, err
		}
	}

	normalized := bundle.Normalize(b)
	if err := l.validate.Struct(normalized); err != nil {
		return nil, bundle.NewAuthoringError("configuration failed validation", err)
	}

	return &LoadResult{
		Bundle:      normalized,
		Advisories:  advisories,
		SourceFiles: sources,
		LoadedAt:    time.Now(),
	}, nil
}

func (l *Loader) toBundle(raw rawConfig) bundle.Bundle {
	b := bundle.Bundle{
		CaskArgs:    raw.CaskArgs,
		Whalebrews:  raw.Whalebrews,
		ExtraConfig: raw.ExtraConfig,
		OnActivation: bundle.OnActivation{
			Cleanup:    bundle.Cleanup(raw.OnActivation.Cleanup),
			AutoUpdate: raw.OnActivation.AutoUpdate,
			Upgrade:    raw.OnActivation.Upgrade,
			ExtraFlags: raw.OnActivation.ExtraFlags,
		},
		Global: bundle.Global{
			Brewfile:   raw.Global.Brewfile,
			AutoUpdate: raw.Global.AutoUpdate == nil || *raw.Global.AutoUpdate,
			Lockfiles:  raw.Global.Lockfiles,
		},
	}
	for _, t := range raw.Taps {
		b.Taps = append(b.Taps, t.Tap)
	}
	for _, f := range raw.Brews {
		b.Brews = append(b.Brews, f.Formula)
	}
	for _, c := range raw.Casks {
		b.Casks = append(b.Casks, c.Cask)
	}
	for name, id := range raw.MasApps {
		b.MasApps = append(b.MasApps, bundle.MasApp{Name: name, ID: id})
	}
	return b
}

func checkRemoved(top map[string]json.RawMessage) error {
	for field, replacement := range removedOptions {
		if _, ok := top[field]; ok {
			return bundle.NewRemovedOptionError(field, replacement)
		}
	}
	if rawGlobal, ok := top["global"]; ok {
		var g map[string]json.RawMessage
		if err := json.Unmarshal(rawGlobal, &g); err == nil {
			for field, replacement := range removedGlobalOptions {
				if _, ok := g[field]; ok {
					return bundle.NewRemovedOptionError("global."+field, replacement)
				}
			}
		}
	}
	return nil
}

// asConfigError surfaces a wrapped ConfigError as-is and classifies
// everything else as an authoring error.
func asConfigError(err error) error {
	var ce *bundle.ConfigError
	if errors.As(err, &ce) {
		return ce
	}
	return bundle.NewAuthoringError("invalid configuration", err)
}

func cueError(err error) error {
	ce := bundle.NewAuthoringError(cueerrors.Details(err, nil), nil)
	if positions := cueerrors.Positions(err); len(positions) > 0 {
		ce = ce.WithDetail("file", positions[0].Filename()).
			WithDetail("line", positions[0].Line())
	}
	return ce
}
