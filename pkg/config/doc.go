// Package config loads user configuration into a normalized bundle.Bundle.
//
// # Overview
//
// The config package is the front end of brewplan: it parses CUE or YAML
// sources, coerces string shorthands into full records, rejects removed
// options, validates the result, runs the optional Starlark generate hook,
// and hands a fully-normalized snapshot to the compiler. The compiler in
// pkg/bundle never sees partially-coerced input.
//
// # Features
//
//   - CUE configuration parsing from files, directories, and inline content
//   - YAML configuration parsing with the same schema
//   - String-or-record shorthand for taps, brews, and casks
//   - Removed-option detection with the replacement field named in the error
//   - Non-fatal advisories for options whose effect changed
//   - Struct validation via go-playground/validator tags
//   - Optional Starlark hook contributing computed entries
//
// # Configuration schema
//
// Top-level keys (camelCase): taps, caskArgs, brews, casks, masApps,
// whalebrews, extraConfig, onActivation (cleanup, autoUpdate, upgrade,
// extraFlags), global (brewfile, autoUpdate, lockfiles), generate.
//
// List entries in taps, brews, and casks may be either a bare string name or
// a record; a bare string stands for a record with only the name set.
//
// # Usage Example
//
//	loader := config.NewLoader()
//	res, err := loader.Load(ctx, "desired.cue")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, adv := range res.Advisories {
//	    log.Warn(adv.String())
//	}
//	manifest, err := res.Bundle.Compile()
package config
