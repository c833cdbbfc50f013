// Package bundle implements the Brewfile compiler at the heart of brewplan.
//
// # Overview
//
// The bundle package turns a typed, already-validated description of desired
// Homebrew state (taps, formulae, casks, Mac App Store apps, whalebrew images,
// cask arguments) into the text of a Brewfile manifest, and derives the
// environment variables and `brew bundle` invocation needed to apply that
// manifest during activation.
//
// Every function in this package is a pure derivation over an immutable
// Bundle snapshot: no I/O, no process execution, no shared state. Identical
// input always produces byte-identical output, which matters because the
// manifest is regenerated on every activation and compared against the
// previous one.
//
// # Components
//
// Value and Serialize: the closed set of literal shapes a Brewfile option can
// take (bool, int, float, string, list, ordered dict) and the serializer that
// renders them in Brewfile literal syntax.
//
// Entry generators: one per entity kind, producing a single Brewfile
// directive line (or nothing, for an entirely unset cask_args record).
//
// Compile: assembles the fixed-order sections into the final manifest text,
// omitting empty sections and prefixing the provenance header.
//
// Environment and ActivationCommand: derive the HOMEBREW_* variable set and
// the activation shell command from the same Bundle snapshot.
//
// Normalize: the explicit pre-compilation pass that resolves defaults, orders
// the Mac App Store map, and injects the `mas`/`whalebrew` formulae their
// sections depend on (append-if-absent, never duplicated).
//
// # Usage Example
//
//	b := bundle.Normalize(loaded)
//	manifest, err := b.Compile()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	env := bundle.Environment(b.Global, path)
//	cmd := bundle.ActivationCommand(b.OnActivation, path)
package bundle
