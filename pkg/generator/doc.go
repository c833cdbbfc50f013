// Package generator orchestrates the manifest pipeline: load and validate
// the configuration, evaluate policies, compile the Brewfile, write it
// atomically, and record the generation in the ledger.
//
// # Overview
//
// A Generator is built from a config loader, a policy engine, and an
// optional ledger store. One call to Generate runs the whole pipeline and
// returns everything a caller needs: the normalized bundle, the manifest
// text, the derived environment and activation command, policy results,
// and the ledger record.
//
// The manifest write is content-addressed. When the ledger holds a previous
// generation for the same source with the same SHA-256 and the manifest
// file already matches, the write is skipped and the result is marked
// unchanged.
package generator
