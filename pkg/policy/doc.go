// Package policy provides Rego-based policy enforcement over a desired
// Homebrew state bundle.
//
// # Overview
//
// Policies are OPA Rego modules evaluated against the normalized bundle
// before compilation. Built-in policies cover the invariants every bundle
// should satisfy (tap naming, duplicate packages, Mac App Store id range);
// user policies are loaded from .rego or .json files and can be hot-reloaded
// via fsnotify when running in watch mode.
//
// A policy expresses violations through a `deny` set in its package; each
// element is either a message string or an object with message, severity,
// and entity keys. Severity error or critical marks the bundle as not
// allowed; info and warning are advisory.
//
// # Usage Example
//
//	eng, err := policy.NewEngine(logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := eng.LoadPolicies(ctx, []string{"policies/"}); err != nil {
//	    log.Fatal(err)
//	}
//	res, err := eng.Evaluate(ctx, &b)
//	if !res.Allowed {
//	    // refuse to write the manifest
//	}
package policy
