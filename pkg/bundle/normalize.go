package bundle

import "sort"

// Normalize runs the explicit pre-compilation pass over a loaded bundle and
// returns the snapshot the compiler consumes. It resolves defaults, orders
// the Mac App Store apps by display name, and injects the formulae that the
// mas and whalebrew sections depend on. Normalize is idempotent: applying it
// to an already-normalized bundle changes nothing.
func Normalize(b Bundle) Bundle {
	out := b

	if out.OnActivation.Cleanup == "" {
		out.OnActivation.Cleanup = CleanupNone
	}
	if out.Global.Lockfiles == nil {
		v := out.Global.EffectiveLockfiles()
		out.Global.Lockfiles = &v
	}

	if len(out.MasApps) > 0 {
		apps := make([]MasApp, len(out.MasApps))
		copy(apps, out.MasApps)
		sort.Slice(apps, func(i, j int) bool { return apps[i].Name < apps[j].Name })
		out.MasApps = apps
	}

	// The mas and whalebrew CLIs are themselves formulae. Sections that need
	// them force the dependency in, append-if-absent so a user-declared
	// entry (possibly with options) is never duplicated.
	if len(out.MasApps) > 0 {
		out.Brews = appendIfAbsent(out.Brews, "mas")
	}
	if len(out.Whalebrews) > 0 {
		out.Brews = appendIfAbsent(out.Brews, "whalebrew")
	}

	return out
}

func appendIfAbsent(brews []Formula, name string) []Formula {
	for _, f := range brews {
		if f.Name == name {
			return brews
		}
	}
	out := make([]Formula, len(brews), len(brews)+1)
	copy(out, brews)
	return append(out, Formula{Name: name})
}
