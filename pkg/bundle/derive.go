package bundle

import (
	"fmt"
	"strings"
)

// Environment variable names understood by Homebrew and `brew bundle`.
const (
	envBundleFile   = "HOMEBREW_BUNDLE_FILE"
	envNoAutoUpdate = "HOMEBREW_NO_AUTO_UPDATE"
	envBundleNoLock = "HOMEBREW_BUNDLE_NO_LOCK"
)

// Environment derives the ambient variable set for manual Homebrew
// invocations. A variable is present only when its triggering condition
// holds; there is no "disabled" sentinel value.
func Environment(g Global, manifestPath string) map[string]string {
	env := make(map[string]string)
	if g.Brewfile {
		env[envBundleFile] = manifestPath
	}
	if !g.AutoUpdate {
		env[envNoAutoUpdate] = "1"
	}
	if !g.EffectiveLockfiles() {
		env[envBundleNoLock] = "1"
	}
	return env
}

// ActivationCommand derives the single shell command that applies the
// manifest during activation. Pieces are concatenated in fixed order: the
// optional auto-update suppression prefix, the base bundle invocation with
// the no-lock flag, the optional no-upgrade flag, the cleanup selector, and
// any extra flags verbatim. Exactly one cleanup form is emitted per policy.
func ActivationCommand(p OnActivation, manifestPath string) string {
	var sb strings.Builder
	if !p.AutoUpdate {
		sb.WriteString(envNoAutoUpdate + "=1 ")
	}
	fmt.Fprintf(&sb, "brew bundle --file='%s' --no-lock", manifestPath)
	if !p.Upgrade {
		sb.WriteString(" --no-upgrade")
	}
	switch p.Cleanup {
	case CleanupUninstall:
		sb.WriteString(" --cleanup")
	case CleanupZap:
		sb.WriteString(" --cleanup --zap")
	}
	for _, flag := range p.ExtraFlags {
		sb.WriteByte(' ')
		sb.WriteString(flag)
	}
	return sb.String()
}
