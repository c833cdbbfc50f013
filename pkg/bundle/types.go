package bundle

// Tap references an external formula repository to register with Homebrew.
type Tap struct {
	// Name is the tap identifier in owner/repo form (e.g. "homebrew/services").
	Name string `json:"name" validate:"required"`

	// CloneTarget is an optional URL or local path to tap from instead of
	// the default GitHub location. Emitted as a positional argument.
	CloneTarget string `json:"clone_target,omitempty"`

	// ForceAutoUpdate forces auto-updating the tap even when Homebrew's
	// auto-update is otherwise disabled. Nil means unset.
	ForceAutoUpdate *bool `json:"force_auto_update,omitempty"`
}

// CaskArgs holds the directory and flag overrides passed to `brew cask`
// installs. All fields are optional; an unset field is omitted from the
// generated line entirely rather than emitted as null or empty. Field order
// here is the emission order.
type CaskArgs struct {
	// Appdir is the target directory for application bundles.
	Appdir *string `json:"appdir,omitempty"`

	// Colorpickerdir is the target directory for color pickers.
	Colorpickerdir *string `json:"colorpickerdir,omitempty"`

	// Prefpanedir is the target directory for preference panes.
	Prefpanedir *string `json:"prefpanedir,omitempty"`

	// Qlplugindir is the target directory for Quick Look plugins.
	Qlplugindir *string `json:"qlplugindir,omitempty"`

	// Mdimporterdir is the target directory for Spotlight importers.
	Mdimporterdir *string `json:"mdimporterdir,omitempty"`

	// Dictionarydir is the target directory for dictionaries.
	Dictionarydir *string `json:"dictionarydir,omitempty"`

	// Fontdir is the target directory for fonts.
	Fontdir *string `json:"fontdir,omitempty"`

	// Servicedir is the target directory for services.
	Servicedir *string `json:"servicedir,omitempty"`

	// InputMethoddir is the target directory for input methods.
	InputMethoddir *string `json:"input_methoddir,omitempty"`

	// InternetPlugindir is the target directory for internet plugins.
	InternetPlugindir *string `json:"internet_plugindir,omitempty"`

	// AudioUnitPlugindir is the target directory for audio unit plugins.
	AudioUnitPlugindir *string `json:"audio_unit_plugindir,omitempty"`

	// VstPlugindir is the target directory for VST plugins.
	VstPlugindir *string `json:"vst_plugindir,omitempty"`

	// Vst3Plugindir is the target directory for VST3 plugins.
	Vst3Plugindir *string `json:"vst3_plugindir,omitempty"`

	// ScreenSaverdir is the target directory for screen savers.
	ScreenSaverdir *string `json:"screen_saverdir,omitempty"`

	// Language is the comma-separated language preference order.
	Language *string `json:"language,omitempty"`

	// RequireSha aborts cask installs lacking a checksum.
	RequireSha *bool `json:"require_sha,omitempty"`

	// NoQuarantine disables the macOS quarantine attribute on installs.
	NoQuarantine *bool `json:"no_quarantine,omitempty"`

	// NoBinaries disables linking of helper binaries.
	NoBinaries *bool `json:"no_binaries,omitempty"`
}

// Dict projects the set fields into an ordered Dict, dropping unset ones.
// The result is empty when no field is set.
func (a CaskArgs) Dict() Dict {
	var d Dict
	addStr := func(key string, v *string) {
		if v != nil {
			d = append(d, Field{Key: key, Value: String(*v)})
		}
	}
	addBool := func(key string, v *bool) {
		if v != nil {
			d = append(d, Field{Key: key, Value: Bool(*v)})
		}
	}
	addStr("appdir", a.Appdir)
	addStr("colorpickerdir", a.Colorpickerdir)
	addStr("prefpanedir", a.Prefpanedir)
	addStr("qlplugindir", a.Qlplugindir)
	addStr("mdimporterdir", a.Mdimporterdir)
	addStr("dictionarydir", a.Dictionarydir)
	addStr("fontdir", a.Fontdir)
	addStr("servicedir", a.Servicedir)
	addStr("input_methoddir", a.InputMethoddir)
	addStr("internet_plugindir", a.InternetPlugindir)
	addStr("audio_unit_plugindir", a.AudioUnitPlugindir)
	addStr("vst_plugindir", a.VstPlugindir)
	addStr("vst3_plugindir", a.Vst3Plugindir)
	addStr("screen_saverdir", a.ScreenSaverdir)
	addStr("language", a.Language)
	addBool("require_sha", a.RequireSha)
	addBool("no_quarantine", a.NoQuarantine)
	addBool("no_binaries", a.NoBinaries)
	return d
}

// RestartService is the tri-state restart_service setting of a formula.
// Nil pointer means unset; Changed selects the bare `:changed` literal and
// otherwise Enabled serializes as a plain boolean.
type RestartService struct {
	// Changed restarts the service only when the formula changed. When set,
	// the line carries the bare symbol `:changed` instead of a boolean.
	Changed bool `json:"changed,omitempty"`

	// Enabled restarts (or not) the service on every apply. Ignored when
	// Changed is true.
	Enabled bool `json:"enabled,omitempty"`
}

// Formula is a command-line package (a `brew` directive).
type Formula struct {
	// Name is the formula name, optionally fully qualified with its tap.
	Name string `json:"name" validate:"required"`

	// Args are `--`-less install arguments (e.g. "with-rmtp").
	Args []string `json:"args,omitempty"`

	// ConflictsWith lists formulae that must not be installed alongside.
	ConflictsWith []string `json:"conflicts_with,omitempty"`

	// RestartService controls service restarts on apply. Nil means unset.
	RestartService *RestartService `json:"restart_service,omitempty"`

	// StartService starts the formula's service after install. Nil means unset.
	StartService *bool `json:"start_service,omitempty"`

	// Link controls linking of the formula into the Homebrew prefix.
	Link *bool `json:"link,omitempty"`
}

// Cask is a GUI application package (a `cask` directive).
type Cask struct {
	// Name is the cask name.
	Name string `json:"name" validate:"required"`

	// Args overrides the global cask arguments for this cask only.
	Args *CaskArgs `json:"args,omitempty"`

	// Greedy forces upgrades of version-pinned or self-updating casks.
	Greedy *bool `json:"greedy,omitempty"`
}

// MasApp is a Mac App Store application (a `mas` directive).
type MasApp struct {
	// Name is the display name shown in the App Store.
	Name string `json:"name" validate:"required"`

	// ID is the numeric App Store identifier.
	ID int64 `json:"id" validate:"gt=0"`
}

// Cleanup selects how packages absent from the manifest are handled during
// activation.
type Cleanup string

const (
	// CleanupNone leaves untracked packages alone.
	CleanupNone Cleanup = "none"

	// CleanupUninstall uninstalls untracked formulae and casks.
	CleanupUninstall Cleanup = "uninstall"

	// CleanupZap uninstalls untracked packages and removes all data
	// associated with untracked casks.
	CleanupZap Cleanup = "zap"
)

// OnActivation controls the `brew bundle` invocation that applies the
// manifest during system activation.
type OnActivation struct {
	// Cleanup selects removal of packages not listed in the manifest.
	Cleanup Cleanup `json:"cleanup" validate:"omitempty,oneof=none uninstall zap"`

	// AutoUpdate lets Homebrew auto-update during activation. When false,
	// the activation command is prefixed with HOMEBREW_NO_AUTO_UPDATE=1.
	AutoUpdate bool `json:"auto_update"`

	// Upgrade upgrades outdated packages during activation. When false,
	// the activation command carries --no-upgrade.
	Upgrade bool `json:"upgrade"`

	// ExtraFlags are appended verbatim, in order, to the activation command.
	ExtraFlags []string `json:"extra_flags,omitempty"`
}

// Global controls Homebrew behavior for manual `brew` invocations, exposed
// as ambient environment variables rather than command-line flags.
type Global struct {
	// Brewfile points manual `brew bundle` runs at the generated manifest
	// via HOMEBREW_BUNDLE_FILE.
	Brewfile bool `json:"brewfile"`

	// AutoUpdate lets Homebrew auto-update on manual invocations. When
	// false, HOMEBREW_NO_AUTO_UPDATE=1 is exported.
	AutoUpdate bool `json:"auto_update"`

	// Lockfiles lets manual `brew bundle` runs write lockfiles. Defaults to
	// the negation of Brewfile (a managed manifest lives in a read-only
	// location, so lockfile writes would fail). Nil means unset; Normalize
	// resolves it.
	Lockfiles *bool `json:"lockfiles,omitempty"`
}

// EffectiveLockfiles resolves the Lockfiles default.
func (g Global) EffectiveLockfiles() bool {
	if g.Lockfiles != nil {
		return *g.Lockfiles
	}
	return !g.Brewfile
}

// Bundle is the top-level compilation unit: a complete, validated snapshot
// of desired Homebrew state. The compiler never mutates it.
type Bundle struct {
	// Taps are the formula repositories to register, in declared order.
	Taps []Tap `json:"taps,omitempty" validate:"dive"`

	// CaskArgs are the global arguments applied to all casks.
	CaskArgs CaskArgs `json:"cask_args,omitempty"`

	// Brews are the formulae to install, in declared order.
	Brews []Formula `json:"brews,omitempty" validate:"dive"`

	// Casks are the GUI packages to install, in declared order.
	Casks []Cask `json:"casks,omitempty" validate:"dive"`

	// MasApps are the Mac App Store apps to install. Normalize orders them
	// by display name so the manifest is deterministic.
	MasApps []MasApp `json:"mas_apps,omitempty" validate:"dive"`

	// Whalebrews are the whalebrew image identifiers to install.
	Whalebrews []string `json:"whalebrews,omitempty"`

	// ExtraConfig is free-form text appended verbatim to the manifest.
	ExtraConfig string `json:"extra_config,omitempty"`

	// OnActivation controls the activation-time `brew bundle` run.
	OnActivation OnActivation `json:"on_activation"`

	// Global controls ambient Homebrew environment for manual invocations.
	Global Global `json:"global"`
}
