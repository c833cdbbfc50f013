package bundle

import (
	"reflect"
	"strings"
	"testing"
)

func TestEnvironmentOnlyBundleFile(t *testing.T) {
	g := Global{Brewfile: true, AutoUpdate: true, Lockfiles: boolPtr(true)}
	env := Environment(g, "/etc/brewplan/Brewfile")

	want := map[string]string{"HOMEBREW_BUNDLE_FILE": "/etc/brewplan/Brewfile"}
	if !reflect.DeepEqual(env, want) {
		t.Errorf("Environment = %v, want %v", env, want)
	}
}

func TestEnvironmentTriggers(t *testing.T) {
	tests := []struct {
		name   string
		global Global
		want   map[string]string
	}{
		{
			name:   "all defaults off",
			global: Global{AutoUpdate: true, Lockfiles: boolPtr(true)},
			want:   map[string]string{},
		},
		{
			name:   "auto update disabled",
			global: Global{AutoUpdate: false, Lockfiles: boolPtr(true)},
			want:   map[string]string{"HOMEBREW_NO_AUTO_UPDATE": "1"},
		},
		{
			name:   "lockfiles disabled",
			global: Global{AutoUpdate: true, Lockfiles: boolPtr(false)},
			want:   map[string]string{"HOMEBREW_BUNDLE_NO_LOCK": "1"},
		},
		{
			name:   "lockfiles default follows brewfile",
			global: Global{Brewfile: true, AutoUpdate: true},
			want: map[string]string{
				"HOMEBREW_BUNDLE_FILE":    "/b",
				"HOMEBREW_BUNDLE_NO_LOCK": "1",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := Environment(tt.global, "/b")
			if !reflect.DeepEqual(env, tt.want) {
				t.Errorf("Environment = %v, want %v", env, tt.want)
			}
		})
	}
}

func TestActivationCommandFullPolicy(t *testing.T) {
	p := OnActivation{
		AutoUpdate: false,
		Upgrade:    false,
		Cleanup:    CleanupZap,
		ExtraFlags: []string{"--verbose"},
	}

	got := ActivationCommand(p, "/etc/brewplan/Brewfile")
	want := "HOMEBREW_NO_AUTO_UPDATE=1 brew bundle --file='/etc/brewplan/Brewfile' --no-lock --no-upgrade --cleanup --zap --verbose"
	if got != want {
		t.Errorf("ActivationCommand = %q, want %q", got, want)
	}
}

func TestActivationCommandCleanupSelector(t *testing.T) {
	tests := []struct {
		cleanup Cleanup
		want    string
	}{
		{CleanupNone, ""},
		{CleanupUninstall, " --cleanup"},
		{CleanupZap, " --cleanup --zap"},
	}

	for _, tt := range tests {
		t.Run(string(tt.cleanup), func(t *testing.T) {
			p := OnActivation{AutoUpdate: true, Upgrade: true, Cleanup: tt.cleanup}
			got := ActivationCommand(p, "/b")

			want := "brew bundle --file='/b' --no-lock" + tt.want
			if got != want {
				t.Errorf("ActivationCommand = %q, want %q", got, want)
			}
			if strings.Count(got, "--cleanup") > 1 || strings.Count(got, "--zap") > 1 {
				t.Errorf("ActivationCommand duplicated a flag: %q", got)
			}
		})
	}
}

func TestActivationCommandPermissivePolicy(t *testing.T) {
	p := OnActivation{AutoUpdate: true, Upgrade: true, Cleanup: CleanupNone}
	got := ActivationCommand(p, "/b")
	if want := "brew bundle --file='/b' --no-lock"; got != want {
		t.Errorf("ActivationCommand = %q, want %q", got, want)
	}
	if strings.Contains(got, "HOMEBREW_NO_AUTO_UPDATE") {
		t.Errorf("ActivationCommand carries auto-update prefix with auto-update enabled: %q", got)
	}
}

func TestActivationCommandExtraFlagOrder(t *testing.T) {
	p := OnActivation{AutoUpdate: true, Upgrade: true, ExtraFlags: []string{"--verbose", "--debug"}}
	got := ActivationCommand(p, "/b")
	if !strings.HasSuffix(got, " --verbose --debug") {
		t.Errorf("ActivationCommand extra flags out of order: %q", got)
	}
}
