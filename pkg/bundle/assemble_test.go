package bundle

import (
	"strings"
	"testing"
)

func TestCompileEmptyBundleIsHeaderOnly(t *testing.T) {
	b := Normalize(Bundle{})
	got, err := b.Compile()
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}
	if got != Header {
		t.Errorf("Compile = %q, want just the header %q", got, Header)
	}
}

func TestCompileSectionOrderAndShape(t *testing.T) {
	b := Normalize(Bundle{
		Taps:        []Tap{{Name: "homebrew/services"}},
		CaskArgs:    CaskArgs{Appdir: strPtr("/A")},
		Brews:       []Formula{{Name: "ripgrep"}, {Name: "jq"}},
		Casks:       []Cask{{Name: "firefox"}},
		MasApps:     []MasApp{{Name: "Xcode", ID: 497799835}},
		Whalebrews:  []string{"whalebrew/wget"},
		ExtraConfig: "# weekly cleanup\n",
	})

	got, err := b.Compile()
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}

	want := Header +
		"# Taps\n" +
		"tap \"homebrew/services\"\n" +
		"\n" +
		"# Arguments for all casks\n" +
		"cask_args appdir: \"/A\"\n" +
		"\n" +
		"# Brews\n" +
		"brew \"ripgrep\"\n" +
		"brew \"jq\"\n" +
		"brew \"mas\"\n" +
		"brew \"whalebrew\"\n" +
		"\n" +
		"# Casks\n" +
		"cask \"firefox\"\n" +
		"\n" +
		"# Mac App Store apps\n" +
		"mas \"Xcode\", id: 497799835\n" +
		"\n" +
		"# Docker containers\n" +
		"whalebrew \"whalebrew/wget\"\n" +
		"\n" +
		"# Extra config\n" +
		"# weekly cleanup\n"

	if got != want {
		t.Errorf("Compile output mismatch:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestCompileEmptySectionsOmitted(t *testing.T) {
	b := Normalize(Bundle{Brews: []Formula{{Name: "ripgrep"}}})
	got, err := b.Compile()
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}

	for _, heading := range []string{
		"# Taps", "# Arguments for all casks", "# Casks",
		"# Mac App Store apps", "# Docker containers", "# Extra config",
	} {
		if strings.Contains(got, heading) {
			t.Errorf("Compile output contains %q for an empty section:\n%s", heading, got)
		}
	}
	if !strings.Contains(got, "# Brews\nbrew \"ripgrep\"\n\n") {
		t.Errorf("Compile output missing Brews section:\n%s", got)
	}
}

func TestCompileCaskArgsEmission(t *testing.T) {
	withArgs := Normalize(Bundle{CaskArgs: CaskArgs{Appdir: strPtr("/A")}})
	got, err := withArgs.Compile()
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}
	if !strings.Contains(got, "# Arguments for all casks\ncask_args appdir: \"/A\"\n") {
		t.Errorf("Compile output missing cask_args section:\n%s", got)
	}

	empty := Normalize(Bundle{CaskArgs: CaskArgs{}})
	got, err = empty.Compile()
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}
	if strings.Contains(got, "cask_args") {
		t.Errorf("Compile emitted cask_args for an empty record:\n%s", got)
	}
}

func TestCompileExtraConfigNewlineAdded(t *testing.T) {
	b := Normalize(Bundle{ExtraConfig: "cask \"java\" unless system \"/usr/libexec/java_home --failfast\""})
	got, err := b.Compile()
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}
	if !strings.HasSuffix(got, "--failfast\"\n") {
		t.Errorf("Compile output does not end with a newline:\n%q", got)
	}
}

func TestCompileDeterministic(t *testing.T) {
	b := Normalize(Bundle{
		Taps:    []Tap{{Name: "homebrew/services"}, {Name: "me/private", CloneTarget: "x"}},
		Brews:   []Formula{{Name: "ripgrep", RestartService: &RestartService{Changed: true}}},
		Casks:   []Cask{{Name: "firefox", Greedy: boolPtr(true)}},
		MasApps: []MasApp{{Name: "Numbers", ID: 409203825}, {Name: "Keynote", ID: 409183694}},
	})

	first, err := b.Compile()
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := b.Compile()
		if err != nil {
			t.Fatalf("Compile returned error on repeat %d: %v", i, err)
		}
		if again != first {
			t.Fatalf("Compile output changed between identical invocations:\nfirst:\n%s\nrepeat:\n%s", first, again)
		}
	}
}
