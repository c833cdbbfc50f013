package bundle

import "testing"

func boolPtr(v bool) *bool    { return &v }
func strPtr(v string) *string { return &v }

func TestTapLine(t *testing.T) {
	tests := []struct {
		name string
		tap  Tap
		want string
	}{
		{
			name: "name only",
			tap:  Tap{Name: "homebrew/services"},
			want: `tap "homebrew/services"`,
		},
		{
			name: "clone target is positional",
			tap:  Tap{Name: "me/private", CloneTarget: "git@github.com:me/private.git"},
			want: `tap "me/private", "git@github.com:me/private.git"`,
		},
		{
			name: "force auto update",
			tap:  Tap{Name: "me/private", ForceAutoUpdate: boolPtr(true)},
			want: `tap "me/private", force_auto_update: true`,
		},
		{
			name: "all fields",
			tap: Tap{
				Name:            "me/private",
				CloneTarget:     "https://example.org/me/private.git",
				ForceAutoUpdate: boolPtr(false),
			},
			want: `tap "me/private", "https://example.org/me/private.git", force_auto_update: false`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tapLine(tt.tap)
			if err != nil {
				t.Fatalf("tapLine returned error: %v", err)
			}
			if got != tt.want {
				t.Errorf("tapLine = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCaskArgsLine(t *testing.T) {
	line, ok, err := caskArgsLine(CaskArgs{Appdir: strPtr("/A")})
	if err != nil {
		t.Fatalf("caskArgsLine returned error: %v", err)
	}
	if !ok {
		t.Fatal("caskArgsLine declined to emit with a field set")
	}
	if want := `cask_args appdir: "/A"`; line != want {
		t.Errorf("caskArgsLine = %q, want %q", line, want)
	}
}

func TestCaskArgsLineEmptyEmitsNothing(t *testing.T) {
	line, ok, err := caskArgsLine(CaskArgs{})
	if err != nil {
		t.Fatalf("caskArgsLine returned error: %v", err)
	}
	if ok {
		t.Errorf("caskArgsLine emitted %q for an entirely unset record", line)
	}
}

func TestCaskArgsLineFieldOrder(t *testing.T) {
	line, ok, err := caskArgsLine(CaskArgs{
		RequireSha: boolPtr(true),
		Appdir:     strPtr("~/Applications"),
		Language:   strPtr("en-GB,en"),
	})
	if err != nil || !ok {
		t.Fatalf("caskArgsLine ok=%v err=%v", ok, err)
	}
	// Declaration order, not the order fields were set in.
	want := `cask_args appdir: "~/Applications", language: "en-GB,en", require_sha: true`
	if line != want {
		t.Errorf("caskArgsLine = %q, want %q", line, want)
	}
}

func TestBrewLine(t *testing.T) {
	tests := []struct {
		name    string
		formula Formula
		want    string
	}{
		{
			name:    "name only",
			formula: Formula{Name: "ripgrep"},
			want:    `brew "ripgrep"`,
		},
		{
			name:    "args list",
			formula: Formula{Name: "denji/nginx/nginx-full", Args: []string{"with-rmtp"}},
			want:    `brew "denji/nginx/nginx-full", args: ["with-rmtp"]`,
		},
		{
			name:    "conflicts with",
			formula: Formula{Name: "mysql", ConflictsWith: []string{"mariadb", "percona-server"}},
			want:    `brew "mysql", conflicts_with: ["mariadb", "percona-server"]`,
		},
		{
			name:    "restart service boolean",
			formula: Formula{Name: "dnsmasq", RestartService: &RestartService{Enabled: true}},
			want:    `brew "dnsmasq", restart_service: true`,
		},
		{
			name:    "restart service on change is a bare symbol",
			formula: Formula{Name: "dnsmasq", RestartService: &RestartService{Changed: true}},
			want:    `brew "dnsmasq", restart_service: :changed`,
		},
		{
			name: "restart service comes last",
			formula: Formula{
				Name:           "nginx-full",
				Args:           []string{"with-rmtp"},
				RestartService: &RestartService{Changed: true},
				StartService:   boolPtr(true),
				Link:           boolPtr(true),
			},
			want: `brew "nginx-full", args: ["with-rmtp"], start_service: true, link: true, restart_service: :changed`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := brewLine(tt.formula)
			if err != nil {
				t.Fatalf("brewLine returned error: %v", err)
			}
			if got != tt.want {
				t.Errorf("brewLine = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCaskLine(t *testing.T) {
	tests := []struct {
		name string
		cask Cask
		want string
	}{
		{
			name: "name only",
			cask: Cask{Name: "firefox"},
			want: `cask "firefox"`,
		},
		{
			name: "greedy",
			cask: Cask{Name: "google-chrome", Greedy: boolPtr(true)},
			want: `cask "google-chrome", greedy: true`,
		},
		{
			name: "nested args dict",
			cask: Cask{Name: "alfred", Args: &CaskArgs{Appdir: strPtr("~/Applications"), RequireSha: boolPtr(true)}},
			want: `cask "alfred", args: { appdir: "~/Applications", require_sha: true }`,
		},
		{
			name: "empty args record drops the key",
			cask: Cask{Name: "alfred", Args: &CaskArgs{}},
			want: `cask "alfred"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := caskLine(tt.cask)
			if err != nil {
				t.Fatalf("caskLine returned error: %v", err)
			}
			if got != tt.want {
				t.Errorf("caskLine = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMasLine(t *testing.T) {
	got, err := masLine(MasApp{Name: "Xcode", ID: 497799835})
	if err != nil {
		t.Fatalf("masLine returned error: %v", err)
	}
	if want := `mas "Xcode", id: 497799835`; got != want {
		t.Errorf("masLine = %q, want %q", got, want)
	}
}

func TestWhalebrewLine(t *testing.T) {
	got, err := whalebrewLine("whalebrew/wget")
	if err != nil {
		t.Fatalf("whalebrewLine returned error: %v", err)
	}
	if want := `whalebrew "whalebrew/wget"`; got != want {
		t.Errorf("whalebrewLine = %q, want %q", got, want)
	}
}
