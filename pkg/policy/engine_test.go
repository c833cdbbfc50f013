package policy

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/brewplan/brewplan/pkg/bundle"
)

func testEngine(t *testing.T) *Engine {
	t.Helper()
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	eng, err := NewEngine(logger)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	return eng
}

func TestNewEngine(t *testing.T) {
	eng := testEngine(t)

	// Check that built-in policies are loaded
	policies := eng.ListPolicies()
	if len(policies) == 0 {
		t.Fatal("No built-in policies loaded")
	}

	expectedPolicies := []string{
		"tap-naming",
		"duplicate-packages",
		"mas-id-range",
		"greedy-cask-review",
	}

	for _, expected := range expectedPolicies {
		found := false
		for _, p := range policies {
			if p.Name == expected {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("Expected built-in policy not found: %s", expected)
		}
	}
}

func TestEvaluate_TapNaming(t *testing.T) {
	eng := testEngine(t)

	tests := []struct {
		name        string
		tapName     string
		wantAllowed bool
	}{
		{
			name:        "valid user/repo tap",
			tapName:     "homebrew/services",
			wantAllowed: true,
		},
		{
			name:        "bare tap name",
			tapName:     "services",
			wantAllowed: false,
		},
		{
			name:        "tap with extra segment",
			tapName:     "a/b/c",
			wantAllowed: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &bundle.Bundle{
				Taps: []bundle.Tap{{Name: tt.tapName}},
			}

			result, err := eng.Evaluate(context.Background(), b)
			if err != nil {
				t.Fatalf("Evaluation failed: %v", err)
			}
			if result.Allowed != tt.wantAllowed {
				t.Errorf("Allowed = %v, want %v (violations: %+v)",
					result.Allowed, tt.wantAllowed, result.Violations)
			}
		})
	}
}

func TestEvaluate_DuplicatePackages(t *testing.T) {
	eng := testEngine(t)

	b := &bundle.Bundle{
		Brews: []bundle.Formula{
			{Name: "git"},
			{Name: "jq"},
			{Name: "git"},
		},
	}

	result, err := eng.Evaluate(context.Background(), b)
	if err != nil {
		t.Fatalf("Evaluation failed: %v", err)
	}
	if result.Allowed {
		t.Error("Expected duplicate formulae to be denied")
	}

	found := false
	for _, v := range result.Violations {
		if v.Policy == "duplicate-packages" && v.Entity == "git" {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected duplicate-packages violation for git, got %+v", result.Violations)
	}
}

func TestEvaluate_DuplicateAcrossTaps(t *testing.T) {
	eng := testEngine(t)

	b := &bundle.Bundle{
		Taps: []bundle.Tap{{Name: "someone/tap"}},
		Brews: []bundle.Formula{
			{Name: "git"},
			{Name: "someone/tap/git"},
		},
	}

	result, err := eng.Evaluate(context.Background(), b)
	if err != nil {
		t.Fatalf("Evaluation failed: %v", err)
	}
	if result.Allowed {
		t.Error("Expected tap-qualified duplicate to be denied")
	}

	found := false
	for _, v := range result.Violations {
		if v.Policy == "duplicate-packages" && v.Entity == "git" {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected duplicate-packages violation for git, got %+v", result.Violations)
	}
}

func TestEvaluate_MasIDRange(t *testing.T) {
	eng := testEngine(t)

	b := &bundle.Bundle{
		MasApps: []bundle.MasApp{{Name: "Xcode", ID: -1}},
	}

	result, err := eng.Evaluate(context.Background(), b)
	if err != nil {
		t.Fatalf("Evaluation failed: %v", err)
	}
	if result.Allowed {
		t.Error("Expected non-positive mas id to be denied")
	}
}

func TestEvaluate_GreedyCaskWarning(t *testing.T) {
	eng := testEngine(t)

	greedy := true
	b := &bundle.Bundle{
		Casks: []bundle.Cask{{Name: "firefox", Greedy: &greedy}},
	}

	result, err := eng.Evaluate(context.Background(), b)
	if err != nil {
		t.Fatalf("Evaluation failed: %v", err)
	}

	// Warning severity should not block the bundle
	if !result.Allowed {
		t.Errorf("Expected bundle to be allowed, violations: %+v", result.Violations)
	}

	found := false
	for _, v := range result.Violations {
		if v.Policy == "greedy-cask-review" && v.Severity == SeverityWarning {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected greedy-cask-review warning, got %+v", result.Violations)
	}
}

func TestEvaluate_CleanBundle(t *testing.T) {
	eng := testEngine(t)

	b := &bundle.Bundle{
		Taps:  []bundle.Tap{{Name: "homebrew/cask-fonts"}},
		Brews: []bundle.Formula{{Name: "git"}, {Name: "jq"}},
		Casks: []bundle.Cask{{Name: "firefox"}},
	}

	result, err := eng.Evaluate(context.Background(), b)
	if err != nil {
		t.Fatalf("Evaluation failed: %v", err)
	}
	if !result.Allowed {
		t.Errorf("Expected clean bundle to be allowed, violations: %+v", result.Violations)
	}
	if len(result.Violations) != 0 {
		t.Errorf("Expected no violations, got %+v", result.Violations)
	}
	if len(result.EvaluatedPolicies) == 0 {
		t.Error("Expected evaluated policies to be recorded")
	}
}

func TestEnableDisablePolicy(t *testing.T) {
	eng := testEngine(t)

	if err := eng.DisablePolicy("tap-naming"); err != nil {
		t.Fatalf("Failed to disable policy: %v", err)
	}

	b := &bundle.Bundle{Taps: []bundle.Tap{{Name: "not-a-tap"}}}
	result, err := eng.Evaluate(context.Background(), b)
	if err != nil {
		t.Fatalf("Evaluation failed: %v", err)
	}
	if !result.Allowed {
		t.Errorf("Expected disabled policy not to fire, violations: %+v", result.Violations)
	}

	if err := eng.EnablePolicy("tap-naming"); err != nil {
		t.Fatalf("Failed to enable policy: %v", err)
	}
	result, err = eng.Evaluate(context.Background(), b)
	if err != nil {
		t.Fatalf("Evaluation failed: %v", err)
	}
	if result.Allowed {
		t.Error("Expected re-enabled policy to fire")
	}
}

func TestApplyPolicies_KeepsBuiltins(t *testing.T) {
	eng := testEngine(t)

	custom := Policy{
		Name:     "no-beta-casks",
		Rego:     "package brewplan.policies.nobeta\n\nimport rego.v1\n\ndeny contains msg if {\n\tsome cask in input.bundle.casks\n\tendswith(cask.name, \"-beta\")\n\tmsg := sprintf(\"cask %q pins a beta channel\", [cask.name])\n}\n",
		Severity: SeverityError,
		Enabled:  true,
	}

	if err := eng.ApplyPolicies(context.Background(), []Policy{custom}); err != nil {
		t.Fatalf("Failed to apply policies: %v", err)
	}

	if _, err := eng.GetPolicy("tap-naming"); err != nil {
		t.Errorf("Built-in policy lost after reload: %v", err)
	}

	b := &bundle.Bundle{Casks: []bundle.Cask{{Name: "chrome-beta"}}}
	result, err := eng.Evaluate(context.Background(), b)
	if err != nil {
		t.Fatalf("Evaluation failed: %v", err)
	}
	if result.Allowed {
		t.Errorf("Expected custom policy to deny, violations: %+v", result.Violations)
	}
}
