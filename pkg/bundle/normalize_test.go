package bundle

import (
	"reflect"
	"testing"
)

func TestNormalizeInjectsMasFormula(t *testing.T) {
	b := Normalize(Bundle{MasApps: []MasApp{{Name: "Xcode", ID: 497799835}}})

	var count int
	for _, f := range b.Brews {
		if f.Name == "mas" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("normalized bundle has %d mas formulae, want 1", count)
	}
}

func TestNormalizeInjectionIdempotent(t *testing.T) {
	b := Bundle{
		Brews:      []Formula{{Name: "mas", Args: []string{"HEAD"}}},
		MasApps:    []MasApp{{Name: "Xcode", ID: 497799835}},
		Whalebrews: []string{"whalebrew/wget"},
	}

	once := Normalize(b)
	twice := Normalize(once)

	if !reflect.DeepEqual(once, twice) {
		t.Errorf("Normalize is not idempotent:\nonce:  %+v\ntwice: %+v", once, twice)
	}

	var mas int
	for _, f := range once.Brews {
		if f.Name == "mas" {
			mas++
		}
	}
	if mas != 1 {
		t.Errorf("user-declared mas formula duplicated: %+v", once.Brews)
	}
	// The user's entry, with its options, must survive untouched.
	if len(once.Brews) == 0 || len(once.Brews[0].Args) != 1 {
		t.Errorf("user-declared mas formula lost its options: %+v", once.Brews)
	}
}

func TestNormalizeDoesNotInjectWithoutSections(t *testing.T) {
	b := Normalize(Bundle{Brews: []Formula{{Name: "ripgrep"}}})
	for _, f := range b.Brews {
		if f.Name == "mas" || f.Name == "whalebrew" {
			t.Errorf("Normalize injected %q with no section needing it", f.Name)
		}
	}
}

func TestNormalizeOrdersMasAppsByName(t *testing.T) {
	b := Normalize(Bundle{MasApps: []MasApp{
		{Name: "Numbers", ID: 409203825},
		{Name: "Keynote", ID: 409183694},
		{Name: "Pages", ID: 409201541},
	}})

	want := []string{"Keynote", "Numbers", "Pages"}
	for i, app := range b.MasApps {
		if app.Name != want[i] {
			t.Fatalf("MasApps[%d] = %q, want %q (apps must be name-ordered)", i, app.Name, want[i])
		}
	}
}

func TestNormalizeResolvesDefaults(t *testing.T) {
	b := Normalize(Bundle{Global: Global{Brewfile: true}})

	if b.OnActivation.Cleanup != CleanupNone {
		t.Errorf("Cleanup default = %q, want %q", b.OnActivation.Cleanup, CleanupNone)
	}
	if b.Global.Lockfiles == nil {
		t.Fatal("Normalize left Lockfiles unresolved")
	}
	if *b.Global.Lockfiles {
		t.Error("Lockfiles default = true with Brewfile enabled, want false")
	}

	explicit := Normalize(Bundle{Global: Global{Brewfile: true, Lockfiles: boolPtr(true)}})
	if explicit.Global.Lockfiles == nil || !*explicit.Global.Lockfiles {
		t.Error("Normalize overrode an explicitly set Lockfiles")
	}
}

func TestNormalizeLeavesInputUntouched(t *testing.T) {
	in := Bundle{
		Brews:   []Formula{{Name: "ripgrep"}},
		MasApps: []MasApp{{Name: "B", ID: 2}, {Name: "A", ID: 1}},
	}
	_ = Normalize(in)

	if in.MasApps[0].Name != "B" {
		t.Error("Normalize reordered the caller's MasApps slice")
	}
	if len(in.Brews) != 1 {
		t.Error("Normalize appended to the caller's Brews slice")
	}
}
