package config

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/brewplan/brewplan/pkg/bundle"
)

// LoadResult is the outcome of loading one configuration.
type LoadResult struct {
	// Bundle is the normalized compilation unit.
	Bundle bundle.Bundle `json:"bundle"`

	// Advisories are non-fatal warnings collected during the load.
	Advisories []bundle.Advisory `json:"advisories,omitempty"`

	// SourceFiles are the files the configuration was read from.
	SourceFiles []string `json:"source_files"`

	// LoadedAt is when the configuration was loaded.
	LoadedAt time.Time `json:"loaded_at"`
}

// rawConfig mirrors the on-disk configuration schema. Both the CUE and YAML
// paths funnel through its JSON form, so the shorthand coercion below runs
// exactly once regardless of source format.
type rawConfig struct {
	Taps         []tapEntry       `json:"taps"`
	CaskArgs     bundle.CaskArgs  `json:"caskArgs"`
	Brews        []brewEntry      `json:"brews"`
	Casks        []caskEntry      `json:"casks"`
	MasApps      map[string]int64 `json:"masApps"`
	Whalebrews   []string         `json:"whalebrews"`
	ExtraConfig  string           `json:"extraConfig"`
	OnActivation rawOnActivation  `json:"onActivation"`
	Global       rawGlobal        `json:"global"`

	// Generate is an optional Starlark script contributing computed entries.
	Generate string `json:"generate"`
}

type rawOnActivation struct {
	Cleanup    string   `json:"cleanup" validate:"omitempty,oneof=none uninstall zap"`
	AutoUpdate bool     `json:"autoUpdate"`
	Upgrade    bool     `json:"upgrade"`
	ExtraFlags []string `json:"extraFlags"`
}

type rawGlobal struct {
	Brewfile   bool  `json:"brewfile"`
	AutoUpdate *bool `json:"autoUpdate"`
	Lockfiles  *bool `json:"lockfiles"`
}

// tapEntry accepts either a bare string name or a full tap record.
type tapEntry struct {
	bundle.Tap
}

func (e *tapEntry) UnmarshalJSON(data []byte) error {
	if isJSONString(data) {
		return json.Unmarshal(data, &e.Name)
	}
	var rec struct {
		Name            string `json:"name"`
		CloneTarget     string `json:"cloneTarget"`
		ForceAutoUpdate *bool  `json:"forceAutoUpdate"`
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return bundle.NewAuthoringError("invalid tap entry", err).WithField("taps")
	}
	e.Tap = bundle.Tap{
		Name:            rec.Name,
		CloneTarget:     rec.CloneTarget,
		ForceAutoUpdate: rec.ForceAutoUpdate,
	}
	return nil
}

// brewEntry accepts either a bare string name or a full formula record.
// restart_service is the awkward one: true, false, or the string "changed".
type brewEntry struct {
	bundle.Formula
}

func (e *brewEntry) UnmarshalJSON(data []byte) error {
	if isJSONString(data) {
		return json.Unmarshal(data, &e.Name)
	}
	var rec struct {
		Name           string          `json:"name"`
		Args           []string        `json:"args"`
		ConflictsWith  []string        `json:"conflictsWith"`
		RestartService json.RawMessage `json:"restartService"`
		StartService   *bool           `json:"startService"`
		Link           *bool           `json:"link"`
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return bundle.NewAuthoringError("invalid brew entry", err).WithField("brews")
	}
	restart, err := parseRestartService(rec.RestartService)
	if err != nil {
		return err
	}
	e.Formula = bundle.Formula{
		Name:           rec.Name,
		Args:           rec.Args,
		ConflictsWith:  rec.ConflictsWith,
		RestartService: restart,
		StartService:   rec.StartService,
		Link:           rec.Link,
	}
	return nil
}

func parseRestartService(raw json.RawMessage) (*bundle.RestartService, error) {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return &bundle.RestartService{Enabled: b}, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s == "changed" {
			return &bundle.RestartService{Changed: true}, nil
		}
		return nil, bundle.NewAuthoringError("restartService must be a boolean or \"changed\"", nil).
			WithField("brews.restartService").WithDetail("value", s)
	}
	return nil, bundle.NewAuthoringError("restartService must be a boolean or \"changed\"", nil).
		WithField("brews.restartService")
}

// caskEntry accepts either a bare string name or a full cask record.
type caskEntry struct {
	bundle.Cask
}

func (e *caskEntry) UnmarshalJSON(data []byte) error {
	if isJSONString(data) {
		return json.Unmarshal(data, &e.Name)
	}
	var rec struct {
		Name   string           `json:"name"`
		Args   *bundle.CaskArgs `json:"args"`
		Greedy *bool            `json:"greedy"`
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return bundle.NewAuthoringError("invalid cask entry", err).WithField("casks")
	}
	e.Cask = bundle.Cask{Name: rec.Name, Args: rec.Args, Greedy: rec.Greedy}
	return nil
}

func isJSONString(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && trimmed[0] == '"'
}
