package generator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/brewplan/brewplan/pkg/bundle"
	"github.com/brewplan/brewplan/pkg/config"
	"github.com/brewplan/brewplan/pkg/policy"
	"github.com/brewplan/brewplan/pkg/stores"
	"github.com/brewplan/brewplan/pkg/telemetry"
)

// Options configures a Generator.
type Options struct {
	// ConfigPath is the configuration file or directory to compile.
	ConfigPath string

	// ManifestPath is where the Brewfile is written. Empty means the
	// manifest is returned but not written to disk.
	ManifestPath string

	// PolicyPaths are extra policy files or directories loaded on top of
	// the built-in policies.
	PolicyPaths []string

	// PolicyMode controls whether error-severity violations abort the
	// generation (enforcing) or are only reported (advisory).
	PolicyMode policy.Mode

	// Force rewrites the manifest even when it matches the previous
	// generation.
	Force bool

	// Store is the optional generation ledger.
	Store stores.Store

	// Telemetry carries the metrics and event sinks. Nil disables both.
	Telemetry *telemetry.Telemetry

	// Logger is the base logger.
	Logger zerolog.Logger
}

// Result is the outcome of one generation.
type Result struct {
	// GenerationID identifies this generation in the ledger.
	GenerationID string

	// Bundle is the normalized desired state.
	Bundle bundle.Bundle

	// Manifest is the compiled Brewfile text.
	Manifest string

	// Checksum is the SHA-256 of the manifest text.
	Checksum string

	// Environment is the derived environment variable map.
	Environment map[string]string

	// Command is the derived activation command.
	Command string

	// Advisories are non-fatal configuration warnings.
	Advisories []bundle.Advisory

	// Policy is the policy evaluation result.
	Policy *policy.Result

	// Unchanged is true when the manifest matched the previous generation
	// and the write was skipped.
	Unchanged bool

	// Duration is the total pipeline time.
	Duration time.Duration
}

// Generator runs the configuration-to-manifest pipeline.
type Generator struct {
	opts   Options
	loader *config.Loader
	engine *policy.Engine
	tracer *telemetry.Tracer
	logger zerolog.Logger
}

// New creates a Generator. The policy engine is created with the built-in
// policies; user policies from opts.PolicyPaths are loaded on top.
func New(ctx context.Context, opts Options) (*Generator, error) {
	if opts.ConfigPath == "" {
		return nil, fmt.Errorf("config path is required")
	}
	if opts.PolicyMode == "" {
		opts.PolicyMode = policy.ModeAdvisory
	}

	engine, err := policy.NewEngine(opts.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create policy engine: %w", err)
	}
	if len(opts.PolicyPaths) > 0 {
		if err := engine.LoadPolicies(ctx, opts.PolicyPaths); err != nil {
			return nil, err
		}
	}

	var tracer *telemetry.Tracer
	if opts.Telemetry != nil {
		tracer = opts.Telemetry.Tracer
	} else {
		// A disabled tracer is a no-op and never fails to construct.
		tracer, _ = telemetry.NewTracer(telemetry.TracingConfig{}, "brewplan", "", "")
	}

	return &Generator{
		opts:   opts,
		loader: config.NewLoader(),
		engine: engine,
		tracer: tracer,
		logger: opts.Logger.With().Str("component", "generator").Logger(),
	}, nil
}

// Engine exposes the policy engine, used for hot reload while watching.
func (g *Generator) Engine() *policy.Engine {
	return g.engine
}

// Generate runs the full pipeline once.
func (g *Generator) Generate(ctx context.Context) (*Result, error) {
	startTime := time.Now()
	generationID := uuid.New().String()

	logger := g.logger.With().Str("generation_id", generationID).Logger()
	logger.Debug().Str("source", g.opts.ConfigPath).Msg("Generation started")

	ctx, genSpan := g.tracer.StartGenerationSpan(ctx, generationID, g.opts.ConfigPath)
	defer genSpan.End()

	g.publishStarted(generationID)

	loaded, err := g.loader.Load(ctx, g.opts.ConfigPath)
	if err != nil {
		g.finishFailed(ctx, generationID, startTime, err, nil)
		return nil, err
	}
	for _, adv := range loaded.Advisories {
		logger.Warn().Str("field", adv.Field).Msg(adv.Message)
	}

	policyCtx, policySpan := g.tracer.StartPolicySpan(ctx, generationID)
	policyResult, err := g.engine.Evaluate(policyCtx, &loaded.Bundle)
	policySpan.End()
	if err != nil {
		g.finishFailed(ctx, generationID, startTime, err, nil)
		return nil, err
	}
	ledgerEvents := g.reportViolations(generationID, policyResult)
	if g.opts.PolicyMode == policy.ModeEnforcing && !policyResult.Allowed {
		err := fmt.Errorf("policy check failed: %d violation(s)", len(policyResult.Violations))
		g.finishFailed(ctx, generationID, startTime, err, ledgerEvents)
		return nil, err
	}

	manifest, err := loaded.Bundle.Compile()
	if err != nil {
		g.finishFailed(ctx, generationID, startTime, err, ledgerEvents)
		return nil, err
	}

	sum := sha256.Sum256([]byte(manifest))
	checksum := hex.EncodeToString(sum[:])

	result := &Result{
		GenerationID: generationID,
		Bundle:       loaded.Bundle,
		Manifest:     manifest,
		Checksum:     checksum,
		Environment:  bundle.Environment(loaded.Bundle.Global, g.opts.ManifestPath),
		Command:      bundle.ActivationCommand(loaded.Bundle.OnActivation, g.opts.ManifestPath),
		Advisories:   loaded.Advisories,
		Policy:       policyResult,
	}

	if !g.opts.Force {
		result.Unchanged = g.manifestUnchanged(ctx, checksum)
	}
	if g.opts.ManifestPath != "" && !result.Unchanged {
		if err := writeFileAtomic(g.opts.ManifestPath, []byte(manifest)); err != nil {
			g.finishFailed(ctx, generationID, startTime, err, ledgerEvents)
			return nil, err
		}
		logger.Info().
			Str("manifest", g.opts.ManifestPath).
			Int("bytes", len(manifest)).
			Msg("Manifest written")
	}

	result.Duration = time.Since(startTime)
	g.record(ctx, result, ledgerEvents)
	g.finishCompleted(generationID, result)

	genSpan.SetAttributes(
		telemetry.AttrManifestBytes.Int(len(manifest)),
		telemetry.AttrGenerationStatus.String("completed"),
	)
	telemetry.RecordSuccess(genSpan)

	return result, nil
}

// manifestUnchanged reports whether the previous generation for this source
// produced the same manifest and the file on disk still matches.
func (g *Generator) manifestUnchanged(ctx context.Context, checksum string) bool {
	if g.opts.Store == nil || g.opts.ManifestPath == "" {
		return false
	}

	prev, err := g.opts.Store.LatestGeneration(ctx, g.opts.ConfigPath)
	if err != nil || prev == nil || prev.ManifestSHA256 != checksum {
		return false
	}

	data, err := os.ReadFile(g.opts.ManifestPath)
	if err != nil {
		return false
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]) == checksum
}

// record persists the generation and its buffered events in the ledger.
// Events carry a foreign key to the generation, so they are appended only
// after the generation row exists.
func (g *Generator) record(ctx context.Context, result *Result, events []*stores.Event) {
	if g.opts.Store == nil {
		return
	}

	now := time.Now()
	gen := &stores.Generation{
		ID:             result.GenerationID,
		SourcePath:     g.opts.ConfigPath,
		ManifestPath:   g.opts.ManifestPath,
		ManifestSHA256: result.Checksum,
		ManifestBytes:  int64(len(result.Manifest)),
		Status:         stores.GenerationStatusCompiled,
		Violations:     len(result.Policy.Violations),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := g.opts.Store.CreateGeneration(ctx, gen); err != nil {
		g.logger.Warn().Err(err).Msg("Failed to record generation")
		return
	}

	message := "manifest written"
	if result.Unchanged {
		message = "manifest unchanged"
	}
	events = append(events, g.newEvent(result.GenerationID, stores.EventLevelInfo, message,
		eventDetails(map[string]interface{}{
			"checksum": result.Checksum,
			"bytes":    len(result.Manifest),
		})))

	g.appendEvents(ctx, events)
}

// newEvent builds a ledger event bound to a generation.
func (g *Generator) newEvent(generationID string, level stores.EventLevel, message string, details *string) *stores.Event {
	return &stores.Event{
		GenerationID: &generationID,
		Level:        level,
		Message:      message,
		Details:      details,
		Timestamp:    time.Now(),
	}
}

// appendEvents persists events, logging rather than failing the generation.
func (g *Generator) appendEvents(ctx context.Context, events []*stores.Event) {
	if g.opts.Store == nil {
		return
	}
	for _, event := range events {
		if err := g.opts.Store.AppendEvent(ctx, event); err != nil {
			g.logger.Warn().Err(err).Msg("Failed to append ledger event")
		}
	}
}

// eventDetails marshals structured detail fields for a ledger event.
func eventDetails(fields map[string]interface{}) *string {
	data, err := json.Marshal(fields)
	if err != nil {
		return nil
	}
	s := string(data)
	return &s
}

// RecordActivation records a `brew bundle` run for a generation. The
// activation is created as running, then finalized with its exit code so an
// interrupted run stays visible in the ledger as running.
func (g *Generator) RecordActivation(ctx context.Context, generationID, command string, runErr error, exitCode int) {
	if g.opts.Store == nil {
		return
	}

	act := &stores.Activation{
		ID:           uuid.New().String(),
		GenerationID: generationID,
		Command:      command,
		Status:       stores.ActivationStatusRunning,
		StartedAt:    time.Now(),
	}
	if err := g.opts.Store.CreateActivation(ctx, act); err != nil {
		g.logger.Warn().Err(err).Msg("Failed to record activation")
		return
	}

	status := stores.ActivationStatusCompleted
	level := stores.EventLevelInfo
	message := "activation completed"
	var errMsg *string
	if runErr != nil {
		status = stores.ActivationStatusFailed
		level = stores.EventLevelError
		message = "activation failed"
		msg := runErr.Error()
		errMsg = &msg
	}
	if err := g.opts.Store.UpdateActivationStatus(ctx, act.ID, status, &exitCode, errMsg); err != nil {
		g.logger.Warn().Err(err).Msg("Failed to update activation status")
	}

	genStatus := stores.GenerationStatusActivated
	if runErr != nil {
		genStatus = stores.GenerationStatusFailed
	}
	if err := g.opts.Store.UpdateGenerationStatus(ctx, generationID, genStatus, errMsg); err != nil {
		g.logger.Warn().Err(err).Msg("Failed to update generation status")
	}

	g.appendEvents(ctx, []*stores.Event{
		g.newEvent(generationID, level, message,
			eventDetails(map[string]interface{}{
				"command":   command,
				"exit_code": exitCode,
			})),
	})
}

func (g *Generator) publishStarted(generationID string) {
	if g.opts.Telemetry == nil {
		return
	}
	_ = g.opts.Telemetry.Events.PublishGenerationStarted(generationID, g.opts.ConfigPath)
}

// reportViolations logs and publishes policy violations and returns them as
// ledger events to be persisted once the generation row exists.
func (g *Generator) reportViolations(generationID string, result *policy.Result) []*stores.Event {
	var events []*stores.Event
	for _, v := range result.Violations {
		g.logger.Warn().
			Str("policy", v.Policy).
			Str("severity", string(v.Severity)).
			Str("entity", v.Entity).
			Msg(v.Message)
		if g.opts.Telemetry != nil {
			g.opts.Telemetry.Metrics.RecordPolicyViolation(v.Policy, string(v.Severity))
			_ = g.opts.Telemetry.Events.PublishPolicyViolation(generationID, v.Policy, v.Message)
		}
		events = append(events, g.newEvent(generationID, stores.EventLevelWarning, v.Message,
			eventDetails(map[string]interface{}{
				"policy":   v.Policy,
				"severity": string(v.Severity),
				"entity":   v.Entity,
			})))
	}
	return events
}

func (g *Generator) finishCompleted(generationID string, result *Result) {
	if g.opts.Telemetry == nil {
		return
	}

	g.opts.Telemetry.Metrics.RecordGeneration("completed", result.Duration)
	g.opts.Telemetry.Metrics.RecordManifest(len(result.Manifest), map[string]int{
		"tap":       len(result.Bundle.Taps),
		"brew":      len(result.Bundle.Brews),
		"cask":      len(result.Bundle.Casks),
		"mas":       len(result.Bundle.MasApps),
		"whalebrew": len(result.Bundle.Whalebrews),
	})

	if result.Unchanged {
		_ = g.opts.Telemetry.Events.PublishManifestUnchanged(generationID, g.opts.ManifestPath)
	} else if g.opts.ManifestPath != "" {
		_ = g.opts.Telemetry.Events.PublishManifestWritten(generationID, g.opts.ManifestPath)
	}
	_ = g.opts.Telemetry.Events.PublishGenerationCompleted(generationID, len(result.Manifest), result.Duration)
}

func (g *Generator) finishFailed(ctx context.Context, generationID string, startTime time.Time, err error, events []*stores.Event) {
	g.logger.Error().Err(err).Msg("Generation failed")
	telemetry.RecordError(telemetry.SpanFromContext(ctx), err)

	if g.opts.Store != nil {
		now := time.Now()
		msg := err.Error()
		gen := &stores.Generation{
			ID:         generationID,
			SourcePath: g.opts.ConfigPath,
			Status:     stores.GenerationStatusFailed,
			Error:      &msg,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if g.opts.ManifestPath != "" {
			gen.ManifestPath = g.opts.ManifestPath
		}
		if serr := g.opts.Store.CreateGeneration(ctx, gen); serr != nil {
			g.logger.Warn().Err(serr).Msg("Failed to record failed generation")
		} else {
			events = append(events, g.newEvent(generationID, stores.EventLevelError, "generation failed",
				eventDetails(map[string]interface{}{
					"error": err.Error(),
					"class": errorClass(err),
				})))
			g.appendEvents(ctx, events)
		}
	}

	if g.opts.Telemetry != nil {
		g.opts.Telemetry.Metrics.RecordGeneration("failed", time.Since(startTime))
		g.opts.Telemetry.Metrics.RecordCompileError(errorClass(err))
		_ = g.opts.Telemetry.Events.PublishGenerationFailed(generationID, err.Error())
	}
}

// errorClass maps an error to a metrics label.
func errorClass(err error) string {
	switch {
	case bundle.IsRemovedOption(err):
		return "removed-option"
	case bundle.IsAuthoring(err):
		return "authoring"
	case strings.Contains(err.Error(), "policy"):
		return "policy"
	default:
		return "internal"
	}
}

// writeFileAtomic writes data to path via a temp file and rename so readers
// never observe a partial manifest.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".brewfile-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close manifest: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to chmod manifest: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to rename manifest: %w", err)
	}
	return nil
}
