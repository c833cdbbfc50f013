package generator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watcher regenerates the manifest whenever the configuration changes.
type Watcher struct {
	generator *Generator
	logger    zerolog.Logger
	watcher   *fsnotify.Watcher
	debounce  time.Duration
}

// NewWatcher creates a watcher over the generator's config path.
func NewWatcher(gen *Generator, logger zerolog.Logger) *Watcher {
	return &Watcher{
		generator: gen,
		logger:    logger.With().Str("component", "watcher").Logger(),
		debounce:  500 * time.Millisecond,
	}
}

// Run watches the config path and invokes onResult after every rebuild until
// the context is canceled. An initial generation runs before watching starts.
func (w *Watcher) Run(ctx context.Context, onResult func(*Result, error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	w.watcher = watcher
	defer watcher.Close()

	configPath := w.generator.opts.ConfigPath
	info, err := os.Stat(configPath)
	if err != nil {
		return fmt.Errorf("failed to stat config path: %w", err)
	}

	if info.IsDir() {
		if err := watcher.Add(configPath); err != nil {
			return fmt.Errorf("failed to watch config directory: %w", err)
		}
	} else {
		// Watch the directory so editor rename-on-save is seen
		if err := watcher.Add(filepath.Dir(configPath)); err != nil {
			return fmt.Errorf("failed to watch config directory: %w", err)
		}
	}

	w.logger.Info().Str("path", configPath).Msg("Watching configuration")

	result, err := w.generator.Generate(ctx)
	onResult(result, err)

	var rebuildTimer *time.Timer
	defer func() {
		if rebuildTimer != nil {
			rebuildTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(configPath, info.IsDir(), event) {
				continue
			}

			w.logger.Debug().
				Str("file", event.Name).
				Str("op", event.Op.String()).
				Msg("Configuration changed")

			if rebuildTimer != nil {
				rebuildTimer.Stop()
			}
			rebuildTimer = time.AfterFunc(w.debounce, func() {
				if w.generator.opts.Telemetry != nil {
					w.generator.opts.Telemetry.Metrics.RecordWatchRebuild("config")
				}
				result, err := w.generator.Generate(ctx)
				onResult(result, err)
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error().Err(err).Msg("Watcher error")
		}
	}
}

// relevant filters watch events down to config file changes.
func (w *Watcher) relevant(configPath string, isDir bool, event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return false
	}
	if !isDir {
		return event.Name == configPath
	}
	ext := strings.ToLower(filepath.Ext(event.Name))
	return ext == ".cue" || ext == ".yaml" || ext == ".yml"
}
