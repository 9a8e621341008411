package commands

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce coalesces the bursts of events editors produce on save.
const watchDebounce = 200 * time.Millisecond

// runWatch runs once, then again whenever an input file changes, until ctx
// is cancelled.
func runWatch(ctx context.Context, cc *CommandContext, opts *RunOptions) error {
	cfg := cc.Cfg
	paths := []string{cfg.Parameters, cfg.DrivingData}
	if cfg.PET.Script != "" {
		paths = append(paths, cfg.PET.Script)
	}

	rerun := func() {
		if _, err := runOnce(ctx, cc, opts); err != nil && ctx.Err() == nil {
			cc.Renderer.Error(err.Error())
		}
		if !opts.JSONOutput {
			cc.Renderer.Muted("Watching for changes (Ctrl+C to stop)")
		}
	}

	rerun()
	return watchFiles(ctx, cc.Logger, paths, watchDebounce, rerun)
}

// watchFiles calls onChange after any of paths is written, created or
// renamed, at most once per debounce interval. The parent directories are
// watched so that editors replacing a file are seen. It returns when ctx is
// done.
func watchFiles(ctx context.Context, logger *slog.Logger, paths []string, debounce time.Duration, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	targets := map[string]bool{}
	dirs := map[string]bool{}
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		targets[abs] = true
		dir := filepath.Dir(abs)
		if dirs[dir] {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		dirs[dir] = true
	}

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
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
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if !targets[filepath.Clean(event.Name)] {
				continue
			}
			logger.Debug("input changed", slog.String("file", event.Name), slog.String("op", event.Op.String()))
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			onChange()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", slog.String("error", err.Error()))
		}
	}
}
