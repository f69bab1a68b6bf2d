// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package profile

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/aplane-algo/clive/internal/fsutil"
	"github.com/aplane-algo/clive/internal/util"
)

// DefaultDebounce groups the events of one save into a single reload.
const DefaultDebounce = 500 * time.Millisecond

// ChangeFunc receives the reloaded profile, or the load error when the file
// was removed or failed verification.
type ChangeFunc func(*Profile, error)

// WatchOption configures Watch.
type WatchOption func(*watchConfig)

type watchConfig struct {
	debounce time.Duration
}

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) WatchOption {
	return func(c *watchConfig) { c.debounce = d }
}

// Watch calls onChange whenever the named profile changes on disk, for
// example when another clive process saves it. It returns once the watcher
// is installed; watching stops when ctx is done.
func (s *Store) Watch(ctx context.Context, name string, onChange ChangeFunc, opts ...WatchOption) error {
	cfg := watchConfig{debounce: DefaultDebounce}
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := fsutil.MkdirAll(s.dir); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	// Saves rename a temp file over the target, so watch the directory.
	if err := watcher.Add(s.dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch profile directory: %w", err)
	}
	target := filepath.Clean(s.Path(name))

	go func() {
		defer func() { _ = watcher.Close() }()

		var (
			mu    sync.Mutex
			timer *time.Timer
		)
		defer func() {
			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			mu.Unlock()
		}()

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				mu.Lock()
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(cfg.debounce, func() {
					if ctx.Err() != nil {
						return
					}
					onChange(s.Load(name))
				})
				mu.Unlock()

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				util.Warn("profile watcher error", "error", err)
			}
		}
	}()
	return nil
}
