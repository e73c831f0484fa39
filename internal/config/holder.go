// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"fmt"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	xglog "github.com/blockscout/solc-cache/internal/log"
)

// Holder holds a Config with atomic hot-reload, mirroring the teacher's
// ConfigHolder: readers take a lock-free snapshot via atomic.Pointer, and
// a single fsnotify watcher goroutine swaps in a freshly loaded Config
// whenever the backing file changes.
type Holder struct {
	snapshot atomic.Pointer[Config]
	loader   *Loader
	watcher  *fsnotify.Watcher
	logger   zerolog.Logger
	done     chan struct{}
}

// NewHolder constructs a Holder from an already-loaded initial config.
func NewHolder(initial Config, loader *Loader) *Holder {
	h := &Holder{loader: loader, logger: xglog.WithComponent("config"), done: make(chan struct{})}
	h.snapshot.Store(&initial)
	return h
}

// Get returns the current configuration snapshot.
func (h *Holder) Get() Config {
	cfg := h.snapshot.Load()
	if cfg == nil {
		return Config{}
	}
	return *cfg
}

// WatchFile starts watching configPath's directory for changes and
// reloads the configuration on write/create/rename events, logging and
// discarding a reload that produces an invalid configuration (the prior
// snapshot stays live).
func (h *Holder) WatchFile(configPath string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: create watcher: %w", err)
	}
	h.watcher = watcher

	dir := filepath.Dir(configPath)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("config: watch %s: %w", dir, err)
	}

	target := filepath.Clean(configPath)
	go h.watchLoop(watcher, target)
	return nil
}

func (h *Holder) watchLoop(watcher *fsnotify.Watcher, target string) {
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			h.reload()
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			h.logger.Warn().Err(err).Msg("config watcher error")
		case <-h.done:
			return
		}
	}
}

func (h *Holder) reload() {
	cfg, err := h.loader.Load()
	if err != nil {
		h.logger.Warn().Err(err).Msg("config reload failed, keeping previous configuration")
		return
	}
	h.snapshot.Store(&cfg)
	h.logger.Info().Int("compilers", len(cfg.Compilers)).Msg("configuration reloaded")
}

// Close stops the watcher goroutine, if one was started.
func (h *Holder) Close() error {
	close(h.done)
	if h.watcher != nil {
		return h.watcher.Close()
	}
	return nil
}
