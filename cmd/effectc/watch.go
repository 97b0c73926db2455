// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// settle is how long the watcher waits for more changes before it
// rebuilds. Editors often write a file in several steps.
const settle = 100 * time.Millisecond

// watch rebuilds every program when a chunk file changes, until ctx is
// done.
func (b *batch) watch(ctx context.Context, logger *slog.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	for _, dir := range b.opts.chunks {
		if err := watchTree(w, dir); err != nil {
			return err
		}
	}
	logger.Info("watching chunks", "dirs", strings.Join(b.opts.chunks, ","))

	timer := time.NewTimer(settle)
	timer.Stop()
	pending := false
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if b.apply(w, event, logger) {
				pending = true
				timer.Reset(settle)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", "err", err)
		case <-timer.C:
			if pending {
				pending = false
				failed := b.build(ctx)
				logger.Info("rebuilt", "programs", len(b.opts.programs), "failed", failed)
			}
		}
	}
}

// apply updates the registry for one file event. It reports whether a
// rebuild is needed.
func (b *batch) apply(w *fsnotify.Watcher, event fsnotify.Event, logger *slog.Logger) bool {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := watchTree(w, event.Name); err != nil {
				logger.Warn("watch directory", "dir", event.Name, "err", err)
			}
			return false
		}
	}
	if filepath.Ext(event.Name) != chunkExt {
		return false
	}
	dir := b.chunkDir(event.Name)
	if dir == "" {
		return false
	}
	switch {
	case event.Has(fsnotify.Write) || event.Has(fsnotify.Create):
		if err := registerChunk(b.registry, dir, event.Name); err != nil {
			logger.Warn("reload chunk", "file", event.Name, "err", err)
			return false
		}
		logger.Debug("chunk reloaded", "file", event.Name)
		return true
	case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
		// The registry keeps the last content; includes of the chunk
		// still resolve until the next full run.
		logger.Debug("chunk removed", "file", event.Name)
	}
	return false
}

// chunkDir returns the configured chunk directory containing path.
func (b *batch) chunkDir(path string) string {
	for _, dir := range b.opts.chunks {
		rel, err := filepath.Rel(dir, path)
		if err == nil && !strings.HasPrefix(rel, "..") {
			return dir
		}
	}
	return ""
}

func watchTree(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
