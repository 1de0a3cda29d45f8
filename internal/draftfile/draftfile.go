// Package draftfile persists the committed draft to a single on-disk file
// and feeds external edits back into the dispatch bus.
package draftfile

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// File manages one draft file. Persistence is best-effort: losing the file
// must never block document editing.
type File struct {
	path string
}

// New creates a manager for path, creating the parent directory if needed.
func New(path string) (*File, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("draftfile: resolve path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return nil, fmt.Errorf("draftfile: mkdir: %w", err)
	}
	return &File{path: abs}, nil
}

// Load returns the persisted draft, or empty string on first run or
// unreadable content.
func (f *File) Load() string {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return ""
	}
	return string(data)
}

// Save atomically writes content: tmp file, fsync, rename.
func (f *File) Save(content string) error {
	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, ".draftpilot-tmp-*")
	if err != nil {
		return fmt.Errorf("draftfile: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.WriteString(content); err != nil {
		return fmt.Errorf("draftfile: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("draftfile: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("draftfile: close temp: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("draftfile: rename: %w", err)
	}
	success = true
	return nil
}

// ChangeCallback receives the new file content after an external change.
type ChangeCallback func(content string)

// Watch runs an fsnotify watcher on the draft file's directory until ctx is
// cancelled, calling cb with the new content after each write. Events are
// debounced: editors often emit several writes per save.
func (f *File) Watch(ctx context.Context, logger *slog.Logger, cb ChangeCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(f.path)); err != nil {
		return err
	}

	logger.Info("draftfile: watching", slog.String("path", f.path))

	var debounce *time.Timer
	var fire <-chan time.Time
	last := f.Load()

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			logger.Info("draftfile: watcher stopped")
			return nil

		case <-fire:
			content := f.Load()
			if content == last {
				continue
			}
			last = content
			cb(content)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Name != f.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if debounce == nil {
				debounce = time.NewTimer(100 * time.Millisecond)
				fire = debounce.C
			} else {
				debounce.Reset(100 * time.Millisecond)
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("draftfile: watch error", slog.String("error", err.Error()))
		}
	}
}
