package transfer

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

const settle = 200 * time.Millisecond

// Watch imports files matching pattern when they appear or change under
// the storage root, until ctx is cancelled. Matching files already present
// are imported first. A file is imported again only when its checksum
// changes.
//
// New directories created at runtime are added to the watch list.
func (t *Transfer) Watch(ctx context.Context, pattern string) error {
	if !doublestar.ValidatePattern(pattern) {
		return fmt.Errorf("transfer: invalid watch pattern %q", pattern)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("transfer: watcher: %w", err)
	}
	defer w.Close()

	root := t.fs.Root()
	if err := addDirsRecursive(w, root); err != nil {
		return fmt.Errorf("transfer: watch %s: %w", root, err)
	}

	imported := make(map[string]string)
	t.sync(ctx, pattern, imported)
	t.logger.Info("watcher started", "root", root, "pattern", pattern)

	// Editors write in bursts; wait for the directory to settle.
	var timer *time.Timer
	var timerC <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(settle)
			timerC = timer.C
		} else {
			timer.Reset(settle)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			t.logger.Info("watcher stopped")
			return nil

		case <-timerC:
			t.sync(ctx, pattern, imported)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						t.logger.Warn("watch new dir failed", "path", ev.Name, "error", addErr)
					}
					schedule()
					continue
				}
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			rel, relErr := t.fs.Rel(ev.Name)
			if relErr != nil {
				continue
			}
			if ok, _ := doublestar.Match(pattern, rel); ok || ev.Op&fsnotify.Rename != 0 {
				schedule()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			t.logger.Error("watcher error", "error", watchErr)
		}
	}
}

// sync imports matching files whose checksum differs from the last import.
func (t *Transfer) sync(ctx context.Context, pattern string, imported map[string]string) {
	files, err := t.fs.Glob(pattern)
	if err != nil {
		t.logger.Warn("watch glob failed", "pattern", pattern, "error", err)
		return
	}
	var changed []string
	for _, f := range files {
		if imported[f.Path] == f.Checksum {
			continue
		}
		imported[f.Path] = f.Checksum
		changed = append(changed, f.Path)
	}
	if len(changed) == 0 {
		return
	}
	rep, err := t.importPaths(ctx, changed)
	if err != nil {
		t.logger.Warn("watch import incomplete", "files", len(changed), "stored", rep.Stored, "error", err)
		return
	}
	t.logger.Debug("watch imported", "files", len(changed), "stored", rep.Stored)
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
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
