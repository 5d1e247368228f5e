package main

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// settle is how long watch waits after the last change before re-checking.
const settle = 150 * time.Millisecond

func cmdWatch(ctx context.Context, args []string) int {
	flags, roots, parsed := parseFlags("watch", args, nil)
	if !parsed {
		return 2
	}
	a, err := newApp(ctx, flags)
	if err != nil {
		report(err)
		return 1
	}
	defer a.Close()

	w, err := fsnotify.NewWatcher()
	if err != nil {
		report(err)
		return 1
	}
	defer w.Close()

	for _, dir := range a.proj.SourceDirs() {
		if err := watchTree(w, dir); err != nil {
			report(err)
			return 1
		}
	}

	recheck := func() {
		if err := a.reset(ctx); err != nil {
			report(err)
			return
		}
		if err := a.check(ctx, roots); err != nil {
			report(err)
		}
	}
	recheck()

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return 0
		case ev, open := <-w.Events:
			if !open {
				return 0
			}
			if ev.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					_ = watchTree(w, ev.Name)
				}
			}
			if !strings.HasSuffix(ev.Name, a.proj.Extension) {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			a.logger.Debug("source changed", "path", ev.Name, "op", ev.Op.String())
			pending = time.After(settle)
		case <-pending:
			pending = nil
			recheck()
		case err, open := <-w.Errors:
			if !open {
				return 0
			}
			a.logger.Warn("watch error", "error", err)
		}
	}
}

// watchTree adds dir and every directory below it.
func watchTree(w *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
