package config

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Editors replace rather than rewrite, so watch events arrive in bursts;
// coalesce them before reloading.
const debounceDelay = 100 * time.Millisecond

// Watcher re-reads the config file when it changes on disk and hands
// the parsed result to an apply callback. A file that no longer parses
// is logged and skipped; the last good config stays in effect.
type Watcher struct {
	path     string
	apply    func(*Config)
	fsw      *fsnotify.Watcher
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// Watch starts watching path. The callback runs on the watcher's
// goroutine; keep it short or hand off.
func Watch(path string, apply func(*Config)) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	// Watch the directory: editors and config management tools tend to
	// rename a temp file over the target, which drops a watch on the
	// file itself.
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}
	w := &Watcher{
		path:   abs,
		apply:  apply,
		fsw:    fsw,
		stopCh: make(chan struct{}),
	}
	w.wg.Add(1)
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	var (
		debounce  *time.Timer
		debounceC <-chan time.Time
	)
	for {
		select {
		case <-w.stopCh:
			if debounce != nil {
				debounce.Stop()
			}
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.NewTimer(debounceDelay)
			debounceC = debounce.C
		case <-debounceC:
			debounce = nil
			debounceC = nil
			w.reload()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Debug("config watch error", "error", err)
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		slog.Warn("config reload failed, keeping previous settings",
			"path", w.path, "error", err)
		return
	}
	slog.Debug("config reloaded", "path", w.path)
	w.apply(cfg)
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string { return w.path }

// Close stops watching. It is safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.stopCh)
		err = w.fsw.Close()
		w.wg.Wait()
	})
	return err
}
