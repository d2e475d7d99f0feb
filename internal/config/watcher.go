package config

import (
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Watcher reloads the configuration when the config file changes on disk
// and hands the result to a callback. Invalid edits are reported as errors
// while the last good config stays in effect.
type Watcher struct {
	watcher  *fsnotify.Watcher
	path     string
	onChange func(*Config)
	onError  func(error)
	stopCh   chan struct{}
}

// NewWatcher creates a watcher for the given config file. Either callback
// may be nil.
func NewWatcher(path string, onChange func(*Config), onError func(error)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// Watch the directory, not the file: editors that write via
	// rename-and-replace would otherwise detach the watch.
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	return &Watcher{
		watcher:  fsw,
		path:     path,
		onChange: onChange,
		onError:  onError,
		stopCh:   make(chan struct{}),
	}, nil
}

// Start begins watching for config changes
func (w *Watcher) Start() {
	go w.watchLoop()
}

// Stop stops the watcher and cleans up resources
func (w *Watcher) Stop() {
	close(w.stopCh)
	_ = w.watcher.Close()
}

// watchLoop processes filesystem events
func (w *Watcher) watchLoop() {
	// Debounce events - many editors create multiple events for a single save
	debounceTimer := time.NewTimer(0)
	<-debounceTimer.C // drain initial timer

	dirty := false

	for {
		select {
		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			// Only care about write/create/rename of the config file itself
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}

			dirty = true
			debounceTimer.Reset(50 * time.Millisecond)

		case <-debounceTimer.C:
			if !dirty {
				continue
			}
			dirty = false
			w.reload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if w.onError != nil {
				w.onError(err)
			}
		}
	}
}

// reload re-reads the config file and invokes the appropriate callback.
func (w *Watcher) reload() {
	if err := viper.ReadInConfig(); err != nil {
		if w.onError != nil {
			w.onError(err)
		}
		return
	}

	cfg, err := Load()
	if err != nil {
		if w.onError != nil {
			w.onError(err)
		}
		return
	}
	if w.onChange != nil {
		w.onChange(cfg)
	}
}
