package chapter

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher notifies listeners when chapter documents under a story directory change.
type Watcher struct {
	root     string
	mu       sync.RWMutex
	onChange []func(name string)
}

// NewWatcher creates a watcher for the story directory root.
func NewWatcher(root string) *Watcher {
	return &Watcher{root: root}
}

// OnChange registers a callback invoked with the chapter name of every written or created document.
func (w *Watcher) OnChange(fn func(name string)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = append(w.onChange, fn)
}

// Watch starts a background goroutine watching root and its part directories.
// Call the returned stop function to clean up.
func (w *Watcher) Watch() (stop func(), err error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("chapter watcher: %w", err)
	}
	if err := fw.Add(w.root); err != nil {
		fw.Close()
		return nil, fmt.Errorf("chapter watcher add %s: %w", w.root, err)
	}
	entries, err := os.ReadDir(w.root)
	if err != nil {
		fw.Close()
		return nil, fmt.Errorf("chapter watcher read %s: %w", w.root, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			if err := fw.Add(filepath.Join(w.root, e.Name())); err != nil {
				fw.Close()
				return nil, fmt.Errorf("chapter watcher add %s: %w", e.Name(), err)
			}
		}
	}

	done := make(chan struct{})
	go func() {
		defer fw.Close()
		for {
			select {
			case ev, ok := <-fw.Events:
				if !ok {
					return
				}
				w.handle(fw, ev)
			case _, ok := <-fw.Errors:
				if !ok {
					return
				}
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() { once.Do(func() { close(done) }) }, nil
}

func (w *Watcher) handle(fw *fsnotify.Watcher, ev fsnotify.Event) {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
		return
	}
	if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
		// New part directory.
		if err := fw.Add(ev.Name); err != nil {
			slog.Warn("chapter watcher add failed", "dir", ev.Name, "err", err)
			return
		}
		w.announceDir(ev.Name)
		return
	}
	if filepath.Ext(ev.Name) != ".xml" {
		return
	}
	w.notify(strings.TrimSuffix(filepath.Base(ev.Name), ".xml"))
}

// announceDir reports documents written into a part directory before it was
// being watched.
func (w *Watcher) announceDir(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		slog.Warn("chapter watcher read failed", "dir", dir, "err", err)
		return
	}
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".xml" {
			w.notify(strings.TrimSuffix(e.Name(), ".xml"))
		}
	}
}

func (w *Watcher) notify(name string) {
	w.mu.RLock()
	callbacks := make([]func(string), len(w.onChange))
	copy(callbacks, w.onChange)
	w.mu.RUnlock()
	for _, fn := range callbacks {
		fn(name)
	}
}
