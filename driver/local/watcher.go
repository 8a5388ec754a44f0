package local

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// monitor forwards fsnotify events for watched folders to the listeners of
// a file system.
type monitor struct {
	fs      *FileSystem
	watcher *fsnotify.Watcher

	mu      sync.Mutex
	watched map[string]bool
	done    chan struct{}
	once    sync.Once
}

func newMonitor(fs *FileSystem) (*monitor, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	m := &monitor{
		fs:      fs,
		watcher: w,
		watched: make(map[string]bool),
		done:    make(chan struct{}),
	}
	go m.run()
	return m, nil
}

// add watches path when it is a folder, and the folder containing it, so
// that creation and deletion of path itself are seen.
func (m *monitor) add(path string) {
	dirs := []string{filepath.Dir(path)}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		dirs = append(dirs, path)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, dir := range dirs {
		if m.watched[dir] {
			continue
		}
		if err := m.watcher.Add(dir); err != nil {
			m.fs.Logger().Debug("cannot watch folder", "path", dir, "error", err)
			continue
		}
		m.watched[dir] = true
	}
}

func (m *monitor) run() {
	for {
		select {
		case <-m.done:
			return
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			m.dispatch(event)
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			// Log error but continue watching
			m.fs.Logger().Warn("file monitor error", "root", m.fs.RootName(), "error", err)
		}
	}
}

func (m *monitor) dispatch(event fsnotify.Event) {
	name := m.fs.nameOf(event.Name)
	switch {
	case event.Has(fsnotify.Create):
		m.fs.FireFileCreated(name)
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		m.mu.Lock()
		delete(m.watched, event.Name)
		m.mu.Unlock()
		m.fs.FireFileDeleted(name)
	case event.Has(fsnotify.Write):
		m.fs.FireFileChanged(name)
	}
}

func (m *monitor) close() {
	m.once.Do(func() {
		close(m.done)
		m.watcher.Close()
	})
}
