package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ritzau/heatnet/pkg/logging"
)

// ChangeType represents the type of file change detected
type ChangeType int

const (
	ChangeTypeGraph ChangeType = iota
	ChangeTypeConfig
)

func (t ChangeType) String() string {
	if t == ChangeTypeConfig {
		return "config"
	}
	return "graph"
}

// ChangeEvent represents a batch of file system changes
type ChangeEvent struct {
	Type      ChangeType
	Paths     []string
	Timestamp time.Time
}

// FileWatcher watches the input graph and the config file for changes.
// Parent directories are watched so editors that replace files by rename are noticed.
type FileWatcher struct {
	watcher *fsnotify.Watcher
	targets map[string]ChangeType // cleaned absolute path -> kind
	events  chan ChangeEvent
	once    sync.Once
}

// NewFileWatcher creates a watcher for a graph file and an optional config file
func NewFileWatcher(graphPath, configPath string) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	fw := &FileWatcher{
		watcher: watcher,
		targets: make(map[string]ChangeType),
		events:  make(chan ChangeEvent, 100),
	}
	if err := fw.add(graphPath, ChangeTypeGraph); err != nil {
		watcher.Close()
		return nil, err
	}
	if configPath != "" {
		if err := fw.add(configPath, ChangeTypeConfig); err != nil {
			watcher.Close()
			return nil, err
		}
	}
	return fw, nil
}

func (fw *FileWatcher) add(path string, t ChangeType) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", path, err)
	}
	fw.targets[abs] = t

	dir := filepath.Dir(abs)
	if err := fw.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	logging.Info("Watching for changes", "path", abs, "kind", t)
	return nil
}

// Start begins forwarding relevant file events until ctx is done
func (fw *FileWatcher) Start(ctx context.Context) {
	go fw.processEvents(ctx)
}

func (fw *FileWatcher) processEvents(ctx context.Context) {
	defer fw.Close()
	defer close(fw.events)

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			t, watched := fw.targets[filepath.Clean(event.Name)]
			if !watched {
				continue
			}
			logging.Trace("File changed", "path", event.Name, "op", event.Op.String())

			select {
			case fw.events <- ChangeEvent{Type: t, Paths: []string{event.Name}, Timestamp: time.Now()}:
			case <-ctx.Done():
				return
			}

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			logging.Error("Watcher error", "error", err)
		}
	}
}

// Events returns the channel of change events. It is closed when the watcher stops.
func (fw *FileWatcher) Events() <-chan ChangeEvent {
	return fw.events
}

// Close stops watching. It is safe to call more than once.
func (fw *FileWatcher) Close() error {
	var err error
	fw.once.Do(func() { err = fw.watcher.Close() })
	return err
}
