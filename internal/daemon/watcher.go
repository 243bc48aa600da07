package daemon

import (
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/loft-linux/loft/internal/config"
	"github.com/loft-linux/loft/internal/daemon/messaging"
)

// ConfigWatcher picks up external edits to the service's config file and
// applies them to the running daemon: do-not-disturb flips reach the
// extension, titlebar changes reach the window. The manager GUI and a
// plain text editor both count as external editors here.
type ConfigWatcher struct {
	serviceName string
	state       *State
	fsWatcher   *fsnotify.Watcher
	done        chan struct{}
	closeOnce   sync.Once

	debounceMu sync.Mutex
	debounce   *time.Timer
}

// NewConfigWatcher watches the directory holding the service's config
// file. The directory is watched rather than the file because atomic
// writes replace the file and would drop a direct watch.
func NewConfigWatcher(serviceName string, state *State) (*ConfigWatcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	path, err := config.ServicePath(serviceName)
	if err != nil {
		_ = fsWatcher.Close()
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		_ = fsWatcher.Close()
		return nil, err
	}
	if err := fsWatcher.Add(filepath.Dir(path)); err != nil {
		_ = fsWatcher.Close()
		return nil, err
	}

	return &ConfigWatcher{
		serviceName: serviceName,
		state:       state,
		fsWatcher:   fsWatcher,
		done:        make(chan struct{}),
	}, nil
}

// Start begins processing events in the background.
func (w *ConfigWatcher) Start() {
	go w.processEvents()
}

// Stop stops the watcher.
func (w *ConfigWatcher) Stop() {
	w.closeOnce.Do(func() {
		close(w.done)
		_ = w.fsWatcher.Close()
	})
}

func (w *ConfigWatcher) processEvents() {
	target, err := config.ServicePath(w.serviceName)
	if err != nil {
		return
	}

	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			// Rename covers atomic write-then-rename saves.
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if filepath.Clean(event.Name) != filepath.Clean(target) {
				continue
			}
			w.debounceReload()
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.Printf("config watcher error: %v", err)
		}
	}
}

// debounceReload coalesces the burst of events a single save produces.
func (w *ConfigWatcher) debounceReload() {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.debounce = time.AfterFunc(100*time.Millisecond, w.reload)
}

func (w *ConfigWatcher) reload() {
	cfg, err := config.LoadService(w.serviceName)
	if err != nil {
		log.Printf("failed to reload config: %v", err)
		return
	}

	if cfg.DoNotDisturb != w.state.DND() {
		log.Printf("config change: do_not_disturb = %v", cfg.DoNotDisturb)
		w.state.SetDND(cfg.DoNotDisturb)
	}
	// Titlebar state is not tracked in State; push unconditionally and
	// let the extension treat it as level-triggered.
	w.state.Commands.Send(messaging.TitlebarConfig(cfg.ShowTitlebar))
}
