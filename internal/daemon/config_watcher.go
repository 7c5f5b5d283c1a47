package daemon

import (
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/lumehealth/carebot/internal/config"
	"github.com/lumehealth/carebot/internal/errors"
	"github.com/lumehealth/carebot/internal/logfields"
)

// reloadDebounce coalesces the burst of filesystem events an editor save
// produces into a single reload.
const reloadDebounce = 2 * time.Second

// configWatcher reloads the daemon configuration when the file changes on
// disk. It watches the containing directory rather than the file itself so
// atomic rename-over saves keep working.
type configWatcher struct {
	daemon     *Daemon
	configPath string
	logger     *slog.Logger
	debounce   time.Duration

	watcher    *fsnotify.Watcher
	reloadChan chan struct{}
	stopChan   chan struct{}

	mu    sync.Mutex
	timer *time.Timer
}

func newConfigWatcher(d *Daemon, configPath string, logger *slog.Logger) (*configWatcher, error) {
	abs, err := filepath.Abs(configPath)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryConfig, errors.SeverityWarning, "resolve config path")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryConfig, errors.SeverityWarning, "create filesystem watcher")
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return nil, errors.Wrap(err, errors.CategoryConfig, errors.SeverityWarning, "watch config directory").
			WithContext("dir", filepath.Dir(abs))
	}

	return &configWatcher{
		daemon:     d,
		configPath: abs,
		logger:     logger,
		debounce:   reloadDebounce,
		watcher:    watcher,
		reloadChan: make(chan struct{}, 1),
		stopChan:   make(chan struct{}),
	}, nil
}

// Start launches the watch and reload loops.
func (w *configWatcher) Start() {
	go w.watchLoop()
	go w.reloadLoop()
	w.logger.Info("watching configuration for changes",
		slog.String("path", w.configPath))
}

// Stop halts both loops and releases the filesystem watcher.
func (w *configWatcher) Stop() {
	close(w.stopChan)
	if err := w.watcher.Close(); err != nil {
		w.logger.Debug("closing filesystem watcher failed", logfields.Error(err))
	}
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
}

// watchLoop filters directory events down to the config file.
func (w *configWatcher) watchLoop() {
	base := filepath.Base(w.configPath)
	for {
		select {
		case <-w.stopChan:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != base {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.triggerReload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("filesystem watcher error", logfields.Error(err))
		}
	}
}

// triggerReload requests a reload without blocking the event loop.
func (w *configWatcher) triggerReload() {
	select {
	case w.reloadChan <- struct{}{}:
	default:
	}
}

// reloadLoop debounces reload requests so one save produces one reload.
func (w *configWatcher) reloadLoop() {
	for {
		select {
		case <-w.stopChan:
			return
		case <-w.reloadChan:
			w.mu.Lock()
			if w.timer != nil {
				w.timer.Stop()
			}
			w.timer = time.AfterFunc(w.debounce, w.performReload)
			w.mu.Unlock()
		}
	}
}

// performReload loads and applies the changed configuration. Load already
// validates, so a broken file is rejected here and the running config stays.
func (w *configWatcher) performReload() {
	select {
	case <-w.stopChan:
		return
	default:
	}

	w.logger.Info("configuration file changed, reloading")

	cfg, err := config.Load(w.configPath)
	if err != nil {
		w.logger.Error("reload rejected, keeping current configuration",
			logfields.Error(err))
		return
	}

	if err := w.daemon.applyConfig(cfg); err != nil {
		w.logger.Error("applying reloaded configuration failed",
			logfields.Error(err))
	}
}
