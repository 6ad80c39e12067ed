// unit_watcher.go: Load order file watching that triggers reload passes
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package pluginhost

import (
	"sync"
	"time"

	"github.com/agilira/argus"
	"github.com/google/uuid"
)

// Reloader runs a reload pass. *Controller implements it.
type Reloader interface {
	Reload()
}

// UnitWatcherOptions configures a UnitWatcher.
type UnitWatcherOptions struct {
	// LoadOrderFile is the file whose changes trigger a reload.
	LoadOrderFile string
	PollInterval  time.Duration

	// Post delivers the reload to the host thread. Required.
	Post func(func())

	Audit *argus.AuditLogger
}

// UnitWatcher reloads the controller when the load-order file changes.
// Changes arriving while a reload is still queued are coalesced.
type UnitWatcher struct {
	options  UnitWatcherOptions
	reloader Reloader
	logger   Logger

	mu      sync.Mutex
	queued  bool
	watcher *argus.Watcher
}

// NewUnitWatcher creates a stopped watcher.
func NewUnitWatcher(reloader Reloader, options UnitWatcherOptions, logger Logger) (*UnitWatcher, error) {
	if reloader == nil {
		return nil, NewWatcherError("reloader is required", nil)
	}
	if options.LoadOrderFile == "" {
		return nil, NewWatcherError("load order file is required", nil)
	}
	if options.Post == nil {
		return nil, NewWatcherError("post function is required", nil)
	}
	if options.PollInterval <= 0 {
		options.PollInterval = 2 * time.Second
	}
	if logger == nil {
		logger = DefaultLogger()
	}
	return &UnitWatcher{
		options:  options,
		reloader: reloader,
		logger:   logger.With("component", "unit_watcher"),
	}, nil
}

// Start begins polling the load-order file.
func (w *UnitWatcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watcher != nil {
		return nil
	}

	watcher := argus.New(argus.Config{
		PollInterval:         w.options.PollInterval,
		CacheTTL:             w.options.PollInterval / 2,
		MaxWatchedFiles:      1,
		OptimizationStrategy: argus.OptimizationSingleEvent,
		ErrorHandler: func(err error, path string) {
			w.logger.Error("Load order watching error", "error", err, "file", path)
		},
	})
	if err := watcher.Watch(w.options.LoadOrderFile, w.handleChange); err != nil {
		return NewWatcherError("failed to watch load order file", err)
	}
	if err := watcher.Start(); err != nil {
		return NewWatcherError("failed to start load order watcher", err)
	}
	w.watcher = watcher
	w.logger.Info("Watching load order file", "path", w.options.LoadOrderFile)
	return nil
}

func (w *UnitWatcher) handleChange(event argus.ChangeEvent) {
	defer withStackRecover(w.logger)()

	if event.IsDelete {
		w.logger.Warn("Load order file was deleted, keeping loaded units", "path", event.Path)
		return
	}
	w.trigger(event.Path)
}

// trigger queues one reload on the host thread unless one is already queued.
func (w *UnitWatcher) trigger(path string) bool {
	w.mu.Lock()
	if w.queued {
		w.mu.Unlock()
		return false
	}
	w.queued = true
	w.mu.Unlock()

	changeID := uuid.NewString()
	w.logger.Info("Load order changed, queueing reload", "path", path, "change_id", changeID)
	w.audit("unit_reload_queued", map[string]interface{}{"path": path, "change_id": changeID})

	w.options.Post(func() {
		w.mu.Lock()
		w.queued = false
		w.mu.Unlock()

		w.reloader.Reload()
		w.audit("unit_reload_completed", map[string]interface{}{"path": path, "change_id": changeID})
	})
	return true
}

func (w *UnitWatcher) audit(event string, context map[string]interface{}) {
	if w.options.Audit != nil {
		w.options.Audit.LogSecurityEvent(event, "Unit watcher event", context)
	}
}

// Close stops watching. It implements io.Closer.
func (w *UnitWatcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watcher == nil {
		return nil
	}
	err := w.watcher.Stop()
	w.watcher = nil
	if err != nil {
		return NewWatcherError("failed to stop load order watcher", err)
	}
	return nil
}
