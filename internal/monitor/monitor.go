// Package monitor wires the watcher, validator, progress tracker, command
// channel and interaction log into one session that observes externally
// driven installations and reports their progress.
package monitor

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/msageha/installwatch/internal/command"
	"github.com/msageha/installwatch/internal/document"
	"github.com/msageha/installwatch/internal/faults"
	"github.com/msageha/installwatch/internal/lock"
	"github.com/msageha/installwatch/internal/match"
	"github.com/msageha/installwatch/internal/model"
	"github.com/msageha/installwatch/internal/progress"
	"github.com/msageha/installwatch/internal/statefile"
	"github.com/msageha/installwatch/internal/validate"
	"github.com/msageha/installwatch/internal/watch"
)

// Monitor is a single monitoring session over one configuration.
type Monitor struct {
	config   model.Config
	stateDir string
	logger   zerolog.Logger

	cache     *document.Cache
	validator *validate.Validator
	tracker   *progress.Tracker
	watcher   *watch.Watcher
	tailer    *command.Tailer
	store     *statefile.Store
	fileLock  *lock.FileLock

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	shutdown sync.Once
}

// New constructs a Monitor. The persistence directory is resolved through the
// environment fallback chain; failure to find any writable location is a
// configuration fault.
func New(cfg model.Config, logger zerolog.Logger) (*Monitor, error) {
	stateDir, err := model.ResolveStateDir()
	if err != nil {
		return nil, err
	}

	cache := document.NewCache(document.DefaultCacheSize, document.OSFS{}, logger)
	validator := validate.New(cache, cfg.PlistSources, cfg.Validation.Workers, logger)
	tracker := progress.NewTracker(cfg.Items, logger)

	m := &Monitor{
		config:    cfg,
		stateDir:  stateDir,
		logger:    logger.With().Str("component", "monitor").Logger(),
		cache:     cache,
		validator: validator,
		tracker:   tracker,
		store:     statefile.NewStore(stateDir, logger),
		fileLock:  lock.New(filepath.Join(stateDir, "monitor.lock")),
	}

	watcher, err := watch.New(watch.Config{
		Dirs:            m.watchDirs(),
		PollInterval:    time.Duration(cfg.Watcher.PollIntervalSec * float64(time.Second)),
		Debounce:        time.Duration(cfg.Watcher.DebounceMs) * time.Millisecond,
		ExcludePatterns: cfg.Watcher.ExcludePatterns,
	}, m.onTrigger, logger)
	if err != nil {
		return nil, err
	}
	m.watcher = watcher

	if cfg.Command.File != "" {
		m.tailer = command.NewTailer(cfg.Command.File, cfg.Items, tracker, logger)
	}

	return m, nil
}

// Tracker exposes the progress aggregator for subscribers.
func (m *Monitor) Tracker() *progress.Tracker { return m.tracker }

// StateDir returns the resolved persistence directory.
func (m *Monitor) StateDir() string { return m.stateDir }

// Run acquires the session lock, performs an initial validation pass, starts
// both detection modes and the command-file poll, then blocks until the
// context is cancelled. Shutdown is graceful and idempotent.
func (m *Monitor) Run(ctx context.Context) error {
	if err := m.fileLock.TryLock(); err != nil {
		return faults.Wrap(faults.KindMonitoring, err)
	}

	m.ctx, m.cancel = context.WithCancel(ctx)
	m.logger.Info().Int("items", len(m.config.Items)).Str("state_dir", m.stateDir).Msg("monitor starting")

	// Initial pass runs before any watcher trigger can fire.
	m.revalidate()
	m.recordState("monitor_started")

	if err := m.watcher.Start(); err != nil {
		m.fileLock.Unlock()
		return err
	}

	if m.tailer != nil {
		m.wg.Add(1)
		go m.commandLoop()
	}

	<-m.ctx.Done()
	m.Shutdown()
	return nil
}

// Shutdown stops detection, drains loops and releases the session lock.
// Safe to call from any goroutine, repeatedly.
func (m *Monitor) Shutdown() {
	m.shutdown.Do(func() {
		m.logger.Info().Msg("monitor stopping")
		if m.cancel != nil {
			m.cancel()
		}
		m.watcher.Stop()
		m.wg.Wait()
		m.recordState("monitor_stopped")
		m.fileLock.Unlock()
		m.logger.Info().Msg("monitor stopped")
	})
}

// onTrigger is the debounced re-evaluation entrypoint shared by the event
// stream and the poll timer.
func (m *Monitor) onTrigger(key string) {
	if key == watch.KeyRevalidate {
		m.revalidate()
		m.recordState("status_check")
	}
}

// commandLoop polls the command file for externally asserted statuses.
func (m *Monitor) commandLoop() {
	defer m.wg.Done()

	interval := time.Duration(m.config.Command.PollIntervalSec * float64(time.Second))
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			if applied := m.tailer.Poll(); applied > 0 {
				m.logger.Debug().Int("applied", applied).Msg("command file assertions")
				m.recordState("command_applied")
			}
		}
	}
}

// revalidate runs a full bounded-concurrency validation pass and folds the
// results into the tracker. Valid items complete; invalid items with a
// matching in-flight artifact in a cache directory are downloading; the rest
// stay pending. Filesystem inference never downgrades a completed item;
// only an explicit command-file assertion can.
func (m *Monitor) revalidate() {
	results := m.validator.ValidateBatch(m.ctxOrBackground(), m.config.Items, nil, nil)
	active := m.scanDownloads(results)

	for _, item := range m.config.Items {
		if results[item.ID] {
			m.tracker.Set(item.ID, model.StatusCompleted)
			continue
		}
		current, _ := m.tracker.Get(item.ID)
		if current == model.StatusCompleted {
			continue
		}
		if active[item.ID] {
			m.tracker.Set(item.ID, model.StatusDownloading)
		} else if current != model.StatusFailed {
			m.tracker.Set(item.ID, model.StatusPending)
		}
	}
}

// scanDownloads walks the configured cache directories looking for installer
// artifacts belonging to items that have not validated yet.
func (m *Monitor) scanDownloads(validated map[string]bool) map[string]bool {
	active := make(map[string]bool)
	if len(m.config.CacheDirs) == 0 {
		return active
	}

	for _, dir := range m.config.CacheDirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			name := entry.Name()
			for _, item := range m.config.Items {
				if validated[item.ID] || active[item.ID] {
					continue
				}
				if match.Matches(item.ID, item.DisplayName, name) {
					m.logger.Debug().Str("item", item.ID).Str("file", name).Msg("in-flight artifact")
					active[item.ID] = true
				}
			}
		}
	}
	return active
}

// recordState persists the interaction log; transient persistence failures
// are retried and then reported, never fatal.
func (m *Monitor) recordState(event string) {
	snap := m.tracker.Snapshot()
	// Background context: the final record during shutdown must still land
	// after the session context is cancelled.
	err := faults.Retry(context.Background(), func() error {
		return m.store.Record(event, snap.Completed, m.tracker.CompletedIDs())
	})
	if err != nil {
		m.logger.Error().Err(err).Str("event", event).Msg("interaction log write failed")
	}
}

func (m *Monitor) ctxOrBackground() context.Context {
	if m.ctx != nil {
		return m.ctx
	}
	return context.Background()
}

// watchDirs derives the watch set: explicit cache directories plus the parent
// directories of every item path and plist source.
func (m *Monitor) watchDirs() []string {
	seen := make(map[string]bool)
	var dirs []string
	add := func(dir string) {
		if dir == "" || dir == "." || seen[dir] {
			return
		}
		seen[dir] = true
		dirs = append(dirs, dir)
	}

	for _, dir := range m.config.CacheDirs {
		add(dir)
	}
	for _, item := range m.config.Items {
		for _, p := range item.Paths {
			add(filepath.Dir(p))
		}
	}
	for _, src := range m.config.PlistSources {
		add(filepath.Dir(src.Path))
	}
	return dirs
}
