// Package watch provides dual-mode filesystem change detection: an fsnotify
// event stream over a configured set of directories plus a fixed-interval
// poll fallback. Both feed the same re-evaluation trigger, debounced per
// logical key so a burst of native events collapses into one pass.
package watch

import (
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"
	"github.com/rs/zerolog"

	"github.com/msageha/installwatch/internal/faults"
)

const (
	// DefaultPollInterval is the poll fallback cadence.
	DefaultPollInterval = 2 * time.Second
	// DefaultDebounce is the per-key coalescing window.
	DefaultDebounce = 100 * time.Millisecond

	// KeyRevalidate is the logical key for the global status re-evaluation
	// trigger.
	KeyRevalidate = "revalidate"
)

// TriggerFunc is invoked (outside any watcher lock) when a debounced trigger
// fires for a key.
type TriggerFunc func(key string)

// Config configures a Watcher.
type Config struct {
	// Dirs are the directories to watch. Missing directories are skipped
	// with a warning; native watching degrades to poll-only when none can
	// be added.
	Dirs []string

	// PollInterval is the poll fallback cadence. Default 2s.
	PollInterval time.Duration

	// Debounce is the per-key coalescing window. Default 100ms.
	Debounce time.Duration

	// ExcludePatterns are glob patterns for event paths to ignore.
	ExcludePatterns []string
}

// Watcher is the dual-mode change detector. It cycles between idle and
// watching; Stop is synchronous, idempotent, and safe to call
// before Start.
type Watcher struct {
	config   Config
	excludes []glob.Glob
	trigger  TriggerFunc
	logger   zerolog.Logger

	mu       sync.Mutex
	watching bool
	pending  map[string]*time.Timer
	fsw      *fsnotify.Watcher
	ticker   *time.Ticker
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// New creates a Watcher that calls trigger on debounced changes.
func New(config Config, trigger TriggerFunc, logger zerolog.Logger) (*Watcher, error) {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollInterval
	}
	if config.Debounce <= 0 {
		config.Debounce = DefaultDebounce
	}

	excludes := make([]glob.Glob, 0, len(config.ExcludePatterns))
	for _, pattern := range config.ExcludePatterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, faults.New(faults.KindConfiguration, "exclude pattern %q: %v", pattern, err)
		}
		excludes = append(excludes, g)
	}

	return &Watcher{
		config:   config,
		excludes: excludes,
		trigger:  trigger,
		logger:   logger.With().Str("component", "watcher").Logger(),
		pending:  make(map[string]*time.Timer),
	}, nil
}

// Start transitions the watcher to Watching. Starting an already-watching
// watcher is an error; a stopped watcher may be started again.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.watching {
		return faults.New(faults.KindMonitoring, "watcher already started")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return faults.Wrap(faults.KindMonitoring, err)
	}

	added := 0
	for _, dir := range w.config.Dirs {
		if _, statErr := os.Stat(dir); statErr != nil {
			w.logger.Warn().Str("dir", dir).Err(statErr).Msg("watch dir unavailable, relying on poll")
			continue
		}
		if addErr := fsw.Add(dir); addErr != nil {
			w.logger.Warn().Str("dir", dir).Err(addErr).Msg("native watch failed, relying on poll")
			continue
		}
		added++
	}
	w.logger.Info().Int("dirs", added).Dur("poll", w.config.PollInterval).Msg("watching")

	w.fsw = fsw
	w.ticker = time.NewTicker(w.config.PollInterval)
	w.stopCh = make(chan struct{})
	w.watching = true

	w.wg.Add(2)
	go w.eventLoop(fsw, w.stopCh)
	go w.pollLoop(w.ticker, w.stopCh)
	return nil
}

// Stop cancels the event stream and the poll timer, fires no further
// triggers, and waits for both loops and any in-flight debounce firing to
// exit. Safe to call repeatedly and before Start.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.watching {
		w.mu.Unlock()
		return
	}
	w.watching = false

	close(w.stopCh)
	w.ticker.Stop()
	_ = w.fsw.Close()

	for key, timer := range w.pending {
		// A timer already past Stop is in flight; its firing holds a
		// waitgroup slot and is drained below.
		if timer.Stop() {
			w.wg.Done()
		}
		delete(w.pending, key)
	}
	w.mu.Unlock()

	w.wg.Wait()
	w.logger.Info().Msg("watcher stopped")
}

// eventLoop drains native filesystem events until stopped.
func (w *Watcher) eventLoop(fsw *fsnotify.Watcher, stopCh chan struct{}) {
	defer w.wg.Done()

	for {
		select {
		case <-stopCh:
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if w.isExcluded(event.Name) {
				continue
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				w.logger.Debug().Str("op", event.Op.String()).Str("file", event.Name).Msg("fs event")
				w.Schedule(KeyRevalidate)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error().Err(err).Msg("fsnotify error")
		}
	}
}

// pollLoop fires the fallback trigger at the configured interval.
func (w *Watcher) pollLoop(ticker *time.Ticker, stopCh chan struct{}) {
	defer w.wg.Done()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			w.Schedule(KeyRevalidate)
		}
	}
}

// Schedule arms (or re-arms) the debounce timer for key. Within a window only
// the last-scheduled trigger fires; earlier ones are cancelled.
func (w *Watcher) Schedule(key string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.watching {
		return
	}

	if timer, ok := w.pending[key]; ok {
		if timer.Stop() {
			w.wg.Done()
		}
	}
	w.wg.Add(1)
	w.pending[key] = time.AfterFunc(w.config.Debounce, func() {
		defer w.wg.Done()
		w.fire(key)
	})
}

// fire delivers a debounced trigger unless the watcher stopped in the
// meantime.
func (w *Watcher) fire(key string) {
	w.mu.Lock()
	if !w.watching {
		w.mu.Unlock()
		return
	}
	delete(w.pending, key)
	w.mu.Unlock()

	w.trigger(key)
}

func (w *Watcher) isExcluded(path string) bool {
	for _, g := range w.excludes {
		if g.Match(path) {
			return true
		}
	}
	return false
}
