// Package progress holds per-item installation status, derives overall
// progress, and records a status-change history for analytics. Presentation
// layers subscribe to snapshot updates instead of reaching into the tracker.
package progress

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/msageha/installwatch/internal/model"
)

// subscriberBuffer is the per-subscriber channel depth. Full subscribers drop
// snapshots rather than block the tracker.
const subscriberBuffer = 16

// Tracker is the progress aggregator. All mutation recomputes the snapshot
// synchronously before returning.
type Tracker struct {
	logger zerolog.Logger

	mu       sync.RWMutex
	order    []string
	statuses map[string]model.Status
	reasons  map[string]string
	history  []model.StatusEvent
	subs     []chan model.OverallProgress
	snapshot model.OverallProgress

	now func() time.Time
}

// NewTracker registers every item as pending.
func NewTracker(items []model.Item, logger zerolog.Logger) *Tracker {
	t := &Tracker{
		logger:   logger.With().Str("component", "progress").Logger(),
		statuses: make(map[string]model.Status, len(items)),
		reasons:  make(map[string]string),
		now:      time.Now,
	}
	for _, it := range items {
		t.order = append(t.order, it.ID)
		t.statuses[it.ID] = model.StatusPending
	}
	t.snapshot = t.compute()
	return t
}

// Set asserts a status for an item. Re-asserting the current status is a
// no-op. Unknown item IDs are auto-registered as pending first, then updated.
func (t *Tracker) Set(itemID string, status model.Status) {
	t.set(itemID, status, "")
}

// Fail marks an item failed with a reason.
func (t *Tracker) Fail(itemID, reason string) {
	t.set(itemID, model.StatusFailed, reason)
}

func (t *Tracker) set(itemID string, status model.Status, reason string) {
	if !status.Valid() {
		t.logger.Warn().Str("item", itemID).Str("status", string(status)).Msg("ignoring unknown status")
		return
	}

	t.mu.Lock()
	current, known := t.statuses[itemID]
	if !known {
		t.order = append(t.order, itemID)
		t.statuses[itemID] = model.StatusPending
		current = model.StatusPending
	}
	if current == status && t.reasons[itemID] == reason {
		t.mu.Unlock()
		return
	}

	t.statuses[itemID] = status
	if reason != "" {
		t.reasons[itemID] = reason
	} else {
		delete(t.reasons, itemID)
	}
	t.history = append(t.history, model.StatusEvent{
		ID:        uuid.NewString(),
		ItemID:    itemID,
		Status:    status,
		Reason:    reason,
		Timestamp: t.now(),
	})
	t.snapshot = t.compute()
	// Published under the lock so an unsubscribe cannot close a channel
	// mid-send; sends never block.
	publish(t.subs, t.snapshot)
	t.mu.Unlock()

	t.logger.Debug().Str("item", itemID).Str("status", string(status)).Msg("status change")
}

// Get returns the current status of an item.
func (t *Tracker) Get(itemID string) (model.Status, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.statuses[itemID]
	return s, ok
}

// Reason returns the failure reason recorded for an item, if any.
func (t *Tracker) Reason(itemID string) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.reasons[itemID]
}

// Snapshot returns the current overall progress.
func (t *Tracker) Snapshot() model.OverallProgress {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snapshot
}

// CompletedIDs returns the IDs of completed items in registration order.
func (t *Tracker) CompletedIDs() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var ids []string
	for _, id := range t.order {
		if t.statuses[id] == model.StatusCompleted {
			ids = append(ids, id)
		}
	}
	return ids
}

// History returns recorded status events, filtered to itemID when non-empty.
func (t *Tracker) History(itemID string) []model.StatusEvent {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if itemID == "" {
		return append([]model.StatusEvent(nil), t.history...)
	}
	var events []model.StatusEvent
	for _, ev := range t.history {
		if ev.ItemID == itemID {
			events = append(events, ev)
		}
	}
	return events
}

// Reset returns every item to pending and clears the history.
func (t *Tracker) Reset() {
	t.mu.Lock()
	for id := range t.statuses {
		t.statuses[id] = model.StatusPending
	}
	t.reasons = make(map[string]string)
	t.history = nil
	t.snapshot = t.compute()
	publish(t.subs, t.snapshot)
	t.mu.Unlock()
}

// Subscribe registers a snapshot listener. The returned function
// unsubscribes and closes the channel. Slow subscribers miss intermediate
// snapshots rather than blocking status assertions.
func (t *Tracker) Subscribe() (<-chan model.OverallProgress, func()) {
	ch := make(chan model.OverallProgress, subscriberBuffer)

	t.mu.Lock()
	t.subs = append(t.subs, ch)
	t.mu.Unlock()

	unsubscribe := func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		for i, sub := range t.subs {
			if sub == ch {
				t.subs = append(t.subs[:i], t.subs[i+1:]...)
				close(ch)
				return
			}
		}
	}
	return ch, unsubscribe
}

// AverageCompletionTime derives the mean time from an item's first non-pending
// event to its completion event. Zero when no item has completed.
func (t *Tracker) AverageCompletionTime() time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()

	started := make(map[string]time.Time)
	var total time.Duration
	var count int
	for _, ev := range t.history {
		switch ev.Status {
		case model.StatusDownloading:
			if _, ok := started[ev.ItemID]; !ok {
				started[ev.ItemID] = ev.Timestamp
			}
		case model.StatusCompleted:
			if begin, ok := started[ev.ItemID]; ok {
				total += ev.Timestamp.Sub(begin)
				count++
				delete(started, ev.ItemID)
			}
		}
	}
	if count == 0 {
		return 0
	}
	return total / time.Duration(count)
}

// compute derives the snapshot; callers hold the write lock.
func (t *Tracker) compute() model.OverallProgress {
	snap := model.OverallProgress{Total: len(t.order)}
	for _, status := range t.statuses {
		switch status {
		case model.StatusCompleted:
			snap.Completed++
		case model.StatusDownloading:
			snap.Downloading++
		case model.StatusFailed:
			snap.Failed++
		default:
			snap.Pending++
		}
	}
	if snap.Total > 0 {
		snap.Percentage = float64(snap.Completed) / float64(snap.Total)
	}
	return snap
}

// publish delivers a snapshot to subscribers without blocking.
func publish(subs []chan model.OverallProgress, snap model.OverallProgress) {
	for _, ch := range subs {
		select {
		case ch <- snap:
		default:
		}
	}
}
