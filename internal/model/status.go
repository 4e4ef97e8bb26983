package model

import "time"

// Status is the current lifecycle state of a tracked item. Transitions are
// monotonic in practice (pending, then downloading, then completed) but out-of-order
// and repeated external assertions are tolerated: re-asserting the current
// status is a no-op.
type Status string

const (
	StatusPending     Status = "pending"
	StatusDownloading Status = "downloading"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
)

// Valid reports whether s is a recognized status value.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusDownloading, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// StatusEvent is an append-only history record of a status assertion. Events
// are never mutated after creation.
type StatusEvent struct {
	ID        string    `json:"id"`
	ItemID    string    `json:"item_id"`
	Status    Status    `json:"status"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// OverallProgress is a derived snapshot of the tracked item set.
type OverallProgress struct {
	Total       int     `json:"total"`
	Completed   int     `json:"completed"`
	Downloading int     `json:"downloading"`
	Pending     int     `json:"pending"`
	Failed      int     `json:"failed"`
	Percentage  float64 `json:"percentage"`
}

// IsComplete reports whether every tracked item has completed. An empty item
// set is never complete.
func (p OverallProgress) IsComplete() bool {
	return p.Total > 0 && p.Completed == p.Total
}
