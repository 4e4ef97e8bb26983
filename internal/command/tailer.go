// Package command implements the append-only, line-oriented side channel an
// external process uses to push status updates directly, bypassing filesystem
// inference. The designated file is tailed by line-count high-water mark so a
// partial write completed between polls is picked up exactly once.
package command

import (
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/msageha/installwatch/internal/model"
	"github.com/msageha/installwatch/internal/progress"
)

// statusTokens maps command-file status tokens to item statuses. Unknown
// tokens are logged and skipped.
var statusTokens = map[string]model.Status{
	"success":     model.StatusCompleted,
	"installed":   model.StatusCompleted,
	"complete":    model.StatusCompleted,
	"completed":   model.StatusCompleted,
	"downloading": model.StatusDownloading,
	"installing":  model.StatusDownloading,
	"in_progress": model.StatusDownloading,
	"fail":        model.StatusFailed,
	"failed":      model.StatusFailed,
	"error":       model.StatusFailed,
	"wait":        model.StatusPending,
	"pending":     model.StatusPending,
}

// Tailer polls a command file for newly appended lines and applies resolved
// (index, status) pairs to the tracker.
type Tailer struct {
	path    string
	items   []model.Item
	tracker *progress.Tracker
	logger  zerolog.Logger

	mu        sync.Mutex
	lineCount int
}

// NewTailer creates a tailer over path for the configured item order.
func NewTailer(path string, items []model.Item, tracker *progress.Tracker, logger zerolog.Logger) *Tailer {
	return &Tailer{
		path:    path,
		items:   items,
		tracker: tracker,
		logger:  logger.With().Str("component", "command").Logger(),
	}
}

// Poll processes lines appended since the previous poll and returns how many
// produced a status assertion. A missing file is not an error; a shrunken
// file is treated as replaced and re-read from the top. Only
// newline-terminated lines count, so a line mid-write is left for the next
// poll.
func (t *Tailer) Poll() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	content, err := os.ReadFile(t.path)
	if err != nil {
		if !os.IsNotExist(err) {
			t.logger.Debug().Err(err).Str("path", t.path).Msg("command file unreadable")
		}
		return 0
	}

	lines := strings.Split(string(content), "\n")
	// A trailing fragment without a newline is still being written.
	complete := len(lines) - 1

	if complete < t.lineCount {
		t.logger.Warn().Str("path", t.path).Msg("command file shrank, re-reading from start")
		t.lineCount = 0
	}

	applied := 0
	for _, line := range lines[t.lineCount:complete] {
		if t.applyLine(strings.TrimSpace(line)) {
			applied++
		}
	}
	t.lineCount = complete
	return applied
}

// applyLine parses one line and applies it. Returns true when a status
// assertion was made.
func (t *Tailer) applyLine(line string) bool {
	if line == "" {
		return false
	}

	lower := strings.ToLower(line)
	switch {
	case strings.HasPrefix(lower, "listitem:"):
		return t.applyListItem(line[len("listitem:"):])
	case strings.HasPrefix(lower, "progresstext:"), strings.HasPrefix(lower, "progress:"):
		// Advisory lines for the presentation layer only.
		t.logger.Debug().Str("line", line).Msg("advisory command line")
		return false
	default:
		t.logger.Warn().Str("line", line).Msg("unparseable command line")
		return false
	}
}

// applyListItem handles the `listitem: index: <N>, status: <token>,
// statustext: <text>` grammar plus looser field subsets: a bare integer field
// is an index, a bare known token is a status.
func (t *Tailer) applyListItem(rest string) bool {
	index := -1
	var status model.Status
	var statusText string
	haveStatus := false

	for _, field := range strings.Split(rest, ",") {
		key, value, hasKey := strings.Cut(field, ":")
		key = strings.TrimSpace(strings.ToLower(key))
		value = strings.TrimSpace(value)

		if !hasKey {
			// Loose fallback: a keyless field may be an index or a token.
			if n, err := strconv.Atoi(key); err == nil {
				index = n
			} else if s, ok := statusTokens[key]; ok {
				status, haveStatus = s, true
			}
			continue
		}

		switch key {
		case "index":
			n, err := strconv.Atoi(value)
			if err != nil {
				t.logger.Warn().Str("value", value).Msg("bad listitem index")
				return false
			}
			index = n
		case "status":
			s, ok := statusTokens[strings.ToLower(value)]
			if !ok {
				t.logger.Warn().Str("token", value).Msg("unknown status token")
				return false
			}
			status, haveStatus = s, true
		case "statustext":
			statusText = value
		}
	}

	if index < 0 || !haveStatus {
		t.logger.Warn().Str("line", rest).Msg("listitem line missing index or status")
		return false
	}
	if index >= len(t.items) {
		t.logger.Warn().Int("index", index).Int("items", len(t.items)).Msg("listitem index out of range")
		return false
	}

	itemID := t.items[index].ID
	if status == model.StatusFailed {
		t.tracker.Fail(itemID, statusText)
	} else {
		t.tracker.Set(itemID, status)
	}
	return true
}
