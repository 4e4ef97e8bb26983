// Package statefile persists interaction state for external script
// observability. Writes are atomic whole-file replacements (write, fsync,
// rename) so a concurrent reader never observes a half-written document.
package statefile

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/msageha/installwatch/internal/faults"
)

// FileName is the interaction log file inside the persistence directory.
const FileName = "interaction.json"

// State is the persisted interaction record, rewritten on every
// state-changing action.
type State struct {
	Timestamp    time.Time `json:"timestamp"`
	Event        string    `json:"event"`
	CurrentIndex int       `json:"current_index"`
	Completed    []string  `json:"completed"`
}

// Store writes and reads the interaction log in a persistence directory.
type Store struct {
	path   string
	logger zerolog.Logger
}

// NewStore creates a store rooted at dir.
func NewStore(dir string, logger zerolog.Logger) *Store {
	return &Store{
		path:   filepath.Join(dir, FileName),
		logger: logger.With().Str("component", "statefile").Logger(),
	}
}

// Path returns the interaction log location.
func (s *Store) Path() string { return s.path }

// Record atomically replaces the interaction log with a new state.
func (s *Store) Record(event string, currentIndex int, completed []string) error {
	state := State{
		Timestamp:    time.Now().UTC(),
		Event:        event,
		CurrentIndex: currentIndex,
		Completed:    completed,
	}
	if state.Completed == nil {
		state.Completed = []string{}
	}

	content, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return faults.Wrap(faults.KindPersistence, err)
	}
	if err := atomicWrite(s.path, content); err != nil {
		return faults.Wrap(faults.KindPersistence, err)
	}
	return nil
}

// Load reads the last persisted state. A missing file returns (nil, nil).
// A corrupt file is deleted rather than repeatedly failed against, and also
// returns (nil, nil).
func (s *Store) Load() (*State, error) {
	content, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, faults.Wrap(faults.KindPersistence, err)
	}

	var state State
	if err := json.Unmarshal(content, &state); err != nil {
		s.logger.Warn().Err(err).Str("path", s.path).Msg("corrupt interaction state, deleting")
		_ = os.Remove(s.path)
		return nil, nil
	}
	return &state, nil
}

// atomicWrite writes content to a same-directory temp file, fsyncs it,
// validates the written bytes, keeps a .bak of any previous version, and
// renames into place.
func atomicWrite(path string, content []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".installwatch-tmp-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	written, err := os.ReadFile(tmpName)
	if err != nil {
		return fmt.Errorf("read temp file for validation: %w", err)
	}
	var check any
	if err := json.Unmarshal(written, &check); err != nil {
		return fmt.Errorf("json validation failed: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		if err := copyFile(path, path+".bak"); err != nil {
			return fmt.Errorf("create backup: %w", err)
		}
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("atomic rename: %w", err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
