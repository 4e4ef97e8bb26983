package statefile

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func TestStore_RecordAndLoad(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, zerolog.Nop())

	if err := store.Record("status_check", 2, []string{"outlook", "slack"}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	state, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if state == nil {
		t.Fatal("expected state")
	}
	if state.Event != "status_check" {
		t.Errorf("event: got %q", state.Event)
	}
	if state.CurrentIndex != 2 {
		t.Errorf("current index: got %d", state.CurrentIndex)
	}
	if len(state.Completed) != 2 || state.Completed[0] != "outlook" {
		t.Errorf("completed: got %v", state.Completed)
	}
}

func TestStore_LoadMissingIsNil(t *testing.T) {
	store := NewStore(t.TempDir(), zerolog.Nop())
	state, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if state != nil {
		t.Fatal("missing file must load as nil state")
	}
}

func TestStore_RecordCreatesBackup(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, zerolog.Nop())

	if err := store.Record("first", 0, nil); err != nil {
		t.Fatalf("first Record failed: %v", err)
	}
	if err := store.Record("second", 1, []string{"a"}); err != nil {
		t.Fatalf("second Record failed: %v", err)
	}

	bak, err := os.ReadFile(filepath.Join(dir, FileName+".bak"))
	if err != nil {
		t.Fatalf("read backup: %v", err)
	}
	var prev State
	if err := json.Unmarshal(bak, &prev); err != nil {
		t.Fatalf("backup is not valid JSON: %v", err)
	}
	if prev.Event != "first" {
		t.Errorf("backup event: got %q, want %q", prev.Event, "first")
	}
}

func TestStore_CorruptStateDeleted(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, zerolog.Nop())

	if err := os.WriteFile(store.Path(), []byte("{half a doc"), 0o644); err != nil {
		t.Fatalf("seed corrupt file: %v", err)
	}

	state, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if state != nil {
		t.Fatal("corrupt state must load as nil")
	}
	if _, err := os.Stat(store.Path()); !os.IsNotExist(err) {
		t.Error("corrupt state file must be deleted")
	}
}

func TestStore_NilCompletedMarshalsAsEmptyList(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, zerolog.Nop())

	if err := store.Record("empty", 0, nil); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	state, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if state.Completed == nil {
		t.Error("completed must decode as an empty list, not null")
	}
}

func TestStore_AtomicReplaceLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, zerolog.Nop())

	for i := 0; i < 5; i++ {
		if err := store.Record("loop", i, nil); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if name != FileName && name != FileName+".bak" {
			t.Errorf("unexpected leftover file %q", name)
		}
	}
}
