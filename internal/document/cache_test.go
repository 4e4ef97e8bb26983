package document

import (
	"io/fs"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFile struct {
	content []byte
	modTime time.Time
}

// stubFS is an instrumented in-memory filesystem counting disk reads.
type stubFS struct {
	mu    sync.Mutex
	files map[string]stubFile
	reads int
}

func newStubFS() *stubFS {
	return &stubFS{files: make(map[string]stubFile)}
}

func (s *stubFS) put(path, content string, modTime time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[path] = stubFile{content: []byte(content), modTime: modTime}
}

func (s *stubFS) readCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

func (s *stubFS) Stat(path string) (os.FileInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[path]
	if !ok {
		return nil, os.ErrNotExist
	}
	return stubInfo{name: path, size: int64(len(f.content)), modTime: f.modTime}, nil
}

func (s *stubFS) ReadFile(path string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[path]
	if !ok {
		return nil, os.ErrNotExist
	}
	s.reads++
	return f.content, nil
}

type stubInfo struct {
	name    string
	size    int64
	modTime time.Time
}

func (i stubInfo) Name() string       { return i.name }
func (i stubInfo) Size() int64        { return i.size }
func (i stubInfo) Mode() fs.FileMode  { return 0o644 }
func (i stubInfo) ModTime() time.Time { return i.modTime }
func (i stubInfo) IsDir() bool        { return false }
func (i stubInfo) Sys() any           { return nil }

func TestCache_RepeatedReadsHitCache(t *testing.T) {
	fsys := newStubFS()
	fsys.put("/docs/app.json", `{"installed": true}`, time.Unix(1000, 0))

	cache := NewCache(8, fsys, zerolog.Nop())

	doc, ok := cache.Get("/docs/app.json")
	require.True(t, ok)
	v, found := Resolve(doc, "installed")
	require.True(t, found)
	b, _ := v.AsBool()
	assert.True(t, b)

	for i := 0; i < 5; i++ {
		_, ok := cache.Get("/docs/app.json")
		require.True(t, ok)
	}
	assert.Equal(t, 1, fsys.readCount(), "unchanged file must be read from disk once")
}

func TestCache_StatChangeInvalidates(t *testing.T) {
	fsys := newStubFS()
	fsys.put("/docs/app.json", `{"version": 1}`, time.Unix(1000, 0))

	cache := NewCache(8, fsys, zerolog.Nop())
	_, ok := cache.Get("/docs/app.json")
	require.True(t, ok)

	// Same size, new mtime.
	fsys.put("/docs/app.json", `{"version": 2}`, time.Unix(2000, 0))

	doc, ok := cache.Get("/docs/app.json")
	require.True(t, ok)
	v, _ := Resolve(doc, "version")
	assert.Equal(t, "2", v.Stringify())
	assert.Equal(t, 2, fsys.readCount())
}

func TestCache_MissingFileIsMiss(t *testing.T) {
	cache := NewCache(8, newStubFS(), zerolog.Nop())
	_, ok := cache.Get("/docs/nope.json")
	assert.False(t, ok)
}

func TestCache_MalformedDocumentIsMiss(t *testing.T) {
	fsys := newStubFS()
	fsys.put("/docs/broken.json", `{"unterminated`, time.Unix(1000, 0))

	cache := NewCache(8, fsys, zerolog.Nop())
	_, ok := cache.Get("/docs/broken.json")
	assert.False(t, ok)
}

func TestCache_InvalidateForcesReread(t *testing.T) {
	fsys := newStubFS()
	fsys.put("/docs/app.json", `{"a": 1}`, time.Unix(1000, 0))

	cache := NewCache(8, fsys, zerolog.Nop())
	cache.Get("/docs/app.json")
	cache.Invalidate("/docs/app.json")
	cache.Get("/docs/app.json")

	assert.Equal(t, 2, fsys.readCount())
}

func TestCache_ClearDropsEverything(t *testing.T) {
	fsys := newStubFS()
	fsys.put("/docs/a.json", `{"a": 1}`, time.Unix(1000, 0))
	fsys.put("/docs/b.json", `{"b": 2}`, time.Unix(1000, 0))

	cache := NewCache(8, fsys, zerolog.Nop())
	cache.Get("/docs/a.json")
	cache.Get("/docs/b.json")
	require.Equal(t, 2, cache.Len())

	cache.Clear()
	assert.Equal(t, 0, cache.Len())

	cache.Get("/docs/a.json")
	assert.Equal(t, 3, fsys.readCount())
}

func TestCache_WarmDeduplicates(t *testing.T) {
	fsys := newStubFS()
	fsys.put("/docs/a.json", `{"a": 1}`, time.Unix(1000, 0))

	cache := NewCache(8, fsys, zerolog.Nop())
	cache.Warm([]string{"/docs/a.json", "/docs/a.json", "/docs/missing.json"})

	assert.Equal(t, 1, fsys.readCount())
	assert.Equal(t, 1, cache.Len())
}

func TestCache_EvictionBound(t *testing.T) {
	fsys := newStubFS()
	for _, p := range []string{"/d/1.json", "/d/2.json", "/d/3.json"} {
		fsys.put(p, `{"x": 1}`, time.Unix(1000, 0))
	}

	cache := NewCache(2, fsys, zerolog.Nop())
	cache.Get("/d/1.json")
	cache.Get("/d/2.json")
	cache.Get("/d/3.json")

	assert.Equal(t, 2, cache.Len())
}
