package document

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"github.com/rs/zerolog"
)

// DefaultCacheSize bounds the number of cached documents.
const DefaultCacheSize = 256

// FS is the slice of filesystem behavior the cache needs. Production code
// uses OSFS; tests substitute an instrumented stub to count disk reads.
type FS interface {
	Stat(path string) (os.FileInfo, error)
	ReadFile(path string) ([]byte, error)
}

// OSFS is the real filesystem.
type OSFS struct{}

func (OSFS) Stat(path string) (os.FileInfo, error) { return os.Stat(path) }
func (OSFS) ReadFile(path string) ([]byte, error)  { return os.ReadFile(path) }

// entry is a cached parsed document plus the stat pair that validates it.
type entry struct {
	doc     Value
	modTime time.Time
	size    int64
}

// Cache is an in-memory cache of parsed documents keyed by canonical path.
// Staleness is detected passively: every Get stats the file and re-reads when
// the (mtime, size) pair moved. Reads share an RLock; the exclusive section
// covers only the map update, never the disk I/O.
type Cache struct {
	fs     FS
	logger zerolog.Logger

	mu  sync.RWMutex
	lru *simplelru.LRU[string, *entry]
}

// NewCache creates a document cache holding at most size entries.
func NewCache(size int, fs FS, logger zerolog.Logger) *Cache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if fs == nil {
		fs = OSFS{}
	}
	// simplelru only errors on a non-positive size, which is handled above.
	lru, _ := simplelru.NewLRU[string, *entry](size, nil)
	return &Cache{
		fs:     fs,
		logger: logger.With().Str("component", "doccache").Logger(),
		lru:    lru,
	}
}

// Get returns the parsed document at path, reading from disk only when no
// fresh cached entry exists. Unreadable or malformed documents are a cache
// miss: (null, false), never an error.
func (c *Cache) Get(path string) (Value, bool) {
	key := canonical(path)

	info, err := c.fs.Stat(key)
	if err != nil {
		c.Invalidate(key)
		return Value{}, false
	}

	c.mu.RLock()
	cached, hit := c.lru.Peek(key)
	c.mu.RUnlock()

	if hit && cached.modTime.Equal(info.ModTime()) && cached.size == info.Size() {
		return cached.doc, true
	}

	content, err := c.fs.ReadFile(key)
	if err != nil {
		c.logger.Debug().Err(err).Str("path", key).Msg("document unreadable")
		c.Invalidate(key)
		return Value{}, false
	}

	doc, err := Parse(key, content)
	if err != nil {
		c.logger.Debug().Err(err).Str("path", key).Msg("document parse failed")
		c.Invalidate(key)
		return Value{}, false
	}

	c.mu.Lock()
	c.lru.Add(key, &entry{doc: doc, modTime: info.ModTime(), size: info.Size()})
	c.mu.Unlock()

	return doc, true
}

// Warm loads a set of paths into the cache ahead of a validation batch.
// Individual failures are ignored; a warmed miss just stays a miss.
func (c *Cache) Warm(paths []string) {
	seen := make(map[string]bool, len(paths))
	for _, p := range paths {
		key := canonical(p)
		if seen[key] {
			continue
		}
		seen[key] = true
		c.Get(key)
	}
}

// Invalidate drops the cached entry for path, forcing the next Get to
// re-read disk.
func (c *Cache) Invalidate(path string) {
	key := canonical(path)
	c.mu.Lock()
	c.lru.Remove(key)
	c.mu.Unlock()
}

// Clear drops every cached entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.lru.Purge()
	c.mu.Unlock()
}

// Len reports the current entry count.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lru.Len()
}

func canonical(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}
