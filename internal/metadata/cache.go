package metadata

import (
	"sync"

	"github.com/franz/memoscribe/internal/memo"
	"github.com/franz/memoscribe/internal/util"
)

// Cache holds the most recently resolved metadata snapshot. Callers refresh
// it on demand; a stale read is acceptable everywhere except immediately
// before transcription, where the pipeline refreshes first.
type Cache struct {
	resolver *Resolver

	mu      sync.RWMutex
	records map[string]memo.Recording
}

// NewCache creates an empty cache backed by the given resolver
func NewCache(resolver *Resolver) *Cache {
	return &Cache{
		resolver: resolver,
		records:  make(map[string]memo.Recording),
	}
}

// Refresh re-resolves metadata from the store. Permission errors are logged
// and leave an empty snapshot so callers degrade to filesystem-only data;
// they are also returned so the caller can surface the remediation hint.
func (c *Cache) Refresh() error {
	records, err := c.resolver.Load()
	if err != nil {
		util.WarnLog("Metadata access denied: %v", err)
		records = make(map[string]memo.Recording)
	}

	c.mu.Lock()
	c.records = records
	c.mu.Unlock()
	return err
}

// Get returns the cached recording for an identifier
func (c *Cache) Get(id string) (memo.Recording, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.records[id]
	return rec, ok
}

// Snapshot returns a copy of the current metadata mapping
func (c *Cache) Snapshot() map[string]memo.Recording {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]memo.Recording, len(c.records))
	for id, rec := range c.records {
		out[id] = rec
	}
	return out
}

// RecordForPath returns the canonical recording for an on-disk file,
// re-pointing the cached record's path at the file if they differ. When the
// cache has no record (or only an untitled one), the store is refreshed
// once; a still-unknown identifier yields a minimal synthesized record.
func (c *Cache) RecordForPath(path string) memo.Recording {
	id := memo.IDFromPath(path)

	if rec, ok := c.lookup(id, path); ok && rec.Title != "" {
		return rec
	}

	// Metadata may have landed after the file event fired.
	_ = c.Refresh()

	if rec, ok := c.lookup(id, path); ok {
		return rec
	}

	rec := memo.Recording{ID: id, Path: path}
	c.mu.Lock()
	c.records[id] = rec
	c.mu.Unlock()
	return rec
}

// lookup fetches a cached record and repoints its path to the given file
func (c *Cache) lookup(id, path string) (memo.Recording, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.records[id]
	if !ok {
		return memo.Recording{}, false
	}
	if rec.Path != path {
		rec.Path = path
		c.records[id] = rec
	}
	return rec, true
}
