// Package storage persists the detection cache as a single JSON document
// with atomic whole-file replacement.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"policywatch/types"
)

// Cache is the persisted document: an ordered collection of cached items,
// at most one per key.
type Cache struct {
	Items []types.CachedItem `json:"items"`
}

// Store reads and writes the cache document at a fixed path.
type Store struct {
	path string
}

// NewStore returns a store backed by the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the canonical cache file location.
func (s *Store) Path() string { return s.path }

// Load reads the persisted cache. A missing, unreadable or unparsable file
// yields an empty cache: a cold cache is a valid state, not an error. The
// legacy bare-array form is wrapped at this boundary.
func (s *Store) Load() *Cache {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return &Cache{}
	}
	return decode(data)
}

func decode(data []byte) *Cache {
	var doc Cache
	if err := json.Unmarshal(data, &doc); err == nil && doc.Items != nil {
		return &doc
	}
	var legacy []types.CachedItem
	if err := json.Unmarshal(data, &legacy); err == nil {
		return &Cache{Items: legacy}
	}
	return &Cache{}
}

// Save writes the cache atomically: a temporary file in the same directory
// is renamed over the canonical location, so a concurrent reader never
// observes a partially written document.
func (s *Store) Save(c *Cache) error {
	if c.Items == nil {
		c.Items = []types.CachedItem{}
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding cache: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing cache: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replacing cache: %w", err)
	}
	return nil
}

// Upsert replaces the item stored under item's key, or appends it.
// This is the only mutation path; there are no field-level patches.
func (c *Cache) Upsert(item types.CachedItem) {
	key := item.Key()
	for i := range c.Items {
		if c.Items[i].Key() == key {
			c.Items[i] = item
			return
		}
	}
	c.Items = append(c.Items, item)
}

// Get returns the item cached under key, if any.
func (c *Cache) Get(key types.Key) (types.CachedItem, bool) {
	for _, it := range c.Items {
		if it.Key() == key {
			return it, true
		}
	}
	return types.CachedItem{}, false
}

// Prune removes items whose key is no longer backed by a configured source.
func (c *Cache) Prune(validKeys map[types.Key]bool) {
	kept := c.Items[:0]
	for _, it := range c.Items {
		if validKeys[it.Key()] {
			kept = append(kept, it)
		}
	}
	c.Items = kept
}

// SortByRecency orders items newest-first. The sort is stable so that
// items with equal timestamps keep their relative order.
func (c *Cache) SortByRecency() {
	sort.SliceStable(c.Items, func(i, j int) bool {
		return c.Items[i].TS.After(c.Items[j].TS)
	})
}

// EnforceRetention truncates to the bound most recent items. Callers sort
// by recency first; the composed end-of-run order is prune, sort, truncate,
// save. A bound of zero or less disables retention.
func (c *Cache) EnforceRetention(bound int) {
	if bound > 0 && len(c.Items) > bound {
		c.Items = c.Items[:bound]
	}
}

// Stats describes the cache for operational status reporting.
type Stats struct {
	SourcesConfigured int    `json:"sources_configured"`
	ItemsCached       int    `json:"items_cached"`
	LatestUTC         string `json:"latest_utc"`
	PageSize          int    `json:"page_size"`
	MaxCache          int    `json:"max_cache"`
}

// Stats summarizes the persisted cache, independent of any run.
func (s *Store) Stats(sourcesConfigured, pageSize, maxCache int) Stats {
	cache := s.Load()

	latest := time.Time{}
	for _, it := range cache.Items {
		if it.TS.After(latest) {
			latest = it.TS
		}
	}
	if latest.IsZero() {
		latest = time.Now().UTC()
	}
	if maxCache <= 0 {
		maxCache = len(cache.Items)
	}
	return Stats{
		SourcesConfigured: sourcesConfigured,
		ItemsCached:       len(cache.Items),
		LatestUTC:         latest.UTC().Format(time.RFC3339),
		PageSize:          pageSize,
		MaxCache:          maxCache,
	}
}
