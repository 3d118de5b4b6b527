package datastore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"sync"
	"time"
)

// CacheEntry is one stored summary with the time it was computed.
type CacheEntry struct {
	Summary  string    `json:"summary"`
	StoredAt time.Time `json:"timestamp"`
}

// SummaryCache is the persisted article-key → summary store. Entries expire
// after the retention window; lifetime is owned entirely by this type.
// Load once at startup, Flush after each batch and at shutdown. The file
// form is a flat JSON object, deliberately human-inspectable.
type SummaryCache struct {
	mu        sync.RWMutex
	entries   map[string]CacheEntry
	retention time.Duration
	backend   Backend
}

func NewSummaryCache(backend Backend, retention time.Duration) *SummaryCache {
	return &SummaryCache{
		entries:   make(map[string]CacheEntry),
		retention: retention,
		backend:   backend,
	}
}

// Load reads the persisted entries. A store that does not exist yet is not
// an error: the cache simply starts empty.
func (c *SummaryCache) Load() error {
	data, err := c.backend.Load()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load summary cache: %w", err)
	}

	entries := make(map[string]CacheEntry)
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("failed to parse summary cache: %w", err)
	}

	c.mu.Lock()
	c.entries = entries
	c.mu.Unlock()
	return nil
}

// Flush persists the current entries through the backend.
func (c *SummaryCache) Flush() error {
	c.mu.RLock()
	data, err := json.MarshalIndent(c.entries, "", "  ")
	c.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to encode summary cache: %w", err)
	}
	if err := c.backend.Save(data); err != nil {
		return fmt.Errorf("failed to write summary cache: %w", err)
	}
	return nil
}

// Get returns the summary stored for key, if present and unexpired.
func (c *SummaryCache) Get(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok {
		return "", false
	}
	if c.expired(entry.StoredAt, time.Now()) {
		return "", false
	}
	return entry.Summary, true
}

// Put stores a summary for key, replacing any previous value.
func (c *SummaryCache) Put(key, summary string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = CacheEntry{Summary: summary, StoredAt: time.Now().UTC()}
}

// PurgeExpired drops entries older than the retention window and returns
// how many were removed. Runs before lookups so a stale summary never
// reaches a report.
func (c *SummaryCache) PurgeExpired() int {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, entry := range c.entries {
		if c.expired(entry.StoredAt, now) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Len reports the number of entries currently held, expired or not.
func (c *SummaryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *SummaryCache) expired(storedAt, now time.Time) bool {
	return now.Sub(storedAt) > c.retention
}
