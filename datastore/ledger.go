package datastore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"sync"
	"time"
)

// SentLedger records which article keys have already appeared in a report
// so later runs do not resend them. It carries its own retention window,
// longer than the cache's; within that window the ledger only grows.
type SentLedger struct {
	mu        sync.RWMutex
	entries   map[string]time.Time
	retention time.Duration
	backend   Backend
}

func NewSentLedger(backend Backend, retention time.Duration) *SentLedger {
	return &SentLedger{
		entries:   make(map[string]time.Time),
		retention: retention,
		backend:   backend,
	}
}

// Load reads the persisted ledger. A missing store starts the ledger empty.
func (l *SentLedger) Load() error {
	data, err := l.backend.Load()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load sent ledger: %w", err)
	}

	entries := make(map[string]time.Time)
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("failed to parse sent ledger: %w", err)
	}

	l.mu.Lock()
	l.entries = entries
	l.mu.Unlock()
	return nil
}

// Flush persists the current entries through the backend.
func (l *SentLedger) Flush() error {
	l.mu.RLock()
	data, err := json.MarshalIndent(l.entries, "", "  ")
	l.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to encode sent ledger: %w", err)
	}
	if err := l.backend.Save(data); err != nil {
		return fmt.Errorf("failed to write sent ledger: %w", err)
	}
	return nil
}

// Contains reports whether key was already sent within the retention window.
func (l *SentLedger) Contains(key string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	sentAt, ok := l.entries[key]
	if !ok {
		return false
	}
	return time.Since(sentAt) <= l.retention
}

// MarkSent records keys as sent now.
func (l *SentLedger) MarkSent(keys ...string) {
	now := time.Now().UTC()

	l.mu.Lock()
	defer l.mu.Unlock()
	for _, key := range keys {
		l.entries[key] = now
	}
}

// PurgeExpired drops entries older than the retention window and returns
// how many were removed.
func (l *SentLedger) PurgeExpired() int {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, sentAt := range l.entries {
		if now.Sub(sentAt) > l.retention {
			delete(l.entries, key)
			removed++
		}
	}
	return removed
}

// Len reports the number of entries currently held.
func (l *SentLedger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Keys returns the recorded keys in no particular order.
func (l *SentLedger) Keys() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	keys := make([]string, 0, len(l.entries))
	for key := range l.entries {
		keys = append(keys, key)
	}
	return keys
}
