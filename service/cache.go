package service

import (
	"sync"
	"time"

	"teamvault-backend/models"

	"github.com/google/uuid"
)

type cacheEntry struct {
	file      *models.File
	expiresAt time.Time
}

// MetadataCache is a bounded TTL cache for file records. It is an
// explicit component rather than ambient process state: entries carry a
// deadline, the entry count is capped, and eviction happens in a
// visible sweep.
type MetadataCache struct {
	mu         sync.Mutex
	ttl        time.Duration
	maxEntries int
	entries    map[uuid.UUID]cacheEntry
	now        func() time.Time
}

// NewMetadataCache creates a cache with the given TTL and entry cap
func NewMetadataCache(ttl time.Duration, maxEntries int) *MetadataCache {
	if maxEntries <= 0 {
		maxEntries = 1024
	}
	return &MetadataCache{
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[uuid.UUID]cacheEntry),
		now:        time.Now,
	}
}

// Get returns a copy of the cached record, if present and fresh
func (c *MetadataCache) Get(id uuid.UUID) (*models.File, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[id]
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expiresAt) {
		delete(c.entries, id)
		return nil, false
	}
	clone := *entry.file
	clone.Tags = append([]string(nil), entry.file.Tags...)
	return &clone, true
}

// Set caches a copy of the record under its id
func (c *MetadataCache) Set(file *models.File) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.maxEntries {
		c.sweepLocked()
	}
	if len(c.entries) >= c.maxEntries {
		c.evictSoonestLocked()
	}

	clone := *file
	clone.Tags = append([]string(nil), file.Tags...)
	c.entries[file.ID] = cacheEntry{file: &clone, expiresAt: c.now().Add(c.ttl)}
}

// Invalidate drops the cached record for id, if any. Every mutation of
// a record must invalidate it.
func (c *MetadataCache) Invalidate(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
}

// Sweep removes all expired entries and reports how many were dropped
func (c *MetadataCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sweepLocked()
}

// Len reports the current entry count
func (c *MetadataCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *MetadataCache) sweepLocked() int {
	now := c.now()
	dropped := 0
	for id, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, id)
			dropped++
		}
	}
	return dropped
}

// evictSoonestLocked drops the entry closest to expiry to make room
func (c *MetadataCache) evictSoonestLocked() {
	var victim uuid.UUID
	var soonest time.Time
	first := true
	for id, entry := range c.entries {
		if first || entry.expiresAt.Before(soonest) {
			victim = id
			soonest = entry.expiresAt
			first = false
		}
	}
	if !first {
		delete(c.entries, victim)
	}
}
