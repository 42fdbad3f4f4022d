package service

import (
	"testing"
	"time"

	"teamvault-backend/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cachedFile() *models.File {
	return &models.File{
		ID:   uuid.New(),
		Tags: []string{"a"},
	}
}

func TestCacheHitAndExpiry(t *testing.T) {
	cache := NewMetadataCache(time.Minute, 8)
	base := time.Now()
	now := base
	cache.now = func() time.Time { return now }

	file := cachedFile()
	cache.Set(file)

	got, ok := cache.Get(file.ID)
	require.True(t, ok)
	assert.Equal(t, file.ID, got.ID)

	// Entries return copies, not aliases
	got.Tags[0] = "mutated"
	again, ok := cache.Get(file.ID)
	require.True(t, ok)
	assert.Equal(t, "a", again.Tags[0])

	// Past the TTL the entry is gone
	now = base.Add(2 * time.Minute)
	_, ok = cache.Get(file.ID)
	assert.False(t, ok)
}

func TestCacheInvalidate(t *testing.T) {
	cache := NewMetadataCache(time.Minute, 8)
	file := cachedFile()
	cache.Set(file)

	cache.Invalidate(file.ID)
	_, ok := cache.Get(file.ID)
	assert.False(t, ok)

	// Invalidating an absent id is a no-op
	cache.Invalidate(uuid.New())
}

func TestCacheSweep(t *testing.T) {
	cache := NewMetadataCache(time.Minute, 8)
	base := time.Now()
	now := base
	cache.now = func() time.Time { return now }

	stale := cachedFile()
	cache.Set(stale)

	now = base.Add(30 * time.Second)
	fresh := cachedFile()
	cache.Set(fresh)

	now = base.Add(70 * time.Second)
	dropped := cache.Sweep()
	assert.Equal(t, 1, dropped)
	assert.Equal(t, 1, cache.Len())

	_, ok := cache.Get(fresh.ID)
	assert.True(t, ok)
}

func TestCacheBoundedEviction(t *testing.T) {
	cache := NewMetadataCache(time.Minute, 4)
	base := time.Now()
	now := base
	cache.now = func() time.Time { return now }

	var first *models.File
	for i := 0; i < 4; i++ {
		f := cachedFile()
		if i == 0 {
			first = f
		}
		cache.Set(f)
		now = now.Add(time.Second)
	}
	assert.Equal(t, 4, cache.Len())

	// A fifth insert evicts the entry closest to expiry, the oldest one
	cache.Set(cachedFile())
	assert.Equal(t, 4, cache.Len())
	_, ok := cache.Get(first.ID)
	assert.False(t, ok)
}
