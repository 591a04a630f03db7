package memory

import (
	"context"
	"sync"
	"time"
)

type loginEntry struct {
	count     int
	expiresAt time.Time
}

// LoginCache mirrors the Redis login cache: the first failure opens a window
// of TTL, after which the counter disappears.
type LoginCache struct {
	mu      sync.Mutex
	entries map[string]loginEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewLoginCache(ttl time.Duration, now func() time.Time) *LoginCache {
	if now == nil {
		now = time.Now
	}
	return &LoginCache{
		entries: make(map[string]loginEntry),
		ttl:     ttl,
		now:     now,
	}
}

func (cache *LoginCache) Failures(_ context.Context, username string) (int, error) {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	return cache.live(username).count, nil
}

func (cache *LoginCache) RecordFailure(_ context.Context, username string) (int, error) {
	cache.mu.Lock()
	defer cache.mu.Unlock()

	entry := cache.live(username)
	if entry.count == 0 {
		entry.expiresAt = cache.now().Add(cache.ttl)
	}
	entry.count++
	cache.entries[username] = entry
	return entry.count, nil
}

func (cache *LoginCache) Reset(_ context.Context, username string) error {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	delete(cache.entries, username)
	return nil
}

func (cache *LoginCache) live(username string) loginEntry {
	entry, ok := cache.entries[username]
	if !ok || !cache.now().Before(entry.expiresAt) {
		delete(cache.entries, username)
		return loginEntry{}
	}
	return entry
}
