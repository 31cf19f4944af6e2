package auth

import (
	"sync"
	"time"
)

// KeyCache remembers digests of recently verified keys so that bcrypt runs
// once per TTL instead of once per request.
type KeyCache struct {
	mu      sync.RWMutex
	entries map[string]time.Time
	ttl     time.Duration

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewKeyCache creates a cache with the specified TTL and starts its cleanup
// loop. Call Close to stop it.
func NewKeyCache(ttl time.Duration) *KeyCache {
	if ttl == 0 {
		ttl = 5 * time.Minute
	}

	cache := &KeyCache{
		entries: make(map[string]time.Time),
		ttl:     ttl,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go cache.cleanupLoop()
	return cache
}

// Get reports whether digest was verified within the TTL.
func (c *KeyCache) Get(digest string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for d, cachedAt := range c.entries {
		if equalDigest(d, digest) {
			return time.Now().Before(cachedAt.Add(c.ttl))
		}
	}
	return false
}

// Set records a verified digest.
func (c *KeyCache) Set(digest string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[digest] = time.Now()
}

// Clear removes all entries.
func (c *KeyCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]time.Time)
}

// Size returns the number of cached digests.
func (c *KeyCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close stops the cleanup loop and waits for it to exit.
func (c *KeyCache) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
	<-c.done
}

func (c *KeyCache) cleanupLoop() {
	defer close(c.done)
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.cleanup()
		}
	}
}

func (c *KeyCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for d, cachedAt := range c.entries {
		if now.After(cachedAt.Add(c.ttl)) {
			delete(c.entries, d)
		}
	}
}
