package api

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/Veraticus/chatguard/internal/model"
)

// cacheEntry holds the encoded payload of a detection result. Every hit
// decodes a fresh value, so callers never share slices, maps or pointers
// with the cache or with each other.
type cacheEntry struct {
	expiry time.Time
	data   json.RawMessage
}

// resultCache provides thread-safe caching of single detection results.
// A nil *resultCache is a valid, always-empty cache.
type resultCache struct {
	entries map[string]cacheEntry
	stopCh  chan struct{}
	ttl     time.Duration
	mu      sync.RWMutex
	once    sync.Once
}

// newResultCache creates a cache with the specified TTL, or nil when ttl is not positive.
func newResultCache(ttl time.Duration) *resultCache {
	if ttl <= 0 {
		return nil
	}

	cache := &resultCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		stopCh:  make(chan struct{}),
	}

	go cache.cleanup(cleanupInterval(ttl))

	return cache
}

func cleanupInterval(ttl time.Duration) time.Duration {
	if ttl < 5*time.Minute {
		return ttl
	}
	return 5 * time.Minute
}

// cacheKey identifies a detection request.
func cacheKey(text string, threshold float64, includeDetails bool) string {
	h := sha256.New()
	h.Write([]byte(text))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatFloat(threshold, 'g', -1, 64)))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatBool(includeDetails)))
	return hex.EncodeToString(h.Sum(nil))
}

// get retrieves a result from the cache if it exists and hasn't expired.
func (c *resultCache) get(key string) (*model.DetectionResult, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[key]
	if !exists || time.Now().After(entry.expiry) {
		return nil, false
	}

	var result model.DetectionResult
	if err := json.Unmarshal(entry.data, &result); err != nil {
		return nil, false
	}
	return &result, true
}

// set stores the payload of a result in the cache. The bytes are copied.
func (c *resultCache) set(key string, data json.RawMessage) {
	if c == nil || len(data) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{
		data:   bytes.Clone(data),
		expiry: time.Now().Add(c.ttl),
	}
}

// cleanup periodically removes expired entries.
func (c *resultCache) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.mu.Lock()
			now := time.Now()
			for key, entry := range c.entries {
				if now.After(entry.expiry) {
					delete(c.entries, key)
				}
			}
			c.mu.Unlock()
		}
	}
}

// size returns the number of entries in the cache.
func (c *resultCache) size() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close stops the cleanup goroutine.
func (c *resultCache) Close() {
	if c == nil {
		return
	}
	c.once.Do(func() { close(c.stopCh) })
}
