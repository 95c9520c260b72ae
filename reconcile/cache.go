package reconcile

import (
	"sync"
	"time"
)

const (
	DefaultCacheTTL = 30 * time.Second
	// sweepThreshold is the size above which Put drops expired entries.
	sweepThreshold = 100
)

// CacheKey identifies a cached record. Scope is part of the key so a reviewer-scope
// record is never replayed to the same address asking as owner.
type CacheKey struct {
	LoanId string
	Caller string
	Scope  AccessScope
}

func NewCacheKey(req VerificationRequest) CacheKey {
	return CacheKey{LoanId: req.LoanId, Caller: req.CallerAddress, Scope: req.Scope}
}

func (k CacheKey) String() string {
	return "DscrStatus:" + k.LoanId + ":" + k.Caller + ":" + k.Scope.String()
}

type cacheEntry struct {
	record     Record
	insertedAt time.Time
}

// ResponseCache is the process-wide short-TTL memo in front of the engine.
// Entries are only removed by the sweep on Put; expired entries are never served.
type ResponseCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[CacheKey]cacheEntry
	now     func() time.Time
}

func NewResponseCache(ttl time.Duration) *ResponseCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &ResponseCache{
		ttl:     ttl,
		entries: make(map[CacheKey]cacheEntry),
		now:     time.Now,
	}
}

func (c *ResponseCache) TTL() time.Duration {
	return c.ttl
}

func (c *ResponseCache) Get(key CacheKey) (Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok || c.now().Sub(entry.insertedAt) >= c.ttl {
		return Record{}, false
	}
	return entry.record, true
}

func (c *ResponseCache) Put(key CacheKey, record Record) {
	c.PutAt(key, record, c.now())
}

// PutAt stores a record computed at insertedAt, e.g. one read back from the shared
// L2, so it expires TTL after its original computation rather than after this call.
func (c *ResponseCache) PutAt(key CacheKey, record Record, insertedAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if insertedAt.After(now) {
		insertedAt = now
	}
	c.entries[key] = cacheEntry{record: record, insertedAt: insertedAt}
	if len(c.entries) <= sweepThreshold {
		return
	}
	for k, entry := range c.entries {
		if now.Sub(entry.insertedAt) >= c.ttl {
			delete(c.entries, k)
		}
	}
}

// Age reports how long ago insertedAt was by the cache's clock.
func (c *ResponseCache) Age(insertedAt time.Time) time.Duration {
	return c.now().Sub(insertedAt)
}

func (c *ResponseCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
