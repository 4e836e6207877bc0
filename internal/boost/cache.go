package boost

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/osse101/MinerSync_Go/internal/domain"
)

// CacheSchemaVersion is the current version of the cache schema
// Increment this when the cached data structure changes to auto-invalidate old entries
const CacheSchemaVersion = "1.0"

type cachedBoostsEntry struct {
	Version  string
	Entries  []domain.BoostEntry
	CachedAt time.Time
}

// remoteCache holds remote boost reads per account for the boost TTL.
// The LRU evicts on wall time; entries are also aged against the caller's clock
// so a simulated or skewed clock never sees a read older than ttl.
type remoteCache struct {
	lru *expirable.LRU[string, *cachedBoostsEntry]
	ttl time.Duration
}

func newRemoteCache(size int, ttl time.Duration) *remoteCache {
	return &remoteCache{
		lru: expirable.NewLRU[string, *cachedBoostsEntry](size, nil, ttl),
		ttl: ttl,
	}
}

// Get returns the cached entries and when they were read, provided the read is
// no older than the TTL at now.
func (c *remoteCache) Get(accountID string, now time.Time) ([]domain.BoostEntry, time.Time, bool) {
	entry, found := c.lru.Get(accountID)
	if !found {
		return nil, time.Time{}, false
	}
	if entry.Version != CacheSchemaVersion || now.Sub(entry.CachedAt) > c.ttl {
		c.lru.Remove(accountID)
		return nil, time.Time{}, false
	}
	return entry.Entries, entry.CachedAt, true
}

func (c *remoteCache) Set(accountID string, entries []domain.BoostEntry, at time.Time) {
	copied := append([]domain.BoostEntry(nil), entries...)
	c.lru.Add(accountID, &cachedBoostsEntry{
		Version:  CacheSchemaVersion,
		Entries:  copied,
		CachedAt: at,
	})
}

func (c *remoteCache) Invalidate(accountID string) {
	c.lru.Remove(accountID)
}
