package weather

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	// ErrNotCached is returned when no forecast is held for a location.
	ErrNotCached = errors.New("no cached forecast for location")
)

type cacheEntry struct {
	forecast  Forecast
	fetchedAt time.Time
}

// Cache is a concurrency-safe last-known-good forecast store keyed by location.
// Entries are never deleted eagerly, only superseded by the next successful
// fetch, so degraded data can always be served while the source is down.
type Cache struct {
	mu   sync.RWMutex
	data map[string]cacheEntry
}

// NewCache creates an empty Cache.
func NewCache() *Cache {
	return &Cache{
		data: make(map[string]cacheEntry),
	}
}

// Put stores a forecast for a location, replacing any previous entry.
// Every observation is validated first; an invalid forecast is rejected
// whole so the cache never holds records with missing required fields.
func (c *Cache) Put(loc Location, f Forecast) error {
	if len(f) == 0 {
		return fmt.Errorf("refusing to cache empty forecast for %s", loc.Key())
	}
	for i, obs := range f {
		if err := obs.Validate(); err != nil {
			return fmt.Errorf("day %d invalid: %w", i, err)
		}
	}

	fetchedAt := f[0].FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now().UTC()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[loc.Key()] = cacheEntry{forecast: f, fetchedAt: fetchedAt}
	return nil
}

// Get returns the cached forecast for a location if it is no older than maxAge.
func (c *Cache) Get(loc Location, maxAge time.Duration) (Forecast, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.data[loc.Key()]
	if !ok {
		return nil, false
	}
	if time.Since(entry.fetchedAt) > maxAge {
		return nil, false
	}
	return entry.forecast, true
}

// GetAny returns whatever is cached for a location regardless of age, together
// with the entry's age. Used for degraded-mode fallback when the source and
// the fresh cache are both unavailable.
func (c *Cache) GetAny(loc Location) (Forecast, time.Duration, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.data[loc.Key()]
	if !ok {
		return nil, 0, ErrNotCached
	}
	return entry.forecast, time.Since(entry.fetchedAt), nil
}
