package distance

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oficio-marketplace/service-quoting/internal/domain/geo"
)

// CacheKey identifies a resolution by the provider/project pair.
type CacheKey struct {
	ProviderID uuid.UUID
	ProjectID  uuid.UUID
}

type cacheEntry struct {
	origin      geo.Coordinate
	destination geo.Coordinate
	estimate    geo.DistanceEstimate
}

// Cache holds the most recent routed distance per (provider, project) pair.
// Entries expire after the freshness TTL and are ignored when either
// coordinate has moved more than epsilonKm since the entry was stored.
// Only the DistanceResolver reads or writes the cache.
type Cache struct {
	mu        sync.Mutex
	entries   map[CacheKey]cacheEntry
	ttl       time.Duration
	epsilonKm float64
}

// NewCache creates a Cache with the given freshness TTL and coordinate epsilon.
func NewCache(ttl time.Duration, epsilonKm float64) *Cache {
	return &Cache{
		entries:   make(map[CacheKey]cacheEntry),
		ttl:       ttl,
		epsilonKm: epsilonKm,
	}
}

// Get returns a still-fresh routed estimate for the key and coordinates.
// Stale entries and entries for moved coordinates are evicted.
func (c *Cache) Get(key CacheKey, origin, destination geo.Coordinate) (geo.DistanceEstimate, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return geo.DistanceEstimate{}, false
	}

	if time.Since(entry.estimate.ResolvedAt) > c.ttl ||
		origin.MovedBeyond(entry.origin, c.epsilonKm) ||
		destination.MovedBeyond(entry.destination, c.epsilonKm) {
		delete(c.entries, key)
		return geo.DistanceEstimate{}, false
	}

	return entry.estimate, true
}

// Put stores a routed estimate for the key. Non-routed estimates are not
// cached: a haversine value is free to recompute and must never shadow a
// routed one.
func (c *Cache) Put(key CacheKey, origin, destination geo.Coordinate, estimate geo.DistanceEstimate) {
	if !estimate.IsRouted() {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{
		origin:      origin,
		destination: destination,
		estimate:    estimate,
	}
}

// Invalidate removes the entry for the key, if any.
func (c *Cache) Invalidate(key CacheKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
