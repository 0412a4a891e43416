package vision

import (
	"math"

	"github.com/gridsight/engine/internal/geom"
)

// DefaultCacheEntries caps the cache when no size is configured.
const DefaultCacheEntries = 128

// Cache memoizes computed polygons keyed by exact origin, blocker-state
// version and radius. Versions make invalidation implicit: after any portal
// or wall mutation the caller's version has moved on, so old entries are
// never hit again and die in the next wholesale clear. Single-goroutine use,
// like everything else in the engine core.
type Cache struct {
	max     int
	entries map[cacheKey][]geom.Point
}

type cacheKey struct {
	ox, oy  uint64
	version uint64
	radius  uint64
}

func NewCache(maxEntries int) *Cache {
	if maxEntries <= 0 {
		maxEntries = DefaultCacheEntries
	}
	return &Cache{max: maxEntries, entries: make(map[cacheKey][]geom.Point, maxEntries)}
}

func cacheKeyFor(origin geom.Point, version uint64, radius float64) cacheKey {
	return cacheKey{
		ox:      math.Float64bits(origin.X),
		oy:      math.Float64bits(origin.Y),
		version: version,
		radius:  math.Float64bits(radius),
	}
}

// Get looks up a cached polygon.
func (c *Cache) Get(origin geom.Point, version uint64, radius float64) ([]geom.Point, bool) {
	poly, ok := c.entries[cacheKeyFor(origin, version, radius)]
	return poly, ok
}

// Put stores a polygon, clearing the whole cache first when the entry cap
// is reached.
func (c *Cache) Put(origin geom.Point, version uint64, radius float64, poly []geom.Point) {
	if len(c.entries) >= c.max {
		c.entries = make(map[cacheKey][]geom.Point, c.max)
	}
	c.entries[cacheKeyFor(origin, version, radius)] = poly
}

// Len reports the number of cached polygons.
func (c *Cache) Len() int { return len(c.entries) }
