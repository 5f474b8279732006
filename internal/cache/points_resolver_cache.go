package cache

import (
	"strings"
	"time"
)

const defaultPointsTTL = 10 * time.Minute

// PointsResolverCache stores per-unit point resolutions keyed by country and
// SKU. Invoice confirmation resolves every line through the catalog tiers,
// so this is the hottest read path in the system.
type PointsResolverCache interface {
	Get(countryID, sku string) (int64, bool)
	Set(countryID, sku string, points int64)
	Invalidate(countryID, sku string)
	Purge()
}

type pointsResolverCache struct {
	points Cache[string, int64]
	ttl    time.Duration
}

func NewPointsResolverCache() PointsResolverCache {
	return &pointsResolverCache{
		points: NewTTLCache[string, int64](),
		ttl:    defaultPointsTTL,
	}
}

func (c *pointsResolverCache) Get(countryID, sku string) (int64, bool) {
	return c.points.Get(cacheKey(countryID, sku))
}

func (c *pointsResolverCache) Set(countryID, sku string, points int64) {
	c.points.Set(cacheKey(countryID, sku), points, c.ttl)
}

func (c *pointsResolverCache) Invalidate(countryID, sku string) {
	c.points.Delete(cacheKey(countryID, sku))
}

func (c *pointsResolverCache) Purge() {
	c.points.Purge()
}

func cacheKey(parts ...string) string {
	return strings.Join(parts, "|")
}
