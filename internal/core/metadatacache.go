package core

import "time"

// MetadataTTL is the cache lifetime for raw version metadata bodies.
const MetadataTTL = 60 * time.Minute

// MetadataCacheKey identifies one (registry, package, version) slot. Page
// distinguishes successive pages of a paginated get_package_metadata
// response, which share the same (registry, package) pair but must not
// collide on the same cache slot.
type MetadataCacheKey struct {
	RegistryURL string
	Package     string
	Version     string
	Page        string
}

// MetadataCache is a per (registry, package, version) TTL cache of raw
// version-metadata bytes, so repeated resource lookups within the same
// operation (and across operations within the TTL) skip the network
// round trip.
type MetadataCache struct {
	cache *TTLMap[MetadataCacheKey, []byte]
}

// NewMetadataCache creates a cache using policy for freshness.
func NewMetadataCache(policy FreshnessPolicy) *MetadataCache {
	return &MetadataCache{cache: NewTTLMap[MetadataCacheKey, []byte](MetadataTTL, policy)}
}

// GetOrFetch returns the cached raw body for key, calling fetch on a miss
// and caching its result before returning it. hit reports which happened,
// for callers that want to log cache effectiveness.
func (c *MetadataCache) GetOrFetch(key MetadataCacheKey, fetch func() ([]byte, error)) (body []byte, hit bool, err error) {
	if body, ok := c.cache.Get(key); ok {
		return body, true, nil
	}
	body, err = fetch()
	if err != nil {
		return nil, false, err
	}
	c.cache.Set(key, body)
	return body, false, nil
}

// Invalidate clears any cached entry for key.
func (c *MetadataCache) Invalidate(key MetadataCacheKey) {
	c.cache.Delete(key)
}
