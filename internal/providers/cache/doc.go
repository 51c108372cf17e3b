// Package cache provides a response-caching decorator for backends,
// built on jellydator/ttlcache.
//
// Only deterministic requests (temperature 0) are cached. Hits and misses
// are exported as aikernel_backend_cache_lookups_total.
package cache
