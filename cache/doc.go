// Package cache provides deterministic, TTL-based caching for upstream
// market-data calls.
//
// Keys are full-hex SHA-256 fingerprints derived by a Keyer from the
// operation name and its canonicalized arguments, so logically identical
// requests always share an entry. Three backends satisfy the Cache
// interface: DiskCache (one JSON file per entry, durable across restarts),
// MemoryCache, and RedisCache. Per-operation TTLs come from a Policy.
package cache
