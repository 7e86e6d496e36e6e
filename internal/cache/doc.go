// Package cache provides a file-backed, read-through cache for NBA stats
// API responses.
//
// The remote API is slow and rate limited, so every fetched payload is
// persisted under a local cache directory and served from disk until its
// TTL lapses. Key features:
//   - Canonical, filesystem-safe keys derived from namespace + parameters
//   - Season-aware TTLs (in-progress seasons expire fast, completed ones
//     are near-permanent)
//   - A durable metadata index, reconciled against the payload files on load
//   - Size-bounded eviction, expired entries reclaimed first
//   - Stale fallback: if a re-fetch fails and an expired record exists,
//     the old record is returned with an explicit staleness flag
//
// The remote fetch itself is supplied by the caller as an opaque closure;
// this package never performs network I/O.
package cache
