package cache

import "errors"

// Common cache errors.
var (
	// ErrCacheNotFound is returned when no record exists for a key.
	ErrCacheNotFound = errors.New("cache entry not found")

	// ErrInvalidCacheKey is returned when parameters cannot be canonicalized
	// into a filesystem-safe key. This is a caller bug and is rejected
	// before any I/O happens.
	ErrInvalidCacheKey = errors.New("invalid cache key")

	// ErrCacheCorrupt is returned by the store when a payload file exists
	// but cannot be decoded. The manager treats it as a miss.
	ErrCacheCorrupt = errors.New("cache entry corrupt")

	// ErrCacheDisabled is returned when the subsystem is turned off by
	// configuration.
	ErrCacheDisabled = errors.New("cache is disabled")
)
