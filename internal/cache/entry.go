package cache

import "time"

// SchemaVersion is stamped into every entry written by this build. Bump it
// when the payload encoding changes; mismatched entries are refetched.
const SchemaVersion = 1

// Entry is the payload-free metadata projection of one cached record, as
// persisted in the index file. Entries are immutable: a refresh writes a
// replacement under the same key.
type Entry struct {
	// Key is the canonical cache key ("namespace/entity/leaf").
	Key string `json:"key"`

	// CreatedAt is when the record was written.
	CreatedAt time.Time `json:"created_at"`

	// TTLSeconds is the record's time-to-live, in seconds for readability
	// in the index file.
	TTLSeconds int `json:"ttl_seconds"`

	// SizeBytes is the on-disk size of the payload file.
	SizeBytes int64 `json:"size_bytes"`

	// SchemaVersion is the payload encoding version at write time.
	SchemaVersion int `json:"schema_version"`

	// Compressed records whether the payload was gzip-compressed, so a
	// reader never has to guess.
	Compressed bool `json:"compressed"`
}

// NewEntry builds the metadata entry for a freshly written record.
func NewEntry(key Key, size int64, ttl time.Duration, compressed bool, now time.Time) Entry {
	return Entry{
		Key:           key.String(),
		CreatedAt:     now,
		TTLSeconds:    int(ttl / time.Second),
		SizeBytes:     size,
		SchemaVersion: SchemaVersion,
		Compressed:    compressed,
	}
}

// TTL returns the entry's time-to-live as a duration.
func (e Entry) TTL() time.Duration {
	return time.Duration(e.TTLSeconds) * time.Second
}

// ExpiresAt returns the instant the entry goes stale.
func (e Entry) ExpiresAt() time.Time {
	return e.CreatedAt.Add(e.TTL())
}

// Expired reports whether the entry is stale at the given instant.
func (e Entry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt())
}

// Age returns how long ago the entry was created.
func (e Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.CreatedAt)
}
