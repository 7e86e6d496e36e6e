package cache

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Evictor enforces the cache's total-size ceiling. Entries already expired
// are removed first (oldest created first); if the cache is still over the
// ceiling, removal continues among unexpired entries in creation order.
type Evictor struct {
	store  *Store
	index  *Index
	logger zerolog.Logger

	mu  sync.Mutex
	now func() time.Time
}

// NewEvictor creates an evictor over the given store and index.
func NewEvictor(store *Store, index *Index, logger zerolog.Logger) *Evictor {
	return &Evictor{store: store, index: index, logger: logger, now: time.Now}
}

// Run removes entries until the index's total size is at or below maxTotal
// bytes and returns the number removed. maxTotal <= 0 means unlimited.
//
// justWritten names a key that must survive this run, so the write that
// triggered eviction is never immediately undone. If that single record
// alone exceeds the ceiling, the condition is logged as a warning and the
// record is kept.
func (e *Evictor) Run(maxTotal int64, justWritten string) int {
	if maxTotal <= 0 {
		return 0
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.index.TotalSize() <= maxTotal {
		return 0
	}

	now := e.now()
	entries := e.index.Entries()
	sort.Slice(entries, func(a, b int) bool {
		ea, eb := entries[a].Expired(now), entries[b].Expired(now)
		if ea != eb {
			return ea
		}
		return entries[a].CreatedAt.Before(entries[b].CreatedAt)
	})

	removed := 0
	for _, entry := range entries {
		if e.index.TotalSize() <= maxTotal {
			break
		}
		if entry.Key == justWritten {
			continue
		}
		if _, ok := e.index.Remove(entry.Key); !ok {
			continue
		}
		if _, err := e.store.deleteByKeyString(entry.Key); err != nil {
			e.logger.Warn().Err(err).Str("key", entry.Key).Msg("could not delete evicted payload")
		}
		e.logger.Debug().
			Str("key", entry.Key).
			Bool("expired", entry.Expired(now)).
			Int64("size_bytes", entry.SizeBytes).
			Msg("evicted cache entry")
		removed++
	}

	if total := e.index.TotalSize(); total > maxTotal {
		e.logger.Warn().
			Str("key", justWritten).
			Int64("total_bytes", total).
			Int64("max_bytes", maxTotal).
			Msg("cache still over size ceiling, a single record exceeds it")
	}
	return removed
}
