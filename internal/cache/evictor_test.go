package cache

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// evictorFixture writes n records of roughly equal size with controlled
// creation times and TTLs.
type evictorFixture struct {
	store   *Store
	index   *Index
	evictor *Evictor
	now     time.Time
}

func newEvictorFixture(t *testing.T) *evictorFixture {
	t.Helper()
	store := newTestStore(t)
	index, err := LoadIndex(store, AdoptOrphans, DefaultTTL, zerolog.Nop())
	require.NoError(t, err)

	f := &evictorFixture{
		store:   store,
		index:   index,
		evictor: NewEvictor(store, index, zerolog.Nop()),
		now:     time.Now(),
	}
	f.evictor.now = func() time.Time { return f.now }
	return f
}

func (f *evictorFixture) add(t *testing.T, playerID int, ttl time.Duration, createdAt time.Time) Key {
	t.Helper()
	key, err := BuildKey("shot_charts", map[string]any{"player_id": playerID, "season": "2023-24"})
	require.NoError(t, err)
	payload := json.RawMessage(fmt.Sprintf(`{"player":%d,"pad":"0123456789"}`, playerID))
	size, compressed, err := f.store.Write(key, payload)
	require.NoError(t, err)
	f.index.Put(NewEntry(key, size, ttl, compressed, createdAt))
	return key
}

func TestEvictor(t *testing.T) {
	t.Run("NoopUnderCeiling", func(t *testing.T) {
		f := newEvictorFixture(t)
		f.add(t, 1, time.Hour, f.now)
		assert.Equal(t, 0, f.evictor.Run(1<<20, ""))
		assert.Equal(t, 1, f.index.Len())
	})

	t.Run("UnlimitedCeiling", func(t *testing.T) {
		f := newEvictorFixture(t)
		f.add(t, 1, time.Hour, f.now)
		assert.Equal(t, 0, f.evictor.Run(0, ""))
	})

	t.Run("ExpiredRemovedFirst", func(t *testing.T) {
		f := newEvictorFixture(t)
		// Expired but newest-created; must still go before any live entry.
		expired := f.add(t, 1, time.Minute, f.now.Add(-2*time.Minute))
		live := f.add(t, 2, time.Hour, f.now.Add(-30*time.Minute))

		entrySize, _ := f.index.Get(live.String())
		ceiling := f.index.TotalSize() - 1 // force removal of exactly one entry

		removed := f.evictor.Run(ceiling, "")
		assert.Equal(t, 1, removed)

		_, ok := f.index.Get(expired.String())
		assert.False(t, ok, "expired entry should be evicted first")
		_, ok = f.index.Get(live.String())
		assert.True(t, ok)
		assert.LessOrEqual(t, f.index.TotalSize(), ceiling)
		assert.Equal(t, entrySize.SizeBytes, f.index.TotalSize())

		_, err := f.store.Read(expired)
		assert.ErrorIs(t, err, ErrCacheNotFound)
	})

	t.Run("OldestFirstAmongLive", func(t *testing.T) {
		f := newEvictorFixture(t)
		oldest := f.add(t, 1, time.Hour, f.now.Add(-50*time.Minute))
		newest := f.add(t, 2, time.Hour, f.now.Add(-10*time.Minute))

		removed := f.evictor.Run(f.index.TotalSize()-1, "")
		assert.Equal(t, 1, removed)

		_, ok := f.index.Get(oldest.String())
		assert.False(t, ok)
		_, ok = f.index.Get(newest.String())
		assert.True(t, ok)
	})

	t.Run("JustWrittenSurvives", func(t *testing.T) {
		f := newEvictorFixture(t)
		older := f.add(t, 1, time.Hour, f.now.Add(-time.Hour))
		written := f.add(t, 2, time.Hour, f.now)

		// Ceiling below even a single record: everything else goes, the
		// just-written record stays and the overage is only logged.
		removed := f.evictor.Run(1, written.String())
		assert.Equal(t, 1, removed)

		_, ok := f.index.Get(older.String())
		assert.False(t, ok)
		_, ok = f.index.Get(written.String())
		assert.True(t, ok, "just-written record must never be evicted by its own write")
	})
}
