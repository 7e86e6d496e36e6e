package cache

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Config is the cache subsystem's configuration surface.
type Config struct {
	// Enabled turns the whole subsystem on or off. A disabled manager is a
	// pure passthrough to the fetch function.
	Enabled bool

	// Directory is the root path for payload files and the index.
	Directory string

	// TTL holds the freshness durations per season context.
	TTL TTLPolicy

	// MaxSizeBytes is the eviction ceiling; <= 0 means unlimited.
	MaxSizeBytes int64

	// Compression enables gzip compression of payload files.
	Compression bool

	// Orphans controls reconciliation of payloads with no index entry.
	Orphans OrphanPolicy
}

// FetchFunc is the caller-supplied remote fetch invoked on a miss. The
// manager treats it as opaque: no arguments, a serializable result or an
// error, retry behavior entirely the caller's business.
type FetchFunc func() (any, error)

// Options are the per-call cache controls.
type Options struct {
	// ForceRefresh bypasses the freshness check: always fetch, overwrite.
	ForceRefresh bool

	// NoCache bypasses the cache entirely for this invocation.
	NoCache bool
}

// Info is the aggregate statistics snapshot for the cache.
type Info struct {
	Directory string
	Entries   int
	TotalSize int64
	Expired   int
	OldestAge time.Duration
	NewestAge time.Duration
}

// Manager composes the key builder, TTL policy, store, index, and evictor
// into the read-through cache facade. It owns the single index instance
// for the life of the process.
type Manager struct {
	cfg     Config
	store   *Store
	index   *Index
	evictor *Evictor
	logger  zerolog.Logger

	// group coalesces concurrent fetches of one key; the fetch runs with
	// no cache lock held, so a slow remote call never blocks other keys.
	group singleflight.Group

	// keyLocks serializes payload writes per key.
	keyMu    sync.Mutex
	keyLocks map[string]*sync.Mutex

	now func() time.Time
}

// NewManager opens (or creates) the cache at cfg.Directory and reconciles
// the index against the payload files. A disabled config yields a manager
// whose GetOrFetch is a passthrough and whose maintenance operations
// return ErrCacheDisabled.
func NewManager(cfg Config, logger zerolog.Logger) (*Manager, error) {
	logger = logger.With().Str("component", "cache").Logger()

	m := &Manager{
		cfg:      cfg,
		logger:   logger,
		keyLocks: make(map[string]*sync.Mutex),
		now:      time.Now,
	}
	if !cfg.Enabled {
		return m, nil
	}

	store, err := NewStore(cfg.Directory, cfg.Compression)
	if err != nil {
		return nil, err
	}

	adoptTTL := cfg.TTL.Default
	if adoptTTL <= 0 {
		adoptTTL = DefaultTTL
	}
	index, err := LoadIndex(store, cfg.Orphans, adoptTTL, logger)
	if err != nil {
		return nil, err
	}

	m.store = store
	m.index = index
	m.evictor = NewEvictor(store, index, logger)
	return m, nil
}

// Enabled reports whether the cache subsystem is active.
func (m *Manager) Enabled() bool {
	return m.cfg.Enabled
}

// GetOrFetch returns the payload for (namespace, params), fetching through
// the supplied function on a miss or expiry. The second return value is
// the staleness flag: true only when the fetch failed and an expired
// record was served as a fallback.
//
// Only an invalid key and a fetch failure with no fallback record surface
// as errors; storage trouble is absorbed with logging.
func (m *Manager) GetOrFetch(
	namespace string,
	params map[string]any,
	sctx SeasonContext,
	fetch FetchFunc,
	opts Options,
) (json.RawMessage, bool, error) {
	if !m.cfg.Enabled || opts.NoCache {
		data, err := runFetch(fetch)
		return data, false, err
	}

	key, err := BuildKey(namespace, params)
	if err != nil {
		return nil, false, err
	}
	ks := key.String()

	if !opts.ForceRefresh {
		if data, ok := m.readFresh(key, ks); ok {
			return data, false, nil
		}
	}

	v, fetchErr, _ := m.group.Do(ks, func() (any, error) {
		data, err := runFetch(fetch)
		if err != nil {
			return nil, err
		}
		m.persist(key, ks, data, sctx)
		return data, nil
	})
	if fetchErr != nil {
		if data, ok := m.readStale(key, ks, fetchErr); ok {
			return data, true, nil
		}
		return nil, false, fetchErr
	}
	return v.(json.RawMessage), false, nil
}

// runFetch invokes the caller's fetch and serializes its result.
func runFetch(fetch FetchFunc) (json.RawMessage, error) {
	v, err := fetch()
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize fetched payload: %w", err)
	}
	return data, nil
}

// readFresh returns the stored payload when a fresh, same-schema entry
// exists. A record that fails to decode is evicted eagerly so it is not
// repeatedly attempted.
func (m *Manager) readFresh(key Key, ks string) (json.RawMessage, bool) {
	entry, ok := m.index.Get(ks)
	if !ok || entry.SchemaVersion != SchemaVersion || entry.Expired(m.now()) {
		return nil, false
	}

	data, err := m.store.Read(key)
	if err != nil {
		m.logger.Warn().Err(err).Str("key", ks).Msg("cache entry unreadable, evicting")
		m.dropKey(ks, key)
		return nil, false
	}
	m.logger.Debug().Str("key", ks).Dur("age", entry.Age(m.now())).Msg("cache hit")
	return data, true
}

// readStale serves a possibly expired record after a fetch failure.
func (m *Manager) readStale(key Key, ks string, fetchErr error) (json.RawMessage, bool) {
	if _, ok := m.index.Get(ks); !ok {
		return nil, false
	}
	data, err := m.store.Read(key)
	if err != nil {
		return nil, false
	}
	m.logger.Warn().Err(fetchErr).Str("key", ks).Msg("fetch failed, serving stale cache entry")
	return data, true
}

// persist writes a freshly fetched payload and its metadata, then runs the
// evictor opportunistically. Failures here degrade caching but never the
// caller's result, so they are logged and swallowed.
func (m *Manager) persist(key Key, ks string, data json.RawMessage, sctx SeasonContext) {
	mu := m.lockFor(ks)
	mu.Lock()
	defer mu.Unlock()

	size, compressed, err := m.store.Write(key, data)
	if err != nil {
		m.logger.Warn().Err(err).Str("key", ks).Msg("could not persist cache entry, continuing uncached")
		return
	}

	ttl := m.cfg.TTL.For(key.Namespace, sctx)
	m.index.Put(NewEntry(key, size, ttl, compressed, m.now()))

	if removed := m.evictor.Run(m.cfg.MaxSizeBytes, ks); removed > 0 {
		m.logger.Debug().Int("removed", removed).Msg("opportunistic eviction")
	}
	if err := m.index.Flush(); err != nil {
		m.logger.Warn().Err(err).Msg("could not persist cache index")
	}
}

// dropKey removes a record from both store and index.
func (m *Manager) dropKey(ks string, key Key) {
	m.index.Remove(ks)
	if _, err := m.store.Delete(key); err != nil {
		m.logger.Warn().Err(err).Str("key", ks).Msg("could not delete cache payload")
	}
}

// lockFor returns the per-key write mutex, creating it lazily.
func (m *Manager) lockFor(ks string) *sync.Mutex {
	m.keyMu.Lock()
	defer m.keyMu.Unlock()
	mu, ok := m.keyLocks[ks]
	if !ok {
		mu = &sync.Mutex{}
		m.keyLocks[ks] = mu
	}
	return mu
}

// Invalidate removes every record matching the hierarchical glob pattern
// from both store and index and reports the count removed.
func (m *Manager) Invalidate(pattern string) (int, error) {
	if !m.cfg.Enabled {
		return 0, ErrCacheDisabled
	}

	keys := m.index.Find(pattern)
	for _, ks := range keys {
		m.index.Remove(ks)
		if _, err := m.store.deleteByKeyString(ks); err != nil {
			m.logger.Warn().Err(err).Str("key", ks).Msg("could not delete cache payload")
		}
	}
	if len(keys) > 0 {
		if err := m.index.Flush(); err != nil {
			m.logger.Warn().Err(err).Msg("could not persist cache index")
		}
	}
	m.logger.Info().Str("pattern", pattern).Int("removed", len(keys)).Msg("cache invalidated")
	return len(keys), nil
}

// ClearExpired removes only the records whose TTL has lapsed.
func (m *Manager) ClearExpired() (int, error) {
	if !m.cfg.Enabled {
		return 0, ErrCacheDisabled
	}

	now := m.now()
	removed := 0
	for _, entry := range m.index.Entries() {
		if !entry.Expired(now) {
			continue
		}
		m.index.Remove(entry.Key)
		if _, err := m.store.deleteByKeyString(entry.Key); err != nil {
			m.logger.Warn().Err(err).Str("key", entry.Key).Msg("could not delete cache payload")
		}
		removed++
	}
	if removed > 0 {
		if err := m.index.Flush(); err != nil {
			m.logger.Warn().Err(err).Msg("could not persist cache index")
		}
	}
	return removed, nil
}

// GetInfo returns aggregate statistics computed from the index alone; the
// payload files are not touched.
func (m *Manager) GetInfo() (Info, error) {
	if !m.cfg.Enabled {
		return Info{}, ErrCacheDisabled
	}

	now := m.now()
	info := Info{Directory: m.cfg.Directory}
	for _, entry := range m.index.Entries() {
		info.Entries++
		info.TotalSize += entry.SizeBytes
		if entry.Expired(now) {
			info.Expired++
		}
		age := entry.Age(now)
		if age > info.OldestAge {
			info.OldestAge = age
		}
		if info.NewestAge == 0 || age < info.NewestAge {
			info.NewestAge = age
		}
	}
	return info, nil
}

// Flush persists the index; call it at shutdown.
func (m *Manager) Flush() error {
	if !m.cfg.Enabled {
		return nil
	}
	return m.index.Flush()
}
