package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// indexFileName is the single metadata file at the cache root.
const indexFileName = "index.json"

// OrphanPolicy controls what Load does with payload files that have no
// index entry (out-of-band writes, or a crash between a store write and
// the index update).
type OrphanPolicy int

const (
	// AdoptOrphans reconstructs metadata from file attributes: created_at
	// from the file's mtime, TTL from the policy default.
	AdoptOrphans OrphanPolicy = iota

	// DiscardOrphans deletes payloads that have no index entry.
	DiscardOrphans
)

// Index is the durable record of every key's metadata, kept separate from
// the payload files. All access is serialized by a single internal lock;
// payload I/O never happens while it is held.
type Index struct {
	path     string
	adoptTTL time.Duration
	logger   zerolog.Logger

	mu        sync.RWMutex
	entries   map[string]Entry
	totalSize int64
}

// LoadIndex reads the index file at the store's root and reconciles it
// against what the store actually contains: entries with no backing
// payload are dropped, orphan payloads are adopted or discarded per
// policy. A missing or unreadable index file starts empty; corruption in
// the index never aborts startup.
func LoadIndex(store *Store, policy OrphanPolicy, adoptTTL time.Duration, logger zerolog.Logger) (*Index, error) {
	idx := &Index{
		path:     filepath.Join(store.Dir(), indexFileName),
		adoptTTL: adoptTTL,
		logger:   logger,
		entries:  make(map[string]Entry),
	}

	data, err := os.ReadFile(idx.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// First run.
	case err != nil:
		return nil, fmt.Errorf("failed to read cache index: %w", err)
	default:
		if unmarshalErr := json.Unmarshal(data, &idx.entries); unmarshalErr != nil {
			logger.Warn().Err(unmarshalErr).Str("path", idx.path).
				Msg("cache index unreadable, rebuilding from payload files")
			idx.entries = make(map[string]Entry)
		}
	}

	if err := idx.reconcile(store, policy); err != nil {
		return nil, err
	}
	if err := idx.Flush(); err != nil {
		logger.Warn().Err(err).Msg("could not persist reconciled cache index")
	}
	return idx, nil
}

// reconcile makes the index and the store agree, then recomputes the
// tracked total size so it equals the sum of all entry sizes.
func (i *Index) reconcile(store *Store, policy OrphanPolicy) error {
	found, err := store.scan()
	if err != nil {
		return err
	}

	for key, entry := range i.entries {
		info, ok := found[key]
		if !ok {
			delete(i.entries, key)
			i.logger.Debug().Str("key", key).Msg("dropping index entry with no payload")
			continue
		}
		// Disk is authoritative for size and compression.
		entry.SizeBytes = info.size
		entry.Compressed = info.compressed
		i.entries[key] = entry
		delete(found, key)
	}

	for key, info := range found {
		if policy == DiscardOrphans {
			if _, err := store.deleteByKeyString(key); err != nil {
				i.logger.Warn().Err(err).Str("key", key).Msg("could not discard orphan payload")
			} else {
				i.logger.Debug().Str("key", key).Msg("discarded orphan payload")
			}
			continue
		}
		i.entries[key] = Entry{
			Key:           key,
			CreatedAt:     info.modTime,
			TTLSeconds:    int(i.adoptTTL / time.Second),
			SizeBytes:     info.size,
			SchemaVersion: SchemaVersion,
			Compressed:    info.compressed,
		}
		i.logger.Debug().Str("key", key).Msg("adopted orphan payload into index")
	}

	i.totalSize = 0
	for _, entry := range i.entries {
		i.totalSize += entry.SizeBytes
	}
	return nil
}

// Get returns the entry for a key.
func (i *Index) Get(key string) (Entry, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	entry, ok := i.entries[key]
	return entry, ok
}

// Put inserts or replaces an entry, keeping the total size in step.
func (i *Index) Put(entry Entry) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if old, ok := i.entries[entry.Key]; ok {
		i.totalSize -= old.SizeBytes
	}
	i.entries[entry.Key] = entry
	i.totalSize += entry.SizeBytes
}

// Remove deletes an entry, returning it for size accounting by callers.
func (i *Index) Remove(key string) (Entry, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	entry, ok := i.entries[key]
	if !ok {
		return Entry{}, false
	}
	delete(i.entries, key)
	i.totalSize -= entry.SizeBytes
	return entry, true
}

// Find returns the keys matching a slash-separated glob pattern, sorted.
// Each segment is matched with path.Match; a trailing "*" segment matches
// the entire remaining subtree, so "shot_charts/player_203897/*" covers
// every record under that player and "*" covers everything.
func (i *Index) Find(pattern string) []string {
	i.mu.RLock()
	defer i.mu.RUnlock()

	var keys []string
	for key := range i.entries {
		if matchKey(pattern, key) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

// Entries returns a snapshot of all entries, for eviction and statistics.
func (i *Index) Entries() []Entry {
	i.mu.RLock()
	defer i.mu.RUnlock()

	out := make([]Entry, 0, len(i.entries))
	for _, entry := range i.entries {
		out = append(out, entry)
	}
	return out
}

// TotalSize returns the sum of all entries' payload sizes in bytes.
func (i *Index) TotalSize() int64 {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.totalSize
}

// Len returns the number of entries.
func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.entries)
}

// Flush atomically persists the index to its file in a human-inspectable
// form (indented JSON, key to metadata).
func (i *Index) Flush() error {
	i.mu.RLock()
	data, err := json.MarshalIndent(i.entries, "", "  ")
	i.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal cache index: %w", err)
	}

	tmpPath := i.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, filePerm); err != nil {
		return fmt.Errorf("failed to write cache index: %w", err)
	}
	if err := os.Rename(tmpPath, i.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename cache index: %w", err)
	}
	return nil
}

// matchKey matches a canonical key string against a hierarchical glob.
func matchKey(pattern, key string) bool {
	patParts := strings.Split(pattern, "/")
	keyParts := strings.Split(key, "/")

	subtree := patParts[len(patParts)-1] == "*"
	if subtree {
		patParts = patParts[:len(patParts)-1]
		if len(keyParts) < len(patParts)+1 {
			return false
		}
	} else if len(keyParts) != len(patParts) {
		return false
	}

	for n, pat := range patParts {
		ok, err := path.Match(pat, keyParts[n])
		if err != nil || !ok {
			return false
		}
	}
	return true
}
