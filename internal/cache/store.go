package cache

import (
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Payload file extensions. The extension records whether the payload was
// compressed, so reads never guess.
const (
	payloadExt    = ".json"
	compressedExt = ".json.gz"
)

const (
	dirPerm  = 0750
	filePerm = 0600
)

// Store persists raw serialized payloads under a root directory, one
// subtree per namespace, one subtree per entity. Writes are atomic
// (temp file + rename), so a crash mid-write never leaves a partial
// record visible to readers.
type Store struct {
	dir      string
	compress bool
}

// NewStore creates a payload store rooted at dir, creating the directory
// if needed. When compress is true, new payloads are gzip-compressed;
// existing uncompressed payloads remain readable either way.
func NewStore(dir string, compress bool) (*Store, error) {
	if dir == "" {
		return nil, errors.New("cache directory cannot be empty")
	}
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &Store{dir: dir, compress: compress}, nil
}

// Dir returns the store's root directory.
func (s *Store) Dir() string {
	return s.dir
}

// path returns the payload file location for a key.
func (s *Store) path(key Key, compressed bool) string {
	ext := payloadExt
	if compressed {
		ext = compressedExt
	}
	return filepath.Join(s.dir, key.Namespace, key.Entity, key.Leaf+ext)
}

// Write persists a payload for key and returns the on-disk size and
// whether it was compressed. An existing record under the other extension
// (compression setting changed between runs) is removed so exactly one
// variant remains.
func (s *Store) Write(key Key, payload json.RawMessage) (int64, bool, error) {
	final := s.path(key, s.compress)
	if err := os.MkdirAll(filepath.Dir(final), dirPerm); err != nil {
		return 0, false, fmt.Errorf("failed to create namespace directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(final), ".tmp-*")
	if err != nil {
		return 0, false, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	writeErr := func() error {
		defer tmp.Close()
		if s.compress {
			zw := gzip.NewWriter(tmp)
			if _, err := zw.Write(payload); err != nil {
				return err
			}
			return zw.Close()
		}
		_, err := tmp.Write(payload)
		return err
	}()
	if writeErr != nil {
		_ = os.Remove(tmpPath)
		return 0, false, fmt.Errorf("failed to write cache file: %w", writeErr)
	}

	if err := os.Chmod(tmpPath, filePerm); err != nil {
		_ = os.Remove(tmpPath)
		return 0, false, fmt.Errorf("failed to set cache file mode: %w", err)
	}
	if err := os.Rename(tmpPath, final); err != nil {
		_ = os.Remove(tmpPath)
		return 0, false, fmt.Errorf("failed to rename cache file: %w", err)
	}

	// Drop the other-variant file, if any, so reads stay unambiguous.
	_ = os.Remove(s.path(key, !s.compress))

	info, err := os.Stat(final)
	if err != nil {
		return 0, false, fmt.Errorf("failed to stat cache file: %w", err)
	}
	return info.Size(), s.compress, nil
}

// Read returns the payload for key. It returns ErrCacheNotFound when no
// record exists and ErrCacheCorrupt when a record exists but cannot be
// decoded; the caller treats both as a miss.
func (s *Store) Read(key Key) (json.RawMessage, error) {
	for _, compressed := range []bool{s.compress, !s.compress} {
		data, err := s.readFile(s.path(key, compressed), compressed)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		return data, err
	}
	return nil, ErrCacheNotFound
}

func (s *Store) readFile(path string, compressed bool) (json.RawMessage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if compressed {
		zr, zerr := gzip.NewReader(f)
		if zerr != nil {
			return nil, fmt.Errorf("%w: %v", ErrCacheCorrupt, zerr)
		}
		defer zr.Close()
		r = zr
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCacheCorrupt, err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("%w: payload is not valid JSON", ErrCacheCorrupt)
	}
	return data, nil
}

// Delete removes the payload for key, reporting whether anything was
// removed. Emptied entity and namespace directories are pruned.
func (s *Store) Delete(key Key) (bool, error) {
	removed := false
	for _, compressed := range []bool{false, true} {
		path := s.path(key, compressed)
		err := os.Remove(path)
		switch {
		case err == nil:
			removed = true
		case errors.Is(err, fs.ErrNotExist):
		default:
			return removed, fmt.Errorf("failed to delete cache file: %w", err)
		}
	}
	if removed {
		// Best effort: os.Remove refuses non-empty directories.
		dir := filepath.Join(s.dir, key.Namespace, key.Entity)
		for dir != s.dir && len(dir) > len(s.dir) {
			if err := os.Remove(dir); err != nil {
				break
			}
			dir = filepath.Dir(dir)
		}
	}
	return removed, nil
}

// payloadInfo describes one payload file found on disk, used by the index
// to reconcile itself against the store.
type payloadInfo struct {
	size       int64
	modTime    time.Time
	compressed bool
}

// scan walks the store and returns every payload keyed by its canonical
// key string. Temp files and unknown extensions are ignored.
func (s *Store) scan() (map[string]payloadInfo, error) {
	found := make(map[string]payloadInfo)
	err := filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		name := d.Name()
		if strings.HasPrefix(name, ".tmp-") {
			return nil
		}
		var compressed bool
		switch {
		case strings.HasSuffix(name, compressedExt):
			compressed = true
		case strings.HasSuffix(name, payloadExt):
		default:
			return nil
		}

		rel, relErr := filepath.Rel(s.dir, path)
		if relErr != nil {
			return relErr
		}
		key := filepath.ToSlash(rel)
		if compressed {
			key = strings.TrimSuffix(key, compressedExt)
		} else {
			key = strings.TrimSuffix(key, payloadExt)
		}
		// Files directly at the root (the index itself) are not records.
		if !strings.Contains(key, "/") {
			return nil
		}

		info, infoErr := d.Info()
		if infoErr != nil {
			return nil
		}
		found[key] = payloadInfo{size: info.Size(), modTime: info.ModTime(), compressed: compressed}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan cache directory: %w", err)
	}
	return found, nil
}

// deleteByKeyString removes a payload identified by its canonical key
// string, used for keys recovered from the index rather than built from
// parameters.
func (s *Store) deleteByKeyString(key string) (bool, error) {
	k, ok := parseKeyString(key)
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrInvalidCacheKey, key)
	}
	return s.Delete(k)
}

// parseKeyString splits a canonical key string back into its segments.
func parseKeyString(key string) (Key, bool) {
	parts := strings.Split(key, "/")
	switch len(parts) {
	case 2:
		return Key{Namespace: parts[0], Leaf: parts[1]}, true
	case 3:
		return Key{Namespace: parts[0], Entity: parts[1], Leaf: parts[2]}, true
	default:
		return Key{}, false
	}
}
