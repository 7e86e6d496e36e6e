package cache

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Key is the canonical, filesystem-safe identity of a cached record.
// Namespace is the top-level category ("shot_charts", "league_leaders",
// "career_stats"), Entity the optional per-entity segment ("player_203897"),
// and Leaf the remaining canonicalized parameters.
type Key struct {
	Namespace string
	Entity    string
	Leaf      string
}

// String renders the key as a slash-separated path, which is also the
// record's location relative to the cache root (minus the file extension).
func (k Key) String() string {
	if k.Entity == "" {
		return k.Namespace + "/" + k.Leaf
	}
	return k.Namespace + "/" + k.Entity + "/" + k.Leaf
}

// entityParams are parameter names promoted to the per-entity path segment,
// checked in this order. The first one present wins.
var entityParams = []string{"player_id", "team_id", "entity_id"}

// BuildKey derives the canonical Key for a namespace and parameter mapping.
// Parameter names are sorted before serialization, so call-site ordering
// never changes the result. Values are normalized to a single textual form
// (integers without leading zeros, strings trimmed).
//
// Returns ErrInvalidCacheKey if any component would escape the cache
// subtree (path separators, parent references) once stringified.
func BuildKey(namespace string, params map[string]any) (Key, error) {
	if err := validateComponent(namespace); err != nil {
		return Key{}, fmt.Errorf("%w: namespace %q: %v", ErrInvalidCacheKey, namespace, err)
	}

	normalized := make(map[string]string, len(params))
	for name, value := range params {
		s, err := normalizeValue(value)
		if err != nil {
			return Key{}, fmt.Errorf("%w: parameter %q: %v", ErrInvalidCacheKey, name, err)
		}
		if err := validateComponent(name); err != nil {
			return Key{}, fmt.Errorf("%w: parameter name %q: %v", ErrInvalidCacheKey, name, err)
		}
		if err := validateComponent(s); err != nil {
			return Key{}, fmt.Errorf("%w: parameter %q value %q: %v", ErrInvalidCacheKey, name, s, err)
		}
		normalized[name] = s
	}

	key := Key{Namespace: namespace}

	for _, name := range entityParams {
		if v, ok := normalized[name]; ok {
			key.Entity = strings.TrimSuffix(name, "_id") + "_" + v
			delete(normalized, name)
			break
		}
	}

	names := make([]string, 0, len(normalized))
	for name := range normalized {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+"_"+normalized[name])
	}
	key.Leaf = strings.Join(parts, "_")
	if key.Leaf == "" {
		key.Leaf = "data"
	}

	return key, nil
}

// normalizeValue renders a parameter value in its canonical textual form.
func normalizeValue(value any) (string, error) {
	switch v := value.(type) {
	case string:
		s := strings.TrimSpace(v)
		// Whitespace inside a value would produce awkward filenames.
		return strings.Join(strings.Fields(s), "-"), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case uint64:
		return strconv.FormatUint(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(v), nil
	case fmt.Stringer:
		return strings.TrimSpace(v.String()), nil
	default:
		return "", fmt.Errorf("unsupported value type %T", value)
	}
}

// validateComponent rejects strings that could escape the cache subtree or
// break the key's slash-separated structure.
func validateComponent(s string) error {
	if s == "" {
		return fmt.Errorf("empty component")
	}
	if strings.ContainsAny(s, "/\\:\x00") {
		return fmt.Errorf("contains path separator or reserved character")
	}
	if s == "." || s == ".." || strings.Contains(s, "..") {
		return fmt.Errorf("contains parent directory reference")
	}
	if strings.HasPrefix(s, ".") {
		return fmt.Errorf("leading dot")
	}
	return nil
}
