package record

import (
	"strings"

	"github.com/jinzhu/copier"
)

// Snapshot is an immutable mapping from dotted field path to value. Every
// operation that would change a Snapshot returns a new one; existing holders
// keep seeing the state they captured.
type Snapshot struct {
	data map[string]any
}

// NewSnapshot captures the supplied fields. The input is deep-copied, so the
// caller may keep mutating its map without affecting the snapshot.
func NewSnapshot(fields map[string]any) Snapshot {
	return Snapshot{data: deepCopyMap(fields)}
}

// Value resolves a dotted path against the snapshot, navigating nested
// mappings. The second return reports whether the path exists.
func (s Snapshot) Value(path string) (any, bool) {
	return Lookup(s.data, path)
}

// Key returns the record's "key" field, or "" when absent.
func (s Snapshot) Key() string {
	v, ok := s.data["key"]
	if !ok {
		return ""
	}
	key, _ := v.(string)
	return key
}

// Fields returns a deep copy of the snapshot's contents.
func (s Snapshot) Fields() map[string]any {
	return deepCopyMap(s.data)
}

// Len returns the number of top-level fields.
func (s Snapshot) Len() int {
	return len(s.data)
}

// clone returns a mutable deep copy for the reconciler to work on.
func (s Snapshot) clone() map[string]any {
	return deepCopyMap(s.data)
}

func deepCopyMap(src map[string]any) map[string]any {
	dst := make(map[string]any, len(src))
	if len(src) == 0 {
		return dst
	}
	// copier recursively duplicates nested maps and slices, so the copy
	// shares no mutable structure with the source.
	if err := copier.CopyWithOption(&dst, src, copier.Option{DeepCopy: true}); err != nil {
		// Plain JSON-shaped data never fails to copy; fall back to a
		// shallow copy rather than panic on exotic values.
		for k, v := range src {
			dst[k] = v
		}
	}
	return dst
}

// Lookup navigates a dotted path through nested map[string]any values.
func Lookup(m map[string]any, path string) (any, bool) {
	parts := strings.Split(path, ".")
	cur := m
	for i, part := range parts {
		v, ok := cur[part]
		if !ok {
			return nil, false
		}
		if i == len(parts)-1 {
			return v, true
		}
		next, ok := v.(map[string]any)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return nil, false
}

// SetPath assigns value at the dotted path, creating intermediate maps as
// needed. An intermediate that exists with a non-map value is replaced.
func SetPath(m map[string]any, path string, value any) {
	parts := strings.Split(path, ".")
	cur := m
	for _, part := range parts[:len(parts)-1] {
		next, ok := cur[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			cur[part] = next
		}
		cur = next
	}
	cur[parts[len(parts)-1]] = value
}

// parent resolves the map holding the leaf of path, without creating
// anything. Returns the containing map, the leaf key, and whether the leaf
// exists.
func parent(m map[string]any, path string) (map[string]any, string, bool) {
	parts := strings.Split(path, ".")
	cur := m
	for _, part := range parts[:len(parts)-1] {
		next, ok := cur[part].(map[string]any)
		if !ok {
			return nil, "", false
		}
		cur = next
	}
	leaf := parts[len(parts)-1]
	_, ok := cur[leaf]
	return cur, leaf, ok
}
