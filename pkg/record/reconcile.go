package record

import (
	"errors"
	"fmt"
	"reflect"
	"sort"

	"github.com/detaorm/base_sdk_go/pkg/update"
)

var (
	// ErrTypeMismatch reports an Increment/Append/Prepend instruction whose
	// target holds an incompatible value.
	ErrTypeMismatch = errors.New("record: type mismatch")
	// ErrPathNotFound reports a Delete instruction whose target is absent
	// from the snapshot.
	ErrPathNotFound = errors.New("record: path not found")
)

// Reconcile applies a confirmed instruction set to prev and returns the
// resulting snapshot. Kinds apply in the fixed order Set, Increment, Append,
// Prepend, Delete regardless of how the caller submitted the instructions;
// within a kind, paths apply in sorted order so the result is deterministic.
//
// prev is never mutated, and on error no partially-applied state escapes.
func Reconcile(prev Snapshot, ops update.Operations) (Snapshot, error) {
	next := prev.clone()

	for _, path := range sortedKeys(ops.Set) {
		SetPath(next, path, ops.Set[path])
	}

	for _, path := range sortedKeys(ops.Increment) {
		container, leaf, ok := parent(next, path)
		if !ok {
			// The store tolerates increments on absent paths.
			continue
		}
		current, ok := toFloat(container[leaf])
		if !ok {
			return Snapshot{}, fmt.Errorf("%w: increment %q targets non-numeric %T", ErrTypeMismatch, path, container[leaf])
		}
		container[leaf] = current + ops.Increment[path]
	}

	for _, path := range sortedKeys(ops.Append) {
		if err := concat(next, path, ops.Append[path], false); err != nil {
			return Snapshot{}, err
		}
	}

	for _, path := range sortedKeys(ops.Prepend) {
		if err := concat(next, path, ops.Prepend[path], true); err != nil {
			return Snapshot{}, err
		}
	}

	deletes := append([]string(nil), ops.Delete...)
	sort.Strings(deletes)
	for _, path := range deletes {
		container, leaf, ok := parent(next, path)
		if !ok {
			// Strict by choice: a delete naming a path the snapshot
			// never held is surfaced rather than ignored.
			return Snapshot{}, fmt.Errorf("%w: delete %q", ErrPathNotFound, path)
		}
		delete(container, leaf)
	}

	return Snapshot{data: next}, nil
}

func concat(m map[string]any, path string, values []any, before bool) error {
	container, leaf, ok := parent(m, path)
	if !ok {
		// Absent targets are a no-op, mirroring Increment.
		return nil
	}
	existing, ok := toSlice(container[leaf])
	if !ok {
		return fmt.Errorf("%w: list update %q targets non-sequence %T", ErrTypeMismatch, path, container[leaf])
	}
	if before {
		container[leaf] = append(append([]any{}, values...), existing...)
	} else {
		container[leaf] = append(existing, values...)
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// toFloat widens any numeric leaf to float64, matching what a JSON decode of
// the record would produce.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

// toSlice accepts []any directly and converts other slice kinds so snapshots
// assembled in Go code (e.g. []string) behave like their JSON-decoded form.
func toSlice(v any) ([]any, bool) {
	if s, ok := v.([]any); ok {
		return append([]any(nil), s...), true
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || rv.Kind() != reflect.Slice {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
