package mock

import (
	"reflect"
	"strings"

	"github.com/detaorm/base_sdk_go/pkg/query"
	"github.com/detaorm/base_sdk_go/pkg/record"
)

// matchClauses evaluates the wire query against one item: clauses OR,
// keys within a clause AND. An empty clause set matches everything, as does
// a clause with no keys.
func matchClauses(item map[string]any, clauses []query.Clause) bool {
	if len(clauses) == 0 {
		return true
	}
	for _, clause := range clauses {
		if matchClause(item, clause) {
			return true
		}
	}
	return false
}

func matchClause(item map[string]any, clause query.Clause) bool {
	for key, want := range clause {
		path, token, _ := strings.Cut(key, "?")
		got, exists := record.Lookup(item, path)
		if !matchOp(token, got, exists, want) {
			return false
		}
	}
	return true
}

// matchOp applies one operator. Absent fields fail every operator except
// the negated ones (ne, not_contains), which they satisfy.
func matchOp(token string, got any, exists bool, want any) bool {
	switch token {
	case "":
		return exists && looseEqual(got, want)
	case "ne":
		return !exists || !looseEqual(got, want)
	case "gt":
		cmp, ok := compare(got, want)
		return exists && ok && cmp > 0
	case "lt":
		cmp, ok := compare(got, want)
		return exists && ok && cmp < 0
	case "gte":
		cmp, ok := compare(got, want)
		return exists && ok && cmp >= 0
	case "lte":
		cmp, ok := compare(got, want)
		return exists && ok && cmp <= 0
	case "pfx":
		s, sok := got.(string)
		p, pok := want.(string)
		return exists && sok && pok && strings.HasPrefix(s, p)
	case "range":
		bounds, ok := toAnySlice(want)
		if !exists || !ok || len(bounds) != 2 {
			return false
		}
		lo, lok := compare(got, bounds[0])
		hi, hok := compare(got, bounds[1])
		return lok && hok && lo >= 0 && hi <= 0
	case "contains":
		return exists && contains(got, want)
	case "not_contains":
		return !exists || !contains(got, want)
	default:
		return false
	}
}

// contains matches substrings of string fields and members of list fields.
func contains(got, want any) bool {
	if s, ok := got.(string); ok {
		sub, ok := want.(string)
		return ok && strings.Contains(s, sub)
	}
	list, ok := toAnySlice(got)
	if !ok {
		return false
	}
	for _, v := range list {
		if looseEqual(v, want) {
			return true
		}
	}
	return false
}

// looseEqual compares numerically when both sides are numbers, so an item
// decoded from JSON (float64) still matches a query built with Go ints.
func looseEqual(a, b any) bool {
	if af, aok := toFloat(a); aok {
		bf, bok := toFloat(b)
		return bok && af == bf
	}
	return reflect.DeepEqual(a, b)
}

// compare orders two values: numbers numerically, strings lexically.
func compare(a, b any) (int, bool) {
	if af, ok := toFloat(a); ok {
		bf, bok := toFloat(b)
		if !bok {
			return 0, false
		}
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		default:
			return 0, true
		}
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return strings.Compare(as, bs), true
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

func toAnySlice(v any) ([]any, bool) {
	if s, ok := v.([]any); ok {
		return s, true
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
