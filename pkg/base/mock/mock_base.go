// Package mock implements an in-memory replacement for the Base HTTP API.
// It honors the same semantics the client observes over the wire: generated
// keys on key-less writes, insert conflicts, TTL expiry, server-side
// application of update instructions, and key-ordered cursor pagination
// with clause matching for every query operator.
package mock

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/detaorm/base_sdk_go/internal/devseed"
	"github.com/detaorm/base_sdk_go/pkg/base"
	"github.com/detaorm/base_sdk_go/pkg/query"
	"github.com/detaorm/base_sdk_go/pkg/record"
	"github.com/detaorm/base_sdk_go/pkg/update"
)

// defaultPageSize bounds query pages when the caller passes no limit,
// matching the hosted store's behaviour.
const defaultPageSize = 1000

// Mock is an in-memory Backend. Safe for concurrent use.
type Mock struct {
	mu    sync.RWMutex
	bases map[string]map[string]map[string]any
	now   func() time.Time
}

var _ base.Backend = (*Mock)(nil)

// Option configures the mock instance.
type Option func(*Mock)

// WithClock overrides the clock used for TTL expiry (useful in tests).
func WithClock(fn func() time.Time) Option {
	return func(m *Mock) {
		if fn != nil {
			m.now = fn
		}
	}
}

// New creates an empty mock store.
func New(opts ...Option) *Mock {
	m := &Mock{
		bases: make(map[string]map[string]map[string]any),
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Seed pre-populates record sets from seed entries. Items without a key
// receive a generated one.
func (m *Mock) Seed(entries []devseed.BaseSeedEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range entries {
		if strings.TrimSpace(e.Base) == "" {
			return fmt.Errorf("mock: seed entry missing base name")
		}
		set := m.recordSet(e.Base)
		for _, item := range e.Items {
			stored := record.NewSnapshot(item).Fields()
			key := keyOf(stored)
			if key == "" {
				key = generateKey()
				stored["key"] = key
			}
			set[key] = stored
		}
	}
	return nil
}

// recordSet returns the live map for a base, creating it when absent.
// Callers hold m.mu.
func (m *Mock) recordSet(name string) map[string]map[string]any {
	set, ok := m.bases[name]
	if !ok {
		set = make(map[string]map[string]any)
		m.bases[name] = set
	}
	return set
}

func (m *Mock) PutItems(ctx context.Context, name string, items []map[string]any) (*base.PutResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	set := m.recordSet(name)
	result := &base.PutResult{}
	for _, item := range items {
		stored := record.NewSnapshot(item).Fields()
		key := keyOf(stored)
		if key == "" {
			key = generateKey()
			stored["key"] = key
		}
		set[key] = stored
		result.Processed = append(result.Processed, record.NewSnapshot(stored).Fields())
	}
	return result, nil
}

func (m *Mock) GetItem(ctx context.Context, name, key string) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	item, ok := m.bases[name][key]
	if !ok || m.expired(item) {
		return nil, nil
	}
	return record.NewSnapshot(item).Fields(), nil
}

func (m *Mock) InsertItem(ctx context.Context, name string, item map[string]any) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	set := m.recordSet(name)
	stored := record.NewSnapshot(item).Fields()
	key := keyOf(stored)
	if key == "" {
		key = generateKey()
		stored["key"] = key
	} else if existing, ok := set[key]; ok && !m.expired(existing) {
		return nil, fmt.Errorf("%w: %q in base %q", base.ErrKeyExists, key, name)
	}
	set[key] = stored
	return record.NewSnapshot(stored).Fields(), nil
}

// UpdateItem applies the confirmed instruction set server-side, using the
// same reconciler callers use locally, so mock and client state agree.
func (m *Mock) UpdateItem(ctx context.Context, name, key string, ops update.Operations) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	set := m.recordSet(name)
	item, ok := set[key]
	if !ok || m.expired(item) {
		return fmt.Errorf("%w: key %q in base %q", base.ErrNotFound, key, name)
	}
	next, err := record.Reconcile(record.NewSnapshot(item), ops)
	if err != nil {
		return err
	}
	set[key] = next.Fields()
	return nil
}

func (m *Mock) DeleteItem(ctx context.Context, name, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.bases[name], key)
	return nil
}

func (m *Mock) QueryItems(ctx context.Context, name string, clauses []query.Clause, limit int, last string) (*base.QueryResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	set := m.bases[name]
	keys := make([]string, 0, len(set))
	for key, item := range set {
		if m.expired(item) {
			continue
		}
		if matchClauses(item, clauses) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	start := 0
	if last != "" {
		start = sort.SearchStrings(keys, last)
		for start < len(keys) && keys[start] <= last {
			start++
		}
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	end := start + limit
	if end > len(keys) {
		end = len(keys)
	}

	result := &base.QueryResult{Items: make([]map[string]any, 0, end-start)}
	for _, key := range keys[start:end] {
		result.Items = append(result.Items, record.NewSnapshot(set[key]).Fields())
	}
	result.Size = len(result.Items)
	if end < len(keys) && end > start {
		result.Last = keys[end-1]
	}
	return result, nil
}

func (m *Mock) expired(item map[string]any) bool {
	raw, ok := item["__expires"]
	if !ok {
		return false
	}
	ts, ok := toFloat(raw)
	if !ok {
		return false
	}
	return m.now().After(time.Unix(int64(ts), 0))
}

func keyOf(item map[string]any) string {
	key, _ := item["key"].(string)
	return key
}

// generateKey mirrors the store's opaque auto-generated keys.
func generateKey() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}
