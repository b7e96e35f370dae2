package base_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/detaorm/base_sdk_go/pkg/base"
	"github.com/detaorm/base_sdk_go/pkg/query"
	"github.com/detaorm/base_sdk_go/pkg/record"
	"github.com/detaorm/base_sdk_go/pkg/update"
)

// fakeStore is a minimal wire-accurate store used by the HTTP tests.
type fakeStore struct {
	mu    sync.Mutex
	items map[string]map[string]any

	lastUpdateBody map[string]json.RawMessage
	lastQueryBody  map[string]json.RawMessage
}

func newFakeStore() *fakeStore {
	return &fakeStore{items: make(map[string]map[string]any)}
}

func (s *fakeStore) handler(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-Key") == "" {
			http.Error(w, `{"errors":["missing api key"]}`, http.StatusUnauthorized)
			return
		}
		parts := strings.SplitN(strings.TrimPrefix(r.URL.Path, "/"), "/", 4)
		if len(parts) < 4 || parts[0] != "v1" || parts[1] != "proj" || parts[2] != "users" {
			http.NotFound(w, r)
			return
		}
		rest := parts[3]
		switch {
		case rest == "items" && r.Method == http.MethodPut:
			s.handlePut(w, r)
		case rest == "items" && r.Method == http.MethodPost:
			s.handleInsert(w, r)
		case rest == "query" && r.Method == http.MethodPost:
			s.handleQuery(w, r)
		case strings.HasPrefix(rest, "items/"):
			s.handleItem(w, r, strings.TrimPrefix(rest, "items/"))
		default:
			http.NotFound(w, r)
		}
	})
}

func (s *fakeStore) handlePut(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Items []map[string]any `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	for i, item := range payload.Items {
		key, _ := item["key"].(string)
		if key == "" {
			key = fmt.Sprintf("gen-%d", i)
			item["key"] = key
		}
		s.items[key] = item
	}
	s.mu.Unlock()
	writeJSON(w, map[string]any{"processed": map[string]any{"items": payload.Items}})
}

func (s *fakeStore) handleInsert(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Item map[string]any `json:"item"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	key, _ := payload.Item["key"].(string)
	if key == "" {
		key = "generated-key"
		payload.Item["key"] = key
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.items[key]; exists {
		http.Error(w, `{"errors":["key already exists"]}`, http.StatusConflict)
		return
	}
	s.items[key] = payload.Item
	writeJSON(w, payload.Item)
}

func (s *fakeStore) handleItem(w http.ResponseWriter, r *http.Request, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch r.Method {
	case http.MethodGet:
		item, ok := s.items[key]
		if !ok {
			http.Error(w, `{"errors":["key not found"]}`, http.StatusNotFound)
			return
		}
		writeJSON(w, item)
	case http.MethodPatch:
		if _, ok := s.items[key]; !ok {
			http.Error(w, `{"errors":["key not found"]}`, http.StatusNotFound)
			return
		}
		var body map[string]json.RawMessage
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.lastUpdateBody = body
		writeJSON(w, map[string]any{"key": key})
	case http.MethodDelete:
		delete(s.items, key)
		writeJSON(w, map[string]any{"key": key})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *fakeStore) handleQuery(w http.ResponseWriter, r *http.Request) {
	var body map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	s.lastQueryBody = body
	s.mu.Unlock()

	// Scripted three-page sequence keyed on the "last" cursor.
	last := ""
	if raw, ok := body["last"]; ok {
		_ = json.Unmarshal(raw, &last)
	}
	page := map[string]any{}
	switch last {
	case "":
		page["items"] = itemBatch(25, "p1")
		page["paging"] = map[string]any{"size": 25, "last": "t1"}
	case "t1":
		page["items"] = itemBatch(25, "p2")
		page["paging"] = map[string]any{"size": 25, "last": "t2"}
	case "t2":
		page["items"] = itemBatch(10, "p3")
		page["paging"] = map[string]any{"size": 10}
	default:
		page["items"] = []map[string]any{}
		page["paging"] = map[string]any{"size": 0}
	}
	writeJSON(w, page)
}

func itemBatch(n int, prefix string) []map[string]any {
	items := make([]map[string]any, n)
	for i := range items {
		items[i] = map[string]any{"key": fmt.Sprintf("%s-%03d", prefix, i)}
	}
	return items
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, store *fakeStore, opts ...base.Option) (*base.Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(store.handler(t))
	t.Cleanup(srv.Close)
	client, err := base.New("proj_testkey", append([]base.Option{base.WithBaseURL(srv.URL)}, opts...)...)
	require.NoError(t, err)
	return client, srv
}

func TestNewRequiresProjectKey(t *testing.T) {
	_, err := base.New("  ")
	assert.Error(t, err)

	_, err = base.New("_nokey")
	assert.Error(t, err)
}

func TestPutGetDeleteRoundtrip(t *testing.T) {
	store := newFakeStore()
	client, _ := newTestClient(t, store)
	users := client.Base("users")
	ctx := context.Background()

	res, err := users.Put(ctx, []map[string]any{
		{"key": "alice", "age": 31},
		{"key": "bob", "age": 27},
	}, nil)
	require.NoError(t, err)
	assert.Len(t, res.Processed, 2)

	item, err := users.Get(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, float64(31), item["age"])

	missing, err := users.Get(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, users.Delete(ctx, "alice"))
	item, err = users.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Nil(t, item)
}

func TestPutInjectsTTLWithoutMutatingCallerMap(t *testing.T) {
	store := newFakeStore()
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	client, _ := newTestClient(t, store, base.WithClock(func() time.Time { return fixed }))
	users := client.Base("users")

	item := map[string]any{"key": "ttl"}
	_, err := users.Put(context.Background(), []map[string]any{item}, &base.PutOptions{
		ExpireIn: time.Minute,
	})
	require.NoError(t, err)

	_, hasLocal := item["__expires"]
	assert.False(t, hasLocal, "caller map must stay untouched")

	store.mu.Lock()
	stored := store.items["ttl"]
	store.mu.Unlock()
	assert.Equal(t, float64(fixed.Add(time.Minute).Unix()), stored["__expires"])
}

func TestPutOptionsExclusive(t *testing.T) {
	store := newFakeStore()
	client, _ := newTestClient(t, store)

	_, err := client.Base("users").Put(context.Background(),
		[]map[string]any{{"key": "x"}},
		&base.PutOptions{ExpireAt: time.Now(), ExpireIn: time.Minute},
	)
	assert.Error(t, err)
}

func TestPutOversizedBatchWarns(t *testing.T) {
	store := newFakeStore()
	var logBuf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logBuf, nil))
	client, _ := newTestClient(t, store, base.WithLogger(logger))

	items := itemBatch(30, "bulk")
	res, err := client.Base("users").Put(context.Background(), items, nil)
	require.NoError(t, err)
	assert.Len(t, res.Processed, 30)
	assert.Contains(t, logBuf.String(), "put batch exceeds store limit")
}

func TestInsertConflict(t *testing.T) {
	store := newFakeStore()
	client, _ := newTestClient(t, store)
	users := client.Base("users")
	ctx := context.Background()

	stored, err := users.Insert(ctx, map[string]any{"name": "carol"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "generated-key", stored["key"])

	_, err = users.Insert(ctx, map[string]any{"key": "generated-key"}, nil)
	assert.ErrorIs(t, err, base.ErrKeyExists)
}

func TestUpdateSendsMergedBodyAndReconciles(t *testing.T) {
	store := newFakeStore()
	client, _ := newTestClient(t, store)
	users := client.Base("users")
	ctx := context.Background()

	_, err := users.Put(ctx, []map[string]any{
		{"key": "dave", "count": 1, "tags": []any{"a"}},
	}, nil)
	require.NoError(t, err)

	confirmed, err := users.Update(ctx, "dave",
		update.Increment(map[string]float64{"count": 2}),
		update.Append(map[string][]any{"tags": {"b"}}),
		update.Delete("tags"),
	)
	require.NoError(t, err)

	// The wire body carries exactly the five instruction keys.
	store.mu.Lock()
	body := store.lastUpdateBody
	store.mu.Unlock()
	require.Len(t, body, 5)
	assert.JSONEq(t, `{"count":2}`, string(body["increment"]))
	assert.JSONEq(t, `["tags"]`, string(body["delete"]))

	// The store confirmed instructions, not values; reconcile locally.
	prev := record.NewSnapshot(map[string]any{"count": 1, "tags": []any{"a"}})
	next, err := record.Reconcile(prev, confirmed)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"count": float64(3)}, next.Fields())
}

func TestUpdateUnknownKey(t *testing.T) {
	store := newFakeStore()
	client, _ := newTestClient(t, store)

	_, err := client.Base("users").Update(context.Background(), "ghost",
		update.Set(map[string]any{"x": 1}))
	assert.ErrorIs(t, err, base.ErrNotFound)
}

func TestUpdateRequiresInstructions(t *testing.T) {
	store := newFakeStore()
	client, _ := newTestClient(t, store)

	_, err := client.Base("users").Update(context.Background(), "dave")
	assert.Error(t, err)
}

func TestQueryPaginationOverHTTP(t *testing.T) {
	store := newFakeStore()
	client, _ := newTestClient(t, store)
	users := client.Base("users")
	ctx := context.Background()

	pager, err := users.Query(ctx,
		query.NewTerm("age", query.Gt, 10),
		&base.QueryOptions{Limit: 25},
	)
	require.NoError(t, err)

	var sizes []int
	for {
		page, err := pager.Next(ctx)
		require.NoError(t, err)
		if page == nil {
			break
		}
		sizes = append(sizes, page.Size)
	}
	assert.Equal(t, []int{25, 25, 10}, sizes)

	// Terminal is idempotent.
	page, err := pager.Next(ctx)
	require.NoError(t, err)
	assert.Nil(t, page)

	// The wire body carried the DNF clause array on every fetch.
	store.mu.Lock()
	queryBody := store.lastQueryBody
	store.mu.Unlock()
	assert.JSONEq(t, `[{"age?gt":10}]`, string(queryBody["query"]))
	assert.JSONEq(t, `25`, string(queryBody["limit"]))
}

func TestQueryInvalidOperatorFailsFast(t *testing.T) {
	store := newFakeStore()
	client, _ := newTestClient(t, store)

	_, err := client.Base("users").Query(context.Background(),
		query.NewTerm("age", query.Operator("between"), 1), nil)
	assert.ErrorIs(t, err, query.ErrInvalidQueryShape)
}
