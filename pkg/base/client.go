package base

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/detaorm/base_sdk_go/internal/detaapi"
	"github.com/detaorm/base_sdk_go/internal/httpx"
	"github.com/detaorm/base_sdk_go/pkg/query"
	"github.com/detaorm/base_sdk_go/pkg/update"
)

// Backend is the store-facing surface of the client. The HTTP backend talks
// to the real API; mock implementations serve tests and offline development.
type Backend interface {
	PutItems(ctx context.Context, base string, items []map[string]any) (*PutResult, error)
	GetItem(ctx context.Context, base, key string) (map[string]any, error)
	InsertItem(ctx context.Context, base string, item map[string]any) (map[string]any, error)
	UpdateItem(ctx context.Context, base, key string, ops update.Operations) error
	DeleteItem(ctx context.Context, base, key string) error
	QueryItems(ctx context.Context, base string, clauses []query.Clause, limit int, last string) (*QueryResult, error)
}

// Client provides access to the record sets of one project.
type Client struct {
	backend Backend
	log     *slog.Logger
	now     func() time.Time
}

// Option configures a Client.
type Option func(*config)

type config struct {
	baseURL  string
	logger   *slog.Logger
	httpOpts []httpx.Option
	now      func() time.Time
}

// WithBaseURL points the client at a different endpoint, e.g. a local
// sandbox.
func WithBaseURL(u string) Option {
	return func(c *config) {
		if strings.TrimSpace(u) != "" {
			c.baseURL = u
		}
	}
}

// WithLogger sets the logger used for client warnings.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithHTTPOptions passes additional options to the underlying transport.
func WithHTTPOptions(opts ...httpx.Option) Option {
	return func(c *config) {
		c.httpOpts = append(c.httpOpts, opts...)
	}
}

// WithClock overrides the clock used for TTL computation (useful in tests).
func WithClock(fn func() time.Time) Option {
	return func(c *config) {
		if fn != nil {
			c.now = fn
		}
	}
}

func newConfig(opts []Option) *config {
	cfg := &config{
		baseURL: DefaultBaseURL,
		logger:  slog.Default(),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// New constructs a Client from a project key. The project id is the part of
// the key before the first underscore; the key itself authenticates every
// request via the X-API-Key header.
func New(projectKey string, opts ...Option) (*Client, error) {
	key := strings.TrimSpace(projectKey)
	if key == "" {
		return nil, errors.New("base: project key is required")
	}
	projectID, _, _ := strings.Cut(key, "_")
	if projectID == "" {
		return nil, fmt.Errorf("base: cannot derive project id from key")
	}

	cfg := newConfig(opts)
	httpOpts := append([]httpx.Option{
		httpx.WithAPIKey(key),
		httpx.WithHeaders(http.Header{"Content-Type": []string{"application/json"}}),
	}, cfg.httpOpts...)

	cl, err := httpx.NewClient(cfg.baseURL, httpOpts...)
	if err != nil {
		return nil, err
	}
	return &Client{
		backend: &httpBackend{client: cl, projectID: projectID},
		log:     cfg.logger,
		now:     cfg.now,
	}, nil
}

// NewWithBackend wires a custom Backend, e.g. the in-memory mock.
func NewWithBackend(b Backend, opts ...Option) *Client {
	cfg := newConfig(opts)
	return &Client{backend: b, log: cfg.logger, now: cfg.now}
}

// Base returns a handle for one record set.
func (c *Client) Base(name string) *Base {
	return &Base{client: c, name: name}
}

// Base is a handle for the operations on one record set.
type Base struct {
	client *Client
	name   string
}

// Name returns the record-set name.
func (b *Base) Name() string { return b.name }

// Put stores items, overwriting any existing records with the same key.
// The store processes at most 25 items per call; larger batches are passed
// through so its rejection is authoritative, with a client-side warning.
func (b *Base) Put(ctx context.Context, items []map[string]any, opts *PutOptions) (*PutResult, error) {
	if err := b.valid(); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return &PutResult{}, nil
	}
	if len(items) > maxPutBatch {
		b.client.log.Warn("put batch exceeds store limit",
			"base", b.name, "items", len(items), "limit", maxPutBatch)
	}
	expires, err := opts.expiry(b.client.now)
	if err != nil {
		return nil, err
	}
	sent := make([]map[string]any, len(items))
	for i, item := range items {
		sent[i] = withTTL(item, expires)
	}
	return b.client.backend.PutItems(ctx, b.name, sent)
}

// Get fetches a record by key. A missing key yields (nil, nil).
func (b *Base) Get(ctx context.Context, key string) (map[string]any, error) {
	if err := b.valid(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(key) == "" {
		return nil, errors.New("base: key is required")
	}
	return b.client.backend.GetItem(ctx, b.name, key)
}

// Insert stores a new record, failing with ErrKeyExists when the key is
// taken. Items without a key receive a store-generated one, returned in the
// stored item.
func (b *Base) Insert(ctx context.Context, item map[string]any, opts *PutOptions) (map[string]any, error) {
	if err := b.valid(); err != nil {
		return nil, err
	}
	if item == nil {
		return nil, errors.New("base: item is required")
	}
	expires, err := opts.expiry(b.client.now)
	if err != nil {
		return nil, err
	}
	return b.client.backend.InsertItem(ctx, b.name, withTTL(item, expires))
}

// Update merges the supplied instructions and sends them to the per-record
// update endpoint. The returned Operations is the confirmed instruction set;
// replay it against a prior snapshot with record.Reconcile to obtain the new
// state. On error no instructions were applied.
func (b *Base) Update(ctx context.Context, key string, ops ...update.Op) (update.Operations, error) {
	if err := b.valid(); err != nil {
		return update.Operations{}, err
	}
	if strings.TrimSpace(key) == "" {
		return update.Operations{}, errors.New("base: key is required")
	}
	merged := update.Merge(ops...)
	if merged.Empty() {
		return update.Operations{}, errors.New("base: no update instructions supplied")
	}
	if err := b.client.backend.UpdateItem(ctx, b.name, key, merged); err != nil {
		return update.Operations{}, err
	}
	return merged, nil
}

// Delete removes a record. Deleting an unknown key is not an error; the
// store reports success either way.
func (b *Base) Delete(ctx context.Context, key string) error {
	if err := b.valid(); err != nil {
		return err
	}
	if strings.TrimSpace(key) == "" {
		return errors.New("base: key is required")
	}
	return b.client.backend.DeleteItem(ctx, b.name, key)
}

// Query starts a filtered enumeration of the record set and returns a
// Paginator whose first page fetch is already underway. A nil node matches
// everything.
func (b *Base) Query(ctx context.Context, n query.Node, opts *QueryOptions) (*Paginator, error) {
	if err := b.valid(); err != nil {
		return nil, err
	}
	clauses, err := query.Marshal(n)
	if err != nil {
		return nil, err
	}
	var limit int
	var last string
	if opts != nil {
		limit = opts.Limit
		last = opts.Last
	}
	return newPaginator(ctx, func(ctx context.Context) (*Page, error) {
		return b.fetchPage(ctx, clauses, limit, last)
	}), nil
}

func (b *Base) fetchPage(ctx context.Context, clauses []query.Clause, limit int, last string) (*Page, error) {
	res, err := b.client.backend.QueryItems(ctx, b.name, clauses, limit, last)
	if err != nil {
		return nil, err
	}
	return &Page{
		Items:   res.Items,
		Size:    res.Size,
		Last:    res.Last,
		base:    b,
		clauses: clauses,
		limit:   limit,
	}, nil
}

func (b *Base) valid() error {
	if b == nil || b.client == nil || b.client.backend == nil {
		return errors.New("base: client is not configured")
	}
	if strings.TrimSpace(b.name) == "" {
		return errors.New("base: record set name is required")
	}
	return nil
}

// httpBackend implements Backend against the HTTP API. Status-code mapping
// happens here and nowhere above: 404 on Get is a soft miss, 404 on Update
// is ErrNotFound, 409 on Insert is ErrKeyExists.
type httpBackend struct {
	client    *httpx.Client
	projectID string
}

func (hb *httpBackend) path(base, rest string) string {
	p := fmt.Sprintf("/%s/%s/%s", apiVersion, url.PathEscape(hb.projectID), url.PathEscape(base))
	if rest != "" {
		p += "/" + rest
	}
	return p
}

func (hb *httpBackend) PutItems(ctx context.Context, base string, items []map[string]any) (*PutResult, error) {
	body, contentType, err := httpx.JSONBody(map[string]any{"items": items})
	if err != nil {
		return nil, fmt.Errorf("base: encode put body: %w", err)
	}
	resp, err := hb.client.Do(ctx, &httpx.Request{
		Method: http.MethodPut,
		Path:   hb.path(base, "items"),
		Header: http.Header{"Content-Type": []string{contentType}},
		Body:   body,
	})
	if err != nil {
		return nil, err
	}
	data, err := httpx.ReadAllAndClose(resp.Body)
	if err != nil {
		return nil, err
	}
	decoded, err := detaapi.DecodePutResponse(data)
	if err != nil {
		return nil, err
	}
	return &PutResult{Processed: decoded.Processed, Failed: decoded.Failed}, nil
}

func (hb *httpBackend) GetItem(ctx context.Context, base, key string) (map[string]any, error) {
	resp, err := hb.client.Do(ctx, &httpx.Request{
		Method: http.MethodGet,
		Path:   hb.path(base, "items/"+url.PathEscape(key)),
	})
	if err != nil {
		if statusIs(err, http.StatusNotFound) {
			return nil, nil
		}
		return nil, err
	}
	data, err := httpx.ReadAllAndClose(resp.Body)
	if err != nil {
		return nil, err
	}
	return detaapi.DecodeItem(data)
}

func (hb *httpBackend) InsertItem(ctx context.Context, base string, item map[string]any) (map[string]any, error) {
	body, contentType, err := httpx.JSONBody(map[string]any{"item": item})
	if err != nil {
		return nil, fmt.Errorf("base: encode insert body: %w", err)
	}
	resp, err := hb.client.Do(ctx, &httpx.Request{
		Method: http.MethodPost,
		Path:   hb.path(base, "items"),
		Header: http.Header{"Content-Type": []string{contentType}},
		Body:   body,
	})
	if err != nil {
		if statusIs(err, http.StatusConflict) {
			return nil, fmt.Errorf("%w: base %q", ErrKeyExists, base)
		}
		return nil, err
	}
	data, err := httpx.ReadAllAndClose(resp.Body)
	if err != nil {
		return nil, err
	}
	return detaapi.DecodeItem(data)
}

func (hb *httpBackend) UpdateItem(ctx context.Context, base, key string, ops update.Operations) error {
	body, contentType, err := httpx.JSONBody(ops)
	if err != nil {
		return fmt.Errorf("base: encode update body: %w", err)
	}
	resp, err := hb.client.Do(ctx, &httpx.Request{
		Method: http.MethodPatch,
		Path:   hb.path(base, "items/"+url.PathEscape(key)),
		Header: http.Header{"Content-Type": []string{contentType}},
		Body:   body,
	})
	if err != nil {
		if statusIs(err, http.StatusNotFound) {
			return fmt.Errorf("%w: key %q", ErrNotFound, key)
		}
		return err
	}
	_, err = httpx.ReadAllAndClose(resp.Body)
	return err
}

func (hb *httpBackend) DeleteItem(ctx context.Context, base, key string) error {
	resp, err := hb.client.Do(ctx, &httpx.Request{
		Method: http.MethodDelete,
		Path:   hb.path(base, "items/"+url.PathEscape(key)),
	})
	if err != nil {
		return err
	}
	_, err = httpx.ReadAllAndClose(resp.Body)
	return err
}

func (hb *httpBackend) QueryItems(ctx context.Context, base string, clauses []query.Clause, limit int, last string) (*QueryResult, error) {
	payload := map[string]any{}
	if len(clauses) > 0 {
		payload["query"] = clauses
	}
	if limit > 0 {
		payload["limit"] = limit
	}
	if last != "" {
		payload["last"] = last
	}
	body, contentType, err := httpx.JSONBody(payload)
	if err != nil {
		return nil, fmt.Errorf("base: encode query body: %w", err)
	}
	resp, err := hb.client.Do(ctx, &httpx.Request{
		Method: http.MethodPost,
		Path:   hb.path(base, "query"),
		Header: http.Header{"Content-Type": []string{contentType}},
		Body:   body,
	})
	if err != nil {
		return nil, err
	}
	data, err := httpx.ReadAllAndClose(resp.Body)
	if err != nil {
		return nil, err
	}
	decoded, err := detaapi.DecodeQueryResponse(data)
	if err != nil {
		return nil, err
	}
	return &QueryResult{
		Items: decoded.Items,
		Size:  decoded.Paging.Size,
		Last:  decoded.Paging.Last,
	}, nil
}

func statusIs(err error, status int) bool {
	var httpErr *httpx.HTTPError
	return errors.As(err, &httpErr) && httpErr.StatusCode == status
}
