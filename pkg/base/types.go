package base

import (
	"errors"
	"fmt"
	"time"
)

const (
	// DefaultBaseURL is the hosted store endpoint.
	DefaultBaseURL = "https://database.deta.sh"

	apiVersion = "v1"

	// maxPutBatch is the largest batch the items endpoint accepts in one
	// put. Larger batches are still sent, with a warning, so the store's
	// own rejection stays visible.
	maxPutBatch = 25

	// expiresField carries the TTL timestamp on a stored item.
	expiresField = "__expires"
)

var (
	// ErrKeyExists is returned by Insert when the key is already taken.
	ErrKeyExists = errors.New("base: key already exists")
	// ErrNotFound is returned by operations that require an existing
	// record, such as Update on an unknown key.
	ErrNotFound = errors.New("base: not found")
)

// PutOptions sets write-time behaviour for Put and Insert.
type PutOptions struct {
	// ExpireAt expires the items at the given instant.
	ExpireAt time.Time
	// ExpireIn expires the items this long after the write. Mutually
	// exclusive with ExpireAt.
	ExpireIn time.Duration
}

// expiry resolves the options to a Unix timestamp, 0 meaning no TTL.
func (o *PutOptions) expiry(now func() time.Time) (int64, error) {
	if o == nil {
		return 0, nil
	}
	if !o.ExpireAt.IsZero() && o.ExpireIn != 0 {
		return 0, errors.New("base: ExpireAt and ExpireIn are mutually exclusive")
	}
	if o.ExpireIn != 0 {
		if o.ExpireIn < 0 {
			return 0, fmt.Errorf("base: negative ExpireIn %v", o.ExpireIn)
		}
		return now().Add(o.ExpireIn).Unix(), nil
	}
	if !o.ExpireAt.IsZero() {
		return o.ExpireAt.Unix(), nil
	}
	return 0, nil
}

// withTTL returns a copy of item carrying the TTL field, or the item itself
// when no TTL applies. The caller's map is never written to.
func withTTL(item map[string]any, expires int64) map[string]any {
	if expires == 0 {
		return item
	}
	out := make(map[string]any, len(item)+1)
	for k, v := range item {
		out[k] = v
	}
	out[expiresField] = expires
	return out
}

// PutResult reports the outcome of a batch put.
type PutResult struct {
	Processed []map[string]any
	Failed    []map[string]any
}

// QueryOptions bounds a query.
type QueryOptions struct {
	// Limit is the page size hint; 0 lets the store choose.
	Limit int
	// Last resumes from a previous page's continuation key.
	Last string
}

// QueryResult is one page of raw query results as returned by a Backend.
type QueryResult struct {
	Items []map[string]any
	Size  int
	Last  string
}
