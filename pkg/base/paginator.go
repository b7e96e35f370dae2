package base

import (
	"context"

	"github.com/detaorm/base_sdk_go/pkg/query"
)

// Page is one page of query results. Size is authoritative and may be
// smaller than the requested limit; Last is the continuation key, empty on
// the final page.
type Page struct {
	Items []map[string]any
	Size  int
	Last  string

	base    *Base
	clauses []query.Clause
	limit   int
}

// Next fetches the page after this one, reusing the page's query. A limit
// greater than zero overrides the page size for the fetch; otherwise the
// previous limit is reused. When this page carries no continuation key,
// Next returns (nil, nil).
func (p *Page) Next(ctx context.Context, limit int) (*Page, error) {
	if p.Last == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = p.limit
	}
	return p.base.fetchPage(ctx, p.clauses, limit, p.Last)
}

// paginator states. Exhausted is terminal.
const (
	statePending = iota
	stateReady
	stateExhausted
)

type fetchResult struct {
	page *Page
	err  error
}

// Paginator exposes a server-paginated result set as a forward-only, lazy
// sequence of pages. Construction eagerly starts the first fetch; First or
// Next observe its outcome.
//
// A Paginator holds single-owner mutable state and is not safe for
// concurrent advancement; serialize calls to a given instance. Dropping it
// is the cancellation mechanism: the eager fetch finishes into a buffered
// channel and everything becomes collectable.
type Paginator struct {
	fetchFirst func(ctx context.Context) (*Page, error)
	eager      chan fetchResult
	eagerDone  bool

	state int
	first *Page
	cur   *Page
}

func newPaginator(ctx context.Context, fetchFirst func(ctx context.Context) (*Page, error)) *Paginator {
	p := &Paginator{
		fetchFirst: fetchFirst,
		eager:      make(chan fetchResult, 1),
	}
	go func() {
		page, err := fetchFirst(ctx)
		p.eager <- fetchResult{page: page, err: err}
	}()
	return p
}

// First returns the first page, waiting for the eager fetch on the first
// call. After the fetch resolved, First keeps returning the same page; use
// Next to advance.
func (p *Paginator) First(ctx context.Context) (*Page, error) {
	if p.first != nil {
		return p.first, nil
	}
	page, err := p.resolve(ctx)
	if err != nil {
		return nil, err
	}
	p.first = page
	p.cur = page
	p.state = stateReady
	return page, nil
}

// Next returns the next page of the sequence, or (nil, nil) once the
// sequence is exhausted. Calling Next after exhaustion keeps returning
// (nil, nil). A failed fetch leaves the cursor state untouched, so the same
// step can be retried by calling Next again.
func (p *Paginator) Next(ctx context.Context) (*Page, error) {
	switch p.state {
	case stateExhausted:
		return nil, nil
	case statePending:
		return p.First(ctx)
	default:
		if p.cur.Last == "" {
			p.state = stateExhausted
			p.cur = nil
			return nil, nil
		}
		page, err := p.cur.Next(ctx, 0)
		if err != nil {
			return nil, err
		}
		p.cur = page
		return page, nil
	}
}

// resolve observes the eager first fetch, or re-issues it when a previous
// observation consumed the channel with an error.
func (p *Paginator) resolve(ctx context.Context) (*Page, error) {
	if !p.eagerDone {
		select {
		case res := <-p.eager:
			p.eagerDone = true
			return res.page, res.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return p.fetchFirst(ctx)
}
