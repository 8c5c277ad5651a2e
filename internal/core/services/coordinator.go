package services

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/movement-lens/internal/core/domain"
	"github.com/custodia-labs/movement-lens/internal/core/ports/driven"
	"github.com/custodia-labs/movement-lens/internal/logger"
)

// SearchCoordinator issues searches and keeps only the newest result.
//
// Every Submit takes the next generation number. A resolution is applied
// only if its generation is still the current one when it arrives; anything
// older is dropped without touching state. Application and publication
// happen under one lock so publications are ordered by generation.
type SearchCoordinator struct {
	fetcher driven.ResultFetcher
	session *ChatSession
	trigger *AnalysisTrigger
	timeout time.Duration

	mu           sync.Mutex
	generation   uint64
	searching    bool
	cancelFetch  context.CancelFunc
	query        string
	results      domain.ResultSet
	presented    domain.Fingerprint
	hasPresented bool
}

// NewSearchCoordinator creates a coordinator. A timeout of zero leaves
// searches bounded only by the caller's context.
func NewSearchCoordinator(
	fetcher driven.ResultFetcher,
	session *ChatSession,
	trigger *AnalysisTrigger,
	timeout time.Duration,
) *SearchCoordinator {
	return &SearchCoordinator{
		fetcher: fetcher,
		session: session,
		trigger: trigger,
		timeout: timeout,
	}
}

// Submit runs a search for query. It blocks until the search resolves.
// The empty query is valid and asks for the unfiltered top results.
func (c *SearchCoordinator) Submit(ctx context.Context, query string) domain.SearchOutcome {
	var (
		fetchCtx context.Context
		cancel   context.CancelFunc
	)
	if c.timeout > 0 {
		fetchCtx, cancel = context.WithTimeout(ctx, c.timeout)
	} else {
		fetchCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	c.mu.Lock()
	c.generation++
	gen := c.generation
	c.searching = true
	if c.cancelFetch != nil {
		// The superseded fetch can no longer be applied; stop paying for it.
		c.cancelFetch()
	}
	c.cancelFetch = cancel
	// The shown results are about to be replaced; a pending synthesis of
	// them must not start while the new search runs.
	c.trigger.CancelPending()
	c.mu.Unlock()

	logger.Debug("search: generation %d issued for %q", gen, query)
	results, err := c.fetcher.Search(fetchCtx, query)

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		logger.Debug("search: generation %d superseded by %d, dropping result", gen, c.generation)
		return domain.SearchOutcome{Generation: gen, Query: query, Stale: true}
	}
	c.searching = false
	c.cancelFetch = nil

	if err != nil {
		c.query = query
		c.results = nil
		c.hasPresented = false
		c.trigger.CancelPending()
		logger.Error("search for %q failed: %v", query, err)
		return domain.SearchOutcome{Generation: gen, Query: query, Err: err}
	}

	rs := domain.ResultSet(results)
	fp := domain.NewFingerprint(query, rs)
	duplicate := c.hasPresented && fp == c.presented

	c.query = query
	c.results = rs
	c.presented = fp
	c.hasPresented = true

	if duplicate {
		logger.Debug("search: generation %d repeats the presented results, keeping transcript", gen)
	} else {
		c.trigger.CancelPending()
		c.session.Reset()
	}
	c.trigger.Observe(query, rs)

	out := make(domain.ResultSet, len(rs))
	copy(out, rs)
	return domain.SearchOutcome{Generation: gen, Query: query, Results: out, Duplicate: duplicate}
}

// Results returns a copy of the current result set.
func (c *SearchCoordinator) Results() domain.ResultSet {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(domain.ResultSet, len(c.results))
	copy(out, c.results)
	return out
}

// Query returns the query of the current result set.
func (c *SearchCoordinator) Query() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.query
}

// Searching reports whether the current generation is still in flight.
func (c *SearchCoordinator) Searching() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.searching
}

// Generation returns the number of searches issued so far.
func (c *SearchCoordinator) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}
