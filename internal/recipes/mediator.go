// Package recipes keeps the local recipe cache in step with the server and
// exposes it to callers.
package recipes

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mmcdole/ladle/internal/domain"
	"github.com/mmcdole/ladle/internal/observe"
	"github.com/mmcdole/ladle/internal/paging"
)

// Mediator fills the recipe cache from the server's forward-only listing.
// It implements paging.Mediator. Loads must not run concurrently; a
// paging.Pager admits one at a time.
type Mediator struct {
	source domain.RecipeSource
	store  domain.RecipeStore
	logger *slog.Logger

	mu             sync.Mutex
	lastRequestEnd int    // Remote index after the last fetched item
	query          string // Active name filter
	replaceNext    bool   // Next refresh replaces the cache instead of merging

	invalidations *observe.Value[uint64]
}

// NewMediator creates a Mediator writing into store.
func NewMediator(source domain.RecipeSource, store domain.RecipeStore, logger *slog.Logger) *Mediator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mediator{
		source:        source,
		store:         store,
		logger:        logger,
		invalidations: observe.NewValue(uint64(0)),
	}
}

// Load fetches the window for loadType and writes it to the cache.
// On error neither the cursor nor the cache has changed.
func (m *Mediator) Load(ctx context.Context, loadType paging.LoadType, state paging.State) (paging.Result, error) {
	switch loadType {
	case paging.Refresh:
		return m.refresh(ctx, state)
	case paging.Prepend:
		// The listing is forward-only; there is never anything before the start
		return paging.Result{EndOfPaginationReached: true}, nil
	case paging.Append:
		return m.append(ctx, state)
	default:
		return paging.Result{}, nil
	}
}

func (m *Mediator) refresh(ctx context.Context, state paging.State) (paging.Result, error) {
	limit := state.InitialLoadSize
	items, err := m.source.ListSummaries(ctx, 0, limit)
	if err != nil {
		m.logger.Error("refresh failed", "limit", limit, "error", err)
		return paging.Result{}, err
	}

	m.mu.Lock()
	replace := m.replaceNext
	m.mu.Unlock()

	if replace {
		err = m.store.ReplaceRecipes(ctx, items)
	} else {
		err = m.store.UpsertRecipes(ctx, items)
	}
	if err != nil {
		m.logger.Error("failed to save refreshed recipes", "count", len(items), "error", err)
		return paging.Result{}, err
	}

	m.mu.Lock()
	m.lastRequestEnd = len(items)
	m.replaceNext = false
	m.mu.Unlock()

	end := len(items) < limit
	m.logger.Debug("refreshed recipes", "limit", limit, "count", len(items), "replaced", replace, "end", end)
	return paging.Result{EndOfPaginationReached: end}, nil
}

func (m *Mediator) append(ctx context.Context, state paging.State) (paging.Result, error) {
	m.mu.Lock()
	start := m.lastRequestEnd
	m.mu.Unlock()
	limit := state.PageSize

	items, err := m.source.ListSummaries(ctx, start, limit)
	if err != nil {
		m.logger.Error("append failed", "start", start, "limit", limit, "error", err)
		return paging.Result{}, err
	}
	if err := m.store.UpsertRecipes(ctx, items); err != nil {
		m.logger.Error("failed to save appended recipes", "start", start, "count", len(items), "error", err)
		return paging.Result{}, err
	}

	m.mu.Lock()
	m.lastRequestEnd = start + len(items)
	m.mu.Unlock()

	end := len(items) < limit
	m.logger.Debug("appended recipes", "start", start, "limit", limit, "count", len(items), "end", end)
	return paging.Result{EndOfPaginationReached: end}, nil
}

// LastRequestEnd returns how far into the remote listing the cache reaches.
func (m *Mediator) LastRequestEnd() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastRequestEnd
}

func (m *Mediator) Query() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.query
}

// SetQuery changes the name filter. The cursor is left alone; readers are
// told to re-query through Invalidations.
func (m *Mediator) SetQuery(query string) {
	m.mu.Lock()
	changed := m.query != query
	m.query = query
	m.mu.Unlock()

	if changed {
		m.logger.Debug("query changed", "query", query)
		m.invalidations.Update(func(n uint64) uint64 { return n + 1 })
	}
}

// Invalidations bumps whenever the filtered view changes without a cache write.
func (m *Mediator) Invalidations() *observe.Value[uint64] {
	return m.invalidations
}

// Reset rewinds the cursor after the cache was cleared or the server changed.
// The next refresh replaces whatever the cache holds.
func (m *Mediator) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastRequestEnd = 0
	m.replaceNext = true
}
