package paging

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Source reads a window of already-cached items.
type Source[T any] func(ctx context.Context, offset, limit int) ([]T, error)

// Pager serves pages from a local Source and asks a Mediator to fetch more
// when the local data runs out. At most one load runs at a time.
type Pager[T any] struct {
	mediator Mediator
	source   Source[T]
	state    State
	logger   *slog.Logger

	admit *semaphore.Weighted // One in-flight load per mediator

	mu         sync.Mutex
	endReached bool
}

// NewPager creates a Pager reading from source and loading through mediator.
func NewPager[T any](mediator Mediator, source Source[T], state State, logger *slog.Logger) *Pager[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pager[T]{
		mediator: mediator,
		source:   source,
		state:    state,
		logger:   logger,
		admit:    semaphore.NewWeighted(1),
	}
}

// State returns the paging configuration.
func (p *Pager[T]) State() State { return p.state }

// EndReached reports whether the last Refresh or Append hit the end of the remote listing.
func (p *Pager[T]) EndReached() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.endReached
}

// Reset forgets the end-of-pagination flag, e.g. after the cache was cleared.
func (p *Pager[T]) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.endReached = false
}

func (p *Pager[T]) Refresh(ctx context.Context) (Result, error) {
	return p.load(ctx, Refresh)
}

func (p *Pager[T]) Prepend(ctx context.Context) (Result, error) {
	return p.load(ctx, Prepend)
}

func (p *Pager[T]) Append(ctx context.Context) (Result, error) {
	return p.load(ctx, Append)
}

// Page returns up to one page of cached items starting at offset. When the
// cache holds less than a page and the remote end has not been reached, it
// appends from the remote source and reads again. If an append fails the
// items read so far are returned together with the error.
func (p *Pager[T]) Page(ctx context.Context, offset int) ([]T, error) {
	items, err := p.source(ctx, offset, p.state.PageSize)
	if err != nil {
		return nil, err
	}
	for len(items) < p.state.PageSize && !p.EndReached() {
		before := len(items)
		if _, err := p.load(ctx, Append); err != nil {
			return items, err
		}
		items, err = p.source(ctx, offset, p.state.PageSize)
		if err != nil {
			return nil, err
		}
		p.logger.Debug("page grew after append", "offset", offset, "before", before, "after", len(items))
	}
	return items, nil
}

// Exclusive runs fn while no load is in flight and blocks new loads until it returns.
func (p *Pager[T]) Exclusive(ctx context.Context, fn func() error) error {
	if err := p.admit.Acquire(ctx, 1); err != nil {
		return err
	}
	defer p.admit.Release(1)
	return fn()
}

func (p *Pager[T]) load(ctx context.Context, loadType LoadType) (Result, error) {
	if err := p.admit.Acquire(ctx, 1); err != nil {
		return Result{}, err
	}
	defer p.admit.Release(1)

	res, err := p.mediator.Load(ctx, loadType, p.state)
	if err != nil {
		p.logger.Warn("load failed", "type", loadType, "error", err)
		return Result{}, fmt.Errorf("%s failed: %w", loadType, err)
	}
	if loadType != Prepend {
		p.mu.Lock()
		p.endReached = res.EndOfPaginationReached
		p.mu.Unlock()
	}
	return res, nil
}
