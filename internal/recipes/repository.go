package recipes

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/mmcdole/ladle/internal/domain"
	"github.com/mmcdole/ladle/internal/observe"
	"github.com/mmcdole/ladle/internal/paging"
)

// Repository is the entry point for everything recipe related. Reads come
// from the local cache; the server is only contacted through explicit
// refresh calls or when paging runs past the cached data.
type Repository struct {
	source   domain.RecipeSource
	store    domain.RecipeStore
	mediator *Mediator
	pager    *paging.Pager[domain.RecipeSummary]
	logger   *slog.Logger

	changes      *observe.Value[uint64]
	unsubscribes []func()
}

// Option configures a Repository.
type Option func(*Repository)

// WithServerURL rewinds paging whenever the published base URL changes, so
// the next refresh replaces rows cached from the previous server.
func WithServerURL(baseURL *observe.Value[string]) Option {
	return func(r *Repository) {
		last := baseURL.Get()
		r.unsubscribes = append(r.unsubscribes, baseURL.Subscribe(func(url string) {
			if url == last {
				return
			}
			last = url
			r.logger.Info("server changed, rewinding paging", "url", url)
			r.mediator.Reset()
			r.pager.Reset()
		}))
	}
}

// NewRepository wires a Mediator and Pager over source and store.
func NewRepository(source domain.RecipeSource, store domain.RecipeStore, state paging.State, logger *slog.Logger, opts ...Option) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Repository{
		source:   source,
		store:    store,
		mediator: NewMediator(source, store, logger.With("component", "mediator")),
		logger:   logger,
		changes:  observe.NewValue(uint64(0)),
	}
	r.pager = paging.NewPager(r.mediator, r.readPage, state, logger.With("component", "pager"))

	r.unsubscribes = append(r.unsubscribes,
		forward(store.Changes(), r.bump),
		forward(r.mediator.Invalidations(), r.bump),
	)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// forward calls fn on every update after the current value.
func forward(v *observe.Value[uint64], fn func()) func() {
	primed := false
	return v.Subscribe(func(uint64) {
		if !primed {
			primed = true
			return
		}
		fn()
	})
}

func (r *Repository) bump() {
	r.changes.Update(func(n uint64) uint64 { return n + 1 })
}

// Close stops forwarding change notifications.
func (r *Repository) Close() {
	for _, unsubscribe := range r.unsubscribes {
		unsubscribe()
	}
	r.unsubscribes = nil
}

func (r *Repository) readPage(ctx context.Context, offset, limit int) ([]domain.RecipeSummary, error) {
	return r.store.QueryRecipes(ctx, r.mediator.Query(), offset, limit)
}

// ObserveRecipes returns the pager over cached summaries matching the active query.
// Re-read pages whenever Changes moves.
func (r *Repository) ObserveRecipes() *paging.Pager[domain.RecipeSummary] {
	return r.pager
}

// Changes bumps after every cache write and every query change.
func (r *Repository) Changes() *observe.Value[uint64] {
	return r.changes
}

// Cursor returns how far into the remote listing the cache reaches.
func (r *Repository) Cursor() int {
	return r.mediator.LastRequestEnd()
}

// LoadRecipeInfo returns the cached detail for slug without touching the network.
func (r *Repository) LoadRecipeInfo(ctx context.Context, slug string) (*domain.RecipeDetail, error) {
	return r.store.GetRecipeDetail(ctx, slug)
}

// RefreshRecipeInfo fetches the detail for slug and overwrites the cached copy.
func (r *Repository) RefreshRecipeInfo(ctx context.Context, slug string) (*domain.RecipeDetail, error) {
	detail, err := r.source.GetDetail(ctx, slug)
	if err != nil {
		r.logger.Error("failed to fetch recipe", "slug", slug, "error", err)
		return nil, err
	}
	if err := r.store.SaveRecipeDetail(ctx, detail); err != nil {
		r.logger.Error("failed to save recipe", "slug", slug, "error", err)
		return nil, err
	}
	r.logger.Debug("refreshed recipe", "slug", slug)
	return r.store.GetRecipeDetail(ctx, slug)
}

// UpdateIsRecipeFavorite changes the favorite flag on the server, then in
// the cache. A failed remote call leaves the cached flag as it was.
func (r *Repository) UpdateIsRecipeFavorite(ctx context.Context, slug string, isFavorite bool) error {
	if err := r.source.SetFavorite(ctx, slug, isFavorite); err != nil {
		r.logger.Error("failed to update favorite", "slug", slug, "favorite", isFavorite, "error", err)
		return err
	}
	return r.store.SetFavorite(ctx, slug, isFavorite)
}

// SyncFavorites replaces the cached favorite flags with the server's list.
func (r *Repository) SyncFavorites(ctx context.Context) error {
	slugs, err := r.source.ListFavoriteSlugs(ctx)
	if err != nil {
		r.logger.Error("failed to fetch favorites", "error", err)
		return err
	}
	if err := r.store.ReplaceFavorites(ctx, slugs); err != nil {
		return err
	}
	r.logger.Debug("synced favorites", "count", len(slugs))
	return nil
}

// DeleteRecipe removes the recipe on the server and then from the cache.
func (r *Repository) DeleteRecipe(ctx context.Context, slug string) error {
	if err := r.source.DeleteRecipe(ctx, slug); err != nil {
		r.logger.Error("failed to delete recipe", "slug", slug, "error", err)
		return err
	}
	return r.store.DeleteRecipe(ctx, slug)
}

// Sync refreshes the first window of recipes and the favorite flags
// concurrently. Each runs to completion even if the other fails.
func (r *Repository) Sync(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error {
		_, err := r.pager.Refresh(ctx)
		return err
	})
	g.Go(func() error {
		return r.SyncFavorites(ctx)
	})
	return g.Wait()
}

// ClearLocalData wipes the cache and rewinds paging. It waits for any
// in-flight load so a late page cannot land after the wipe.
func (r *Repository) ClearLocalData(ctx context.Context) error {
	return r.pager.Exclusive(ctx, func() error {
		if err := r.store.ClearAll(ctx); err != nil {
			return err
		}
		r.mediator.Reset()
		r.pager.Reset()
		r.logger.Info("cleared local data")
		return nil
	})
}

// UpdateNameQuery sets the name filter applied to ObserveRecipes.
func (r *Repository) UpdateNameQuery(query string) {
	r.mediator.SetQuery(query)
}
