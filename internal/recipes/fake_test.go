package recipes

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mmcdole/ladle/internal/domain"
	"github.com/mmcdole/ladle/internal/store"
)

type window struct{ start, limit int }

// fakeSource is an in-memory recipe server.
type fakeSource struct {
	mu        sync.Mutex
	recipes   []domain.RecipeSummary
	details   map[string]*domain.RecipeDetail
	favorites []string

	listErr   error
	detailErr error
	favErr    error
	deleteErr error
	listDelay time.Duration

	windows  []window
	setCalls []string
	deleted  []string
}

func (f *fakeSource) ListSummaries(ctx context.Context, start, limit int) ([]domain.RecipeSummary, error) {
	if f.listDelay > 0 {
		select {
		case <-time.After(f.listDelay):
		case <-ctx.Done():
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.windows = append(f.windows, window{start, limit})
	if f.listErr != nil {
		return nil, f.listErr
	}
	end := min(start+limit, len(f.recipes))
	if start >= end {
		return []domain.RecipeSummary{}, nil
	}
	return append([]domain.RecipeSummary(nil), f.recipes[start:end]...), nil
}

func (f *fakeSource) GetDetail(ctx context.Context, slug string) (*domain.RecipeDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.detailErr != nil {
		return nil, f.detailErr
	}
	d, ok := f.details[slug]
	if !ok {
		return nil, domain.NewNetworkError(domain.KindNotMealie, fmt.Errorf("404 %s", slug))
	}
	cp := *d
	return &cp, nil
}

func (f *fakeSource) ListFavoriteSlugs(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.favErr != nil {
		return nil, f.favErr
	}
	return append([]string(nil), f.favorites...), nil
}

func (f *fakeSource) SetFavorite(ctx context.Context, slug string, isFavorite bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setCalls = append(f.setCalls, fmt.Sprintf("%s=%t", slug, isFavorite))
	return f.favErr
}

func (f *fakeSource) DeleteRecipe(ctx context.Context, slug string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, slug)
	return nil
}

func (f *fakeSource) setRecipes(recipes ...domain.RecipeSummary) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recipes = recipes
}

func recipe(id, name string) domain.RecipeSummary {
	return domain.RecipeSummary{
		RemoteID:    id,
		Name:        name,
		Slug:        "slug-" + id,
		ImageID:     id,
		DateAdded:   time.Date(2022, 1, 2, 0, 0, 0, 0, time.UTC),
		DateUpdated: time.Date(2022, 1, 3, 0, 0, 0, 0, time.UTC),
	}
}

func cake() domain.RecipeSummary     { return recipe("1", "Cake") }
func porridge() domain.RecipeSummary { return recipe("2", "Porridge") }
func soup() domain.RecipeSummary     { return recipe("3", "Soup") }

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func cachedNames(t *testing.T, s *store.Store) []string {
	t.Helper()
	all, err := s.QueryRecipes(context.Background(), "", 0, 0)
	require.NoError(t, err)
	names := make([]string, len(all))
	for i, r := range all {
		names[i] = r.Name
	}
	return names
}
