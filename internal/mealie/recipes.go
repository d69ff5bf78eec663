package mealie

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/mmcdole/ladle/internal/domain"
)

var (
	_ domain.RecipeSource  = (*Client)(nil)
	_ domain.VersionSource = (*Client)(nil)
)

// ListSummaries returns up to limit recipes starting at index start.
func (c *Client) ListSummaries(ctx context.Context, start, limit int) ([]domain.RecipeSummary, error) {
	if start < 0 || limit <= 0 {
		return nil, fmt.Errorf("invalid window start=%d limit=%d", start, limit)
	}
	baseURL, dialect, err := c.target(ctx)
	if err != nil {
		return nil, err
	}

	var items []RecipeSummary
	if dialect == domain.DialectV0 {
		items, err = c.listSummariesV0(ctx, baseURL, start, limit)
	} else {
		items, err = c.listSummariesV1(ctx, baseURL, start, limit)
	}
	if err != nil {
		return nil, err
	}
	c.logger.Debug("listed recipes", "dialect", dialect, "start", start, "limit", limit, "count", len(items))
	return MapSummaries(items, dialect), nil
}

func (c *Client) listSummariesV0(ctx context.Context, baseURL string, start, limit int) ([]RecipeSummary, error) {
	query := url.Values{}
	query.Set("start", strconv.Itoa(start))
	query.Set("limit", strconv.Itoa(limit))

	var items []RecipeSummary
	err := c.get(ctx, request{
		baseURL: baseURL,
		method:  http.MethodGet,
		path:    "/api/recipes/summary",
		query:   query,
		auth:    true,
	}, &items)
	return items, err
}

// listSummariesV1 serves an arbitrary window from the page-based endpoint.
// A window that does not start on a page boundary spans two pages.
func (c *Client) listSummariesV1(ctx context.Context, baseURL string, start, limit int) ([]RecipeSummary, error) {
	page := start/limit + 1
	skip := start % limit

	first, err := c.recipesPageV1(ctx, baseURL, page, limit)
	if err != nil {
		return nil, err
	}
	if skip == 0 {
		return first, nil
	}
	if skip >= len(first) {
		return []RecipeSummary{}, nil
	}

	items := append([]RecipeSummary(nil), first[skip:]...)
	if len(first) < limit {
		return items, nil
	}
	next, err := c.recipesPageV1(ctx, baseURL, page+1, limit)
	if err != nil {
		return nil, err
	}
	if want := limit - len(items); len(next) > want {
		next = next[:want]
	}
	return append(items, next...), nil
}

func (c *Client) recipesPageV1(ctx context.Context, baseURL string, page, perPage int) ([]RecipeSummary, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("perPage", strconv.Itoa(perPage))

	var resp RecipesPageV1
	err := c.get(ctx, request{
		baseURL: baseURL,
		method:  http.MethodGet,
		path:    "/api/recipes",
		query:   query,
		auth:    true,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// GetDetail returns the full recipe for slug.
func (c *Client) GetDetail(ctx context.Context, slug string) (*domain.RecipeDetail, error) {
	baseURL, dialect, err := c.target(ctx)
	if err != nil {
		return nil, err
	}
	var resp RecipeResponse
	err = c.get(ctx, request{
		baseURL: baseURL,
		method:  http.MethodGet,
		path:    "/api/recipes/" + url.PathEscape(slug),
		auth:    true,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return MapRecipe(resp, dialect), nil
}

// ListFavoriteSlugs returns the current user's favorite recipes.
func (c *Client) ListFavoriteSlugs(ctx context.Context) ([]string, error) {
	baseURL, _, err := c.target(ctx)
	if err != nil {
		return nil, err
	}
	user, err := c.currentUser(ctx, baseURL)
	if err != nil {
		return nil, err
	}
	if user.FavoriteRecipes == nil {
		return []string{}, nil
	}
	return user.FavoriteRecipes, nil
}

// SetFavorite adds or removes slug from the current user's favorites.
func (c *Client) SetFavorite(ctx context.Context, slug string, isFavorite bool) error {
	baseURL, _, err := c.target(ctx)
	if err != nil {
		return err
	}
	user, err := c.currentUser(ctx, baseURL)
	if err != nil {
		return err
	}
	if user.ID == "" {
		return domain.NewNetworkError(domain.KindNotMealie, fmt.Errorf("user has no id"))
	}

	method := http.MethodDelete
	if isFavorite {
		method = http.MethodPost
	}
	_, err = c.do(ctx, request{
		baseURL: baseURL,
		method:  method,
		path:    fmt.Sprintf("/api/users/%s/favorites/%s", url.PathEscape(string(user.ID)), url.PathEscape(slug)),
		auth:    true,
	})
	return err
}

// DeleteRecipe removes slug from the server.
func (c *Client) DeleteRecipe(ctx context.Context, slug string) error {
	baseURL, _, err := c.target(ctx)
	if err != nil {
		return err
	}
	_, err = c.do(ctx, request{
		baseURL: baseURL,
		method:  http.MethodDelete,
		path:    "/api/recipes/" + url.PathEscape(slug),
		auth:    true,
	})
	return err
}

func (c *Client) currentUser(ctx context.Context, baseURL string) (*UserResponse, error) {
	var user UserResponse
	err := c.get(ctx, request{
		baseURL: baseURL,
		method:  http.MethodGet,
		path:    "/api/users/self",
		auth:    true,
	}, &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}
