package domain

import (
	"context"
)

// RecipeSource provides network access to a recipe server.
// Implementations must not assume a default page size: start and limit map
// directly to the window requested.
type RecipeSource interface {
	// ListSummaries returns up to limit summaries beginning at index start
	ListSummaries(ctx context.Context, start, limit int) ([]RecipeSummary, error)

	// GetDetail returns the full recipe for a slug
	GetDetail(ctx context.Context, slug string) (*RecipeDetail, error)

	// ListFavoriteSlugs returns the slugs of the current user's favorite recipes
	ListFavoriteSlugs(ctx context.Context) ([]string, error)

	// SetFavorite adds or removes a recipe from the user's favorites
	SetFavorite(ctx context.Context, slug string, isFavorite bool) error

	// DeleteRecipe removes a recipe from the server
	DeleteRecipe(ctx context.Context, slug string) error
}

// VersionSource probes a candidate base URL.
// It must be safe to call against an unknown, unauthenticated URL.
type VersionSource interface {
	RequestVersion(ctx context.Context, baseURL string) (*VersionInfo, error)
}

// ServerURLProvider exposes the accepted server identity to the transport.
type ServerURLProvider interface {
	// GetURL returns the accepted base URL; ok is false if none was accepted
	GetURL(ctx context.Context) (url string, ok bool, err error)

	// GetVersion returns the accepted major version, probing when it is unknown
	GetVersion(ctx context.Context) (int, error)
}

// TokenProvider supplies and forgets the API credential. The storage behind it is opaque.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
	ClearToken(ctx context.Context) error
}
