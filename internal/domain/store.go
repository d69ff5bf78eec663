package domain

import (
	"context"

	"github.com/mmcdole/ladle/internal/observe"
)

// RecipeStore is the local recipe cache.
// Every write runs in a single transaction: a page upsert either lands
// completely or not at all, and never interleaves with a clear.
type RecipeStore interface {
	// === Summaries ===

	// UpsertRecipes inserts unseen remote IDs and overwrites the fields of known ones.
	// Rows keep their original insertion position. The favorite overlay is untouched.
	UpsertRecipes(ctx context.Context, recipes []RecipeSummary) error

	// ReplaceRecipes wipes all summaries and inserts recipes, in one transaction.
	ReplaceRecipes(ctx context.Context, recipes []RecipeSummary) error

	// QueryRecipes returns summaries whose name matches query, in insertion order.
	QueryRecipes(ctx context.Context, query string, offset, limit int) ([]RecipeSummary, error)

	// CountRecipes returns the number of cached summaries.
	CountRecipes(ctx context.Context) (int, error)

	// === Details ===
	GetRecipeDetail(ctx context.Context, slug string) (*RecipeDetail, error)
	SaveRecipeDetail(ctx context.Context, detail *RecipeDetail) error

	// === Favorite overlay ===
	ReplaceFavorites(ctx context.Context, slugs []string) error
	SetFavorite(ctx context.Context, slug string, isFavorite bool) error

	// DeleteRecipe removes the summary, detail and favorite flag for a slug.
	DeleteRecipe(ctx context.Context, slug string) error

	// ClearAll wipes summaries, details, tags and favorites in one transaction.
	ClearAll(ctx context.Context) error

	// Changes publishes a new generation after every committed write.
	Changes() *observe.Value[uint64]
}

// ServerInfoStorage persists the accepted ServerProfile.
// Only the capability negotiator writes it.
type ServerInfoStorage interface {
	GetServerProfile(ctx context.Context) (ServerProfile, error)

	// StoreServerProfile writes URL and version as one unit. A nil version
	// removes any previously stored version.
	StoreServerProfile(ctx context.Context, profile ServerProfile) error
}
