package domain

import (
	"strings"
	"time"
)

// RecipeSummary is one row of the server's paginated recipe listing.
type RecipeSummary struct {
	RemoteID    string    // Server-assigned identifier, stable
	Name        string    // Display name
	Slug        string    // URL key used by the API, stable
	Description string    // Optional short description
	ImageID     string    // Image identifier on the server
	DateAdded   time.Time // Day the recipe was created
	DateUpdated time.Time // Last modification on the server

	// IsFavorite comes from the favorite overlay, never from the listing itself.
	IsFavorite bool
}

// RecipeDetail is the full recipe as returned by the detail endpoint.
type RecipeDetail struct {
	RecipeSummary

	RecipeYield  string
	Ingredients  []Ingredient
	Instructions []Instruction
	Tags         []Tag
}

// TagNames returns the names of the recipe's tags in order.
func (d RecipeDetail) TagNames() []string {
	names := make([]string, len(d.Tags))
	for i, t := range d.Tags {
		names[i] = t.Name
	}
	return names
}

// Ingredient is one line of a recipe's ingredient list.
type Ingredient struct {
	Title    string // Section header, if the line starts a new section
	Note     string
	Quantity float64
	Unit     string
	Food     string
}

// Display returns the ingredient as a single human-readable line
func (i Ingredient) Display() string {
	if i.Food == "" && i.Unit == "" && i.Quantity == 0 {
		return i.Note
	}
	var parts []string
	if i.Quantity != 0 {
		parts = append(parts, formatQuantity(i.Quantity))
	}
	for _, s := range []string{i.Unit, i.Food, i.Note} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// Instruction is one step of a recipe.
type Instruction struct {
	Title string
	Text  string
}

// Tag is a recipe label. LocalID is assigned by the cache when the tag is first seen.
type Tag struct {
	LocalID int64
	Name    string
}

// ServerProfile is the accepted base URL together with the major version it reported.
// Version is nil when the server's version string could not be parsed.
type ServerProfile struct {
	BaseURL string
	Version *int
}

// IsSet returns true if a base URL has been accepted
func (p ServerProfile) IsSet() bool {
	return p.BaseURL != ""
}

// VersionInfo is the result of a capability probe.
type VersionInfo struct {
	Version    string // Raw version string, e.g. "v1.2.3"
	Production bool
	DemoStatus bool
}
