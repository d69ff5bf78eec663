package mealie

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// VersionResponse is returned by /api/app/about (v1) and /api/debug/version (v0)
type VersionResponse struct {
	Production bool   `json:"production"`
	Version    string `json:"version"`
	DemoStatus bool   `json:"demoStatus"`
}

// RecipeSummary is one entry of a recipe listing. Both dialects use the
// same field names; v0 sends a numeric id.
type RecipeSummary struct {
	ID          flexID   `json:"id"`
	Name        string   `json:"name"`
	Slug        string   `json:"slug"`
	Image       flexID   `json:"image"`
	Description string   `json:"description"`
	DateAdded   flexTime `json:"dateAdded"`
	DateUpdated flexTime `json:"dateUpdated"`
}

// RecipesPageV1 is the paginated envelope of GET /api/recipes
type RecipesPageV1 struct {
	Page       int             `json:"page"`
	PerPage    int             `json:"per_page"`
	Total      int             `json:"total"`
	TotalPages int             `json:"total_pages"`
	Items      []RecipeSummary `json:"items"`
}

// RecipeResponse is the full recipe from GET /api/recipes/{slug}
type RecipeResponse struct {
	RecipeSummary
	RecipeYield        string                `json:"recipeYield"`
	RecipeIngredient   []IngredientResponse  `json:"recipeIngredient"`
	RecipeInstructions []InstructionResponse `json:"recipeInstructions"`
	Tags               []namedRef            `json:"tags"`
}

type IngredientResponse struct {
	Title         string   `json:"title"`
	Note          string   `json:"note"`
	Unit          namedRef `json:"unit"`
	Food          namedRef `json:"food"`
	Quantity      float64  `json:"quantity"`
	DisableAmount bool     `json:"disableAmount"`
}

type InstructionResponse struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

// UserResponse is GET /api/users/self
type UserResponse struct {
	ID              flexID   `json:"id"`
	FavoriteRecipes []string `json:"favoriteRecipes"`
}

// flexID accepts a JSON string or number. v0 uses integer ids, v1 uuids.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id is neither string nor number: %s", data)
	}
	*f = flexID(n.String())
	return nil
}

// namedRef accepts either a bare name or an object with a name field, as
// units, foods and tags come in both shapes depending on the server version.
type namedRef string

func (n *namedRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*n = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = namedRef(s)
		return nil
	}
	var obj struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*n = namedRef(obj.Name)
	return nil
}

// flexTime parses the date and naive datetime formats Mealie emits.
type flexTime time.Time

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

func (t *flexTime) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*t = flexTime{}
		return nil
	}
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return fmt.Errorf("date is not a string: %s", data)
	}
	if s == "" {
		*t = flexTime{}
		return nil
	}
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			*t = flexTime(parsed)
			return nil
		}
	}
	return fmt.Errorf("unrecognised date %q", s)
}

func (t flexTime) Time() time.Time { return time.Time(t) }
