package mealie

import (
	"github.com/mmcdole/ladle/internal/domain"
)

// MapSummary converts a listing entry. Image URLs are keyed by slug on v0
// servers and by recipe id on v1 servers.
func MapSummary(s RecipeSummary, dialect domain.Dialect) domain.RecipeSummary {
	imageID := string(s.ID)
	if dialect == domain.DialectV0 {
		imageID = s.Slug
	}
	return domain.RecipeSummary{
		RemoteID:    string(s.ID),
		Name:        s.Name,
		Slug:        s.Slug,
		Description: s.Description,
		ImageID:     imageID,
		DateAdded:   s.DateAdded.Time(),
		DateUpdated: s.DateUpdated.Time(),
	}
}

func MapSummaries(items []RecipeSummary, dialect domain.Dialect) []domain.RecipeSummary {
	out := make([]domain.RecipeSummary, 0, len(items))
	for _, item := range items {
		out = append(out, MapSummary(item, dialect))
	}
	return out
}

// MapRecipe converts a full recipe
func MapRecipe(r RecipeResponse, dialect domain.Dialect) *domain.RecipeDetail {
	d := &domain.RecipeDetail{
		RecipeSummary: MapSummary(r.RecipeSummary, dialect),
		RecipeYield:   r.RecipeYield,
		Ingredients:   make([]domain.Ingredient, 0, len(r.RecipeIngredient)),
		Instructions:  make([]domain.Instruction, 0, len(r.RecipeInstructions)),
		Tags:          make([]domain.Tag, 0, len(r.Tags)),
	}
	for _, in := range r.RecipeIngredient {
		ing := domain.Ingredient{Title: in.Title, Note: in.Note}
		// disableAmount means the note carries the whole line
		if !in.DisableAmount {
			ing.Quantity = in.Quantity
			ing.Unit = string(in.Unit)
			ing.Food = string(in.Food)
		}
		d.Ingredients = append(d.Ingredients, ing)
	}
	for _, step := range r.RecipeInstructions {
		d.Instructions = append(d.Instructions, domain.Instruction{Title: step.Title, Text: step.Text})
	}
	for _, tag := range r.Tags {
		if tag == "" {
			continue
		}
		d.Tags = append(d.Tags, domain.Tag{Name: string(tag)})
	}
	return d
}
