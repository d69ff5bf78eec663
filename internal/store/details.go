package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mmcdole/ladle/internal/domain"
	bolt "go.etcd.io/bbolt"
)

type tagRow struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type ingredientRow struct {
	Title    string  `json:"title,omitempty"`
	Note     string  `json:"note,omitempty"`
	Quantity float64 `json:"quantity,omitempty"`
	Unit     string  `json:"unit,omitempty"`
	Food     string  `json:"food,omitempty"`
}

type instructionRow struct {
	Title string `json:"title,omitempty"`
	Text  string `json:"text"`
}

// detailRow is the persisted form of a full recipe, keyed by slug.
type detailRow struct {
	Recipe       recipeRow        `json:"recipe"`
	RecipeYield  string           `json:"recipe_yield,omitempty"`
	Ingredients  []ingredientRow  `json:"ingredients"`
	Instructions []instructionRow `json:"instructions"`
	Tags         []tagRow         `json:"tags"`
}

func (s *Store) GetRecipeDetail(ctx context.Context, slug string) (*domain.RecipeDetail, error) {
	var (
		row   detailRow
		found bool
		fav   bool
	)
	err := s.view(ctx, func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketDetails).Get([]byte(slug))
		if v == nil {
			return nil
		}
		found = true
		fav = tx.Bucket(bucketFavorites).Get([]byte(slug)) != nil
		return json.Unmarshal(v, &row)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read recipe %s: %w", slug, err)
	}
	if !found {
		return nil, domain.ErrRecipeNotFound
	}
	return row.detail(fav), nil
}

// SaveRecipeDetail replaces the cached detail for the recipe's slug.
// Tags seen for the first time get a new local ID in the same transaction.
func (s *Store) SaveRecipeDetail(ctx context.Context, detail *domain.RecipeDetail) error {
	if detail == nil || detail.Slug == "" {
		return fmt.Errorf("recipe detail has no slug")
	}
	err := s.update(ctx, func(tx *bolt.Tx) error {
		tags, err := ensureTags(tx, detail.TagNames())
		if err != nil {
			return err
		}
		data, err := json.Marshal(newDetailRow(detail, tags))
		if err != nil {
			return err
		}
		return tx.Bucket(bucketDetails).Put([]byte(detail.Slug), data)
	})
	if err != nil {
		return fmt.Errorf("failed to save recipe %s: %w", detail.Slug, err)
	}
	s.logger.Debug("saved recipe detail", "slug", detail.Slug, "tags", len(detail.Tags))
	return nil
}

// ensureTags returns a row per name, creating unseen names.
func ensureTags(tx *bolt.Tx, names []string) ([]tagRow, error) {
	b := tx.Bucket(bucketTags)
	rows := make([]tagRow, 0, len(names))
	for _, name := range names {
		if name == "" {
			continue
		}
		if v := b.Get([]byte(name)); v != nil {
			rows = append(rows, tagRow{ID: int64(btoi(v)), Name: name})
			continue
		}
		seq, err := b.NextSequence()
		if err != nil {
			return nil, err
		}
		if err := b.Put([]byte(name), itob(seq)); err != nil {
			return nil, err
		}
		rows = append(rows, tagRow{ID: int64(seq), Name: name})
	}
	return rows, nil
}

// Tags returns every known tag ordered by name.
func (s *Store) Tags(ctx context.Context) ([]domain.Tag, error) {
	var tags []domain.Tag
	err := s.view(ctx, func(tx *bolt.Tx) error {
		return tx.Bucket(bucketTags).ForEach(func(k, v []byte) error {
			tags = append(tags, domain.Tag{LocalID: int64(btoi(v)), Name: string(k)})
			return nil
		})
	})
	return tags, err
}

func newDetailRow(d *domain.RecipeDetail, tags []tagRow) detailRow {
	row := detailRow{
		Recipe:       newRecipeRow(d.RecipeSummary),
		RecipeYield:  d.RecipeYield,
		Ingredients:  make([]ingredientRow, len(d.Ingredients)),
		Instructions: make([]instructionRow, len(d.Instructions)),
		Tags:         tags,
	}
	for i, in := range d.Ingredients {
		row.Ingredients[i] = ingredientRow(in)
	}
	for i, in := range d.Instructions {
		row.Instructions[i] = instructionRow(in)
	}
	return row
}

func (r detailRow) detail(isFavorite bool) *domain.RecipeDetail {
	d := &domain.RecipeDetail{
		RecipeSummary: r.Recipe.summary(isFavorite),
		RecipeYield:   r.RecipeYield,
		Ingredients:   make([]domain.Ingredient, len(r.Ingredients)),
		Instructions:  make([]domain.Instruction, len(r.Instructions)),
		Tags:          make([]domain.Tag, len(r.Tags)),
	}
	for i, in := range r.Ingredients {
		d.Ingredients[i] = domain.Ingredient(in)
	}
	for i, in := range r.Instructions {
		d.Instructions[i] = domain.Instruction(in)
	}
	for i, t := range r.Tags {
		d.Tags[i] = domain.Tag{LocalID: t.ID, Name: t.Name}
	}
	return d
}
