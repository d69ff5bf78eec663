package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mmcdole/ladle/internal/domain"
	bolt "go.etcd.io/bbolt"
)

var (
	_ domain.RecipeStore       = (*Store)(nil)
	_ domain.ServerInfoStorage = (*Store)(nil)
)

// recipeRow is the persisted form of a summary. The favorite flag lives in
// its own bucket so paging never overwrites it.
type recipeRow struct {
	RemoteID    string    `json:"remote_id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description,omitempty"`
	ImageID     string    `json:"image_id"`
	DateAdded   time.Time `json:"date_added"`
	DateUpdated time.Time `json:"date_updated"`
}

func newRecipeRow(r domain.RecipeSummary) recipeRow {
	return recipeRow{
		RemoteID:    r.RemoteID,
		Name:        r.Name,
		Slug:        r.Slug,
		Description: r.Description,
		ImageID:     r.ImageID,
		DateAdded:   r.DateAdded,
		DateUpdated: r.DateUpdated,
	}
}

func (r recipeRow) summary(isFavorite bool) domain.RecipeSummary {
	return domain.RecipeSummary{
		RemoteID:    r.RemoteID,
		Name:        r.Name,
		Slug:        r.Slug,
		Description: r.Description,
		ImageID:     r.ImageID,
		DateAdded:   r.DateAdded,
		DateUpdated: r.DateUpdated,
		IsFavorite:  isFavorite,
	}
}

// === Summaries ===

func (s *Store) UpsertRecipes(ctx context.Context, recipes []domain.RecipeSummary) error {
	err := s.update(ctx, func(tx *bolt.Tx) error {
		return upsertRecipes(tx, recipes)
	})
	if err != nil {
		return fmt.Errorf("failed to upsert recipes: %w", err)
	}
	s.logger.Debug("upserted recipes", "count", len(recipes))
	return nil
}

func (s *Store) ReplaceRecipes(ctx context.Context, recipes []domain.RecipeSummary) error {
	err := s.update(ctx, func(tx *bolt.Tx) error {
		if err := resetBuckets(tx, bucketRecipes, bucketRecipeIDs, bucketRecipeSlugs); err != nil {
			return err
		}
		return upsertRecipes(tx, recipes)
	})
	if err != nil {
		return fmt.Errorf("failed to replace recipes: %w", err)
	}
	s.logger.Debug("replaced recipes", "count", len(recipes))
	return nil
}

// upsertRecipes writes rows keyed by remote ID. Known IDs keep their sequence
// key, so a refresh never reorders what the user is looking at.
func upsertRecipes(tx *bolt.Tx, recipes []domain.RecipeSummary) error {
	rows := tx.Bucket(bucketRecipes)
	ids := tx.Bucket(bucketRecipeIDs)
	slugs := tx.Bucket(bucketRecipeSlugs)

	for _, r := range recipes {
		if r.RemoteID == "" {
			return fmt.Errorf("recipe %q has no remote id", r.Slug)
		}

		var key []byte
		if existing := ids.Get([]byte(r.RemoteID)); existing != nil {
			key = copyBytes(existing)
			// Drop a stale slug index entry if the slug moved
			var old recipeRow
			if v := rows.Get(key); v != nil && json.Unmarshal(v, &old) == nil && old.Slug != r.Slug {
				if err := slugs.Delete([]byte(old.Slug)); err != nil {
					return err
				}
			}
		} else {
			seq, err := rows.NextSequence()
			if err != nil {
				return err
			}
			key = itob(seq)
			if err := ids.Put([]byte(r.RemoteID), key); err != nil {
				return err
			}
		}

		data, err := json.Marshal(newRecipeRow(r))
		if err != nil {
			return err
		}
		if err := rows.Put(key, data); err != nil {
			return err
		}
		if err := slugs.Put([]byte(r.Slug), key); err != nil {
			return err
		}
	}
	return nil
}

// QueryRecipes returns matching summaries in insertion order.
// A limit <= 0 returns every match from offset on.
func (s *Store) QueryRecipes(ctx context.Context, query string, offset, limit int) ([]domain.RecipeSummary, error) {
	if offset < 0 {
		offset = 0
	}

	var result []domain.RecipeSummary
	err := s.view(ctx, func(tx *bolt.Tx) error {
		favorites := tx.Bucket(bucketFavorites)
		skipped := 0

		c := tx.Bucket(bucketRecipes).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var row recipeRow
			if err := json.Unmarshal(v, &row); err != nil {
				return fmt.Errorf("corrupt recipe row %d: %w", btoi(k), err)
			}
			if !s.match(row.Name, query) {
				continue
			}
			if skipped < offset {
				skipped++
				continue
			}
			result = append(result, row.summary(favorites.Get([]byte(row.Slug)) != nil))
			if limit > 0 && len(result) >= limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) CountRecipes(ctx context.Context) (int, error) {
	var n int
	err := s.view(ctx, func(tx *bolt.Tx) error {
		n = tx.Bucket(bucketRecipes).Stats().KeyN
		return nil
	})
	return n, err
}

// DeleteRecipe removes every trace of a recipe except its tags.
func (s *Store) DeleteRecipe(ctx context.Context, slug string) error {
	err := s.update(ctx, func(tx *bolt.Tx) error {
		rows := tx.Bucket(bucketRecipes)
		slugs := tx.Bucket(bucketRecipeSlugs)

		if key := copyBytes(slugs.Get([]byte(slug))); key != nil {
			var row recipeRow
			if v := rows.Get(key); v != nil {
				if err := json.Unmarshal(v, &row); err != nil {
					return err
				}
				if err := tx.Bucket(bucketRecipeIDs).Delete([]byte(row.RemoteID)); err != nil {
					return err
				}
			}
			if err := rows.Delete(key); err != nil {
				return err
			}
			if err := slugs.Delete([]byte(slug)); err != nil {
				return err
			}
		}
		if err := tx.Bucket(bucketDetails).Delete([]byte(slug)); err != nil {
			return err
		}
		return tx.Bucket(bucketFavorites).Delete([]byte(slug))
	})
	if err != nil {
		return fmt.Errorf("failed to delete recipe %s: %w", slug, err)
	}
	return nil
}
