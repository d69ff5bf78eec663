package store

import (
	"context"
	"fmt"

	bolt "go.etcd.io/bbolt"
)

var favoriteMark = []byte{1}

// ReplaceFavorites makes the overlay exactly the given set of slugs.
// Slugs that are not cached yet are kept so rows paged in later pick them up.
func (s *Store) ReplaceFavorites(ctx context.Context, slugs []string) error {
	err := s.update(ctx, func(tx *bolt.Tx) error {
		if err := resetBuckets(tx, bucketFavorites); err != nil {
			return err
		}
		b := tx.Bucket(bucketFavorites)
		for _, slug := range slugs {
			if err := b.Put([]byte(slug), favoriteMark); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to replace favorites: %w", err)
	}
	s.logger.Debug("replaced favorites", "count", len(slugs))
	return nil
}

func (s *Store) SetFavorite(ctx context.Context, slug string, isFavorite bool) error {
	err := s.update(ctx, func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketFavorites)
		if isFavorite {
			return b.Put([]byte(slug), favoriteMark)
		}
		return b.Delete([]byte(slug))
	})
	if err != nil {
		return fmt.Errorf("failed to set favorite %s: %w", slug, err)
	}
	return nil
}

// IsFavorite reports the overlay flag for a slug.
func (s *Store) IsFavorite(ctx context.Context, slug string) (bool, error) {
	var fav bool
	err := s.view(ctx, func(tx *bolt.Tx) error {
		fav = tx.Bucket(bucketFavorites).Get([]byte(slug)) != nil
		return nil
	})
	return fav, err
}
