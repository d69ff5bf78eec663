package store

import (
	"context"
	"fmt"
	"strconv"

	"github.com/mmcdole/ladle/internal/domain"
	bolt "go.etcd.io/bbolt"
)

var (
	keyBaseURL = []byte("base_url")
	keyVersion = []byte("major_version")
)

func (s *Store) GetServerProfile(ctx context.Context) (domain.ServerProfile, error) {
	var profile domain.ServerProfile
	err := s.view(ctx, func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketServerInfo)
		profile.BaseURL = string(b.Get(keyBaseURL))
		if v := b.Get(keyVersion); v != nil && profile.BaseURL != "" {
			n, err := strconv.Atoi(string(v))
			if err != nil {
				return fmt.Errorf("corrupt stored version %q: %w", v, err)
			}
			profile.Version = &n
		}
		return nil
	})
	if err != nil {
		return domain.ServerProfile{}, err
	}
	return profile, nil
}

// StoreServerProfile writes both keys in one transaction. It does not bump
// Changes: the profile is not recipe data.
func (s *Store) StoreServerProfile(ctx context.Context, profile domain.ServerProfile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketServerInfo)
		if profile.BaseURL == "" {
			if err := b.Delete(keyBaseURL); err != nil {
				return err
			}
			return b.Delete(keyVersion)
		}
		if err := b.Put(keyBaseURL, []byte(profile.BaseURL)); err != nil {
			return err
		}
		if profile.Version == nil {
			return b.Delete(keyVersion)
		}
		return b.Put(keyVersion, []byte(strconv.Itoa(*profile.Version)))
	})
	if err != nil {
		return fmt.Errorf("failed to store server profile: %w", err)
	}
	return nil
}
