package store

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/mmcdole/ladle/internal/observe"
	bolt "go.etcd.io/bbolt"
	berrors "go.etcd.io/bbolt/errors"
)

// Bucket names
var (
	bucketRecipes     = []byte("recipes")      // seq -> recipeRow, insertion order
	bucketRecipeIDs   = []byte("recipe_ids")   // remoteID -> seq
	bucketRecipeSlugs = []byte("recipe_slugs") // slug -> seq
	bucketDetails     = []byte("recipe_details")
	bucketTags        = []byte("tags")      // name -> localID
	bucketFavorites   = []byte("favorites") // slug -> 1
	bucketServerInfo  = []byte("server_info")
)

// recipeBuckets are wiped by ClearAll. Server info survives a clear.
var recipeBuckets = [][]byte{
	bucketRecipes, bucketRecipeIDs, bucketRecipeSlugs, bucketDetails, bucketTags, bucketFavorites,
}

const dbFileName = "ladle.db"

func allBuckets() [][]byte {
	out := make([][]byte, 0, len(recipeBuckets)+1)
	out = append(out, recipeBuckets...)
	return append(out, bucketServerInfo)
}

// Store implements domain.RecipeStore and domain.ServerInfoStorage using BoltDB.
// bbolt allows one writer at a time, so every mutation below is a single
// db.Update and readers in db.View never observe half of one.
type Store struct {
	db      *bolt.DB
	match   MatchFunc
	logger  *slog.Logger
	changes *observe.Value[uint64] // Bumped after each committed recipe write
}

// Option configures a Store.
type Option func(*Store)

// WithMatcher sets how QueryRecipes compares names against the query.
func WithMatcher(m MatchFunc) Option {
	return func(s *Store) { s.match = m }
}

// WithLogger sets the store logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// Open opens (or creates) the cache database inside cacheDir.
func Open(cacheDir string, opts ...Option) (*Store, error) {
	if cacheDir == "" {
		return nil, fmt.Errorf("cache directory is required")
	}
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(cacheDir, dbFileName)
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	// Create buckets
	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range allBuckets() {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	s := &Store{
		db:      db,
		match:   SubstringMatch,
		changes: observe.NewValue(uint64(0)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Changes publishes a new generation number after every committed change to
// recipe rows or the favorite overlay. Live queries re-read when it moves.
func (s *Store) Changes() *observe.Value[uint64] {
	return s.changes
}

// ClearAll wipes every recipe, detail, tag and favorite in one transaction.
func (s *Store) ClearAll(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		return resetBuckets(tx, recipeBuckets...)
	})
	if err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	s.logger.Info("cleared local recipe cache")
	s.notify()
	return nil
}

// === Generic helpers ===

func (s *Store) notify() {
	s.changes.Update(func(n uint64) uint64 { return n + 1 })
}

// update runs fn in a write transaction and publishes a change on commit.
func (s *Store) update(ctx context.Context, fn func(tx *bolt.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.db.Update(fn); err != nil {
		return err
	}
	s.notify()
	return nil
}

func (s *Store) view(ctx context.Context, fn func(tx *bolt.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(fn)
}

// resetBuckets deletes and recreates buckets, which also resets their sequences.
func resetBuckets(tx *bolt.Tx, buckets ...[]byte) error {
	for _, name := range buckets {
		if err := tx.DeleteBucket(name); err != nil && !errors.Is(err, berrors.ErrBucketNotFound) {
			return err
		}
		if _, err := tx.CreateBucket(name); err != nil {
			return err
		}
	}
	return nil
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func btoi(b []byte) uint64 {
	return binary.BigEndian.Uint64(b)
}

// copyBytes detaches a value from the transaction's mmap.
func copyBytes(v []byte) []byte {
	if v == nil {
		return nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out
}
