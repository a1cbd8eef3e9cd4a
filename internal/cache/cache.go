package cache

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/tklein/scriptpad/internal/script"
)

// Cache bundles the metadata database and the search index that live
// together under the scriptpad data directory.
type Cache struct {
	DB     *DB
	Search *SearchIndex
}

// Open opens both halves of the cache under dir.
func Open(ctx context.Context, dir string) (*Cache, error) {
	dbPath := filepath.Join(dir, "cache.db")

	db, err := NewDB(ctx, dbPath)
	if err != nil {
		return nil, err
	}

	search, err := NewSearchIndex(dbPath)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Cache{DB: db, Search: search}, nil
}

// Sync replaces the cache contents with a fresh remote listing.
func (c *Cache) Sync(ctx context.Context, scripts []script.Script) error {
	if err := c.DB.ReplaceAll(ctx, scripts); err != nil {
		return err
	}
	if err := c.Search.IndexAll(scripts); err != nil {
		return fmt.Errorf("failed to rebuild search index: %w", err)
	}
	return nil
}

// Close releases both halves; the first error wins.
func (c *Cache) Close() error {
	err := c.Search.Close()
	if dbErr := c.DB.Close(); err == nil {
		err = dbErr
	}
	return err
}
