package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/roach88/snrecon/internal/metadata"
)

// MetadataCache is a metadata.Cache backed by the product_metadata table.
type MetadataCache struct {
	s *Store
}

// MetadataCache returns the product metadata cache of the store.
func (s *Store) MetadataCache() *MetadataCache {
	return &MetadataCache{s: s}
}

// Get implements metadata.Cache.
func (c *MetadataCache) Get(ctx context.Context, ref string) (metadata.ProductInfo, bool, error) {
	var info metadata.ProductInfo
	err := c.s.db.QueryRowContext(ctx, `
		SELECT manufacturer, product_name FROM product_metadata WHERE ref = ?
	`, ref).Scan(&info.Manufacturer, &info.ProductName)
	if errors.Is(err, sql.ErrNoRows) {
		return metadata.ProductInfo{}, false, nil
	}
	if err != nil {
		return metadata.ProductInfo{}, false, fmt.Errorf("get product %q: %w", ref, err)
	}
	return info, true, nil
}

// Put implements metadata.Cache.
func (c *MetadataCache) Put(ctx context.Context, ref string, info metadata.ProductInfo) error {
	_, err := c.s.db.ExecContext(ctx, `
		INSERT INTO product_metadata (ref, manufacturer, product_name) VALUES (?, ?, ?)
		ON CONFLICT(ref) DO UPDATE SET
			manufacturer = excluded.manufacturer,
			product_name = excluded.product_name,
			fetched_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
	`, ref, info.Manufacturer, info.ProductName)
	if err != nil {
		return fmt.Errorf("put product %q: %w", ref, err)
	}
	return nil
}

// Clear drops every cached product and returns how many were removed.
func (c *MetadataCache) Clear(ctx context.Context) (int64, error) {
	res, err := c.s.db.ExecContext(ctx, `DELETE FROM product_metadata`)
	if err != nil {
		return 0, fmt.Errorf("clear product cache: %w", err)
	}
	return res.RowsAffected()
}

// fetchedAtLayout matches the strftime format of product_metadata.fetched_at.
const fetchedAtLayout = "2006-01-02T15:04:05.000Z"

// Prune drops products fetched before the given time and returns how many
// were removed.
func (c *MetadataCache) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := c.s.db.ExecContext(ctx,
		`DELETE FROM product_metadata WHERE fetched_at < ?`,
		before.UTC().Format(fetchedAtLayout))
	if err != nil {
		return 0, fmt.Errorf("prune product cache: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n > 0 {
		c.s.logger.Debug("product cache pruned", zap.Int64("removed", n), zap.Time("before", before))
	}
	return n, nil
}
