package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/snrecon/internal/metadata"
)

var _ metadata.Cache = (*MetadataCache)(nil)

func TestMetadataCache(t *testing.T) {
	ctx := context.Background()
	c := createTestStore(t).MetadataCache()

	_, ok, err := c.Get(ctx, "4711")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Put(ctx, "4711", metadata.ProductInfo{Manufacturer: "NetApp", ProductName: "FAS2750"}))
	require.NoError(t, c.Put(ctx, "4711", metadata.ProductInfo{Manufacturer: "NetApp", ProductName: "FAS2820"}))

	info, ok, err := c.Get(ctx, "4711")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, metadata.ProductInfo{Manufacturer: "NetApp", ProductName: "FAS2820"}, info)

	n, err := c.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestMetadataCache_WithCachedLookup(t *testing.T) {
	ctx := context.Background()
	c := createTestStore(t).MetadataCache()
	catalog := metadata.NewCatalog(map[string]metadata.ProductInfo{
		"P1": {Manufacturer: "HPE", ProductName: "ProLiant"},
	})

	info, err := metadata.NewCached(catalog, c).Lookup(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, "HPE", info.Manufacturer)

	cached, ok, err := c.Get(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, info, cached)
}

func TestMetadataCache_Prune(t *testing.T) {
	ctx := context.Background()
	c := createTestStore(t).MetadataCache()
	require.NoError(t, c.Put(ctx, "4711", metadata.ProductInfo{Manufacturer: "NetApp"}))

	n, err := c.Prune(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(0), n, "fresh entries stay")

	n, err = c.Prune(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, ok, err := c.Get(ctx, "4711")
	require.NoError(t, err)
	assert.False(t, ok)
}
