// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SmartGallery Contributors

package memory_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/smartgallery-dev/smartgallery/internal/store/memory"
	sgerr "github.com/smartgallery-dev/smartgallery/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollection_InsertAndQueryTopMatch(t *testing.T) {
	ctx := context.Background()
	r := memory.NewRegistry(3)

	c, err := r.GetOrCreate(ctx, "alice")
	require.NoError(t, err)

	require.NoError(t, c.Insert(ctx, "cat.png", []float32{1, 0, 0}))
	require.NoError(t, c.Insert(ctx, "dog.png", []float32{0, 1, 0}))
	require.NoError(t, c.Insert(ctx, "bird.png", []float32{0, 0, 1}))

	matches, err := c.Query(ctx, []float32{1, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "cat.png", matches[0].ID)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-6)
}

func TestCollection_QueryReturnsDescendingOrder(t *testing.T) {
	ctx := context.Background()
	r := memory.NewRegistry(2)

	c, err := r.GetOrCreate(ctx, "alice")
	require.NoError(t, err)

	require.NoError(t, c.Insert(ctx, "far.png", []float32{0, 1}))
	require.NoError(t, c.Insert(ctx, "near.png", []float32{0.9, 0.1}))
	require.NoError(t, c.Insert(ctx, "exact.png", []float32{1, 0}))

	matches, err := c.Query(ctx, []float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, matches, 3)
	assert.Equal(t, "exact.png", matches[0].ID)
	assert.Equal(t, "near.png", matches[1].ID)
	assert.Equal(t, "far.png", matches[2].ID)
	assert.GreaterOrEqual(t, matches[0].Score, matches[1].Score)
	assert.GreaterOrEqual(t, matches[1].Score, matches[2].Score)
}

func TestCollection_QueryTieBreaksLexically(t *testing.T) {
	ctx := context.Background()
	r := memory.NewRegistry(2)

	c, err := r.GetOrCreate(ctx, "alice")
	require.NoError(t, err)

	// Same direction, different magnitude: identical cosine score.
	require.NoError(t, c.Insert(ctx, "b.png", []float32{2, 0}))
	require.NoError(t, c.Insert(ctx, "a.png", []float32{1, 0}))
	require.NoError(t, c.Insert(ctx, "c.png", []float32{3, 0}))

	matches, err := c.Query(ctx, []float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, matches, 3)
	assert.Equal(t, "a.png", matches[0].ID)
	assert.Equal(t, "b.png", matches[1].ID)
	assert.Equal(t, "c.png", matches[2].ID)
}

func TestCollection_InsertOverwritesExistingID(t *testing.T) {
	ctx := context.Background()
	r := memory.NewRegistry(2)

	c, err := r.GetOrCreate(ctx, "alice")
	require.NoError(t, err)

	require.NoError(t, c.Insert(ctx, "photo.png", []float32{1, 0}))
	require.NoError(t, c.Insert(ctx, "photo.png", []float32{0, 1}))

	count, err := c.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// Only the new vector is visible; no duplicate results for one id.
	matches, err := c.Query(ctx, []float32{0, 1}, 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "photo.png", matches[0].ID)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-6)
}

func TestCollection_QueryEmptyReturnsNoMatches(t *testing.T) {
	ctx := context.Background()
	r := memory.NewRegistry(3)

	c, err := r.GetOrCreate(ctx, "alice")
	require.NoError(t, err)

	matches, err := c.Query(ctx, []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestCollection_QueryEmptyPinnedRejectsWrongDimensions(t *testing.T) {
	ctx := context.Background()
	r := memory.NewRegistry(3)

	c, err := r.GetOrCreate(ctx, "alice")
	require.NoError(t, err)

	// No records yet, but dimensions are pinned by the registry: a
	// mis-sized query is an error, not an empty result.
	_, err = c.Query(ctx, []float32{1, 0}, 1)
	require.Error(t, err)
	assert.True(t, sgerr.HasCode(err, sgerr.CodeCollectionDimensionMismatch))
}

func TestCollection_DimensionMismatch(t *testing.T) {
	ctx := context.Background()
	r := memory.NewRegistry(0) // dimensionality established by first insert

	c, err := r.GetOrCreate(ctx, "alice")
	require.NoError(t, err)

	require.NoError(t, c.Insert(ctx, "a.png", []float32{1, 0, 0}))

	err = c.Insert(ctx, "b.png", []float32{1, 0})
	require.Error(t, err)
	assert.True(t, sgerr.HasCode(err, sgerr.CodeCollectionDimensionMismatch))

	// The failed insert left the collection unchanged.
	count, err := c.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, err = c.Query(ctx, []float32{1, 0}, 1)
	require.Error(t, err)
	assert.True(t, sgerr.HasCode(err, sgerr.CodeCollectionDimensionMismatch))
}

func TestCollection_RejectsZeroVectorAndBadK(t *testing.T) {
	ctx := context.Background()
	r := memory.NewRegistry(2)

	c, err := r.GetOrCreate(ctx, "alice")
	require.NoError(t, err)

	err = c.Insert(ctx, "zero.png", []float32{0, 0})
	require.Error(t, err)
	assert.True(t, sgerr.HasCode(err, sgerr.CodeCollectionInvalidInput))

	require.NoError(t, c.Insert(ctx, "a.png", []float32{1, 0}))
	_, err = c.Query(ctx, []float32{1, 0}, 0)
	require.Error(t, err)
	assert.True(t, sgerr.HasCode(err, sgerr.CodeCollectionInvalidInput))
}

func TestRegistry_GetDoesNotCreate(t *testing.T) {
	ctx := context.Background()
	r := memory.NewRegistry(3)

	_, err := r.Get(ctx, "nobody")
	require.Error(t, err)
	assert.True(t, sgerr.HasCode(err, sgerr.CodeRegistryTenantNotFound))

	// The failed lookup must not have created a collection.
	tenants, err := r.Tenants(ctx)
	require.NoError(t, err)
	assert.Empty(t, tenants)
}

func TestRegistry_TenantIsolation(t *testing.T) {
	ctx := context.Background()
	r := memory.NewRegistry(2)

	ca, err := r.GetOrCreate(ctx, "alice")
	require.NoError(t, err)
	cb, err := r.GetOrCreate(ctx, "bob")
	require.NoError(t, err)

	// Same identifier, different vectors, different tenants.
	require.NoError(t, ca.Insert(ctx, "photo.png", []float32{1, 0}))
	require.NoError(t, cb.Insert(ctx, "photo.png", []float32{0, 1}))

	matches, err := ca.Query(ctx, []float32{0, 1}, 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.InDelta(t, 0.0, matches[0].Score, 1e-6) // alice's vector, not bob's
}

func TestRegistry_GetOrCreateReturnsSameCollection(t *testing.T) {
	ctx := context.Background()
	r := memory.NewRegistry(2)

	c1, err := r.GetOrCreate(ctx, "alice")
	require.NoError(t, err)
	require.NoError(t, c1.Insert(ctx, "a.png", []float32{1, 0}))

	c2, err := r.GetOrCreate(ctx, "alice")
	require.NoError(t, err)

	count, err := c2.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRegistry_ConcurrentGetOrCreate(t *testing.T) {
	ctx := context.Background()
	r := memory.NewRegistry(2)

	const n = 32
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			c, err := r.GetOrCreate(ctx, "alice")
			assert.NoError(t, err)
			assert.NoError(t, c.Insert(ctx, fmt.Sprintf("img-%03d.png", i), []float32{1, float32(i)}))
		}(i)
	}
	wg.Wait()

	c, err := r.Get(ctx, "alice")
	require.NoError(t, err)

	// No lost writes, no duplicate collections: all n records present.
	count, err := c.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, n, count)

	tenants, err := r.Tenants(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, tenants)
}
