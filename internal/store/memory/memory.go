// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SmartGallery Contributors

// Package memory provides the in-process storage backend: a brute-force
// cosine-similarity collection per tenant, with no persistence.
package memory

import (
	"context"
	"math"
	"slices"
	"strings"
	"sync"

	"github.com/smartgallery-dev/smartgallery/internal/store"
	sgerr "github.com/smartgallery-dev/smartgallery/pkg/errors"
)

func init() {
	store.RegisterBackend("memory", func(opts store.Options) (store.Registry, error) {
		return NewRegistry(opts.Dimensions), nil
	})
}

// Compile-time interface checks.
var (
	_ store.Registry   = (*Registry)(nil)
	_ store.Collection = (*Collection)(nil)
)

// Registry is an in-memory tenant registry. The zero value is not usable;
// construct with NewRegistry.
type Registry struct {
	mu          sync.RWMutex
	collections map[string]*Collection
	dimensions  int
}

// NewRegistry creates an empty registry. dimensions may be 0, in which
// case each collection establishes its dimensionality on first insert.
func NewRegistry(dimensions int) *Registry {
	return &Registry{
		collections: make(map[string]*Collection),
		dimensions:  dimensions,
	}
}

// GetOrCreate returns the tenant's collection, creating it if absent.
// Lookup and creation happen in a single critical section so concurrent
// calls for the same tenant observe one authoritative collection.
func (r *Registry) GetOrCreate(_ context.Context, tenant string) (store.Collection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.collections[tenant]
	if !ok {
		c = newCollection(r.dimensions)
		r.collections[tenant] = c
	}
	return c, nil
}

// Get returns the tenant's collection without creating one.
func (r *Registry) Get(_ context.Context, tenant string) (store.Collection, error) {
	r.mu.RLock()
	c, ok := r.collections[tenant]
	r.mu.RUnlock()

	if !ok {
		return nil, sgerr.New(sgerr.CodeRegistryTenantNotFound, "tenant not initialized", sgerr.FieldTenant(tenant))
	}
	return c, nil
}

// Tenants lists all tenants with a collection, in no particular order.
func (r *Registry) Tenants(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tenants := make([]string, 0, len(r.collections))
	for tenant := range r.collections {
		tenants = append(tenants, tenant)
	}
	return tenants, nil
}

func (r *Registry) Close() error { return nil }

// Collection is a brute-force cosine-similarity index over (id, vector)
// records. Vectors are L2-normalized on insert so similarity reduces to a
// dot product at query time.
type Collection struct {
	mu         sync.RWMutex
	vectors    map[string][]float32
	dimensions int // 0 until established by the first insert
}

func newCollection(dimensions int) *Collection {
	return &Collection{
		vectors:    make(map[string][]float32),
		dimensions: dimensions,
	}
}

// Insert adds or overwrites the record at id. The first insert into a
// collection without configured dimensions establishes them.
func (c *Collection) Insert(_ context.Context, id string, vector []float32) error {
	if id == "" {
		return sgerr.New(sgerr.CodeCollectionInvalidInput, "record id must not be empty")
	}
	if len(vector) == 0 {
		return sgerr.New(sgerr.CodeCollectionInvalidInput, "vector must not be empty", sgerr.Field("id", id))
	}

	norm, ok := normalizeL2(vector)
	if !ok {
		return sgerr.New(sgerr.CodeCollectionInvalidInput, "cannot normalize zero vector", sgerr.Field("id", id))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.dimensions == 0 {
		c.dimensions = len(vector)
	} else if len(vector) != c.dimensions {
		return sgerr.Errorf(sgerr.CodeCollectionDimensionMismatch,
			"vector dimension mismatch: expected %d, got %d", c.dimensions, len(vector))
	}

	c.vectors[id] = norm
	return nil
}

// Query scores every record against vector and returns the k best in
// descending score order, ties broken by lexical id order.
func (c *Collection) Query(_ context.Context, vector []float32, k int) ([]store.Match, error) {
	if k < 1 {
		return nil, sgerr.Errorf(sgerr.CodeCollectionInvalidInput, "k must be >= 1, got %d", k)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	// Dimension check comes first: an empty collection with pinned
	// dimensions still rejects a mis-sized query.
	if c.dimensions != 0 && len(vector) != c.dimensions {
		return nil, sgerr.Errorf(sgerr.CodeCollectionDimensionMismatch,
			"query dimension mismatch: expected %d, got %d", c.dimensions, len(vector))
	}
	if len(c.vectors) == 0 {
		return []store.Match{}, nil
	}

	q, ok := normalizeL2(vector)
	if !ok {
		return nil, sgerr.New(sgerr.CodeCollectionInvalidInput, "cannot normalize zero query vector")
	}

	matches := make([]store.Match, 0, len(c.vectors))
	for id, stored := range c.vectors {
		matches = append(matches, store.Match{ID: id, Score: float64(dot(q, stored))})
	}

	slices.SortFunc(matches, func(a, b store.Match) int {
		if a.Score != b.Score {
			if a.Score > b.Score {
				return -1
			}
			return 1
		}
		return strings.Compare(a.ID, b.ID)
	})

	if k < len(matches) {
		matches = matches[:k]
	}
	return matches, nil
}

// Count reports the number of records in the collection.
func (c *Collection) Count(_ context.Context) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.vectors), nil
}

// dot computes the dot product of two equal-length vectors.
func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// normalizeL2 returns an L2-normalized copy of v.
// Returns false if v has zero L2 norm.
func normalizeL2(v []float32) ([]float32, bool) {
	var norm2 float64
	for _, x := range v {
		norm2 += float64(x) * float64(x)
	}
	if norm2 == 0 {
		return nil, false
	}

	inv := float32(1 / math.Sqrt(norm2))
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = x * inv
	}
	return out, true
}
