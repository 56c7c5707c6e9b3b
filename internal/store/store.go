// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SmartGallery Contributors

package store

import "context"

// Match is a single scored hit from a similarity query.
type Match struct {
	// ID is the record identifier, unique within a collection.
	ID string
	// Score is the cosine similarity between the query and the stored
	// vector, in [-1, 1]. Higher is more similar.
	Score float64
}

// Collection holds the (id, embedding) records of a single tenant.
// Implementations must be safe for concurrent use.
type Collection interface {
	// Insert adds or overwrites the record at id (last write wins).
	// Fails with collection.dimension.mismatch when the vector's length
	// differs from the collection's established dimensionality.
	Insert(ctx context.Context, id string, vector []float32) error

	// Query returns up to k records in descending similarity order.
	// Ties are broken by lexical identifier order. An empty collection
	// yields an empty result, not an error.
	Query(ctx context.Context, vector []float32, k int) ([]Match, error)

	// Count reports the number of records in the collection.
	Count(ctx context.Context) (int, error)
}

// Registry maps tenant identifiers to their collections. Implementations
// must guarantee a single authoritative collection per tenant, created at
// most once even under concurrent GetOrCreate calls.
type Registry interface {
	// GetOrCreate returns the tenant's collection, creating an empty one
	// if none exists yet.
	GetOrCreate(ctx context.Context, tenant string) (Collection, error)

	// Get returns the tenant's collection, or registry.tenant.not_found
	// if no collection has ever been created for the tenant. It never
	// creates a collection as a side effect.
	Get(ctx context.Context, tenant string) (Collection, error)

	// Tenants lists all tenants that have a collection.
	Tenants(ctx context.Context) ([]string, error)

	Close() error
}
