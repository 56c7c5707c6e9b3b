// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SmartGallery Contributors

// Package sqlite provides the durable storage backend: one sqlite-vec
// vec0 virtual table per tenant inside a single SQLite database file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"sync"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/smartgallery-dev/smartgallery/internal/store"
	sgerr "github.com/smartgallery-dev/smartgallery/pkg/errors"
)

func init() {
	sqlite_vec.Auto()

	store.RegisterBackend("sqlite", func(opts store.Options) (store.Registry, error) {
		return NewRegistry(opts.Path, opts.Dimensions)
	})
}

// Compile-time interface checks.
var (
	_ store.Registry   = (*Registry)(nil)
	_ store.Collection = (*Collection)(nil)
)

// Registry maps tenants to per-tenant vec0 tables. Tenant names are kept
// in a regular tenants table; the vec0 table name is derived from the
// tenant's integer rowid, never from the tenant string itself.
type Registry struct {
	db         *sql.DB
	dimensions int
	createMu   sync.Mutex // serializes tenant row + table creation
}

// NewRegistry opens (or creates) the SQLite database at dbPath.
// dimensions must be > 0; vec0 table schemas need it up front.
func NewRegistry(dbPath string, dimensions int) (*Registry, error) {
	if dimensions <= 0 {
		return nil, sgerr.Errorf(sgerr.CodeCollectionInvalidInput, "sqlite backend requires dimensions > 0, got %d", dimensions)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, sgerr.Wrap(err, sgerr.CodeStoreDatabaseFailure, "opening sqlite db", sgerr.FieldPath(dbPath))
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, sgerr.Wrap(err, sgerr.CodeStoreDatabaseFailure, "pinging sqlite db", sgerr.FieldPath(dbPath))
	}

	const ddl = `
CREATE TABLE IF NOT EXISTS tenants (
	id   INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE
)`
	if _, err := db.Exec(ddl); err != nil {
		_ = db.Close()
		return nil, sgerr.Wrap(err, sgerr.CodeStoreDatabaseFailure, "creating tenants table")
	}

	return &Registry{db: db, dimensions: dimensions}, nil
}

// GetOrCreate returns the tenant's collection, creating the tenant row
// and its vec0 table if absent. Creation is idempotent and serialized.
func (r *Registry) GetOrCreate(ctx context.Context, tenant string) (store.Collection, error) {
	r.createMu.Lock()
	defer r.createMu.Unlock()

	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO tenants(name) VALUES (?) ON CONFLICT(name) DO NOTHING`, tenant); err != nil {
		return nil, sgerr.Wrap(err, sgerr.CodeStoreDatabaseFailure, "registering tenant", sgerr.FieldTenant(tenant))
	}

	var id int64
	if err := r.db.QueryRowContext(ctx, `SELECT id FROM tenants WHERE name = ?`, tenant).Scan(&id); err != nil {
		return nil, sgerr.Wrap(err, sgerr.CodeStoreDatabaseFailure, "resolving tenant id", sgerr.FieldTenant(tenant))
	}

	table := tableName(id)
	vecDDL := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS %s USING vec0(id TEXT PRIMARY KEY, embedding float[%d])`,
		table, r.dimensions,
	)
	if _, err := r.db.ExecContext(ctx, vecDDL); err != nil {
		return nil, sgerr.Wrap(err, sgerr.CodeStoreDatabaseFailure, "creating vector table", sgerr.FieldTenant(tenant))
	}

	return &Collection{db: r.db, table: table, dimensions: r.dimensions}, nil
}

// Get returns the tenant's collection without creating one.
func (r *Registry) Get(ctx context.Context, tenant string) (store.Collection, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `SELECT id FROM tenants WHERE name = ?`, tenant).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sgerr.New(sgerr.CodeRegistryTenantNotFound, "tenant not initialized", sgerr.FieldTenant(tenant))
	}
	if err != nil {
		return nil, sgerr.Wrap(err, sgerr.CodeStoreDatabaseFailure, "looking up tenant", sgerr.FieldTenant(tenant))
	}

	return &Collection{db: r.db, table: tableName(id), dimensions: r.dimensions}, nil
}

// Tenants lists all registered tenants in name order.
func (r *Registry) Tenants(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name FROM tenants ORDER BY name`)
	if err != nil {
		return nil, sgerr.Wrap(err, sgerr.CodeStoreDatabaseFailure, "listing tenants")
	}
	defer func() { _ = rows.Close() }()

	var tenants []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, sgerr.Wrap(err, sgerr.CodeStoreDatabaseFailure, "scanning tenant name")
		}
		tenants = append(tenants, name)
	}
	if err := rows.Err(); err != nil {
		return nil, sgerr.Wrap(err, sgerr.CodeStoreDatabaseFailure, "iterating tenants")
	}
	return tenants, nil
}

// Close closes the underlying database connection.
func (r *Registry) Close() error {
	return r.db.Close()
}

func tableName(id int64) string {
	return fmt.Sprintf("vectors_%d", id)
}

// Collection is one tenant's vec0 table. Vectors are L2-normalized
// before storage so the default L2 distance metric ranks identically to
// cosine similarity; scores are recovered as 1 - d²/2.
type Collection struct {
	db         *sql.DB
	table      string
	dimensions int
}

// Insert adds or replaces the record at id.
func (c *Collection) Insert(ctx context.Context, id string, vector []float32) error {
	if id == "" {
		return sgerr.New(sgerr.CodeCollectionInvalidInput, "record id must not be empty")
	}
	if len(vector) != c.dimensions {
		return sgerr.Errorf(sgerr.CodeCollectionDimensionMismatch,
			"vector dimension mismatch: expected %d, got %d", c.dimensions, len(vector))
	}

	norm, ok := normalizeL2(vector)
	if !ok {
		return sgerr.New(sgerr.CodeCollectionInvalidInput, "cannot normalize zero vector", sgerr.Field("id", id))
	}

	blob, err := sqlite_vec.SerializeFloat32(norm)
	if err != nil {
		return sgerr.Wrap(err, sgerr.CodeStoreDatabaseFailure, "serializing embedding", sgerr.Field("id", id))
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return sgerr.Wrap(err, sgerr.CodeStoreDatabaseFailure, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	// vec0 does not support ON CONFLICT; delete first for upsert.
	if _, err := tx.ExecContext(ctx, `DELETE FROM `+c.table+` WHERE id = ?`, id); err != nil {
		return sgerr.Wrap(err, sgerr.CodeStoreDatabaseFailure, "deleting existing vector", sgerr.Field("id", id))
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO `+c.table+`(id, embedding) VALUES (?, ?)`, id, blob); err != nil {
		return sgerr.Wrap(err, sgerr.CodeStoreDatabaseFailure, "inserting vector", sgerr.Field("id", id))
	}

	if err := tx.Commit(); err != nil {
		return sgerr.Wrap(err, sgerr.CodeStoreDatabaseFailure, "committing vector insert", sgerr.Field("id", id))
	}
	return nil
}

// Query performs a k-nearest-neighbor search and converts vec0's L2
// distance back to cosine similarity. Ties are re-broken lexically in Go
// since the KNN plan only orders by distance.
func (c *Collection) Query(ctx context.Context, vector []float32, k int) ([]store.Match, error) {
	if k < 1 {
		return nil, sgerr.Errorf(sgerr.CodeCollectionInvalidInput, "k must be >= 1, got %d", k)
	}
	if len(vector) != c.dimensions {
		return nil, sgerr.Errorf(sgerr.CodeCollectionDimensionMismatch,
			"query dimension mismatch: expected %d, got %d", c.dimensions, len(vector))
	}

	q, ok := normalizeL2(vector)
	if !ok {
		return nil, sgerr.New(sgerr.CodeCollectionInvalidInput, "cannot normalize zero query vector")
	}

	blob, err := sqlite_vec.SerializeFloat32(q)
	if err != nil {
		return nil, sgerr.Wrap(err, sgerr.CodeStoreDatabaseFailure, "serializing query vector")
	}

	rows, err := c.db.QueryContext(ctx,
		`SELECT id, distance FROM `+c.table+` WHERE embedding MATCH ? AND k = ? ORDER BY distance`,
		blob, k,
	)
	if err != nil {
		return nil, sgerr.Wrap(err, sgerr.CodeStoreDatabaseFailure, "searching vectors")
	}
	defer func() { _ = rows.Close() }()

	matches := make([]store.Match, 0, k)
	for rows.Next() {
		var id string
		var dist float64
		if err := rows.Scan(&id, &dist); err != nil {
			return nil, sgerr.Wrap(err, sgerr.CodeStoreDatabaseFailure, "scanning search result")
		}
		// Unit vectors: d² = 2 - 2·cos, so cos = 1 - d²/2.
		matches = append(matches, store.Match{ID: id, Score: 1 - dist*dist/2})
	}
	if err := rows.Err(); err != nil {
		return nil, sgerr.Wrap(err, sgerr.CodeStoreDatabaseFailure, "iterating search results")
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

	return matches, nil
}

// Count reports the number of records in the collection.
func (c *Collection) Count(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+c.table).Scan(&n); err != nil {
		return 0, sgerr.Wrap(err, sgerr.CodeStoreDatabaseFailure, "counting vectors")
	}
	return n, nil
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
