// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SmartGallery Contributors

// Package gallery implements the indexing and query pipelines on top of
// the collection registry and the feature extractor.
package gallery

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/smartgallery-dev/smartgallery/internal/extractor"
	"github.com/smartgallery-dev/smartgallery/internal/store"
	sgerr "github.com/smartgallery-dev/smartgallery/pkg/errors"
)

// imageExtensions are the recognized image file extensions for bulk
// ingestion, matched case-insensitively.
var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".bmp":  true,
	".gif":  true,
}

const defaultIngestParallelism = 4

// Config holds pipeline configuration.
type Config struct {
	// IngestParallelism bounds concurrent extractions during folder
	// ingestion. Zero means the default of 4.
	IngestParallelism int
}

// Service wires the registry and the extractor into the pipelines. It is
// constructed once at startup and shared across requests.
type Service struct {
	registry    store.Registry
	extractor   extractor.Extractor
	parallelism int
}

// NewService creates a Service.
func NewService(registry store.Registry, ext extractor.Extractor, cfg Config) *Service {
	parallelism := cfg.IngestParallelism
	if parallelism <= 0 {
		parallelism = defaultIngestParallelism
	}
	return &Service{
		registry:    registry,
		extractor:   ext,
		parallelism: parallelism,
	}
}

// AddImage validates the image source, extracts its embedding, and
// inserts it into the tenant's collection. The cleaned path is the
// record identifier. Extraction runs before the collection is touched,
// so a failed extraction leaves no partial state behind.
func (s *Service) AddImage(ctx context.Context, tenant, imagePath string) (string, error) {
	id := filepath.Clean(imagePath)

	info, err := os.Stat(id)
	if err != nil || info.IsDir() {
		return "", sgerr.New(sgerr.CodeGallerySourceNotFound, "image not found",
			sgerr.FieldTenant(tenant), sgerr.FieldPath(imagePath))
	}

	vec, err := s.extractor.ExtractImage(ctx, id)
	if err != nil {
		return "", sgerr.With(err, sgerr.FieldTenant(tenant))
	}

	coll, err := s.registry.GetOrCreate(ctx, tenant)
	if err != nil {
		return "", sgerr.With(err, sgerr.FieldTenant(tenant))
	}
	if err := coll.Insert(ctx, id, vec); err != nil {
		return "", sgerr.With(err, sgerr.FieldTenant(tenant), sgerr.FieldPath(id))
	}

	slog.Debug("indexed image", "tenant", tenant, "id", id)
	return id, nil
}

// Failure records one file that could not be ingested.
type Failure struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// Summary aggregates the outcome of a folder ingestion.
type Summary struct {
	Attempted int
	Succeeded int
	Failures  []Failure
}

// AddFolder ingests every recognized image file in folderPath. Files are
// extracted concurrently with bounded parallelism. Per-file failures are
// recorded and never abort the remaining files; the call itself fails
// only when folderPath is missing or not a directory.
func (s *Service) AddFolder(ctx context.Context, tenant, folderPath string) (Summary, error) {
	info, err := os.Stat(folderPath)
	if err != nil || !info.IsDir() {
		return Summary{}, sgerr.New(sgerr.CodeGallerySourceNotFound, "folder not found",
			sgerr.FieldTenant(tenant), sgerr.FieldPath(folderPath))
	}

	entries, err := os.ReadDir(folderPath)
	if err != nil {
		return Summary{}, sgerr.Wrap(err, sgerr.CodeGallerySourceNotFound, "reading folder",
			sgerr.FieldTenant(tenant), sgerr.FieldPath(folderPath))
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if imageExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			paths = append(paths, filepath.Join(folderPath, entry.Name()))
		}
	}

	var (
		mu       sync.Mutex
		failures []Failure
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)
	for _, path := range paths {
		g.Go(func() error {
			if _, err := s.AddImage(gctx, tenant, path); err != nil {
				slog.Warn("skipping image", "tenant", tenant, "path", path, "error", err)
				mu.Lock()
				failures = append(failures, Failure{Path: path, Reason: err.Error()})
				mu.Unlock()
			}
			return nil
		})
	}
	// Workers never return errors; failures are collected per file.
	_ = g.Wait()

	slices.SortFunc(failures, func(a, b Failure) int {
		return strings.Compare(a.Path, b.Path)
	})

	summary := Summary{
		Attempted: len(paths),
		Succeeded: len(paths) - len(failures),
		Failures:  failures,
	}
	slog.Info("folder ingested", "tenant", tenant, "path", folderPath,
		"attempted", summary.Attempted, "succeeded", summary.Succeeded)
	return summary, nil
}

// SearchResult is the typed Match|NoMatch outcome of a query. Found is
// false when the tenant's collection exists but holds no records; that
// is distinct from the tenant-not-initialized error.
type SearchResult struct {
	Found      bool
	Identifier string
	Score      float64
}

// Search embeds the query text and returns the tenant's best match.
// Querying a tenant that was never initialized fails with
// registry.tenant.not_found rather than returning an empty result.
func (s *Service) Search(ctx context.Context, tenant, query string) (SearchResult, error) {
	vec, err := s.extractor.ExtractText(ctx, query)
	if err != nil {
		return SearchResult{}, sgerr.With(err, sgerr.FieldTenant(tenant))
	}

	coll, err := s.registry.Get(ctx, tenant)
	if err != nil {
		return SearchResult{}, err
	}

	matches, err := coll.Query(ctx, vec, 1)
	if err != nil {
		return SearchResult{}, sgerr.With(err, sgerr.FieldTenant(tenant), sgerr.FieldQuery(query))
	}
	if len(matches) == 0 {
		return SearchResult{}, nil
	}

	slog.Debug("search hit", "tenant", tenant, "id", matches[0].ID, "score", matches[0].Score)
	return SearchResult{
		Found:      true,
		Identifier: matches[0].ID,
		Score:      matches[0].Score,
	}, nil
}

// InitTenant explicitly creates the tenant's collection so that
// subsequent searches distinguish "empty" from "never initialized".
func (s *Service) InitTenant(ctx context.Context, tenant string) error {
	if tenant == "" {
		return sgerr.New(sgerr.CodeCollectionInvalidInput, "tenant must not be empty")
	}
	_, err := s.registry.GetOrCreate(ctx, tenant)
	return err
}

// Tenants lists all tenants with a collection.
func (s *Service) Tenants(ctx context.Context) ([]string, error) {
	return s.registry.Tenants(ctx)
}
