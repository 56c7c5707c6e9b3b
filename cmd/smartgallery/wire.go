// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SmartGallery Contributors

package main

import (
	"github.com/smartgallery-dev/smartgallery/internal/config"
	"github.com/smartgallery-dev/smartgallery/internal/extractor/openaiembed"
	"github.com/smartgallery-dev/smartgallery/internal/gallery"
	"github.com/smartgallery-dev/smartgallery/internal/store"
	_ "github.com/smartgallery-dev/smartgallery/internal/store/memory" // register memory backend
	_ "github.com/smartgallery-dev/smartgallery/internal/store/sqlite" // register sqlite backend
	sgerr "github.com/smartgallery-dev/smartgallery/pkg/errors"
)

// Gallery holds all wired subsystems and manages their lifecycle.
type Gallery struct {
	Registry store.Registry
	Service  *gallery.Service
}

// WireGallery creates the vector registry, the embedding extractor, and the
// gallery service from configuration.
func WireGallery(cfg *config.Config) (*Gallery, error) {
	registry, err := store.NewRegistry(cfg.Storage.Backend, store.Options{
		Path:       cfg.Storage.Path,
		Dimensions: cfg.Extractor.Dimensions,
	})
	if err != nil {
		return nil, sgerr.Wrap(err, sgerr.CodeCLISetupFailure, "creating vector registry")
	}

	ext, err := openaiembed.New(openaiembed.Config{
		Endpoint:   cfg.Extractor.Endpoint,
		APIKey:     cfg.Extractor.APIKey,
		Model:      cfg.Extractor.Model,
		Dimensions: cfg.Extractor.Dimensions,
	})
	if err != nil {
		_ = registry.Close()
		return nil, sgerr.Wrap(err, sgerr.CodeCLISetupFailure, "creating embedding extractor")
	}

	svc := gallery.NewService(registry, ext, gallery.Config{
		IngestParallelism: cfg.Gallery.IngestParallelism,
	})

	return &Gallery{Registry: registry, Service: svc}, nil
}

// Close releases the registry and any backing database handles.
func (g *Gallery) Close() error {
	return g.Registry.Close()
}
