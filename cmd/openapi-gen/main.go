// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SmartGallery Contributors

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/smartgallery-dev/smartgallery/internal/gallery"
	"github.com/smartgallery-dev/smartgallery/internal/server"
	"github.com/smartgallery-dev/smartgallery/internal/store"
	_ "github.com/smartgallery-dev/smartgallery/internal/store/memory"
	sgerr "github.com/smartgallery-dev/smartgallery/pkg/errors"
)

func main() {
	spec, err := generateSpec()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	outPath := "api/openapi/spec.json"
	if len(os.Args) > 1 {
		outPath = os.Args[1]
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "error creating output dir: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile(outPath, spec, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "error writing spec: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("OpenAPI spec written to %s\n", outPath)
}

// generateSpec creates a server with all routes registered and extracts the
// OpenAPI spec that huma generates from the Go type annotations.
func generateSpec() ([]byte, error) {
	// An in-memory registry and a stub extractor are enough to register
	// every route. Handlers are never invoked during spec generation.
	registry, err := store.NewRegistry("memory", store.Options{})
	if err != nil {
		return nil, sgerr.Wrap(err, sgerr.CodeCLISetupFailure, "creating registry")
	}
	defer func() { _ = registry.Close() }()

	srv, err := server.New(server.Config{ListenAddr: "127.0.0.1:0"})
	if err != nil {
		return nil, sgerr.Wrap(err, sgerr.CodeCLISetupFailure, "creating server")
	}
	srv.RegisterService(gallery.NewService(registry, noopExtractor{}, gallery.Config{}))

	return json.MarshalIndent(srv.API().OpenAPI(), "", "  ")
}

// noopExtractor satisfies the extractor interface for spec generation.
type noopExtractor struct{}

func (noopExtractor) ExtractImage(context.Context, string) ([]float32, error) {
	return nil, sgerr.New(sgerr.CodeExtractorImageFailure, "not configured")
}

func (noopExtractor) ExtractText(context.Context, string) ([]float32, error) {
	return nil, sgerr.New(sgerr.CodeExtractorTextFailure, "not configured")
}

func (noopExtractor) Dimensions() int { return 0 }
