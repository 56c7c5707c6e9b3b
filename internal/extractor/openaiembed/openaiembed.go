// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SmartGallery Contributors

// Package openaiembed implements extractor.Extractor against any
// OpenAI-compatible /v1/embeddings endpoint. CLIP sidecar servers expose
// this surface: texts are sent as plain strings, images as data URIs.
package openaiembed

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/smartgallery-dev/smartgallery/internal/extractor"
	sgerr "github.com/smartgallery-dev/smartgallery/pkg/errors"
)

// Compile-time interface check.
var _ extractor.Extractor = (*Extractor)(nil)

// Config holds embeddings endpoint configuration.
type Config struct {
	// Endpoint is the base URL of the OpenAI-compatible API
	// (e.g. http://127.0.0.1:8123/v1 for a local CLIP sidecar).
	Endpoint string
	// APIKey is optional; local sidecars typically run without one.
	APIKey string
	// Model is the embedding model identifier.
	Model string
	// Dimensions is the expected embedding dimensionality. Responses of
	// any other length are rejected.
	Dimensions int
}

// Extractor calls a shared embedding model over HTTP. It holds no
// per-call mutable state and is safe for concurrent use.
type Extractor struct {
	client openaisdk.Client
	config Config
}

// New creates an Extractor. Returns an error if the endpoint, model, or
// dimensionality is missing.
func New(cfg Config) (*Extractor, error) {
	if cfg.Endpoint == "" {
		return nil, sgerr.New(sgerr.CodeExtractorInputInvalid, "missing embeddings endpoint")
	}
	if cfg.Model == "" {
		return nil, sgerr.New(sgerr.CodeExtractorInputInvalid, "missing embedding model")
	}
	if cfg.Dimensions <= 0 {
		return nil, sgerr.Errorf(sgerr.CodeExtractorInputInvalid, "dimensions must be > 0, got %d", cfg.Dimensions)
	}

	opts := []option.RequestOption{
		option.WithBaseURL(cfg.Endpoint),
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}

	return &Extractor{client: openaisdk.NewClient(opts...), config: cfg}, nil
}

// ExtractImage reads the image at path and submits it as a data URI.
func (e *Extractor) ExtractImage(ctx context.Context, path string) ([]float32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, sgerr.Wrap(err, sgerr.CodeExtractorImageFailure, "reading image", sgerr.FieldPath(path))
	}

	uri := fmt.Sprintf("data:%s;base64,%s", mimeType(path), base64.StdEncoding.EncodeToString(data))

	vec, err := e.embed(ctx, uri)
	if err != nil {
		return nil, sgerr.Wrap(err, sgerr.CodeExtractorImageFailure, "extracting image features", sgerr.FieldPath(path))
	}
	return vec, nil
}

// ExtractText submits a text query for embedding.
func (e *Extractor) ExtractText(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, sgerr.New(sgerr.CodeExtractorInputInvalid, "query text must not be empty")
	}

	vec, err := e.embed(ctx, text)
	if err != nil {
		return nil, sgerr.Wrap(err, sgerr.CodeExtractorTextFailure, "extracting text features", sgerr.FieldQuery(text))
	}
	return vec, nil
}

// Dimensions returns the configured embedding dimensionality.
func (e *Extractor) Dimensions() int {
	return e.config.Dimensions
}

func (e *Extractor) embed(ctx context.Context, input string) ([]float32, error) {
	params := openaisdk.EmbeddingNewParams{
		Model:          e.config.Model,
		Input:          openaisdk.EmbeddingNewParamsInputUnion{OfArrayOfStrings: []string{input}},
		EncodingFormat: openaisdk.EmbeddingNewParamsEncodingFormatFloat,
	}

	resp, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(resp.Data) != 1 {
		return nil, fmt.Errorf("expected 1 embedding, got %d", len(resp.Data))
	}

	raw := resp.Data[0].Embedding
	if len(raw) != e.config.Dimensions {
		return nil, sgerr.Errorf(sgerr.CodeExtractorDimensionBad,
			"embedding dimension mismatch: expected %d, got %d", e.config.Dimensions, len(raw))
	}

	vec := make([]float32, len(raw))
	for i, x := range raw {
		vec[i] = float32(x)
	}
	return vec, nil
}

func mimeType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".bmp":
		return "image/bmp"
	default:
		return "application/octet-stream"
	}
}
