// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SmartGallery Contributors

package extractor

import "context"

// Extractor produces embedding vectors for images and text queries.
// Both entry points must return vectors of the same fixed dimensionality
// so image and text embeddings are comparable. Implementations must be
// safe for concurrent use.
type Extractor interface {
	// ExtractImage returns the embedding for the image file at path.
	ExtractImage(ctx context.Context, path string) ([]float32, error)

	// ExtractText returns the embedding for a text query.
	ExtractText(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding dimensionality.
	Dimensions() int
}
