// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SmartGallery Contributors

package gallery_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/smartgallery-dev/smartgallery/internal/gallery"
	"github.com/smartgallery-dev/smartgallery/internal/store/memory"
	sgerr "github.com/smartgallery-dev/smartgallery/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeExtractor derives embeddings from file and query names so tests
// can steer similarity without a model. Files whose content contains
// "corrupt" fail extraction.
type fakeExtractor struct {
	vectors map[string][]float32
}

func (f *fakeExtractor) ExtractImage(_ context.Context, path string) ([]float32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, sgerr.Wrap(err, sgerr.CodeExtractorImageFailure, "reading image", sgerr.FieldPath(path))
	}
	if strings.Contains(string(data), "corrupt") {
		return nil, sgerr.New(sgerr.CodeExtractorImageFailure, "cannot decode image", sgerr.FieldPath(path))
	}
	if v, ok := f.vectors[filepath.Base(path)]; ok {
		return v, nil
	}
	return []float32{1, 0, 0}, nil
}

func (f *fakeExtractor) ExtractText(_ context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, sgerr.New(sgerr.CodeExtractorInputInvalid, "empty query")
	}
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return []float32{1, 0, 0}, nil
}

func (f *fakeExtractor) Dimensions() int { return 3 }

func newService(vectors map[string][]float32) (*gallery.Service, *memory.Registry) {
	reg := memory.NewRegistry(3)
	ext := &fakeExtractor{vectors: vectors}
	return gallery.NewService(reg, ext, gallery.Config{IngestParallelism: 2}), reg
}

func writeImage(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestAddImageThenSearchReturnsIt(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(map[string][]float32{
		"cat.png":          {1, 0, 0},
		"a photo of a cat": {1, 0, 0},
		"dog.png":          {0, 1, 0},
	})

	dir := t.TempDir()
	catPath := writeImage(t, dir, "cat.png", "img")
	dogPath := writeImage(t, dir, "dog.png", "img")

	id, err := svc.AddImage(ctx, "alice", catPath)
	require.NoError(t, err)
	assert.Equal(t, filepath.Clean(catPath), id)

	_, err = svc.AddImage(ctx, "alice", dogPath)
	require.NoError(t, err)

	result, err := svc.Search(ctx, "alice", "a photo of a cat")
	require.NoError(t, err)
	assert.True(t, result.Found)
	assert.Equal(t, filepath.Clean(catPath), result.Identifier)
	assert.InDelta(t, 1.0, result.Score, 1e-6)
}

func TestAddImage_MissingSource(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(nil)

	_, err := svc.AddImage(ctx, "alice", filepath.Join(t.TempDir(), "nope.png"))
	require.Error(t, err)
	assert.True(t, sgerr.HasCode(err, sgerr.CodeGallerySourceNotFound))
}

func TestAddImage_DirectoryIsNotAnImage(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(nil)

	_, err := svc.AddImage(ctx, "alice", t.TempDir())
	require.Error(t, err)
	assert.True(t, sgerr.HasCode(err, sgerr.CodeGallerySourceNotFound))
}

func TestAddImage_ExtractionFailureLeavesNoState(t *testing.T) {
	ctx := context.Background()
	svc, reg := newService(nil)

	path := writeImage(t, t.TempDir(), "broken.png", "corrupt bytes")

	_, err := svc.AddImage(ctx, "alice", path)
	require.Error(t, err)
	assert.True(t, sgerr.HasCode(err, sgerr.CodeExtractorImageFailure))

	// The failed extraction must not have created the tenant's collection.
	_, err = reg.Get(ctx, "alice")
	require.Error(t, err)
	assert.True(t, sgerr.HasCode(err, sgerr.CodeRegistryTenantNotFound))
}

func TestSearch_TenantNotInitialized(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(nil)

	_, err := svc.Search(ctx, "nobody", "anything")
	require.Error(t, err)
	assert.True(t, sgerr.HasCode(err, sgerr.CodeRegistryTenantNotFound))
}

func TestSearch_EmptyCollectionIsNoMatchNotError(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(nil)

	require.NoError(t, svc.InitTenant(ctx, "alice"))

	result, err := svc.Search(ctx, "alice", "anything")
	require.NoError(t, err)
	assert.False(t, result.Found)
	assert.Empty(t, result.Identifier)
}

func TestSearch_TenantIsolation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(map[string][]float32{
		"cat.png": {1, 0, 0},
		"cat":     {1, 0, 0},
	})

	aliceDir := t.TempDir()
	alicePath := writeImage(t, aliceDir, "cat.png", "img")
	_, err := svc.AddImage(ctx, "alice", alicePath)
	require.NoError(t, err)

	require.NoError(t, svc.InitTenant(ctx, "bob"))

	// Bob's search never sees Alice's records.
	result, err := svc.Search(ctx, "bob", "cat")
	require.NoError(t, err)
	assert.False(t, result.Found)

	result, err = svc.Search(ctx, "alice", "cat")
	require.NoError(t, err)
	assert.True(t, result.Found)
	assert.Equal(t, filepath.Clean(alicePath), result.Identifier)
}

func TestAddFolder_BestEffort(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(nil)

	dir := t.TempDir()
	writeImage(t, dir, "a.png", "img")
	writeImage(t, dir, "b.JPG", "img") // extension matching is case-insensitive
	writeImage(t, dir, "c.jpeg", "img")
	badPath := writeImage(t, dir, "broken.gif", "corrupt bytes")
	writeImage(t, dir, "notes.txt", "not an image") // skipped entirely

	summary, err := svc.AddFolder(ctx, "alice", dir)
	require.NoError(t, err)
	assert.Equal(t, 4, summary.Attempted)
	assert.Equal(t, 3, summary.Succeeded)
	require.Len(t, summary.Failures, 1)
	assert.Equal(t, badPath, summary.Failures[0].Path)
	assert.Contains(t, summary.Failures[0].Reason, "cannot decode image")
}

func TestAddFolder_MissingFolder(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(nil)

	_, err := svc.AddFolder(ctx, "alice", filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.True(t, sgerr.HasCode(err, sgerr.CodeGallerySourceNotFound))
}

func TestAddFolder_FileIsNotAFolder(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(nil)

	path := writeImage(t, t.TempDir(), "cat.png", "img")

	_, err := svc.AddFolder(ctx, "alice", path)
	require.Error(t, err)
	assert.True(t, sgerr.HasCode(err, sgerr.CodeGallerySourceNotFound))
}

func TestReAddImageOverwrites(t *testing.T) {
	ctx := context.Background()
	vectors := map[string][]float32{
		"cat.png": {1, 0, 0},
		"new":     {0, 1, 0},
		"old":     {1, 0, 0},
	}
	svc, reg := newService(vectors)

	dir := t.TempDir()
	path := writeImage(t, dir, "cat.png", "img")

	_, err := svc.AddImage(ctx, "alice", path)
	require.NoError(t, err)

	// Re-index the same path after the image changed.
	vectors["cat.png"] = []float32{0, 1, 0}
	_, err = svc.AddImage(ctx, "alice", path)
	require.NoError(t, err)

	coll, err := reg.Get(ctx, "alice")
	require.NoError(t, err)
	count, err := coll.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	result, err := svc.Search(ctx, "alice", "new")
	require.NoError(t, err)
	assert.True(t, result.Found)
	assert.InDelta(t, 1.0, result.Score, 1e-6)
}

func TestInitTenant_RejectsEmpty(t *testing.T) {
	svc, _ := newService(nil)
	err := svc.InitTenant(context.Background(), "")
	require.Error(t, err)
	assert.True(t, sgerr.IsInvalidInput(err))
}
