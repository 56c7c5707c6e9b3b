// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SmartGallery Contributors

package store

import (
	"sync"

	sgerr "github.com/smartgallery-dev/smartgallery/pkg/errors"
)

// Options configures a storage backend.
type Options struct {
	// Path is the backend's on-disk location. Ignored by the memory backend.
	Path string
	// Dimensions is the embedding dimensionality shared by all collections.
	// The memory backend treats 0 as "establish on first insert".
	Dimensions int
}

// Factory creates a Registry for a named backend.
type Factory func(opts Options) (Registry, error)

var (
	factories   = map[string]Factory{}
	factoriesMu sync.RWMutex
)

// RegisterBackend registers a factory for a named storage backend.
// Backend packages call this from init(). This function is goroutine-safe.
func RegisterBackend(name string, factory Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = factory
}

// NewRegistry creates the Registry for the configured backend name.
// An empty name defaults to "memory".
func NewRegistry(backend string, opts Options) (Registry, error) {
	if backend == "" {
		backend = "memory"
	}

	factoriesMu.RLock()
	factory, ok := factories[backend]
	factoriesMu.RUnlock()
	if !ok {
		return nil, sgerr.Errorf(sgerr.CodeStoreBackendUnsupported, "unsupported storage backend: %q", backend)
	}

	return factory(opts)
}
