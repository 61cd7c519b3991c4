// Package cache stores the expensive intermediate results of layout
// generation: configuration spaces, generated map layouts and rendered
// artifacts.
//
// Backends:
//   - [FileCache]: one JSON file per entry, for the CLI
//   - [RedisCache]: shared cache for server deployments
//   - [NullCache]: caching disabled
//
// Keys come from a [Keyer] so every backend agrees on them.
package cache

import (
	"context"
	"time"
)

// Default TTLs per entry kind. Spaces depend only on the description, so
// they live longest.
const (
	TTLSpaces   = 30 * 24 * time.Hour
	TTLLayout   = 7 * 24 * time.Hour
	TTLArtifact = 7 * 24 * time.Hour
)

// Key types reported to observability hooks.
const (
	KeyTypeSpaces   = "spaces"
	KeyTypeLayout   = "layout"
	KeyTypeArtifact = "artifact"
)

// Cache is a byte-oriented key/value cache with expiry.
type Cache interface {
	// Get returns the data for key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases the backend.
	Close() error
}
