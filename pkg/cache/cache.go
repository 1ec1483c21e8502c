// Package cache stores built models and rendered artifacts.
//
// Building a model is deterministic in its options, so the pipeline keys
// every result by a hash of the options that produced it. Three backends
// implement [Cache]: [FileCache] for the CLI, [RedisCache] for a cache shared
// between machines, and [NullCache] when caching is disabled.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// Cache TTLs.
const (
	// TTLModel is the lifetime of a cached model summary.
	TTLModel = 7 * 24 * time.Hour
	// TTLArtifact is the lifetime of a cached artifact.
	TTLArtifact = 30 * 24 * time.Hour
)

// Cache is a byte store with per-entry expiration.
type Cache interface {
	// Get returns the value and true on a hit, or false on a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data. A zero ttl never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases resources held by the cache.
	Close() error
}

// Clearer is implemented by caches that can drop all of their entries.
type Clearer interface {
	Clear(ctx context.Context) error
}

// =============================================================================
// Keys
// =============================================================================

// Keyer derives cache keys.
type Keyer interface {
	// ModelKey returns the key of the model built for geometry with opts.
	ModelKey(geometry string, opts ModelKeyOpts) (string, error)

	// ArtifactKey returns the key of an artifact rendered from a model.
	ArtifactKey(modelHash string, opts ArtifactKeyOpts) (string, error)
}

// ModelKeyOpts are the inputs that determine a model.
type ModelKeyOpts struct {
	RInner    float64  `json:"r_inner"`
	A         float64  `json:"a"`
	ROuter    float64  `json:"r_outer"`
	HBand     float64  `json:"h_band"`
	HOuter    float64  `json:"h_outer"`
	Sectors   int      `json:"sectors"`
	HalfAngle float64  `json:"half_angle,omitempty"`
	Bump      float64  `json:"bump"`
	Names     []string `json:"names"`
}

// ArtifactKeyOpts are the inputs that determine an artifact.
type ArtifactKeyOpts struct {
	Format  string `json:"format"`
	Dim     int    `json:"dim,omitempty"`
	Threads int    `json:"threads,omitempty"`
}

// DefaultKeyer hashes its inputs into fixed-length keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// ModelKey implements Keyer. It fails for options that have no JSON form,
// such as non-finite radii.
func (k DefaultKeyer) ModelKey(geometry string, opts ModelKeyOpts) (string, error) {
	return k.key("model:"+geometry, opts)
}

// ArtifactKey implements Keyer.
func (k DefaultKeyer) ArtifactKey(modelHash string, opts ArtifactKeyOpts) (string, error) {
	return k.key("artifact", modelHash, opts)
}

// key renders prefix:sha256(json(parts)).
func (DefaultKeyer) key(prefix string, parts ...any) (string, error) {
	data, err := json.Marshal(parts)
	if err != nil {
		return "", fmt.Errorf("%s key: %w", prefix, err)
	}
	return prefix + ":" + Hash(data), nil
}

// Hash returns the hex SHA-256 of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
