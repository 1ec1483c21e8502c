package cache

import (
	"context"
	"time"
)

// NullCache stores nothing. It backs --no-cache runs, where every lookup
// misses and the pipeline rebuilds the model.
type NullCache struct{}

// NewNullCache returns a cache that always misses.
func NewNullCache() Cache { return &NullCache{} }

// Get reports a miss.
func (*NullCache) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

// Set discards data.
func (*NullCache) Set(context.Context, string, []byte, time.Duration) error { return nil }

// Delete is a no-op.
func (*NullCache) Delete(context.Context, string) error { return nil }

// Clear is a no-op; there is nothing to drop.
func (*NullCache) Clear(context.Context) error { return nil }

// Close is a no-op.
func (*NullCache) Close() error { return nil }

var (
	_ Cache   = (*NullCache)(nil)
	_ Clearer = (*NullCache)(nil)
)
