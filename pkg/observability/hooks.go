// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about model builds, mesh generation, and cache operations.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// This approach:
//   - Avoids import cycles (hooks are registered by main, not by libraries)
//   - Keeps the core library dependency-free from observability frameworks
//   - Allows different backends (OpenTelemetry, Prometheus, DataDog, etc.)
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetBuildHooks(&myBuildHooks{})
//	    observability.SetCacheHooks(&myCacheHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Build().OnBuildStart(ctx, "disk", sectors)
//	// ... build sectors ...
//	observability.Build().OnBuildComplete(ctx, "disk", surfaces, volumes, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Build Hooks
// =============================================================================

// BuildHooks receives events from the topology builders.
type BuildHooks interface {
	// OnBuildStart fires before the first kernel call of a build.
	OnBuildStart(ctx context.Context, geometry string, sectors int)

	// OnSectorBuilt fires after all patches of one sector exist.
	OnSectorBuilt(ctx context.Context, geometry string, sector, patches int)

	// OnBuildComplete fires once the model is synchronized or the build failed.
	OnBuildComplete(ctx context.Context, geometry string, surfaces, volumes int, duration time.Duration, err error)
}

// =============================================================================
// Mesh Hooks
// =============================================================================

// MeshHooks receives events from mesh generation.
type MeshHooks interface {
	// OnMeshStart records the start of a mesher run.
	OnMeshStart(ctx context.Context, dim int, path string)

	// OnMeshComplete records the end of a mesher run.
	OnMeshComplete(ctx context.Context, dim int, path string, duration time.Duration, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopBuildHooks is a no-op implementation of BuildHooks.
type NoopBuildHooks struct{}

func (NoopBuildHooks) OnBuildStart(context.Context, string, int)       {}
func (NoopBuildHooks) OnSectorBuilt(context.Context, string, int, int) {}
func (NoopBuildHooks) OnBuildComplete(context.Context, string, int, int, time.Duration, error) {
}

// NoopMeshHooks is a no-op implementation of MeshHooks.
type NoopMeshHooks struct{}

func (NoopMeshHooks) OnMeshStart(context.Context, int, string)                          {}
func (NoopMeshHooks) OnMeshComplete(context.Context, int, string, time.Duration, error) {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	buildHooks BuildHooks = NoopBuildHooks{}
	meshHooks  MeshHooks  = NoopMeshHooks{}
	cacheHooks CacheHooks = NoopCacheHooks{}
	hooksMu    sync.RWMutex
)

// SetBuildHooks registers custom build hooks.
// This should be called once at application startup before any build.
func SetBuildHooks(h BuildHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		buildHooks = h
	}
}

// SetMeshHooks registers custom mesh hooks.
// This should be called once at application startup before any mesher run.
func SetMeshHooks(h MeshHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		meshHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// Build returns the registered build hooks.
func Build() BuildHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return buildHooks
}

// Mesh returns the registered mesh hooks.
func Mesh() MeshHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return meshHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	buildHooks = NoopBuildHooks{}
	meshHooks = NoopMeshHooks{}
	cacheHooks = NoopCacheHooks{}
}
