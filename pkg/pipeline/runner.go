package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/tconf/pkg/cache"
	"github.com/matzehuels/tconf/pkg/kernel"
	"github.com/matzehuels/tconf/pkg/kernel/gmsh"
	"github.com/matzehuels/tconf/pkg/kernel/memory"
	"github.com/matzehuels/tconf/pkg/observability"
)

// Cache key types reported to cache hooks.
const (
	keyTypeModel    = "model"
	keyTypeArtifact = "artifact"
)

// Runner encapsulates pipeline execution with caching.
//
// The Runner is stateless except for the cache, mesher and logger - it
// doesn't store pipeline results. Runs are serialized by the process-wide
// kernel model: a concurrent Execute fails with [kernel.ErrBusy].
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger

	// Mesher produces msh artifacts. If nil, gmsh on PATH is used with
	// Options.Threads.
	Mesher kernel.Mesher
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the complete build → render pipeline with caching.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	modelKey, err := r.Keyer.ModelKey(opts.Geometry, opts.ModelKeyOpts())
	if err != nil {
		return nil, fmt.Errorf("cache key: %w", err)
	}
	result := &Result{
		ModelHash: cache.Hash([]byte(modelKey)),
		Artifacts: make(map[string][]byte),
	}

	keys, err := r.artifactKeys(result.ModelHash, opts)
	if err != nil {
		return nil, fmt.Errorf("cache key: %w", err)
	}
	// Everything cached: no kernel model needed.
	if summary, hit := r.cachedSummary(ctx, modelKey, opts); hit {
		if artifacts, ok := r.cachedArtifacts(ctx, keys); ok {
			result.Summary = summary
			result.Artifacts = artifacts
			result.CacheInfo = CacheInfo{ModelHit: true, RenderHit: true}
			result.Stats.Surfaces = summary.Counts.Surfaces
			result.Stats.Volumes = summary.Counts.Volumes
			r.Logger.Info("served from cache", "model", summary.ModelID, "formats", opts.Formats)
			return result, nil
		}
		result.CacheInfo.ModelHit = true
	}

	m, err := memory.Initialize(opts.Geometry, memory.WithLogger(opts.Logger), memory.WithMesher(r.mesher(opts)))
	if err != nil {
		return nil, fmt.Errorf("initialize kernel: %w", err)
	}
	defer m.Finalize()

	// Stage 1: Build
	buildStart := time.Now()
	built, err := Build(ctx, m, opts)
	if err != nil {
		return nil, fmt.Errorf("build: %w", err)
	}
	result.Summary = summarize(built, result.ModelHash)
	result.Stats.BuildTime = time.Since(buildStart)
	result.Stats.Surfaces = result.Summary.Counts.Surfaces
	result.Stats.Volumes = result.Summary.Counts.Volumes

	if data, err := MarshalSummary(result.Summary); err == nil {
		r.set(ctx, keyTypeModel, modelKey, data, cache.TTLModel)
	}

	r.Logger.Info("built model",
		"geometry", opts.Geometry,
		"sectors", len(built.Sectors),
		"surfaces", result.Stats.Surfaces,
		"volumes", result.Stats.Volumes,
		"duration", result.Stats.BuildTime)

	// Stage 2: Render
	renderStart := time.Now()
	artifacts, renderHit, err := r.RenderWithCacheInfo(ctx, built, result.Summary, result.ModelHash, opts)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	result.Artifacts = artifacts
	result.Stats.RenderTime = time.Since(renderStart)
	result.CacheInfo.RenderHit = renderHit

	r.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// RenderWithCacheInfo generates artifacts with caching and returns cache hit info.
// Formats found in the cache are not rendered again.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, b *Built, summary Summary, modelHash string, opts Options) (map[string][]byte, bool, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, false, err
	}

	keys, err := r.artifactKeys(modelHash, opts)
	if err != nil {
		return nil, false, fmt.Errorf("cache key: %w", err)
	}

	allCached := true
	artifacts := make(map[string][]byte)

	for _, format := range opts.Formats {
		cacheKey := keys[format]
		if !opts.Refresh {
			if data, hit := r.get(ctx, keyTypeArtifact, cacheKey); hit {
				artifacts[format] = data
				continue
			}
		}
		allCached = false

		data, err := RenderFormat(ctx, b, summary, format, opts)
		if err != nil {
			return nil, false, err
		}
		artifacts[format] = data

		// Cache each format
		r.set(ctx, keyTypeArtifact, cacheKey, data, cache.TTLArtifact)
	}

	return artifacts, allCached, nil
}

// cachedSummary returns the cached model summary, if any.
func (r *Runner) cachedSummary(ctx context.Context, key string, opts Options) (Summary, bool) {
	if opts.Refresh {
		return Summary{}, false
	}
	data, hit := r.get(ctx, keyTypeModel, key)
	if !hit {
		return Summary{}, false
	}
	s, err := UnmarshalSummary(data)
	if err != nil {
		// If deserialization fails, fall through to rebuild
		r.Logger.Debug("discarding cached summary", "error", err)
		return Summary{}, false
	}
	return s, true
}

// artifactKeys returns the cache key of every requested format.
func (r *Runner) artifactKeys(modelHash string, opts Options) (map[string]string, error) {
	keys := make(map[string]string, len(opts.Formats))
	for _, format := range opts.Formats {
		key, err := r.Keyer.ArtifactKey(modelHash, opts.ArtifactKeyOpts(format))
		if err != nil {
			return nil, err
		}
		keys[format] = key
	}
	return keys, nil
}

// cachedArtifacts returns every requested artifact, or false if any is
// missing.
func (r *Runner) cachedArtifacts(ctx context.Context, keys map[string]string) (map[string][]byte, bool) {
	artifacts := make(map[string][]byte)
	for format, key := range keys {
		data, hit := r.get(ctx, keyTypeArtifact, key)
		if !hit {
			return nil, false
		}
		artifacts[format] = data
	}
	return artifacts, true
}

// get reads key and reports the outcome to the cache hooks. Cache errors
// count as misses.
func (r *Runner) get(ctx context.Context, keyType, key string) ([]byte, bool) {
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil {
		r.Logger.Debug("cache read failed", "key", key, "error", err)
	}
	if err != nil || !hit {
		observability.Cache().OnCacheMiss(ctx, keyType)
		return nil, false
	}
	observability.Cache().OnCacheHit(ctx, keyType)
	return data, true
}

// set writes key. A failed write only costs a later rebuild.
func (r *Runner) set(ctx context.Context, keyType, key string, data []byte, ttl time.Duration) {
	if err := r.Cache.Set(ctx, key, data, ttl); err != nil {
		r.Logger.Debug("cache write failed", "key", key, "error", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, keyType, len(data))
}

func (r *Runner) mesher(opts Options) kernel.Mesher {
	if r.Mesher != nil {
		return r.Mesher
	}
	return &gmsh.Mesher{Threads: opts.Threads}
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
