// Package pipeline provides the build → render pipeline for tconf.
//
// This package implements the complete pipeline used by the CLI: validate the
// options, build the decomposition in a fresh kernel model, then emit the
// requested artifacts. Every entry point goes through the same [Options] so
// defaults and validation live in one place.
//
// # Architecture
//
// The pipeline consists of two stages:
//
//  1. Build: Create the disk or sphere decomposition and summarize it
//  2. Render: Generate output in various formats (GEO, MSH, JSON, SVG, PNG, PDF, DOT)
//
// Both stages are cached. When the summary and every requested artifact are
// cached, no kernel model is created at all.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.Options{
//	    Geometry: pipeline.GeometryDisk,
//	    Band:     topology.Band{RInner: 1, A: 0.1, ROuter: 3},
//	    Formats:  []string{"geo", "svg"},
//	}
//	result, err := runner.Execute(ctx, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	geo := result.Artifacts["geo"]
package pipeline

import (
	"io"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/tconf/pkg/cache"
	"github.com/matzehuels/tconf/pkg/errors"
	"github.com/matzehuels/tconf/pkg/kernel"
	"github.com/matzehuels/tconf/pkg/topology"
	"github.com/matzehuels/tconf/pkg/topology/disk"
	"github.com/matzehuels/tconf/pkg/topology/sphere"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and Config Files
// =============================================================================

const (
	// DefaultHBand is the default mesh size inside the band.
	DefaultHBand = 0.1

	// DefaultHOuter is the default mesh size away from the band.
	DefaultHOuter = 0.5

	// DefaultSectors is the default number of angular sectors.
	DefaultSectors = 4

	// DefaultHalfAngle is the default sweep of a sphere in each direction.
	// It covers the full ball.
	DefaultHalfAngle = math.Pi / 2

	// DefaultBump is the default bump coefficient of radial band curves.
	DefaultBump = 1.0

	// DefaultPNGScale is the resolution multiplier for PNG previews.
	DefaultPNGScale = 2.0
)

// Geometry constants.
const (
	GeometryDisk   = disk.Geometry
	GeometrySphere = sphere.Geometry
)

// Format constants for output formats.
const (
	FormatGeo  = "geo"
	FormatMsh  = "msh"
	FormatJSON = "json"
	FormatSVG  = "svg"
	FormatPNG  = "png"
	FormatPDF  = "pdf"
	FormatDOT  = "dot"
)

// DefaultFormat is the artifact produced when no format is requested.
const DefaultFormat = FormatGeo

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatGeo:  true,
	FormatMsh:  true,
	FormatJSON: true,
	FormatSVG:  true,
	FormatPNG:  true,
	FormatPDF:  true,
	FormatDOT:  true,
}

// ValidGeometries is the set of supported geometries.
var ValidGeometries = map[string]bool{
	GeometryDisk:   true,
	GeometrySphere: true,
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for the pipeline.
type Options struct {
	// Model options
	Geometry string         `json:"geometry"`
	Band     topology.Band  `json:"band"`
	Sectors  int            `json:"sectors,omitempty"`
	Bump     float64        `json:"bump,omitempty"`
	Names    topology.Names `json:"names"`

	// HalfAngle is only used for spheres.
	HalfAngle float64 `json:"half_angle,omitempty"`

	// Render options
	Formats []string `json:"formats,omitempty"`
	MeshDim int      `json:"mesh_dim,omitempty"` // Mesh dimension for msh output (default: 2 for disk, 3 for sphere)
	Threads int      `json:"threads,omitempty"`  // Mesher threads, 0 lets gmsh decide
	Refresh bool     `json:"refresh,omitempty"`  // Ignore cached results

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `json:"-"`
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Summary describes the built model.
	Summary Summary

	// ModelHash is the content hash identifying the model options.
	ModelHash string

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Surfaces   int
	Volumes    int
	BuildTime  time.Duration
	RenderTime time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	ModelHit  bool // Whether the model summary came from cache
	RenderHit bool // Whether all artifacts came from cache
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidFormat,
			"invalid format: %q (must be one of: geo, msh, json, svg, png, pdf, dot)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// ValidateGeometry checks that a geometry is valid.
func ValidateGeometry(geometry string) error {
	if !ValidGeometries[geometry] {
		return errors.New(errors.ErrCodeInvalidInput,
			"invalid geometry: %q (must be one of: disk, sphere)", geometry)
	}
	return nil
}

// FormatFromPath returns the artifact format selected by the extension of
// path.
func FormatFromPath(path string) (string, error) {
	if err := errors.ValidateOutputPath(path); err != nil {
		return "", err
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if ext == "" {
		return "", errors.New(errors.ErrCodeInvalidFormat, "output %q has no extension", path)
	}
	if err := ValidateFormat(ext); err != nil {
		return "", err
	}
	return ext, nil
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks all fields and applies defaults.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	o.SetDefaults()

	if err := ValidateGeometry(o.Geometry); err != nil {
		return err
	}
	if err := o.Band.Validate(); err != nil {
		return err
	}
	if err := errors.ValidateSectors(o.Sectors, o.IsSphere()); err != nil {
		return err
	}
	if err := errors.ValidateBump(o.Bump); err != nil {
		return err
	}
	if o.IsSphere() {
		if err := errors.ValidateHalfAngle(o.HalfAngle); err != nil {
			return err
		}
	}
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	if o.MeshDim < 1 || o.MeshDim > o.maxMeshDim() {
		return errors.New(errors.ErrCodeInvalidInput,
			"mesh dimension for %s must be between 1 and %d, got %d", o.Geometry, o.maxMeshDim(), o.MeshDim)
	}
	if o.Threads < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "threads must not be negative, got %d", o.Threads)
	}

	o.validated = true
	return nil
}

// SetDefaults fills zero values with defaults. It never overrides a value
// that was set explicitly.
func (o *Options) SetDefaults() {
	if o.Geometry == "" {
		o.Geometry = GeometryDisk
	}
	if o.Band.HBand == 0 {
		o.Band.HBand = DefaultHBand
	}
	if o.Band.HOuter == 0 {
		o.Band.HOuter = DefaultHOuter
	}
	if o.Sectors == 0 {
		o.Sectors = DefaultSectors
	}
	if o.Bump == 0 {
		o.Bump = DefaultBump
	}
	if o.IsSphere() && o.HalfAngle == 0 {
		o.HalfAngle = DefaultHalfAngle
	}
	if len(o.Formats) == 0 {
		o.Formats = []string{DefaultFormat}
	}
	if o.MeshDim == 0 {
		o.MeshDim = o.maxMeshDim()
	}
	o.Names = o.Names.WithDefaults()
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// IsSphere returns true if the options describe a revolved model.
func (o *Options) IsSphere() bool {
	return o.Geometry == GeometrySphere
}

func (o *Options) maxMeshDim() int {
	if o.IsSphere() {
		return int(kernel.DimVolume)
	}
	return int(kernel.DimSurface)
}

// DiskOptions returns the builder options of a disk model.
func (o *Options) DiskOptions() disk.Options {
	return disk.Options{
		Band:    o.Band,
		Sectors: o.Sectors,
		Bump:    o.Bump,
		Names:   o.Names,
		Logger:  o.Logger,
	}
}

// SphereOptions returns the builder options of a sphere model.
func (o *Options) SphereOptions() sphere.Options {
	return sphere.Options{
		Band:      o.Band,
		Sectors:   o.Sectors,
		HalfAngle: o.HalfAngle,
		Bump:      o.Bump,
		Names:     o.Names,
		Logger:    o.Logger,
	}
}

// ModelKeyOpts returns cache key options for the model.
func (o *Options) ModelKeyOpts() cache.ModelKeyOpts {
	halfAngle := 0.0
	if o.IsSphere() {
		halfAngle = o.HalfAngle
	}
	return cache.ModelKeyOpts{
		RInner:    o.Band.RInner,
		A:         o.Band.A,
		ROuter:    o.Band.ROuter,
		HBand:     o.Band.HBand,
		HOuter:    o.Band.HOuter,
		Sectors:   o.Sectors,
		HalfAngle: halfAngle,
		Bump:      o.Bump,
		Names:     []string{o.Names.InnerMaterial, o.Names.OuterMaterial, o.Names.Interface, o.Names.OuterBoundary},
	}
}

// ArtifactKeyOpts returns cache key options for artifact rendering. Mesh
// settings only distinguish msh artifacts.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	opts := cache.ArtifactKeyOpts{Format: format}
	if format == FormatMsh {
		opts.Dim = o.MeshDim
		opts.Threads = o.Threads
	}
	return opts
}
