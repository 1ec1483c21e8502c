// Package sphere builds the 3D banded ball by revolving the disk
// cross-section.
//
// The disk is built in the z=0 plane and every patch is revolved about the
// x axis by +HalfAngle and -HalfAngle. With the default half-angle of π/2
// the two sweeps of the upper and lower half disk cover the ball exactly
// once, and coincident faces are shared by the kernel. The sector count must
// be even so that the x axis lies on sector boundaries; a sector straddling
// the axis would sweep into a pinched volume.
//
// Band patches stay structured through the sweep: every top and lateral
// surface swept from a band patch is classified and constrained. Triangular
// laterals collapse onto the axis, so the points of the cross-section that
// lie on the axis are tracked as apexes after the disk center.
package sphere

import (
	"context"
	"io"
	"math"
	"time"

	"github.com/charmbracelet/log"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/matzehuels/tconf/pkg/errors"
	"github.com/matzehuels/tconf/pkg/kernel"
	"github.com/matzehuels/tconf/pkg/observability"
	"github.com/matzehuels/tconf/pkg/topology"
	"github.com/matzehuels/tconf/pkg/topology/disk"
	"github.com/matzehuels/tconf/pkg/transfinite"
)

// Geometry is the name reported to build hooks.
const Geometry = "sphere"

// DefaultHalfAngle sweeps the full ball.
const DefaultHalfAngle = math.Pi / 2

// axisTolerance decides whether a point lies on the revolution axis.
const axisTolerance = 1e-9

// Options configures Build.
type Options struct {
	Band    topology.Band
	Sectors int
	// HalfAngle is the sweep in each direction. Zero means DefaultHalfAngle.
	HalfAngle float64
	Bump      float64
	Names     topology.Names
	Logger    *log.Logger
}

// Validate checks the options without touching any kernel.
func (o Options) Validate() error {
	if err := o.Band.Validate(); err != nil {
		return err
	}
	if err := errors.ValidateSectors(o.Sectors, true); err != nil {
		return err
	}
	if o.HalfAngle != 0 {
		if err := errors.ValidateHalfAngle(o.HalfAngle); err != nil {
			return err
		}
	}
	if o.Bump != 0 {
		return errors.ValidateBump(o.Bump)
	}
	return nil
}

// Result describes a built sphere.
type Result struct {
	Disk    *disk.Result
	Sweep   Sweep
	Wedges  []Wedges
	Regions topology.Regions
}

// Volumes returns the number of distinct volumes.
func (r *Result) Volumes() int {
	return len(r.Regions.Inner) + len(r.Regions.Outer)
}

// Build creates the 2D cross-section, sweeps it into wedges, registers the
// volume and boundary groups and leaves the kernel synchronized.
func Build(ctx context.Context, k kernel.Kernel, opts Options) (res *Result, err error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.HalfAngle == 0 {
		opts.HalfAngle = DefaultHalfAngle
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	start := time.Now()
	hooks := observability.Build()
	hooks.OnBuildStart(ctx, Geometry, opts.Sectors)
	defer func() {
		var surfaces, volumes int
		if res != nil {
			surfaces = len(res.Regions.Interface) + len(res.Regions.OuterBoundary)
			volumes = res.Volumes()
		}
		hooks.OnBuildComplete(ctx, Geometry, surfaces, volumes, time.Since(start), err)
	}()

	section, err := disk.Build(ctx, k, disk.Options{
		Band:       opts.Band,
		Sectors:    opts.Sectors,
		Bump:       opts.Bump,
		SkipGroups: true,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}

	apexes, err := axisPoints(k, section)
	if err != nil {
		return nil, err
	}
	res = &Result{
		Disk: section,
		Sweep: Sweep{
			Axis:      XAxis,
			HalfAngle: opts.HalfAngle,
			Divisions: section.Divisions,
			Resolver:  transfinite.NewResolver(apexes...),
		},
	}

	b := NewBuilder(k, res.Sweep, logger)
	parts := make([]topology.Regions, 0, len(section.Sectors))
	for _, sec := range section.Sectors {
		ws, err := b.CreateWedgeVolumes(ctx, sec.Patches)
		if err != nil {
			return nil, err
		}
		part := topology.Regions{
			Dim:   kernel.DimVolume,
			Inner: ids(ws.Inner()),
			Outer: ids(ws.Outer()),
		}
		if part.Interface, err = sweptFrom(k, ws.InnerBand, sec.Interface); err != nil {
			return nil, err
		}
		if part.OuterBoundary, err = sweptFrom(k, ws.Outermost(), sec.Boundary); err != nil {
			return nil, err
		}
		res.Wedges = append(res.Wedges, ws)
		parts = append(parts, part)
		hooks.OnSectorBuilt(ctx, Geometry, sec.Index, len(ws.All()))
	}

	res.Regions = topology.MergeRegions(kernel.DimVolume, parts...)
	if err := res.Regions.Submit(k, opts.Names); err != nil {
		return nil, errors.Wrap(errors.ErrCodeKernelState, err, "register sphere regions")
	}
	if err := k.Synchronize(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeKernelState, err, "synchronize sphere")
	}

	logger.Info("built sphere",
		"sectors", opts.Sectors, "half_angle", opts.HalfAngle, "volumes", res.Volumes(),
		"interface", len(res.Regions.Interface), "boundary", len(res.Regions.OuterBoundary))
	return res, nil
}

// axisPoints returns the disk center followed by the ray points lying on
// the x axis.
func axisPoints(k kernel.Kernel, d *disk.Result) ([]kernel.PointID, error) {
	out := []kernel.PointID{d.Center}
	for _, p := range d.RayPoints() {
		box, err := k.BoundingBox(p.Entity())
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeKernelState, err, "locate point %d", p)
		}
		if onAxis(box.Min) {
			out = append(out, p)
		}
	}
	return out, nil
}

func onAxis(p r3.Vec) bool {
	tol := axisTolerance * math.Max(1, math.Abs(p.X))
	return math.Abs(p.Y) <= tol && math.Abs(p.Z) <= tol
}

// sweptFrom returns the laterals of w that were swept by curve c.
func sweptFrom(q kernel.Querier, w *Wedge, c kernel.CurveID) ([]int, error) {
	if w == nil {
		return nil, nil
	}
	var out []int
	for _, s := range w.Laterals() {
		bnd, err := q.Boundary(s.Entity())
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeKernelState, err, "boundary of surface %d", s)
		}
		for _, e := range bnd {
			if e.Curve().Abs() == c.Abs() {
				out = append(out, int(s))
				break
			}
		}
	}
	return out, nil
}

func ids(vs []kernel.VolumeID) []int {
	out := make([]int, len(vs))
	for i, v := range vs {
		out[i] = int(v)
	}
	return out
}
