// Package disk builds the 2D banded disk decomposition.
//
// The disk is cut into n sectors by rays at θk = 2πk/n. Every ray carries the
// points at the band's inner edge, the interface radius, the band's outer
// edge and the domain radius, plus the radial lines between them. Rays are
// shared by the two sectors they separate, so adjacent patches reference the
// same radial curve with opposite orientation and the decomposition is
// conforming.
//
// Inside a sector up to four patches are built, from the center outwards:
//
//	inner bulk   triangle fan around the center (only if RInner-A > 0)
//	inner band   quadrilateral, or a pie slice touching the center
//	outer band   quadrilateral sharing the interface arc with the inner band
//	outer bulk   quadrilateral (only if RInner+A < ROuter)
//
// The two band patches are constrained as transfinite surfaces; the bulk
// patches are left for unstructured meshing.
package disk

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
	"github.com/matzehuels/tconf/pkg/transfinite"
)

// Geometry is the name reported to build hooks.
const Geometry = "disk"

// Options configures Build.
type Options struct {
	Band    topology.Band
	Sectors int
	// Bump is the bump coefficient of radial band curves. Zero means 1.
	Bump  float64
	Names topology.Names
	// SkipGroups leaves physical groups to the caller.
	SkipGroups bool
	Logger     *log.Logger
}

// Validate checks the options without touching any kernel.
func (o Options) Validate() error {
	if err := o.Band.Validate(); err != nil {
		return err
	}
	if err := errors.ValidateSectors(o.Sectors, false); err != nil {
		return err
	}
	if o.Bump != 0 {
		return errors.ValidateBump(o.Bump)
	}
	return nil
}

// Result describes a built disk.
type Result struct {
	Center    kernel.PointID
	Sectors   []topology.Sector
	Regions   topology.Regions
	Divisions transfinite.Divisions
	// Resolver is the corner resolver used for band patches.
	Resolver transfinite.Resolver
}

// Patches returns every patch, sector by sector.
func (r *Result) Patches() []topology.Patch {
	var out []topology.Patch
	for _, s := range r.Sectors {
		out = append(out, s.Patches...)
	}
	return out
}

// RayPoints returns the distinct points on the ray at Theta0 of each sector,
// center excluded.
func (r *Result) RayPoints() []kernel.PointID {
	var out []kernel.PointID
	for _, s := range r.Sectors {
		p := s.Points
		for _, id := range []kernel.PointID{p.Inner[0], p.Mid[0], p.Outer[0], p.Boundary[0]} {
			if id == r.Center || (len(out) > 0 && out[len(out)-1] == id) {
				continue
			}
			out = append(out, id)
		}
	}
	return out
}

// ray is the shared geometry on one sector boundary.
type ray struct {
	theta                    float64
	inner, mid, outer, bound kernel.PointID
	// Lines run outwards; absent regions leave zero.
	innerBulk, innerBand, outerBand, outerBulk kernel.CurveID
}

type builder struct {
	k       kernel.Kernel
	band    topology.Band
	planner transfinite.Planner
	logger  *log.Logger
	center  kernel.PointID
}

// Build creates the disk decomposition in the z=0 plane, constrains the band
// patches, registers physical groups unless SkipGroups is set, and leaves
// the kernel synchronized. Invalid options are reported before any kernel
// call.
func Build(ctx context.Context, k kernel.Kernel, opts Options) (res *Result, err error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.Bump == 0 {
		opts.Bump = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	start := time.Now()
	hooks := observability.Build()
	hooks.OnBuildStart(ctx, Geometry, opts.Sectors)
	defer func() {
		surfaces := 0
		if res != nil {
			surfaces = len(res.Patches())
		}
		hooks.OnBuildComplete(ctx, Geometry, surfaces, 0, time.Since(start), err)
	}()

	planner := transfinite.NewPlanner(opts.Band)
	planner.Bump = opts.Bump
	b := &builder{k: k, band: opts.Band, planner: planner, logger: logger}

	if b.center, err = b.point(r3.Vec{}); err != nil {
		return nil, err
	}

	n := opts.Sectors
	span := 2 * math.Pi / float64(n)
	rays := make([]ray, n)
	for i := range rays {
		if rays[i], err = b.ray(span * float64(i)); err != nil {
			return nil, err
		}
	}

	res = &Result{
		Center:    b.center,
		Divisions: planner.Divisions(span),
		Resolver:  transfinite.NewResolver(b.center),
	}
	parts := make([]topology.Regions, n)
	for i := range rays {
		sec, acc, err := b.sector(i, rays[i], rays[(i+1)%n], span*float64(i+1))
		if err != nil {
			return nil, err
		}
		res.Sectors = append(res.Sectors, sec)
		parts[i] = acc
	}

	if err := k.Synchronize(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeKernelState, err, "synchronize disk")
	}

	for i := range res.Sectors {
		sec := &res.Sectors[i]
		for j := range sec.Patches {
			p := &sec.Patches[j]
			if !p.Kind.IsBand() {
				continue
			}
			arr := transfinite.BandArrangement(p.Side())
			if _, err := transfinite.Apply(k, p.Surface, arr, res.Divisions, res.Resolver); err != nil {
				return nil, err
			}
			p.Structured = true
		}
		hooks.OnSectorBuilt(ctx, Geometry, sec.Index, len(sec.Patches))
		logger.Debug("sector built", "sector", sec.Index, "patches", len(sec.Patches),
			"interface", sec.Interface, "boundary", sec.Boundary)
	}

	res.Regions = topology.MergeRegions(kernel.DimSurface, parts...)
	if !opts.SkipGroups {
		if err := res.Regions.Submit(k, opts.Names); err != nil {
			return nil, errors.Wrap(errors.ErrCodeKernelState, err, "register disk regions")
		}
	}
	if err := k.Synchronize(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeKernelState, err, "synchronize disk")
	}

	logger.Info("built disk",
		"sectors", n, "patches", len(res.Patches()),
		"radial", res.Divisions.Radial, "angular", res.Divisions.Angular)
	return res, nil
}

// point adds a point with the planner's size hint.
func (b *builder) point(p r3.Vec) (kernel.PointID, error) {
	id, err := b.k.AddPoint(p, b.planner.MeshSizeAt(p))
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeKernelState, err, "add point %v", p)
	}
	return id, nil
}

func (b *builder) line(from, to kernel.PointID) (kernel.CurveID, error) {
	c, err := b.k.AddLine(from, to)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeKernelState, err, "add line %d-%d", from, to)
	}
	return c, nil
}

func (b *builder) arc(from, to kernel.PointID) (kernel.CurveID, error) {
	c, err := b.k.AddCircleArc(from, b.center, to)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeKernelState, err, "add arc %d-%d", from, to)
	}
	return c, nil
}

func (b *builder) surface(curves ...kernel.CurveID) (kernel.SurfaceID, error) {
	loop, err := b.k.AddCurveLoop(curves)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeKernelState, err, "add curve loop %v", curves)
	}
	s, err := b.k.AddPlaneSurface(loop)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeKernelState, err, "add surface on loop %d", loop)
	}
	return s, nil
}

// ray creates the points and radial lines at angle theta.
func (b *builder) ray(theta float64) (r ray, err error) {
	dir := r3.Vec{X: snap(math.Cos(theta)), Y: snap(math.Sin(theta))}
	at := func(radius float64) (kernel.PointID, error) {
		return b.point(r3.Scale(radius, dir))
	}

	r.theta = theta
	r.inner = b.center
	if b.band.HasInnerBulk() {
		if r.inner, err = at(b.band.Inner()); err != nil {
			return r, err
		}
	}
	if r.mid, err = at(b.band.RInner); err != nil {
		return r, err
	}
	if r.outer, err = at(b.band.Outer()); err != nil {
		return r, err
	}
	r.bound = r.outer
	if b.band.HasOuterBulk() {
		if r.bound, err = at(b.band.ROuter); err != nil {
			return r, err
		}
	}

	if b.band.HasInnerBulk() {
		if r.innerBulk, err = b.line(b.center, r.inner); err != nil {
			return r, err
		}
	}
	if r.innerBand, err = b.line(r.inner, r.mid); err != nil {
		return r, err
	}
	if r.outerBand, err = b.line(r.mid, r.outer); err != nil {
		return r, err
	}
	if b.band.HasOuterBulk() {
		if r.outerBulk, err = b.line(r.outer, r.bound); err != nil {
			return r, err
		}
	}
	return r, nil
}

// sector builds the patches between rays ri and rj and returns them with
// the sector's region accumulator.
func (b *builder) sector(i int, ri, rj ray, theta1 float64) (topology.Sector, topology.Regions, error) {
	sec := topology.Sector{
		Index:  i,
		Theta0: ri.theta,
		Theta1: theta1,
		Points: topology.SectorPoints{
			Inner:    [2]kernel.PointID{ri.inner, rj.inner},
			Mid:      [2]kernel.PointID{ri.mid, rj.mid},
			Outer:    [2]kernel.PointID{ri.outer, rj.outer},
			Boundary: [2]kernel.PointID{ri.bound, rj.bound},
		},
	}
	acc := topology.Regions{Dim: kernel.DimSurface}
	add := func(kind topology.PatchKind, s kernel.SurfaceID) {
		sec.Patches = append(sec.Patches, topology.Patch{Kind: kind, Sector: i, Surface: s})
		if kind.Side() == topology.SideInner {
			acc.Inner = append(acc.Inner, int(s))
		} else {
			acc.Outer = append(acc.Outer, int(s))
		}
	}

	var err error
	var innerArc kernel.CurveID
	if b.band.HasInnerBulk() {
		if innerArc, err = b.arc(rj.inner, ri.inner); err != nil {
			return sec, acc, err
		}
	}
	if sec.Interface, err = b.arc(ri.mid, rj.mid); err != nil {
		return sec, acc, err
	}

	if b.band.HasInnerBulk() {
		s, err := b.surface(ri.innerBulk, innerArc.Reversed(), rj.innerBulk.Reversed())
		if err != nil {
			return sec, acc, err
		}
		add(topology.InnerBulk, s)
	}

	innerLoop := []kernel.CurveID{ri.innerBand, sec.Interface, rj.innerBand.Reversed()}
	if b.band.HasInnerBulk() {
		innerLoop = append(innerLoop, innerArc)
	}
	s, err := b.surface(innerLoop...)
	if err != nil {
		return sec, acc, err
	}
	add(topology.InnerBand, s)

	outerArc, err := b.arc(ri.outer, rj.outer)
	if err != nil {
		return sec, acc, err
	}
	if s, err = b.surface(ri.outerBand, outerArc, rj.outerBand.Reversed(), sec.Interface.Reversed()); err != nil {
		return sec, acc, err
	}
	add(topology.OuterBand, s)
	sec.Boundary = outerArc

	if b.band.HasOuterBulk() {
		boundArc, err := b.arc(ri.bound, rj.bound)
		if err != nil {
			return sec, acc, err
		}
		if s, err = b.surface(ri.outerBulk, boundArc, rj.outerBulk.Reversed(), outerArc.Reversed()); err != nil {
			return sec, acc, err
		}
		add(topology.OuterBulk, s)
		sec.Boundary = boundArc
	}

	acc.Interface = []int{int(sec.Interface)}
	acc.OuterBoundary = []int{int(sec.Boundary)}
	return sec, acc, nil
}

// snap zeroes floating point noise in unit direction components.
func snap(v float64) float64 {
	if math.Abs(v) < 1e-15 {
		return 0
	}
	return v
}
