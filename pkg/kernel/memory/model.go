// Package memory implements [kernel.Kernel] as an in-process boundary
// representation.
//
// A [Model] stores exact geometry (point coordinates, line and arc
// definitions, loops, surfaces and volumes) plus the transfinite constraints
// and physical groups attached to them. It enforces the kernel protocol:
// queries only see entities that existed at the last [Model.Synchronize].
//
// Only one model may be live per process. [Initialize] acquires it and
// [Model.Finalize] releases it:
//
//	m, err := memory.Initialize("disk", memory.WithMesher(gmsh.New()))
//	if err != nil {
//		return err
//	}
//	defer m.Finalize()
//
// Revolve merges coincident entities the way Gmsh's built-in kernel does with
// Geometry.AutoCoherence: swept points, curves and surfaces that coincide with
// existing ones reuse them, so neighbouring wedges share faces.
package memory

import (
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/charmbracelet/log"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/matzehuels/tconf/pkg/kernel"
)

// Tolerance is the absolute distance, scaled by max(1, |p|), under which two
// positions are considered equal.
const Tolerance = 1e-9

// active guards the process-wide model.
var active sync.Mutex

// Model is an in-memory geometric model.
type Model struct {
	name   string
	logger *log.Logger
	mesher kernel.Mesher

	points   []kernel.Point
	curves   []kernel.Curve
	loops    []kernel.Loop
	surfaces []kernel.Surface
	volumes  []kernel.Volume
	groups   []kernel.PhysicalGroup

	curveConstraints   map[kernel.CurveID]kernel.CurveConstraint
	curveOrder         []kernel.CurveID
	surfaceConstraints map[kernel.SurfaceID]kernel.SurfaceConstraint
	surfaceOrder       []kernel.SurfaceID

	// synced holds the entity count per dimension at the last Synchronize.
	synced [4]int

	meshDim   kernel.Dim
	finalized bool
}

// Option configures a Model.
type Option func(*Model)

// WithLogger sets the debug logger.
func WithLogger(l *log.Logger) Option {
	return func(m *Model) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithMesher sets the mesher used when writing .msh files.
func WithMesher(ms kernel.Mesher) Option {
	return func(m *Model) { m.mesher = ms }
}

// Initialize acquires the process-wide model. It fails with
// [kernel.ErrBusy] while another model is live.
func Initialize(name string, opts ...Option) (*Model, error) {
	if !active.TryLock() {
		return nil, kernel.ErrBusy
	}
	m := &Model{
		name:               name,
		logger:             log.New(io.Discard),
		curveConstraints:   make(map[kernel.CurveID]kernel.CurveConstraint),
		surfaceConstraints: make(map[kernel.SurfaceID]kernel.SurfaceConstraint),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger.Debug("kernel initialized", "model", name)
	return m, nil
}

// Finalize releases the process-wide model. Further calls on m fail with
// [kernel.ErrFinalized]. Finalize is idempotent.
func (m *Model) Finalize() {
	if m.finalized {
		return
	}
	m.finalized = true
	m.logger.Debug("kernel finalized", "model", m.name)
	active.Unlock()
}

// Name returns the model name.
func (m *Model) Name() string { return m.name }

func (m *Model) live() error {
	if m.finalized {
		return kernel.ErrFinalized
	}
	return nil
}

// =============================================================================
// Creation
// =============================================================================

// AddPoint creates a point.
func (m *Model) AddPoint(p r3.Vec, size float64) (kernel.PointID, error) {
	if err := m.live(); err != nil {
		return 0, err
	}
	if !finite(p) || math.IsNaN(size) || size < 0 {
		return 0, fmt.Errorf("point %v size %g: %w", p, size, kernel.ErrInvalidGeometry)
	}
	return m.addPoint(p, size), nil
}

func (m *Model) addPoint(p r3.Vec, size float64) kernel.PointID {
	id := kernel.PointID(len(m.points) + 1)
	m.points = append(m.points, kernel.Point{ID: id, Pos: p, Size: size})
	return id
}

// AddLine creates a straight segment from a to b.
func (m *Model) AddLine(a, b kernel.PointID) (kernel.CurveID, error) {
	if err := m.live(); err != nil {
		return 0, err
	}
	pa, err := m.point(a)
	if err != nil {
		return 0, err
	}
	pb, err := m.point(b)
	if err != nil {
		return 0, err
	}
	if a == b || same(pa.Pos, pb.Pos) {
		return 0, fmt.Errorf("line %d-%d has zero length: %w", a, b, kernel.ErrInvalidGeometry)
	}
	return m.addCurve(kernel.CurveLine, a, b, 0), nil
}

// AddCircleArc creates an arc from start to end around center. Both ends
// must be equidistant from center and the arc must span less than π.
func (m *Model) AddCircleArc(start, center, end kernel.PointID) (kernel.CurveID, error) {
	if err := m.live(); err != nil {
		return 0, err
	}
	ps, err := m.point(start)
	if err != nil {
		return 0, err
	}
	pc, err := m.point(center)
	if err != nil {
		return 0, err
	}
	pe, err := m.point(end)
	if err != nil {
		return 0, err
	}
	rs := r3.Norm(r3.Sub(ps.Pos, pc.Pos))
	re := r3.Norm(r3.Sub(pe.Pos, pc.Pos))
	if rs == 0 || math.Abs(rs-re) > Tolerance*math.Max(1, rs) {
		return 0, fmt.Errorf("arc %d-%d-%d: radii %g and %g differ: %w", start, center, end, rs, re, kernel.ErrInvalidGeometry)
	}
	phi := kernel.ArcAngle(ps.Pos, pc.Pos, pe.Pos)
	if phi < 1e-9 || phi > math.Pi-1e-9 {
		return 0, fmt.Errorf("arc %d-%d-%d spans %g rad: %w", start, center, end, phi, kernel.ErrInvalidGeometry)
	}
	return m.addCurve(kernel.CurveCircle, start, end, center), nil
}

func (m *Model) addCurve(kind kernel.CurveKind, a, b, center kernel.PointID) kernel.CurveID {
	id := kernel.CurveID(len(m.curves) + 1)
	m.curves = append(m.curves, kernel.Curve{ID: id, Kind: kind, Start: a, End: b, Center: center})
	return id
}

// AddCurveLoop creates a closed loop of oriented curves.
func (m *Model) AddCurveLoop(curves []kernel.CurveID) (kernel.LoopID, error) {
	if err := m.live(); err != nil {
		return 0, err
	}
	if err := m.checkClosed(curves); err != nil {
		return 0, err
	}
	return m.addLoop(curves), nil
}

func (m *Model) addLoop(curves []kernel.CurveID) kernel.LoopID {
	id := kernel.LoopID(len(m.loops) + 1)
	m.loops = append(m.loops, kernel.Loop{ID: id, Curves: append([]kernel.CurveID(nil), curves...)})
	return id
}

func (m *Model) checkClosed(curves []kernel.CurveID) error {
	if len(curves) < 2 {
		return fmt.Errorf("loop of %d curves: %w", len(curves), kernel.ErrInvalidGeometry)
	}
	starts := make([]kernel.PointID, len(curves))
	ends := make([]kernel.PointID, len(curves))
	for i, c := range curves {
		cv, err := m.curve(c)
		if err != nil {
			return err
		}
		starts[i], ends[i] = orient(cv, c)
	}
	for i := range curves {
		if ends[i] != starts[(i+1)%len(curves)] {
			return fmt.Errorf("loop %v is open after curve %d: %w", curves, curves[i], kernel.ErrInvalidGeometry)
		}
	}
	return nil
}

// AddPlaneSurface creates a planar surface bounded by loop.
func (m *Model) AddPlaneSurface(loop kernel.LoopID) (kernel.SurfaceID, error) {
	if err := m.live(); err != nil {
		return 0, err
	}
	if loop < 1 || int(loop) > len(m.loops) {
		return 0, fmt.Errorf("loop %d: %w", loop, kernel.ErrUnknownEntity)
	}
	pts := m.view().SampleLoop(loop, 8)
	if !planar(pts) {
		return 0, fmt.Errorf("loop %d is not planar: %w", loop, kernel.ErrInvalidGeometry)
	}
	return m.addSurface(kernel.SurfacePlane, loop, 0), nil
}

func (m *Model) addSurface(kind kernel.SurfaceKind, loop kernel.LoopID, center kernel.PointID) kernel.SurfaceID {
	id := kernel.SurfaceID(len(m.surfaces) + 1)
	m.surfaces = append(m.surfaces, kernel.Surface{ID: id, Kind: kind, Loop: loop, Center: center})
	return id
}

func (m *Model) addVolume(surfaces []kernel.SurfaceID) kernel.VolumeID {
	id := kernel.VolumeID(len(m.volumes) + 1)
	m.volumes = append(m.volumes, kernel.Volume{ID: id, Surfaces: surfaces})
	return id
}

// AddPhysicalGroup names a set of entities of dimension dim. Group tags are
// allocated per dimension starting at 1.
func (m *Model) AddPhysicalGroup(dim kernel.Dim, tags []int, name string) (int, error) {
	if err := m.live(); err != nil {
		return 0, err
	}
	if dim < kernel.DimPoint || dim > kernel.DimVolume {
		return 0, fmt.Errorf("dimension %d: %w", dim, kernel.ErrInvalidGeometry)
	}
	for _, t := range tags {
		if t == 0 || abs(t) > m.count(dim) {
			return 0, fmt.Errorf("%s %d: %w", dim, t, kernel.ErrUnknownEntity)
		}
	}
	tag := 1
	for _, g := range m.groups {
		if g.Dim == dim {
			tag++
		}
	}
	m.groups = append(m.groups, kernel.PhysicalGroup{
		Dim:     dim,
		Tag:     tag,
		Name:    name,
		Members: append([]int(nil), tags...),
	})
	return tag, nil
}

// Synchronize makes all created entities visible to queries.
func (m *Model) Synchronize() error {
	if err := m.live(); err != nil {
		return err
	}
	for d := kernel.DimPoint; d <= kernel.DimVolume; d++ {
		m.synced[d] = m.count(d)
	}
	m.logger.Debug("synchronized",
		"points", len(m.points), "curves", len(m.curves),
		"surfaces", len(m.surfaces), "volumes", len(m.volumes))
	return nil
}

// =============================================================================
// Constraints
// =============================================================================

// SetTransfiniteCurve assigns count divisions with the given bump to c.
// Repeating an identical constraint is a no-op.
func (m *Model) SetTransfiniteCurve(c kernel.CurveID, count int, bump float64) error {
	if err := m.live(); err != nil {
		return err
	}
	c = c.Abs()
	if err := m.visible(c.Entity()); err != nil {
		return err
	}
	if count < 2 || !(bump > 0) {
		return fmt.Errorf("curve %d: count %d bump %g: %w", c, count, bump, kernel.ErrInvalidGeometry)
	}
	want := kernel.CurveConstraint{Curve: c, Count: count, Bump: bump}
	if have, ok := m.curveConstraints[c]; ok {
		if have != want {
			return fmt.Errorf("curve %d has %d/%g, requested %d/%g: %w",
				c, have.Count, have.Bump, count, bump, kernel.ErrConflictingConstraint)
		}
		return nil
	}
	m.curveConstraints[c] = want
	m.curveOrder = append(m.curveOrder, c)
	return nil
}

// SetTransfiniteSurface declares s structured. A later declaration replaces
// an earlier one.
func (m *Model) SetTransfiniteSurface(s kernel.SurfaceID, arr kernel.Arrangement, corners []kernel.PointID) error {
	if err := m.live(); err != nil {
		return err
	}
	if err := m.visible(s.Entity()); err != nil {
		return err
	}
	if arr != kernel.ArrangementRight && arr != kernel.ArrangementLeft {
		return fmt.Errorf("surface %d arrangement %d: %w", s, arr, kernel.ErrInvalidGeometry)
	}
	if n := len(corners); n != 0 && n != 3 && n != 4 {
		return fmt.Errorf("surface %d with %d corners: %w", s, n, kernel.ErrInvalidGeometry)
	}
	onBoundary := make(map[kernel.PointID]bool)
	for _, c := range m.loops[m.surfaces[s-1].Loop-1].Curves {
		cv := m.curves[c.Abs()-1]
		onBoundary[cv.Start], onBoundary[cv.End] = true, true
	}
	for _, p := range corners {
		if !onBoundary[p] {
			return fmt.Errorf("corner %d not on surface %d: %w", p, s, kernel.ErrInvalidGeometry)
		}
	}
	if _, ok := m.surfaceConstraints[s]; !ok {
		m.surfaceOrder = append(m.surfaceOrder, s)
	}
	m.surfaceConstraints[s] = kernel.SurfaceConstraint{
		Surface:     s,
		Arrangement: arr,
		Corners:     append([]kernel.PointID(nil), corners...),
	}
	return nil
}

// =============================================================================
// Snapshot
// =============================================================================

// Snapshot returns a deep copy of the model.
func (m *Model) Snapshot() kernel.Snapshot {
	s := kernel.Snapshot{
		Name:     m.name,
		Points:   append([]kernel.Point(nil), m.points...),
		Curves:   append([]kernel.Curve(nil), m.curves...),
		MeshDim:  m.meshDim,
		Loops:    make([]kernel.Loop, len(m.loops)),
		Surfaces: append([]kernel.Surface(nil), m.surfaces...),
		Volumes:  make([]kernel.Volume, len(m.volumes)),
		Groups:   make([]kernel.PhysicalGroup, len(m.groups)),
	}
	for i, l := range m.loops {
		s.Loops[i] = kernel.Loop{ID: l.ID, Curves: append([]kernel.CurveID(nil), l.Curves...)}
	}
	for i, v := range m.volumes {
		s.Volumes[i] = kernel.Volume{ID: v.ID, Surfaces: append([]kernel.SurfaceID(nil), v.Surfaces...)}
	}
	for i, g := range m.groups {
		g.Members = append([]int(nil), g.Members...)
		s.Groups[i] = g
	}
	for _, c := range m.curveOrder {
		s.CurveConstraints = append(s.CurveConstraints, m.curveConstraints[c])
	}
	for _, id := range m.surfaceOrder {
		sc := m.surfaceConstraints[id]
		sc.Corners = append([]kernel.PointID(nil), sc.Corners...)
		s.SurfaceConstraints = append(s.SurfaceConstraints, sc)
	}
	return s
}

// view exposes the live slices as a snapshot without copying.
func (m *Model) view() *kernel.Snapshot {
	return &kernel.Snapshot{
		Points:   m.points,
		Curves:   m.curves,
		Loops:    m.loops,
		Surfaces: m.surfaces,
		Volumes:  m.volumes,
	}
}

// =============================================================================
// Helpers
// =============================================================================

func (m *Model) count(d kernel.Dim) int {
	switch d {
	case kernel.DimPoint:
		return len(m.points)
	case kernel.DimCurve:
		return len(m.curves)
	case kernel.DimSurface:
		return len(m.surfaces)
	case kernel.DimVolume:
		return len(m.volumes)
	}
	return 0
}

func (m *Model) point(id kernel.PointID) (kernel.Point, error) {
	if id < 1 || int(id) > len(m.points) {
		return kernel.Point{}, fmt.Errorf("point %d: %w", id, kernel.ErrUnknownEntity)
	}
	return m.points[id-1], nil
}

func (m *Model) curve(id kernel.CurveID) (kernel.Curve, error) {
	a := id.Abs()
	if a < 1 || int(a) > len(m.curves) {
		return kernel.Curve{}, fmt.Errorf("curve %d: %w", id, kernel.ErrUnknownEntity)
	}
	return m.curves[a-1], nil
}

// orient returns the endpoints of c in the direction given by the sign of id.
func orient(c kernel.Curve, id kernel.CurveID) (start, end kernel.PointID) {
	if id < 0 {
		return c.End, c.Start
	}
	return c.Start, c.End
}

func same(a, b r3.Vec) bool {
	return r3.Norm(r3.Sub(a, b)) <= Tolerance*math.Max(1, r3.Norm(a))
}

func finite(p r3.Vec) bool {
	for _, v := range []float64{p.X, p.Y, p.Z} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// planar reports whether pts lie in one plane, using Newell's normal.
func planar(pts []r3.Vec) bool {
	if len(pts) < 3 {
		return false
	}
	var n, c r3.Vec
	for i, p := range pts {
		q := pts[(i+1)%len(pts)]
		n = r3.Add(n, r3.Cross(p, q))
		c = r3.Add(c, p)
	}
	if r3.Norm(n) == 0 {
		return false
	}
	n = r3.Unit(n)
	c = r3.Scale(1/float64(len(pts)), c)
	scale := 0.0
	for _, p := range pts {
		scale = math.Max(scale, r3.Norm(r3.Sub(p, c)))
	}
	for _, p := range pts {
		if math.Abs(r3.Dot(r3.Sub(p, c), n)) > 1e-7*math.Max(1, scale) {
			return false
		}
	}
	return true
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
