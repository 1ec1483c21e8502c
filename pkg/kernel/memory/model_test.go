package memory

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	tcerrors "github.com/matzehuels/tconf/pkg/errors"
	"github.com/matzehuels/tconf/pkg/kernel"
)

var xAxis = r3.Vec{X: 1}

func newModel(t *testing.T, opts ...Option) *Model {
	t.Helper()
	m, err := Initialize(t.Name(), opts...)
	require.NoError(t, err)
	t.Cleanup(m.Finalize)
	return m
}

// quarter is the unit quarter disk in the first quadrant of the xy plane.
type quarter struct {
	center, px, py kernel.PointID
	lx, arc, ly    kernel.CurveID
	surface        kernel.SurfaceID
}

func addQuarter(t *testing.T, m *Model, sy float64) quarter {
	t.Helper()
	var q quarter
	var err error
	q.center, err = m.AddPoint(r3.Vec{}, 0.5)
	require.NoError(t, err)
	q.px, err = m.AddPoint(r3.Vec{X: 1}, 0.1)
	require.NoError(t, err)
	q.lx, err = m.AddLine(q.center, q.px)
	require.NoError(t, err)
	return addMirror(t, m, q, sy)
}

// addMirror closes a quarter disk on the shared x axis edge of q, with the
// arc ending at (0, sy, 0).
func addMirror(t *testing.T, m *Model, q quarter, sy float64) quarter {
	t.Helper()
	var err error
	q.py, err = m.AddPoint(r3.Vec{Y: sy}, 0.1)
	require.NoError(t, err)
	q.arc, err = m.AddCircleArc(q.px, q.center, q.py)
	require.NoError(t, err)
	q.ly, err = m.AddLine(q.py, q.center)
	require.NoError(t, err)
	loop, err := m.AddCurveLoop([]kernel.CurveID{q.lx, q.arc, q.ly})
	require.NoError(t, err)
	q.surface, err = m.AddPlaneSurface(loop)
	require.NoError(t, err)
	return q
}

func TestInitializeIsExclusive(t *testing.T) {
	m, err := Initialize("first")
	require.NoError(t, err)

	_, err = Initialize("second")
	assert.ErrorIs(t, err, kernel.ErrBusy)

	m.Finalize()
	m.Finalize()

	again, err := Initialize("third")
	require.NoError(t, err)
	again.Finalize()
}

func TestFinalizedModelRejectsCalls(t *testing.T) {
	m, err := Initialize("done")
	require.NoError(t, err)
	m.Finalize()

	_, err = m.AddPoint(r3.Vec{}, 1)
	assert.ErrorIs(t, err, kernel.ErrFinalized)
	assert.ErrorIs(t, m.Synchronize(), kernel.ErrFinalized)
	_, err = m.Boundary(kernel.SurfaceID(1).Entity())
	assert.ErrorIs(t, err, kernel.ErrFinalized)
}

func TestQueriesRequireSynchronize(t *testing.T) {
	m := newModel(t)
	q := addQuarter(t, m, 1)

	_, err := m.Boundary(q.surface.Entity())
	assert.ErrorIs(t, err, kernel.ErrNotSynchronized)
	_, err = m.CurveKind(q.arc)
	assert.ErrorIs(t, err, kernel.ErrNotSynchronized)
	_, err = m.BoundingBox(q.px.Entity())
	assert.ErrorIs(t, err, kernel.ErrNotSynchronized)
	assert.ErrorIs(t, m.SetTransfiniteCurve(q.arc, 4, 1), kernel.ErrNotSynchronized)

	require.NoError(t, m.Synchronize())

	bnd, err := m.Boundary(q.surface.Entity())
	require.NoError(t, err)
	assert.Equal(t, []kernel.Entity{q.lx.Entity(), q.arc.Entity(), q.ly.Entity()}, bnd)

	_, err = m.Boundary(kernel.SurfaceID(99).Entity())
	assert.ErrorIs(t, err, kernel.ErrUnknownEntity)
}

func TestBoundaryOrientation(t *testing.T) {
	m := newModel(t)
	q := addQuarter(t, m, 1)
	require.NoError(t, m.Synchronize())

	fwd, err := m.Boundary(q.arc.Entity())
	require.NoError(t, err)
	assert.Equal(t, []kernel.Entity{q.px.Entity(), q.py.Entity()}, fwd)

	rev, err := m.Boundary(q.arc.Reversed().Entity())
	require.NoError(t, err)
	assert.Equal(t, []kernel.Entity{q.py.Entity(), q.px.Entity()}, rev)

	kind, err := m.CurveKind(-q.arc)
	require.NoError(t, err)
	assert.Equal(t, kernel.CurveCircle, kind)
}

func TestAddCircleArcValidation(t *testing.T) {
	m := newModel(t)
	c, _ := m.AddPoint(r3.Vec{}, 1)
	a, _ := m.AddPoint(r3.Vec{X: 1}, 1)
	b, _ := m.AddPoint(r3.Vec{Y: 1}, 1)
	far, _ := m.AddPoint(r3.Vec{Y: 2}, 1)
	opposite, _ := m.AddPoint(r3.Vec{X: -1}, 1)

	_, err := m.AddCircleArc(a, c, b)
	assert.NoError(t, err)

	tests := []struct {
		name       string
		start, end kernel.PointID
	}{
		{"unequal radii", a, far},
		{"half circle", a, opposite},
		{"zero span", a, a},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.AddCircleArc(tt.start, c, tt.end)
			assert.ErrorIs(t, err, kernel.ErrInvalidGeometry)
		})
	}

	_, err = m.AddCircleArc(a, 42, b)
	assert.ErrorIs(t, err, kernel.ErrUnknownEntity)
}

func TestAddCurveLoopRequiresClosure(t *testing.T) {
	m := newModel(t)
	p1, _ := m.AddPoint(r3.Vec{}, 1)
	p2, _ := m.AddPoint(r3.Vec{X: 1}, 1)
	p3, _ := m.AddPoint(r3.Vec{Y: 1}, 1)
	l12, _ := m.AddLine(p1, p2)
	l23, _ := m.AddLine(p2, p3)
	l13, _ := m.AddLine(p1, p3)

	_, err := m.AddCurveLoop([]kernel.CurveID{l12, l23, l13})
	assert.ErrorIs(t, err, kernel.ErrInvalidGeometry)

	_, err = m.AddCurveLoop([]kernel.CurveID{l12, l23, -l13})
	assert.NoError(t, err)

	_, err = m.AddLine(p1, p1)
	assert.ErrorIs(t, err, kernel.ErrInvalidGeometry)
}

func TestAddPlaneSurfaceRejectsNonPlanarLoop(t *testing.T) {
	m := newModel(t)
	p1, _ := m.AddPoint(r3.Vec{}, 1)
	p2, _ := m.AddPoint(r3.Vec{X: 1}, 1)
	p3, _ := m.AddPoint(r3.Vec{X: 1, Y: 1}, 1)
	p4, _ := m.AddPoint(r3.Vec{Y: 1, Z: 1}, 1)
	c1, _ := m.AddLine(p1, p2)
	c2, _ := m.AddLine(p2, p3)
	c3, _ := m.AddLine(p3, p4)
	c4, _ := m.AddLine(p4, p1)
	loop, err := m.AddCurveLoop([]kernel.CurveID{c1, c2, c3, c4})
	require.NoError(t, err)

	_, err = m.AddPlaneSurface(loop)
	assert.ErrorIs(t, err, kernel.ErrInvalidGeometry)
}

func TestBoundingBoxAndArea(t *testing.T) {
	m := newModel(t)
	q := addQuarter(t, m, 1)
	require.NoError(t, m.Synchronize())

	box, err := m.BoundingBox(q.arc.Entity())
	require.NoError(t, err)
	assert.InDelta(t, 0, box.Min.X, 1e-12)
	assert.InDelta(t, 1, box.Max.X, 1e-12)
	assert.InDelta(t, 1, box.Max.Y, 1e-12)
	assert.InDelta(t, 0, box.Max.Z, 1e-12)

	area, err := m.Area(q.surface)
	require.NoError(t, err)
	assert.InDelta(t, math.Pi/4, area, 1e-4)
}

func TestRevolveQuarterDisk(t *testing.T) {
	m := newModel(t)
	q := addQuarter(t, m, 1)

	out, err := m.Revolve(q.surface, xAxis, r3.Vec{}, math.Pi/2)
	require.NoError(t, err)
	require.Len(t, out, 4)
	assert.Equal(t, kernel.DimSurface, out[0].Dim)
	assert.Equal(t, kernel.DimVolume, out[1].Dim)

	snap := m.Snapshot()
	// Only the point off the axis is copied; its sweep arc reuses the center.
	assert.Len(t, snap.Points, 4)
	assert.InDelta(t, 1, snap.Points[3].Pos.Z, 1e-12)
	assert.InDelta(t, 0, snap.Points[3].Pos.Y, 1e-12)
	assert.Len(t, snap.Volumes, 1)

	arcLateral, ok := snap.Surface(out[2].Surface())
	require.True(t, ok)
	assert.Equal(t, kernel.SurfaceSphere, arcLateral.Kind)
	assert.Equal(t, q.center, arcLateral.Center)

	lineLateral, ok := snap.Surface(out[3].Surface())
	require.True(t, ok)
	assert.Equal(t, kernel.SurfacePlane, lineLateral.Kind)

	require.NoError(t, m.Synchronize())
	bnd, err := m.Boundary(out[1])
	require.NoError(t, err)
	assert.Equal(t, q.surface.Entity(), bnd[0])
	assert.Len(t, bnd, 4)

	top, err := m.Boundary(out[0])
	require.NoError(t, err)
	assert.Contains(t, top, q.lx.Entity(), "curve on the axis is shared by the swept copy")
}

func TestRevolveMergesCoincidentEntities(t *testing.T) {
	m := newModel(t)
	upper := addQuarter(t, m, 1)
	lower := addMirror(t, m, upper, -1)

	plus, err := m.Revolve(upper.surface, xAxis, r3.Vec{}, math.Pi/2)
	require.NoError(t, err)
	minus, err := m.Revolve(lower.surface, xAxis, r3.Vec{}, -math.Pi/2)
	require.NoError(t, err)

	assert.Equal(t, plus[0], minus[0], "both sweeps end on the same half-plane face")
	assert.NotEqual(t, plus[1], minus[1])

	again, err := m.Revolve(upper.surface, xAxis, r3.Vec{}, math.Pi/2)
	require.NoError(t, err)
	assert.Equal(t, plus[0], again[0])
	assert.Equal(t, plus[2:], again[2:])
}

func TestRevolveValidation(t *testing.T) {
	m := newModel(t)
	q := addQuarter(t, m, 1)

	tests := []struct {
		name  string
		s     kernel.SurfaceID
		axis  r3.Vec
		angle float64
		want  error
	}{
		{"zero angle", q.surface, xAxis, 0, kernel.ErrInvalidGeometry},
		{"full turn", q.surface, xAxis, math.Pi, kernel.ErrInvalidGeometry},
		{"zero axis", q.surface, r3.Vec{}, 1, kernel.ErrInvalidGeometry},
		{"unknown surface", 9, xAxis, 1, kernel.ErrUnknownEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Revolve(tt.s, tt.axis, r3.Vec{}, tt.angle)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestTransfiniteConstraints(t *testing.T) {
	m := newModel(t)
	q := addQuarter(t, m, 1)
	require.NoError(t, m.Synchronize())

	require.NoError(t, m.SetTransfiniteCurve(q.arc, 8, 1))
	require.NoError(t, m.SetTransfiniteCurve(-q.arc, 8, 1), "identical re-declaration is allowed")
	assert.ErrorIs(t, m.SetTransfiniteCurve(q.arc, 9, 1), kernel.ErrConflictingConstraint)
	assert.ErrorIs(t, m.SetTransfiniteCurve(q.arc, 8, 0.5), kernel.ErrConflictingConstraint)
	assert.ErrorIs(t, m.SetTransfiniteCurve(q.lx, 1, 1), kernel.ErrInvalidGeometry)

	corners := []kernel.PointID{q.center, q.px, q.py}
	require.NoError(t, m.SetTransfiniteSurface(q.surface, kernel.ArrangementRight, corners))
	require.NoError(t, m.SetTransfiniteSurface(q.surface, kernel.ArrangementLeft, nil))
	assert.ErrorIs(t, m.SetTransfiniteSurface(q.surface, kernel.ArrangementLeft, corners[:2]), kernel.ErrInvalidGeometry)

	extra, _ := m.AddPoint(r3.Vec{X: 5}, 1)
	require.NoError(t, m.Synchronize())
	assert.ErrorIs(t, m.SetTransfiniteSurface(q.surface, kernel.ArrangementRight,
		[]kernel.PointID{q.center, q.px, extra}), kernel.ErrInvalidGeometry)

	snap := m.Snapshot()
	require.Len(t, snap.CurveConstraints, 1)
	assert.Equal(t, kernel.CurveConstraint{Curve: q.arc, Count: 8, Bump: 1}, snap.CurveConstraints[0])
	require.Len(t, snap.SurfaceConstraints, 1)
	assert.Equal(t, kernel.ArrangementLeft, snap.SurfaceConstraints[0].Arrangement)
}

func TestAddPhysicalGroup(t *testing.T) {
	m := newModel(t)
	q := addQuarter(t, m, 1)

	tag, err := m.AddPhysicalGroup(kernel.DimSurface, []int{int(q.surface)}, "inner")
	require.NoError(t, err)
	assert.Equal(t, 1, tag)

	tag, err = m.AddPhysicalGroup(kernel.DimCurve, []int{int(q.arc)}, "interface")
	require.NoError(t, err)
	assert.Equal(t, 1, tag, "tags are per dimension")

	tag, err = m.AddPhysicalGroup(kernel.DimCurve, []int{int(q.lx)}, "axis")
	require.NoError(t, err)
	assert.Equal(t, 2, tag)

	_, err = m.AddPhysicalGroup(kernel.DimVolume, []int{1}, "none")
	assert.ErrorIs(t, err, kernel.ErrUnknownEntity)
}

type recordingMesher struct {
	script []byte
	dim    kernel.Dim
	out    string
}

func (r *recordingMesher) Mesh(_ context.Context, script []byte, dim kernel.Dim, out string) error {
	r.script, r.dim, r.out = script, dim, out
	return nil
}

func TestWrite(t *testing.T) {
	rec := &recordingMesher{}
	m := newModel(t, WithMesher(rec))
	addQuarter(t, m, 1)
	require.NoError(t, m.Synchronize())

	ctx := context.Background()
	dir := t.TempDir()

	geo := filepath.Join(dir, "quarter.geo")
	require.NoError(t, m.Write(ctx, geo))
	data, err := os.ReadFile(geo)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "Plane Surface(1) = {1};"))
	assert.Error(t, m.Write(ctx, filepath.Join(dir, "missing", "quarter.geo")))

	msh := filepath.Join(dir, "quarter.msh")
	assert.ErrorIs(t, m.Write(ctx, msh), kernel.ErrNotMeshed)

	require.NoError(t, m.Generate(ctx, kernel.DimSurface))
	require.NoError(t, m.Write(ctx, msh))
	assert.Equal(t, kernel.DimSurface, rec.dim)
	assert.Equal(t, msh, rec.out)
	assert.Equal(t, data, rec.script)

	err = m.Write(ctx, filepath.Join(dir, "quarter.stl"))
	assert.True(t, tcerrors.Is(err, tcerrors.ErrCodeInvalidFormat))

	err = m.Generate(ctx, 0)
	assert.True(t, tcerrors.Is(err, tcerrors.ErrCodeInvalidInput))
	assert.False(t, errors.Is(err, kernel.ErrNotMeshed))
}

func TestWriteWithoutMesher(t *testing.T) {
	m := newModel(t)
	addQuarter(t, m, 1)
	require.NoError(t, m.Synchronize())
	require.NoError(t, m.Generate(context.Background(), kernel.DimSurface))

	err := m.Write(context.Background(), filepath.Join(t.TempDir(), "q.msh"))
	assert.True(t, tcerrors.Is(err, tcerrors.ErrCodeMesherUnavailable))
}
