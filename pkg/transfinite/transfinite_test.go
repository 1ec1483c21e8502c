package transfinite

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/matzehuels/tconf/pkg/errors"
	"github.com/matzehuels/tconf/pkg/kernel"
	"github.com/matzehuels/tconf/pkg/kernel/memory"
	"github.com/matzehuels/tconf/pkg/topology"
)

func TestPlanDivisions(t *testing.T) {
	tests := []struct {
		name    string
		a, h    float64
		r, dt   float64
		radial  int
		angular int
	}{
		{"thin band clamps to minimum", 0.1, 0.1, 1, math.Pi / 2, 4, 16},
		{"wide band", 0.5, 0.1, 1, math.Pi / 2, 10, 16},
		{"coarse", 0.5, 1, 1, math.Pi / 2, 4, 4},
		{"many sectors", 0.2, 0.06, 2, 2 * math.Pi / 16, 7, 14},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := PlanDivisions(tt.a, tt.h, tt.r, tt.dt)
			assert.Equal(t, tt.radial, d.Radial)
			assert.Equal(t, tt.angular, d.Angular)
			assert.Equal(t, 1.0, d.Bump)
		})
	}
}

func TestPlanDivisionsMonotone(t *testing.T) {
	prev := PlanDivisions(0.3, 1, 1.5, math.Pi/3)
	for h := 0.9; h > 0.01; h *= 0.9 {
		d := PlanDivisions(0.3, h, 1.5, math.Pi/3)
		assert.GreaterOrEqual(t, d.Radial, prev.Radial, "h=%g", h)
		assert.GreaterOrEqual(t, d.Angular, prev.Angular, "h=%g", h)
		assert.GreaterOrEqual(t, d.Radial, MinDivisions)
		assert.GreaterOrEqual(t, d.Angular, MinDivisions)
		prev = d
	}
}

func TestPlannerMeshSizeAt(t *testing.T) {
	p := NewPlanner(topology.Band{RInner: 1, A: 0.1, ROuter: 2, HBand: 0.05, HOuter: 0.5})
	tests := []struct {
		pos  r3.Vec
		want float64
	}{
		{r3.Vec{}, 0.5},
		{r3.Vec{X: 0.9}, 0.05},
		{r3.Vec{Y: 1}, 0.05},
		{r3.Vec{X: 0.6, Y: 0.8}, 0.05},
		{r3.Vec{X: 1.1}, 0.05},
		{r3.Vec{X: 2}, 0.5},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, p.MeshSizeAt(tt.pos), "pos=%v", tt.pos)
	}

	p.Bump = 0.3
	assert.Equal(t, 0.3, p.Divisions(math.Pi/2).Bump)
}

func TestResolve(t *testing.T) {
	r := NewResolver(1, 40, 41)
	tests := []struct {
		name    string
		corners []kernel.PointID
		want    []kernel.PointID
		wantErr bool
	}{
		{"quad keeps kernel order", []kernel.PointID{5, 6, 7, 8}, nil, false},
		{"center leads", []kernel.PointID{5, 6, 1}, []kernel.PointID{1, 5, 6}, false},
		{"axis point leads", []kernel.PointID{6, 41, 7}, []kernel.PointID{41, 7, 6}, false},
		{"apex priority", []kernel.PointID{41, 40, 7}, []kernel.PointID{40, 7, 41}, false},
		{"fallback outside low block", []kernel.PointID{5, 22, 7}, []kernel.PointID{22, 7, 5}, false},
		{"fallback all inside keeps order", []kernel.PointID{5, 6, 7}, []kernel.PointID{5, 6, 7}, false},
		{"pentagon", []kernel.PointID{2, 3, 4, 5, 6}, nil, true},
		{"degenerate", []kernel.PointID{2, 3}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc, err := r.Resolve(Classification{Surface: 9, Corners: tt.corners}, kernel.ArrangementLeft)
			if tt.wantErr {
				assert.True(t, errors.Is(err, errors.ErrCodeClassifierAmbiguity), "err = %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, kernel.SurfaceID(9), sc.Surface)
			assert.Equal(t, kernel.ArrangementLeft, sc.Arrangement)
			assert.Equal(t, tt.want, sc.Corners)
		})
	}
}

func TestArrangements(t *testing.T) {
	assert.Equal(t, kernel.ArrangementRight, BandArrangement(topology.SideInner))
	assert.Equal(t, kernel.ArrangementLeft, BandArrangement(topology.SideOuter))

	flat := r3.Box{Min: r3.Vec{X: 0, Y: 0}, Max: r3.Vec{X: 1, Y: 1}}
	lifted := r3.Box{Min: r3.Vec{}, Max: r3.Vec{X: 1, Z: 1}}
	negative := r3.Box{Min: r3.Vec{X: -1}, Max: r3.Vec{Y: 1}}

	tests := []struct {
		name string
		side topology.Side
		box  r3.Box
		want kernel.Arrangement
	}{
		{"inner always right", topology.SideInner, lifted, kernel.ArrangementRight},
		{"outer on symmetry plane", topology.SideOuter, flat, kernel.ArrangementRight},
		{"outer off plane", topology.SideOuter, lifted, kernel.ArrangementLeft},
		{"outer negative x", topology.SideOuter, negative, kernel.ArrangementLeft},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SweptArrangement(tt.side, tt.box))
		})
	}
}

// wedge builds a unit quarter disk and returns the model, its surface and
// its center point.
func wedge(t *testing.T) (*memory.Model, kernel.SurfaceID, kernel.PointID) {
	t.Helper()
	m, err := memory.Initialize(t.Name())
	require.NoError(t, err)
	t.Cleanup(m.Finalize)

	c, _ := m.AddPoint(r3.Vec{}, 1)
	a, _ := m.AddPoint(r3.Vec{X: 1}, 1)
	b, _ := m.AddPoint(r3.Vec{Y: 1}, 1)
	la, _ := m.AddLine(a, c)
	arc, _ := m.AddCircleArc(a, c, b)
	lb, _ := m.AddLine(c, b)
	loop, err := m.AddCurveLoop([]kernel.CurveID{-la, arc, -lb})
	require.NoError(t, err)
	s, err := m.AddPlaneSurface(loop)
	require.NoError(t, err)
	return m, s, c
}

func TestClassify(t *testing.T) {
	m, s, _ := wedge(t)

	_, err := Classify(m, s)
	assert.True(t, errors.Is(err, errors.ErrCodeKernelState), "unsynchronized surface")

	require.NoError(t, m.Synchronize())
	c, err := Classify(m, s)
	require.NoError(t, err)
	assert.Equal(t, []kernel.CurveID{-1, -3}, c.Radial)
	assert.Equal(t, []kernel.CurveID{2}, c.Circular)
	assert.Equal(t, []kernel.PointID{1, 2, 3}, c.Corners)
	assert.Len(t, c.Curves(), 3)

	again, err := Classify(m, s)
	require.NoError(t, err)
	assert.Equal(t, c, again)
}

func TestApply(t *testing.T) {
	m, s, center := wedge(t)
	require.NoError(t, m.Synchronize())

	d := Divisions{Radial: 6, Angular: 9, Bump: 0.5}
	_, err := Apply(m, s, kernel.ArrangementRight, d, NewResolver(center))
	require.NoError(t, err)

	snap := m.Snapshot()
	require.Len(t, snap.CurveConstraints, 3)
	assert.Equal(t, kernel.CurveConstraint{Curve: 1, Count: 6, Bump: 0.5}, snap.CurveConstraints[0])
	assert.Equal(t, kernel.CurveConstraint{Curve: 3, Count: 6, Bump: 0.5}, snap.CurveConstraints[1])
	assert.Equal(t, kernel.CurveConstraint{Curve: 2, Count: 9, Bump: 1}, snap.CurveConstraints[2])
	require.Len(t, snap.SurfaceConstraints, 1)
	assert.Equal(t, []kernel.PointID{center, 2, 3}, snap.SurfaceConstraints[0].Corners)

	// Re-applying the same plan is idempotent; a different count conflicts.
	_, err = Apply(m, s, kernel.ArrangementRight, d, NewResolver(center))
	require.NoError(t, err)
	_, err = Apply(m, s, kernel.ArrangementRight, Divisions{Radial: 7, Angular: 9, Bump: 0.5}, NewResolver(center))
	assert.True(t, errors.Is(err, errors.ErrCodeKernelState))
	assert.ErrorIs(t, err, kernel.ErrConflictingConstraint)
}
