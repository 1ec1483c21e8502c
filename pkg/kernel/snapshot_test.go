package kernel

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func quarterDisk() *Snapshot {
	return &Snapshot{
		Points: []Point{
			{ID: 1, Pos: r3.Vec{}},
			{ID: 2, Pos: r3.Vec{X: 1}},
			{ID: 3, Pos: r3.Vec{Y: 1}},
		},
		Curves: []Curve{
			{ID: 1, Kind: CurveLine, Start: 1, End: 2},
			{ID: 2, Kind: CurveCircle, Start: 2, Center: 1, End: 3},
			{ID: 3, Kind: CurveLine, Start: 3, End: 1},
		},
		Loops:    []Loop{{ID: 1, Curves: []CurveID{1, 2, 3}}},
		Surfaces: []Surface{{ID: 1, Kind: SurfacePlane, Loop: 1}},
	}
}

func TestSampleArc(t *testing.T) {
	pts := SampleArc(r3.Vec{X: 1}, r3.Vec{}, r3.Vec{Y: 1}, 8)
	require.Len(t, pts, 9)
	for _, p := range pts {
		assert.InDelta(t, 1.0, r3.Norm(p), 1e-12)
		assert.GreaterOrEqual(t, p.X, -1e-12)
		assert.GreaterOrEqual(t, p.Y, -1e-12)
	}
	assert.Equal(t, r3.Vec{Y: 1}, pts[8])
}

func TestArcAngle(t *testing.T) {
	tests := []struct {
		name string
		end  r3.Vec
		want float64
	}{
		{"quarter", r3.Vec{Y: 2}, math.Pi / 2},
		{"third", r3.Vec{X: -1, Y: math.Sqrt(3)}, 2 * math.Pi / 3},
		{"degenerate", r3.Vec{X: 2}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ArcAngle(r3.Vec{X: 2}, r3.Vec{}, tt.end)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestSampleCurveReversed(t *testing.T) {
	s := quarterDisk()
	fwd := s.SampleCurve(2, 4)
	rev := s.SampleCurve(-2, 4)
	require.Len(t, rev, len(fwd))
	assert.Equal(t, fwd[0], rev[len(rev)-1])
	assert.Equal(t, fwd[len(fwd)-1], rev[0])
}

func TestSampleLoopAndBox(t *testing.T) {
	s := quarterDisk()
	pts := s.SampleLoop(1, 16)
	// 1 point per line plus 16 per arc, closing point omitted.
	assert.Len(t, pts, 18)

	box := BoxOf(pts)
	assert.InDelta(t, 0, box.Min.X, 1e-12)
	assert.InDelta(t, 0, box.Min.Y, 1e-12)
	assert.InDelta(t, 1, box.Max.X, 1e-12)
	assert.InDelta(t, 1, box.Max.Y, 1e-12)
}

func TestSnapshotLookups(t *testing.T) {
	s := quarterDisk()
	c, ok := s.Curve(-2)
	require.True(t, ok)
	assert.Equal(t, CurveCircle, c.Kind)

	_, ok = s.Point(0)
	assert.False(t, ok)
	_, ok = s.Surface(2)
	assert.False(t, ok)
	assert.Equal(t, []CurveID{1, 2, 3}, s.SurfaceCurves(1))
}

func TestEntityConversions(t *testing.T) {
	assert.Equal(t, Entity{Dim: DimCurve, Tag: -4}, CurveID(-4).Entity())
	assert.Equal(t, CurveID(4), CurveID(-4).Abs())
	assert.Equal(t, CurveID(-4), CurveID(4).Reversed())
	assert.Equal(t, "(2, 7)", SurfaceID(7).Entity().String())
	assert.Equal(t, "Right", ArrangementRight.String())
	assert.Equal(t, "Circle", CurveCircle.String())
	assert.Equal(t, "Volume", DimVolume.String())
}
