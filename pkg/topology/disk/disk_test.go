package disk

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/tconf/pkg/errors"
	"github.com/matzehuels/tconf/pkg/kernel"
	"github.com/matzehuels/tconf/pkg/kernel/memory"
	"github.com/matzehuels/tconf/pkg/topology"
)

func newModel(t *testing.T) *memory.Model {
	t.Helper()
	m, err := memory.Initialize(t.Name())
	require.NoError(t, err)
	t.Cleanup(m.Finalize)
	return m
}

func band(rInner, a, rOuter float64) topology.Band {
	return topology.Band{RInner: rInner, A: a, ROuter: rOuter, HBand: 0.05, HOuter: 0.5}
}

func countKinds(res *Result) map[topology.PatchKind]int {
	out := make(map[topology.PatchKind]int)
	for _, p := range res.Patches() {
		out[p.Kind]++
	}
	return out
}

func TestBuildScenarios(t *testing.T) {
	tests := []struct {
		name  string
		band  topology.Band
		kinds map[topology.PatchKind]int
		inner int
		outer int
	}{
		{
			name: "full annulus",
			band: band(1, 0.1, 3),
			kinds: map[topology.PatchKind]int{
				topology.InnerBulk: 4, topology.InnerBand: 4,
				topology.OuterBand: 4, topology.OuterBulk: 4,
			},
			inner: 8, outer: 8,
		},
		{
			name:  "band touches center",
			band:  band(1, 1, 3),
			kinds: map[topology.PatchKind]int{topology.InnerBand: 4, topology.OuterBand: 4, topology.OuterBulk: 4},
			inner: 4, outer: 8,
		},
		{
			name:  "band touches boundary",
			band:  band(1, 1, 2),
			kinds: map[topology.PatchKind]int{topology.InnerBand: 4, topology.OuterBand: 4},
			inner: 4, outer: 4,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newModel(t)
			res, err := Build(context.Background(), m, Options{Band: tt.band, Sectors: 4})
			require.NoError(t, err)

			assert.Equal(t, tt.kinds, countKinds(res))
			assert.Len(t, res.Regions.Inner, tt.inner)
			assert.Len(t, res.Regions.Outer, tt.outer)
			assert.Len(t, res.Regions.Interface, 4)
			assert.Len(t, res.Regions.OuterBoundary, 4)

			snap := m.Snapshot()
			require.Len(t, snap.Groups, 4)
			assert.Equal(t, "inner", snap.Groups[0].Name)
			assert.Equal(t, kernel.DimSurface, snap.Groups[0].Dim)
			assert.Len(t, snap.Groups[0].Members, tt.inner)
			assert.Equal(t, "outer", snap.Groups[1].Name)
			assert.Len(t, snap.Groups[1].Members, tt.outer)
			assert.Equal(t, "interface", snap.Groups[2].Name)
			assert.Equal(t, kernel.DimCurve, snap.Groups[2].Dim)
			assert.Equal(t, "outer boundary", snap.Groups[3].Name)
		})
	}
}

func TestBuildPieSlicesLeadWithCenter(t *testing.T) {
	m := newModel(t)
	res, err := Build(context.Background(), m, Options{Band: band(1, 1, 3), Sectors: 4})
	require.NoError(t, err)

	snap := m.Snapshot()
	for _, sec := range res.Sectors {
		p, ok := sec.Patch(topology.InnerBand)
		require.True(t, ok)
		assert.True(t, p.Structured)

		bnd, err := m.Boundary(p.Surface.Entity())
		require.NoError(t, err)
		assert.Len(t, bnd, 3, "pie slice has three edges")

		var found bool
		for _, sc := range snap.SurfaceConstraints {
			if sc.Surface != p.Surface {
				continue
			}
			found = true
			require.Len(t, sc.Corners, 3)
			assert.Equal(t, res.Center, sc.Corners[0])
			assert.Equal(t, kernel.ArrangementRight, sc.Arrangement)
		}
		assert.True(t, found, "sector %d inner band has no surface constraint", sec.Index)
	}
}

func TestBuildTilesDisk(t *testing.T) {
	for _, n := range []int{3, 4, 7, 12} {
		m := newModel(t)
		res, err := Build(context.Background(), m, Options{Band: band(1.5, 0.25, 2.5), Sectors: n})
		require.NoError(t, err)
		require.Len(t, res.Sectors, n)

		assert.Equal(t, 0.0, res.Sectors[0].Theta0)
		for i := 1; i < n; i++ {
			assert.Equal(t, res.Sectors[i-1].Theta1, res.Sectors[i].Theta0)
		}
		assert.InDelta(t, 2*math.Pi, res.Sectors[n-1].Theta1, 1e-12)

		var area float64
		for _, p := range res.Patches() {
			a, err := m.Area(p.Surface)
			require.NoError(t, err)
			assert.Greater(t, a, 0.0)
			area += a
		}
		assert.InDelta(t, math.Pi*2.5*2.5, area, 1e-3, "n=%d", n)
		m.Finalize()
	}
}

func TestBuildInterfaceSharedWithOppositeSign(t *testing.T) {
	m := newModel(t)
	res, err := Build(context.Background(), m, Options{Band: band(1, 0.1, 3), Sectors: 5})
	require.NoError(t, err)

	for _, sec := range res.Sectors {
		refs := make(map[kernel.CurveID]int)
		for _, p := range res.Patches() {
			bnd, err := m.Boundary(p.Surface.Entity())
			require.NoError(t, err)
			for _, e := range bnd {
				if c := e.Curve(); c.Abs() == sec.Interface.Abs() {
					refs[c]++
				}
			}
		}
		assert.Equal(t, map[kernel.CurveID]int{sec.Interface: 1, -sec.Interface: 1}, refs,
			"sector %d", sec.Index)
	}
}

func TestBuildConstraints(t *testing.T) {
	m := newModel(t)
	res, err := Build(context.Background(), m, Options{Band: band(1, 0.1, 3), Sectors: 4, Bump: 0.8})
	require.NoError(t, err)
	assert.Equal(t, 4, res.Divisions.Radial)
	assert.Equal(t, 32, res.Divisions.Angular)
	assert.Equal(t, 0.8, res.Divisions.Bump)

	snap := m.Snapshot()
	assert.Len(t, snap.SurfaceConstraints, 8, "only band patches are structured")
	for _, sc := range snap.SurfaceConstraints {
		assert.Empty(t, sc.Corners, "band quads carry no corner order")
	}
	for _, p := range res.Patches() {
		assert.Equal(t, p.Kind.IsBand(), p.Structured, "patch %v", p.Kind)
	}
	for _, cc := range snap.CurveConstraints {
		c, ok := snap.Curve(cc.Curve)
		require.True(t, ok)
		switch c.Kind {
		case kernel.CurveLine:
			assert.Equal(t, 4, cc.Count)
			assert.Equal(t, 0.8, cc.Bump)
		case kernel.CurveCircle:
			assert.Equal(t, 32, cc.Count)
			assert.Equal(t, 1.0, cc.Bump)
		}
	}
}

func TestBuildRejectsInvalidOptionsWithoutSideEffects(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		code errors.Code
	}{
		{"band crosses center", Options{Band: band(0.5, 1, 3), Sectors: 4}, errors.ErrCodeInvalidBand},
		{"band exceeds domain", Options{Band: band(2.5, 1, 3), Sectors: 4}, errors.ErrCodeInvalidBand},
		{"too few sectors", Options{Band: band(1, 0.1, 3), Sectors: 2}, errors.ErrCodeInvalidInput},
		{"negative bump", Options{Band: band(1, 0.1, 3), Sectors: 4, Bump: -1}, errors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newModel(t)
			_, err := Build(context.Background(), m, tt.opts)
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.GetCode(err))

			snap := m.Snapshot()
			assert.Empty(t, snap.Points)
			assert.Empty(t, snap.Curves)
			assert.Empty(t, snap.Surfaces)
		})
	}
}

func TestBuildSkipGroupsAndNames(t *testing.T) {
	m := newModel(t)
	_, err := Build(context.Background(), m, Options{Band: band(1, 0.1, 3), Sectors: 4, SkipGroups: true})
	require.NoError(t, err)
	assert.Empty(t, m.Snapshot().Groups)
	m.Finalize()

	m = newModel(t)
	names := topology.Names{InnerMaterial: "core", OuterMaterial: "clad"}
	_, err = Build(context.Background(), m, Options{Band: band(1, 0.1, 3), Sectors: 4, Names: names})
	require.NoError(t, err)
	groups := m.Snapshot().Groups
	require.Len(t, groups, 4)
	assert.Equal(t, "core", groups[0].Name)
	assert.Equal(t, "clad", groups[1].Name)
	assert.Equal(t, "interface", groups[2].Name)
}

func TestRayPoints(t *testing.T) {
	m := newModel(t)
	res, err := Build(context.Background(), m, Options{Band: band(1, 1, 2), Sectors: 4})
	require.NoError(t, err)
	// Inner points merge into the center and boundary points into the
	// outer ones, leaving mid and outer on every ray.
	assert.Len(t, res.RayPoints(), 8)
	for _, id := range res.RayPoints() {
		assert.NotEqual(t, res.Center, id)
	}
}
