package memory

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/matzehuels/tconf/pkg/kernel"
)

// areaSegments is the arc sampling used by Area.
const areaSegments = 512

// visible checks that e exists and was synchronized.
func (m *Model) visible(e kernel.Entity) error {
	if e.Dim < kernel.DimPoint || e.Dim > kernel.DimVolume {
		return fmt.Errorf("entity %s: %w", e, kernel.ErrUnknownEntity)
	}
	tag := abs(e.Tag)
	if tag < 1 || tag > m.count(e.Dim) {
		return fmt.Errorf("entity %s: %w", e, kernel.ErrUnknownEntity)
	}
	if tag > m.synced[e.Dim] {
		return fmt.Errorf("entity %s: %w", e, kernel.ErrNotSynchronized)
	}
	return nil
}

// Boundary returns the entities one dimension below e. Curve boundaries are
// the oriented endpoints; surface boundaries are the signed loop curves.
func (m *Model) Boundary(e kernel.Entity) ([]kernel.Entity, error) {
	if err := m.live(); err != nil {
		return nil, err
	}
	if err := m.visible(e); err != nil {
		return nil, err
	}
	switch e.Dim {
	case kernel.DimCurve:
		a, b := orient(m.curves[abs(e.Tag)-1], e.Curve())
		return []kernel.Entity{a.Entity(), b.Entity()}, nil
	case kernel.DimSurface:
		curves := m.loops[m.surfaces[abs(e.Tag)-1].Loop-1].Curves
		out := make([]kernel.Entity, len(curves))
		for i, c := range curves {
			if e.Tag < 0 {
				c = -c
			}
			out[i] = c.Entity()
		}
		return out, nil
	case kernel.DimVolume:
		surfaces := m.volumes[abs(e.Tag)-1].Surfaces
		out := make([]kernel.Entity, len(surfaces))
		for i, s := range surfaces {
			out[i] = s.Entity()
		}
		return out, nil
	}
	return nil, nil
}

// CurveKind reports the geometric type of c.
func (m *Model) CurveKind(c kernel.CurveID) (kernel.CurveKind, error) {
	if err := m.live(); err != nil {
		return 0, err
	}
	if err := m.visible(c.Entity()); err != nil {
		return 0, err
	}
	return m.curves[c.Abs()-1].Kind, nil
}

// BoundingBox returns the bounds of e computed from its sampled boundary
// curves.
func (m *Model) BoundingBox(e kernel.Entity) (r3.Box, error) {
	if err := m.live(); err != nil {
		return r3.Box{}, err
	}
	if err := m.visible(e); err != nil {
		return r3.Box{}, err
	}
	return m.box(e), nil
}

func (m *Model) box(e kernel.Entity) r3.Box {
	v := m.view()
	switch e.Dim {
	case kernel.DimPoint:
		p := m.points[abs(e.Tag)-1].Pos
		return r3.Box{Min: p, Max: p}
	case kernel.DimCurve:
		return kernel.BoxOf(v.SampleCurve(e.Curve(), kernel.ArcSegments))
	case kernel.DimSurface:
		return kernel.BoxOf(v.SampleLoop(m.surfaces[abs(e.Tag)-1].Loop, kernel.ArcSegments))
	default:
		var b r3.Box
		for i, s := range m.volumes[abs(e.Tag)-1].Surfaces {
			sb := m.box(s.Entity())
			if i == 0 {
				b = sb
				continue
			}
			b = kernel.UnionBox(b, sb)
		}
		return b
	}
}

// Area returns the area of a planar surface.
func (m *Model) Area(s kernel.SurfaceID) (float64, error) {
	if err := m.live(); err != nil {
		return 0, err
	}
	if err := m.visible(s.Entity()); err != nil {
		return 0, err
	}
	surf := m.surfaces[s-1]
	if surf.Kind != kernel.SurfacePlane {
		return 0, fmt.Errorf("area of %s surface %d: %w", surf.Kind, s, kernel.ErrInvalidGeometry)
	}
	pts := m.view().SampleLoop(surf.Loop, areaSegments)
	var n r3.Vec
	for i, p := range pts {
		n = r3.Add(n, r3.Cross(p, pts[(i+1)%len(pts)]))
	}
	return math.Abs(r3.Norm(n)) / 2, nil
}
