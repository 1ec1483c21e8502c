package memory

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/matzehuels/tconf/pkg/kernel"
)

// Revolve sweeps surface s by angle about the axis through origin. The
// result lists the swept copy of s, the new volume, and the lateral surfaces
// in boundary order. Curves lying on the axis produce no lateral surface.
//
// Swept entities that coincide with existing ones are reused, so the
// returned surfaces may predate the call.
func (m *Model) Revolve(s kernel.SurfaceID, axis, origin r3.Vec, angle float64) ([]kernel.Entity, error) {
	if err := m.live(); err != nil {
		return nil, err
	}
	if s < 1 || int(s) > len(m.surfaces) {
		return nil, fmt.Errorf("surface %d: %w", s, kernel.ErrUnknownEntity)
	}
	if r3.Norm(axis) == 0 || !finite(axis) || !finite(origin) {
		return nil, fmt.Errorf("revolve axis %v: %w", axis, kernel.ErrInvalidGeometry)
	}
	if angle == 0 || math.IsNaN(angle) || math.Abs(angle) >= math.Pi {
		return nil, fmt.Errorf("revolve angle %g must be in (-π, π) and non-zero: %w", angle, kernel.ErrInvalidGeometry)
	}

	rv := &revolution{
		m:      m,
		axis:   r3.Unit(axis),
		origin: origin,
		rot:    r3.NewRotation(angle, r3.Unit(axis)),
		points: make(map[kernel.PointID]kernel.PointID),
		sweeps: make(map[kernel.PointID]kernel.CurveID),
		curves: make(map[kernel.CurveID]kernel.CurveID),
	}

	src := m.surfaces[s-1]
	boundary := m.loops[src.Loop-1].Curves

	topCurves := make([]kernel.CurveID, len(boundary))
	for i, c := range boundary {
		tc, err := rv.curve(c.Abs())
		if err != nil {
			return nil, err
		}
		if c < 0 {
			tc = -tc
		}
		topCurves[i] = tc
	}
	var topCenter kernel.PointID
	if src.Kind == kernel.SurfaceSphere {
		topCenter = rv.point(src.Center)
	}
	top, err := m.surfaceFor(src.Kind, topCurves, topCenter)
	if err != nil {
		return nil, err
	}

	var laterals []kernel.SurfaceID
	for _, c := range boundary {
		cv := m.curves[c.Abs()-1]
		sa, err := rv.sweep(cv.Start)
		if err != nil {
			return nil, err
		}
		sb, err := rv.sweep(cv.End)
		if err != nil {
			return nil, err
		}
		if sa == 0 && sb == 0 {
			continue
		}
		loop := []kernel.CurveID{cv.ID}
		if sb != 0 {
			loop = append(loop, sb)
		}
		loop = append(loop, -rv.curves[cv.ID])
		if sa != 0 {
			loop = append(loop, -sa)
		}
		kind, center := rv.lateralKind(cv)
		lat, err := m.surfaceFor(kind, loop, center)
		if err != nil {
			return nil, err
		}
		laterals = append(laterals, lat)
	}

	vol := m.addVolume(append([]kernel.SurfaceID{s, top}, laterals...))

	out := make([]kernel.Entity, 0, len(laterals)+2)
	out = append(out, top.Entity(), vol.Entity())
	for _, l := range laterals {
		out = append(out, l.Entity())
	}
	m.logger.Debug("revolved surface",
		"surface", s, "angle", angle, "top", top, "volume", vol, "laterals", len(laterals))
	return out, nil
}

// revolution memoizes the images of one Revolve call.
type revolution struct {
	m      *Model
	axis   r3.Vec
	origin r3.Vec
	rot    r3.Rotation

	points map[kernel.PointID]kernel.PointID
	sweeps map[kernel.PointID]kernel.CurveID
	curves map[kernel.CurveID]kernel.CurveID
}

// onAxis reports whether p lies on the rotation axis.
func (rv *revolution) onAxis(p r3.Vec) bool {
	d := r3.Sub(p, rv.origin)
	radial := r3.Sub(d, r3.Scale(r3.Dot(d, rv.axis), rv.axis))
	return r3.Norm(radial) <= Tolerance*math.Max(1, r3.Norm(d))
}

// point returns the image of p, reusing a coincident point if one exists.
func (rv *revolution) point(p kernel.PointID) kernel.PointID {
	if q, ok := rv.points[p]; ok {
		return q
	}
	src := rv.m.points[p-1]
	q := p
	if !rv.onAxis(src.Pos) {
		pos := r3.Add(rv.origin, rv.rot.Rotate(r3.Sub(src.Pos, rv.origin)))
		q = rv.m.pointAt(pos, src.Size)
	}
	rv.points[p] = q
	return q
}

// sweep returns the arc traced by p, or 0 when p lies on the axis.
func (rv *revolution) sweep(p kernel.PointID) (kernel.CurveID, error) {
	if c, ok := rv.sweeps[p]; ok {
		return c, nil
	}
	src := rv.m.points[p-1]
	if rv.onAxis(src.Pos) {
		rv.sweeps[p] = 0
		return 0, nil
	}
	d := r3.Sub(src.Pos, rv.origin)
	foot := r3.Add(rv.origin, r3.Scale(r3.Dot(d, rv.axis), rv.axis))
	center := rv.m.pointAt(foot, src.Size)
	c, err := rv.m.curveFor(kernel.CurveCircle, p, rv.point(p), center)
	if err != nil {
		return 0, err
	}
	rv.sweeps[p] = c
	return c, nil
}

// curve returns the image of an unsigned curve.
func (rv *revolution) curve(c kernel.CurveID) (kernel.CurveID, error) {
	if img, ok := rv.curves[c]; ok {
		return img, nil
	}
	cv := rv.m.curves[c-1]
	a, b := rv.point(cv.Start), rv.point(cv.End)
	var center kernel.PointID
	if cv.Kind == kernel.CurveCircle {
		center = rv.point(cv.Center)
	}
	img := c
	if a != cv.Start || b != cv.End || center != cv.Center {
		var err error
		if img, err = rv.m.curveFor(cv.Kind, a, b, center); err != nil {
			return 0, err
		}
	}
	rv.curves[c] = img
	return img, nil
}

// lateralKind picks the representation of the surface swept by c. A line
// perpendicular to the axis sweeps a plane and an arc centered on the axis
// sweeps part of a sphere. Everything else is a ruled patch.
func (rv *revolution) lateralKind(c kernel.Curve) (kernel.SurfaceKind, kernel.PointID) {
	a := rv.m.points[c.Start-1].Pos
	b := rv.m.points[c.End-1].Pos
	switch c.Kind {
	case kernel.CurveLine:
		dir := r3.Sub(b, a)
		if math.Abs(r3.Dot(dir, rv.axis)) <= Tolerance*math.Max(1, r3.Norm(dir)) {
			return kernel.SurfacePlane, 0
		}
	case kernel.CurveCircle:
		if rv.onAxis(rv.m.points[c.Center-1].Pos) {
			return kernel.SurfaceSphere, c.Center
		}
	}
	return kernel.SurfaceRuled, 0
}

// pointAt returns an existing point at pos or creates one.
func (m *Model) pointAt(pos r3.Vec, size float64) kernel.PointID {
	for _, p := range m.points {
		if same(p.Pos, pos) {
			return p.ID
		}
	}
	return m.addPoint(pos, size)
}

// curveFor returns an existing curve joining a and b (signed by direction)
// or creates one.
func (m *Model) curveFor(kind kernel.CurveKind, a, b, center kernel.PointID) (kernel.CurveID, error) {
	for _, c := range m.curves {
		if c.Kind != kind || c.Center != center {
			continue
		}
		switch {
		case c.Start == a && c.End == b:
			return c.ID, nil
		case c.Start == b && c.End == a:
			return -c.ID, nil
		}
	}
	if kind == kernel.CurveCircle {
		return m.AddCircleArc(a, center, b)
	}
	return m.AddLine(a, b)
}

// surfaceFor returns an existing surface bounded by the same curves or
// creates a loop and surface.
func (m *Model) surfaceFor(kind kernel.SurfaceKind, curves []kernel.CurveID, center kernel.PointID) (kernel.SurfaceID, error) {
	key := curveSet(curves)
	for _, s := range m.surfaces {
		if slices.Equal(curveSet(m.loops[s.Loop-1].Curves), key) {
			return s.ID, nil
		}
	}
	if err := m.checkClosed(curves); err != nil {
		return 0, err
	}
	return m.addSurface(kind, m.addLoop(curves), center), nil
}

func curveSet(curves []kernel.CurveID) []kernel.CurveID {
	out := make([]kernel.CurveID, len(curves))
	for i, c := range curves {
		out[i] = c.Abs()
	}
	slices.Sort(out)
	return out
}
