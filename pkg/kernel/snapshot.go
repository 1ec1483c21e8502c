package kernel

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// =============================================================================
// Snapshot Types
// =============================================================================

// Point is a snapshot of a kernel point.
type Point struct {
	ID   PointID
	Pos  r3.Vec
	Size float64
}

// Curve is a snapshot of a kernel curve. Center is set for circle arcs only.
type Curve struct {
	ID     CurveID
	Kind   CurveKind
	Start  PointID
	End    PointID
	Center PointID
}

// Loop is a closed, oriented sequence of curves.
type Loop struct {
	ID     LoopID
	Curves []CurveID
}

// Surface is a snapshot of a kernel surface. Center is set for
// [SurfaceSphere] only.
type Surface struct {
	ID     SurfaceID
	Kind   SurfaceKind
	Loop   LoopID
	Center PointID
}

// Volume is a closed shell of surfaces.
type Volume struct {
	ID       VolumeID
	Surfaces []SurfaceID
}

// CurveConstraint is a transfinite constraint on one curve.
type CurveConstraint struct {
	Curve CurveID
	Count int
	Bump  float64
}

// SurfaceConstraint is a transfinite constraint on one surface. Corners is
// empty when the kernel should infer them.
type SurfaceConstraint struct {
	Surface     SurfaceID
	Arrangement Arrangement
	Corners     []PointID
}

// PhysicalGroup is a named set of same-dimension entities.
type PhysicalGroup struct {
	Dim     Dim
	Tag     int
	Name    string
	Members []int
}

// Snapshot is a read-only copy of a model, ordered by creation. Entity IDs
// are dense and start at 1, so entity i lives at index i-1.
type Snapshot struct {
	Name               string
	Points             []Point
	Curves             []Curve
	Loops              []Loop
	Surfaces           []Surface
	Volumes            []Volume
	CurveConstraints   []CurveConstraint
	SurfaceConstraints []SurfaceConstraint
	Groups             []PhysicalGroup
	MeshDim            Dim
}

// Point returns the point with the given ID.
func (s *Snapshot) Point(id PointID) (Point, bool) {
	if id < 1 || int(id) > len(s.Points) {
		return Point{}, false
	}
	return s.Points[id-1], true
}

// Curve returns the curve with the given ID. The sign of id is ignored.
func (s *Snapshot) Curve(id CurveID) (Curve, bool) {
	id = id.Abs()
	if id < 1 || int(id) > len(s.Curves) {
		return Curve{}, false
	}
	return s.Curves[id-1], true
}

// Loop returns the loop with the given ID.
func (s *Snapshot) Loop(id LoopID) (Loop, bool) {
	if id < 1 || int(id) > len(s.Loops) {
		return Loop{}, false
	}
	return s.Loops[id-1], true
}

// Surface returns the surface with the given ID.
func (s *Snapshot) Surface(id SurfaceID) (Surface, bool) {
	if id < 1 || int(id) > len(s.Surfaces) {
		return Surface{}, false
	}
	return s.Surfaces[id-1], true
}

// SurfaceCurves returns the oriented boundary curves of a surface.
func (s *Snapshot) SurfaceCurves(id SurfaceID) []CurveID {
	surf, ok := s.Surface(id)
	if !ok {
		return nil
	}
	l, ok := s.Loop(surf.Loop)
	if !ok {
		return nil
	}
	return l.Curves
}

// =============================================================================
// Sampling
// =============================================================================

// ArcSegments is the number of segments used to sample a circle arc.
const ArcSegments = 64

// SampleCurve returns points along curve id from its oriented start to its
// oriented end. Lines yield their two endpoints; arcs yield segments+1
// points.
func (s *Snapshot) SampleCurve(id CurveID, segments int) []r3.Vec {
	c, ok := s.Curve(id)
	if !ok {
		return nil
	}
	a, _ := s.Point(c.Start)
	b, _ := s.Point(c.End)

	var pts []r3.Vec
	if c.Kind == CurveCircle {
		o, _ := s.Point(c.Center)
		pts = SampleArc(a.Pos, o.Pos, b.Pos, segments)
	} else {
		pts = []r3.Vec{a.Pos, b.Pos}
	}
	if id < 0 {
		for i, j := 0, len(pts)-1; i < j; i, j = i+1, j-1 {
			pts[i], pts[j] = pts[j], pts[i]
		}
	}
	return pts
}

// SampleLoop returns the closed polyline of a loop without repeating the
// first point.
func (s *Snapshot) SampleLoop(id LoopID, segments int) []r3.Vec {
	l, ok := s.Loop(id)
	if !ok {
		return nil
	}
	var out []r3.Vec
	for _, c := range l.Curves {
		pts := s.SampleCurve(c, segments)
		if len(pts) > 0 {
			out = append(out, pts[:len(pts)-1]...)
		}
	}
	return out
}

// SampleArc samples the short arc from start to end around center. The
// radius is taken from start.
func SampleArc(start, center, end r3.Vec, segments int) []r3.Vec {
	if segments < 1 {
		segments = 1
	}
	u := r3.Sub(start, center)
	v := r3.Sub(end, center)
	r := r3.Norm(u)
	if r == 0 {
		return []r3.Vec{start, end}
	}
	e1 := r3.Scale(1/r, u)
	w := r3.Sub(v, r3.Scale(r3.Dot(v, e1), e1))
	wn := r3.Norm(w)
	if wn == 0 {
		return []r3.Vec{start, end}
	}
	e2 := r3.Scale(1/wn, w)
	phi := ArcAngle(start, center, end)

	pts := make([]r3.Vec, segments+1)
	for i := 0; i <= segments; i++ {
		t := phi * float64(i) / float64(segments)
		pts[i] = r3.Add(center, r3.Add(r3.Scale(r*math.Cos(t), e1), r3.Scale(r*math.Sin(t), e2)))
	}
	pts[0], pts[segments] = start, end
	return pts
}

// ArcAngle returns the angle subtended at center by start and end.
func ArcAngle(start, center, end r3.Vec) float64 {
	u := r3.Sub(start, center)
	v := r3.Sub(end, center)
	nu, nv := r3.Norm(u), r3.Norm(v)
	if nu == 0 || nv == 0 {
		return 0
	}
	cos := r3.Dot(u, v) / (nu * nv)
	return math.Acos(math.Max(-1, math.Min(1, cos)))
}

// BoxOf returns the bounding box of pts.
func BoxOf(pts []r3.Vec) r3.Box {
	if len(pts) == 0 {
		return r3.Box{}
	}
	b := r3.Box{Min: pts[0], Max: pts[0]}
	for _, p := range pts[1:] {
		b = ExtendBox(b, p)
	}
	return b
}

// ExtendBox grows b to include p.
func ExtendBox(b r3.Box, p r3.Vec) r3.Box {
	b.Min = r3.Vec{X: math.Min(b.Min.X, p.X), Y: math.Min(b.Min.Y, p.Y), Z: math.Min(b.Min.Z, p.Z)}
	b.Max = r3.Vec{X: math.Max(b.Max.X, p.X), Y: math.Max(b.Max.Y, p.Y), Z: math.Max(b.Max.Z, p.Z)}
	return b
}

// UnionBox returns the smallest box containing a and b.
func UnionBox(a, b r3.Box) r3.Box {
	return ExtendBox(ExtendBox(a, b.Min), b.Max)
}
