// Package kernel defines the contract between the decomposition core and the
// geometry/meshing kernel that owns the geometric model.
//
// # Overview
//
// The core never stores geometry itself. It asks a [Kernel] to create points,
// curves, loops and surfaces, receives opaque typed handles back, and later
// re-queries the kernel for boundaries, curve kinds and bounding boxes. The
// kernel remains the sole owner of every entity.
//
// # Protocol
//
// Queries only see synchronized state. Callers must follow
// produce → [Kernel.Synchronize] → query:
//
//	s, _ := k.AddPlaneSurface(loop)
//	_ = k.Synchronize()
//	bnd, _ := k.Boundary(s.Entity())
//
// A query against an entity created after the last synchronization fails with
// [ErrNotSynchronized].
//
// # Handles
//
// Each entity kind has its own handle type ([PointID], [CurveID], [LoopID],
// [SurfaceID], [VolumeID]) so a curve can never be passed where a point is
// expected. [CurveID] is signed: -c references curve c with reversed
// orientation, which is how two loops share one curve.
package kernel

import (
	"context"

	"gonum.org/v1/gonum/spatial/r3"
)

// Builder creates geometric entities.
type Builder interface {
	// AddPoint creates a point at p with mesh size hint size.
	AddPoint(p r3.Vec, size float64) (PointID, error)

	// AddLine creates a straight curve from a to b.
	AddLine(a, b PointID) (CurveID, error)

	// AddCircleArc creates a circular arc from start to end around center.
	// The arc must span strictly less than π.
	AddCircleArc(start, center, end PointID) (CurveID, error)

	// AddCurveLoop creates a closed loop. Curves are oriented by sign and
	// must connect head to tail.
	AddCurveLoop(curves []CurveID) (LoopID, error)

	// AddPlaneSurface creates a planar surface bounded by loop.
	AddPlaneSurface(loop LoopID) (SurfaceID, error)

	// Revolve sweeps surface s by angle (radians) about the axis with
	// direction axis through origin. It returns the created entities in
	// kernel order: the swept copy of s, the volume, then one lateral
	// surface per non-degenerate boundary curve of s.
	Revolve(s SurfaceID, axis, origin r3.Vec, angle float64) ([]Entity, error)
}

// Querier inspects synchronized entities.
type Querier interface {
	// Boundary returns the lower-dimension entities bounding e, without
	// recursion. Curves bounding a surface carry their orientation sign.
	Boundary(e Entity) ([]Entity, error)

	// CurveKind reports whether c is a line or a circle arc.
	CurveKind(c CurveID) (CurveKind, error)

	// BoundingBox returns the axis-aligned bounds of e.
	BoundingBox(e Entity) (r3.Box, error)
}

// Constrainer records structured-mesh constraints.
type Constrainer interface {
	// SetTransfiniteCurve assigns a division count and bump coefficient.
	// Re-declaring a curve with a different constraint is an error.
	SetTransfiniteCurve(c CurveID, count int, bump float64) error

	// SetTransfiniteSurface declares s structured. corners is either empty
	// or lists 3 or 4 boundary points in order.
	SetTransfiniteSurface(s SurfaceID, arr Arrangement, corners []PointID) error
}

// Kernel is the full capability set consumed by the topology builders.
type Kernel interface {
	Builder
	Querier
	Constrainer

	// AddPhysicalGroup groups entities of one dimension under name and
	// returns the group tag.
	AddPhysicalGroup(dim Dim, tags []int, name string) (int, error)

	// Synchronize makes every created entity visible to queries.
	Synchronize() error
}

// Emitter generates and writes meshes for a built model.
type Emitter interface {
	// Generate requests a mesh of the given dimension.
	Generate(ctx context.Context, dim Dim) error

	// Write emits the model or its mesh to path. The extension selects the
	// output format.
	Write(ctx context.Context, path string) error
}

// Mesher turns a serialized model script into a mesh file.
type Mesher interface {
	Mesh(ctx context.Context, script []byte, dim Dim, out string) error
}
