package kernel

import (
	"errors"
	"fmt"
)

// Sentinel errors reported by kernel implementations.
var (
	// ErrNotSynchronized is returned when a query references an entity
	// created after the last Synchronize.
	ErrNotSynchronized = errors.New("entity not synchronized")

	// ErrUnknownEntity is returned for handles the model never issued.
	ErrUnknownEntity = errors.New("unknown entity")

	// ErrInvalidGeometry is returned when a creation request is
	// geometrically impossible (open loop, arc of π or more, ...).
	ErrInvalidGeometry = errors.New("invalid geometry")

	// ErrConflictingConstraint is returned when a curve already carries a
	// different transfinite constraint.
	ErrConflictingConstraint = errors.New("conflicting transfinite constraint")

	// ErrFinalized is returned by every call on a finalized model.
	ErrFinalized = errors.New("model finalized")

	// ErrBusy is returned when another model already holds the process-wide
	// kernel.
	ErrBusy = errors.New("kernel already initialized")

	// ErrNotMeshed is returned when a mesh is written before Generate.
	ErrNotMeshed = errors.New("mesh not generated")
)

// Dim is the topological dimension of an entity.
type Dim int

// Entity dimensions.
const (
	DimPoint   Dim = 0
	DimCurve   Dim = 1
	DimSurface Dim = 2
	DimVolume  Dim = 3
)

// String returns the Gmsh keyword for the dimension.
func (d Dim) String() string {
	switch d {
	case DimPoint:
		return "Point"
	case DimCurve:
		return "Curve"
	case DimSurface:
		return "Surface"
	case DimVolume:
		return "Volume"
	default:
		return fmt.Sprintf("Dim(%d)", int(d))
	}
}

// PointID references a point owned by the kernel.
type PointID int

// CurveID references a curve. The sign carries orientation.
type CurveID int

// LoopID references a closed curve loop.
type LoopID int

// SurfaceID references a surface.
type SurfaceID int

// VolumeID references a volume.
type VolumeID int

// Abs returns the unsigned curve handle.
func (c CurveID) Abs() CurveID {
	if c < 0 {
		return -c
	}
	return c
}

// Reversed returns the same curve with opposite orientation.
func (c CurveID) Reversed() CurveID { return -c }

// Entity returns the (dim, tag) pair for p.
func (p PointID) Entity() Entity { return Entity{Dim: DimPoint, Tag: int(p)} }

// Entity returns the (dim, tag) pair for c, keeping the sign.
func (c CurveID) Entity() Entity { return Entity{Dim: DimCurve, Tag: int(c)} }

// Entity returns the (dim, tag) pair for s.
func (s SurfaceID) Entity() Entity { return Entity{Dim: DimSurface, Tag: int(s)} }

// Entity returns the (dim, tag) pair for v.
func (v VolumeID) Entity() Entity { return Entity{Dim: DimVolume, Tag: int(v)} }

// Entity is a dimension-tagged handle as exchanged with the kernel.
type Entity struct {
	Dim Dim
	Tag int
}

// String formats e as "(dim, tag)".
func (e Entity) String() string { return fmt.Sprintf("(%d, %d)", int(e.Dim), e.Tag) }

// Point returns e as a point handle.
func (e Entity) Point() PointID { return PointID(e.Tag) }

// Curve returns e as a signed curve handle.
func (e Entity) Curve() CurveID { return CurveID(e.Tag) }

// Surface returns e as a surface handle.
func (e Entity) Surface() SurfaceID { return SurfaceID(e.Tag) }

// Volume returns e as a volume handle.
func (e Entity) Volume() VolumeID { return VolumeID(e.Tag) }

// CurveKind classifies a curve's geometry.
type CurveKind int

// Curve kinds.
const (
	CurveLine CurveKind = iota + 1
	CurveCircle
)

// String returns the kernel type name.
func (k CurveKind) String() string {
	switch k {
	case CurveLine:
		return "Line"
	case CurveCircle:
		return "Circle"
	default:
		return "Unknown"
	}
}

// Arrangement is the orientation convention used to lay a structured grid
// onto a surface.
type Arrangement int

// Arrangements.
const (
	ArrangementRight Arrangement = iota + 1
	ArrangementLeft
)

// String returns the Gmsh keyword.
func (a Arrangement) String() string {
	switch a {
	case ArrangementRight:
		return "Right"
	case ArrangementLeft:
		return "Left"
	default:
		return "Unknown"
	}
}

// SurfaceKind describes how a surface is represented geometrically.
type SurfaceKind int

// Surface kinds.
const (
	// SurfacePlane is a planar surface.
	SurfacePlane SurfaceKind = iota + 1
	// SurfaceSphere lies on the sphere around Surface.Center.
	SurfaceSphere
	// SurfaceRuled is interpolated from its 3 or 4 boundary curves.
	SurfaceRuled
)

// String returns a short name.
func (k SurfaceKind) String() string {
	switch k {
	case SurfacePlane:
		return "plane"
	case SurfaceSphere:
		return "sphere"
	case SurfaceRuled:
		return "ruled"
	default:
		return "unknown"
	}
}
