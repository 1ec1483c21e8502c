// Package topology defines the region decomposition shared by the disk and
// sphere builders.
//
// A circular domain of radius ROuter is split by a band of half-thickness A
// centred on radius RInner into up to four concentric regions:
//
//	inner bulk  [0, RInner-A]         unstructured, absent when RInner = A
//	inner band  [RInner-A, RInner]    structured
//	outer band  [RInner, RInner+A]    structured
//	outer bulk  [RInner+A, ROuter]    unstructured, absent when RInner+A = ROuter
//
// The circle at RInner is the interface between the inner and outer
// materials. Each region is cut into angular sectors; one region inside one
// sector is a [Patch].
package topology

import (
	"fmt"
	"math"

	"github.com/matzehuels/tconf/pkg/errors"
	"github.com/matzehuels/tconf/pkg/kernel"
)

// radiusEps decides when a region has collapsed, relative to ROuter.
const radiusEps = 1e-12

// Band describes the banded domain.
type Band struct {
	RInner float64 `json:"r_inner" toml:"r_inner"`
	A      float64 `json:"a" toml:"a"`
	ROuter float64 `json:"r_outer" toml:"r_outer"`
	HBand  float64 `json:"h_band" toml:"h_band"`
	HOuter float64 `json:"h_outer" toml:"h_outer"`
}

// Validate checks the band geometry and the mesh sizes.
func (b Band) Validate() error {
	if err := errors.ValidateBand(b.RInner, b.A, b.ROuter); err != nil {
		return err
	}
	return errors.ValidateMeshSizes(b.HBand, b.HOuter)
}

// Inner returns the inner edge of the band, clamped at zero.
func (b Band) Inner() float64 { return math.Max(0, b.RInner-b.A) }

// Outer returns the outer edge of the band.
func (b Band) Outer() float64 { return b.RInner + b.A }

// HasInnerBulk reports whether an unstructured region lies inside the band.
func (b Band) HasInnerBulk() bool { return b.Inner() > b.eps() }

// HasOuterBulk reports whether an unstructured region lies outside the band.
func (b Band) HasOuterBulk() bool { return b.ROuter-b.Outer() > b.eps() }

// Contains reports whether radius r lies within the band.
func (b Band) Contains(r float64) bool {
	return r >= b.RInner-b.A-b.eps() && r <= b.Outer()+b.eps()
}

func (b Band) eps() float64 { return radiusEps * math.Max(1, math.Abs(b.ROuter)) }

// Side is the material side of the interface.
type Side int

// Sides.
const (
	SideInner Side = iota + 1
	SideOuter
)

// String returns "inner" or "outer".
func (s Side) String() string {
	switch s {
	case SideInner:
		return "inner"
	case SideOuter:
		return "outer"
	default:
		return "unknown"
	}
}

// PatchKind identifies one of the four concentric regions.
type PatchKind int

// Patch kinds, ordered from the center outwards.
const (
	InnerBulk PatchKind = iota + 1
	InnerBand
	OuterBand
	OuterBulk
)

// PatchKinds lists every kind from the center outwards.
var PatchKinds = []PatchKind{InnerBulk, InnerBand, OuterBand, OuterBulk}

// String returns a short name such as "inner band".
func (k PatchKind) String() string {
	switch k {
	case InnerBulk:
		return "inner bulk"
	case InnerBand:
		return "inner band"
	case OuterBand:
		return "outer band"
	case OuterBulk:
		return "outer bulk"
	default:
		return "unknown"
	}
}

// MarshalText encodes k by name.
func (k PatchKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText decodes a name produced by MarshalText.
func (k *PatchKind) UnmarshalText(b []byte) error {
	for _, kind := range PatchKinds {
		if kind.String() == string(b) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown patch kind %q", b)
}

// Side returns the material side of k.
func (k PatchKind) Side() Side {
	if k == InnerBulk || k == InnerBand {
		return SideInner
	}
	return SideOuter
}

// IsBand reports whether k is one of the two structured band regions.
func (k PatchKind) IsBand() bool { return k == InnerBand || k == OuterBand }

// Radii returns the radial extent of k within b.
func (k PatchKind) Radii(b Band) (lo, hi float64) {
	switch k {
	case InnerBulk:
		return 0, b.Inner()
	case InnerBand:
		return b.Inner(), b.RInner
	case OuterBand:
		return b.RInner, b.Outer()
	default:
		return b.Outer(), b.ROuter
	}
}

// Patch is one region inside one sector. Its boundary is always re-queried
// from the kernel.
type Patch struct {
	Kind       PatchKind        `json:"kind"`
	Sector     int              `json:"sector"`
	Surface    kernel.SurfaceID `json:"surface"`
	Structured bool             `json:"structured"`
}

// Side returns the material side of the patch.
func (p Patch) Side() Side { return p.Kind.Side() }

// SectorPoints holds the points on the two rays bounding a sector. Index 0
// is the ray at Theta0 and index 1 the ray at Theta1. Inner points equal
// the center when the inner bulk is absent; Boundary points equal Outer
// when the outer bulk is absent.
type SectorPoints struct {
	Inner    [2]kernel.PointID `json:"inner"`
	Mid      [2]kernel.PointID `json:"mid"`
	Outer    [2]kernel.PointID `json:"outer"`
	Boundary [2]kernel.PointID `json:"boundary"`
}

// Sector is the angular slice [Theta0, Theta1).
type Sector struct {
	Index  int          `json:"index"`
	Theta0 float64      `json:"theta0"`
	Theta1 float64      `json:"theta1"`
	Points SectorPoints `json:"points"`
	// Patches are ordered from the center outwards.
	Patches []Patch `json:"patches"`
	// Interface is the arc at RInner, oriented from Theta0 to Theta1.
	Interface kernel.CurveID `json:"interface"`
	// Boundary is the arc at ROuter, oriented from Theta0 to Theta1.
	Boundary kernel.CurveID `json:"boundary"`
}

// Span returns the angular width of the sector.
func (s Sector) Span() float64 { return s.Theta1 - s.Theta0 }

// Patch returns the patch of the given kind, if built.
func (s Sector) Patch(kind PatchKind) (Patch, bool) {
	for _, p := range s.Patches {
		if p.Kind == kind {
			return p, true
		}
	}
	return Patch{}, false
}

// Names are the physical group names of the model.
type Names struct {
	InnerMaterial string `json:"inner_material" toml:"inner_material"`
	OuterMaterial string `json:"outer_material" toml:"outer_material"`
	Interface     string `json:"interface" toml:"interface"`
	OuterBoundary string `json:"outer_boundary" toml:"outer_boundary"`
}

// DefaultNames returns the default physical group names.
func DefaultNames() Names {
	return Names{
		InnerMaterial: "inner",
		OuterMaterial: "outer",
		Interface:     "interface",
		OuterBoundary: "outer boundary",
	}
}

// WithDefaults fills empty names from DefaultNames.
func (n Names) WithDefaults() Names {
	d := DefaultNames()
	if n.InnerMaterial == "" {
		n.InnerMaterial = d.InnerMaterial
	}
	if n.OuterMaterial == "" {
		n.OuterMaterial = d.OuterMaterial
	}
	if n.Interface == "" {
		n.Interface = d.Interface
	}
	if n.OuterBoundary == "" {
		n.OuterBoundary = d.OuterBoundary
	}
	return n
}
