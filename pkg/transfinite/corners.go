package transfinite

import (
	"slices"

	"github.com/matzehuels/tconf/pkg/errors"
	"github.com/matzehuels/tconf/pkg/kernel"
)

// Default bounds of the low-ID block used by the corner fallback.
const (
	DefaultFallbackLo kernel.PointID = 2
	DefaultFallbackHi kernel.PointID = 20
)

// Resolver fixes the corner order of triangular surfaces.
//
// A triangular surface is meshed as a degenerate quadrilateral whose
// collapsed edge sits at the first corner. Builders track the points that
// should take that role (the disk center, then points on the revolution
// axis) as Apexes, in priority order. When none of them bounds the surface,
// the first corner whose ID lies outside [FallbackLo, FallbackHi] leads; if
// every corner lies inside, the first-seen order is kept.
type Resolver struct {
	Apexes     []kernel.PointID
	FallbackLo kernel.PointID
	FallbackHi kernel.PointID
}

// NewResolver returns a resolver tracking apexes with the default fallback
// block.
func NewResolver(apexes ...kernel.PointID) Resolver {
	return Resolver{
		Apexes:     apexes,
		FallbackLo: DefaultFallbackLo,
		FallbackHi: DefaultFallbackHi,
	}
}

// Resolve builds the surface constraint for c. Quadrilaterals get the
// arrangement only; triangles also get an explicit corner order. Any other
// corner count is a [errors.ErrCodeClassifierAmbiguity] error.
func (r Resolver) Resolve(c Classification, arr kernel.Arrangement) (kernel.SurfaceConstraint, error) {
	sc := kernel.SurfaceConstraint{Surface: c.Surface, Arrangement: arr}
	switch len(c.Corners) {
	case 4:
		return sc, nil
	case 3:
		sc.Corners = rotate(c.Corners, r.lead(c.Corners))
		return sc, nil
	default:
		return sc, errors.New(errors.ErrCodeClassifierAmbiguity,
			"surface %d has %d corners, want 3 or 4", c.Surface, len(c.Corners))
	}
}

// lead returns the index of the corner that should come first.
func (r Resolver) lead(corners []kernel.PointID) int {
	for _, apex := range r.Apexes {
		if i := slices.Index(corners, apex); i >= 0 {
			return i
		}
	}
	for i, p := range corners {
		if p < r.FallbackLo || p > r.FallbackHi {
			return i
		}
	}
	return 0
}

func rotate(corners []kernel.PointID, i int) []kernel.PointID {
	out := make([]kernel.PointID, 0, len(corners))
	out = append(out, corners[i:]...)
	return append(out, corners[:i]...)
}
