package transfinite

import (
	"slices"

	"github.com/matzehuels/tconf/pkg/errors"
	"github.com/matzehuels/tconf/pkg/kernel"
)

// Classification is the boundary of one surface as reported by the kernel.
type Classification struct {
	Surface kernel.SurfaceID
	// Radial holds the straight boundary curves, signed as in the loop.
	Radial []kernel.CurveID
	// Circular holds the arc boundary curves, signed as in the loop.
	Circular []kernel.CurveID
	// Corners are the distinct curve endpoints in first-seen order.
	Corners []kernel.PointID
}

// Curves returns every boundary curve, radial first.
func (c Classification) Curves() []kernel.CurveID {
	return append(slices.Clone(c.Radial), c.Circular...)
}

// Classify queries the boundary of s and splits it by curve kind. The
// surface must be synchronized.
func Classify(q kernel.Querier, s kernel.SurfaceID) (Classification, error) {
	bnd, err := q.Boundary(s.Entity())
	if err != nil {
		return Classification{}, errors.Wrap(errors.ErrCodeKernelState, err, "boundary of surface %d", s)
	}

	c := Classification{Surface: s}
	seen := make(map[kernel.PointID]bool)
	for _, e := range bnd {
		curve := e.Curve()
		kind, err := q.CurveKind(curve)
		if err != nil {
			return Classification{}, errors.Wrap(errors.ErrCodeKernelState, err, "kind of curve %d", curve)
		}
		switch kind {
		case kernel.CurveLine:
			c.Radial = append(c.Radial, curve)
		case kernel.CurveCircle:
			c.Circular = append(c.Circular, curve)
		default:
			return Classification{}, errors.New(errors.ErrCodeUnsupported, "curve %d has unsupported kind %s", curve, kind)
		}

		ends, err := q.Boundary(curve.Entity())
		if err != nil {
			return Classification{}, errors.Wrap(errors.ErrCodeKernelState, err, "endpoints of curve %d", curve)
		}
		for _, p := range ends {
			if id := p.Point(); !seen[id] {
				seen[id] = true
				c.Corners = append(c.Corners, id)
			}
		}
	}
	return c, nil
}
