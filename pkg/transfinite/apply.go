package transfinite

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/matzehuels/tconf/pkg/errors"
	"github.com/matzehuels/tconf/pkg/kernel"
	"github.com/matzehuels/tconf/pkg/topology"
)

// SymmetryTolerance bounds the bounding-box test used for swept surfaces.
const SymmetryTolerance = 1e-6

// BandArrangement returns the arrangement of a 2D band patch: Right on the
// inner side, Left on the outer side.
func BandArrangement(side topology.Side) kernel.Arrangement {
	if side == topology.SideInner {
		return kernel.ArrangementRight
	}
	return kernel.ArrangementLeft
}

// SweptArrangement returns the arrangement of a surface created by a sweep.
// Inner-side surfaces are always Right. Outer-side surfaces are Right only
// when they lie in the z=0 symmetry plane within the first quadrant.
func SweptArrangement(side topology.Side, box r3.Box) kernel.Arrangement {
	if side == topology.SideInner {
		return kernel.ArrangementRight
	}
	onPlane := box.Min.Z > -SymmetryTolerance && box.Max.Z < SymmetryTolerance
	firstQuadrant := box.Min.X >= -SymmetryTolerance && box.Min.Y >= -SymmetryTolerance
	if onPlane && firstQuadrant {
		return kernel.ArrangementRight
	}
	return kernel.ArrangementLeft
}

// Apply classifies s, resolves its corners and pushes the curve and surface
// constraints into k.
func Apply(k kernel.Kernel, s kernel.SurfaceID, arr kernel.Arrangement, d Divisions, r Resolver) (Classification, error) {
	c, err := Classify(k, s)
	if err != nil {
		return c, err
	}
	sc, err := r.Resolve(c, arr)
	if err != nil {
		return c, err
	}

	bump := d.Bump
	if bump <= 0 {
		bump = 1
	}
	for _, curve := range c.Radial {
		if err := k.SetTransfiniteCurve(curve, d.Radial, bump); err != nil {
			return c, errors.Wrap(errors.ErrCodeKernelState, err, "radial curve %d of surface %d", curve, s)
		}
	}
	for _, curve := range c.Circular {
		if err := k.SetTransfiniteCurve(curve, d.Angular, 1); err != nil {
			return c, errors.Wrap(errors.ErrCodeKernelState, err, "circular curve %d of surface %d", curve, s)
		}
	}
	if err := k.SetTransfiniteSurface(s, sc.Arrangement, sc.Corners); err != nil {
		return c, errors.Wrap(errors.ErrCodeKernelState, err, "surface %d", s)
	}
	return c, nil
}
