// Package transfinite computes structured-mesh constraints for band patches.
//
// The package has three parts:
//
//   - [Planner] turns the band geometry and target sizes into division
//     counts and point size hints.
//   - [Classify] and [Resolver] inspect a surface through the kernel, split
//     its boundary into radial and circular curves and fix the corner order.
//   - [Apply] pushes the resulting constraints back into the kernel.
//
// Radial curves (lines) receive the radial division count and the bump
// coefficient; circular curves (arcs) receive the angular count with a
// uniform distribution.
package transfinite

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/matzehuels/tconf/pkg/topology"
)

// MinDivisions is the lower bound for every division count.
const MinDivisions = 4

// Divisions are the per-curve division counts of a structured patch.
type Divisions struct {
	Radial  int     `json:"radial"`
	Angular int     `json:"angular"`
	Bump    float64 `json:"bump"`
}

// PlanDivisions computes division counts for a band of half-thickness a
// meshed at size hBand, whose arcs at radius radiusRef span dTheta radians.
func PlanDivisions(a, hBand, radiusRef, dTheta float64) Divisions {
	return Divisions{
		Radial:  max(MinDivisions, int(math.Ceil(2*a/hBand))),
		Angular: max(MinDivisions, int(math.Ceil(radiusRef*dTheta/hBand))),
		Bump:    1,
	}
}

// Planner derives sizes from a band.
type Planner struct {
	Band topology.Band
	// Bump is applied to radial curves. Zero means uniform.
	Bump float64
}

// NewPlanner returns a planner for b with a uniform radial distribution.
func NewPlanner(b topology.Band) Planner {
	return Planner{Band: b, Bump: 1}
}

// Divisions returns the counts for a sector spanning dTheta radians,
// measured at the interface radius.
func (p Planner) Divisions(dTheta float64) Divisions {
	d := PlanDivisions(p.Band.A, p.Band.HBand, p.Band.RInner, dTheta)
	if p.Bump > 0 {
		d.Bump = p.Bump
	}
	return d
}

// MeshSizeAt returns the size hint for a point: HBand inside the band,
// HOuter elsewhere.
func (p Planner) MeshSizeAt(pos r3.Vec) float64 {
	if p.Band.Contains(r3.Norm(pos)) {
		return p.Band.HBand
	}
	return p.Band.HOuter
}
