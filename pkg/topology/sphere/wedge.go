package sphere

import (
	"context"
	"io"

	"github.com/charmbracelet/log"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/matzehuels/tconf/pkg/errors"
	"github.com/matzehuels/tconf/pkg/kernel"
	"github.com/matzehuels/tconf/pkg/topology"
	"github.com/matzehuels/tconf/pkg/transfinite"
)

// XAxis is the revolution axis of the sphere model.
var XAxis = r3.Vec{X: 1}

// Sweep is a symmetric revolution by +HalfAngle and -HalfAngle.
type Sweep struct {
	Axis      r3.Vec
	Origin    r3.Vec
	HalfAngle float64
	// Divisions and Resolver constrain the surfaces swept from structured
	// patches.
	Divisions transfinite.Divisions
	Resolver  transfinite.Resolver
}

// Swept is the output of one revolve.
type Swept struct {
	Top      kernel.SurfaceID   `json:"top"`
	Volume   kernel.VolumeID    `json:"volume"`
	Laterals []kernel.SurfaceID `json:"laterals"`
}

// Surfaces returns the top followed by the laterals.
func (s Swept) Surfaces() []kernel.SurfaceID {
	return append([]kernel.SurfaceID{s.Top}, s.Laterals...)
}

// Wedge is the pair of volumes swept from one patch. Both volumes are
// bounded by the patch itself.
type Wedge struct {
	Patch    topology.Patch `json:"patch"`
	Positive Swept          `json:"positive"`
	Negative Swept          `json:"negative"`
}

// Volumes returns the positive and negative volume.
func (w *Wedge) Volumes() []kernel.VolumeID {
	return []kernel.VolumeID{w.Positive.Volume, w.Negative.Volume}
}

// Laterals returns the lateral surfaces of both sweeps.
func (w *Wedge) Laterals() []kernel.SurfaceID {
	out := append([]kernel.SurfaceID{}, w.Positive.Laterals...)
	return append(out, w.Negative.Laterals...)
}

// Wedges holds the sweeps of one sector. Absent patches leave nil wedges.
type Wedges struct {
	InnerBulk *Wedge `json:"inner_bulk,omitempty"`
	InnerBand *Wedge `json:"inner_band,omitempty"`
	OuterBand *Wedge `json:"outer_band,omitempty"`
	OuterBulk *Wedge `json:"outer_bulk,omitempty"`
}

// All returns the non-nil wedges from the center outwards.
func (w Wedges) All() []*Wedge {
	var out []*Wedge
	for _, x := range []*Wedge{w.InnerBulk, w.InnerBand, w.OuterBand, w.OuterBulk} {
		if x != nil {
			out = append(out, x)
		}
	}
	return out
}

// Inner returns the volumes of the inner material.
func (w Wedges) Inner() []kernel.VolumeID {
	return volumes(w.InnerBulk, w.InnerBand)
}

// Outer returns the volumes of the outer material.
func (w Wedges) Outer() []kernel.VolumeID {
	return volumes(w.OuterBand, w.OuterBulk)
}

// Outermost returns the wedge touching the domain boundary.
func (w Wedges) Outermost() *Wedge {
	if w.OuterBulk != nil {
		return w.OuterBulk
	}
	return w.OuterBand
}

func volumes(ws ...*Wedge) []kernel.VolumeID {
	var out []kernel.VolumeID
	for _, w := range ws {
		if w != nil {
			out = append(out, w.Volumes()...)
		}
	}
	return out
}

// Builder sweeps disk patches into wedges. Surfaces shared between wedges
// are constrained once.
type Builder struct {
	k           kernel.Kernel
	sweep       Sweep
	logger      *log.Logger
	constrained map[kernel.SurfaceID]bool
}

// NewBuilder returns a builder for sweep. A nil logger discards output.
func NewBuilder(k kernel.Kernel, sweep Sweep, logger *log.Logger) *Builder {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Builder{
		k:           k,
		sweep:       sweep,
		logger:      logger,
		constrained: make(map[kernel.SurfaceID]bool),
	}
}

// RevolveSurface sweeps p by +HalfAngle and -HalfAngle in two independent
// revolves and synchronizes. When p is structured, every surface created by
// either sweep is classified and constrained.
func (b *Builder) RevolveSurface(ctx context.Context, p topology.Patch) (*Wedge, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w := &Wedge{Patch: p}
	var err error
	if w.Positive, err = b.revolve(p.Surface, b.sweep.HalfAngle); err != nil {
		return nil, err
	}
	if w.Negative, err = b.revolve(p.Surface, -b.sweep.HalfAngle); err != nil {
		return nil, err
	}
	if err := b.k.Synchronize(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeKernelState, err, "synchronize sweep of surface %d", p.Surface)
	}

	if p.Structured {
		for _, sw := range []Swept{w.Positive, w.Negative} {
			for _, s := range sw.Surfaces() {
				if err := b.constrain(p.Side(), s); err != nil {
					return nil, err
				}
			}
		}
	}
	b.logger.Debug("revolved patch", "kind", p.Kind, "sector", p.Sector, "surface", p.Surface,
		"volumes", w.Volumes())
	return w, nil
}

// CreateWedgeVolumes sweeps the patches of one sector.
func (b *Builder) CreateWedgeVolumes(ctx context.Context, patches []topology.Patch) (Wedges, error) {
	var out Wedges
	for _, p := range patches {
		w, err := b.RevolveSurface(ctx, p)
		if err != nil {
			return out, err
		}
		switch p.Kind {
		case topology.InnerBulk:
			out.InnerBulk = w
		case topology.InnerBand:
			out.InnerBand = w
		case topology.OuterBand:
			out.OuterBand = w
		case topology.OuterBulk:
			out.OuterBulk = w
		}
	}
	return out, nil
}

func (b *Builder) revolve(s kernel.SurfaceID, angle float64) (Swept, error) {
	ents, err := b.k.Revolve(s, b.sweep.Axis, b.sweep.Origin, angle)
	if err != nil {
		return Swept{}, errors.Wrap(errors.ErrCodeKernelState, err, "revolve surface %d by %g", s, angle)
	}
	if len(ents) < 2 || ents[0].Dim != kernel.DimSurface || ents[1].Dim != kernel.DimVolume {
		return Swept{}, errors.New(errors.ErrCodeInternal, "revolve of surface %d returned %v", s, ents)
	}
	out := Swept{Top: ents[0].Surface(), Volume: ents[1].Volume()}
	for _, e := range ents[2:] {
		if e.Dim == kernel.DimSurface {
			out.Laterals = append(out.Laterals, e.Surface())
		}
	}
	return out, nil
}

func (b *Builder) constrain(side topology.Side, s kernel.SurfaceID) error {
	if b.constrained[s] {
		return nil
	}
	box, err := b.k.BoundingBox(s.Entity())
	if err != nil {
		return errors.Wrap(errors.ErrCodeKernelState, err, "bounding box of surface %d", s)
	}
	arr := transfinite.SweptArrangement(side, box)
	if _, err := transfinite.Apply(b.k, s, arr, b.sweep.Divisions, b.sweep.Resolver); err != nil {
		return err
	}
	b.constrained[s] = true
	return nil
}
