package pipeline

import (
	"context"

	"github.com/matzehuels/tconf/pkg/kernel"
	"github.com/matzehuels/tconf/pkg/kernel/memory"
	"github.com/matzehuels/tconf/pkg/render/preview"
	"github.com/matzehuels/tconf/pkg/topology"
	"github.com/matzehuels/tconf/pkg/topology/disk"
	"github.com/matzehuels/tconf/pkg/topology/sphere"
	"github.com/matzehuels/tconf/pkg/transfinite"
)

// Built is a decomposition held by a live kernel model, ready to render.
type Built struct {
	Geometry  string
	Band      topology.Band
	HalfAngle float64
	Sectors   []topology.Sector
	Divisions transfinite.Divisions
	Regions   topology.Regions

	// Snapshot is the model state after the build.
	Snapshot kernel.Snapshot

	model *memory.Model
}

// Patches returns every patch of the cross-section.
func (b *Built) Patches() []topology.Patch {
	var out []topology.Patch
	for _, s := range b.Sectors {
		out = append(out, s.Patches...)
	}
	return out
}

// Preview returns what the cross-section preview needs.
func (b *Built) Preview() preview.Model {
	return preview.Model{Band: b.Band, Sectors: b.Sectors, Divisions: b.Divisions}
}

// Emitter returns the mesh emitter of the underlying model.
func (b *Built) Emitter() kernel.Emitter {
	return b.model
}

// Build creates the decomposition described by opts in m. It validates and
// defaults opts first, so invalid options never touch the model.
func Build(ctx context.Context, m *memory.Model, opts Options) (*Built, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	b := &Built{Geometry: opts.Geometry, Band: opts.Band, model: m}
	switch opts.Geometry {
	case GeometrySphere:
		res, err := sphere.Build(ctx, m, opts.SphereOptions())
		if err != nil {
			return nil, err
		}
		b.HalfAngle = res.Sweep.HalfAngle
		b.Sectors = res.Disk.Sectors
		b.Divisions = res.Disk.Divisions
		b.Regions = res.Regions
	default:
		res, err := disk.Build(ctx, m, opts.DiskOptions())
		if err != nil {
			return nil, err
		}
		b.Sectors = res.Sectors
		b.Divisions = res.Divisions
		b.Regions = res.Regions
	}
	b.Snapshot = m.Snapshot()
	return b, nil
}
