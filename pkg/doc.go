// Package pkg provides the libraries behind tconf, a builder for structured
// (transfinite) mesh decompositions of banded disks and balls.
//
// # Overview
//
// A thin material band of half-thickness a surrounds an interface circle of
// radius rInner inside a disk of radius rOuter. tconf splits the domain into
// patches so that Gmsh meshes the band as structured grids and everything
// else as unstructured triangles or tetrahedra. The ball is obtained by
// revolving the disk cross-section about the x axis.
//
// # Architecture
//
// The typical data flow:
//
//	Options (flags or TOML)
//	         ↓
//	    [pipeline] package (validate, cache lookup)
//	         ↓
//	    [topology/disk] and [topology/sphere] (create geometry)
//	         ↓
//	    [transfinite] package (divisions, classification, corners)
//	         ↓
//	    [kernel/memory] model (entities and constraints)
//	         ↓
//	    geo/msh/json/svg/png/pdf/dot artifacts
//
// # Quick Start
//
//	import (
//	    "context"
//	    "github.com/matzehuels/tconf/pkg/kernel/geoscript"
//	    "github.com/matzehuels/tconf/pkg/kernel/memory"
//	    "github.com/matzehuels/tconf/pkg/topology"
//	    "github.com/matzehuels/tconf/pkg/topology/disk"
//	)
//
//	m, err := memory.Initialize("disk")
//	if err != nil {
//	    return err
//	}
//	defer m.Finalize()
//
//	_, err = disk.Build(context.Background(), m, disk.Options{
//	    Band:    topology.Band{RInner: 1, A: 0.1, ROuter: 3, HBand: 0.05, HOuter: 0.5},
//	    Sectors: 4,
//	    Names:   topology.DefaultNames(),
//	})
//	script, err := geoscript.Bytes(m.Snapshot())
//
// # Main Packages
//
// [kernel] - The capability contract of a geometry kernel, typed entity
// handles and sentinel errors. [kernel/memory] implements it in memory,
// [kernel/geoscript] serializes a model as a Gmsh .geo script and
// [kernel/gmsh] meshes it with the gmsh binary.
//
// [transfinite] - Division planning, curve classification and corner
// resolution for structured patches.
//
// [topology] - Band, patch and sector types. [topology/disk] builds the 2D
// decomposition, [topology/sphere] revolves it into wedge volumes.
//
// [pipeline] - Orchestration with caching: options, build, render.
//
// [cache] - File, Redis and null caches with content-addressed keys.
//
// [render] - SVG conversion to PNG and PDF. [render/preview] draws the
// cross-section, [render/graph] the patch adjacency graph.
//
// [errors] - Structured error codes and validation helpers.
//
// [observability] - Hooks for builds, mesh runs and cache access.
//
// [buildinfo] - Version information.
package pkg
