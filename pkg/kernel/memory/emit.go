package memory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/matzehuels/tconf/pkg/errors"
	"github.com/matzehuels/tconf/pkg/kernel"
	"github.com/matzehuels/tconf/pkg/kernel/geoscript"
)

// Generate records the requested mesh dimension. The mesh itself is produced
// by the configured mesher when a .msh file is written.
func (m *Model) Generate(ctx context.Context, dim kernel.Dim) error {
	if err := m.live(); err != nil {
		return err
	}
	if dim < kernel.DimCurve || dim > kernel.DimVolume {
		return errors.New(errors.ErrCodeInvalidInput, "mesh dimension must be 1, 2 or 3, got %d", dim)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.meshDim = dim
	return nil
}

// Write emits the model to path. ".geo" writes the Gmsh script; ".msh" runs
// the mesher on it and requires a prior Generate.
func (m *Model) Write(ctx context.Context, path string) error {
	if err := m.live(); err != nil {
		return err
	}
	if err := errors.ValidateOutputPath(path); err != nil {
		return err
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".geo":
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
		if err := geoscript.Encode(f, m.Snapshot()); err != nil {
			f.Close()
			return fmt.Errorf("write %s: %w", path, err)
		}
		return f.Close()
	case ".msh":
		if m.meshDim == 0 {
			return kernel.ErrNotMeshed
		}
		if m.mesher == nil {
			return errors.New(errors.ErrCodeMesherUnavailable, "no mesher configured")
		}
		m.logger.Debug("meshing", "path", path, "dim", int(m.meshDim))
		return m.mesher.Mesh(ctx, geoscript.Bytes(m.Snapshot()), m.meshDim, path)
	default:
		return errors.New(errors.ErrCodeInvalidFormat, "unsupported model format %q", ext)
	}
}
