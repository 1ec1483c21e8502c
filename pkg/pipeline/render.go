package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/matzehuels/tconf/pkg/errors"
	"github.com/matzehuels/tconf/pkg/kernel"
	"github.com/matzehuels/tconf/pkg/kernel/geoscript"
	"github.com/matzehuels/tconf/pkg/observability"
	"github.com/matzehuels/tconf/pkg/render"
	"github.com/matzehuels/tconf/pkg/render/graph"
	"github.com/matzehuels/tconf/pkg/render/preview"
)

// Render generates output artifacts in the requested formats.
func Render(ctx context.Context, b *Built, summary Summary, opts Options) (map[string][]byte, error) {
	artifacts := make(map[string][]byte)
	for _, format := range opts.Formats {
		data, err := RenderFormat(ctx, b, summary, format, opts)
		if err != nil {
			return nil, err
		}
		artifacts[format] = data
	}
	return artifacts, nil
}

// RenderFormat generates a single artifact.
func RenderFormat(ctx context.Context, b *Built, summary Summary, format string, opts Options) ([]byte, error) {
	var data []byte
	var err error

	switch format {
	case FormatGeo:
		data = geoscript.Bytes(b.Snapshot)
	case FormatMsh:
		data, err = renderMesh(ctx, b, opts)
	case FormatJSON:
		data, err = MarshalSummary(summary)
	case FormatSVG:
		data = preview.RenderSVG(&b.Snapshot, b.Preview(), preview.Options{})
	case FormatPNG:
		data, err = render.ToPNG(preview.RenderSVG(&b.Snapshot, b.Preview(), preview.Options{}), DefaultPNGScale)
	case FormatPDF:
		data, err = render.ToPDF(preview.RenderSVG(&b.Snapshot, b.Preview(), preview.Options{}))
	case FormatDOT:
		data = []byte(graph.ToDOT(&b.Snapshot, b.Patches(), graph.Options{Detailed: true}))
	default:
		return nil, errors.New(errors.ErrCodeInvalidFormat, "unsupported format: %s", format)
	}

	if err != nil {
		return nil, fmt.Errorf("render %s: %w", format, err)
	}
	return data, nil
}

// renderMesh meshes the model into a temporary file and returns its bytes.
func renderMesh(ctx context.Context, b *Built, opts Options) (data []byte, err error) {
	dir, err := os.MkdirTemp("", "tconf-mesh-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)
	out := filepath.Join(dir, "model.msh")

	start := time.Now()
	hooks := observability.Mesh()
	hooks.OnMeshStart(ctx, opts.MeshDim, out)
	defer func() {
		hooks.OnMeshComplete(ctx, opts.MeshDim, out, time.Since(start), err)
	}()

	emitter := b.Emitter()
	if err := emitter.Generate(ctx, kernel.Dim(opts.MeshDim)); err != nil {
		return nil, err
	}
	if err := emitter.Write(ctx, out); err != nil {
		return nil, err
	}
	return os.ReadFile(out)
}
