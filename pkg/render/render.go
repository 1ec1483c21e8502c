// Package render turns built models into pictures.
//
// # Overview
//
// Two renderers live in subpackages:
//
//   - [preview] draws the 2D cross-section as SVG, with the structured grid
//     of every band patch
//   - [graph] draws the patch adjacency graph through Graphviz
//
// Both produce SVG. The [ToPDF] and [ToPNG] functions convert any SVG to
// other formats using the external rsvg-convert tool (from librsvg).
//
//	svg := preview.RenderSVG(snap, sectors, preview.Options{})
//	pdf, err := render.ToPDF(svg)
//	png, err := render.ToPNG(svg, 2.0)  // 2x scale
//
// [preview]: github.com/matzehuels/tconf/pkg/render/preview
// [graph]: github.com/matzehuels/tconf/pkg/render/graph
package render

import (
	"bytes"
	"fmt"
	"os/exec"

	"github.com/matzehuels/tconf/pkg/errors"
)

// ConverterBinary is the external SVG converter.
const ConverterBinary = "rsvg-convert"

// ToPDF converts SVG bytes to PDF using rsvg-convert.
// Requires librsvg: brew install librsvg (macOS), apt install librsvg2-bin (Linux).
func ToPDF(svg []byte) ([]byte, error) {
	return rsvgConvert(svg, "pdf")
}

// ToPNG converts SVG bytes to PNG using rsvg-convert with the given scale factor.
// Scale of 2.0 produces a 2x resolution image.
// Requires librsvg: brew install librsvg (macOS), apt install librsvg2-bin (Linux).
func ToPNG(svg []byte, scale float64) ([]byte, error) {
	return rsvgConvert(svg, "png", "-z", fmt.Sprintf("%.2f", scale))
}

// rsvgConvert shells out to rsvg-convert for format conversion.
func rsvgConvert(svg []byte, format string, extraArgs ...string) ([]byte, error) {
	if _, err := exec.LookPath(ConverterBinary); err != nil {
		return nil, errors.New(errors.ErrCodeUnsupported,
			"%s export requires librsvg. Install with:\n  macOS:  brew install librsvg\n  Linux:  apt install librsvg2-bin", format)
	}

	args := append([]string{"-f", format}, extraArgs...)
	cmd := exec.Command(ConverterBinary, args...)
	cmd.Stdin = bytes.NewReader(svg)

	var out, errBuf bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errBuf

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s: %v: %s", ConverterBinary, err, errBuf.String())
	}
	return out.Bytes(), nil
}
