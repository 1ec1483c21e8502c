// Package graph renders the patch adjacency graph of a cross-section.
//
// Every patch becomes a node, filled by material side and drawn dashed when
// the patch is meshed unstructured. Two patches are joined when they share a
// boundary curve; edges across the material interface are drawn bold.
//
//	dot := graph.ToDOT(snap, patches, graph.Options{})
//	svg, err := graph.RenderSVG(dot)
//	pdf, err := render.ToPDF(svg)
package graph

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/tconf/pkg/kernel"
	"github.com/matzehuels/tconf/pkg/render"
	"github.com/matzehuels/tconf/pkg/topology"
)

// Options configures adjacency graph rendering.
type Options struct {
	// Detailed includes surface IDs, arrangements and shared curve IDs in
	// labels. When false, only the patch kind and sector are shown.
	Detailed bool
}

var sideColors = map[topology.Side]string{
	topology.SideInner: "#cfe2f3",
	topology.SideOuter: "#fce5cd",
}

// ToDOT converts patches to Graphviz DOT format. Curve sharing is read from
// snap. The resulting DOT string can be rendered using [RenderSVG],
// [RenderPDF], or [RenderPNG].
func ToDOT(snap *kernel.Snapshot, patches []topology.Patch, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("graph G {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  overlap=false;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fontsize=18, margin=\"0.2,0.1\"];\n")
	buf.WriteString("\n")

	arrangements := make(map[kernel.SurfaceID]kernel.Arrangement)
	for _, sc := range snap.SurfaceConstraints {
		arrangements[sc.Surface] = sc.Arrangement
	}

	owners := make(map[kernel.CurveID][]int)
	for i, p := range patches {
		label := fmtLabel(p, arrangements[p.Surface], opts.Detailed)
		fmt.Fprintf(&buf, "  %q [%s];\n", nodeID(p), strings.Join(fmtAttrs(p, label), ", "))
		for _, c := range snap.SurfaceCurves(p.Surface) {
			owners[c.Abs()] = append(owners[c.Abs()], i)
		}
	}

	buf.WriteString("\n")
	for _, c := range slices.Sorted(maps.Keys(owners)) {
		ps := owners[c]
		for i := 0; i < len(ps); i++ {
			for j := i + 1; j < len(ps); j++ {
				a, b := patches[ps[i]], patches[ps[j]]
				fmt.Fprintf(&buf, "  %q -- %q [%s];\n", nodeID(a), nodeID(b), strings.Join(edgeAttrs(a, b, c, opts.Detailed), ", "))
			}
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeID(p topology.Patch) string {
	return fmt.Sprintf("s%d", p.Surface)
}

func fmtLabel(p topology.Patch, arr kernel.Arrangement, detailed bool) string {
	label := fmt.Sprintf("%s\nsector %d", p.Kind, p.Sector)
	if !detailed {
		return label
	}
	parts := []string{fmt.Sprintf("surface: %d", p.Surface)}
	if arr != 0 {
		parts = append(parts, fmt.Sprintf("arrangement: %s", arr))
	}
	return label + "\n" + strings.Join(parts, "\n")
}

func fmtAttrs(p topology.Patch, label string) []string {
	attrs := []string{fmt.Sprintf("label=%q", label), fmt.Sprintf("fillcolor=%q", sideColors[p.Side()])}
	if !p.Structured {
		attrs = append(attrs, "style=\"rounded,filled,dashed\"")
	}
	return attrs
}

func edgeAttrs(a, b topology.Patch, c kernel.CurveID, detailed bool) []string {
	var attrs []string
	if a.Side() != b.Side() {
		attrs = append(attrs, "penwidth=3")
	}
	if detailed {
		attrs = append(attrs, fmt.Sprintf("label=\"c%d\"", c))
	}
	if len(attrs) == 0 {
		attrs = append(attrs, "penwidth=1")
	}
	return attrs
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
// Returns the SVG bytes ready for display or further conversion with [render.ToPDF] or [render.ToPNG].
func RenderSVG(dot string) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}

// RenderPDF renders a DOT graph as PDF via SVG conversion.
//
// Requires librsvg: brew install librsvg (macOS), apt install librsvg2-bin (Linux).
func RenderPDF(dot string) ([]byte, error) {
	svg, err := RenderSVG(dot)
	if err != nil {
		return nil, err
	}
	return render.ToPDF(svg)
}

// RenderPNG renders a DOT graph as PNG via SVG conversion.
// A scale of 2.0 produces a 2x resolution image suitable for high-DPI displays.
//
// Requires librsvg: brew install librsvg (macOS), apt install librsvg2-bin (Linux).
func RenderPNG(dot string, scale float64) ([]byte, error) {
	svg, err := RenderSVG(dot)
	if err != nil {
		return nil, err
	}
	return render.ToPNG(svg, scale)
}
