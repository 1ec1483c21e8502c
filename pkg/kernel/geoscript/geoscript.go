// Package geoscript serializes a kernel snapshot as a Gmsh .geo script.
//
// The script reproduces the boundary representation exactly (points, lines,
// circle arcs, loops, surfaces and volumes) followed by the transfinite
// constraints and physical groups, so that running
//
//	gmsh model.geo -2 -o model.msh
//
// meshes the same decomposition the builders produced. Entity tags in the
// script equal the kernel handles.
package geoscript

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/matzehuels/tconf/pkg/kernel"
)

// Encode writes the .geo script for snap to w.
func Encode(w io.Writer, snap kernel.Snapshot) error {
	_, err := w.Write(Bytes(snap))
	return err
}

// Bytes returns the .geo script for snap.
func Bytes(snap kernel.Snapshot) []byte {
	var buf bytes.Buffer
	if snap.Name != "" {
		fmt.Fprintf(&buf, "// model: %s\n", snap.Name)
	}
	buf.WriteString("SetFactory(\"Built-in\");\n\n")

	for _, p := range snap.Points {
		fmt.Fprintf(&buf, "Point(%d) = {%s, %s, %s, %s};\n",
			p.ID, num(p.Pos.X), num(p.Pos.Y), num(p.Pos.Z), num(p.Size))
	}
	section(&buf, len(snap.Curves))
	for _, c := range snap.Curves {
		if c.Kind == kernel.CurveCircle {
			fmt.Fprintf(&buf, "Circle(%d) = {%d, %d, %d};\n", c.ID, c.Start, c.Center, c.End)
			continue
		}
		fmt.Fprintf(&buf, "Line(%d) = {%d, %d};\n", c.ID, c.Start, c.End)
	}
	section(&buf, len(snap.Loops))
	for _, l := range snap.Loops {
		fmt.Fprintf(&buf, "Curve Loop(%d) = {%s};\n", l.ID, list(l.Curves))
	}
	section(&buf, len(snap.Surfaces))
	for _, s := range snap.Surfaces {
		switch s.Kind {
		case kernel.SurfacePlane:
			fmt.Fprintf(&buf, "Plane Surface(%d) = {%d};\n", s.ID, s.Loop)
		case kernel.SurfaceSphere:
			fmt.Fprintf(&buf, "Surface(%d) = {%d} In Sphere {%d};\n", s.ID, s.Loop, s.Center)
		default:
			fmt.Fprintf(&buf, "Surface(%d) = {%d};\n", s.ID, s.Loop)
		}
	}
	section(&buf, len(snap.Volumes))
	// Surface loop tags live in the same table as curve loops.
	base := len(snap.Loops)
	for _, v := range snap.Volumes {
		sl := base + int(v.ID)
		fmt.Fprintf(&buf, "Surface Loop(%d) = {%s};\n", sl, list(v.Surfaces))
		fmt.Fprintf(&buf, "Volume(%d) = {%d};\n", v.ID, sl)
	}

	section(&buf, len(snap.CurveConstraints))
	for _, c := range snap.CurveConstraints {
		fmt.Fprintf(&buf, "Transfinite Curve {%d} = %d Using Bump %s;\n", c.Curve, c.Count, num(c.Bump))
	}
	section(&buf, len(snap.SurfaceConstraints))
	for _, s := range snap.SurfaceConstraints {
		if len(s.Corners) == 0 {
			fmt.Fprintf(&buf, "Transfinite Surface {%d} %s;\n", s.Surface, s.Arrangement)
			continue
		}
		fmt.Fprintf(&buf, "Transfinite Surface {%d} = {%s} %s;\n", s.Surface, list(s.Corners), s.Arrangement)
	}

	section(&buf, len(snap.Groups))
	for _, g := range snap.Groups {
		fmt.Fprintf(&buf, "Physical %s(%q, %d) = {%s};\n", g.Dim, g.Name, g.Tag, list(g.Members))
	}
	return buf.Bytes()
}

func section(buf *bytes.Buffer, n int) {
	if n > 0 {
		buf.WriteByte('\n')
	}
}

func list[T ~int](ids []T) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(int(id))
	}
	return strings.Join(parts, ", ")
}

// num formats v with full precision and without negative zero noise.
func num(v float64) string {
	if math.Abs(v) < 1e-15 {
		return "0"
	}
	return strconv.FormatFloat(v, 'g', 17, 64)
}
