// Package preview draws the 2D cross-section of a model as SVG.
//
// Patches are filled by material side. Band patches additionally show the
// grid implied by their transfinite divisions: one circle per interior
// radial node and one ray per interior angular node. Node spacing is drawn
// uniform regardless of the bump coefficient.
package preview

import (
	"bytes"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/matzehuels/tconf/pkg/kernel"
	"github.com/matzehuels/tconf/pkg/topology"
	"github.com/matzehuels/tconf/pkg/transfinite"
)

// DefaultSize is the default edge length of the square image in pixels.
const DefaultSize = 800

const (
	margin     = 1.05
	arcSamples = 32
)

// Colors of the preview.
var (
	InnerFill     = "#cfe2f3"
	OuterFill     = "#fce5cd"
	PatchStroke   = "#555555"
	GridStroke    = "#8a8a8a"
	InterfaceLine = "#cc0000"
)

// Model is what the preview needs to know about a built cross-section.
type Model struct {
	Band      topology.Band
	Sectors   []topology.Sector
	Divisions transfinite.Divisions
}

// Options configures rendering.
type Options struct {
	// Size is the edge length in pixels. Zero means DefaultSize.
	Size float64
	// NoGrid hides the structured grid lines.
	NoGrid bool
}

type canvas struct {
	buf   bytes.Buffer
	scale float64
	half  float64
}

func (c *canvas) xy(p r3.Vec) (float64, float64) {
	return c.half + c.scale*p.X, c.half - c.scale*p.Y
}

func (c *canvas) polyline(pts []r3.Vec, closed bool, attrs string) {
	tag := "polyline"
	if closed {
		tag = "polygon"
	}
	fmt.Fprintf(&c.buf, `  <%s points="`, tag)
	for i, p := range pts {
		x, y := c.xy(p)
		if i > 0 {
			c.buf.WriteByte(' ')
		}
		fmt.Fprintf(&c.buf, "%.2f,%.2f", x, y)
	}
	fmt.Fprintf(&c.buf, `" %s/>`+"\n", attrs)
}

// RenderSVG draws the patches of m using the geometry in snap.
func RenderSVG(snap *kernel.Snapshot, m Model, opts Options) []byte {
	size := opts.Size
	if size <= 0 {
		size = DefaultSize
	}
	c := &canvas{half: size / 2, scale: size / (2 * margin * m.Band.ROuter)}

	fmt.Fprintf(&c.buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.1f %.1f" width="%.0f" height="%.0f">`+"\n",
		size, size, size, size)
	c.buf.WriteString(`  <rect width="100%" height="100%" fill="white"/>` + "\n")

	for _, sec := range m.Sectors {
		for _, p := range sec.Patches {
			surf, ok := snap.Surface(p.Surface)
			if !ok {
				continue
			}
			fill := InnerFill
			if p.Side() == topology.SideOuter {
				fill = OuterFill
			}
			c.polyline(snap.SampleLoop(surf.Loop, arcSamples), true,
				fmt.Sprintf(`class="patch %s" fill="%s" stroke="%s" stroke-width="1"`, kindClass(p.Kind), fill, PatchStroke))
		}
	}

	if !opts.NoGrid {
		for _, sec := range m.Sectors {
			for _, p := range sec.Patches {
				if p.Structured {
					c.grid(sec, p, m)
				}
			}
		}
	}

	fmt.Fprintf(&c.buf, `  <circle class="interface" cx="%.2f" cy="%.2f" r="%.2f" fill="none" stroke="%s" stroke-width="2.5"/>`+"\n",
		c.half, c.half, c.scale*m.Band.RInner, InterfaceLine)
	c.buf.WriteString("</svg>\n")
	return c.buf.Bytes()
}

// grid draws the interior grid lines of one band patch.
func (c *canvas) grid(sec topology.Sector, p topology.Patch, m Model) {
	lo, hi := p.Kind.Radii(m.Band)
	attrs := fmt.Sprintf(`class="grid" fill="none" stroke="%s" stroke-width="0.5"`, GridStroke)

	for i := 1; i < m.Divisions.Radial-1; i++ {
		r := lo + (hi-lo)*float64(i)/float64(m.Divisions.Radial-1)
		c.polyline(arc(r, sec.Theta0, sec.Theta1), false, attrs)
	}
	for j := 1; j < m.Divisions.Angular-1; j++ {
		theta := sec.Theta0 + sec.Span()*float64(j)/float64(m.Divisions.Angular-1)
		dir := r3.Vec{X: math.Cos(theta), Y: math.Sin(theta)}
		c.polyline([]r3.Vec{r3.Scale(lo, dir), r3.Scale(hi, dir)}, false, attrs)
	}
}

func arc(r, theta0, theta1 float64) []r3.Vec {
	pts := make([]r3.Vec, arcSamples+1)
	for i := range pts {
		t := theta0 + (theta1-theta0)*float64(i)/arcSamples
		pts[i] = r3.Vec{X: r * math.Cos(t), Y: r * math.Sin(t)}
	}
	return pts
}

func kindClass(k topology.PatchKind) string {
	switch k {
	case topology.InnerBulk:
		return "inner-bulk"
	case topology.InnerBand:
		return "inner-band"
	case topology.OuterBand:
		return "outer-band"
	default:
		return "outer-bulk"
	}
}
