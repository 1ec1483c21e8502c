package topology

import (
	"fmt"

	"github.com/matzehuels/tconf/pkg/kernel"
)

// Regions accumulates region membership. Materials hold entities of
// dimension Dim; boundaries hold entities of dimension Dim-1.
type Regions struct {
	Dim           kernel.Dim `json:"dim"`
	Inner         []int      `json:"inner"`
	Outer         []int      `json:"outer"`
	Interface     []int      `json:"interface"`
	OuterBoundary []int      `json:"outer_boundary"`
}

// MergeRegions concatenates accumulators in order, dropping duplicate
// boundary entries. All parts must share a dimension.
func MergeRegions(dim kernel.Dim, parts ...Regions) Regions {
	out := Regions{Dim: dim}
	seenIface := make(map[int]bool)
	seenBound := make(map[int]bool)
	for _, p := range parts {
		out.Inner = append(out.Inner, p.Inner...)
		out.Outer = append(out.Outer, p.Outer...)
		out.Interface = appendUnique(out.Interface, seenIface, p.Interface)
		out.OuterBoundary = appendUnique(out.OuterBoundary, seenBound, p.OuterBoundary)
	}
	return out
}

func appendUnique(dst []int, seen map[int]bool, src []int) []int {
	for _, v := range src {
		k := v
		if k < 0 {
			k = -k
		}
		if seen[k] {
			continue
		}
		seen[k] = true
		dst = append(dst, k)
	}
	return dst
}

// Group is one physical group to submit.
type Group struct {
	Dim     kernel.Dim
	Name    string
	Members []int
}

// Groups returns the non-empty physical groups in submission order:
// inner material, outer material, interface, outer boundary.
func (r Regions) Groups(names Names) []Group {
	names = names.WithDefaults()
	all := []Group{
		{Dim: r.Dim, Name: names.InnerMaterial, Members: r.Inner},
		{Dim: r.Dim, Name: names.OuterMaterial, Members: r.Outer},
		{Dim: r.Dim - 1, Name: names.Interface, Members: r.Interface},
		{Dim: r.Dim - 1, Name: names.OuterBoundary, Members: r.OuterBoundary},
	}
	out := all[:0]
	for _, g := range all {
		if len(g.Members) > 0 {
			out = append(out, g)
		}
	}
	return out
}

// Submit registers the regions as physical groups in k.
func (r Regions) Submit(k kernel.Kernel, names Names) error {
	for _, g := range r.Groups(names) {
		if _, err := k.AddPhysicalGroup(g.Dim, g.Members, g.Name); err != nil {
			return fmt.Errorf("physical group %q: %w", g.Name, err)
		}
	}
	return nil
}
