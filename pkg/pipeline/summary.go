package pipeline

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/matzehuels/tconf/pkg/topology"
	"github.com/matzehuels/tconf/pkg/transfinite"
)

// modelNamespace scopes model IDs so they never collide with other UUIDv5
// names derived from the same hash.
var modelNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/matzehuels/tconf/model"))

// ModelID returns the stable identifier of the model with the given hash.
// Equal options always yield the same ID.
func ModelID(modelHash string) string {
	return uuid.NewSHA1(modelNamespace, []byte(modelHash)).String()
}

// Summary is the serializable description of a built model. It is the
// payload of the json artifact and of the cached model entry.
type Summary struct {
	ModelID   string                `json:"model_id"`
	Geometry  string                `json:"geometry"`
	Band      topology.Band         `json:"band"`
	HalfAngle float64               `json:"half_angle,omitempty"`
	Divisions transfinite.Divisions `json:"divisions"`
	Sectors   []topology.Sector     `json:"sectors"`
	Regions   topology.Regions      `json:"regions"`
	Groups    []GroupSummary        `json:"groups"`
	Counts    Counts                `json:"counts"`
}

// GroupSummary is one physical group of the model.
type GroupSummary struct {
	Dim     int    `json:"dim"`
	Tag     int    `json:"tag"`
	Name    string `json:"name"`
	Members []int  `json:"members"`
}

// Counts are entity and constraint totals of the model.
type Counts struct {
	Points             int `json:"points"`
	Curves             int `json:"curves"`
	Surfaces           int `json:"surfaces"`
	Volumes            int `json:"volumes"`
	CurveConstraints   int `json:"curve_constraints"`
	SurfaceConstraints int `json:"surface_constraints"`
}

// Structured returns the number of patches meshed as transfinite grids.
func (s Summary) Structured() int {
	n := 0
	for _, sec := range s.Sectors {
		for _, p := range sec.Patches {
			if p.Structured {
				n++
			}
		}
	}
	return n
}

// Patches returns every patch of the cross-section, sector by sector.
func (s Summary) Patches() []topology.Patch {
	var out []topology.Patch
	for _, sec := range s.Sectors {
		out = append(out, sec.Patches...)
	}
	return out
}

// summarize collects the summary of a built model from its snapshot.
func summarize(b *Built, modelHash string) Summary {
	snap := b.Snapshot
	s := Summary{
		ModelID:   ModelID(modelHash),
		Geometry:  b.Geometry,
		Band:      b.Band,
		HalfAngle: b.HalfAngle,
		Divisions: b.Divisions,
		Sectors:   b.Sectors,
		Regions:   b.Regions,
		Counts: Counts{
			Points:             len(snap.Points),
			Curves:             len(snap.Curves),
			Surfaces:           len(snap.Surfaces),
			Volumes:            len(snap.Volumes),
			CurveConstraints:   len(snap.CurveConstraints),
			SurfaceConstraints: len(snap.SurfaceConstraints),
		},
	}
	for _, g := range snap.Groups {
		s.Groups = append(s.Groups, GroupSummary{Dim: int(g.Dim), Tag: g.Tag, Name: g.Name, Members: g.Members})
	}
	return s
}

// MarshalSummary serializes a summary as indented JSON.
func MarshalSummary(s Summary) ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal summary: %w", err)
	}
	return append(data, '\n'), nil
}

// UnmarshalSummary parses a summary produced by MarshalSummary.
func UnmarshalSummary(data []byte) (Summary, error) {
	var s Summary
	if err := json.Unmarshal(data, &s); err != nil {
		return Summary{}, fmt.Errorf("unmarshal summary: %w", err)
	}
	return s, nil
}
