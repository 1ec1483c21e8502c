package pipeline

import (
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/tconf/pkg/errors"
)

// fileConfig maps the keys of a TOML parameter file:
//
//	geometry = "sphere"
//	sectors = 8
//	formats = ["geo", "svg"]
//
//	[band]
//	r_inner = 1.0
//	a = 0.1
//	r_outer = 3.0
//
//	[names]
//	interface = "gamma"
type fileConfig struct {
	Geometry  string   `toml:"geometry"`
	Sectors   int      `toml:"sectors"`
	HalfAngle float64  `toml:"half_angle"`
	Bump      float64  `toml:"bump"`
	Formats   []string `toml:"formats"`
	MeshDim   int      `toml:"mesh_dim"`
	Threads   int      `toml:"threads"`

	Band struct {
		RInner float64 `toml:"r_inner"`
		A      float64 `toml:"a"`
		ROuter float64 `toml:"r_outer"`
		HBand  float64 `toml:"h_band"`
		HOuter float64 `toml:"h_outer"`
	} `toml:"band"`

	Names struct {
		InnerMaterial string `toml:"inner_material"`
		OuterMaterial string `toml:"outer_material"`
		Interface     string `toml:"interface"`
		OuterBoundary string `toml:"outer_boundary"`
	} `toml:"names"`
}

// LoadConfigFile overlays the keys defined in the TOML file at path onto
// opts. Keys absent from the file leave opts untouched, so callers can apply
// defaults before and explicit overrides after loading. Unknown keys are
// rejected.
func LoadConfigFile(path string, opts *Options) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "load config %s", path)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return errors.New(errors.ErrCodeInvalidInput, "load config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}

	if meta.IsDefined("geometry") {
		opts.Geometry = strings.TrimSpace(raw.Geometry)
	}
	if meta.IsDefined("sectors") {
		opts.Sectors = raw.Sectors
	}
	if meta.IsDefined("half_angle") {
		opts.HalfAngle = raw.HalfAngle
	}
	if meta.IsDefined("bump") {
		opts.Bump = raw.Bump
	}
	if meta.IsDefined("formats") {
		opts.Formats = raw.Formats
	}
	if meta.IsDefined("mesh_dim") {
		opts.MeshDim = raw.MeshDim
	}
	if meta.IsDefined("threads") {
		opts.Threads = raw.Threads
	}

	if meta.IsDefined("band", "r_inner") {
		opts.Band.RInner = raw.Band.RInner
	}
	if meta.IsDefined("band", "a") {
		opts.Band.A = raw.Band.A
	}
	if meta.IsDefined("band", "r_outer") {
		opts.Band.ROuter = raw.Band.ROuter
	}
	if meta.IsDefined("band", "h_band") {
		opts.Band.HBand = raw.Band.HBand
	}
	if meta.IsDefined("band", "h_outer") {
		opts.Band.HOuter = raw.Band.HOuter
	}

	if meta.IsDefined("names", "inner_material") {
		opts.Names.InnerMaterial = strings.TrimSpace(raw.Names.InnerMaterial)
	}
	if meta.IsDefined("names", "outer_material") {
		opts.Names.OuterMaterial = strings.TrimSpace(raw.Names.OuterMaterial)
	}
	if meta.IsDefined("names", "interface") {
		opts.Names.Interface = strings.TrimSpace(raw.Names.Interface)
	}
	if meta.IsDefined("names", "outer_boundary") {
		opts.Names.OuterBoundary = strings.TrimSpace(raw.Names.OuterBoundary)
	}

	opts.validated = false
	return nil
}
