package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"

	"github.com/matzehuels/tconf/pkg/pipeline"
)

// modelFlags holds the command-line flags shared by disk and sphere.
type modelFlags struct {
	rInner, a, rOuter float64
	hBand, hOuter     float64
	sectors           int
	halfAngle         float64 // sphere only
	bump              float64
	meshDim           int
	threads           int

	innerName     string
	outerName     string
	interfaceName string
	boundaryName  string

	outs    []string
	config  string
	noCache bool
	refresh bool
	redis   string
}

// bind registers the flags on cmd.
func (f *modelFlags) bind(cmd *cobra.Command, sphere bool) {
	fs := cmd.Flags()
	fs.Float64Var(&f.a, "a", 0, "half-thickness of the band")
	fs.Float64Var(&f.rInner, "rInner", 0, "radius of the material interface")
	fs.Float64Var(&f.rOuter, "rOuter", 0, "radius of the outer boundary")
	fs.Float64Var(&f.hBand, "h_band", pipeline.DefaultHBand, "mesh size inside the band")
	fs.Float64Var(&f.hOuter, "h_outer", pipeline.DefaultHOuter, "mesh size at the outer boundary")
	fs.IntVar(&f.sectors, "sectors", pipeline.DefaultSectors, "number of angular sectors")
	fs.Float64Var(&f.bump, "bump", pipeline.DefaultBump, "bump coefficient of radial band curves")
	fs.IntVar(&f.threads, "threads", 0, "gmsh threads for msh output (0: gmsh default)")
	fs.StringVar(&f.innerName, "inner-name", "", "physical group name of the inner material")
	fs.StringVar(&f.outerName, "outer-name", "", "physical group name of the outer material")
	fs.StringVar(&f.interfaceName, "interface-name", "", "physical group name of the interface")
	fs.StringVar(&f.boundaryName, "boundary-name", "", "physical group name of the outer boundary")

	fs.StringArrayVarP(&f.outs, "out", "o", nil, "output file; the extension picks the format: geo, msh, json, svg, png, pdf, dot (repeatable)")
	fs.StringVar(&f.config, "config", "", "TOML parameter file; explicit flags override its values, --out decides the formats")
	fs.BoolVar(&f.noCache, "no-cache", false, "disable caching")
	fs.BoolVar(&f.refresh, "refresh", false, "rebuild even if cached")
	fs.StringVar(&f.redis, "redis", "", "Redis address or URL for a shared cache (default $"+redisEnv+")")

	completeOutputs(cmd, modelFormats...)
	completeConfig(cmd)

	if sphere {
		fs.Float64Var(&f.halfAngle, "half-angle", pipeline.DefaultHalfAngle, "sweep in each direction about the x axis, in radians")
		fs.IntVar(&f.meshDim, "mesh-dim", 3, "mesh dimension for msh output")
	} else {
		fs.IntVar(&f.meshDim, "mesh-dim", 2, "mesh dimension for msh output")
	}
}

// options builds pipeline options from the config file and the flags.
// Without a config file every flag applies; with one, only flags set on the
// command line override it.
func (f *modelFlags) options(cmd *cobra.Command, geometry string) (pipeline.Options, error) {
	opts := pipeline.Options{Geometry: geometry}
	if f.config != "" {
		if err := pipeline.LoadConfigFile(f.config, &opts); err != nil {
			return opts, err
		}
		if opts.Geometry != geometry {
			return opts, fmt.Errorf("config %s describes a %s, not a %s", f.config, opts.Geometry, geometry)
		}
	}
	apply := func(name string) bool {
		return f.config == "" || cmd.Flags().Changed(name)
	}

	if apply("rInner") {
		opts.Band.RInner = f.rInner
	}
	if apply("a") {
		opts.Band.A = f.a
	}
	if apply("rOuter") {
		opts.Band.ROuter = f.rOuter
	}
	if apply("h_band") {
		opts.Band.HBand = f.hBand
	}
	if apply("h_outer") {
		opts.Band.HOuter = f.hOuter
	}
	if apply("sectors") {
		opts.Sectors = f.sectors
	}
	if apply("bump") {
		opts.Bump = f.bump
	}
	if apply("threads") {
		opts.Threads = f.threads
	}
	if apply("mesh-dim") {
		opts.MeshDim = f.meshDim
	}
	if geometry == pipeline.GeometrySphere && apply("half-angle") {
		opts.HalfAngle = f.halfAngle
	}
	if f.innerName != "" {
		opts.Names.InnerMaterial = f.innerName
	}
	if f.outerName != "" {
		opts.Names.OuterMaterial = f.outerName
	}
	if f.interfaceName != "" {
		opts.Names.Interface = f.interfaceName
	}
	if f.boundaryName != "" {
		opts.Names.OuterBoundary = f.boundaryName
	}
	opts.Refresh = f.refresh

	// --out decides the formats; a config file's list only serves the
	// pipeline API.
	if f.config != "" && len(opts.Formats) > 0 {
		loggerFromContext(cmd.Context()).Warn("ignoring formats from config, --out decides", "config", f.config, "formats", opts.Formats)
	}

	// stdout only carries the script
	opts.Formats = []string{pipeline.FormatGeo}
	if len(f.outs) > 0 {
		opts.Formats = nil
		for _, out := range f.outs {
			format, err := pipeline.FormatFromPath(out)
			if err != nil {
				return opts, err
			}
			if !slices.Contains(opts.Formats, format) {
				opts.Formats = append(opts.Formats, format)
			}
		}
	}
	return opts, nil
}

// modelCommand creates a build command for geometry.
func (c *CLI) modelCommand(geometry, short, long string) *cobra.Command {
	var flags modelFlags

	cmd := &cobra.Command{
		Use:   geometry,
		Short: short,
		Long:  long,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options(cmd, geometry)
			if err != nil {
				return err
			}
			return c.runModel(cmd.Context(), opts, &flags)
		},
	}
	flags.bind(cmd, geometry == pipeline.GeometrySphere)
	return cmd
}

func (c *CLI) diskCommand() *cobra.Command {
	return c.modelCommand(pipeline.GeometryDisk,
		"Build the transfinite decomposition of a banded disk",
		`Build the transfinite decomposition of a banded disk.

The disk of radius --rOuter carries a band of half-thickness --a around the
interface circle of radius --rInner. Each of the --sectors angular sectors is
split into up to four patches; the two band patches are meshed as structured
grids, the bulk patches are left unstructured.

Without --out the Gmsh script is written to stdout. The formats always follow
the --out extensions, also when --config is given.

Examples:
  tconf disk --rInner 1 --a 0.1 --rOuter 3 -o disk.geo
  tconf disk --rInner 1 --a 0.1 --rOuter 3 --h_band 0.02 -o disk.msh -o disk.svg
  tconf disk --config band.toml --sectors 8 -o disk.json
  tconf disk --rInner 1 --a 0.1 --rOuter 3 --inner-name core --outer-name matrix`)
}

func (c *CLI) sphereCommand() *cobra.Command {
	return c.modelCommand(pipeline.GeometrySphere,
		"Build the transfinite decomposition of a banded ball",
		`Build the transfinite decomposition of a banded ball.

The disk decomposition is revolved about the x axis by --half-angle in both
directions. The default of π/2 covers the whole ball. Every band patch becomes
two structured wedge volumes. --sectors must be even so that the axis lies on
sector boundaries.

Without --out the Gmsh script is written to stdout. The formats always follow
the --out extensions, also when --config is given.

Examples:
  tconf sphere --rInner 1 --a 0.1 --rOuter 3 -o ball.geo
  tconf sphere --rInner 1 --a 0.1 --rOuter 3 --half-angle 0.3927 -o wedge.msh`)
}

// runModel executes the pipeline and writes the requested outputs.
func (c *CLI) runModel(ctx context.Context, opts pipeline.Options, flags *modelFlags) error {
	logger := loggerFromContext(ctx)
	opts.Logger = logger

	runner, err := c.newRunner(ctx, flags.noCache, flags.redis)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	toStdout := len(flags.outs) == 0
	var spinner *Spinner
	if !toStdout {
		spinner = newSpinnerWithContext(ctx, os.Stderr, fmt.Sprintf("Building %s...", opts.Geometry))
		spinner.Start()
	}

	result, err := runner.Execute(ctx, opts)
	if err != nil {
		if spinner != nil {
			spinner.StopWithError(fmt.Sprintf("Building %s failed", opts.Geometry))
		}
		return err
	}

	if toStdout {
		_, err := c.Out.Write(result.Artifacts[pipeline.DefaultFormat])
		return err
	}
	spinner.Stop()

	for _, out := range flags.outs {
		format, _ := pipeline.FormatFromPath(out)
		if err := writeFile(out, result.Artifacts[format]); err != nil {
			return err
		}
		logger.Debug("wrote artifact", "path", out, "bytes", len(result.Artifacts[format]))
	}

	printSummary(c.Out, result, flags.outs)
	if geo := firstWithFormat(flags.outs, pipeline.FormatGeo); geo != "" {
		dim := 2
		if opts.Geometry == pipeline.GeometrySphere {
			dim = 3
		}
		printNextStep(c.Out, "Mesh it", fmt.Sprintf("gmsh %s -%d", geo, dim))
	}
	return nil
}

// firstWithFormat returns the first output path of the given format.
func firstWithFormat(outs []string, format string) string {
	for _, out := range outs {
		if f, err := pipeline.FormatFromPath(out); err == nil && f == format {
			return out
		}
	}
	return ""
}

// writeFile writes data to path, creating parent directories.
func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
