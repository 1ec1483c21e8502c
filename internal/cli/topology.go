package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/tconf/pkg/kernel/memory"
	"github.com/matzehuels/tconf/pkg/pipeline"
	"github.com/matzehuels/tconf/pkg/render/graph"
	"github.com/matzehuels/tconf/pkg/topology"
)

// topologyFlags holds the flags of the topology command.
type topologyFlags struct {
	rInner, a, rOuter float64
	sectors           int
	detailed          bool
	out               string
}

// topologyCommand creates the command that draws the patch adjacency graph.
func (c *CLI) topologyCommand() *cobra.Command {
	var flags topologyFlags

	cmd := &cobra.Command{
		Use:   "topology",
		Short: "Draw the patch adjacency graph of a disk cross-section",
		Long: `Draw the patch adjacency graph of a disk cross-section.

Every patch becomes a node and patches sharing a boundary curve are joined.
Structured band patches are drawn solid, bulk patches dashed. The output
format follows the extension of --out: svg, pdf, png or dot. Without --out
the DOT source is written to stdout.

Examples:
  tconf topology --rInner 1 --a 0.1 --rOuter 3 -o topology.svg
  tconf topology --rInner 1 --a 0.1 --rOuter 3 --sectors 8 --detailed -o topology.pdf`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runTopology(cmd.Context(), flags)
		},
	}

	fs := cmd.Flags()
	fs.Float64Var(&flags.a, "a", 0, "half-thickness of the band")
	fs.Float64Var(&flags.rInner, "rInner", 0, "radius of the material interface")
	fs.Float64Var(&flags.rOuter, "rOuter", 0, "radius of the outer boundary")
	fs.IntVar(&flags.sectors, "sectors", pipeline.DefaultSectors, "number of angular sectors")
	fs.BoolVar(&flags.detailed, "detailed", false, "label nodes and edges with entity IDs")
	fs.StringVarP(&flags.out, "out", "o", "", "output file (.svg, .pdf, .png, .dot)")
	completeOutputs(cmd, topologyFormats...)

	return cmd
}

func (c *CLI) runTopology(ctx context.Context, flags topologyFlags) error {
	logger := loggerFromContext(ctx)

	format := pipeline.FormatDOT
	if flags.out != "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(flags.out)), ".")
		if !slices.Contains(topologyFormats, format) {
			return fmt.Errorf("unsupported topology format %q (use svg, pdf, png or dot)", format)
		}
	}

	opts := pipeline.Options{
		Geometry: pipeline.GeometryDisk,
		Band: topology.Band{
			RInner: flags.rInner,
			A:      flags.a,
			ROuter: flags.rOuter,
			HBand:  pipeline.DefaultHBand,
			HOuter: pipeline.DefaultHOuter,
		},
		Sectors: flags.sectors,
		Logger:  logger,
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return err
	}

	m, err := memory.Initialize(opts.Geometry, memory.WithLogger(logger))
	if err != nil {
		return err
	}
	defer m.Finalize()

	prog := newProgress(logger)
	built, err := pipeline.Build(ctx, m, opts)
	if err != nil {
		return err
	}

	dot := graph.ToDOT(&built.Snapshot, built.Patches(), graph.Options{Detailed: flags.detailed})
	if flags.out == "" {
		_, err := fmt.Fprint(c.Out, dot)
		return err
	}

	data, err := renderTopology(dot, format)
	if err != nil {
		return fmt.Errorf("render topology: %w", err)
	}
	if err := writeFile(flags.out, data); err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Rendered %s", flags.out))
	printFile(c.Out, flags.out)
	return nil
}

func renderTopology(dot, format string) ([]byte, error) {
	switch format {
	case pipeline.FormatSVG:
		return graph.RenderSVG(dot)
	case pipeline.FormatPDF:
		return graph.RenderPDF(dot)
	case pipeline.FormatPNG:
		return graph.RenderPNG(dot, pipeline.DefaultPNGScale)
	default:
		return []byte(dot), nil
	}
}
