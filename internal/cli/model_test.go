package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/tconf/pkg/errors"
	"github.com/matzehuels/tconf/pkg/pipeline"
)

func parseModelFlags(t *testing.T, geometry string, args ...string) (pipeline.Options, error) {
	t.Helper()
	var f modelFlags
	cmd := &cobra.Command{Use: geometry}
	f.bind(cmd, geometry == pipeline.GeometrySphere)
	require.NoError(t, cmd.ParseFlags(args))
	return f.options(cmd, geometry)
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "band.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestModelFlagsDefaults(t *testing.T) {
	opts, err := parseModelFlags(t, pipeline.GeometryDisk, "--rInner", "1", "--a", "0.1", "--rOuter", "3")
	require.NoError(t, err)

	assert.Equal(t, 1.0, opts.Band.RInner)
	assert.Equal(t, pipeline.DefaultHBand, opts.Band.HBand)
	assert.Equal(t, pipeline.DefaultSectors, opts.Sectors)
	assert.Equal(t, 2, opts.MeshDim)
	assert.Equal(t, []string{pipeline.FormatGeo}, opts.Formats)
	assert.Zero(t, opts.HalfAngle)
}

func TestModelFlagsSphere(t *testing.T) {
	opts, err := parseModelFlags(t, pipeline.GeometrySphere, "--half-angle", "0.5")
	require.NoError(t, err)
	assert.Equal(t, 0.5, opts.HalfAngle)
	assert.Equal(t, 3, opts.MeshDim)
}

func TestModelFlagsFormats(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []string
		code errors.Code
	}{
		{"single", []string{"-o", "a.msh"}, []string{"msh"}, ""},
		{"deduplicated", []string{"-o", "a.svg", "-o", "out/b.SVG", "-o", "c.geo"}, []string{"svg", "geo"}, ""},
		{"unknown extension", []string{"-o", "a.vtk"}, nil, errors.ErrCodeInvalidFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := parseModelFlags(t, pipeline.GeometryDisk, tt.args...)
			if tt.code != "" {
				require.Error(t, err)
				assert.Equal(t, tt.code, errors.GetCode(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, opts.Formats)
		})
	}
}

func TestModelFlagsConfigPrecedence(t *testing.T) {
	path := writeConfig(t, `
geometry = "disk"
sectors = 8

[band]
r_inner = 2
a = 0.2
r_outer = 5
h_band = 0.01
`)

	opts, err := parseModelFlags(t, pipeline.GeometryDisk, "--config", path, "--rOuter", "6")
	require.NoError(t, err)

	assert.Equal(t, 2.0, opts.Band.RInner, "file value kept")
	assert.Equal(t, 6.0, opts.Band.ROuter, "explicit flag wins")
	assert.Equal(t, 0.01, opts.Band.HBand)
	assert.Equal(t, 8, opts.Sectors, "unset flag default does not override the file")
}

func TestModelFlagsConfigGeometryMismatch(t *testing.T) {
	path := writeConfig(t, `geometry = "sphere"`)
	_, err := parseModelFlags(t, pipeline.GeometryDisk, "--config", path)
	assert.Error(t, err)
}

func TestModelFlagsNames(t *testing.T) {
	opts, err := parseModelFlags(t, pipeline.GeometryDisk, "--interface-name", "gamma", "--boundary-name", "far")
	require.NoError(t, err)
	assert.Equal(t, "gamma", opts.Names.Interface)
	assert.Equal(t, "far", opts.Names.OuterBoundary)

	opts, err = parseModelFlags(t, pipeline.GeometryDisk, "--inner-name", "core", "--outer-name", "matrix")
	require.NoError(t, err)
	assert.Equal(t, "core", opts.Names.InnerMaterial)
	assert.Equal(t, "matrix", opts.Names.OuterMaterial)
}

func TestModelFlagsConfigFormats(t *testing.T) {
	path := writeConfig(t, `
geometry = "disk"
formats = ["json"]

[band]
r_inner = 1
a = 0.1
r_outer = 3
`)

	var f modelFlags
	cmd := &cobra.Command{Use: pipeline.GeometryDisk}
	f.bind(cmd, false)
	require.NoError(t, cmd.ParseFlags([]string{"--config", path, "-o", "a.svg"}))
	var logs bytes.Buffer
	cmd.SetContext(withLogger(context.Background(), newLogger(&logs, LogInfo)))

	opts, err := f.options(cmd, pipeline.GeometryDisk)
	require.NoError(t, err)
	assert.Equal(t, []string{pipeline.FormatSVG}, opts.Formats)
	assert.Contains(t, logs.String(), "ignoring formats from config")
}

func TestFirstWithFormat(t *testing.T) {
	outs := []string{"a.svg", "b.geo", "c.geo"}
	assert.Equal(t, "b.geo", firstWithFormat(outs, pipeline.FormatGeo))
	assert.Empty(t, firstWithFormat(outs, pipeline.FormatMsh))
}
