package pipeline

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/tconf/pkg/cache"
	"github.com/matzehuels/tconf/pkg/errors"
	"github.com/matzehuels/tconf/pkg/kernel"
	"github.com/matzehuels/tconf/pkg/kernel/memory"
	"github.com/matzehuels/tconf/pkg/topology"
)

// fakeMesher writes a stub mesh naming the requested dimension.
type fakeMesher struct {
	calls int
}

func (f *fakeMesher) Mesh(_ context.Context, script []byte, dim kernel.Dim, out string) error {
	f.calls++
	return os.WriteFile(out, []byte(fmt.Sprintf("$MeshFormat dim=%d script=%d\n", dim, len(script))), 0o644)
}

func newTestRunner(t *testing.T) *Runner {
	t.Helper()
	c, err := cache.NewFileCache(t.TempDir())
	require.NoError(t, err)
	r := NewRunner(c, nil, nil)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func testBand() topology.Band {
	return topology.Band{RInner: 1, A: 0.1, ROuter: 3, HBand: 0.05, HOuter: 0.5}
}

func TestExecuteDisk(t *testing.T) {
	r := newTestRunner(t)
	opts := Options{
		Band:    testBand(),
		Formats: []string{FormatGeo, FormatJSON, FormatSVG, FormatDOT},
	}

	res, err := r.Execute(context.Background(), opts)
	require.NoError(t, err)
	assert.False(t, res.CacheInfo.ModelHit)
	assert.False(t, res.CacheInfo.RenderHit)
	require.Len(t, res.Artifacts, 4)

	geo := string(res.Artifacts[FormatGeo])
	assert.Contains(t, geo, "Plane Surface(")
	assert.Equal(t, 8, strings.Count(geo, "Transfinite Surface"))
	assert.Contains(t, geo, `Physical Surface("inner"`)
	assert.Contains(t, geo, `Physical Curve("interface"`)

	assert.True(t, strings.HasPrefix(string(res.Artifacts[FormatSVG]), "<svg"))
	assert.True(t, strings.HasPrefix(string(res.Artifacts[FormatDOT]), "graph G {"))

	summary, err := UnmarshalSummary(res.Artifacts[FormatJSON])
	require.NoError(t, err)
	assert.Equal(t, ModelID(res.ModelHash), summary.ModelID)
	assert.Equal(t, GeometryDisk, summary.Geometry)
	assert.Len(t, summary.Sectors, DefaultSectors)
	assert.Equal(t, 8, summary.Structured())
	assert.Len(t, summary.Patches(), 16)
	assert.Equal(t, 16, res.Stats.Surfaces)
	assert.Zero(t, res.Stats.Volumes)
	assert.Len(t, summary.Groups, 4)
	assert.Equal(t, res.Summary.Counts, summary.Counts)
}

func TestExecuteSphere(t *testing.T) {
	r := newTestRunner(t)
	res, err := r.Execute(context.Background(), Options{
		Geometry: GeometrySphere,
		Band:     testBand(),
		Formats:  []string{FormatJSON},
	})
	require.NoError(t, err)

	s := res.Summary
	assert.Equal(t, GeometrySphere, s.Geometry)
	assert.Equal(t, DefaultHalfAngle, s.HalfAngle)
	assert.Equal(t, kernel.DimVolume, s.Regions.Dim)
	assert.Len(t, s.Regions.Inner, 16)
	assert.Len(t, s.Regions.Outer, 16)
	assert.Equal(t, 32, res.Stats.Volumes)
}

func TestExecuteCached(t *testing.T) {
	r := newTestRunner(t)
	opts := Options{Band: testBand(), Formats: []string{FormatGeo, FormatJSON}}

	first, err := r.Execute(context.Background(), opts)
	require.NoError(t, err)

	// A live model would make a rebuild fail, so a hit must not touch the kernel.
	m, err := memory.Initialize("blocker")
	require.NoError(t, err)
	defer m.Finalize()

	second, err := r.Execute(context.Background(), opts)
	require.NoError(t, err)
	assert.True(t, second.CacheInfo.ModelHit)
	assert.True(t, second.CacheInfo.RenderHit)
	assert.Equal(t, first.Artifacts, second.Artifacts)
	assert.Equal(t, first.Summary.ModelID, second.Summary.ModelID)
	assert.Equal(t, first.Stats.Surfaces, second.Stats.Surfaces)

	_, err = r.Execute(context.Background(), Options{Band: testBand(), Formats: []string{FormatGeo}, Refresh: true})
	assert.ErrorIs(t, err, kernel.ErrBusy)
}

func TestExecutePartialCache(t *testing.T) {
	r := newTestRunner(t)
	_, err := r.Execute(context.Background(), Options{Band: testBand(), Formats: []string{FormatGeo}})
	require.NoError(t, err)

	res, err := r.Execute(context.Background(), Options{Band: testBand(), Formats: []string{FormatGeo, FormatDOT}})
	require.NoError(t, err)
	assert.True(t, res.CacheInfo.ModelHit)
	assert.False(t, res.CacheInfo.RenderHit)
	assert.Len(t, res.Artifacts, 2)
}

func TestExecuteMesh(t *testing.T) {
	r := newTestRunner(t)
	mesher := &fakeMesher{}
	r.Mesher = mesher

	res, err := r.Execute(context.Background(), Options{
		Geometry: GeometrySphere,
		Band:     testBand(),
		Formats:  []string{FormatMsh},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, mesher.calls)
	assert.True(t, strings.HasPrefix(string(res.Artifacts[FormatMsh]), "$MeshFormat dim=3"))

	// Another mesh dimension is another artifact.
	res, err = r.Execute(context.Background(), Options{
		Geometry: GeometrySphere,
		Band:     testBand(),
		Formats:  []string{FormatMsh},
		MeshDim:  2,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, mesher.calls)
	assert.True(t, strings.HasPrefix(string(res.Artifacts[FormatMsh]), "$MeshFormat dim=2"))
}

func TestExecuteInvalidOptions(t *testing.T) {
	r := newTestRunner(t)
	_, err := r.Execute(context.Background(), Options{Band: topology.Band{RInner: 2, A: 1, ROuter: 2.5}})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInvalidBand, errors.GetCode(err))

	// The kernel was never acquired.
	m, err := memory.Initialize("after")
	require.NoError(t, err)
	m.Finalize()
}

// brokenKeyer fails for one kind of key.
type brokenKeyer struct {
	cache.Keyer
	model bool
}

var errKey = fmt.Errorf("key unavailable")

func (k brokenKeyer) ModelKey(geometry string, opts cache.ModelKeyOpts) (string, error) {
	if k.model {
		return "", errKey
	}
	return k.Keyer.ModelKey(geometry, opts)
}

func (k brokenKeyer) ArtifactKey(hash string, opts cache.ArtifactKeyOpts) (string, error) {
	if !k.model {
		return "", errKey
	}
	return k.Keyer.ArtifactKey(hash, opts)
}

func TestExecuteKeyErrors(t *testing.T) {
	for _, model := range []bool{true, false} {
		t.Run(fmt.Sprintf("model=%v", model), func(t *testing.T) {
			r := NewRunner(cache.NewNullCache(), brokenKeyer{Keyer: cache.NewDefaultKeyer(), model: model}, nil)
			_, err := r.Execute(context.Background(), Options{Band: testBand()})
			require.ErrorIs(t, err, errKey)

			// A key failure never reaches the kernel.
			m, err := memory.Initialize("after")
			require.NoError(t, err)
			m.Finalize()
		})
	}
}

func TestModelIDStable(t *testing.T) {
	assert.Equal(t, ModelID("abc"), ModelID("abc"))
	assert.NotEqual(t, ModelID("abc"), ModelID("abd"))
	assert.Len(t, ModelID("abc"), 36)
}
