package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/tconf/pkg/cache"
)

func TestCacheDir(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "")

	dir, err := cacheDir()
	require.NoError(t, err)

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".cache", appName), dir)
}

func TestCacheDirXDG(t *testing.T) {
	custom := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", custom)

	dir, err := cacheDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(custom, "tconf"), dir)
}

func TestNewCache(t *testing.T) {
	ctx := context.Background()
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	t.Setenv(redisEnv, "")

	t.Run("disabled", func(t *testing.T) {
		c, err := newCache(ctx, true, "localhost:1")
		require.NoError(t, err)
		assert.IsType(t, &cache.NullCache{}, c)
	})

	t.Run("file", func(t *testing.T) {
		c, err := newCache(ctx, false, "")
		require.NoError(t, err)
		defer c.Close()
		fc, ok := c.(*cache.FileCache)
		require.True(t, ok, "want file cache, got %T", c)
		assert.Equal(t, filepath.Join(os.Getenv("XDG_CACHE_HOME"), appName), fc.Dir())
	})

	t.Run("redis flag", func(t *testing.T) {
		mr := miniredis.RunT(t)
		c, err := newCache(ctx, false, mr.Addr())
		require.NoError(t, err)
		defer c.Close()
		assert.IsType(t, &cache.RedisCache{}, c)
	})

	t.Run("redis env", func(t *testing.T) {
		mr := miniredis.RunT(t)
		t.Setenv(redisEnv, mr.Addr())
		c, err := newCache(ctx, false, "")
		require.NoError(t, err)
		defer c.Close()
		assert.IsType(t, &cache.RedisCache{}, c)
	})

	t.Run("redis unreachable", func(t *testing.T) {
		mr := miniredis.RunT(t)
		addr := mr.Addr()
		mr.Close()
		_, err := newCache(ctx, false, addr)
		assert.Error(t, err)
	})
}
