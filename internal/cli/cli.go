// Package cli implements the tconf command-line interface.
//
// # Commands
//
//   - disk: Build the banded disk decomposition
//   - sphere: Revolve the disk into a banded ball
//   - topology: Render the patch adjacency graph
//   - cache: Manage the artifact cache
//   - completion: Generate shell completions
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. The logger is
// attached to the command context and retrieved with loggerFromContext.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/tconf/pkg/buildinfo"
	"github.com/matzehuels/tconf/pkg/cache"
	"github.com/matzehuels/tconf/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "tconf"

	// redisEnv names the environment variable holding a default Redis address.
	redisEnv = "TCONF_REDIS"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// Out receives artifacts written to stdout and the run summary.
	Out io.Writer
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Out:    os.Stdout,
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "tconf builds transfinite mesh decompositions of banded disks and spheres",
		Long: `tconf decomposes a disk or ball with a thin material band around an
interface circle into patches that Gmsh meshes as structured (transfinite)
grids inside the band and unstructured elsewhere.

Models are written as Gmsh .geo scripts, meshed with gmsh, or previewed as
SVG, PNG and PDF cross-sections.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	// Register all subcommands
	root.AddCommand(c.diskCommand())
	root.AddCommand(c.sphereCommand())
	root.AddCommand(c.topologyCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, noCache bool, redisAddr string) (*pipeline.Runner, error) {
	cache, err := newCache(ctx, noCache, redisAddr)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(cache, nil, c.Logger), nil
}

// newCache returns the Redis cache when an address is given, the file cache
// otherwise, and a null cache when caching is disabled or no cache directory
// can be determined.
func newCache(ctx context.Context, noCache bool, redisAddr string) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	if redisAddr == "" {
		redisAddr = os.Getenv(redisEnv)
	}
	if redisAddr != "" {
		return cache.NewRedisCache(ctx, redisAddr)
	}
	dir, err := cacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/tconf/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
