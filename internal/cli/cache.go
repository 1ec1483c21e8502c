package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/tconf/pkg/cache"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the model and artifact cache",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	var redisAddr string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached models and artifacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if redisAddr == "" && os.Getenv(redisEnv) == "" {
				dir, err := cacheDir()
				if err != nil {
					return fmt.Errorf("get cache dir: %w", err)
				}
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					printInfo(c.Out, "Cache is empty")
					return nil
				}
			}

			store, err := newCache(ctx, false, redisAddr)
			if err != nil {
				return err
			}
			defer store.Close()

			clearer, ok := store.(cache.Clearer)
			if !ok {
				printWarning(c.Out, "Cache backend does not support clearing")
				return nil
			}
			if err := clearer.Clear(ctx); err != nil {
				return fmt.Errorf("clear cache: %w", err)
			}

			printSuccess(c.Out, "Cleared cache")
			if fc, ok := store.(*cache.FileCache); ok {
				printDetail(c.Out, "Directory: %s", fc.Dir())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&redisAddr, "redis", "", "clear the Redis cache at this address instead (default $"+redisEnv+")")
	return cmd
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := cacheDir()
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}
			fmt.Fprintln(c.Out, dir)
			return nil
		},
	}
}
