package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/perisponge/stormflow/internal/api"
	"github.com/perisponge/stormflow/pkg/cache"
	"github.com/perisponge/stormflow/pkg/pipeline"
	"github.com/perisponge/stormflow/pkg/store"
)

// serveOpts holds the command-line flags for the serve command.
type serveOpts struct {
	addr     string // listen address
	redis    string // redis address for a shared cache, empty for file cache
	mongo    string // mongodb URI for the run archive, empty for in-memory
	noCache  bool   // disable the result cache
}

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var opts serveOpts

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the evaluation HTTP API",
		Long: `Serve exposes evaluation over HTTP with Prometheus metrics and an
archive of past runs.

Single-instance deployments can use the default file cache and in-memory
archive. Multi-instance deployments should point --redis at a shared cache
and --mongo at a persistent archive.

Examples:
  stormflow serve
  stormflow serve --addr :9000 --redis localhost:6379 --mongo mongodb://localhost:27017`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.addr, "addr", "a", ":8080", "listen address")
	cmd.Flags().StringVar(&opts.redis, "redis", "", "redis address for a shared cache")
	cmd.Flags().StringVar(&opts.mongo, "mongo", "", "mongodb URI for the run archive")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the result cache")

	return cmd
}

func (c *CLI) runServe(cmd *cobra.Command, opts serveOpts) error {
	ctx := cmd.Context()

	cc, err := c.serveCache(ctx, opts)
	if err != nil {
		return err
	}
	runner := pipeline.NewRunner(cc, nil, c.Logger)
	defer runner.Close()

	var st store.Store
	if opts.mongo != "" {
		ms, err := store.NewMongoStore(ctx, store.MongoConfig{URI: opts.mongo})
		if err != nil {
			return err
		}
		st = ms
		c.Logger.Info("run archive", "backend", "mongo")
	} else {
		st = store.NewMemoryStore()
		c.Logger.Info("run archive", "backend", "memory")
	}
	defer st.Close(ctx)

	return api.NewServer(runner, st, c.Logger).ListenAndServe(ctx, opts.addr)
}

func (c *CLI) serveCache(ctx context.Context, opts serveOpts) (cache.Cache, error) {
	if opts.noCache {
		return cache.NewNullCache(), nil
	}
	if opts.redis != "" {
		c.Logger.Info("cache", "backend", "redis", "addr", opts.redis)
		return cache.NewRedisCache(ctx, cache.RedisConfig{Addr: opts.redis})
	}
	return newCache(false)
}
