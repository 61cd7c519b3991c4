package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/dungeontower/pkg/cache"
	"github.com/matzehuels/dungeontower/pkg/server"
)

// serveOpts holds the command-line flags for the serve command.
type serveOpts struct {
	addr           string
	redisAddr      string
	mongoURI       string
	persist        bool
	noCache        bool
	keyPrefix      string
	logFile        string
	allowedOrigins []string
	timeout        time.Duration
	maxBody        int64
}

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	opts := serveOpts{
		addr:    ":8080",
		timeout: server.DefaultGenerateTimeout,
		maxBody: server.DefaultMaxBodyBytes,
	}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the layout API over HTTP and websockets",
		Long: `Serve the layout API.

Routes:
  GET    /healthz
  POST   /v1/layouts             generate and store a layout
  GET    /v1/layouts             list stored layouts
  GET    /v1/layouts/{id}        fetch a stored layout
  DELETE /v1/layouts/{id}        delete a stored layout
  GET    /v1/layouts/{id}/svg    draw a stored layout
  GET    /v1/stream              websocket: stream annealing progress

Layouts are kept in memory unless --persist or --mongo-uri is given.
Several servers can share work through one Redis cache.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", opts.addr, "listen address")
	cmd.Flags().StringVar(&opts.redisAddr, "redis-addr", "", "shared Redis cache address (default: local file cache)")
	cmd.Flags().StringVar(&opts.mongoURI, "mongo-uri", "", "store layouts in MongoDB")
	cmd.Flags().BoolVar(&opts.persist, "persist", false, "store layouts in the local layout store")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")
	cmd.Flags().StringVar(&opts.keyPrefix, "cache-namespace", "", "namespace for cache keys, to keep deployments apart")
	cmd.Flags().StringVar(&opts.logFile, "log-file", "", "write logs to this file, rotated by size")
	cmd.Flags().StringSliceVar(&opts.allowedOrigins, "allowed-origin", nil, "extra websocket origin to accept (repeatable, * for any)")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", opts.timeout, "generation timeout per request")
	cmd.Flags().Int64Var(&opts.maxBody, "max-body", opts.maxBody, "maximum request body size in bytes")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, opts serveOpts) error {
	logger := c.Logger
	if opts.logFile != "" {
		fileLogger, closer := newFileLogger(opts.logFile, c.Logger.GetLevel())
		defer closer.Close()
		logger = fileLogger
		printInfo("Logging to %s", opts.logFile)
	}

	// Backend setup logs go where the server logs go.
	sc := &CLI{Logger: logger}
	runner, err := sc.newRunner(ctx, runnerOpts{
		noCache:   opts.noCache,
		redisAddr: opts.redisAddr,
		store:     opts.persist,
		mongoURI:  opts.mongoURI,
	})
	if err != nil {
		return err
	}
	defer runner.Close()
	if opts.keyPrefix != "" {
		runner.Keyer = cache.NewScopedKeyer(runner.Keyer, opts.keyPrefix+":")
	}

	srv := server.New(runner, server.Config{
		AllowedOrigins:  opts.allowedOrigins,
		MaxBodyBytes:    opts.maxBody,
		GenerateTimeout: opts.timeout,
	}, logger)

	printSuccess("Serving on %s", StyleValue.Render(opts.addr))
	return srv.ListenAndServe(ctx, opts.addr)
}
