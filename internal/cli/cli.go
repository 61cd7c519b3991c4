// Package cli implements the dungeontower command-line interface.
//
// The commands wrap [pipeline.Runner] so that the CLI and the HTTP server
// share caching, hashing and defaults:
//
//   - generate: Generate a layout from a map description and render it
//   - chains: Show the chain decomposition of a map's room graph
//   - spaces: Build (or load cached) configuration spaces and summarize them
//   - render: Render a saved layout JSON file to SVG, PNG or PDF
//   - layouts: List, show and delete stored layouts
//   - serve: Run the HTTP and websocket API
//   - cache: Manage the local cache
//
// All commands support --verbose (-v) for debug-level logging.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/dungeontower/pkg/buildinfo"
	"github.com/matzehuels/dungeontower/pkg/cache"
	"github.com/matzehuels/dungeontower/pkg/generator"
	"github.com/matzehuels/dungeontower/pkg/mapdesc"
	"github.com/matzehuels/dungeontower/pkg/pipeline"
	"github.com/matzehuels/dungeontower/pkg/render"
	"github.com/matzehuels/dungeontower/pkg/store"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "dungeontower"
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
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Dungeontower generates 2D dungeon layouts",
		Long:         `Dungeontower generates 2D dungeon layouts from a room graph and a set of room shapes, placing rooms chain by chain with simulated annealing so that connected rooms share a door and nothing overlaps.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	root.AddCommand(c.generateCommand())
	root.AddCommand(c.chainsCommand())
	root.AddCommand(c.spacesCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.layoutsCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// runnerOpts selects the backends of a CLI runner.
type runnerOpts struct {
	noCache   bool
	redisAddr string
	store     bool
	mongoURI  string
}

// newRunner creates a pipeline runner for CLI use. Redis replaces the file
// cache when an address is given; MongoDB replaces the file store likewise.
func (c *CLI) newRunner(ctx context.Context, ro runnerOpts) (*pipeline.Runner, error) {
	ch, err := c.newCache(ctx, ro)
	if err != nil {
		return nil, err
	}
	var st store.Store
	if ro.store || ro.mongoURI != "" {
		st, err = newStore(ctx, ro.mongoURI)
		if err != nil {
			_ = ch.Close()
			return nil, err
		}
	}
	return pipeline.NewRunner(ch, nil, st, c.Logger), nil
}

func (c *CLI) newCache(ctx context.Context, ro runnerOpts) (cache.Cache, error) {
	switch {
	case ro.noCache:
		return cache.NewNullCache(), nil
	case ro.redisAddr != "":
		rc, err := cache.NewRedisCache(ctx, cache.RedisOptions{Addr: ro.redisAddr, Prefix: appName + ":"})
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		c.Logger.Debug("using redis cache", "addr", ro.redisAddr)
		return rc, nil
	}
	dir, err := cacheDir()
	if err != nil {
		c.Logger.Warn("cache disabled", "err", err)
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

func newStore(ctx context.Context, mongoURI string) (store.Store, error) {
	if mongoURI != "" {
		st, err := store.NewMongoStore(ctx, store.MongoOptions{URI: mongoURI})
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		return st, nil
	}
	return store.NewFileStore("")
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/dungeontower/).
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

// outputBase returns the path prefix for output files: the explicit
// --output value without its extension, or the input name in the working
// directory.
func outputBase(output, input string) string {
	if output != "" {
		return strings.TrimSuffix(output, filepath.Ext(output))
	}
	base := filepath.Base(input)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// =============================================================================
// Options Helpers
// =============================================================================

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if s == "" {
		return []string{render.FormatSVG}
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// loadInputs reads the map description and, when path is set, the
// generation config.
func loadInputs(mapPath, configPath string) (*mapdesc.Document, *generator.Config, error) {
	doc, err := mapdesc.ReadFile(mapPath)
	if err != nil {
		return nil, nil, err
	}
	if configPath == "" {
		return doc, nil, nil
	}
	cfg, err := generator.LoadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	return doc, &cfg, nil
}
