package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/dungeontower/pkg/anneal"
	"github.com/matzehuels/dungeontower/pkg/pipeline"
)

// generateOpts holds the command-line flags for the generate command.
type generateOpts struct {
	config    string
	seed      uint64
	formats   string
	output    string
	name      string
	scale     int
	labels    bool
	doors     bool
	refresh   bool
	noCache   bool
	redisAddr string
	store     bool
	mongoURI  string
	tui       bool
}

// generateCommand creates the generate command.
func (c *CLI) generateCommand() *cobra.Command {
	var opts generateOpts

	cmd := &cobra.Command{
		Use:   "generate [map]",
		Short: "Generate a dungeon layout from a map description",
		Long: `Generate a dungeon layout from a YAML or JSON map description.

The layout is rendered in every requested format and written next to the
output path, one file per format. Configuration spaces and layouts are
cached, so generating an unchanged map with the same seed is instant.`,
		Example: `  dungeontower generate castle.yaml
  dungeontower generate castle.yaml --seed 7 -f svg,json --labels --doors
  dungeontower generate castle.yaml --config slow.toml --tui`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runGenerate(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.config, "config", "c", "", "generation config file (TOML, or JSON by extension)")
	cmd.Flags().Uint64VarP(&opts.seed, "seed", "s", pipeline.DefaultSeed, "random seed")
	cmd.Flags().StringVarP(&opts.formats, "format", "f", "", "output format(s): svg (default), png, pdf, json (comma-separated)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output base path (default: map name in the working directory)")
	cmd.Flags().StringVar(&opts.name, "name", "", "layout name (default: map file name)")
	cmd.Flags().IntVar(&opts.scale, "scale", pipeline.DefaultScale, "pixels per map unit")
	cmd.Flags().BoolVar(&opts.labels, "labels", false, "draw room names")
	cmd.Flags().BoolVar(&opts.doors, "doors", false, "draw doors")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "regenerate even when the layout is cached")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")
	cmd.Flags().StringVar(&opts.redisAddr, "redis-addr", "", "use a Redis cache at this address")
	cmd.Flags().BoolVar(&opts.store, "store", false, "save the layout to the layout store")
	cmd.Flags().StringVar(&opts.mongoURI, "mongo-uri", "", "store layouts in MongoDB (implies --store)")
	cmd.Flags().BoolVar(&opts.tui, "tui", false, "show live annealing progress")

	return cmd
}

func (c *CLI) runGenerate(ctx context.Context, mapPath string, opts generateOpts) error {
	doc, cfg, err := loadInputs(mapPath, opts.config)
	if err != nil {
		return err
	}

	formats := parseFormats(opts.formats)
	if err := pipeline.ValidateFormats(formats); err != nil {
		return err
	}

	name := opts.name
	if name == "" {
		name = outputBase("", mapPath)
	}

	runner, err := c.newRunner(ctx, runnerOpts{
		noCache:   opts.noCache,
		redisAddr: opts.redisAddr,
		store:     opts.store,
		mongoURI:  opts.mongoURI,
	})
	if err != nil {
		return err
	}
	defer runner.Close()

	popts := pipeline.Options{
		Map:     doc,
		Name:    name,
		Seed:    opts.seed,
		Config:  cfg,
		Refresh: opts.refresh,
		Formats: formats,
		Scale:   opts.scale,
		Labels:  opts.labels,
		Doors:   opts.doors,
		Store:   opts.store || opts.mongoURI != "",
		Logger:  c.Logger,
	}
	if err := popts.ValidateAndSetDefaults(); err != nil {
		return err
	}

	var result *pipeline.Result
	if opts.tui {
		result, err = c.executeTUI(ctx, runner, popts)
	} else {
		result, err = c.executeSpinner(ctx, runner, popts)
	}
	if err != nil {
		return err
	}

	printSuccess("Generated %s", StyleValue.Render(name))
	printStats(result.Stats.Rooms, result.Stats.Iterations, result.Stats.GenerateTime, result.CacheInfo.LayoutHit)

	written, err := writeArtifacts(outputBase(opts.output, mapPath), result.Artifacts)
	if err != nil {
		return err
	}
	for _, path := range written {
		printFile(path)
	}
	if result.Record != nil {
		printDetail("stored as %s", result.Record.ID)
	}
	if slices.Contains(formats, pipeline.FormatJSON) && !slices.Contains(formats, "png") {
		printNextStep("Render as PNG", fmt.Sprintf("%s render %s.json -f png", appName, outputBase(opts.output, mapPath)))
	}
	return nil
}

// executeSpinner runs the pipeline behind a spinner that shows the current
// chain and energy.
func (c *CLI) executeSpinner(ctx context.Context, runner *pipeline.Runner, opts pipeline.Options) (*pipeline.Result, error) {
	spinner := newSpinner(ctx, "Generating "+opts.Name)
	opts.Observer = spinner.Observer()
	spinner.Start()
	result, err := runner.Execute(ctx, opts)
	spinner.Stop()
	return result, err
}

// executeTUI runs the pipeline under the bubbletea progress model.
// Quitting the model cancels generation.
func (c *CLI) executeTUI(ctx context.Context, runner *pipeline.Runner, opts pipeline.Options) (*pipeline.Result, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := NewGenerateModel(opts.Name, opts.Config.Annealing.MaxIterations, cancel)
	p := tea.NewProgram(model, tea.WithOutput(os.Stderr), tea.WithContext(ctx))

	opts.Observer = throttledObserver(tuiEventInterval, func(e anneal.Event) { p.Send(eventMsg(e)) })
	// The model owns the screen, so only errors may be logged meanwhile.
	quiet := c.Logger.With()
	quiet.SetLevel(log.ErrorLevel)
	opts.Logger, runner.Logger = quiet, quiet

	go func() {
		result, err := runner.Execute(runCtx, opts)
		p.Send(doneMsg{result: result, err: err})
	}()

	final, err := p.Run()
	if err != nil {
		cancel()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("progress display: %w", err)
	}
	m := final.(GenerateModel)
	return m.Result, m.Err
}

// writeArtifacts writes each artifact to base.<format> in a stable order.
func writeArtifacts(base string, artifacts map[string][]byte) ([]string, error) {
	if dir := filepath.Dir(base); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	formats := make([]string, 0, len(artifacts))
	for f := range artifacts {
		formats = append(formats, f)
	}
	slices.Sort(formats)

	paths := make([]string, 0, len(formats))
	for _, f := range formats {
		path := base + "." + f
		if err := os.WriteFile(path, artifacts[f], 0o644); err != nil {
			return paths, fmt.Errorf("write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
