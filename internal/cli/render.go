package cli

import (
	"context"
	"slices"

	"github.com/spf13/cobra"

	"github.com/matzehuels/dungeontower/pkg/maplayout"
	"github.com/matzehuels/dungeontower/pkg/pipeline"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	formats string
	output  string
	scale   int
	labels  bool
	doors   bool
	noCache bool
}

// renderCommand creates the render command, which draws a saved layout
// without generating it again.
func (c *CLI) renderCommand() *cobra.Command {
	var opts renderOpts

	cmd := &cobra.Command{
		Use:   "render [layout.json]",
		Short: "Render a saved layout to SVG, PNG or PDF",
		Long: `Render a layout written by "generate -f json" or "layouts show".

PNG and PDF output require rsvg-convert on the PATH.`,
		Example: `  dungeontower render castle.json -f png --scale 24 --labels`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRender(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.formats, "format", "f", "", "output format(s): svg (default), png, pdf (comma-separated)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output base path (default: layout file name)")
	cmd.Flags().IntVar(&opts.scale, "scale", pipeline.DefaultScale, "pixels per map unit")
	cmd.Flags().BoolVar(&opts.labels, "labels", false, "draw room names")
	cmd.Flags().BoolVar(&opts.doors, "doors", false, "draw doors")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")

	return cmd
}

func (c *CLI) runRender(ctx context.Context, path string, opts renderOpts) error {
	doc, err := maplayout.ReadFile(path)
	if err != nil {
		return err
	}

	formats := parseFormats(opts.formats)
	// Re-serializing the input would only copy it.
	if slices.Contains(formats, pipeline.FormatJSON) {
		printWarning("skipping json: %s is already a layout", path)
		formats = slices.DeleteFunc(formats, func(f string) bool { return f == pipeline.FormatJSON })
	}
	popts := pipeline.Options{
		Formats: formats,
		Scale:   opts.scale,
		Labels:  opts.labels,
		Doors:   opts.doors,
		Logger:  c.Logger,
	}
	if err := popts.ValidateForRender(); err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, runnerOpts{noCache: opts.noCache})
	if err != nil {
		return err
	}
	defer runner.Close()

	layoutHash, err := pipeline.LayoutHash(doc)
	if err != nil {
		return err
	}
	artifacts, hit, err := runner.RenderWithCacheInfo(ctx, doc, layoutHash, popts)
	if err != nil {
		return err
	}

	written, err := writeArtifacts(outputBase(opts.output, path), artifacts)
	if err != nil {
		return err
	}
	printSuccess("Rendered %d rooms", len(doc.Rooms))
	if hit {
		printDetail("%s", iconCached)
	}
	for _, p := range written {
		printFile(p)
	}
	return nil
}
