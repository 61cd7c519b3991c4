package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/matzehuels/dungeontower/pkg/chain"
	"github.com/matzehuels/dungeontower/pkg/generator"
	"github.com/matzehuels/dungeontower/pkg/render"
	"github.com/matzehuels/dungeontower/pkg/render/nodelink"
)

const formatTable = "table"

// chainsOpts holds the command-line flags for the chains command.
type chainsOpts struct {
	config   string
	format   string
	output   string
	detailed bool
}

// chainsCommand creates the chains command.
func (c *CLI) chainsCommand() *cobra.Command {
	var opts chainsOpts

	cmd := &cobra.Command{
		Use:   "chains [map]",
		Short: "Show how a map's room graph is split into chains",
		Long: `Show the chain decomposition of a map's room graph.

Chains are the groups of rooms the generator places together, in order.
The table format lists them; dot, svg, png and pdf draw the room graph
with every room colored by its chain.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runChains(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.config, "config", "c", "", "generation config file (chain policy and tree size)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", formatTable, "output format: table, dot, svg, png, pdf")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file for graph formats (default: map name)")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "label nodes with their chain and position")

	return cmd
}

func (c *CLI) runChains(ctx context.Context, mapPath string, opts chainsOpts) error {
	doc, cfg, err := loadInputs(mapPath, opts.config)
	if err != nil {
		return err
	}
	if cfg == nil {
		def := generator.DefaultConfig()
		cfg = &def
	}
	if err := cfg.Chains.ValidateAndSetDefaults(); err != nil {
		return err
	}

	desc, err := doc.Description()
	if err != nil {
		return err
	}
	g, err := desc.Graph()
	if err != nil {
		return err
	}
	chains, err := chain.Decompose(g, cfg.Chains)
	if err != nil {
		return err
	}
	c.Logger.Debug("decomposed room graph", "rooms", g.Rooms(), "chains", len(chains), "policy", cfg.Chains.Policy)

	name := generator.NodeNamer(desc, g)
	if opts.format == formatTable {
		printChains(chains, name)
		return nil
	}

	graph := nodelink.FromRoomGraph(g, chains, name)
	dot := nodelink.ToDOT(graph, nodelink.Options{Detailed: opts.detailed})

	var data []byte
	switch opts.format {
	case "dot":
		data = []byte(dot)
	case render.FormatSVG:
		data, err = nodelink.RenderSVG(ctx, dot)
	case render.FormatPNG:
		data, err = nodelink.RenderPNG(ctx, dot, 2)
	case render.FormatPDF:
		data, err = nodelink.RenderPDF(ctx, dot)
	default:
		return fmt.Errorf("unknown format %q (valid: table, dot, svg, png, pdf)", opts.format)
	}
	if err != nil {
		return err
	}

	path := outputBase(opts.output, mapPath) + "." + opts.format
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	printSuccess("Drew %d chains", len(chains))
	printFile(path)
	return nil
}

// printChains lists the chains with their rooms in placement order.
func printChains(chains []chain.Chain, name func(int) string) {
	rows := make([][]string, len(chains))
	for i, ch := range chains {
		rooms := make([]string, len(ch.Nodes))
		for j, n := range ch.Nodes {
			rooms[j] = name(n)
		}
		rows[i] = []string{strconv.Itoa(ch.Index), strconv.Itoa(len(ch.Nodes)), joinDim(rooms, " → ")}
	}
	fmt.Println(renderTable([]string{"Chain", "Rooms", "Order"}, rows, func(row, col int) lipgloss.Style {
		if col == 0 && row < len(chains) {
			return chainStyle(chains[row].Index).Bold(true)
		}
		return lipgloss.NewStyle()
	}))
}
