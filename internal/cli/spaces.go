package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/matzehuels/dungeontower/pkg/configspace"
	"github.com/matzehuels/dungeontower/pkg/generator"
	"github.com/matzehuels/dungeontower/pkg/mapdesc"
	"github.com/matzehuels/dungeontower/pkg/pipeline"
)

// spacesCommand creates the spaces command.
func (c *CLI) spacesCommand() *cobra.Command {
	var (
		noCache   bool
		redisAddr string
	)

	cmd := &cobra.Command{
		Use:   "spaces [map]",
		Short: "Build the configuration spaces of a map and summarize them",
		Long: `Build the configuration spaces of a map: every shape variant of every
room and, for each pair of connected rooms, the offsets at which they share
a door. The result is cached, which makes later generate runs of the same
map skip this step.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runSpaces(cmd.Context(), args[0], runnerOpts{noCache: noCache, redisAddr: redisAddr})
		},
	}

	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().StringVar(&redisAddr, "redis-addr", "", "use a Redis cache at this address")

	return cmd
}

func (c *CLI) runSpaces(ctx context.Context, mapPath string, ro runnerOpts) error {
	doc, err := loadMap(mapPath)
	if err != nil {
		return err
	}
	desc, descHash, err := pipeline.Describe(doc)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, ro)
	if err != nil {
		return err
	}
	defer runner.Close()

	prog := newProgress(c.Logger)
	gen, hit, err := runner.GeneratorWithCacheInfo(ctx, desc, descHash, pipeline.Options{Map: doc, Logger: c.Logger})
	if err != nil {
		return err
	}
	spaces := gen.Spaces()
	prog.done("configuration spaces ready", "cached", hit)

	g := gen.Graph()
	name := generator.NodeNamer(desc, g)

	printSuccess("Configuration spaces for %s", StyleValue.Render(mapPath))
	printKeyValue("hash", descHash[:12])
	printKeyValue("variants", strconv.Itoa(len(spaces.Variants())))
	printKeyValue("avg area", fmt.Sprintf("%.1f", spaces.AverageArea()))
	printKeyValue("avg side", fmt.Sprintf("%.1f", spaces.AverageSide()))
	printKeyValue("corridors", strconv.FormatBool(spaces.WithCorridors()))
	source := iconFresh
	if hit {
		source = iconCached
	}
	printKeyValue("source", source)
	fmt.Println()

	via := "door"
	if spaces.WithCorridors() {
		via = "corridor"
	}
	conns := desc.Connections()
	rows := make([][]string, len(conns))
	for i, e := range conns {
		rows[i] = []string{name(e[0]), name(e[1]), via, strconv.Itoa(spacePositions(spaces, e[0], e[1]))}
	}
	if len(rows) > 0 {
		fmt.Println(renderTable([]string{"Room", "Room", "Via", "Offsets"}, rows, nil))
	}

	rooms := make([][]string, g.Rooms())
	for n := range g.Rooms() {
		rooms[n] = []string{name(n), strconv.Itoa(len(spaces.NodeVariants(n)))}
	}
	fmt.Println(renderTable([]string{"Room", "Variants"}, rooms, nil))
	return nil
}

// spacePositions counts the offsets at which room a may sit relative to
// room b, summed over every pair of their variants.
func spacePositions(spaces *configspace.Spaces, a, b int) int {
	space := spaces.Space
	if spaces.WithCorridors() {
		space = spaces.CorridorSpace
	}
	total := 0
	for _, va := range spaces.NodeVariants(a) {
		for _, vb := range spaces.NodeVariants(b) {
			total += space(va, vb).Len()
		}
	}
	return total
}

// loadMap reads a map description file.
func loadMap(path string) (*mapdesc.Document, error) {
	doc, _, err := loadInputs(path, "")
	return doc, err
}
