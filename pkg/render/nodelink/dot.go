package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/dungeontower/pkg/chain"
	"github.com/matzehuels/dungeontower/pkg/mapdesc"
	"github.com/matzehuels/dungeontower/pkg/render"
)

// palette holds one fill per chain, reused cyclically.
var palette = []string{
	"#8dd3c7", "#ffffb3", "#bebada", "#fb8072",
	"#80b1d3", "#fdb462", "#b3de69", "#fccde5",
}

// Options configures node-link diagram rendering.
type Options struct {
	// Detailed adds the chain index and position to node labels.
	// When false, only the room name is shown.
	Detailed bool
}

// Node is a room in the diagram.
type Node struct {
	ID string
	// Chain is the index of the chain containing the room, or -1.
	Chain int
	// Order is the room's position within its chain.
	Order int
}

// Edge is a connection between two rooms.
type Edge struct {
	From, To string
	// Corridor marks connections realized by a corridor room.
	Corridor bool
}

// Graph is a room graph ready for drawing.
type Graph struct {
	Nodes []Node
	Edges []Edge
}

// FromRoomGraph builds a diagram graph from the resolved room graph and its
// chain decomposition. Corridor nodes are folded into their connection.
func FromRoomGraph(g *mapdesc.Graph, chains []chain.Chain, name func(int) string) Graph {
	chainOf := make(map[int][2]int)
	for _, c := range chains {
		for i, n := range c.Nodes {
			chainOf[n] = [2]int{c.Index, i}
		}
	}

	var out Graph
	for n := 0; n < g.Rooms(); n++ {
		node := Node{ID: name(n), Chain: -1}
		if co, ok := chainOf[n]; ok {
			node.Chain, node.Order = co[0], co[1]
		}
		out.Nodes = append(out.Nodes, node)
	}
	for n := 0; n < g.Rooms(); n++ {
		for _, m := range g.RoomNeighbors(n) {
			if n < m {
				out.Edges = append(out.Edges, Edge{From: name(n), To: name(m), Corridor: g.WithCorridors()})
			}
		}
	}
	return out
}

// ToDOT converts a room graph to Graphviz DOT format.
// The resulting DOT string can be rendered using [RenderSVG], [RenderPDF], or [RenderPNG].
//
// Rooms are filled by chain; rooms in no chain are white. Corridor
// connections are drawn dashed.
func ToDOT(g Graph, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("graph G {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=18, margin=\"0.2,0.1\"];\n")
	buf.WriteString("\n")

	for _, n := range g.Nodes {
		attrs := fmtAttrs(n, fmtLabel(n, opts.Detailed))
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, e := range g.Edges {
		if e.Corridor {
			fmt.Fprintf(&buf, "  %q -- %q [style=dashed];\n", e.From, e.To)
		} else {
			fmt.Fprintf(&buf, "  %q -- %q;\n", e.From, e.To)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(n Node, detailed bool) string {
	if !detailed || n.Chain < 0 {
		return n.ID
	}
	return fmt.Sprintf("%s\nchain %d #%d", n.ID, n.Chain, n.Order)
}

func fmtAttrs(n Node, label string) []string {
	attrs := []string{fmt.Sprintf("label=%q", label)}
	if n.Chain >= 0 {
		attrs = append(attrs, fmt.Sprintf("fillcolor=%q", palette[n.Chain%len(palette)]))
	}
	return attrs
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
// Returns the SVG bytes ready for display or further conversion with [render.ToPDF] or [render.ToPNG].
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}

// RenderPDF renders a DOT graph as PDF via SVG conversion.
//
// Requires librsvg: brew install librsvg (macOS), apt install librsvg2-bin (Linux).
func RenderPDF(ctx context.Context, dot string) ([]byte, error) {
	svg, err := RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	return render.ToPDF(ctx, svg)
}

// RenderPNG renders a DOT graph as PNG via SVG conversion.
//
// A scale of 2.0 produces a 2x resolution image suitable for high-DPI displays.
//
// Requires librsvg: brew install librsvg (macOS), apt install librsvg2-bin (Linux).
func RenderPNG(ctx context.Context, dot string, scale float64) ([]byte, error) {
	svg, err := RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	return render.ToPNG(ctx, svg, scale)
}
