// Package nodelink renders room graphs as node-link diagrams.
//
// # Overview
//
// This package draws the room graph of a map description using Graphviz:
// rooms are boxes filled by the chain that places them, connections are
// lines, dashed where a corridor room realizes them. It is the quickest way
// to see how a description was decomposed into chains.
//
// # Usage
//
// Build a diagram graph, convert it to DOT, then render to SVG:
//
//	dot := nodelink.ToDOT(nodelink.FromRoomGraph(g, chains, name), nodelink.Options{})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// For PDF or PNG output, use the render functions:
//
//	pdf, err := nodelink.RenderPDF(ctx, dot)
//	png, err := nodelink.RenderPNG(ctx, dot, 2.0)  // 2x scale
//
// PDF and PNG conversion require rsvg-convert from librsvg.
package nodelink
