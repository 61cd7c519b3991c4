// Package render provides visual output for generated dungeon layouts.
//
// # Overview
//
// Rendering is diagnostic tooling: it draws finished layouts and the room
// graph they came from. It provides:
//
//   - Generic format conversion (SVG to PDF/PNG)
//   - Map drawings of a [maplayout.Document] (in [mapsvg] subpackage)
//   - Room graph diagrams colored by chain (in [nodelink] subpackage)
//
// # Format Conversion
//
// The [ToPDF] and [ToPNG] functions convert any SVG to other formats using
// the external rsvg-convert tool (from librsvg).
//
//	svg := mapsvg.RenderSVG(doc, mapsvg.WithLabels())
//	pdf, err := render.ToPDF(svg)
//	png, err := render.ToPNG(svg, 2.0)  // 2x scale
//
// # Room Graph Diagrams
//
// The [nodelink] subpackage renders the room graph using Graphviz, one fill
// color per chain, so a chain decomposition can be checked at a glance.
//
//	dot := nodelink.ToDOT(nodelink.FromRoomGraph(g, chains, name), nodelink.Options{})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// [maplayout.Document]: github.com/matzehuels/dungeontower/pkg/maplayout.Document
// [mapsvg]: github.com/matzehuels/dungeontower/pkg/render/mapsvg
// [nodelink]: github.com/matzehuels/dungeontower/pkg/render/nodelink
package render
