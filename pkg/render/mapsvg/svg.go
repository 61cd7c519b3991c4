// Package mapsvg draws a [maplayout.Document] as SVG.
//
// Rooms are filled polygons, corridors a darker fill, doors short thick
// strokes along the shared wall. Map units are scaled to pixels by
// [WithScale]; the drawing keeps a one-unit margin around the bounds.
//
// [maplayout.Document]: github.com/matzehuels/dungeontower/pkg/maplayout.Document
package mapsvg

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/matzehuels/dungeontower/pkg/geom"
	"github.com/matzehuels/dungeontower/pkg/maplayout"
	"github.com/matzehuels/dungeontower/pkg/render"
)

// DefaultScale is the number of pixels per map unit.
const DefaultScale = 16

const (
	roomFill     = "#f4ecd8"
	corridorFill = "#d9cfb8"
	wallStroke   = "#3b3228"
	doorStroke   = "#b5562b"
)

type SVGOption func(*svgRenderer)

type svgRenderer struct {
	scale  int
	labels bool
	doors  bool
}

func WithScale(px int) SVGOption { return func(r *svgRenderer) { r.scale = px } }
func WithLabels() SVGOption      { return func(r *svgRenderer) { r.labels = true } }
func WithDoors() SVGOption       { return func(r *svgRenderer) { r.doors = true } }

// RenderSVG draws doc. Rooms are drawn in document order.
func RenderSVG(doc *maplayout.Document, opts ...SVGOption) []byte {
	r := svgRenderer{scale: DefaultScale}
	for _, opt := range opts {
		opt(&r)
	}
	if r.scale <= 0 {
		r.scale = DefaultScale
	}

	b := doc.Bounds()
	origin := b.Min.Sub(geom.Pt(1, 1))
	w, h := (b.Width()+2)*r.scale, (b.Height()+2)*r.scale

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d" width="%d" height="%d">`+"\n", w, h, w, h)
	if doc.Name != "" {
		fmt.Fprintf(&buf, "  <title>%s</title>\n", html.EscapeString(doc.Name))
	}
	fmt.Fprintf(&buf, `  <rect width="%d" height="%d" fill="white"/>`+"\n", w, h)

	for _, room := range doc.Rooms {
		r.renderRoom(&buf, room, origin)
	}
	if r.doors {
		for _, room := range doc.Rooms {
			for _, d := range room.Doors {
				r.renderDoor(&buf, d.Line, origin)
			}
		}
	}
	if r.labels {
		for _, room := range doc.Rooms {
			if !room.Corridor {
				r.renderLabel(&buf, room, origin)
			}
		}
	}

	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

func (r *svgRenderer) px(p, origin geom.Point) (int, int) {
	q := p.Sub(origin)
	return q.X * r.scale, q.Y * r.scale
}

func (r *svgRenderer) renderRoom(buf *bytes.Buffer, room maplayout.RoomDoc, origin geom.Point) {
	pts := make([]string, len(room.Outline))
	for i, p := range room.Outline {
		x, y := r.px(p, origin)
		pts[i] = fmt.Sprintf("%d,%d", x, y)
	}
	fill, class := roomFill, "room"
	if room.Corridor {
		fill, class = corridorFill, "corridor"
	}
	fmt.Fprintf(buf, `  <polygon id="%s" class="%s" points="%s" fill="%s" stroke="%s" stroke-width="2"/>`+"\n",
		html.EscapeString(room.ID), class, strings.Join(pts, " "), fill, wallStroke)
}

func (r *svgRenderer) renderDoor(buf *bytes.Buffer, line geom.Segment, origin geom.Point) {
	x1, y1 := r.px(line.From, origin)
	x2, y2 := r.px(line.To, origin)
	fmt.Fprintf(buf, `  <line class="door" x1="%d" y1="%d" x2="%d" y2="%d" stroke="%s" stroke-width="4"/>`+"\n",
		x1, y1, x2, y2, doorStroke)
}

func (r *svgRenderer) renderLabel(buf *bytes.Buffer, room maplayout.RoomDoc, origin geom.Point) {
	b := geom.Polygon(room.Outline).Bounds()
	x0, y0 := r.px(b.Min, origin)
	x1, y1 := r.px(b.Max, origin)
	fontSize := max(r.scale*3/4, 8)
	fmt.Fprintf(buf, `  <text x="%d" y="%d" font-family="sans-serif" font-size="%d" text-anchor="middle" dominant-baseline="middle" fill="%s">%s</text>`+"\n",
		(x0+x1)/2, (y0+y1)/2, fontSize, wallStroke, html.EscapeString(room.ID))
}

// RenderPNG draws doc and converts it with rsvg-convert.
func RenderPNG(ctx context.Context, doc *maplayout.Document, scale float64, opts ...SVGOption) ([]byte, error) {
	return render.ToPNG(ctx, RenderSVG(doc, opts...), scale)
}

// RenderPDF draws doc and converts it with rsvg-convert.
func RenderPDF(ctx context.Context, doc *maplayout.Document, opts ...SVGOption) ([]byte, error) {
	return render.ToPDF(ctx, RenderSVG(doc, opts...))
}
