package configspace

import (
	"fmt"
	"slices"
	"strings"

	"github.com/matzehuels/dungeontower/pkg/geom"
	"github.com/matzehuels/dungeontower/pkg/mapdesc"
)

// Variant is a shape under one transformation, normalized so its bounding
// box starts at the origin. Variants are identified by their index into
// [Spaces.Variants].
type Variant struct {
	Index          int
	Shape          string
	Transformation geom.Transformation
	Outline        geom.Polygon
	Rects          []geom.Rect
	Doors          []geom.Door
	Area           int
	Width          int
	Height         int
}

func newVariant(name string, shape mapdesc.RoomShape, t geom.Transformation) (Variant, error) {
	doors, err := shape.Doors.Doors(shape.Outline)
	if err != nil {
		return Variant{}, fmt.Errorf("shape %q: %w", name, err)
	}
	outline, shift := shape.Outline.Transform(t)
	moved := make([]geom.Door, len(doors))
	for i, d := range doors {
		moved[i] = t.ApplyDoor(d, shift)
	}
	slices.SortFunc(moved, func(a, b geom.Door) int {
		switch {
		case a == b:
			return 0
		case a.Less(b):
			return -1
		default:
			return 1
		}
	})
	b := outline.Bounds()
	return Variant{
		Shape:          name,
		Transformation: t,
		Outline:        outline,
		Rects:          outline.Rects(),
		Doors:          moved,
		Area:           outline.Area(),
		Width:          b.Width(),
		Height:         b.Height(),
	}, nil
}

// key identifies variants of one shape that are geometrically identical,
// such as a square under every rotation.
func (v Variant) key() string {
	var sb strings.Builder
	sb.WriteString(v.Shape)
	rects := slices.Clone(v.Rects)
	slices.SortFunc(rects, func(a, b geom.Rect) int {
		if c := a.Min.Compare(b.Min); c != 0 {
			return c
		}
		return a.Max.Compare(b.Max)
	})
	for _, r := range rects {
		fmt.Fprintf(&sb, "|%d,%d,%d,%d", r.Min.X, r.Min.Y, r.Max.X, r.Max.Y)
	}
	sb.WriteString("#")
	for _, d := range v.Doors {
		fmt.Fprintf(&sb, "|%d,%d,%d,%d,%d", d.Line.From.X, d.Line.From.Y, d.Line.To.X, d.Line.To.Y, d.Facing)
	}
	return sb.String()
}

// DoorsAt returns the doors of v placed at p.
func (v Variant) DoorsAt(p geom.Point) []geom.Door {
	out := make([]geom.Door, len(v.Doors))
	for i, d := range v.Doors {
		out[i] = d.Translate(p)
	}
	return out
}
