package geom

import (
	"errors"
	"fmt"
	"slices"
)

// Polygon validation errors.
var (
	// ErrTooFewPoints is returned for outlines with fewer than four corners.
	ErrTooFewPoints = errors.New("geom: polygon needs at least four corners")

	// ErrNotOrthogonal is returned when two consecutive points are not on a
	// common axis.
	ErrNotOrthogonal = errors.New("geom: polygon sides must be axis-aligned")

	// ErrSelfIntersecting is returned for outlines whose sides cross.
	ErrSelfIntersecting = errors.New("geom: polygon is self-intersecting")
)

// Polygon is a simple orthogonal polygon given by its corners in order.
// Polygons built with [NewPolygon] contain no repeated or collinear corners.
type Polygon []Point

// NewPolygon validates an outline and drops repeated and collinear corners.
func NewPolygon(points ...Point) (Polygon, error) {
	pts := simplify(points)
	if len(pts) < 4 {
		return nil, ErrTooFewPoints
	}
	for i := range pts {
		a, b := pts[i], pts[(i+1)%len(pts)]
		if a.X != b.X && a.Y != b.Y {
			return nil, fmt.Errorf("%w: %s to %s", ErrNotOrthogonal, a, b)
		}
	}
	p := Polygon(pts)
	area := 0
	for _, r := range p.Rects() {
		area += r.Area()
	}
	if area == 0 || area != p.shoelace() {
		return nil, ErrSelfIntersecting
	}
	return p, nil
}

// Rectangle returns the w by h rectangle with its corner at the origin.
func Rectangle(w, h int) Polygon {
	return Polygon{{0, 0}, {w, 0}, {w, h}, {0, h}}
}

// simplify removes repeated corners and corners lying on a straight run.
func simplify(points []Point) []Point {
	pts := make([]Point, 0, len(points))
	for _, p := range points {
		if len(pts) == 0 || pts[len(pts)-1] != p {
			pts = append(pts, p)
		}
	}
	if len(pts) > 1 && pts[0] == pts[len(pts)-1] {
		pts = pts[:len(pts)-1]
	}
	for changed := true; changed && len(pts) >= 3; {
		changed = false
		for i := 0; i < len(pts); i++ {
			prev := pts[(i+len(pts)-1)%len(pts)]
			next := pts[(i+1)%len(pts)]
			if (prev.X == pts[i].X && pts[i].X == next.X) || (prev.Y == pts[i].Y && pts[i].Y == next.Y) {
				pts = slices.Delete(pts, i, i+1)
				changed = true
				break
			}
		}
	}
	return pts
}

func (p Polygon) shoelace() int {
	sum := 0
	for i := range p {
		a, b := p[i], p[(i+1)%len(p)]
		sum += a.X*b.Y - b.X*a.Y
	}
	return abs(sum) / 2
}

// Area returns the enclosed area.
func (p Polygon) Area() int {
	return p.shoelace()
}

// Bounds returns the bounding rectangle of p.
func (p Polygon) Bounds() Rect {
	if len(p) == 0 {
		return Rect{}
	}
	r := Rect{Min: p[0], Max: p[0]}
	for _, q := range p[1:] {
		r.Min.X = min(r.Min.X, q.X)
		r.Min.Y = min(r.Min.Y, q.Y)
		r.Max.X = max(r.Max.X, q.X)
		r.Max.Y = max(r.Max.Y, q.Y)
	}
	return r
}

// Translate returns p moved by d.
func (p Polygon) Translate(d Point) Polygon {
	out := make(Polygon, len(p))
	for i, q := range p {
		out[i] = q.Add(d)
	}
	return out
}

// Sides returns the boundary segments of p in corner order.
func (p Polygon) Sides() []Segment {
	sides := make([]Segment, len(p))
	for i := range p {
		sides[i] = Seg(p[i], p[(i+1)%len(p)])
	}
	return sides
}

// Rects decomposes p into disjoint rectangles by sweeping horizontal strips
// between consecutive corner rows and pairing the vertical sides crossing
// each strip. Rectangles spanning several strips with the same extent are
// merged.
func (p Polygon) Rects() []Rect {
	type vertical struct{ x, y0, y1 int }
	var edges []vertical
	var ys []int
	for i := range p {
		a, b := p[i], p[(i+1)%len(p)]
		ys = append(ys, a.Y)
		if a.X == b.X && a.Y != b.Y {
			edges = append(edges, vertical{a.X, min(a.Y, b.Y), max(a.Y, b.Y)})
		}
	}
	slices.Sort(ys)
	ys = slices.Compact(ys)

	var rects []Rect
	open := map[[2]int]int{}
	for i := 0; i+1 < len(ys); i++ {
		y0, y1 := ys[i], ys[i+1]
		var xs []int
		for _, e := range edges {
			if e.y0 <= y0 && e.y1 >= y1 {
				xs = append(xs, e.x)
			}
		}
		slices.Sort(xs)
		next := make(map[[2]int]int, len(xs)/2)
		for j := 0; j+1 < len(xs); j += 2 {
			key := [2]int{xs[j], xs[j+1]}
			if idx, ok := open[key]; ok {
				rects[idx].Max.Y = y1
				next[key] = idx
				continue
			}
			rects = append(rects, Rect{Min: Point{xs[j], y0}, Max: Point{xs[j+1], y1}})
			next[key] = len(rects) - 1
		}
		open = next
	}
	return rects
}

// Facing returns the outward direction of a side of p.
func (p Polygon) Facing(side Segment) Direction {
	rects := p.Rects()
	mid := side.From.Add(side.To) // doubled midpoint
	var inward Point
	if side.IsHorizontal() {
		inward = Point{0, 1}
	} else {
		inward = Point{1, 0}
	}
	probe := mid.Add(inward)
	for _, r := range rects {
		if 2*r.Min.X < probe.X && probe.X < 2*r.Max.X && 2*r.Min.Y < probe.Y && probe.Y < 2*r.Max.Y {
			return directionOf(inward.Neg())
		}
	}
	return directionOf(inward)
}

// Side returns the side of p that covers s.
func (p Polygon) Side(s Segment) (Segment, bool) {
	for _, side := range p.Sides() {
		if side.Covers(s) {
			return side, true
		}
	}
	return Segment{}, false
}

// Transform applies t to p and moves the result so its bounding box starts
// at the origin. The returned offset is the translation that was added after
// the linear part of t, so doors can be carried along with [Transformation.ApplyDoor].
func (p Polygon) Transform(t Transformation) (Polygon, Point) {
	out := make(Polygon, len(p))
	for i, q := range p {
		out[i] = t.Apply(q)
	}
	b := out.Bounds()
	shift := b.Min.Neg()
	return out.Translate(shift), shift
}
