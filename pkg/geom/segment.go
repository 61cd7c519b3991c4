package geom

import "fmt"

// Segment is an axis-aligned line segment. Segments built with [Seg] are
// normalized so From is never greater than To under [Point.Less], which
// makes equal segments compare equal with ==.
type Segment struct {
	From Point `json:"from" yaml:"from" bson:"from"`
	To   Point `json:"to" yaml:"to" bson:"to"`
}

// Seg returns the normalized segment between a and b.
func Seg(a, b Point) Segment {
	if b.Less(a) {
		a, b = b, a
	}
	return Segment{From: a, To: b}
}

// Length returns the length of an axis-aligned segment.
func (s Segment) Length() int {
	return s.From.Manhattan(s.To)
}

// IsHorizontal reports whether s lies along the X axis.
func (s Segment) IsHorizontal() bool {
	return s.From.Y == s.To.Y
}

// IsAxisAligned reports whether s is horizontal or vertical.
func (s Segment) IsAxisAligned() bool {
	return s.From.X == s.To.X || s.From.Y == s.To.Y
}

// Translate returns s moved by p.
func (s Segment) Translate(p Point) Segment {
	return Segment{From: s.From.Add(p), To: s.To.Add(p)}
}

// Covers reports whether o lies on s.
func (s Segment) Covers(o Segment) bool {
	if s.IsHorizontal() != o.IsHorizontal() && o.Length() > 0 {
		return false
	}
	if s.IsHorizontal() {
		return o.From.Y == s.From.Y && o.To.Y == s.From.Y &&
			o.From.X >= s.From.X && o.To.X <= s.To.X
	}
	return o.From.X == s.From.X && o.To.X == s.From.X &&
		o.From.Y >= s.From.Y && o.To.Y <= s.To.Y
}

func (s Segment) String() string {
	return fmt.Sprintf("%s-%s", s.From, s.To)
}

// Direction is the outward facing of a boundary side.
type Direction int

// Facings. Y grows downward.
const (
	Up Direction = iota
	Right
	Down
	Left
)

var directionNames = [...]string{"up", "right", "down", "left"}

func (d Direction) String() string {
	if d < 0 || int(d) >= len(directionNames) {
		return fmt.Sprintf("Direction(%d)", int(d))
	}
	return directionNames[d]
}

// MarshalText implements encoding.TextMarshaler.
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Direction) UnmarshalText(b []byte) error {
	for i, n := range directionNames {
		if n == string(b) {
			*d = Direction(i)
			return nil
		}
	}
	return fmt.Errorf("geom: unknown direction %q", b)
}

// Normal returns the unit vector d points along.
func (d Direction) Normal() Point {
	switch d {
	case Up:
		return Point{0, -1}
	case Right:
		return Point{1, 0}
	case Down:
		return Point{0, 1}
	default:
		return Point{-1, 0}
	}
}

// Opposite returns the direction facing the other way.
func (d Direction) Opposite() Direction {
	return (d + 2) % 4
}

// directionOf maps a unit vector back to its direction.
func directionOf(n Point) Direction {
	switch n {
	case Point{0, -1}:
		return Up
	case Point{1, 0}:
		return Right
	case Point{0, 1}:
		return Down
	default:
		return Left
	}
}

// Door is a segment on a shape boundary through which the shape can connect
// to a neighbor. Facing is the outward normal of the side it lies on.
type Door struct {
	Line   Segment   `json:"line" bson:"line"`
	Facing Direction `json:"facing" bson:"facing"`
}

// Translate returns d moved by p.
func (d Door) Translate(p Point) Door {
	return Door{Line: d.Line.Translate(p), Facing: d.Facing}
}

// Aligns reports whether d and o occupy the same segment from opposite
// sides, which is the condition for two shapes to connect through them.
func (d Door) Aligns(o Door) bool {
	return d.Line == o.Line && d.Facing == o.Facing.Opposite()
}

// Less orders doors by segment, then facing.
func (d Door) Less(o Door) bool {
	if d.Line.From != o.Line.From {
		return d.Line.From.Less(o.Line.From)
	}
	if d.Line.To != o.Line.To {
		return d.Line.To.Less(o.Line.To)
	}
	return d.Facing < o.Facing
}
