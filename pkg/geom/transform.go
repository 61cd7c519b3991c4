package geom

import (
	"fmt"
	"strings"
)

// Transformation is one of the eight rotations and reflections of the grid.
type Transformation int

const (
	Identity Transformation = iota
	Rotate90
	Rotate180
	Rotate270
	MirrorX
	MirrorXRotate90
	MirrorXRotate180
	MirrorXRotate270
)

var transformationNames = [...]string{
	"identity", "rotate90", "rotate180", "rotate270",
	"mirror", "mirror-rotate90", "mirror-rotate180", "mirror-rotate270",
}

// Transformations lists every transformation in declaration order.
func Transformations() []Transformation {
	return []Transformation{
		Identity, Rotate90, Rotate180, Rotate270,
		MirrorX, MirrorXRotate90, MirrorXRotate180, MirrorXRotate270,
	}
}

// Rotations lists the four transformations without reflection.
func Rotations() []Transformation {
	return []Transformation{Identity, Rotate90, Rotate180, Rotate270}
}

func (t Transformation) String() string {
	if t < 0 || int(t) >= len(transformationNames) {
		return fmt.Sprintf("Transformation(%d)", int(t))
	}
	return transformationNames[t]
}

// ParseTransformation returns the transformation with the given name.
func ParseTransformation(name string) (Transformation, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for i, tn := range transformationNames {
		if tn == n {
			return Transformation(i), nil
		}
	}
	return Identity, fmt.Errorf("geom: unknown transformation %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (t Transformation) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Transformation) UnmarshalText(b []byte) error {
	v, err := ParseTransformation(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Apply maps a point through the linear part of t. Rotations turn
// counter-clockwise in standard axes.
func (t Transformation) Apply(p Point) Point {
	if t >= MirrorX {
		p = Point{-p.X, p.Y}
	}
	switch t % 4 {
	case 1:
		return Point{-p.Y, p.X}
	case 2:
		return Point{-p.X, -p.Y}
	case 3:
		return Point{p.Y, -p.X}
	default:
		return p
	}
}

// ApplyDoor maps a door through t followed by shift, as returned by
// [Polygon.Transform].
func (t Transformation) ApplyDoor(d Door, shift Point) Door {
	return Door{
		Line:   Seg(t.Apply(d.Line.From).Add(shift), t.Apply(d.Line.To).Add(shift)),
		Facing: directionOf(t.Apply(d.Facing.Normal())),
	}
}
