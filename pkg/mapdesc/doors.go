package mapdesc

import (
	"fmt"
	"slices"

	"github.com/matzehuels/dungeontower/pkg/geom"
)

// DoorMode resolves the door segments of a room outline.
type DoorMode interface {
	Doors(outline geom.Polygon) ([]geom.Door, error)
}

// OverlapDoors allows a door of the given length anywhere along every side,
// keeping at least CornerDistance away from both ends of the side.
type OverlapDoors struct {
	Length         int
	CornerDistance int
}

// Doors implements DoorMode.
func (m OverlapDoors) Doors(outline geom.Polygon) ([]geom.Door, error) {
	if m.Length <= 0 {
		return nil, fmt.Errorf("door length must be positive, got %d", m.Length)
	}
	if m.CornerDistance < 0 {
		return nil, fmt.Errorf("corner distance must not be negative, got %d", m.CornerDistance)
	}
	var doors []geom.Door
	for _, side := range outline.Sides() {
		facing := outline.Facing(side)
		lo, hi := side.From.X, side.To.X
		if !side.IsHorizontal() {
			lo, hi = side.From.Y, side.To.Y
		}
		for start := lo + m.CornerDistance; start+m.Length <= hi-m.CornerDistance; start++ {
			var line geom.Segment
			if side.IsHorizontal() {
				line = geom.Seg(geom.Pt(start, side.From.Y), geom.Pt(start+m.Length, side.From.Y))
			} else {
				line = geom.Seg(geom.Pt(side.From.X, start), geom.Pt(side.From.X, start+m.Length))
			}
			doors = append(doors, geom.Door{Line: line, Facing: facing})
		}
	}
	slices.SortFunc(doors, compareDoors)
	return doors, nil
}

// SpecificDoors places doors exactly on the listed boundary segments.
type SpecificDoors struct {
	Lines []geom.Segment
}

// Doors implements DoorMode.
func (m SpecificDoors) Doors(outline geom.Polygon) ([]geom.Door, error) {
	doors := make([]geom.Door, 0, len(m.Lines))
	for _, l := range m.Lines {
		line := geom.Seg(l.From, l.To)
		if line.Length() == 0 || !line.IsAxisAligned() {
			return nil, fmt.Errorf("door %s must be a non-empty axis-aligned segment", line)
		}
		side, ok := outline.Side(line)
		if !ok {
			return nil, fmt.Errorf("door %s is not on the outline", line)
		}
		doors = append(doors, geom.Door{Line: line, Facing: outline.Facing(side)})
	}
	slices.SortFunc(doors, compareDoors)
	return slices.Compact(doors), nil
}

func compareDoors(a, b geom.Door) int {
	switch {
	case a == b:
		return 0
	case a.Less(b):
		return -1
	default:
		return 1
	}
}
