package configspace

import (
	"math"
	"slices"

	"github.com/matzehuels/dungeontower/pkg/geom"
)

// DoorPair names one door of the moving variant and one of the fixed
// variant by their index in [Variant.Doors]. Corridor spaces record the
// doors the two rooms use on their own sides.
type DoorPair struct {
	Moving int `json:"moving"`
	Fixed  int `json:"fixed"`
}

// Space is the configuration space of a moving variant relative to a fixed
// one: every offset pos(moving)-pos(fixed) at which the two may be placed.
// Spaces are read-only once built.
type Space struct {
	Moving int
	Fixed  int

	offsets []geom.Point
	index   map[geom.Point]struct{}
	byDoors map[DoorPair][]geom.Point
}

func newSpace(moving, fixed int, entries map[DoorPair][]geom.Point) *Space {
	s := &Space{
		Moving:  moving,
		Fixed:   fixed,
		index:   make(map[geom.Point]struct{}),
		byDoors: make(map[DoorPair][]geom.Point, len(entries)),
	}
	for pair, offs := range entries {
		offs = slices.Clone(offs)
		slices.SortFunc(offs, geom.Point.Compare)
		offs = slices.Compact(offs)
		s.byDoors[pair] = offs
		for _, o := range offs {
			if _, ok := s.index[o]; !ok {
				s.index[o] = struct{}{}
				s.offsets = append(s.offsets, o)
			}
		}
	}
	slices.SortFunc(s.offsets, geom.Point.Compare)
	return s
}

// Len returns the number of offsets.
func (s *Space) Len() int { return len(s.offsets) }

// IsEmpty reports whether the variants can never be placed together.
func (s *Space) IsEmpty() bool { return len(s.offsets) == 0 }

// Offsets returns the offsets in ascending order. The slice must not be
// modified.
func (s *Space) Offsets() []geom.Point { return s.offsets }

// Contains reports whether offset is in the space.
func (s *Space) Contains(offset geom.Point) bool {
	_, ok := s.index[offset]
	return ok
}

// Distance returns the Manhattan distance from offset to the nearest offset
// in the space, and zero when it is contained. Empty spaces report a
// distance greater than any reachable one.
func (s *Space) Distance(offset geom.Point) int {
	if len(s.offsets) == 0 {
		return math.MaxInt32
	}
	if s.Contains(offset) {
		return 0
	}
	best := math.MaxInt
	for _, o := range s.offsets {
		if d := o.Manhattan(offset); d < best {
			best = d
		}
	}
	return best
}

// ByDoors returns the offsets produced by one door pair.
func (s *Space) ByDoors(moving, fixed int) []geom.Point {
	return s.byDoors[DoorPair{Moving: moving, Fixed: fixed}]
}

// DoorPairs returns the door pairs contributing offsets, sorted.
func (s *Space) DoorPairs() []DoorPair {
	pairs := make([]DoorPair, 0, len(s.byDoors))
	for p := range s.byDoors {
		pairs = append(pairs, p)
	}
	slices.SortFunc(pairs, func(a, b DoorPair) int {
		if a.Moving != b.Moving {
			return a.Moving - b.Moving
		}
		return a.Fixed - b.Fixed
	})
	return pairs
}
