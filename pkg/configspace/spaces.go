package configspace

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/dungeontower/pkg/errors"
	"github.com/matzehuels/dungeontower/pkg/geom"
	"github.com/matzehuels/dungeontower/pkg/mapdesc"
)

// Options configures [Build].
type Options struct {
	// NodeName formats node aliases in error messages. Defaults to the
	// decimal alias.
	NodeName func(int) string

	// Logger receives debug output. Nil disables logging.
	Logger *log.Logger
}

// Spaces holds every shape variant of a graph and the configuration spaces
// between the variants of adjacent nodes. A Spaces value is immutable and
// safe for concurrent use by independent generators.
type Spaces struct {
	variants     []Variant
	nodeVariants [][]int
	direct       map[[2]int]*Space
	corridor     map[[2]int]*Space
	corridors    bool
	averageArea  float64
	averageSide  float64
}

var emptySpace = newSpace(-1, -1, nil)

// Build computes the variants of every node and the configuration spaces
// along every edge of g. It fails with [errors.ErrCodeNoConfigurationSpace]
// when two adjacent nodes have no pair of variants that can be placed
// together.
func Build(ctx context.Context, g *mapdesc.Graph, opts Options) (*Spaces, error) {
	start := time.Now()
	name := opts.NodeName
	if name == nil {
		name = strconv.Itoa
	}
	s := &Spaces{
		direct:    make(map[[2]int]*Space),
		corridor:  make(map[[2]int]*Space),
		corridors: g.WithCorridors(),
	}
	if err := s.buildVariants(g, name); err != nil {
		return nil, err
	}

	for _, e := range g.Edges() {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(errors.ErrCodeCancelled, err, "configuration spaces cancelled")
		}
		if !s.connectDirect(e[0], e[1]) {
			return nil, errors.New(errors.ErrCodeNoConfigurationSpace,
				"no shape of %s can be placed next to a shape of %s", name(e[0]), name(e[1]))
		}
	}
	if g.WithCorridors() {
		for _, c := range g.Corridors() {
			if err := ctx.Err(); err != nil {
				return nil, errors.Wrap(errors.ErrCodeCancelled, err, "configuration spaces cancelled")
			}
			ends := g.Endpoints(c)
			if !s.connectCorridor(ends[0], ends[1], c) {
				return nil, errors.New(errors.ErrCodeNoConfigurationSpace,
					"no corridor shape can connect %s and %s", name(ends[0]), name(ends[1]))
			}
		}
	}

	if opts.Logger != nil {
		opts.Logger.Debug("configuration spaces built",
			"variants", len(s.variants),
			"direct", len(s.direct),
			"corridor", len(s.corridor),
			"duration", time.Since(start).Round(time.Millisecond))
	}
	return s, nil
}

func (s *Spaces) buildVariants(g *mapdesc.Graph, name func(int) string) error {
	byKey := make(map[string]int)
	s.nodeVariants = make([][]int, g.Len())
	var areaSum, sideSum float64
	counted := make(map[int]bool)
	for n := 0; n < g.Len(); n++ {
		seen := make(map[int]bool)
		for _, choice := range g.Choices(n) {
			for _, t := range choice.Transformations {
				v, err := newVariant(choice.Name, choice.Shape, t)
				if err != nil {
					return errors.Wrap(errors.ErrCodeInvalidMap, err, "node %s", name(n))
				}
				k := v.key()
				idx, ok := byKey[k]
				if !ok {
					idx = len(s.variants)
					v.Index = idx
					s.variants = append(s.variants, v)
					byKey[k] = idx
				}
				if !seen[idx] {
					seen[idx] = true
					s.nodeVariants[n] = append(s.nodeVariants[n], idx)
				}
				if !g.IsCorridor(n) && !counted[idx] {
					counted[idx] = true
					areaSum += float64(s.variants[idx].Area)
					sideSum += float64(s.variants[idx].Width+s.variants[idx].Height) / 2
				}
			}
		}
		if len(s.nodeVariants[n]) == 0 {
			return errors.New(errors.ErrCodeInvalidMap, "node %s has no shapes", name(n))
		}
	}
	if len(counted) > 0 {
		s.averageArea = areaSum / float64(len(counted))
		s.averageSide = sideSum / float64(len(counted))
	}
	return nil
}

// connectDirect computes the spaces between a and b in both directions and
// reports whether any of them is non-empty.
func (s *Spaces) connectDirect(a, b int) bool {
	found := false
	for _, va := range s.nodeVariants[a] {
		for _, vb := range s.nodeVariants[b] {
			ab := s.directSpace(va, vb)
			s.directSpace(vb, va)
			if !ab.IsEmpty() {
				found = true
			}
		}
	}
	return found
}

func (s *Spaces) connectCorridor(a, b, c int) bool {
	found := false
	for _, va := range s.nodeVariants[a] {
		for _, vb := range s.nodeVariants[b] {
			ab := s.corridorSpace(va, vb, s.nodeVariants[c])
			s.corridorSpace(vb, va, s.nodeVariants[c])
			if !ab.IsEmpty() {
				found = true
			}
		}
	}
	return found
}

func (s *Spaces) directSpace(moving, fixed int) *Space {
	key := [2]int{moving, fixed}
	if sp, ok := s.direct[key]; ok {
		return sp
	}
	sp := newSpace(moving, fixed, directEntries(&s.variants[moving], &s.variants[fixed]))
	s.direct[key] = sp
	return sp
}

// directEntries finds, for every pair of doors that face each other with
// the same length, the offset making them coincide, keeping offsets where
// the shapes do not overlap.
func directEntries(moving, fixed *Variant) map[DoorPair][]geom.Point {
	entries := make(map[DoorPair][]geom.Point)
	for i, dm := range moving.Doors {
		for j, df := range fixed.Doors {
			if dm.Facing != df.Facing.Opposite() || dm.Line.Length() != df.Line.Length() {
				continue
			}
			off := df.Line.From.Sub(dm.Line.From)
			if geom.OverlapArea(moving.Rects, off, fixed.Rects, geom.Point{}) > 0 {
				continue
			}
			pair := DoorPair{Moving: i, Fixed: j}
			entries[pair] = append(entries[pair], off)
		}
	}
	return entries
}

// corridorSpace composes corridor-relative-to-fixed with
// moving-relative-to-corridor over every corridor variant, keeping offsets
// where the two rooms do not overlap and the corridor uses two different
// doors.
func (s *Spaces) corridorSpace(moving, fixed int, corridorVariants []int) *Space {
	key := [2]int{moving, fixed}
	if sp, ok := s.corridor[key]; ok {
		return sp
	}
	mv, fv := &s.variants[moving], &s.variants[fixed]
	entries := make(map[DoorPair][]geom.Point)
	for _, c := range corridorVariants {
		toFixed := s.directSpace(c, fixed)
		toCorridor := s.directSpace(moving, c)
		s.directSpace(fixed, c)
		s.directSpace(c, moving)
		for _, pf := range toFixed.DoorPairs() {
			for _, pc := range toCorridor.DoorPairs() {
				if pf.Moving == pc.Fixed {
					continue
				}
				pair := DoorPair{Moving: pc.Moving, Fixed: pf.Fixed}
				for _, p := range toFixed.byDoors[pf] {
					for _, q := range toCorridor.byDoors[pc] {
						d := p.Add(q)
						if geom.OverlapArea(mv.Rects, d, fv.Rects, geom.Point{}) > 0 {
							continue
						}
						entries[pair] = append(entries[pair], d)
					}
				}
			}
		}
	}
	sp := newSpace(moving, fixed, entries)
	s.corridor[key] = sp
	return sp
}

// Variants returns every variant. The slice must not be modified.
func (s *Spaces) Variants() []Variant { return s.variants }

// Variant returns the variant with the given index.
func (s *Spaces) Variant(i int) *Variant { return &s.variants[i] }

// NodeVariants returns the variant indices node n may take.
func (s *Spaces) NodeVariants(n int) []int { return s.nodeVariants[n] }

// Space returns the configuration space of moving relative to fixed, or an
// empty space when the pair never meets across an edge.
func (s *Spaces) Space(moving, fixed int) *Space {
	if sp, ok := s.direct[[2]int{moving, fixed}]; ok {
		return sp
	}
	return emptySpace
}

// CorridorSpace returns the space of one room relative to another when
// they are joined by a corridor.
func (s *Spaces) CorridorSpace(moving, fixed int) *Space {
	if sp, ok := s.corridor[[2]int{moving, fixed}]; ok {
		return sp
	}
	return emptySpace
}

// WithCorridors reports whether corridor spaces were built.
func (s *Spaces) WithCorridors() bool { return s.corridors }

// AverageArea returns the mean area of the room variants.
func (s *Spaces) AverageArea() float64 { return s.averageArea }

// AverageSide returns the mean of (width+height)/2 over the room variants.
func (s *Spaces) AverageSide() float64 { return s.averageSide }

// String summarizes the spaces for logs.
func (s *Spaces) String() string {
	return fmt.Sprintf("spaces{variants:%d direct:%d corridor:%d}", len(s.variants), len(s.direct), len(s.corridor))
}
