package configspace

import (
	"encoding/json"
	"sort"

	"github.com/matzehuels/dungeontower/pkg/errors"
	"github.com/matzehuels/dungeontower/pkg/geom"
	"github.com/matzehuels/dungeontower/pkg/mapdesc"
)

// Snapshot is the serializable form of [Spaces], used to cache precomputed
// spaces between runs over the same map description.
type Snapshot struct {
	Variants     []VariantSnapshot `json:"variants"`
	NodeVariants [][]int           `json:"node_variants"`
	Direct       []SpaceSnapshot   `json:"direct"`
	Corridor     []SpaceSnapshot   `json:"corridor,omitempty"`
	Corridors    bool              `json:"corridors"`
	AverageArea  float64           `json:"average_area"`
	AverageSide  float64           `json:"average_side"`
}

// VariantSnapshot is one serialized variant.
type VariantSnapshot struct {
	Shape          string              `json:"shape"`
	Transformation geom.Transformation `json:"transformation"`
	Outline        geom.Polygon        `json:"outline"`
	Doors          []geom.Door         `json:"doors"`
}

// SpaceSnapshot is one serialized space.
type SpaceSnapshot struct {
	Moving  int             `json:"moving"`
	Fixed   int             `json:"fixed"`
	Entries []EntrySnapshot `json:"entries"`
}

// EntrySnapshot lists the offsets one door pair produces.
type EntrySnapshot struct {
	Doors   DoorPair     `json:"doors"`
	Offsets []geom.Point `json:"offsets"`
}

// Snapshot captures s in a form that round-trips through JSON.
func (s *Spaces) Snapshot() *Snapshot {
	snap := &Snapshot{
		NodeVariants: s.nodeVariants,
		Corridors:    s.corridors,
		AverageArea:  s.averageArea,
		AverageSide:  s.averageSide,
	}
	for _, v := range s.variants {
		snap.Variants = append(snap.Variants, VariantSnapshot{
			Shape:          v.Shape,
			Transformation: v.Transformation,
			Outline:        v.Outline,
			Doors:          v.Doors,
		})
	}
	snap.Direct = snapshotSpaces(s.direct)
	snap.Corridor = snapshotSpaces(s.corridor)
	return snap
}

func snapshotSpaces(m map[[2]int]*Space) []SpaceSnapshot {
	keys := make([][2]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i][0] != keys[j][0] {
			return keys[i][0] < keys[j][0]
		}
		return keys[i][1] < keys[j][1]
	})
	out := make([]SpaceSnapshot, 0, len(keys))
	for _, k := range keys {
		sp := m[k]
		ss := SpaceSnapshot{Moving: sp.Moving, Fixed: sp.Fixed}
		for _, p := range sp.DoorPairs() {
			ss.Entries = append(ss.Entries, EntrySnapshot{Doors: p, Offsets: sp.byDoors[p]})
		}
		out = append(out, ss)
	}
	return out
}

// FromSnapshot restores spaces for g. It fails when the snapshot was taken
// for a graph with a different node count or variant set.
func FromSnapshot(snap *Snapshot, g *mapdesc.Graph) (*Spaces, error) {
	if len(snap.NodeVariants) != g.Len() {
		return nil, errors.New(errors.ErrCodeInvalidFormat,
			"snapshot has %d nodes, graph has %d", len(snap.NodeVariants), g.Len())
	}
	s := &Spaces{
		nodeVariants: snap.NodeVariants,
		direct:       make(map[[2]int]*Space, len(snap.Direct)),
		corridor:     make(map[[2]int]*Space, len(snap.Corridor)),
		corridors:    snap.Corridors,
		averageArea:  snap.AverageArea,
		averageSide:  snap.AverageSide,
	}
	for i, vs := range snap.Variants {
		outline, err := geom.NewPolygon(vs.Outline...)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "snapshot variant %d", i)
		}
		b := outline.Bounds()
		s.variants = append(s.variants, Variant{
			Index:          i,
			Shape:          vs.Shape,
			Transformation: vs.Transformation,
			Outline:        outline,
			Rects:          outline.Rects(),
			Doors:          vs.Doors,
			Area:           outline.Area(),
			Width:          b.Width(),
			Height:         b.Height(),
		})
	}
	for _, nv := range snap.NodeVariants {
		for _, v := range nv {
			if v < 0 || v >= len(s.variants) {
				return nil, errors.New(errors.ErrCodeInvalidFormat, "snapshot references unknown variant %d", v)
			}
		}
	}
	restore := func(dst map[[2]int]*Space, src []SpaceSnapshot) {
		for _, ss := range src {
			entries := make(map[DoorPair][]geom.Point, len(ss.Entries))
			for _, e := range ss.Entries {
				entries[e.Doors] = e.Offsets
			}
			dst[[2]int{ss.Moving, ss.Fixed}] = newSpace(ss.Moving, ss.Fixed, entries)
		}
	}
	restore(s.direct, snap.Direct)
	restore(s.corridor, snap.Corridor)
	return s, nil
}

// MarshalJSON encodes the spaces through their snapshot.
func (s *Spaces) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Snapshot())
}

// Decode parses JSON produced by [Spaces.MarshalJSON] for graph g.
func Decode(data []byte, g *mapdesc.Graph) (*Spaces, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode configuration spaces")
	}
	return FromSnapshot(&snap, g)
}
