// Package convert turns a finished internal layout into a
// [maplayout.MapLayout] keyed by the description's node type.
package convert

import (
	"github.com/matzehuels/dungeontower/pkg/configspace"
	"github.com/matzehuels/dungeontower/pkg/errors"
	"github.com/matzehuels/dungeontower/pkg/geom"
	"github.com/matzehuels/dungeontower/pkg/layout"
	"github.com/matzehuels/dungeontower/pkg/mapdesc"
	"github.com/matzehuels/dungeontower/pkg/maplayout"
)

// ToMapLayout converts l, which must be complete and have zero energy.
// Every graph edge becomes a pair of doors, one on each side, lying on the
// same segment.
func ToMapLayout[K comparable](desc *mapdesc.Description[K], spaces *configspace.Spaces, l *layout.Layout) (*maplayout.MapLayout[K], error) {
	g := l.Graph()
	if !l.IsComplete() {
		return nil, errors.New(errors.ErrCodeInvalidLayout, "layout places %d of %d nodes", l.PlacedCount(), g.Len())
	}
	if !l.IsValid() {
		return nil, errors.New(errors.ErrCodeInvalidLayout, "layout has energy %v", l.Energy())
	}

	out := &maplayout.MapLayout[K]{Rooms: make([]maplayout.Room[K], g.Len())}
	for n := 0; n < g.Len(); n++ {
		c, _ := l.Get(n)
		v := spaces.Variant(c.Variant)
		r := maplayout.Room[K]{
			IsCorridor:     g.IsCorridor(n),
			Shape:          v.Shape,
			Transformation: v.Transformation,
			Position:       c.Position,
			Outline:        v.Outline.Translate(c.Position),
		}
		if r.IsCorridor {
			ends := g.Endpoints(n)
			r.Endpoints = [2]K{desc.Node(ends[0]), desc.Node(ends[1])}
		} else {
			r.Node = desc.Node(n)
		}
		out.Rooms[n] = r
	}

	for _, e := range g.Edges() {
		da, db, ok := sharedDoor(spaces, l, e[0], e[1])
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidLayout, "nodes %d and %d share no door", e[0], e[1])
		}
		out.Rooms[e[0]].Doors = append(out.Rooms[e[0]].Doors, maplayout.Door{Line: da.Line, Facing: da.Facing, Neighbor: e[1]})
		out.Rooms[e[1]].Doors = append(out.Rooms[e[1]].Doors, maplayout.Door{Line: db.Line, Facing: db.Facing, Neighbor: e[0]})
	}
	return out, nil
}

// sharedDoor returns the first pair of aligned doors of a and b in door
// order.
func sharedDoor(spaces *configspace.Spaces, l *layout.Layout, a, b int) (geom.Door, geom.Door, bool) {
	ca, _ := l.Get(a)
	cb, _ := l.Get(b)
	doorsB := spaces.Variant(cb.Variant).DoorsAt(cb.Position)
	for _, da := range spaces.Variant(ca.Variant).DoorsAt(ca.Position) {
		for _, db := range doorsB {
			if da.Aligns(db) {
				return da, db, true
			}
		}
	}
	return geom.Door{}, geom.Door{}, false
}
