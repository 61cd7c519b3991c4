// Package maplayout holds finished layouts: every room and corridor with
// its shape, placement, absolute outline and the doors it shares with its
// neighbors.
//
// [MapLayout] is keyed by the caller's node type. [Document] is its
// string-keyed serialization, used for JSON files, caches and storage.
package maplayout

import (
	"github.com/matzehuels/dungeontower/pkg/geom"
)

// Door is a door of a room together with the room on its other side.
type Door struct {
	Line   geom.Segment
	Facing geom.Direction
	// Neighbor indexes [MapLayout.Rooms].
	Neighbor int
}

// Room is a placed room or corridor.
type Room[K comparable] struct {
	Node       K
	IsCorridor bool
	// Endpoints are the rooms a corridor connects. Unset for rooms.
	Endpoints [2]K

	Shape          string
	Transformation geom.Transformation
	Position       geom.Point
	// Outline is in map coordinates.
	Outline geom.Polygon
	Doors   []Door
}

// MapLayout is a finished layout. Rooms come first in description order,
// followed by corridors in connection order.
type MapLayout[K comparable] struct {
	Rooms []Room[K]
}

// Room returns the room for node.
func (m *MapLayout[K]) Room(node K) (Room[K], bool) {
	for _, r := range m.Rooms {
		if !r.IsCorridor && r.Node == node {
			return r, true
		}
	}
	return Room[K]{}, false
}

// Bounds returns the bounding box of every outline.
func (m *MapLayout[K]) Bounds() geom.Rect {
	outlines := make([]geom.Polygon, len(m.Rooms))
	for i, r := range m.Rooms {
		outlines[i] = r.Outline
	}
	return bounds(outlines)
}

func bounds(outlines []geom.Polygon) geom.Rect {
	var b geom.Rect
	for i, o := range outlines {
		ob := o.Bounds()
		if i == 0 {
			b = ob
			continue
		}
		b.Min.X = min(b.Min.X, ob.Min.X)
		b.Min.Y = min(b.Min.Y, ob.Min.Y)
		b.Max.X = max(b.Max.X, ob.Max.X)
		b.Max.Y = max(b.Max.Y, ob.Max.Y)
	}
	return b
}

// Document converts m to its serializable form, naming nodes with name.
func (m *MapLayout[K]) Document(name func(K) string) *Document {
	doc := &Document{Rooms: make([]RoomDoc, len(m.Rooms))}
	ids := make([]string, len(m.Rooms))
	for i, r := range m.Rooms {
		if r.IsCorridor {
			ids[i] = name(r.Endpoints[0]) + "~" + name(r.Endpoints[1])
		} else {
			ids[i] = name(r.Node)
		}
	}
	for i, r := range m.Rooms {
		rd := RoomDoc{
			ID:             ids[i],
			Corridor:       r.IsCorridor,
			Shape:          r.Shape,
			Transformation: r.Transformation,
			Position:       r.Position,
			Outline:        []geom.Point(r.Outline),
			Doors:          make([]DoorDoc, len(r.Doors)),
		}
		if r.IsCorridor {
			rd.Connects = []string{name(r.Endpoints[0]), name(r.Endpoints[1])}
		}
		for j, d := range r.Doors {
			rd.Doors[j] = DoorDoc{Line: d.Line, Facing: d.Facing, To: ids[d.Neighbor]}
		}
		doc.Rooms[i] = rd
	}
	b := m.Bounds()
	doc.Width, doc.Height = b.Width(), b.Height()
	return doc
}
