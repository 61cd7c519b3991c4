// Package mapdesc describes the map to generate: the room shapes, the rooms
// with the shapes each may take, the required connections between rooms and
// whether connections are realized through corridors.
//
// A [Description] is keyed by the caller's node type. [Description.Graph]
// resolves it into a [Graph] over dense int aliases, which is what the rest of
// the generator works on.
package mapdesc

import (
	"slices"

	"github.com/matzehuels/dungeontower/pkg/errors"
	"github.com/matzehuels/dungeontower/pkg/geom"
)

// RoomShape is an outline together with the rule that places its doors.
type RoomShape struct {
	Outline geom.Polygon
	Doors   DoorMode
}

// RoomOptions lists the shapes a room may take. An empty Shapes list falls
// back to the description's default shapes. An empty Transformations list
// allows the shapes only as drawn.
type RoomOptions struct {
	Shapes          []string
	Transformations []geom.Transformation
}

// ShapeChoice is one shape a node may take with the transformations allowed
// for it.
type ShapeChoice struct {
	Name            string
	Shape           RoomShape
	Transformations []geom.Transformation
}

// Description is a map description keyed by the caller's node type.
type Description[K comparable] struct {
	shapes     map[string]RoomShape
	shapeOrder []string

	nodes []K
	index map[K]int
	rooms []RoomOptions
	edges [][2]int

	corridors      bool
	corridorShapes RoomOptions
	defaults       []string
}

// New returns an empty description.
func New[K comparable]() *Description[K] {
	return &Description[K]{
		shapes: make(map[string]RoomShape),
		index:  make(map[K]int),
	}
}

// AddShape registers a named room shape.
func (d *Description[K]) AddShape(name string, s RoomShape) error {
	if err := errors.ValidateName("shape", name); err != nil {
		return err
	}
	if _, ok := d.shapes[name]; ok {
		return errors.New(errors.ErrCodeInvalidMap, "duplicate shape %q", name)
	}
	if s.Doors == nil {
		return errors.New(errors.ErrCodeInvalidMap, "shape %q has no door mode", name)
	}
	outline, err := geom.NewPolygon(s.Outline...)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidMap, err, "shape %q", name)
	}
	if _, err := s.Doors.Doors(outline); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidMap, err, "shape %q doors", name)
	}
	s.Outline = outline
	d.shapes[name] = s
	d.shapeOrder = append(d.shapeOrder, name)
	return nil
}

// AddRoom adds a node with its shape options.
func (d *Description[K]) AddRoom(node K, opts RoomOptions) error {
	if _, ok := d.index[node]; ok {
		return errors.New(errors.ErrCodeInvalidMap, "duplicate room %v", node)
	}
	d.index[node] = len(d.nodes)
	d.nodes = append(d.nodes, node)
	d.rooms = append(d.rooms, cloneOptions(opts))
	return nil
}

// AddConnection requires a and b to be connected in the generated layout.
func (d *Description[K]) AddConnection(a, b K) error {
	ia, ok := d.index[a]
	if !ok {
		return errors.New(errors.ErrCodeInvalidMap, "connection references unknown room %v", a)
	}
	ib, ok := d.index[b]
	if !ok {
		return errors.New(errors.ErrCodeInvalidMap, "connection references unknown room %v", b)
	}
	if ia == ib {
		return errors.New(errors.ErrCodeInvalidMap, "room %v cannot connect to itself", a)
	}
	e := [2]int{min(ia, ib), max(ia, ib)}
	if slices.Contains(d.edges, e) {
		return errors.New(errors.ErrCodeInvalidMap, "duplicate connection %v-%v", a, b)
	}
	d.edges = append(d.edges, e)
	return nil
}

// EnableCorridors realizes every connection through a corridor room taking
// one of the given shapes.
func (d *Description[K]) EnableCorridors(opts RoomOptions) {
	d.corridors = true
	d.corridorShapes = cloneOptions(opts)
}

// SetDefaultShapes sets the shapes used by rooms that list none.
func (d *Description[K]) SetDefaultShapes(names ...string) {
	d.defaults = slices.Clone(names)
}

// WithCorridors reports whether connections are realized through corridors.
func (d *Description[K]) WithCorridors() bool { return d.corridors }

// Nodes returns the rooms in insertion order.
func (d *Description[K]) Nodes() []K { return slices.Clone(d.nodes) }

// Node returns the node for a room alias.
func (d *Description[K]) Node(alias int) K { return d.nodes[alias] }

// Alias returns the dense index of a node.
func (d *Description[K]) Alias(node K) (int, bool) {
	i, ok := d.index[node]
	return i, ok
}

// Shape returns a registered shape.
func (d *Description[K]) Shape(name string) (RoomShape, bool) {
	s, ok := d.shapes[name]
	return s, ok
}

// ShapeNames returns the registered shape names in insertion order.
func (d *Description[K]) ShapeNames() []string { return slices.Clone(d.shapeOrder) }

// Connections returns the required connections as alias pairs.
func (d *Description[K]) Connections() [][2]int { return slices.Clone(d.edges) }

// Graph validates the description and resolves it into a [Graph]. Corridor
// nodes, when enabled, take the aliases following the rooms in connection
// order.
func (d *Description[K]) Graph() (*Graph, error) {
	if len(d.nodes) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidMap, "map has no rooms")
	}
	choices := make([][]ShapeChoice, len(d.nodes))
	for i, opts := range d.rooms {
		c, err := d.resolve(opts, d.defaults)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidMap, err, "room %v", d.nodes[i])
		}
		choices[i] = c
	}
	var corridor []ShapeChoice
	if d.corridors {
		c, err := d.resolve(d.corridorShapes, nil)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidMap, err, "corridors")
		}
		corridor = c
	}
	g := newGraph(len(d.nodes), d.edges, d.corridors, choices, corridor)
	if n, ok := g.unreachable(); ok {
		// Corridors are reachable whenever both their rooms are.
		return nil, errors.New(errors.ErrCodeDisconnectedGraph, "room %v is not connected to room %v", d.nodes[n], d.nodes[0])
	}
	return g, nil
}

func (d *Description[K]) resolve(opts RoomOptions, fallback []string) ([]ShapeChoice, error) {
	names := opts.Shapes
	if len(names) == 0 {
		names = fallback
	}
	if len(names) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidMap, "no shapes and no default shapes")
	}
	transforms := opts.Transformations
	if len(transforms) == 0 {
		transforms = []geom.Transformation{geom.Identity}
	}
	out := make([]ShapeChoice, 0, len(names))
	for _, n := range names {
		s, ok := d.shapes[n]
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidMap, "unknown shape %q", n)
		}
		out = append(out, ShapeChoice{Name: n, Shape: s, Transformations: slices.Clone(transforms)})
	}
	return out, nil
}

func cloneOptions(o RoomOptions) RoomOptions {
	return RoomOptions{
		Shapes:          slices.Clone(o.Shapes),
		Transformations: slices.Clone(o.Transformations),
	}
}
