// Package layout holds partial and complete assignments of configurations
// to graph nodes.
//
// A [Layout] is never modified after it is built. Changes go through an
// [Editor], which copies the layout once and returns a new value from
// [Editor.Done], so keeping the previous layout is all it takes to roll a
// change back.
package layout

import (
	"fmt"

	"github.com/matzehuels/dungeontower/pkg/geom"
	"github.com/matzehuels/dungeontower/pkg/mapdesc"
)

// Kind identifies one constraint contributing to a node's energy.
type Kind int

const (
	KindOverlap Kind = iota
	KindDistance
	KindCorridor
	KindTouch

	NumKinds
)

var kindNames = [...]string{"overlap", "distance", "corridor", "touch"}

func (k Kind) String() string {
	if k < 0 || k >= NumKinds {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// EnergyData is the constraint violation attached to one placed node.
// Magnitudes are summed over every pair the node takes part in; Energy is
// their weighted, normalized sum.
type EnergyData struct {
	Magnitudes [NumKinds]int
	Energy     float64
}

// IsZero reports whether the node violates no constraint.
func (e EnergyData) IsZero() bool {
	return e.Magnitudes == [NumKinds]int{}
}

// Configuration is the placement of one node: a shape variant and the
// position of its origin.
type Configuration struct {
	Variant  int
	Position geom.Point
	Energy   EnergyData
}

// SameShapeAndPosition reports whether c and o place a node identically.
func (c Configuration) SameShapeAndPosition(o Configuration) bool {
	return c.Variant == o.Variant && c.Position == o.Position
}

// Layout maps nodes of a graph to configurations.
type Layout struct {
	graph   *mapdesc.Graph
	configs []Configuration
	placed  []bool
	count   int
}

// New returns an empty layout over g.
func New(g *mapdesc.Graph) *Layout {
	return &Layout{
		graph:   g,
		configs: make([]Configuration, g.Len()),
		placed:  make([]bool, g.Len()),
	}
}

// Graph returns the graph the layout is defined over.
func (l *Layout) Graph() *mapdesc.Graph { return l.graph }

// Get returns the configuration of n, if placed.
func (l *Layout) Get(n int) (Configuration, bool) {
	if !l.placed[n] {
		return Configuration{}, false
	}
	return l.configs[n], true
}

// IsPlaced reports whether n has a configuration.
func (l *Layout) IsPlaced(n int) bool { return l.placed[n] }

// PlacedCount returns the number of placed nodes.
func (l *Layout) PlacedCount() int { return l.count }

// Placed returns the placed nodes in ascending order.
func (l *Layout) Placed() []int {
	out := make([]int, 0, l.count)
	for n, ok := range l.placed {
		if ok {
			out = append(out, n)
		}
	}
	return out
}

// IsComplete reports whether every node, corridors included, is placed.
func (l *Layout) IsComplete() bool { return l.count == len(l.placed) }

// Magnitudes returns the violation magnitudes summed over placed nodes.
// Every pairwise violation is counted once for each node of the pair.
func (l *Layout) Magnitudes() [NumKinds]int {
	var total [NumKinds]int
	for n, ok := range l.placed {
		if !ok {
			continue
		}
		for k, m := range l.configs[n].Energy.Magnitudes {
			total[k] += m
		}
	}
	return total
}

// Energy returns the sum of node energies in node order.
func (l *Layout) Energy() float64 {
	e := 0.0
	for n, ok := range l.placed {
		if ok {
			e += l.configs[n].Energy.Energy
		}
	}
	return e
}

// IsValid reports whether no placed node violates a constraint.
func (l *Layout) IsValid() bool {
	for n, ok := range l.placed {
		if ok && !l.configs[n].Energy.IsZero() {
			return false
		}
	}
	return true
}

// Edit starts a change to l. l itself is never modified.
func (l *Layout) Edit() *Editor {
	return &Editor{l: &Layout{
		graph:   l.graph,
		configs: append([]Configuration(nil), l.configs...),
		placed:  append([]bool(nil), l.placed...),
		count:   l.count,
	}}
}

// Editor accumulates changes to a copy of a layout.
type Editor struct {
	l *Layout
}

// Get returns the configuration of n in the edited copy.
func (e *Editor) Get(n int) (Configuration, bool) { return e.l.Get(n) }

// Set places n with configuration c.
func (e *Editor) Set(n int, c Configuration) {
	if !e.l.placed[n] {
		e.l.placed[n] = true
		e.l.count++
	}
	e.l.configs[n] = c
}

// SetEnergy replaces the energy of a placed node.
func (e *Editor) SetEnergy(n int, energy EnergyData) {
	e.l.configs[n].Energy = energy
}

// Unset removes the configuration of n.
func (e *Editor) Unset(n int) {
	if e.l.placed[n] {
		e.l.placed[n] = false
		e.l.count--
		e.l.configs[n] = Configuration{}
	}
}

// Done returns the edited layout. The editor must not be used afterwards.
func (e *Editor) Done() *Layout {
	l := e.l
	e.l = nil
	return l
}
