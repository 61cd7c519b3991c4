// Package constraint scores layouts. Each [Constraint] measures one kind of
// violation between a pair of placed nodes; an [Evaluator] combines them
// into per-node [layout.EnergyData] and keeps it up to date as nodes are
// placed, moved and removed.
package constraint

import (
	"math"

	"github.com/matzehuels/dungeontower/pkg/configspace"
	"github.com/matzehuels/dungeontower/pkg/geom"
	"github.com/matzehuels/dungeontower/pkg/layout"
	"github.com/matzehuels/dungeontower/pkg/mapdesc"
)

// Constraint measures the violation between two placed nodes. Pair must be
// symmetric: swapping the nodes yields the same magnitude.
type Constraint interface {
	Kind() layout.Kind
	Pair(a int, ca layout.Configuration, b int, cb layout.Configuration) int
}

// Overlap measures the area two nodes share. Any overlap makes a layout
// invalid.
type Overlap struct {
	Spaces *configspace.Spaces
}

func (Overlap) Kind() layout.Kind { return layout.KindOverlap }

func (c Overlap) Pair(_ int, ca layout.Configuration, _ int, cb layout.Configuration) int {
	va, vb := c.Spaces.Variant(ca.Variant), c.Spaces.Variant(cb.Variant)
	return geom.OverlapArea(va.Rects, ca.Position, vb.Rects, cb.Position)
}

// Distance measures how far adjacent nodes are from a placement where
// their doors align.
type Distance struct {
	Graph  *mapdesc.Graph
	Spaces *configspace.Spaces
}

func (Distance) Kind() layout.Kind { return layout.KindDistance }

func (c Distance) Pair(a int, ca layout.Configuration, b int, cb layout.Configuration) int {
	if !c.Graph.AreNeighbors(a, b) {
		return 0
	}
	return spaceDistance(c.Spaces.Space(ca.Variant, cb.Variant), ca, cb, c.Spaces.AverageSide())
}

// Corridor measures how far two rooms joined by a corridor are from a
// placement where some corridor shape fits between them.
type Corridor struct {
	Graph  *mapdesc.Graph
	Spaces *configspace.Spaces
}

func (Corridor) Kind() layout.Kind { return layout.KindCorridor }

func (c Corridor) Pair(a int, ca layout.Configuration, b int, cb layout.Configuration) int {
	if !c.Graph.AreRoomNeighbors(a, b) {
		return 0
	}
	return spaceDistance(c.Spaces.CorridorSpace(ca.Variant, cb.Variant), ca, cb, c.Spaces.AverageSide())
}

// Touch measures the boundary shared by rooms that are not connected.
type Touch struct {
	Graph  *mapdesc.Graph
	Spaces *configspace.Spaces
}

func (Touch) Kind() layout.Kind { return layout.KindTouch }

func (c Touch) Pair(a int, ca layout.Configuration, b int, cb layout.Configuration) int {
	if c.Graph.IsCorridor(a) || c.Graph.IsCorridor(b) || c.Graph.AreRoomNeighbors(a, b) {
		return 0
	}
	va, vb := c.Spaces.Variant(ca.Variant), c.Spaces.Variant(cb.Variant)
	return geom.ContactLength(va.Rects, ca.Position, vb.Rects, cb.Position)
}

// spaceDistance is the distance from the current offset to the space. A
// variant pair that can never meet costs its separation plus two average
// sides, so a shape change out of it always pays off.
func spaceDistance(sp *configspace.Space, ca, cb layout.Configuration, avgSide float64) int {
	offset := ca.Position.Sub(cb.Position)
	if sp.IsEmpty() {
		return offset.Manhattan(geom.Point{}) + 2*int(math.Ceil(avgSide)) + 1
	}
	return sp.Distance(offset)
}
