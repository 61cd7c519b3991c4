// Package operations implements the local changes the annealer makes to a
// layout: proposing a new configuration for a node, applying or removing
// it, perturbing a chain, seeding a chain greedily and placing corridors.
//
// Every operation returns a new layout and leaves its input untouched.
// Randomness comes only from the *rand.Rand given to [New].
package operations

import (
	"math"
	"math/rand/v2"
	"slices"

	"github.com/matzehuels/dungeontower/pkg/chain"
	"github.com/matzehuels/dungeontower/pkg/configspace"
	"github.com/matzehuels/dungeontower/pkg/constraint"
	"github.com/matzehuels/dungeontower/pkg/errors"
	"github.com/matzehuels/dungeontower/pkg/geom"
	"github.com/matzehuels/dungeontower/pkg/layout"
	"github.com/matzehuels/dungeontower/pkg/mapdesc"
)

// Config tunes the perturbation mix.
type Config struct {
	// ShapeChance is the probability of changing a node's shape instead of
	// its position.
	ShapeChance float64 `toml:"shape_chance" json:"shape_chance"`

	// OutsideChance is the probability of perturbing an already placed
	// neighbor of the chain instead of a chain node. Ignored with corridors.
	OutsideChance float64 `toml:"outside_chance" json:"outside_chance"`

	// Candidates caps the positions tried per shape when seeding a chain.
	Candidates int `toml:"candidates" json:"candidates"`
}

// DefaultConfig returns the perturbation mix used by default.
func DefaultConfig() Config {
	return Config{
		ShapeChance:   0.4,
		OutsideChance: 0.1,
		Candidates:    16,
	}
}

// ValidateAndSetDefaults checks the config and fills unset fields.
func (c *Config) ValidateAndSetDefaults() error {
	if c.ShapeChance < 0 || c.ShapeChance > 1 {
		return errors.New(errors.ErrCodeInvalidConfig, "shape chance must be in [0,1], got %v", c.ShapeChance)
	}
	if c.OutsideChance < 0 || c.OutsideChance > 1 {
		return errors.New(errors.ErrCodeInvalidConfig, "outside chance must be in [0,1], got %v", c.OutsideChance)
	}
	if c.Candidates == 0 {
		c.Candidates = DefaultConfig().Candidates
	}
	if c.Candidates < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "candidates must be positive, got %d", c.Candidates)
	}
	return nil
}

// Operations applies layout changes for one generation run.
type Operations struct {
	graph  *mapdesc.Graph
	spaces *configspace.Spaces
	eval   *constraint.Evaluator
	cfg    Config
	rng    *rand.Rand
}

// New returns the operations for one run. The rng is owned by the caller
// and shared with the annealer so a seed fixes the whole run.
func New(g *mapdesc.Graph, spaces *configspace.Spaces, eval *constraint.Evaluator, cfg Config, rng *rand.Rand) *Operations {
	return &Operations{graph: g, spaces: spaces, eval: eval, cfg: cfg, rng: rng}
}

// Apply returns l with n placed at c.
func (o *Operations) Apply(l *layout.Layout, n int, c layout.Configuration) *layout.Layout {
	return o.eval.Apply(l, n, c)
}

// Remove returns l without n.
func (o *Operations) Remove(l *layout.Layout, n int) *layout.Layout {
	return o.eval.Remove(l, n)
}

// anchor is a placed node whose configuration space constrains another.
type anchor struct {
	config   layout.Configuration
	corridor bool
}

// anchors returns the placed nodes n must relate to. Rooms in a corridor
// graph relate to the rooms they share a corridor with.
func (o *Operations) anchors(l *layout.Layout, n int) []anchor {
	var out []anchor
	if o.graph.WithCorridors() && !o.graph.IsCorridor(n) {
		for _, m := range o.graph.RoomNeighbors(n) {
			if c, ok := l.Get(m); ok {
				out = append(out, anchor{config: c, corridor: true})
			}
		}
		return out
	}
	for _, m := range o.graph.Neighbors(n) {
		if c, ok := l.Get(m); ok {
			out = append(out, anchor{config: c})
		}
	}
	return out
}

func (o *Operations) space(variant int, a anchor) *configspace.Space {
	if a.corridor {
		return o.spaces.CorridorSpace(variant, a.config.Variant)
	}
	return o.spaces.Space(variant, a.config.Variant)
}

// positions returns, in ascending order, the absolute positions for a
// variant lying in the configuration spaces of as many anchors as possible.
func (o *Operations) positions(anchors []anchor, variant int) []geom.Point {
	counts := make(map[geom.Point]int)
	for _, a := range anchors {
		for _, off := range o.space(variant, a).Offsets() {
			counts[a.config.Position.Add(off)]++
		}
	}
	best := 0
	for _, c := range counts {
		best = max(best, c)
	}
	var out []geom.Point
	for p, c := range counts {
		if c == best {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, geom.Point.Compare)
	return out
}

// Propose draws a new configuration for n: either another shape at the
// same position or a position from the largest intersection of the
// configuration spaces against its placed neighbors. It reports false when
// no alternative exists.
func (o *Operations) Propose(l *layout.Layout, n int) (layout.Configuration, bool) {
	cur, placed := l.Get(n)
	variants := o.spaces.NodeVariants(n)
	if placed && len(variants) > 1 && o.rng.Float64() < o.cfg.ShapeChance {
		return o.shapeMove(cur, variants), true
	}

	variant := cur.Variant
	if !placed {
		variant = variants[o.rng.IntN(len(variants))]
	}
	anchors := o.anchors(l, n)
	pts := o.positions(anchors, variant)
	if len(pts) == 0 && len(variants) > 1 {
		variant = variants[o.rng.IntN(len(variants))]
		pts = o.positions(anchors, variant)
	}
	if len(pts) == 0 {
		if placed && len(variants) > 1 {
			return o.shapeMove(cur, variants), true
		}
		if !placed {
			return layout.Configuration{Variant: variant}, true
		}
		return layout.Configuration{}, false
	}
	return layout.Configuration{Variant: variant, Position: pts[o.rng.IntN(len(pts))]}, true
}

func (o *Operations) shapeMove(cur layout.Configuration, variants []int) layout.Configuration {
	i := o.rng.IntN(len(variants) - 1)
	if variants[i] == cur.Variant {
		i = len(variants) - 1
	}
	return layout.Configuration{Variant: variants[i], Position: cur.Position}
}

// Perturb changes one node: usually a node of the chain, sometimes an
// already placed neighbor of it.
func (o *Operations) Perturb(l *layout.Layout, nodes []int) *layout.Layout {
	n := -1
	if !o.graph.WithCorridors() && o.cfg.OutsideChance > 0 && o.rng.Float64() < o.cfg.OutsideChance {
		if outside := o.outside(l, nodes); len(outside) > 0 {
			n = outside[o.rng.IntN(len(outside))]
		}
	}
	if n < 0 {
		var placed []int
		for _, m := range nodes {
			if l.IsPlaced(m) {
				placed = append(placed, m)
			}
		}
		if len(placed) == 0 {
			return l
		}
		n = placed[o.rng.IntN(len(placed))]
	}
	c, ok := o.Propose(l, n)
	if !ok {
		return l
	}
	return o.eval.Apply(l, n, c)
}

// outside returns the placed nodes adjacent to the chain but not in it.
func (o *Operations) outside(l *layout.Layout, nodes []int) []int {
	var out []int
	for _, n := range nodes {
		for _, m := range o.graph.Neighbors(n) {
			if l.IsPlaced(m) && !slices.Contains(nodes, m) && !slices.Contains(out, m) {
				out = append(out, m)
			}
		}
	}
	slices.Sort(out)
	return out
}

// AddChain places every node of ch greedily: for each shape it samples up
// to Candidates positions from the best configuration space intersection
// and keeps the lowest energy placement.
func (o *Operations) AddChain(l *layout.Layout, ch chain.Chain) *layout.Layout {
	for _, n := range ch.Nodes {
		if l.IsPlaced(n) {
			continue
		}
		anchors := o.anchors(l, n)
		var best *layout.Layout
		bestEnergy := math.Inf(1)
		for _, v := range o.spaces.NodeVariants(n) {
			pts := o.positions(anchors, v)
			if len(anchors) == 0 {
				pts = []geom.Point{{}}
			}
			for _, p := range o.sample(pts) {
				cand := o.eval.Apply(l, n, layout.Configuration{Variant: v, Position: p})
				if e := cand.Energy(); e < bestEnergy {
					best, bestEnergy = cand, e
				}
			}
		}
		if best == nil {
			// No shape has a space against the placed neighbors; start on
			// top of the first one and let the annealer move it.
			pos := geom.Point{}
			if len(anchors) > 0 {
				pos = anchors[0].config.Position
			}
			best = o.eval.Apply(l, n, layout.Configuration{Variant: o.spaces.NodeVariants(n)[0], Position: pos})
		}
		l = best
	}
	return l
}

// sample returns up to Candidates positions chosen uniformly without
// replacement, in the order drawn.
func (o *Operations) sample(pts []geom.Point) []geom.Point {
	k := o.cfg.Candidates
	if len(pts) <= k {
		return pts
	}
	pts = slices.Clone(pts)
	for i := 0; i < k; i++ {
		j := i + o.rng.IntN(len(pts)-i)
		pts[i], pts[j] = pts[j], pts[i]
	}
	return pts[:k]
}

// CompleteChain places every missing corridor whose two rooms are placed,
// taking for each the first shape and position that aligns with both rooms
// and overlaps nothing. It reports false if some corridor cannot be placed.
func (o *Operations) CompleteChain(l *layout.Layout) (*layout.Layout, bool) {
	if !o.graph.WithCorridors() {
		return l, true
	}
	for _, c := range o.graph.Corridors() {
		if l.IsPlaced(c) {
			continue
		}
		ends := o.graph.Endpoints(c)
		ca, okA := l.Get(ends[0])
		cb, okB := l.Get(ends[1])
		if !okA || !okB {
			continue
		}
		placed := false
		for _, v := range o.spaces.NodeVariants(c) {
			fromA := make(map[geom.Point]bool)
			for _, off := range o.spaces.Space(v, ca.Variant).Offsets() {
				fromA[ca.Position.Add(off)] = true
			}
			for _, off := range o.spaces.Space(v, cb.Variant).Offsets() {
				p := cb.Position.Add(off)
				if !fromA[p] {
					continue
				}
				cand := o.eval.Apply(l, c, layout.Configuration{Variant: v, Position: p})
				if cfg, _ := cand.Get(c); cfg.Energy.IsZero() {
					l, placed = cand, true
					break
				}
			}
			if placed {
				break
			}
		}
		if !placed {
			return l, false
		}
	}
	return l, true
}
