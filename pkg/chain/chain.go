// Package chain splits the room graph into an ordered sequence of chains.
//
// Chains are consumed in order by the planner: every node of a chain except
// the very first node of the first chain is adjacent to a node placed
// earlier, either in a previous chain or earlier in the same chain. This
// lets the layout grow one chain at a time, relating new rooms only to rooms
// already placed.
//
// Two policies are available:
//   - [PolicyEars] starts with the shortest cycle and keeps adding the
//     shortest ear (a path of new rooms attached at both ends), falling back
//     to breadth-first tree chains where no ear exists.
//   - [PolicyBreadthFirst] only builds breadth-first tree chains.
//
// Decomposition is deterministic: ties are always broken by node alias, so
// the same graph always yields the same chains.
package chain

import (
	"fmt"
	"slices"
	"strings"

	"github.com/matzehuels/dungeontower/pkg/errors"
	"github.com/matzehuels/dungeontower/pkg/mapdesc"
)

// Policy selects how chains are formed.
type Policy string

const (
	PolicyEars         Policy = "ears"
	PolicyBreadthFirst Policy = "breadth-first"
)

// DefaultMaxTreeSize bounds tree chains when Options leave it unset.
const DefaultMaxTreeSize = 8

// Options configures [Decompose].
type Options struct {
	Policy      Policy `toml:"policy" json:"policy"`
	MaxTreeSize int    `toml:"max_tree_size" json:"max_tree_size"`
}

// ValidateAndSetDefaults checks the options and fills unset fields.
func (o *Options) ValidateAndSetDefaults() error {
	if o.Policy == "" {
		o.Policy = PolicyEars
	}
	if o.Policy != PolicyEars && o.Policy != PolicyBreadthFirst {
		return errors.New(errors.ErrCodeInvalidConfig, "unknown chain policy %q", o.Policy)
	}
	if o.MaxTreeSize == 0 {
		o.MaxTreeSize = DefaultMaxTreeSize
	}
	if o.MaxTreeSize < 1 {
		return errors.New(errors.ErrCodeInvalidConfig, "max tree size must be positive, got %d", o.MaxTreeSize)
	}
	return nil
}

// Chain is an ordered group of room nodes placed together.
type Chain struct {
	Index int   `json:"index"`
	Nodes []int `json:"nodes"`
}

func (c Chain) String() string {
	parts := make([]string, len(c.Nodes))
	for i, n := range c.Nodes {
		parts[i] = fmt.Sprint(n)
	}
	return fmt.Sprintf("chain %d [%s]", c.Index, strings.Join(parts, " "))
}

// Contains reports whether n belongs to the chain.
func (c Chain) Contains(n int) bool {
	return slices.Contains(c.Nodes, n)
}

// Decompose splits the room nodes of g into chains. Corridor nodes are not
// part of any chain; they are placed alongside the rooms they connect.
func Decompose(g *mapdesc.Graph, opts Options) ([]Chain, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	d := &decomposer{
		g:       g,
		opts:    opts,
		covered: make([]bool, g.Rooms()),
	}
	if opts.Policy == PolicyEars {
		if cycle := d.shortestCycle(); cycle != nil {
			d.add(cycle)
		}
	}
	for d.count < g.Rooms() {
		var nodes []int
		if opts.Policy == PolicyEars && d.count > 0 {
			nodes = d.shortestEar()
		}
		if nodes == nil {
			nodes = d.tree()
		}
		if nodes == nil {
			return nil, errors.New(errors.ErrCodeDisconnectedGraph, "room graph is not connected")
		}
		d.add(nodes)
	}
	return d.chains, nil
}

type decomposer struct {
	g       *mapdesc.Graph
	opts    Options
	covered []bool
	count   int
	chains  []Chain
}

func (d *decomposer) add(nodes []int) {
	for _, n := range nodes {
		d.covered[n] = true
	}
	d.count += len(nodes)
	d.chains = append(d.chains, Chain{Index: len(d.chains), Nodes: nodes})
}

// shortestCycle returns the nodes of a shortest cycle in path order, or nil
// for a forest. For every edge (u, v) it measures the shortest u-v path
// avoiding that edge.
func (d *decomposer) shortestCycle() []int {
	var best []int
	for u := 0; u < d.g.Rooms(); u++ {
		for _, v := range d.g.RoomNeighbors(u) {
			if v < u {
				continue
			}
			path := d.path(u, v, func(a, b int) bool {
				return (a == u && b == v) || (a == v && b == u)
			}, func(int) bool { return true })
			if path != nil && (best == nil || len(path) < len(best)) {
				best = path
			}
		}
	}
	return best
}

// path runs a breadth-first search from src to dst over nodes allowed by
// visit, skipping edges for which skip returns true. Neighbors are visited
// in ascending order, so the path found is deterministic.
func (d *decomposer) path(src, dst int, skip func(a, b int) bool, visit func(int) bool) []int {
	parent := map[int]int{src: -1}
	queue := []int{src}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if n == dst {
			var out []int
			for m := dst; m != -1; m = parent[m] {
				out = append(out, m)
			}
			slices.Reverse(out)
			return out
		}
		for _, m := range d.g.RoomNeighbors(n) {
			if _, seen := parent[m]; seen || skip(n, m) || !visit(m) {
				continue
			}
			parent[m] = n
			queue = append(queue, m)
		}
	}
	return nil
}

// shortestEar returns the shortest path of uncovered nodes whose two ends
// are attached to covered nodes, or nil when no such path exists. A single
// node attached to two different covered nodes is an ear of length one.
func (d *decomposer) shortestEar() []int {
	var best []int
	uncovered := func(n int) bool { return !d.covered[n] }
	for x := 0; x < d.g.Rooms(); x++ {
		if d.covered[x] {
			continue
		}
		anchors := d.coveredNeighbors(x)
		if len(anchors) == 0 {
			continue
		}
		if len(anchors) >= 2 {
			return []int{x}
		}
		// Breadth-first over uncovered nodes for the nearest one attached
		// to any covered node.
		parent := map[int]int{x: -1}
		queue := []int{x}
		for len(queue) > 0 {
			n := queue[0]
			queue = queue[1:]
			if n != x && len(d.coveredNeighbors(n)) > 0 {
				var ear []int
				for m := n; m != -1; m = parent[m] {
					ear = append(ear, m)
				}
				slices.Reverse(ear)
				if best == nil || len(ear) < len(best) {
					best = ear
				}
				break
			}
			if best != nil && len(best) <= depth(parent, n)+1 {
				break
			}
			for _, m := range d.g.RoomNeighbors(n) {
				if _, seen := parent[m]; seen || !uncovered(m) {
					continue
				}
				parent[m] = n
				queue = append(queue, m)
			}
		}
	}
	return best
}

func depth(parent map[int]int, n int) int {
	k := 0
	for m := parent[n]; m != -1; m = parent[m] {
		k++
	}
	return k
}

func (d *decomposer) coveredNeighbors(n int) []int {
	var out []int
	for _, m := range d.g.RoomNeighbors(n) {
		if d.covered[m] {
			out = append(out, m)
		}
	}
	return out
}

// tree returns up to MaxTreeSize uncovered nodes in breadth-first order,
// rooted at the lowest uncovered node next to the covered part (or at node 0
// when nothing is covered yet).
func (d *decomposer) tree() []int {
	root := -1
	for n := 0; n < d.g.Rooms() && root < 0; n++ {
		if !d.covered[n] && (d.count == 0 || len(d.coveredNeighbors(n)) > 0) {
			root = n
		}
	}
	if root < 0 {
		return nil
	}
	out := []int{root}
	seen := map[int]bool{root: true}
	for i := 0; i < len(out) && len(out) < d.opts.MaxTreeSize; i++ {
		for _, m := range d.g.RoomNeighbors(out[i]) {
			if seen[m] || d.covered[m] {
				continue
			}
			seen[m] = true
			out = append(out, m)
			if len(out) == d.opts.MaxTreeSize {
				break
			}
		}
	}
	return out
}
