package mapdesc

import "slices"

// Graph is the resolved, read-only connectivity graph the generator works
// on. Room nodes are 0..Rooms()-1 in description order. With corridors
// enabled, every connection i becomes corridor node Rooms()+i adjacent to
// both of its rooms.
type Graph struct {
	rooms     int
	corridors bool

	adj       [][]int
	roomAdj   [][]int
	endpoints [][2]int
	between   map[[2]int]int

	choices [][]ShapeChoice
}

func newGraph(rooms int, edges [][2]int, corridors bool, choices [][]ShapeChoice, corridor []ShapeChoice) *Graph {
	n := rooms
	if corridors {
		n += len(edges)
	}
	g := &Graph{
		rooms:     rooms,
		corridors: corridors,
		adj:       make([][]int, n),
		roomAdj:   make([][]int, rooms),
		between:   make(map[[2]int]int, len(edges)),
		choices:   make([][]ShapeChoice, n),
	}
	copy(g.choices, choices)
	for i, e := range edges {
		a, b := e[0], e[1]
		g.roomAdj[a] = append(g.roomAdj[a], b)
		g.roomAdj[b] = append(g.roomAdj[b], a)
		if !corridors {
			g.adj[a] = append(g.adj[a], b)
			g.adj[b] = append(g.adj[b], a)
			continue
		}
		c := rooms + i
		g.endpoints = append(g.endpoints, e)
		g.between[e] = c
		g.adj[a] = append(g.adj[a], c)
		g.adj[b] = append(g.adj[b], c)
		g.adj[c] = []int{a, b}
		g.choices[c] = corridor
	}
	for i := range g.adj {
		slices.Sort(g.adj[i])
	}
	for i := range g.roomAdj {
		slices.Sort(g.roomAdj[i])
	}
	return g
}

// Len returns the number of nodes including corridors.
func (g *Graph) Len() int { return len(g.adj) }

// Rooms returns the number of room nodes.
func (g *Graph) Rooms() int { return g.rooms }

// WithCorridors reports whether connections go through corridor nodes.
func (g *Graph) WithCorridors() bool { return g.corridors }

// IsCorridor reports whether n is a corridor node.
func (g *Graph) IsCorridor(n int) bool { return n >= g.rooms }

// Neighbors returns the nodes adjacent to n in ascending order. Rooms are
// adjacent to their corridors when corridors are enabled.
func (g *Graph) Neighbors(n int) []int { return g.adj[n] }

// RoomNeighbors returns the rooms connected to room n, directly or through a
// corridor, in ascending order.
func (g *Graph) RoomNeighbors(n int) []int { return g.roomAdj[n] }

// AreNeighbors reports whether a and b are adjacent.
func (g *Graph) AreNeighbors(a, b int) bool {
	_, ok := slices.BinarySearch(g.adj[a], b)
	return ok
}

// AreRoomNeighbors reports whether rooms a and b are connected.
func (g *Graph) AreRoomNeighbors(a, b int) bool {
	if a >= g.rooms || b >= g.rooms {
		return false
	}
	_, ok := slices.BinarySearch(g.roomAdj[a], b)
	return ok
}

// Corridor returns the corridor node between rooms a and b.
func (g *Graph) Corridor(a, b int) (int, bool) {
	c, ok := g.between[[2]int{min(a, b), max(a, b)}]
	return c, ok
}

// Endpoints returns the two rooms a corridor node connects.
func (g *Graph) Endpoints(c int) [2]int { return g.endpoints[c-g.rooms] }

// Corridors returns every corridor node in ascending order.
func (g *Graph) Corridors() []int {
	out := make([]int, 0, len(g.endpoints))
	for i := range g.endpoints {
		out = append(out, g.rooms+i)
	}
	return out
}

// Edges returns every edge of the graph once, lower alias first, sorted.
func (g *Graph) Edges() [][2]int {
	var out [][2]int
	for a, ns := range g.adj {
		for _, b := range ns {
			if a < b {
				out = append(out, [2]int{a, b})
			}
		}
	}
	return out
}

// Choices returns the shapes node n may take.
func (g *Graph) Choices(n int) []ShapeChoice { return g.choices[n] }

// unreachable returns the first node not reachable from node 0.
func (g *Graph) unreachable() (int, bool) {
	seen := make([]bool, g.Len())
	queue := []int{0}
	seen[0] = true
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, m := range g.adj[n] {
			if !seen[m] {
				seen[m] = true
				queue = append(queue, m)
			}
		}
	}
	for n, ok := range seen {
		if !ok {
			return n, true
		}
	}
	return 0, false
}
