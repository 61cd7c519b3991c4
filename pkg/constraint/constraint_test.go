package constraint

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/matzehuels/dungeontower/pkg/configspace"
	"github.com/matzehuels/dungeontower/pkg/geom"
	"github.com/matzehuels/dungeontower/pkg/layout"
	"github.com/matzehuels/dungeontower/pkg/mapdesc"
)

func setup(t *testing.T, rooms int, edges [][2]int) (*mapdesc.Graph, *configspace.Spaces) {
	t.Helper()
	d := mapdesc.New[int]()
	if err := d.AddShape("sq", mapdesc.RoomShape{Outline: geom.Rectangle(4, 4), Doors: mapdesc.OverlapDoors{Length: 1}}); err != nil {
		t.Fatal(err)
	}
	if err := d.AddShape("bar", mapdesc.RoomShape{Outline: geom.Rectangle(6, 2), Doors: mapdesc.OverlapDoors{Length: 1}}); err != nil {
		t.Fatal(err)
	}
	d.SetDefaultShapes("sq", "bar")
	for i := 0; i < rooms; i++ {
		_ = d.AddRoom(i, mapdesc.RoomOptions{Transformations: geom.Rotations()})
	}
	for _, e := range edges {
		if err := d.AddConnection(e[0], e[1]); err != nil {
			t.Fatal(err)
		}
	}
	g, err := d.Graph()
	if err != nil {
		t.Fatal(err)
	}
	s, err := configspace.Build(context.Background(), g, configspace.Options{})
	if err != nil {
		t.Fatal(err)
	}
	return g, s
}

func TestOverlapPair(t *testing.T) {
	_, s := setup(t, 2, [][2]int{{0, 1}})
	sq := s.NodeVariants(0)[0]
	c := Overlap{Spaces: s}
	tests := []struct {
		name string
		b    geom.Point
		want int
	}{
		{"Disjoint", geom.Pt(10, 0), 0},
		{"Touching", geom.Pt(4, 0), 0},
		{"Half", geom.Pt(2, 0), 8},
		{"Same", geom.Pt(0, 0), 16},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Pair(0, layout.Configuration{Variant: sq}, 1, layout.Configuration{Variant: sq, Position: tt.b})
			if got != tt.want {
				t.Errorf("Pair = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDistancePair(t *testing.T) {
	g, s := setup(t, 3, [][2]int{{0, 1}, {1, 2}})
	sq := s.NodeVariants(0)[0]
	c := Distance{Graph: g, Spaces: s}
	at := func(x, y int) layout.Configuration {
		return layout.Configuration{Variant: sq, Position: geom.Pt(x, y)}
	}
	if got := c.Pair(0, at(4, 0), 1, at(0, 0)); got != 0 {
		t.Errorf("adjacent rooms: %d, want 0", got)
	}
	if got := c.Pair(0, at(6, 0), 1, at(0, 0)); got != 2 {
		t.Errorf("two cells apart: %d, want 2", got)
	}
	if got := c.Pair(0, at(40, 0), 2, at(0, 0)); got != 0 {
		t.Errorf("unconnected rooms: %d, want 0", got)
	}
}

func TestTouchPair(t *testing.T) {
	g, s := setup(t, 3, [][2]int{{0, 1}, {1, 2}})
	sq := s.NodeVariants(0)[0]
	c := Touch{Graph: g, Spaces: s}
	a := layout.Configuration{Variant: sq}
	b := layout.Configuration{Variant: sq, Position: geom.Pt(4, 2)}
	if got := c.Pair(0, a, 2, b); got != 2 {
		t.Errorf("touching unconnected rooms: %d, want 2", got)
	}
	if got := c.Pair(0, a, 1, b); got != 0 {
		t.Errorf("touching connected rooms: %d, want 0", got)
	}
}

func TestIncrementalMatchesFull(t *testing.T) {
	g, s := setup(t, 5, [][2]int{{0, 1}, {1, 2}, {2, 3}, {3, 0}, {1, 4}})
	ev := New(g, s, Options{Touch: true})
	rng := rand.New(rand.NewPCG(7, 11))

	l := layout.New(g)
	for step := 0; step < 300; step++ {
		n := rng.IntN(g.Len())
		if l.IsPlaced(n) && rng.IntN(5) == 0 {
			l = ev.Remove(l, n)
		} else {
			vs := s.NodeVariants(n)
			c := layout.Configuration{
				Variant:  vs[rng.IntN(len(vs))],
				Position: geom.Pt(rng.IntN(13)-6, rng.IntN(13)-6),
			}
			before := l
			l = ev.Apply(l, n, c)
			if d := ev.Delta(before, n, c); d != l.Energy()-before.Energy() {
				t.Fatalf("step %d: Delta = %v, applied change = %v", step, d, l.Energy()-before.Energy())
			}
		}

		full := ev.Evaluate(l)
		if full.Breakdown != l.Magnitudes() {
			t.Fatalf("step %d: incremental magnitudes %v, full %v", step, l.Magnitudes(), full.Breakdown)
		}
		if full.Energy != l.Energy() {
			t.Fatalf("step %d: incremental energy %v, full %v", step, l.Energy(), full.Energy)
		}
		if full.Valid != l.IsValid() {
			t.Fatalf("step %d: validity differs", step)
		}
	}
}

func TestApplyLeavesInputUntouched(t *testing.T) {
	g, s := setup(t, 2, [][2]int{{0, 1}})
	ev := New(g, s, Options{})
	sq := s.NodeVariants(0)[0]

	base := ev.Apply(layout.New(g), 0, layout.Configuration{Variant: sq})
	next := ev.Apply(base, 1, layout.Configuration{Variant: sq})
	if base.IsPlaced(1) {
		t.Fatal("Apply placed a node on its input")
	}
	if c, _ := base.Get(0); !c.Energy.IsZero() {
		t.Errorf("input energy changed: %+v", c.Energy)
	}
	if next.IsValid() {
		t.Error("two rooms on the same spot should be invalid")
	}
	if got := ev.Remove(next, 1); !got.IsValid() || got.PlacedCount() != 1 {
		t.Errorf("Remove did not clear the overlap: valid=%v placed=%d", got.IsValid(), got.PlacedCount())
	}
}

func TestOverlapDominates(t *testing.T) {
	g, s := setup(t, 2, [][2]int{{0, 1}})
	ev := New(g, s, Options{})
	var overlap, distance [layout.NumKinds]int
	overlap[layout.KindOverlap] = 1
	distance[layout.KindDistance] = 1
	if ev.Data(overlap).Energy <= 0 || ev.Data(distance).Energy <= 0 {
		t.Fatal("violations must cost energy")
	}
	if got := ev.Data([layout.NumKinds]int{}).Energy; got != 0 {
		t.Errorf("zero magnitudes cost %v", got)
	}
	if len(ev.Constraints()) != 2 {
		t.Errorf("constraints = %d, want overlap and distance only", len(ev.Constraints()))
	}
}
