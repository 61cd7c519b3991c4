package layout

import (
	"testing"

	"github.com/matzehuels/dungeontower/pkg/geom"
	"github.com/matzehuels/dungeontower/pkg/mapdesc"
)

func testGraph(t *testing.T) *mapdesc.Graph {
	t.Helper()
	d := mapdesc.New[string]()
	_ = d.AddShape("sq", mapdesc.RoomShape{Outline: geom.Rectangle(2, 2), Doors: mapdesc.OverlapDoors{Length: 1}})
	d.SetDefaultShapes("sq")
	_ = d.AddRoom("a", mapdesc.RoomOptions{})
	_ = d.AddRoom("b", mapdesc.RoomOptions{})
	_ = d.AddConnection("a", "b")
	g, err := d.Graph()
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func TestEditCopiesOnWrite(t *testing.T) {
	base := New(testGraph(t))

	e := base.Edit()
	e.Set(0, Configuration{Variant: 0, Position: geom.Pt(1, 2)})
	next := e.Done()

	if base.IsPlaced(0) || base.PlacedCount() != 0 {
		t.Fatal("editing modified the original layout")
	}
	c, ok := next.Get(0)
	if !ok || c.Position != geom.Pt(1, 2) {
		t.Fatalf("Get(0) = %+v, %v", c, ok)
	}

	e = next.Edit()
	e.Set(1, Configuration{Position: geom.Pt(3, 0), Energy: EnergyData{Magnitudes: [NumKinds]int{KindOverlap: 2}, Energy: 1.5}})
	e.SetEnergy(0, EnergyData{Magnitudes: [NumKinds]int{KindOverlap: 2}, Energy: 1.5})
	full := e.Done()

	if !full.IsComplete() || next.IsComplete() {
		t.Error("completion leaked between layouts")
	}
	if full.IsValid() {
		t.Error("layout with overlap must not be valid")
	}
	if got := full.Energy(); got != 3 {
		t.Errorf("Energy = %v, want 3", got)
	}
	if got := full.Magnitudes()[KindOverlap]; got != 4 {
		t.Errorf("overlap magnitude = %d, want 4", got)
	}
	if !next.IsValid() {
		t.Error("earlier layout must stay valid")
	}

	e = full.Edit()
	e.Unset(1)
	e.Unset(1)
	removed := e.Done()
	if removed.PlacedCount() != 1 || removed.IsPlaced(1) {
		t.Errorf("Unset left %d placed", removed.PlacedCount())
	}
	if got := removed.Placed(); len(got) != 1 || got[0] != 0 {
		t.Errorf("Placed = %v", got)
	}
}

func TestKindString(t *testing.T) {
	if KindCorridor.String() != "corridor" || Kind(9).String() != "Kind(9)" {
		t.Error("unexpected kind names")
	}
}
