package generator

import (
	"bytes"
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/matzehuels/dungeontower/pkg/anneal"
	"github.com/matzehuels/dungeontower/pkg/chain"
	"github.com/matzehuels/dungeontower/pkg/errors"
	"github.com/matzehuels/dungeontower/pkg/geom"
	"github.com/matzehuels/dungeontower/pkg/mapdesc"
	"github.com/matzehuels/dungeontower/pkg/maplayout"
)

// pair describes two 4x4 rooms with one door each: west's on its right
// side, east's on its left side.
func pair(t *testing.T, corridors bool, eastShape string) *mapdesc.Description[string] {
	t.Helper()
	d := mapdesc.New[string]()
	must(t, d.AddShape("w", mapdesc.RoomShape{Outline: geom.Rectangle(4, 4), Doors: mapdesc.SpecificDoors{Lines: []geom.Segment{
		geom.Seg(geom.Pt(4, 1), geom.Pt(4, 2)),
	}}}))
	must(t, d.AddShape("e", mapdesc.RoomShape{Outline: geom.Rectangle(4, 4), Doors: mapdesc.SpecificDoors{Lines: []geom.Segment{
		geom.Seg(geom.Pt(0, 1), geom.Pt(0, 2)),
	}}}))
	must(t, d.AddShape("hall", mapdesc.RoomShape{Outline: geom.Rectangle(3, 1), Doors: mapdesc.SpecificDoors{Lines: []geom.Segment{
		geom.Seg(geom.Pt(0, 0), geom.Pt(0, 1)),
		geom.Seg(geom.Pt(3, 0), geom.Pt(3, 1)),
	}}}))
	must(t, d.AddRoom("west", mapdesc.RoomOptions{Shapes: []string{"w"}}))
	must(t, d.AddRoom("east", mapdesc.RoomOptions{Shapes: []string{eastShape}}))
	must(t, d.AddConnection("west", "east"))
	if corridors {
		d.EnableCorridors(mapdesc.RoomOptions{Shapes: []string{"hall"}})
	}
	return d
}

// dungeon is a ring of five rooms with two side rooms, using two shapes
// under every rotation.
func dungeon(t *testing.T) *mapdesc.Description[int] {
	t.Helper()
	d := mapdesc.New[int]()
	must(t, d.AddShape("square", mapdesc.RoomShape{Outline: geom.Rectangle(5, 5), Doors: mapdesc.OverlapDoors{Length: 1, CornerDistance: 1}}))
	must(t, d.AddShape("long", mapdesc.RoomShape{Outline: geom.Rectangle(8, 4), Doors: mapdesc.OverlapDoors{Length: 1, CornerDistance: 1}}))
	d.SetDefaultShapes("square", "long")
	for i := 0; i < 7; i++ {
		must(t, d.AddRoom(i, mapdesc.RoomOptions{Transformations: geom.Rotations()}))
	}
	for _, e := range [][2]int{{0, 1}, {1, 2}, {2, 3}, {3, 4}, {4, 0}, {2, 5}, {5, 6}} {
		must(t, d.AddConnection(e[0], e[1]))
	}
	return d
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}

func noOverlaps[K comparable](t *testing.T, m *maplayout.MapLayout[K]) {
	t.Helper()
	for i := range m.Rooms {
		for j := i + 1; j < len(m.Rooms); j++ {
			a, b := m.Rooms[i].Outline, m.Rooms[j].Outline
			if area := geom.OverlapArea(a.Rects(), geom.Point{}, b.Rects(), geom.Point{}); area > 0 {
				t.Fatalf("rooms %d and %d overlap by %d", i, j, area)
			}
		}
	}
}

func TestScenarioDirect(t *testing.T) {
	gen, err := New(context.Background(), pair(t, false, "e"), DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	m, err := gen.GenerateLayout(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	noOverlaps(t, m)
	west, _ := m.Room("west")
	east, _ := m.Room("east")
	if east.Position.Sub(west.Position) != geom.Pt(4, 0) {
		t.Errorf("east is at %v relative to west", east.Position.Sub(west.Position))
	}
	if len(west.Doors) != 1 || len(east.Doors) != 1 || west.Doors[0].Line != east.Doors[0].Line {
		t.Errorf("doors do not align: %+v / %+v", west.Doors, east.Doors)
	}
	if gen.IterationsCount() < 1 {
		t.Errorf("IterationsCount = %d", gen.IterationsCount())
	}
}

func TestScenarioCorridor(t *testing.T) {
	gen, err := New(context.Background(), pair(t, true, "e"), DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	m, err := gen.GenerateLayout(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Rooms) != 3 {
		t.Fatalf("%d rooms, want two rooms and a corridor", len(m.Rooms))
	}
	noOverlaps(t, m)
	hall := m.Rooms[2]
	if !hall.IsCorridor || hall.Endpoints != [2]string{"west", "east"} {
		t.Fatalf("corridor = %+v", hall)
	}
	for _, d := range hall.Doors {
		other := m.Rooms[d.Neighbor]
		if len(other.Doors) != 1 || other.Doors[0].Line != d.Line || other.Doors[0].Facing != d.Facing.Opposite() {
			t.Errorf("corridor door %+v does not align with %v", d, other.Node)
		}
	}
}

func TestScenarioNoConfigurationSpace(t *testing.T) {
	// Both rooms only have a door facing right, so they can never connect.
	_, err := New(context.Background(), pair(t, false, "w"), DefaultConfig())
	if !errors.Is(err, errors.ErrCodeNoConfigurationSpace) {
		t.Fatalf("err = %v, want NO_CONFIGURATION_SPACE", err)
	}
	if !errors.IsSetupFailure(err) {
		t.Error("missing configuration space should be a setup failure")
	}
}

func TestScenarioZeroBudget(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Annealing.MaxIterations = 0
	gen, err := New(context.Background(), dungeon(t), cfg)
	if err != nil {
		t.Fatal(err)
	}
	_, err = gen.GenerateLayout(context.Background())
	if !errors.Is(err, errors.ErrCodeGenerationFailed) {
		t.Fatalf("err = %v, want GENERATION_FAILED", err)
	}
	if gen.IterationsCount() != 0 {
		t.Errorf("IterationsCount = %d, want 0", gen.IterationsCount())
	}
}

func TestCancelledBeforeStart(t *testing.T) {
	gen, err := New(context.Background(), dungeon(t), DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	events := 0
	gen.OnEvent(func(anneal.Event) { events++ })
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m, err := gen.GenerateLayout(ctx)
	if m != nil || !errors.Is(err, errors.ErrCodeCancelled) || !stderrors.Is(err, context.Canceled) {
		t.Fatalf("m=%v err=%v", m, err)
	}
	if gen.IterationsCount() != 0 || events != 0 {
		t.Errorf("iterations %d events %d, want none", gen.IterationsCount(), events)
	}
}

func TestCancelledDuringRun(t *testing.T) {
	gen, err := New(context.Background(), dungeon(t), DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	gen.OnEvent(func(e anneal.Event) { cancel() })
	_, err = gen.GenerateLayout(ctx)
	if err == nil {
		t.Skip("layout converged without a single rejected step")
	}
	if !errors.Is(err, errors.ErrCodeCancelled) {
		t.Fatalf("err = %v", err)
	}
}

func TestDeterministic(t *testing.T) {
	render := func(gen *Generator[int]) []byte {
		t.Helper()
		m, err := gen.GenerateLayout(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		noOverlaps(t, m)
		data, err := maplayout.Marshal(m.Document(strconv.Itoa))
		if err != nil {
			t.Fatal(err)
		}
		return data
	}

	a, err := New(context.Background(), dungeon(t), DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	a.InjectRandomSource(1234)
	first := render(a)
	iterations := a.IterationsCount()
	if again := render(a); !bytes.Equal(first, again) || a.IterationsCount() != iterations {
		t.Error("repeated runs of one generator differ")
	}

	b, err := New(context.Background(), dungeon(t), DefaultConfig(), WithSpaces(a.Spaces()))
	if err != nil {
		t.Fatal(err)
	}
	b.InjectRandomSource(1234)
	if !bytes.Equal(first, render(b)) {
		t.Error("a second generator with the same seed differs")
	}
}

func TestObserverSeesEveryStep(t *testing.T) {
	gen, err := New(context.Background(), dungeon(t), DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	var events []anneal.Event
	gen.OnEvent(func(e anneal.Event) { events = append(events, e) })
	if _, err := gen.GenerateLayout(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(events) > gen.IterationsCount() {
		t.Errorf("%d events for %d iterations", len(events), gen.IterationsCount())
	}
	for _, e := range events {
		if e.Chain < 0 || e.Chain >= len(gen.Chains()) {
			t.Fatalf("event for unknown chain: %+v", e)
		}
	}
	if gen.ElapsedTime() <= 0 {
		t.Errorf("ElapsedTime = %v", gen.ElapsedTime())
	}
}

func TestChainsCoverRooms(t *testing.T) {
	gen, err := New(context.Background(), dungeon(t), DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	seen := make(map[int]bool)
	for _, ch := range gen.Chains() {
		for _, n := range ch.Nodes {
			if seen[n] {
				t.Fatalf("room %d in two chains", n)
			}
			seen[n] = true
		}
	}
	if len(seen) != gen.Graph().Rooms() {
		t.Errorf("chains cover %d of %d rooms", len(seen), gen.Graph().Rooms())
	}
	// The ring comes first.
	if got := len(gen.Chains()[0].Nodes); got != 5 {
		t.Errorf("first chain has %d rooms, want the 5-room cycle", got)
	}
}

func TestNewRejectsBadInput(t *testing.T) {
	disconnected := mapdesc.New[string]()
	must(t, disconnected.AddShape("sq", mapdesc.RoomShape{Outline: geom.Rectangle(3, 3), Doors: mapdesc.OverlapDoors{Length: 1}}))
	must(t, disconnected.AddRoom("a", mapdesc.RoomOptions{Shapes: []string{"sq"}}))
	must(t, disconnected.AddRoom("b", mapdesc.RoomOptions{Shapes: []string{"sq"}}))

	badPolicy := DefaultConfig()
	badPolicy.Chains.Policy = "random"

	tests := []struct {
		name string
		desc *mapdesc.Description[string]
		cfg  Config
		want errors.Code
	}{
		{"Disconnected", disconnected, DefaultConfig(), errors.ErrCodeDisconnectedGraph},
		{"Empty", mapdesc.New[string](), DefaultConfig(), errors.ErrCodeInvalidMap},
		{"BadPolicy", pair(t, false, "e"), badPolicy, errors.ErrCodeInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(context.Background(), tt.desc, tt.cfg)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %s", err, tt.want)
			}
		})
	}
}

func TestBreadthFirstPolicy(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Chains.Policy = chain.PolicyBreadthFirst
	cfg.Chains.MaxTreeSize = 3
	gen, err := New(context.Background(), dungeon(t), cfg)
	if err != nil {
		t.Fatal(err)
	}
	for _, ch := range gen.Chains() {
		if len(ch.Nodes) > 3 {
			t.Errorf("%v exceeds the tree size", ch)
		}
	}
	if _, err := gen.GenerateLayout(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		p := filepath.Join(dir, name)
		must(t, os.WriteFile(p, []byte(content), 0o644))
		return p
	}

	cfg, err := LoadConfig(write("gen.toml", `
touch_constraint = true

[annealing]
max_iterations = 500
timeout = "2s"

[chains]
policy = "breadth-first"
`))
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.TouchConstraint || cfg.Annealing.MaxIterations != 500 || cfg.Annealing.Timeout != 2*time.Second {
		t.Errorf("toml config = %+v", cfg)
	}
	if cfg.Chains.Policy != chain.PolicyBreadthFirst || cfg.Planner.MaxChainAttempts != 3 {
		t.Errorf("defaults lost: %+v", cfg)
	}

	cfg, err = LoadConfig(write("gen.json", `{"annealing": {"max_iterations": 0}, "planner": {"max_backtracks": 0}}`))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Annealing.MaxIterations != 0 || cfg.Planner.MaxBacktracks != 0 || cfg.Annealing.CoolingRate != anneal.DefaultCoolingRate {
		t.Errorf("json config = %+v", cfg)
	}

	if _, err := LoadConfig(write("bad.toml", "[annealing]\nmax_iteration = 5\n")); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("unknown key: %v", err)
	}
	if _, err := LoadConfig(write("neg.toml", "[planner]\nmax_chain_attempts = -1\n")); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("negative attempts: %v", err)
	}
	if _, err := LoadConfig(filepath.Join(dir, "missing.toml")); !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("missing file: %v", err)
	}
}
