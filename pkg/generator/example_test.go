package generator_test

import (
	"context"
	"fmt"

	"github.com/matzehuels/dungeontower/pkg/generator"
	"github.com/matzehuels/dungeontower/pkg/geom"
	"github.com/matzehuels/dungeontower/pkg/mapdesc"
)

func Example() {
	desc := mapdesc.New[string]()
	_ = desc.AddShape("entrance", mapdesc.RoomShape{
		Outline: geom.Rectangle(4, 4),
		Doors:   mapdesc.SpecificDoors{Lines: []geom.Segment{geom.Seg(geom.Pt(4, 1), geom.Pt(4, 2))}},
	})
	_ = desc.AddShape("vault", mapdesc.RoomShape{
		Outline: geom.Rectangle(4, 4),
		Doors:   mapdesc.SpecificDoors{Lines: []geom.Segment{geom.Seg(geom.Pt(0, 1), geom.Pt(0, 2))}},
	})
	_ = desc.AddShape("hall", mapdesc.RoomShape{
		Outline: geom.Rectangle(3, 1),
		Doors: mapdesc.SpecificDoors{Lines: []geom.Segment{
			geom.Seg(geom.Pt(0, 0), geom.Pt(0, 1)),
			geom.Seg(geom.Pt(3, 0), geom.Pt(3, 1)),
		}},
	})
	_ = desc.AddRoom("entrance", mapdesc.RoomOptions{Shapes: []string{"entrance"}})
	_ = desc.AddRoom("vault", mapdesc.RoomOptions{Shapes: []string{"vault"}})
	_ = desc.AddConnection("entrance", "vault")
	desc.EnableCorridors(mapdesc.RoomOptions{Shapes: []string{"hall"}})

	ctx := context.Background()
	gen, err := generator.New(ctx, desc, generator.DefaultConfig())
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	gen.InjectRandomSource(7)
	m, err := gen.GenerateLayout(ctx)
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	entrance, _ := m.Room("entrance")
	vault, _ := m.Room("vault")
	fmt.Println("rooms:", len(m.Rooms))
	fmt.Println("vault offset:", vault.Position.Sub(entrance.Position))
	hall := m.Rooms[2]
	fmt.Println("corridor:", hall.Endpoints[0], "->", hall.Endpoints[1])
	fmt.Println("bounds:", m.Bounds().Width(), "x", m.Bounds().Height())
	// Output:
	// rooms: 3
	// vault offset: (7,0)
	// corridor: entrance -> vault
	// bounds: 11 x 4
}
