package maplayout

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/matzehuels/dungeontower/pkg/geom"
)

// =============================================================================
// Document - Serialized Map Layout
// =============================================================================

// Document is the serialized form of a map layout. Rooms are identified by
// name; corridors by "a~b" for the rooms they connect.
type Document struct {
	Name   string    `json:"name,omitempty" bson:"name,omitempty"`
	Width  int       `json:"width" bson:"width"`
	Height int       `json:"height" bson:"height"`
	Rooms  []RoomDoc `json:"rooms" bson:"rooms"`

	// Generation metadata, filled by the pipeline.
	Seed       uint64 `json:"seed,omitempty" bson:"seed,omitempty"`
	Iterations int    `json:"iterations,omitempty" bson:"iterations,omitempty"`
	DurationMS int64  `json:"duration_ms,omitempty" bson:"duration_ms,omitempty"`
}

// RoomDoc is a room or corridor.
type RoomDoc struct {
	ID             string              `json:"id" bson:"id"`
	Corridor       bool                `json:"corridor,omitempty" bson:"corridor,omitempty"`
	Connects       []string            `json:"connects,omitempty" bson:"connects,omitempty"`
	Shape          string              `json:"shape" bson:"shape"`
	Transformation geom.Transformation `json:"transformation" bson:"transformation"`
	Position       geom.Point          `json:"position" bson:"position"`
	Outline        []geom.Point        `json:"outline" bson:"outline"`
	Doors          []DoorDoc           `json:"doors,omitempty" bson:"doors,omitempty"`
}

// DoorDoc is a door and the ID of the room behind it.
type DoorDoc struct {
	Line   geom.Segment   `json:"line" bson:"line"`
	Facing geom.Direction `json:"facing" bson:"facing"`
	To     string         `json:"to" bson:"to"`
}

// Room returns the room or corridor with the given ID.
func (d *Document) Room(id string) (RoomDoc, bool) {
	for _, r := range d.Rooms {
		if r.ID == id {
			return r, true
		}
	}
	return RoomDoc{}, false
}

// Bounds returns the bounding box of every outline.
func (d *Document) Bounds() geom.Rect {
	outlines := make([]geom.Polygon, len(d.Rooms))
	for i, r := range d.Rooms {
		outlines[i] = geom.Polygon(r.Outline)
	}
	return bounds(outlines)
}

// =============================================================================
// Serialization API
// =============================================================================

// Marshal serializes a Document to pretty-printed JSON bytes.
func Marshal(d *Document) ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

// Unmarshal deserializes JSON bytes into a Document and checks that every
// door leads to a known room.
func Unmarshal(data []byte) (*Document, error) {
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("unmarshal map layout: %w", err)
	}
	if len(d.Rooms) == 0 {
		return nil, fmt.Errorf("map layout must contain rooms")
	}
	ids := make(map[string]bool, len(d.Rooms))
	for _, r := range d.Rooms {
		if ids[r.ID] {
			return nil, fmt.Errorf("duplicate room %q", r.ID)
		}
		ids[r.ID] = true
	}
	for _, r := range d.Rooms {
		if len(r.Outline) < 4 {
			return nil, fmt.Errorf("room %q has no outline", r.ID)
		}
		for _, door := range r.Doors {
			if !ids[door.To] {
				return nil, fmt.Errorf("room %q has a door to unknown room %q", r.ID, door.To)
			}
		}
	}
	return &d, nil
}

// WriteFile writes a Document to a JSON file.
func WriteFile(d *Document, path string) error {
	data, err := Marshal(d)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ReadFile reads a Document from a JSON file.
func ReadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return Unmarshal(data)
}
