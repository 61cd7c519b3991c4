package mapdesc

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/matzehuels/dungeontower/pkg/errors"
	"github.com/matzehuels/dungeontower/pkg/geom"
)

// Document is the file form of a map description with string room ids.
//
//	shapes:
//	  - name: square
//	    rectangle: {width: 6, height: 6}
//	    doors: {overlap: {length: 1, corner_distance: 1}}
//	rooms:
//	  - {id: hall, shapes: [square], transformations: [identity, rotate90]}
//	  - {id: vault}
//	connections:
//	  - [hall, vault]
//	default_shapes: [square]
type Document struct {
	Shapes        []ShapeDoc    `yaml:"shapes" json:"shapes"`
	Rooms         []RoomDoc     `yaml:"rooms" json:"rooms"`
	Connections   [][2]string   `yaml:"connections" json:"connections"`
	Corridors     *CorridorsDoc `yaml:"corridors,omitempty" json:"corridors,omitempty"`
	DefaultShapes []string      `yaml:"default_shapes,omitempty" json:"default_shapes,omitempty"`
}

// ShapeDoc describes one shape by a rectangle or an explicit outline.
type ShapeDoc struct {
	Name      string        `yaml:"name" json:"name"`
	Rectangle *RectangleDoc `yaml:"rectangle,omitempty" json:"rectangle,omitempty"`
	Points    [][2]int      `yaml:"points,omitempty" json:"points,omitempty"`
	Doors     DoorsDoc      `yaml:"doors" json:"doors"`
}

// RectangleDoc is a width by height rectangle anchored at the origin.
type RectangleDoc struct {
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`
}

// DoorsDoc selects exactly one door mode.
type DoorsDoc struct {
	Overlap  *OverlapDoc `yaml:"overlap,omitempty" json:"overlap,omitempty"`
	Specific [][2][2]int `yaml:"specific,omitempty" json:"specific,omitempty"`
}

// OverlapDoc configures [OverlapDoors].
type OverlapDoc struct {
	Length         int `yaml:"length" json:"length"`
	CornerDistance int `yaml:"corner_distance" json:"corner_distance"`
}

// RoomDoc is one room and its shape options.
type RoomDoc struct {
	ID              string                `yaml:"id" json:"id"`
	Shapes          []string              `yaml:"shapes,omitempty" json:"shapes,omitempty"`
	Transformations []geom.Transformation `yaml:"transformations,omitempty" json:"transformations,omitempty"`
}

// CorridorsDoc enables corridors and lists their shapes.
type CorridorsDoc struct {
	Enabled         bool                  `yaml:"enabled" json:"enabled"`
	Shapes          []string              `yaml:"shapes" json:"shapes"`
	Transformations []geom.Transformation `yaml:"transformations,omitempty" json:"transformations,omitempty"`
}

// Parse decodes a document. JSON input is detected by a leading brace;
// everything else is read as YAML.
func Parse(data []byte) (*Document, error) {
	var doc Document
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode map json")
		}
		return &doc, nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode map yaml")
	}
	return &doc, nil
}

// ReadFile loads a document from a .yaml, .yml or .json file.
func ReadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "map file %s", path)
		}
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml", "":
	default:
		return nil, errors.New(errors.ErrCodeInvalidFormat, "unsupported map file extension %q", filepath.Ext(path))
	}
	return Parse(data)
}

// Marshal encodes the document as YAML.
func (doc *Document) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Description builds the description the document defines.
func (doc *Document) Description() (*Description[string], error) {
	d := New[string]()
	for _, s := range doc.Shapes {
		shape, err := s.shape()
		if err != nil {
			return nil, err
		}
		if err := d.AddShape(s.Name, shape); err != nil {
			return nil, err
		}
	}
	for _, r := range doc.Rooms {
		if err := errors.ValidateName("room", r.ID); err != nil {
			return nil, err
		}
		if err := d.AddRoom(r.ID, RoomOptions{Shapes: r.Shapes, Transformations: r.Transformations}); err != nil {
			return nil, err
		}
	}
	for _, c := range doc.Connections {
		if err := d.AddConnection(c[0], c[1]); err != nil {
			return nil, err
		}
	}
	if doc.Corridors != nil && doc.Corridors.Enabled {
		d.EnableCorridors(RoomOptions{Shapes: doc.Corridors.Shapes, Transformations: doc.Corridors.Transformations})
	}
	d.SetDefaultShapes(doc.DefaultShapes...)
	return d, nil
}

func (s ShapeDoc) shape() (RoomShape, error) {
	var outline geom.Polygon
	switch {
	case s.Rectangle != nil && len(s.Points) > 0:
		return RoomShape{}, errors.New(errors.ErrCodeInvalidMap, "shape %q sets both rectangle and points", s.Name)
	case s.Rectangle != nil:
		if s.Rectangle.Width <= 0 || s.Rectangle.Height <= 0 {
			return RoomShape{}, errors.New(errors.ErrCodeInvalidMap, "shape %q has a non-positive size", s.Name)
		}
		outline = geom.Rectangle(s.Rectangle.Width, s.Rectangle.Height)
	case len(s.Points) > 0:
		for _, p := range s.Points {
			outline = append(outline, geom.Pt(p[0], p[1]))
		}
	default:
		return RoomShape{}, errors.New(errors.ErrCodeInvalidMap, "shape %q has no outline", s.Name)
	}

	switch {
	case s.Doors.Overlap != nil && len(s.Doors.Specific) > 0:
		return RoomShape{}, errors.New(errors.ErrCodeInvalidMap, "shape %q sets both overlap and specific doors", s.Name)
	case s.Doors.Overlap != nil:
		return RoomShape{Outline: outline, Doors: OverlapDoors{
			Length:         s.Doors.Overlap.Length,
			CornerDistance: s.Doors.Overlap.CornerDistance,
		}}, nil
	case len(s.Doors.Specific) > 0:
		lines := make([]geom.Segment, 0, len(s.Doors.Specific))
		for _, l := range s.Doors.Specific {
			lines = append(lines, geom.Seg(geom.Pt(l[0][0], l[0][1]), geom.Pt(l[1][0], l[1][1])))
		}
		return RoomShape{Outline: outline, Doors: SpecificDoors{Lines: lines}}, nil
	default:
		return RoomShape{}, errors.New(errors.ErrCodeInvalidMap, "shape %q has no doors", s.Name)
	}
}
