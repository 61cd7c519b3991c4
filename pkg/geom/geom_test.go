package geom

import (
	"errors"
	"testing"
)

func TestNewPolygon(t *testing.T) {
	tests := []struct {
		name    string
		points  []Point
		wantLen int
		wantErr error
	}{
		{
			name:    "Rectangle",
			points:  []Point{{0, 0}, {4, 0}, {4, 3}, {0, 3}},
			wantLen: 4,
		},
		{
			name:    "DropsCollinear",
			points:  []Point{{0, 0}, {2, 0}, {4, 0}, {4, 4}, {0, 4}},
			wantLen: 4,
		},
		{
			name:    "DropsClosingPoint",
			points:  []Point{{0, 0}, {4, 0}, {4, 4}, {0, 4}, {0, 0}},
			wantLen: 4,
		},
		{
			name:    "LShape",
			points:  []Point{{0, 0}, {4, 0}, {4, 2}, {2, 2}, {2, 4}, {0, 4}},
			wantLen: 6,
		},
		{
			name:    "TooFew",
			points:  []Point{{0, 0}, {4, 0}, {4, 4}},
			wantErr: ErrTooFewPoints,
		},
		{
			name:    "Diagonal",
			points:  []Point{{0, 0}, {4, 0}, {4, 4}, {1, 3}},
			wantErr: ErrNotOrthogonal,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPolygon(tt.points...)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewPolygon: %v", err)
			}
			if len(p) != tt.wantLen {
				t.Errorf("len = %d, want %d", len(p), tt.wantLen)
			}
		})
	}
}

func TestPolygonRects(t *testing.T) {
	l, err := NewPolygon(Pt(0, 0), Pt(4, 0), Pt(4, 2), Pt(2, 2), Pt(2, 4), Pt(0, 4))
	if err != nil {
		t.Fatal(err)
	}
	rects := l.Rects()
	want := []Rect{
		{Min: Pt(0, 0), Max: Pt(4, 2)},
		{Min: Pt(0, 2), Max: Pt(2, 4)},
	}
	if len(rects) != len(want) {
		t.Fatalf("rects = %v, want %v", rects, want)
	}
	for i := range want {
		if rects[i] != want[i] {
			t.Errorf("rects[%d] = %v, want %v", i, rects[i], want[i])
		}
	}
	if l.Area() != 12 {
		t.Errorf("Area = %d, want 12", l.Area())
	}
}

func TestRectsMergeStrips(t *testing.T) {
	// A rectangle with a bump on its left side.
	p, err := NewPolygon(Pt(0, 0), Pt(2, 0), Pt(2, 4), Pt(0, 4), Pt(0, 3), Pt(-1, 3), Pt(-1, 1), Pt(0, 1))
	if err != nil {
		t.Fatal(err)
	}
	total := 0
	for _, r := range p.Rects() {
		total += r.Area()
	}
	if total != p.Area() {
		t.Errorf("rect area = %d, polygon area = %d", total, p.Area())
	}
}

func TestFacing(t *testing.T) {
	r := Rectangle(4, 3)
	tests := []struct {
		side Segment
		want Direction
	}{
		{Seg(Pt(0, 0), Pt(4, 0)), Up},
		{Seg(Pt(4, 0), Pt(4, 3)), Right},
		{Seg(Pt(0, 3), Pt(4, 3)), Down},
		{Seg(Pt(0, 0), Pt(0, 3)), Left},
	}
	for _, tt := range tests {
		if got := r.Facing(tt.side); got != tt.want {
			t.Errorf("Facing(%v) = %v, want %v", tt.side, got, tt.want)
		}
	}
}

func TestTransform(t *testing.T) {
	r := Rectangle(4, 2)
	top := Door{Line: Seg(Pt(1, 0), Pt(2, 0)), Facing: Up}

	out, shift := r.Transform(Rotate90)
	b := out.Bounds()
	if b.Min != Pt(0, 0) || b.Max != Pt(2, 4) {
		t.Fatalf("bounds = %v, want (0,0)-(2,4)", b)
	}
	d := Rotate90.ApplyDoor(top, shift)
	if d.Line != Seg(Pt(2, 1), Pt(2, 2)) || d.Facing != Right {
		t.Errorf("door = %+v, want right side at x=2", d)
	}
	if got := out.Facing(Seg(Pt(2, 0), Pt(2, 4))); got != d.Facing {
		t.Errorf("transformed facing %v disagrees with side facing %v", d.Facing, got)
	}

	m, mshift := r.Transform(MirrorX)
	if m.Bounds().Max != Pt(4, 2) {
		t.Errorf("mirror bounds = %v", m.Bounds())
	}
	md := MirrorX.ApplyDoor(top, mshift)
	if md.Line != Seg(Pt(2, 0), Pt(3, 0)) || md.Facing != Up {
		t.Errorf("mirrored door = %+v", md)
	}
}

func TestTransformationText(t *testing.T) {
	for _, tr := range Transformations() {
		b, err := tr.MarshalText()
		if err != nil {
			t.Fatal(err)
		}
		var got Transformation
		if err := got.UnmarshalText(b); err != nil {
			t.Fatalf("UnmarshalText(%q): %v", b, err)
		}
		if got != tr {
			t.Errorf("round trip %v = %v", tr, got)
		}
	}
	if _, err := ParseTransformation("sideways"); err == nil {
		t.Error("expected error for unknown transformation")
	}
}

func TestOverlapAndContact(t *testing.T) {
	sq := Rectangle(4, 4).Rects()
	tests := []struct {
		name        string
		at          Point
		wantOverlap int
		wantContact int
	}{
		{"Same", Pt(0, 0), 16, 0},
		{"Partial", Pt(2, 2), 4, 0},
		{"SideBySide", Pt(4, 0), 0, 4},
		{"Offset", Pt(4, 1), 0, 3},
		{"Corner", Pt(4, 4), 0, 0},
		{"Apart", Pt(10, 0), 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OverlapArea(sq, Pt(0, 0), sq, tt.at); got != tt.wantOverlap {
				t.Errorf("OverlapArea = %d, want %d", got, tt.wantOverlap)
			}
			if got := ContactLength(sq, Pt(0, 0), sq, tt.at); got != tt.wantContact {
				t.Errorf("ContactLength = %d, want %d", got, tt.wantContact)
			}
		})
	}
}

func TestDoorAligns(t *testing.T) {
	a := Door{Line: Seg(Pt(4, 1), Pt(4, 2)), Facing: Right}
	b := Door{Line: Seg(Pt(4, 2), Pt(4, 1)), Facing: Left}
	if !a.Aligns(b) {
		t.Error("expected doors on the same segment facing each other to align")
	}
	if a.Aligns(a) {
		t.Error("door must not align with itself")
	}
}

func TestSegmentCovers(t *testing.T) {
	side := Seg(Pt(0, 0), Pt(4, 0))
	if !side.Covers(Seg(Pt(1, 0), Pt(3, 0))) {
		t.Error("expected inner segment to be covered")
	}
	if side.Covers(Seg(Pt(3, 0), Pt(5, 0))) {
		t.Error("segment extending past the side must not be covered")
	}
	if side.Covers(Seg(Pt(1, 1), Pt(2, 1))) {
		t.Error("parallel segment must not be covered")
	}
}
