package geom

// Rect is a half-open axis-aligned rectangle [Min.X, Max.X) x [Min.Y, Max.Y).
type Rect struct {
	Min Point `json:"min" bson:"min"`
	Max Point `json:"max" bson:"max"`
}

// Width returns the horizontal extent of r.
func (r Rect) Width() int { return r.Max.X - r.Min.X }

// Height returns the vertical extent of r.
func (r Rect) Height() int { return r.Max.Y - r.Min.Y }

// Area returns the area of r.
func (r Rect) Area() int { return r.Width() * r.Height() }

// Translate returns r moved by p.
func (r Rect) Translate(p Point) Rect {
	return Rect{Min: r.Min.Add(p), Max: r.Max.Add(p)}
}

// IntersectionArea returns the area shared by r and s.
func (r Rect) IntersectionArea(s Rect) int {
	w := min(r.Max.X, s.Max.X) - max(r.Min.X, s.Min.X)
	h := min(r.Max.Y, s.Max.Y) - max(r.Min.Y, s.Min.Y)
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// ContactLength returns the length of boundary r and s share without
// overlapping. Rectangles that overlap in area or only meet at a corner have
// zero contact.
func (r Rect) ContactLength(s Rect) int {
	if r.IntersectionArea(s) > 0 {
		return 0
	}
	if r.Max.X == s.Min.X || s.Max.X == r.Min.X {
		if l := min(r.Max.Y, s.Max.Y) - max(r.Min.Y, s.Min.Y); l > 0 {
			return l
		}
	}
	if r.Max.Y == s.Min.Y || s.Max.Y == r.Min.Y {
		if l := min(r.Max.X, s.Max.X) - max(r.Min.X, s.Min.X); l > 0 {
			return l
		}
	}
	return 0
}

// OverlapArea returns the total area shared by two rectangle decompositions
// placed at pa and pb.
func OverlapArea(a []Rect, pa Point, b []Rect, pb Point) int {
	d := pb.Sub(pa)
	total := 0
	for _, ra := range a {
		for _, rb := range b {
			total += ra.IntersectionArea(rb.Translate(d))
		}
	}
	return total
}

// ContactLength returns the total boundary length two rectangle
// decompositions placed at pa and pb share. Overlapping decompositions
// report zero.
func ContactLength(a []Rect, pa Point, b []Rect, pb Point) int {
	if OverlapArea(a, pa, b, pb) > 0 {
		return 0
	}
	d := pb.Sub(pa)
	total := 0
	for _, ra := range a {
		for _, rb := range b {
			total += ra.ContactLength(rb.Translate(d))
		}
	}
	return total
}
