package constraint

import (
	"github.com/matzehuels/dungeontower/pkg/configspace"
	"github.com/matzehuels/dungeontower/pkg/layout"
	"github.com/matzehuels/dungeontower/pkg/mapdesc"
)

// OverlapWeight scales overlap above every other violation.
const OverlapWeight = 10

// Options selects the optional constraints.
type Options struct {
	// Touch penalizes unconnected rooms that share a wall.
	Touch bool
}

// Evaluator combines a fixed set of constraints.
type Evaluator struct {
	constraints []Constraint
	weights     [layout.NumKinds]float64
	norms       [layout.NumKinds]float64
}

// Result is a full evaluation of a layout.
type Result struct {
	Energy    float64
	Breakdown [layout.NumKinds]int
	Valid     bool
}

// New returns the evaluator for g. Overlap and distance always apply;
// corridor applies when g has corridors, touch when enabled in opts.
func New(g *mapdesc.Graph, spaces *configspace.Spaces, opts Options) *Evaluator {
	cs := []Constraint{
		Overlap{Spaces: spaces},
		Distance{Graph: g, Spaces: spaces},
	}
	if g.WithCorridors() {
		cs = append(cs, Corridor{Graph: g, Spaces: spaces})
	}
	if opts.Touch {
		cs = append(cs, Touch{Graph: g, Spaces: spaces})
	}
	return NewWith(spaces, cs...)
}

// NewWith returns an evaluator over the given constraints, normalized by
// the average variant size of spaces.
func NewWith(spaces *configspace.Spaces, cs ...Constraint) *Evaluator {
	area, side := spaces.AverageArea(), spaces.AverageSide()
	if area <= 0 {
		area = 1
	}
	if side <= 0 {
		side = 1
	}
	ev := &Evaluator{constraints: cs}
	for k := range ev.weights {
		ev.weights[k] = 1
		ev.norms[k] = side
	}
	ev.weights[layout.KindOverlap] = OverlapWeight
	ev.norms[layout.KindOverlap] = area
	return ev
}

// Constraints returns the active constraints.
func (ev *Evaluator) Constraints() []Constraint { return ev.constraints }

// Data converts magnitudes into energy data.
func (ev *Evaluator) Data(m [layout.NumKinds]int) layout.EnergyData {
	e := 0.0
	for k, v := range m {
		if v != 0 {
			e += ev.weights[k] * float64(v) / ev.norms[k]
		}
	}
	return layout.EnergyData{Magnitudes: m, Energy: e}
}

// Apply returns l with n placed at c, updating the energy of n and of every
// node whose pairwise violations with n change. l is not modified.
func (ev *Evaluator) Apply(l *layout.Layout, n int, c layout.Configuration) *layout.Layout {
	old, wasPlaced := l.Get(n)
	e := l.Edit()
	var mags [layout.NumKinds]int
	for _, o := range l.Placed() {
		if o == n {
			continue
		}
		co, _ := l.Get(o)
		om := co.Energy.Magnitudes
		changed := false
		for _, con := range ev.constraints {
			k := con.Kind()
			next := con.Pair(n, c, o, co)
			mags[k] += next
			prev := 0
			if wasPlaced {
				prev = con.Pair(n, old, o, co)
			}
			if next != prev {
				om[k] += next - prev
				changed = true
			}
		}
		if changed {
			e.SetEnergy(o, ev.Data(om))
		}
	}
	c.Energy = ev.Data(mags)
	e.Set(n, c)
	return e.Done()
}

// Remove returns l without n, taking its violations off its former
// partners. l is not modified.
func (ev *Evaluator) Remove(l *layout.Layout, n int) *layout.Layout {
	old, ok := l.Get(n)
	if !ok {
		return l
	}
	e := l.Edit()
	for _, o := range l.Placed() {
		if o == n {
			continue
		}
		co, _ := l.Get(o)
		om := co.Energy.Magnitudes
		changed := false
		for _, con := range ev.constraints {
			if prev := con.Pair(n, old, o, co); prev != 0 {
				om[con.Kind()] -= prev
				changed = true
			}
		}
		if changed {
			e.SetEnergy(o, ev.Data(om))
		}
	}
	e.Unset(n)
	return e.Done()
}

// Delta returns the change in layout energy from placing n at c.
func (ev *Evaluator) Delta(l *layout.Layout, n int, c layout.Configuration) float64 {
	return ev.Apply(l, n, c).Energy() - l.Energy()
}

// Evaluate scores l from scratch, ignoring the energy stored on it.
func (ev *Evaluator) Evaluate(l *layout.Layout) Result {
	mags := ev.magnitudes(l)
	var res Result
	for _, n := range l.Placed() {
		res.Energy += ev.Data(mags[n]).Energy
		for k, v := range mags[n] {
			res.Breakdown[k] += v
		}
	}
	res.Valid = res.Breakdown == [layout.NumKinds]int{}
	return res
}

// Recompute returns l with every node's energy recomputed from scratch.
func (ev *Evaluator) Recompute(l *layout.Layout) *layout.Layout {
	mags := ev.magnitudes(l)
	e := l.Edit()
	for _, n := range l.Placed() {
		e.SetEnergy(n, ev.Data(mags[n]))
	}
	return e.Done()
}

func (ev *Evaluator) magnitudes(l *layout.Layout) map[int][layout.NumKinds]int {
	placed := l.Placed()
	mags := make(map[int][layout.NumKinds]int, len(placed))
	for i, a := range placed {
		ca, _ := l.Get(a)
		for _, b := range placed[i+1:] {
			cb, _ := l.Get(b)
			ma, mb := mags[a], mags[b]
			for _, con := range ev.constraints {
				v := con.Pair(a, ca, b, cb)
				ma[con.Kind()] += v
				mb[con.Kind()] += v
			}
			mags[a], mags[b] = ma, mb
		}
	}
	return mags
}
