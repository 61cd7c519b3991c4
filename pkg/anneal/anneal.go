// Package anneal runs simulated annealing over the nodes of one chain.
//
// An [Evolver] seeds the chain greedily, then repeatedly perturbs the
// layout and accepts or rejects each change with the Metropolis criterion
// until every placed node has zero energy and the chain's corridors fit
// ([Converged]), the budget is spent ([Exhausted]) or the context is done
// ([Cancelled]).
package anneal

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"github.com/matzehuels/dungeontower/pkg/chain"
	"github.com/matzehuels/dungeontower/pkg/errors"
	"github.com/matzehuels/dungeontower/pkg/layout"
	"github.com/matzehuels/dungeontower/pkg/operations"
)

// Default cooling schedule.
const (
	DefaultStartTemperature    = 1.0
	DefaultEndTemperature      = 0.01
	DefaultCoolingRate         = 0.95
	DefaultStepsPerTemperature = 50
	DefaultMaxIterations       = 20000
	DefaultMaxStallIterations  = 4000
)

// Config is the cooling schedule and budget of one chain attempt.
type Config struct {
	StartTemperature    float64 `toml:"start_temperature" json:"start_temperature"`
	EndTemperature      float64 `toml:"end_temperature" json:"end_temperature"`
	CoolingRate         float64 `toml:"cooling_rate" json:"cooling_rate"`
	StepsPerTemperature int     `toml:"steps_per_temperature" json:"steps_per_temperature"`

	// MaxIterations bounds the iterations of one attempt. Zero exhausts
	// every attempt before its first iteration.
	MaxIterations int `toml:"max_iterations" json:"max_iterations"`

	// MaxStallIterations ends an attempt after this many iterations
	// without a new lowest energy. Zero disables the limit.
	MaxStallIterations int `toml:"max_stall_iterations" json:"max_stall_iterations"`

	// Timeout bounds the wall time of one attempt. Zero disables it.
	Timeout time.Duration `toml:"timeout" json:"timeout"`
}

// DefaultConfig returns the default schedule.
func DefaultConfig() Config {
	return Config{
		StartTemperature:    DefaultStartTemperature,
		EndTemperature:      DefaultEndTemperature,
		CoolingRate:         DefaultCoolingRate,
		StepsPerTemperature: DefaultStepsPerTemperature,
		MaxIterations:       DefaultMaxIterations,
		MaxStallIterations:  DefaultMaxStallIterations,
	}
}

// ValidateAndSetDefaults fills unset temperatures and checks the schedule.
// MaxIterations is left alone since zero is a meaningful budget.
func (c *Config) ValidateAndSetDefaults() error {
	if c.StartTemperature == 0 {
		c.StartTemperature = DefaultStartTemperature
	}
	if c.EndTemperature == 0 {
		c.EndTemperature = DefaultEndTemperature
	}
	if c.CoolingRate == 0 {
		c.CoolingRate = DefaultCoolingRate
	}
	if c.StepsPerTemperature == 0 {
		c.StepsPerTemperature = DefaultStepsPerTemperature
	}

	switch {
	case c.StartTemperature < 0 || c.EndTemperature < 0:
		return errors.New(errors.ErrCodeInvalidConfig, "temperatures must be positive")
	case c.EndTemperature > c.StartTemperature:
		return errors.New(errors.ErrCodeInvalidConfig,
			"end temperature %v is above start temperature %v", c.EndTemperature, c.StartTemperature)
	case c.CoolingRate < 0 || c.CoolingRate >= 1:
		return errors.New(errors.ErrCodeInvalidConfig, "cooling rate must be in (0,1), got %v", c.CoolingRate)
	case c.StepsPerTemperature < 0:
		return errors.New(errors.ErrCodeInvalidConfig, "steps per temperature must be positive")
	case c.MaxIterations < 0:
		return errors.New(errors.ErrCodeInvalidConfig, "max iterations must not be negative")
	case c.MaxStallIterations < 0:
		return errors.New(errors.ErrCodeInvalidConfig, "max stall iterations must not be negative")
	case c.Timeout < 0:
		return errors.New(errors.ErrCodeInvalidConfig, "timeout must not be negative")
	}
	return nil
}

// Status is how an attempt ended.
type Status int

const (
	Converged Status = iota
	Exhausted
	Cancelled
)

func (s Status) String() string {
	switch s {
	case Converged:
		return "converged"
	case Exhausted:
		return "exhausted"
	case Cancelled:
		return "cancelled"
	}
	return "unknown"
}

// Event describes one annealing step.
type Event struct {
	Chain       int     `json:"chain"`
	Attempt     int     `json:"attempt"`
	Iteration   int     `json:"iteration"`
	Temperature float64 `json:"temperature"`
	Energy      float64 `json:"energy"`
	Delta       float64 `json:"delta"`
	Accepted    bool    `json:"accepted"`
}

// Observer receives an event after every step. It runs synchronously on
// the annealing goroutine, so a slow observer slows the search.
type Observer func(Event)

// Outcome is the result of one attempt.
type Outcome struct {
	Status Status
	// Layout is the converged layout including the chain's corridors, or
	// the last layout reached otherwise.
	Layout     *layout.Layout
	Iterations int
	Energy     float64
	// Err is set when Status is Cancelled and wraps the context error.
	Err error
}

// Evolver anneals chains. One Evolver serves a whole generation run and
// shares its random source with the operations.
type Evolver struct {
	ops      *operations.Operations
	cfg      Config
	rng      *rand.Rand
	observer Observer
}

// New returns an evolver. A nil observer is allowed.
func New(ops *operations.Operations, cfg Config, rng *rand.Rand, observer Observer) *Evolver {
	return &Evolver{ops: ops, cfg: cfg, rng: rng, observer: observer}
}

// Evolve places the nodes of ch on top of initial and anneals them.
// The initial layout is never modified.
func (e *Evolver) Evolve(ctx context.Context, initial *layout.Layout, ch chain.Chain, attempt int) Outcome {
	start := time.Now()
	cur := e.ops.AddChain(initial, ch)
	best := cur.Energy()
	temp := e.cfg.StartTemperature
	stall := 0
	it := 0

	for {
		if err := ctx.Err(); err != nil {
			return Outcome{Status: Cancelled, Layout: cur, Iterations: it, Energy: cur.Energy(),
				Err: errors.Wrap(errors.ErrCodeCancelled, err, "chain %d cancelled", ch.Index)}
		}
		if it >= e.cfg.MaxIterations || (e.cfg.Timeout > 0 && time.Since(start) >= e.cfg.Timeout) {
			return Outcome{Status: Exhausted, Layout: cur, Iterations: it, Energy: cur.Energy()}
		}
		it++

		if cur.IsValid() {
			if done, ok := e.ops.CompleteChain(cur); ok {
				return Outcome{Status: Converged, Layout: done, Iterations: it, Energy: 0}
			}
		}

		next := e.ops.Perturb(cur, ch.Nodes)
		delta := next.Energy() - cur.Energy()
		accepted := delta <= 0 || e.rng.Float64() < math.Exp(-delta/temp)
		if accepted {
			cur = next
		}

		if e.observer != nil {
			e.observer(Event{
				Chain:       ch.Index,
				Attempt:     attempt,
				Iteration:   it,
				Temperature: temp,
				Energy:      cur.Energy(),
				Delta:       delta,
				Accepted:    accepted,
			})
		}

		if cur.Energy() < best {
			best, stall = cur.Energy(), 0
		} else {
			stall++
		}
		if e.cfg.MaxStallIterations > 0 && stall >= e.cfg.MaxStallIterations {
			return Outcome{Status: Exhausted, Layout: cur, Iterations: it, Energy: cur.Energy()}
		}

		if e.cfg.StepsPerTemperature > 0 && it%e.cfg.StepsPerTemperature == 0 {
			temp = max(e.cfg.EndTemperature, temp*e.cfg.CoolingRate)
		}
	}
}
