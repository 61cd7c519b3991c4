// Package planner drives the annealer chain by chain.
//
// Each chain is attempted up to [Config.MaxChainAttempts] times from the
// layout committed by the previous chains. When every attempt is
// exhausted the planner backtracks to the previous chain, at most
// [Config.MaxBacktracks] times per run, before giving up with
// [errors.ErrCodeGenerationFailed].
package planner

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/dungeontower/pkg/anneal"
	"github.com/matzehuels/dungeontower/pkg/chain"
	"github.com/matzehuels/dungeontower/pkg/errors"
	"github.com/matzehuels/dungeontower/pkg/layout"
	"github.com/matzehuels/dungeontower/pkg/observability"
)

const (
	DefaultMaxChainAttempts = 3
	DefaultMaxBacktracks    = 2
)

// Config bounds the retries of a run.
type Config struct {
	MaxChainAttempts int `toml:"max_chain_attempts" json:"max_chain_attempts"`
	// MaxBacktracks of zero never revisits a committed chain.
	MaxBacktracks int `toml:"max_backtracks" json:"max_backtracks"`
}

// DefaultConfig returns the default retry budget.
func DefaultConfig() Config {
	return Config{MaxChainAttempts: DefaultMaxChainAttempts, MaxBacktracks: DefaultMaxBacktracks}
}

// ValidateAndSetDefaults checks the budget and fills unset fields.
func (c *Config) ValidateAndSetDefaults() error {
	if c.MaxChainAttempts == 0 {
		c.MaxChainAttempts = DefaultMaxChainAttempts
	}
	if c.MaxChainAttempts < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "max chain attempts must be positive, got %d", c.MaxChainAttempts)
	}
	if c.MaxBacktracks < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "max backtracks must not be negative, got %d", c.MaxBacktracks)
	}
	return nil
}

// Evolver anneals one chain on top of a committed layout.
type Evolver interface {
	Evolve(ctx context.Context, initial *layout.Layout, ch chain.Chain, attempt int) anneal.Outcome
}

// Result summarizes a run. Iterations and Elapsed are filled on failure
// and cancellation too.
type Result struct {
	Layout     *layout.Layout
	Iterations int
	Elapsed    time.Duration
	Attempts   int
	Backtracks int
}

// Planner runs chains in order.
type Planner struct {
	evolver Evolver
	cfg     Config
	logger  *log.Logger
}

// New returns a planner. A nil logger discards output.
func New(ev Evolver, cfg Config, logger *log.Logger) *Planner {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Planner{evolver: ev, cfg: cfg, logger: logger}
}

// Run places every chain on top of initial. On failure or cancellation
// the returned Result still carries the counters.
func (p *Planner) Run(ctx context.Context, initial *layout.Layout, chains []chain.Chain) (Result, error) {
	start := time.Now()
	hooks := observability.Generator()
	var res Result
	finish := func(err error) (Result, error) {
		res.Elapsed = time.Since(start)
		hooks.OnGenerateComplete(ctx, res.Iterations, res.Elapsed, err)
		return res, err
	}

	// committed[i] is the layout chain i starts from.
	committed := []*layout.Layout{initial}
	for i := 0; i < len(chains); {
		if err := ctx.Err(); err != nil {
			return finish(errors.Wrap(errors.ErrCodeCancelled, err, "generation cancelled before chain %d", chains[i].Index))
		}

		ch := chains[i]
		hooks.OnChainStart(ctx, ch.Index, len(ch.Nodes))
		var converged *layout.Layout
		for attempt := 0; attempt < p.cfg.MaxChainAttempts; attempt++ {
			chainStart := time.Now()
			out := p.evolver.Evolve(ctx, committed[i], ch, attempt)
			res.Iterations += out.Iterations
			res.Attempts++
			hooks.OnChainComplete(ctx, ch.Index, attempt, out.Status.String(), out.Iterations, time.Since(chainStart))
			p.logger.Debug("chain attempt",
				"chain", ch.Index,
				"attempt", attempt,
				"status", out.Status,
				"iterations", out.Iterations,
				"energy", out.Energy)

			if out.Status == anneal.Cancelled {
				err := out.Err
				if err == nil {
					err = errors.Wrap(errors.ErrCodeCancelled, ctx.Err(), "chain %d cancelled", ch.Index)
				}
				return finish(err)
			}
			if out.Status == anneal.Converged {
				converged = out.Layout
				break
			}
		}

		if converged != nil {
			committed = append(committed[:i+1], converged)
			i++
			continue
		}
		if i > 0 && res.Backtracks < p.cfg.MaxBacktracks {
			res.Backtracks++
			hooks.OnBacktrack(ctx, ch.Index, chains[i-1].Index)
			p.logger.Debug("backtracking", "from", ch.Index, "to", chains[i-1].Index)
			i--
			committed = committed[:i+1]
			continue
		}
		return finish(errors.New(errors.ErrCodeGenerationFailed,
			"chain %d did not converge after %d attempts and %d backtracks",
			ch.Index, p.cfg.MaxChainAttempts, res.Backtracks))
	}

	res.Layout = committed[len(committed)-1]
	p.logger.Debug("layout generated",
		"chains", len(chains),
		"iterations", res.Iterations,
		"backtracks", res.Backtracks)
	return finish(nil)
}
