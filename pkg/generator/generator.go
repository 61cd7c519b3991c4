// Package generator generates dungeon layouts from map descriptions.
//
// A [Generator] is built once per description: [New] validates the
// description and configuration, computes the configuration spaces and
// decomposes the room graph into chains, so every setup failure surfaces
// before any annealing runs. [Generator.GenerateLayout] then runs the
// chain-by-chain simulated annealing search and converts the result into a
// [maplayout.MapLayout].
//
// # Usage
//
//	desc := mapdesc.New[string]()
//	desc.AddShape("room", mapdesc.RoomShape{Outline: geom.Rectangle(6, 4), Doors: mapdesc.OverlapDoors{Length: 1}})
//	desc.SetDefaultShapes("room")
//	desc.AddRoom("hall", mapdesc.RoomOptions{})
//	desc.AddRoom("vault", mapdesc.RoomOptions{})
//	desc.AddConnection("hall", "vault")
//
//	gen, err := generator.New(ctx, desc, generator.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	gen.InjectRandomSource(7)
//	m, err := gen.GenerateLayout(ctx)
//
// The context passed to GenerateLayout is the cancellation signal. It is
// checked before every chain and every annealing iteration.
//
// A Generator is not safe for concurrent use, but several generators may
// share one [configspace.Spaces] through [WithSpaces].
package generator

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/dungeontower/pkg/anneal"
	"github.com/matzehuels/dungeontower/pkg/chain"
	"github.com/matzehuels/dungeontower/pkg/configspace"
	"github.com/matzehuels/dungeontower/pkg/constraint"
	"github.com/matzehuels/dungeontower/pkg/convert"
	"github.com/matzehuels/dungeontower/pkg/errors"
	"github.com/matzehuels/dungeontower/pkg/layout"
	"github.com/matzehuels/dungeontower/pkg/mapdesc"
	"github.com/matzehuels/dungeontower/pkg/maplayout"
	"github.com/matzehuels/dungeontower/pkg/observability"
	"github.com/matzehuels/dungeontower/pkg/operations"
	"github.com/matzehuels/dungeontower/pkg/planner"
)

// rngStream is the second PCG word; the seed is the first.
const rngStream = 0x9e3779b97f4a7c15

// Option configures [New].
type Option func(*options)

type options struct {
	logger *log.Logger
	spaces *configspace.Spaces
}

// WithLogger sets the logger for setup and chain progress.
func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithSpaces reuses configuration spaces built for the same description,
// for example from a cache, instead of computing them.
func WithSpaces(s *configspace.Spaces) Option {
	return func(o *options) { o.spaces = s }
}

// Generator generates layouts for one description.
type Generator[K comparable] struct {
	desc   *mapdesc.Description[K]
	cfg    Config
	graph  *mapdesc.Graph
	spaces *configspace.Spaces
	chains []chain.Chain
	logger *log.Logger

	seed     uint64
	observer anneal.Observer

	iterations int
	elapsed    time.Duration
}

// New validates cfg and desc and prepares a generator. It fails with
// [errors.ErrCodeInvalidConfig], [errors.ErrCodeInvalidMap],
// [errors.ErrCodeDisconnectedGraph] or [errors.ErrCodeNoConfigurationSpace].
func New[K comparable](ctx context.Context, desc *mapdesc.Description[K], cfg Config, opts ...Option) (*Generator[K], error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if err := cfg.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	g, err := desc.Graph()
	if err != nil {
		return nil, err
	}

	spaces := o.spaces
	if spaces == nil {
		hooks := observability.Generator()
		hooks.OnSpacesStart(ctx, g.Len())
		start := time.Now()
		spaces, err = configspace.Build(ctx, g, configspace.Options{
			NodeName: NodeNamer(desc, g),
			Logger:   o.logger,
		})
		variants := 0
		if spaces != nil {
			variants = len(spaces.Variants())
		}
		hooks.OnSpacesComplete(ctx, variants, time.Since(start), err)
		if err != nil {
			return nil, err
		}
	} else if spaces.WithCorridors() != g.WithCorridors() {
		return nil, errors.New(errors.ErrCodeInvalidInput, "configuration spaces do not match the description")
	}

	chains, err := chain.Decompose(g, cfg.Chains)
	if err != nil {
		return nil, err
	}
	o.logger.Debug("generator ready",
		"rooms", g.Rooms(),
		"corridors", len(g.Corridors()),
		"chains", len(chains),
		"spaces", spaces)

	return &Generator[K]{
		desc:   desc,
		cfg:    cfg,
		graph:  g,
		spaces: spaces,
		chains: chains,
		logger: o.logger,
		seed:   DefaultSeed,
	}, nil
}

// NodeNamer formats node aliases of g for messages: room names as the
// description's node, corridors as "a~b".
func NodeNamer[K comparable](desc *mapdesc.Description[K], g *mapdesc.Graph) func(int) string {
	return func(n int) string {
		if g.IsCorridor(n) {
			ends := g.Endpoints(n)
			return fmt.Sprintf("%v~%v", desc.Node(ends[0]), desc.Node(ends[1]))
		}
		return fmt.Sprint(desc.Node(n))
	}
}

// InjectRandomSource sets the seed of every following run.
func (g *Generator[K]) InjectRandomSource(seed uint64) { g.seed = seed }

// Seed returns the current seed.
func (g *Generator[K]) Seed() uint64 { return g.seed }

// OnEvent sets the observer that receives every annealing step, replacing
// any previous one. Pass nil to stop observing. Fan out at the call site to
// reach several observers.
func (g *Generator[K]) OnEvent(o anneal.Observer) { g.observer = o }

// GenerateLayout runs the search. It fails with
// [errors.ErrCodeGenerationFailed] when a chain exhausts its retries and
// with [errors.ErrCodeCancelled] when ctx is done. Every call starts from
// the seed, so repeated calls return the same layout.
func (g *Generator[K]) GenerateLayout(ctx context.Context) (*maplayout.MapLayout[K], error) {
	g.iterations, g.elapsed = 0, 0
	rng := rand.New(rand.NewPCG(g.seed, rngStream))
	eval := constraint.New(g.graph, g.spaces, constraint.Options{Touch: g.cfg.TouchConstraint})
	ops := operations.New(g.graph, g.spaces, eval, g.cfg.Operations, rng)
	ev := anneal.New(ops, g.cfg.Annealing, rng, g.observer)

	res, err := planner.New(ev, g.cfg.Planner, g.logger).Run(ctx, layout.New(g.graph), g.chains)
	g.iterations, g.elapsed = res.Iterations, res.Elapsed
	if err != nil {
		return nil, err
	}
	return convert.ToMapLayout(g.desc, g.spaces, res.Layout)
}

// IterationsCount returns the annealing iterations of the last run,
// including failed and cancelled runs.
func (g *Generator[K]) IterationsCount() int { return g.iterations }

// ElapsedTime returns the duration of the last run.
func (g *Generator[K]) ElapsedTime() time.Duration { return g.elapsed }

// Chains returns the chain decomposition. The slice must not be modified.
func (g *Generator[K]) Chains() []chain.Chain { return g.chains }

// Spaces returns the configuration spaces.
func (g *Generator[K]) Spaces() *configspace.Spaces { return g.spaces }

// Graph returns the resolved room graph.
func (g *Generator[K]) Graph() *mapdesc.Graph { return g.graph }

// Description returns the description the generator was built from.
func (g *Generator[K]) Description() *mapdesc.Description[K] { return g.desc }
