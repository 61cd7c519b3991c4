package pipeline

import (
	"context"

	"github.com/matzehuels/dungeontower/pkg/generator"
	"github.com/matzehuels/dungeontower/pkg/mapdesc"
	"github.com/matzehuels/dungeontower/pkg/maplayout"
)

// =============================================================================
// Layout Generation
// =============================================================================

// GenerateLayout runs one generation with gen and returns the serialized
// layout, stamped with the run's seed, iterations and duration.
func GenerateLayout(ctx context.Context, gen *generator.Generator[string], opts Options) (*maplayout.Document, error) {
	gen.InjectRandomSource(opts.Seed)
	gen.OnEvent(opts.Observer)
	m, err := gen.GenerateLayout(ctx)
	if err != nil {
		return nil, err
	}

	doc := m.Document(func(id string) string { return id })
	doc.Name = opts.Name
	doc.Seed = opts.Seed
	doc.Iterations = gen.IterationsCount()
	doc.DurationMS = gen.ElapsedTime().Milliseconds()
	return doc, nil
}

// newGenerator builds a generator for desc, reusing spaces when given.
func newGenerator(ctx context.Context, desc *mapdesc.Description[string], opts Options, extra ...generator.Option) (*generator.Generator[string], error) {
	genOpts := append([]generator.Option{generator.WithLogger(opts.Logger)}, extra...)
	return generator.New(ctx, desc, *opts.Config, genOpts...)
}
