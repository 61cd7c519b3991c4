package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/dungeontower/pkg/cache"
	"github.com/matzehuels/dungeontower/pkg/configspace"
	"github.com/matzehuels/dungeontower/pkg/generator"
	"github.com/matzehuels/dungeontower/pkg/mapdesc"
	"github.com/matzehuels/dungeontower/pkg/maplayout"
	"github.com/matzehuels/dungeontower/pkg/observability"
	"github.com/matzehuels/dungeontower/pkg/store"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and API use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache, store and logger - it
// doesn't keep pipeline results. Multiple goroutines can safely use the
// same Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Store  store.Store
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache, keyer and store.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
// A nil store disables Options.Store.
func NewRunner(c cache.Cache, keyer cache.Keyer, st store.Store, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Store:  st,
		Logger: logger,
	}
}

// Execute runs the complete describe → generate → render → store pipeline.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	result := &Result{}

	// Stage 1: Describe
	desc, descHash, err := Describe(opts.Map)
	if err != nil {
		return nil, err
	}
	result.DescHash = descHash

	// Stage 2: Generate
	genStart := time.Now()
	doc, info, err := r.GenerateWithCacheInfo(ctx, desc, descHash, opts)
	if err != nil {
		return nil, err
	}
	result.Layout = doc
	result.CacheInfo = info
	result.Stats.GenerateTime = time.Since(genStart)
	result.Stats.Rooms = len(doc.Rooms)
	result.Stats.Iterations = doc.Iterations

	r.Logger.Info("generated layout",
		"rooms", len(doc.Rooms),
		"iterations", doc.Iterations,
		"cached", info.LayoutHit,
		"duration", result.Stats.GenerateTime)

	// Stage 3: Render
	renderStart := time.Now()
	layoutHash, err := LayoutHash(doc)
	if err != nil {
		return nil, err
	}
	result.LayoutHash = layoutHash
	artifacts, renderHit, err := r.RenderWithCacheInfo(ctx, doc, layoutHash, opts)
	if err != nil {
		return nil, err
	}
	result.Artifacts = artifacts
	result.Stats.RenderTime = time.Since(renderStart)
	result.CacheInfo.RenderHit = renderHit

	r.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"duration", result.Stats.RenderTime)

	// Stage 4: Store
	if opts.Store && r.Store != nil {
		rec := store.NewRecord(doc, descHash)
		rec.ConfigHash = opts.ConfigHash()
		if err := r.Store.Put(ctx, rec); err != nil {
			return nil, fmt.Errorf("store layout: %w", err)
		}
		result.Record = rec
		r.Logger.Debug("stored layout", "id", rec.ID)
	}

	return result, nil
}

// GenerateWithCacheInfo returns the layout for desc, from the layout cache
// when possible. On a miss it generates with cached configuration spaces
// when those exist, and caches whatever it had to compute.
func (r *Runner) GenerateWithCacheInfo(ctx context.Context, desc *mapdesc.Description[string], descHash string, opts Options) (*maplayout.Document, CacheInfo, error) {
	var info CacheInfo
	if err := opts.ValidateForGenerate(); err != nil {
		return nil, info, err
	}
	r.applyLogger(&opts)

	layoutKey := r.Keyer.LayoutKey(descHash, opts.LayoutKeyOpts())
	if !opts.Refresh {
		if data, ok := r.get(ctx, cache.KeyTypeLayout, layoutKey); ok {
			if doc, err := maplayout.Unmarshal(data); err == nil {
				doc.Name = opts.Name
				info.LayoutHit = true
				return doc, info, nil
			}
			// If deserialization fails, fall through to recompute
		}
	}

	gen, spacesHit, err := r.GeneratorWithCacheInfo(ctx, desc, descHash, opts)
	if err != nil {
		return nil, info, err
	}
	info.SpacesHit = spacesHit

	doc, err := GenerateLayout(ctx, gen, opts)
	if err != nil {
		return nil, info, err
	}
	if data, err := maplayout.Marshal(doc); err == nil {
		r.set(ctx, cache.KeyTypeLayout, layoutKey, data, cache.TTLLayout)
	}
	return doc, info, nil
}

// GeneratorWithCacheInfo builds a generator for desc, loading its
// configuration spaces from the cache when present and caching them after
// computing them otherwise.
func (r *Runner) GeneratorWithCacheInfo(ctx context.Context, desc *mapdesc.Description[string], descHash string, opts Options) (*generator.Generator[string], bool, error) {
	if err := opts.ValidateForGenerate(); err != nil {
		return nil, false, err
	}
	r.applyLogger(&opts)

	spacesKey := r.Keyer.SpacesKey(descHash)
	if data, ok := r.get(ctx, cache.KeyTypeSpaces, spacesKey); ok {
		g, err := desc.Graph()
		if err != nil {
			return nil, false, err
		}
		if spaces, err := configspace.Decode(data, g); err == nil {
			gen, err := newGenerator(ctx, desc, opts, generator.WithSpaces(spaces))
			return gen, err == nil, err
		}
		r.Logger.Debug("discarding unreadable cached spaces", "key", spacesKey)
	}

	gen, err := newGenerator(ctx, desc, opts)
	if err != nil {
		return nil, false, err
	}
	if data, err := json.Marshal(gen.Spaces()); err == nil {
		r.set(ctx, cache.KeyTypeSpaces, spacesKey, data, cache.TTLSpaces)
	}
	return gen, false, nil
}

// RenderWithCacheInfo generates artifacts with caching and returns cache hit info.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, doc *maplayout.Document, layoutHash string, opts Options) (map[string][]byte, bool, error) {
	if err := opts.ValidateForRender(); err != nil {
		return nil, false, err
	}

	// Try to get all formats from cache
	artifacts := make(map[string][]byte)
	for _, format := range opts.Formats {
		key := r.Keyer.ArtifactKey(layoutHash, opts.ArtifactKeyOpts(format))
		data, ok := r.get(ctx, cache.KeyTypeArtifact, key)
		if !ok {
			break
		}
		artifacts[format] = data
	}
	if len(artifacts) == len(opts.Formats) {
		return artifacts, true, nil // All artifacts from cache
	}

	rendered, err := Render(ctx, doc, opts)
	if err != nil {
		return nil, false, err
	}

	// Cache each format
	for format, data := range rendered {
		key := r.Keyer.ArtifactKey(layoutHash, opts.ArtifactKeyOpts(format))
		r.set(ctx, cache.KeyTypeArtifact, key, data, cache.TTLArtifact)
	}
	return rendered, false, nil
}

// LayoutHash hashes the serialized layout. The name and run duration are
// excluded so identical geometry shares artifacts.
func LayoutHash(doc *maplayout.Document) (string, error) {
	key := *doc
	key.Name, key.DurationMS = "", 0
	data, err := maplayout.Marshal(&key)
	if err != nil {
		return "", fmt.Errorf("serialize layout for cache key: %w", err)
	}
	return cache.Hash(data), nil
}

// Close releases resources held by the runner.
func (r *Runner) Close() error {
	var err error
	if r.Cache != nil {
		err = r.Cache.Close()
	}
	if r.Store != nil {
		if serr := r.Store.Close(); err == nil {
			err = serr
		}
	}
	return err
}

// get reads key and reports the outcome to the cache hooks. Cache errors
// count as misses.
func (r *Runner) get(ctx context.Context, keyType, key string) ([]byte, bool) {
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil {
		r.Logger.Warn("cache read failed", "type", keyType, "error", err)
	}
	if err != nil || !hit {
		observability.Cache().OnCacheMiss(ctx, keyType)
		return nil, false
	}
	observability.Cache().OnCacheHit(ctx, keyType)
	return data, true
}

func (r *Runner) set(ctx context.Context, keyType, key string, data []byte, ttl time.Duration) {
	if err := r.Cache.Set(ctx, key, data, ttl); err != nil {
		r.Logger.Warn("cache write failed", "type", keyType, "error", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, keyType, len(data))
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
