// Package pipeline provides the end-to-end dungeon generation pipeline.
//
// This package implements the complete describe → generate → render → store
// pipeline used by the CLI and the HTTP server. Centralizing it keeps
// caching, hashing and defaults identical across entry points.
//
// # Architecture
//
// The pipeline consists of four stages:
//
//  1. Describe: Normalize and hash the map description
//  2. Generate: Build (or load cached) configuration spaces, then anneal
//  3. Render: Draw the layout in the requested formats (SVG, PNG, PDF, JSON)
//  4. Store: Optionally persist the layout as a [store.Record]
//
// Configuration spaces, layouts and artifacts are each cached under
// content-hash keys, so re-running an unchanged description with the same
// seed and configuration costs a few cache reads.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, nil, logger)
//	opts := pipeline.Options{
//	    Map:     doc,
//	    Seed:    7,
//	    Formats: []string{"svg"},
//	}
//	result, err := runner.Execute(ctx, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svg := result.Artifacts["svg"]
package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/dungeontower/pkg/anneal"
	"github.com/matzehuels/dungeontower/pkg/cache"
	"github.com/matzehuels/dungeontower/pkg/generator"
	"github.com/matzehuels/dungeontower/pkg/mapdesc"
	"github.com/matzehuels/dungeontower/pkg/maplayout"
	"github.com/matzehuels/dungeontower/pkg/render"
	"github.com/matzehuels/dungeontower/pkg/render/mapsvg"
	"github.com/matzehuels/dungeontower/pkg/store"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

// DefaultSeed is the seed used when Options.Seed is zero.
const DefaultSeed = generator.DefaultSeed

// DefaultScale is the default number of pixels per map unit.
const DefaultScale = mapsvg.DefaultScale

// FormatJSON selects the serialized map layout as an artifact.
const FormatJSON = "json"

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	render.FormatSVG: true,
	render.FormatPNG: true,
	render.FormatPDF: true,
	FormatJSON:       true,
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for the pipeline.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Describe options
	Map  *mapdesc.Document `json:"map"`
	Name string            `json:"name,omitempty"`

	// Generate options
	Seed    uint64            `json:"seed,omitempty"`
	Config  *generator.Config `json:"config,omitempty"`
	Refresh bool              `json:"refresh,omitempty"`

	// Render options
	Formats []string `json:"formats,omitempty"`
	Scale   int      `json:"scale,omitempty"`
	Labels  bool     `json:"labels,omitempty"`
	Doors   bool     `json:"doors,omitempty"`

	// Store persists the result when the runner has a store.
	Store bool `json:"store,omitempty"`

	// Runtime options (not serialized)
	Logger   *log.Logger     `json:"-"`
	Observer anneal.Observer `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Layout is the generated map layout.
	Layout *maplayout.Document

	// DescHash is the content hash of the normalized description.
	DescHash string

	// LayoutHash is the content hash of the serialized layout.
	LayoutHash string

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	// Record is the stored record when Options.Store was set.
	Record *store.Record

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Rooms        int           `json:"rooms"`
	Iterations   int           `json:"iterations"`
	GenerateTime time.Duration `json:"generate_time"`
	RenderTime   time.Duration `json:"render_time"`
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	SpacesHit bool `json:"spaces_hit"` // Whether configuration spaces came from cache
	LayoutHit bool `json:"layout_hit"` // Whether the layout came from cache
	RenderHit bool `json:"render_hit"` // Whether all artifacts came from cache
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return fmt.Errorf("invalid format: %q (must be one of: svg, png, pdf, json)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks required fields and applies defaults for the full pipeline.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForGenerate(); err != nil {
		return err
	}
	if err := o.ValidateForRender(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// ValidateForGenerate checks the description and generation config.
func (o *Options) ValidateForGenerate() error {
	if o.Map == nil {
		return fmt.Errorf("map is required")
	}
	if o.Seed == 0 {
		o.Seed = DefaultSeed
	}
	if o.Config == nil {
		cfg := generator.DefaultConfig()
		o.Config = &cfg
	}
	if err := o.Config.ValidateAndSetDefaults(); err != nil {
		return err
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return nil
}

// SetRenderDefaults sets default values for rendering.
func (o *Options) SetRenderDefaults() {
	if len(o.Formats) == 0 {
		o.Formats = []string{render.FormatSVG}
	}
	if o.Scale <= 0 {
		o.Scale = DefaultScale
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// ValidateForRender validates and sets defaults for rendering.
func (o *Options) ValidateForRender() error {
	o.SetRenderDefaults()
	return ValidateFormats(o.Formats)
}

// ConfigHash hashes the generation config. It is part of the layout key.
func (o *Options) ConfigHash() string {
	data, _ := json.Marshal(o.Config)
	return cache.Hash(data)
}

// LayoutKeyOpts returns cache key options for layout generation.
func (o *Options) LayoutKeyOpts() cache.LayoutKeyOpts {
	return cache.LayoutKeyOpts{Seed: o.Seed, ConfigHash: o.ConfigHash()}
}

// ArtifactKeyOpts returns cache key options for artifact rendering.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	return cache.ArtifactKeyOpts{
		Format: format,
		Scale:  o.Scale,
		Labels: o.Labels,
		Doors:  o.Doors,
	}
}

// SVGOptions returns the map drawing options.
func (o *Options) SVGOptions() []mapsvg.SVGOption {
	opts := []mapsvg.SVGOption{mapsvg.WithScale(o.Scale)}
	if o.Labels {
		opts = append(opts, mapsvg.WithLabels())
	}
	if o.Doors {
		opts = append(opts, mapsvg.WithDoors())
	}
	return opts
}
