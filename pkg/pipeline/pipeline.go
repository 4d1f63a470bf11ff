// Package pipeline provides the core evaluation pipeline for Stormflow.
//
// This package implements the load → accumulate → render flow shared by the
// CLI and the HTTP API. By centralizing this logic, both entry points get the
// same caching behavior and the same defaults.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Load: Read and validate the drainage network
//  2. Accumulate: Route runoff volumes downstream through the network
//  3. Render: Generate output in various formats (JSON, DOT, SVG)
//
// Each stage can be run independently or as part of the complete pipeline.
//
// # Usage
//
// Create a Runner and evaluate a storm:
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.Options{Depth: 25}
//	result, err := runner.Evaluate(ctx, net, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	outflow := result.Outflow
package pipeline

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/perisponge/stormflow/pkg/cache"
	"github.com/perisponge/stormflow/pkg/errors"
	"github.com/perisponge/stormflow/pkg/runoff"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

// Format constants for output formats.
const (
	FormatJSON = "json"
	FormatDOT  = "dot"
	FormatSVG  = "svg"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatJSON: true,
	FormatDOT:  true,
	FormatSVG:  true,
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for an evaluation.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Depth is the precipitation depth in millimeters. Required and
	// must be non-negative.
	Depth float64 `json:"depth"`

	// Retention maps node IDs to retention capacities in cubic meters.
	// Nodes not listed retain nothing.
	Retention map[string]float64 `json:"retention,omitempty"`

	// Coefficient is the reserved discharge coefficient. Must be zero.
	Coefficient float64 `json:"coefficient,omitempty"`

	// Formats selects render outputs. Defaults to ["json"].
	Formats []string `json:"formats,omitempty"`

	// Refresh bypasses the cache and recomputes.
	Refresh bool `json:"refresh,omitempty"`

	// Logger receives per-call progress logging. Left nil, the runner's
	// own logger is used. Not serialized.
	Logger *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `json:"-"`
}

// Result contains the outputs of an evaluation.
type Result struct {
	// Outflow is the discharge volume per node in m³, aligned to the
	// network's node enumeration.
	Outflow []float64

	// Nodes is the node enumeration the outflow vector aligns to.
	Nodes []string

	// NetworkHash is the content hash of the evaluated network.
	NetworkHash string

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	NodeCount      int
	EdgeCount      int
	AccumulateTime time.Duration
	RenderTime     time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	ResultHit bool // Whether the outflow vector came from cache
	RenderHit bool // Whether all artifacts came from cache
}

// TableResult is the outcome of sweeping a design-storm table for one node.
// Outflow is indexed [duration][return period], mirroring the table's Depths.
type TableResult struct {
	NodeID        string      `json:"node_id"`
	ReturnPeriods []float64   `json:"return_periods_years"`
	Durations     []float64   `json:"durations_minutes"`
	Outflow       [][]float64 `json:"outflow_m3"`
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidFormat, "invalid format: %q (must be one of: json, dot, svg)", format)
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

// ValidateAndSetDefaults checks required fields and applies defaults.
// This method is idempotent - calling it multiple times has the same effect
// as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.Depth < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "depth must be non-negative, got %v", o.Depth)
	}
	if o.Coefficient != 0 {
		return errors.New(errors.ErrCodeUnsupported, "discharge coefficient is reserved and must be zero")
	}
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatJSON}
	}
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// ResultKeyOpts returns cache key options for the outflow vector.
func (o *Options) ResultKeyOpts(retentionHash string) cache.ResultKeyOpts {
	return cache.ResultKeyOpts{
		Depth:         o.Depth,
		RetentionHash: retentionHash,
		Coefficient:   o.Coefficient,
	}
}

// ArtifactKeyOpts returns cache key options for a rendered artifact.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	return cache.ArtifactKeyOpts{
		Format: format,
		Depth:  o.Depth,
	}
}

// RunoffOptions converts to the accumulation engine's options.
func (o *Options) RunoffOptions() runoff.Options {
	return runoff.Options{Coefficient: o.Coefficient}
}
