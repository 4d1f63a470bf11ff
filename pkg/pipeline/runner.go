package pipeline

import (
	"context"
	"encoding/json"
	"time"

	"github.com/charmbracelet/log"

	"github.com/perisponge/stormflow/pkg/cache"
	"github.com/perisponge/stormflow/pkg/errors"
	"github.com/perisponge/stormflow/pkg/netio"
	"github.com/perisponge/stormflow/pkg/network"
	"github.com/perisponge/stormflow/pkg/render"
	"github.com/perisponge/stormflow/pkg/runoff"
	"github.com/perisponge/stormflow/pkg/storms"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and API can use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store evaluation results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
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
		Logger: logger,
	}
}

// Evaluate runs the complete accumulate → render pipeline with caching.
func (r *Runner) Evaluate(ctx context.Context, net *network.Network, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid options")
	}
	r.applyLogger(&opts)

	if err := net.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidNetwork, err, "invalid network")
	}

	networkHash, err := r.NetworkHash(net)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Nodes:       net.Order(),
		NetworkHash: networkHash,
	}
	result.Stats.NodeCount = net.NodeCount()
	result.Stats.EdgeCount = net.EdgeCount()

	// Stage 1: Accumulate
	accStart := time.Now()
	outflow, resultHit, err := r.AccumulateWithCacheInfo(ctx, net, networkHash, opts)
	if err != nil {
		return nil, err
	}
	result.Outflow = outflow
	result.Stats.AccumulateTime = time.Since(accStart)
	result.CacheInfo.ResultHit = resultHit

	opts.Logger.Info("accumulated runoff",
		"nodes", result.Stats.NodeCount,
		"depth_mm", opts.Depth,
		"cached", resultHit,
		"duration", result.Stats.AccumulateTime)

	// Stage 2: Render
	renderStart := time.Now()
	artifacts, renderHit, err := r.RenderWithCacheInfo(ctx, net, outflow, opts)
	if err != nil {
		return nil, err
	}
	result.Artifacts = artifacts
	result.Stats.RenderTime = time.Since(renderStart)
	result.CacheInfo.RenderHit = renderHit

	opts.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"cached", renderHit,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// cachedOutflow is the cache payload for an outflow vector. The node
// enumeration travels with the vector: the cache key hashes a node-sorted
// serialization, so two networks with the same content but permuted
// insertion order share an entry, and the vector positions do not transfer.
type cachedOutflow struct {
	Nodes   []string  `json:"nodes"`
	Outflow []float64 `json:"outflow_m3"`
}

// AccumulateWithCacheInfo computes the outflow vector with caching and
// returns cache hit info.
func (r *Runner) AccumulateWithCacheInfo(ctx context.Context, net *network.Network, networkHash string, opts Options) ([]float64, bool, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, false, err
	}

	ret, retHash, err := r.buildRetention(net, opts.Retention)
	if err != nil {
		return nil, false, err
	}

	cacheKey := r.Keyer.ResultKey(networkHash, opts.ResultKeyOpts(retHash))

	// Try cache first (unless refresh requested)
	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			if outflow, ok := alignCached(data, net); ok {
				return outflow, true, nil // Cache hit
			}
		}
	}

	outflow, err := runoff.Accumulate(net, opts.Depth, ret, opts.RunoffOptions())
	if err != nil {
		return nil, false, err
	}

	if data, err := json.Marshal(cachedOutflow{Nodes: net.Order(), Outflow: outflow}); err == nil {
		_ = r.Cache.Set(ctx, cacheKey, data, cache.TTLResult)
	}

	return outflow, false, nil // Cache miss
}

// alignCached decodes a cached outflow payload and re-aligns it to the given
// network's node enumeration. Malformed payloads and enumeration mismatches
// are reported as misses.
func alignCached(data []byte, net *network.Network) ([]float64, bool) {
	var cached cachedOutflow
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, false
	}
	if len(cached.Nodes) != net.NodeCount() || len(cached.Outflow) != len(cached.Nodes) {
		return nil, false
	}
	outflow := make([]float64, len(cached.Outflow))
	for i, id := range cached.Nodes {
		idx, ok := net.Index(id)
		if !ok {
			return nil, false
		}
		outflow[idx] = cached.Outflow[i]
	}
	return outflow, true
}

// Accumulate is a convenience wrapper that discards the cache hit info.
func (r *Runner) Accumulate(ctx context.Context, net *network.Network, opts Options) ([]float64, error) {
	networkHash, err := r.NetworkHash(net)
	if err != nil {
		return nil, err
	}
	outflow, _, err := r.AccumulateWithCacheInfo(ctx, net, networkHash, opts)
	return outflow, err
}

// EvaluateTable sweeps a design-storm table for one node with caching.
// Every duration × return period cell is accumulated independently and the
// node's outflow is collected into a matrix mirroring the table layout.
func (r *Runner) EvaluateTable(ctx context.Context, net *network.Network, table *storms.Table, nodeID string, opts Options) (*TableResult, bool, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, false, err
	}
	r.applyLogger(&opts)

	if err := net.Validate(); err != nil {
		return nil, false, errors.Wrap(errors.ErrCodeInvalidNetwork, err, "invalid network")
	}
	if err := table.Validate(); err != nil {
		return nil, false, err
	}
	idx, ok := net.Index(nodeID)
	if !ok {
		return nil, false, errors.New(errors.ErrCodeNodeNotFound, "node %s not in network", nodeID)
	}

	networkHash, err := r.NetworkHash(net)
	if err != nil {
		return nil, false, err
	}
	ret, retHash, err := r.buildRetention(net, opts.Retention)
	if err != nil {
		return nil, false, err
	}

	tableData, err := json.Marshal(table)
	if err != nil {
		return nil, false, errors.Wrap(errors.ErrCodeInternal, err, "serialize table for cache key")
	}
	cacheKey := r.Keyer.TableKey(networkHash, cache.TableKeyOpts{
		TableHash:     cache.Hash(tableData),
		NodeID:        nodeID,
		RetentionHash: retHash,
	})

	durations, periods := table.Size()

	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			var cached TableResult
			if err := json.Unmarshal(data, &cached); err == nil {
				opts.Logger.Info("swept storm table",
					"node", nodeID, "cells", durations*periods, "cached", true)
				return &cached, true, nil // Cache hit
			}
		}
	}

	result := &TableResult{
		NodeID:        nodeID,
		ReturnPeriods: table.ReturnPeriods,
		Durations:     table.Durations,
		Outflow:       make([][]float64, len(table.Durations)),
	}
	for i := range table.Durations {
		result.Outflow[i] = make([]float64, len(table.ReturnPeriods))
		for j := range table.ReturnPeriods {
			outflow, err := runoff.Accumulate(net, table.Depths[i][j], ret, opts.RunoffOptions())
			if err != nil {
				return nil, false, err
			}
			result.Outflow[i][j] = outflow[idx]
		}
	}

	if data, err := json.Marshal(result); err == nil {
		_ = r.Cache.Set(ctx, cacheKey, data, cache.TTLTable)
	}

	opts.Logger.Info("swept storm table",
		"node", nodeID, "cells", durations*periods, "cached", false)

	return result, false, nil // Cache miss
}

// RenderWithCacheInfo generates artifacts with caching and returns cache hit info.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, net *network.Network, outflow []float64, opts Options) (map[string][]byte, bool, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, false, err
	}

	// Key artifacts by the outflow they visualize, not just the network:
	// the same network renders differently under different storms.
	outData, err := json.Marshal(outflow)
	if err != nil {
		return nil, false, errors.Wrap(errors.ErrCodeInternal, err, "serialize outflow for cache key")
	}
	contentHash := cache.Hash(outData)

	// Try to get all formats from cache
	allCached := true
	artifacts := make(map[string][]byte)

	for _, format := range opts.Formats {
		cacheKey := r.Keyer.ArtifactKey(contentHash, opts.ArtifactKeyOpts(format))
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			artifacts[format] = data
		} else {
			allCached = false
			break
		}
	}

	if allCached && len(artifacts) == len(opts.Formats) {
		return artifacts, true, nil // All artifacts from cache
	}

	rendered, err := r.renderFormats(net, outflow, opts)
	if err != nil {
		return nil, false, err
	}

	for format, data := range rendered {
		cacheKey := r.Keyer.ArtifactKey(contentHash, opts.ArtifactKeyOpts(format))
		_ = r.Cache.Set(ctx, cacheKey, data, cache.TTLArtifact)
	}

	return rendered, false, nil // Cache miss
}

func (r *Runner) renderFormats(net *network.Network, outflow []float64, opts Options) (map[string][]byte, error) {
	renderOpts := render.Options{Outflow: outflow, Depth: opts.Depth}
	artifacts := make(map[string][]byte, len(opts.Formats))

	for _, format := range opts.Formats {
		switch format {
		case FormatJSON:
			data, err := json.MarshalIndent(map[string]any{
				"nodes":      net.Order(),
				"outflow_m3": outflow,
				"depth_mm":   opts.Depth,
			}, "", "  ")
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeInternal, err, "marshal result")
			}
			artifacts[format] = data
		case FormatDOT:
			artifacts[format] = []byte(render.ToDOT(net, renderOpts))
		case FormatSVG:
			svg, err := render.RenderSVG(render.ToDOT(net, renderOpts))
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeInternal, err, "render svg")
			}
			artifacts[format] = svg
		}
	}
	return artifacts, nil
}

// NetworkHash computes the content hash of a network's canonical serialization.
func (r *Runner) NetworkHash(net *network.Network) (string, error) {
	data, err := netio.MarshalNetwork(net)
	if err != nil {
		return "", err
	}
	return cache.Hash(data), nil
}

// buildRetention converts a node ID → volume map into an index-aligned
// retention vector. Unknown node IDs fail loudly.
func (r *Runner) buildRetention(net *network.Network, m map[string]float64) (runoff.Retention, string, error) {
	if len(m) == 0 {
		return nil, "", nil
	}
	ret := runoff.NewRetention(net)
	for id, vol := range m {
		if err := ret.Set(net, id, vol); err != nil {
			return nil, "", err
		}
	}
	data, err := json.Marshal([]float64(ret))
	if err != nil {
		return nil, "", errors.Wrap(errors.ErrCodeInternal, err, "serialize retention for cache key")
	}
	return ret, cache.Hash(data), nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger back-fills the runner's logger when the caller supplied none.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
