// Package pkg provides the core libraries for Stormflow runoff routing.
//
// # Overview
//
// Stormflow computes how storm runoff accumulates through urban drainage
// networks: each subcatchment converts rainfall depth over its area into a
// volume, retains what its storage can hold, and discharges the rest to its
// downstream neighbor. The pkg directory is organized into five main areas:
//
//  1. [network] - Drainage network graph (nodes, edges, traversal, validation)
//  2. [runoff] - Volume conversion and flow accumulation
//  3. [storms] - Design-storm table loading (TOML)
//  4. [pipeline] - Orchestration (load → accumulate → render) with caching
//  5. [netio], [render], [cache], [store] - Serialization, Graphviz output,
//     result caching, and the run archive
//
// # Architecture
//
// The typical data flow through Stormflow:
//
//	Network file (JSON)
//	         ↓
//	    [network] package (graph structure + upstream ordering)
//	         ↓
//	    [runoff] package (precipitation volumes + downstream accumulation)
//	         ↓
//	    [render] package (DOT / SVG output)
//
// The [pipeline] package ties the stages together and caches results under
// content-derived keys, so the CLI and the HTTP API share one code path.
package pkg
