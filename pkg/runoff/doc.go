// Package runoff implements flow accumulation over a drainage network.
//
// Given a uniform precipitation depth and per-subcatchment retention
// capacities, [Accumulate] computes the net discharge volume leaving every
// subcatchment: each node's outflow is its own precipitation volume less
// local retention, plus whatever runon from upstream contributors the
// leftover retention could not absorb. The computation is a single pass in
// topological order from the headwaters to the outlet.
//
// Units follow drainage-engineering convention: areas in hectares, depths in
// millimeters, volumes in cubic meters (1 ha × 1 mm = 10 m³).
//
// All functions here are pure and synchronous. Vectors are positionally
// aligned to [network.Network.Order]; see [NewRetention] for allocating a
// correctly sized retention vector.
package runoff
