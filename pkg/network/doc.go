// Package network models a drainage network as a directed graph of
// subcatchments converging toward a single outlet.
//
// Edges point downstream: an edge A→B means runoff leaving subcatchment A
// discharges into B. The network maintains a stable, insertion-ordered node
// enumeration ([Network.Order]) together with an explicit key-to-index map
// ([Network.Index]); all per-node numeric vectors used elsewhere in
// stormflow are positionally aligned to that enumeration.
//
// Structural invariants (single outlet, acyclicity, non-negative areas) are
// checked by [Network.Validate]; the traversal and accumulation code trusts
// them and does not re-validate.
package network
