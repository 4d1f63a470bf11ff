package netio

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/perisponge/stormflow/pkg/network"
)

// =============================================================================
// Graph - Drainage Network Serialization
// =============================================================================

// Graph is the canonical serialization format for drainage networks.
// Used for CLI files, API requests, storage, and caching.
//
// The format is human-readable and designed for round-trip fidelity:
// import → evaluate → export → re-import produces identical results.
type Graph struct {
	Outlet string `json:"outlet" bson:"outlet"`
	Nodes  []Node `json:"nodes" bson:"nodes"`
	Edges  []Edge `json:"edges" bson:"edges"`
}

// Node is the wire representation of a subcatchment.
type Node struct {
	ID   string         `json:"id" bson:"id"`
	Area float64        `json:"area" bson:"area"` // hectares
	Meta map[string]any `json:"meta,omitempty" bson:"meta,omitempty"`
}

// Edge represents a drainage connection: runoff from From discharges into To.
type Edge struct {
	From string `json:"from" bson:"from"`
	To   string `json:"to" bson:"to"`
}

// =============================================================================
// Network ↔ Graph Conversion
// =============================================================================

// FromNetwork converts a network to its serialization format.
// Nodes are sorted by ID for deterministic output; the network's own
// enumeration order is reconstructed on import from insertion order, so
// callers must not assume the wire order matches a live network's Order().
func FromNetwork(n *network.Network) Graph {
	nodes := n.Nodes()
	slices.SortFunc(nodes, func(a, b *network.Node) int {
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})

	out := Graph{
		Outlet: n.Outlet(),
		Nodes:  make([]Node, len(nodes)),
		Edges:  make([]Edge, n.EdgeCount()),
	}

	for i, nd := range nodes {
		out.Nodes[i] = Node{ID: nd.ID, Area: nd.Area, Meta: copyMeta(nd.Meta)}
	}
	for i, e := range n.Edges() {
		out.Edges[i] = Edge{From: e.From, To: e.To}
	}

	return out
}

// ToNetwork converts a Graph to a live network.
// Returns an error if a node or edge violates network constraints.
// The result is not validated for cycles or outlet reachability - call
// Validate on the returned network before evaluating untrusted input.
func ToNetwork(g Graph) (*network.Network, error) {
	n := network.New(g.Outlet)

	for _, nj := range g.Nodes {
		node := network.Node{ID: nj.ID, Area: nj.Area, Meta: copyMeta(nj.Meta)}
		if err := n.AddNode(node); err != nil {
			return nil, fmt.Errorf("add node %s: %w", nj.ID, err)
		}
	}
	for _, ej := range g.Edges {
		if err := n.AddEdge(network.Edge{From: ej.From, To: ej.To}); err != nil {
			return nil, fmt.Errorf("add edge %s→%s: %w", ej.From, ej.To, err)
		}
	}

	return n, nil
}

// UnmarshalGraph deserializes JSON bytes to a Graph.
func UnmarshalGraph(data []byte) (Graph, error) {
	var g Graph
	if err := json.Unmarshal(data, &g); err != nil {
		return Graph{}, err
	}
	return g, nil
}

// copyMeta creates a shallow copy of metadata to avoid mutation.
func copyMeta(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	result := make(map[string]any, len(m))
	for k, v := range m {
		result[k] = v
	}
	return result
}
