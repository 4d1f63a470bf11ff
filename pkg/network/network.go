package network

import (
	"errors"
)

var (
	// ErrInvalidNodeID is returned by [Network.AddNode] when the node ID is
	// empty. All subcatchments must have non-empty identifiers.
	ErrInvalidNodeID = errors.New("node ID must not be empty")

	// ErrDuplicateNodeID is returned by [Network.AddNode] when a node with the
	// same ID already exists. Node IDs must be unique across the network.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrUnknownSourceNode is returned by [Network.AddEdge] when the From node
	// does not exist in the network.
	ErrUnknownSourceNode = errors.New("unknown source node")

	// ErrUnknownTargetNode is returned by [Network.AddEdge] when the To node
	// does not exist in the network.
	ErrUnknownTargetNode = errors.New("unknown target node")

	// ErrOutletNotFound is returned by [Network.Validate] and
	// [Network.UpstreamOrder] when the configured outlet ID is not a node in
	// the network. This is fatal: no accumulation order can be derived.
	ErrOutletNotFound = errors.New("outlet node not found")

	// ErrNegativeArea is returned by [Network.Validate] when a node carries a
	// negative catchment area. The accumulation itself never checks areas, so
	// callers that cannot trust their input should validate first.
	ErrNegativeArea = errors.New("node area must not be negative")

	// ErrNetworkHasCycle is returned by [Network.Validate] when a directed
	// cycle is detected. Drainage must converge toward the outlet; a cycle
	// would make the accumulation order undefined. Cycles are detected using
	// depth-first search with white/gray/black coloring.
	ErrNetworkHasCycle = errors.New("network contains a cycle")
)

// Metadata stores arbitrary key-value pairs attached to subcatchments.
// It is commonly used to carry survey attributes (land use, imperviousness)
// that the core computation ignores.
type Metadata map[string]any

// Node represents a subcatchment in the drainage network.
//
// Area is the catchment area in hectares; together with a precipitation depth
// in millimeters it yields a raw precipitation volume in cubic meters (see
// the runoff package). The zero value is not usable - ID must be set before
// adding to a Network.
type Node struct {
	ID   string   // Unique identifier (also used as display label)
	Area float64  // Catchment area in hectares
	Meta Metadata // Arbitrary key-value metadata (never nil after AddNode)
}

// Edge represents the drainage direction between two subcatchments: runoff
// from From discharges into To. Following edges from any node eventually
// reaches the outlet in a well-formed network.
type Edge struct {
	From string // Upstream subcatchment ID
	To   string // Downstream subcatchment ID
}

// Network is a directed graph of subcatchments whose edges point downstream
// toward a single fixed outlet.
//
// The network maintains a stable node enumeration: nodes are ordered by
// insertion, and every numeric vector in this system (precipitation,
// retention, outflow) is positionally aligned to [Network.Order]. Use
// [Network.Index] to translate a node ID into its vector position; two
// independently constructed networks need not enumerate "the same" nodes in
// the same order.
//
// The zero value is not usable - use New to create a valid instance.
// Network is not safe for concurrent mutation without external
// synchronization; read-only use from multiple goroutines is fine.
type Network struct {
	outlet     string
	nodes      map[string]*Node
	order      []string // insertion order, the canonical enumeration
	index      map[string]int
	edges      []Edge
	downstream map[string][]string // nodeID -> downstream neighbor IDs
	upstream   map[string][]string // nodeID -> upstream contributor IDs
}

// New creates an empty drainage network with the given outlet node ID.
// The outlet does not have to exist yet; it is checked by Validate and
// UpstreamOrder once the network is built.
func New(outlet string) *Network {
	return &Network{
		outlet:     outlet,
		nodes:      make(map[string]*Node),
		index:      make(map[string]int),
		downstream: make(map[string][]string),
		upstream:   make(map[string][]string),
	}
}

// Outlet returns the configured outlet node ID.
func (n *Network) Outlet() string { return n.outlet }

// AddNode adds a subcatchment to the network and assigns it the next
// position in the enumeration. Returns ErrInvalidNodeID if the node ID is
// empty, or ErrDuplicateNodeID if a node with the same ID already exists.
// The node's Meta field is automatically initialized to an empty map if nil.
func (n *Network) AddNode(node Node) error {
	if node.ID == "" {
		return ErrInvalidNodeID
	}
	if _, exists := n.nodes[node.ID]; exists {
		return ErrDuplicateNodeID
	}
	if node.Meta == nil {
		node.Meta = Metadata{}
	}
	p := &node
	n.nodes[p.ID] = p
	n.index[p.ID] = len(n.order)
	n.order = append(n.order, p.ID)
	return nil
}

// AddEdge adds a drainage connection between two existing subcatchments.
// Returns ErrUnknownSourceNode if the From node doesn't exist, or
// ErrUnknownTargetNode if the To node doesn't exist.
//
// AddEdge does not check for cycles - use Validate after building the
// network.
func (n *Network) AddEdge(e Edge) error {
	if _, ok := n.nodes[e.From]; !ok {
		return ErrUnknownSourceNode
	}
	if _, ok := n.nodes[e.To]; !ok {
		return ErrUnknownTargetNode
	}
	n.edges = append(n.edges, e)
	n.downstream[e.From] = append(n.downstream[e.From], e.To)
	n.upstream[e.To] = append(n.upstream[e.To], e.From)
	return nil
}

// Node returns the subcatchment with the given ID and true, or nil and false
// if not found. The returned pointer refers to the actual node in the
// network, so modifications to Area or Meta affect the network.
func (n *Network) Node(id string) (*Node, bool) {
	node, ok := n.nodes[id]
	return node, ok
}

// Nodes returns all subcatchments in enumeration order.
// The returned slice contains pointers to the actual node structs.
func (n *Network) Nodes() []*Node {
	nodes := make([]*Node, len(n.order))
	for i, id := range n.order {
		nodes[i] = n.nodes[id]
	}
	return nodes
}

// Order returns the canonical node enumeration: every node ID in insertion
// order. All per-node vectors are positionally aligned to this slice.
// The returned slice must not be modified.
func (n *Network) Order() []string { return n.order }

// Index returns the enumeration position of the given node ID and true, or
// 0 and false if the node does not exist. This is the explicit key-to-index
// mapping that vector-based callers use instead of relying on iteration
// order.
func (n *Network) Index(id string) (int, bool) {
	i, ok := n.index[id]
	return i, ok
}

// Edges returns a copy of all drainage connections in insertion order.
func (n *Network) Edges() []Edge {
	out := make([]Edge, len(n.edges))
	copy(out, n.edges)
	return out
}

// NodeCount returns the number of subcatchments in the network.
func (n *Network) NodeCount() int { return len(n.nodes) }

// EdgeCount returns the number of drainage connections in the network.
func (n *Network) EdgeCount() int { return len(n.edges) }

// Upstream returns the IDs of subcatchments that discharge directly into the
// given node. Returns nil if the node has no contributors or doesn't exist.
// The returned slice should not be modified.
func (n *Network) Upstream(id string) []string { return n.upstream[id] }

// Downstream returns the IDs of subcatchments the given node discharges
// into. Returns nil if the node is terminal or doesn't exist. The returned
// slice should not be modified.
func (n *Network) Downstream(id string) []string { return n.downstream[id] }

// Validate checks network integrity and returns nil if valid.
// It verifies three constraints:
//
//  1. The configured outlet exists as a node
//  2. No node carries a negative area
//  3. The network is acyclic (no directed cycles exist)
//
// Returns ErrOutletNotFound, ErrNegativeArea, or ErrNetworkHasCycle
// accordingly. The accumulation itself trusts these invariants and does not
// re-check them; call Validate once after loading untrusted input.
//
// Cycle detection runs in O(N+E) time using depth-first search.
func (n *Network) Validate() error {
	if _, ok := n.nodes[n.outlet]; !ok {
		return ErrOutletNotFound
	}
	for _, id := range n.order {
		if n.nodes[id].Area < 0 {
			return ErrNegativeArea
		}
	}
	return n.detectCycles()
}

func (n *Network) detectCycles() error {
	const (
		white = iota
		gray
		black
	)

	color := make(map[string]int, len(n.nodes))
	var hasCycle bool

	var dfs func(id string)
	dfs = func(id string) {
		color[id] = gray
		for _, next := range n.downstream[id] {
			switch color[next] {
			case white:
				dfs(next)
			case gray:
				hasCycle = true
				return
			}
		}
		color[id] = black
	}

	for _, id := range n.order {
		if color[id] == white {
			dfs(id)
			if hasCycle {
				return ErrNetworkHasCycle
			}
		}
	}
	return nil
}
