package network

import (
	"errors"
	"slices"
	"testing"
)

// chain builds A → B → C with C as outlet.
func chain(t *testing.T) *Network {
	t.Helper()
	n := New("C")
	for _, node := range []Node{
		{ID: "A", Area: 1},
		{ID: "B", Area: 2},
		{ID: "C", Area: 1},
	} {
		if err := n.AddNode(node); err != nil {
			t.Fatalf("AddNode(%s): %v", node.ID, err)
		}
	}
	for _, e := range []Edge{{From: "A", To: "B"}, {From: "B", To: "C"}} {
		if err := n.AddEdge(e); err != nil {
			t.Fatalf("AddEdge(%s→%s): %v", e.From, e.To, err)
		}
	}
	return n
}

func TestAddNode(t *testing.T) {
	tests := []struct {
		name    string
		node    Node
		setup   func(n *Network)
		wantErr error
	}{
		{
			name: "Valid",
			node: Node{ID: "alois-hamtod-weg", Area: 3.2},
		},
		{
			name:    "EmptyID",
			node:    Node{Area: 1},
			wantErr: ErrInvalidNodeID,
		},
		{
			name:    "Duplicate",
			node:    Node{ID: "dup"},
			setup:   func(n *Network) { n.AddNode(Node{ID: "dup"}) },
			wantErr: ErrDuplicateNodeID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := New("out")
			if tt.setup != nil {
				tt.setup(n)
			}
			err := n.AddNode(tt.node)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("AddNode = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestAddNodeInitializesMeta(t *testing.T) {
	n := New("out")
	if err := n.AddNode(Node{ID: "a"}); err != nil {
		t.Fatal(err)
	}
	node, _ := n.Node("a")
	if node.Meta == nil {
		t.Error("Meta should be initialized to an empty map")
	}
}

func TestAddEdge(t *testing.T) {
	n := New("out")
	n.AddNode(Node{ID: "a"})
	n.AddNode(Node{ID: "b"})

	if err := n.AddEdge(Edge{From: "a", To: "b"}); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}
	if err := n.AddEdge(Edge{From: "missing", To: "b"}); !errors.Is(err, ErrUnknownSourceNode) {
		t.Errorf("AddEdge = %v, want ErrUnknownSourceNode", err)
	}
	if err := n.AddEdge(Edge{From: "a", To: "missing"}); !errors.Is(err, ErrUnknownTargetNode) {
		t.Errorf("AddEdge = %v, want ErrUnknownTargetNode", err)
	}
}

func TestOrderAndIndex(t *testing.T) {
	n := chain(t)

	want := []string{"A", "B", "C"}
	if !slices.Equal(n.Order(), want) {
		t.Errorf("Order = %v, want %v", n.Order(), want)
	}

	for i, id := range want {
		got, ok := n.Index(id)
		if !ok || got != i {
			t.Errorf("Index(%s) = %d,%v, want %d,true", id, got, ok, i)
		}
	}

	if _, ok := n.Index("missing"); ok {
		t.Error("Index should report false for unknown nodes")
	}
}

func TestAdjacency(t *testing.T) {
	n := chain(t)

	if up := n.Upstream("B"); !slices.Equal(up, []string{"A"}) {
		t.Errorf("Upstream(B) = %v, want [A]", up)
	}
	if down := n.Downstream("B"); !slices.Equal(down, []string{"C"}) {
		t.Errorf("Downstream(B) = %v, want [C]", down)
	}
	if up := n.Upstream("A"); up != nil {
		t.Errorf("Upstream(A) = %v, want nil", up)
	}
}

func TestValidate(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		if err := chain(t).Validate(); err != nil {
			t.Errorf("Validate = %v, want nil", err)
		}
	})

	t.Run("MissingOutlet", func(t *testing.T) {
		n := New("nowhere")
		n.AddNode(Node{ID: "a"})
		if err := n.Validate(); !errors.Is(err, ErrOutletNotFound) {
			t.Errorf("Validate = %v, want ErrOutletNotFound", err)
		}
	})

	t.Run("NegativeArea", func(t *testing.T) {
		n := New("a")
		n.AddNode(Node{ID: "a", Area: -1})
		if err := n.Validate(); !errors.Is(err, ErrNegativeArea) {
			t.Errorf("Validate = %v, want ErrNegativeArea", err)
		}
	})

	t.Run("Cycle", func(t *testing.T) {
		n := New("a")
		n.AddNode(Node{ID: "a"})
		n.AddNode(Node{ID: "b"})
		n.AddEdge(Edge{From: "a", To: "b"})
		n.AddEdge(Edge{From: "b", To: "a"})
		if err := n.Validate(); !errors.Is(err, ErrNetworkHasCycle) {
			t.Errorf("Validate = %v, want ErrNetworkHasCycle", err)
		}
	})
}

func TestUpstreamOrder(t *testing.T) {
	n := chain(t)

	order, contribs, err := n.UpstreamOrder()
	if err != nil {
		t.Fatalf("UpstreamOrder: %v", err)
	}

	if !slices.Equal(order, []string{"C", "B", "A"}) {
		t.Errorf("order = %v, want [C B A]", order)
	}
	if !slices.Equal(contribs["C"], []string{"B"}) {
		t.Errorf("contributors[C] = %v, want [B]", contribs["C"])
	}
	if !slices.Equal(contribs["B"], []string{"A"}) {
		t.Errorf("contributors[B] = %v, want [A]", contribs["B"])
	}
	if len(contribs["A"]) != 0 {
		t.Errorf("contributors[A] = %v, want empty", contribs["A"])
	}
}

func TestUpstreamOrderConfluence(t *testing.T) {
	// Two headwaters joining at a confluence above the outlet.
	n := New("out")
	for _, id := range []string{"left", "right", "confluence", "out"} {
		n.AddNode(Node{ID: id, Area: 1})
	}
	n.AddEdge(Edge{From: "left", To: "confluence"})
	n.AddEdge(Edge{From: "right", To: "confluence"})
	n.AddEdge(Edge{From: "confluence", To: "out"})

	order, contribs, err := n.UpstreamOrder()
	if err != nil {
		t.Fatalf("UpstreamOrder: %v", err)
	}

	if order[0] != "out" || len(order) != 4 {
		t.Errorf("order = %v, want out first and 4 entries", order)
	}
	if len(contribs["confluence"]) != 2 {
		t.Errorf("contributors[confluence] = %v, want both headwaters", contribs["confluence"])
	}
}

func TestUpstreamOrderMissingOutlet(t *testing.T) {
	n := New("nowhere")
	n.AddNode(Node{ID: "a"})
	if _, _, err := n.UpstreamOrder(); !errors.Is(err, ErrOutletNotFound) {
		t.Errorf("UpstreamOrder = %v, want ErrOutletNotFound", err)
	}
}

func TestUpstreamOrderExcludesUnreachable(t *testing.T) {
	n := chain(t)
	// island drains nowhere; it must not appear in the order.
	n.AddNode(Node{ID: "island", Area: 5})

	order, _, err := n.UpstreamOrder()
	if err != nil {
		t.Fatal(err)
	}
	if slices.Contains(order, "island") {
		t.Errorf("order %v should not contain the unreachable node", order)
	}
}
