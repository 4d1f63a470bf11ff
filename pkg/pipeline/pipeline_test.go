package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/perisponge/stormflow/pkg/cache"
	"github.com/perisponge/stormflow/pkg/errors"
	"github.com/perisponge/stormflow/pkg/netio"
	"github.com/perisponge/stormflow/pkg/network"
	"github.com/perisponge/stormflow/pkg/storms"
)

// chainNetwork builds A(1ha) -> B(2ha) -> C(1ha, outlet).
func chainNetwork(t *testing.T) *network.Network {
	t.Helper()
	n := network.New("C")
	for _, nd := range []network.Node{
		{ID: "A", Area: 1},
		{ID: "B", Area: 2},
		{ID: "C", Area: 1},
	} {
		if err := n.AddNode(nd); err != nil {
			t.Fatalf("AddNode(%s): %v", nd.ID, err)
		}
	}
	for _, e := range []network.Edge{{From: "A", To: "B"}, {From: "B", To: "C"}} {
		if err := n.AddEdge(e); err != nil {
			t.Fatalf("AddEdge: %v", err)
		}
	}
	return n
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name     string
		opts     Options
		wantCode errors.Code
	}{
		{"Valid", Options{Depth: 10}, ""},
		{"NegativeDepth", Options{Depth: -1}, errors.ErrCodeInvalidInput},
		{"Coefficient", Options{Depth: 10, Coefficient: 0.5}, errors.ErrCodeUnsupported},
		{"BadFormat", Options{Depth: 10, Formats: []string{"png"}}, errors.ErrCodeInvalidFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.ValidateAndSetDefaults()
			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if len(tt.opts.Formats) == 0 || tt.opts.Formats[0] != FormatJSON {
					t.Errorf("expected default json format, got %v", tt.opts.Formats)
				}
				return
			}
			if errors.GetCode(err) != tt.wantCode {
				t.Errorf("expected %s, got %v", tt.wantCode, err)
			}
		})
	}
}

func TestEvaluate(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	result, err := r.Evaluate(context.Background(), chainNetwork(t), Options{Depth: 10})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	want := []float64{100, 300, 400}
	for i, v := range result.Outflow {
		if v != want[i] {
			t.Errorf("outflow[%d] = %v, want %v", i, v, want[i])
		}
	}
	if result.NetworkHash == "" {
		t.Error("expected network hash")
	}
	if result.Stats.NodeCount != 3 || result.Stats.EdgeCount != 2 {
		t.Errorf("stats = %+v", result.Stats)
	}
	if _, ok := result.Artifacts[FormatJSON]; !ok {
		t.Error("expected json artifact")
	}
}

func TestEvaluateWithRetention(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	result, err := r.Evaluate(context.Background(), chainNetwork(t), Options{
		Depth:     10,
		Retention: map[string]float64{"B": 150},
	})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	want := []float64{100, 150, 250}
	for i, v := range result.Outflow {
		if v != want[i] {
			t.Errorf("outflow[%d] = %v, want %v", i, v, want[i])
		}
	}
}

func TestEvaluateUnknownRetentionNode(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	_, err := r.Evaluate(context.Background(), chainNetwork(t), Options{
		Depth:     10,
		Retention: map[string]float64{"nope": 50},
	})
	if errors.GetCode(err) != errors.ErrCodeNodeNotFound {
		t.Errorf("expected ErrCodeNodeNotFound, got %v", err)
	}
}

func TestEvaluateCaching(t *testing.T) {
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	r := NewRunner(fc, nil, nil)
	net := chainNetwork(t)
	ctx := context.Background()

	first, err := r.Evaluate(ctx, net, Options{Depth: 10})
	if err != nil {
		t.Fatalf("first Evaluate: %v", err)
	}
	if first.CacheInfo.ResultHit {
		t.Error("first evaluation should miss the cache")
	}

	second, err := r.Evaluate(ctx, net, Options{Depth: 10})
	if err != nil {
		t.Fatalf("second Evaluate: %v", err)
	}
	if !second.CacheInfo.ResultHit {
		t.Error("second evaluation should hit the result cache")
	}
	if !second.CacheInfo.RenderHit {
		t.Error("second evaluation should hit the artifact cache")
	}

	// Refresh bypasses the cache.
	third, err := r.Evaluate(ctx, net, Options{Depth: 10, Refresh: true})
	if err != nil {
		t.Fatalf("third Evaluate: %v", err)
	}
	if third.CacheInfo.ResultHit {
		t.Error("refresh should bypass the result cache")
	}
}

func TestEvaluateDistinguishesRetention(t *testing.T) {
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	r := NewRunner(fc, nil, nil)
	net := chainNetwork(t)
	ctx := context.Background()

	if _, err := r.Evaluate(ctx, net, Options{Depth: 10}); err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	// Same depth, different retention: must not reuse the cached vector.
	result, err := r.Evaluate(ctx, net, Options{Depth: 10, Retention: map[string]float64{"B": 150}})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if result.CacheInfo.ResultHit {
		t.Error("retention variant should not hit the plain-run cache entry")
	}
	if result.Outflow[2] != 250 {
		t.Errorf("outlet outflow = %v, want 250", result.Outflow[2])
	}
}

// Two networks with identical content but different insertion order hash to
// the same cache key. A hit must be re-aligned to the requesting network's
// enumeration, not served positionally.
func TestEvaluateCachePermutedEnumeration(t *testing.T) {
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	r := NewRunner(fc, nil, nil)
	ctx := context.Background()

	nodes := []netio.Node{{ID: "A", Area: 1}, {ID: "B", Area: 2}, {ID: "C", Area: 1}}
	edges := []netio.Edge{{From: "A", To: "B"}, {From: "B", To: "C"}}

	first, err := netio.ToNetwork(netio.Graph{Outlet: "C", Nodes: nodes, Edges: edges})
	if err != nil {
		t.Fatalf("ToNetwork: %v", err)
	}
	permuted, err := netio.ToNetwork(netio.Graph{
		Outlet: "C",
		Nodes:  []netio.Node{nodes[2], nodes[1], nodes[0]},
		Edges:  edges,
	})
	if err != nil {
		t.Fatalf("ToNetwork: %v", err)
	}

	h1, err := r.NetworkHash(first)
	if err != nil {
		t.Fatalf("NetworkHash: %v", err)
	}
	h2, err := r.NetworkHash(permuted)
	if err != nil {
		t.Fatalf("NetworkHash: %v", err)
	}
	if h1 != h2 {
		t.Fatalf("same content should hash identically: %s vs %s", h1, h2)
	}

	if _, err := r.Evaluate(ctx, first, Options{Depth: 10}); err != nil {
		t.Fatalf("first Evaluate: %v", err)
	}

	result, err := r.Evaluate(ctx, permuted, Options{Depth: 10})
	if err != nil {
		t.Fatalf("permuted Evaluate: %v", err)
	}
	if !result.CacheInfo.ResultHit {
		t.Error("permuted construction should reuse the cached vector")
	}

	// Enumeration is [C, B, A]: the outlet's 400 m³ must land at index 0.
	want := []float64{400, 300, 100}
	for i, v := range result.Outflow {
		if v != want[i] {
			t.Errorf("outflow[%d] (%s) = %v, want %v", i, result.Nodes[i], v, want[i])
		}
	}
}

func TestEvaluateUsesOptionsLogger(t *testing.T) {
	var buf bytes.Buffer
	r := NewRunner(nil, nil, log.NewWithOptions(&buf, log.Options{}))

	if _, err := r.Evaluate(context.Background(), chainNetwork(t), Options{Depth: 10}); err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !strings.Contains(buf.String(), "accumulated runoff") {
		t.Error("runner logger should receive progress logs when options carry none")
	}

	var override bytes.Buffer
	buf.Reset()
	_, err := r.Evaluate(context.Background(), chainNetwork(t), Options{
		Depth:  10,
		Logger: log.NewWithOptions(&override, log.Options{}),
	})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !strings.Contains(override.String(), "accumulated runoff") {
		t.Error("per-call logger should receive progress logs")
	}
	if buf.Len() != 0 {
		t.Errorf("runner logger should stay quiet when overridden, got %q", buf.String())
	}
}

func TestEvaluateDOTArtifact(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	result, err := r.Evaluate(context.Background(), chainNetwork(t), Options{
		Depth:   10,
		Formats: []string{FormatDOT},
	})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	dot := string(result.Artifacts[FormatDOT])
	if !strings.Contains(dot, "digraph drainage") {
		t.Errorf("unexpected DOT artifact:\n%s", dot)
	}
}

func testTable(t *testing.T) *storms.Table {
	t.Helper()
	return &storms.Table{
		ReturnPeriods: []float64{2, 10},
		Durations:     []float64{1, 6},
		Depths: [][]float64{
			{10, 20},
			{30, 40},
		},
	}
}

func TestEvaluateTable(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	result, hit, err := r.EvaluateTable(context.Background(), chainNetwork(t), testTable(t), "C", Options{})
	if err != nil {
		t.Fatalf("EvaluateTable: %v", err)
	}
	if hit {
		t.Error("uncached sweep reported a cache hit")
	}

	// Outlet of the 4 ha chain: total volume = 4 ha × depth × 10.
	want := [][]float64{
		{400, 800},
		{1200, 1600},
	}
	for i := range want {
		for j := range want[i] {
			if result.Outflow[i][j] != want[i][j] {
				t.Errorf("outflow[%d][%d] = %v, want %v", i, j, result.Outflow[i][j], want[i][j])
			}
		}
	}
}

func TestEvaluateTableCaching(t *testing.T) {
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	r := NewRunner(fc, nil, nil)
	net := chainNetwork(t)
	ctx := context.Background()

	if _, _, err := r.EvaluateTable(ctx, net, testTable(t), "C", Options{}); err != nil {
		t.Fatalf("EvaluateTable: %v", err)
	}
	_, hit, err := r.EvaluateTable(ctx, net, testTable(t), "C", Options{})
	if err != nil {
		t.Fatalf("EvaluateTable: %v", err)
	}
	if !hit {
		t.Error("second sweep should hit the cache")
	}
}

func TestEvaluateTableUnknownNode(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	_, _, err := r.EvaluateTable(context.Background(), chainNetwork(t), testTable(t), "nope", Options{})
	if errors.GetCode(err) != errors.ErrCodeNodeNotFound {
		t.Errorf("expected ErrCodeNodeNotFound, got %v", err)
	}
}

func TestJSONArtifactShape(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	result, err := r.Evaluate(context.Background(), chainNetwork(t), Options{Depth: 10})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	var payload struct {
		Nodes   []string  `json:"nodes"`
		Outflow []float64 `json:"outflow_m3"`
		Depth   float64   `json:"depth_mm"`
	}
	if err := json.Unmarshal(result.Artifacts[FormatJSON], &payload); err != nil {
		t.Fatalf("unmarshal artifact: %v", err)
	}
	if len(payload.Nodes) != 3 || payload.Depth != 10 {
		t.Errorf("unexpected artifact payload: %+v", payload)
	}
}
