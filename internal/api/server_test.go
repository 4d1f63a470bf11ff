package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/perisponge/stormflow/pkg/netio"
	"github.com/perisponge/stormflow/pkg/pipeline"
	"github.com/perisponge/stormflow/pkg/store"
)

func testServer(t *testing.T) (*Server, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	logger := log.NewWithOptions(io.Discard, log.Options{})
	runner := pipeline.NewRunner(nil, nil, logger)
	return NewServer(runner, st, logger), st
}

func chainGraph() netio.Graph {
	return netio.Graph{
		Outlet: "C",
		Nodes: []netio.Node{
			{ID: "A", Area: 1},
			{ID: "B", Area: 2},
			{ID: "C", Area: 1},
		},
		Edges: []netio.Edge{
			{From: "A", To: "B"},
			{From: "B", To: "C"},
		},
	}
}

func postJSON(t *testing.T, s *Server, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	return w
}

func TestEvaluateEndpoint(t *testing.T) {
	s, _ := testServer(t)

	w := postJSON(t, s, "/v1/evaluate", EvaluateRequest{
		Network: chainGraph(),
		Depth:   10,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp EvaluateResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	// Enumeration follows wire order A, B, C.
	want := []float64{100, 300, 400}
	for i, v := range resp.Outflow {
		if v != want[i] {
			t.Errorf("outflow[%d] = %v, want %v", i, v, want[i])
		}
	}
	if resp.NetworkHash == "" {
		t.Error("expected network hash")
	}
	if resp.RunID != "" {
		t.Error("run should not be archived without archive flag")
	}
}

func TestEvaluateEndpointArchives(t *testing.T) {
	s, st := testServer(t)

	w := postJSON(t, s, "/v1/evaluate", EvaluateRequest{
		Network: chainGraph(),
		Depth:   10,
		Archive: true,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp EvaluateResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.RunID == "" {
		t.Fatal("expected archived run ID")
	}

	run, err := st.Get(httptest.NewRequest(http.MethodGet, "/", nil).Context(), resp.RunID)
	if err != nil {
		t.Fatalf("archived run not found: %v", err)
	}
	if run.Depth != 10 || run.Outlet != "C" {
		t.Errorf("unexpected archived run: %+v", run)
	}
}

func TestEvaluateEndpointBadJSON(t *testing.T) {
	s, _ := testServer(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/evaluate", bytes.NewReader([]byte("{not json")))
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestEvaluateEndpointCyclicNetwork(t *testing.T) {
	s, _ := testServer(t)

	g := chainGraph()
	g.Edges = append(g.Edges, netio.Edge{From: "C", To: "A"})

	w := postJSON(t, s, "/v1/evaluate", EvaluateRequest{Network: g, Depth: 10})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400, body = %s", w.Code, w.Body.String())
	}
}

func TestTableEndpoint(t *testing.T) {
	s, _ := testServer(t)

	w := postJSON(t, s, "/v1/table", map[string]any{
		"network": chainGraph(),
		"node_id": "C",
		"table": map[string]any{
			"return_periods": []float64{2, 10},
			"durations":      []float64{60},
			"depths":         [][]float64{{10, 20}},
		},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp pipeline.TableResult
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Outflow[0][0] != 400 || resp.Outflow[0][1] != 800 {
		t.Errorf("unexpected sweep: %v", resp.Outflow)
	}
}

func TestTableEndpointMissingNode(t *testing.T) {
	s, _ := testServer(t)

	w := postJSON(t, s, "/v1/table", map[string]any{
		"network": chainGraph(),
		"table": map[string]any{
			"return_periods": []float64{2},
			"durations":      []float64{60},
			"depths":         [][]float64{{10}},
		},
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestRunsEndpoints(t *testing.T) {
	s, st := testServer(t)
	ctx := httptest.NewRequest(http.MethodGet, "/", nil).Context()

	run := store.NewRun("hash", "C", 10, []string{"C"}, nil, []float64{40})
	if err := st.Save(ctx, run); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// List
	req := httptest.NewRequest(http.MethodGet, "/v1/runs", nil)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var listResp struct {
		Runs []*store.Run `json:"runs"`
	}
	if err := json.NewDecoder(w.Body).Decode(&listResp); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(listResp.Runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(listResp.Runs))
	}

	// Get
	req = httptest.NewRequest(http.MethodGet, "/v1/runs/"+run.ID, nil)
	w = httptest.NewRecorder()
	s.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}

	// Get missing
	req = httptest.NewRequest(http.MethodGet, "/v1/runs/nope", nil)
	w = httptest.NewRecorder()
	s.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing run status = %d, want 404", w.Code)
	}
}

func TestHealthz(t *testing.T) {
	s, _ := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}
