package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/perisponge/stormflow/internal/metrics"
	"github.com/perisponge/stormflow/pkg/errors"
	"github.com/perisponge/stormflow/pkg/netio"
	"github.com/perisponge/stormflow/pkg/pipeline"
	"github.com/perisponge/stormflow/pkg/storms"
	"github.com/perisponge/stormflow/pkg/store"
)

// EvaluateRequest is the body of POST /v1/evaluate.
type EvaluateRequest struct {
	Network   netio.Graph        `json:"network"`
	Depth     float64            `json:"depth"` // mm
	Retention map[string]float64 `json:"retention,omitempty"`
	Formats   []string           `json:"formats,omitempty"`
	Refresh   bool               `json:"refresh,omitempty"`
	Archive   bool               `json:"archive,omitempty"`
}

// EvaluateResponse is the body of a successful evaluation.
type EvaluateResponse struct {
	RunID       string             `json:"run_id,omitempty"`
	NetworkHash string             `json:"network_hash"`
	Nodes       []string           `json:"nodes"`
	Outflow     []float64          `json:"outflow_m3"`
	Artifacts   map[string]string  `json:"artifacts,omitempty"` // format → content
	Cached      bool               `json:"cached"`
}

// TableRequest is the body of POST /v1/table.
type TableRequest struct {
	Network   netio.Graph        `json:"network"`
	Table     storms.Table       `json:"table"`
	NodeID    string             `json:"node_id"`
	Retention map[string]float64 `json:"retention,omitempty"`
	Refresh   bool               `json:"refresh,omitempty"`
}

// POST /v1/evaluate — accumulate one storm over a network.
func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid JSON"))
		return
	}

	net, err := netio.ToNetwork(req.Network)
	if err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInvalidNetwork, err, "invalid network"))
		return
	}

	start := time.Now()
	result, err := s.runner.Evaluate(r.Context(), net, pipeline.Options{
		Depth:     req.Depth,
		Retention: req.Retention,
		Formats:   req.Formats,
		Refresh:   req.Refresh,
		Logger:    s.logger,
	})
	if err != nil {
		metrics.EvaluationsTotal.WithLabelValues("evaluate", "error").Inc()
		writeError(w, err)
		return
	}
	metrics.EvaluationsTotal.WithLabelValues("evaluate", "ok").Inc()
	metrics.EvaluationDuration.Observe(float64(time.Since(start).Milliseconds()))
	metrics.NetworkNodes.Observe(float64(result.Stats.NodeCount))
	if result.CacheInfo.ResultHit {
		metrics.CacheHits.WithLabelValues("result").Inc()
	}

	resp := EvaluateResponse{
		NetworkHash: result.NetworkHash,
		Nodes:       result.Nodes,
		Outflow:     result.Outflow,
		Cached:      result.CacheInfo.ResultHit,
	}
	if len(result.Artifacts) > 0 {
		resp.Artifacts = make(map[string]string, len(result.Artifacts))
		for format, data := range result.Artifacts {
			resp.Artifacts[format] = string(data)
		}
	}

	if req.Archive && s.store != nil {
		run := store.NewRun(result.NetworkHash, net.Outlet(), req.Depth, result.Nodes, retentionVector(net.Order(), req.Retention), result.Outflow)
		if err := s.store.Save(r.Context(), run); err != nil {
			s.logger.Error("archive run", "err", err)
		} else {
			metrics.RunsArchived.Inc()
			resp.RunID = run.ID
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// POST /v1/table — sweep a design-storm table for one node.
func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	var req TableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid JSON"))
		return
	}
	if req.NodeID == "" {
		writeError(w, errors.New(errors.ErrCodeInvalidInput, "node_id is required"))
		return
	}

	net, err := netio.ToNetwork(req.Network)
	if err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInvalidNetwork, err, "invalid network"))
		return
	}

	result, hit, err := s.runner.EvaluateTable(r.Context(), net, &req.Table, req.NodeID, pipeline.Options{
		Retention: req.Retention,
		Refresh:   req.Refresh,
		Logger:    s.logger,
	})
	if err != nil {
		metrics.EvaluationsTotal.WithLabelValues("table", "error").Inc()
		writeError(w, err)
		return
	}
	metrics.EvaluationsTotal.WithLabelValues("table", "ok").Inc()
	if hit {
		metrics.CacheHits.WithLabelValues("table").Inc()
	}

	writeJSON(w, http.StatusOK, result)
}

// GET /v1/runs — list archived runs, newest first.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, errors.New(errors.ErrCodeNotFound, "run archive is not configured"))
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, errors.New(errors.ErrCodeInvalidInput, "invalid limit: %q", v))
			return
		}
		limit = n
	}

	runs, err := s.store.List(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

// GET /v1/runs/{id} — fetch one archived run.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, errors.New(errors.ErrCodeNotFound, "run archive is not configured"))
		return
	}

	run, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// GET /healthz — liveness probe.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// retentionVector expands a node ID → volume map into an order-aligned
// slice for archival. Returns nil when the map is empty.
func retentionVector(order []string, m map[string]float64) []float64 {
	if len(m) == 0 {
		return nil
	}
	out := make([]float64, len(order))
	for i, id := range order {
		out[i] = m[id]
	}
	return out
}

// =============================================================================
// Response Helpers
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusForCode(errors.GetCode(err)), map[string]string{
		"error": errors.UserMessage(err),
		"code":  string(errors.GetCode(err)),
	})
}

func statusForCode(code errors.Code) int {
	switch code {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidNetwork, errors.ErrCodeInvalidRetention,
		errors.ErrCodeInvalidTable, errors.ErrCodeInvalidFormat, errors.ErrCodeUnsupported:
		return http.StatusBadRequest
	case errors.ErrCodeNotFound, errors.ErrCodeNodeNotFound, errors.ErrCodeOutletNotFound,
		errors.ErrCodeRunNotFound, errors.ErrCodeFileNotFound:
		return http.StatusNotFound
	case errors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
