// Package httpapi serves the simulator's read-only HTTP surface: Prometheus
// metrics, liveness, the latest run report, stored runs and the node list.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/signalsfoundry/adaptive-network-simulator/internal/logging"
	"github.com/signalsfoundry/adaptive-network-simulator/internal/sim/metrics"
	"github.com/signalsfoundry/adaptive-network-simulator/internal/store"
	"github.com/signalsfoundry/adaptive-network-simulator/kb"
)

// ReportSource yields the most recent finished report.
type ReportSource interface {
	LastReport() (metrics.RunReport, bool)
}

// RunReader reads persisted runs. *store.SQLiteStore implements it.
type RunReader interface {
	GetRun(ctx context.Context, runID string) (metrics.RunReport, error)
	ListRuns(ctx context.Context) ([]metrics.RunInfo, error)
}

// Deps are the collaborators behind the routes. Nil members disable the
// routes that need them.
type Deps struct {
	Metrics  http.Handler
	Reports  ReportSource
	Runs     RunReader
	Registry *kb.NodeRegistry
	Log      logging.Logger
}

// NewRouter builds the route table.
func NewRouter(d Deps) *mux.Router {
	if d.Log == nil {
		d.Log = logging.Noop()
	}
	h := &handlers{deps: d}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", h.healthz).Methods(http.MethodGet)
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics).Methods(http.MethodGet)
	}
	if d.Reports != nil {
		r.HandleFunc("/report", h.report).Methods(http.MethodGet)
	}
	if d.Runs != nil {
		r.HandleFunc("/runs", h.listRuns).Methods(http.MethodGet)
		r.HandleFunc("/runs/{runId}", h.getRun).Methods(http.MethodGet)
	}
	if d.Registry != nil {
		r.HandleFunc("/nodes", h.nodes).Methods(http.MethodGet)
	}
	return r
}

// NewServer wraps the router in an http.Server listening on addr.
func NewServer(addr string, d Deps) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           NewRouter(d),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

type handlers struct {
	deps Deps
}

func (h *handlers) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) report(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.deps.Reports.LastReport()
	if !ok {
		writeError(w, http.StatusNotFound, "no finished run")
		return
	}
	h.writeReport(w, r, rep)
}

func (h *handlers) getRun(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["runId"]
	rep, err := h.deps.Runs.GetRun(r.Context(), runID)
	if errors.Is(err, store.ErrRunNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		h.deps.Log.Warn(r.Context(), "load run failed", logging.String("run_id", runID), logging.Err(err))
		writeError(w, http.StatusInternalServerError, "load run failed")
		return
	}
	h.writeReport(w, r, rep)
}

func (h *handlers) listRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.deps.Runs.ListRuns(r.Context())
	if err != nil {
		h.deps.Log.Warn(r.Context(), "list runs failed", logging.Err(err))
		writeError(w, http.StatusInternalServerError, "list runs failed")
		return
	}
	if runs == nil {
		runs = []metrics.RunInfo{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (h *handlers) nodes(w http.ResponseWriter, r *http.Request) {
	type nodeView struct {
		ID   int     `json:"id"`
		Name string  `json:"name"`
		Type string  `json:"type"`
		X    float64 `json:"x"`
		Y    float64 `json:"y"`
	}
	list := h.deps.Registry.List()
	out := make([]nodeView, 0, len(list))
	for _, n := range list {
		out = append(out, nodeView{ID: n.ID, Name: n.Name, Type: n.Type.String(), X: n.Position.X, Y: n.Position.Y})
	}
	writeJSON(w, http.StatusOK, out)
}

// writeReport renders a report through structpb so ?pretty=1 can use the
// protojson multiline form.
func (h *handlers) writeReport(w http.ResponseWriter, r *http.Request, rep metrics.RunReport) {
	st, err := ReportStruct(rep)
	if err != nil {
		h.deps.Log.Warn(r.Context(), "encode report failed", logging.Err(err))
		writeError(w, http.StatusInternalServerError, "encode report failed")
		return
	}
	opts := protojson.MarshalOptions{Multiline: r.URL.Query().Get("pretty") != ""}
	body, err := opts.Marshal(st)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "encode report failed")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// ReportStruct converts a report to a protobuf Struct using its JSON field
// names.
func ReportStruct(rep metrics.RunReport) (*structpb.Struct, error) {
	raw, err := json.Marshal(rep)
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("unmarshal report: %w", err)
	}
	return structpb.NewStruct(m)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
