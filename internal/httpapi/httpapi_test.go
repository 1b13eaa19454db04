package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/signalsfoundry/adaptive-network-simulator/internal/sim/metrics"
	"github.com/signalsfoundry/adaptive-network-simulator/internal/store"
	"github.com/signalsfoundry/adaptive-network-simulator/kb"
	"github.com/signalsfoundry/adaptive-network-simulator/model"
)

type staticReports struct {
	rep metrics.RunReport
	ok  bool
}

func (s staticReports) LastReport() (metrics.RunReport, bool) { return s.rep, s.ok }

type memRuns map[string]metrics.RunReport

func (m memRuns) GetRun(_ context.Context, id string) (metrics.RunReport, error) {
	r, ok := m[id]
	if !ok {
		return metrics.RunReport{}, fmt.Errorf("%w: %s", store.ErrRunNotFound, id)
	}
	return r, nil
}

func (m memRuns) ListRuns(context.Context) ([]metrics.RunInfo, error) {
	var out []metrics.RunInfo
	for _, r := range m {
		out = append(out, r.RunInfo)
	}
	return out, nil
}

type failingRuns struct{}

func (failingRuns) GetRun(context.Context, string) (metrics.RunReport, error) {
	return metrics.RunReport{}, errors.New("database locked")
}

func (failingRuns) ListRuns(context.Context) ([]metrics.RunInfo, error) {
	return nil, errors.New("database locked")
}

func testReport(id string) metrics.RunReport {
	b := metrics.ScenarioMetrics{Scenario: "ideal", Mode: metrics.ModeBaseline, AvgLatency: 21.5}
	return metrics.RunReport{
		RunInfo:   metrics.RunInfo{RunID: id, Nodes: 10, Connections: 13},
		Scenarios: []metrics.ScenarioReport{{Scenario: "ideal", Baseline: &b}},
		Usage:     metrics.UsageStats{MostUsedProtocol: metrics.NoProtocol},
	}
}

func serve(t *testing.T, d Deps, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	NewRouter(d).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func TestHealthz(t *testing.T) {
	rr := serve(t, Deps{}, "/healthz")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"ok"`) {
		t.Fatalf("/healthz = %d %s", rr.Code, rr.Body.String())
	}
}

func TestReportRoute(t *testing.T) {
	rr := serve(t, Deps{Reports: staticReports{rep: testReport("run-1"), ok: true}}, "/report")
	if rr.Code != http.StatusOK {
		t.Fatalf("/report status = %d, want 200", rr.Code)
	}

	var got map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode /report: %v", err)
	}
	if got["run_id"] != "run-1" {
		t.Fatalf("run_id mismatch: got %v", got["run_id"])
	}
	scenarios := got["scenarios"].([]any)
	baseline := scenarios[0].(map[string]any)["baseline"].(map[string]any)
	if baseline["avg_latency_ms"].(float64) != 21.5 {
		t.Fatalf("avg_latency_ms mismatch: got %v", baseline["avg_latency_ms"])
	}
}

func TestReportRouteWithoutRun(t *testing.T) {
	rr := serve(t, Deps{Reports: staticReports{}}, "/report")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("/report status = %d, want 404", rr.Code)
	}
}

func TestRunRoutes(t *testing.T) {
	runs := memRuns{"run-7": testReport("run-7")}

	rr := serve(t, Deps{Runs: runs}, "/runs/run-7?pretty=1")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "run-7") {
		t.Fatalf("/runs/run-7 = %d %s", rr.Code, rr.Body.String())
	}

	rr = serve(t, Deps{Runs: runs}, "/runs/missing")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("/runs/missing status = %d, want 404", rr.Code)
	}

	rr = serve(t, Deps{Runs: runs}, "/runs")
	var infos []metrics.RunInfo
	if err := json.Unmarshal(rr.Body.Bytes(), &infos); err != nil {
		t.Fatalf("decode /runs: %v", err)
	}
	if len(infos) != 1 || infos[0].RunID != "run-7" {
		t.Fatalf("/runs mismatch: got %+v", infos)
	}
}

func TestRunRoutesStoreFailure(t *testing.T) {
	if rr := serve(t, Deps{Runs: failingRuns{}}, "/runs/x"); rr.Code != http.StatusInternalServerError {
		t.Fatalf("/runs/x status = %d, want 500", rr.Code)
	}
	if rr := serve(t, Deps{Runs: failingRuns{}}, "/runs"); rr.Code != http.StatusInternalServerError {
		t.Fatalf("/runs status = %d, want 500", rr.Code)
	}
}

func TestNodesRoute(t *testing.T) {
	reg := kb.NewNodeRegistry()
	_ = reg.Add(model.Node{ID: 0, Name: "datacenter_0", Type: model.Datacenter, Position: model.Position{X: 1, Y: 2}})
	_ = reg.Add(model.Node{ID: 1, Name: "mobile_1", Type: model.MobileDevice})

	rr := serve(t, Deps{Registry: reg}, "/nodes")
	var nodes []struct {
		ID   int     `json:"id"`
		Type string  `json:"type"`
		X    float64 `json:"x"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &nodes); err != nil {
		t.Fatalf("decode /nodes: %v", err)
	}
	if len(nodes) != 2 || nodes[0].Type != "datacenter" || nodes[0].X != 1 || nodes[1].Type != "mobile" {
		t.Fatalf("/nodes mismatch: got %+v", nodes)
	}
}

func TestMetricsRouteAndDisabledRoutes(t *testing.T) {
	metricsHandler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("sim_nodes 10\n"))
	})
	if rr := serve(t, Deps{Metrics: metricsHandler}, "/metrics"); !strings.Contains(rr.Body.String(), "sim_nodes 10") {
		t.Fatalf("/metrics body = %q", rr.Body.String())
	}
	for _, path := range []string{"/report", "/runs", "/nodes", "/metrics"} {
		if rr := serve(t, Deps{}, path); rr.Code != http.StatusNotFound {
			t.Fatalf("%s without deps = %d, want 404", path, rr.Code)
		}
	}
}
