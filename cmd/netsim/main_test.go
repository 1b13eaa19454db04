package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/signalsfoundry/adaptive-network-simulator/internal/config"
	"github.com/signalsfoundry/adaptive-network-simulator/internal/scenario"
	"github.com/signalsfoundry/adaptive-network-simulator/internal/sim/metrics"
	"github.com/signalsfoundry/adaptive-network-simulator/model"
)

// execute runs a fresh root command and returns what it wrote to stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(out, version) {
		t.Fatalf("version output %q does not mention %q", out, version)
	}

	out, err = execute(t, "version", "--json")
	if err != nil {
		t.Fatalf("version --json: %v", err)
	}
	var got map[string]string
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode version json: %v", err)
	}
	if got["version"] != version {
		t.Fatalf("version mismatch: got %q, want %q", got["version"], version)
	}
}

func TestScenariosCmdRoundTripsThroughLoader(t *testing.T) {
	out, err := execute(t, "scenarios")
	if err != nil {
		t.Fatalf("scenarios: %v", err)
	}
	parsed, err := scenario.Parse(strings.NewReader(out))
	if err != nil {
		t.Fatalf("parse printed catalog: %v", err)
	}
	if len(parsed) != len(scenario.Predefined()) {
		t.Fatalf("scenario count mismatch: got %d, want %d", len(parsed), len(scenario.Predefined()))
	}
	if !strings.Contains(out, model.ScenarioCongestion) {
		t.Fatalf("catalog output missing %q", model.ScenarioCongestion)
	}
}

func TestRunPersistsAndListsRuns(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")

	out, err := execute(t, "run",
		"--nodes", "10",
		"--density", "0.3",
		"--duration", "300ms",
		"--log-level", "error",
		"--store", dbPath,
		"--json",
	)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	var rep metrics.RunReport
	if err := json.Unmarshal([]byte(out), &rep); err != nil {
		t.Fatalf("decode run report: %v\n%s", err, out)
	}
	if rep.RunID == "" {
		t.Fatalf("run report has no run id")
	}
	if len(rep.Scenarios) != len(scenario.Predefined()) {
		t.Fatalf("scenario count mismatch: got %d, want %d", len(rep.Scenarios), len(scenario.Predefined()))
	}

	out, err = execute(t, "runs", "list", "--store", dbPath, "--json")
	if err != nil {
		t.Fatalf("runs list: %v", err)
	}
	var runs []metrics.RunInfo
	if err := json.Unmarshal([]byte(out), &runs); err != nil {
		t.Fatalf("decode runs: %v", err)
	}
	if len(runs) != 1 || runs[0].RunID != rep.RunID {
		t.Fatalf("runs mismatch: got %+v, want one run %s", runs, rep.RunID)
	}

	out, err = execute(t, "runs", "show", rep.RunID, "--store", dbPath)
	if err != nil {
		t.Fatalf("runs show: %v", err)
	}
	for _, want := range []string{rep.RunID, model.ScenarioCongestion, "overall improvement"} {
		if !strings.Contains(out, want) {
			t.Fatalf("runs show output missing %q:\n%s", want, out)
		}
	}
}

func TestRunUnknownScenario(t *testing.T) {
	_, err := execute(t, "run",
		"--nodes", "10",
		"--duration", "200ms",
		"--log-level", "error",
		"--scenario", "no-such-scenario",
	)
	if err == nil {
		t.Fatalf("expected error for unknown scenario")
	}
}

func TestRunsShowMissing(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	if _, err := execute(t, "runs", "show", "missing", "--store", dbPath); err == nil {
		t.Fatalf("expected error for missing run")
	}
}

func freeAddr(t *testing.T) string {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := lis.Addr().String()
	lis.Close()
	return addr
}

// waitForOK polls url until it answers 200. It gives up when done fires or
// the timeout passes.
func waitForOK(url string, done <-chan error, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		select {
		case <-done:
			return false
		default:
		}
		if resp, err := http.Get(url); err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return true
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	return false
}

func TestRunServeKeepsHTTPAPIUp(t *testing.T) {
	cfg := config.Default()
	cfg.Nodes = 10
	cfg.Density = 0.3
	cfg.ScenarioDuration = 200 * time.Millisecond
	cfg.Log.Level = "error"
	cfg.MetricsAddr = freeAddr(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var out bytes.Buffer
	done := make(chan error, 1)
	go func() {
		done <- runSimulation(ctx, cfg, runOptions{names: []string{model.ScenarioIdeal}, serve: true}, &out)
	}()

	url := "http://" + cfg.MetricsAddr + "/report"
	if !waitForOK(url, done, 10*time.Second) {
		t.Fatalf("report never became available at %s", url)
	}

	// Still serving after the report is available.
	time.Sleep(100 * time.Millisecond)
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET /report after run: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /report status mismatch: got %d, want %d", resp.StatusCode, http.StatusOK)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("runSimulation: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatalf("runSimulation did not stop after cancel")
	}
	if !strings.Contains(out.String(), model.ScenarioIdeal) {
		t.Fatalf("report output missing %q:\n%s", model.ScenarioIdeal, out.String())
	}
}

func TestRunServeNeedsMetricsAddr(t *testing.T) {
	if _, err := execute(t, "run", "--serve", "--log-level", "error"); err == nil {
		t.Fatalf("expected error for --serve without --metrics-addr")
	}
}
