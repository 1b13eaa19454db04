package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestJSONLoggerWritesFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "debug", Format: "json", Output: &buf})

	log.With(String("component", "runner")).Info(context.Background(), "scenario finished",
		Int("ticks", 20),
		Float("avg_latency_ms", 12.5),
		Bool("adaptation", true),
		Duration("elapsed", 2*time.Second),
		Err(errors.New("boom")),
	)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode log line: %v (%q)", err, buf.String())
	}
	if rec["msg"] != "scenario finished" {
		t.Fatalf("msg mismatch: got %v", rec["msg"])
	}
	if rec["component"] != "runner" || rec["ticks"] != float64(20) || rec["adaptation"] != true || rec["error"] != "boom" {
		t.Fatalf("fields mismatch: %v", rec)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "warn", Output: &buf})
	log.Info(context.Background(), "hidden")
	log.Warn(context.Background(), "shown")
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Fatalf("level filtering mismatch: %q", out)
	}
}

func TestEnsureRunIDIsStable(t *testing.T) {
	ctx, id := EnsureRunID(context.Background())
	if id == "" {
		t.Fatalf("EnsureRunID returned empty id")
	}
	ctx2, id2 := EnsureRunID(ctx)
	if id2 != id || RunIDFromContext(ctx2) != id {
		t.Fatalf("run id changed: got %q, want %q", id2, id)
	}
}

func TestWithRunLoggerAnnotates(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Format: "json", Output: &buf})
	ctx, log := WithRunLogger(ContextWithRunID(context.Background(), "run-1"), base)
	log.Info(ctx, "hello")
	if !strings.Contains(buf.String(), `"run_id":"run-1"`) {
		t.Fatalf("run_id missing from %q", buf.String())
	}
}

func TestFromContextFallsBackToNoop(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Fatalf("FromContext returned nil")
	}
	l := Noop()
	if got := FromContext(ContextWithLogger(context.Background(), l)); got != l {
		t.Fatalf("FromContext did not return stored logger")
	}
}

func TestWithRunLoggerStoresLoggerOnContext(t *testing.T) {
	var buf bytes.Buffer
	ctx, _ := WithRunLogger(context.Background(), New(Config{Format: "json", Output: &buf}))
	FromContext(ctx).Warn(ctx, "sink failed", Scenario("congestion"), Mode("adaptation"), Connection(3))

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode log line: %v (%q)", err, buf.String())
	}
	if rec["run_id"] != RunIDFromContext(ctx) {
		t.Fatalf("run_id mismatch: got %v, want %v", rec["run_id"], RunIDFromContext(ctx))
	}
	if rec["scenario"] != "congestion" || rec["mode"] != "adaptation" || rec["connection"] != float64(3) {
		t.Fatalf("fields mismatch: %v", rec)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]string{
		"debug":   "DEBUG",
		"WARNING": "WARN",
		" error ": "ERROR",
		"":        "INFO",
		"verbose": "INFO",
	}
	for in, want := range tests {
		if got := ParseLevel(in).String(); got != want {
			t.Fatalf("ParseLevel(%q) mismatch: got %s, want %s", in, got, want)
		}
	}
}
