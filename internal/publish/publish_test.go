package publish

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"

	"github.com/signalsfoundry/adaptive-network-simulator/internal/config"
	"github.com/signalsfoundry/adaptive-network-simulator/internal/sim/metrics"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func testReport() metrics.RunReport {
	b := metrics.ScenarioMetrics{Scenario: "ideal", Mode: metrics.ModeBaseline, AvgLatency: 20}
	return metrics.RunReport{
		RunInfo:   metrics.RunInfo{RunID: "run-42", Seed: 1, Nodes: 10, Connections: 13},
		Scenarios: []metrics.ScenarioReport{{Scenario: "ideal", Baseline: &b}, {Scenario: "extreme"}},
		Usage:     metrics.UsageStats{MostUsedProtocol: metrics.NoProtocol},
	}
}

func TestPublishWritesScenarioAndRunMessages(t *testing.T) {
	w := &fakeWriter{}
	p := New(w, nil)
	if err := p.Publish(context.Background(), testReport()); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if len(w.msgs) != 3 {
		t.Fatalf("message count mismatch: got %d, want 3", len(w.msgs))
	}
	for _, m := range w.msgs {
		if string(m.Key) != "run-42" {
			t.Fatalf("key mismatch: got %q, want run-42", m.Key)
		}
	}

	var first ScenarioMessage
	if err := json.Unmarshal(w.msgs[0].Value, &first); err != nil {
		t.Fatalf("decode scenario message: %v", err)
	}
	if first.RunID != "run-42" || first.Scenario != "ideal" || first.Baseline == nil || first.Baseline.AvgLatency != 20 {
		t.Fatalf("scenario message mismatch: got %+v", first)
	}
	if kind := string(w.msgs[0].Headers[0].Value); kind != KindScenario {
		t.Fatalf("kind header mismatch: got %q, want %q", kind, KindScenario)
	}

	var last RunMessage
	if err := json.Unmarshal(w.msgs[2].Value, &last); err != nil {
		t.Fatalf("decode run message: %v", err)
	}
	if last.RunID != "run-42" || last.Usage.MostUsedProtocol != metrics.NoProtocol {
		t.Fatalf("run message mismatch: got %+v", last)
	}
	if kind := string(w.msgs[2].Headers[0].Value); kind != KindRun {
		t.Fatalf("kind header mismatch: got %q, want %q", kind, KindRun)
	}

	if err := p.Close(); err != nil || !w.closed {
		t.Fatalf("Close: err=%v closed=%v", err, w.closed)
	}
}

func TestPublishWrapsWriterError(t *testing.T) {
	boom := errors.New("broker down")
	p := New(&fakeWriter{err: boom}, nil)
	if err := p.Publish(context.Background(), testReport()); !errors.Is(err, boom) {
		t.Fatalf("Publish error = %v, want wrapped %v", err, boom)
	}
}

func TestNewKafkaWriterRequiresConfig(t *testing.T) {
	if _, err := NewKafkaWriter(config.KafkaConfig{Topic: "results"}); err == nil {
		t.Fatalf("expected error without brokers")
	}
	w, err := NewKafkaWriter(config.KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "results"})
	if err != nil {
		t.Fatalf("NewKafkaWriter: %v", err)
	}
	if w.Topic != "results" {
		t.Fatalf("topic mismatch: got %q, want results", w.Topic)
	}
	_ = w.Close()
}
