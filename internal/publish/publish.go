// Package publish streams finished run results to Kafka.
package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/signalsfoundry/adaptive-network-simulator/internal/config"
	"github.com/signalsfoundry/adaptive-network-simulator/internal/logging"
	"github.com/signalsfoundry/adaptive-network-simulator/internal/sim/metrics"
)

// Message kinds carried in the "kind" header.
const (
	KindScenario = "scenario"
	KindRun      = "run"
)

// MessageWriter is the subset of *kafka.Writer used by Publisher.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ScenarioMessage is the payload of one scenario result.
type ScenarioMessage struct {
	RunID string `json:"run_id"`
	metrics.ScenarioReport
}

// RunMessage is the payload of the final run summary.
type RunMessage struct {
	metrics.RunInfo
	Overall metrics.PerformanceImprovement `json:"overall"`
	Usage   metrics.UsageStats             `json:"usage"`
}

// Publisher writes one message per scenario followed by a run summary, all
// keyed by run ID so they land on the same partition.
type Publisher struct {
	w   MessageWriter
	log logging.Logger
}

// NewKafkaWriter builds a writer for the configured brokers and topic.
func NewKafkaWriter(cfg config.KafkaConfig) (*kafka.Writer, error) {
	if !cfg.Enabled() {
		return nil, errors.New("kafka: brokers and topic are required")
	}
	return kafka.NewWriter(kafka.WriterConfig{
		Brokers: cfg.Brokers,
		Topic:   cfg.Topic,
	}), nil
}

// New wraps w. A nil logger is replaced with a no-op logger.
func New(w MessageWriter, log logging.Logger) *Publisher {
	if log == nil {
		log = logging.Noop()
	}
	return &Publisher{w: w, log: log}
}

// Messages encodes r without writing it.
func Messages(r metrics.RunReport) ([]kafka.Message, error) {
	key := []byte(r.RunID)
	msgs := make([]kafka.Message, 0, len(r.Scenarios)+1)
	for _, sr := range r.Scenarios {
		body, err := json.Marshal(ScenarioMessage{RunID: r.RunID, ScenarioReport: sr})
		if err != nil {
			return nil, fmt.Errorf("encode scenario %s: %w", sr.Scenario, err)
		}
		msgs = append(msgs, kafka.Message{Key: key, Value: body, Headers: kindHeader(KindScenario)})
	}

	body, err := json.Marshal(RunMessage{RunInfo: r.RunInfo, Overall: r.Overall, Usage: r.Usage})
	if err != nil {
		return nil, fmt.Errorf("encode run summary: %w", err)
	}
	msgs = append(msgs, kafka.Message{Key: key, Value: body, Headers: kindHeader(KindRun)})
	return msgs, nil
}

func kindHeader(kind string) []kafka.Header {
	return []kafka.Header{{Key: "kind", Value: []byte(kind)}}
}

// Publish writes every message for r in one batch.
func (p *Publisher) Publish(ctx context.Context, r metrics.RunReport) error {
	msgs, err := Messages(r)
	if err != nil {
		return err
	}
	if err := p.w.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish run %s: %w", r.RunID, err)
	}
	p.log.Info(ctx, "published run results", logging.Int("messages", len(msgs)))
	return nil
}

// Close closes the underlying writer.
func (p *Publisher) Close() error {
	return p.w.Close()
}
