package core

import (
	"math"
	"time"

	"github.com/signalsfoundry/adaptive-network-simulator/model"
)

// Normalization bounds. Every normalized value lies in [0,1] and higher is
// better.
const (
	MaxLatencyMs     = 500.0
	MaxBandwidthKbps = 100000.0
	MaxJitterMs      = 100.0
	latencySpan      = MaxLatencyMs - MinLatencyMs
)

var logMaxBandwidth = math.Log(MaxBandwidthKbps)

// NormalizeLatency maps [1,500] ms onto [1,0].
func NormalizeLatency(ms float64) float64 {
	return (MaxLatencyMs - clamp(ms, MinLatencyMs, MaxLatencyMs)) / latencySpan
}

// DenormalizeLatency inverts NormalizeLatency.
func DenormalizeLatency(n float64) float64 {
	return MaxLatencyMs - n*latencySpan
}

// NormalizeBandwidth maps kbps onto a log scale saturating at 100000 kbps.
func NormalizeBandwidth(kbps float64) float64 {
	return math.Log(math.Max(kbps, 1)) / logMaxBandwidth
}

// DenormalizeBandwidth inverts NormalizeBandwidth.
func DenormalizeBandwidth(n float64) float64 {
	return math.Exp(n * logMaxBandwidth)
}

// NormalizePacketLoss maps a loss fraction onto its delivery ratio.
func NormalizePacketLoss(fraction float64) float64 {
	return 1 - clamp(fraction, 0, 1)
}

// DenormalizePacketLoss inverts NormalizePacketLoss.
func DenormalizePacketLoss(n float64) float64 {
	return 1 - n
}

// NormalizeJitter maps [0,100] ms onto [1,0].
func NormalizeJitter(ms float64) float64 {
	return (MaxJitterMs - clamp(ms, 0, MaxJitterMs)) / MaxJitterMs
}

// DenormalizeJitter inverts NormalizeJitter.
func DenormalizeJitter(n float64) float64 {
	return MaxJitterMs - n*MaxJitterMs
}

// NormalizedConditions converts a metric tuple into the four metric
// conditions submitted to a protocol engine.
func NormalizedConditions(m Metrics, ts time.Time) []model.Condition {
	return []model.Condition{
		{Name: model.ConditionLatency, Value: NormalizeLatency(m.LatencyMs), Timestamp: ts},
		{Name: model.ConditionBandwidth, Value: NormalizeBandwidth(m.BandwidthKbps), Timestamp: ts},
		{Name: model.ConditionPacketLoss, Value: NormalizePacketLoss(m.PacketLoss), Timestamp: ts},
		{Name: model.ConditionJitter, Value: NormalizeJitter(m.JitterMs), Timestamp: ts},
	}
}

// Thresholds for the derived condition flags.
const (
	HighLatencyMs    = 200.0
	HighPacketLoss   = 0.1
	LowBandwidthKbps = 1000.0
)

// DerivedFlags raises threshold flags for a raw metric tuple.
func DerivedFlags(m Metrics, ts time.Time) []model.Condition {
	var flags []model.Condition
	if m.LatencyMs > HighLatencyMs {
		flags = append(flags, model.Condition{Name: model.FlagHighLatency, Value: 1, Timestamp: ts})
	}
	if m.PacketLoss > HighPacketLoss {
		flags = append(flags, model.Condition{Name: model.FlagHighPacketLoss, Value: 1, Timestamp: ts})
	}
	if m.BandwidthKbps < LowBandwidthKbps {
		flags = append(flags, model.Condition{Name: model.FlagLowBandwidth, Value: 1, Timestamp: ts})
	}
	return flags
}
