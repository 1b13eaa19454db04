package model

import "time"

// Condition is one observation submitted to a protocol synthesis engine.
// Metric conditions carry a normalized value in [0,1] where 1 is best;
// flag conditions carry 1 when the flag is raised.
type Condition struct {
	Name      string
	Value     float64
	Timestamp time.Time
}

// Normalized metric condition names.
const (
	ConditionLatency    = "latency"
	ConditionBandwidth  = "bandwidth"
	ConditionPacketLoss = "packet_loss"
	ConditionJitter     = "jitter"
)

// Auxiliary flag condition names.
const (
	FlagAsymmetric     = "asymmetric"
	FlagHandover       = "handover"
	FlagHighLatency    = "high_latency"
	FlagHighPacketLoss = "high_packet_loss"
	FlagLowBandwidth   = "low_bandwidth"
)

// IsMetricCondition reports whether name is one of the four normalized metrics.
func IsMetricCondition(name string) bool {
	switch name {
	case ConditionLatency, ConditionBandwidth, ConditionPacketLoss, ConditionJitter:
		return true
	}
	return false
}

// ProtocolFamily classifies a generated protocol. The family is fixed when the
// protocol is generated and selects both the adaptation transform and the
// transfer-time factor.
type ProtocolFamily int

const (
	FamilyOther ProtocolFamily = iota
	FamilyLowLatency
	FamilyHighBandwidth
	FamilyReliability
	FamilyBalanced
	FamilyMobile
	FamilySatellite
	FamilyAsymmetric
)

func (f ProtocolFamily) String() string {
	switch f {
	case FamilyLowLatency:
		return "low_latency"
	case FamilyHighBandwidth:
		return "high_bandwidth"
	case FamilyReliability:
		return "reliability"
	case FamilyBalanced:
		return "balanced"
	case FamilyMobile:
		return "mobile"
	case FamilySatellite:
		return "satellite"
	case FamilyAsymmetric:
		return "asymmetric"
	default:
		return "other"
	}
}

// Optimization parameter keys understood by the adaptation transform.
const (
	ParamLatencyOptimization    = "latency_optimization"
	ParamBandwidthOptimization  = "bandwidth_optimization"
	ParamPacketLossOptimization = "packet_loss_optimization"
	ParamJitterOptimization     = "jitter_optimization"
	ParamDirectionalBias        = "directional_bias_correction"
	ParamAsymmetricBuffer       = "asymmetric_buffer_sizing"
	ParamThermalEchoBoost       = "thermal_echo_boosting"
)

// PhysicsModel is a protocol template an engine can choose from.
type PhysicsModel struct {
	Name        string
	Description string
	Family      ProtocolFamily
	// Parameters are copied into the generated protocol.
	Parameters map[string]float64
	// ConditionWeights says how much each condition contributes to the
	// model's fitness score.
	ConditionWeights map[string]float64
}

// FlowControl describes congestion-window behaviour.
type FlowControl struct {
	InitialWindow int
	MaxWindow     int
	BackoffFactor float64
	RetransmitMs  float64
}

// Routing describes path-selection behaviour.
type Routing struct {
	Multipath       bool
	PathProbeMs     float64
	FailoverEnabled bool
}

// Security describes the transport protection profile.
type Security struct {
	Encryption   string
	KeyRotationS int
}

// GeneratedProtocol is the engine output assigned to a connection.
type GeneratedProtocol struct {
	ID          string
	Name        string
	Family      ProtocolFamily
	Parameters  map[string]float64
	FlowControl FlowControl
	Routing     Routing
	Security    Security
	GeneratedAt time.Time
}

// Param returns a parameter value, or 0 when it is not set.
func (p *GeneratedProtocol) Param(key string) float64 {
	if p == nil || p.Parameters == nil {
		return 0
	}
	return p.Parameters[key]
}
