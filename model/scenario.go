package model

// Scenario describes one named set of network conditions. Base values are
// the centre of the distribution; the variation fields bound the spread a
// scenario file may declare for its metrics.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	BaseLatencyMs     float64 `yaml:"base_latency_ms"`
	BaseBandwidthKbps float64 `yaml:"base_bandwidth_kbps"`
	BasePacketLoss    float64 `yaml:"base_packet_loss"`
	BaseJitterMs      float64 `yaml:"base_jitter_ms"`

	LatencyVariation    float64 `yaml:"latency_variation"`
	BandwidthVariation  float64 `yaml:"bandwidth_variation"`
	PacketLossVariation float64 `yaml:"packet_loss_variation"`
	JitterVariation     float64 `yaml:"jitter_variation"`
}

// Well-known scenario names that the condition tables special-case.
const (
	ScenarioIdeal                = "ideal"
	ScenarioCongestion           = "congestion"
	ScenarioInternational        = "international"
	ScenarioWirelessInterference = "wireless_interference"
	ScenarioMobileHandover       = "mobile_handover"
	ScenarioAsymmetric           = "asymmetric"
	ScenarioSatellite            = "satellite"
	ScenarioExtreme              = "extreme"
)
