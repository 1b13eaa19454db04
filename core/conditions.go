package core

import (
	"math"
	"math/rand"

	"github.com/signalsfoundry/adaptive-network-simulator/model"
)

// modifiers scale the four link metrics.
type modifiers struct {
	latency    float64
	bandwidth  float64
	packetLoss float64
	jitter     float64
}

var identity = modifiers{1, 1, 1, 1}

type typePair struct {
	a, b model.NodeType
}

func orderedPair(a, b model.NodeType) typePair {
	if a > b {
		a, b = b, a
	}
	return typePair{a, b}
}

var (
	dcDC         = typePair{model.Datacenter, model.Datacenter}
	dcEdge       = typePair{model.Datacenter, model.EdgeServer}
	dcMobile     = typePair{model.Datacenter, model.MobileDevice}
	edgeMobile   = typePair{model.EdgeServer, model.MobileDevice}
	mobileMobile = typePair{model.MobileDevice, model.MobileDevice}
)

// pairBase returns the structural latency (ms) and bandwidth (kbps) of a
// link between two node types.
func pairBase(a, b model.NodeType) (latency, bandwidth float64) {
	switch orderedPair(a, b) {
	case dcDC:
		return 10, 100000
	case dcEdge:
		return 20, 50000
	case dcMobile:
		return 50, 20000
	case edgeMobile:
		return 30, 15000
	case mobileMobile:
		return 40, 10000
	default:
		return 25, 25000
	}
}

// scenarioModifiers is applied once when a scenario is installed.
func scenarioModifiers(scenario string) modifiers {
	switch scenario {
	case model.ScenarioAsymmetric:
		return modifiers{1.5, 0.8, 1.2, 1.5}
	case model.ScenarioMobileHandover:
		return modifiers{1.2, 0.9, 1.1, 1.3}
	case model.ScenarioSatellite:
		return modifiers{2.0, 0.5, 1.5, 2.0}
	default:
		return identity
	}
}

// scenarioFlag names the auxiliary condition a scenario raises, if any.
func scenarioFlag(scenario string) (string, bool) {
	switch scenario {
	case model.ScenarioAsymmetric:
		return model.FlagAsymmetric, true
	case model.ScenarioMobileHandover:
		return model.FlagHandover, true
	case model.ScenarioSatellite:
		return model.FlagHighLatency, true
	default:
		return "", false
	}
}

// tickModifiers is applied to the scenario base values on every tick.
func tickModifiers(a, b model.NodeType, scenario string) modifiers {
	switch orderedPair(a, b) {
	case dcDC:
		return modifiers{0.5, 2.0, 0.2, 0.5}
	case dcEdge:
		return modifiers{0.7, 1.5, 0.3, 0.7}
	case dcMobile:
		switch scenario {
		case model.ScenarioCongestion:
			return modifiers{1.5, 0.6, 1.3, 1.4}
		case model.ScenarioWirelessInterference:
			return modifiers{1.3, 0.7, 1.5, 1.6}
		default:
			return modifiers{1.0, 0.8, 1.1, 1.2}
		}
	case edgeMobile:
		switch scenario {
		case model.ScenarioWirelessInterference:
			return modifiers{1.4, 0.6, 1.6, 1.8}
		case model.ScenarioMobileHandover:
			return modifiers{1.6, 0.5, 1.7, 1.9}
		default:
			return modifiers{1.1, 0.7, 1.2, 1.3}
		}
	case mobileMobile:
		switch scenario {
		case model.ScenarioWirelessInterference:
			return modifiers{1.7, 0.4, 1.8, 2.0}
		case model.ScenarioMobileHandover:
			return modifiers{1.8, 0.3, 1.9, 2.2}
		default:
			return modifiers{1.4, 0.5, 1.5, 1.7}
		}
	default:
		return identity
	}
}

// Perturbation half-widths drawn on every evolution step.
const (
	latencyJitterMs     = 5.0
	bandwidthJitterKbps = 200.0
	packetLossJitter    = 0.01
	jitterJitterMs      = 1.0
)

// Metric floors applied after perturbation.
const (
	MinLatencyMs     = 1.0
	MinBandwidthKbps = 100.0
)

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

// perturbed combines centre values with one random draw per metric, in the
// order latency, bandwidth, packet loss, jitter, and applies the floors.
func perturbed(rng *rand.Rand, centre Metrics) Metrics {
	m := Metrics{
		LatencyMs:     centre.LatencyMs + uniform(rng, -latencyJitterMs, latencyJitterMs),
		BandwidthKbps: centre.BandwidthKbps + uniform(rng, -bandwidthJitterKbps, bandwidthJitterKbps),
		PacketLoss:    centre.PacketLoss + uniform(rng, -packetLossJitter, packetLossJitter),
		JitterMs:      centre.JitterMs + uniform(rng, -jitterJitterMs, jitterJitterMs),
	}
	return applyFloors(m)
}

func applyFloors(m Metrics) Metrics {
	m.LatencyMs = math.Max(MinLatencyMs, m.LatencyMs)
	m.BandwidthKbps = math.Max(MinBandwidthKbps, m.BandwidthKbps)
	m.PacketLoss = clamp(m.PacketLoss, 0, 1)
	m.JitterMs = math.Max(0, m.JitterMs)
	return m
}

// scenarioCentre is the unperturbed metric tuple installed by ApplyScenario.
func scenarioCentre(a, b model.NodeType, s model.Scenario) Metrics {
	lat, bw := pairBase(a, b)
	mod := scenarioModifiers(s.Name)
	return Metrics{
		LatencyMs:     lat * mod.latency,
		BandwidthKbps: bw * mod.bandwidth,
		PacketLoss:    s.BasePacketLoss * mod.packetLoss,
		JitterMs:      s.BaseJitterMs * mod.jitter,
	}
}

// tickCentre is the unperturbed metric tuple for one evolution tick.
func tickCentre(a, b model.NodeType, s model.Scenario) Metrics {
	mod := tickModifiers(a, b, s.Name)
	return Metrics{
		LatencyMs:     s.BaseLatencyMs * mod.latency,
		BandwidthKbps: s.BaseBandwidthKbps * mod.bandwidth,
		PacketLoss:    s.BasePacketLoss * mod.packetLoss,
		JitterMs:      s.BaseJitterMs * mod.jitter,
	}
}
