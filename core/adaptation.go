package core

import (
	"github.com/signalsfoundry/adaptive-network-simulator/model"
)

// Bounds on the multiplicative effect a protocol may have on a link.
const (
	minLatencyFactor    = 0.6
	maxBandwidthFactor  = 1.5
	minPacketLossFactor = 0.5
	minJitterFactor     = 0.7
)

// improvements are the fractional gains a protocol yields per metric.
type improvements struct {
	latency, bandwidth, packetLoss, jitter float64
}

func protocolImprovements(base Metrics, p *model.GeneratedProtocol) improvements {
	lat := p.Param(model.ParamLatencyOptimization)
	bw := p.Param(model.ParamBandwidthOptimization)
	pl := p.Param(model.ParamPacketLossOptimization)
	jit := p.Param(model.ParamJitterOptimization)
	dbc := p.Param(model.ParamDirectionalBias)
	abs := p.Param(model.ParamAsymmetricBuffer)
	teb := p.Param(model.ParamThermalEchoBoost)

	switch {
	case p.Family == model.FamilyAsymmetric:
		return improvements{0.3 * lat * dbc, 0.25 * bw * abs, 0.4 * pl * dbc, 0.3 * jit * teb}
	case p.Family == model.FamilySatellite:
		return improvements{0.2 * lat, 0.15 * bw, 0.35 * pl, 0.1 * jit * teb}
	case p.Family == model.FamilyMobile:
		return improvements{0.25 * lat, 0.1 * bw, 0.2 * pl, 0.4 * jit}
	case base.LatencyMs < 5 && base.BandwidthKbps > 9000:
		// Near-ideal links have little left to gain.
		return improvements{0.01 * lat, 0.01 * bw, 0.01 * pl, 0.01 * jit}
	default:
		return improvements{0.15 * lat, 0.15 * bw, 0.15 * pl, 0.15 * jit}
	}
}

// Transform applies a protocol to a base metric tuple. A nil protocol
// returns base unchanged. The result only depends on base and the protocol,
// so applying it every tick never compounds.
func Transform(base Metrics, p *model.GeneratedProtocol) Metrics {
	if p == nil {
		return base
	}
	imp := protocolImprovements(base, p)
	return Metrics{
		LatencyMs:     base.LatencyMs * clamp(1-imp.latency, minLatencyFactor, 1),
		BandwidthKbps: base.BandwidthKbps * clamp(1+imp.bandwidth, 1, maxBandwidthFactor),
		PacketLoss:    base.PacketLoss * clamp(1-imp.packetLoss, minPacketLossFactor, 1),
		JitterMs:      base.JitterMs * clamp(1-imp.jitter, minJitterFactor, 1),
	}
}
