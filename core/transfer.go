package core

import (
	"math"

	"github.com/signalsfoundry/adaptive-network-simulator/model"
)

// ReferencePayloadKb is the payload size used for transfer-time estimates
// (10 MB expressed in kilobits).
const ReferencePayloadKb = 81920.0

// ProtocolFactor is the transfer-time multiplier of a protocol; a nil
// protocol has no effect.
func ProtocolFactor(p *model.GeneratedProtocol) float64 {
	if p == nil {
		return 1.0
	}
	switch p.Family {
	case model.FamilyLowLatency:
		return 0.65
	case model.FamilyHighBandwidth:
		return 0.70
	case model.FamilyReliability, model.FamilyMobile:
		return 0.75
	case model.FamilyBalanced:
		return 0.80
	default:
		return 0.85
	}
}

// TransferTimeMs estimates how long the reference payload takes over a link,
// inflating by retransmissions and scaling by the protocol factor.
func TransferTimeMs(m Metrics, p *model.GeneratedProtocol) float64 {
	bw := math.Max(m.BandwidthKbps, 1)
	base := ReferencePayloadKb / bw * 1000
	return base * (1 + clamp(m.PacketLoss, 0, 1)*2) * ProtocolFactor(p)
}
