package metrics

import "math"

// ResilienceScore rates how well a link tolerates adverse conditions on a
// 0..100 scale. Packet loss is a percentage.
func ResilienceScore(latencyMs, packetLossPct, jitterMs float64) float64 {
	lat := 1 - math.Min(latencyMs, 500)/500
	pl := 1 - math.Min(packetLossPct, 100)/100
	jit := 1 - math.Min(jitterMs, 100)/100
	return (0.2*lat + 0.5*pl + 0.3*jit) * 100
}

// EfficiencyScore rates resource use on a 0..100 scale.
func EfficiencyScore(bandwidthKbps, transferTimeMs, packetLossPct float64) float64 {
	bw := math.Min(bandwidthKbps, 10000) / 10000
	tt := 1 - math.Min(transferTimeMs, 10000)/10000
	pl := 1 - math.Min(packetLossPct, 100)/100
	return (0.4*bw + 0.4*tt + 0.2*pl) * 100
}
