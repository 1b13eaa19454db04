package metrics

// PerformanceImprovement is expressed in percent; positive is better.
type PerformanceImprovement struct {
	Overall      float64 `json:"overall"`
	Latency      float64 `json:"latency"`
	Bandwidth    float64 `json:"bandwidth"`
	PacketLoss   float64 `json:"packet_loss"`
	TransferTime float64 `json:"transfer_time"`
	Resilience   float64 `json:"resilience"`
}

// ImprovementPct compares a baseline b to an adapted value a. A zero baseline
// yields 0 when a is also zero and a signed 100 otherwise.
func ImprovementPct(b, a float64, lowerIsBetter bool) float64 {
	if b == 0 {
		if a == 0 {
			return 0
		}
		if lowerIsBetter {
			return -100
		}
		return 100
	}
	if lowerIsBetter {
		return (b - a) / b * 100
	}
	return (a - b) / b * 100
}

// Improvement is the unweighted comparison used for whole-run summaries.
func Improvement(b, a ScenarioMetrics) PerformanceImprovement {
	imp := PerformanceImprovement{
		Latency:      ImprovementPct(b.AvgLatency, a.AvgLatency, true),
		Bandwidth:    ImprovementPct(b.AvgBandwidth, a.AvgBandwidth, false),
		PacketLoss:   ImprovementPct(b.AvgPacketLoss, a.AvgPacketLoss, true),
		TransferTime: ImprovementPct(b.AvgTransferTime, a.AvgTransferTime, true),
		Resilience:   ImprovementPct(b.ResilienceScore, a.ResilienceScore, false),
	}
	imp.Overall = 0.25*imp.Latency +
		0.25*imp.Bandwidth +
		0.2*imp.PacketLoss +
		0.2*imp.TransferTime +
		0.1*imp.Resilience
	return imp
}

// cappedLowerBetter returns the lower-is-better improvement with the
// regression capped at floor percent.
func cappedLowerBetter(b, a, floor float64) float64 {
	raw := (b - a) / b
	if raw*100 < floor {
		return floor
	}
	return raw * 100
}

// WeightedImprovement is the capped, per-scenario comparison. Regressions
// are floored so one pathological scenario cannot dominate a report.
func WeightedImprovement(b, a ScenarioMetrics) PerformanceImprovement {
	var imp PerformanceImprovement

	if b.AvgLatency != 0 {
		imp.Latency = cappedLowerBetter(b.AvgLatency, a.AvgLatency, -100)
	}

	if b.AvgBandwidth != 0 {
		raw := (a.AvgBandwidth - b.AvgBandwidth) / b.AvgBandwidth
		if raw < -0.5 {
			imp.Bandwidth = -50
		} else {
			imp.Bandwidth = raw * 100
		}
	}

	switch {
	case b.AvgPacketLoss != 0:
		imp.PacketLoss = cappedLowerBetter(b.AvgPacketLoss, a.AvgPacketLoss, -100)
	case a.AvgPacketLoss != 0:
		imp.PacketLoss = -100
	}

	if b.AvgTransferTime != 0 {
		imp.TransferTime = cappedLowerBetter(b.AvgTransferTime, a.AvgTransferTime, -100)
	}

	switch {
	case b.ResilienceScore != 0:
		imp.Resilience = (a.ResilienceScore - b.ResilienceScore) / b.ResilienceScore * 100
	case a.ResilienceScore > 0:
		imp.Resilience = 100
	}

	imp.Overall = 0.3*imp.Latency +
		0.25*imp.Bandwidth +
		0.25*imp.PacketLoss +
		0.15*imp.TransferTime +
		0.05*imp.Resilience
	return imp
}
