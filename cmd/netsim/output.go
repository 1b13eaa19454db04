package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/signalsfoundry/adaptive-network-simulator/internal/sim/metrics"
)

func writeReport(out io.Writer, rep metrics.RunReport, jsonOut bool) error {
	if jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}

	fmt.Fprintf(out, "run %s: %d nodes, %d connections, seed %d\n\n", rep.RunID, rep.Nodes, rep.Connections, rep.Seed)

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SCENARIO\tLATENCY ms (base/adapt)\tBANDWIDTH kbps\tLOSS %\tTRANSFER ms\tRESILIENCE\tIMPROVEMENT %")
	for _, sr := range rep.Scenarios {
		b, a := orZero(sr.Baseline), orZero(sr.Adaptation)
		fmt.Fprintf(tw, "%s\t%.1f / %.1f\t%.0f / %.0f\t%.2f / %.2f\t%.0f / %.0f\t%.1f / %.1f\t%+.1f\n",
			sr.Scenario,
			b.AvgLatency, a.AvgLatency,
			b.AvgBandwidth, a.AvgBandwidth,
			b.AvgPacketLoss, a.AvgPacketLoss,
			b.AvgTransferTime, a.AvgTransferTime,
			b.ResilienceScore, a.ResilienceScore,
			sr.Improvement.Overall,
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	o := rep.Overall
	fmt.Fprintf(out, "\noverall improvement %+.1f%% (latency %+.1f%%, bandwidth %+.1f%%, packet loss %+.1f%%, transfer time %+.1f%%, resilience %+.1f%%)\n",
		o.Overall, o.Latency, o.Bandwidth, o.PacketLoss, o.TransferTime, o.Resilience)

	u := rep.Usage
	fmt.Fprintf(out, "protocol switches %d, engine calls %d, avg adaptation %.3f ms, most used %s\n",
		u.Switches, u.EngineCalls, u.AvgAdaptationMs, u.MostUsedProtocol)
	for _, p := range u.Protocols {
		fmt.Fprintf(out, "  %-16s %6d uses (mostly %s)\n", p.Protocol, p.Uses, p.MostCommonScenario)
	}
	return nil
}

func orZero(sm *metrics.ScenarioMetrics) metrics.ScenarioMetrics {
	if sm == nil {
		return metrics.ScenarioMetrics{}
	}
	return *sm
}
