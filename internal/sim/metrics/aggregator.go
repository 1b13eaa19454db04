// Package metrics aggregates per-connection histories into scenario
// summaries and compares baseline against adaptation runs.
package metrics

import (
	"sort"
	"sync"
	"time"

	"github.com/signalsfoundry/adaptive-network-simulator/core"
	"github.com/signalsfoundry/adaptive-network-simulator/internal/sim/state"
)

// Mode distinguishes the two passes of a scenario.
type Mode string

const (
	ModeBaseline   Mode = "baseline"
	ModeAdaptation Mode = "adaptation"
)

// ScenarioMetrics is the summary of one scenario run. Packet loss is a
// percentage.
type ScenarioMetrics struct {
	Scenario        string  `json:"scenario"`
	Mode            Mode    `json:"mode"`
	AvgLatency      float64 `json:"avg_latency_ms"`
	AvgBandwidth    float64 `json:"avg_bandwidth_kbps"`
	AvgPacketLoss   float64 `json:"avg_packet_loss_pct"`
	AvgJitter       float64 `json:"avg_jitter_ms"`
	AvgTransferTime float64 `json:"avg_transfer_time_ms"`
	ResilienceScore float64 `json:"resilience_score"`
	EfficiencyScore float64 `json:"efficiency_score"`
	Connections     int     `json:"connections"`
}

// Aggregator owns the history store and the per-scenario summaries.
type Aggregator struct {
	mu sync.Mutex

	history *state.HistoryStore
	usage   *usageTracker

	order      []string
	baseline   map[string]ScenarioMetrics
	adaptation map[string]ScenarioMetrics
}

// NewAggregator creates an aggregator over history. A nil history gets a
// fresh store.
func NewAggregator(history *state.HistoryStore) *Aggregator {
	if history == nil {
		history = state.NewHistoryStore()
	}
	return &Aggregator{
		history:    history,
		usage:      newUsageTracker(),
		baseline:   make(map[string]ScenarioMetrics),
		adaptation: make(map[string]ScenarioMetrics),
	}
}

// History exposes the underlying store.
func (a *Aggregator) History() *state.HistoryStore { return a.history }

// RegisterConnection creates an empty history for h.
func (a *Aggregator) RegisterConnection(h core.Handle) { a.history.Register(h) }

// BeginRun clears every connection's samples so the next summary only
// covers the new scenario run.
func (a *Aggregator) BeginRun() { a.history.ClearSamples() }

// Reset drops every stored summary, usage count and sample so the next run
// starts empty. Registered connections are kept.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	a.order = nil
	a.baseline = make(map[string]ScenarioMetrics)
	a.adaptation = make(map[string]ScenarioMetrics)
	a.usage = newUsageTracker()
	a.mu.Unlock()
	a.history.ClearSamples()
}

// Record appends a sample to h's history.
func (a *Aggregator) Record(h core.Handle, s state.Sample) {
	a.history.Append(h, s)
}

// RecordAdaptation accumulates one adaptation pass.
func (a *Aggregator) RecordAdaptation(u core.UpdateResult) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.usage.recordAdaptation(len(u.Switches), u.Submitted, u.EngineTime)
}

// Summarize averages the per-connection means of every connection with at
// least one sample. With no samples the result is all zero.
func (a *Aggregator) Summarize(scenario string, mode Mode) ScenarioMetrics {
	out := ScenarioMetrics{Scenario: scenario, Mode: mode}

	var lat, bw, pl, jit, tt float64
	n := 0
	for _, h := range a.history.Handles() {
		m, ok := a.history.Means(h)
		if !ok {
			continue
		}
		lat += m.LatencyMs
		bw += m.BandwidthKbps
		pl += m.PacketLossPct
		jit += m.JitterMs
		tt += m.TransferTimeMs
		n++
	}
	if n == 0 {
		return out
	}

	k := float64(n)
	out.AvgLatency = lat / k
	out.AvgBandwidth = bw / k
	out.AvgPacketLoss = pl / k
	out.AvgJitter = jit / k
	out.AvgTransferTime = tt / k
	out.ResilienceScore = ResilienceScore(out.AvgLatency, out.AvgPacketLoss, out.AvgJitter)
	out.EfficiencyScore = EfficiencyScore(out.AvgBandwidth, out.AvgTransferTime, out.AvgPacketLoss)
	out.Connections = n
	return out
}

// Collect summarises the current histories and stores the result for the
// scenario and mode. In adaptation mode it also counts, per protocol, the
// connections whose last sample ran it; collecting a scenario again
// replaces its earlier counts.
func (a *Aggregator) Collect(scenario string, mode Mode) ScenarioMetrics {
	sm := a.Summarize(scenario, mode)

	var active map[string]int
	if mode == ModeAdaptation {
		active = make(map[string]int)
		for _, h := range a.history.Handles() {
			if last, ok := a.history.Last(h); ok && last.ProtocolName != "" {
				active[last.ProtocolName]++
			}
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.noteScenario(scenario)
	if mode == ModeAdaptation {
		a.adaptation[scenario] = sm
		a.usage.setScenario(scenario, active)
	} else {
		a.baseline[scenario] = sm
	}
	return sm
}

// CollectBaseline is Collect in baseline mode.
func (a *Aggregator) CollectBaseline(scenario string) ScenarioMetrics {
	return a.Collect(scenario, ModeBaseline)
}

// CollectAdaptation is Collect in adaptation mode.
func (a *Aggregator) CollectAdaptation(scenario string) ScenarioMetrics {
	return a.Collect(scenario, ModeAdaptation)
}

func (a *Aggregator) noteScenario(name string) {
	for _, s := range a.order {
		if s == name {
			return
		}
	}
	a.order = append(a.order, name)
}

// Baseline returns the stored baseline summary for scenario.
func (a *Aggregator) Baseline(scenario string) (ScenarioMetrics, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	sm, ok := a.baseline[scenario]
	return sm, ok
}

// Adaptation returns the stored adaptation summary for scenario.
func (a *Aggregator) Adaptation(scenario string) (ScenarioMetrics, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	sm, ok := a.adaptation[scenario]
	return sm, ok
}

// ScenarioImprovement compares the two passes of one scenario with the
// capped weighting. Missing data yields the zero value.
func (a *Aggregator) ScenarioImprovement(scenario string) PerformanceImprovement {
	a.mu.Lock()
	defer a.mu.Unlock()
	b, okB := a.baseline[scenario]
	ad, okA := a.adaptation[scenario]
	if !okB || !okA {
		return PerformanceImprovement{}
	}
	return WeightedImprovement(b, ad)
}

// OverallImprovement averages every scenario present in both passes and
// compares the averages with the unweighted formula.
func (a *Aggregator) OverallImprovement() PerformanceImprovement {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.overallLocked()
}

func (a *Aggregator) overallLocked() PerformanceImprovement {
	var b, ad ScenarioMetrics
	n := 0
	for _, name := range a.order {
		bs, okB := a.baseline[name]
		as, okA := a.adaptation[name]
		if !okB || !okA {
			continue
		}
		accumulate(&b, bs)
		accumulate(&ad, as)
		n++
	}
	if n == 0 {
		return PerformanceImprovement{}
	}
	scale(&b, float64(n))
	scale(&ad, float64(n))
	return Improvement(b, ad)
}

func accumulate(dst *ScenarioMetrics, s ScenarioMetrics) {
	dst.AvgLatency += s.AvgLatency
	dst.AvgBandwidth += s.AvgBandwidth
	dst.AvgPacketLoss += s.AvgPacketLoss
	dst.AvgJitter += s.AvgJitter
	dst.AvgTransferTime += s.AvgTransferTime
	dst.ResilienceScore += s.ResilienceScore
	dst.EfficiencyScore += s.EfficiencyScore
}

func scale(dst *ScenarioMetrics, n float64) {
	dst.AvgLatency /= n
	dst.AvgBandwidth /= n
	dst.AvgPacketLoss /= n
	dst.AvgJitter /= n
	dst.AvgTransferTime /= n
	dst.ResilienceScore /= n
	dst.EfficiencyScore /= n
}

// Usage returns protocol usage statistics.
func (a *Aggregator) Usage() UsageStats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.usage.stats()
}

// ScenarioReport pairs the two passes of one scenario.
type ScenarioReport struct {
	Scenario    string                 `json:"scenario"`
	Baseline    *ScenarioMetrics       `json:"baseline,omitempty"`
	Adaptation  *ScenarioMetrics       `json:"adaptation,omitempty"`
	Improvement PerformanceImprovement `json:"improvement"`
}

// RunInfo identifies the run a report belongs to.
type RunInfo struct {
	RunID       string    `json:"run_id"`
	Seed        int64     `json:"seed"`
	Nodes       int       `json:"nodes"`
	Connections int       `json:"connections"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
}

// RunReport is a read-only snapshot of a finished run.
type RunReport struct {
	RunInfo
	Scenarios []ScenarioReport       `json:"scenarios"`
	Overall   PerformanceImprovement `json:"overall"`
	Usage     UsageStats             `json:"usage"`
}

// Report snapshots every stored summary in scenario order.
func (a *Aggregator) Report(info RunInfo) RunReport {
	a.mu.Lock()
	defer a.mu.Unlock()

	r := RunReport{RunInfo: info, Overall: a.overallLocked(), Usage: a.usage.stats()}
	for _, name := range a.order {
		sr := ScenarioReport{Scenario: name}
		b, okB := a.baseline[name]
		if okB {
			sr.Baseline = &b
		}
		ad, okA := a.adaptation[name]
		if okA {
			sr.Adaptation = &ad
		}
		if okB && okA {
			sr.Improvement = WeightedImprovement(b, ad)
		}
		r.Scenarios = append(r.Scenarios, sr)
	}
	return r
}

// ScenarioNames returns the scenarios with any stored summary, sorted.
func (a *Aggregator) ScenarioNames() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := append([]string(nil), a.order...)
	sort.Strings(out)
	return out
}
