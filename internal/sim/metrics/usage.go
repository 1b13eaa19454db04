package metrics

import (
	"sort"
	"time"
)

// ProtocolUsage counts the connections left running a protocol at the end of
// each adaptation scenario.
type ProtocolUsage struct {
	Protocol           string         `json:"protocol"`
	Uses               int            `json:"uses"`
	ByScenario         map[string]int `json:"by_scenario"`
	MostCommonScenario string         `json:"most_common_scenario"`
}

// UsageStats summarises protocol adaptation over a run.
type UsageStats struct {
	Protocols        []ProtocolUsage `json:"protocols"`
	Switches         int             `json:"switches"`
	EngineCalls      int             `json:"engine_calls"`
	AvgAdaptationMs  float64         `json:"avg_adaptation_ms"`
	MostUsedProtocol string          `json:"most_used_protocol"`
}

// NoProtocol is reported as the most used protocol when none was used.
const NoProtocol = "None"

type usageTracker struct {
	uses        map[string]map[string]int // protocol -> scenario -> count
	switches    int
	engineCalls int
	engineTime  time.Duration
}

func newUsageTracker() *usageTracker {
	return &usageTracker{uses: make(map[string]map[string]int)}
}

// setScenario replaces the counts of scenario with active, which maps
// protocol name to the number of connections running it.
func (u *usageTracker) setScenario(scenario string, active map[string]int) {
	for proto, byScenario := range u.uses {
		delete(byScenario, scenario)
		if len(byScenario) == 0 {
			delete(u.uses, proto)
		}
	}
	for proto, n := range active {
		if proto == "" || n == 0 {
			continue
		}
		byScenario, ok := u.uses[proto]
		if !ok {
			byScenario = make(map[string]int)
			u.uses[proto] = byScenario
		}
		byScenario[scenario] = n
	}
}

func (u *usageTracker) recordAdaptation(switches, calls int, elapsed time.Duration) {
	u.switches += switches
	u.engineCalls += calls
	u.engineTime += elapsed
}

func (u *usageTracker) stats() UsageStats {
	st := UsageStats{
		Switches:         u.switches,
		EngineCalls:      u.engineCalls,
		MostUsedProtocol: NoProtocol,
	}
	if u.engineCalls > 0 {
		st.AvgAdaptationMs = float64(u.engineTime) / float64(time.Millisecond) / float64(u.engineCalls)
	}

	for proto, byScenario := range u.uses {
		pu := ProtocolUsage{Protocol: proto, ByScenario: make(map[string]int, len(byScenario))}
		best := -1
		for sc, n := range byScenario {
			pu.ByScenario[sc] = n
			pu.Uses += n
			if n > best || (n == best && sc < pu.MostCommonScenario) {
				best, pu.MostCommonScenario = n, sc
			}
		}
		st.Protocols = append(st.Protocols, pu)
	}
	sort.Slice(st.Protocols, func(i, j int) bool {
		if st.Protocols[i].Uses != st.Protocols[j].Uses {
			return st.Protocols[i].Uses > st.Protocols[j].Uses
		}
		return st.Protocols[i].Protocol < st.Protocols[j].Protocol
	})
	if len(st.Protocols) > 0 {
		st.MostUsedProtocol = st.Protocols[0].Protocol
	}
	return st
}
