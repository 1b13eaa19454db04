// Package scenario holds the catalog of named network scenarios.
package scenario

import (
	"errors"
	"sync"

	"github.com/signalsfoundry/adaptive-network-simulator/model"
)

// ErrInvalidScenario is returned when a scenario fails validation.
var ErrInvalidScenario = errors.New("invalid scenario")

// Catalog is an ordered, name-keyed set of scenarios. Iteration order is the
// order in which scenarios were first added, which keeps replays with the
// same seed identical.
type Catalog struct {
	mu     sync.RWMutex
	order  []string
	byName map[string]model.Scenario
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{byName: make(map[string]model.Scenario)}
}

// Predefined returns the built-in scenarios in their canonical order.
func Predefined() []model.Scenario {
	return []model.Scenario{
		{
			Name:                model.ScenarioIdeal,
			Description:         "Ideal network conditions with low latency, high bandwidth, and minimal packet loss",
			BaseLatencyMs:       20,
			BaseBandwidthKbps:   10000,
			BasePacketLoss:      0.001,
			BaseJitterMs:        1,
			LatencyVariation:    5,
			BandwidthVariation:  1000,
			PacketLossVariation: 0.002,
			JitterVariation:     0.5,
		},
		{
			Name:                model.ScenarioCongestion,
			Description:         "Network congestion with high latency and reduced bandwidth",
			BaseLatencyMs:       120,
			BaseBandwidthKbps:   2000,
			BasePacketLoss:      0.02,
			BaseJitterMs:        15,
			LatencyVariation:    50,
			BandwidthVariation:  1000,
			PacketLossVariation: 0.03,
			JitterVariation:     10,
		},
		{
			Name:                model.ScenarioInternational,
			Description:         "International connections with high latency and moderate bandwidth",
			BaseLatencyMs:       200,
			BaseBandwidthKbps:   5000,
			BasePacketLoss:      0.01,
			BaseJitterMs:        8,
			LatencyVariation:    30,
			BandwidthVariation:  1000,
			PacketLossVariation: 0.01,
			JitterVariation:     5,
		},
		{
			Name:                model.ScenarioWirelessInterference,
			Description:         "Wireless networks with interference causing packet loss and jitter",
			BaseLatencyMs:       50,
			BaseBandwidthKbps:   3000,
			BasePacketLoss:      0.05,
			BaseJitterMs:        20,
			LatencyVariation:    20,
			BandwidthVariation:  1500,
			PacketLossVariation: 0.1,
			JitterVariation:     15,
		},
		{
			Name:                model.ScenarioMobileHandover,
			Description:         "Mobile devices during cell tower handover with unstable connections",
			BaseLatencyMs:       80,
			BaseBandwidthKbps:   2000,
			BasePacketLoss:      0.1,
			BaseJitterMs:        25,
			LatencyVariation:    40,
			BandwidthVariation:  1000,
			PacketLossVariation: 0.15,
			JitterVariation:     20,
		},
		{
			Name:                model.ScenarioAsymmetric,
			Description:         "Asymmetric connections with high download but low upload speeds",
			BaseLatencyMs:       40,
			BaseBandwidthKbps:   8000,
			BasePacketLoss:      0.01,
			BaseJitterMs:        5,
			LatencyVariation:    10,
			BandwidthVariation:  2000,
			PacketLossVariation: 0.02,
			JitterVariation:     3,
		},
		{
			Name:                model.ScenarioSatellite,
			Description:         "Satellite connections with very high latency but decent bandwidth",
			BaseLatencyMs:       500,
			BaseBandwidthKbps:   5000,
			BasePacketLoss:      0.02,
			BaseJitterMs:        10,
			LatencyVariation:    100,
			BandwidthVariation:  1000,
			PacketLossVariation: 0.03,
			JitterVariation:     8,
		},
		{
			Name:                model.ScenarioExtreme,
			Description:         "Extreme network conditions with high latency, low bandwidth, and high packet loss",
			BaseLatencyMs:       300,
			BaseBandwidthKbps:   500,
			BasePacketLoss:      0.2,
			BaseJitterMs:        50,
			LatencyVariation:    100,
			BandwidthVariation:  300,
			PacketLossVariation: 0.2,
			JitterVariation:     30,
		},
	}
}

// LoadPredefined clears the catalog and loads the built-in scenarios.
func (c *Catalog) LoadPredefined() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order = c.order[:0]
	c.byName = make(map[string]model.Scenario)
	for _, s := range Predefined() {
		c.putLocked(s)
	}
}

// Add inserts or replaces a scenario by name. Replacing keeps the original
// position in the iteration order.
func (c *Catalog) Add(s model.Scenario) error {
	if err := Validate(s); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.putLocked(s)
	return nil
}

func (c *Catalog) putLocked(s model.Scenario) {
	if _, exists := c.byName[s.Name]; !exists {
		c.order = append(c.order, s.Name)
	}
	c.byName[s.Name] = s
}

// Get returns the scenario with the given name.
func (c *Catalog) Get(name string) (model.Scenario, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.byName[name]
	return s, ok
}

// All returns every scenario in catalog order.
func (c *Catalog) All() []model.Scenario {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.Scenario, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.byName[name])
	}
	return out
}

// Names returns scenario names in catalog order.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.order...)
}

// Len returns the number of scenarios.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}
