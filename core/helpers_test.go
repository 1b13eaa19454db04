package core

import (
	"math/rand"
	"time"

	"github.com/signalsfoundry/adaptive-network-simulator/internal/logging"
	"github.com/signalsfoundry/adaptive-network-simulator/kb"
	"github.com/signalsfoundry/adaptive-network-simulator/model"
)

var testEpoch = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

// newTestNetwork builds a network with explicit node types and pairs so tests
// can target specific pair-table entries.
func newTestNetwork(seed int64, types []model.NodeType, pairs [][2]int) *Network {
	n := &Network{
		rng:       rand.New(rand.NewSource(seed)),
		registry:  kb.NewNodeRegistry(),
		log:       logging.Noop(),
		now:       func() time.Time { return testEpoch },
		nodeTypes: types,
	}
	for id, t := range types {
		_ = n.registry.Add(model.Node{ID: id, Name: model.NodeName(t, id), Type: t})
	}
	for _, p := range pairs {
		m := Metrics{LatencyMs: 50, BandwidthKbps: 5000, PacketLoss: 0.01, JitterMs: 5}
		n.conns = append(n.conns, Connection{
			Handle:   Handle(len(n.conns)),
			SourceID: p[0],
			DestID:   p[1],
			Base:     m,
			Live:     m,
		})
	}
	n.engines = make([]ProtocolEngine, len(n.conns))
	return n
}

// fakeEngine replays scripted responses and records submitted conditions.
type fakeEngine struct {
	models    []model.PhysicsModel
	responses []*model.GeneratedProtocol
	calls     int
	lastConds []model.Condition
}

func (f *fakeEngine) RegisterModel(m model.PhysicsModel) { f.models = append(f.models, m) }

func (f *fakeEngine) UpdateConditions(c []model.Condition) {
	f.lastConds = append([]model.Condition(nil), c...)
}

func (f *fakeEngine) GenerateProtocol() (*model.GeneratedProtocol, bool) {
	if len(f.responses) == 0 {
		return nil, false
	}
	idx := f.calls
	if idx >= len(f.responses) {
		idx = len(f.responses) - 1
	}
	f.calls++
	p := f.responses[idx]
	return p, p != nil
}

func (f *fakeEngine) hasCondition(name string) bool {
	for _, c := range f.lastConds {
		if c.Name == name {
			return true
		}
	}
	return false
}

func testProtocol(name string, family model.ProtocolFamily, params map[string]float64) *model.GeneratedProtocol {
	return &model.GeneratedProtocol{ID: name + "-id", Name: name, Family: family, Parameters: params}
}

var testScenarios = map[string]model.Scenario{
	model.ScenarioIdeal: {
		Name: model.ScenarioIdeal, BaseLatencyMs: 20, BaseBandwidthKbps: 10000, BasePacketLoss: 0.001, BaseJitterMs: 1,
	},
	model.ScenarioCongestion: {
		Name: model.ScenarioCongestion, BaseLatencyMs: 120, BaseBandwidthKbps: 2000, BasePacketLoss: 0.02, BaseJitterMs: 15,
	},
	model.ScenarioSatellite: {
		Name: model.ScenarioSatellite, BaseLatencyMs: 500, BaseBandwidthKbps: 5000, BasePacketLoss: 0.02, BaseJitterMs: 10,
	},
	model.ScenarioExtreme: {
		Name: model.ScenarioExtreme, BaseLatencyMs: 300, BaseBandwidthKbps: 500, BasePacketLoss: 0.2, BaseJitterMs: 50,
	},
	model.ScenarioAsymmetric: {
		Name: model.ScenarioAsymmetric, BaseLatencyMs: 40, BaseBandwidthKbps: 8000, BasePacketLoss: 0.01, BaseJitterMs: 5,
	},
}
