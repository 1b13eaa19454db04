package core

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/signalsfoundry/adaptive-network-simulator/kb"
	"github.com/signalsfoundry/adaptive-network-simulator/model"
)

func TestRandomWalkMovesOnlyMobileNodes(t *testing.T) {
	reg := kb.NewNodeRegistry()
	_ = reg.Add(model.Node{ID: 0, Type: model.Datacenter, Position: model.Position{X: 500, Y: 500}})
	_ = reg.Add(model.Node{ID: 1, Type: model.MobileDevice, Position: model.Position{X: 500, Y: 500}})

	m := NewRandomWalkModel(0, rand.New(rand.NewSource(1)))
	if m.Speed != DefaultMobileSpeed {
		t.Fatalf("default speed mismatch: got %v, want %v", m.Speed, DefaultMobileSpeed)
	}
	if err := m.Step(reg, 2*time.Second); err != nil {
		t.Fatalf("Step: %v", err)
	}

	dc, _ := reg.Get(0)
	if dc.Position != (model.Position{X: 500, Y: 500}) {
		t.Fatalf("datacenter moved: %+v", dc.Position)
	}
	mob, _ := reg.Get(1)
	if d := Distance(mob.Position, model.Position{X: 500, Y: 500}); d < 19.999 || d > 20.001 {
		t.Fatalf("mobile node moved %v units, want 20", d)
	}
}

func TestRandomWalkStaysInsidePlane(t *testing.T) {
	reg := kb.NewNodeRegistry()
	_ = reg.Add(model.Node{ID: 0, Type: model.MobileDevice, Position: model.Position{X: 0, Y: 1000}})
	m := NewRandomWalkModel(500, rand.New(rand.NewSource(3)))
	for i := 0; i < 50; i++ {
		if err := m.Step(reg, time.Second); err != nil {
			t.Fatalf("Step: %v", err)
		}
		n, _ := reg.Get(0)
		if n.Position.X < 0 || n.Position.X > AreaSize || n.Position.Y < 0 || n.Position.Y > AreaSize {
			t.Fatalf("node left the plane: %+v", n.Position)
		}
	}
}

func TestSimulationEngineStepOrder(t *testing.T) {
	net := newTestNetwork(1, []model.NodeType{model.Datacenter, model.EdgeServer}, [][2]int{{0, 1}})
	p := testProtocol("low_latency", model.FamilyLowLatency, map[string]float64{model.ParamLatencyOptimization: 0.9})
	_ = net.AttachEngine(0, &fakeEngine{responses: []*model.GeneratedProtocol{p}})
	net.ApplyScenario(testScenarios[model.ScenarioCongestion])
	net.SetAdaptationEnabled(true)

	se := NewSimulationEngine(net, nil)
	var events []TickEvent
	se.RegisterTickListener(func(ev TickEvent) {
		c, _ := net.Connection(0)
		if c.Active == nil {
			t.Fatalf("listener ran before adaptation")
		}
		events = append(events, ev)
	})

	if err := se.Run(context.Background(), testEpoch, 100*time.Millisecond, 3); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("tick count mismatch: got %d, want 3", len(events))
	}
	if len(events[0].Update.Switches) != 1 || len(events[1].Update.Switches) != 0 {
		t.Fatalf("switch reporting mismatch: %+v", events)
	}
	if events[2].Index != 2 || !events[2].SimTime.Equal(testEpoch.Add(300*time.Millisecond)) {
		t.Fatalf("last event mismatch: %+v", events[2])
	}
}

func TestSimulationEngineStopsOnCancel(t *testing.T) {
	net := newTestNetwork(1, []model.NodeType{model.Datacenter, model.EdgeServer}, [][2]int{{0, 1}})
	se := NewSimulationEngine(net, StaticMotionModel{})
	ticks := 0
	se.RegisterTickListener(func(TickEvent) { ticks++ })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := se.Run(ctx, testEpoch, time.Millisecond, 5); err == nil {
		t.Fatalf("Run with cancelled context returned nil error")
	}
	if ticks != 0 {
		t.Fatalf("ticks ran after cancel: %d", ticks)
	}
}
