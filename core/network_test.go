package core

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/signalsfoundry/adaptive-network-simulator/kb"
	"github.com/signalsfoundry/adaptive-network-simulator/model"
)

func TestBuildTopologyPartitionsNodes(t *testing.T) {
	reg := kb.NewNodeRegistry()
	net, err := BuildTopology(100, 0.1, rand.New(rand.NewSource(1)), reg)
	if err != nil {
		t.Fatalf("BuildTopology: %v", err)
	}
	if net.NodeCount() != 100 || reg.Len() != 100 {
		t.Fatalf("node count mismatch: got %d/%d, want 100", net.NodeCount(), reg.Len())
	}

	counts := reg.CountByType()
	want := map[model.NodeType]int{
		model.Datacenter:   10,
		model.EdgeServer:   20,
		model.MobileDevice: 33,
		model.ClientDevice: 37,
	}
	for typ, n := range want {
		if counts[typ] != n {
			t.Fatalf("%s count mismatch: got %d, want %d", typ, counts[typ], n)
		}
	}

	first, _ := reg.Get(0)
	if first.Name != "datacenter_0" {
		t.Fatalf("first node name mismatch: got %q, want datacenter_0", first.Name)
	}
	edge, _ := reg.Get(10)
	if edge.Type != model.EdgeServer || edge.Name != "edge_10" {
		t.Fatalf("node 10 mismatch: got %+v, want edge_10", edge)
	}
	last, _ := reg.Get(99)
	if last.Type != model.ClientDevice || last.IsMobile() {
		t.Fatalf("node 99 mismatch: got %+v, want non-mobile client", last)
	}
	for _, n := range reg.List() {
		if n.Position.X < 0 || n.Position.X >= AreaSize || n.Position.Y < 0 || n.Position.Y >= AreaSize {
			t.Fatalf("node %d outside plane: %+v", n.ID, n.Position)
		}
	}
}

func TestBuildTopologyConnectionCountAndUniqueness(t *testing.T) {
	tests := []struct {
		nodes   int
		density float64
		want    int
	}{
		{nodes: 10, density: 0.3, want: 13},
		{nodes: 100, density: 0.1, want: 495},
		{nodes: 2, density: 1, want: 1},
		{nodes: 5, density: 1, want: 10},
		{nodes: 20, density: 0, want: 0},
	}
	for _, tt := range tests {
		net, err := BuildTopology(tt.nodes, tt.density, rand.New(rand.NewSource(7)), nil)
		if err != nil {
			t.Fatalf("BuildTopology(%d, %v): %v", tt.nodes, tt.density, err)
		}
		if net.Len() != tt.want {
			t.Fatalf("connections for n=%d d=%v: got %d, want %d", tt.nodes, tt.density, net.Len(), tt.want)
		}

		seen := make(map[[2]int]bool)
		for i, c := range net.Connections() {
			if c.Handle != Handle(i) {
				t.Fatalf("handle mismatch: got %d, want %d", c.Handle, i)
			}
			if c.SourceID >= c.DestID {
				t.Fatalf("connection %d not ordered: %d-%d", i, c.SourceID, c.DestID)
			}
			key := [2]int{c.SourceID, c.DestID}
			if seen[key] {
				t.Fatalf("duplicate pair %v", key)
			}
			seen[key] = true

			m := c.Live
			if m.LatencyMs < 50 || m.LatencyMs >= 100 || m.BandwidthKbps < 5000 || m.BandwidthKbps >= 10000 ||
				m.PacketLoss < 0 || m.PacketLoss >= 0.05 || m.JitterMs < 0 || m.JitterMs >= 10 {
				t.Fatalf("initial metrics out of range: %+v", m)
			}
		}
	}
}

func TestBuildTopologyRejectsInvalidInput(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	if _, err := BuildTopology(1, 0.5, rng, nil); !errors.Is(err, ErrInvalidNodeCount) {
		t.Fatalf("n=1 error = %v, want ErrInvalidNodeCount", err)
	}
	if _, err := BuildTopology(0, 0.5, rng, nil); !errors.Is(err, ErrInvalidNodeCount) {
		t.Fatalf("n=0 error = %v, want ErrInvalidNodeCount", err)
	}
	for _, d := range []float64{-0.1, 1.5, math.NaN()} {
		if _, err := BuildTopology(10, d, rng, nil); !errors.Is(err, ErrInvalidDensity) {
			t.Fatalf("density %v error = %v, want ErrInvalidDensity", d, err)
		}
	}
}

func TestBuildTopologyDeterministic(t *testing.T) {
	a, err := BuildTopology(30, 0.2, rand.New(rand.NewSource(99)), nil)
	if err != nil {
		t.Fatalf("BuildTopology: %v", err)
	}
	b, err := BuildTopology(30, 0.2, rand.New(rand.NewSource(99)), nil)
	if err != nil {
		t.Fatalf("BuildTopology: %v", err)
	}
	ca, cb := a.Connections(), b.Connections()
	for i := range ca {
		if ca[i].SourceID != cb[i].SourceID || ca[i].DestID != cb[i].DestID || ca[i].Live != cb[i].Live {
			t.Fatalf("connection %d differs between identical seeds: %+v vs %+v", i, ca[i], cb[i])
		}
	}
}

func TestAttachEngineUnknownHandle(t *testing.T) {
	net := newTestNetwork(1, []model.NodeType{model.Datacenter, model.Datacenter}, [][2]int{{0, 1}})
	if err := net.AttachEngine(5, &fakeEngine{}); !errors.Is(err, ErrUnknownHandle) {
		t.Fatalf("AttachEngine error = %v, want ErrUnknownHandle", err)
	}
	if _, ok := net.Connection(-1); ok {
		t.Fatalf("Connection(-1) found, want none")
	}
}
