package graphdb

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"testing"

	"github.com/signalsfoundry/adaptive-network-simulator/core"
	"github.com/signalsfoundry/adaptive-network-simulator/kb"
	"github.com/signalsfoundry/adaptive-network-simulator/model"
)

type recordedQuery struct {
	cypher string
	params map[string]any
}

type fakeQuerier struct {
	queries []recordedQuery
	failAt  int
}

func (f *fakeQuerier) Query(_ context.Context, cypher string, params map[string]any) error {
	f.queries = append(f.queries, recordedQuery{cypher: cypher, params: params})
	if f.failAt > 0 && len(f.queries) == f.failAt {
		return errors.New("neo4j unavailable")
	}
	return nil
}

func TestExportWritesNodesAndLinks(t *testing.T) {
	n, err := core.BuildTopology(10, 0.3, rand.New(rand.NewSource(3)), kb.NewNodeRegistry())
	if err != nil {
		t.Fatalf("BuildTopology: %v", err)
	}
	q := &fakeQuerier{}
	if err := NewExporter(q, nil).Export(context.Background(), n); err != nil {
		t.Fatalf("Export: %v", err)
	}

	if len(q.queries) != 4 {
		t.Fatalf("query count mismatch: got %d, want 4", len(q.queries))
	}
	if !strings.Contains(q.queries[0].cypher, "DETACH DELETE") {
		t.Fatalf("first statement should clear the graph: %s", q.queries[0].cypher)
	}
	nodes, ok := q.queries[2].params["nodes"].([]map[string]any)
	if !ok || len(nodes) != 10 {
		t.Fatalf("node params mismatch: got %v", q.queries[2].params["nodes"])
	}
	links, ok := q.queries[3].params["links"].([]map[string]any)
	if !ok || len(links) != n.Len() {
		t.Fatalf("link params mismatch: got %d, want %d", len(links), n.Len())
	}
}

func TestExportPropagatesErrors(t *testing.T) {
	n, err := core.BuildTopology(4, 1, rand.New(rand.NewSource(1)), kb.NewNodeRegistry())
	if err != nil {
		t.Fatalf("BuildTopology: %v", err)
	}
	q := &fakeQuerier{failAt: 3}
	if err := NewExporter(q, nil).Export(context.Background(), n); err == nil {
		t.Fatalf("expected export error")
	}
	if len(q.queries) != 3 {
		t.Fatalf("export should stop at the failing statement, ran %d", len(q.queries))
	}
}

func TestExportWithoutNetwork(t *testing.T) {
	if err := NewExporter(&fakeQuerier{}, nil).Export(context.Background(), nil); !errors.Is(err, core.ErrNoTopology) {
		t.Fatalf("Export(nil) = %v, want ErrNoTopology", err)
	}
}

func TestLinkParamsDistance(t *testing.T) {
	nodes := []model.Node{
		{ID: 0, Name: "datacenter_0", Type: model.Datacenter, Position: model.Position{X: 0, Y: 0}},
		{ID: 1, Name: "client_1", Type: model.ClientDevice, Position: model.Position{X: 3, Y: 4}},
	}
	conns := []core.Connection{
		{Handle: 0, SourceID: 0, DestID: 1, Live: core.Metrics{LatencyMs: 12}},
		{Handle: 1, SourceID: 0, DestID: 7},
	}

	got := LinkParams(nodes, conns)
	if d := got[0]["distance"].(float64); d != 5 {
		t.Fatalf("distance mismatch: got %v, want 5", d)
	}
	if d := got[1]["distance"].(float64); d != 0 {
		t.Fatalf("distance to unknown node: got %v, want 0", d)
	}
	if lat := got[0]["latency_ms"].(float64); lat != 12 {
		t.Fatalf("latency mismatch: got %v, want 12", lat)
	}
	if p := got[0]["protocol"].(string); p != "" {
		t.Fatalf("protocol mismatch: got %q, want empty", p)
	}
}

func TestNodeParams(t *testing.T) {
	got := NodeParams([]model.Node{{ID: 4, Name: "edge_4", Type: model.EdgeServer, Position: model.Position{X: 1, Y: 2}}})
	if got[0]["id"].(int64) != 4 || got[0]["type"].(string) != "edge" || got[0]["y"].(float64) != 2 {
		t.Fatalf("node params mismatch: got %v", got[0])
	}
}
