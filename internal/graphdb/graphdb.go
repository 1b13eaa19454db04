// Package graphdb exports the simulated topology to a Neo4j graph so it can
// be inspected with Cypher after a run.
package graphdb

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/signalsfoundry/adaptive-network-simulator/core"
	"github.com/signalsfoundry/adaptive-network-simulator/internal/config"
	"github.com/signalsfoundry/adaptive-network-simulator/internal/logging"
	"github.com/signalsfoundry/adaptive-network-simulator/model"
)

// Querier runs a single write statement.
type Querier interface {
	Query(ctx context.Context, cypher string, params map[string]any) error
}

// Neo4jQuerier executes statements through the Neo4j driver.
type Neo4jQuerier struct {
	driver   neo4j.DriverWithContext
	database string
}

// Connect opens a driver for cfg and verifies connectivity.
func Connect(ctx context.Context, cfg config.Neo4jConfig) (*Neo4jQuerier, error) {
	// URI examples: "neo4j://localhost", "neo4j+s://xxx.databases.neo4j.io"
	auth := neo4j.NoAuth()
	if cfg.User != "" && cfg.Password != "" {
		auth = neo4j.BasicAuth(cfg.User, cfg.Password, "")
	}
	driver, err := neo4j.NewDriverWithContext(cfg.URI, auth)
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("verify neo4j connectivity: %w", err)
	}
	db := cfg.Database
	if db == "" {
		db = "neo4j"
	}
	return &Neo4jQuerier{driver: driver, database: db}, nil
}

// Query implements Querier.
func (q *Neo4jQuerier) Query(ctx context.Context, cypher string, params map[string]any) error {
	_, err := neo4j.ExecuteQuery(ctx, q.driver, cypher,
		params, neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(q.database))
	return err
}

// Close releases the driver.
func (q *Neo4jQuerier) Close(ctx context.Context) error {
	return q.driver.Close(ctx)
}

const (
	clearStatement      = `MATCH (n:SimNode) DETACH DELETE n`
	constraintStatement = `CREATE CONSTRAINT uniq_sim_node_id IF NOT EXISTS
		FOR (n:SimNode)
		REQUIRE n.id IS UNIQUE`
	nodesStatement = `UNWIND $nodes AS node
		CREATE (n:SimNode {id: node.id, name: node.name, type: node.type, x: node.x, y: node.y})`
	linksStatement = `UNWIND $links AS link
		MATCH (a:SimNode {id: link.source}), (b:SimNode {id: link.dest})
		CREATE (a)-[:LINK {
			handle: link.handle,
			latency_ms: link.latency_ms,
			bandwidth_kbps: link.bandwidth_kbps,
			packet_loss: link.packet_loss,
			jitter_ms: link.jitter_ms,
			distance: link.distance,
			protocol: link.protocol
		}]->(b)`
)

// Exporter replaces the stored graph with a snapshot of a network.
type Exporter struct {
	q   Querier
	log logging.Logger
}

// NewExporter wraps q. A nil logger is replaced with a no-op logger.
func NewExporter(q Querier, log logging.Logger) *Exporter {
	if log == nil {
		log = logging.Noop()
	}
	return &Exporter{q: q, log: log}
}

// Export clears previously exported nodes and writes every node and
// connection of n.
func (e *Exporter) Export(ctx context.Context, n *core.Network) error {
	if n == nil {
		return core.ErrNoTopology
	}
	nodes := n.Registry().List()
	conns := n.Connections()

	for _, stmt := range []struct {
		cypher string
		params map[string]any
	}{
		{clearStatement, map[string]any{}},
		{constraintStatement, map[string]any{}},
		{nodesStatement, map[string]any{"nodes": NodeParams(nodes)}},
		{linksStatement, map[string]any{"links": LinkParams(nodes, conns)}},
	} {
		if err := e.q.Query(ctx, stmt.cypher, stmt.params); err != nil {
			return fmt.Errorf("export topology: %w", err)
		}
	}

	e.log.Info(ctx, "exported topology to graph database",
		logging.Int("nodes", len(nodes)),
		logging.Int("links", len(conns)),
	)
	return nil
}

// NodeParams converts nodes into statement parameters.
func NodeParams(nodes []model.Node) []map[string]any {
	out := make([]map[string]any, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, map[string]any{
			"id":   int64(n.ID),
			"name": n.Name,
			"type": n.Type.String(),
			"x":    n.Position.X,
			"y":    n.Position.Y,
		})
	}
	return out
}

// LinkParams converts connections into statement parameters. Distance is
// measured between the endpoints' current positions; it is 0 when either
// endpoint is missing from nodes.
func LinkParams(nodes []model.Node, conns []core.Connection) []map[string]any {
	pos := make(map[int]model.Position, len(nodes))
	for _, n := range nodes {
		pos[n.ID] = n.Position
	}

	out := make([]map[string]any, 0, len(conns))
	for _, c := range conns {
		var dist float64
		a, okA := pos[c.SourceID]
		b, okB := pos[c.DestID]
		if okA && okB {
			dist = core.Distance(a, b)
		}
		out = append(out, map[string]any{
			"handle":         int64(c.Handle),
			"source":         int64(c.SourceID),
			"dest":           int64(c.DestID),
			"latency_ms":     c.Live.LatencyMs,
			"bandwidth_kbps": c.Live.BandwidthKbps,
			"packet_loss":    c.Live.PacketLoss,
			"jitter_ms":      c.Live.JitterMs,
			"distance":       dist,
			"protocol":       c.ActiveProtocolName(),
		})
	}
	return out
}
