package core

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/signalsfoundry/adaptive-network-simulator/internal/logging"
	"github.com/signalsfoundry/adaptive-network-simulator/kb"
	"github.com/signalsfoundry/adaptive-network-simulator/model"
)

var (
	// ErrInvalidNodeCount is returned when a topology has fewer than two nodes.
	ErrInvalidNodeCount = errors.New("invalid node count")
	// ErrInvalidDensity is returned when density is outside [0,1].
	ErrInvalidDensity = errors.New("invalid connection density")
	// ErrUnknownHandle is returned for handles outside the arena.
	ErrUnknownHandle = errors.New("unknown connection handle")
	// ErrNoTopology is returned when a simulation step runs without a network.
	ErrNoTopology = errors.New("no topology built")
)

// ProtocolEngine is the contract of an external protocol synthesis engine.
// Each connection owns exactly one engine.
type ProtocolEngine interface {
	RegisterModel(m model.PhysicsModel)
	UpdateConditions(conditions []model.Condition)
	GenerateProtocol() (*model.GeneratedProtocol, bool)
}

// Network owns the nodes' types, the connection arena and the per-connection
// engines. It is not safe for concurrent mutation; the simulation loop is
// its only writer.
type Network struct {
	rng      *rand.Rand
	registry *kb.NodeRegistry
	log      logging.Logger
	now      func() time.Time

	nodeTypes []model.NodeType
	conns     []Connection
	engines   []ProtocolEngine

	scenario          *model.Scenario
	adaptationEnabled bool
}

// Option customises a Network.
type Option func(*Network)

// WithLogger sets the logger used for adaptation diagnostics.
func WithLogger(l logging.Logger) Option {
	return func(n *Network) {
		if l != nil {
			n.log = l
		}
	}
}

// WithClock overrides the timestamp source for condition samples.
func WithClock(now func() time.Time) Option {
	return func(n *Network) {
		if now != nil {
			n.now = now
		}
	}
}

// Initial connection metrics drawn at build time.
const (
	initialLatencyMs     = 50.0
	initialBandwidthKbps = 5000.0
	initialMaxPacketLoss = 0.05
	initialMaxJitterMs   = 10.0
)

// BuildTopology creates nodeCount nodes in the registry and connects a
// density fraction of all unordered node pairs. All randomness comes from
// rng. The registry is reset before the nodes are added.
func BuildTopology(nodeCount int, density float64, rng *rand.Rand, registry *kb.NodeRegistry, opts ...Option) (*Network, error) {
	if nodeCount < 2 {
		return nil, fmt.Errorf("%w: %d (need at least 2)", ErrInvalidNodeCount, nodeCount)
	}
	if math.IsNaN(density) || density < 0 || density > 1 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDensity, density)
	}
	if rng == nil {
		return nil, errors.New("build topology: nil rng")
	}
	if registry == nil {
		registry = kb.NewNodeRegistry()
	}

	n := &Network{
		rng:      rng,
		registry: registry,
		log:      logging.Noop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(n)
	}

	registry.Reset()
	n.nodeTypes = partitionNodes(nodeCount)
	for id, t := range n.nodeTypes {
		node := model.Node{
			ID:   id,
			Name: model.NodeName(t, id),
			Type: t,
			Position: model.Position{
				X: rng.Float64() * AreaSize,
				Y: rng.Float64() * AreaSize,
			},
		}
		if err := registry.Add(node); err != nil {
			return nil, fmt.Errorf("register node %d: %w", id, err)
		}
	}

	maxPairs := nodeCount * (nodeCount - 1) / 2
	target := int(math.Floor(float64(maxPairs) * density))
	seen := make(map[[2]int]struct{}, target)
	n.conns = make([]Connection, 0, target)
	for len(n.conns) < target {
		i := rng.Intn(nodeCount)
		j := rng.Intn(nodeCount)
		if i == j {
			continue
		}
		if i > j {
			i, j = j, i
		}
		key := [2]int{i, j}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		m := Metrics{
			LatencyMs:     initialLatencyMs + rng.Float64()*initialLatencyMs,
			BandwidthKbps: initialBandwidthKbps + rng.Float64()*initialBandwidthKbps,
			PacketLoss:    rng.Float64() * initialMaxPacketLoss,
			JitterMs:      rng.Float64() * initialMaxJitterMs,
		}
		n.conns = append(n.conns, Connection{
			Handle:   Handle(len(n.conns)),
			SourceID: i,
			DestID:   j,
			Base:     m,
			Live:     m,
		})
	}
	n.engines = make([]ProtocolEngine, len(n.conns))
	return n, nil
}

// partitionNodes returns node types indexed by ID: datacenters first, then
// edge servers, mobile devices and finally client devices.
func partitionNodes(total int) []model.NodeType {
	dc := total / 10
	edge := total / 5
	mobile := total / 3
	client := total - dc - edge - mobile

	types := make([]model.NodeType, 0, total)
	for _, bucket := range []struct {
		t     model.NodeType
		count int
	}{
		{model.Datacenter, dc},
		{model.EdgeServer, edge},
		{model.MobileDevice, mobile},
		{model.ClientDevice, client},
	} {
		for range bucket.count {
			types = append(types, bucket.t)
		}
	}
	return types
}

// Registry returns the node registry backing this network.
func (n *Network) Registry() *kb.NodeRegistry { return n.registry }

// NodeCount returns the number of nodes.
func (n *Network) NodeCount() int { return len(n.nodeTypes) }

// Len returns the number of connections.
func (n *Network) Len() int { return len(n.conns) }

// NodeType returns the type of the node with the given ID.
func (n *Network) NodeType(id int) (model.NodeType, bool) {
	if id < 0 || id >= len(n.nodeTypes) {
		return 0, false
	}
	return n.nodeTypes[id], true
}

// Connection returns a copy of the connection behind h.
func (n *Network) Connection(h Handle) (Connection, bool) {
	if int(h) < 0 || int(h) >= len(n.conns) {
		return Connection{}, false
	}
	return n.conns[h].clone(), true
}

// Connections returns copies of every connection in handle order.
func (n *Network) Connections() []Connection {
	out := make([]Connection, len(n.conns))
	for i := range n.conns {
		out[i] = n.conns[i].clone()
	}
	return out
}

// Scenario returns the scenario currently applied, if any.
func (n *Network) Scenario() (model.Scenario, bool) {
	if n.scenario == nil {
		return model.Scenario{}, false
	}
	return *n.scenario, true
}

// AttachEngine installs the engine owned by connection h.
func (n *Network) AttachEngine(h Handle, e ProtocolEngine) error {
	if int(h) < 0 || int(h) >= len(n.conns) {
		return fmt.Errorf("%w: %d", ErrUnknownHandle, h)
	}
	n.engines[h] = e
	return nil
}

// AdaptationEnabled reports the network-wide adaptation flag.
func (n *Network) AdaptationEnabled() bool { return n.adaptationEnabled }

// SetAdaptationEnabled toggles adaptation on every connection. Disabling
// clears active protocols so subsequent samples reflect the raw conditions.
func (n *Network) SetAdaptationEnabled(enabled bool) {
	n.adaptationEnabled = enabled
	for i := range n.conns {
		c := &n.conns[i]
		c.AdaptationEnabled = enabled
		if !enabled {
			c.Active = nil
			c.State = Unadapted
			c.Live = c.Base
		}
	}
}

// ApplyScenario installs s and re-derives every connection's conditions from
// the structural pair table and the scenario's modifiers.
func (n *Network) ApplyScenario(s model.Scenario) {
	sc := s
	n.scenario = &sc
	ts := n.now()
	flag, hasFlag := scenarioFlag(s.Name)

	for i := range n.conns {
		c := &n.conns[i]
		c.Flags = c.Flags[:0]
		a, b := n.nodeTypes[c.SourceID], n.nodeTypes[c.DestID]
		c.Base = perturbed(n.rng, scenarioCentre(a, b, s))
		c.Live = Transform(c.Base, c.Active)
		if hasFlag {
			c.Flags = append(c.Flags, model.Condition{Name: flag, Value: 1, Timestamp: ts})
		}
	}
}

// Tick re-derives every connection's base conditions for the current
// scenario. Without a scenario it does nothing. Flags raised by
// ApplyScenario are kept.
func (n *Network) Tick() {
	if n.scenario == nil {
		return
	}
	s := *n.scenario
	for i := range n.conns {
		c := &n.conns[i]
		a, b := n.nodeTypes[c.SourceID], n.nodeTypes[c.DestID]
		c.Base = perturbed(n.rng, tickCentre(a, b, s))
		c.Live = Transform(c.Base, c.Active)
	}
}

// ProtocolSwitch records a change of active protocol on one connection.
type ProtocolSwitch struct {
	Handle Handle
	From   string
	To     string
	Family model.ProtocolFamily
}

// UpdateResult summarises one adaptation pass.
type UpdateResult struct {
	Submitted int
	Generated int
	Declined  int
	Switches  []ProtocolSwitch
	// EngineTime is the wall time spent inside engine calls.
	EngineTime time.Duration
}

// UpdateProtocols runs the adaptation cycle for every adaptation-enabled
// connection that has an engine. A declining engine leaves the connection's
// protocol untouched.
func (n *Network) UpdateProtocols(ctx context.Context) UpdateResult {
	var res UpdateResult
	ts := n.now()

	for i := range n.conns {
		c := &n.conns[i]
		eng := n.engines[i]
		if !c.AdaptationEnabled || eng == nil {
			continue
		}

		conds := NormalizedConditions(c.Base, ts)
		conds = append(conds, c.Flags...)
		conds = append(conds, DerivedFlags(c.Base, ts)...)

		prev := c.State
		c.State = Adapting
		start := time.Now()
		eng.UpdateConditions(conds)
		proto, ok := eng.GenerateProtocol()
		res.EngineTime += time.Since(start)
		res.Submitted++

		if !ok || proto == nil {
			res.Declined++
			c.State = prev
			n.log.Debug(ctx, "engine declined to generate protocol",
				logging.Connection(i),
				logging.String("active", c.ActiveProtocolName()),
			)
			continue
		}
		res.Generated++

		if c.Active == nil || c.Active.Name != proto.Name {
			res.Switches = append(res.Switches, ProtocolSwitch{
				Handle: c.Handle,
				From:   c.ActiveProtocolName(),
				To:     proto.Name,
				Family: proto.Family,
			})
			c.Active = proto
		}
		c.State = Adapted
		c.Live = Transform(c.Base, c.Active)
	}
	return res
}
