package core

import (
	"github.com/signalsfoundry/adaptive-network-simulator/model"
)

// Handle is the stable index of a connection inside a Network. Handles are
// assigned in creation order starting at zero and never change for the
// lifetime of the topology.
type Handle int

// Metrics is the tuple of link conditions carried by a connection.
type Metrics struct {
	LatencyMs     float64
	BandwidthKbps float64
	// PacketLoss is a fraction in [0,1].
	PacketLoss float64
	JitterMs   float64
}

// AdaptationState tracks where a connection is in the adaptation cycle.
type AdaptationState int

const (
	Unadapted AdaptationState = iota
	Adapting
	Adapted
)

func (s AdaptationState) String() string {
	switch s {
	case Adapting:
		return "adapting"
	case Adapted:
		return "adapted"
	default:
		return "unadapted"
	}
}

// Connection is a bidirectional link between two nodes. SourceID is always
// the smaller node ID.
type Connection struct {
	Handle   Handle
	SourceID int
	DestID   int

	// Base holds the conditions produced by scenario evolution for the
	// current tick. Live is Base after the active protocol transform and is
	// what gets reported.
	Base Metrics
	Live Metrics

	AdaptationEnabled bool
	State             AdaptationState
	Active            *model.GeneratedProtocol

	// Flags are the auxiliary condition samples raised by the current
	// scenario (asymmetric, handover, high_latency).
	Flags []model.Condition
}

// ActiveProtocolName returns the name of the active protocol or "".
func (c *Connection) ActiveProtocolName() string {
	if c.Active == nil {
		return ""
	}
	return c.Active.Name
}

// TransferTimeMs estimates the time to move the reference payload over the
// live link with the active protocol.
func (c *Connection) TransferTimeMs() float64 {
	return TransferTimeMs(c.Live, c.Active)
}

func (c *Connection) clone() Connection {
	out := *c
	if c.Flags != nil {
		out.Flags = append([]model.Condition(nil), c.Flags...)
	}
	return out
}
