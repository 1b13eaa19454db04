package model

import "fmt"

// NodeType is the role a node plays in the synthetic network.
type NodeType int

const (
	Datacenter NodeType = iota
	EdgeServer
	MobileDevice
	ClientDevice
)

// String returns the lowercase label used in node names and reports.
func (t NodeType) String() string {
	switch t {
	case Datacenter:
		return "datacenter"
	case EdgeServer:
		return "edge"
	case MobileDevice:
		return "mobile"
	case ClientDevice:
		return "client"
	default:
		return fmt.Sprintf("NodeType(%d)", int(t))
	}
}

// Position is a point on the simulation plane, in abstract units.
type Position struct {
	X float64
	Y float64
}

// Node is a network endpoint. ID, Name and Type never change after
// construction; only Position moves for mobile devices.
type Node struct {
	ID       int
	Name     string
	Type     NodeType
	Position Position
}

// IsMobile reports whether the node is subject to the mobility model.
func (n Node) IsMobile() bool {
	return n.Type == MobileDevice
}

// NodeName formats the canonical name for a node of the given type and id.
func NodeName(t NodeType, id int) string {
	return fmt.Sprintf("%s_%d", t, id)
}
