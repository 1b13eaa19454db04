package core

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/signalsfoundry/adaptive-network-simulator/kb"
)

// DefaultMobileSpeed is the speed of mobile devices in units per second.
const DefaultMobileSpeed = 10.0

// MotionModel moves registered nodes forward by a simulation step.
type MotionModel interface {
	Step(reg *kb.NodeRegistry, dt time.Duration) error
}

// StaticMotionModel leaves every node where it is.
type StaticMotionModel struct{}

// Step for static motion does nothing.
func (StaticMotionModel) Step(*kb.NodeRegistry, time.Duration) error { return nil }

// RandomWalkModel moves each mobile node at a fixed speed in a freshly drawn
// direction every step, staying inside the simulation plane.
type RandomWalkModel struct {
	Speed float64
	rng   *rand.Rand
}

// NewRandomWalkModel constructs a random-walk mobility model. It keeps its own
// RNG so enabling mobility does not change the condition evolution stream.
func NewRandomWalkModel(speed float64, rng *rand.Rand) *RandomWalkModel {
	if speed <= 0 {
		speed = DefaultMobileSpeed
	}
	return &RandomWalkModel{Speed: speed, rng: rng}
}

// Step advances every mobile node by Speed*dt.
func (m *RandomWalkModel) Step(reg *kb.NodeRegistry, dt time.Duration) error {
	if reg == nil || m.rng == nil {
		return nil
	}
	dist := m.Speed * dt.Seconds()
	for _, node := range reg.List() {
		if !node.IsMobile() {
			continue
		}
		angle := m.rng.Float64() * 2 * math.Pi
		if err := reg.UpdatePosition(node.ID, Advance(node.Position, angle, dist)); err != nil {
			return fmt.Errorf("move node %d: %w", node.ID, err)
		}
	}
	return nil
}
