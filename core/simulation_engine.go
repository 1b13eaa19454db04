package core

import (
	"context"
	"time"
)

// TickEvent is delivered to tick listeners after all phases of a tick ran.
type TickEvent struct {
	Index   int
	SimTime time.Time
	Update  UpdateResult
}

// SimulationEngine runs the per-tick phases over a Network in a fixed order:
// evolve conditions, adapt protocols, move nodes, then notify listeners.
type SimulationEngine struct {
	Network *Network
	Motion  MotionModel

	ticks         int
	tickListeners []func(TickEvent)
}

// NewSimulationEngine wraps a network. A nil motion model keeps nodes static.
func NewSimulationEngine(n *Network, motion MotionModel) *SimulationEngine {
	if motion == nil {
		motion = StaticMotionModel{}
	}
	return &SimulationEngine{
		Network: n,
		Motion:  motion,
	}
}

// RegisterTickListener adds a callback invoked at the end of each tick.
func (se *SimulationEngine) RegisterTickListener(fn func(TickEvent)) {
	se.tickListeners = append(se.tickListeners, fn)
}

// ResetTicks restarts the tick index, typically at the start of a scenario run.
func (se *SimulationEngine) ResetTicks() { se.ticks = 0 }

// Step executes one tick. Mobility errors are returned after listeners have
// been notified so that the metrics for the tick are still recorded.
func (se *SimulationEngine) Step(ctx context.Context, simTime time.Time, dt time.Duration) (TickEvent, error) {
	if se.Network == nil {
		return TickEvent{}, ErrNoTopology
	}
	se.Network.Tick()

	var update UpdateResult
	if se.Network.AdaptationEnabled() {
		update = se.Network.UpdateProtocols(ctx)
	}

	moveErr := se.Motion.Step(se.Network.Registry(), dt)

	ev := TickEvent{Index: se.ticks, SimTime: simTime, Update: update}
	se.ticks++
	for _, fn := range se.tickListeners {
		fn(ev)
	}
	return ev, moveErr
}

// Run executes ticks steps back to back, stopping early if ctx is done.
func (se *SimulationEngine) Run(ctx context.Context, start time.Time, dt time.Duration, ticks int) error {
	simTime := start
	for i := 0; i < ticks; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		simTime = simTime.Add(dt)
		if _, err := se.Step(ctx, simTime, dt); err != nil {
			return err
		}
	}
	return nil
}
