package core

import (
	"math"

	"github.com/signalsfoundry/adaptive-network-simulator/model"
)

// AreaSize is the side length of the square simulation plane.
const AreaSize = 1000.0

// Distance returns the straight-line distance between two positions.
func Distance(a, b model.Position) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// ClampToArea pins a position onto the [0, AreaSize] square.
func ClampToArea(p model.Position) model.Position {
	return model.Position{
		X: clamp(p.X, 0, AreaSize),
		Y: clamp(p.Y, 0, AreaSize),
	}
}

// Advance moves p by dist along the heading angle (radians) and clamps the
// result onto the plane.
func Advance(p model.Position, angle, dist float64) model.Position {
	return ClampToArea(model.Position{
		X: p.X + dist*math.Cos(angle),
		Y: p.Y + dist*math.Sin(angle),
	})
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
