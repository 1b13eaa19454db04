// Package engine defines the protocol synthesis engine contract and a
// reference engine that scores registered physics models against the
// submitted conditions.
package engine

import (
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/signalsfoundry/adaptive-network-simulator/model"
)

// Engine synthesises a protocol from the most recent conditions.
// GenerateProtocol returning false is a decline, not an error.
type Engine interface {
	RegisterModel(m model.PhysicsModel)
	UpdateConditions(conditions []model.Condition)
	GenerateProtocol() (*model.GeneratedProtocol, bool)
}

// Factory creates one engine per connection.
type Factory func() Engine

// DefaultMinScore is the fitness below which the engine declines.
const DefaultMinScore = 0.05

// PhysicsEngine is the reference Engine. Each model's fitness is the
// weighted mean severity of the conditions it cares about, where a metric
// condition's severity is 1-value and a flag's severity is its value.
type PhysicsEngine struct {
	mu         sync.Mutex
	models     []model.PhysicsModel
	conditions []model.Condition

	minScore float64
	now      func() time.Time
	newID    func() string
}

// Option customises a PhysicsEngine.
type Option func(*PhysicsEngine)

// WithMinScore overrides the decline threshold.
func WithMinScore(v float64) Option {
	return func(e *PhysicsEngine) { e.minScore = v }
}

// WithClock overrides the generation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(e *PhysicsEngine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithIDGenerator overrides protocol ID generation.
func WithIDGenerator(fn func() string) Option {
	return func(e *PhysicsEngine) {
		if fn != nil {
			e.newID = fn
		}
	}
}

// NewPhysicsEngine returns an engine with no models registered.
func NewPhysicsEngine(opts ...Option) *PhysicsEngine {
	e := &PhysicsEngine{
		minScore: DefaultMinScore,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewDefaultFactory returns a Factory producing PhysicsEngines preloaded
// with DefaultModels.
func NewDefaultFactory(opts ...Option) Factory {
	return func() Engine {
		e := NewPhysicsEngine(opts...)
		for _, m := range DefaultModels() {
			e.RegisterModel(m)
		}
		return e
	}
}

// RegisterModel appends a model. Registration order breaks score ties.
func (e *PhysicsEngine) RegisterModel(m model.PhysicsModel) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.models = append(e.models, m)
}

// Models returns the registered model names in order.
func (e *PhysicsEngine) Models() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	names := make([]string, len(e.models))
	for i, m := range e.models {
		names[i] = m.Name
	}
	return names
}

// UpdateConditions replaces the engine's view of the link.
func (e *PhysicsEngine) UpdateConditions(conditions []model.Condition) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.conditions = append(e.conditions[:0], conditions...)
}

// Score returns the fitness of m for the current conditions, or false when
// none of the conditions is weighted by m.
func (e *PhysicsEngine) Score(m model.PhysicsModel) (float64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return score(m, e.conditions)
}

func score(m model.PhysicsModel, conditions []model.Condition) (float64, bool) {
	var weighted, total float64
	for _, c := range conditions {
		w, ok := m.ConditionWeights[c.Name]
		if !ok || w <= 0 {
			continue
		}
		v := clamp01(c.Value)
		severity := v
		if model.IsMetricCondition(c.Name) {
			severity = 1 - v
		}
		weighted += w * severity
		total += w
	}
	if total == 0 {
		return 0, false
	}
	return weighted / total, true
}

// GenerateProtocol picks the best-scoring model. It declines when no models
// are registered, when no metric condition has been submitted, or when the
// best score is below the threshold.
func (e *PhysicsEngine) GenerateProtocol() (*model.GeneratedProtocol, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.models) == 0 || !hasMetric(e.conditions) {
		return nil, false
	}

	best := -1
	bestScore := math.Inf(-1)
	for i, m := range e.models {
		s, ok := score(m, e.conditions)
		if !ok {
			continue
		}
		if s > bestScore {
			best, bestScore = i, s
		}
	}
	if best < 0 || bestScore < e.minScore {
		return nil, false
	}
	return e.build(e.models[best], bestScore), true
}

func (e *PhysicsEngine) build(m model.PhysicsModel, s float64) *model.GeneratedProtocol {
	params := make(map[string]float64, len(m.Parameters))
	for k, v := range m.Parameters {
		params[k] = v
	}
	bw := params[model.ParamBandwidthOptimization]
	lat := params[model.ParamLatencyOptimization]

	encryption := "aes-128-gcm"
	if m.Family == model.FamilyMobile || m.Family == model.FamilySatellite {
		encryption = "chacha20-poly1305"
	}

	return &model.GeneratedProtocol{
		ID:         e.newID(),
		Name:       m.Name,
		Family:     m.Family,
		Parameters: params,
		FlowControl: model.FlowControl{
			InitialWindow: 10,
			MaxWindow:     64 + int(bw*192),
			BackoffFactor: 0.5 + 0.4*(1-s),
			RetransmitMs:  20 + 200*(1-lat),
		},
		Routing: model.Routing{
			Multipath:       m.Family == model.FamilyMobile || m.Family == model.FamilyAsymmetric,
			PathProbeMs:     100 + 900*(1-s),
			FailoverEnabled: s > 0.3,
		},
		Security: model.Security{
			Encryption:   encryption,
			KeyRotationS: 3600,
		},
		GeneratedAt: e.now(),
	}
}

func hasMetric(conditions []model.Condition) bool {
	for _, c := range conditions {
		if model.IsMetricCondition(c.Name) {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
