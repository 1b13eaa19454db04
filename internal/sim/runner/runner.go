// Package runner drives complete simulations: it builds the topology, runs
// every scenario once without adaptation and once with it, and hands the
// finished report to the configured sinks.
package runner

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/adaptive-network-simulator/core"
	"github.com/signalsfoundry/adaptive-network-simulator/internal/config"
	"github.com/signalsfoundry/adaptive-network-simulator/internal/engine"
	"github.com/signalsfoundry/adaptive-network-simulator/internal/logging"
	"github.com/signalsfoundry/adaptive-network-simulator/internal/observability"
	"github.com/signalsfoundry/adaptive-network-simulator/internal/scenario"
	"github.com/signalsfoundry/adaptive-network-simulator/internal/sim/metrics"
	"github.com/signalsfoundry/adaptive-network-simulator/internal/sim/state"
	"github.com/signalsfoundry/adaptive-network-simulator/kb"
	"github.com/signalsfoundry/adaptive-network-simulator/model"
	"github.com/signalsfoundry/adaptive-network-simulator/timectrl"
)

var (
	// ErrUnknownScenario is returned when a requested scenario is not in the catalog.
	ErrUnknownScenario = errors.New("unknown scenario")
	// ErrNotInitialized is returned when running before Initialize succeeded.
	ErrNotInitialized = errors.New("simulator not initialized")
)

// Recorder receives simulation metrics. *observability.SimCollector
// implements it.
type Recorder interface {
	SetTopology(nodes, connections int)
	ObserveTick(mode metrics.Mode, adapted int, u core.UpdateResult)
	ObserveScenario(sm metrics.ScenarioMetrics)
}

// StatusReporter is told when a run starts and ends.
type StatusReporter interface {
	SetServing(serving bool)
}

// Sink consumes a finished run report.
type Sink interface {
	Write(ctx context.Context, r metrics.RunReport) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, r metrics.RunReport) error

func (f SinkFunc) Write(ctx context.Context, r metrics.RunReport) error { return f(ctx, r) }

// TopologyExporter receives the network once a run finishes.
type TopologyExporter interface {
	Export(ctx context.Context, n *core.Network) error
}

type namedSink struct {
	name string
	sink Sink
}

// Simulator owns one topology and its scenario results.
type Simulator struct {
	cfg       config.Config
	log       logging.Logger
	factory   engine.Factory
	models    []model.PhysicsModel
	recorder  Recorder
	status    StatusReporter
	tracer    trace.Tracer
	sinks     []namedSink
	exporters []TopologyExporter
	wallClock func() time.Time

	registry *kb.NodeRegistry
	network  *core.Network
	sim      *core.SimulationEngine
	clock    *timectrl.TimeController
	catalog  *scenario.Catalog
	agg      *metrics.Aggregator
	mode     metrics.Mode

	mu   sync.RWMutex
	last *metrics.RunReport
}

// Option customises a Simulator.
type Option func(*Simulator)

// WithLogger sets the base logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Simulator) {
		if l != nil {
			s.log = l
		}
	}
}

// WithEngineFactory replaces the reference physics engine.
func WithEngineFactory(f engine.Factory) Option {
	return func(s *Simulator) {
		if f != nil {
			s.factory = f
		}
	}
}

// WithModels registers extra physics models on every engine.
func WithModels(models ...model.PhysicsModel) Option {
	return func(s *Simulator) { s.models = append(s.models, models...) }
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Simulator) { s.recorder = r }
}

// WithStatusReporter attaches a run status reporter such as a health server.
func WithStatusReporter(r StatusReporter) Option {
	return func(s *Simulator) { s.status = r }
}

// WithTracer overrides the tracer used for run and scenario spans.
func WithTracer(t trace.Tracer) Option {
	return func(s *Simulator) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithSink adds a report sink. Sinks run in the order they were added.
func WithSink(name string, sink Sink) Option {
	return func(s *Simulator) {
		if sink != nil {
			s.sinks = append(s.sinks, namedSink{name: name, sink: sink})
		}
	}
}

// WithTopologyExporter adds a topology exporter that runs before the sinks.
func WithTopologyExporter(e TopologyExporter) Option {
	return func(s *Simulator) {
		if e != nil {
			s.exporters = append(s.exporters, e)
		}
	}
}

// WithWallClock overrides the clock used for simulation start and report timestamps.
func WithWallClock(now func() time.Time) Option {
	return func(s *Simulator) {
		if now != nil {
			s.wallClock = now
		}
	}
}

// New constructs a simulator for cfg. Nothing is built until Initialize.
func New(cfg config.Config, opts ...Option) *Simulator {
	s := &Simulator{
		cfg:       cfg,
		log:       logging.Noop(),
		factory:   engine.NewDefaultFactory(),
		tracer:    observability.Tracer(),
		wallClock: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize validates the configuration, builds the topology, attaches one
// engine per connection and loads the scenario catalog. On error the
// simulator keeps no partial state.
func (s *Simulator) Initialize(ctx context.Context) error {
	if err := s.cfg.Validate(); err != nil {
		return err
	}

	catalog := scenario.NewCatalog()
	catalog.LoadPredefined()
	if s.cfg.ScenarioFile != "" {
		n, err := catalog.LoadFile(s.cfg.ScenarioFile)
		if err != nil {
			return fmt.Errorf("load scenarios: %w", err)
		}
		s.log.Info(ctx, "loaded scenario file",
			logging.String("path", s.cfg.ScenarioFile),
			logging.Int("scenarios", n),
		)
	}

	clock := timectrl.NewTimeController(s.wallClock(), s.cfg.TickInterval, s.cfg.TimeMode())
	registry := kb.NewNodeRegistry()
	network, err := core.BuildTopology(
		s.cfg.Nodes, s.cfg.Density,
		rand.New(rand.NewSource(s.cfg.Seed)),
		registry,
		core.WithLogger(s.log),
		core.WithClock(clock.Now),
	)
	if err != nil {
		return err
	}

	agg := metrics.NewAggregator(state.NewHistoryStore())
	for _, c := range network.Connections() {
		e := s.factory()
		for _, m := range s.models {
			e.RegisterModel(m)
		}
		if err := network.AttachEngine(c.Handle, e); err != nil {
			return err
		}
		agg.RegisterConnection(c.Handle)
	}

	var motion core.MotionModel = core.StaticMotionModel{}
	if s.cfg.Mobility {
		// Separate stream so that enabling mobility leaves condition draws unchanged.
		motion = core.NewRandomWalkModel(core.DefaultMobileSpeed, rand.New(rand.NewSource(s.cfg.Seed+1)))
	}
	sim := core.NewSimulationEngine(network, motion)
	sim.RegisterTickListener(s.recordTick)

	s.catalog = catalog
	s.clock = clock
	s.registry = registry
	s.network = network
	s.sim = sim
	s.agg = agg
	s.mu.Lock()
	s.last = nil
	s.mu.Unlock()

	if s.recorder != nil {
		s.recorder.SetTopology(network.NodeCount(), network.Len())
	}
	counts := registry.CountByType()
	s.log.Info(ctx, "topology built",
		logging.Int("nodes", network.NodeCount()),
		logging.Int("connections", network.Len()),
		logging.Int("datacenters", counts[model.Datacenter]),
		logging.Int("edge_servers", counts[model.EdgeServer]),
		logging.Int("mobile_devices", counts[model.MobileDevice]),
		logging.Int("client_devices", counts[model.ClientDevice]),
		logging.Int("scenarios", catalog.Len()),
	)
	return nil
}

// recordTick appends one sample per connection after all tick phases ran.
func (s *Simulator) recordTick(ev core.TickEvent) {
	adapted := 0
	for _, c := range s.network.Connections() {
		s.agg.Record(c.Handle, state.SampleFromConnection(c, ev.SimTime))
		if c.Active != nil {
			adapted++
		}
	}
	if s.mode == metrics.ModeAdaptation {
		s.agg.RecordAdaptation(ev.Update)
	}
	if s.recorder != nil {
		s.recorder.ObserveTick(s.mode, adapted, ev.Update)
	}
}

// RunScenario runs sc for the configured duration in mode and stores the
// resulting summary.
func (s *Simulator) RunScenario(ctx context.Context, sc model.Scenario, mode metrics.Mode) (metrics.ScenarioMetrics, error) {
	if s.network == nil {
		return metrics.ScenarioMetrics{}, ErrNotInitialized
	}

	ctx, span := s.tracer.Start(ctx, "scenario.run", trace.WithAttributes(
		attribute.String("scenario", sc.Name),
		attribute.String("mode", string(mode)),
	))
	defer span.End()
	log := s.log
	if runID := logging.RunIDFromContext(ctx); runID != "" {
		log = log.With(logging.String("run_id", runID))
	}

	s.mode = mode
	s.network.SetAdaptationEnabled(mode == metrics.ModeAdaptation)
	s.network.ApplyScenario(sc)
	s.agg.BeginRun()
	s.sim.ResetTicks()

	tick := s.cfg.TickInterval
	started := time.Now()
	ticks, err := s.clock.RunFunc(ctx, s.cfg.ScenarioDuration, func(ts time.Time) error {
		_, err := s.sim.Step(ctx, ts, tick)
		return err
	})
	span.SetAttributes(attribute.Int("ticks", ticks))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return metrics.ScenarioMetrics{}, fmt.Errorf("run scenario %s (%s): %w", sc.Name, mode, err)
	}

	sm := s.agg.Collect(sc.Name, mode)
	if s.recorder != nil {
		s.recorder.ObserveScenario(sm)
	}
	log.Info(ctx, "scenario finished",
		logging.Scenario(sc.Name),
		logging.Mode(string(mode)),
		logging.Int("ticks", ticks),
		logging.Duration("elapsed", time.Since(started)),
		logging.Float("avg_latency_ms", sm.AvgLatency),
		logging.Float("avg_transfer_time_ms", sm.AvgTransferTime),
	)
	return sm, nil
}

// Run executes the baseline pass over every catalog scenario, then the
// adaptation pass, and delivers the report to the sinks. Sink failures are
// returned joined alongside the report.
func (s *Simulator) Run(ctx context.Context) (metrics.RunReport, error) {
	if s.network == nil {
		return metrics.RunReport{}, ErrNotInitialized
	}
	return s.run(ctx, s.catalog.All())
}

// RunNamed is Run restricted to the named scenarios, in the given order.
func (s *Simulator) RunNamed(ctx context.Context, names ...string) (metrics.RunReport, error) {
	if s.network == nil {
		return metrics.RunReport{}, ErrNotInitialized
	}
	scenarios := make([]model.Scenario, 0, len(names))
	for _, name := range names {
		sc, ok := s.catalog.Get(name)
		if !ok {
			return metrics.RunReport{}, fmt.Errorf("%w: %s", ErrUnknownScenario, name)
		}
		scenarios = append(scenarios, sc)
	}
	return s.run(ctx, scenarios)
}

func (s *Simulator) run(ctx context.Context, scenarios []model.Scenario) (metrics.RunReport, error) {
	ctx, log := logging.WithRunLogger(ctx, s.log)
	runID := logging.RunIDFromContext(ctx)

	ctx, span := s.tracer.Start(ctx, "simulation.run", trace.WithAttributes(
		attribute.String("run_id", runID),
		attribute.Int64("seed", s.cfg.Seed),
		attribute.Int("scenarios", len(scenarios)),
	))
	defer span.End()

	if s.status != nil {
		s.status.SetServing(true)
		defer s.status.SetServing(false)
	}

	info := metrics.RunInfo{
		RunID:       runID,
		Seed:        s.cfg.Seed,
		Nodes:       s.network.NodeCount(),
		Connections: s.network.Len(),
		StartedAt:   s.wallClock(),
	}
	log.Info(ctx, "simulation started", logging.Int("scenarios", len(scenarios)))

	// Each run reports only its own scenarios.
	s.agg.Reset()

	for _, mode := range []metrics.Mode{metrics.ModeBaseline, metrics.ModeAdaptation} {
		for _, sc := range scenarios {
			if _, err := s.RunScenario(ctx, sc, mode); err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return metrics.RunReport{}, err
			}
		}
	}
	s.network.SetAdaptationEnabled(false)

	info.FinishedAt = s.wallClock()
	report := s.agg.Report(info)
	s.mu.Lock()
	s.last = &report
	s.mu.Unlock()

	log.Info(ctx, "simulation finished",
		logging.Float("overall_improvement", report.Overall.Overall),
		logging.String("most_used_protocol", report.Usage.MostUsedProtocol),
		logging.Int("protocol_switches", report.Usage.Switches),
	)

	err := s.deliver(ctx, report)
	if err != nil {
		span.RecordError(err)
	}
	return report, err
}

func (s *Simulator) deliver(ctx context.Context, report metrics.RunReport) error {
	log := logging.FromContext(ctx)
	var errs []error
	for _, e := range s.exporters {
		if err := e.Export(ctx, s.network); err != nil {
			log.Warn(ctx, "topology export failed", logging.Err(err))
			errs = append(errs, err)
		}
	}
	for _, ns := range s.sinks {
		if err := ns.sink.Write(ctx, report); err != nil {
			log.Warn(ctx, "report sink failed", logging.String("sink", ns.name), logging.Err(err))
			errs = append(errs, fmt.Errorf("sink %s: %w", ns.name, err))
		}
	}
	return errors.Join(errs...)
}

// LastReport returns the report of the most recent completed run.
func (s *Simulator) LastReport() (metrics.RunReport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return metrics.RunReport{}, false
	}
	return *s.last, true
}

// Registry returns the node registry, or nil before Initialize.
func (s *Simulator) Registry() *kb.NodeRegistry { return s.registry }

// Network returns the built network, or nil before Initialize.
func (s *Simulator) Network() *core.Network { return s.network }

// Catalog returns the scenario catalog, or nil before Initialize.
func (s *Simulator) Catalog() *scenario.Catalog { return s.catalog }

// Aggregator returns the metrics aggregator, or nil before Initialize.
func (s *Simulator) Aggregator() *metrics.Aggregator { return s.agg }

// Config returns the configuration the simulator was built with.
func (s *Simulator) Config() config.Config { return s.cfg }
