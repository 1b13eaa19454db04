package observability

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"github.com/signalsfoundry/adaptive-network-simulator/core"
	"github.com/signalsfoundry/adaptive-network-simulator/internal/sim/metrics"
)

// SimCollector bundles Prometheus metrics for the simulation loop and the
// gRPC health surface.
type SimCollector struct {
	gatherer prometheus.Gatherer

	Nodes              prometheus.Gauge
	Connections        prometheus.Gauge
	AdaptedConnections prometheus.Gauge
	Ticks              *prometheus.CounterVec
	ProtocolSwitches   *prometheus.CounterVec
	EngineDuration     prometheus.Histogram
	ScenarioAverages   *prometheus.GaugeVec

	RPCRequests *prometheus.CounterVec
}

// NewSimCollector registers simulator metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
// Re-registering against the same registry reuses the existing collectors.
func NewSimCollector(reg prometheus.Registerer) (*SimCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	nodes, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_nodes",
		Help: "Number of nodes in the simulated topology.",
	}), "sim_nodes")
	if err != nil {
		return nil, err
	}
	conns, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_connections",
		Help: "Number of connections in the simulated topology.",
	}), "sim_connections")
	if err != nil {
		return nil, err
	}
	adapted, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_adapted_connections",
		Help: "Connections carrying an active generated protocol after the last tick.",
	}), "sim_adapted_connections")
	if err != nil {
		return nil, err
	}

	ticks, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sim_ticks_total",
		Help: "Simulation ticks executed, labeled by run mode.",
	}, []string{"mode"}), "sim_ticks_total")
	if err != nil {
		return nil, err
	}
	switches, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sim_protocol_switches_total",
		Help: "Active protocol changes, labeled by the family of the new protocol.",
	}, []string{"family"}), "sim_protocol_switches_total")
	if err != nil {
		return nil, err
	}

	engine, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sim_engine_generate_duration_seconds",
		Help:    "Mean time per engine call during one adaptation pass.",
		Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
	}), "sim_engine_generate_duration_seconds")
	if err != nil {
		return nil, err
	}

	averages, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sim_scenario_avg",
		Help: "Scenario summary values, labeled by scenario, mode and metric.",
	}, []string{"scenario", "mode", "metric"}), "sim_scenario_avg")
	if err != nil {
		return nil, err
	}

	requests, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sim_grpc_requests_total",
		Help: "Handled gRPC requests, labeled by service, method and status code.",
	}, []string{"service", "method", "code"}), "sim_grpc_requests_total")
	if err != nil {
		return nil, err
	}

	return &SimCollector{
		gatherer:           gatherer,
		Nodes:              nodes,
		Connections:        conns,
		AdaptedConnections: adapted,
		Ticks:              ticks,
		ProtocolSwitches:   switches,
		EngineDuration:     engine,
		ScenarioAverages:   averages,
		RPCRequests:        requests,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *SimCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// Handler exposes a ready-to-use /metrics handler.
func (c *SimCollector) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if c != nil && c.gatherer != nil {
		gatherer = c.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetTopology records the size of the built topology.
func (c *SimCollector) SetTopology(nodes, connections int) {
	if c == nil {
		return
	}
	c.Nodes.Set(float64(nodes))
	c.Connections.Set(float64(connections))
}

// ObserveTick records one executed tick. adapted is the number of
// connections with an active protocol once the tick completed.
func (c *SimCollector) ObserveTick(mode metrics.Mode, adapted int, u core.UpdateResult) {
	if c == nil {
		return
	}
	c.Ticks.WithLabelValues(string(mode)).Inc()
	c.AdaptedConnections.Set(float64(adapted))
	for _, sw := range u.Switches {
		c.ProtocolSwitches.WithLabelValues(sw.Family.String()).Inc()
	}
	if u.Submitted > 0 {
		c.EngineDuration.Observe(u.EngineTime.Seconds() / float64(u.Submitted))
	}
}

// ObserveScenario publishes a scenario summary as gauges.
func (c *SimCollector) ObserveScenario(sm metrics.ScenarioMetrics) {
	if c == nil {
		return
	}
	mode := string(sm.Mode)
	for metric, v := range map[string]float64{
		"latency_ms":       sm.AvgLatency,
		"bandwidth_kbps":   sm.AvgBandwidth,
		"packet_loss_pct":  sm.AvgPacketLoss,
		"jitter_ms":        sm.AvgJitter,
		"transfer_time_ms": sm.AvgTransferTime,
		"resilience":       sm.ResilienceScore,
		"efficiency":       sm.EfficiencyScore,
	} {
		c.ScenarioAverages.WithLabelValues(sm.Scenario, mode, metric).Set(v)
	}
}

// UnaryServerInterceptor records request counts for unary RPCs.
func (c *SimCollector) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		resp, err := handler(ctx, req)
		if c == nil || c.RPCRequests == nil {
			return resp, err
		}

		fullMethod := ""
		if info != nil {
			fullMethod = info.FullMethod
		}
		service, method := SplitMethod(fullMethod)
		c.RPCRequests.WithLabelValues(service, method, status.Code(err).String()).Inc()
		return resp, err
	}
}

// SplitMethod parses a fully-qualified gRPC method name into service and method
// components, returning "unknown"/"unknown" when parsing fails.
func SplitMethod(fullMethod string) (string, string) {
	fullMethod = strings.TrimPrefix(fullMethod, "/")
	parts := strings.Split(fullMethod, "/")
	if fullMethod == "" || len(parts) < 2 {
		return "unknown", "unknown"
	}
	service := parts[len(parts)-2]
	method := parts[len(parts)-1]
	if dot := strings.LastIndex(service, "."); dot >= 0 && dot+1 < len(service) {
		service = service[dot+1:]
	}
	if service == "" {
		service = "unknown"
	}
	if method == "" {
		method = "unknown"
	}
	return service, method
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGaugeVec(reg prometheus.Registerer, vec *prometheus.GaugeVec, name string) (*prometheus.GaugeVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
