package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/signalsfoundry/adaptive-network-simulator/internal/config"
	"github.com/signalsfoundry/adaptive-network-simulator/internal/graphdb"
	"github.com/signalsfoundry/adaptive-network-simulator/internal/httpapi"
	"github.com/signalsfoundry/adaptive-network-simulator/internal/logging"
	"github.com/signalsfoundry/adaptive-network-simulator/internal/observability"
	"github.com/signalsfoundry/adaptive-network-simulator/internal/publish"
	"github.com/signalsfoundry/adaptive-network-simulator/internal/sim/metrics"
	"github.com/signalsfoundry/adaptive-network-simulator/internal/sim/runner"
	"github.com/signalsfoundry/adaptive-network-simulator/internal/store"
)

// runFlags maps command-line flags onto config keys.
var runFlags = []struct {
	flag, key string
}{
	{"nodes", config.KeyNodes},
	{"density", config.KeyDensity},
	{"seed", config.KeySeed},
	{"tick-interval", config.KeyTickInterval},
	{"duration", config.KeyScenarioDuration},
	{"mode", config.KeyMode},
	{"mobility", config.KeyMobility},
	{"scenario-file", config.KeyScenarioFile},
	{"log-level", config.KeyLogLevel},
	{"log-format", config.KeyLogFormat},
	{"metrics-addr", config.KeyMetricsAddr},
	{"grpc-addr", config.KeyGRPCAddr},
	{"store", config.KeyStorePath},
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the baseline and adaptation passes over the scenario catalog",
		Long: `Run builds the topology, runs every scenario without adaptation and then
with adaptation, prints the comparison, and hands the report to the
configured sinks (SQLite store, Kafka topic, Neo4j graph).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			names, _ := cmd.Flags().GetStringSlice("scenario")
			jsonOut, _ := cmd.Flags().GetBool("json")
			serve, _ := cmd.Flags().GetBool("serve")
			if serve && cfg.MetricsAddr == "" {
				return errors.New("--serve needs --metrics-addr")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runSimulation(ctx, cfg, runOptions{names: names, jsonOut: jsonOut, serve: serve}, cmd.OutOrStdout())
		},
	}

	defaults := config.Default()
	cmd.Flags().Int("nodes", defaults.Nodes, "Number of nodes in the topology")
	cmd.Flags().Float64("density", defaults.Density, "Fraction of node pairs that are connected")
	cmd.Flags().Int64("seed", defaults.Seed, "Random seed")
	cmd.Flags().Duration("tick-interval", defaults.TickInterval, "Simulated time per tick")
	cmd.Flags().Duration("duration", defaults.ScenarioDuration, "Simulated duration of each scenario")
	cmd.Flags().String("mode", defaults.Mode, "Tick pacing: accelerated or realtime")
	cmd.Flags().Bool("mobility", defaults.Mobility, "Move mobile devices during the run")
	cmd.Flags().String("scenario-file", "", "YAML file with additional scenarios")
	cmd.Flags().StringSlice("scenario", nil, "Run only the named scenarios (repeatable)")
	cmd.Flags().String("log-level", defaults.Log.Level, "Log level: debug, info, warn, error")
	cmd.Flags().String("log-format", defaults.Log.Format, "Log format: text or json")
	cmd.Flags().String("metrics-addr", "", "HTTP address for /metrics, /report and /nodes")
	cmd.Flags().String("grpc-addr", "", "TCP address for the gRPC health service")
	cmd.Flags().String("store", "", "SQLite file to persist the run report")
	cmd.Flags().Bool("serve", false, "Keep the HTTP API up after the run until interrupted")
	return cmd
}

// loadConfig resolves defaults, the config file, NETSIM_* variables and the
// flags the user actually set.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	v := config.New()
	bindFlags(v, cmd)
	path, _ := cmd.Flags().GetString("config")
	return config.Load(v, path)
}

func bindFlags(v *viper.Viper, cmd *cobra.Command) {
	for _, f := range runFlags {
		if fl := cmd.Flags().Lookup(f.flag); fl != nil {
			_ = v.BindPFlag(f.key, fl)
		}
	}
}

// runOptions are the run command settings that are not part of config.Config.
type runOptions struct {
	names   []string
	jsonOut bool
	// serve keeps the HTTP API up after the run until ctx is done.
	serve bool
}

func runSimulation(ctx context.Context, cfg config.Config, ro runOptions, out io.Writer) error {
	log := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFrom(cfg.Tracing), log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	collector, err := observability.NewSimCollector(prometheus.NewRegistry())
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	opts := []runner.Option{
		runner.WithLogger(log),
		runner.WithRecorder(collector),
	}

	if cfg.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return fmt.Errorf("listen for gRPC on %s: %w", cfg.GRPCAddr, err)
		}
		health := observability.NewHealthServer(collector, log)
		go func() {
			if err := health.Serve(lis); err != nil {
				log.Warn(ctx, "gRPC health server exited", logging.Err(err))
			}
		}()
		defer health.Stop()
		opts = append(opts, runner.WithStatusReporter(health))
	}

	var runs httpapi.RunReader
	if cfg.Store.Path != "" {
		st, err := store.Open(ctx, cfg.Store.Path)
		if err != nil {
			return err
		}
		defer st.Close()
		runs = st
		opts = append(opts, runner.WithSink("sqlite", runner.SinkFunc(st.SaveRun)))
	}

	if cfg.Kafka.Enabled() {
		w, err := publish.NewKafkaWriter(cfg.Kafka)
		if err != nil {
			return err
		}
		pub := publish.New(w, log)
		defer pub.Close()
		opts = append(opts, runner.WithSink("kafka", runner.SinkFunc(pub.Publish)))
	}

	if cfg.Neo4j.Enabled() {
		q, err := graphdb.Connect(ctx, cfg.Neo4j)
		if err != nil {
			log.Warn(ctx, "skipping topology export", logging.String("uri", cfg.Neo4j.URI), logging.Err(err))
		} else {
			defer q.Close(context.Background())
			opts = append(opts, runner.WithTopologyExporter(graphdb.NewExporter(q, log)))
		}
	}

	sim := runner.New(cfg, opts...)
	if err := sim.Initialize(ctx); err != nil {
		return err
	}

	if cfg.MetricsAddr != "" {
		srv := httpapi.NewServer(cfg.MetricsAddr, httpapi.Deps{
			Metrics:  collector.Handler(),
			Reports:  sim,
			Runs:     runs,
			Registry: sim.Registry(),
			Log:      log,
		})
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Warn(context.Background(), "http server exited", logging.Err(err))
			}
		}()
		log.Info(ctx, "serving http api", logging.String("addr", cfg.MetricsAddr))
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	var (
		rep    metrics.RunReport
		runErr error
	)
	if len(ro.names) > 0 {
		rep, runErr = sim.RunNamed(ctx, ro.names...)
	} else {
		rep, runErr = sim.Run(ctx)
	}
	if rep.RunID == "" {
		return runErr
	}

	// A report with an ID is complete even when a sink failed.
	if err := writeReport(out, rep, ro.jsonOut); err != nil {
		return errors.Join(runErr, err)
	}
	if ro.serve && cfg.MetricsAddr != "" {
		log.Info(ctx, "run finished; serving until interrupted", logging.String("addr", cfg.MetricsAddr))
		<-ctx.Done()
	}
	return runErr
}
