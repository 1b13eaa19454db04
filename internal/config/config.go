// Package config loads simulator settings from defaults, an optional config
// file, NETSIM_* environment variables and bound command-line flags, in that
// order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/signalsfoundry/adaptive-network-simulator/timectrl"
)

// ErrInvalidConfig is returned by Validate and Load for unusable settings.
var ErrInvalidConfig = errors.New("invalid config")

// EnvPrefix is prepended to every environment override, e.g. NETSIM_NODES.
const EnvPrefix = "NETSIM"

// Keys accepted by the loader.
const (
	KeyNodes            = "nodes"
	KeyDensity          = "density"
	KeySeed             = "seed"
	KeyTickInterval     = "tick_interval"
	KeyScenarioDuration = "scenario_duration"
	KeyMode             = "mode"
	KeyMobility         = "mobility"
	KeyScenarioFile     = "scenario_file"
	KeyLogLevel         = "log.level"
	KeyLogFormat        = "log.format"
	KeyMetricsAddr      = "metrics_addr"
	KeyGRPCAddr         = "grpc_addr"
	KeyTracingEnabled   = "tracing.enabled"
	KeyTracingService   = "tracing.service_name"
	KeyTracingExporter  = "tracing.exporter"
	KeyTracingEndpoint  = "tracing.endpoint"
	KeyTracingRatio     = "tracing.sample_ratio"
	KeyStorePath        = "store.path"
	KeyKafkaBrokers     = "kafka.brokers"
	KeyKafkaTopic       = "kafka.topic"
	KeyNeo4jURI         = "neo4j.uri"
	KeyNeo4jUser        = "neo4j.user"
	KeyNeo4jPassword    = "neo4j.password"
	KeyNeo4jDatabase    = "neo4j.database"
)

// Config is the fully resolved simulator configuration.
type Config struct {
	Nodes            int           `mapstructure:"nodes"`
	Density          float64       `mapstructure:"density"`
	Seed             int64         `mapstructure:"seed"`
	TickInterval     time.Duration `mapstructure:"tick_interval"`
	ScenarioDuration time.Duration `mapstructure:"scenario_duration"`
	Mode             string        `mapstructure:"mode"`
	Mobility         bool          `mapstructure:"mobility"`
	ScenarioFile     string        `mapstructure:"scenario_file"`

	Log         LogConfig     `mapstructure:"log"`
	MetricsAddr string        `mapstructure:"metrics_addr"`
	GRPCAddr    string        `mapstructure:"grpc_addr"`
	Tracing     TracingConfig `mapstructure:"tracing"`
	Store       StoreConfig   `mapstructure:"store"`
	Kafka       KafkaConfig   `mapstructure:"kafka"`
	Neo4j       Neo4jConfig   `mapstructure:"neo4j"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	ServiceName string  `mapstructure:"service_name"`
	Exporter    string  `mapstructure:"exporter"`
	Endpoint    string  `mapstructure:"endpoint"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// StoreConfig points at the SQLite results database. An empty path disables
// persistence.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// KafkaConfig enables result publication when both brokers and topic are set.
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// Enabled reports whether publication is configured.
func (k KafkaConfig) Enabled() bool { return len(k.Brokers) > 0 && k.Topic != "" }

// Neo4jConfig enables topology export when URI is set.
type Neo4jConfig struct {
	URI      string `mapstructure:"uri"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

// Enabled reports whether topology export is configured.
func (n Neo4jConfig) Enabled() bool { return n.URI != "" }

// SetDefaults installs the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyNodes, 100)
	v.SetDefault(KeyDensity, 0.1)
	v.SetDefault(KeySeed, 1)
	v.SetDefault(KeyTickInterval, 100*time.Millisecond)
	v.SetDefault(KeyScenarioDuration, 2*time.Second)
	v.SetDefault(KeyMode, "accelerated")
	v.SetDefault(KeyMobility, false)
	v.SetDefault(KeyScenarioFile, "")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")
	v.SetDefault(KeyMetricsAddr, "")
	v.SetDefault(KeyGRPCAddr, "")
	v.SetDefault(KeyTracingEnabled, false)
	v.SetDefault(KeyTracingService, "netsim")
	v.SetDefault(KeyTracingExporter, "stdout")
	v.SetDefault(KeyTracingEndpoint, "")
	v.SetDefault(KeyTracingRatio, 1.0)
	v.SetDefault(KeyStorePath, "")
	v.SetDefault(KeyKafkaBrokers, []string{})
	v.SetDefault(KeyKafkaTopic, "")
	v.SetDefault(KeyNeo4jURI, "")
	v.SetDefault(KeyNeo4jUser, "neo4j")
	v.SetDefault(KeyNeo4jPassword, "")
	v.SetDefault(KeyNeo4jDatabase, "neo4j")
}

// New returns a viper instance with defaults and environment overrides
// installed. Flags can be bound onto it before Load is called.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the optional config file at path into v, decodes the result and
// validates it.
func Load(v *viper.Viper, path string) (Config, error) {
	if v == nil {
		v = New()
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: decode: %v", ErrInvalidConfig, err)
	}
	cfg.Kafka.Brokers = splitList(cfg.Kafka.Brokers)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Default returns the configuration produced by defaults alone.
func Default() Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return cfg
}

// Validate checks the simulation parameters.
func (c Config) Validate() error {
	if c.Nodes < 2 {
		return fmt.Errorf("%w: nodes must be at least 2, got %d", ErrInvalidConfig, c.Nodes)
	}
	if math.IsNaN(c.Density) || c.Density < 0 || c.Density > 1 {
		return fmt.Errorf("%w: density must be within [0,1], got %v", ErrInvalidConfig, c.Density)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("%w: tick_interval must be positive, got %s", ErrInvalidConfig, c.TickInterval)
	}
	if c.ScenarioDuration <= 0 {
		return fmt.Errorf("%w: scenario_duration must be positive, got %s", ErrInvalidConfig, c.ScenarioDuration)
	}
	if c.ScenarioDuration < c.TickInterval {
		return fmt.Errorf("%w: scenario_duration %s is shorter than one tick_interval %s", ErrInvalidConfig, c.ScenarioDuration, c.TickInterval)
	}
	if _, err := timectrl.ParseMode(c.Mode); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return fmt.Errorf("%w: tracing.sample_ratio must be within [0,1], got %v", ErrInvalidConfig, c.Tracing.SampleRatio)
	}
	return nil
}

// TimeMode returns the parsed pacing mode. Invalid modes fall back to
// accelerated; call Validate first to reject them.
func (c Config) TimeMode() timectrl.Mode {
	m, _ := timectrl.ParseMode(c.Mode)
	return m
}

// splitList flattens comma-separated entries, which is how list values
// arrive from the environment.
func splitList(in []string) []string {
	var out []string
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
