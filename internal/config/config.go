// Package config provides configuration loading with layered overrides.
// Load order: defaults -> YAML file -> environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// Config is the root configuration structure for the analyzer.
type Config struct {
	LogLevel string        `koanf:"loglevel" yaml:"log_level"`
	LogFile  LogFileConfig `koanf:"logfile"`

	Input    InputConfig    `koanf:"input"`
	Pipeline PipelineConfig `koanf:"pipeline"`
	Cache    CacheConfig    `koanf:"cache"`
	State    StateConfig    `koanf:"state"`
	Sink     SinkConfig     `koanf:"sink"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	Enrich   EnrichConfig   `koanf:"enrich"`
}

// LogFileConfig configures optional rotated file logging.
type LogFileConfig struct {
	Enabled    bool   `koanf:"enabled"`
	Path       string `koanf:"path"`
	MaxSizeMB  int    `koanf:"maxsizemb" yaml:"max_size_mb"`
	MaxBackups int    `koanf:"maxbackups" yaml:"max_backups"`
	MaxAgeDays int    `koanf:"maxagedays" yaml:"max_age_days"`
	Compress   bool   `koanf:"compress"`
}

// InputConfig describes where log files are discovered.
type InputConfig struct {
	// RootDir contains date-named subdirectories (YYYYMMDD or YYYY-MM-DD).
	RootDir string `koanf:"rootdir" yaml:"root_dir"`

	// Pattern matches log file names inside each date directory.
	Pattern string `koanf:"pattern"`

	// Exclude lists file name patterns to skip.
	Exclude []string `koanf:"exclude"`

	// StableFor is how long a file's size/mtime must be unchanged before it
	// is considered fully written.
	StableFor time.Duration `koanf:"stablefor" yaml:"stable_for"`
}

// PipelineConfig controls the worker pool and batching behavior.
type PipelineConfig struct {
	Workers         int           `koanf:"workers"`
	BatchSize       int           `koanf:"batchsize" yaml:"batch_size"`
	ScanInterval    time.Duration `koanf:"scaninterval" yaml:"scan_interval"`
	MonitorInterval time.Duration `koanf:"monitorinterval" yaml:"monitor_interval"`
	MaintainEvery   time.Duration `koanf:"maintainevery" yaml:"maintain_every"`
	ShutdownTimeout time.Duration `koanf:"shutdowntimeout" yaml:"shutdown_timeout"`
}

// CacheConfig bounds the per-worker parse caches.
type CacheConfig struct {
	UserAgentCapacity int `koanf:"useragentcapacity" yaml:"user_agent_capacity"`
	URICapacity       int `koanf:"uricapacity" yaml:"uri_capacity"`
}

// StateConfig locates the incremental processing ledger.
type StateConfig struct {
	Path string `koanf:"path"`

	// CheckpointEvery persists the ledger after this many file transitions
	// in addition to the write after every transition.
	CheckpointEvery int `koanf:"checkpointevery" yaml:"checkpoint_every"`
}

// SinkConfig selects and configures the batch destination.
type SinkConfig struct {
	// Kind is "clickhouse", "elasticsearch" or "stdout".
	Kind string `koanf:"kind"`

	// Connections is the fixed size of the sink connection pool.
	Connections int `koanf:"connections"`

	RawTable      string `koanf:"rawtable" yaml:"raw_table"`
	EnrichedTable string `koanf:"enrichedtable" yaml:"enriched_table"`

	ClickHouse    ClickHouseConfig    `koanf:"clickhouse"`
	Elasticsearch ElasticsearchConfig `koanf:"elasticsearch"`
}

// ClickHouseConfig configures the reference warehouse sink.
type ClickHouseConfig struct {
	Addresses   []string      `koanf:"addresses"`
	Database    string        `koanf:"database"`
	Username    string        `koanf:"username"`
	Password    string        `koanf:"password"`
	DialTimeout time.Duration `koanf:"dialtimeout" yaml:"dial_timeout"`
	Compression bool          `koanf:"compression"`
}

// ElasticsearchConfig configures the alternate bulk sink.
type ElasticsearchConfig struct {
	Addresses     []string      `koanf:"addresses"`
	Username      string        `koanf:"username"`
	Password      string        `koanf:"password"`
	FlushInterval time.Duration `koanf:"flushinterval" yaml:"flush_interval"`
}

// MetricsConfig configures the Prometheus exposition endpoint.
type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Address string `koanf:"address"`
}

// EnrichConfig carries the documented heuristic tunables. The ratio values
// are intentional as shipped; they are configurable, not derived.
type EnrichConfig struct {
	// Phase estimation ratios applied when upstream timings are absent.
	EstimateBackendRatio float64 `koanf:"estimatebackendratio" yaml:"estimate_backend_ratio"`
	EstimateHeaderRatio  float64 `koanf:"estimateheaderratio" yaml:"estimate_header_ratio"`
	EstimateConnectRatio float64 `koanf:"estimateconnectratio" yaml:"estimate_connect_ratio"`

	// APDEX thresholds, milliseconds.
	ApdexSatisfiedMs int64 `koanf:"apdexsatisfiedms" yaml:"apdex_satisfied_ms"`
	ApdexToleratedMs int64 `koanf:"apdextoleratedms" yaml:"apdex_tolerated_ms"`

	// Anomaly thresholds.
	SlowRequestMs     int64 `koanf:"slowrequestms" yaml:"slow_request_ms"`
	VerySlowRequestMs int64 `koanf:"veryslowrequestms" yaml:"very_slow_request_ms"`
	AnomalyDurationMs int64 `koanf:"anomalydurationms" yaml:"anomaly_duration_ms"`
	AnomalyBodyBytes  int64 `koanf:"anomalybodybytes" yaml:"anomaly_body_bytes"`
}

// defaults returns the default configuration values.
func defaults() Config {
	return Config{
		LogLevel: "info",
		LogFile: LogFileConfig{
			Enabled:    false,
			Path:       "nginx-log-analyzer.log",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 7,
			Compress:   true,
		},
		Input: InputConfig{
			RootDir:   "./logs",
			Pattern:   "*.log",
			StableFor: 30 * time.Second,
		},
		Pipeline: PipelineConfig{
			Workers:         4,
			BatchSize:       1000,
			ScanInterval:    10 * time.Second,
			MonitorInterval: 60 * time.Second,
			MaintainEvery:   30 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Cache: CacheConfig{
			UserAgentCapacity: 5000,
			URICapacity:       3000,
		},
		State: StateConfig{
			Path:            "processing_state.json",
			CheckpointEvery: 10,
		},
		Sink: SinkConfig{
			Kind:          "clickhouse",
			Connections:   4,
			RawTable:      "ods_nginx_log",
			EnrichedTable: "dwd_nginx_enriched_log",
			ClickHouse: ClickHouseConfig{
				Addresses:   []string{"127.0.0.1:9000"},
				Database:    "nginx_analytics",
				DialTimeout: 10 * time.Second,
				Compression: true,
			},
			Elasticsearch: ElasticsearchConfig{
				Addresses:     []string{"http://localhost:9200"},
				FlushInterval: 5 * time.Second,
			},
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Address: ":9308",
		},
		Enrich: EnrichConfig{
			EstimateBackendRatio: 0.70,
			EstimateHeaderRatio:  0.80,
			EstimateConnectRatio: 0.10,
			ApdexSatisfiedMs:     500,
			ApdexToleratedMs:     2000,
			SlowRequestMs:        3000,
			VerySlowRequestMs:    10000,
			AnomalyDurationMs:    30000,
			AnomalyBodyBytes:     10 * 1024 * 1024,
		},
	}
}

// Load reads configuration from all sources with proper override order.
// Order: defaults -> config file -> environment variables (NLA_ prefix).
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaults(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if configPath == "" {
		for _, path := range []string{"./config.yaml", "/etc/nginx-log-analyzer/config.yaml"} {
			if _, err := os.Stat(path); err == nil {
				configPath = path
				break
			}
		}
	}
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("NLA_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "NLA_")), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints that koanf cannot express.
func (c *Config) Validate() error {
	if c.Pipeline.Workers < 1 {
		return fmt.Errorf("pipeline.workers must be >= 1, got %d", c.Pipeline.Workers)
	}
	if c.Pipeline.BatchSize < 1 {
		return fmt.Errorf("pipeline.batch_size must be >= 1, got %d", c.Pipeline.BatchSize)
	}
	if c.Sink.Connections < 1 {
		return fmt.Errorf("sink.connections must be >= 1, got %d", c.Sink.Connections)
	}
	switch c.Sink.Kind {
	case "clickhouse", "elasticsearch", "stdout":
	default:
		return fmt.Errorf("sink.kind must be clickhouse, elasticsearch or stdout, got %q", c.Sink.Kind)
	}
	if c.Cache.UserAgentCapacity < 2 || c.Cache.URICapacity < 2 {
		return fmt.Errorf("cache capacities must be >= 2")
	}
	r := c.Enrich
	for _, ratio := range []float64{r.EstimateBackendRatio, r.EstimateHeaderRatio, r.EstimateConnectRatio} {
		if ratio < 0 || ratio > 1 {
			return fmt.Errorf("enrich estimation ratios must be within [0,1]")
		}
	}
	return nil
}
