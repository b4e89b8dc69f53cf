package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"container-health/internal/health"
	"container-health/internal/source"
	"container-health/internal/util"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultPort            = 8080
	DefaultReadTimeout     = 5 * time.Second
	DefaultWriteTimeout    = 10 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 25 * time.Second
	DefaultStreamInterval  = 5 * time.Second
	DefaultLogDir          = "../log"
	DefaultLogFile         = "webService.log"
	DefaultDBPath          = "../db/metrics.db"
)

// Storage backends.
const (
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
	BackendNone   = "none"
)

// Config is the top-level service configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
	Source  SourceConfig  `yaml:"source"`
	History HistoryConfig `yaml:"history"`
	Scoring ScoringConfig `yaml:"scoring"`
	Storage StorageConfig `yaml:"storage"`
	Stream  StreamConfig  `yaml:"stream"`
}

type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Addr returns the listen address for Port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

type LogConfig struct {
	Dir    string `yaml:"dir"`
	File   string `yaml:"file"`
	Level  string `yaml:"level"`
	Stderr bool   `yaml:"stderr"`
}

// Options converts the block into util.LogOptions.
func (l LogConfig) Options() util.LogOptions {
	return util.LogOptions{Dir: l.Dir, File: l.File, Level: l.Level, Stderr: l.Stderr}
}

type SourceConfig struct {
	// Kind is one of: auto | os | cgroup-v1 | cgroup-v2 | loadavg | stub.
	Kind       source.Kind `yaml:"kind"`
	CgroupRoot string      `yaml:"cgroup_root"`
	StubSeed   int64       `yaml:"stub_seed"`
}

type HistoryConfig struct {
	// Capacity bounds each metric's history; 0 keeps every sample.
	Capacity int `yaml:"capacity"`
}

type ScoringConfig struct {
	// UptimeBonus is one of: tiered | flat.
	UptimeBonus health.UptimeBonus `yaml:"uptime_bonus"`
	Strict      bool               `yaml:"strict"`
}

// Policy converts the block into a health.Policy.
func (s ScoringConfig) Policy() health.Policy {
	return health.Policy{UptimeBonus: s.UptimeBonus, Strict: s.Strict}
}

type StorageConfig struct {
	// Backend is one of: sqlite | memory | none.
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

type StreamConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// Load reads and parses the YAML config file at path. An empty path yields
// the defaults.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Defaults returns a Config pre-populated with default values.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            DefaultPort,
			ReadTimeout:     DefaultReadTimeout,
			WriteTimeout:    DefaultWriteTimeout,
			IdleTimeout:     DefaultIdleTimeout,
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Log: LogConfig{
			Dir:   DefaultLogDir,
			File:  DefaultLogFile,
			Level: "info",
		},
		Source: SourceConfig{
			Kind:       source.KindAuto,
			CgroupRoot: source.DefaultCgroupRoot,
		},
		Scoring: ScoringConfig{UptimeBonus: health.BonusTiered},
		Storage: StorageConfig{Backend: BackendSQLite, Path: DefaultDBPath},
		Stream:  StreamConfig{Interval: DefaultStreamInterval},
	}
}

func validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout <= 0 || cfg.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server timeouts must be positive")
	}
	if _, err := util.ParseLogLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if !cfg.Log.Stderr && cfg.Log.File == "" {
		return fmt.Errorf("log.file is required unless log.stderr is set")
	}
	switch cfg.Source.Kind {
	case source.KindAuto, source.KindOS, source.KindCgroupV1, source.KindCgroupV2, source.KindLoadAvg, source.KindStub:
	default:
		return fmt.Errorf("source.kind: unknown kind %q", cfg.Source.Kind)
	}
	if cfg.History.Capacity < 0 {
		return fmt.Errorf("history.capacity must not be negative")
	}
	if err := cfg.Scoring.Policy().Validate(); err != nil {
		return fmt.Errorf("scoring: %w", err)
	}
	switch cfg.Storage.Backend {
	case BackendSQLite:
		if cfg.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for sqlite")
		}
	case BackendMemory, BackendNone:
	default:
		return fmt.Errorf("storage.backend: unknown backend %q", cfg.Storage.Backend)
	}
	if cfg.Stream.Interval <= 0 {
		return fmt.Errorf("stream.interval must be positive")
	}
	return nil
}
