// Package config handles configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	// Drift schedule configuration
	Drift DriftConfig `yaml:"drift"`

	// Corpus record layout
	Corpus CorpusConfig `yaml:"corpus"`

	// Evaluation configuration
	Eval EvalConfig `yaml:"eval"`

	// Session output configuration
	Output OutputConfig `yaml:"output"`

	// Artifact store configuration
	Artifacts ArtifactConfig `yaml:"artifacts"`

	// Report history configuration
	History HistoryConfig `yaml:"history"`

	// Bus configuration
	Bus BusConfig `yaml:"bus"`

	// Logging configuration
	Log LogConfig `yaml:"log"`
}

// DriftConfig holds schedule generation settings.
type DriftConfig struct {
	Method          string `envconfig:"DRIFT_METHOD" yaml:"method"`
	PartitionLength int    `envconfig:"DRIFT_PARTITION_LENGTH" yaml:"partition_length"`
	SessionSize     int    `envconfig:"DRIFT_SESSION_SIZE" yaml:"session_size"`
	Seed            uint64 `envconfig:"DRIFT_SEED" yaml:"seed"`
}

// CorpusConfig names the JSON fields holding record ids and text.
type CorpusConfig struct {
	IDField   string `envconfig:"DRIFT_ID_FIELD" yaml:"id_field"`
	TextField string `envconfig:"DRIFT_TEXT_FIELD" yaml:"text_field"`
	Workers   int    `envconfig:"DRIFT_CORPUS_WORKERS" yaml:"workers"` // collections loaded concurrently
}

// EvalConfig holds ranking evaluation settings.
type EvalConfig struct {
	K       int `envconfig:"DRIFT_EVAL_K" yaml:"k"`
	Workers int `envconfig:"DRIFT_EVAL_WORKERS" yaml:"workers"`
}

// OutputConfig holds session serialization settings.
type OutputConfig struct {
	Format   string `envconfig:"DRIFT_OUTPUT_FORMAT" yaml:"format"`
	Compress bool   `envconfig:"DRIFT_OUTPUT_COMPRESS" yaml:"compress"`
}

// ArtifactConfig holds artifact store settings.
type ArtifactConfig struct {
	Type      string `envconfig:"DRIFT_ARTIFACT_TYPE" yaml:"type"`
	Dir       string `envconfig:"DRIFT_ARTIFACT_DIR" yaml:"dir"`
	Endpoint  string `envconfig:"DRIFT_MINIO_ENDPOINT" yaml:"endpoint"`
	Bucket    string `envconfig:"DRIFT_MINIO_BUCKET" yaml:"bucket"`
	Prefix    string `envconfig:"DRIFT_MINIO_PREFIX" yaml:"prefix"`
	AccessKey string `envconfig:"DRIFT_MINIO_ACCESS_KEY" yaml:"access_key"`
	SecretKey string `envconfig:"DRIFT_MINIO_SECRET_KEY" yaml:"secret_key"`
	UseSSL    bool   `envconfig:"DRIFT_MINIO_USE_SSL" yaml:"use_ssl"`
}

// HistoryConfig holds Redis report history settings.
type HistoryConfig struct {
	Enabled    bool   `envconfig:"DRIFT_HISTORY_ENABLED" yaml:"enabled"`
	RedisURL   string `envconfig:"DRIFT_REDIS_URL" yaml:"redis_url"`
	Experiment string `envconfig:"DRIFT_EXPERIMENT" yaml:"experiment"`
	TTLHours   int    `envconfig:"DRIFT_HISTORY_TTL_HOURS" yaml:"ttl_hours"` // 0 = no expiry
}

// BusConfig holds event bus settings.
type BusConfig struct {
	Type         string `envconfig:"DRIFT_BUS_TYPE" yaml:"type"`
	KafkaBrokers string `envconfig:"DRIFT_KAFKA_BROKERS" yaml:"kafka_brokers"`
	KafkaGroup   string `envconfig:"DRIFT_KAFKA_GROUP" yaml:"kafka_group"`
	EventLog     string `envconfig:"DRIFT_BUS_EVENT_LOG" yaml:"event_log"` // optional JSONL journal
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `envconfig:"DRIFT_LOG_LEVEL" yaml:"level"`
	Format string `envconfig:"DRIFT_LOG_FORMAT" yaml:"format"`
}

// Load loads configuration from environment variables and optional config file.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	// Load from YAML file if provided (overrides defaults)
	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	// Override with environment variables (highest priority)
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("processing env config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

// Default returns a configuration populated with defaults.
func Default() *Config {
	cfg := &Config{}
	setDefaults(cfg)
	return cfg
}

func setDefaults(cfg *Config) {
	cfg.Drift = DriftConfig{
		Method:          "gradual",
		PartitionLength: 10,
		SessionSize:     1000,
		Seed:            42,
	}

	cfg.Corpus = CorpusConfig{
		IDField:   "id",
		TextField: "text",
		Workers:   4,
	}

	cfg.Eval = EvalConfig{
		K:       10,
		Workers: 4,
	}

	cfg.Output = OutputConfig{
		Format: "jsonl",
	}

	cfg.Artifacts = ArtifactConfig{
		Type:   "local",
		Dir:    "./sessions",
		Prefix: "driftbench/",
	}

	cfg.History = HistoryConfig{
		Enabled:    false,
		RedisURL:   "redis://localhost:6379",
		Experiment: "default",
	}

	cfg.Bus = BusConfig{
		Type: "memory",
	}

	cfg.Log = LogConfig{
		Level:  "info",
		Format: "text",
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []string

	// Drift validation
	validMethods := map[string]bool{"sudden": true, "gradual": true, "incremental": true}
	if !validMethods[c.Drift.Method] {
		errs = append(errs, fmt.Sprintf("invalid drift method: %s (must be sudden, gradual, or incremental)", c.Drift.Method))
	}

	if c.Drift.PartitionLength < 1 {
		errs = append(errs, "partition_length must be positive")
	}

	if c.Drift.SessionSize < 1 {
		errs = append(errs, "session_size must be positive")
	}

	// Corpus validation
	if c.Corpus.IDField == "" {
		errs = append(errs, "id_field must not be empty")
	}

	if c.Corpus.TextField == "" {
		errs = append(errs, "text_field must not be empty")
	}

	if c.Corpus.Workers < 1 {
		errs = append(errs, "corpus workers must be positive")
	}

	// Eval validation
	if c.Eval.K < 1 {
		errs = append(errs, "eval k must be positive")
	}

	if c.Eval.Workers < 1 {
		errs = append(errs, "eval workers must be positive")
	}

	// Output validation
	validFormats := map[string]bool{"jsonl": true, "parquet": true}
	if !validFormats[c.Output.Format] {
		errs = append(errs, fmt.Sprintf("invalid output format: %s (must be jsonl or parquet)", c.Output.Format))
	}

	// Artifact validation
	switch c.Artifacts.Type {
	case "local":
		if c.Artifacts.Dir == "" {
			errs = append(errs, "artifacts dir must be set for local store")
		}
	case "minio":
		if c.Artifacts.Endpoint == "" || c.Artifacts.Bucket == "" {
			errs = append(errs, "artifacts endpoint and bucket must be set for minio store")
		}
	default:
		errs = append(errs, fmt.Sprintf("invalid artifact store type: %s (must be local or minio)", c.Artifacts.Type))
	}

	// History validation
	if c.History.Enabled && c.History.RedisURL == "" {
		errs = append(errs, "redis_url must be set when history is enabled")
	}

	if c.History.TTLHours < 0 {
		errs = append(errs, "history ttl_hours must not be negative")
	}

	// Bus validation
	validBusTypes := map[string]bool{"memory": true, "kafka": true}
	if !validBusTypes[c.Bus.Type] {
		errs = append(errs, fmt.Sprintf("invalid bus type: %s (must be memory or kafka)", c.Bus.Type))
	}

	// Log validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Log.Level] {
		errs = append(errs, fmt.Sprintf("invalid log level: %s (must be debug, info, warn, or error)", c.Log.Level))
	}

	validLogFormats := map[string]bool{"text": true, "json": true}
	if !validLogFormats[c.Log.Format] {
		errs = append(errs, fmt.Sprintf("invalid log format: %s (must be text or json)", c.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}
