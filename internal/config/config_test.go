package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad_EnvOnly(t *testing.T) {
	t.Setenv("DRIFT_METHOD", "incremental")
	t.Setenv("DRIFT_EVAL_K", "100")
	t.Setenv("DRIFT_SEED", "7")
	t.Setenv("DRIFT_LOG_LEVEL", "debug")
	t.Setenv("DRIFT_CORPUS_WORKERS", "2")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Drift.Method != "incremental" {
		t.Errorf("Drift.Method = %s, want incremental", cfg.Drift.Method)
	}

	if cfg.Eval.K != 100 {
		t.Errorf("Eval.K = %d, want 100", cfg.Eval.K)
	}

	if cfg.Drift.Seed != 7 {
		t.Errorf("Drift.Seed = %d, want 7", cfg.Drift.Seed)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %s, want debug", cfg.Log.Level)
	}

	if cfg.Corpus.Workers != 2 {
		t.Errorf("Corpus.Workers = %d, want 2", cfg.Corpus.Workers)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
drift:
  method: sudden
  partition_length: 4
  session_size: 2
corpus:
  id_field: pid
eval:
  k: 5
output:
  format: parquet
  compress: true
log:
  level: warn
  format: json
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Drift.Method != "sudden" {
		t.Errorf("Drift.Method = %s, want sudden", cfg.Drift.Method)
	}

	if cfg.Drift.PartitionLength != 4 || cfg.Drift.SessionSize != 2 {
		t.Errorf("Drift = %+v, want partition_length 4 and session_size 2", cfg.Drift)
	}

	if cfg.Corpus.IDField != "pid" {
		t.Errorf("Corpus.IDField = %s, want pid", cfg.Corpus.IDField)
	}

	// Unset keys keep their defaults.
	if cfg.Corpus.TextField != "text" {
		t.Errorf("Corpus.TextField = %s, want text", cfg.Corpus.TextField)
	}

	if cfg.Corpus.Workers != 4 {
		t.Errorf("Corpus.Workers = %d, want 4", cfg.Corpus.Workers)
	}

	if cfg.Drift.Seed != 42 {
		t.Errorf("Drift.Seed = %d, want 42", cfg.Drift.Seed)
	}

	if cfg.Eval.K != 5 {
		t.Errorf("Eval.K = %d, want 5", cfg.Eval.K)
	}

	if cfg.Output.Format != "parquet" || !cfg.Output.Compress {
		t.Errorf("Output = %+v, want parquet compressed", cfg.Output)
	}

	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %s, want warn", cfg.Log.Level)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("eval:\n  k: 5\n"), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	t.Setenv("DRIFT_EVAL_K", "20")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Eval.K != 20 {
		t.Errorf("Eval.K = %d, want 20", cfg.Eval.K)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("Load() with missing file should fail")
	}
}

func TestLoad_InvalidMethodFromEnv(t *testing.T) {
	t.Setenv("DRIFT_METHOD", "abrupt")

	_, err := Load("")
	if err == nil {
		t.Fatal("Load() with invalid method should fail")
	}
	if !strings.Contains(err.Error(), "invalid drift method") {
		t.Errorf("error = %v, want mention of invalid drift method", err)
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid defaults",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name: "invalid method",
			modify: func(c *Config) {
				c.Drift.Method = "abrupt"
			},
			wantErr: true,
		},
		{
			name: "zero partition length",
			modify: func(c *Config) {
				c.Drift.PartitionLength = 0
			},
			wantErr: true,
		},
		{
			name: "zero session size",
			modify: func(c *Config) {
				c.Drift.SessionSize = 0
			},
			wantErr: true,
		},
		{
			name: "zero corpus workers",
			modify: func(c *Config) {
				c.Corpus.Workers = 0
			},
			wantErr: true,
		},
		{
			name: "zero k",
			modify: func(c *Config) {
				c.Eval.K = 0
			},
			wantErr: true,
		},
		{
			name: "invalid output format",
			modify: func(c *Config) {
				c.Output.Format = "csv"
			},
			wantErr: true,
		},
		{
			name: "minio without bucket",
			modify: func(c *Config) {
				c.Artifacts.Type = "minio"
				c.Artifacts.Endpoint = "localhost:9000"
			},
			wantErr: true,
		},
		{
			name: "minio complete",
			modify: func(c *Config) {
				c.Artifacts.Type = "minio"
				c.Artifacts.Endpoint = "localhost:9000"
				c.Artifacts.Bucket = "drift"
			},
			wantErr: false,
		},
		{
			name: "history without redis url",
			modify: func(c *Config) {
				c.History.Enabled = true
				c.History.RedisURL = ""
			},
			wantErr: true,
		},
		{
			name: "invalid bus type",
			modify: func(c *Config) {
				c.Bus.Type = "nats"
			},
			wantErr: true,
		},
		{
			name: "invalid log level",
			modify: func(c *Config) {
				c.Log.Level = "invalid"
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			setDefaults(cfg)
			tt.modify(cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidation_AggregatesErrors(t *testing.T) {
	cfg := Default()
	cfg.Eval.K = 0
	cfg.Bus.Type = "nats"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() should fail")
	}
	msg := err.Error()
	if !strings.Contains(msg, "eval k") || !strings.Contains(msg, "bus type") {
		t.Errorf("error should list every problem, got: %s", msg)
	}
}
