package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/ricesearch/driftbench/internal/artifact"
	"github.com/ricesearch/driftbench/internal/bus"
	"github.com/ricesearch/driftbench/internal/config"
	"github.com/ricesearch/driftbench/internal/experiment"
	"github.com/ricesearch/driftbench/internal/history"
	"github.com/ricesearch/driftbench/internal/pkg/errors"
	"github.com/ricesearch/driftbench/internal/pkg/logger"
)

// app holds the wired dependencies of one command invocation.
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	svc     *experiment.Service
	closers []func() error
}

// loadConfig reads --config and the environment, then lets override adjust
// the result from command flags before validating it.
func loadConfig(cmd *cobra.Command, override func(*config.Config)) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(path)
	if err != nil {
		return nil, errors.Wrap(errors.CodeValidation, "loading config", err)
	}

	if override != nil {
		override(cfg)
	}
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		cfg.Log.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(errors.CodeValidation, "invalid configuration", err)
	}
	return cfg, nil
}

// newApp wires the artifact store, event bus and report history from cfg.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	a := &app{cfg: cfg, log: log}

	store, err := artifact.NewStore(ctx, cfg.Artifacts)
	if err != nil {
		return nil, err
	}

	b, err := bus.NewBus(cfg.Bus, log)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, b.Close)

	opts := []experiment.Option{experiment.WithBus(b)}
	if cfg.History.Enabled {
		ttl := time.Duration(cfg.History.TTLHours) * time.Hour
		h, err := history.NewRedisHistory(cfg.History.RedisURL, ttl)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, h.Close)
		opts = append(opts, experiment.WithReportStore(h))
	}

	a.svc = experiment.NewService(cfg, store, log, opts...)

	log.Debug("Configuration loaded",
		"method", cfg.Drift.Method,
		"artifacts", cfg.Artifacts.Type,
		"bus", cfg.Bus.Type,
		"history", cfg.History.Enabled,
	)
	return a, nil
}

// Close releases everything newApp opened, last opened first.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.WithError(err).Warn("Shutdown error")
		}
	}
	a.closers = nil
}
