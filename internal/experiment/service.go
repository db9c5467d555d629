// Package experiment runs drift generation and ranking evaluation end to end:
// it loads inputs, calls the drift and evaluation packages, stores artifacts
// and reports, and announces finished runs on the event bus.
package experiment

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ricesearch/driftbench/internal/artifact"
	"github.com/ricesearch/driftbench/internal/bus"
	"github.com/ricesearch/driftbench/internal/config"
	"github.com/ricesearch/driftbench/internal/evaluation"
	"github.com/ricesearch/driftbench/internal/history"
	"github.com/ricesearch/driftbench/internal/pkg/errors"
	"github.com/ricesearch/driftbench/internal/pkg/logger"
)

// ReportStore persists evaluation reports per experiment.
type ReportStore interface {
	SaveReports(ctx context.Context, experiment string, reports []*evaluation.Report) error
	LoadReports(ctx context.Context, experiment string) ([]history.Entry, error)
	Experiments(ctx context.Context) ([]string, error)
	DeleteExperiment(ctx context.Context, experiment string) error
}

// Service coordinates one driftbench invocation.
type Service struct {
	cfg     *config.Config
	store   artifact.Store
	bus     bus.Bus     // optional
	reports ReportStore // optional
	log     *logger.Logger
	now     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithBus publishes run events on b.
func WithBus(b bus.Bus) Option {
	return func(s *Service) { s.bus = b }
}

// WithReportStore saves evaluation reports to rs.
func WithReportStore(rs ReportStore) Option {
	return func(s *Service) { s.reports = rs }
}

// WithClock overrides the time source used for manifests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a service writing artifacts to store.
func NewService(cfg *config.Config, store artifact.Store, log *logger.Logger, opts ...Option) *Service {
	if log == nil {
		log = logger.Discard()
	}
	s := &Service{
		cfg:   cfg,
		store: store,
		log:   log,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// newRunID returns a time-ordered run identifier.
func newRunID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", errors.InternalError("generating run id", err)
	}
	return id.String(), nil
}

// publish announces an event. Failures are logged and never returned.
func (s *Service) publish(ctx context.Context, topic, source, runID string, payload any) {
	if s.bus == nil {
		return
	}

	event, err := bus.NewEvent(topic, source, runID, payload)
	if err != nil {
		s.log.WithError(err).Warn("Failed to encode event", "topic", topic)
		return
	}
	if err := s.bus.Publish(ctx, topic, event); err != nil {
		s.log.WithError(err).Warn("Failed to publish event", "topic", topic, "run_id", runID)
		return
	}
	s.log.Debug("Event published", "topic", topic, "event_id", event.ID, "run_id", runID)
}
