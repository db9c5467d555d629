package experiment

import (
	"context"
	"path/filepath"
	"time"

	"github.com/ricesearch/driftbench/internal/bus"
	"github.com/ricesearch/driftbench/internal/pkg/errors"
)

// EventTopics lists the topics driftbench publishes on.
var EventTopics = []string{bus.TopicSessionsGenerated, bus.TopicEvaluationCompleted}

// Events reads the entries of an event journal recorded after since. If
// limit > 0 at most limit entries are returned.
func (s *Service) Events(path string, since time.Time, limit int) ([]bus.JournalEntry, error) {
	if path == "" {
		return nil, errors.ValidationError("event log path is required")
	}
	return bus.ReadJournal(path, since, limit)
}

// ReplayEvents republishes the journal at path onto the configured bus.
func (s *Service) ReplayEvents(ctx context.Context, path string, since time.Time) (int, error) {
	if s.bus == nil {
		return 0, errors.ValidationError("no event bus configured")
	}
	if path == "" {
		return 0, errors.ValidationError("event log path is required")
	}
	// Replaying a journal into the bus that records it would append to the
	// file being replayed.
	if own := s.cfg.Bus.EventLog; own != "" && filepath.Clean(own) == filepath.Clean(path) {
		return 0, errors.ValidationError("cannot replay the bus's own event log").
			WithDetail("path", path)
	}

	n, err := bus.ReplayJournal(ctx, path, s.bus, since)
	if err != nil {
		return n, err
	}
	s.log.Info("Events replayed", "path", path, "count", n)
	return n, nil
}

// WatchEvents calls handler for every event published on topics until ctx
// is done. An empty topic list watches all driftbench topics.
func (s *Service) WatchEvents(ctx context.Context, topics []string, handler bus.Handler) error {
	if s.bus == nil {
		return errors.ValidationError("no event bus configured")
	}
	if len(topics) == 0 {
		topics = EventTopics
	}

	for _, topic := range topics {
		if err := s.bus.Subscribe(ctx, topic, handler); err != nil {
			return err
		}
		s.log.Debug("Watching topic", "topic", topic)
	}

	<-ctx.Done()
	return nil
}
