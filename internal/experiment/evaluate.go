package experiment

import (
	"context"
	"slices"

	"github.com/ricesearch/driftbench/internal/bus"
	"github.com/ricesearch/driftbench/internal/evaluation"
	"github.com/ricesearch/driftbench/internal/history"
	"github.com/ricesearch/driftbench/internal/pkg/errors"
)

// EvaluateRequest names the inputs of one evaluation.
type EvaluateRequest struct {
	Queries  string
	Data     string
	Rankings string
	Previous string // optional prior phase
	Phase    int
}

// SweepRequest names an ordered series of phase snapshots.
type SweepRequest struct {
	Queries   string
	Data      string
	Snapshots []string
}

func (s *Service) experiment() string {
	return s.cfg.History.Experiment
}

// Evaluate scores one ranking file, records it in the report store when one
// is configured and announces it on the bus.
func (s *Service) Evaluate(ctx context.Context, req EvaluateRequest) (*evaluation.Report, error) {
	report, err := evaluation.EvaluateDataset(s.cfg.Eval.K, req.Queries, req.Data, req.Rankings, req.Previous)
	if err != nil {
		return nil, err
	}
	report.Phase = req.Phase

	runID, err := newRunID()
	if err != nil {
		return nil, err
	}
	log := s.log.WithRun(runID).WithPhase(req.Phase)
	log.Info("Evaluation complete",
		"ranked", report.NumRanked,
		"scored", report.NumScored,
		"success", report.Success,
		"mrr", report.MRR,
	)

	if err := s.saveReports(ctx, []*evaluation.Report{report}); err != nil {
		return nil, err
	}
	s.publish(ctx, bus.TopicEvaluationCompleted, "evaluate", runID, report)

	return report, nil
}

// Sweep scores snapshots as consecutive phases.
func (s *Service) Sweep(ctx context.Context, req SweepRequest) (*evaluation.SequenceReport, error) {
	runID, err := newRunID()
	if err != nil {
		return nil, err
	}
	log := s.log.WithRun(runID)

	seq, err := evaluation.EvaluateSequence(ctx, s.cfg.Eval.K, req.Queries, req.Data, req.Snapshots, s.cfg.Eval.Workers, log)
	if err != nil {
		return nil, err
	}
	log.Info("Sweep complete",
		"phases", len(seq.Phases),
		"mean_forget", seq.MeanForget,
		"mean_fwt", seq.MeanFWT,
	)

	if err := s.saveReports(ctx, seq.Phases); err != nil {
		return nil, err
	}
	for _, r := range seq.Phases {
		s.publish(ctx, bus.TopicEvaluationCompleted, "sweep", runID, r)
	}

	return seq, nil
}

// History returns the stored reports of experiment, or of the configured
// experiment when the name is empty.
func (s *Service) History(ctx context.Context, experiment string) ([]history.Entry, error) {
	if s.reports == nil {
		return nil, errors.ValidationError("report history is not enabled")
	}
	if experiment == "" {
		experiment = s.experiment()
	}
	return s.reports.LoadReports(ctx, experiment)
}

// Experiments lists the experiments with stored reports.
func (s *Service) Experiments(ctx context.Context) ([]string, error) {
	if s.reports == nil {
		return nil, errors.ValidationError("report history is not enabled")
	}
	names, err := s.reports.Experiments(ctx)
	if err != nil {
		return nil, err
	}
	slices.Sort(names)
	return names, nil
}

// DeleteExperiment removes every stored report of experiment.
func (s *Service) DeleteExperiment(ctx context.Context, experiment string) error {
	if s.reports == nil {
		return errors.ValidationError("report history is not enabled")
	}
	if experiment == "" {
		return errors.ValidationError("experiment name is required")
	}
	if err := s.reports.DeleteExperiment(ctx, experiment); err != nil {
		return err
	}
	s.log.Info("Experiment deleted", "experiment", experiment)
	return nil
}

func (s *Service) saveReports(ctx context.Context, reports []*evaluation.Report) error {
	if s.reports == nil {
		return nil
	}
	if err := s.reports.SaveReports(ctx, s.experiment(), reports); err != nil {
		return err
	}
	s.log.Debug("Reports saved", "experiment", s.experiment(), "count", len(reports))
	return nil
}
