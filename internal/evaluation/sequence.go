package evaluation

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/ricesearch/driftbench/internal/pkg/errors"
	"github.com/ricesearch/driftbench/internal/pkg/hash"
	"github.com/ricesearch/driftbench/internal/pkg/logger"
)

// EvaluateSequence scores snapshots in phase order: phase 0 alone, phase i
// against phase i-1. Files are parsed concurrently with at most workers in
// flight; scoring runs in order once all are loaded.
func EvaluateSequence(ctx context.Context, k int, queryPath, dataPath string, snapshots []string, workers int, log *logger.Logger) (*SequenceReport, error) {
	if len(snapshots) == 0 {
		return nil, errors.ValidationError("at least one ranking snapshot is required")
	}
	if workers < 1 {
		workers = 1
	}
	if log == nil {
		log = logger.Discard()
	}

	ds, err := LoadDataset(queryPath, dataPath)
	if err != nil {
		return nil, err
	}
	ev, err := NewEvaluator(k, ds, log)
	if err != nil {
		return nil, err
	}

	rankings := make([]*Rankings, len(snapshots))
	digests := make([]string, len(snapshots))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range snapshots {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rk, err := LoadRankings(path, ds.Queries)
			if err != nil {
				return err
			}
			sum, err := hash.File(path)
			if err != nil {
				return errors.IOError("hashing "+path, err)
			}
			rankings[i] = rk
			digests[i] = sum
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	base, err := digestInputs(map[string]string{InputQueries: queryPath, InputData: dataPath})
	if err != nil {
		return nil, err
	}

	out := &SequenceReport{Phases: make([]*Report, 0, len(snapshots))}
	for i := range snapshots {
		var previous *Rankings
		if i > 0 {
			previous = rankings[i-1]
		}

		report, err := ev.Score(rankings[i], previous)
		if err != nil {
			return nil, fmt.Errorf("phase %d (%s): %w", i, snapshots[i], err)
		}
		report.Phase = i
		report.Inputs = map[string]string{
			InputQueries:  base[InputQueries],
			InputData:     base[InputData],
			InputRankings: digests[i],
		}
		if i > 0 {
			report.Inputs[InputPrevious] = digests[i-1]
			out.MeanForget += report.Forget
			out.MeanFWT += report.FWT
		}

		log.WithPhase(i).Info("Phase scored",
			"success", report.Success,
			"recall", report.Recall,
			"mrr", report.MRR,
		)
		out.Phases = append(out.Phases, report)
	}

	if n := len(snapshots) - 1; n > 0 {
		out.MeanForget /= float64(n)
		out.MeanFWT /= float64(n)
	}

	return out, nil
}
