// Package evaluation scores ranking snapshots against ground truth with
// Success@k, Recall@k, MRR@k and, across phases, Forget and FWT.
package evaluation

import (
	"github.com/ricesearch/driftbench/internal/pkg/errors"
	"github.com/ricesearch/driftbench/internal/pkg/hash"
	"github.com/ricesearch/driftbench/internal/pkg/logger"
)

// Input roles recorded in Report.Inputs.
const (
	InputQueries  = "queries"
	InputData     = "data"
	InputRankings = "rankings"
	InputPrevious = "previous"
)

// Evaluator scores rankings against one loaded dataset.
type Evaluator struct {
	k       int
	dataset *Dataset
	log     *logger.Logger
}

// NewEvaluator creates an evaluator with cutoff k.
func NewEvaluator(k int, dataset *Dataset, log *logger.Logger) (*Evaluator, error) {
	if k < 1 {
		return nil, errors.ValidationError("k must be positive")
	}
	if dataset == nil {
		return nil, errors.ValidationError("dataset is required")
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Evaluator{k: k, dataset: dataset, log: log}, nil
}

// K returns the cutoff.
func (e *Evaluator) K() int {
	return e.k
}

// Dataset returns the loaded evaluation dataset.
func (e *Evaluator) Dataset() *Dataset {
	return e.dataset
}

// Score computes the report for current, comparing against previous when it
// is non-nil. Rates are divided by the number of distinct evaluation queries
// in current, so queries absent from the ground truth still count.
func (e *Evaluator) Score(current, previous *Rankings) (*Report, error) {
	numRanked := current.Len()
	if numRanked == 0 {
		return nil, errors.ValidationError("no evaluation query appears in the ranking file")
	}

	hasPrevious := previous != nil
	var acc Accumulator
	for _, j := range e.dataset.Judgments {
		score := ScoreQuery(e.k, j.QID, current.Get(j.QID), previous.Get(j.QID), hasPrevious, j.Answers)
		acc.Add(score)
	}

	denom := float64(numRanked)
	report := &Report{
		K:           e.k,
		NumRanked:   numRanked,
		NumScored:   acc.Scored,
		Success:     float64(acc.Success) / denom * 100,
		Recall:      acc.Recall / denom * 100,
		MRR:         acc.MRR / denom,
		HasPrevious: hasPrevious,
		Sums:        acc,
	}
	if hasPrevious {
		report.Forget = acc.Forget / denom * 100
		report.FWT = acc.FWT / denom * 100
	}

	e.log.Debug("Scored rankings",
		"k", e.k,
		"ranked", numRanked,
		"scored", acc.Scored,
		"compared", acc.Compared,
	)

	return report, nil
}

// EvaluateDataset loads every input and scores rankingsPath, using
// previousPath as the prior phase when it is not empty.
func EvaluateDataset(k int, queryPath, dataPath, rankingsPath, previousPath string) (*Report, error) {
	if k < 1 {
		return nil, errors.ValidationError("k must be positive")
	}

	ds, err := LoadDataset(queryPath, dataPath)
	if err != nil {
		return nil, err
	}
	ev, err := NewEvaluator(k, ds, nil)
	if err != nil {
		return nil, err
	}

	current, err := LoadRankings(rankingsPath, ds.Queries)
	if err != nil {
		return nil, err
	}

	inputs := map[string]string{
		InputQueries:  queryPath,
		InputData:     dataPath,
		InputRankings: rankingsPath,
	}

	var previous *Rankings
	if previousPath != "" {
		previous, err = LoadRankings(previousPath, ds.Queries)
		if err != nil {
			return nil, err
		}
		inputs[InputPrevious] = previousPath
	}

	report, err := ev.Score(current, previous)
	if err != nil {
		return nil, err
	}

	report.Inputs, err = digestInputs(inputs)
	if err != nil {
		return nil, err
	}
	return report, nil
}

func digestInputs(paths map[string]string) (map[string]string, error) {
	out := make(map[string]string, len(paths))
	for role, path := range paths {
		sum, err := hash.File(path)
		if err != nil {
			return nil, errors.IOError("hashing "+path, err)
		}
		out[role] = sum
	}
	return out, nil
}
