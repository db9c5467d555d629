package evaluation

import (
	"github.com/RoaringBitmap/roaring/v2/roaring64"
)

// Judgment is the answer set of one evaluated query.
type Judgment struct {
	QID     uint64
	Answers *roaring64.Bitmap
}

// Dataset is the evaluation query set plus ground truth, in file order.
type Dataset struct {
	Queries   *roaring64.Bitmap
	Judgments []Judgment
}

// QueryScore holds the per-query contributions to the running sums.
type QueryScore struct {
	QID            uint64  `json:"qid"`
	Answers        int     `json:"answers"`
	Hits           int     `json:"hits"`
	Success        bool    `json:"success"`
	Recall         float64 `json:"recall"`
	ReciprocalRank float64 `json:"reciprocal_rank"`

	// Compared is set when a previous ranking was supplied and had at least
	// one hit; only then do Forget and FWT contribute.
	Compared     bool    `json:"compared"`
	PreviousHits int     `json:"previous_hits"`
	Forget       float64 `json:"forget"`
	FWT          float64 `json:"fwt"`
}

// Accumulator holds the running sums of one evaluation.
type Accumulator struct {
	Scored   int     `json:"scored"`
	Success  int     `json:"success"`
	Recall   float64 `json:"recall"`
	MRR      float64 `json:"mrr"`
	Compared int     `json:"compared"`
	Forget   float64 `json:"forget"`
	FWT      float64 `json:"fwt"`
}

// Add folds one query's contributions into the sums.
func (a *Accumulator) Add(s QueryScore) {
	a.Scored++
	if s.Success {
		a.Success++
	}
	a.Recall += s.Recall
	a.MRR += s.ReciprocalRank
	if s.Compared {
		a.Compared++
		a.Forget += s.Forget
		a.FWT += s.FWT
	}
}

// Report is the outcome of scoring one ranking snapshot.
//
// Every rate divides by NumRanked, the number of distinct evaluation queries
// present in the current ranking file, not by NumScored.
type Report struct {
	Phase     int `json:"phase"`
	K         int `json:"k"`
	NumRanked int `json:"num_ranked"`
	NumScored int `json:"num_scored"`

	Success float64 `json:"success"` // percentage
	Recall  float64 `json:"recall"`  // percentage
	MRR     float64 `json:"mrr"`

	HasPrevious bool    `json:"has_previous"`
	Forget      float64 `json:"forget,omitempty"` // percentage
	FWT         float64 `json:"fwt,omitempty"`    // percentage

	Sums   Accumulator       `json:"sums"`
	Inputs map[string]string `json:"inputs,omitempty"` // role -> sha256
}

// SequenceReport scores an ordered series of phase snapshots.
type SequenceReport struct {
	Phases []*Report `json:"phases"`

	// Means over phases that had a predecessor.
	MeanForget float64 `json:"mean_forget"`
	MeanFWT    float64 `json:"mean_fwt"`
}
