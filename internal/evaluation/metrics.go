package evaluation

import (
	"github.com/RoaringBitmap/roaring/v2/roaring64"
)

// TopK returns the first k entries of ranking.
func TopK(ranking []uint64, k int) []uint64 {
	if k > len(ranking) {
		k = len(ranking)
	}
	return ranking[:k]
}

// Hits returns the answers found in the top k of ranking.
func Hits(ranking []uint64, answers *roaring64.Bitmap, k int) *roaring64.Bitmap {
	top := roaring64.BitmapOf(TopK(ranking, k)...)
	top.And(answers)
	return top
}

// Recall returns the share of answers found among hits.
func Recall(hits, answers int) float64 {
	if answers == 0 {
		return 0
	}
	return float64(hits) / float64(answers)
}

// ReciprocalRank returns 1/position of the first answer in the top k, or 0.
func ReciprocalRank(ranking []uint64, answers *roaring64.Bitmap, k int) float64 {
	for i, pid := range TopK(ranking, k) {
		if answers.Contains(pid) {
			return 1.0 / float64(i+1)
		}
	}
	return 0
}

// Forget is the share of answers lost between two phases. Positive values are regressions.
func Forget(previousHits, currentHits, answers int) float64 {
	if answers == 0 {
		return 0
	}
	return float64(previousHits-currentHits) / float64(answers)
}

// ForwardTransfer is the share of answers gained between two phases; the mirror of Forget.
func ForwardTransfer(previousHits, currentHits, answers int) float64 {
	if answers == 0 {
		return 0
	}
	return float64(currentHits-previousHits) / float64(answers)
}

// ScoreQuery computes one query's contributions. previous is ignored unless
// hasPrevious is set; Forget and FWT are only filled in when the previous
// top k had at least one hit.
func ScoreQuery(k int, qid uint64, current, previous []uint64, hasPrevious bool, answers *roaring64.Bitmap) QueryScore {
	numAnswers := int(answers.GetCardinality())
	hits := int(Hits(current, answers, k).GetCardinality())

	score := QueryScore{
		QID:            qid,
		Answers:        numAnswers,
		Hits:           hits,
		Success:        hits > 0,
		ReciprocalRank: ReciprocalRank(current, answers, k),
	}
	if hits > 0 {
		score.Recall = Recall(hits, numAnswers)
	}

	if hasPrevious {
		prevHits := int(Hits(previous, answers, k).GetCardinality())
		score.PreviousHits = prevHits
		if prevHits > 0 {
			score.Compared = true
			score.Forget = Forget(prevHits, hits, numAnswers)
			score.FWT = ForwardTransfer(prevHits, hits, numAnswers)
		}
	}

	return score
}
