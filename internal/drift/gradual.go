package drift

import (
	"math/rand/v2"

	"github.com/ricesearch/driftbench/internal/corpus"
)

// gradualRatio is the share of domain A at session i.
func gradualRatio(length, i int) float64 {
	return float64(length-i) / float64(length)
}

// gradualSplit returns the A and B item counts of session i. The A count is
// truncated, B takes the remainder so the two always sum to size.
func gradualSplit(length, size, i int) (numA, numB int) {
	numA = int(float64(size) * gradualRatio(length, i))
	return numA, size - numA
}

// Gradual returns length sessions whose domain-A share falls linearly from 1
// at session 0 to 1/length at the last session. Items are taken from
// sequential, non-overlapping runs of the shuffled collections and each
// session is shuffled so domain membership is not positional.
func Gradual(rng *rand.Rand, length, size int, a, b []corpus.Item) ([]Session, error) {
	if err := validateParams(length, size); err != nil {
		return nil, err
	}
	if err := ensureCapacity(StrategyGradual, length, size, len(a), len(b)); err != nil {
		return nil, err
	}

	shuffle(rng, a)
	shuffle(rng, b)

	idxA, idxB := 0, 0
	sessions := make([]Session, 0, length)
	for i := 0; i < length; i++ {
		ratioA := gradualRatio(length, i)
		numA, numB := gradualSplit(length, size, i)

		items := make([]corpus.Item, 0, size)
		items = append(items, a[idxA:idxA+numA]...)
		items = append(items, b[idxB:idxB+numB]...)
		shuffle(rng, items)

		sessions = append(sessions, Session{
			Position: i,
			RatioA:   ratioA,
			RatioB:   1 - ratioA,
			Items:    items,
		})

		idxA += numA
		idxB += numB
	}

	return sessions, nil
}
