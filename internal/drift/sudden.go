package drift

import (
	"math/rand/v2"
	"slices"

	"github.com/ricesearch/driftbench/internal/corpus"
)

// Sudden returns length sessions of size items: the first length/2 drawn
// purely from a, the rest purely from b. With an odd length the extra
// session falls in the b half.
//
// a and b are shuffled in place. Sessions hold copies of the drawn items.
func Sudden(rng *rand.Rand, length, size int, a, b []corpus.Item) ([]Session, error) {
	if err := validateParams(length, size); err != nil {
		return nil, err
	}
	if err := ensureCapacity(StrategySudden, length, size, len(a), len(b)); err != nil {
		return nil, err
	}

	shuffle(rng, a)
	shuffle(rng, b)

	halfway := length / 2
	sessions := make([]Session, 0, length)
	for i := 0; i < halfway; i++ {
		start := i * size
		sessions = append(sessions, Session{
			Position: i,
			RatioA:   1,
			RatioB:   0,
			Items:    slices.Clone(a[start : start+size]),
		})
	}
	for i := halfway; i < length; i++ {
		start := (i - halfway) * size
		sessions = append(sessions, Session{
			Position: i,
			RatioA:   0,
			RatioB:   1,
			Items:    slices.Clone(b[start : start+size]),
		})
	}

	return sessions, nil
}
