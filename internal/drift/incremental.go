package drift

import (
	"math"
	"math/rand/v2"
	"strconv"

	"github.com/ricesearch/driftbench/internal/corpus"
	apperrors "github.com/ricesearch/driftbench/internal/pkg/errors"
	"github.com/ricesearch/driftbench/internal/pkg/logger"
)

// incrementalRatios returns the A and B shares at session i. B rises by
// 1/(length-1) per session and is pinned to 1 at the last session.
func incrementalRatios(length, i int) (ratioA, ratioB float64) {
	step := 1.0
	if length > 1 {
		step = 1 / float64(length-1)
	}
	ratioB = float64(i) * step
	if i == length-1 {
		ratioB = 1
	}
	return 1 - ratioB, ratioB
}

// compositeSizes returns how many characters of each source document a
// composite keeps. Both prefixes derive from one shared document size bounded
// by whichever source is the tighter constraint. Results are floored.
func compositeSizes(lenA, lenB int, ratioA, ratioB float64) (docSize float64, sizeA, sizeB int) {
	switch {
	case ratioA == 0:
		docSize = float64(lenB)
	case ratioB == 0:
		docSize = float64(lenA)
	default:
		docSize = math.Min(float64(lenA)/ratioA, float64(lenB)/ratioB)
	}
	sizeA = min(int(docSize*ratioA), lenA)
	sizeB = min(int(docSize*ratioB), lenB)
	return docSize, sizeA, sizeB
}

// Incremental returns length sessions of size composite documents. Every
// composite consumes the next unused document of each domain and splices a
// prefix of each, so drift happens inside documents rather than across them.
// Composite ids run from 0 in emission order. Every item needs text.
func Incremental(rng *rand.Rand, length, size int, a, b []corpus.Item) ([]Session, error) {
	return incremental(rng, length, size, a, b, nil)
}

func incremental(rng *rand.Rand, length, size int, a, b []corpus.Item, log *logger.Logger) ([]Session, error) {
	if err := validateParams(length, size); err != nil {
		return nil, err
	}
	if err := ensureCapacity(StrategyIncremental, length, size, len(a), len(b)); err != nil {
		return nil, err
	}
	if err := requireText(corpus.DomainA, a); err != nil {
		return nil, err
	}
	if err := requireText(corpus.DomainB, b); err != nil {
		return nil, err
	}

	shuffle(rng, a)
	shuffle(rng, b)

	idxA, idxB, docID := 0, 0, 0
	sessions := make([]Session, 0, length)
	for i := 0; i < length; i++ {
		ratioA, ratioB := incrementalRatios(length, i)

		composites := make([]CompositeItem, 0, size)
		for j := 0; j < size; j++ {
			docA := []rune(a[idxA].Text)
			docB := []rune(b[idxB].Text)
			docSize, sizeA, sizeB := compositeSizes(len(docA), len(docB), ratioA, ratioB)

			if log != nil {
				log.Debug("composite document",
					"id", docID,
					"a_len", len(docA),
					"b_len", len(docB),
					"a_ratio", ratioA,
					"b_ratio", ratioB,
					"doc_size", docSize,
					"a_size", sizeA,
					"b_size", sizeB,
				)
			}

			composites = append(composites, CompositeItem{
				ID:              docID,
				DomainASourceID: a[idxA].ID,
				DomainBSourceID: b[idxB].ID,
				DomainAIndex:    idxA,
				DomainBIndex:    idxB,
				Text:            string(docA[:sizeA]) + string(docB[:sizeB]),
			})

			idxA++
			idxB++
			docID++
		}

		sessions = append(sessions, Session{
			Position:   i,
			RatioA:     ratioA,
			RatioB:     ratioB,
			Composites: composites,
		})
	}

	return sessions, nil
}

func requireText(domain corpus.Domain, items []corpus.Item) error {
	for i, it := range items {
		if !it.HasText {
			return apperrors.ValidationError("incremental drift needs a text field on every document").
				WithDetail("domain", string(domain)).
				WithDetail("id", it.ID).
				WithDetail("index", strconv.Itoa(i))
		}
	}
	return nil
}
