package drift

import (
	"math/rand/v2"

	"github.com/ricesearch/driftbench/internal/corpus"
	apperrors "github.com/ricesearch/driftbench/internal/pkg/errors"
	"github.com/ricesearch/driftbench/internal/pkg/logger"
)

// NewRand returns a deterministic generator for seed.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Schedule evolves partitions with a fixed strategy and random source.
// It is not safe for concurrent use: the random source is shared.
type Schedule struct {
	strategy Strategy
	rng      *rand.Rand
	log      *logger.Logger
}

// NewSchedule resolves method eagerly so unknown names fail before any data is touched.
func NewSchedule(method string, rng *rand.Rand, log *logger.Logger) (*Schedule, error) {
	strategy, err := ParseStrategy(method)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Schedule{
		strategy: strategy,
		rng:      rng,
		log:      log,
	}, nil
}

// Strategy returns the schedule's strategy.
func (s *Schedule) Strategy() Strategy {
	return s.strategy
}

// Evolve builds one partition: a forward pass from a to b followed by a
// reverse pass from b back to a, 2*length sessions in total.
//
// Both collections must cover both passes; this is checked before anything
// is shuffled. Each pass reshuffles a and b in place. Positions run across the
// whole partition, ratios and composite sources always refer to the caller's
// a and b, and reverse-pass composite ids continue after the forward pass.
func (s *Schedule) Evolve(length, size int, a, b []corpus.Item) ([]Session, error) {
	if err := validateParams(length, size); err != nil {
		return nil, err
	}
	if err := s.ensurePartitionCapacity(length, size, len(a), len(b)); err != nil {
		return nil, err
	}

	forward, err := s.strategy.generate(s.rng, length, size, a, b, s.log)
	if err != nil {
		return nil, err
	}
	reverse, err := s.strategy.generate(s.rng, length, size, b, a, s.log)
	if err != nil {
		return nil, err
	}

	offset := 0
	if s.strategy == StrategyIncremental {
		offset = countItems(forward)
	}

	partition := make([]Session, 0, len(forward)+len(reverse))
	for _, sess := range forward {
		sess.Pass = PassForward
		partition = append(partition, sess)
	}
	for _, sess := range reverse {
		sess = sess.swapDomains(offset)
		sess.Pass = PassReverse
		sess.Position += len(forward)
		partition = append(partition, sess)
	}

	for _, sess := range partition {
		s.log.Debug("session generated",
			"method", s.strategy.String(),
			"position", sess.Position,
			"pass", sess.Pass,
			"ratio_a", sess.RatioA,
			"ratio_b", sess.RatioB,
			"items", sess.Len(),
		)
	}

	return partition, nil
}

// ensurePartitionCapacity checks both passes up front. The reverse pass draws
// with the roles swapped, so each domain must cover the larger of its two demands.
func (s *Schedule) ensurePartitionCapacity(length, size, haveA, haveB int) error {
	fwdA, fwdB := s.strategy.demand(length, size)
	revB, revA := s.strategy.demand(length, size)
	needA, needB := max(fwdA, revA), max(fwdB, revB)

	if haveA < needA {
		return apperrors.ScheduleExhaustedError(string(corpus.DomainA), needA, haveA).
			WithDetail("method", s.strategy.String())
	}
	if haveB < needB {
		return apperrors.ScheduleExhaustedError(string(corpus.DomainB), needB, haveB).
			WithDetail("method", s.strategy.String())
	}
	return nil
}

// Evolve resolves method and builds one partition with rng.
func Evolve(rng *rand.Rand, length, size int, a, b []corpus.Item, method string) ([]Session, error) {
	schedule, err := NewSchedule(method, rng, nil)
	if err != nil {
		return nil, err
	}
	return schedule.Evolve(length, size, a, b)
}
