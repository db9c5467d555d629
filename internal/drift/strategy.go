// Package drift builds synthetic domain-drift curricula: ordered sessions whose
// mix of two domain collections changes from one position to the next.
package drift

import (
	"math/rand/v2"
	"strconv"

	"github.com/ricesearch/driftbench/internal/corpus"
	apperrors "github.com/ricesearch/driftbench/internal/pkg/errors"
	"github.com/ricesearch/driftbench/internal/pkg/logger"
)

// Strategy is a closed set of drift schedules.
type Strategy int

// Supported strategies.
const (
	// StrategySudden switches from pure A to pure B halfway through.
	StrategySudden Strategy = iota + 1
	// StrategyGradual mixes whole items with a linearly falling A ratio.
	StrategyGradual
	// StrategyIncremental drifts inside each document by splicing text prefixes.
	StrategyIncremental
)

var strategyNames = map[Strategy]string{
	StrategySudden:      "sudden",
	StrategyGradual:     "gradual",
	StrategyIncremental: "incremental",
}

// ParseStrategy maps a method name to its strategy.
func ParseStrategy(name string) (Strategy, error) {
	for s, n := range strategyNames {
		if n == name {
			return s, nil
		}
	}
	return 0, apperrors.InvalidStrategyError(name)
}

// String returns the method name.
func (s Strategy) String() string {
	if n, ok := strategyNames[s]; ok {
		return n
	}
	return "unknown"
}

// Strategies lists the supported method names in declaration order.
func Strategies() []string {
	return []string{"sudden", "gradual", "incremental"}
}

func (s Strategy) generate(rng *rand.Rand, length, size int, a, b []corpus.Item, log *logger.Logger) ([]Session, error) {
	switch s {
	case StrategySudden:
		return Sudden(rng, length, size, a, b)
	case StrategyGradual:
		return Gradual(rng, length, size, a, b)
	case StrategyIncremental:
		return incremental(rng, length, size, a, b, log)
	default:
		return nil, apperrors.InvalidStrategyError(s.String())
	}
}

// demand returns how many items one pass draws from the first and second domain.
func (s Strategy) demand(length, size int) (needA, needB int) {
	switch s {
	case StrategySudden:
		halfway := length / 2
		return halfway * size, (length - halfway) * size
	case StrategyGradual:
		for i := 0; i < length; i++ {
			numA, numB := gradualSplit(length, size, i)
			needA += numA
			needB += numB
		}
		return needA, needB
	case StrategyIncremental:
		return length * size, length * size
	default:
		return 0, 0
	}
}

func validateParams(length, size int) error {
	if length < 1 {
		return apperrors.ValidationError("partition length must be positive").
			WithDetail("partition_length", strconv.Itoa(length))
	}
	if size < 1 {
		return apperrors.ValidationError("session size must be positive").
			WithDetail("session_size", strconv.Itoa(size))
	}
	return nil
}

func ensureCapacity(s Strategy, length, size, haveA, haveB int) error {
	needA, needB := s.demand(length, size)
	if haveA < needA {
		return apperrors.ScheduleExhaustedError(string(corpus.DomainA), needA, haveA).
			WithDetail("method", s.String())
	}
	if haveB < needB {
		return apperrors.ScheduleExhaustedError(string(corpus.DomainB), needB, haveB).
			WithDetail("method", s.String())
	}
	return nil
}

func shuffle(rng *rand.Rand, items []corpus.Item) {
	rng.Shuffle(len(items), func(i, j int) {
		items[i], items[j] = items[j], items[i]
	})
}
