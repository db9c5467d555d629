package drift

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/ricesearch/driftbench/internal/pkg/errors"
)

func TestNewSchedule_RejectsUnknownMethod(t *testing.T) {
	_, err := NewSchedule("abrupt", NewRand(1), nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidStrategy))
}

func TestEvolve_UnknownMethodLeavesInputUntouched(t *testing.T) {
	a := makeItems("a", 8, "alpha")
	orig := itemIDs(a)

	_, err := Evolve(NewRand(1), 2, 2, a, makeItems("b", 8, "beta"), "seasonal")
	require.Error(t, err)
	assert.Equal(t, orig, itemIDs(a))
}

func TestEvolve_Sudden(t *testing.T) {
	a := makeItems("a", 4, "alpha")
	b := makeItems("b", 4, "beta")

	schedule, err := NewSchedule("sudden", NewRand(2), nil)
	require.NoError(t, err)
	assert.Equal(t, StrategySudden, schedule.Strategy())

	partition, err := schedule.Evolve(4, 2, a, b)
	require.NoError(t, err)
	require.Len(t, partition, 8)

	for i, s := range partition {
		assert.Equal(t, i, s.Position)
		if i < 4 {
			assert.Equal(t, PassForward, s.Pass)
		} else {
			assert.Equal(t, PassReverse, s.Pass)
		}
	}

	// Forward pass: A then B. Reverse pass: B then A.
	for _, pos := range []int{0, 1, 6, 7} {
		assertFromDomain(t, partition[pos], "a")
		assert.Equal(t, 1.0, partition[pos].RatioA, "position %d", pos)
	}
	for _, pos := range []int{2, 3, 4, 5} {
		assertFromDomain(t, partition[pos], "b")
		assert.Equal(t, 1.0, partition[pos].RatioB, "position %d", pos)
	}

	assertNoReuse(t, partition[:4])
	assertNoReuse(t, partition[4:])
}

func TestEvolve_Gradual(t *testing.T) {
	a := makeItems("a", 19, "alpha")
	b := makeItems("b", 19, "beta")

	partition, err := Evolve(NewRand(4), 3, 10, a, b, "gradual")
	require.NoError(t, err)
	require.Len(t, partition, 6)

	wantRatioA := []float64{1, 2.0 / 3.0, 1.0 / 3.0, 0, 1.0 / 3.0, 2.0 / 3.0}
	for i, s := range partition {
		assert.Len(t, s.Items, 10)
		assert.InDelta(t, wantRatioA[i], s.RatioA, 1e-12, "position %d", i)
	}
}

func TestEvolve_Incremental(t *testing.T) {
	a := makeItems("a", 4, "aaaaaaaa")
	b := makeItems("b", 4, "bbbb")

	partition, err := Evolve(NewRand(4), 2, 2, a, b, "incremental")
	require.NoError(t, err)
	require.Len(t, partition, 4)

	next := 0
	for _, s := range partition {
		for _, c := range s.Composites {
			assert.Equal(t, next, c.ID)
			next++
		}
	}
	assert.Equal(t, 8, next)

	// Reverse pass starts from pure B and sources stay labelled by caller domain.
	first := partition[2]
	assert.Equal(t, 0.0, first.RatioA)
	assert.Equal(t, 1.0, first.RatioB)
	for _, c := range first.Composites {
		assert.Equal(t, "bbbb", c.Text)
		assert.Contains(t, c.DomainBSourceID, "b")
		assert.Contains(t, c.DomainASourceID, "a")
	}
	last := partition[3]
	assert.Equal(t, 1.0, last.RatioA)
	for _, c := range last.Composites {
		assert.Equal(t, "aaaaaaaa", c.Text)
	}
}

func TestEvolve_Deterministic(t *testing.T) {
	run := func() []string {
		partition, err := Evolve(NewRand(42), 4, 3, makeItems("a", 20, "x"), makeItems("b", 20, "y"), "gradual")
		require.NoError(t, err)
		var ids []string
		for _, s := range partition {
			ids = append(ids, itemIDs(s.Items)...)
		}
		return ids
	}
	assert.Equal(t, run(), run())
}

func TestEvolve_ReversePassExhaustion(t *testing.T) {
	// Sudden with length 3 draws 1 session of A forward but 2 sessions of A in reverse.
	a := makeItems("a", 1, "alpha")
	b := makeItems("b", 2, "beta")
	origA, origB := itemIDs(a), itemIDs(b)

	_, err := Evolve(NewRand(1), 3, 1, a, b, "sudden")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeScheduleExhausted))
	assert.Equal(t, origA, itemIDs(a))
	assert.Equal(t, origB, itemIDs(b))
}

func TestSession_Len(t *testing.T) {
	assert.Equal(t, 2, Session{Items: makeItems("a", 2, "x")}.Len())
	assert.Equal(t, 3, Session{Composites: make([]CompositeItem, 3)}.Len())
	assert.Equal(t, 0, Session{}.Len())
}

func TestEvolve_ExhaustionNamesCallerDomain(t *testing.T) {
	_, err := Evolve(NewRand(1), 3, 1, makeItems("a", 1, "alpha"), makeItems("b", 2, "beta"), "sudden")
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "A", appErr.Details["domain"])
	assert.Equal(t, "2", appErr.Details["need"])
	assert.Equal(t, "1", appErr.Details["have"])
}
