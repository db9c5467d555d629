// Package history keeps evaluation reports per experiment in Redis so that
// phases scored in separate invocations can be compared later.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ricesearch/driftbench/internal/evaluation"
	apperrors "github.com/ricesearch/driftbench/internal/pkg/errors"
)

const keyPrefix = "driftbench:history:"

// Entry is one stored report.
type Entry struct {
	Experiment string             `json:"experiment"`
	SavedAt    time.Time          `json:"saved_at"`
	Report     *evaluation.Report `json:"report"`
}

// RedisHistory stores reports in one sorted set per experiment, scored by phase.
type RedisHistory struct {
	client *redis.Client
	prefix string
	ttl    time.Duration // 0 keeps keys forever
}

// NewRedisHistory connects to url and verifies the connection.
func NewRedisHistory(url string, ttl time.Duration) (*RedisHistory, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, apperrors.ValidationError(fmt.Sprintf("parsing redis URL: %v", err))
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, apperrors.Wrap(apperrors.CodeUnavailable, "connecting to redis", err)
	}

	return &RedisHistory{
		client: client,
		prefix: keyPrefix,
		ttl:    ttl,
	}, nil
}

func (h *RedisHistory) key(experiment string) string {
	return h.prefix + experiment
}

// SaveReports stores phase reports in one transaction. Each report replaces
// any earlier report of the same phase.
func (h *RedisHistory) SaveReports(ctx context.Context, experiment string, reports []*evaluation.Report) error {
	if experiment == "" {
		return apperrors.ValidationError("experiment name is required")
	}
	if len(reports) == 0 {
		return nil
	}

	key := h.key(experiment)
	now := time.Now().UTC()

	pipe := h.client.TxPipeline()
	for _, r := range reports {
		member, err := json.Marshal(Entry{Experiment: experiment, SavedAt: now, Report: r})
		if err != nil {
			return apperrors.InternalError("encoding report", err)
		}
		phase := strconv.Itoa(r.Phase)
		pipe.ZRemRangeByScore(ctx, key, phase, phase)
		pipe.ZAdd(ctx, key, redis.Z{Score: float64(r.Phase), Member: member})
	}
	if h.ttl > 0 {
		pipe.Expire(ctx, key, h.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return apperrors.Wrap(apperrors.CodeUnavailable, "saving reports", err)
	}
	return nil
}

// LoadReports returns the stored entries of experiment in phase order.
func (h *RedisHistory) LoadReports(ctx context.Context, experiment string) ([]Entry, error) {
	results, err := h.client.ZRangeWithScores(ctx, h.key(experiment), 0, -1).Result()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeUnavailable, "loading reports", err)
	}
	if len(results) == 0 {
		return nil, apperrors.NotFoundError("experiment " + experiment)
	}

	entries := make([]Entry, 0, len(results))
	for _, z := range results {
		member, ok := z.Member.(string)
		if !ok {
			continue
		}
		var e Entry
		if err := json.Unmarshal([]byte(member), &e); err != nil || e.Report == nil {
			// Skip invalid entries
			continue
		}
		entries = append(entries, e)
	}

	return entries, nil
}

// Experiments returns the names of all stored experiments.
func (h *RedisHistory) Experiments(ctx context.Context) ([]string, error) {
	var names []string
	iter := h.client.Scan(ctx, 0, h.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		names = append(names, iter.Val()[len(h.prefix):])
	}
	if err := iter.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeUnavailable, "listing experiments", err)
	}
	return names, nil
}

// DeleteExperiment removes every report of experiment.
func (h *RedisHistory) DeleteExperiment(ctx context.Context, experiment string) error {
	if err := h.client.Del(ctx, h.key(experiment)).Err(); err != nil {
		return apperrors.Wrap(apperrors.CodeUnavailable, "deleting experiment", err)
	}
	return nil
}

// Close closes the Redis connection.
func (h *RedisHistory) Close() error {
	return h.client.Close()
}
