// Package tracker records run state so batches that outlive a run can be
// found and resumed.
package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/amishk599/jobenrich/internal/model"
)

const (
	keyPrefix = "jobenrich:run:"
	indexKey  = "jobenrich:runs"
)

// Ensure RedisTracker implements model.RunTracker.
var _ model.RunTracker = (*RedisTracker)(nil)

// RedisTracker stores each run as a JSON string with a TTL and indexes run
// ids in a sorted set scored by start time.
type RedisTracker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisTracker parses redisURL and verifies connectivity.
func NewRedisTracker(ctx context.Context, redisURL string, ttl time.Duration) (*RedisTracker, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &RedisTracker{client: client, ttl: ttl}, nil
}

func runKey(runID string) string { return keyPrefix + runID }

// Record upserts the run state and refreshes its TTL.
func (t *RedisTracker) Record(ctx context.Context, state model.RunState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal run state: %w", err)
	}

	pipe := t.client.TxPipeline()
	pipe.Set(ctx, runKey(state.RunID), data, t.ttl)
	pipe.ZAdd(ctx, indexKey, redis.Z{Score: float64(state.StartedAt.Unix()), Member: state.RunID})
	if t.ttl > 0 {
		// Members older than the TTL point at expired keys.
		cutoff := time.Now().Add(-t.ttl).Unix()
		pipe.ZRemRangeByScore(ctx, indexKey, "-inf", fmt.Sprintf("(%d", cutoff))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record run %s: %w", state.RunID, err)
	}
	return nil
}

// Get returns model.ErrRunNotFound for unknown or expired runs.
func (t *RedisTracker) Get(ctx context.Context, runID string) (model.RunState, error) {
	data, err := t.client.Get(ctx, runKey(runID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.RunState{}, model.ErrRunNotFound
	}
	if err != nil {
		return model.RunState{}, fmt.Errorf("get run %s: %w", runID, err)
	}

	var state model.RunState
	if err := json.Unmarshal(data, &state); err != nil {
		return model.RunState{}, fmt.Errorf("decode run %s: %w", runID, err)
	}
	return state, nil
}

// Recent returns up to limit runs, newest first.
func (t *RedisTracker) Recent(ctx context.Context, limit int) ([]model.RunState, error) {
	if limit <= 0 {
		return nil, nil
	}
	ids, err := t.client.ZRevRange(ctx, indexKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}

	states := make([]model.RunState, 0, len(ids))
	for _, id := range ids {
		state, err := t.Get(ctx, id)
		if errors.Is(err, model.ErrRunNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		states = append(states, state)
	}
	return states, nil
}

// Close closes the Redis client.
func (t *RedisTracker) Close() error {
	return t.client.Close()
}
