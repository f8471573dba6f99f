package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"VolRank/internal/domain/repository"

	"github.com/redis/go-redis/v9"
)

// RedisTrackedStore persists the tracked-symbol set under a single Redis
// key, same record layout as the file store. It serves deployments where
// several instances share one tracked set.
type RedisTrackedStore struct {
	client *redis.Client
	key    string
}

// NewRedisTrackedStore creates a Redis-backed tracked-set store.
func NewRedisTrackedStore(client *redis.Client, key string) repository.TrackedSetStore {
	if key == "" {
		key = "volrank:tracked_set"
	}
	return &RedisTrackedStore{client: client, key: key}
}

// Load reads the persisted set. A missing key is an empty set, not an error.
func (s *RedisTrackedStore) Load(ctx context.Context) ([]string, error) {
	b, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("read tracked set: %w", err)
	}

	var rec trackedRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, fmt.Errorf("parse tracked set: %w", err)
	}
	if rec.TradingPairNames == nil {
		return []string{}, nil
	}
	return rec.TradingPairNames, nil
}

// Save overwrites the persisted set. The key never expires.
func (s *RedisTrackedStore) Save(ctx context.Context, symbols []string) error {
	b, err := json.Marshal(trackedRecord{TradingPairNames: symbols})
	if err != nil {
		return fmt.Errorf("encode tracked set: %w", err)
	}
	if err := s.client.Set(ctx, s.key, b, 0).Err(); err != nil {
		return fmt.Errorf("write tracked set: %w", err)
	}
	return nil
}
