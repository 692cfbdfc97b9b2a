package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/smukkama/openweather-panel/internal/pipeline"
)

const (
	keyPrefix  = "weather_snapshot:"
	DefaultTTL = 6 * time.Hour
)

// SnapshotStore keeps the last fetched weather per coordinate in Redis
type SnapshotStore struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewSnapshotStore creates a snapshot store. A non-positive ttl uses
// DefaultTTL.
func NewSnapshotStore(redisClient *redis.Client, ttl time.Duration) *SnapshotStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &SnapshotStore{redis: redisClient, ttl: ttl}
}

func key(coordinate string) string {
	return keyPrefix + coordinate
}

// Load returns the snapshot for a coordinate key, or nil when none exists
func (s *SnapshotStore) Load(ctx context.Context, coordinate string) (*pipeline.Snapshot, error) {
	data, err := s.redis.Get(ctx, key(coordinate)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot from Redis: %w", err)
	}

	var snap pipeline.Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// Save stores a snapshot with the store's TTL
func (s *SnapshotStore) Save(ctx context.Context, coordinate string, snap *pipeline.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if err := s.redis.Set(ctx, key(coordinate), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set snapshot in Redis: %w", err)
	}
	return nil
}

// Delete removes the snapshot for a coordinate key
func (s *SnapshotStore) Delete(ctx context.Context, coordinate string) error {
	return s.redis.Del(ctx, key(coordinate)).Err()
}

// Keys lists the coordinates that currently have a snapshot
func (s *SnapshotStore) Keys(ctx context.Context) ([]string, error) {
	var (
		cursor uint64
		out    []string
	)
	for {
		keys, next, err := s.redis.Scan(ctx, cursor, keyPrefix+"*", 100).Result()
		if err != nil {
			return nil, err
		}
		for _, k := range keys {
			out = append(out, k[len(keyPrefix):])
		}
		cursor = next
		if cursor == 0 {
			return out, nil
		}
	}
}

var _ pipeline.SnapshotCache = (*SnapshotStore)(nil)
