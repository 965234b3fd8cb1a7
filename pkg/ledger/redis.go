package ledger

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "attendant:ledger:"

// RedisStore keeps the ledger as one set of stage ids per card.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects and pings the redis backend.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

func (s *RedisStore) Completed(ctx context.Context, cardID int) (map[int]bool, error) {
	members, err := s.client.SMembers(ctx, redisKeyPrefix+strconv.Itoa(cardID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger for card %d: %w", cardID, err)
	}

	stages := make(map[int]bool, len(members))

	for _, member := range members {
		stageID, err := strconv.Atoi(member)
		if err != nil {
			return nil, fmt.Errorf("invalid ledger entry %q for card %d: %w", member, cardID, err)
		}

		stages[stageID] = true
	}

	return stages, nil
}

func (s *RedisStore) MarkCompleted(ctx context.Context, cardID, stageID int) error {
	err := s.client.SAdd(ctx, redisKeyPrefix+strconv.Itoa(cardID), stageID).Err()
	if err != nil {
		return fmt.Errorf("failed to record ledger entry (%d, %d): %w", cardID, stageID, err)
	}

	return nil
}

func (s *RedisStore) HealthCheck(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}

	return nil
}

func (s *RedisStore) Close(_ context.Context) error {
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("failed to close redis client: %w", err)
	}

	return nil
}
