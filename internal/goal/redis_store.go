package goal

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
)

const redisKeyPrefix = "step_goals:"

// RedisStore reads goals stored as strings under step_goals:<user>.
type RedisStore struct {
	client *redis.Client
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(client *redis.Client) *RedisStore {
	if client == nil {
		panic("RedisStore: client cannot be nil")
	}
	return &RedisStore{client: client}
}

func (s *RedisStore) StepGoal(ctx context.Context, userID string) (int, error) {
	raw, err := s.client.Get(ctx, redisKeyPrefix+userID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrGoalNotFound
		}
		return 0, fmt.Errorf("redis get goal: %w", err)
	}
	return parseGoal(raw)
}
