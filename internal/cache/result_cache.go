package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"raffle-admin/internal/raffle"

	"github.com/go-redis/redis/v8"
)

const resultKeyPrefix = "raffle:result:"

// RedisResultCache keeps drawn results in redis so public result pages do
// not need the event loaded in memory. Results never change once drawn.
type RedisResultCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisResultCache(ctx context.Context, addr, password string, db int, ttl time.Duration) (*RedisResultCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisResultCache{client: client, ttl: ttl}, nil
}

// GetResult returns the cached result; ok is false on a miss.
func (c *RedisResultCache) GetResult(ctx context.Context, eventID string) (*raffle.Result, bool, error) {
	data, err := c.client.Get(ctx, resultKeyPrefix+eventID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cached result: %w", err)
	}
	var result raffle.Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached result: %w", err)
	}
	if err := result.CheckDigest(); err != nil {
		return nil, false, err
	}
	return &result, true, nil
}

func (c *RedisResultCache) SetResult(ctx context.Context, eventID string, result raffle.Result) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	return c.client.Set(ctx, resultKeyPrefix+eventID, data, c.ttl).Err()
}

func (c *RedisResultCache) DeleteResult(ctx context.Context, eventID string) error {
	return c.client.Del(ctx, resultKeyPrefix+eventID).Err()
}

func (c *RedisResultCache) Close() error {
	return c.client.Close()
}
