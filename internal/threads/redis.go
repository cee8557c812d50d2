package threads

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const replyCountsKey = "channel-service:reply_counts"

// RedisCounter stores reply counts in a Redis hash so they survive process
// restarts and are shared across instances.
type RedisCounter struct {
	client *redis.Client
}

// NewRedisClient creates and pings a Redis client.
func NewRedisClient(addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return client, nil
}

// NewRedisCounter constructs a RedisCounter.
func NewRedisCounter(client *redis.Client) *RedisCounter {
	return &RedisCounter{client: client}
}

func (c *RedisCounter) Increment(ctx context.Context, parentMessageID int) error {
	return c.client.HIncrBy(ctx, replyCountsKey, strconv.Itoa(parentMessageID), 1).Err()
}

func (c *RedisCounter) Count(ctx context.Context, parentMessageID int) (int, error) {
	val, err := c.client.HGet(ctx, replyCountsKey, strconv.Itoa(parentMessageID)).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(val)
}

func (c *RedisCounter) CountMany(ctx context.Context, parentMessageIDs []int) (map[int]int, error) {
	out := make(map[int]int, len(parentMessageIDs))
	if len(parentMessageIDs) == 0 {
		return out, nil
	}

	fields := make([]string, 0, len(parentMessageIDs))
	for _, id := range parentMessageIDs {
		fields = append(fields, strconv.Itoa(id))
	}

	vals, err := c.client.HMGet(ctx, replyCountsKey, fields...).Result()
	if err != nil {
		return nil, err
	}
	for i, v := range vals {
		out[parentMessageIDs[i]] = 0
		if s, ok := v.(string); ok {
			if n, err := strconv.Atoi(s); err == nil {
				out[parentMessageIDs[i]] = n
			}
		}
	}
	return out, nil
}

func (c *RedisCounter) Reset(ctx context.Context, counts map[int]int) error {
	pipe := c.client.TxPipeline()
	pipe.Del(ctx, replyCountsKey)
	if len(counts) > 0 {
		fields := make(map[string]interface{}, len(counts))
		for id, n := range counts {
			fields[strconv.Itoa(id)] = n
		}
		pipe.HSet(ctx, replyCountsKey, fields)
	}
	_, err := pipe.Exec(ctx)
	return err
}
