package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultQueue = "draw_royale_mail"

// RedisChannel pushes envelopes onto a Redis list consumed by the mail
// worker.
type RedisChannel struct {
	client *redis.Client
	queue  string
}

func NewRedisChannel(client *redis.Client, queue string) *RedisChannel {
	if queue == "" {
		queue = DefaultQueue
	}
	return &RedisChannel{client: client, queue: queue}
}

// ConnectRedis opens a client and checks it with PING.
func ConnectRedis(ctx context.Context, addr string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return client, nil
}

func (c *RedisChannel) Deliver(ctx context.Context, env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}
	if err := c.client.RPush(ctx, c.queue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", c.queue, err)
	}
	return nil
}

func (c *RedisChannel) Queue() string {
	return c.queue
}
