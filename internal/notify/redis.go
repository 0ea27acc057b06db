package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// streamMaxLen: приблизительный предел длины потока (XADD MAXLEN ~).
const streamMaxLen = 10000

// RedisChannel добавляет уведомления в Redis stream.
type RedisChannel struct {
	client *redis.Client
	stream string
}

func NewRedisChannel(client *redis.Client, stream string) *RedisChannel {
	return &RedisChannel{client: client, stream: stream}
}

func (c *RedisChannel) Name() string { return "redis" }

func (c *RedisChannel) Deliver(ctx context.Context, a Alert) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}
	return c.client.XAdd(ctx, &redis.XAddArgs{
		Stream: c.stream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]any{
			"item_id":    a.ItemID,
			"quantity":   strconv.FormatFloat(a.Quantity, 'f', -1, 64),
			"threshold":  strconv.FormatFloat(a.Threshold, 'f', -1, 64),
			"detectedAt": a.DetectedAt.Format(time.RFC3339Nano),
			"payload":    payload,
		},
	}).Err()
}

func (c *RedisChannel) Close() error {
	return c.client.Close()
}
