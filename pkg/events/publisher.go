package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Publisher delivers domain events to the event bus. Delivery is
// at-least-once and asynchronous with respect to readers: events are
// published after the originating transaction commits, so a consumer may see
// the event before a subsequent read reflects the committed state.
type Publisher interface {
	Publish(ctx context.Context, name string, payload interface{}) error
}

// RedisPublisher writes events to a Redis stream. Consumers read with
// consumer groups, giving at-least-once delivery per group.
type RedisPublisher struct {
	redis  *redis.Client
	stream string
	maxLen int64
}

// NewRedisPublisher creates a stream-backed publisher. maxLen caps the stream
// approximately (XADD MAXLEN ~); zero means unbounded.
func NewRedisPublisher(redisClient *redis.Client, stream string, maxLen int64) *RedisPublisher {
	return &RedisPublisher{
		redis:  redisClient,
		stream: stream,
		maxLen: maxLen,
	}
}

func (p *RedisPublisher) Publish(ctx context.Context, name string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: p.stream,
		Approx: true,
		MaxLen: p.maxLen,
		Values: map[string]interface{}{
			"event":       name,
			"payload":     body,
			"enqueued_at": time.Now().UTC().Format(time.RFC3339Nano),
		},
	}

	if err := p.redis.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("failed to publish event %s: %w", name, err)
	}

	return nil
}
