package publisher

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher implements Publisher using a Redis stream.
// All messages of a run go to one stream so that consumers see them in order.
type RedisPublisher struct {
	client          *redis.Client
	ctx             context.Context
	stream          string
	streamMaxLength int
}

// NewRedisPublisher creates a new Redis publisher
func NewRedisPublisher(ctx context.Context, addr string, db int, stream string, streamMaxLength int) *RedisPublisher {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	return &RedisPublisher{
		client:          client,
		ctx:             ctx,
		stream:          stream,
		streamMaxLength: streamMaxLength,
	}
}

// Ping checks the Redis connection
func (p *RedisPublisher) Ping() error {
	return p.client.Ping(p.ctx).Err()
}

// Stream returns the stream name
func (p *RedisPublisher) Stream() string {
	return p.stream
}

// Publish appends a message to the stream, trimming it approximately to the maximum length
func (p *RedisPublisher) Publish(key string, message []byte) error {
	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			key: string(message),
		},
	}
	if p.streamMaxLength > 0 {
		args.MaxLen = int64(p.streamMaxLength)
		args.Approx = true
	}

	// Publishing outlives run cancellation so that abort events still reach consumers
	return p.client.XAdd(context.WithoutCancel(p.ctx), args).Err()
}

// TrimStreams trims the stream to exactly the configured maximum length
func (p *RedisPublisher) TrimStreams() error {
	if p.streamMaxLength <= 0 {
		return nil
	}
	return p.client.XTrimMaxLen(context.WithoutCancel(p.ctx), p.stream, int64(p.streamMaxLength)).Err()
}

// Close closes the Redis connection
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
