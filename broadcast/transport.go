package broadcast

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Handler receives the raw payload of every message delivered on a topic.
type Handler func(payload []byte)

// Channel is a live topic subscription.
type Channel interface {
	Close() error
}

// Transport moves opaque payloads between processes.
type Transport interface {
	// Subscribe returns once the subscription is confirmed.
	Subscribe(ctx context.Context, topic string, handler Handler) (Channel, error)
	Publish(ctx context.Context, topic string, payload []byte) error
}

// RedisTransport is a Transport over Redis pub/sub.
type RedisTransport struct {
	client *redis.Client
	logger *log.Logger
}

// NewRedisTransport wraps client.
func NewRedisTransport(client *redis.Client, logger *log.Logger) *RedisTransport {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &RedisTransport{client: client, logger: logger}
}

func (t *RedisTransport) Subscribe(ctx context.Context, topic string, handler Handler) (Channel, error) {
	ps := t.client.Subscribe(ctx, topic)
	// the first reply is the subscription confirmation
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}
	rc := &redisChannel{ps: ps, topic: topic, logger: t.logger}
	go rc.drain(handler)
	return rc, nil
}

func (t *RedisTransport) Publish(ctx context.Context, topic string, payload []byte) error {
	return t.client.Publish(ctx, topic, payload).Err()
}

type redisChannel struct {
	ps     *redis.PubSub
	topic  string
	logger *log.Logger
	once   sync.Once
	err    error
}

func (c *redisChannel) drain(handler Handler) {
	for msg := range c.ps.Channel() {
		handler([]byte(msg.Payload))
	}
	c.logger.WithField("channel", c.topic).Debug("pubsub channel drained")
}

func (c *redisChannel) Close() error {
	c.once.Do(func() {
		c.err = c.ps.Close()
	})
	return c.err
}
