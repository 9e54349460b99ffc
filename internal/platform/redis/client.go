// Package redis opens the optional shared Redis connection used by the rate
// limiter buckets and the notification inboxes.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client is a go-redis client that can report its own health.
type Client struct {
	*redis.Client
}

type Option func(*redis.Options)

// WithTimeouts overrides the dial timeout and the per-command read/write timeout.
func WithTimeouts(dial, command time.Duration) Option {
	return func(o *redis.Options) {
		o.DialTimeout = dial
		o.ReadTimeout = command
		o.WriteTimeout = command
	}
}

// WithPoolSize caps the number of pooled connections.
func WithPoolSize(n int) Option {
	return func(o *redis.Options) {
		o.PoolSize = n
	}
}

// New connects to the redis:// URL and pings it. An empty URL means Redis is
// not configured and yields a nil client.
func New(ctx context.Context, url string, opts ...Option) (*Client, error) {
	if url == "" {
		return nil, nil
	}

	ropts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	WithTimeouts(2*time.Second, 500*time.Millisecond)(ropts)
	for _, opt := range opts {
		opt(ropts)
	}

	client := redis.NewClient(ropts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Client{Client: client}, nil
}

// Health pings the server. It backs the readiness probe.
func (c *Client) Health(ctx context.Context) error {
	if err := c.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}
