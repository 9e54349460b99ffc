// Package bucket stores per-key request windows for the rate limiter.
package bucket

import (
	"context"
	"time"

	"engage/internal/ratelimit/models"
)

// Store records requests against a key and answers whether one more fits
// within limit for the trailing window.
type Store interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error)
	Reset(ctx context.Context, key string) error
}

var (
	_ Store = (*InMemoryBucketStore)(nil)
	_ Store = (*RedisBucketStore)(nil)
)
