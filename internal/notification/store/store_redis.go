package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"engage/internal/notification/models"
)

// RedisStore keeps each inbox in a capped Redis list so every instance sees
// the same notifications.
type RedisStore struct {
	client redis.Cmdable
	size   int
	ttl    time.Duration
}

// NewRedisStore creates a store backed by client. Inboxes untouched for ttl
// expire.
func NewRedisStore(client redis.Cmdable, size int, ttl time.Duration) *RedisStore {
	if size <= 0 {
		size = DefaultInboxSize
	}
	return &RedisStore{client: client, size: size, ttl: ttl}
}

func (s *RedisStore) Deliver(ctx context.Context, n models.Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	key := inboxKey(n.OrganizationID, n.RecipientID)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, key, data)
		pipe.LTrim(ctx, key, 0, int64(s.size-1))
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("deliver notification: %w", err)
	}
	return nil
}

func (s *RedisStore) Recent(ctx context.Context, organizationID, userID string, limit int) ([]models.Notification, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	raw, err := s.client.LRange(ctx, inboxKey(organizationID, userID), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("read notifications: %w", err)
	}
	out := make([]models.Notification, 0, len(raw))
	for _, item := range raw {
		var n models.Notification
		if err := json.Unmarshal([]byte(item), &n); err != nil {
			return nil, fmt.Errorf("decode notification: %w", err)
		}
		out = append(out, n)
	}
	return out, nil
}
