package eventbus

import (
	"context"
	"fmt"
)

// TypedHandler receives the envelope together with its payload decoded as T.
type TypedHandler[T any] func(ctx context.Context, env Envelope, payload T) error

// SubscribeTyped subscribes a handler that expects payloads of type T. Payloads
// of any other type are reported as a subscriber failure.
func SubscribeTyped[T any](b *Bus, eventType string, h TypedHandler[T], opts ...SubscribeOption) Unsubscribe {
	return b.Subscribe(eventType, func(ctx context.Context, env Envelope) error {
		switch p := env.Data.(type) {
		case T:
			return h(ctx, env, p)
		case *T:
			if p != nil {
				return h(ctx, env, *p)
			}
		}
		var want T
		return fmt.Errorf("payload has type %T, subscriber expects %T", env.Data, want)
	}, opts...)
}
