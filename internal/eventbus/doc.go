// Package eventbus is the in-process publish/subscribe primitive that decouples
// domain modules from cross-cutting reactions (notifications, analytics, audit).
//
// Publishing validates the payload against the schema registered for the event
// type. An invalid payload never becomes an envelope and no subscriber runs.
// Valid payloads are sealed into an Envelope (id and timestamp assigned at
// publish time) and delivered synchronously to every subscriber of that type in
// registration order.
//
// Delivery is at-most-once and process-local: no persistence, no retry, no
// dead-lettering. A subscriber that returns an error or panics is logged and
// skipped; the remaining subscribers still run and Publish still succeeds.
// Subscribers that need durability must write to a durable store before
// returning.
//
// Subscribers run on a context that carries the publisher's values but is never
// cancelled, so a durable write still happens after the request that published
// the event has gone away.
//
// Publishes of the same type are serialized so the within-call order is
// deterministic even under concurrent callers. A subscriber may publish again,
// of any type, as long as it passes on the context it was given (or one derived
// from it). The nested publish runs under the outer publish's lock:
//
//	bus.Subscribe(events.TypeRecognitionApproved, func(ctx context.Context, env eventbus.Envelope) error {
//		_, err := bus.PublishDraft(ctx, events.NewPointsCredited(...))
//		return err
//	})
//
// A subscriber that publishes on an unrelated context, such as
// context.Background(), waits for the type lock like any other caller and
// deadlocks if its own dispatch holds it.
package eventbus
