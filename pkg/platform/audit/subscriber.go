package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"engage/internal/eventbus"
)

// Subscriber appends every delivered envelope to a Store before returning,
// so an event has reached the store by the time Publish returns.
type Subscriber struct {
	store  Store
	logger *slog.Logger
}

type Option func(*Subscriber)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Subscriber) {
		s.logger = logger
	}
}

func NewSubscriber(store Store, opts ...Option) *Subscriber {
	s := &Subscriber{
		store:  store,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Attach subscribes to each event type and returns a function that detaches
// all of them.
func (s *Subscriber) Attach(bus *eventbus.Bus, eventTypes ...string) eventbus.Unsubscribe {
	unsubs := make([]eventbus.Unsubscribe, 0, len(eventTypes))
	for _, t := range eventTypes {
		unsubs = append(unsubs, bus.Subscribe(t, s.Handle, eventbus.Named("audit")))
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

// Handle converts env into an audit event and appends it.
func (s *Subscriber) Handle(ctx context.Context, env eventbus.Envelope) error {
	event, err := FromEnvelope(env)
	if err != nil {
		return err
	}
	if err := s.store.Append(ctx, event); err != nil {
		return fmt.Errorf("append audit event %s: %w", env.ID, err)
	}
	s.logger.DebugContext(ctx, "audit event recorded",
		"event_type", env.Type,
		"event_id", env.ID,
		"category", event.Category,
	)
	return nil
}

// FromEnvelope maps an envelope onto an audit event.
func FromEnvelope(env eventbus.Envelope) (Event, error) {
	payload, err := json.Marshal(env.Data)
	if err != nil {
		return Event{}, fmt.Errorf("marshal payload of %s: %w", env.Type, err)
	}
	return Event{
		ID:             env.ID,
		Category:       CategoryOf(env.Type),
		Timestamp:      env.Timestamp,
		EventType:      env.Type,
		Source:         env.Source,
		OrganizationID: env.OrganizationID,
		ActorID:        env.UserID,
		CorrelationID:  env.CorrelationID,
		Payload:        payload,
	}, nil
}
