package eventbus

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"engage/pkg/requestcontext"
)

// Unsubscribe removes the registration it was returned for. Calling it more
// than once is a no-op.
type Unsubscribe func()

type subscription struct {
	id        uint64
	eventType string
	name      string
	handler   Handler
	active    atomic.Bool
}

// Bus is the in-process event bus. Construct one per process (or per test)
// with New and pass it to the modules that publish or subscribe.
type Bus struct {
	schemas *Registry
	logger  *slog.Logger
	metrics *Metrics
	tracer  trace.Tracer
	now     func() time.Time
	newID   func() string

	mu     sync.RWMutex
	subs   map[string][]*subscription
	nextID atomic.Uint64

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

type Option func(*Bus)

// WithLogger sets the logger used for subscriber failures.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bus) {
		b.logger = logger
	}
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *Metrics) Option {
	return func(b *Bus) {
		b.metrics = m
	}
}

// WithClock overrides the timestamp source (for tests).
func WithClock(now func() time.Time) Option {
	return func(b *Bus) {
		b.now = now
	}
}

// WithIDGenerator overrides envelope id generation (for tests).
func WithIDGenerator(newID func() string) Option {
	return func(b *Bus) {
		b.newID = newID
	}
}

// WithTracer overrides the tracer; defaults to the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(b *Bus) {
		b.tracer = t
	}
}

// New creates a bus validating payloads against schemas.
func New(schemas *Registry, opts ...Option) *Bus {
	b := &Bus{
		schemas: schemas,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer:  otel.Tracer("engage/internal/eventbus"),
		now:     time.Now,
		newID:   func() string { return ulid.Make().String() },
		subs:    make(map[string][]*subscription),
		locks:   make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// SubscribeOption customizes a subscription.
type SubscribeOption func(*subscription)

// Named labels the subscriber in logs.
func Named(name string) SubscribeOption {
	return func(s *subscription) {
		s.name = name
	}
}

// Subscribe registers handler for eventType. Subscribers of one type run in the
// order they subscribed.
func (b *Bus) Subscribe(eventType string, handler Handler, opts ...SubscribeOption) Unsubscribe {
	sub := &subscription{
		id:        b.nextID.Add(1),
		eventType: eventType,
		handler:   handler,
	}
	for _, opt := range opts {
		opt(sub)
	}
	if sub.name == "" {
		sub.name = fmt.Sprintf("%s#%d", eventType, sub.id)
	}
	sub.active.Store(true)

	b.mu.Lock()
	// Copy on write so in-flight dispatches keep iterating their own snapshot.
	next := make([]*subscription, 0, len(b.subs[eventType])+1)
	next = append(next, b.subs[eventType]...)
	b.subs[eventType] = append(next, sub)
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(sub) })
	}
}

func (b *Bus) remove(sub *subscription) {
	sub.active.Store(false)

	b.mu.Lock()
	defer b.mu.Unlock()
	current := b.subs[sub.eventType]
	idx := slices.Index(current, sub)
	if idx == -1 {
		return
	}
	next := slices.Delete(slices.Clone(current), idx, idx+1)
	if len(next) == 0 {
		delete(b.subs, sub.eventType)
		return
	}
	b.subs[sub.eventType] = next
}

// Subscribers reports how many handlers are registered for eventType.
func (b *Bus) Subscribers(eventType string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[eventType])
}

// PublishDraft publishes an event produced by the domain event catalog.
func (b *Bus) PublishDraft(ctx context.Context, d Draft) (Envelope, error) {
	return b.Publish(ctx, d.Type, d.Data, d.Meta)
}

// Publish validates payload, seals it into an envelope and delivers it to every
// subscriber of eventType before returning. The only error it returns is a
// *SchemaValidationError; subscriber failures are logged, never returned.
func (b *Bus) Publish(ctx context.Context, eventType string, payload any, meta Meta) (Envelope, error) {
	ctx, span := b.tracer.Start(ctx, "eventbus.publish",
		trace.WithAttributes(attribute.String("event.type", eventType)))
	defer span.End()

	if err := b.schemas.Validate(eventType, payload); err != nil {
		b.metrics.incRejected(eventType)
		span.RecordError(err)
		span.SetStatus(codes.Error, "schema validation failed")
		return Envelope{}, err
	}

	env := b.seal(ctx, eventType, payload, meta)
	span.SetAttributes(attribute.String("event.id", env.ID))

	b.dispatch(ctx, env)
	b.metrics.incPublished(eventType)
	return env, nil
}

func (b *Bus) seal(ctx context.Context, eventType string, payload any, meta Meta) Envelope {
	env := Envelope{
		ID:             b.newID(),
		Type:           eventType,
		Timestamp:      b.now().UTC(),
		Source:         meta.Source,
		Version:        meta.Version,
		CorrelationID:  meta.CorrelationID,
		UserID:         meta.UserID,
		OrganizationID: meta.OrganizationID,
		Data:           payload,
		Metadata:       meta.Metadata,
	}
	if env.Version == 0 {
		env.Version = 1
	}
	if env.UserID == "" {
		env.UserID = requestcontext.UserID(ctx)
	}
	if env.OrganizationID == "" {
		env.OrganizationID = requestcontext.OrganizationID(ctx)
	}
	if env.CorrelationID == "" {
		env.CorrelationID = requestcontext.RequestID(ctx)
	}
	if env.CorrelationID == "" {
		env.CorrelationID = env.ID
	}
	return env
}

// dispatchingKey marks a context handed to a subscriber. A call chain holds at
// most one type lock: the outermost publish takes it and every publish nested
// inside its subscribers, of any type, is delivered under it. Two call chains
// therefore never wait on each other's locks.
type dispatchingKey struct{}

func dispatching(ctx context.Context) bool {
	v, _ := ctx.Value(dispatchingKey{}).(bool)
	return v
}

func (b *Bus) typeLock(eventType string) *sync.Mutex {
	b.locksMu.Lock()
	defer b.locksMu.Unlock()
	l, ok := b.locks[eventType]
	if !ok {
		l = &sync.Mutex{}
		b.locks[eventType] = l
	}
	return l
}

// dispatch delivers env to the subscribers of its type. Subscribers receive a
// context that keeps the publisher's values but is never cancelled.
func (b *Bus) dispatch(ctx context.Context, env Envelope) {
	if !dispatching(ctx) {
		l := b.typeLock(env.Type)
		l.Lock()
		defer l.Unlock()
		ctx = context.WithValue(context.WithoutCancel(ctx), dispatchingKey{}, true)
	}

	b.mu.RLock()
	subs := b.subs[env.Type]
	b.mu.RUnlock()

	for _, sub := range subs {
		if !sub.active.Load() {
			continue
		}
		if err := deliver(ctx, sub, env.clone()); err != nil {
			b.metrics.incSubscriberFailure(env.Type)
			serr := &SubscriberError{EventType: env.Type, EventID: env.ID, Subscriber: sub.name, Err: err}
			b.logger.ErrorContext(ctx, "event subscriber failed",
				"error", serr,
				"event_type", env.Type,
				"event_id", env.ID,
				"subscriber", sub.name,
				"correlation_id", env.CorrelationID,
			)
		}
	}
}

func deliver(ctx context.Context, sub *subscription, env Envelope) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("subscriber panic: %v", r)
		}
	}()
	return sub.handler(ctx, env)
}
