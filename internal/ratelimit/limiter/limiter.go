// Package limiter enforces windowed request limits against a bucket store,
// failing open when the store cannot answer.
package limiter

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"engage/internal/ratelimit/metrics"
	"engage/internal/ratelimit/models"
	"engage/internal/ratelimit/store/bucket"
)

// Limiter checks keys against a primary store. When the primary keeps failing
// its circuit opens and checks are answered by the in-memory fallback until
// probes succeed again.
type Limiter struct {
	primary  bucket.Store
	fallback bucket.Store
	breaker  *CircuitBreaker
	logger   *slog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
	disabled bool

	probeInterval time.Duration
	probeMu       sync.Mutex
	lastProbe     time.Time
}

type Option func(*Limiter)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) {
		l.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Limiter) {
		l.metrics = m
	}
}

// WithFallback sets the store used while the primary circuit is open.
func WithFallback(store bucket.Store) Option {
	return func(l *Limiter) {
		l.fallback = store
	}
}

// WithBreaker overrides the consecutive failure and success thresholds.
func WithBreaker(failureThreshold, successThreshold int) Option {
	return func(l *Limiter) {
		l.breaker = newCircuitBreaker(failureThreshold, successThreshold)
	}
}

// WithProbeInterval sets how often the primary is retried while the circuit
// is open.
func WithProbeInterval(d time.Duration) Option {
	return func(l *Limiter) {
		l.probeInterval = d
	}
}

func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// WithDisabled disables rate limiting entirely (for testing/demo mode).
func WithDisabled(disabled bool) Option {
	return func(l *Limiter) {
		l.disabled = disabled
	}
}

// New creates a limiter over primary.
func New(primary bucket.Store, opts ...Option) (*Limiter, error) {
	if primary == nil {
		return nil, errors.New("bucket store is required")
	}
	l := &Limiter{
		primary:       primary,
		breaker:       newCircuitBreaker(5, 3),
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:           time.Now,
		probeInterval: time.Second,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.disabled {
		l.logger.Info("rate limiting disabled")
	}
	return l, nil
}

// Check records one request for key under rule. It never returns an error:
// store failures are logged and the request is let through.
func (l *Limiter) Check(ctx context.Context, key string, rule models.Rule) *models.RateLimitResult {
	if l.disabled || rule.IsZero() {
		return nil
	}

	if l.breaker.IsOpen() {
		if l.shouldProbe() {
			if res, err := l.primary.Allow(ctx, key, rule.Max, rule.Window); err == nil {
				if l.breaker.RecordSuccess() {
					l.metrics.SetCircuitOpen(false)
					l.logger.InfoContext(ctx, "rate limit store recovered, circuit closed")
				}
				return res
			}
			l.breaker.RecordFailure()
			l.metrics.IncrementStoreErrors()
		}
		return l.fromFallback(ctx, key, rule)
	}

	res, err := l.primary.Allow(ctx, key, rule.Max, rule.Window)
	if err == nil {
		l.breaker.RecordSuccess()
		return res
	}

	l.metrics.IncrementStoreErrors()
	l.logger.ErrorContext(ctx, "failed to check rate limit", "error", err, "key", key)
	if l.breaker.RecordFailure() {
		l.metrics.SetCircuitOpen(true)
		l.logger.WarnContext(ctx, "rate limit store failing, circuit open; using in-memory fallback")
		return l.fromFallback(ctx, key, rule)
	}
	return models.FailOpen(rule, l.now())
}

// Reset clears key in both stores.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	err := l.primary.Reset(ctx, key)
	if l.fallback != nil {
		err = errors.Join(err, l.fallback.Reset(ctx, key))
	}
	return err
}

// Degraded reports whether checks are currently served by the fallback.
func (l *Limiter) Degraded() bool {
	return l.breaker.IsOpen()
}

func (l *Limiter) fromFallback(ctx context.Context, key string, rule models.Rule) *models.RateLimitResult {
	if l.fallback == nil {
		return models.FailOpen(rule, l.now())
	}
	res, err := l.fallback.Allow(ctx, key, rule.Max, rule.Window)
	if err != nil {
		l.logger.ErrorContext(ctx, "fallback rate limit store failed", "error", err)
		return models.FailOpen(rule, l.now())
	}
	l.metrics.IncrementFallbackUsed()
	res.Degraded = true
	return res
}

func (l *Limiter) shouldProbe() bool {
	l.probeMu.Lock()
	defer l.probeMu.Unlock()
	now := l.now()
	if now.Sub(l.lastProbe) < l.probeInterval {
		return false
	}
	l.lastProbe = now
	return true
}
