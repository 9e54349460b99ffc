package featureflag

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	dErrors "engage/pkg/domain-errors"
	"engage/pkg/platform/sentinel"
)

// ErrNoEvaluator is returned for every flag when no evaluator is configured.
// It wraps sentinel.ErrUnavailable, so callers fail open.
var ErrNoEvaluator = fmt.Errorf("flag evaluator not configured: %w", sentinel.ErrUnavailable)

type memoEntry struct {
	value any
	err   error
}

// identity is the part of the evaluation context that targeting depends on.
type identity struct {
	userID         string
	organizationID string
}

func identityOf(ec EvaluationContext) identity {
	return identity{userID: ec.UserID, organizationID: ec.OrganizationID}
}

// RequestFlags is the request-scoped view of the flag evaluator. Each key is
// sent to the evaluator at most once per identity the request runs under;
// evaluator failures are memoized too, so an outage costs one call per key
// rather than one per lookup.
//
// A RequestFlags must not outlive its request.
type RequestFlags struct {
	evaluator Evaluator
	logger    *slog.Logger
	metrics   *Metrics

	mu   sync.Mutex
	ec   EvaluationContext
	memo map[identity]map[string]memoEntry
}

// FlagsOption configures a RequestFlags.
type FlagsOption func(*RequestFlags)

func WithFlagsLogger(logger *slog.Logger) FlagsOption {
	return func(f *RequestFlags) {
		f.logger = logger
	}
}

func WithFlagsMetrics(m *Metrics) FlagsOption {
	return func(f *RequestFlags) {
		f.metrics = m
	}
}

// NewRequestFlags creates the flag view for one request.
func NewRequestFlags(evaluator Evaluator, ec EvaluationContext, opts ...FlagsOption) *RequestFlags {
	f := &RequestFlags{
		evaluator: evaluator,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		ec:        ec,
		memo:      make(map[identity]map[string]memoEntry),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Context returns a copy of the evaluation context.
func (f *RequestFlags) Context() EvaluationContext {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ec
}

// Identify records the authenticated identity. Later lookups use the memo of
// that identity, so a flag read before authentication is evaluated once more
// for the caller, and once only. Values memoized for the earlier identity are
// kept and reused if the request switches back to it.
func (f *RequestFlags) Identify(userID, organizationID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ec.UserID = userID
	f.ec.OrganizationID = organizationID
}

// memoFor returns the memo of id, creating it. f.mu must be held.
func (f *RequestFlags) memoFor(id identity) map[string]memoEntry {
	m, ok := f.memo[id]
	if !ok {
		m = make(map[string]memoEntry)
		f.memo[id] = m
	}
	return m
}

// Value returns the raw evaluated value of key.
func (f *RequestFlags) Value(ctx context.Context, key string) (any, error) {
	f.mu.Lock()
	ec := f.ec
	if e, ok := f.memo[identityOf(ec)][key]; ok {
		f.mu.Unlock()
		return e.value, e.err
	}
	f.mu.Unlock()

	var e memoEntry
	if f.evaluator == nil {
		e.err = ErrNoEvaluator
	} else {
		f.metrics.incEvaluations(1)
		res, err := f.evaluator.EvaluateFlag(ctx, key, ec)
		e = memoEntry{value: res.Value, err: err}
	}
	if e.err != nil {
		f.recordFailure(ctx, []string{key}, e.err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	memo := f.memoFor(identityOf(ec))
	// a concurrent lookup may have stored first; keep its answer
	if existing, ok := memo[key]; ok {
		return existing.value, existing.err
	}
	memo[key] = e
	return e.value, e.err
}

// Prefetch evaluates keys that are not yet memoized in one batch call.
func (f *RequestFlags) Prefetch(ctx context.Context, keys ...string) {
	f.mu.Lock()
	ec := f.ec
	memo := f.memo[identityOf(ec)]
	missing := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, ok := memo[k]; !ok {
			missing = append(missing, k)
		}
	}
	f.mu.Unlock()
	if len(missing) == 0 {
		return
	}

	var (
		results map[string]Result
		err     error
	)
	if f.evaluator == nil {
		err = ErrNoEvaluator
	} else {
		f.metrics.incEvaluations(len(missing))
		results, err = f.evaluator.EvaluateFlags(ctx, missing, ec)
	}
	if err != nil {
		f.recordFailure(ctx, missing, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	memo = f.memoFor(identityOf(ec))
	for _, k := range missing {
		if _, ok := memo[k]; ok {
			continue
		}
		if err != nil {
			memo[k] = memoEntry{err: err}
			continue
		}
		memo[k] = memoEntry{value: results[k].Value}
	}
}

func (f *RequestFlags) recordFailure(ctx context.Context, keys []string, err error) {
	f.metrics.incFailures()
	f.logger.WarnContext(ctx, "feature flag evaluation failed",
		"flags", strings.Join(keys, ","),
		"error", err,
	)
}

// IsEnabled reports whether key is on. Unset flags and evaluator failures
// read as false.
func (f *RequestFlags) IsEnabled(ctx context.Context, key string) bool {
	v, err := f.Value(ctx, key)
	if err != nil {
		return false
	}
	b, _ := asBool(v)
	return b
}

// StringValue returns key as a string, or def when unset, failed or not a
// string.
func (f *RequestFlags) StringValue(ctx context.Context, key, def string) string {
	v, err := f.Value(ctx, key)
	if err != nil {
		return def
	}
	if s, ok := v.(string); ok {
		return s
	}
	return def
}

// NumericValue returns key as a number, or def when unset, failed or not
// numeric.
func (f *RequestFlags) NumericValue(ctx context.Context, key string, def float64) float64 {
	v, err := f.Value(ctx, key)
	if err != nil {
		return def
	}
	if n, ok := asNumber(v); ok {
		return n
	}
	return def
}

// Require gates a route on key. A disabled flag yields a not-found error that
// is indistinguishable from a missing route. An evaluator failure lets the
// request through.
func (f *RequestFlags) Require(ctx context.Context, key string) error {
	v, err := f.Value(ctx, key)
	if err != nil {
		f.metrics.incFailOpen()
		f.logger.WarnContext(ctx, "feature flag gate failing open",
			"flag", key,
			"error", err,
		)
		return nil
	}
	if on, _ := asBool(v); on {
		return nil
	}
	return dErrors.New(dErrors.CodeNotFound, "resource not found")
}

func asBool(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		b, err := strconv.ParseBool(t)
		return b, err == nil
	default:
		return false, false
	}
}

func asNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		n, err := t.Float64()
		return n, err == nil
	case string:
		n, err := strconv.ParseFloat(t, 64)
		return n, err == nil
	default:
		return 0, false
	}
}
