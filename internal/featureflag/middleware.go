package featureflag

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/mssola/useragent"

	"engage/pkg/platform/middleware/metadata"
	"engage/pkg/requestcontext"
)

type flagsKey struct{}

// WithRequestFlags attaches f to ctx.
func WithRequestFlags(ctx context.Context, f *RequestFlags) context.Context {
	return context.WithValue(ctx, flagsKey{}, f)
}

// FromContext returns the request's flags. Outside an initialized request it
// returns a view with no evaluator, where every flag is unavailable.
func FromContext(ctx context.Context) *RequestFlags {
	if f, ok := ctx.Value(flagsKey{}).(*RequestFlags); ok {
		return f
	}
	return NewRequestFlags(nil, EvaluationContext{})
}

// Initializer builds the per-request flag context.
type Initializer struct {
	evaluator   Evaluator
	environment string
	logger      *slog.Logger
	metrics     *Metrics
}

type Option func(*Initializer)

func WithLogger(logger *slog.Logger) Option {
	return func(i *Initializer) {
		i.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(i *Initializer) {
		i.metrics = m
	}
}

// NewInitializer creates the initializer. A nil evaluator is allowed: every
// flag then reads as unavailable and gates fail open.
func NewInitializer(evaluator Evaluator, environment string, opts ...Option) *Initializer {
	i := &Initializer{
		evaluator:   evaluator,
		environment: environment,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// ForRequest builds the flag view for r from whatever identity and metadata
// earlier stages placed in its context.
func (i *Initializer) ForRequest(r *http.Request) *RequestFlags {
	ctx := r.Context()
	ec := EvaluationContext{
		UserID:         requestcontext.UserID(ctx),
		OrganizationID: requestcontext.OrganizationID(ctx),
		Environment:    i.environment,
		Request:        requestMetadata(r),
	}
	return NewRequestFlags(i.evaluator, ec,
		WithFlagsLogger(i.logger.With("request_id", requestcontext.RequestID(ctx))),
		WithFlagsMetrics(i.metrics),
	)
}

// Initialize attaches a fresh RequestFlags to every request.
func (i *Initializer) Initialize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flags := i.ForRequest(r)
		next.ServeHTTP(w, r.WithContext(WithRequestFlags(r.Context(), flags)))
	})
}

func requestMetadata(r *http.Request) RequestMetadata {
	ctx := r.Context()
	md := RequestMetadata{
		ClientIP:  requestcontext.ClientIP(ctx),
		UserAgent: requestcontext.UserAgent(ctx),
		Method:    r.Method,
		Route:     r.URL.Path,
	}
	if md.ClientIP == "" {
		md.ClientIP = metadata.ClientIPFromRequest(r)
	}
	if md.UserAgent == "" {
		md.UserAgent = r.UserAgent()
	}
	if route := requestcontext.RouteFrom(ctx); route.Path != "" {
		md.Route = route.Path
	}
	if md.UserAgent != "" {
		ua := useragent.New(md.UserAgent)
		md.Browser, _ = ua.Browser()
		md.OS = ua.OS()
		md.Mobile = ua.Mobile()
		md.Bot = ua.Bot()
	}
	return md
}
