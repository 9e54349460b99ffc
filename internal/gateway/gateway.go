// Package gateway compiles declarative route configurations into fixed-order
// middleware chains bound to a chi router.
//
// Every registered route runs the same stages, in this order:
//
//  1. request id assignment
//  2. client metadata and feature-flag context initialization
//  3. global rate limit
//  4. timeout guard
//  5. the route's custom middleware, in the order given
//  6. the route's own rate limit, which may key on the verified caller
//  7. authentication, then role and admin checks
//  8. feature-flag gate
//  9. body, query and path parameter validation
//  10. response cache lookup (GET only)
//  11. the handler, inside an error boundary
//
// Later stages rely on earlier ones: the flag gate sees the identity resolved
// by authentication, and the cache never stores a response a client was not
// allowed to see.
package gateway

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"engage/internal/featureflag"
	"engage/internal/gateway/metrics"
	"engage/internal/ratelimit/limiter"
	"engage/internal/ratelimit/models"
	"engage/pkg/platform/httputil"
	"engage/pkg/platform/middleware/admin"
	"engage/pkg/platform/middleware/auth"
	"engage/pkg/platform/middleware/metadata"
	"engage/pkg/platform/middleware/requestid"
	"engage/pkg/requestcontext"
)

// DefaultTimeout is used when WithTimeout is not given.
const DefaultTimeout = 30 * time.Second

// Gateway registers routes on a router.
type Gateway struct {
	router     chi.Router
	logger     *slog.Logger
	flags      *featureflag.Initializer
	limiter    *limiter.Limiter
	globalRule models.Rule
	authn      auth.Authenticator
	clientIP   *metadata.Resolver
	cache      *ResponseCache
	timeout    time.Duration
	devMode    bool
	metrics    *metrics.Metrics
	tracer     trace.Tracer

	mu     sync.Mutex
	routes map[string]struct{}
}

type Option func(*Gateway)

func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) {
		g.logger = logger
	}
}

// WithFlags sets the initializer for stage 2. Without it every flag reads as
// unavailable and required gates fail open.
func WithFlags(i *featureflag.Initializer) Option {
	return func(g *Gateway) {
		g.flags = i
	}
}

// WithLimiter enables rate limiting: rule is the global limit (stage 3) and
// l also enforces per-route limits (stage 6).
func WithLimiter(l *limiter.Limiter, rule models.Rule) Option {
	return func(g *Gateway) {
		g.limiter = l
		g.globalRule = rule
	}
}

// WithClientIPResolver sets how stage 2 determines the client address. By
// default forwarding headers are ignored and the peer address is used.
func WithClientIPResolver(res *metadata.Resolver) Option {
	return func(g *Gateway) {
		g.clientIP = res
	}
}

// WithAuthenticator sets the token verifier for stage 7.
func WithAuthenticator(a auth.Authenticator) Option {
	return func(g *Gateway) {
		g.authn = a
	}
}

// WithCache replaces the response cache, typically to share it with a
// service that invalidates entries after writes.
func WithCache(c *ResponseCache) Option {
	return func(g *Gateway) {
		g.cache = c
	}
}

// WithTimeout sets the request timeout. Zero disables the guard.
func WithTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		g.timeout = d
	}
}

// WithDevMode exposes internal error messages in responses.
func WithDevMode(dev bool) Option {
	return func(g *Gateway) {
		g.devMode = dev
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Gateway) {
		g.metrics = m
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(g *Gateway) {
		g.tracer = t
	}
}

// New creates a gateway bound to router. It also installs the router's
// not-found and method-not-allowed handlers so unknown routes answer with the
// same envelope as a disabled feature.
func New(router chi.Router, opts ...Option) *Gateway {
	g := &Gateway{
		router:  router,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		timeout: DefaultTimeout,
		tracer:  otel.Tracer("engage/gateway"),
		routes:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.flags == nil {
		g.flags = featureflag.NewInitializer(nil, "", featureflag.WithLogger(g.logger))
	}
	if g.cache == nil {
		g.cache = NewResponseCache()
	}
	if g.clientIP == nil {
		g.clientIP = &metadata.Resolver{}
	}

	notFound := requestid.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteErrorMode(w, errRouteNotFound, g.devMode)
	}))
	router.NotFound(notFound.ServeHTTP)
	router.MethodNotAllowed(notFound.ServeHTTP)
	return g
}

// Cache returns the response cache used by cached routes.
func (g *Gateway) Cache() *ResponseCache {
	return g.cache
}

// Routes lists registered routes as "METHOD /path", sorted.
func (g *Gateway) Routes() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, 0, len(g.routes))
	for name := range g.routes {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// RegisterRoute compiles cfg and binds it to the router. Invalid
// configurations and duplicate method and path pairs are programming errors
// and panic at startup.
func (g *Gateway) RegisterRoute(cfg RouteConfig) {
	if err := cfg.validate(); err != nil {
		panic("gateway: " + err.Error())
	}
	if cfg.Auth.required() && g.authn == nil {
		panic(fmt.Sprintf("gateway: route %s requires auth but no authenticator is configured", cfg.name()))
	}

	g.mu.Lock()
	if _, dup := g.routes[cfg.name()]; dup {
		g.mu.Unlock()
		panic(fmt.Sprintf("gateway: route %s registered twice", cfg.name()))
	}
	g.routes[cfg.name()] = struct{}{}
	g.mu.Unlock()

	g.router.Method(cfg.Method, cfg.Path, g.compile(cfg))
	g.logger.Debug("route registered", "route", cfg.name())
}

// RegisterRoutes registers each configuration in order.
func (g *Gateway) RegisterRoutes(cfgs ...RouteConfig) {
	for _, cfg := range cfgs {
		g.RegisterRoute(cfg)
	}
}

// compile builds the chain inside out, so the last wrap is the first stage.
func (g *Gateway) compile(cfg RouteConfig) http.Handler {
	name := cfg.name()

	h := g.terminal(cfg)
	if !cfg.Validation.empty() {
		h = g.validator(cfg.Validation)(h)
	}
	if cfg.FeatureFlag.Key != "" {
		h = g.flagGate(cfg.FeatureFlag)(h)
	}
	h = g.authenticate(cfg)(h)
	if rule := (models.Rule{Window: cfg.RateLimit.Window, Max: cfg.RateLimit.Max}); g.limiter != nil && !rule.IsZero() {
		h = g.limiter.Middleware("route:"+name, rule, g.routeKey(cfg.RateLimit.KeyFunc))(h)
	}
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		h = cfg.Middleware[i](h)
	}
	if g.timeout > 0 {
		h = g.timeoutGuard(name, g.timeout)(h)
	}
	if g.limiter != nil && !g.globalRule.IsZero() {
		h = g.limiter.Middleware("global", g.globalRule, limiter.ClientIPKey)(h)
	}
	h = g.flags.Initialize(h)
	h = g.clientIP.Middleware(h)
	h = requestid.Middleware(h)
	return g.instrument(cfg)(h)
}

// instrument records the route, a span and request metrics around the chain.
func (g *Gateway) instrument(cfg RouteConfig) func(http.Handler) http.Handler {
	name := cfg.name()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx, span := g.tracer.Start(r.Context(), name,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					attribute.String("http.method", cfg.Method),
					attribute.String("http.route", cfg.Path),
				),
			)
			defer span.End()
			ctx = requestcontext.WithRoute(ctx, cfg.Method, cfg.Path)
			ctx = withCaller(ctx)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			span.SetAttributes(attribute.Int("http.status_code", status))
			if status >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(status))
			}
			g.metrics.ObserveRequest(cfg.Method, cfg.Path, status, time.Since(start))
		})
	}
}

// authenticate is stage 7. Routes that do not require auth still resolve a
// valid token so flag targeting and handlers can see the caller.
//
// On a route gated by a required flag, authentication failures are reported
// as not found while the flag is off, so unreleased routes look the same to
// anonymous and authenticated clients.
func (g *Gateway) authenticate(cfg RouteConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			flags := featureflag.FromContext(ctx)

			var principal *requestcontext.Principal
			var authErr error
			if g.authn != nil {
				if _, ok := auth.BearerToken(r); ok || cfg.Auth.required() {
					principal, authErr = g.resolveCaller(r)
				}
			}

			if cfg.Auth.required() {
				if authErr == nil {
					authErr = admin.Authorize(*principal, cfg.Auth.Roles, cfg.Auth.AdminRequired)
				}
				if authErr != nil {
					if cfg.FeatureFlag.Required {
						if err := flags.Require(ctx, cfg.FeatureFlag.Key); err != nil {
							g.writeError(w, r, err)
							return
						}
					}
					g.logger.WarnContext(ctx, "request rejected by auth",
						"error", authErr,
						"route", cfg.name(),
						"request_id", requestcontext.RequestID(ctx),
					)
					g.writeError(w, r, authErr)
					return
				}
			}

			if principal != nil && authErr == nil {
				ctx = requestcontext.WithPrincipal(ctx, *principal)
				flags.Identify(principal.UserID, principal.OrganizationID)
				r = r.WithContext(ctx)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// flagGate is stage 8. A required flag that is off answers 404; an evaluator
// failure lets the request through. A non-required flag is only evaluated so
// the handler reads it from the memo.
func (g *Gateway) flagGate(cfg FeatureFlagConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			flags := featureflag.FromContext(r.Context())
			if !cfg.Required {
				flags.Prefetch(r.Context(), cfg.Key)
				next.ServeHTTP(w, r)
				return
			}
			if err := flags.Require(r.Context(), cfg.Key); err != nil {
				g.writeError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// terminal covers stages 10 and 11.
func (g *Gateway) terminal(cfg RouteConfig) http.Handler {
	name := cfg.name()
	cacheable := cfg.Cache.TTL > 0 && cfg.Method == http.MethodGet
	keyFn := cfg.Cache.KeyFunc
	if keyFn == nil {
		keyFn = DefaultCacheKey
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !cacheable {
			resp, err := g.invoke(name, cfg.Handler, r)
			if err != nil {
				g.writeError(w, r, err)
				return
			}
			writeCached(w, resp, "")
			return
		}

		key := keyFn(r)
		if hit, ok := g.cache.Get(key); ok {
			g.metrics.IncrementCache(cfg.Path, "hit")
			writeCached(w, hit, "HIT")
			return
		}

		resp, shared, err := g.cache.fill(key, func() (CachedResponse, error) {
			resp, err := g.invoke(name, cfg.Handler, r)
			if err != nil {
				return CachedResponse{}, err
			}
			if resp.Status >= 200 && resp.Status < 300 {
				g.cache.Set(key, resp, cfg.Cache.TTL)
			}
			return resp, nil
		})
		if err != nil {
			g.writeError(w, r, err)
			return
		}
		if shared {
			g.metrics.IncrementCache(cfg.Path, "shared")
			writeCached(w, resp, "HIT")
			return
		}
		g.metrics.IncrementCache(cfg.Path, "miss")
		writeCached(w, resp, "MISS")
	})
}

// invoke runs the handler inside the error boundary and renders its success
// envelope. Panics become internal errors.
func (g *Gateway) invoke(route string, h Handler, r *http.Request) (resp CachedResponse, err error) {
	defer func() {
		if p := recover(); p != nil {
			g.metrics.IncrementPanics(route)
			err = &panicError{value: p}
		}
	}()

	out, err := h(r)
	if err != nil {
		return CachedResponse{}, err
	}
	if out == nil {
		out = &Response{}
	}
	status := out.Status
	if status == 0 {
		status = http.StatusOK
	}
	body, err := json.Marshal(httputil.Success(out.Data, out.Message, out.Pagination))
	if err != nil {
		return CachedResponse{}, fmt.Errorf("encode response: %w", err)
	}
	return CachedResponse{
		Status:      status,
		ContentType: "application/json",
		Body:        append(body, '\n'),
	}, nil
}

func writeCached(w http.ResponseWriter, resp CachedResponse, cacheStatus string) {
	w.Header().Set("Content-Type", resp.ContentType)
	if cacheStatus != "" {
		w.Header().Set("X-Cache", cacheStatus)
	}
	w.WriteHeader(resp.Status)
	_, _ = w.Write(resp.Body)
}
