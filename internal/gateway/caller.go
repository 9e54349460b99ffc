package gateway

import (
	"context"
	"net/http"
	"sync"

	"engage/internal/ratelimit/limiter"
	"engage/pkg/platform/middleware/auth"
	"engage/pkg/requestcontext"
)

type callerContextKey struct{}

// caller memoizes bearer token verification for one request. The route limit
// and stage 7 both need the caller; the token is verified once.
type caller struct {
	once      sync.Once
	principal *requestcontext.Principal
	err       error
}

func withCaller(ctx context.Context) context.Context {
	return context.WithValue(ctx, callerContextKey{}, &caller{})
}

// resolveCaller verifies the bearer token of r, at most once per request.
func (g *Gateway) resolveCaller(r *http.Request) (*requestcontext.Principal, error) {
	c, ok := r.Context().Value(callerContextKey{}).(*caller)
	if !ok {
		return auth.Authenticate(r, g.authn)
	}
	c.once.Do(func() {
		c.principal, c.err = auth.Authenticate(r, g.authn)
	})
	return c.principal, c.err
}

// routeKey lets a route limit key on the authenticated caller even though it
// runs before stage 7. A valid token only informs the key here; an invalid or
// missing one falls back to keyFn on the anonymous request, and stage 7 still
// decides whether the request is allowed.
func (g *Gateway) routeKey(keyFn limiter.KeyFunc) limiter.KeyFunc {
	if keyFn == nil {
		keyFn = limiter.ClientIPKey
	}
	if g.authn == nil {
		return keyFn
	}
	return func(r *http.Request) string {
		if _, ok := auth.BearerToken(r); !ok {
			return keyFn(r)
		}
		principal, err := g.resolveCaller(r)
		if err != nil {
			return keyFn(r)
		}
		return keyFn(r.WithContext(requestcontext.WithPrincipal(r.Context(), *principal)))
	}
}
