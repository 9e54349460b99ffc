package limiter

import (
	"net/http"
	"strconv"

	"engage/internal/ratelimit/models"
	dErrors "engage/pkg/domain-errors"
	"engage/pkg/platform/httputil"
	"engage/pkg/platform/middleware/metadata"
	"engage/pkg/requestcontext"
)

// KeyFunc derives the client identifier a limit is counted against.
type KeyFunc func(r *http.Request) string

// ClientIPKey counts requests per client address.
func ClientIPKey(r *http.Request) string {
	if ip := requestcontext.ClientIP(r.Context()); ip != "" {
		return ip
	}
	return metadata.ClientIPFromRequest(r)
}

// UserOrIPKey counts authenticated requests per user and anonymous ones per
// client address.
func UserOrIPKey(r *http.Request) string {
	if userID := requestcontext.UserID(r.Context()); userID != "" {
		return "user:" + userID
	}
	return "ip:" + ClientIPKey(r)
}

// Middleware enforces rule under scope. Limiters with different scopes keep
// separate buckets, so a route limit stacks on the global one.
func (l *Limiter) Middleware(scope string, rule models.Rule, keyFn KeyFunc) func(http.Handler) http.Handler {
	if keyFn == nil {
		keyFn = ClientIPKey
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			result := l.Check(r.Context(), models.NewKey(scope, keyFn(r)), rule)
			if result == nil {
				next.ServeHTTP(w, r)
				return
			}

			// Add headers regardless of outcome
			addRateLimitHeaders(w, result)

			if !result.Allowed {
				l.metrics.IncrementRejections(scope)
				l.logger.InfoContext(r.Context(), "rate limit exceeded",
					"scope", scope,
					"limit", rule.String(),
					"request_id", requestcontext.RequestID(r.Context()),
				)
				w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
				httputil.WriteError(w, dErrors.New(dErrors.CodeRateLimited, "Too many requests. Please try again later."))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func addRateLimitHeaders(w http.ResponseWriter, result *models.RateLimitResult) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
	if result.Degraded {
		w.Header().Set("X-RateLimit-Status", "degraded")
	}
}
