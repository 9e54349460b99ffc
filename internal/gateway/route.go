package gateway

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"engage/internal/ratelimit/limiter"
	"engage/pkg/platform/httputil"
)

// Handler is a route's business logic. It returns the data to wrap in a
// success envelope, or an error the gateway translates into a failure
// envelope. Handlers should honour r.Context() cancellation: the timeout
// guard stops waiting for them but cannot stop them.
type Handler func(r *http.Request) (*Response, error)

// Response is what a handler hands back to the gateway.
type Response struct {
	Status     int
	Data       any
	Message    string
	Pagination *httputil.Pagination
}

// OK returns a 200 response carrying data.
func OK(data any) *Response {
	return &Response{Status: http.StatusOK, Data: data}
}

// Created returns a 201 response carrying data.
func Created(data any, message string) *Response {
	return &Response{Status: http.StatusCreated, Data: data, Message: message}
}

// Paginated returns a 200 response with pagination metadata.
func Paginated(data any, p *httputil.Pagination) *Response {
	return &Response{Status: http.StatusOK, Data: data, Pagination: p}
}

// AuthConfig configures stage 7. Roles and AdminRequired imply Required.
type AuthConfig struct {
	Required      bool
	Roles         []string
	AdminRequired bool
}

func (a AuthConfig) required() bool {
	return a.Required || a.AdminRequired || len(a.Roles) > 0
}

// ValidationConfig lists the schemas checked in stage 9.
type ValidationConfig struct {
	Body   Schema
	Query  Schema
	Params Schema
}

func (v ValidationConfig) empty() bool {
	return v.Body == nil && v.Query == nil && v.Params == nil
}

// RateLimitConfig is a route limit applied on top of the global one. The zero
// value means no route limit.
type RateLimitConfig struct {
	Window  time.Duration
	Max     int
	KeyFunc limiter.KeyFunc
}

// FeatureFlagConfig configures stage 8. With Required set a disabled flag
// answers 404; otherwise the flag is only pre-evaluated for the handler.
type FeatureFlagConfig struct {
	Key      string
	Required bool
}

// CacheConfig enables response caching for GET routes when TTL is positive.
type CacheConfig struct {
	TTL     time.Duration
	KeyFunc func(r *http.Request) string
}

// RouteConfig declares one route. It is read once at registration and never
// mutated afterwards.
type RouteConfig struct {
	Method      string
	Path        string
	Handler     Handler
	Middleware  []func(http.Handler) http.Handler
	Auth        AuthConfig
	Validation  ValidationConfig
	RateLimit   RateLimitConfig
	FeatureFlag FeatureFlagConfig
	Cache       CacheConfig
}

func (c RouteConfig) name() string {
	return c.Method + " " + c.Path
}

func (c RouteConfig) validate() error {
	switch {
	case c.Method == "":
		return fmt.Errorf("route %q: method is required", c.Path)
	case !strings.HasPrefix(c.Path, "/"):
		return fmt.Errorf("route %s: path must start with /", c.name())
	case c.Handler == nil:
		return fmt.Errorf("route %s: handler is required", c.name())
	case c.FeatureFlag.Required && c.FeatureFlag.Key == "":
		return fmt.Errorf("route %s: required feature flag has no key", c.name())
	case c.Cache.TTL > 0 && c.Method != http.MethodGet:
		return fmt.Errorf("route %s: only GET routes can be cached", c.name())
	case (c.RateLimit.Max > 0) != (c.RateLimit.Window > 0):
		return fmt.Errorf("route %s: rate limit needs both window and max", c.name())
	}
	return nil
}
