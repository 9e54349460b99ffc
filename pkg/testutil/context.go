package testutil

import (
	"context"
	"net/http"
	"sync"
	"time"

	"engage/pkg/requestcontext"
)

// WithPrincipal adds an authenticated principal to the request context.
// This simulates what the authentication stage does for authenticated requests.
func WithPrincipal(req *http.Request, userID, organizationID string, roles ...string) *http.Request {
	ctx := requestcontext.WithPrincipal(req.Context(), requestcontext.Principal{
		UserID:         userID,
		OrganizationID: organizationID,
		Roles:          roles,
	})
	return req.WithContext(ctx)
}

// WithContextValue adds an arbitrary key-value pair to the request context.
func WithContextValue(req *http.Request, key, value any) *http.Request {
	ctx := context.WithValue(req.Context(), key, value)
	return req.WithContext(ctx)
}

// Clock is a manually advanced time source for components that take a
// `func() time.Time`.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a clock stopped at start.
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
