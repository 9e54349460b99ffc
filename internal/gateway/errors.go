package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	dErrors "engage/pkg/domain-errors"
	"engage/pkg/platform/httputil"
	"engage/pkg/platform/sentinel"
	"engage/pkg/requestcontext"
)

var (
	// errRouteNotFound is also what a disabled required flag renders as, so
	// the two cannot be told apart by clients.
	errRouteNotFound = dErrors.New(dErrors.CodeNotFound, "resource not found")
	errTimeout       = dErrors.New(dErrors.CodeTimeout, "request timed out")
)

// panicError carries a recovered panic value through the error boundary.
type panicError struct {
	value any
}

func (e *panicError) Error() string {
	return fmt.Sprintf("handler panic: %v", e.value)
}

// translate maps infrastructure errors that handlers commonly return onto the
// client-facing taxonomy. Anything unrecognized stays a 500.
func translate(err error) error {
	if _, ok := dErrors.As(err); ok {
		return err
	}
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, "resource not found")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.Wrap(err, dErrors.CodeConflict, "resource is not in a valid state for this operation")
	case errors.Is(err, context.DeadlineExceeded):
		return dErrors.Wrap(err, dErrors.CodeTimeout, "request timed out")
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "service temporarily unavailable")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "internal error")
}

// writeError is the global error handler every stage reports through.
// Internal errors are logged with their cause; the client only sees the
// cause in dev mode.
func (g *Gateway) writeError(w http.ResponseWriter, r *http.Request, err error) {
	err = translate(err)
	ctx := r.Context()
	if dErrors.HasCode(err, dErrors.CodeInternal) {
		route := requestcontext.RouteFrom(ctx)
		g.logger.ErrorContext(ctx, "request failed",
			"error", err,
			"method", route.Method,
			"route", route.Path,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	httputil.WriteErrorMode(w, err, g.devMode)
}
