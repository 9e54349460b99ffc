package gateway

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"engage/pkg/requestcontext"
)

// timeoutGuard answers 408 when the rest of the chain has not finished within
// d. The guard is cooperative: it stops waiting and cancels the request
// context, but the downstream handler keeps running until it notices the
// cancellation. Handlers that call slow dependencies must pass r.Context()
// down or they leak work past the response.
//
// Downstream output is buffered and only copied to the client if the chain
// finishes in time, so a late handler can never corrupt the 408 response.
func (g *Gateway) timeoutGuard(route string, d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()

			tw := &timeoutWriter{h: make(http.Header)}
			done := make(chan struct{})
			panicked := make(chan any, 1)
			go func() {
				defer func() {
					if p := recover(); p != nil {
						panicked <- p
					}
				}()
				next.ServeHTTP(tw, r.WithContext(ctx))
				close(done)
			}()

			select {
			case p := <-panicked:
				g.metrics.IncrementPanics(route)
				g.writeError(w, r, &panicError{value: p})
			case <-done:
				tw.mu.Lock()
				defer tw.mu.Unlock()
				dst := w.Header()
				for k, vv := range tw.h {
					dst[k] = vv
				}
				if !tw.wroteHeader {
					tw.code = http.StatusOK
				}
				w.WriteHeader(tw.code)
				_, _ = w.Write(tw.buf.Bytes())
			case <-ctx.Done():
				tw.mu.Lock()
				defer tw.mu.Unlock()
				tw.timedOut = true
				if errors.Is(ctx.Err(), context.DeadlineExceeded) {
					g.metrics.IncrementTimeouts(route)
					g.logger.WarnContext(r.Context(), "request timed out",
						"route", route,
						"timeout", d.String(),
						"request_id", requestcontext.RequestID(r.Context()),
					)
					g.writeError(w, r, errTimeout)
				}
				// otherwise the client went away; nothing to answer
			}
		})
	}
}

// timeoutWriter buffers the downstream response until the guard decides
// whether to forward it.
type timeoutWriter struct {
	mu          sync.Mutex
	h           http.Header
	buf         bytes.Buffer
	code        int
	wroteHeader bool
	timedOut    bool
}

func (tw *timeoutWriter) Header() http.Header { return tw.h }

func (tw *timeoutWriter) Write(p []byte) (int, error) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.timedOut {
		return 0, http.ErrHandlerTimeout
	}
	if !tw.wroteHeader {
		tw.writeHeaderLocked(http.StatusOK)
	}
	return tw.buf.Write(p)
}

func (tw *timeoutWriter) WriteHeader(code int) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.timedOut {
		return
	}
	tw.writeHeaderLocked(code)
}

func (tw *timeoutWriter) writeHeaderLocked(code int) {
	if tw.wroteHeader {
		return
	}
	tw.wroteHeader = true
	tw.code = code
}
