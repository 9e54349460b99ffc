// Package requestid assigns every request an identifier, reusing one supplied by
// the caller or an upstream proxy, and echoes it back on the response.
package requestid

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"engage/pkg/requestcontext"
)

// Header carries the request identifier in both directions.
const Header = "X-Request-ID"

// maxLength bounds caller-supplied identifiers so they cannot bloat logs.
const maxLength = 128

// Middleware stores the request id in the context and sets the response header
// before any later stage can write a body.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := strings.TrimSpace(r.Header.Get(Header))
		if reqID == "" || len(reqID) > maxLength {
			reqID = uuid.NewString()
		}

		w.Header().Set(Header, reqID)
		ctx := requestcontext.WithRequestID(r.Context(), reqID)
		ctx = requestcontext.WithTime(ctx, requestcontext.Now(ctx))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
