package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	dErrors "engage/pkg/domain-errors"
	"engage/pkg/platform/httputil"
	"engage/pkg/requestcontext"
)

// Authenticator verifies a bearer token and reports who presented it. Token
// issuance and verification live outside this service; see internal/jwt_token
// for the HS256 adapter.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*requestcontext.Principal, error)
}

const bearerPrefix = "Bearer "

// BearerToken extracts the token from the Authorization header.
func BearerToken(r *http.Request) (string, bool) {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix)
	token = strings.TrimSpace(token)
	return token, ok && token != ""
}

// Authenticate resolves the caller of r. Missing and invalid credentials are
// reported as CodeUnauthorized.
func Authenticate(r *http.Request, authn Authenticator) (*requestcontext.Principal, error) {
	token, ok := BearerToken(r)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "missing or invalid Authorization header")
	}
	principal, err := authn.Authenticate(r.Context(), token)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnauthorized, "invalid or expired token")
	}
	if principal == nil || principal.UserID == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token does not identify a user")
	}
	return principal, nil
}

// RequireAuth rejects requests without a valid bearer token with 401 and
// stores the principal in the request context otherwise.
func RequireAuth(authn Authenticator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			principal, err := Authenticate(r, authn)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(requestcontext.WithPrincipal(ctx, *principal)))
		})
	}
}
