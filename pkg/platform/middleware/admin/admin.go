package admin

import (
	"log/slog"
	"net/http"

	dErrors "engage/pkg/domain-errors"
	"engage/pkg/platform/httputil"
	"engage/pkg/requestcontext"
)

// Authorize checks an authenticated principal against a route's role
// requirements. An empty roles list accepts any role.
func Authorize(p requestcontext.Principal, roles []string, adminRequired bool) error {
	if adminRequired && !p.Admin {
		return dErrors.New(dErrors.CodeForbidden, "administrator access required")
	}
	if len(roles) > 0 && !p.Admin && !p.HasAnyRole(roles...) {
		return dErrors.New(dErrors.CodeForbidden, "insufficient role for this operation")
	}
	return nil
}

// RequireRoles rejects authenticated requests lacking the configured roles with
// 403. It must run after auth.RequireAuth. Gateway routes use Authorize from the
// auth stage instead; this guards plain chi routes such as /metrics.
func RequireRoles(roles []string, adminRequired bool, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			principal, ok := requestcontext.PrincipalFrom(ctx)
			if !ok {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
				return
			}
			if err := Authorize(principal, roles, adminRequired); err != nil {
				logger.WarnContext(ctx, "forbidden access",
					"user_id", principal.UserID,
					"required_roles", roles,
					"admin_required", adminRequired,
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
