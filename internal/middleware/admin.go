package middleware

import (
	"context"
	"net/http"
)

type AdminAuthorizer interface {
	Authorize(ctx context.Context, userID, role string) (isAdmin, allowed bool, err error)
}

// RequireAdmin admits admins that hold role. Super admins hold every role and
// are the only ones passing a role that cannot be granted.
func RequireAdmin(admins AdminAuthorizer, role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := UserIDFromContext(r.Context())
			if !ok {
				deny(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
				return
			}
			isAdmin, allowed, err := admins.Authorize(r.Context(), userID, role)
			switch {
			case err != nil:
				deny(w, http.StatusInternalServerError, "internal_error", "unable to verify admin")
			case !isAdmin:
				deny(w, http.StatusForbidden, "admin_required", "admin privileges required")
			case !allowed:
				deny(w, http.StatusForbidden, "role_required", "missing required role: "+role)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}
