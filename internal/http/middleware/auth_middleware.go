package middleware

import (
	"context"
	"net/http"

	"github.com/memovault/memovault/internal/http/response"
	"github.com/memovault/memovault/internal/observability"
	"github.com/memovault/memovault/internal/security"
)

type contextKey string

const principalContextKey contextKey = "principal"

// Principal resolves the session cookie on every request and stores the
// result (possibly the anonymous sentinel) in the context. Verification
// failures are audited but deliberately indistinguishable downstream.
func Principal(codec *security.TokenCodec) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, reason := security.ResolvePrincipal(r, codec)
			if reason == security.ResolveInvalidToken {
				observability.Audit(r, "session.token.rejected", "reason", reason)
			}
			ctx := context.WithValue(r.Context(), principalContextKey, p)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// PrincipalFromContext returns the request principal; the sentinel is
// returned when the Principal middleware did not run.
func PrincipalFromContext(ctx context.Context) security.Principal {
	if p, ok := ctx.Value(principalContextKey).(security.Principal); ok {
		return p
	}
	return security.Anonymous
}

// RequireAuth rejects unauthenticated requests with 401.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !PrincipalFromContext(r.Context()).Authenticated {
			response.Error(w, http.StatusUnauthorized, "not signed in")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole enforces the guest < user < admin hierarchy: 401 for
// unauthenticated principals, 403 for authenticated ones ranked below
// the minimum.
func RequireRole(min security.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := PrincipalFromContext(r.Context())
			if !p.Authenticated {
				response.Error(w, http.StatusUnauthorized, "not signed in")
				return
			}
			if !p.Satisfies(min) {
				response.Error(w, http.StatusForbidden, "insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
