package httpx

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ariefcatur/go-marketplace/internal/apperr"
	"github.com/ariefcatur/go-marketplace/internal/auth"
)

// Authenticate resolves the bearer token into an auth.Identity on the
// request context. Requests without a valid token get 401.
func Authenticate(v *auth.Verifier, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			tok, ok := strings.CutPrefix(h, "Bearer ")
			if !ok || strings.TrimSpace(tok) == "" {
				writeError(w, r, log, apperr.New(apperr.KindUnauthorized, "missing bearer token"))
				return
			}
			id, err := v.Verify(strings.TrimSpace(tok))
			if err != nil {
				writeError(w, r, log, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	}
}

// RequireRoles ensures the requester's role is one of the allowed roles.
// Usage: r.With(RequireRoles(auth.RoleSeller)).Get(...)
func RequireRoles(roles ...auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := auth.FromContext(r.Context())
			if !ok {
				writeError(w, r, zap.NewNop(), apperr.New(apperr.KindUnauthorized, "not authenticated"))
				return
			}
			for _, role := range roles {
				if id.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, r, zap.NewNop(), apperr.New(apperr.KindForbidden, "role %s may not access this resource", id.Role))
		})
	}
}

func identity(r *http.Request) auth.Identity {
	id, _ := auth.FromContext(r.Context())
	return id
}
