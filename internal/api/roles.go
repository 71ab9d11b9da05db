package api

import (
	"fmt"
	"net/http"

	"github.com/shopquery/shopquery/internal/auth"
)

func requireQueryReader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := requireRole(r, auth.RoleQueryReader); err != nil {
			writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireRole passes requests without an identity; auth being off is decided by configuration.
func requireRole(r *http.Request, role string) error {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		return nil
	}
	if identity.HasRole(role) {
		return nil
	}
	return fmt.Errorf("missing required role %q", role)
}
