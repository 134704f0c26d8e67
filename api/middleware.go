package api

import (
	"errors"
	"net/http"

	"github.com/harvestlink/rescue-engine/auth"
	"github.com/harvestlink/rescue-engine/logger"
	"github.com/harvestlink/rescue-engine/rescue"
)

// Authenticator verifies the bearer token and resolves the caller's session.
type Authenticator struct {
	Verifier auth.Verifier
	Resolver *rescue.Resolver
}

// Middleware rejects requests without a valid token and attaches the
// resolved Session to the request context.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := auth.BearerToken(r.Header.Get("Authorization"))
		if !ok {
			writeError(w, http.StatusUnauthorized, "Missing bearer token", nil)
			return
		}

		principal, err := a.Verifier.Verify(r.Context(), token)
		if err != nil {
			logger.Debug("Token rejected", "error", err)
			writeError(w, http.StatusUnauthorized, "Invalid or expired token", nil)
			return
		}

		sess, err := a.Resolver.Resolve(r.Context(), principal)
		if err != nil {
			if errors.Is(err, rescue.ErrUnauthenticated) {
				writeError(w, http.StatusUnauthorized, "Invalid or expired token", nil)
				return
			}
			writeDomainError(w, err, "Failed to resolve session")
			return
		}

		next.ServeHTTP(w, r.WithContext(rescue.WithSession(r.Context(), sess)))
	})
}

// adminOnly rejects sessions without the admin role.
func adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := rescue.SessionFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "Authentication required", nil)
			return
		}
		if !sess.IsAdmin() {
			logger.Warn("Admin route denied", "principal_id", sess.PrincipalID, "path", r.URL.Path)
			writeError(w, http.StatusForbidden, "Admin access required", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
