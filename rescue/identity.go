/*
identity.go - Principal resolution and per-request sessions

PURPOSE:
  Turns a verified identity-provider principal into a Session: the role
  the caller acts with and the donor profile they own, if any.

ADMIN RESOLUTION:
  A principal is an admin when EITHER
  - the identity provider asserts the admin role (custom claim), OR
  - its email is on the configured allow-list (case-insensitive).
  The allow-list exists to bootstrap the first admins before claims
  are provisioned.

SESSION PROPAGATION:
  The API resolves one Session per HTTP request and stores it in the
  request context. Components read it with SessionFromContext; there is
  no process-wide "current user".

SEE ALSO:
  - auth/: Token verification producing Principal
  - api/middleware.go: Resolves and attaches the Session
*/
package rescue

import (
	"context"
	"strings"
)

// Role is the capacity a caller acts in.
type Role string

const (
	RoleDonor Role = "donor"
	RoleAdmin Role = "admin"
)

// Principal is a verified identity from the auth provider.
// Role is empty unless the provider asserted one.
type Principal struct {
	ID    string
	Email string
	Role  Role
}

// Session is the resolved caller for one request.
type Session struct {
	PrincipalID string
	Email       string
	Role        Role
	Donor       *Donor // nil until the profile is completed
}

func (s *Session) IsAdmin() bool {
	return s != nil && s.Role == RoleAdmin
}

// CanAccessDonor reports whether the caller may read data owned by donorID.
func (s *Session) CanAccessDonor(donorID string) bool {
	if s == nil {
		return false
	}
	return s.IsAdmin() || s.PrincipalID == donorID
}

// =============================================================================
// RESOLVER
// =============================================================================

// Resolver maps principals to sessions.
type Resolver struct {
	Store       DonorStore
	adminEmails map[string]struct{}
}

// NewResolver builds a resolver with a bootstrap admin allow-list.
func NewResolver(store DonorStore, adminEmails []string) *Resolver {
	set := make(map[string]struct{}, len(adminEmails))
	for _, e := range adminEmails {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			set[e] = struct{}{}
		}
	}
	return &Resolver{Store: store, adminEmails: set}
}

// ParseAdminEmails splits a comma-separated allow-list.
func ParseAdminEmails(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// IsAdminEmail checks the allow-list.
func (r *Resolver) IsAdminEmail(email string) bool {
	if email == "" {
		return false
	}
	_, ok := r.adminEmails[strings.ToLower(strings.TrimSpace(email))]
	return ok
}

// Resolve produces the session for p. A missing donor profile is not an error.
func (r *Resolver) Resolve(ctx context.Context, p Principal) (*Session, error) {
	if p.ID == "" {
		return nil, ErrUnauthenticated
	}

	role := RoleDonor
	if p.Role == RoleAdmin || r.IsAdminEmail(p.Email) {
		role = RoleAdmin
	}

	donor, err := r.Store.GetDonor(ctx, p.ID)
	if err != nil {
		return nil, wrapStore("resolve donor", err)
	}

	return &Session{
		PrincipalID: p.ID,
		Email:       p.Email,
		Role:        role,
		Donor:       donor,
	}, nil
}

// =============================================================================
// CONTEXT PROPAGATION
// =============================================================================

type sessionKey struct{}

// WithSession attaches s to ctx.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFromContext returns the session attached by WithSession.
func SessionFromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(*Session)
	return s, ok && s != nil
}
