/*
Package auth verifies bearer tokens issued by the identity provider.

PURPOSE:
  Converts an opaque token into a rescue.Principal (uid, email, and the
  admin role when the provider asserts it). Sign-up, sign-in and password
  handling stay with the provider; this service only verifies.

IMPLEMENTATIONS:
  FirebaseVerifier: Firebase ID tokens (production)
  JWTVerifier:      HS256 tokens signed with a shared secret (local dev, tests)

ROLE CLAIMS:
  Either {"admin": true} or {"role": "admin"} marks the principal as an
  admin. Anything else leaves the role empty and the Resolver decides
  from the email allow-list.
*/
package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/harvestlink/rescue-engine/rescue"
)

// ErrInvalidToken is returned for missing, malformed, expired or forged tokens.
var ErrInvalidToken = errors.New("invalid token")

// Verifier checks a bearer token.
type Verifier interface {
	Verify(ctx context.Context, token string) (rescue.Principal, error)
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}

// principalFromClaims reads the email and role claims shared by both token kinds.
func principalFromClaims(uid string, claims map[string]any) rescue.Principal {
	p := rescue.Principal{ID: uid}
	if email, ok := claims["email"].(string); ok {
		p.Email = strings.ToLower(email)
	}
	if admin, ok := claims["admin"].(bool); ok && admin {
		p.Role = rescue.RoleAdmin
	}
	if role, ok := claims["role"].(string); ok && rescue.Role(role) == rescue.RoleAdmin {
		p.Role = rescue.RoleAdmin
	}
	return p
}
