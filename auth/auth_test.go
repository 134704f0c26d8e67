package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harvestlink/rescue-engine/rescue"
)

const testSecret = "0123456789abcdef-test-secret"

func newTestVerifier(t *testing.T) *JWTVerifier {
	v, err := NewJWTVerifier(testSecret, "rescue-engine", time.Hour)
	require.NoError(t, err)
	return v
}

func TestBearerToken(t *testing.T) {
	tok, ok := BearerToken("Bearer abc.def")
	assert.True(t, ok)
	assert.Equal(t, "abc.def", tok)

	tok, ok = BearerToken("bearer   xyz ")
	assert.True(t, ok)
	assert.Equal(t, "xyz", tok)

	for _, bad := range []string{"", "Bearer", "Bearer ", "Basic abc", "abc"} {
		_, ok := BearerToken(bad)
		assert.False(t, ok, bad)
	}
}

func TestPrincipalFromClaims(t *testing.T) {
	p := principalFromClaims("uid-1", map[string]any{"email": "Chef@Bistro.com"})
	assert.Equal(t, rescue.Principal{ID: "uid-1", Email: "chef@bistro.com"}, p)

	p = principalFromClaims("uid-2", map[string]any{"admin": true})
	assert.Equal(t, rescue.RoleAdmin, p.Role)

	p = principalFromClaims("uid-3", map[string]any{"role": "admin"})
	assert.Equal(t, rescue.RoleAdmin, p.Role)

	p = principalFromClaims("uid-4", map[string]any{"admin": "yes", "role": "donor"})
	assert.Equal(t, rescue.Role(""), p.Role)
}

func TestJWTVerifier_RoundTrip(t *testing.T) {
	v := newTestVerifier(t)

	tok, err := v.Issue(rescue.Principal{ID: "uid-1", Email: "ops@foodbank.org", Role: rescue.RoleAdmin})
	require.NoError(t, err)

	p, err := v.Verify(context.Background(), tok)
	require.NoError(t, err)
	assert.Equal(t, "uid-1", p.ID)
	assert.Equal(t, "ops@foodbank.org", p.Email)
	assert.Equal(t, rescue.RoleAdmin, p.Role)
}

func TestJWTVerifier_Rejects(t *testing.T) {
	v := newTestVerifier(t)
	ctx := context.Background()

	t.Run("garbage", func(t *testing.T) {
		_, err := v.Verify(ctx, "not-a-token")
		assert.True(t, errors.Is(err, ErrInvalidToken))
	})

	t.Run("wrong secret", func(t *testing.T) {
		other, err := NewJWTVerifier("another-secret-of-length", "rescue-engine", time.Hour)
		require.NoError(t, err)
		tok, err := other.Issue(rescue.Principal{ID: "uid-1"})
		require.NoError(t, err)

		_, err = v.Verify(ctx, tok)
		assert.True(t, errors.Is(err, ErrInvalidToken))
	})

	t.Run("expired", func(t *testing.T) {
		tok, err := v.Issue(rescue.Principal{ID: "uid-1"})
		require.NoError(t, err)

		v2 := newTestVerifier(t)
		v2.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		_, err = v2.Verify(ctx, tok)
		assert.True(t, errors.Is(err, ErrInvalidToken))
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other, err := NewJWTVerifier(testSecret, "someone-else", time.Hour)
		require.NoError(t, err)
		tok, err := other.Issue(rescue.Principal{ID: "uid-1"})
		require.NoError(t, err)

		_, err = v.Verify(ctx, tok)
		assert.True(t, errors.Is(err, ErrInvalidToken))
	})

	t.Run("none algorithm", func(t *testing.T) {
		tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "uid-1", Issuer: "rescue-engine"},
		}).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = v.Verify(ctx, tok)
		assert.True(t, errors.Is(err, ErrInvalidToken))
	})

	t.Run("missing subject", func(t *testing.T) {
		tok, err := v.Issue(rescue.Principal{})
		require.NoError(t, err)

		_, err = v.Verify(ctx, tok)
		assert.True(t, errors.Is(err, ErrInvalidToken))
	})
}

func TestNewJWTVerifier_ShortSecret(t *testing.T) {
	_, err := NewJWTVerifier("short", "x", time.Hour)
	assert.Error(t, err)
}
