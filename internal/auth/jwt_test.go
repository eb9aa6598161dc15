package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "unit-test-secret"

func signToken(t *testing.T, method jwt.SigningMethod, claims jwt.Claims, secret string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestParseTokenValid(t *testing.T) {
	v := NewVerifier(testJWTSecret)

	raw := signToken(t, jwt.SigningMethodHS256, Claims{
		Role: RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-42",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}, testJWTSecret)

	claims, err := v.ParseToken(raw)
	require.NoError(t, err)
	assert.Equal(t, "user-42", claims.UserID())
	assert.True(t, claims.IsAdmin())
}

func TestParseTokenWrongSecret(t *testing.T) {
	v := NewVerifier(testJWTSecret)

	raw := signToken(t, jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-42",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}, "some-other-secret")

	_, err := v.ParseToken(raw)
	assert.Error(t, err)
}

func TestParseTokenExpired(t *testing.T) {
	v := NewVerifier(testJWTSecret)

	raw := signToken(t, jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-42",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}, testJWTSecret)

	_, err := v.ParseToken(raw)
	assert.Error(t, err)
}

func TestParseTokenRequiresSubject(t *testing.T) {
	v := NewVerifier(testJWTSecret)

	raw := signToken(t, jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}, testJWTSecret)

	_, err := v.ParseToken(raw)
	assert.Error(t, err)
}

func TestParseTokenRejectsOtherSigningMethod(t *testing.T) {
	v := NewVerifier(testJWTSecret)

	raw := signToken(t, jwt.SigningMethodHS512, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-42",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}, testJWTSecret)

	_, err := v.ParseToken(raw)
	assert.Error(t, err)
}

func TestFromAuthorizationHeader(t *testing.T) {
	token, ok := FromAuthorizationHeader("Bearer abc.def.ghi")
	assert.True(t, ok)
	assert.Equal(t, "abc.def.ghi", token)

	token, ok = FromAuthorizationHeader("bearer abc.def.ghi")
	assert.True(t, ok, "the scheme comparison is case insensitive")
	assert.Equal(t, "abc.def.ghi", token)

	_, ok = FromAuthorizationHeader("")
	assert.False(t, ok)

	_, ok = FromAuthorizationHeader("Basic dXNlcjpwYXNz")
	assert.False(t, ok)
}
