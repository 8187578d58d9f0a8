package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/propledger/backend/internal/infrastructure/auth"
	"github.com/propledger/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-that-is-long-enough"

func newService() *auth.JWTService {
	return auth.NewJWTService(config.JWTConfig{Enabled: true, Secret: testSecret, Issuer: "propledger"})
}

func sign(t *testing.T, method jwt.SigningMethod, key any, claims auth.Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func validClaims() auth.Claims {
	now := time.Now()
	return auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   "svc-dashboard",
			Issuer:    "propledger",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(15 * time.Minute)),
		},
		Scopes:      []string{auth.ScopeMetricsRead},
		PropertyIDs: []int64{1, 2},
	}
}

func TestValidateAccessToken(t *testing.T) {
	svc := newService()

	t.Run("valid", func(t *testing.T) {
		want := validClaims()
		claims, err := svc.ValidateAccessToken(sign(t, jwt.SigningMethodHS256, []byte(testSecret), want))
		require.NoError(t, err)
		assert.Equal(t, "svc-dashboard", claims.Subject)
		assert.True(t, claims.HasScope(auth.ScopeMetricsRead))
		assert.True(t, claims.CanAccessProperty(2))
		assert.False(t, claims.CanAccessProperty(3))
		assert.InDelta(t, (15 * time.Minute).Seconds(), claims.RemainingTTL().Seconds(), 5)
	})

	tests := []struct {
		name    string
		token   func() string
		wantErr error
	}{
		{"garbage", func() string { return "not.a.token" }, auth.ErrInvalidToken},
		{"wrong secret", func() string {
			return sign(t, jwt.SigningMethodHS256, []byte("another-secret"), validClaims())
		}, auth.ErrInvalidToken},
		{"none algorithm", func() string {
			return sign(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, validClaims())
		}, auth.ErrInvalidToken},
		{"expired", func() string {
			c := validClaims()
			c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
			return sign(t, jwt.SigningMethodHS256, []byte(testSecret), c)
		}, auth.ErrExpiredToken},
		{"no expiry", func() string {
			c := validClaims()
			c.ExpiresAt = nil
			return sign(t, jwt.SigningMethodHS256, []byte(testSecret), c)
		}, auth.ErrInvalidToken},
		{"not yet valid", func() string {
			c := validClaims()
			c.NotBefore = jwt.NewNumericDate(time.Now().Add(time.Hour))
			return sign(t, jwt.SigningMethodHS256, []byte(testSecret), c)
		}, auth.ErrTokenNotYetValid},
		{"wrong issuer", func() string {
			c := validClaims()
			c.Issuer = "someone-else"
			return sign(t, jwt.SigningMethodHS256, []byte(testSecret), c)
		}, auth.ErrInvalidClaims},
		{"missing subject", func() string {
			c := validClaims()
			c.Subject = ""
			return sign(t, jwt.SigningMethodHS256, []byte(testSecret), c)
		}, auth.ErrMissingSubject},
		{"malformed jti", func() string {
			c := validClaims()
			c.ID = "not-a-uuid"
			return sign(t, jwt.SigningMethodHS256, []byte(testSecret), c)
		}, auth.ErrInvalidClaims},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ValidateAccessToken(tt.token())
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestClaims_Helpers(t *testing.T) {
	c := auth.Claims{}
	assert.True(t, c.CanAccessProperty(42), "no restriction means every property")
	assert.False(t, c.HasScope(auth.ScopeMetricsRead))
	assert.True(t, c.IssuedAtTime().IsZero())
	assert.Zero(t, c.RemainingTTL())

	c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	assert.Zero(t, c.RemainingTTL())
}
