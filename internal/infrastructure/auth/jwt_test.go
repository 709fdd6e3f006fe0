package auth_test

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/branchledger/internal/domain"
	"github.com/iho/branchledger/internal/infrastructure/auth"
)

func sign(t *testing.T, secret string, method jwt.SigningMethod, claims auth.Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func registered(subject string, expiresIn time.Duration) jwt.RegisteredClaims {
	now := time.Now()
	return jwt.RegisteredClaims{
		Issuer:    auth.Issuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
	}
}

func TestJWTManagerRoundTrip(t *testing.T) {
	t.Parallel()

	manager := auth.NewJWTManager("super-secret", time.Minute)
	actor := &domain.Actor{ID: "op-123", Name: "ana", Role: domain.RoleOperator}

	token, err := manager.Generate(actor)
	require.NoError(t, err)

	claims, err := manager.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, auth.Issuer, claims.Issuer)
	assert.Equal(t, actor, claims.Actor())
}

func TestJWTManagerGenerateRejectsBadActors(t *testing.T) {
	t.Parallel()

	manager := auth.NewJWTManager("secret", time.Minute)

	_, err := manager.Generate(&domain.Actor{Role: domain.RoleViewer})
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	_, err = manager.Generate(&domain.Actor{ID: "op-1", Role: "owner"})
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestJWTManagerVerifyErrors(t *testing.T) {
	t.Parallel()

	manager := auth.NewJWTManager("secret", time.Minute)

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{
			name:  "expired beyond leeway",
			token: sign(t, "secret", jwt.SigningMethodHS256, auth.Claims{Role: domain.RoleViewer, RegisteredClaims: registered("v-1", -time.Hour)}),
			want:  auth.ErrExpiredToken,
		},
		{
			name:  "wrong secret",
			token: sign(t, "other-secret", jwt.SigningMethodHS256, auth.Claims{Role: domain.RoleViewer, RegisteredClaims: registered("v-1", time.Hour)}),
			want:  auth.ErrInvalidToken,
		},
		{
			name:  "wrong algorithm",
			token: sign(t, "secret", jwt.SigningMethodHS512, auth.Claims{Role: domain.RoleViewer, RegisteredClaims: registered("v-1", time.Hour)}),
			want:  auth.ErrInvalidToken,
		},
		{
			name: "foreign issuer",
			token: sign(t, "secret", jwt.SigningMethodHS256, auth.Claims{Role: domain.RoleViewer, RegisteredClaims: func() jwt.RegisteredClaims {
				c := registered("v-1", time.Hour)
				c.Issuer = "someone-else"
				return c
			}()}),
			want: auth.ErrInvalidToken,
		},
		{
			name:  "no subject",
			token: sign(t, "secret", jwt.SigningMethodHS256, auth.Claims{Role: domain.RoleViewer, RegisteredClaims: registered("", time.Hour)}),
			want:  auth.ErrInvalidToken,
		},
		{
			name:  "unknown role",
			token: sign(t, "secret", jwt.SigningMethodHS256, auth.Claims{Role: "owner", RegisteredClaims: registered("v-1", time.Hour)}),
			want:  auth.ErrInvalidToken,
		},
		{
			name:  "malformed",
			token: "not-a-token",
			want:  auth.ErrInvalidToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := manager.Verify(tt.token)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestJWTManagerToleratesClockSkew(t *testing.T) {
	t.Parallel()

	manager := auth.NewJWTManager("secret", time.Minute)
	token := sign(t, "secret", jwt.SigningMethodHS256, auth.Claims{Role: domain.RoleAdmin, RegisteredClaims: registered("a-1", -10*time.Second)})

	claims, err := manager.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "a-1", claims.Subject)
}
