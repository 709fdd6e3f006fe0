package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iho/branchledger/internal/domain"
)

// Issuer is the iss claim of every token this service issues and accepts.
const Issuer = "branchledger"

// clockSkew tolerated between the branch terminals and the server.
const clockSkew = 30 * time.Second

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

// Claims identify an operator. The subject is the actor id.
type Claims struct {
	Name string `json:"name,omitempty"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Actor returns the actor the token was issued to.
func (c *Claims) Actor() *domain.Actor {
	return &domain.Actor{ID: c.Subject, Name: c.Name, Role: c.Role}
}

// JWTManager signs and verifies HS256 operator tokens.
type JWTManager struct {
	secretKey []byte
	ttl       time.Duration
	parser    *jwt.Parser
}

// NewJWTManager creates a manager whose tokens live for ttl.
func NewJWTManager(secretKey string, ttl time.Duration) *JWTManager {
	return &JWTManager{
		secretKey: []byte(secretKey),
		ttl:       ttl,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(Issuer),
			jwt.WithLeeway(clockSkew),
			jwt.WithExpirationRequired(),
		),
	}
}

// Generate issues a token for actor.
func (m *JWTManager) Generate(actor *domain.Actor) (string, error) {
	if actor.ID == "" {
		return "", fmt.Errorf("%w: actor id is required", ErrInvalidToken)
	}
	if !domain.ValidRole(actor.Role) {
		return "", fmt.Errorf("%w: unknown role %q", ErrInvalidToken, actor.Role)
	}

	now := time.Now()
	claims := Claims{
		Name: actor.Name,
		Role: actor.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   actor.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secretKey)
}

// Verify checks signature, issuer and lifetime and returns the claims.
func (m *JWTManager) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := m.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return m.secretKey, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrExpiredToken
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	case claims.Subject == "" || !domain.ValidRole(claims.Role):
		return nil, ErrInvalidToken
	}

	return claims, nil
}
