package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidRole  = errors.New("invalid role")
)

type Role string

const (
	RoleUser  Role = "user"
	RoleGuest Role = "guest"
)

// CanHost reports whether the role may open rooms.
func (r Role) CanHost() bool {
	return r == RoleUser
}

type Identity struct {
	ParticipantID string `json:"participant_id"`
	Role          Role   `json:"role"`
}

type Claims struct {
	Role Role `json:"role"`
	jwt.RegisteredClaims
}

type JWTAuthorizer struct {
	secret []byte
	issuer string
}

func NewJWTAuthorizer(secret, issuer string) *JWTAuthorizer {
	return &JWTAuthorizer{
		secret: []byte(secret),
		issuer: issuer,
	}
}

func (a *JWTAuthorizer) IssueToken(participantID string, role Role, ttl time.Duration) (string, error) {
	if role != RoleUser && role != RoleGuest {
		return "", ErrInvalidRole
	}

	now := time.Now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   participantID,
			Issuer:    a.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString(a.secret)
}

// AuthorizeCaller verifies a bearer token and returns the caller's identity.
func (a *JWTAuthorizer) AuthorizeCaller(_ context.Context, tokenString string) (Identity, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(a.issuer))
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}

	if !token.Valid || claims.Subject == "" {
		return Identity{}, ErrUnauthorized
	}

	if claims.Role != RoleUser && claims.Role != RoleGuest {
		return Identity{}, fmt.Errorf("%w: %w", ErrUnauthorized, ErrInvalidRole)
	}

	return Identity{
		ParticipantID: claims.Subject,
		Role:          claims.Role,
	}, nil
}
