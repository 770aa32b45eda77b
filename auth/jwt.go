package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTConfig configures the JWT authenticator.
type JWTConfig struct {
	// Secret is the HS256 signing secret.
	Secret []byte

	// Issuer is the expected iss claim; empty skips the check.
	Issuer string

	// Audience is the expected aud claim; empty skips the check.
	Audience string
}

// JWTAuthenticator verifies HS256-signed bearer tokens.
type JWTAuthenticator struct {
	config JWTConfig
}

// NewJWTAuthenticator creates a JWT authenticator.
func NewJWTAuthenticator(config JWTConfig) *JWTAuthenticator {
	return &JWTAuthenticator{config: config}
}

// Name returns "jwt".
func (a *JWTAuthenticator) Name() string { return "jwt" }

// Authenticate parses and verifies the request's bearer token.
func (a *JWTAuthenticator) Authenticate(_ context.Context, r *http.Request) (*Identity, error) {
	tokenString := bearerToken(r)
	if tokenString == "" {
		return nil, ErrMissingCredentials
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256"})}
	if a.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.config.Issuer))
	}
	if a.config.Audience != "" {
		opts = append(opts, jwt.WithAudience(a.config.Audience))
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return a.config.Secret, nil
	}, opts...)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrTokenExpired
	case err != nil:
		return nil, ErrTokenMalformed
	case !token.Valid:
		return nil, ErrInvalidCredentials
	}

	identity := &Identity{Method: MethodJWT}
	if sub, ok := claims["sub"].(string); ok {
		identity.Principal = sub
	}
	if exp, ok := claims["exp"].(float64); ok {
		identity.ExpiresAt = time.Unix(int64(exp), 0)
	}
	return identity, nil
}

var _ Authenticator = (*JWTAuthenticator)(nil)
