package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
)

// TokenAuthenticator verifies a single static bearer token. Comparison is
// constant time over SHA-256 digests, so token length is not observable.
type TokenAuthenticator struct {
	digest [sha256.Size]byte
}

// NewTokenAuthenticator creates an authenticator for the given token.
func NewTokenAuthenticator(token string) *TokenAuthenticator {
	return &TokenAuthenticator{digest: sha256.Sum256([]byte(token))}
}

// Name returns "token".
func (a *TokenAuthenticator) Name() string { return "token" }

// Authenticate checks the request's bearer token against the configured one.
func (a *TokenAuthenticator) Authenticate(_ context.Context, r *http.Request) (*Identity, error) {
	presented := bearerToken(r)
	if presented == "" {
		return nil, ErrMissingCredentials
	}

	digest := sha256.Sum256([]byte(presented))
	if subtle.ConstantTimeCompare(digest[:], a.digest[:]) != 1 {
		return nil, ErrInvalidCredentials
	}

	return &Identity{Principal: "ops", Method: MethodToken}, nil
}

var _ Authenticator = (*TokenAuthenticator)(nil)
