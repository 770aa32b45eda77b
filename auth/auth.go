package auth

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// AuthMethod names the scheme that verified a credential.
type AuthMethod string

const (
	MethodToken AuthMethod = "token"
	MethodJWT   AuthMethod = "jwt"
)

// Identity describes a verified caller.
type Identity struct {
	// Principal is the caller's name: the JWT subject, or "ops" for the
	// static token.
	Principal string

	// Method is the scheme that verified the credential.
	Method AuthMethod

	// ExpiresAt is the credential expiry; zero means no expiry.
	ExpiresAt time.Time
}

// Authenticator verifies the credentials carried by an HTTP request.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: Authenticate returns a sentinel from this package when the
//   credential is missing or bad; any other error is internal.
type Authenticator interface {
	// Name returns a unique identifier for this authenticator.
	Name() string

	// Authenticate verifies the request's credentials.
	Authenticate(ctx context.Context, r *http.Request) (*Identity, error)
}

// bearerToken extracts the value of an "Authorization: Bearer ..." header.
// Returns "" when the header is absent or not a bearer credential.
func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, prefix))
}
