// Package auth guards the operational HTTP listener. It verifies a static
// bearer token or an HS256-signed JWT and attaches the resulting identity
// to the request context. Exactly one scheme is active per deployment;
// with neither configured the listener runs open.
package auth
