package auth

import "net/http"

// Middleware wraps next so every request must pass the authenticator.
// A nil authenticator disables the check. Failed requests get a 401 with
// a WWW-Authenticate challenge; the response body never echoes the
// presented credential.
func Middleware(a Authenticator, next http.Handler) http.Handler {
	if a == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := a.Authenticate(r.Context(), r)
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer realm="marketops-ops"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
	})
}
