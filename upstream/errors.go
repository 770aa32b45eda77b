package upstream

import (
	"errors"
	"fmt"
)

// Sentinel errors for client construction and session lifecycle.
var (
	ErrMissingAPIKey  = errors.New("upstream: api key is required")
	ErrMissingDataset = errors.New("upstream: dataset is required")
	ErrSessionClosed  = errors.New("upstream: live session is closed")
	ErrAuthFailed     = errors.New("upstream: gateway authentication failed")
)

// APIError is a non-2xx response from the historical API. It carries the
// HTTP status so the retry layer can classify it without knowing anything
// else about the vendor.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upstream: api returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("upstream: api returned status %d: %s", e.StatusCode, e.Body)
}

// HTTPStatus returns the response status code.
func (e *APIError) HTTPStatus() int { return e.StatusCode }
