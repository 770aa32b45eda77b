package pool

import (
	"errors"
	"fmt"
)

// ConstructionError wraps a factory failure. The original cause is carried
// unmodified and reachable through Unwrap, so callers can still inspect
// credential or network errors from the factory.
type ConstructionError struct {
	Err error
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("pool: client construction failed: %v", e.Err)
}

func (e *ConstructionError) Unwrap() error { return e.Err }

// IsConstruction reports whether err is, or wraps, a ConstructionError.
func IsConstruction(err error) bool {
	var ce *ConstructionError
	return errors.As(err, &ce)
}
