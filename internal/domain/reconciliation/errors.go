package reconciliation

import (
	"errors"
	"fmt"
)

var (
	ErrDataUnavailable = errors.New("attendance data unavailable")
)

// RepositoryError wraps a store failure. The engine does not retry; any
// retry policy lives in the repository layer.
type RepositoryError struct {
	Op  string
	Err error
}

func (e *RepositoryError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RepositoryError) Unwrap() []error {
	return []error{ErrDataUnavailable, e.Err}
}
