package schedule

import (
	"errors"
	"fmt"
)

var (
	ErrConfiguration   = errors.New("no schedule template configured")
	ErrInvalidTemplate = errors.New("invalid schedule template")
)

// ConfigurationError reports an employee whose schedule flag has no template.
type ConfigurationError struct {
	EmployeeID string
	Flag       Flag
}

func (e *ConfigurationError) Error() string {
	if e.Flag == "" {
		return fmt.Sprintf("employee %s has no schedule flag", e.EmployeeID)
	}
	return fmt.Sprintf("employee %s has schedule flag %q with no template", e.EmployeeID, e.Flag)
}

func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}
