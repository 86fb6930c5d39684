package punch

import (
	"context"
	"time"
)

// PunchRepository is the punch store. All methods take companyID to keep
// tenants isolated.
type PunchRepository interface {
	// FetchByEmployeeAndRange returns the employee's punches with from <= timestamp < to,
	// ordered by timestamp ascending.
	FetchByEmployeeAndRange(ctx context.Context, employeeID string, from, to time.Time, companyID string) ([]Punch, error)

	// GetByID retrieves a single punch with company isolation
	GetByID(ctx context.Context, id string, companyID string) (Punch, error)

	// Insert persists all records in one transaction and returns them with ids assigned
	Insert(ctx context.Context, records []Punch) ([]Punch, error)

	// Delete removes a punch
	Delete(ctx context.Context, id string, companyID string) error
}
