package punch

import (
	"context"
)

// PunchService exposes manual maintenance of the punch store.
type PunchService interface {
	// Record stores a manually entered punch
	Record(ctx context.Context, req CreatePunchRequest) (PunchResponse, error)

	// List returns an employee's punches over a date range
	List(ctx context.Context, filter PunchFilter) (ListPunchResponse, error)

	// Delete removes a punch by ID
	Delete(ctx context.Context, id string, companyID string) error
}
