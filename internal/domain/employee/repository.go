package employee

import "context"

// EmployeeRepository is the read side of the employee directory used by reconciliation.
type EmployeeRepository interface {
	// GetByID retrieves an employee with company isolation
	GetByID(ctx context.Context, id string, companyID string) (Employee, error)

	// ListActive returns active employees of a company, ordered by full name
	ListActive(ctx context.Context, companyID string) ([]Employee, error)

	// ListActiveCompanyIDs returns every company that has at least one active employee
	ListActiveCompanyIDs(ctx context.Context) ([]string, error)
}
