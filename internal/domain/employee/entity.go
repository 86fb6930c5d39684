package employee

import (
	"time"

	"github.com/cmlabs-hris/attendance-reconciliation/internal/domain/schedule"
)

type Employee struct {
	ID               string
	CompanyID        string
	EmployeeCode     string
	FullName         string
	Role             Role
	ScheduleFlag     schedule.Flag
	EmploymentStatus EmploymentStatus
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type Role string

const (
	RoleOwner    Role = "owner"
	RoleManager  Role = "manager"
	RoleEmployee Role = "employee"
)

// CanManageAttendance reports whether the role may edit or normalize other employees' punches.
func (r Role) CanManageAttendance() bool {
	return r == RoleOwner || r == RoleManager
}

type EmploymentStatus string

const (
	EmploymentStatusActive     EmploymentStatus = "active"
	EmploymentStatusResigned   EmploymentStatus = "resigned"
	EmploymentStatusTerminated EmploymentStatus = "terminated"
)
