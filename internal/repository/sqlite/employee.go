package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-reconciliation/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-reconciliation/internal/domain/schedule"
	"github.com/cmlabs-hris/attendance-reconciliation/internal/pkg/database"
)

// EmployeeRepository is the sqlite employee directory. Besides the read side
// used by reconciliation it can upsert records, which the CLI uses to load
// employees into a local database.
type EmployeeRepository struct {
	db    *database.SQLiteDB
	retry database.RetryPolicy
	now   func() time.Time
}

func NewEmployeeRepository(db *database.SQLiteDB, retry database.RetryPolicy) *EmployeeRepository {
	return &EmployeeRepository{db: db, retry: retry, now: time.Now}
}

const employeeColumns = `id, company_id, employee_code, full_name, role, schedule_flag, employment_status, created_at, updated_at`

// GetByID implements employee.EmployeeRepository.
func (r *EmployeeRepository) GetByID(ctx context.Context, id string, companyID string) (employee.Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE id = ? AND company_id = ?`

	var emp employee.Employee
	err := r.retry.Do(ctx, "employee.get", func() error {
		var err error
		emp, err = scanEmployee(r.db.QueryRowContext(ctx, query, id, companyID))
		return err
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return employee.Employee{}, fmt.Errorf("employee %s: %w", id, employee.ErrEmployeeNotFound)
		}
		return employee.Employee{}, fmt.Errorf("failed to get employee %s: %w", id, err)
	}
	return emp, nil
}

// ListActive implements employee.EmployeeRepository.
func (r *EmployeeRepository) ListActive(ctx context.Context, companyID string) ([]employee.Employee, error) {
	query := `
		SELECT ` + employeeColumns + `
		FROM employees
		WHERE company_id = ? AND employment_status = ?
		ORDER BY full_name ASC, id ASC
	`

	var employees []employee.Employee
	err := r.retry.Do(ctx, "employee.list_active", func() error {
		rows, err := r.db.QueryContext(ctx, query, companyID, string(employee.EmploymentStatusActive))
		if err != nil {
			return err
		}
		defer rows.Close()

		employees = employees[:0]
		for rows.Next() {
			emp, err := scanEmployee(rows)
			if err != nil {
				return err
			}
			employees = append(employees, emp)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list active employees: %w", err)
	}
	return employees, nil
}

// ListActiveCompanyIDs implements employee.EmployeeRepository.
func (r *EmployeeRepository) ListActiveCompanyIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.retry.Do(ctx, "employee.list_companies", func() error {
		rows, err := r.db.QueryContext(ctx,
			`SELECT DISTINCT company_id FROM employees WHERE employment_status = ? ORDER BY company_id`,
			string(employee.EmploymentStatusActive))
		if err != nil {
			return err
		}
		defer rows.Close()

		ids = ids[:0]
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	return ids, nil
}

// Upsert inserts emp or updates the record with the same id.
func (r *EmployeeRepository) Upsert(ctx context.Context, emp employee.Employee) error {
	now := r.now().UTC().UnixNano()
	query := `
		INSERT INTO employees (id, company_id, employee_code, full_name, role, schedule_flag, employment_status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			employee_code = excluded.employee_code,
			full_name = excluded.full_name,
			role = excluded.role,
			schedule_flag = excluded.schedule_flag,
			employment_status = excluded.employment_status,
			updated_at = excluded.updated_at
	`

	err := r.retry.Do(ctx, "employee.upsert", func() error {
		_, err := r.db.ExecContext(ctx, query,
			emp.ID, emp.CompanyID, emp.EmployeeCode, emp.FullName, string(emp.Role),
			string(emp.ScheduleFlag), string(emp.EmploymentStatus), now, now,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to upsert employee %s: %w", emp.ID, err)
	}
	return nil
}

func scanEmployee(row scanner) (employee.Employee, error) {
	var (
		emp                employee.Employee
		role, flag, status string
		created, updated   int64
	)
	err := row.Scan(&emp.ID, &emp.CompanyID, &emp.EmployeeCode, &emp.FullName, &role, &flag, &status, &created, &updated)
	if err != nil {
		return employee.Employee{}, err
	}
	emp.Role = employee.Role(role)
	emp.ScheduleFlag = schedule.Flag(flag)
	emp.EmploymentStatus = employee.EmploymentStatus(status)
	emp.CreatedAt = time.Unix(0, created).UTC()
	emp.UpdatedAt = time.Unix(0, updated).UTC()
	return emp, nil
}
