package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/attendance-reconciliation/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-reconciliation/internal/domain/schedule"
	"github.com/cmlabs-hris/attendance-reconciliation/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type employeeRepositoryImpl struct {
	db    *database.DB
	retry database.RetryPolicy
}

func NewEmployeeRepository(db *database.DB, retry database.RetryPolicy) employee.EmployeeRepository {
	return &employeeRepositoryImpl{db: db, retry: retry}
}

const employeeColumns = `id, company_id, employee_code, full_name, role, schedule_flag, employment_status, created_at, updated_at`

// GetByID implements employee.EmployeeRepository.
func (e *employeeRepositoryImpl) GetByID(ctx context.Context, id string, companyID string) (employee.Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE id = $1 AND company_id = $2`

	var emp employee.Employee
	err := e.retry.Do(ctx, "employee.get", func() error {
		var err error
		emp, err = scanEmployee(GetQuerier(ctx, e.db).QueryRow(ctx, query, id, companyID))
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return employee.Employee{}, fmt.Errorf("employee %s: %w", id, employee.ErrEmployeeNotFound)
		}
		return employee.Employee{}, fmt.Errorf("failed to get employee %s: %w", id, err)
	}
	return emp, nil
}

// ListActive implements employee.EmployeeRepository.
func (e *employeeRepositoryImpl) ListActive(ctx context.Context, companyID string) ([]employee.Employee, error) {
	query := `
		SELECT ` + employeeColumns + `
		FROM employees
		WHERE company_id = $1 AND employment_status = $2
		ORDER BY full_name ASC, id ASC
	`

	var employees []employee.Employee
	err := e.retry.Do(ctx, "employee.list_active", func() error {
		rows, err := GetQuerier(ctx, e.db).Query(ctx, query, companyID, employee.EmploymentStatusActive)
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
func (e *employeeRepositoryImpl) ListActiveCompanyIDs(ctx context.Context) ([]string, error) {
	query := `
		SELECT DISTINCT company_id
		FROM employees
		WHERE employment_status = $1
		ORDER BY company_id
	`

	var ids []string
	err := e.retry.Do(ctx, "employee.list_companies", func() error {
		rows, err := GetQuerier(ctx, e.db).Query(ctx, query, employee.EmploymentStatusActive)
		if err != nil {
			return err
		}
		ids, err = pgx.CollectRows(rows, pgx.RowTo[string])
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}

	return ids, nil
}

func scanEmployee(row pgx.Row) (employee.Employee, error) {
	var (
		emp    employee.Employee
		role   string
		flag   string
		status string
	)
	err := row.Scan(&emp.ID, &emp.CompanyID, &emp.EmployeeCode, &emp.FullName, &role, &flag, &status, &emp.CreatedAt, &emp.UpdatedAt)
	if err != nil {
		return employee.Employee{}, err
	}
	emp.Role = employee.Role(role)
	emp.ScheduleFlag = schedule.Flag(flag)
	emp.EmploymentStatus = employee.EmploymentStatus(status)
	return emp, nil
}
