// Package sqlite implements the punch and employee stores on an embedded
// SQLite database. Instants are stored as UTC unix nanoseconds so range scans
// compare integers and never depend on text formatting.
package sqlite

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/attendance-reconciliation/internal/pkg/database"
)

func Migrate(ctx context.Context, db *database.SQLiteDB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS employees (
		id                TEXT PRIMARY KEY,
		company_id        TEXT NOT NULL,
		employee_code     TEXT NOT NULL,
		full_name         TEXT NOT NULL,
		role              TEXT NOT NULL DEFAULT 'employee',
		schedule_flag     TEXT NOT NULL DEFAULT '',
		employment_status TEXT NOT NULL DEFAULT 'active',
		created_at        INTEGER NOT NULL,
		updated_at        INTEGER NOT NULL,
		UNIQUE (company_id, employee_code)
	);
	CREATE INDEX IF NOT EXISTS idx_employees_company_status ON employees(company_id, employment_status);

	CREATE TABLE IF NOT EXISTS punches (
		id               TEXT PRIMARY KEY,
		employee_id      TEXT NOT NULL REFERENCES employees(id) ON DELETE CASCADE,
		company_id       TEXT NOT NULL,
		punched_at       INTEGER NOT NULL,
		kind             TEXT NOT NULL,
		sequence_ordinal INTEGER,
		note             TEXT,
		created_at       INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_punches_employee_time ON punches(company_id, employee_id, punched_at);
	`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
