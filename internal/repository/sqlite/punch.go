package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-reconciliation/internal/domain/punch"
	"github.com/cmlabs-hris/attendance-reconciliation/internal/pkg/database"
	"github.com/google/uuid"
)

type punchRepository struct {
	db    *database.SQLiteDB
	retry database.RetryPolicy
	now   func() time.Time
}

func NewPunchRepository(db *database.SQLiteDB, retry database.RetryPolicy) punch.PunchRepository {
	return &punchRepository{db: db, retry: retry, now: time.Now}
}

const punchColumns = `id, employee_id, company_id, punched_at, kind, sequence_ordinal, note, created_at`

// FetchByEmployeeAndRange implements punch.PunchRepository.
func (r *punchRepository) FetchByEmployeeAndRange(ctx context.Context, employeeID string, from, to time.Time, companyID string) ([]punch.Punch, error) {
	query := `
		SELECT ` + punchColumns + `
		FROM punches
		WHERE employee_id = ? AND company_id = ? AND punched_at >= ? AND punched_at < ?
		ORDER BY punched_at ASC, sequence_ordinal IS NULL, sequence_ordinal ASC, created_at ASC
	`

	var punches []punch.Punch
	err := r.retry.Do(ctx, "punch.fetch", func() error {
		rows, err := r.db.QueryContext(ctx, query, employeeID, companyID, from.UnixNano(), to.UnixNano())
		if err != nil {
			return err
		}
		defer rows.Close()

		punches = punches[:0]
		for rows.Next() {
			p, err := scanPunch(rows)
			if err != nil {
				return err
			}
			punches = append(punches, p)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch punches for employee %s: %w", employeeID, err)
	}
	return punches, nil
}

// GetByID implements punch.PunchRepository.
func (r *punchRepository) GetByID(ctx context.Context, id string, companyID string) (punch.Punch, error) {
	query := `SELECT ` + punchColumns + ` FROM punches WHERE id = ? AND company_id = ?`

	var p punch.Punch
	err := r.retry.Do(ctx, "punch.get", func() error {
		var err error
		p, err = scanPunch(r.db.QueryRowContext(ctx, query, id, companyID))
		return err
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return punch.Punch{}, punch.ErrPunchNotFound
		}
		return punch.Punch{}, fmt.Errorf("failed to get punch %s: %w", id, err)
	}
	return p, nil
}

// Insert implements punch.PunchRepository.
func (r *punchRepository) Insert(ctx context.Context, records []punch.Punch) ([]punch.Punch, error) {
	if len(records) == 0 {
		return nil, punch.ErrEmptyInsert
	}

	createdAt := r.now().UTC()
	out := make([]punch.Punch, len(records))
	for i, rec := range records {
		id, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("generate punch id: %w", err)
		}
		rec.ID = id.String()
		rec.Timestamp = rec.Timestamp.UTC()
		rec.CreatedAt = createdAt
		out[i] = rec
	}

	query := `
		INSERT INTO punches (id, employee_id, company_id, punched_at, kind, sequence_ordinal, note, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := r.retry.Do(ctx, "punch.insert", func() error {
		return r.db.WithTx(ctx, func(tx *sql.Tx) error {
			stmt, err := tx.PrepareContext(ctx, query)
			if err != nil {
				return err
			}
			defer stmt.Close()

			for _, p := range out {
				_, err := stmt.ExecContext(ctx,
					p.ID, p.EmployeeID, p.CompanyID, p.Timestamp.UnixNano(), string(p.Kind),
					nullInt(p.SequenceOrdinal), nullString(p.Note), p.CreatedAt.UnixNano(),
				)
				if err != nil {
					return err
				}
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert punches: %w", err)
	}

	return out, nil
}

// Delete implements punch.PunchRepository.
func (r *punchRepository) Delete(ctx context.Context, id string, companyID string) error {
	var affected int64
	err := r.retry.Do(ctx, "punch.delete", func() error {
		res, err := r.db.ExecContext(ctx, `DELETE FROM punches WHERE id = ? AND company_id = ?`, id, companyID)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to delete punch %s: %w", id, err)
	}
	if affected == 0 {
		return punch.ErrPunchNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPunch(row scanner) (punch.Punch, error) {
	var (
		p                  punch.Punch
		punchedAt, created int64
		kind               string
		ordinal            sql.NullInt64
		note               sql.NullString
	)
	if err := row.Scan(&p.ID, &p.EmployeeID, &p.CompanyID, &punchedAt, &kind, &ordinal, &note, &created); err != nil {
		return punch.Punch{}, err
	}

	p.Timestamp = time.Unix(0, punchedAt).UTC()
	p.CreatedAt = time.Unix(0, created).UTC()
	p.Kind = punch.Kind(kind)
	if ordinal.Valid {
		v := int(ordinal.Int64)
		p.SequenceOrdinal = &v
	}
	if note.Valid {
		v := note.String
		p.Note = &v
	}
	return p, nil
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}
