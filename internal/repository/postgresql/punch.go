package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-reconciliation/internal/domain/punch"
	"github.com/cmlabs-hris/attendance-reconciliation/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type punchRepository struct {
	db    *database.DB
	retry database.RetryPolicy
}

func NewPunchRepository(db *database.DB, retry database.RetryPolicy) punch.PunchRepository {
	return &punchRepository{db: db, retry: retry}
}

const punchColumns = `id, employee_id, company_id, punched_at, kind, sequence_ordinal, note, created_at`

// FetchByEmployeeAndRange implements punch.PunchRepository.
func (r *punchRepository) FetchByEmployeeAndRange(ctx context.Context, employeeID string, from, to time.Time, companyID string) ([]punch.Punch, error) {
	query := `
		SELECT ` + punchColumns + `
		FROM punches
		WHERE employee_id = $1
		  AND company_id = $2
		  AND punched_at >= $3
		  AND punched_at < $4
		ORDER BY punched_at ASC, sequence_ordinal ASC NULLS LAST, created_at ASC
	`

	var punches []punch.Punch
	err := r.retry.Do(ctx, "punch.fetch", func() error {
		q := GetQuerier(ctx, r.db)
		rows, err := q.Query(ctx, query, employeeID, companyID, from.UTC(), to.UTC())
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
	query := `SELECT ` + punchColumns + ` FROM punches WHERE id = $1 AND company_id = $2`

	var p punch.Punch
	err := r.retry.Do(ctx, "punch.get", func() error {
		var err error
		p, err = scanPunch(GetQuerier(ctx, r.db).QueryRow(ctx, query, id, companyID))
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return punch.Punch{}, punch.ErrPunchNotFound
		}
		return punch.Punch{}, fmt.Errorf("failed to get punch %s: %w", id, err)
	}
	return p, nil
}

// Insert implements punch.PunchRepository. All records are written in one
// batch inside a single transaction.
func (r *punchRepository) Insert(ctx context.Context, records []punch.Punch) ([]punch.Punch, error) {
	if len(records) == 0 {
		return nil, punch.ErrEmptyInsert
	}

	query := `
		INSERT INTO punches (id, employee_id, company_id, punched_at, kind, sequence_ordinal, note)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`

	out := make([]punch.Punch, len(records))
	for i, rec := range records {
		id, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("generate punch id: %w", err)
		}
		rec.ID = id.String()
		rec.Timestamp = rec.Timestamp.UTC()
		out[i] = rec
	}

	write := func(ctx context.Context) error {
		batch := &pgx.Batch{}
		for i := range out {
			p := &out[i]
			batch.Queue(query, p.ID, p.EmployeeID, p.CompanyID, p.Timestamp, string(p.Kind), p.SequenceOrdinal, p.Note).
				QueryRow(func(row pgx.Row) error {
					return row.Scan(&p.CreatedAt)
				})
		}

		tx, ok := GetQuerier(ctx, r.db).(pgx.Tx)
		if !ok {
			return errors.New("insert punches outside a transaction")
		}
		return tx.SendBatch(ctx, batch).Close()
	}

	var err error
	if inTransaction(ctx) {
		err = write(ctx)
	} else {
		err = r.retry.Do(ctx, "punch.insert", func() error {
			return WithTransaction(ctx, r.db, write)
		})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to insert punches: %w", err)
	}

	return out, nil
}

// Delete implements punch.PunchRepository.
func (r *punchRepository) Delete(ctx context.Context, id string, companyID string) error {
	query := `DELETE FROM punches WHERE id = $1 AND company_id = $2`

	var affected int64
	err := r.retry.Do(ctx, "punch.delete", func() error {
		tag, err := GetQuerier(ctx, r.db).Exec(ctx, query, id, companyID)
		if err != nil {
			return err
		}
		affected = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete punch %s: %w", id, err)
	}
	if affected == 0 {
		return punch.ErrPunchNotFound
	}
	return nil
}

func scanPunch(row pgx.Row) (punch.Punch, error) {
	var (
		p    punch.Punch
		kind string
	)
	err := row.Scan(&p.ID, &p.EmployeeID, &p.CompanyID, &p.Timestamp, &kind, &p.SequenceOrdinal, &p.Note, &p.CreatedAt)
	if err != nil {
		return punch.Punch{}, err
	}
	p.Kind = punch.Kind(kind)
	p.Timestamp = p.Timestamp.UTC()
	return p, nil
}
