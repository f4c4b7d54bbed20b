package recurrences

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/fin-control/fin-control/internal/platform/db"
	"github.com/fin-control/fin-control/internal/shared"
)

// Repository persists templates and materializes their occurrences.
type Repository interface {
	Create(ctx context.Context, t *Template) error
	Get(ctx context.Context, companyID, id uuid.UUID) (*Template, error)
	List(ctx context.Context, companyID uuid.UUID, onlyActive bool) ([]Template, error)
	Update(ctx context.Context, t *Template) error
	SetActive(ctx context.Context, companyID, id uuid.UUID, active bool) error
	Delete(ctx context.Context, companyID, id uuid.UUID) error
	DueTemplates(ctx context.Context, asOf time.Time) ([]Template, error)
	Materialize(ctx context.Context, t *Template, txID uuid.UUID, nextDue time.Time) (bool, error)
	ApproverEmail(ctx context.Context, companyID, costCenterID uuid.UUID) (string, error)
}

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository returns a Postgres-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

const tmplColumns = `id, company_id, description, type, amount::text, entity_id,
cost_center_id, frequency, recur_interval, next_due_date, active, created_by, created_at, updated_at`

func (r *pgRepository) Create(ctx context.Context, t *Template) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO recurring_templates
(id, company_id, description, type, amount, entity_id, cost_center_id, frequency, recur_interval, next_due_date, active, created_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())`,
		t.ID, t.CompanyID, t.Description, t.Type, t.Amount.String(),
		nullableUUID(t.EntityID), nullableUUID(t.CostCenterID),
		string(t.Frequency), t.Interval, t.NextDueDate, t.Active, t.CreatedBy)
	if err != nil {
		return fmt.Errorf("insert template: %w", err)
	}
	return nil
}

func (r *pgRepository) Get(ctx context.Context, companyID, id uuid.UUID) (*Template, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+tmplColumns+` FROM recurring_templates WHERE company_id=$1 AND id=$2`, companyID, id)
	t, err := scanTemplate(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return t, nil
}

func (r *pgRepository) List(ctx context.Context, companyID uuid.UUID, onlyActive bool) ([]Template, error) {
	query := `SELECT ` + tmplColumns + ` FROM recurring_templates WHERE company_id=$1`
	if onlyActive {
		query += ` AND active`
	}
	query += ` ORDER BY next_due_date`
	rows, err := r.pool.Query(ctx, query, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTemplates(rows)
}

func (r *pgRepository) Update(ctx context.Context, t *Template) error {
	tag, err := r.pool.Exec(ctx, `UPDATE recurring_templates
SET description=$3, amount=$4::numeric, entity_id=$5, cost_center_id=$6,
frequency=$7, recur_interval=$8, next_due_date=$9, updated_at=NOW()
WHERE company_id=$1 AND id=$2`,
		t.CompanyID, t.ID, t.Description, t.Amount.String(),
		nullableUUID(t.EntityID), nullableUUID(t.CostCenterID),
		string(t.Frequency), t.Interval, t.NextDueDate)
	if err != nil {
		return fmt.Errorf("update template: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *pgRepository) SetActive(ctx context.Context, companyID, id uuid.UUID, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE recurring_templates SET active=$3, updated_at=NOW()
WHERE company_id=$1 AND id=$2`, companyID, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *pgRepository) Delete(ctx context.Context, companyID, id uuid.UUID) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM recurrence_occurrences WHERE template_id=$1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM recurring_templates WHERE company_id=$1 AND id=$2`, companyID, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

func (r *pgRepository) DueTemplates(ctx context.Context, asOf time.Time) ([]Template, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+tmplColumns+` FROM recurring_templates
WHERE active AND next_due_date <= $1 ORDER BY next_due_date`, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTemplates(rows)
}

// Materialize inserts the occurrence marker, the transaction, and the
// advanced due date in one database transaction. The unique
// (template_id, due_date) key makes the whole thing idempotent: a
// conflicting occurrence rolls everything back as a no-op.
func (r *pgRepository) Materialize(ctx context.Context, t *Template, txID uuid.UUID, nextDue time.Time) (bool, error) {
	inserted := false
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `INSERT INTO recurrence_occurrences (template_id, due_date, transaction_id, created_at)
VALUES ($1, $2, $3, NOW()) ON CONFLICT (template_id, due_date) DO NOTHING`,
			t.ID, t.NextDueDate, txID)
		if err != nil {
			return fmt.Errorf("insert occurrence: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return nil // already materialized for this due date
		}
		inserted = true

		if _, err := tx.Exec(ctx, `INSERT INTO transactions
(id, company_id, entity_id, type, description, amount, final_amount, status, due_date, created_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6::numeric, 0, 'pending_approval', $7, $8, NOW(), NOW())`,
			txID, t.CompanyID, nullableUUID(t.EntityID), t.Type, t.Description,
			t.Amount.String(), t.NextDueDate, t.CreatedBy); err != nil {
			return fmt.Errorf("insert materialized transaction: %w", err)
		}
		if t.CostCenterID != uuid.Nil {
			if _, err := tx.Exec(ctx, `INSERT INTO transaction_allocations (transaction_id, cost_center_id, percentage, amount)
VALUES ($1, $2, 100, $3::numeric)`, txID, t.CostCenterID, t.Amount.String()); err != nil {
				return fmt.Errorf("insert materialized allocation: %w", err)
			}
		}
		if _, err := tx.Exec(ctx, `UPDATE recurring_templates SET next_due_date=$2, updated_at=NOW() WHERE id=$1`,
			t.ID, nextDue); err != nil {
			return fmt.Errorf("advance template: %w", err)
		}
		return nil
	})
	return inserted, err
}

func (r *pgRepository) ApproverEmail(ctx context.Context, companyID, costCenterID uuid.UUID) (string, error) {
	var email string
	err := r.pool.QueryRow(ctx, `SELECT approver_email FROM cost_centers WHERE company_id=$1 AND id=$2`,
		companyID, costCenterID).Scan(&email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", shared.ErrNotFound
		}
		return "", err
	}
	return email, nil
}

func collectTemplates(rows pgx.Rows) ([]Template, error) {
	var list []Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *t)
	}
	return list, rows.Err()
}

func scanTemplate(row pgx.Row) (*Template, error) {
	var t Template
	var amount, freq string
	var entityID, costCenterID *uuid.UUID
	if err := row.Scan(&t.ID, &t.CompanyID, &t.Description, &t.Type, &amount,
		&entityID, &costCenterID, &freq, &t.Interval, &t.NextDueDate,
		&t.Active, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	if entityID != nil {
		t.EntityID = *entityID
	}
	if costCenterID != nil {
		t.CostCenterID = *costCenterID
	}
	t.Frequency = Frequency(freq)
	var err error
	if t.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, err
	}
	return &t, nil
}

func nullableUUID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}
