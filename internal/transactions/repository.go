package transactions

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

// ListFilter narrows transaction listings.
type ListFilter struct {
	Type         Type
	Status       Status
	CostCenterID uuid.UUID
	DueBefore    time.Time
	DueAfter     time.Time
	Page         int
	PerPage      int
}

// Repository persists transactions.
type Repository interface {
	Create(ctx context.Context, t *Transaction) error
	Get(ctx context.Context, companyID, id uuid.UUID) (*Transaction, error)
	List(ctx context.Context, companyID uuid.UUID, f ListFilter) ([]Transaction, int, error)
	Update(ctx context.Context, t *Transaction) error
	UpdateStatus(ctx context.Context, companyID, id uuid.UUID, from, to Status, paymentDate *time.Time) error
	Delete(ctx context.Context, companyID, id uuid.UUID) error
}

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository returns a Postgres-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

const txColumns = `id, company_id, entity_id, type, description, amount::text,
final_amount::text, status, due_date, payment_date, created_by, created_at, updated_at`

func (r *pgRepository) Create(ctx context.Context, t *Transaction) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `INSERT INTO transactions
(id, company_id, entity_id, type, description, amount, final_amount, status, due_date, created_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6::numeric, $7::numeric, $8, $9, $10, NOW(), NOW())`,
			t.ID, t.CompanyID, nullableUUID(t.EntityID), string(t.Type), t.Description,
			t.Amount.String(), t.FinalAmount.String(), string(t.Status), t.DueDate, t.CreatedBy)
		if err != nil {
			return fmt.Errorf("insert transaction: %w", err)
		}
		return insertAllocations(ctx, tx, t.ID, t.Allocations)
	})
}

func (r *pgRepository) Get(ctx context.Context, companyID, id uuid.UUID) (*Transaction, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+txColumns+` FROM transactions WHERE company_id=$1 AND id=$2`, companyID, id)
	t, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	if err := r.loadAllocations(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *pgRepository) List(ctx context.Context, companyID uuid.UUID, f ListFilter) ([]Transaction, int, error) {
	where := `WHERE company_id=$1`
	args := []any{companyID}
	if f.Type != "" {
		args = append(args, string(f.Type))
		where += fmt.Sprintf(" AND type=$%d", len(args))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		where += fmt.Sprintf(" AND status=$%d", len(args))
	}
	if f.CostCenterID != uuid.Nil {
		args = append(args, f.CostCenterID)
		where += fmt.Sprintf(" AND id IN (SELECT transaction_id FROM transaction_allocations WHERE cost_center_id=$%d)", len(args))
	}
	if !f.DueAfter.IsZero() {
		args = append(args, f.DueAfter)
		where += fmt.Sprintf(" AND due_date >= $%d", len(args))
	}
	if !f.DueBefore.IsZero() {
		args = append(args, f.DueBefore)
		where += fmt.Sprintf(" AND due_date <= $%d", len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM transactions `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	perPage := f.PerPage
	if perPage <= 0 {
		perPage = 20
	}
	page := f.Page
	if page <= 0 {
		page = 1
	}
	args = append(args, perPage, (page-1)*perPage)
	query := fmt.Sprintf(`SELECT %s FROM transactions %s ORDER BY due_date ASC, created_at ASC LIMIT $%d OFFSET $%d`,
		txColumns, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	for i := range list {
		if err := r.loadAllocations(ctx, &list[i]); err != nil {
			return nil, 0, err
		}
	}
	return list, total, nil
}

func (r *pgRepository) Update(ctx context.Context, t *Transaction) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE transactions
SET entity_id=$3, description=$4, amount=$5::numeric, final_amount=$6::numeric, due_date=$7, updated_at=NOW()
WHERE company_id=$1 AND id=$2`,
			t.CompanyID, t.ID, nullableUUID(t.EntityID), t.Description,
			t.Amount.String(), t.FinalAmount.String(), t.DueDate)
		if err != nil {
			return fmt.Errorf("update transaction: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		if _, err := tx.Exec(ctx, `DELETE FROM transaction_allocations WHERE transaction_id=$1`, t.ID); err != nil {
			return err
		}
		return insertAllocations(ctx, tx, t.ID, t.Allocations)
	})
}

// UpdateStatus performs a conditional status move. Zero rows means the
// transaction was not in the expected state (or does not exist).
func (r *pgRepository) UpdateStatus(ctx context.Context, companyID, id uuid.UUID, from, to Status, paymentDate *time.Time) error {
	tag, err := r.pool.Exec(ctx, `UPDATE transactions
SET status=$4, payment_date=COALESCE($5, payment_date), updated_at=NOW()
WHERE company_id=$1 AND id=$2 AND status=$3`,
		companyID, id, string(from), string(to), paymentDate)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidTransition
	}
	return nil
}

func (r *pgRepository) Delete(ctx context.Context, companyID, id uuid.UUID) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM transaction_allocations WHERE transaction_id=$1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM transactions WHERE company_id=$1 AND id=$2`, companyID, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

func (r *pgRepository) loadAllocations(ctx context.Context, t *Transaction) error {
	rows, err := r.pool.Query(ctx, `SELECT cost_center_id, percentage::text, amount::text
FROM transaction_allocations WHERE transaction_id=$1 ORDER BY cost_center_id`, t.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var a Allocation
		var pct, amt string
		if err := rows.Scan(&a.CostCenterID, &pct, &amt); err != nil {
			return err
		}
		if a.Percentage, err = decimal.NewFromString(pct); err != nil {
			return err
		}
		if a.Amount, err = decimal.NewFromString(amt); err != nil {
			return err
		}
		t.Allocations = append(t.Allocations, a)
	}
	return rows.Err()
}

func insertAllocations(ctx context.Context, tx pgx.Tx, id uuid.UUID, allocations []Allocation) error {
	for _, a := range allocations {
		_, err := tx.Exec(ctx, `INSERT INTO transaction_allocations (transaction_id, cost_center_id, percentage, amount)
VALUES ($1, $2, $3::numeric, $4::numeric)`, id, a.CostCenterID, a.Percentage.String(), a.Amount.String())
		if err != nil {
			return fmt.Errorf("insert allocation: %w", err)
		}
	}
	return nil
}

func scanTransaction(row pgx.Row) (*Transaction, error) {
	var t Transaction
	var typ, status, amount, finalAmount string
	var entityID *uuid.UUID
	if err := row.Scan(&t.ID, &t.CompanyID, &entityID, &typ, &t.Description,
		&amount, &finalAmount, &status, &t.DueDate, &t.PaymentDate,
		&t.CreatedBy, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	if entityID != nil {
		t.EntityID = *entityID
	}
	t.Type = Type(typ)
	t.Status = Status(status)
	var err error
	if t.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, err
	}
	if t.FinalAmount, err = decimal.NewFromString(finalAmount); err != nil {
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
