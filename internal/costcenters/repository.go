package costcenters

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/fin-control/fin-control/internal/shared"
)

// Repository persists cost centers and reads allocation aggregates.
type Repository interface {
	Create(ctx context.Context, c *CostCenter) error
	Get(ctx context.Context, companyID, id uuid.UUID) (*CostCenter, error)
	List(ctx context.Context, companyID uuid.UUID, budgetYear int) ([]CostCenter, error)
	Update(ctx context.Context, c *CostCenter) error
	Delete(ctx context.Context, companyID, id uuid.UUID) error
	HasChildren(ctx context.Context, companyID, id uuid.UUID) (bool, error)
	AllocationTotals(ctx context.Context, companyID uuid.UUID) (map[uuid.UUID]AllocationTotals, error)
}

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository returns a Postgres-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

const ccColumns = `id, company_id, name, parent_id, budget::text, budget_year,
allowed_user_ids, approver_email, releaser_email, created_at, updated_at`

func (r *pgRepository) Create(ctx context.Context, c *CostCenter) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO cost_centers
(id, company_id, name, parent_id, budget, budget_year, allowed_user_ids, approver_email, releaser_email, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8, $9, NOW(), NOW())`,
		c.ID, c.CompanyID, c.Name, nullableUUID(c.ParentID), c.Budget.String(),
		c.BudgetYear, c.AllowedUserIDs, c.ApproverEmail, c.ReleaserEmail)
	if err != nil {
		return fmt.Errorf("insert cost center: %w", err)
	}
	return nil
}

func (r *pgRepository) Get(ctx context.Context, companyID, id uuid.UUID) (*CostCenter, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+ccColumns+` FROM cost_centers WHERE company_id=$1 AND id=$2`, companyID, id)
	c, err := scanCostCenter(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

func (r *pgRepository) List(ctx context.Context, companyID uuid.UUID, budgetYear int) ([]CostCenter, error) {
	query := `SELECT ` + ccColumns + ` FROM cost_centers WHERE company_id=$1`
	args := []any{companyID}
	if budgetYear > 0 {
		args = append(args, budgetYear)
		query += ` AND budget_year=$2`
	}
	query += ` ORDER BY name`
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []CostCenter
	for rows.Next() {
		c, err := scanCostCenter(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *c)
	}
	return list, rows.Err()
}

func (r *pgRepository) Update(ctx context.Context, c *CostCenter) error {
	tag, err := r.pool.Exec(ctx, `UPDATE cost_centers
SET name=$3, parent_id=$4, budget=$5::numeric, budget_year=$6, allowed_user_ids=$7,
approver_email=$8, releaser_email=$9, updated_at=NOW()
WHERE company_id=$1 AND id=$2`,
		c.CompanyID, c.ID, c.Name, nullableUUID(c.ParentID), c.Budget.String(),
		c.BudgetYear, c.AllowedUserIDs, c.ApproverEmail, c.ReleaserEmail)
	if err != nil {
		return fmt.Errorf("update cost center: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *pgRepository) Delete(ctx context.Context, companyID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM cost_centers WHERE company_id=$1 AND id=$2`, companyID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *pgRepository) HasChildren(ctx context.Context, companyID, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM cost_centers WHERE company_id=$1 AND parent_id=$2)`,
		companyID, id).Scan(&exists)
	return exists, err
}

// AllocationTotals sums allocation amounts against each cost center for
// paid and approved transactions, split by type.
func (r *pgRepository) AllocationTotals(ctx context.Context, companyID uuid.UUID) (map[uuid.UUID]AllocationTotals, error) {
	rows, err := r.pool.Query(ctx, `SELECT ta.cost_center_id, t.type, COALESCE(SUM(ta.amount), 0)::text
FROM transaction_allocations ta
JOIN transactions t ON t.id = ta.transaction_id
WHERE t.company_id=$1 AND t.status IN ('approved', 'paid')
GROUP BY ta.cost_center_id, t.type`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	totals := make(map[uuid.UUID]AllocationTotals)
	for rows.Next() {
		var ccID uuid.UUID
		var typ, sum string
		if err := rows.Scan(&ccID, &typ, &sum); err != nil {
			return nil, err
		}
		amount, err := decimal.NewFromString(sum)
		if err != nil {
			return nil, err
		}
		t := totals[ccID]
		switch typ {
		case "payable":
			t.Payables = t.Payables.Add(amount)
		case "receivable":
			t.Receivables = t.Receivables.Add(amount)
		}
		totals[ccID] = t
	}
	return totals, rows.Err()
}

func scanCostCenter(row pgx.Row) (*CostCenter, error) {
	var c CostCenter
	var parentID *uuid.UUID
	var budget string
	if err := row.Scan(&c.ID, &c.CompanyID, &c.Name, &parentID, &budget, &c.BudgetYear,
		&c.AllowedUserIDs, &c.ApproverEmail, &c.ReleaserEmail, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	if parentID != nil {
		c.ParentID = *parentID
	}
	var err error
	if c.Budget, err = decimal.NewFromString(budget); err != nil {
		return nil, err
	}
	return &c, nil
}

func nullableUUID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}
