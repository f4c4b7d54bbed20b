package stats

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/fin-control/fin-control/internal/shared"
)

// Repository defines stats data access.
type Repository interface {
	Get(ctx context.Context, companyID uuid.UUID) (*CompanyStats, error)
	// ApplyDelta increments the balance atomically, initialising the row to
	// the delta when no stats document exists yet.
	ApplyDelta(ctx context.Context, companyID uuid.UUID, delta decimal.Decimal) error
	// RecomputeBalance sums all paid transactions and replaces the stored
	// balance in one statement.
	RecomputeBalance(ctx context.Context, companyID uuid.UUID) (decimal.Decimal, error)
}

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Postgres-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

func (r *pgRepository) Get(ctx context.Context, companyID uuid.UUID) (*CompanyStats, error) {
	var s CompanyStats
	var balance string
	err := r.pool.QueryRow(ctx, `SELECT company_id, current_balance::text, updated_at
FROM company_stats WHERE company_id = $1`, companyID).Scan(&s.CompanyID, &balance, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	s.CurrentBalance, err = decimal.NewFromString(balance)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *pgRepository) ApplyDelta(ctx context.Context, companyID uuid.UUID, delta decimal.Decimal) error {
	// Single-statement upsert keeps the increment atomic under concurrent
	// transaction writes for the same company.
	_, err := r.pool.Exec(ctx, `INSERT INTO company_stats (company_id, current_balance, updated_at)
VALUES ($1, $2::numeric, NOW())
ON CONFLICT (company_id)
DO UPDATE SET current_balance = company_stats.current_balance + EXCLUDED.current_balance, updated_at = NOW()`,
		companyID, delta.String())
	return err
}

func (r *pgRepository) RecomputeBalance(ctx context.Context, companyID uuid.UUID) (decimal.Decimal, error) {
	var balance string
	err := r.pool.QueryRow(ctx, `INSERT INTO company_stats (company_id, current_balance, updated_at)
SELECT $1, COALESCE(SUM(
  CASE
    WHEN type = 'receivable' THEN (CASE WHEN final_amount > 0 THEN final_amount ELSE amount END)
    WHEN type = 'payable' THEN -(CASE WHEN final_amount > 0 THEN final_amount ELSE amount END)
  END), 0), NOW()
FROM transactions WHERE company_id = $1 AND status = 'paid'
ON CONFLICT (company_id)
DO UPDATE SET current_balance = EXCLUDED.current_balance, updated_at = NOW()
RETURNING current_balance::text`, companyID).Scan(&balance)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(balance)
}
