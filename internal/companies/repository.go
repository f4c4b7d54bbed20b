package companies

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fin-control/fin-control/internal/shared"
)

// Repository defines company data access.
type Repository interface {
	Get(ctx context.Context, id uuid.UUID) (*Company, error)
	ListForUser(ctx context.Context, userID int64, isAdmin bool) ([]Company, error)
	Create(ctx context.Context, c *Company) error
	Update(ctx context.Context, c *Company) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Postgres-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

func (r *pgRepository) Get(ctx context.Context, id uuid.UUID) (*Company, error) {
	var c Company
	err := r.pool.QueryRow(ctx, `SELECT id, name, tax_id, created_at, updated_at FROM companies WHERE id = $1`, id).
		Scan(&c.ID, &c.Name, &c.TaxID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *pgRepository) ListForUser(ctx context.Context, userID int64, isAdmin bool) ([]Company, error) {
	query := `SELECT c.id, c.name, c.tax_id, c.created_at, c.updated_at
FROM companies c
JOIN user_company_roles ucr ON ucr.company_id = c.id AND ucr.user_id = $1
ORDER BY c.name ASC`
	args := []any{userID}
	if isAdmin {
		query = `SELECT id, name, tax_id, created_at, updated_at FROM companies ORDER BY name ASC`
		args = nil
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Company
	for rows.Next() {
		var c Company
		if err := rows.Scan(&c.ID, &c.Name, &c.TaxID, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *pgRepository) Create(ctx context.Context, c *Company) error {
	return r.pool.QueryRow(ctx, `INSERT INTO companies (id, name, tax_id, created_at, updated_at)
VALUES ($1, $2, $3, NOW(), NOW()) RETURNING created_at, updated_at`,
		c.ID, c.Name, c.TaxID).Scan(&c.CreatedAt, &c.UpdatedAt)
}

func (r *pgRepository) Update(ctx context.Context, c *Company) error {
	tag, err := r.pool.Exec(ctx, `UPDATE companies SET name = $2, tax_id = $3, updated_at = NOW() WHERE id = $1`,
		c.ID, c.Name, c.TaxID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *pgRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM companies WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
