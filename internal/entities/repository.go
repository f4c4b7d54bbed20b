package entities

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fin-control/fin-control/internal/shared"
)

// Repository defines entity data access.
type Repository interface {
	Get(ctx context.Context, companyID, id uuid.UUID) (*Entity, error)
	List(ctx context.Context, companyID uuid.UUID, kind Kind) ([]Entity, error)
	Create(ctx context.Context, e *Entity) error
	Update(ctx context.Context, e *Entity) error
	Delete(ctx context.Context, companyID, id uuid.UUID) error
}

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Postgres-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

func (r *pgRepository) Get(ctx context.Context, companyID, id uuid.UUID) (*Entity, error) {
	var e Entity
	var kind string
	err := r.pool.QueryRow(ctx, `SELECT id, company_id, name, kind, document, email, created_at, updated_at
FROM entities WHERE company_id = $1 AND id = $2`, companyID, id).
		Scan(&e.ID, &e.CompanyID, &e.Name, &kind, &e.Document, &e.Email, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	e.Kind = Kind(kind)
	return &e, nil
}

func (r *pgRepository) List(ctx context.Context, companyID uuid.UUID, kind Kind) ([]Entity, error) {
	query := `SELECT id, company_id, name, kind, document, email, created_at, updated_at
FROM entities WHERE company_id = $1`
	args := []any{companyID}
	if kind != "" {
		query += ` AND (kind = $2 OR kind = 'both')`
		args = append(args, string(kind))
	}
	query += ` ORDER BY name ASC`
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Entity
	for rows.Next() {
		var e Entity
		var k string
		if err := rows.Scan(&e.ID, &e.CompanyID, &e.Name, &k, &e.Document, &e.Email, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		e.Kind = Kind(k)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *pgRepository) Create(ctx context.Context, e *Entity) error {
	return r.pool.QueryRow(ctx, `INSERT INTO entities (id, company_id, name, kind, document, email, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW()) RETURNING created_at, updated_at`,
		e.ID, e.CompanyID, e.Name, string(e.Kind), e.Document, e.Email).Scan(&e.CreatedAt, &e.UpdatedAt)
}

func (r *pgRepository) Update(ctx context.Context, e *Entity) error {
	tag, err := r.pool.Exec(ctx, `UPDATE entities SET name = $3, kind = $4, document = $5, email = $6, updated_at = NOW()
WHERE company_id = $1 AND id = $2`, e.CompanyID, e.ID, e.Name, string(e.Kind), e.Document, e.Email)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *pgRepository) Delete(ctx context.Context, companyID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM entities WHERE company_id = $1 AND id = $2`, companyID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
