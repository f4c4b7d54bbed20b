package users

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fin-control/fin-control/internal/rbac"
	"github.com/fin-control/fin-control/internal/shared"
)

// Repository defines user data access.
type Repository interface {
	Get(ctx context.Context, id int64) (*Profile, error)
	List(ctx context.Context, limit, offset int) ([]Profile, error)
	Create(ctx context.Context, p *Profile, passwordHash string) (int64, error)
	Update(ctx context.Context, p *Profile) error
	SetActive(ctx context.Context, id int64, active bool) error
	SetCompanyRole(ctx context.Context, userID int64, companyID uuid.UUID, role rbac.Role) error
	RemoveCompanyRole(ctx context.Context, userID int64, companyID uuid.UUID) error
	CompanyRoles(ctx context.Context, userID int64) (rbac.CompanyRoles, error)
}

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Postgres-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

func (r *pgRepository) Get(ctx context.Context, id int64) (*Profile, error) {
	var p Profile
	var role string
	err := r.pool.QueryRow(ctx, `SELECT id, email, name, role, is_active, created_at, updated_at
FROM users WHERE id = $1`, id).Scan(&p.ID, &p.Email, &p.Name, &role, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	p.Role = rbac.Role(role)
	companyRoles, err := r.CompanyRoles(ctx, id)
	if err != nil {
		return nil, err
	}
	p.CompanyRoles = companyRoles
	return &p, nil
}

func (r *pgRepository) List(ctx context.Context, limit, offset int) ([]Profile, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `SELECT id, email, name, role, is_active, created_at, updated_at
FROM users ORDER BY name ASC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Profile
	for rows.Next() {
		var p Profile
		var role string
		if err := rows.Scan(&p.ID, &p.Email, &p.Name, &role, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		p.Role = rbac.Role(role)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *pgRepository) Create(ctx context.Context, p *Profile, passwordHash string) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO users (email, name, password_hash, role, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, NOW(), NOW()) RETURNING id`,
		p.Email, p.Name, passwordHash, string(p.Role), p.IsActive).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *pgRepository) Update(ctx context.Context, p *Profile) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET name = $2, role = $3, updated_at = NOW() WHERE id = $1`,
		p.ID, p.Name, string(p.Role))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *pgRepository) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *pgRepository) SetCompanyRole(ctx context.Context, userID int64, companyID uuid.UUID, role rbac.Role) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO user_company_roles (user_id, company_id, role, created_at)
VALUES ($1, $2, $3, NOW())
ON CONFLICT (user_id, company_id) DO UPDATE SET role = EXCLUDED.role`, userID, companyID, string(role))
	return err
}

func (r *pgRepository) RemoveCompanyRole(ctx context.Context, userID int64, companyID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM user_company_roles WHERE user_id = $1 AND company_id = $2`, userID, companyID)
	return err
}

func (r *pgRepository) CompanyRoles(ctx context.Context, userID int64) (rbac.CompanyRoles, error) {
	rows, err := r.pool.Query(ctx, `SELECT company_id, role FROM user_company_roles WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(rbac.CompanyRoles)
	for rows.Next() {
		var companyID uuid.UUID
		var role string
		if err := rows.Scan(&companyID, &role); err != nil {
			return nil, err
		}
		out[companyID] = rbac.Role(role)
	}
	return out, rows.Err()
}
