package feedback

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fin-control/fin-control/internal/shared"
)

// Repository persists feedback submissions and roadmap items.
type Repository interface {
	CreateFeedback(ctx context.Context, f *Feedback) error
	ListFeedback(ctx context.Context) ([]Feedback, error)
	CreateRoadmapItem(ctx context.Context, item *RoadmapItem) error
	ListRoadmap(ctx context.Context) ([]RoadmapItem, error)
	UpdateRoadmapStatus(ctx context.Context, id int64, status string) error
	DeleteRoadmapItem(ctx context.Context, id int64) error
}

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository returns a Postgres-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

func (r *pgRepository) CreateFeedback(ctx context.Context, f *Feedback) error {
	return r.pool.QueryRow(ctx, `INSERT INTO feedbacks (user_id, category, message, created_at)
VALUES ($1, $2, $3, NOW()) RETURNING id, created_at`,
		f.UserID, f.Category, f.Message).Scan(&f.ID, &f.CreatedAt)
}

func (r *pgRepository) ListFeedback(ctx context.Context) ([]Feedback, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, user_id, category, message, created_at
FROM feedbacks ORDER BY created_at DESC LIMIT 200`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []Feedback
	for rows.Next() {
		var f Feedback
		if err := rows.Scan(&f.ID, &f.UserID, &f.Category, &f.Message, &f.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, f)
	}
	return list, rows.Err()
}

func (r *pgRepository) CreateRoadmapItem(ctx context.Context, item *RoadmapItem) error {
	return r.pool.QueryRow(ctx, `INSERT INTO roadmap_items (title, body, status, created_at, updated_at)
VALUES ($1, $2, $3, NOW(), NOW()) RETURNING id, created_at, updated_at`,
		item.Title, item.Body, item.Status).Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)
}

func (r *pgRepository) ListRoadmap(ctx context.Context) ([]RoadmapItem, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, title, body, status, created_at, updated_at
FROM roadmap_items ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []RoadmapItem
	for rows.Next() {
		var item RoadmapItem
		if err := rows.Scan(&item.ID, &item.Title, &item.Body, &item.Status, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, item)
	}
	return list, rows.Err()
}

func (r *pgRepository) UpdateRoadmapStatus(ctx context.Context, id int64, status string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE roadmap_items SET status=$2, updated_at=NOW() WHERE id=$1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *pgRepository) DeleteRoadmapItem(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM roadmap_items WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
