package notifications

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fin-control/fin-control/internal/shared"
)

// Repository persists in-app notifications.
type Repository interface {
	Create(ctx context.Context, n *Notification) error
	ListForUser(ctx context.Context, userID int64, onlyUnread bool) ([]Notification, error)
	MarkRead(ctx context.Context, userID, id int64) error
	MarkAllRead(ctx context.Context, userID int64) error
}

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository returns a Postgres-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

func (r *pgRepository) Create(ctx context.Context, n *Notification) error {
	return r.pool.QueryRow(ctx, `INSERT INTO notifications (user_id, title, body, read, created_at)
VALUES ($1, $2, $3, FALSE, NOW()) RETURNING id, created_at`,
		n.UserID, n.Title, n.Body).Scan(&n.ID, &n.CreatedAt)
}

func (r *pgRepository) ListForUser(ctx context.Context, userID int64, onlyUnread bool) ([]Notification, error) {
	query := `SELECT id, user_id, title, body, read, created_at FROM notifications WHERE user_id=$1`
	if onlyUnread {
		query += ` AND NOT read`
	}
	query += ` ORDER BY created_at DESC LIMIT 100`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Body, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, n)
	}
	return list, rows.Err()
}

func (r *pgRepository) MarkRead(ctx context.Context, userID, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE notifications SET read=TRUE WHERE user_id=$1 AND id=$2`, userID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *pgRepository) MarkAllRead(ctx context.Context, userID int64) error {
	_, err := r.pool.Exec(ctx, `UPDATE notifications SET read=TRUE WHERE user_id=$1 AND NOT read`, userID)
	return err
}
