// Package audit exposes the audit trail written by the mutating services.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fin-control/fin-control/internal/shared"
)

// Entry is one audit record with its metadata decoded.
type Entry struct {
	ID         int64          `json:"id"`
	ActorID    int64          `json:"actor_id"`
	Action     string         `json:"action"`
	Entity     string         `json:"entity"`
	EntityID   string         `json:"entity_id"`
	Meta       map[string]any `json:"meta,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Filter narrows audit listings.
type Filter struct {
	Entity  string
	ActorID int64
	Since   time.Time
	Until   time.Time
	Page    int
	PerPage int
}

// Repository reads audit_logs.
type Repository interface {
	List(ctx context.Context, f Filter) ([]Entry, int, error)
}

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository returns a Postgres-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

func (r *pgRepository) List(ctx context.Context, f Filter) ([]Entry, int, error) {
	where := `WHERE TRUE`
	var args []any
	if f.Entity != "" {
		args = append(args, f.Entity)
		where += fmt.Sprintf(" AND entity=$%d", len(args))
	}
	if f.ActorID != 0 {
		args = append(args, f.ActorID)
		where += fmt.Sprintf(" AND actor_id=$%d", len(args))
	}
	if !f.Since.IsZero() {
		args = append(args, f.Since)
		where += fmt.Sprintf(" AND occurred_at >= $%d", len(args))
	}
	if !f.Until.IsZero() {
		args = append(args, f.Until)
		where += fmt.Sprintf(" AND occurred_at <= $%d", len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM audit_logs `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page := shared.NewPagination(f.Page, f.PerPage, total)
	args = append(args, page.PerPage, (page.Page-1)*page.PerPage)
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`SELECT id, actor_id, action, entity, entity_id, meta, occurred_at
FROM audit_logs %s ORDER BY occurred_at DESC LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var meta []byte
		if err := rows.Scan(&e.ID, &e.ActorID, &e.Action, &e.Entity, &e.EntityID, &meta, &e.OccurredAt); err != nil {
			return nil, 0, err
		}
		if len(meta) > 0 {
			_ = json.Unmarshal(meta, &e.Meta)
		}
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}
