package batches

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

// ExecutedLine reports one payable settled by Execute.
type ExecutedLine struct {
	TransactionID uuid.UUID
	Amount        decimal.Decimal
}

// Repository persists payment batches.
type Repository interface {
	Create(ctx context.Context, b *Batch) error
	Get(ctx context.Context, companyID, id uuid.UUID) (*Batch, error)
	GetByToken(ctx context.Context, token string) (*Batch, error)
	List(ctx context.Context, companyID uuid.UUID, status Status) ([]Batch, error)
	UpdateStatus(ctx context.Context, companyID, id uuid.UUID, from, to Status, comment string) error
	ApplyApproval(ctx context.Context, b *Batch) error
	AuthorizeByToken(ctx context.Context, token string) (*Batch, error)
	RejectAuthorizationByToken(ctx context.Context, token, reason string) (*Batch, error)
	Execute(ctx context.Context, companyID, id uuid.UUID, paymentDate time.Time) ([]ExecutedLine, error)
	ApproverEmails(ctx context.Context, batchID uuid.UUID) ([]string, error)
	ReleaserEmails(ctx context.Context, batchID uuid.UUID) ([]string, error)
	EligibleTransactions(ctx context.Context, companyID uuid.UUID, ids []uuid.UUID) ([]Item, error)
}

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository returns a Postgres-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

const batchColumns = `id, company_id, status, total::text, comment, COALESCE(token, ''),
COALESCE(token_expires_at, 'epoch'::timestamptz), created_by, created_at, updated_at`

// EligibleTransactions snapshots approved payables into batch items.
func (r *pgRepository) EligibleTransactions(ctx context.Context, companyID uuid.UUID, ids []uuid.UUID) ([]Item, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, description,
CASE WHEN final_amount > 0 THEN final_amount ELSE amount END::text
FROM transactions
WHERE company_id=$1 AND id = ANY($2) AND type='payable' AND status='approved'`,
		companyID, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		var amount string
		if err := rows.Scan(&it.TransactionID, &it.Description, &amount); err != nil {
			return nil, err
		}
		if it.OriginalAmount, err = decimal.NewFromString(amount); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *pgRepository) Create(ctx context.Context, b *Batch) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `INSERT INTO payment_batches
(id, company_id, status, total, comment, created_by, created_at, updated_at)
VALUES ($1, $2, $3, $4::numeric, $5, $6, NOW(), NOW())`,
			b.ID, b.CompanyID, string(b.Status), b.Total.String(), b.Comment, b.CreatedBy)
		if err != nil {
			return fmt.Errorf("insert batch: %w", err)
		}
		for i := range b.Items {
			it := &b.Items[i]
			if _, err := tx.Exec(ctx, `INSERT INTO payment_batch_items
(id, batch_id, transaction_id, description, original_amount)
VALUES ($1, $2, $3, $4, $5::numeric)`,
				it.ID, b.ID, it.TransactionID, it.Description, it.OriginalAmount.String()); err != nil {
				return fmt.Errorf("insert batch item: %w", err)
			}
		}
		return nil
	})
}

func (r *pgRepository) Get(ctx context.Context, companyID, id uuid.UUID) (*Batch, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+batchColumns+` FROM payment_batches WHERE company_id=$1 AND id=$2`, companyID, id)
	return r.scanWithItems(ctx, row)
}

func (r *pgRepository) GetByToken(ctx context.Context, token string) (*Batch, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	row := r.pool.QueryRow(ctx, `SELECT `+batchColumns+` FROM payment_batches
WHERE token=$1 AND token_expires_at > NOW()`, token)
	b, err := r.scanWithItems(ctx, row)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	return b, nil
}

func (r *pgRepository) List(ctx context.Context, companyID uuid.UUID, status Status) ([]Batch, error) {
	query := `SELECT ` + batchColumns + ` FROM payment_batches WHERE company_id=$1`
	args := []any{companyID}
	if status != "" {
		args = append(args, string(status))
		query += ` AND status=$2`
	}
	query += ` ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range list {
		if err := r.loadItems(ctx, &list[i]); err != nil {
			return nil, err
		}
	}
	return list, nil
}

func (r *pgRepository) UpdateStatus(ctx context.Context, companyID, id uuid.UUID, from, to Status, comment string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE payment_batches
SET status=$4, comment=CASE WHEN $5 <> '' THEN $5 ELSE comment END, updated_at=NOW()
WHERE company_id=$1 AND id=$2 AND status=$3`,
		companyID, id, string(from), string(to), comment)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidStatus
	}
	return nil
}

// ApplyApproval persists the approval outcome in one transaction:
// adjustments, line rejections, the recomputed total, the authorization
// token, and the move to pending_authorization. Conditional on the batch
// still being in pending_approval.
func (r *pgRepository) ApplyApproval(ctx context.Context, b *Batch) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE payment_batches
SET status=$3, total=$4::numeric, comment=$5, token=$6, token_expires_at=$7, updated_at=NOW()
WHERE company_id=$1 AND id=$2 AND status=$8`,
			b.CompanyID, b.ID, string(StatusPendingAuthorization), b.Total.String(),
			b.Comment, b.Token, b.TokenExpiresAt, string(StatusPendingApproval))
		if err != nil {
			return fmt.Errorf("approve batch: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrInvalidStatus
		}
		for i := range b.Items {
			it := &b.Items[i]
			var adjusted *string
			if it.AdjustedAmount != nil {
				s := it.AdjustedAmount.String()
				adjusted = &s
			}
			if _, err := tx.Exec(ctx, `UPDATE payment_batch_items
SET adjusted_amount=$2::numeric, rejected=$3, reject_reason=$4
WHERE id=$1`, it.ID, adjusted, it.Rejected, it.RejectReason); err != nil {
				return fmt.Errorf("update batch item: %w", err)
			}
		}
		return nil
	})
}

// AuthorizeByToken flips pending_authorization to authorized in a single
// conditional update, so two releasers clicking the same link cannot both
// win. Zero rows updated is then disambiguated: a live token on a batch in
// another state is a stale link, anything else is invalid.
func (r *pgRepository) AuthorizeByToken(ctx context.Context, token string) (*Batch, error) {
	return r.tokenTransition(ctx, token, StatusAuthorized, "")
}

func (r *pgRepository) RejectAuthorizationByToken(ctx context.Context, token, reason string) (*Batch, error) {
	return r.tokenTransition(ctx, token, StatusRejectedAuthorization, reason)
}

func (r *pgRepository) tokenTransition(ctx context.Context, token string, to Status, comment string) (*Batch, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	row := r.pool.QueryRow(ctx, `UPDATE payment_batches
SET status=$2, comment=CASE WHEN $3 <> '' THEN $3 ELSE comment END, updated_at=NOW()
WHERE token=$1 AND status=$4 AND token_expires_at > NOW()
RETURNING `+batchColumns,
		token, string(to), comment, string(StatusPendingAuthorization))
	b, err := scanBatch(row)
	if err == nil {
		if err := r.loadItems(ctx, b); err != nil {
			return nil, err
		}
		return b, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	var status string
	probe := r.pool.QueryRow(ctx, `SELECT status FROM payment_batches
WHERE token=$1 AND token_expires_at > NOW()`, token)
	if perr := probe.Scan(&status); perr != nil {
		if errors.Is(perr, pgx.ErrNoRows) {
			return nil, ErrInvalidToken
		}
		return nil, perr
	}
	return nil, ErrNotAwaiting
}

// Execute settles the batch: the status move and the payment of every
// surviving payable happen in one database transaction. Adjusted amounts
// are written through as the transaction's final amount.
func (r *pgRepository) Execute(ctx context.Context, companyID, id uuid.UUID, paymentDate time.Time) ([]ExecutedLine, error) {
	var lines []ExecutedLine
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE payment_batches SET status=$3, updated_at=NOW()
WHERE company_id=$1 AND id=$2 AND status=$4`,
			companyID, id, string(StatusExecuted), string(StatusAuthorized))
		if err != nil {
			return fmt.Errorf("execute batch: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrInvalidStatus
		}
		rows, err := tx.Query(ctx, `UPDATE transactions t
SET status='paid', payment_date=$2,
    final_amount=COALESCE(i.adjusted_amount, t.final_amount),
    updated_at=NOW()
FROM payment_batch_items i
WHERE i.batch_id=$1 AND NOT i.rejected AND t.id = i.transaction_id AND t.status='approved'
RETURNING t.id, COALESCE(i.adjusted_amount, i.original_amount)::text`,
			id, paymentDate)
		if err != nil {
			return fmt.Errorf("pay batch transactions: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var line ExecutedLine
			var amount string
			if err := rows.Scan(&line.TransactionID, &amount); err != nil {
				return err
			}
			if line.Amount, err = decimal.NewFromString(amount); err != nil {
				return err
			}
			lines = append(lines, line)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return lines, nil
}

// ApproverEmails collects the distinct approver addresses of the cost
// centers touched by the batch's transactions.
func (r *pgRepository) ApproverEmails(ctx context.Context, batchID uuid.UUID) ([]string, error) {
	return r.contactEmails(ctx, batchID, "approver_email")
}

// ReleaserEmails collects the distinct releaser addresses.
func (r *pgRepository) ReleaserEmails(ctx context.Context, batchID uuid.UUID) ([]string, error) {
	return r.contactEmails(ctx, batchID, "releaser_email")
}

func (r *pgRepository) contactEmails(ctx context.Context, batchID uuid.UUID, column string) ([]string, error) {
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`SELECT DISTINCT cc.%s
FROM payment_batch_items i
JOIN transaction_allocations ta ON ta.transaction_id = i.transaction_id
JOIN cost_centers cc ON cc.id = ta.cost_center_id
WHERE i.batch_id=$1 AND NOT i.rejected AND cc.%s <> ''`, column, column), batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var emails []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, err
		}
		emails = append(emails, email)
	}
	return emails, rows.Err()
}

func (r *pgRepository) scanWithItems(ctx context.Context, row pgx.Row) (*Batch, error) {
	b, err := scanBatch(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	if err := r.loadItems(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (r *pgRepository) loadItems(ctx context.Context, b *Batch) error {
	rows, err := r.pool.Query(ctx, `SELECT id, transaction_id, description,
original_amount::text, adjusted_amount::text, rejected, COALESCE(reject_reason, '')
FROM payment_batch_items WHERE batch_id=$1 ORDER BY description`, b.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var it Item
		var original string
		var adjusted *string
		if err := rows.Scan(&it.ID, &it.TransactionID, &it.Description,
			&original, &adjusted, &it.Rejected, &it.RejectReason); err != nil {
			return err
		}
		if it.OriginalAmount, err = decimal.NewFromString(original); err != nil {
			return err
		}
		if adjusted != nil {
			d, err := decimal.NewFromString(*adjusted)
			if err != nil {
				return err
			}
			it.AdjustedAmount = &d
		}
		it.BatchID = b.ID
		b.Items = append(b.Items, it)
	}
	return rows.Err()
}

func scanBatch(row pgx.Row) (*Batch, error) {
	var b Batch
	var status, total string
	if err := row.Scan(&b.ID, &b.CompanyID, &status, &total, &b.Comment,
		&b.Token, &b.TokenExpiresAt, &b.CreatedBy, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	b.Status = Status(status)
	var err error
	if b.Total, err = decimal.NewFromString(total); err != nil {
		return nil, err
	}
	return &b, nil
}
