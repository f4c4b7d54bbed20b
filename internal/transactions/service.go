package transactions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fin-control/fin-control/internal/shared"
	"github.com/fin-control/fin-control/internal/stats"
)

// BalanceQueue hands signed-balance work to the stats aggregator. The
// worker-side job computes the delta from the two snapshots, so a lost
// "after" write cannot double-apply.
type BalanceQueue interface {
	EnqueueDelta(ctx context.Context, companyID uuid.UUID, before, after *stats.TxSnapshot) error
}

// Service orchestrates transaction lifecycle and balance delta dispatch.
type Service struct {
	repo    Repository
	balance BalanceQueue
	audit   *shared.AuditLogger
	logger  *slog.Logger
}

// NewService constructs a Service.
func NewService(repo Repository, balance BalanceQueue, audit *shared.AuditLogger, logger *slog.Logger) *Service {
	return &Service{repo: repo, balance: balance, audit: audit, logger: logger}
}

// Get fetches a transaction scoped to a company.
func (s *Service) Get(ctx context.Context, companyID, id uuid.UUID) (*Transaction, error) {
	return s.repo.Get(ctx, companyID, id)
}

// List returns transactions matching the filter.
func (s *Service) List(ctx context.Context, companyID uuid.UUID, f ListFilter) ([]Transaction, shared.Pagination, error) {
	list, total, err := s.repo.List(ctx, companyID, f)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return list, shared.NewPagination(f.Page, f.PerPage, total), nil
}

// Create inserts a new draft transaction.
func (s *Service) Create(ctx context.Context, actorID int64, t *Transaction) (*Transaction, error) {
	t.Description = strings.TrimSpace(t.Description)
	if t.Description == "" {
		return nil, errors.New("transactions: description required")
	}
	if !t.Type.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidType, t.Type)
	}
	if !t.Amount.IsPositive() {
		return nil, errors.New("transactions: amount must be positive")
	}
	allocations, err := ValidateAllocations(t.EffectiveAmount(), t.Allocations)
	if err != nil {
		return nil, err
	}
	t.ID = uuid.New()
	t.Status = StatusDraft
	t.Allocations = allocations
	t.CreatedBy = actorID
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}
	s.recordAudit(ctx, actorID, "transaction.create", t.ID, map[string]any{
		"type":   string(t.Type),
		"amount": t.Amount.String(),
	})
	return t, nil
}

// Update rewrites the editable fields of a draft transaction.
func (s *Service) Update(ctx context.Context, actorID int64, t *Transaction) (*Transaction, error) {
	current, err := s.repo.Get(ctx, t.CompanyID, t.ID)
	if err != nil {
		return nil, err
	}
	if current.Status != StatusDraft {
		return nil, ErrNotEditable
	}
	if !t.Amount.IsPositive() {
		return nil, errors.New("transactions: amount must be positive")
	}
	allocations, err := ValidateAllocations(t.EffectiveAmount(), t.Allocations)
	if err != nil {
		return nil, err
	}
	t.Type = current.Type
	t.Status = current.Status
	t.Allocations = allocations
	if err := s.repo.Update(ctx, t); err != nil {
		return nil, err
	}
	s.recordAudit(ctx, actorID, "transaction.update", t.ID, nil)
	return t, nil
}

// Submit moves a draft into the approval queue.
func (s *Service) Submit(ctx context.Context, actorID int64, companyID, id uuid.UUID) error {
	return s.transition(ctx, actorID, companyID, id, StatusDraft, StatusPendingApproval, "transaction.submit", nil)
}

// Approve marks a pending transaction approved.
func (s *Service) Approve(ctx context.Context, actorID int64, companyID, id uuid.UUID) error {
	return s.transition(ctx, actorID, companyID, id, StatusPendingApproval, StatusApproved, "transaction.approve", nil)
}

// Reject marks a pending transaction rejected.
func (s *Service) Reject(ctx context.Context, actorID int64, companyID, id uuid.UUID) error {
	return s.transition(ctx, actorID, companyID, id, StatusPendingApproval, StatusRejected, "transaction.reject", nil)
}

// MarkPaid settles an approved transaction and dispatches the balance delta.
func (s *Service) MarkPaid(ctx context.Context, actorID int64, companyID, id uuid.UUID, paymentDate time.Time) error {
	if paymentDate.IsZero() {
		paymentDate = time.Now()
	}
	return s.transition(ctx, actorID, companyID, id, StatusApproved, StatusPaid, "transaction.pay", &paymentDate)
}

// Delete removes a transaction. Paid transactions reverse their balance
// contribution on the way out.
func (s *Service) Delete(ctx context.Context, actorID int64, companyID, id uuid.UUID) error {
	current, err := s.repo.Get(ctx, companyID, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, companyID, id); err != nil {
		return err
	}
	s.enqueueDelta(ctx, companyID, current.Snapshot(), nil)
	s.recordAudit(ctx, actorID, "transaction.delete", id, nil)
	return nil
}

func (s *Service) transition(ctx context.Context, actorID int64, companyID, id uuid.UUID, from, to Status, action string, paymentDate *time.Time) error {
	before, err := s.repo.Get(ctx, companyID, id)
	if err != nil {
		return err
	}
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	if err := s.repo.UpdateStatus(ctx, companyID, id, from, to, paymentDate); err != nil {
		return err
	}
	after := *before
	after.Status = to
	if paymentDate != nil {
		after.PaymentDate = paymentDate
	}
	s.enqueueDelta(ctx, companyID, before.Snapshot(), after.Snapshot())
	s.recordAudit(ctx, actorID, action, id, map[string]any{"from": string(from), "to": string(to)})
	return nil
}

func (s *Service) enqueueDelta(ctx context.Context, companyID uuid.UUID, before, after *stats.TxSnapshot) {
	if s.balance == nil {
		return
	}
	if stats.DeltaBetween(before, after).IsZero() {
		return
	}
	if err := s.balance.EnqueueDelta(ctx, companyID, before, after); err != nil {
		// asynq retries failed handlers, but a failed enqueue has nothing
		// on the queue yet. Surface it loudly.
		s.logger.Error("enqueue balance delta",
			slog.String("company_id", companyID.String()), slog.Any("error", err))
	}
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, id uuid.UUID, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "transaction",
		EntityID: id.String(),
		Meta:     meta,
	})
}
