package batches

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fin-control/fin-control/internal/notifications"
	"github.com/fin-control/fin-control/internal/shared"
	"github.com/fin-control/fin-control/internal/stats"
	"github.com/fin-control/fin-control/internal/transactions"
)

// MailQueue enqueues outbound mail through the job worker.
type MailQueue interface {
	EnqueueMail(ctx context.Context, msg notifications.Message) error
}

// Service drives the batch authorization workflow.
type Service struct {
	repo      Repository
	approvals *shared.ApprovalRecorder
	audit     *shared.AuditLogger
	mail      MailQueue
	balance   transactions.BalanceQueue
	idem      *shared.IdempotencyStore
	logger    *slog.Logger
	tokenTTL  time.Duration
	baseURL   string
}

// NewService constructs a Service. tokenTTL bounds the life of public
// authorization links; baseURL prefixes the links put into email.
func NewService(repo Repository, approvals *shared.ApprovalRecorder, audit *shared.AuditLogger,
	mail MailQueue, balance transactions.BalanceQueue, idem *shared.IdempotencyStore,
	logger *slog.Logger, tokenTTL time.Duration, baseURL string) *Service {
	return &Service{
		repo:      repo,
		approvals: approvals,
		audit:     audit,
		mail:      mail,
		balance:   balance,
		idem:      idem,
		logger:    logger,
		tokenTTL:  tokenTTL,
		baseURL:   baseURL,
	}
}

// Get fetches a batch.
func (s *Service) Get(ctx context.Context, companyID, id uuid.UUID) (*Batch, error) {
	return s.repo.Get(ctx, companyID, id)
}

// List returns batches, optionally filtered by status.
func (s *Service) List(ctx context.Context, companyID uuid.UUID, status Status) ([]Batch, error) {
	return s.repo.List(ctx, companyID, status)
}

// History returns the approval trail of a batch.
func (s *Service) History(ctx context.Context, companyID, id uuid.UUID) ([]shared.ApprovalLog, error) {
	if _, err := s.repo.Get(ctx, companyID, id); err != nil {
		return nil, err
	}
	return s.approvals.List(ctx, "batches", id)
}

// CreateIdempotent is Create guarded by an optional Idempotency-Key:
// a repeated key returns shared.ErrIdempotencyConflict instead of a
// second draft batch.
func (s *Service) CreateIdempotent(ctx context.Context, actorID int64, companyID uuid.UUID, transactionIDs []uuid.UUID, key string) (*Batch, error) {
	if key != "" && s.idem != nil {
		if err := s.idem.CheckAndInsert(ctx, key, "payment_batches"); err != nil {
			return nil, err
		}
	}
	return s.Create(ctx, actorID, companyID, transactionIDs)
}

// Create groups approved payables into a draft batch. Each line snapshots
// the transaction's effective amount at this moment.
func (s *Service) Create(ctx context.Context, actorID int64, companyID uuid.UUID, transactionIDs []uuid.UUID) (*Batch, error) {
	if len(transactionIDs) == 0 {
		return nil, ErrEmptyBatch
	}
	items, err := s.repo.EligibleTransactions(ctx, companyID, transactionIDs)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrEmptyBatch
	}
	for i := range items {
		items[i].ID = uuid.New()
	}
	b := &Batch{
		ID:        uuid.New(),
		CompanyID: companyID,
		Status:    StatusDraft,
		Total:     ComputeTotal(items),
		Items:     items,
		CreatedBy: actorID,
	}
	if err := s.repo.Create(ctx, b); err != nil {
		return nil, err
	}
	s.recordAudit(ctx, actorID, "batch.create", b.ID, map[string]any{
		"total": b.Total.String(),
		"items": len(b.Items),
	})
	return b, nil
}

// SendForApproval moves a draft into the approval queue and mails the
// cost-center approvers.
func (s *Service) SendForApproval(ctx context.Context, actorID int64, companyID, id uuid.UUID) error {
	if err := s.repo.UpdateStatus(ctx, companyID, id, StatusDraft, StatusPendingApproval, ""); err != nil {
		return err
	}
	s.recordApproval(ctx, actorID, id, shared.ApprovalSubmit, "")
	s.recordAudit(ctx, actorID, "batch.submit", id, nil)

	b, err := s.repo.Get(ctx, companyID, id)
	if err != nil {
		return err
	}
	emails, err := s.repo.ApproverEmails(ctx, id)
	if err != nil {
		s.logger.Error("approver lookup", slog.String("batch_id", id.String()), slog.Any("error", err))
		return nil
	}
	for _, to := range emails {
		s.enqueueMail(ctx, notifications.Message{
			Type: notifications.MailBatchApprovalRequest,
			To:   to,
			Data: map[string]any{
				"batch_id": b.ID.String(),
				"total":    b.Total.String(),
				"items":    len(b.Items),
			},
		})
	}
	return nil
}

// Adjustment overrides one line's amount during approval.
type Adjustment struct {
	ItemID uuid.UUID
	Amount decimal.Decimal
}

// Rejection drops one line from the batch during approval.
type Rejection struct {
	ItemID uuid.UUID
	Reason string
}

// Approve applies the approver's decision: optional per-line adjustments
// and rejections, a recomputed total, and a fresh authorization token
// mailed to the releasers as a public link.
func (s *Service) Approve(ctx context.Context, actorID int64, companyID, id uuid.UUID,
	adjustments []Adjustment, rejections []Rejection, comment string) (*Batch, error) {
	b, err := s.repo.Get(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if b.Status != StatusPendingApproval {
		return nil, ErrInvalidStatus
	}

	byID := make(map[uuid.UUID]*Item, len(b.Items))
	for i := range b.Items {
		byID[b.Items[i].ID] = &b.Items[i]
	}
	for _, adj := range adjustments {
		it, ok := byID[adj.ItemID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownItem, adj.ItemID)
		}
		if !adj.Amount.IsPositive() {
			return nil, fmt.Errorf("batches: adjusted amount must be positive")
		}
		amount := adj.Amount
		it.AdjustedAmount = &amount
	}
	for _, rej := range rejections {
		it, ok := byID[rej.ItemID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownItem, rej.ItemID)
		}
		it.Rejected = true
		it.RejectReason = rej.Reason
	}

	b.Total = ComputeTotal(b.Items)
	if b.Total.IsZero() {
		return nil, ErrAllRejected
	}
	token, err := NewToken()
	if err != nil {
		return nil, err
	}
	b.Token = token
	b.TokenExpiresAt = time.Now().Add(s.tokenTTL)
	b.Comment = comment
	if err := s.repo.ApplyApproval(ctx, b); err != nil {
		return nil, err
	}
	b.Status = StatusPendingAuthorization

	s.recordApproval(ctx, actorID, id, shared.ApprovalApprove, comment)
	s.recordAudit(ctx, actorID, "batch.approve", id, map[string]any{
		"total":       b.Total.String(),
		"adjustments": len(adjustments),
		"rejections":  len(rejections),
	})

	emails, err := s.repo.ReleaserEmails(ctx, id)
	if err != nil {
		s.logger.Error("releaser lookup", slog.String("batch_id", id.String()), slog.Any("error", err))
		return b, nil
	}
	link := s.baseURL + "/authorize-batch/" + b.Token
	for _, to := range emails {
		s.enqueueMail(ctx, notifications.Message{
			Type: notifications.MailBatchStatusUpdate,
			To:   to,
			Data: map[string]any{
				"batch_id": b.ID.String(),
				"status":   string(b.Status),
				"total":    b.Total.String(),
				"link":     link,
			},
		})
	}
	return b, nil
}

// RejectApproval terminates the batch at the approval step.
func (s *Service) RejectApproval(ctx context.Context, actorID int64, companyID, id uuid.UUID, comment string) error {
	if err := s.repo.UpdateStatus(ctx, companyID, id, StatusPendingApproval, StatusRejectedApproval, comment); err != nil {
		return err
	}
	s.recordApproval(ctx, actorID, id, shared.ApprovalReject, comment)
	s.recordAudit(ctx, actorID, "batch.reject_approval", id, nil)
	return nil
}

// GetByToken serves the public authorization page. Unknown or expired
// tokens surface ErrInvalidToken.
func (s *Service) GetByToken(ctx context.Context, token string) (*Batch, error) {
	return s.repo.GetByToken(ctx, token)
}

// AuthorizeByToken is the releaser's one-shot confirm. The conditional
// update in the repository guarantees exactly one click wins.
func (s *Service) AuthorizeByToken(ctx context.Context, token string) (*Batch, error) {
	b, err := s.repo.AuthorizeByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	s.recordApproval(ctx, 0, b.ID, shared.ApprovalAuthorize, "via token link")
	s.recordAudit(ctx, 0, "batch.authorize", b.ID, nil)
	return b, nil
}

// RejectAuthorizationByToken lets the releaser refuse through the link.
func (s *Service) RejectAuthorizationByToken(ctx context.Context, token, reason string) (*Batch, error) {
	b, err := s.repo.RejectAuthorizationByToken(ctx, token, reason)
	if err != nil {
		return nil, err
	}
	s.recordApproval(ctx, 0, b.ID, shared.ApprovalReject, reason)
	s.recordAudit(ctx, 0, "batch.reject_authorization", b.ID, nil)
	return b, nil
}

// RejectAuthorization is the in-app variant of the releaser refusal.
func (s *Service) RejectAuthorization(ctx context.Context, actorID int64, companyID, id uuid.UUID, comment string) error {
	if err := s.repo.UpdateStatus(ctx, companyID, id, StatusPendingAuthorization, StatusRejectedAuthorization, comment); err != nil {
		return err
	}
	s.recordApproval(ctx, actorID, id, shared.ApprovalReject, comment)
	s.recordAudit(ctx, actorID, "batch.reject_authorization", id, nil)
	return nil
}

// Execute settles an authorized batch: surviving payables become paid and
// their balance deltas go to the stats aggregator.
func (s *Service) Execute(ctx context.Context, actorID int64, companyID, id uuid.UUID, paymentDate time.Time) error {
	if paymentDate.IsZero() {
		paymentDate = time.Now()
	}
	lines, err := s.repo.Execute(ctx, companyID, id, paymentDate)
	if err != nil {
		return err
	}
	for _, line := range lines {
		before := &stats.TxSnapshot{Type: "payable", Status: "approved", Amount: line.Amount}
		after := &stats.TxSnapshot{Type: "payable", Status: "paid", Amount: line.Amount}
		if err := s.balance.EnqueueDelta(ctx, companyID, before, after); err != nil {
			s.logger.Error("enqueue balance delta",
				slog.String("transaction_id", line.TransactionID.String()), slog.Any("error", err))
		}
	}
	s.recordApproval(ctx, actorID, id, shared.ApprovalExecute, "")
	s.recordAudit(ctx, actorID, "batch.execute", id, map[string]any{"paid": len(lines)})
	return nil
}

func (s *Service) enqueueMail(ctx context.Context, msg notifications.Message) {
	if s.mail == nil {
		return
	}
	if err := s.mail.EnqueueMail(ctx, msg); err != nil {
		s.logger.Error("enqueue mail", slog.String("type", msg.Type), slog.Any("error", err))
	}
}

func (s *Service) recordApproval(ctx context.Context, actorID int64, id uuid.UUID, action shared.ApprovalAction, note string) {
	if s.approvals == nil {
		return
	}
	_ = s.approvals.Record(ctx, shared.ApprovalLog{
		Module:  "batches",
		RefID:   id,
		ActorID: actorID,
		Action:  action,
		Note:    note,
	})
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, id uuid.UUID, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "payment_batch",
		EntityID: id.String(),
		Meta:     meta,
	})
}
