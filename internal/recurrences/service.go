package recurrences

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/fin-control/fin-control/internal/notifications"
	"github.com/fin-control/fin-control/internal/shared"
)

// MailQueue enqueues outgoing mail for asynchronous delivery.
type MailQueue interface {
	EnqueueMail(ctx context.Context, msg notifications.Message) error
}

// Service manages templates and runs the materialization pass.
type Service struct {
	repo   Repository
	audit  *shared.AuditLogger
	mail   MailQueue
	logger *slog.Logger
}

// NewService constructs a Service. mail may be nil when due-date
// reminders are not wanted.
func NewService(repo Repository, audit *shared.AuditLogger, mail MailQueue, logger *slog.Logger) *Service {
	return &Service{repo: repo, audit: audit, mail: mail, logger: logger}
}

// Get fetches a template.
func (s *Service) Get(ctx context.Context, companyID, id uuid.UUID) (*Template, error) {
	return s.repo.Get(ctx, companyID, id)
}

// List returns templates for a company.
func (s *Service) List(ctx context.Context, companyID uuid.UUID, onlyActive bool) ([]Template, error) {
	return s.repo.List(ctx, companyID, onlyActive)
}

// Create registers a template.
func (s *Service) Create(ctx context.Context, actorID int64, t *Template) (*Template, error) {
	t.Description = strings.TrimSpace(t.Description)
	if t.Description == "" {
		return nil, errors.New("recurrences: description required")
	}
	if !t.Frequency.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidFrequency, t.Frequency)
	}
	if t.Interval < 1 {
		return nil, ErrInvalidInterval
	}
	if !t.Amount.IsPositive() {
		return nil, errors.New("recurrences: amount must be positive")
	}
	if t.NextDueDate.IsZero() {
		return nil, errors.New("recurrences: next due date required")
	}
	t.ID = uuid.New()
	t.Active = true
	t.CreatedBy = actorID
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}
	s.recordAudit(ctx, actorID, "recurrence.create", t.ID, map[string]any{
		"frequency": string(t.Frequency),
		"interval":  t.Interval,
	})
	return t, nil
}

// Update rewrites template fields.
func (s *Service) Update(ctx context.Context, actorID int64, t *Template) error {
	if !t.Frequency.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidFrequency, t.Frequency)
	}
	if t.Interval < 1 {
		return ErrInvalidInterval
	}
	if err := s.repo.Update(ctx, t); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "recurrence.update", t.ID, nil)
	return nil
}

// SetActive pauses or resumes a template.
func (s *Service) SetActive(ctx context.Context, actorID int64, companyID, id uuid.UUID, active bool) error {
	if err := s.repo.SetActive(ctx, companyID, id, active); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "recurrence.set_active", id, map[string]any{"active": active})
	return nil
}

// Delete removes a template and its occurrence history.
func (s *Service) Delete(ctx context.Context, actorID int64, companyID, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, companyID, id); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "recurrence.delete", id, nil)
	return nil
}

// ProcessDue runs one materialization pass: each due template creates at
// most one transaction dated at its current NextDueDate and advances the
// date by one step. Templates several periods behind catch up one period
// per pass. Returns the number of transactions created.
func (s *Service) ProcessDue(ctx context.Context, asOf time.Time) (int, error) {
	due, err := s.repo.DueTemplates(ctx, asOf)
	if err != nil {
		return 0, err
	}

	created := make(chan struct{}, len(due))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i := range due {
		t := due[i]
		g.Go(func() error {
			next := NextAfter(t.NextDueDate, t.Frequency, t.Interval)
			inserted, err := s.repo.Materialize(ctx, &t, uuid.New(), next)
			if err != nil {
				return fmt.Errorf("template %s: %w", t.ID, err)
			}
			if inserted {
				created <- struct{}{}
				s.logger.Info("recurrence materialized",
					slog.String("template_id", t.ID.String()),
					slog.Time("due_date", t.NextDueDate),
					slog.Time("next_due_date", next))
				s.notifyDue(ctx, &t)
			}
			return nil
		})
	}
	err = g.Wait()
	close(created)
	return len(created), err
}

// notifyDue mails the cost center approver about a freshly materialized
// transaction awaiting approval. Best effort.
func (s *Service) notifyDue(ctx context.Context, t *Template) {
	if s.mail == nil || t.CostCenterID == uuid.Nil {
		return
	}
	email, err := s.repo.ApproverEmail(ctx, t.CompanyID, t.CostCenterID)
	if err != nil || email == "" {
		return
	}
	err = s.mail.EnqueueMail(ctx, notifications.Message{
		Type: notifications.MailTransactionDue,
		To:   email,
		Data: map[string]any{
			"description": t.Description,
			"amount":      t.Amount.String(),
			"due_date":    t.NextDueDate.Format("02/01/2006"),
		},
	})
	if err != nil {
		s.logger.Warn("enqueue due reminder", slog.Any("error", err))
	}
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, id uuid.UUID, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "recurring_template",
		EntityID: id.String(),
		Meta:     meta,
	})
}
