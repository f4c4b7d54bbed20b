package companies

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/fin-control/fin-control/internal/shared"
)

// Service orchestrates company management.
type Service struct {
	repo  Repository
	audit *shared.AuditLogger
}

// NewService constructs a Service.
func NewService(repo Repository, audit *shared.AuditLogger) *Service {
	return &Service{repo: repo, audit: audit}
}

// Get fetches a company by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Company, error) {
	return s.repo.Get(ctx, id)
}

// ListForUser returns the companies the user belongs to; admins see all.
func (s *Service) ListForUser(ctx context.Context, userID int64, isAdmin bool) ([]Company, error) {
	return s.repo.ListForUser(ctx, userID, isAdmin)
}

// Create inserts a new company.
func (s *Service) Create(ctx context.Context, actorID int64, name, taxID string) (*Company, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("companies: name required")
	}
	c := &Company{ID: uuid.New(), Name: name, TaxID: strings.TrimSpace(taxID)}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	s.recordAudit(ctx, actorID, "company.create", c.ID, map[string]any{"name": name})
	return c, nil
}

// Update changes name and tax id.
func (s *Service) Update(ctx context.Context, actorID int64, c *Company) error {
	if strings.TrimSpace(c.Name) == "" {
		return errors.New("companies: name required")
	}
	if err := s.repo.Update(ctx, c); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "company.update", c.ID, nil)
	return nil
}

// Delete removes a company.
func (s *Service) Delete(ctx context.Context, actorID int64, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "company.delete", id, nil)
	return nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, id uuid.UUID, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "company",
		EntityID: id.String(),
		Meta:     meta,
	})
}
