package entities

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/fin-control/fin-control/internal/shared"
)

// ErrInvalidKind indicates an unknown counterparty kind.
var ErrInvalidKind = errors.New("entities: invalid kind")

// Service orchestrates counterparty management.
type Service struct {
	repo  Repository
	audit *shared.AuditLogger
}

// NewService constructs a Service.
func NewService(repo Repository, audit *shared.AuditLogger) *Service {
	return &Service{repo: repo, audit: audit}
}

// Get fetches an entity scoped to a company.
func (s *Service) Get(ctx context.Context, companyID, id uuid.UUID) (*Entity, error) {
	return s.repo.Get(ctx, companyID, id)
}

// List returns entities for a company, optionally filtered by kind.
func (s *Service) List(ctx context.Context, companyID uuid.UUID, kind Kind) ([]Entity, error) {
	if kind != "" && !kind.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidKind, kind)
	}
	return s.repo.List(ctx, companyID, kind)
}

// Create inserts a new entity.
func (s *Service) Create(ctx context.Context, actorID int64, e *Entity) (*Entity, error) {
	e.Name = strings.TrimSpace(e.Name)
	if e.Name == "" {
		return nil, errors.New("entities: name required")
	}
	if !e.Kind.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidKind, e.Kind)
	}
	e.ID = uuid.New()
	if err := s.repo.Create(ctx, e); err != nil {
		return nil, err
	}
	s.recordAudit(ctx, actorID, "entity.create", e.ID, map[string]any{"name": e.Name, "kind": string(e.Kind)})
	return e, nil
}

// Update changes entity fields.
func (s *Service) Update(ctx context.Context, actorID int64, e *Entity) error {
	if !e.Kind.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidKind, e.Kind)
	}
	if err := s.repo.Update(ctx, e); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "entity.update", e.ID, nil)
	return nil
}

// Delete removes an entity.
func (s *Service) Delete(ctx context.Context, actorID int64, companyID, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, companyID, id); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "entity.delete", id, nil)
	return nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, id uuid.UUID, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "entity",
		EntityID: id.String(),
		Meta:     meta,
	})
}
