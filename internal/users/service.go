package users

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/fin-control/fin-control/internal/rbac"
	"github.com/fin-control/fin-control/internal/shared"
)

// ErrInvalidRole indicates a role outside the closed set.
var ErrInvalidRole = errors.New("users: invalid role")

// Service orchestrates user management.
type Service struct {
	repo  Repository
	audit *shared.AuditLogger
}

// NewService constructs a Service.
func NewService(repo Repository, audit *shared.AuditLogger) *Service {
	return &Service{repo: repo, audit: audit}
}

// RolesFor implements rbac.RoleSource.
func (s *Service) RolesFor(ctx context.Context, userID int64) (rbac.Role, rbac.CompanyRoles, error) {
	profile, err := s.repo.Get(ctx, userID)
	if err != nil {
		return rbac.RoleNone, nil, err
	}
	return profile.Role, profile.CompanyRoles, nil
}

// Get fetches a profile by id.
func (s *Service) Get(ctx context.Context, id int64) (*Profile, error) {
	return s.repo.Get(ctx, id)
}

// List returns profiles ordered by name.
func (s *Service) List(ctx context.Context, limit, offset int) ([]Profile, error) {
	return s.repo.List(ctx, limit, offset)
}

// Create inserts a new user with a hashed password.
func (s *Service) Create(ctx context.Context, actorID int64, p *Profile, passwordHash string) (*Profile, error) {
	p.Email = strings.TrimSpace(strings.ToLower(p.Email))
	if p.Email == "" {
		return nil, errors.New("users: email required")
	}
	if !p.Role.Valid() || p.Role == rbac.RoleNone {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRole, p.Role)
	}
	id, err := s.repo.Create(ctx, p, passwordHash)
	if err != nil {
		return nil, err
	}
	p.ID = id
	s.recordAudit(ctx, actorID, "user.create", id, map[string]any{"email": p.Email, "role": string(p.Role)})
	return p, nil
}

// Update changes name and global role.
func (s *Service) Update(ctx context.Context, actorID int64, p *Profile) error {
	if !p.Role.Valid() || p.Role == rbac.RoleNone {
		return fmt.Errorf("%w: %s", ErrInvalidRole, p.Role)
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "user.update", p.ID, map[string]any{"role": string(p.Role)})
	return nil
}

// SetActive toggles account activation.
func (s *Service) SetActive(ctx context.Context, actorID, id int64, active bool) error {
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "user.set_active", id, map[string]any{"active": active})
	return nil
}

// AssignCompanyRole grants a per-company role.
func (s *Service) AssignCompanyRole(ctx context.Context, actorID, userID int64, companyID uuid.UUID, role rbac.Role) error {
	if !role.Valid() || role == rbac.RoleNone || role == rbac.RoleAdmin {
		return fmt.Errorf("%w: %s", ErrInvalidRole, role)
	}
	if companyID == uuid.Nil {
		return errors.New("users: company id required")
	}
	if err := s.repo.SetCompanyRole(ctx, userID, companyID, role); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "user.assign_company_role", userID, map[string]any{
		"company_id": companyID.String(),
		"role":       string(role),
	})
	return nil
}

// RevokeCompanyRole removes a per-company role.
func (s *Service) RevokeCompanyRole(ctx context.Context, actorID, userID int64, companyID uuid.UUID) error {
	if err := s.repo.RemoveCompanyRole(ctx, userID, companyID); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "user.revoke_company_role", userID, map[string]any{
		"company_id": companyID.String(),
	})
	return nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, userID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "user",
		EntityID: strconv.FormatInt(userID, 10),
		Meta:     meta,
	})
}
