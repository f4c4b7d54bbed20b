package costcenters

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fin-control/fin-control/internal/shared"
)

// Service orchestrates cost center management and the budget rollup.
type Service struct {
	repo  Repository
	audit *shared.AuditLogger
}

// NewService constructs a Service.
func NewService(repo Repository, audit *shared.AuditLogger) *Service {
	return &Service{repo: repo, audit: audit}
}

// Get fetches a cost center.
func (s *Service) Get(ctx context.Context, companyID, id uuid.UUID) (*CostCenter, error) {
	return s.repo.Get(ctx, companyID, id)
}

// List returns cost centers, optionally filtered by budget year.
func (s *Service) List(ctx context.Context, companyID uuid.UUID, budgetYear int) ([]CostCenter, error) {
	return s.repo.List(ctx, companyID, budgetYear)
}

// Create inserts a new cost center after validating the parent link.
func (s *Service) Create(ctx context.Context, actorID int64, c *CostCenter) (*CostCenter, error) {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return nil, errors.New("costcenters: name required")
	}
	if c.Budget.IsNegative() {
		return nil, errors.New("costcenters: budget cannot be negative")
	}
	if c.ParentID != uuid.Nil {
		if _, err := s.repo.Get(ctx, c.CompanyID, c.ParentID); err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return nil, ErrParentNotFound
			}
			return nil, err
		}
	}
	c.ID = uuid.New()
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	s.recordAudit(ctx, actorID, "cost_center.create", c.ID, map[string]any{"name": c.Name, "budget": c.Budget.String()})
	return c, nil
}

// Update rewrites a cost center, refusing parent links that form a cycle.
func (s *Service) Update(ctx context.Context, actorID int64, c *CostCenter) error {
	if c.ParentID != uuid.Nil {
		all, err := s.repo.List(ctx, c.CompanyID, 0)
		if err != nil {
			return err
		}
		parents := make(map[uuid.UUID]uuid.UUID, len(all))
		found := false
		for _, cc := range all {
			parents[cc.ID] = cc.ParentID
			if cc.ID == c.ParentID {
				found = true
			}
		}
		if !found {
			return ErrParentNotFound
		}
		if WouldCycle(parents, c.ID, c.ParentID) {
			return ErrCyclicParent
		}
	}
	if err := s.repo.Update(ctx, c); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "cost_center.update", c.ID, nil)
	return nil
}

// Delete removes a leaf cost center.
func (s *Service) Delete(ctx context.Context, actorID int64, companyID, id uuid.UUID) error {
	hasChildren, err := s.repo.HasChildren(ctx, companyID, id)
	if err != nil {
		return err
	}
	if hasChildren {
		return ErrHasChildren
	}
	if err := s.repo.Delete(ctx, companyID, id); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "cost_center.delete", id, nil)
	return nil
}

// UsageReport lists every cost center for the year with its allocation
// totals and available balance.
func (s *Service) UsageReport(ctx context.Context, companyID uuid.UUID, budgetYear int) ([]Usage, error) {
	centers, err := s.repo.List(ctx, companyID, budgetYear)
	if err != nil {
		return nil, err
	}
	totals, err := s.repo.AllocationTotals(ctx, companyID)
	if err != nil {
		return nil, err
	}
	available := AvailableBalances(centers, totals)

	report := make([]Usage, 0, len(centers))
	for _, c := range centers {
		report = append(report, Usage{
			CostCenter: c,
			Totals:     totals[c.ID],
			Available:  available[c.ID],
		})
	}
	return report, nil
}

// Available computes the available balance of a single cost center. The
// whole hierarchy participates, children budgets subtract from the parent.
func (s *Service) Available(ctx context.Context, companyID, id uuid.UUID) (decimal.Decimal, error) {
	c, err := s.repo.Get(ctx, companyID, id)
	if err != nil {
		return decimal.Zero, err
	}
	centers, err := s.repo.List(ctx, companyID, 0)
	if err != nil {
		return decimal.Zero, err
	}
	totals, err := s.repo.AllocationTotals(ctx, companyID)
	if err != nil {
		return decimal.Zero, err
	}
	return AvailableBalances(centers, totals)[c.ID], nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, id uuid.UUID, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "cost_center",
		EntityID: id.String(),
		Meta:     meta,
	})
}
