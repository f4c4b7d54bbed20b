package stats

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// Service applies balance deltas and serves the current balance.
type Service struct {
	repo   Repository
	logger *slog.Logger
	group  singleflight.Group
}

// NewService constructs a Service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Apply computes the delta between two transaction snapshots and applies it.
// Zero deltas are skipped.
func (s *Service) Apply(ctx context.Context, companyID uuid.UUID, before, after *TxSnapshot) error {
	delta := DeltaBetween(before, after)
	if delta.IsZero() {
		return nil
	}
	if err := s.repo.ApplyDelta(ctx, companyID, delta); err != nil {
		s.logger.Error("apply balance delta",
			slog.String("company_id", companyID.String()),
			slog.String("delta", delta.String()),
			slog.Any("error", err))
		return err
	}
	return nil
}

// Balance returns the stored balance, zero when no stats row exists yet.
func (s *Service) Balance(ctx context.Context, companyID uuid.UUID) (decimal.Decimal, error) {
	stats, err := s.repo.Get(ctx, companyID)
	if err != nil {
		return decimal.Zero, err
	}
	return stats.CurrentBalance, nil
}

// Recalculate replaces the incremental balance with a full scan of paid
// transactions. Concurrent calls for the same company are collapsed.
func (s *Service) Recalculate(ctx context.Context, companyID uuid.UUID) (decimal.Decimal, error) {
	v, err, _ := s.group.Do(companyID.String(), func() (any, error) {
		return s.repo.RecomputeBalance(ctx, companyID)
	})
	if err != nil {
		return decimal.Zero, err
	}
	return v.(decimal.Decimal), nil
}
