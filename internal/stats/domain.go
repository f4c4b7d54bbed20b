// Package stats maintains the running balance per company. The balance is
// mutated only here, through signed deltas derived from transaction writes.
package stats

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CompanyStats is the single counter kept per company.
type CompanyStats struct {
	CompanyID      uuid.UUID
	CurrentBalance decimal.Decimal
	UpdatedAt      time.Time
}

// TxSnapshot is the minimal view of a transaction needed for delta math.
// A nil snapshot stands for "transaction absent" (before create / after delete).
type TxSnapshot struct {
	Type   string // "payable" or "receivable"
	Status string
	Amount decimal.Decimal
}

// Signed returns the transaction's contribution to the company balance:
// +amount for a paid receivable, -amount for a paid payable, zero for any
// non-paid status or absent snapshot.
func Signed(s *TxSnapshot) decimal.Decimal {
	if s == nil || s.Status != "paid" {
		return decimal.Zero
	}
	switch s.Type {
	case "receivable":
		return s.Amount
	case "payable":
		return s.Amount.Neg()
	}
	return decimal.Zero
}

// DeltaBetween computes the balance adjustment for a transaction write.
func DeltaBetween(before, after *TxSnapshot) decimal.Decimal {
	return Signed(after).Sub(Signed(before))
}
