// Package transactions manages payables and receivables, the core financial
// records of a company. Paying a transaction is what moves the company
// balance; the delta is handed to the stats aggregator through a queue.
package transactions

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fin-control/fin-control/internal/stats"
)

// Type distinguishes money going out from money coming in.
type Type string

const (
	TypePayable    Type = "payable"
	TypeReceivable Type = "receivable"
)

// Valid reports whether the type is known.
func (t Type) Valid() bool {
	return t == TypePayable || t == TypeReceivable
}

// Status is the lifecycle state of a transaction.
type Status string

const (
	StatusDraft           Status = "draft"
	StatusPendingApproval Status = "pending_approval"
	StatusApproved        Status = "approved"
	StatusPaid            Status = "paid"
	StatusRejected        Status = "rejected"
)

// transitions lists the allowed status changes.
var transitions = map[Status][]Status{
	StatusDraft:           {StatusPendingApproval},
	StatusPendingApproval: {StatusApproved, StatusRejected},
	StatusApproved:        {StatusPaid},
}

// CanTransition reports whether from → to is a legal move.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Allocation assigns a slice of a transaction to a cost center. Percentages
// across a transaction's allocations must sum to exactly 100.
type Allocation struct {
	CostCenterID uuid.UUID
	Percentage   decimal.Decimal
	Amount       decimal.Decimal
}

// Transaction is a payable or receivable.
type Transaction struct {
	ID          uuid.UUID
	CompanyID   uuid.UUID
	EntityID    uuid.UUID
	Type        Type
	Description string
	Amount      decimal.Decimal
	// FinalAmount, when positive, overrides Amount (negotiated value).
	FinalAmount decimal.Decimal
	Status      Status
	DueDate     time.Time
	PaymentDate *time.Time
	Allocations []Allocation
	CreatedBy   int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// EffectiveAmount returns FinalAmount when set, otherwise Amount.
func (t *Transaction) EffectiveAmount() decimal.Decimal {
	if t.FinalAmount.IsPositive() {
		return t.FinalAmount
	}
	return t.Amount
}

// Snapshot captures the fields the balance aggregator needs. Nil receiver
// stands for an absent transaction.
func (t *Transaction) Snapshot() *stats.TxSnapshot {
	if t == nil {
		return nil
	}
	return &stats.TxSnapshot{
		Type:   string(t.Type),
		Status: string(t.Status),
		Amount: t.EffectiveAmount(),
	}
}

var (
	// ErrInvalidType indicates an unknown transaction type.
	ErrInvalidType = errors.New("transactions: invalid type")
	// ErrInvalidTransition indicates a disallowed status change.
	ErrInvalidTransition = errors.New("transactions: invalid status transition")
	// ErrAllocationSum indicates allocation percentages not summing to 100.
	ErrAllocationSum = errors.New("transactions: allocation percentages must sum to 100")
	// ErrNotEditable indicates a write against a transaction past draft.
	ErrNotEditable = errors.New("transactions: only draft transactions can be edited")
)

var hundred = decimal.NewFromInt(100)

// ValidateAllocations checks percentage totals and recomputes per-line
// amounts from the transaction amount.
func ValidateAllocations(amount decimal.Decimal, allocations []Allocation) ([]Allocation, error) {
	if len(allocations) == 0 {
		return nil, nil
	}
	sum := decimal.Zero
	out := make([]Allocation, len(allocations))
	for i, a := range allocations {
		if a.CostCenterID == uuid.Nil {
			return nil, errors.New("transactions: allocation cost center required")
		}
		if !a.Percentage.IsPositive() {
			return nil, errors.New("transactions: allocation percentage must be positive")
		}
		sum = sum.Add(a.Percentage)
		a.Amount = amount.Mul(a.Percentage).Div(hundred).Round(2)
		out[i] = a
	}
	if !sum.Equal(hundred) {
		return nil, ErrAllocationSum
	}
	return out, nil
}
