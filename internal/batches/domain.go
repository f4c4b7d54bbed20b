// Package batches implements the payment batch authorization workflow:
// approved payables are grouped, sent through an in-app approval step and
// then authorized by a releaser through a public token link before the
// money moves.
package batches

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the workflow state of a batch.
type Status string

const (
	StatusDraft                 Status = "draft"
	StatusPendingApproval       Status = "pending_approval"
	StatusPendingAuthorization  Status = "pending_authorization"
	StatusAuthorized            Status = "authorized"
	StatusExecuted              Status = "executed"
	StatusRejectedApproval      Status = "rejected_approval"
	StatusRejectedAuthorization Status = "rejected_authorization"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	switch s {
	case StatusExecuted, StatusRejectedApproval, StatusRejectedAuthorization:
		return true
	}
	return false
}

// Item is one payable inside a batch. OriginalAmount snapshots the
// transaction's effective amount at batch creation; AdjustedAmount, when
// set during approval, is stored separately and never overwrites it.
type Item struct {
	ID             uuid.UUID
	BatchID        uuid.UUID
	TransactionID  uuid.UUID
	Description    string
	OriginalAmount decimal.Decimal
	AdjustedAmount *decimal.Decimal
	Rejected       bool
	RejectReason   string
}

// EffectiveAmount is the adjusted amount when present, else the original.
func (i *Item) EffectiveAmount() decimal.Decimal {
	if i.AdjustedAmount != nil {
		return *i.AdjustedAmount
	}
	return i.OriginalAmount
}

// Batch is a group of payables moving through the workflow together.
type Batch struct {
	ID             uuid.UUID
	CompanyID      uuid.UUID
	Status         Status
	Total          decimal.Decimal
	Comment        string
	Token          string
	TokenExpiresAt time.Time
	Items          []Item
	CreatedBy      int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Total of the surviving (non-rejected) items at their effective amounts.
func ComputeTotal(items []Item) decimal.Decimal {
	total := decimal.Zero
	for i := range items {
		if items[i].Rejected {
			continue
		}
		total = total.Add(items[i].EffectiveAmount())
	}
	return total
}

var (
	// ErrInvalidToken covers unknown and expired authorization tokens.
	// The message is what the public page shows, verbatim.
	ErrInvalidToken = errors.New("Link inválido ou expirado")
	// ErrNotAwaiting indicates a token action against a batch that moved on.
	ErrNotAwaiting = errors.New("batches: batch is not awaiting authorization")
	// ErrInvalidStatus indicates a transition from the wrong state.
	ErrInvalidStatus = errors.New("batches: invalid status for this operation")
	// ErrEmptyBatch indicates a batch without eligible transactions.
	ErrEmptyBatch = errors.New("batches: no eligible transactions")
	// ErrAllRejected indicates an approval that rejected every line.
	ErrAllRejected = errors.New("batches: cannot approve a batch with all lines rejected")
	// ErrUnknownItem indicates an adjustment or rejection for a foreign item.
	ErrUnknownItem = errors.New("batches: unknown batch item")
)
