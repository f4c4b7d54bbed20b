// Package costcenters manages the hierarchical budget-tracking units that
// transactions are allocated to.
package costcenters

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CostCenter is a node in a company's budget hierarchy. Budget is the
// allocation this node receives (from its parent, or directly for roots)
// for BudgetYear.
type CostCenter struct {
	ID             uuid.UUID
	CompanyID      uuid.UUID
	Name           string
	ParentID       uuid.UUID // uuid.Nil for roots
	Budget         decimal.Decimal
	BudgetYear     int
	AllowedUserIDs []int64
	ApproverEmail  string
	ReleaserEmail  string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// AllowsUser reports whether the user may allocate to this cost center.
// An empty list means unrestricted.
func (c *CostCenter) AllowsUser(userID int64) bool {
	if len(c.AllowedUserIDs) == 0 {
		return true
	}
	for _, id := range c.AllowedUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// AllocationTotals aggregates the money already allocated against a cost
// center, split by transaction type.
type AllocationTotals struct {
	Payables    decimal.Decimal
	Receivables decimal.Decimal
}

// Usage is one row of the budget usage report.
type Usage struct {
	CostCenter CostCenter
	Totals     AllocationTotals
	Available  decimal.Decimal
}

var (
	// ErrParentNotFound indicates an unknown parent reference.
	ErrParentNotFound = errors.New("costcenters: parent not found")
	// ErrCyclicParent indicates a parent assignment that would close a loop.
	ErrCyclicParent = errors.New("costcenters: parent assignment forms a cycle")
	// ErrHasChildren indicates a delete of a node with children.
	ErrHasChildren = errors.New("costcenters: cost center has children")
)
