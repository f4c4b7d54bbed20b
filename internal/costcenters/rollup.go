package costcenters

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AvailableBalances computes the available balance for every cost center:
//
//	available = budget + receivables allocated − children budgets − payables allocated
//
// The walk is defensive against cycles in the parent pointers: a node is
// counted as a child at most once, so a corrupted hierarchy degrades to a
// wrong-but-finite answer instead of hanging.
func AvailableBalances(centers []CostCenter, totals map[uuid.UUID]AllocationTotals) map[uuid.UUID]decimal.Decimal {
	childBudget := make(map[uuid.UUID]decimal.Decimal, len(centers))
	seen := make(map[uuid.UUID]bool, len(centers))
	for _, c := range centers {
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		if c.ParentID != uuid.Nil {
			childBudget[c.ParentID] = childBudget[c.ParentID].Add(c.Budget)
		}
	}

	out := make(map[uuid.UUID]decimal.Decimal, len(centers))
	for _, c := range centers {
		t := totals[c.ID]
		out[c.ID] = c.Budget.
			Add(t.Receivables).
			Sub(childBudget[c.ID]).
			Sub(t.Payables)
	}
	return out
}

// WouldCycle reports whether assigning parentID to id closes a loop in the
// hierarchy described by parents (child → parent).
func WouldCycle(parents map[uuid.UUID]uuid.UUID, id, parentID uuid.UUID) bool {
	if parentID == uuid.Nil {
		return false
	}
	visited := make(map[uuid.UUID]bool)
	for cur := parentID; cur != uuid.Nil; cur = parents[cur] {
		if cur == id {
			return true
		}
		if visited[cur] {
			return false // pre-existing loop elsewhere, not ours
		}
		visited[cur] = true
	}
	return false
}
