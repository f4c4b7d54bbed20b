package costcenters

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestAvailableBalances(t *testing.T) {
	root := uuid.New()
	childA := uuid.New()
	childB := uuid.New()

	centers := []CostCenter{
		{ID: root, Budget: dec(1000)},
		{ID: childA, ParentID: root, Budget: dec(300)},
		{ID: childB, ParentID: root, Budget: dec(200)},
	}
	totals := map[uuid.UUID]AllocationTotals{
		root:   {Payables: dec(100), Receivables: dec(50)},
		childA: {Payables: dec(250)},
	}

	available := AvailableBalances(centers, totals)

	// root: 1000 + 50 - (300+200) - 100
	assert.True(t, available[root].Equal(dec(450)), "root = %s", available[root])
	// childA: 300 + 0 - 0 - 250
	assert.True(t, available[childA].Equal(dec(50)))
	// childB: untouched budget
	assert.True(t, available[childB].Equal(dec(200)))
}

func TestAvailableBalancesSurvivesCycle(t *testing.T) {
	a := uuid.New()
	b := uuid.New()
	centers := []CostCenter{
		{ID: a, ParentID: b, Budget: dec(100)},
		{ID: b, ParentID: a, Budget: dec(100)},
	}

	available := AvailableBalances(centers, nil)

	// each node loses its child's budget, no infinite walk
	assert.True(t, available[a].Equal(dec(0)))
	assert.True(t, available[b].Equal(dec(0)))
}

func TestWouldCycle(t *testing.T) {
	a := uuid.New()
	b := uuid.New()
	c := uuid.New()
	parents := map[uuid.UUID]uuid.UUID{b: a, c: b}

	assert.True(t, WouldCycle(parents, a, c), "a under c closes a->b->c->a")
	assert.False(t, WouldCycle(parents, c, a), "c already descends from a")
	assert.False(t, WouldCycle(parents, a, uuid.Nil), "detaching never cycles")
}
