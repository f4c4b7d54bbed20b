package transactions

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fin-control/fin-control/internal/shared"
	"github.com/fin-control/fin-control/internal/stats"
)

type memoryRepo struct {
	items map[uuid.UUID]*Transaction
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{items: make(map[uuid.UUID]*Transaction)}
}

func (m *memoryRepo) Create(_ context.Context, t *Transaction) error {
	cp := *t
	m.items[t.ID] = &cp
	return nil
}

func (m *memoryRepo) Get(_ context.Context, companyID, id uuid.UUID) (*Transaction, error) {
	t, ok := m.items[id]
	if !ok || t.CompanyID != companyID {
		return nil, shared.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memoryRepo) List(_ context.Context, companyID uuid.UUID, _ ListFilter) ([]Transaction, int, error) {
	var out []Transaction
	for _, t := range m.items {
		if t.CompanyID == companyID {
			out = append(out, *t)
		}
	}
	return out, len(out), nil
}

func (m *memoryRepo) Update(_ context.Context, t *Transaction) error {
	if _, ok := m.items[t.ID]; !ok {
		return shared.ErrNotFound
	}
	cp := *t
	m.items[t.ID] = &cp
	return nil
}

func (m *memoryRepo) UpdateStatus(_ context.Context, companyID, id uuid.UUID, from, to Status, paymentDate *time.Time) error {
	t, ok := m.items[id]
	if !ok || t.CompanyID != companyID || t.Status != from {
		return ErrInvalidTransition
	}
	t.Status = to
	if paymentDate != nil {
		t.PaymentDate = paymentDate
	}
	return nil
}

func (m *memoryRepo) Delete(_ context.Context, companyID, id uuid.UUID) error {
	t, ok := m.items[id]
	if !ok || t.CompanyID != companyID {
		return shared.ErrNotFound
	}
	delete(m.items, id)
	return nil
}

type capturedDelta struct {
	companyID uuid.UUID
	delta     decimal.Decimal
}

type fakeQueue struct {
	deltas []capturedDelta
}

func (f *fakeQueue) EnqueueDelta(_ context.Context, companyID uuid.UUID, before, after *stats.TxSnapshot) error {
	f.deltas = append(f.deltas, capturedDelta{companyID: companyID, delta: stats.DeltaBetween(before, after)})
	return nil
}

func newTestService(repo Repository, queue BalanceQueue) *Service {
	return NewService(repo, queue, nil, slog.Default())
}

func draftTransaction(companyID uuid.UUID, typ Type, amount string) *Transaction {
	return &Transaction{
		CompanyID:   companyID,
		Type:        typ,
		Description: "office supplies",
		Amount:      decimal.RequireFromString(amount),
		DueDate:     time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestCreateValidatesAllocationSum(t *testing.T) {
	svc := newTestService(newMemoryRepo(), &fakeQueue{})
	companyID := uuid.New()

	tx := draftTransaction(companyID, TypePayable, "100")
	tx.Allocations = []Allocation{
		{CostCenterID: uuid.New(), Percentage: decimal.NewFromInt(60)},
		{CostCenterID: uuid.New(), Percentage: decimal.NewFromInt(30)},
	}
	_, err := svc.Create(context.Background(), 1, tx)
	require.ErrorIs(t, err, ErrAllocationSum)

	tx.Allocations[1].Percentage = decimal.NewFromInt(40)
	created, err := svc.Create(context.Background(), 1, tx)
	require.NoError(t, err)
	assert.Equal(t, StatusDraft, created.Status)
	assert.True(t, created.Allocations[0].Amount.Equal(decimal.NewFromInt(60)))
	assert.True(t, created.Allocations[1].Amount.Equal(decimal.NewFromInt(40)))
}

func TestAllocationAmountsUseFinalAmount(t *testing.T) {
	svc := newTestService(newMemoryRepo(), &fakeQueue{})
	tx := draftTransaction(uuid.New(), TypePayable, "100")
	tx.FinalAmount = decimal.RequireFromString("80")
	tx.Allocations = []Allocation{{CostCenterID: uuid.New(), Percentage: decimal.NewFromInt(100)}}

	created, err := svc.Create(context.Background(), 1, tx)
	require.NoError(t, err)
	assert.True(t, created.Allocations[0].Amount.Equal(decimal.NewFromInt(80)))
}

func TestStatusFlow(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, &fakeQueue{})
	companyID := uuid.New()

	created, err := svc.Create(context.Background(), 1, draftTransaction(companyID, TypePayable, "50"))
	require.NoError(t, err)

	// approve before submit is rejected
	err = svc.Approve(context.Background(), 2, companyID, created.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)

	require.NoError(t, svc.Submit(context.Background(), 1, companyID, created.ID))
	require.NoError(t, svc.Approve(context.Background(), 2, companyID, created.ID))
	require.NoError(t, svc.MarkPaid(context.Background(), 3, companyID, created.ID, time.Now()))

	stored, err := repo.Get(context.Background(), companyID, created.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, stored.Status)
	assert.NotNil(t, stored.PaymentDate)
}

func TestMarkPaidEnqueuesSignedDelta(t *testing.T) {
	repo := newMemoryRepo()
	queue := &fakeQueue{}
	svc := newTestService(repo, queue)
	companyID := uuid.New()

	pay, err := svc.Create(context.Background(), 1, draftTransaction(companyID, TypePayable, "40"))
	require.NoError(t, err)
	recv, err := svc.Create(context.Background(), 1, draftTransaction(companyID, TypeReceivable, "100"))
	require.NoError(t, err)

	for _, id := range []uuid.UUID{pay.ID, recv.ID} {
		require.NoError(t, svc.Submit(context.Background(), 1, companyID, id))
		require.NoError(t, svc.Approve(context.Background(), 2, companyID, id))
	}
	// nothing paid yet, no balance work
	assert.Empty(t, queue.deltas)

	require.NoError(t, svc.MarkPaid(context.Background(), 3, companyID, recv.ID, time.Now()))
	require.NoError(t, svc.MarkPaid(context.Background(), 3, companyID, pay.ID, time.Now()))

	require.Len(t, queue.deltas, 2)
	assert.True(t, queue.deltas[0].delta.Equal(decimal.NewFromInt(100)))
	assert.True(t, queue.deltas[1].delta.Equal(decimal.NewFromInt(-40)))
}

func TestDeletePaidReversesBalance(t *testing.T) {
	repo := newMemoryRepo()
	queue := &fakeQueue{}
	svc := newTestService(repo, queue)
	companyID := uuid.New()

	tx, err := svc.Create(context.Background(), 1, draftTransaction(companyID, TypeReceivable, "75"))
	require.NoError(t, err)
	require.NoError(t, svc.Submit(context.Background(), 1, companyID, tx.ID))
	require.NoError(t, svc.Approve(context.Background(), 2, companyID, tx.ID))
	require.NoError(t, svc.MarkPaid(context.Background(), 3, companyID, tx.ID, time.Now()))

	require.NoError(t, svc.Delete(context.Background(), 1, companyID, tx.ID))

	require.Len(t, queue.deltas, 2)
	assert.True(t, queue.deltas[1].delta.Equal(decimal.NewFromInt(-75)))
}

func TestUpdateRequiresDraft(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, &fakeQueue{})
	companyID := uuid.New()

	tx, err := svc.Create(context.Background(), 1, draftTransaction(companyID, TypePayable, "10"))
	require.NoError(t, err)
	require.NoError(t, svc.Submit(context.Background(), 1, companyID, tx.ID))

	tx.Description = "updated"
	_, err = svc.Update(context.Background(), 1, tx)
	require.ErrorIs(t, err, ErrNotEditable)
}
