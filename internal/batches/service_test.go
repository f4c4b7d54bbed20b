package batches

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fin-control/fin-control/internal/notifications"
	"github.com/fin-control/fin-control/internal/shared"
	"github.com/fin-control/fin-control/internal/stats"
)

type memoryRepo struct {
	mu       sync.Mutex
	batches  map[uuid.UUID]*Batch
	eligible map[uuid.UUID]Item // approved payables keyed by transaction id
	now      func() time.Time
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		batches:  make(map[uuid.UUID]*Batch),
		eligible: make(map[uuid.UUID]Item),
		now:      time.Now,
	}
}

func (m *memoryRepo) addEligible(id uuid.UUID, description string, amount int64) {
	m.eligible[id] = Item{
		TransactionID:  id,
		Description:    description,
		OriginalAmount: decimal.NewFromInt(amount),
	}
}

func (m *memoryRepo) EligibleTransactions(_ context.Context, _ uuid.UUID, ids []uuid.UUID) ([]Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []Item
	for _, id := range ids {
		if it, ok := m.eligible[id]; ok {
			items = append(items, it)
		}
	}
	return items, nil
}

func (m *memoryRepo) Create(_ context.Context, b *Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *b
	m.batches[b.ID] = &cp
	return nil
}

func (m *memoryRepo) Get(_ context.Context, companyID, id uuid.UUID) (*Batch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.batches[id]
	if !ok || b.CompanyID != companyID {
		return nil, shared.ErrNotFound
	}
	cp := *b
	cp.Items = append([]Item(nil), b.Items...)
	return &cp, nil
}

func (m *memoryRepo) GetByToken(_ context.Context, token string) (*Batch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := m.findByToken(token)
	if b == nil {
		return nil, ErrInvalidToken
	}
	cp := *b
	return &cp, nil
}

func (m *memoryRepo) List(_ context.Context, companyID uuid.UUID, status Status) ([]Batch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Batch
	for _, b := range m.batches {
		if b.CompanyID == companyID && (status == "" || b.Status == status) {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (m *memoryRepo) UpdateStatus(_ context.Context, companyID, id uuid.UUID, from, to Status, comment string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.batches[id]
	if !ok || b.CompanyID != companyID || b.Status != from {
		return ErrInvalidStatus
	}
	b.Status = to
	if comment != "" {
		b.Comment = comment
	}
	return nil
}

func (m *memoryRepo) ApplyApproval(_ context.Context, b *Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.batches[b.ID]
	if !ok || stored.Status != StatusPendingApproval {
		return ErrInvalidStatus
	}
	stored.Status = StatusPendingAuthorization
	stored.Total = b.Total
	stored.Comment = b.Comment
	stored.Token = b.Token
	stored.TokenExpiresAt = b.TokenExpiresAt
	stored.Items = append([]Item(nil), b.Items...)
	return nil
}

func (m *memoryRepo) AuthorizeByToken(_ context.Context, token string) (*Batch, error) {
	return m.tokenTransition(token, StatusAuthorized, "")
}

func (m *memoryRepo) RejectAuthorizationByToken(_ context.Context, token, reason string) (*Batch, error) {
	return m.tokenTransition(token, StatusRejectedAuthorization, reason)
}

func (m *memoryRepo) tokenTransition(token string, to Status, comment string) (*Batch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := m.findByToken(token)
	if b == nil {
		return nil, ErrInvalidToken
	}
	if b.Status != StatusPendingAuthorization {
		return nil, ErrNotAwaiting
	}
	b.Status = to
	if comment != "" {
		b.Comment = comment
	}
	cp := *b
	return &cp, nil
}

func (m *memoryRepo) findByToken(token string) *Batch {
	if token == "" {
		return nil
	}
	for _, b := range m.batches {
		if b.Token == token && b.TokenExpiresAt.After(m.now()) {
			return b
		}
	}
	return nil
}

func (m *memoryRepo) Execute(_ context.Context, companyID, id uuid.UUID, _ time.Time) ([]ExecutedLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.batches[id]
	if !ok || b.CompanyID != companyID || b.Status != StatusAuthorized {
		return nil, ErrInvalidStatus
	}
	b.Status = StatusExecuted
	var lines []ExecutedLine
	for i := range b.Items {
		it := &b.Items[i]
		if it.Rejected {
			continue
		}
		lines = append(lines, ExecutedLine{TransactionID: it.TransactionID, Amount: it.EffectiveAmount()})
	}
	return lines, nil
}

func (m *memoryRepo) ApproverEmails(_ context.Context, _ uuid.UUID) ([]string, error) {
	return []string{"approver@example.com"}, nil
}

func (m *memoryRepo) ReleaserEmails(_ context.Context, _ uuid.UUID) ([]string, error) {
	return []string{"releaser@example.com"}, nil
}

type fakeMail struct {
	sent []notifications.Message
}

func (f *fakeMail) EnqueueMail(_ context.Context, msg notifications.Message) error {
	f.sent = append(f.sent, msg)
	return nil
}

type fakeBalance struct {
	deltas []decimal.Decimal
}

func (f *fakeBalance) EnqueueDelta(_ context.Context, _ uuid.UUID, before, after *stats.TxSnapshot) error {
	f.deltas = append(f.deltas, stats.DeltaBetween(before, after))
	return nil
}

type fixture struct {
	repo    *memoryRepo
	mail    *fakeMail
	balance *fakeBalance
	svc     *Service
}

func newFixture() *fixture {
	repo := newMemoryRepo()
	mail := &fakeMail{}
	balance := &fakeBalance{}
	svc := NewService(repo, nil, nil, mail, balance, nil, slog.Default(), 168*time.Hour, "https://fin.example.com")
	return &fixture{repo: repo, mail: mail, balance: balance, svc: svc}
}

func (f *fixture) pendingBatch(t *testing.T, companyID uuid.UUID, amounts ...int64) *Batch {
	t.Helper()
	var ids []uuid.UUID
	for _, amount := range amounts {
		id := uuid.New()
		f.repo.addEligible(id, "invoice", amount)
		ids = append(ids, id)
	}
	b, err := f.svc.Create(context.Background(), 1, companyID, ids)
	require.NoError(t, err)
	require.NoError(t, f.svc.SendForApproval(context.Background(), 1, companyID, b.ID))
	stored, err := f.svc.Get(context.Background(), companyID, b.ID)
	require.NoError(t, err)
	return stored
}

func TestCreateSnapshotsEligiblePayables(t *testing.T) {
	f := newFixture()
	companyID := uuid.New()
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	f.repo.addEligible(ids[0], "rent", 1000)
	f.repo.addEligible(ids[1], "hosting", 120)
	// ids[2] never registered: not approved, must be skipped

	b, err := f.svc.Create(context.Background(), 1, companyID, ids)
	require.NoError(t, err)
	assert.Equal(t, StatusDraft, b.Status)
	assert.Len(t, b.Items, 2)
	assert.True(t, b.Total.Equal(decimal.NewFromInt(1120)))
}

func TestCreateRejectsEmptySelection(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Create(context.Background(), 1, uuid.New(), nil)
	require.ErrorIs(t, err, ErrEmptyBatch)

	_, err = f.svc.Create(context.Background(), 1, uuid.New(), []uuid.UUID{uuid.New()})
	require.ErrorIs(t, err, ErrEmptyBatch)
}

func TestSubmitNotifiesApprovers(t *testing.T) {
	f := newFixture()
	b := f.pendingBatch(t, uuid.New(), 500)

	assert.Equal(t, StatusPendingApproval, b.Status)
	require.Len(t, f.mail.sent, 1)
	assert.Equal(t, notifications.MailBatchApprovalRequest, f.mail.sent[0].Type)
	assert.Equal(t, "approver@example.com", f.mail.sent[0].To)
}

func TestApproveAdjustmentsRecomputeTotal(t *testing.T) {
	f := newFixture()
	companyID := uuid.New()
	b := f.pendingBatch(t, companyID, 1000, 120)

	approved, err := f.svc.Approve(context.Background(), 2, companyID, b.ID,
		[]Adjustment{{ItemID: b.Items[0].ID, Amount: decimal.NewFromInt(900)}}, nil, "negotiated discount")
	require.NoError(t, err)

	assert.Equal(t, StatusPendingAuthorization, approved.Status)
	assert.True(t, approved.Total.Equal(decimal.NewFromInt(1020)), "total = %s", approved.Total)
	// original amount survives the adjustment
	assert.True(t, approved.Items[0].OriginalAmount.Equal(decimal.NewFromInt(1000)))
	require.NotNil(t, approved.Items[0].AdjustedAmount)
	assert.NotEmpty(t, approved.Token)
}

func TestApproveRejectionShrinksTotal(t *testing.T) {
	f := newFixture()
	companyID := uuid.New()
	b := f.pendingBatch(t, companyID, 1000, 120)

	approved, err := f.svc.Approve(context.Background(), 2, companyID, b.ID,
		nil, []Rejection{{ItemID: b.Items[1].ID, Reason: "duplicate invoice"}}, "")
	require.NoError(t, err)

	assert.True(t, approved.Total.Equal(decimal.NewFromInt(1000)))
	assert.True(t, approved.Items[1].Rejected)
	assert.Len(t, approved.Items, 2, "rejected line stays on record")
}

func TestApproveAllRejectedFails(t *testing.T) {
	f := newFixture()
	companyID := uuid.New()
	b := f.pendingBatch(t, companyID, 300)

	_, err := f.svc.Approve(context.Background(), 2, companyID, b.ID,
		nil, []Rejection{{ItemID: b.Items[0].ID}}, "")
	require.ErrorIs(t, err, ErrAllRejected)
}

func TestApproveSendsReleaserLink(t *testing.T) {
	f := newFixture()
	companyID := uuid.New()
	b := f.pendingBatch(t, companyID, 300)
	f.mail.sent = nil

	approved, err := f.svc.Approve(context.Background(), 2, companyID, b.ID, nil, nil, "")
	require.NoError(t, err)

	require.Len(t, f.mail.sent, 1)
	msg := f.mail.sent[0]
	assert.Equal(t, "releaser@example.com", msg.To)
	assert.Equal(t, "https://fin.example.com/authorize-batch/"+approved.Token, msg.Data["link"])
}

func TestAuthorizeByTokenOneShot(t *testing.T) {
	f := newFixture()
	companyID := uuid.New()
	b := f.pendingBatch(t, companyID, 300)
	approved, err := f.svc.Approve(context.Background(), 2, companyID, b.ID, nil, nil, "")
	require.NoError(t, err)

	authorized, err := f.svc.AuthorizeByToken(context.Background(), approved.Token)
	require.NoError(t, err)
	assert.Equal(t, StatusAuthorized, authorized.Status)

	// the second click hits a batch that already moved on
	_, err = f.svc.AuthorizeByToken(context.Background(), approved.Token)
	require.ErrorIs(t, err, ErrNotAwaiting)

	stored, err := f.svc.Get(context.Background(), companyID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusAuthorized, stored.Status, "stale click must not mutate")
}

func TestAuthorizeByUnknownToken(t *testing.T) {
	f := newFixture()
	_, err := f.svc.AuthorizeByToken(context.Background(), "no-such-token")
	require.ErrorIs(t, err, ErrInvalidToken)
	assert.EqualError(t, err, "Link inválido ou expirado")
}

func TestExpiredTokenIsInvalid(t *testing.T) {
	f := newFixture()
	companyID := uuid.New()
	b := f.pendingBatch(t, companyID, 300)
	approved, err := f.svc.Approve(context.Background(), 2, companyID, b.ID, nil, nil, "")
	require.NoError(t, err)

	f.repo.now = func() time.Time { return time.Now().Add(200 * time.Hour) }

	_, err = f.svc.GetByToken(context.Background(), approved.Token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestRejectAuthorizationByToken(t *testing.T) {
	f := newFixture()
	companyID := uuid.New()
	b := f.pendingBatch(t, companyID, 300)
	approved, err := f.svc.Approve(context.Background(), 2, companyID, b.ID, nil, nil, "")
	require.NoError(t, err)

	rejected, err := f.svc.RejectAuthorizationByToken(context.Background(), approved.Token, "wrong account")
	require.NoError(t, err)
	assert.Equal(t, StatusRejectedAuthorization, rejected.Status)
	assert.True(t, rejected.Status.Terminal())
}

func TestExecutePaysSurvivorsAndEnqueuesDeltas(t *testing.T) {
	f := newFixture()
	companyID := uuid.New()
	b := f.pendingBatch(t, companyID, 1000, 120)
	approved, err := f.svc.Approve(context.Background(), 2, companyID, b.ID,
		[]Adjustment{{ItemID: b.Items[0].ID, Amount: decimal.NewFromInt(900)}},
		[]Rejection{{ItemID: b.Items[1].ID, Reason: "hold"}}, "")
	require.NoError(t, err)

	_, err = f.svc.AuthorizeByToken(context.Background(), approved.Token)
	require.NoError(t, err)
	require.NoError(t, f.svc.Execute(context.Background(), 3, companyID, b.ID, time.Now()))

	stored, err := f.svc.Get(context.Background(), companyID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusExecuted, stored.Status)

	// one surviving payable at the adjusted amount
	require.Len(t, f.balance.deltas, 1)
	assert.True(t, f.balance.deltas[0].Equal(decimal.NewFromInt(-900)))
}

func TestExecuteRequiresAuthorized(t *testing.T) {
	f := newFixture()
	companyID := uuid.New()
	b := f.pendingBatch(t, companyID, 300)

	err := f.svc.Execute(context.Background(), 3, companyID, b.ID, time.Now())
	require.ErrorIs(t, err, ErrInvalidStatus)
}
