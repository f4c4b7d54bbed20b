package recurrences

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
)

type occurrenceKey struct {
	templateID uuid.UUID
	dueDate    time.Time
}

type memoryRepo struct {
	mu             sync.Mutex
	items          map[uuid.UUID]*Template
	occurrences    map[occurrenceKey]uuid.UUID
	approverEmails map[uuid.UUID]string
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		items:          make(map[uuid.UUID]*Template),
		occurrences:    make(map[occurrenceKey]uuid.UUID),
		approverEmails: make(map[uuid.UUID]string),
	}
}

func (m *memoryRepo) Create(_ context.Context, t *Template) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.items[t.ID] = &cp
	return nil
}

func (m *memoryRepo) Get(_ context.Context, companyID, id uuid.UUID) (*Template, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.items[id]
	if !ok || t.CompanyID != companyID {
		return nil, shared.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memoryRepo) List(_ context.Context, companyID uuid.UUID, onlyActive bool) ([]Template, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Template
	for _, t := range m.items {
		if t.CompanyID == companyID && (!onlyActive || t.Active) {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (m *memoryRepo) Update(_ context.Context, t *Template) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[t.ID]; !ok {
		return shared.ErrNotFound
	}
	cp := *t
	m.items[t.ID] = &cp
	return nil
}

func (m *memoryRepo) SetActive(_ context.Context, companyID, id uuid.UUID, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.items[id]
	if !ok || t.CompanyID != companyID {
		return shared.ErrNotFound
	}
	t.Active = active
	return nil
}

func (m *memoryRepo) Delete(_ context.Context, companyID, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.items[id]
	if !ok || t.CompanyID != companyID {
		return shared.ErrNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *memoryRepo) DueTemplates(_ context.Context, asOf time.Time) ([]Template, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var due []Template
	for _, t := range m.items {
		if t.Due(asOf) {
			due = append(due, *t)
		}
	}
	return due, nil
}

func (m *memoryRepo) Materialize(_ context.Context, t *Template, txID uuid.UUID, nextDue time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := occurrenceKey{templateID: t.ID, dueDate: t.NextDueDate}
	if _, exists := m.occurrences[key]; exists {
		return false, nil
	}
	m.occurrences[key] = txID
	stored := m.items[t.ID]
	stored.NextDueDate = nextDue
	return true, nil
}

func (m *memoryRepo) ApproverEmail(_ context.Context, _, costCenterID uuid.UUID) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	email, ok := m.approverEmails[costCenterID]
	if !ok {
		return "", shared.ErrNotFound
	}
	return email, nil
}

type fakeMail struct {
	mu   sync.Mutex
	sent []notifications.Message
}

func (f *fakeMail) EnqueueMail(_ context.Context, msg notifications.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return nil
}

func newTestService(repo Repository) *Service {
	return NewService(repo, nil, nil, slog.Default())
}

func activeTemplate(companyID uuid.UUID, freq Frequency, interval int, next time.Time) *Template {
	return &Template{
		CompanyID:   companyID,
		Description: "hosting invoice",
		Type:        "payable",
		Amount:      decimal.NewFromInt(120),
		Frequency:   freq,
		Interval:    interval,
		NextDueDate: next,
	}
}

func TestProcessDueMaterializesOnceAndAdvances(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	companyID := uuid.New()

	tmpl, err := svc.Create(context.Background(), 1,
		activeTemplate(companyID, FrequencyMonthly, 2, date(2024, 1, 15)))
	require.NoError(t, err)

	created, err := svc.ProcessDue(context.Background(), date(2024, 1, 20))
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	stored, err := repo.Get(context.Background(), companyID, tmpl.ID)
	require.NoError(t, err)
	assert.Equal(t, date(2024, 3, 15), stored.NextDueDate)
	assert.Len(t, repo.occurrences, 1)
}

func TestProcessDueSkipsFutureAndInactive(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	companyID := uuid.New()

	future, err := svc.Create(context.Background(), 1,
		activeTemplate(companyID, FrequencyMonthly, 1, date(2024, 8, 1)))
	require.NoError(t, err)
	paused, err := svc.Create(context.Background(), 1,
		activeTemplate(companyID, FrequencyMonthly, 1, date(2024, 1, 1)))
	require.NoError(t, err)
	require.NoError(t, svc.SetActive(context.Background(), 1, companyID, paused.ID, false))

	created, err := svc.ProcessDue(context.Background(), date(2024, 6, 1))
	require.NoError(t, err)
	assert.Zero(t, created)

	stored, err := repo.Get(context.Background(), companyID, future.ID)
	require.NoError(t, err)
	assert.Equal(t, date(2024, 8, 1), stored.NextDueDate)
}

func TestProcessDueIdempotentPerDueDate(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	companyID := uuid.New()

	tmpl, err := svc.Create(context.Background(), 1,
		activeTemplate(companyID, FrequencyMonthly, 1, date(2024, 1, 15)))
	require.NoError(t, err)

	// simulate a competing pass that already recorded the occurrence but
	// whose due-date advance was lost
	repo.occurrences[occurrenceKey{templateID: tmpl.ID, dueDate: date(2024, 1, 15)}] = uuid.New()

	created, err := svc.ProcessDue(context.Background(), date(2024, 1, 20))
	require.NoError(t, err)
	assert.Zero(t, created)
	assert.Len(t, repo.occurrences, 1)
}

func TestProcessDueMailsCostCenterApprover(t *testing.T) {
	repo := newMemoryRepo()
	mail := &fakeMail{}
	svc := NewService(repo, nil, mail, slog.Default())
	companyID := uuid.New()
	costCenterID := uuid.New()
	repo.approverEmails[costCenterID] = "aprovador@example.com"

	tmpl := activeTemplate(companyID, FrequencyMonthly, 1, date(2024, 1, 15))
	tmpl.CostCenterID = costCenterID
	_, err := svc.Create(context.Background(), 1, tmpl)
	require.NoError(t, err)

	created, err := svc.ProcessDue(context.Background(), date(2024, 1, 20))
	require.NoError(t, err)
	require.Equal(t, 1, created)

	require.Len(t, mail.sent, 1)
	msg := mail.sent[0]
	assert.Equal(t, notifications.MailTransactionDue, msg.Type)
	assert.Equal(t, "aprovador@example.com", msg.To)
	assert.Equal(t, "hosting invoice", msg.Data["description"])
	assert.Equal(t, "15/01/2024", msg.Data["due_date"])
}

func TestCreateValidation(t *testing.T) {
	svc := newTestService(newMemoryRepo())
	companyID := uuid.New()

	bad := activeTemplate(companyID, Frequency("fortnightly"), 1, date(2024, 1, 1))
	_, err := svc.Create(context.Background(), 1, bad)
	require.ErrorIs(t, err, ErrInvalidFrequency)

	bad = activeTemplate(companyID, FrequencyWeekly, 0, date(2024, 1, 1))
	_, err = svc.Create(context.Background(), 1, bad)
	require.ErrorIs(t, err, ErrInvalidInterval)
}
