package notifications

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMailer(cfg MailerConfig) *Mailer {
	return NewMailer(cfg, slog.Default())
}

func TestRenderBatchStatusUpdate(t *testing.T) {
	m := testMailer(MailerConfig{})
	subject, body, err := m.render(Message{
		Type: MailBatchStatusUpdate,
		To:   "releaser@example.com",
		Data: map[string]any{
			"batch_id": "b-1",
			"status":   "pending_authorization",
			"total":    "1234.56",
			"link":     "https://fin.example.com/authorize-batch/tok",
		},
	})
	require.NoError(t, err)
	assert.Contains(t, subject, "pending_authorization")
	assert.Contains(t, body, "R$ 1.234,56")
	assert.Contains(t, body, "https://fin.example.com/authorize-batch/tok")
}

func TestRenderUnknownTypeFails(t *testing.T) {
	m := testMailer(MailerConfig{})
	_, _, err := m.render(Message{Type: "party_invite"})
	require.Error(t, err)
}

func TestSendSimulatedWithoutHost(t *testing.T) {
	m := testMailer(MailerConfig{Env: "production"})
	err := m.Send(Message{
		Type: MailBatchApprovalRequest,
		To:   "approver@example.com",
		Data: map[string]any{"items": 2, "total": "10", "batch_id": "b-2"},
	})
	require.NoError(t, err, "no SMTP host means simulation, not failure")
}

func TestFormatAmountFallsBackToZero(t *testing.T) {
	m := testMailer(MailerConfig{})
	assert.Equal(t, "R$ 0,00", m.formatAmount(nil))
	assert.Equal(t, "R$ 0,00", m.formatAmount("not-a-number"))
	assert.Equal(t, "R$ 99,90", m.formatAmount("99.9"))
}
