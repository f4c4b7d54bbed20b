// Package notifications covers in-app notification records and outbound
// transactional email.
package notifications

import (
	"time"
)

// Mail types rendered by the mailer.
const (
	MailBatchApprovalRequest = "batch_approval_request"
	MailBatchStatusUpdate    = "batch_status_update"
	MailTransactionDue       = "transaction_due"
)

// Message is the mail dispatch payload: a template type, a recipient and
// the template data.
type Message struct {
	Type string         `json:"type"`
	To   string         `json:"to"`
	Data map[string]any `json:"data"`
}

// Notification is an in-app record shown to a user.
type Notification struct {
	ID        int64
	UserID    int64
	Title     string
	Body      string
	Read      bool
	CreatedAt time.Time
}
