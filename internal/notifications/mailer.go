package notifications

import (
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// MailerConfig configures outbound SMTP. An empty Host switches the mailer
// into simulation mode: sends are logged instead of delivered.
type MailerConfig struct {
	Host       string
	Port       int
	Username   string
	Password   string
	From       string
	Env        string
	RedirectTo string // outside production every recipient becomes this address
}

// Mailer renders typed messages and delivers them over SMTP.
type Mailer struct {
	cfg     MailerConfig
	logger  *slog.Logger
	printer *message.Printer
}

// NewMailer constructs a Mailer. Amounts are rendered in pt-BR.
func NewMailer(cfg MailerConfig, logger *slog.Logger) *Mailer {
	return &Mailer{cfg: cfg, logger: logger, printer: message.NewPrinter(language.BrazilianPortuguese)}
}

// Send renders and delivers one message.
func (m *Mailer) Send(msg Message) error {
	subject, body, err := m.render(msg)
	if err != nil {
		return err
	}
	to := msg.To
	if m.cfg.Env != "production" && m.cfg.RedirectTo != "" && to != m.cfg.RedirectTo {
		m.logger.Info("mail recipient redirected",
			slog.String("original", to), slog.String("redirect", m.cfg.RedirectTo))
		to = m.cfg.RedirectTo
	}
	if m.cfg.Host == "" {
		m.logger.Info("mail send simulated",
			slog.String("type", msg.Type), slog.String("to", to), slog.String("subject", subject))
		return nil
	}

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	raw := buildRFC822(m.cfg.From, to, subject, body)
	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{to}, raw); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	m.logger.Info("mail sent", slog.String("type", msg.Type), slog.String("to", to))
	return nil
}

func (m *Mailer) render(msg Message) (subject, body string, err error) {
	switch msg.Type {
	case MailBatchApprovalRequest:
		subject = "Lote de pagamento aguardando aprovação"
		body = fmt.Sprintf("Um lote de pagamento com %v itens no total de %s aguarda sua aprovação.\nLote: %v\n",
			msg.Data["items"], m.formatAmount(msg.Data["total"]), msg.Data["batch_id"])
	case MailBatchStatusUpdate:
		subject = fmt.Sprintf("Lote de pagamento: %v", msg.Data["status"])
		var b strings.Builder
		fmt.Fprintf(&b, "O lote %v mudou para o estado %v.\nTotal: %s\n",
			msg.Data["batch_id"], msg.Data["status"], m.formatAmount(msg.Data["total"]))
		if link, ok := msg.Data["link"].(string); ok && link != "" {
			fmt.Fprintf(&b, "Autorize pelo link: %s\n", link)
		}
		body = b.String()
	case MailTransactionDue:
		subject = "Lançamento com vencimento próximo"
		body = fmt.Sprintf("O lançamento %q no valor de %s vence em %v.\n",
			msg.Data["description"], m.formatAmount(msg.Data["amount"]), msg.Data["due_date"])
	default:
		return "", "", fmt.Errorf("notifications: unknown mail type %q", msg.Type)
	}
	return subject, body, nil
}

// formatAmount renders a decimal string as pt-BR currency ("R$ 1.234,56").
func (m *Mailer) formatAmount(v any) string {
	raw, ok := v.(string)
	if !ok {
		return "R$ 0,00"
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return "R$ 0,00"
	}
	f, _ := d.Float64()
	return m.printer.Sprintf("R$ %.2f", f)
}

func buildRFC822(from, to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(body)
	return []byte(b.String())
}
