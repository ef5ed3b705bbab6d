package notify

import (
	"encoding/base64"
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"

	"trdb-estimator/internal/config"
	"trdb-estimator/internal/pricing"
	"trdb-estimator/internal/storage"
)

// Mailer delivers lead notifications over plain SMTP.
type Mailer struct {
	cfg    config.SMTP
	admin  string
	logger *zap.Logger
}

func NewMailer(cfg config.SMTP, adminEmail string, logger *zap.Logger) *Mailer {
	return &Mailer{cfg: cfg, admin: adminEmail, logger: logger}
}

// Enabled reports whether SMTP credentials are configured.
func (m *Mailer) Enabled() bool {
	return m.cfg.User != "" && m.cfg.Password != "" && m.admin != ""
}

// SendLeadAlert emails the admin a new-lead summary, attaching the
// lead-log workbook when one is supplied.
func (m *Mailer) SendLeadAlert(lead storage.Lead, workbook []byte) error {
	subject := fmt.Sprintf("New %s lead: %s (%s)", lead.Tier, lead.Name, lead.Action)
	body := formatLeadEmail(lead)
	if err := m.send(m.admin, subject, body, workbook, "leads.xlsx"); err != nil {
		return fmt.Errorf("%w: lead alert: %v", pricing.ErrNotificationFailed, err)
	}
	return nil
}

// SendEstimateCopy emails the prospect their estimate summary.
func (m *Mailer) SendEstimateCopy(lead storage.Lead) error {
	subject := "Your fit-out cost estimate"
	body := fmt.Sprintf(
		"Hi %s,\n\nHere is the estimate you requested:\n\n%s\nWe will be in touch shortly.\n",
		lead.Name, formatEstimateBlock(lead))
	if err := m.send(lead.Email, subject, body, nil, ""); err != nil {
		return fmt.Errorf("%w: estimate copy: %v", pricing.ErrNotificationFailed, err)
	}
	return nil
}

func (m *Mailer) send(to, subject, body string, attachment []byte, filename string) error {
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	auth := smtp.PlainAuth("", m.cfg.User, m.cfg.Password, m.cfg.Host)

	msg := buildMessage(m.cfg.From, to, subject, body, attachment, filename)
	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{to}, msg); err != nil {
		return fmt.Errorf("send to %s: %w", to, err)
	}

	m.logger.Info("Email sent",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.Bool("attachment", attachment != nil))
	return nil
}

const mimeBoundary = "lead-log-boundary"

// buildMessage assembles the raw SMTP message: plain text when there is
// no attachment, multipart/mixed with a base64 xlsx part otherwise.
func buildMessage(from, to, subject, body string, attachment []byte, filename string) []byte {
	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")

	if len(attachment) == 0 {
		msg.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
		msg.WriteString(body)
		return []byte(msg.String())
	}

	fmt.Fprintf(&msg, "Content-Type: multipart/mixed; boundary=%s\r\n\r\n", mimeBoundary)

	fmt.Fprintf(&msg, "--%s\r\n", mimeBoundary)
	msg.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	msg.WriteString(body)
	msg.WriteString("\r\n")

	fmt.Fprintf(&msg, "--%s\r\n", mimeBoundary)
	msg.WriteString("Content-Type: application/vnd.openxmlformats-officedocument.spreadsheetml.sheet\r\n")
	msg.WriteString("Content-Transfer-Encoding: base64\r\n")
	fmt.Fprintf(&msg, "Content-Disposition: attachment; filename=%q\r\n\r\n", filename)

	encoded := base64.StdEncoding.EncodeToString(attachment)
	for len(encoded) > 76 {
		msg.WriteString(encoded[:76])
		msg.WriteString("\r\n")
		encoded = encoded[76:]
	}
	msg.WriteString(encoded)
	fmt.Fprintf(&msg, "\r\n--%s--\r\n", mimeBoundary)

	return []byte(msg.String())
}

func formatLeadEmail(lead storage.Lead) string {
	return fmt.Sprintf(
		"Name: %s\nEmail: %s\nCompany: %s\nPhone: %s\nAction: %s\nScore: %d (%s)\nNotes: %s\n\n%s",
		lead.Name, lead.Email, lead.Company, lead.Phone,
		lead.Action, lead.Score, lead.Tier, lead.Notes,
		formatEstimateBlock(lead))
}

func formatEstimateBlock(lead storage.Lead) string {
	if lead.Market == "" && lead.Total == 0 {
		return "No estimate attached.\n"
	}
	return fmt.Sprintf(
		"Market: %s\nSize: %.0f %s\nQuality: %s\nEstimated total: %.0f %s\n",
		lead.Market, lead.Size, lead.Unit, lead.Quality, lead.Total, lead.Currency)
}
