package notify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/smtp"
	"time"

	"github.com/emersion/go-message/mail"
	"go.uber.org/zap"

	"emojipress/config"
	"emojipress/report"
)

// RunIDHeader carries the report's run id so replies can be matched to runs
const RunIDHeader = "X-Emojipress-Run-ID"

// SendMailFunc has the signature of smtp.SendMail
type SendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailSender mails the plain-text report
type EmailSender struct {
	cfg      config.EmailConfig
	sendMail SendMailFunc
	logger   *zap.Logger
}

// NewEmailSender creates a new email sender
func NewEmailSender(cfg config.EmailConfig, logger *zap.Logger) *EmailSender {
	return &EmailSender{cfg: cfg, sendMail: smtp.SendMail, logger: logger}
}

// Name identifies the notifier in logs
func (e *EmailSender) Name() string {
	return "email"
}

// Notify sends the report to the configured recipient
func (e *EmailSender) Notify(_ context.Context, r *report.Report) error {
	msg, err := e.BuildMessage(r, time.Now())
	if err != nil {
		return fmt.Errorf("failed to build email: %w", err)
	}

	var auth smtp.Auth
	if e.cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", e.cfg.SMTPUser, e.cfg.SMTPPassword, e.cfg.SMTPHost)
	}

	addr := fmt.Sprintf("%s:%d", e.cfg.SMTPHost, e.cfg.SMTPPort)
	if err := e.sendMail(addr, auth, e.cfg.FromAddress, []string{e.cfg.Recipient}, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	e.logger.Info("report emailed", zap.String("to", e.cfg.Recipient))
	return nil
}

// BuildMessage renders the report as a plain-text RFC 5322 message
func (e *EmailSender) BuildMessage(r *report.Report, date time.Time) ([]byte, error) {
	var h mail.Header
	h.SetDate(date)
	h.SetAddressList("From", []*mail.Address{{Address: e.cfg.FromAddress}})
	h.SetAddressList("To", []*mail.Address{{Address: e.cfg.Recipient}})
	h.SetSubject("Emoji compression: " + r.Headline())
	h.Set(RunIDHeader, r.RunID)
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, err
	}

	if _, err := io.WriteString(w, r.PlainText()); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
