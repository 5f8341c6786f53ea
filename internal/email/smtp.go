// Package email sends operator notifications about enrichment batches.
package email

import (
	"context"
	"fmt"
	"net"
	"time"

	gomail "github.com/wneessen/go-mail"

	"venue_enrichment_backend/internal/enrichment/service"
	"venue_enrichment_backend/platform/config"
)

// Sender delivers batch reports.
type Sender interface {
	SendBatchReport(ctx context.Context, r service.Report) error
}

type NoopSender struct{}

func (NoopSender) SendBatchReport(ctx context.Context, r service.Report) error {
	return nil
}

// New returns an SMTP sender, or NoopSender when e-mail is disabled.
func New(cfg config.EmailConfig) Sender {
	if !cfg.GetEmailEnabled() {
		return NoopSender{}
	}
	return NewSMTPSender(
		cfg.GetSMTPHost(),
		cfg.GetSMTPPort(),
		cfg.GetSMTPUsername(),
		cfg.GetSMTPPassword(),
		cfg.GetEmailFromAddress(),
		cfg.GetEmailFromName(),
		cfg.GetReportRecipient(),
	)
}

// SMTPSender implements Sender over a direct SMTP connection via go-mail.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
	to        string
}

// NewSMTPSender creates a new SMTPSender that reports to toEmail.
func NewSMTPSender(host string, port int, username, password, fromEmail, fromName, toEmail string) *SMTPSender {
	return &SMTPSender{
		host:      host,
		port:      port,
		username:  username,
		password:  password,
		fromName:  fromName,
		fromEmail: fromEmail,
		to:        toEmail,
	}
}

func (s *SMTPSender) SendBatchReport(ctx context.Context, r service.Report) error {
	content, err := renderEmailTemplate("batch_report.html", newBatchReportData(r))
	if err != nil {
		return err
	}
	msg, err := s.message(batchSubject(r), content)
	if err != nil {
		return err
	}
	return s.send(ctx, msg)
}

func (s *SMTPSender) message(subject, htmlContent string) (*gomail.Msg, error) {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return nil, fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(s.to); err != nil {
		return nil, fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)
	return msg, nil
}

func (s *SMTPSender) send(ctx context.Context, msg *gomail.Msg) error {
	opts := []gomail.Option{
		gomail.WithPort(s.port),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15 * time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	}
	if s.username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(s.username),
			gomail.WithPassword(s.password),
		)
	}

	client, err := gomail.NewClient(s.host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return nil
}

func batchSubject(r service.Report) string {
	if r.Cancelled {
		return fmt.Sprintf(subjectBatchCancelledFmt, shortID(r.BatchID), r.Progress.Current, r.Progress.Total)
	}
	return fmt.Sprintf(subjectBatchReportFmt, shortID(r.BatchID), r.Progress.Succeeded, r.Progress.Failed)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
