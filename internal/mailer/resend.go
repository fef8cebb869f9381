package mailer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/resend/resend-go/v2"
	"go.uber.org/zap"

	"github.com/convertfix/audit-service/internal/audit"
)

// emailsAPI is the slice of the Resend SDK the mailer needs.
type emailsAPI interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// Config configures the Resend mailer.
type Config struct {
	APIKey string
	From   string
}

// Mailer implements audit.Mailer over the Resend API.
type Mailer struct {
	cfg    Config
	emails emailsAPI
	logger *zap.Logger
}

// New builds a Mailer. A missing API key surfaces at first Send.
func New(cfg Config, logger *zap.Logger) *Mailer {
	if cfg.From == "" {
		cfg.From = "ConvertFix <audits@convertfix.app>"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	var emails emailsAPI
	if cfg.APIKey != "" {
		emails = resend.NewClient(cfg.APIKey).Emails
	}
	return &Mailer{cfg: cfg, emails: emails, logger: logger}
}

// NewWithEmails builds a Mailer around an injected API, for tests.
func NewWithEmails(cfg Config, emails emailsAPI, logger *zap.Logger) *Mailer {
	m := New(cfg, logger)
	m.emails = emails
	return m
}

// Send delivers one report email with the PDF attached.
func (m *Mailer) Send(ctx context.Context, msg audit.Message) error {
	if m.emails == nil {
		return fmt.Errorf("%w: missing email.api_key configuration", audit.ErrEmail)
	}
	if err := audit.ValidateEmail(msg.To); err != nil {
		return fmt.Errorf("%w: invalid recipient %q: %v", audit.ErrEmail, msg.To, err)
	}
	if len(msg.PDF) == 0 {
		return fmt.Errorf("%w: empty pdf attachment", audit.ErrEmail)
	}

	html, err := BuildHTML(msg)
	if err != nil {
		return fmt.Errorf("%w: %v", audit.ErrEmail, err)
	}

	start := time.Now()
	sent, err := m.emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    m.cfg.From,
		To:      []string{msg.To},
		Subject: Subject(msg),
		Html:    html,
		Text:    BuildText(msg),
		Attachments: []*resend.Attachment{{
			Filename: AttachmentName(msg.Tier),
			Content:  msg.PDF,
		}},
	})
	if err != nil {
		return fmt.Errorf("%w: send via resend: %v", audit.ErrEmail, err)
	}

	m.logger.Info("report email sent",
		zap.String("to", maskEmail(msg.To)),
		zap.String("tier", string(msg.Tier)),
		zap.String("email_id", sent.Id),
		zap.Int("pdf_bytes", len(msg.PDF)),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

// maskEmail keeps logs free of full addresses.
func maskEmail(addr string) string {
	at := strings.IndexByte(addr, '@')
	if at <= 1 {
		return "***"
	}
	return addr[:1] + "***" + addr[at:]
}
