package mailer

import (
	"context"
	"errors"
	"testing"

	"github.com/resend/resend-go/v2"
	"github.com/stretchr/testify/require"

	"github.com/convertfix/audit-service/internal/audit"
)

type fakeEmails struct {
	lastReq *resend.SendEmailRequest
	err     error
}

func (f *fakeEmails) SendWithContext(_ context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error) {
	f.lastReq = params
	if f.err != nil {
		return nil, f.err
	}
	return &resend.SendEmailResponse{Id: "email-123"}, nil
}

func testMessage(tier audit.Tier, stats *audit.Stats) audit.Message {
	return audit.Message{
		To:    "founder@example.com",
		Tier:  tier,
		PDF:   []byte("%PDF-1.4 fake"),
		URL:   "https://example.com",
		Stats: stats,
	}
}

func TestSendLegacyTemplate(t *testing.T) {
	t.Parallel()

	emails := &fakeEmails{}
	m := NewWithEmails(Config{APIKey: "k"}, emails, nil)

	err := m.Send(context.Background(), testMessage(audit.TierQuick, nil))
	require.NoError(t, err)
	require.Equal(t, "Your Quick Audit is Ready!", emails.lastReq.Subject)
	require.Equal(t, []string{"founder@example.com"}, emails.lastReq.To)
	require.Contains(t, emails.lastReq.Html, "Your ConvertFix Audit is Complete!")
	require.NotContains(t, emails.lastReq.Html, "Deep-dive analysis")
	require.NotEmpty(t, emails.lastReq.Text)
	require.Len(t, emails.lastReq.Attachments, 1)
	require.Equal(t, "convertfix-audit-quick.pdf", emails.lastReq.Attachments[0].Filename)
}

func TestSendStatsTemplate(t *testing.T) {
	t.Parallel()

	emails := &fakeEmails{}
	m := NewWithEmails(Config{APIKey: "k"}, emails, nil)

	stats := &audit.Stats{Model: "gpt-4o", IssueCount: 20, Score: 62}
	err := m.Send(context.Background(), testMessage(audit.TierProfessional, stats))
	require.NoError(t, err)
	require.Equal(t, "Your ConvertFix Audit is Ready", emails.lastReq.Subject)
	require.Contains(t, emails.lastReq.Html, "Issues Found")
	require.Contains(t, emails.lastReq.Html, "62/100")
	require.Contains(t, emails.lastReq.Text, "We found 20 issues")
	require.Equal(t, "convertfix-audit-professional.pdf", emails.lastReq.Attachments[0].Filename)
}

func TestSendProfessionalLegacyListsDeepDive(t *testing.T) {
	t.Parallel()

	emails := &fakeEmails{}
	m := NewWithEmails(Config{APIKey: "k"}, emails, nil)

	require.NoError(t, m.Send(context.Background(), testMessage(audit.TierProfessional, nil)))
	require.Contains(t, emails.lastReq.Html, "Deep-dive analysis")
}

func TestSendFailsWithoutAPIKey(t *testing.T) {
	t.Parallel()

	m := New(Config{}, nil)
	err := m.Send(context.Background(), testMessage(audit.TierQuick, nil))
	require.ErrorIs(t, err, audit.ErrEmail)
	require.Contains(t, err.Error(), "api_key")
}

func TestSendRejectsInvalidRecipient(t *testing.T) {
	t.Parallel()

	m := NewWithEmails(Config{APIKey: "k"}, &fakeEmails{}, nil)
	msg := testMessage(audit.TierQuick, nil)
	msg.To = "not-an-email"
	require.ErrorIs(t, m.Send(context.Background(), msg), audit.ErrEmail)
}

func TestSendRejectsEmptyPDF(t *testing.T) {
	t.Parallel()

	m := NewWithEmails(Config{APIKey: "k"}, &fakeEmails{}, nil)
	msg := testMessage(audit.TierQuick, nil)
	msg.PDF = nil
	require.ErrorIs(t, m.Send(context.Background(), msg), audit.ErrEmail)
}

func TestSendWrapsTransportError(t *testing.T) {
	t.Parallel()

	m := NewWithEmails(Config{APIKey: "k"}, &fakeEmails{err: errors.New("boom")}, nil)
	err := m.Send(context.Background(), testMessage(audit.TierQuick, nil))
	require.ErrorIs(t, err, audit.ErrEmail)
	require.Contains(t, err.Error(), "boom")
}

func TestMaskEmail(t *testing.T) {
	t.Parallel()

	require.Equal(t, "f***@example.com", maskEmail("founder@example.com"))
	require.Equal(t, "***", maskEmail("a@b"))
	require.Equal(t, "***", maskEmail("nodomain"))
}
