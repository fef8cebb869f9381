// Package mailer delivers finished reports over the Resend API.
package mailer

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/convertfix/audit-service/internal/audit"
)

func tierName(tier audit.Tier) string {
	if tier == audit.TierProfessional {
		return "Professional"
	}
	return "Quick"
}

type emailData struct {
	URL          string
	TierName     string
	Professional bool
	IssueCount   int
	Score        int
	Model        string
}

// legacyTemplate is the light-themed email used when no run stats are
// available. statsTemplate is the dark variant with the result preview.
var (
	legacyTemplate = template.Must(template.New("legacy").Parse(legacyHTML))
	statsTemplate  = template.Must(template.New("stats").Parse(statsHTML))
)

// BuildHTML renders the email body. Messages carrying stats get the
// richer template with the result preview.
func BuildHTML(msg audit.Message) (string, error) {
	data := emailData{
		URL:          msg.URL,
		TierName:     tierName(msg.Tier),
		Professional: msg.Tier == audit.TierProfessional,
	}
	tmpl := legacyTemplate
	if msg.Stats != nil {
		tmpl = statsTemplate
		data.IssueCount = msg.Stats.IssueCount
		data.Score = msg.Stats.Score
		data.Model = msg.Stats.Model
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute email template: %w", err)
	}
	return buf.String(), nil
}

// BuildText renders the plain-text fallback for clients that strip HTML.
func BuildText(msg audit.Message) string {
	body := fmt.Sprintf(`Your ConvertFix audit is complete!

Analyzed page: %s

Your %s Audit is attached as a PDF. Inside you'll find conversion
blockers prioritized by impact, specific fixes with before/after
examples, and quick wins you can implement today.
`, msg.URL, tierName(msg.Tier))
	if msg.Stats != nil {
		body += fmt.Sprintf("\nWe found %d issues. Your conversion score: %d/100.\n", msg.Stats.IssueCount, msg.Stats.Score)
	}
	body += "\nQuestions? Just reply to this email.\n\n- ConvertFix\n"
	return body
}

// Subject returns the tier-specific subject line.
func Subject(msg audit.Message) string {
	if msg.Stats != nil {
		return "Your ConvertFix Audit is Ready"
	}
	return fmt.Sprintf("Your %s Audit is Ready!", tierName(msg.Tier))
}

// AttachmentName names the PDF by tier.
func AttachmentName(tier audit.Tier) string {
	return fmt.Sprintf("convertfix-audit-%s.pdf", tier)
}

const legacyHTML = `<!DOCTYPE html>
<html>
  <head>
    <meta charset="utf-8">
    <style>
      body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
      .header { background: linear-gradient(135deg, #d55a0a 0%, #b84a08 100%); color: white; padding: 30px; border-radius: 8px; text-align: center; margin-bottom: 30px; }
      .header h1 { margin: 0; font-size: 24px; }
      .content { background: #f9fafb; padding: 30px; border-radius: 8px; margin-bottom: 20px; }
      .url { background: white; padding: 10px 15px; border-radius: 4px; border-left: 4px solid #d55a0a; margin: 20px 0; font-family: monospace; font-size: 14px; }
      .features { list-style: none; padding: 0; margin: 20px 0; }
      .features li { padding: 10px 0; padding-left: 30px; position: relative; }
      .features li:before { content: "\2713"; position: absolute; left: 0; color: #d55a0a; font-weight: bold; font-size: 18px; }
      .footer { text-align: center; color: #666; font-size: 14px; margin-top: 30px; padding-top: 20px; border-top: 1px solid #e5e7eb; }
    </style>
  </head>
  <body>
    <div class="header">
      <h1>Your ConvertFix Audit is Complete!</h1>
    </div>
    <div class="content">
      <p>Great news! We've finished analyzing your landing page and found actionable improvements that can boost your conversion rate.</p>
      <div class="url"><strong>Analyzed page:</strong> {{.URL}}</div>
      <p>Your <strong>{{.TierName}} Audit</strong> is attached as a PDF. Here's what's inside:</p>
      <ul class="features">
        <li>Conversion blockers prioritized by impact</li>
        <li>Specific fixes with before/after examples</li>
        <li>Quick wins you can implement today</li>
        {{if .Professional}}<li>Deep-dive analysis with psychological insights</li>{{end}}
      </ul>
      <p>Open the PDF to see your personalized recommendations.</p>
    </div>
    <div class="footer">
      <p>Questions? Just reply to this email.</p>
      <p>Good luck shipping!</p>
      <p><strong>- ConvertFix</strong></p>
    </div>
  </body>
</html>`

const statsHTML = `<!DOCTYPE html>
<html>
  <head>
    <meta charset="utf-8">
    <style>
      body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #e5e7eb; background: #111827; max-width: 600px; margin: 0 auto; padding: 20px; }
      .header { background: linear-gradient(135deg, #1a1a1a 0%, #2d2d2d 100%); color: white; padding: 30px; border-radius: 8px; text-align: center; margin-bottom: 30px; border: 1px solid #374151; }
      .header h1 { margin: 0; font-size: 24px; color: #FF6B2C; }
      .content { background: #1f2937; padding: 30px; border-radius: 8px; margin-bottom: 20px; }
      .url { background: #111827; padding: 10px 15px; border-radius: 4px; border-left: 4px solid #FF6B2C; margin: 20px 0; font-family: monospace; font-size: 14px; color: #e5e7eb; }
      .stats { display: table; width: 100%; margin: 20px 0; }
      .stat { display: table-cell; text-align: center; padding: 16px; }
      .stat-value { font-size: 36px; font-weight: 800; color: #FF6B2C; }
      .stat-label { font-size: 12px; color: #9ca3af; text-transform: uppercase; }
      .footer { text-align: center; color: #6b7280; font-size: 14px; margin-top: 30px; padding-top: 20px; border-top: 1px solid #374151; }
    </style>
  </head>
  <body>
    <div class="header">
      <h1>Your ConvertFix Audit is Ready</h1>
    </div>
    <div class="content">
      <p>We've finished your <strong>{{.TierName}} Audit</strong>. The full report is attached as a PDF.</p>
      <div class="url"><strong>Analyzed page:</strong> {{.URL}}</div>
      <div class="stats">
        <div class="stat">
          <div class="stat-value">{{.IssueCount}}</div>
          <div class="stat-label">Issues Found</div>
        </div>
        <div class="stat">
          <div class="stat-value">{{.Score}}/100</div>
          <div class="stat-label">Conversion Score</div>
        </div>
      </div>
      <p>Every issue comes with a specific fix and a before/after example you can implement today.</p>
    </div>
    <div class="footer">
      <p>Questions? Just reply to this email.</p>
      <p><strong>- ConvertFix</strong></p>
    </div>
  </body>
</html>`
