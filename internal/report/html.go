// Package report renders audit results into the customer-facing PDF.
package report

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/convertfix/audit-service/internal/audit"
)

// ScoreColor maps an overall score to the cover traffic-light color.
func ScoreColor(score int) string {
	switch {
	case score >= 76:
		return "#10b981"
	case score >= 51:
		return "#f59e0b"
	default:
		return "#ef4444"
	}
}

type issueView struct {
	audit.Issue
	Badge      string
	BadgeClass string
}

type templateData struct {
	L          Labels
	URL        string
	Tier       string
	Date       string
	Score      int
	ScoreColor template.CSS
	P0Count    int
	P1Count    int
	TopP0      []issueView
	RestP0     []issueView
	P1         []issueView
	QuickWins  []audit.QuickWin
}

var reportTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"upper": strings.ToUpper,
	"dict_issue": func(view issueView, labels Labels) map[string]any {
		return map[string]any{"View": view, "L": labels}
	},
}).Parse(reportHTML))

// BuildHTML assembles the full report document: cover page, executive
// summary with the top three critical issues and quick wins, then detail
// pages for the remaining P0 issues and all P1 issues.
func BuildHTML(url string, result audit.Result, tier audit.Tier, locale audit.Locale, now time.Time) (string, error) {
	labels := LabelsFor(locale)
	p0, p1 := result.IssuesByPriority()

	data := templateData{
		L:          labels,
		URL:        url,
		Tier:       strings.ToUpper(string(tier)),
		Date:       FormatDate(now, locale),
		Score:      result.OverallScore,
		ScoreColor: template.CSS("color: " + ScoreColor(result.OverallScore)),
		P0Count:    len(p0),
		P1Count:    len(p1),
		QuickWins:  result.QuickWins,
	}
	for i, issue := range p0 {
		view := issueView{Issue: issue, Badge: labels.CriticalBadge, BadgeClass: "priority-p0"}
		if i < 3 {
			data.TopP0 = append(data.TopP0, view)
		} else {
			data.RestP0 = append(data.RestP0, view)
		}
	}
	for _, issue := range p1 {
		data.P1 = append(data.P1, issueView{Issue: issue, Badge: labels.ImportantBadge, BadgeClass: "priority-p1"})
	}

	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute report template: %w", err)
	}
	return buf.String(), nil
}

const reportHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>ConvertFix Audit Report - {{.URL}}</title>
  <style>
    * { margin: 0; padding: 0; box-sizing: border-box; }
    body { font-family: system-ui, -apple-system, BlinkMacSystemFont, 'Segoe UI', sans-serif; color: #1f2937; line-height: 1.6; }
    .page { page-break-after: always; }
    .page:last-child { page-break-after: auto; }
    .cover { display: flex; flex-direction: column; justify-content: center; align-items: center; min-height: 100vh; text-align: center; background: linear-gradient(135deg, #1a1a1a 0%, #2d2d2d 100%); color: white; padding: 40px; }
    .cover-logo { font-size: 48px; font-weight: 800; margin-bottom: 20px; color: #FF6B2C; }
    .cover-title { font-size: 32px; font-weight: 700; margin-bottom: 40px; }
    .cover-url { font-size: 18px; color: #9ca3af; margin-bottom: 60px; word-break: break-all; }
    .cover-score { margin-bottom: 40px; }
    .score-label { font-size: 16px; color: #9ca3af; margin-bottom: 10px; text-transform: uppercase; letter-spacing: 2px; }
    .score-value { font-size: 120px; font-weight: 800; }
    .score-total { font-size: 32px; color: #6b7280; }
    .cover-tier { display: inline-block; padding: 12px 32px; background: #FF6B2C; color: white; border-radius: 8px; font-size: 18px; font-weight: 600; text-transform: uppercase; margin-bottom: 40px; }
    .cover-date { font-size: 14px; color: #6b7280; }
    .header { background: #1a1a1a; color: white; padding: 30px 40px; margin-bottom: 40px; }
    .header-logo { font-size: 28px; font-weight: 800; color: #FF6B2C; margin-bottom: 10px; }
    .header-subtitle { font-size: 14px; color: #9ca3af; }
    .section { margin-bottom: 40px; padding: 0 40px; }
    h1 { font-size: 32px; font-weight: 700; margin-bottom: 20px; color: #1a1a1a; }
    h2 { font-size: 24px; font-weight: 700; margin-bottom: 16px; color: #1a1a1a; }
    .priority-p0 { color: #ef4444; font-weight: 700; }
    .priority-p1 { color: #f59e0b; font-weight: 700; }
    .issue { background: white; border: 2px solid #e5e7eb; border-radius: 8px; padding: 24px; margin-bottom: 24px; page-break-inside: avoid; }
    .issue-header { display: flex; align-items: center; gap: 12px; margin-bottom: 16px; }
    .issue-id { font-size: 12px; color: #6b7280; font-weight: 600; }
    .issue-category { display: inline-block; padding: 4px 12px; background: #f3f4f6; color: #374151; border-radius: 4px; font-size: 12px; font-weight: 600; text-transform: uppercase; }
    .issue-title { font-size: 18px; font-weight: 700; color: #1f2937; margin-bottom: 12px; }
    .issue-impact { background: #fef3c7; border-left: 4px solid #f59e0b; padding: 12px 16px; margin-bottom: 16px; font-size: 14px; color: #92400e; }
    .issue-fix { font-size: 14px; color: #374151; margin-bottom: 16px; font-weight: 600; }
    .examples { display: grid; grid-template-columns: 1fr 1fr; gap: 16px; margin-top: 16px; }
    .example { border-radius: 6px; padding: 16px; page-break-inside: avoid; }
    .example-label { font-size: 11px; font-weight: 700; text-transform: uppercase; letter-spacing: 1px; margin-bottom: 8px; }
    .example-text { font-size: 13px; font-family: 'Monaco', 'Consolas', monospace; line-height: 1.6; }
    .example-before { background: #f9fafb; border: 2px solid #d1d5db; }
    .example-before .example-label { color: #6b7280; }
    .example-before .example-text { color: #374151; }
    .example-after { background: #d1fae5; border: 2px solid #10b981; }
    .example-after .example-label { color: #047857; }
    .example-after .example-text { color: #065f46; font-weight: 600; }
    .quick-win { background: white; border: 2px solid #fbbf24; border-radius: 8px; padding: 20px; margin-bottom: 16px; page-break-inside: avoid; }
    .quick-win-header { display: flex; align-items: center; justify-content: space-between; margin-bottom: 12px; }
    .quick-win-title { font-size: 16px; font-weight: 600; color: #1f2937; }
    .quick-win-badges { display: flex; gap: 8px; }
    .badge { padding: 4px 12px; border-radius: 4px; font-size: 11px; font-weight: 700; text-transform: uppercase; }
    .badge-effort { background: #dbeafe; color: #1e40af; }
    .badge-impact-high { background: #dcfce7; color: #166534; }
    .badge-impact-medium { background: #fef3c7; color: #92400e; }
    .badge-impact-low { background: #f3f4f6; color: #374151; }
    .summary-stats { display: grid; grid-template-columns: repeat(3, 1fr); gap: 20px; margin-bottom: 40px; }
    .stat { background: white; border: 2px solid #e5e7eb; border-radius: 8px; padding: 20px; text-align: center; }
    .stat-value { font-size: 48px; font-weight: 800; margin-bottom: 8px; }
    .stat-label { font-size: 12px; color: #6b7280; text-transform: uppercase; letter-spacing: 1px; }
    .footer { margin-top: 60px; padding: 20px 40px; text-align: center; color: #9ca3af; font-size: 12px; border-top: 2px solid #e5e7eb; }
    .footer strong { color: #FF6B2C; }
  </style>
</head>
<body>
  <div class="page cover">
    <div class="cover-logo">ConvertFix</div>
    <div class="cover-title">{{.L.ReportTitle}}</div>
    <div class="cover-url">{{.URL}}</div>
    <div class="cover-score">
      <div class="score-label">{{.L.ScoreLabel}}</div>
      <div>
        <span class="score-value" style="{{.ScoreColor}}">{{.Score}}</span>
        <span class="score-total">/100</span>
      </div>
    </div>
    <div class="cover-tier">{{.Tier}} {{.L.TierLabel}}</div>
    <div class="cover-date">{{.L.GeneratedOn}} {{.Date}}</div>
  </div>

  <div class="page">
    <div class="header">
      <div class="header-logo">ConvertFix</div>
      <div class="header-subtitle">{{.L.ExecutiveSummary}}</div>
    </div>
    <div class="section">
      <h1>{{.L.Overview}}</h1>
      <div class="summary-stats">
        <div class="stat">
          <div class="stat-value" style="color: #ef4444;">{{.P0Count}}</div>
          <div class="stat-label">{{.L.CriticalIssues}}</div>
        </div>
        <div class="stat">
          <div class="stat-value" style="color: #f59e0b;">{{.P1Count}}</div>
          <div class="stat-label">{{.L.ImportantIssues}}</div>
        </div>
        <div class="stat">
          <div class="stat-value" style="color: #10b981;">{{len .QuickWins}}</div>
          <div class="stat-label">{{.L.QuickWins}}</div>
        </div>
      </div>

      <h2>{{.L.TopCritical}}</h2>
      {{range .TopP0}}{{template "issue" (dict_issue . $.L)}}{{end}}

      <h2>{{.L.QuickWinsToday}}</h2>
      {{range .QuickWins}}
      <div class="quick-win">
        <div class="quick-win-header">
          <div class="quick-win-title">{{.Change}}</div>
          <div class="quick-win-badges">
            <span class="badge badge-effort">{{.Effort}}</span>
            <span class="badge badge-impact-{{.Impact}}">{{upper .Impact}} {{$.L.Impact}}</span>
          </div>
        </div>
      </div>
      {{end}}
    </div>
    <div class="footer"><strong>ConvertFix</strong> &bull; {{.L.FooterTagline}} &bull; {{.L.GeneratedOn}} {{.Date}}</div>
  </div>

  {{if .RestP0}}
  <div class="page">
    <div class="header">
      <div class="header-logo">ConvertFix</div>
      <div class="header-subtitle">{{.L.CriticalIssues}} - {{.L.DetailedAnalysis}}</div>
    </div>
    <div class="section">
      <h1>{{.L.AllCritical}}</h1>
      {{range .RestP0}}{{template "issue" (dict_issue . $.L)}}{{end}}
    </div>
    <div class="footer"><strong>ConvertFix</strong> &bull; {{.L.FooterTagline}} &bull; {{.L.GeneratedOn}} {{.Date}}</div>
  </div>
  {{end}}

  {{if .P1}}
  <div class="page">
    <div class="header">
      <div class="header-logo">ConvertFix</div>
      <div class="header-subtitle">{{.L.ImportantIssues}} - {{.L.DetailedAnalysis}}</div>
    </div>
    <div class="section">
      <h1>{{.L.ImportantHeader}}</h1>
      {{range .P1}}{{template "issue" (dict_issue . $.L)}}{{end}}
    </div>
    <div class="footer"><strong>ConvertFix</strong> &bull; {{.L.FooterTagline}} &bull; {{.L.GeneratedOn}} {{.Date}}</div>
  </div>
  {{end}}
</body>
</html>
{{define "issue"}}
<div class="issue">
  <div class="issue-header">
    <span class="issue-id">{{upper .View.ID}}</span>
    <span class="{{.View.BadgeClass}}">&#9679; {{.View.Badge}}</span>
    <span class="issue-category">{{.View.Category}}</span>
  </div>
  <div class="issue-title">{{.View.Issue.Issue}}</div>
  <div class="issue-impact">{{.View.Impact}}</div>
  <div class="issue-fix"><strong>{{.L.Fix}}</strong> {{.View.Fix}}</div>
  <div class="examples">
    <div class="example example-before">
      <div class="example-label">{{.L.Before}}</div>
      <div class="example-text">{{.View.BeforeExample}}</div>
    </div>
    <div class="example example-after">
      <div class="example-label">{{.L.After}}</div>
      <div class="example-text">{{.View.AfterExample}}</div>
    </div>
  </div>
</div>
{{end}}`
