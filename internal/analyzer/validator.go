package analyzer

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/convertfix/audit-service/internal/audit"
)

// Placeholder fragments that mark an afterExample as non-actionable.
// Matching any of them is a hard failure, not a warning.
var placeholderPatterns = []string{
	"[",
	"your benefit",
	"better version",
	"improved",
	"current text",
	"example text",
}

var genericBeforePhrases = []string{"current text", "your text", "generic", "placeholder"}

var quotingIndicators = []string{
	"your h1", "your h2", "your cta", "your heading", "your page title",
	"your meta description", "says:", "reads:", "states:", "button text is",
	"missing:", "no h1", "no h2",
}

var (
	numberPattern = regexp.MustCompile(`\d+`)
	liftPattern   = regexp.MustCompile(`(?i)lift|expected|\d+%|increase|improve`)
)

// ValidateResult parses the raw model output and enforces the result
// contract. Structural defects and placeholder text fail hard; softer
// quality problems come back as warnings so a run is never blocked on
// model style.
func ValidateResult(raw string, tier audit.Tier) (audit.Result, []string, error) {
	var envelope struct {
		OverallScore *float64        `json:"overallScore"`
		Problems     json.RawMessage `json:"problems"`
		QuickWins    json.RawMessage `json:"quickWins"`
	}
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
		return audit.Result{}, nil, fmt.Errorf("invalid JSON from model: %w", err)
	}

	if envelope.OverallScore == nil {
		return audit.Result{}, nil, fmt.Errorf("missing or invalid overallScore")
	}
	if len(envelope.Problems) == 0 {
		return audit.Result{}, nil, fmt.Errorf("missing or invalid problems array")
	}
	if len(envelope.QuickWins) == 0 {
		return audit.Result{}, nil, fmt.Errorf("missing or invalid quickWins array")
	}

	var problems []audit.Issue
	if err := json.Unmarshal(envelope.Problems, &problems); err != nil {
		return audit.Result{}, nil, fmt.Errorf("missing or invalid problems array: %w", err)
	}
	// A JSON null unmarshals into a nil slice without an error.
	if problems == nil {
		return audit.Result{}, nil, fmt.Errorf("missing or invalid problems array")
	}
	var quickWins []audit.QuickWin
	if err := json.Unmarshal(envelope.QuickWins, &quickWins); err != nil {
		return audit.Result{}, nil, fmt.Errorf("missing or invalid quickWins array: %w", err)
	}
	if quickWins == nil {
		return audit.Result{}, nil, fmt.Errorf("missing or invalid quickWins array")
	}

	var warnings []string
	expected := tier.IssueTarget()
	if len(problems) < expected-2 {
		warnings = append(warnings, fmt.Sprintf("expected %d issues, got %d", expected, len(problems)))
	}

	for i, issue := range problems {
		if issue.ID == "" || issue.Priority == "" || issue.Category == "" {
			return audit.Result{}, nil, fmt.Errorf("issue #%d missing required fields (id, priority, category)", i+1)
		}
		if issue.Issue == "" || issue.Impact == "" || issue.Fix == "" {
			return audit.Result{}, nil, fmt.Errorf("issue #%d missing description fields (issue, impact, fix)", i+1)
		}
		if len(issue.BeforeExample) < 20 {
			return audit.Result{}, nil, fmt.Errorf(
				"issue %s beforeExample missing or too short, must contain exact quoted text from the page (min 20 chars), got %q",
				issue.ID, issue.BeforeExample)
		}
		if len(issue.AfterExample) < 20 {
			return audit.Result{}, nil, fmt.Errorf(
				"issue %s afterExample missing or too short, must contain a specific rewrite (min 20 chars), got %q",
				issue.ID, issue.AfterExample)
		}

		lowerAfter := strings.ToLower(issue.AfterExample)
		for _, pattern := range placeholderPatterns {
			if strings.Contains(lowerAfter, pattern) {
				return audit.Result{}, nil, fmt.Errorf(
					"issue %s afterExample contains placeholder pattern %q, must be a specific rewrite, got %q",
					issue.ID, pattern, issue.AfterExample)
			}
		}

		if !hasQuotingIndicator(issue.BeforeExample) {
			warnings = append(warnings, fmt.Sprintf(
				"issue %s beforeExample might not be quoting actual page text: %q", issue.ID, issue.BeforeExample))
		}
	}

	result := audit.Result{
		OverallScore: int(*envelope.OverallScore),
		Problems:     problems,
		QuickWins:    quickWins,
	}
	warnings = append(warnings, qualityWarnings(result, tier)...)
	return result, warnings, nil
}

func hasQuotingIndicator(before string) bool {
	lower := strings.ToLower(before)
	for _, indicator := range quotingIndicators {
		if strings.Contains(lower, indicator) {
			return true
		}
	}
	return strings.ContainsAny(before, `"'`)
}

// qualityWarnings runs the soft checks: generic phrasing, missing
// numbers, duplicate quotes and priority distribution.
func qualityWarnings(result audit.Result, tier audit.Tier) []string {
	var warnings []string

	for _, issue := range result.Problems {
		lowerBefore := strings.ToLower(issue.BeforeExample)
		for _, phrase := range genericBeforePhrases {
			if strings.Contains(lowerBefore, phrase) {
				warnings = append(warnings, fmt.Sprintf(
					"issue %s has potentially generic beforeExample: %q", issue.ID, issue.BeforeExample))
			}
		}
		if !numberPattern.MatchString(issue.Impact) {
			warnings = append(warnings, fmt.Sprintf(
				"issue %s impact lacks specific numbers or percentages: %q", issue.ID, issue.Impact))
		}
	}

	for i, win := range result.QuickWins {
		if !liftPattern.MatchString(win.Change) {
			warnings = append(warnings, fmt.Sprintf(
				"quick win #%d lacks expected impact measurement: %q", i+1, win.Change))
		}
	}

	seen := make(map[string]bool, len(result.Problems))
	duplicates := 0
	for _, issue := range result.Problems {
		if seen[issue.BeforeExample] {
			duplicates++
		}
		seen[issue.BeforeExample] = true
	}
	if duplicates > 0 {
		warnings = append(warnings, fmt.Sprintf(
			"found %d duplicate beforeExample texts, model might be reusing quotes", duplicates))
	}

	if tier == audit.TierProfessional {
		p0, p1 := result.IssuesByPriority()
		if len(p0) == 0 {
			warnings = append(warnings, "no P0 issues found in professional audit")
		}
		if len(p1) == 0 {
			warnings = append(warnings, "no P1 issues found in professional audit")
		}
		if abs(len(p0)-10) > 3 || abs(len(p1)-10) > 3 {
			warnings = append(warnings, fmt.Sprintf(
				"priority distribution off target (P0: %d, P1: %d), expected ~10 P0 + ~10 P1", len(p0), len(p1)))
		}
	}
	return warnings
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
