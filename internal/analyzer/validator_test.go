package analyzer

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/convertfix/audit-service/internal/audit"
)

func makeIssue(i int, priority audit.IssuePriority) audit.Issue {
	return audit.Issue{
		ID:            fmt.Sprintf("p%d", i),
		Priority:      priority,
		Category:      "headline",
		Issue:         "Hero headline is feature-focused instead of outcome-focused",
		Impact:        "Feature headlines convert at 1.8% vs outcome-focused at 4.2%",
		Fix:           "Replace the feature description with a specific outcome",
		BeforeExample: fmt.Sprintf("Your H1 heading says: 'All-in-one platform %d'", i),
		AfterExample:  fmt.Sprintf("Ship 2x faster with zero context switching %d", i),
	}
}

func makeResultJSON(t *testing.T, issueCount int, p1From int) string {
	t.Helper()
	result := audit.Result{
		OverallScore: 55,
		QuickWins: []audit.QuickWin{
			{Change: "Add 'No credit card required' under the CTA. Expected lift: +15%", Effort: "5 min", Impact: "high"},
		},
	}
	for i := 1; i <= issueCount; i++ {
		priority := audit.PriorityP0
		if p1From > 0 && i >= p1From {
			priority = audit.PriorityP1
		}
		result.Problems = append(result.Problems, makeIssue(i, priority))
	}
	encoded, err := json.Marshal(result)
	require.NoError(t, err)
	return string(encoded)
}

func TestValidateResultAcceptsWellFormed(t *testing.T) {
	t.Parallel()

	raw := makeResultJSON(t, 10, 0)
	result, warnings, err := ValidateResult(raw, audit.TierQuick)
	require.NoError(t, err)
	require.Equal(t, 55, result.OverallScore)
	require.Len(t, result.Problems, 10)
	require.Empty(t, warnings)
}

func TestValidateResultIsDeterministic(t *testing.T) {
	t.Parallel()

	raw := makeResultJSON(t, 20, 11)
	first, firstWarnings, err := ValidateResult(raw, audit.TierProfessional)
	require.NoError(t, err)
	second, secondWarnings, err := ValidateResult(raw, audit.TierProfessional)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, firstWarnings, secondWarnings)
}

func TestValidateResultRejectsBadJSON(t *testing.T) {
	t.Parallel()

	_, _, err := ValidateResult("not json at all", audit.TierQuick)
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid JSON")
}

func TestValidateResultRejectsMissingStructure(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"no score":         `{"problems":[],"quickWins":[]}`,
		"no problems":      `{"overallScore":50,"quickWins":[]}`,
		"no quick wins":    `{"overallScore":50,"problems":[]}`,
		"null problems":    `{"overallScore":55,"problems":null,"quickWins":[]}`,
		"null quick wins":  `{"overallScore":55,"problems":[],"quickWins":null}`,
		"both null":        `{"overallScore":55,"problems":null,"quickWins":null}`,
		"problems not arr": `{"overallScore":55,"problems":{"a":1},"quickWins":[]}`,
	}
	for name, raw := range cases {
		_, _, err := ValidateResult(raw, audit.TierQuick)
		require.Error(t, err, name)
	}
}

func TestValidateResultRejectsPlaceholderAfterExample(t *testing.T) {
	t.Parallel()

	for _, placeholder := range []string{
		"[Your benefit here] padded to minimum length",
		"A better version of the current headline text",
		"This is the improved headline for your hero",
	} {
		result := audit.Result{OverallScore: 50, QuickWins: []audit.QuickWin{{Change: "x", Effort: "5 min", Impact: "low"}}}
		issue := makeIssue(1, audit.PriorityP0)
		issue.AfterExample = placeholder
		result.Problems = []audit.Issue{issue}
		encoded, err := json.Marshal(result)
		require.NoError(t, err)

		_, _, err = ValidateResult(string(encoded), audit.TierQuick)
		require.Error(t, err, placeholder)
		require.Contains(t, err.Error(), "placeholder")
	}
}

func TestValidateResultRejectsShortExamples(t *testing.T) {
	t.Parallel()

	result := audit.Result{OverallScore: 50, QuickWins: []audit.QuickWin{{Change: "x", Effort: "5 min", Impact: "low"}}}
	issue := makeIssue(1, audit.PriorityP0)
	issue.BeforeExample = "too short"
	result.Problems = []audit.Issue{issue}
	encoded, err := json.Marshal(result)
	require.NoError(t, err)

	_, _, err = ValidateResult(string(encoded), audit.TierQuick)
	require.Error(t, err)
	require.Contains(t, err.Error(), "beforeExample")
}

func TestValidateResultWarnsOnLowCount(t *testing.T) {
	t.Parallel()

	raw := makeResultJSON(t, 5, 0)
	_, warnings, err := ValidateResult(raw, audit.TierQuick)
	require.NoError(t, err)
	require.NotEmpty(t, warnings)
	require.Contains(t, warnings[0], "expected 10 issues, got 5")
}

func TestValidateResultWarnsOnDuplicateQuotes(t *testing.T) {
	t.Parallel()

	result := audit.Result{OverallScore: 50, QuickWins: []audit.QuickWin{
		{Change: "Add guarantee badge. Expected lift: +5%", Effort: "5 min", Impact: "low"},
	}}
	for i := 1; i <= 10; i++ {
		issue := makeIssue(i, audit.PriorityP0)
		issue.BeforeExample = "Your H1 heading says: 'All-in-one platform'"
		result.Problems = append(result.Problems, issue)
	}
	encoded, err := json.Marshal(result)
	require.NoError(t, err)

	_, warnings, err := ValidateResult(string(encoded), audit.TierQuick)
	require.NoError(t, err)

	var found bool
	for _, w := range warnings {
		if w == "found 9 duplicate beforeExample texts, model might be reusing quotes" {
			found = true
		}
	}
	require.True(t, found, "warnings: %v", warnings)
}

func TestValidateResultWarnsOnSkewedProfessionalDistribution(t *testing.T) {
	t.Parallel()

	// 20 issues, all P0: distribution should be flagged.
	raw := makeResultJSON(t, 20, 0)
	_, warnings, err := ValidateResult(raw, audit.TierProfessional)
	require.NoError(t, err)

	var sawDistribution, sawNoP1 bool
	for _, w := range warnings {
		if w == "no P1 issues found in professional audit" {
			sawNoP1 = true
		}
		if strings.Contains(w, "priority distribution off target") {
			sawDistribution = true
		}
	}
	require.True(t, sawNoP1, "warnings: %v", warnings)
	require.True(t, sawDistribution, "warnings: %v", warnings)
}
