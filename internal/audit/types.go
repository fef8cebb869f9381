// Package audit defines core types shared across the pipeline subsystems.
package audit

import "time"

// Tier selects the audit depth: it determines both the LLM model and the
// fixed number of issues the analyzer asks for.
type Tier string

// Audit tiers accepted from intake and checkout metadata.
const (
	TierQuick        Tier = "quick"
	TierProfessional Tier = "professional"
)

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	return t == TierQuick || t == TierProfessional
}

// IssueTarget returns the number of issues the analyzer asks for at this tier.
func (t Tier) IssueTarget() int {
	if t == TierProfessional {
		return 20
	}
	return 10
}

// Locale selects the language of the report labels and of the prompt.
type Locale string

// Supported report locales.
const (
	LocaleEN Locale = "en"
	LocalePL Locale = "pl"
)

// OrDefault maps unknown or empty locales to English.
func (l Locale) OrDefault() Locale {
	if l == LocalePL {
		return LocalePL
	}
	return LocaleEN
}

// Job is one customer request to audit one URL. It is an immutable value
// passed by copy from intake, through the queue, into the worker; there is
// no in-process persistence of jobs.
type Job struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Email     string    `json:"email"`
	Tier      Tier      `json:"tier"`
	Locale    Locale    `json:"locale,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Headings holds the ordered heading texts extracted from a page. Both
// lists may legitimately be empty.
type Headings struct {
	H1 []string `json:"h1"`
	H2 []string `json:"h2"`
}

// ScrapedPage is the reader-API extraction of one landing page, consumed
// only by the analyzer. Absence of any field is a valid state, not an
// error; the analyzer must never claim an element exists that is not
// listed here.
type ScrapedPage struct {
	URL             string   `json:"url"`
	Title           string   `json:"title"`
	MetaDescription string   `json:"metaDescription"`
	Content         string   `json:"content"`
	Headings        Headings `json:"headings"`
}

// IssuePriority is the severity band of a finding. P0 issues are critical
// (>=20% estimated conversion impact), P1 important (5-10%).
type IssuePriority string

// Issue priorities.
const (
	PriorityP0 IssuePriority = "P0"
	PriorityP1 IssuePriority = "P1"
)

// IssueCategories is the closed set of categories the analyzer may assign.
var IssueCategories = []string{
	"headline", "cta", "value-prop", "social-proof", "form", "mobile",
	"speed", "design", "trust", "hierarchy", "messaging",
}

// Issue is one finding inside an audit result.
type Issue struct {
	ID            string        `json:"id"`
	Priority      IssuePriority `json:"priority"`
	Category      string        `json:"category"`
	Issue         string        `json:"issue"`
	Impact        string        `json:"impact"`
	Fix           string        `json:"fix"`
	BeforeExample string        `json:"beforeExample"`
	AfterExample  string        `json:"afterExample"`
}

// QuickWin is a lightweight recommendation attached to a result.
type QuickWin struct {
	Change string `json:"change"`
	Effort string `json:"effort"`
	Impact string `json:"impact"`
}

// Result is the complete analysis output for one job. It is created by the
// analyzer after validation and never mutated afterwards.
type Result struct {
	OverallScore int        `json:"overallScore"`
	Problems     []Issue    `json:"problems"`
	QuickWins    []QuickWin `json:"quickWins"`
}

// IssuesByPriority splits the problems into P0 and P1 bands, preserving order.
func (r Result) IssuesByPriority() (p0, p1 []Issue) {
	for _, issue := range r.Problems {
		if issue.Priority == PriorityP1 {
			p1 = append(p1, issue)
		} else {
			p0 = append(p0, issue)
		}
	}
	return p0, p1
}

// Stats summarizes one analyzer run. The mailer uses its presence to pick
// the richer email template; metrics uses it for token and cost tracking.
type Stats struct {
	Model       string        `json:"model"`
	TotalTokens int           `json:"totalTokens"`
	Duration    time.Duration `json:"duration"`
	IssueCount  int           `json:"issueCount"`
	Score       int           `json:"score"`
}

// CompletionRecord is what the ledger keeps per finished job.
type CompletionRecord struct {
	JobID       string
	URL         string
	Email       string
	Tier        Tier
	Score       int
	ReportURI   string
	CompletedAt time.Time
}
