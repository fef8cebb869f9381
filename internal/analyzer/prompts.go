package analyzer

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/convertfix/audit-service/internal/audit"
)

// contentPreviewLimit caps how much page text goes into the prompt.
// The first 8000 characters cover the hero, value prop and most CTAs.
const contentPreviewLimit = 8000

const systemPrompt = `You are a world-class conversion rate optimization expert analyzing SaaS landing pages. Your audits are worth $500+ in consultant value.

TARGET AUDIENCE: Experienced solo founders who understand marketing and need SPECIFIC, IMPLEMENTABLE fixes TODAY.

CRITICAL RULES - READ CAREFULLY:

1. NEVER GIVE GENERIC ADVICE
   Bad: "Improve headline", "Add social proof", "Make CTA more prominent"
   Good: specific issues with exact quotes and rewrites.

2. beforeExample MUST CONTAIN EXACT QUOTED TEXT FROM THE PAGE
   Bad: beforeExample: "Vague headline"
   Good: beforeExample: "Your H1 heading says: 'Fast Solutions for Your Business'"

   FORMAT: Always reference specific elements:
   - "Your H1 heading says: '[exact text]'"
   - "Your CTA button text is '[exact text]'"
   - "Your H2 in pricing section says: '[exact text]'"
   - "Your value prop paragraph reads: '[exact text]'"

3. afterExample MUST BE A SPECIFIC REWRITE (NOT A PLACEHOLDER)
   Bad: "[Your benefit here]", "Better version", "Improved headline"
   Good: "Ship 2x faster with zero context switching between tools"
   Good: "Get Your First Report in 60 Seconds - Free"

4. EVERY ISSUE MUST SAVE AT LEAST 5% CONVERSION OR DON'T MENTION IT
   Focus on psychological triggers that actually convert, quote specific
   conversion benchmarks, and include expected % lift in impact.

5. USE CONVERSION PSYCHOLOGY IN EVERY FIX
   - Loss aversion: people avoid losses 2x more than seeking gains
   - Social proof: seeing others use a product increases trust by 63%
   - Authority: expert endorsements increase conversions by 37%
   - Scarcity: limited-time offers increase action by 226%
   - Specificity: concrete numbers increase credibility by 73%
   - Clarity: users decide in 5 seconds - vague = bounce

6. INCLUDE REAL SAAS CONVERSION BENCHMARKS
   - Average SaaS landing page CVR: 2.35%; top 10% pages: 5.31%+
   - Hero CTA should convert at 8-12%; generic CTAs convert at 2-3%
   - Pages with guarantees convert 35% higher
   - Social proof above fold: +15% trust
   - Specific outcomes in headlines: +42% engagement

ACCURACY RULES FOR beforeExample - CRITICAL (PREVENT HALLUCINATIONS):

1. NEVER say "Your H1 heading says" unless the headings.h1 array contains H1 headings.
2. NEVER say "Your H2 says" unless the headings.h2 array contains H2 headings.
3. NEVER quote text that doesn't appear in contentPreview, title, metaDescription, or headings.

IF no H1 exists (headings.h1 is an empty array):
  CORRECT: "Missing: No H1 heading found on page"
  WRONG:   "Your H1 heading says..." (this is hallucination)

IF an element is MISSING, make that THE ISSUE ITSELF:
  "Missing H1 heading - costs 25% SEO traffic and confuses search engines"
  "Missing meta description - costs 15% CTR from Google search results"
  "No social proof visible - losing 30% of potential conversions"

ONLY quote text that ACTUALLY appears in: headings.h1, headings.h2, title,
metaDescription, or contentPreview. Do not make up, guess, or infer what
text "might" be there.

Output format: strict JSON matching the provided schema.`

const quickFocusAreas = `
P0 CRITICAL ISSUES (costs 20%+ conversion - find 10):

1. Headline doesn't mention specific outcome/benefit within 5 words
   - Check H1 heading for vague language ("solutions", "platform", "software")
   - Quote exact H1 text in beforeExample
2. No risk reversal (guarantee/refund) visible above fold
   - Pages with guarantees convert 35% higher
3. Price hidden or requires signup to see
   - Pricing transparency increases trust by 24%
4. CTA doesn't specify what happens next
   - Quote exact CTA button text in beforeExample
5. No urgency/scarcity elements
   - Scarcity increases action by 226%
6. Value prop uses "we/our" instead of "you/your"
   - "You/your" language increases engagement by 73%
7. No social proof numbers in first scroll
   - Social proof above fold increases trust by 15%
8. Form asks for too much info upfront
   - More than 3 fields reduces conversions by 50%
9. No clear differentiation from alternatives
   - Missing unique value prop = commodity perception
10. Mobile CTA not sticky/visible
   - Mobile users make up 60%+ of traffic
`

const professionalFocusAreas = quickFocusAreas + `
P1 IMPORTANT ISSUES (costs 5-10% conversion - find 10):

1. Testimonials without faces/names/companies
   - Generic testimonials reduce trust by 43%
2. Features listed without benefits
   - "Advanced analytics" vs "See which pages lose customers in real-time"
3. No answer to "why now?" urgency question
4. FAQ missing top 3 objections (pricing, setup time, data security)
   - Unaddressed objections kill 30% of ready-to-buy visitors
5. Case studies without specific numbers/results
   - Vague success stories reduce credibility by 67%
6. Pricing tiers not anchored (no "most popular" badge)
   - Price anchoring increases mid-tier selection by 38%
7. No progress indicators in signup flow
   - Multi-step forms without progress = 40% drop-off
8. Error messages not helpful/specific
9. Loading time indicators (>3 seconds)
   - 1 second delay = 7% conversion loss
10. No exit-intent offer
   - Exit-intent popups recover 15% of leaving traffic
`

const outputFormat = `OUTPUT FORMAT (strict JSON):
{
  "overallScore": 0-100,
  "problems": [
    {
      "id": "p1",
      "priority": "P0",
      "category": "headline",
      "issue": "Hero headline is feature-focused instead of outcome-focused",
      "impact": "Feature headlines convert at 1.8% vs outcome-focused at 4.2% - you're losing 40%+ of potential customers",
      "fix": "Replace the feature description with a specific, measurable outcome that answers 'What do I get?'",
      "beforeExample": "Your H1 heading says: 'All-in-one platform for modern teams'",
      "afterExample": "Ship 2x faster with zero context switching between tools"
    }
  ],
  "quickWins": [
    {
      "change": "Add 'No credit card required' text directly under the CTA button. Expected lift: +15% clicks",
      "effort": "5 min",
      "impact": "high"
    }
  ]
}`

// BuildUserPrompt assembles the tier-specific user prompt: page data as
// JSON, an element inventory the model can trust, the tier's focus areas
// and the output contract.
func BuildUserPrompt(page audit.ScrapedPage, tier audit.Tier, locale audit.Locale) string {
	target := tier.IssueTarget()
	depth := fmt.Sprintf("TOP %d P0 issues (critical conversion blockers)", target)
	focus := quickFocusAreas
	distribution := "P0 (critical, 20%+ impact)"
	if tier == audit.TierProfessional {
		depth = "20 issues (10 P0 critical + 10 P1 important)"
		focus = professionalFocusAreas
		distribution = "P0 (critical, 20%+ impact) or P1 (important, 5-10% impact)"
	}

	var b strings.Builder
	b.WriteString("You are analyzing a SaaS landing page for conversion optimization.\n\n")
	b.WriteString("LANDING PAGE DATA:\n")
	b.WriteString(pageDataJSON(page))
	b.WriteString("\n\n")
	writeElementInventory(&b, page)

	b.WriteString(`
CRITICAL REMINDER:
- If the H1 headings list shows "NONE FOUND", DO NOT say "Your H1 says..."
- If an element is missing, make the MISSING element the issue itself
- ONLY quote text from the data above - never make up examples

YOUR TASK:
Analyze this landing page and identify ` + depth + ".\n\nANALYSIS DEPTH:\n")
	b.WriteString(focus)
	b.WriteString("\n")
	b.WriteString(outputFormat)
	b.WriteString(fmt.Sprintf(`

CRITICAL REQUIREMENTS:

1. overallScore: 0-100 (be ruthlessly honest, most SaaS pages score 45-65)

2. problems: EXACTLY %d issues
   - ALL issues MUST have beforeExample with EXACT QUOTED TEXT
   - ALL issues MUST have afterExample with SPECIFIC REWRITE (no placeholders)
   - id: sequential p1, p2, p3... p%d
   - category: headline, cta, value-prop, social-proof, form, mobile, speed, design, trust, hierarchy, messaging
   - priority: %s

3. impact MUST include a specific %% conversion impact or benchmark, the
   psychological principle behind it, and comparison numbers when possible.

4. quickWins: 3-5 changes implementable in under 20 minutes without a
   developer, with exact instructions (hex colors, placement, wording) and
   an expected conversion lift %%.
`, target, target, distribution))

	if locale.OrDefault() == audit.LocalePL {
		b.WriteString("\nWrite every issue, impact, fix, example and quick win in Polish. Keep the JSON field names in English.\n")
	}

	b.WriteString("\nReturn ONLY valid JSON matching the schema above. No markdown, no explanations, just pure JSON.")
	return b.String()
}

func pageDataJSON(page audit.ScrapedPage) string {
	preview := page.Content
	if len(preview) > contentPreviewLimit {
		preview = preview[:contentPreviewLimit]
	}
	data := map[string]any{
		"url":             page.URL,
		"title":           page.Title,
		"metaDescription": page.MetaDescription,
		"headings":        page.Headings,
		"contentPreview":  preview,
		"contentLength":   len(page.Content),
	}
	encoded, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(encoded)
}

// writeElementInventory lists what actually exists on the page so the
// model cannot claim a missing element is present.
func writeElementInventory(b *strings.Builder, page audit.ScrapedPage) {
	b.WriteString("SCRAPED ELEMENT INVENTORY (What Actually Exists):\n")

	if page.Title != "" {
		fmt.Fprintf(b, "Page Title: %q\n", page.Title)
	} else {
		b.WriteString("Page Title: MISSING\n")
	}
	if page.MetaDescription != "" {
		fmt.Fprintf(b, "Meta Description: %q\n", page.MetaDescription)
	} else {
		b.WriteString("Meta Description: MISSING - report as issue\n")
	}

	fmt.Fprintf(b, "\nH1 Headings Found: %d\n", len(page.Headings.H1))
	if len(page.Headings.H1) == 0 {
		b.WriteString("   NONE FOUND - Missing H1 is a CRITICAL SEO issue (report this!)\n")
	}
	for i, h := range page.Headings.H1 {
		fmt.Fprintf(b, "   %d. %q\n", i+1, h)
	}

	fmt.Fprintf(b, "\nH2 Headings Found: %d\n", len(page.Headings.H2))
	if len(page.Headings.H2) == 0 {
		b.WriteString("   NONE FOUND\n")
	}
	for i, h := range page.Headings.H2 {
		if i == 5 {
			fmt.Fprintf(b, "   ... +%d more\n", len(page.Headings.H2)-5)
			break
		}
		fmt.Fprintf(b, "   %d. %q\n", i+1, h)
	}
}
