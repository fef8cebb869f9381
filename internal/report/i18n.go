package report

import (
	"time"

	"github.com/convertfix/audit-service/internal/audit"
)

// Labels holds every human-visible string of the report.
type Labels struct {
	ReportTitle      string
	ScoreLabel       string
	TierLabel        string
	GeneratedOn      string
	ExecutiveSummary string
	Overview         string
	CriticalIssues   string
	ImportantIssues  string
	QuickWins        string
	TopCritical      string
	QuickWinsToday   string
	AllCritical      string
	ImportantHeader  string
	CriticalBadge    string
	ImportantBadge   string
	Before           string
	After            string
	Fix              string
	Impact           string
	FooterTagline    string
	DetailedAnalysis string
}

var labelsEN = Labels{
	ReportTitle:      "Landing Page Audit Report",
	ScoreLabel:       "Conversion Score",
	TierLabel:        "TIER",
	GeneratedOn:      "Generated on",
	ExecutiveSummary: "Executive Summary",
	Overview:         "Overview",
	CriticalIssues:   "Critical Issues (P0)",
	ImportantIssues:  "Important Issues (P1)",
	QuickWins:        "Quick Wins",
	TopCritical:      "Top 3 Critical Issues",
	QuickWinsToday:   "Quick Wins (Implement Today!)",
	AllCritical:      "All Critical Issues",
	ImportantHeader:  "Important Issues",
	CriticalBadge:    "CRITICAL",
	ImportantBadge:   "IMPORTANT",
	Before:           "Before",
	After:            "After",
	Fix:              "Fix:",
	Impact:           "impact",
	FooterTagline:    "Professional Landing Page Audits",
	DetailedAnalysis: "Detailed Analysis",
}

var labelsPL = Labels{
	ReportTitle:      "Raport audytu strony docelowej",
	ScoreLabel:       "Wynik konwersji",
	TierLabel:        "PAKIET",
	GeneratedOn:      "Wygenerowano",
	ExecutiveSummary: "Podsumowanie",
	Overview:         "Przegląd",
	CriticalIssues:   "Problemy krytyczne (P0)",
	ImportantIssues:  "Problemy ważne (P1)",
	QuickWins:        "Szybkie usprawnienia",
	TopCritical:      "3 najważniejsze problemy krytyczne",
	QuickWinsToday:   "Szybkie usprawnienia (wdróż dziś!)",
	AllCritical:      "Wszystkie problemy krytyczne",
	ImportantHeader:  "Problemy ważne",
	CriticalBadge:    "KRYTYCZNY",
	ImportantBadge:   "WAŻNY",
	Before:           "Przed",
	After:            "Po",
	Fix:              "Poprawka:",
	Impact:           "wpływ",
	FooterTagline:    "Profesjonalne audyty stron docelowych",
	DetailedAnalysis: "Analiza szczegółowa",
}

// LabelsFor returns the label set for a locale, defaulting to English.
func LabelsFor(locale audit.Locale) Labels {
	if locale.OrDefault() == audit.LocalePL {
		return labelsPL
	}
	return labelsEN
}

// FormatDate renders the report date in the locale's convention.
func FormatDate(t time.Time, locale audit.Locale) string {
	if locale.OrDefault() == audit.LocalePL {
		return t.Format("02.01.2006")
	}
	return t.Format("January 2, 2006")
}
