package scraper

import (
	"net/url"
	"strings"

	"github.com/convertfix/audit-service/internal/audit"
)

const metaMaxLen = 160

// parseReaderContent extracts structured fields from the markdown the
// reader API returns. The reader emits ATX headings for most pages but
// Setext underlines show up on older sites, so both forms are handled.
func parseReaderContent(rawURL, content string) audit.ScrapedPage {
	lines := strings.Split(content, "\n")

	var (
		title    string
		headings audit.Headings
	)

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "# "):
			text := strings.TrimSpace(strings.TrimPrefix(trimmed, "# "))
			if text != "" {
				headings.H1 = append(headings.H1, text)
				if title == "" {
					title = text
				}
			}
		case strings.HasPrefix(trimmed, "## "):
			text := strings.TrimSpace(strings.TrimPrefix(trimmed, "## "))
			if text != "" {
				headings.H2 = append(headings.H2, text)
			}
		case trimmed != "" && !strings.HasPrefix(trimmed, "#"):
			// Setext headings: a text line followed by a === or --- underline.
			if i+1 < len(lines) {
				next := strings.TrimSpace(lines[i+1])
				if isUnderline(next, '=') {
					headings.H1 = append(headings.H1, trimmed)
					if title == "" {
						title = trimmed
					}
				} else if isUnderline(next, '-') {
					headings.H2 = append(headings.H2, trimmed)
				}
			}
		}
	}

	if title == "" {
		title = firstTextLine(lines)
	}
	if title == "" {
		title = hostnameOf(rawURL)
	}

	return audit.ScrapedPage{
		URL:             rawURL,
		Title:           title,
		MetaDescription: extractMeta(lines, title),
		Headings:        headings,
		Content:         strings.TrimSpace(content),
	}
}

func isUnderline(line string, ch byte) bool {
	if line == "" {
		return false
	}
	for i := 0; i < len(line); i++ {
		if line[i] != ch {
			return false
		}
	}
	return true
}

// firstTextLine returns the first non-empty line that is neither a
// heading nor an underline, used as a last-resort title.
func firstTextLine(lines []string) string {
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if isUnderline(trimmed, '=') || isUnderline(trimmed, '-') {
			continue
		}
		return trimmed
	}
	return ""
}

// extractMeta picks the first substantial prose line as a stand-in for
// the meta description. Lines shorter than 50 characters are skipped
// since they tend to be navigation labels or button text.
func extractMeta(lines []string, title string) string {
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if len(trimmed) <= 50 || strings.HasPrefix(trimmed, "#") || trimmed == title {
			continue
		}
		if isUnderline(trimmed, '=') || isUnderline(trimmed, '-') {
			continue
		}
		return truncate(trimmed, metaMaxLen)
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func hostnameOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return rawURL
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}
