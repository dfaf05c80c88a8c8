package match

import (
	"regexp"
	"strings"

	"github.com/xrash/smetrics"
)

var (
	featRegex     = regexp.MustCompile(`(?i)\s*[(\[]\s*(feat\.?|ft\.?|featuring)\s[^)\]]*[)\]]`)
	remasterRegex = regexp.MustCompile(`(?i)\s*[(\[][^)\]]*remaster[^)\]]*[)\]]`)
	dashRemaster  = regexp.MustCompile(`(?i)\s+-\s+[^-]*remaster[^-]*$`)
	spaceRegex    = regexp.MustCompile(`\s+`)

	alternateKeywords = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bremix\b`),
		regexp.MustCompile(`(?i)\bcover\b`),
		regexp.MustCompile(`(?i)\bversion\b`),
	}
)

// Normalize strips featuring credits and remaster annotations from a title.
func Normalize(title string) string {
	title = featRegex.ReplaceAllString(title, "")
	title = remasterRegex.ReplaceAllString(title, "")
	title = dashRemaster.ReplaceAllString(title, "")
	return strings.TrimSpace(spaceRegex.ReplaceAllString(title, " "))
}

// Ratio returns a 0-100 similarity score between two strings, ignoring case.
// It is the share of characters left untouched by an edit script where a
// substitution costs as much as a deletion plus an insertion.
func Ratio(a, b string) int {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	total := len(a) + len(b)
	if total == 0 {
		return 100
	}
	dist := smetrics.WagnerFischer(a, b, 1, 1, 2)
	return (total - dist) * 100 / total
}

// SameVersion reports whether both titles agree on every alternate-version
// keyword, so a studio cut never matches a remix or a cover of itself.
func SameVersion(a, b string) bool {
	for _, kw := range alternateKeywords {
		if kw.MatchString(a) != kw.MatchString(b) {
			return false
		}
	}
	return true
}
