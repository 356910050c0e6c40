package helpers

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

var nonDigit = regexp.MustCompile(`[^0-9]`)

// ParseCount turns a board counter cell ("1,234", "[56]", "(7)") into an int.
// Non-numeric or missing text yields 0.
func ParseCount(text string) int {
	digits := nonDigit.ReplaceAllString(text, "")
	if digits == "" {
		return 0
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0
	}
	return n
}

// AbsoluteURL resolves href against the page it appeared on. Board markups mix
// absolute links, root-relative paths, and directory-relative paths
// ("bbs/board.php?..."); url.ResolveReference handles all three.
func AbsoluteURL(pageURL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

// CollapseSpaces normalizes runs of whitespace to single spaces and trims.
func CollapseSpaces(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
