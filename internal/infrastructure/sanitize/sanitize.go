// Package sanitize strips markup from user supplied free text.
package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// Text removes every HTML element from s, keeping the text content, and
// trims surrounding whitespace. Entities escaped by the policy are decoded
// again so "<b>5 & 6</b>" becomes "5 & 6".
func Text(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}

// Strings applies Text to every element and drops entries that end up empty.
func Strings(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if clean := Text(s); clean != "" {
			out = append(out, clean)
		}
	}
	return out
}
