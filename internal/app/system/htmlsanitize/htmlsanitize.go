// Package htmlsanitize cleans free text that clients send for names and
// remarks. Markup is stripped; the stored value is plain text.
package htmlsanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// PlainText strips every tag (and the content of script/style elements)
// and returns trimmed, unescaped text.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}
