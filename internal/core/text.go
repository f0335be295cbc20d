package core

import "strings"

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

// EscapeHTML escapes user-supplied text for inclusion in markup.
func EscapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}
