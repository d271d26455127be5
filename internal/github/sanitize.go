package github

import "strings"

var inputEscaper = strings.NewReplacer(
	`&`, "&amp;",
	`<`, "&lt;",
	`>`, "&gt;",
	`"`, "&quot;",
	`'`, "&#39;",
	`/`, "&#x2F;",
	"`", "&#x60;",
	`=`, "&#x3D;",
)

// SanitizeInput HTML-escapes user text before it is placed in a mutation.
// It escapes & < > " ' / = and the backtick. It is not idempotent: the
// ampersand of an existing entity is escaped again.
func SanitizeInput(s string) string {
	return inputEscaper.Replace(s)
}
