// Package textutil holds small text helpers shared across packages. It
// lives in internal to avoid committing to public API stability prematurely.
package textutil

import "strings"

// CollapseWhitespace rewrites every run of whitespace as a single space and
// trims the ends, for whitespace-insensitive comparison of markup documents
// whose newlines between tags are cosmetic.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// EnsureTrailingNewline appends a newline unless the text is blank or
// already ends with one.
func EnsureTrailingNewline(s string) string {
	if strings.TrimSpace(s) == "" || strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
