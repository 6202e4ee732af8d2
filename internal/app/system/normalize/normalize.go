// Package normalize canonicalizes user-supplied identity fields before they
// are stored or compared.
package normalize

import "strings"

// Email lowercases and trims an email address so lookups and the unique
// index behave case-insensitively.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Username trims and lowercases a username.
func Username(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name collapses interior whitespace and trims a person's name as extracted
// from a document.
func Name(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// IDNumber strips whitespace from a document identity number.
func IDNumber(s string) string {
	return strings.Join(strings.Fields(s), "")
}
