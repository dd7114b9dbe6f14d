package helpers

import (
	"regexp"
	"strings"
)

var (
	whitespaceRun = regexp.MustCompile(`[\s\p{Zs}]+`)
	nonSlugChars  = regexp.MustCompile(`[^a-z0-9\-]`)
)

// Slug turns a free-text search term into a URL path segment:
// lowercase, whitespace runs collapsed to one hyphen, anything outside [a-z0-9-] dropped.
func Slug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = whitespaceRun.ReplaceAllString(s, "-")
	return nonSlugChars.ReplaceAllString(s, "")
}
