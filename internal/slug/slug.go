// Package slug derives URL-safe article identifiers from titles.
package slug

import (
	"regexp"
	"strings"
)

var (
	ineligibleRe = regexp.MustCompile(`[^a-z0-9 -]`)
	spaceRunRe   = regexp.MustCompile(`\s+`)
	hyphenRunRe  = regexp.MustCompile(`-+`)
)

// Derive turns a human title into a slug: lower-case letters, digits and
// single hyphens, with no leading or trailing hyphen. It never fails; a
// title without any eligible character yields "".
func Derive(title string) string {
	s := strings.ToLower(title)
	s = ineligibleRe.ReplaceAllString(s, "")
	s = spaceRunRe.ReplaceAllString(s, "-")
	s = hyphenRunRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// Valid reports whether s is already in derived form and non-empty.
func Valid(s string) bool {
	return s != "" && Derive(s) == s
}
