package usecase

import (
	"regexp"
	"strings"
)

var (
	slugPattern = regexp.MustCompile(`^[a-z0-9-]+$`)
	whitespace  = regexp.MustCompile(`\s+`)
)

// NormalizeSlug trims, lowercases and replaces whitespace runs with a hyphen.
func NormalizeSlug(s string) string {
	return whitespace.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "-")
}

func ValidSlug(s string) bool {
	return len(s) >= 2 && slugPattern.MatchString(s)
}
