// Package sanitize strips markup from free text before it is stored.
package sanitize

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

func Text(s string) string {
	return strings.TrimSpace(strict.Sanitize(s))
}

// Optional sanitizes a nullable value; blank input becomes nil.
func Optional(s *string) *string {
	if s == nil {
		return nil
	}
	v := Text(*s)
	if v == "" {
		return nil
	}
	return &v
}
