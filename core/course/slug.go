package course

import (
	"regexp"
	"strings"
)

var nonSlugRegex = regexp.MustCompile(`[^a-z0-9]+`)

// MakeSlug turns a course title into a URL-safe slug;
// "Intro to Go, 2nd Edition!" becomes "intro-to-go-2nd-edition".
func MakeSlug(title string) string {
	slug := nonSlugRegex.ReplaceAllString(strings.ToLower(title), "-")
	return strings.Trim(slug, "-")
}
