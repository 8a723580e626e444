package models

import (
	"regexp"
	"strings"
)

func lower(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

var slugInvalid = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify turns a display name into a url-safe slug ("Gau Seva 2024" -> "gau-seva-2024").
func Slugify(s string) string {
	return strings.Trim(slugInvalid.ReplaceAllString(lower(s), "-"), "-")
}
