package nl2sql

import (
	"regexp"
	"strings"
)

var verbRewrites = []struct {
	pattern     *regexp.Regexp
	replacement string
}{
	{regexp.MustCompile(`\bshowing\b`), "show"},
	{regexp.MustCompile(`\blisting\b`), "list"},
	{regexp.MustCompile(`\bgetting\b`), "get"},
}

// Normalize lower-cases and trims the question and folds progressive verb forms to their base
// form. An empty result means the question carries no signal.
func Normalize(raw string) string {
	text := strings.ToLower(strings.TrimSpace(raw))
	for _, rewrite := range verbRewrites {
		text = rewrite.pattern.ReplaceAllString(text, rewrite.replacement)
	}
	return text
}

func containsAny(text string, needles ...string) bool {
	for _, needle := range needles {
		if strings.Contains(text, needle) {
			return true
		}
	}
	return false
}

func quoteLiteral(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}
