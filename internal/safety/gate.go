package safety

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	MessageValid          = "Valid query"
	MessageEmpty          = "Empty query."
	MessageMustBeReadOnly = "Query must start with SELECT or WITH"
	MessageUnbalanced     = "Mismatched parentheses."
)

// DeniedKeywords are rejected anywhere in the statement, including inside identifiers, so a column
// such as created_date is refused along with CREATE.
var DeniedKeywords = []string{
	"DROP", "DELETE", "UPDATE", "INSERT", "ALTER",
	"CREATE", "TRUNCATE", "REPLACE", "ATTACH", "DETACH",
}

var (
	lineCommentPattern  = regexp.MustCompile(`(?m)--.*$`)
	blockCommentPattern = regexp.MustCompile(`(?s)/\*.*?\*/`)
	whitespacePattern   = regexp.MustCompile(`\s+`)
)

type Verdict struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
}

// Validate decides whether sql may be forwarded to the query engine. It is pure and holds no state.
func Validate(sql string) Verdict {
	if strings.TrimSpace(sql) == "" {
		return Verdict{Message: MessageEmpty}
	}
	cleaned := Clean(sql)
	upper := strings.ToUpper(cleaned)

	for _, keyword := range DeniedKeywords {
		if strings.Contains(upper, keyword) {
			return Verdict{Message: fmt.Sprintf("Operation '%s' is not allowed for safety reasons", keyword)}
		}
	}

	first, _, _ := strings.Cut(upper, " ")
	if first != "SELECT" && first != "WITH" {
		return Verdict{Message: MessageMustBeReadOnly}
	}

	if strings.Count(cleaned, "(") != strings.Count(cleaned, ")") {
		return Verdict{Message: MessageUnbalanced}
	}
	return Verdict{Valid: true, Message: MessageValid}
}

// Clean strips line and block comments and collapses whitespace.
func Clean(sql string) string {
	cleaned := lineCommentPattern.ReplaceAllString(sql, "")
	cleaned = blockCommentPattern.ReplaceAllString(cleaned, "")
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(cleaned, " "))
}
