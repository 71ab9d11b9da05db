package safety

import (
	"regexp"
	"strconv"
	"strings"
)

type Complexity string

const (
	ComplexityLow    Complexity = "Low"
	ComplexityMedium Complexity = "Medium"
	ComplexityHigh   Complexity = "High"
)

type ResultSize string

const (
	ResultSizeVerySmall ResultSize = "Very Small"
	ResultSizeSmall     ResultSize = "Small"
	ResultSizeMedium    ResultSize = "Medium"
	ResultSizeLarge     ResultSize = "Large"
	ResultSizeUnknown   ResultSize = "Unknown"
)

// Stats is a static, textual estimate. Nothing is executed to produce it.
type Stats struct {
	EstimatedComplexity Complexity `json:"estimated_complexity"`
	HasJoins            bool       `json:"has_joins"`
	HasAggregation      bool       `json:"has_aggregation"`
	HasSubqueries       bool       `json:"has_subqueries"`
	EstimatedResultSize ResultSize `json:"estimated_result_size"`
}

var (
	aggregationMarkers = []string{"COUNT", "SUM", "AVG", "MAX", "MIN", "GROUP BY"}
	limitPattern       = regexp.MustCompile(`LIMIT\s+(\d+)`)
	onKeywordPattern   = regexp.MustCompile(`\bON\b`)
)

func Analyze(sql string) Stats {
	stats := Stats{
		EstimatedComplexity: ComplexityLow,
		EstimatedResultSize: ResultSizeSmall,
	}
	upper := strings.ToUpper(sql)

	if strings.Contains(upper, "JOIN") {
		stats.HasJoins = true
		stats.EstimatedComplexity = ComplexityMedium
	}
	for _, marker := range aggregationMarkers {
		if strings.Contains(upper, marker) {
			stats.HasAggregation = true
			break
		}
	}
	if open := strings.Index(upper, "("); open >= 0 && strings.Contains(upper[open:], "SELECT") {
		stats.HasSubqueries = true
		stats.EstimatedComplexity = ComplexityHigh
	}

	if !strings.Contains(upper, "LIMIT") {
		stats.EstimatedResultSize = ResultSizeUnknown
		return stats
	}
	if match := limitPattern.FindStringSubmatch(upper); match != nil {
		if limit, err := strconv.Atoi(match[1]); err == nil {
			stats.EstimatedResultSize = sizeForLimit(limit)
		}
	}
	return stats
}

func sizeForLimit(limit int) ResultSize {
	switch {
	case limit <= 10:
		return ResultSizeVerySmall
	case limit <= 100:
		return ResultSizeSmall
	case limit <= 1000:
		return ResultSizeMedium
	default:
		return ResultSizeLarge
	}
}

const (
	SuggestLimit        = "Consider adding LIMIT clause to prevent large result sets"
	SuggestColumns      = "Consider selecting specific columns instead of SELECT * for better performance"
	SuggestIndexes      = "Ensure WHERE clause columns are indexed for better performance"
	SuggestJoinOnClause = "Warning: JOIN without ON clause may result in Cartesian product"
)

// Suggest returns advisory optimization hints for a statement.
func Suggest(sql string) []string {
	upper := strings.ToUpper(sql)
	suggestions := []string{}
	if !strings.Contains(upper, "LIMIT") && !strings.Contains(upper, "COUNT") {
		suggestions = append(suggestions, SuggestLimit)
	}
	if strings.Contains(upper, "SELECT *") {
		suggestions = append(suggestions, SuggestColumns)
	}
	if strings.Contains(upper, "WHERE") {
		suggestions = append(suggestions, SuggestIndexes)
	}
	if strings.Contains(upper, "JOIN") && !onKeywordPattern.MatchString(upper) {
		suggestions = append(suggestions, SuggestJoinOnClause)
	}
	return suggestions
}
