package nl2sql

import "github.com/shopquery/shopquery/internal/schema"

const (
	baseConfidence     = 0.5
	entityBonus        = 0.2
	keywordBonus       = 0.1
	tableMentionBonus  = 0.15
	maxConfidenceScore = 1.0
)

// scoreConfidence is advisory only and never gates execution.
func scoreConfidence(reg *schema.Registry, text string, entities Entities) float64 {
	score := baseConfidence
	if !entities.Empty() {
		score += entityBonus
	}
	for _, category := range keywordCategories {
		if containsAny(text, category.keywords...) {
			score += keywordBonus
		}
	}
	if mentionsAnyTable(reg, text) {
		score += tableMentionBonus
	}
	if score > maxConfidenceScore {
		score = maxConfidenceScore
	}
	if score < 0 {
		score = 0
	}
	return score
}
