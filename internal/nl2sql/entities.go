package nl2sql

import (
	"context"
	"regexp"
	"slices"
	"strings"
)

// Entities holds one set per bucket: values are unique and kept in first-seen order.
type Entities struct {
	Locations     []string `json:"locations"`
	Dates         []string `json:"dates"`
	Numbers       []string `json:"numbers"`
	Organizations []string `json:"organizations"`
}

func NewEntities() Entities {
	return Entities{
		Locations:     []string{},
		Dates:         []string{},
		Numbers:       []string{},
		Organizations: []string{},
	}
}

func (e Entities) Empty() bool {
	return len(e.Locations) == 0 && len(e.Dates) == 0 && len(e.Numbers) == 0 && len(e.Organizations) == 0
}

// Extractor finds entities in the trimmed, case-preserved question. Values come back lower-cased
// so they line up with the normalized text.
type Extractor interface {
	Extract(ctx context.Context, text string) (Entities, error)
}

var (
	datePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\d{4}-\d{2}-\d{2}`),
		regexp.MustCompile(`\d{2}/\d{2}/\d{4}`),
		regexp.MustCompile(`\d{2}-\d{2}-\d{4}`),
	}
	numberPattern = regexp.MustCompile(`\b\d+(?:\.\d+)?\b`)
	// Any capitalized word or pair of words. Matches far more than places; filters narrow it later.
	locationPattern = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+)?\b`)
)

type RegexExtractor struct{}

func (RegexExtractor) Extract(_ context.Context, text string) (Entities, error) {
	entities := NewEntities()
	for _, pattern := range datePatterns {
		entities.Dates = appendFolded(entities.Dates, pattern.FindAllString(text, -1)...)
	}
	entities.Numbers = appendFolded(entities.Numbers, numberPattern.FindAllString(text, -1)...)
	entities.Locations = appendFolded(entities.Locations, locationPattern.FindAllString(text, -1)...)
	return entities, nil
}

func appendFolded(dst []string, values ...string) []string {
	for _, value := range values {
		value = strings.ToLower(strings.TrimSpace(value))
		if value != "" && !slices.Contains(dst, value) {
			dst = append(dst, value)
		}
	}
	return dst
}
