package nl2sql

import (
	"strings"

	"github.com/shopquery/shopquery/internal/schema"
)

// identifyTable returns the first table, in registry priority order, with a synonym present in
// the text. Questions naming no table default to the highest-priority table.
func identifyTable(reg *schema.Registry, text string) string {
	tables := reg.Tables()
	for _, table := range tables {
		for _, synonym := range table.Synonyms {
			if strings.Contains(text, synonym) {
				return table.Name
			}
		}
	}
	return tables[0].Name
}

func identifyQueryType(text string) QueryType {
	if containsAny(text, categoryKeywords("aggregate")...) {
		return QueryTypeAggregate
	}
	return QueryTypeSelect
}

func mentionsAnyTable(reg *schema.Registry, text string) bool {
	for _, table := range reg.Tables() {
		if containsAny(text, table.Synonyms...) {
			return true
		}
	}
	return false
}
