package nl2sql

import (
	"fmt"
	"strings"

	"github.com/shopquery/shopquery/internal/schema"
)

type synthesizer struct {
	registry *schema.Registry
}

func (s synthesizer) build(text, table string, queryType QueryType, entities Entities) (string, error) {
	if _, ok := s.registry.Table(table); !ok {
		return "", fmt.Errorf("unknown table %q", table)
	}
	if queryType == QueryTypeAggregate {
		return s.buildAggregate(text, table, entities)
	}
	return s.buildSelect(text, table, entities)
}

func (s synthesizer) buildSelect(text, table string, entities Entities) (string, error) {
	joins, err := s.joins(text, table)
	if err != nil {
		return "", err
	}
	predicates := s.cityPredicates(entities)
	predicates = append(predicates, datePredicates(text, entities)...)
	if predicate, ok := statusPredicate(text); ok {
		predicates = append(predicates, predicate)
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(s.selectColumns(text, table), ", "))
	b.WriteString(" FROM ")
	b.WriteString(table)
	for _, join := range joins {
		b.WriteString(" ")
		b.WriteString(join)
	}
	if len(predicates) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(predicates, " AND "))
	}
	sql := b.String()
	if !strings.Contains(strings.ToUpper(sql), "LIMIT") {
		sql += fmt.Sprintf(" LIMIT %d", selectRowCap)
	}
	return sql, nil
}

func (s synthesizer) selectColumns(text, table string) []string {
	if containsAny(text, allColumnsKeywords...) {
		return []string{table + ".*"}
	}
	var columns []string
	for _, alias := range s.registry.Aliases() {
		if strings.Contains(text, alias.Phrase) {
			columns = append(columns, alias.Column)
		}
	}
	if len(columns) == 0 {
		return []string{table + ".*"}
	}
	return columns
}

func (s synthesizer) joins(text, table string) ([]string, error) {
	var clauses []string
	for _, rule := range joinRules {
		if rule.table != table {
			continue
		}
		if len(rule.triggers) > 0 && !containsAny(text, rule.triggers...) {
			continue
		}
		for _, hop := range rule.path {
			clause, err := s.registry.JoinClause(hop[0], hop[1])
			if err != nil {
				return nil, err
			}
			clauses = append(clauses, clause)
		}
	}
	return clauses, nil
}

func (s synthesizer) cityPredicates(entities Entities) []string {
	var predicates []string
	for _, location := range entities.Locations {
		if s.registry.IsKnownCity(location) {
			predicates = append(predicates, "customers.city = "+quoteLiteral(strings.ToLower(location)))
		}
	}
	return predicates
}

func datePredicates(text string, entities Entities) []string {
	if len(entities.Dates) == 0 {
		return nil
	}
	operator := "="
	switch {
	case strings.Contains(text, dateAfter):
		operator = ">"
	case strings.Contains(text, dateBefore):
		operator = "<"
	}
	predicates := make([]string, 0, len(entities.Dates))
	for _, date := range entities.Dates {
		predicates = append(predicates, fmt.Sprintf("orders.order_date %s %s", operator, quoteLiteral(date)))
	}
	return predicates
}

func statusPredicate(text string) (string, bool) {
	for _, rule := range statusRules {
		if strings.Contains(text, rule.keyword) {
			return "orders.status = " + quoteLiteral(rule.value), true
		}
	}
	return "", false
}

func (s synthesizer) buildAggregate(text, table string, entities Entities) (string, error) {
	expression := aggregateExpression(text)
	groupColumn := groupByColumn(text)
	from, err := s.aggregateFrom(table, groupColumn, expression)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	if groupColumn != "" {
		b.WriteString(groupColumn)
		b.WriteString(", ")
	}
	b.WriteString(expression)
	b.WriteString(" AS result FROM ")
	b.WriteString(from)
	if predicates := s.cityPredicates(entities); len(predicates) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(predicates, " AND "))
	}
	if groupColumn != "" {
		b.WriteString(" GROUP BY ")
		b.WriteString(groupColumn)
	}
	return b.String(), nil
}

func aggregateExpression(text string) string {
	for _, rule := range aggregateRules {
		if !containsAny(text, rule.triggers...) {
			continue
		}
		for _, c := range rule.cases {
			if len(c.keywords) == 0 || containsAny(text, c.keywords...) {
				return c.expression
			}
		}
		return countAllExpression
	}
	return countAllExpression
}

func groupByColumn(text string) string {
	for _, rule := range groupRules {
		if containsAny(text, rule.phrases...) {
			return rule.column
		}
	}
	return ""
}

// aggregateFrom picks the FROM clause from the grouping column rather than the main table.
func (s synthesizer) aggregateFrom(table, groupColumn, expression string) (string, error) {
	groupTable, _, _ := schema.SplitQualified(groupColumn)
	switch {
	case groupTable == "customers" && table != "customers":
		join, err := s.registry.JoinClause("orders", "customers")
		if err != nil {
			return "", err
		}
		return "orders " + join, nil
	case groupTable == "products":
		from := "order_items"
		join, err := s.registry.JoinClause("order_items", "products")
		if err != nil {
			return "", err
		}
		from += " " + join
		if strings.Contains(expression, "orders.") {
			join, err := s.registry.JoinClause("order_items", "orders")
			if err != nil {
				return "", err
			}
			from += " " + join
		}
		return from, nil
	default:
		return table, nil
	}
}
