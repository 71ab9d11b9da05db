package nl2sql

import (
	"reflect"
	"testing"

	"github.com/shopquery/shopquery/internal/schema"
)

func TestNormalize(t *testing.T) {
	tests := map[string]string{
		"  Showing ALL Customers ": "show all customers",
		"Listing orders":           "list orders",
		"getting products":         "get products",
		"showings":                 "showings",
		"":                         "",
	}
	for in, want := range tests {
		if got := Normalize(in); got != want {
			t.Fatalf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestIdentifyTablePriority(t *testing.T) {
	reg := schema.MustDefault()
	tests := map[string]string{
		"show customer orders":    "customers",
		"list items in orders":    "products",
		"show purchases":          "orders",
		"show me order items":     "products",
		"what is going on":        "customers",
		"list clients":            "customers",
		"count sales per status":  "orders",
		"list every product name": "products",
	}
	for text, want := range tests {
		if got := identifyTable(reg, text); got != want {
			t.Fatalf("identifyTable(%q) = %q, want %q", text, got, want)
		}
	}
}

func TestIdentifyQueryType(t *testing.T) {
	if got := identifyQueryType("average order amount"); got != QueryTypeAggregate {
		t.Fatalf("identifyQueryType() = %q", got)
	}
	if got := identifyQueryType("show customers"); got != QueryTypeSelect {
		t.Fatalf("identifyQueryType() = %q", got)
	}
}

func TestAggregateExpression(t *testing.T) {
	tests := map[string]string{
		"total sales":            "SUM(orders.total_amount)",
		"sum of amount":          "SUM(orders.total_amount)",
		"total quantity sold":    "SUM(order_items.quantity)",
		"count total orders":     "COUNT(*)",
		"average order value":    "AVG(orders.total_amount)",
		"avg spend":              "AVG(orders.total_amount)",
		"count customers":        "COUNT(DISTINCT customers.customer_id)",
		"count orders":           "COUNT(DISTINCT orders.order_id)",
		"count products":         "COUNT(*)",
		"max order":              "COUNT(*)",
		"total customers orders": "COUNT(*)",
	}
	for text, want := range tests {
		if got := aggregateExpression(text); got != want {
			t.Fatalf("aggregateExpression(%q) = %q, want %q", text, got, want)
		}
	}
}

func TestGroupByColumn(t *testing.T) {
	tests := map[string]string{
		"sales by city":           "customers.city",
		"sales per category":      "products.category",
		"orders by status":        "orders.status",
		"spend per customer":      "customers.name",
		"sales by city by status": "customers.city",
		"total sales":             "",
	}
	for text, want := range tests {
		if got := groupByColumn(text); got != want {
			t.Fatalf("groupByColumn(%q) = %q, want %q", text, got, want)
		}
	}
}

func TestStatusPredicateUsesFirstKeywordInRuleOrder(t *testing.T) {
	got, ok := statusPredicate("delivered or shipped or completed orders")
	if !ok || got != "orders.status = 'Completed'" {
		t.Fatalf("statusPredicate() = %q, %v", got, ok)
	}
	if _, ok := statusPredicate("cancelled orders"); ok {
		t.Fatal("statusPredicate() matched cancelled")
	}
}

func TestDatePredicates(t *testing.T) {
	entities := Entities{Dates: []string{"2024-01-01", "2024-02-01"}}
	tests := map[string][]string{
		"orders after 2024-01-01":  {"orders.order_date > '2024-01-01'", "orders.order_date > '2024-02-01'"},
		"orders before 2024-01-01": {"orders.order_date < '2024-01-01'", "orders.order_date < '2024-02-01'"},
		"orders on 2024-01-01":     {"orders.order_date = '2024-01-01'", "orders.order_date = '2024-02-01'"},
	}
	for text, want := range tests {
		if got := datePredicates(text, entities); !reflect.DeepEqual(got, want) {
			t.Fatalf("datePredicates(%q) = %#v, want %#v", text, got, want)
		}
	}
}

func TestJoinsForOrdersWithProducts(t *testing.T) {
	s := synthesizer{registry: schema.MustDefault()}
	got, err := s.joins("orders with product details", "orders")
	if err != nil {
		t.Fatalf("joins() error = %v", err)
	}
	want := []string{
		"LEFT JOIN customers ON orders.customer_id = customers.customer_id",
		"LEFT JOIN order_items ON orders.order_id = order_items.order_id",
		"LEFT JOIN products ON order_items.product_id = products.product_id",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("joins() = %#v", got)
	}

	got, err = s.joins("show products", "products")
	if err != nil || len(got) != 0 {
		t.Fatalf("joins(products) = %#v, %v", got, err)
	}
}

func TestCityPredicatesIgnoreUnknownLocations(t *testing.T) {
	s := synthesizer{registry: schema.MustDefault()}
	got := s.cityPredicates(Entities{Locations: []string{"show", "pune", "paris"}})
	if !reflect.DeepEqual(got, []string{"customers.city = 'pune'"}) {
		t.Fatalf("cityPredicates() = %#v", got)
	}
}

func TestSelectColumnsKeepsAliasOrder(t *testing.T) {
	s := synthesizer{registry: schema.MustDefault()}
	got := s.selectColumns("status and total amount by date", "orders")
	want := []string{"orders.total_amount", "orders.total_amount", "orders.order_date", "orders.status"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("selectColumns() = %#v", got)
	}
	if got := s.selectColumns("everything about products", "products"); !reflect.DeepEqual(got, []string{"products.*"}) {
		t.Fatalf("selectColumns(everything) = %#v", got)
	}
}

func TestBuildRejectsUnknownTable(t *testing.T) {
	s := synthesizer{registry: schema.MustDefault()}
	if _, err := s.build("show", "shipments", QueryTypeSelect, NewEntities()); err == nil {
		t.Fatal("expected error for unknown table")
	}
}

func TestQuoteLiteralEscapesQuotes(t *testing.T) {
	if got := quoteLiteral("o'hare"); got != "'o''hare'" {
		t.Fatalf("quoteLiteral() = %q", got)
	}
}

func TestSuggestionsReturnsCopy(t *testing.T) {
	first := Suggestions()
	first[0] = "mutated"
	if Suggestions()[0] != "Show all customers from Bangalore" {
		t.Fatal("Suggestions() exposed internal slice")
	}
}
