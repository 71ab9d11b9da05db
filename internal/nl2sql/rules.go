package nl2sql

// Rule tables driving classification and synthesis. Order matters wherever the first match wins.

type keywordCategory struct {
	name     string
	keywords []string
}

var keywordCategories = []keywordCategory{
	{name: "select", keywords: []string{"show", "list", "get", "find", "display", "retrieve"}},
	{name: "aggregate", keywords: []string{"total", "sum", "count", "average", "avg", "max", "min"}},
	{name: "filter", keywords: []string{"from", "in", "where", "with", "having"}},
	{name: "time", keywords: []string{"after", "before", "between", "since", "until"}},
	{name: "group", keywords: []string{"by", "per", "each", "grouped"}},
}

func categoryKeywords(name string) []string {
	for _, category := range keywordCategories {
		if category.name == name {
			return category.keywords
		}
	}
	return nil
}

var allColumnsKeywords = []string{"all", "everything"}

type joinRule struct {
	table    string
	triggers []string // empty means always
	path     [][2]string
}

var joinRules = []joinRule{
	{table: "customers", triggers: []string{"order", "purchase"}, path: [][2]string{{"customers", "orders"}}},
	{table: "orders", path: [][2]string{{"orders", "customers"}}},
	{table: "orders", triggers: []string{"product", "item"}, path: [][2]string{{"orders", "order_items"}, {"order_items", "products"}}},
}

type statusRule struct {
	keyword string
	value   string
}

var statusRules = []statusRule{
	{keyword: "completed", value: "Completed"},
	{keyword: "processing", value: "Processing"},
	{keyword: "shipped", value: "Shipped"},
	{keyword: "delivered", value: "Delivered"},
}

type aggregateCase struct {
	keywords   []string
	expression string
}

// aggregateRule fires when any trigger is present; the first case whose keywords match supplies
// the expression. A fired rule with no matching case yields the row count.
type aggregateRule struct {
	triggers []string
	cases    []aggregateCase
}

const countAllExpression = "COUNT(*)"

var aggregateRules = []aggregateRule{
	{
		triggers: []string{"total", "sum"},
		cases: []aggregateCase{
			{keywords: []string{"sales", "amount"}, expression: "SUM(orders.total_amount)"},
			{keywords: []string{"quantity"}, expression: "SUM(order_items.quantity)"},
		},
	},
	{
		triggers: []string{"average", "avg"},
		cases: []aggregateCase{
			{expression: "AVG(orders.total_amount)"},
		},
	},
	{
		triggers: []string{"count"},
		cases: []aggregateCase{
			{keywords: []string{"customer"}, expression: "COUNT(DISTINCT customers.customer_id)"},
			{keywords: []string{"order"}, expression: "COUNT(DISTINCT orders.order_id)"},
		},
	},
}

type groupRule struct {
	phrases []string
	column  string
}

var groupRules = []groupRule{
	{phrases: []string{"by city", "per city"}, column: "customers.city"},
	{phrases: []string{"by category", "per category"}, column: "products.category"},
	{phrases: []string{"by status", "per status"}, column: "orders.status"},
	{phrases: []string{"by customer", "per customer"}, column: "customers.name"},
}

const (
	selectRowCap = 100
	dateAfter    = "after"
	dateBefore   = "before"
)

var sampleQuestions = []string{
	"Show all customers from Bangalore",
	"List orders placed after 2024-01-01",
	"Count total orders",
	"Show total sales by city",
	"Find customers with orders",
	"List products in Electronics category",
	"Show average order amount",
	"Count customers per city",
	"List completed orders",
	"Show products with price greater than 10000",
	"Display recent orders",
	"Show customer details for orders",
	"List top selling products",
	"Show orders by status",
	"Find customers from Mumbai",
}

// Suggestions returns example questions the rule engine handles well.
func Suggestions() []string {
	return append([]string(nil), sampleQuestions...)
}
