package dataset

import (
	"fmt"
	"math"
	"math/rand"
	"time"
)

type Customer struct {
	CustomerID  int64  `parquet:"customer_id"`
	Name        string `parquet:"name"`
	Email       string `parquet:"email"`
	City        string `parquet:"city"`
	State       string `parquet:"state"`
	Phone       string `parquet:"phone"`
	CreatedDate string `parquet:"created_date"`
}

type Product struct {
	ProductID     int64   `parquet:"product_id"`
	Name          string  `parquet:"name"`
	Category      string  `parquet:"category"`
	Price         float64 `parquet:"price"`
	StockQuantity int64   `parquet:"stock_quantity"`
	Description   string  `parquet:"description"`
}

type Order struct {
	OrderID      int64   `parquet:"order_id"`
	CustomerID   int64   `parquet:"customer_id"`
	OrderDate    string  `parquet:"order_date"`
	TotalAmount  float64 `parquet:"total_amount"`
	Status       string  `parquet:"status"`
	ShippingCity string  `parquet:"shipping_city"`
}

type OrderItem struct {
	ItemID    int64   `parquet:"item_id"`
	OrderID   int64   `parquet:"order_id"`
	ProductID int64   `parquet:"product_id"`
	Quantity  int64   `parquet:"quantity"`
	UnitPrice float64 `parquet:"unit_price"`
}

type Dataset struct {
	Customers  []Customer
	Products   []Product
	Orders     []Order
	OrderItems []OrderItem
}

type cityInfo struct {
	city  string
	state string
}

var cities = []cityInfo{
	{"Bangalore", "Karnataka"},
	{"Mumbai", "Maharashtra"},
	{"Delhi", "Delhi"},
	{"Chennai", "Tamil Nadu"},
	{"Hyderabad", "Telangana"},
	{"Pune", "Maharashtra"},
	{"Kolkata", "West Bengal"},
	{"Ahmedabad", "Gujarat"},
}

var catalog = []Product{
	{Name: "iPhone 15", Category: "Electronics", Price: 79999.00, StockQuantity: 50, Description: "Latest iPhone model"},
	{Name: "Samsung Galaxy S24", Category: "Electronics", Price: 69999.00, StockQuantity: 45, Description: "Android flagship phone"},
	{Name: "MacBook Air M3", Category: "Electronics", Price: 114900.00, StockQuantity: 30, Description: "Apple laptop with M3 chip"},
	{Name: "Dell XPS 13", Category: "Electronics", Price: 89999.00, StockQuantity: 25, Description: "Premium Windows laptop"},
	{Name: "Sony WH-1000XM5", Category: "Electronics", Price: 29990.00, StockQuantity: 80, Description: "Noise cancelling headphones"},
	{Name: "Nike Air Max", Category: "Footwear", Price: 8999.00, StockQuantity: 100, Description: "Comfortable running shoes"},
	{Name: "Adidas Ultraboost", Category: "Footwear", Price: 12999.00, StockQuantity: 75, Description: "Performance running shoes"},
	{Name: "Levi's 501 Jeans", Category: "Clothing", Price: 3999.00, StockQuantity: 120, Description: "Classic denim jeans"},
	{Name: "Zara Cotton Shirt", Category: "Clothing", Price: 1999.00, StockQuantity: 90, Description: "Casual cotton shirt"},
	{Name: "Books Set", Category: "Books", Price: 1299.00, StockQuantity: 200, Description: "Popular fiction book collection"},
	{Name: "Gaming Chair", Category: "Furniture", Price: 15999.00, StockQuantity: 40, Description: "Ergonomic gaming chair"},
	{Name: "Study Desk", Category: "Furniture", Price: 8999.00, StockQuantity: 35, Description: "Wooden study desk"},
	{Name: "Coffee Maker", Category: "Appliances", Price: 4999.00, StockQuantity: 60, Description: "Automatic drip coffee maker"},
	{Name: "Blender", Category: "Appliances", Price: 2999.00, StockQuantity: 70, Description: "High-speed blender"},
	{Name: "Yoga Mat", Category: "Sports", Price: 1499.00, StockQuantity: 150, Description: "Non-slip yoga mat"},
}

var orderStatuses = []string{"Completed", "Processing", "Shipped", "Cancelled", "Delivered"}

const dateLayout = "2006-01-02"

// Generator produces the same dataset for the same seed and clock.
type Generator struct {
	rnd *rand.Rand
	now func() time.Time
}

func NewGenerator(seed int64) *Generator {
	return &Generator{
		rnd: rand.New(rand.NewSource(seed)),
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (g *Generator) Generate(customerCount, orderCount int) (Dataset, error) {
	if customerCount <= 0 {
		return Dataset{}, fmt.Errorf("customer count must be > 0")
	}
	if orderCount < 0 {
		return Dataset{}, fmt.Errorf("order count must be >= 0")
	}
	today := g.now().UTC().Truncate(24 * time.Hour)

	var d Dataset
	for i := 1; i <= customerCount; i++ {
		home := cities[g.rnd.Intn(len(cities))]
		d.Customers = append(d.Customers, Customer{
			CustomerID:  int64(i),
			Name:        fmt.Sprintf("Customer %d", i),
			Email:       fmt.Sprintf("customer%d@email.com", i),
			City:        home.city,
			State:       home.state,
			Phone:       fmt.Sprintf("+91-9%09d", 100000000+g.rnd.Intn(900000000)),
			CreatedDate: g.daysBefore(today, 365),
		})
	}

	for i, product := range catalog {
		product.ProductID = int64(i + 1)
		d.Products = append(d.Products, product)
	}

	var itemID int64
	for i := 1; i <= orderCount; i++ {
		order := Order{
			OrderID:      int64(i),
			CustomerID:   int64(g.rnd.Intn(customerCount) + 1),
			OrderDate:    g.daysBefore(today, 180),
			Status:       orderStatuses[g.rnd.Intn(len(orderStatuses))],
			ShippingCity: cities[g.rnd.Intn(len(cities))].city,
		}
		items := g.rnd.Intn(5) + 1
		for j := 0; j < items; j++ {
			product := d.Products[g.rnd.Intn(len(d.Products))]
			quantity := int64(g.rnd.Intn(3) + 1)
			itemID++
			d.OrderItems = append(d.OrderItems, OrderItem{
				ItemID:    itemID,
				OrderID:   order.OrderID,
				ProductID: product.ProductID,
				Quantity:  quantity,
				UnitPrice: product.Price,
			})
			order.TotalAmount += float64(quantity) * product.Price
		}
		order.TotalAmount = round2(order.TotalAmount)
		d.Orders = append(d.Orders, order)
	}
	return d, nil
}

func (g *Generator) daysBefore(today time.Time, maxDays int) string {
	return today.AddDate(0, 0, -(g.rnd.Intn(maxDays) + 1)).Format(dateLayout)
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
