package dataset

import (
	"bytes"
	"fmt"

	"github.com/parquet-go/parquet-go"
)

type EncodedTable struct {
	Name string
	Rows int64
	Data []byte
}

// Encode renders one parquet file per table, in the order tables are bootstrapped.
func (d Dataset) Encode() ([]EncodedTable, error) {
	encoders := []struct {
		name   string
		encode func() ([]byte, int64, error)
	}{
		{"customers", func() ([]byte, int64, error) { return encodeRows(d.Customers) }},
		{"products", func() ([]byte, int64, error) { return encodeRows(d.Products) }},
		{"orders", func() ([]byte, int64, error) { return encodeRows(d.Orders) }},
		{"order_items", func() ([]byte, int64, error) { return encodeRows(d.OrderItems) }},
	}
	tables := make([]EncodedTable, 0, len(encoders))
	for _, encoder := range encoders {
		data, rows, err := encoder.encode()
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", encoder.name, err)
		}
		tables = append(tables, EncodedTable{Name: encoder.name, Rows: rows, Data: data})
	}
	return tables, nil
}

// TableColumns lists the parquet column names written for each table.
func TableColumns() map[string][]string {
	return map[string][]string{
		"customers":   fieldNames(parquet.SchemaOf(Customer{})),
		"products":    fieldNames(parquet.SchemaOf(Product{})),
		"orders":      fieldNames(parquet.SchemaOf(Order{})),
		"order_items": fieldNames(parquet.SchemaOf(OrderItem{})),
	}
}

func fieldNames(schema *parquet.Schema) []string {
	fields := schema.Fields()
	names := make([]string, 0, len(fields))
	for _, field := range fields {
		names = append(names, field.Name())
	}
	return names
}

func encodeRows[T any](rows []T) ([]byte, int64, error) {
	buf := bytes.NewBuffer(nil)
	writer := parquet.NewGenericWriter[T](buf)
	if len(rows) > 0 {
		if _, err := writer.Write(rows); err != nil {
			return nil, 0, fmt.Errorf("write parquet rows: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, 0, fmt.Errorf("close parquet writer: %w", err)
	}
	return buf.Bytes(), int64(len(rows)), nil
}
