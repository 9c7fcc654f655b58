// Package dataset builds synthetic per-country sales tables and publishes them
// to the object store as parquet parts that the DuckDB engine can mount.
package dataset

import (
	"fmt"
	"math"
	"math/rand"
	"time"
)

// SalesRecord is one row of a seeded <CODE>_DATA table.
type SalesRecord struct {
	OrderID   int64   `parquet:"order_id"`
	OrderDate string  `parquet:"order_date"`
	Country   string  `parquet:"country"`
	Region    string  `parquet:"region"`
	Customer  string  `parquet:"customer_id"`
	Product   string  `parquet:"product"`
	Category  string  `parquet:"category"`
	Channel   string  `parquet:"channel"`
	Quantity  int32   `parquet:"quantity"`
	UnitPrice float64 `parquet:"unit_price"`
	Amount    float64 `parquet:"amount"`
}

type product struct {
	name     string
	category string
	minPrice float64
	maxPrice float64
}

var catalog = []product{
	{name: "Laptop", category: "Electronics", minPrice: 650, maxPrice: 2400},
	{name: "Headphones", category: "Electronics", minPrice: 25, maxPrice: 350},
	{name: "Monitor", category: "Electronics", minPrice: 120, maxPrice: 900},
	{name: "Desk Chair", category: "Furniture", minPrice: 80, maxPrice: 600},
	{name: "Standing Desk", category: "Furniture", minPrice: 250, maxPrice: 1100},
	{name: "Coffee Beans", category: "Grocery", minPrice: 8, maxPrice: 40},
	{name: "Notebook", category: "Office", minPrice: 2, maxPrice: 18},
	{name: "Backpack", category: "Accessories", minPrice: 30, maxPrice: 180},
}

var regions = []string{"North", "South", "East", "West", "Central"}

// Generator produces deterministic records for a given seed and country.
type Generator struct {
	rnd                 *rand.Rand
	country             string
	customerCardinality int
	sequence            int64
	start               time.Time
}

func NewGenerator(seed int64, country string, customerCardinality int) *Generator {
	if customerCardinality <= 0 {
		customerCardinality = 200
	}
	return &Generator{
		rnd:                 rand.New(rand.NewSource(seed)),
		country:             country,
		customerCardinality: customerCardinality,
		start:               time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (g *Generator) NextRecord() SalesRecord {
	g.sequence++
	item := catalog[g.rnd.Intn(len(catalog))]
	quantity := g.pickQuantity(item)
	unitPrice := round2(item.minPrice + g.rnd.Float64()*(item.maxPrice-item.minPrice))
	orderDate := g.start.AddDate(0, 0, g.rnd.Intn(365))

	return SalesRecord{
		OrderID:   g.sequence,
		OrderDate: orderDate.Format(time.DateOnly),
		Country:   g.country,
		Region:    pickOne(g.rnd, regions),
		Customer:  fmt.Sprintf("%s-C%04d", g.country, g.rnd.Intn(g.customerCardinality)+1),
		Product:   item.name,
		Category:  item.category,
		Channel:   g.pickChannel(),
		Quantity:  quantity,
		UnitPrice: unitPrice,
		Amount:    round2(unitPrice * float64(quantity)),
	}
}

func (g *Generator) Records(n int) []SalesRecord {
	records := make([]SalesRecord, 0, n)
	for i := 0; i < n; i++ {
		records = append(records, g.NextRecord())
	}
	return records
}

func (g *Generator) pickChannel() string {
	p := g.rnd.Intn(100)
	switch {
	case p < 60:
		return "online"
	case p < 90:
		return "retail"
	default:
		return "partner"
	}
}

func (g *Generator) pickQuantity(item product) int32 {
	if item.maxPrice > 500 {
		return int32(1 + g.rnd.Intn(2))
	}
	return int32(1 + g.rnd.Intn(10))
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}

func pickOne(r *rand.Rand, values []string) string {
	return values[r.Intn(len(values))]
}
