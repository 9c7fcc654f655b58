package dataset

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/parquet-go/parquet-go"
)

func TestEncodeRecordsToParquet(t *testing.T) {
	records := []SalesRecord{
		{OrderID: 1, OrderDate: "2025-03-02", Country: "US", Product: "Laptop", Quantity: 1, UnitPrice: 999.5, Amount: 999.5},
		{OrderID: 2, OrderDate: "2025-01-15", Country: "US", Product: "Notebook", Quantity: 3, UnitPrice: 2, Amount: 6},
	}

	result, err := EncodeRecordsToParquet(records)
	if err != nil {
		t.Fatalf("EncodeRecordsToParquet() error = %v", err)
	}
	if result.RecordCount != 2 {
		t.Fatalf("RecordCount = %d", result.RecordCount)
	}
	if result.MinOrderDate != "2025-01-15" || result.MaxOrderDate != "2025-03-02" {
		t.Fatalf("order date range = %s..%s", result.MinOrderDate, result.MaxOrderDate)
	}

	reader := parquet.NewGenericReader[SalesRecord](bytes.NewReader(result.Data))
	defer func() { _ = reader.Close() }()
	rows := make([]SalesRecord, 2)
	count, err := reader.Read(rows)
	if err != nil && !errors.Is(err, io.EOF) {
		t.Fatalf("reader.Read() error = %v", err)
	}
	if count != 2 {
		t.Fatalf("read rows = %d", count)
	}
	if rows[0] != records[0] || rows[1] != records[1] {
		t.Fatalf("unexpected rows: %+v", rows)
	}
}

func TestEncodeRecordsToParquetRequiresRecords(t *testing.T) {
	if _, err := EncodeRecordsToParquet(nil); err == nil {
		t.Fatal("expected error for empty input")
	}
}
