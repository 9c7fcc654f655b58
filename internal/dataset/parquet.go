package dataset

import (
	"bytes"
	"fmt"

	"github.com/parquet-go/parquet-go"
)

type ParquetEncodeResult struct {
	Data         []byte
	RecordCount  int64
	MinOrderDate string
	MaxOrderDate string
}

func EncodeRecordsToParquet(records []SalesRecord) (ParquetEncodeResult, error) {
	if len(records) == 0 {
		return ParquetEncodeResult{}, fmt.Errorf("records are required")
	}

	minDate, maxDate := records[0].OrderDate, records[0].OrderDate
	for _, record := range records[1:] {
		if record.OrderDate < minDate {
			minDate = record.OrderDate
		}
		if record.OrderDate > maxDate {
			maxDate = record.OrderDate
		}
	}

	buf := bytes.NewBuffer(nil)
	writer := parquet.NewGenericWriter[SalesRecord](buf)
	if _, err := writer.Write(records); err != nil {
		return ParquetEncodeResult{}, fmt.Errorf("write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return ParquetEncodeResult{}, fmt.Errorf("close parquet writer: %w", err)
	}

	return ParquetEncodeResult{
		Data:         buf.Bytes(),
		RecordCount:  int64(len(records)),
		MinOrderDate: minDate,
		MaxOrderDate: maxDate,
	}, nil
}
