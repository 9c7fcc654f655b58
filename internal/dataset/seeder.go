package dataset

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/duckmesh/duckask/internal/query"
	"github.com/duckmesh/duckask/internal/storage"
)

var ErrDatasetExists = errors.New("dataset already exists")

const (
	defaultPartSize            = 1000
	defaultCustomerCardinality = 200
)

type Seeder struct {
	ObjectStore storage.ObjectStore
	Logger      *slog.Logger
}

type SeedInput struct {
	Dataset  query.Dataset
	Rows     int
	PartSize int
	Seed     int64
	// Replace removes existing parts first; otherwise an existing dataset is an error.
	Replace bool
}

type SeedResult struct {
	Table        string
	Keys         []string
	RecordCount  int64
	Bytes        int64
	MinOrderDate string
	MaxOrderDate string
}

// Seed writes Rows synthetic records for the dataset as one or more parquet
// parts under "<TABLE>/".
func (s *Seeder) Seed(ctx context.Context, in SeedInput) (SeedResult, error) {
	if s.ObjectStore == nil {
		return SeedResult{}, fmt.Errorf("object store is required")
	}
	if in.Dataset.IsZero() {
		return SeedResult{}, fmt.Errorf("dataset is required")
	}
	if in.Rows <= 0 {
		return SeedResult{}, fmt.Errorf("rows must be > 0")
	}
	partSize := in.PartSize
	if partSize <= 0 {
		partSize = defaultPartSize
	}
	logger := s.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	table := in.Dataset.Table
	prefix, err := storage.DatasetPrefix(table)
	if err != nil {
		return SeedResult{}, err
	}
	existing, err := s.ObjectStore.List(ctx, prefix)
	if err != nil {
		return SeedResult{}, fmt.Errorf("list dataset %s: %w", table, err)
	}
	if len(existing) > 0 {
		if !in.Replace {
			return SeedResult{}, fmt.Errorf("%w: %s has %d objects", ErrDatasetExists, table, len(existing))
		}
		for _, object := range existing {
			if err := s.ObjectStore.Delete(ctx, object.Key); err != nil {
				return SeedResult{}, fmt.Errorf("delete %s: %w", object.Key, err)
			}
		}
		logger.InfoContext(ctx, "removed existing dataset parts", slog.String("table", table), slog.Int("objects", len(existing)))
	}

	generator := NewGenerator(in.Seed, in.Dataset.Code, defaultCustomerCardinality)
	result := SeedResult{Table: table}
	for part, remaining := 0, in.Rows; remaining > 0; part++ {
		n := min(partSize, remaining)
		remaining -= n

		encoded, err := EncodeRecordsToParquet(generator.Records(n))
		if err != nil {
			return SeedResult{}, err
		}
		key, err := storage.BuildDatasetFilePath(table, part)
		if err != nil {
			return SeedResult{}, err
		}
		if _, err := s.ObjectStore.Put(ctx, key, bytes.NewReader(encoded.Data), int64(len(encoded.Data)), storage.PutOptions{
			ContentType: "application/octet-stream",
		}); err != nil {
			return SeedResult{}, fmt.Errorf("upload %s: %w", key, err)
		}

		result.Keys = append(result.Keys, key)
		result.RecordCount += encoded.RecordCount
		result.Bytes += int64(len(encoded.Data))
		if result.MinOrderDate == "" || encoded.MinOrderDate < result.MinOrderDate {
			result.MinOrderDate = encoded.MinOrderDate
		}
		if encoded.MaxOrderDate > result.MaxOrderDate {
			result.MaxOrderDate = encoded.MaxOrderDate
		}
	}

	logger.InfoContext(ctx, "dataset seeded",
		slog.String("table", table),
		slog.Int("parts", len(result.Keys)),
		slog.Int64("records", result.RecordCount),
		slog.Int64("bytes", result.Bytes),
	)
	return result, nil
}
