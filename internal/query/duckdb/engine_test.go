package duckdb

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"testing"

	"github.com/parquet-go/parquet-go"

	"github.com/duckmesh/duckask/internal/storage"
)

type row struct {
	ID   int64  `parquet:"id"`
	City string `parquet:"city"`
}

func TestDescribeAndExecuteLocalTable(t *testing.T) {
	engine := openEngine(t, Config{})
	mustExec(t, engine, `CREATE TABLE "US_DATA" (order_id BIGINT, city VARCHAR)`)
	mustExec(t, engine, `INSERT INTO "US_DATA" VALUES (1, 'Austin'), (2, 'Boston')`)

	columns, err := engine.DescribeTable(context.Background(), "US_DATA")
	if err != nil {
		t.Fatalf("DescribeTable() error = %v", err)
	}
	if len(columns) != 2 || columns[0].Name != "order_id" || columns[0].Type != "BIGINT" || columns[1].Name != "city" {
		t.Fatalf("columns = %#v", columns)
	}

	outcome := engine.Execute(context.Background(), "SELECT city FROM US_DATA ORDER BY order_id;")
	if !outcome.OK() {
		t.Fatalf("Execute() diagnostic = %s", outcome.Diagnostic)
	}
	if len(outcome.Result.Rows) != 2 || outcome.Result.Rows[0][0] != "Austin" {
		t.Fatalf("rows = %#v", outcome.Result.Rows)
	}
	if len(outcome.Result.Columns) != 1 || outcome.Result.Columns[0] != "city" {
		t.Fatalf("columns = %#v", outcome.Result.Columns)
	}
}

func TestExecuteReturnsDiagnosticOnFailure(t *testing.T) {
	engine := openEngine(t, Config{})
	mustExec(t, engine, `CREATE TABLE "US_DATA" (order_id BIGINT)`)

	outcome := engine.Execute(context.Background(), "SELECT missing_column FROM US_DATA")
	if outcome.OK() {
		t.Fatal("expected failed outcome")
	}
	if !strings.Contains(outcome.Diagnostic, "missing_column") {
		t.Fatalf("Diagnostic = %q", outcome.Diagnostic)
	}

	if empty := engine.Execute(context.Background(), " ; "); empty.OK() {
		t.Fatal("expected empty statement to fail")
	}
}

func TestDescribeUnknownTableFails(t *testing.T) {
	engine := openEngine(t, Config{})
	if _, err := engine.DescribeTable(context.Background(), "ZZ_DATA"); err == nil {
		t.Fatal("expected describe error for unknown table")
	}
}

func TestDescribeMountsParquetDatasetFromObjectStore(t *testing.T) {
	first, err := buildParquet([]row{{ID: 1, City: "Berlin"}, {ID: 2, City: "Hamburg"}})
	if err != nil {
		t.Fatalf("buildParquet() error = %v", err)
	}
	second, err := buildParquet([]row{{ID: 3, City: "Munich"}})
	if err != nil {
		t.Fatalf("buildParquet() error = %v", err)
	}
	store := &memoryStore{objects: map[string][]byte{
		"DE_DATA/part-00000.parquet": first,
		"DE_DATA/part-00001.parquet": second,
		"DE_DATA/_manifest.json":     []byte("{}"),
		"FR_DATA/part-00000.parquet": first,
	}}
	engine := openEngine(t, Config{Datasets: store})

	columns, err := engine.DescribeTable(context.Background(), "DE_DATA")
	if err != nil {
		t.Fatalf("DescribeTable() error = %v", err)
	}
	if len(columns) != 2 || columns[0].Name != "id" || columns[1].Name != "city" {
		t.Fatalf("columns = %#v", columns)
	}

	outcome := engine.Execute(context.Background(), "SELECT COUNT(*) AS c FROM DE_DATA")
	if !outcome.OK() {
		t.Fatalf("Execute() diagnostic = %s", outcome.Diagnostic)
	}
	if outcome.Result.Rows[0][0] != int64(3) {
		t.Fatalf("count = %#v", outcome.Result.Rows[0][0])
	}

	if _, err := engine.DescribeTable(context.Background(), "DE_DATA"); err != nil {
		t.Fatalf("second DescribeTable() error = %v", err)
	}
	if store.gets != 2 {
		t.Fatalf("object downloads = %d, want 2", store.gets)
	}
}

func TestDescribeWithoutDatasetFilesFails(t *testing.T) {
	engine := openEngine(t, Config{Datasets: &memoryStore{objects: map[string][]byte{}}})
	if _, err := engine.DescribeTable(context.Background(), "JP_DATA"); err == nil {
		t.Fatal("expected describe error when no dataset files exist")
	}
}

func openEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	engine, err := Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = engine.Close() })
	return engine
}

func mustExec(t *testing.T, engine *Engine, statement string) {
	t.Helper()
	if _, err := engine.db.ExecContext(context.Background(), statement); err != nil {
		t.Fatalf("exec %q: %v", statement, err)
	}
}

func buildParquet(rows []row) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	writer := parquet.NewGenericWriter[row](buf)
	if _, err := writer.Write(rows); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type memoryStore struct {
	objects map[string][]byte
	gets    int
}

func (m *memoryStore) Put(context.Context, string, io.Reader, int64, storage.PutOptions) (storage.ObjectInfo, error) {
	return storage.ObjectInfo{}, nil
}

func (m *memoryStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	m.gets++
	data, ok := m.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memoryStore) Stat(_ context.Context, key string) (storage.ObjectInfo, error) {
	data, ok := m.objects[key]
	if !ok {
		return storage.ObjectInfo{}, storage.ErrObjectNotFound
	}
	return storage.ObjectInfo{Key: key, Size: int64(len(data))}, nil
}

func (m *memoryStore) List(_ context.Context, prefix string) ([]storage.ObjectInfo, error) {
	out := make([]storage.ObjectInfo, 0)
	for key, data := range m.objects {
		if strings.HasPrefix(key, prefix) {
			out = append(out, storage.ObjectInfo{Key: key, Size: int64(len(data))})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *memoryStore) Delete(_ context.Context, key string) error {
	delete(m.objects, key)
	return nil
}
