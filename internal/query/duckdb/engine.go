package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/marcboeker/go-duckdb/v2"

	"github.com/duckmesh/duckask/internal/query"
	"github.com/duckmesh/duckask/internal/storage"
)

type Config struct {
	// Path of the database file; empty opens an in-memory database.
	Path string
	// Datasets, when set, lets the engine mount tables that only exist as
	// parquet files in the object store.
	Datasets storage.ObjectStore
	Logger   *slog.Logger
}

// Engine is the process-scoped DuckDB handle used to describe and query
// datasets. It is not safe for concurrent use.
type Engine struct {
	db       *sql.DB
	datasets storage.ObjectStore
	workDir  string
	mounted  map[string]bool
	logger   *slog.Logger
}

func Open(ctx context.Context, cfg Config) (*Engine, error) {
	db, err := sql.Open("duckdb", strings.TrimSpace(cfg.Path))
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping duckdb: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	engine := &Engine{
		db:       db,
		datasets: cfg.Datasets,
		mounted:  map[string]bool{},
		logger:   logger,
	}
	if cfg.Datasets != nil {
		workDir, err := os.MkdirTemp("", "duckask-datasets-")
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("create dataset temp dir: %w", err)
		}
		engine.workDir = workDir
	}
	return engine, nil
}

func (e *Engine) Dialect() string {
	return "DuckDB"
}

func (e *Engine) DescribeTable(ctx context.Context, table string) ([]query.Column, error) {
	if err := e.ensureMounted(ctx, table); err != nil {
		return nil, err
	}

	rows, err := e.db.QueryContext(ctx, "DESCRIBE "+query.QuoteIdent(table))
	if err != nil {
		return nil, fmt.Errorf("describe table %q: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	result, err := query.ScanRows(rows)
	if err != nil {
		return nil, fmt.Errorf("describe table %q: %w", table, err)
	}
	columns := make([]query.Column, 0, len(result.Rows))
	for _, row := range result.Rows {
		if len(row) < 2 {
			return nil, fmt.Errorf("describe table %q: unexpected row shape", table)
		}
		columns = append(columns, query.Column{Name: fmt.Sprint(row[0]), Type: fmt.Sprint(row[1])})
	}
	return columns, nil
}

func (e *Engine) Execute(ctx context.Context, statement string) query.Outcome {
	sqlText := stripTrailingSemicolons(statement)
	if sqlText == "" {
		return query.Failed("sql is required")
	}

	start := time.Now()
	rows, err := e.db.QueryContext(ctx, sqlText)
	if err != nil {
		return query.Failed(err.Error())
	}
	defer func() { _ = rows.Close() }()

	result, err := query.ScanRows(rows)
	if err != nil {
		return query.Failed(err.Error())
	}
	result.Duration = time.Since(start)
	return query.Succeeded(result)
}

func (e *Engine) Close() error {
	err := e.db.Close()
	if e.workDir != "" {
		_ = os.RemoveAll(e.workDir)
	}
	return err
}

// ensureMounted exposes a dataset stored as parquet parts as a view named after
// the table. Tables that already exist in the database are left untouched.
func (e *Engine) ensureMounted(ctx context.Context, table string) error {
	if e.datasets == nil || e.mounted[table] {
		return nil
	}
	exists, err := e.tableExists(ctx, table)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	prefix, err := storage.DatasetPrefix(table)
	if err != nil {
		return err
	}
	objects, err := e.datasets.List(ctx, prefix)
	if err != nil {
		return fmt.Errorf("list dataset files for %q: %w", table, err)
	}

	localPaths := make([]string, 0, len(objects))
	for index, object := range objects {
		if !storage.IsParquetKey(object.Key) {
			continue
		}
		localPath := filepath.Join(e.workDir, fmt.Sprintf("%s_%d.parquet", sanitizeFileComponent(table), index))
		if err := e.download(ctx, object.Key, localPath); err != nil {
			return err
		}
		localPaths = append(localPaths, localPath)
	}
	if len(localPaths) == 0 {
		return nil
	}

	viewSQL := fmt.Sprintf(`CREATE OR REPLACE VIEW %s AS SELECT * FROM read_parquet(%s)`, query.QuoteIdent(table), quoteStringArray(localPaths))
	if _, err := e.db.ExecContext(ctx, viewSQL); err != nil {
		return fmt.Errorf("create view for table %q: %w", table, err)
	}
	e.mounted[table] = true
	e.logger.DebugContext(ctx, "mounted dataset", slog.String("table", table), slog.Int("files", len(localPaths)))
	return nil
}

func (e *Engine) download(ctx context.Context, key, localPath string) error {
	reader, err := e.datasets.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("get object %q: %w", key, err)
	}
	if err := writeFile(localPath, reader); err != nil {
		_ = reader.Close()
		return fmt.Errorf("write local parquet file %q: %w", localPath, err)
	}
	if err := reader.Close(); err != nil {
		return fmt.Errorf("close object %q: %w", key, err)
	}
	return nil
}

func (e *Engine) tableExists(ctx context.Context, table string) (bool, error) {
	var count int
	err := e.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM information_schema.tables WHERE table_name = ?`, table).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check table %q: %w", table, err)
	}
	return count > 0, nil
}

func quoteStringArray(values []string) string {
	quoted := make([]string, 0, len(values))
	for _, value := range values {
		quoted = append(quoted, `'`+strings.ReplaceAll(value, `'`, `''`)+`'`)
	}
	return "[" + strings.Join(quoted, ",") + "]"
}

func sanitizeFileComponent(value string) string {
	value = strings.ReplaceAll(value, "/", "_")
	value = strings.ReplaceAll(value, "..", "_")
	if value == "" {
		return "table"
	}
	return value
}

func stripTrailingSemicolons(sqlText string) string {
	trimmed := strings.TrimSpace(sqlText)
	for strings.HasSuffix(trimmed, ";") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	}
	return trimmed
}

func writeFile(path string, reader io.Reader) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(file, reader); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}
