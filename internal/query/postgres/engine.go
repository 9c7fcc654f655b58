package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/duckmesh/duckask/internal/query"
)

type DBConfig struct {
	DSN             string
	ConnMaxLifetime time.Duration
}

// Open connects to the warehouse with a single connection; the agent runs one
// statement at a time.
func Open(ctx context.Context, cfg DBConfig) (*sql.DB, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}

	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

type Engine struct {
	db *sql.DB
}

func NewEngine(db *sql.DB) *Engine {
	return &Engine{db: db}
}

func (e *Engine) Dialect() string {
	return "PostgreSQL"
}

const describeSQL = `SELECT column_name, data_type
FROM information_schema.columns
WHERE table_schema = current_schema() AND lower(table_name) = lower($1)
ORDER BY ordinal_position`

func (e *Engine) DescribeTable(ctx context.Context, table string) ([]query.Column, error) {
	rows, err := e.db.QueryContext(ctx, describeSQL, table)
	if err != nil {
		return nil, fmt.Errorf("describe table %q: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	columns := make([]query.Column, 0)
	for rows.Next() {
		var column query.Column
		if err := rows.Scan(&column.Name, &column.Type); err != nil {
			return nil, fmt.Errorf("scan column of %q: %w", table, err)
		}
		columns = append(columns, column)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate columns of %q: %w", table, err)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("table %q does not exist", table)
	}
	return columns, nil
}

func (e *Engine) Execute(ctx context.Context, statement string) query.Outcome {
	sqlText := strings.TrimSpace(statement)
	if strings.Trim(sqlText, "; \t\n") == "" {
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
	return e.db.Close()
}
