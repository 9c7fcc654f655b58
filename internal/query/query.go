package query

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

type Column struct {
	Name string
	Type string
}

type Result struct {
	Columns  []string
	Rows     [][]any
	Duration time.Duration
}

// Outcome is the typed result of one execution: either a Result or the
// store's diagnostic message. Execution failures are values, not errors.
type Outcome struct {
	Result     Result
	Diagnostic string
	failed     bool
}

func Succeeded(result Result) Outcome {
	return Outcome{Result: result}
}

func Failed(diagnostic string) Outcome {
	if diagnostic == "" {
		diagnostic = "statement failed without a diagnostic"
	}
	return Outcome{Diagnostic: diagnostic, failed: true}
}

func (o Outcome) OK() bool {
	return !o.failed
}

// Executor runs one statement against the active data store.
type Executor interface {
	Execute(ctx context.Context, statement string) Outcome
}

// Describer lists the columns of a table in the store's native order.
type Describer interface {
	DescribeTable(ctx context.Context, table string) ([]Column, error)
}

// Store is the long-lived data-store handle acquired once per process.
type Store interface {
	Executor
	Describer
	Dialect() string
	Close() error
}

// ScanRows drains rows into a Result. It closes nothing; callers own rows.
func ScanRows(rows *sql.Rows) (Result, error) {
	columns, err := rows.Columns()
	if err != nil {
		return Result{}, fmt.Errorf("query columns: %w", err)
	}

	resultRows := make([][]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return Result{}, fmt.Errorf("scan row: %w", err)
		}
		resultRows = append(resultRows, normalizeValues(values))
	}
	if err := rows.Err(); err != nil {
		return Result{}, fmt.Errorf("iterate rows: %w", err)
	}
	return Result{Columns: columns, Rows: resultRows}, nil
}

func normalizeValues(values []any) []any {
	normalized := make([]any, len(values))
	for i, value := range values {
		switch typed := value.(type) {
		case []byte:
			normalized[i] = string(typed)
		default:
			normalized[i] = typed
		}
	}
	return normalized
}

func QuoteIdent(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}
