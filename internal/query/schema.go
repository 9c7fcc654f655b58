package query

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var ErrSchemaNotFound = errors.New("schema not found")

type Schema struct {
	Table   string
	Columns []Column
}

// Render lists one "<name> (<type>)" line per column in store order.
func (s Schema) Render() string {
	lines := make([]string, 0, len(s.Columns))
	for _, column := range s.Columns {
		lines = append(lines, fmt.Sprintf("%s (%s)", column.Name, column.Type))
	}
	return strings.Join(lines, "\n")
}

type SchemaProvider struct {
	Describer Describer
}

func NewSchemaProvider(describer Describer) *SchemaProvider {
	return &SchemaProvider{Describer: describer}
}

// Describe performs a single describe call for the dataset's table.
func (p *SchemaProvider) Describe(ctx context.Context, dataset Dataset) (Schema, error) {
	if p.Describer == nil {
		return Schema{}, fmt.Errorf("describer is required")
	}
	if dataset.IsZero() {
		return Schema{}, fmt.Errorf("%w: no dataset selected", ErrSchemaNotFound)
	}
	columns, err := p.Describer.DescribeTable(ctx, dataset.Table)
	if err != nil {
		return Schema{}, fmt.Errorf("%w: table %s: %v", ErrSchemaNotFound, dataset.Table, err)
	}
	if len(columns) == 0 {
		return Schema{}, fmt.Errorf("%w: table %s has no columns", ErrSchemaNotFound, dataset.Table)
	}
	return Schema{Table: dataset.Table, Columns: columns}, nil
}
