package query

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDataset(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		code      string
		suffix    string
		wantTable string
		wantErr   bool
	}{
		{name: "upper", code: "US", suffix: "_DATA", wantTable: "US_DATA"},
		{name: "lower is normalized", code: " de ", suffix: "_DATA", wantTable: "DE_DATA"},
		{name: "default suffix", code: "IN", wantTable: "IN_DATA"},
		{name: "three letters", code: "USA", wantErr: true},
		{name: "digits", code: "U1", wantErr: true},
		{name: "empty", code: "", wantErr: true},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			dataset, err := ParseDataset(tc.code, tc.suffix)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrInvalidDatasetCode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantTable, dataset.Table)
		})
	}
}

func TestSchemaRender(t *testing.T) {
	t.Parallel()

	schema := Schema{Table: "US_DATA", Columns: []Column{{Name: "ORDER_ID", Type: "BIGINT"}, {Name: "CITY", Type: "VARCHAR"}}}
	assert.Equal(t, "ORDER_ID (BIGINT)\nCITY (VARCHAR)", schema.Render())
}

func TestSchemaProviderDescribe(t *testing.T) {
	t.Parallel()

	describer := &fakeDescriber{columns: map[string][]Column{
		"US_DATA": {{Name: "a", Type: "INTEGER"}},
		"EMPTY":   {},
	}}
	provider := NewSchemaProvider(describer)

	schema, err := provider.Describe(context.Background(), Dataset{Code: "US", Table: "US_DATA"})
	require.NoError(t, err)
	assert.Equal(t, "a (INTEGER)", schema.Render())
	assert.Equal(t, []string{"US_DATA"}, describer.calls)

	_, err = provider.Describe(context.Background(), Dataset{Code: "ZZ", Table: "ZZ_DATA"})
	assert.ErrorIs(t, err, ErrSchemaNotFound)

	_, err = provider.Describe(context.Background(), Dataset{Code: "EM", Table: "EMPTY"})
	assert.ErrorIs(t, err, ErrSchemaNotFound)

	_, err = provider.Describe(context.Background(), Dataset{})
	assert.ErrorIs(t, err, ErrSchemaNotFound)
}

func TestOutcome(t *testing.T) {
	t.Parallel()

	ok := Succeeded(Result{Columns: []string{"a"}})
	assert.True(t, ok.OK())

	failed := Failed("")
	assert.False(t, failed.OK())
	assert.NotEmpty(t, failed.Diagnostic)
}

type fakeDescriber struct {
	columns map[string][]Column
	calls   []string
}

func (f *fakeDescriber) DescribeTable(_ context.Context, table string) ([]Column, error) {
	f.calls = append(f.calls, table)
	columns, ok := f.columns[table]
	if !ok {
		return nil, errors.New("Catalog Error: Table with name " + table + " does not exist!")
	}
	return columns, nil
}
