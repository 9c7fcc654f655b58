package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duckmesh/duckask/internal/memory"
	"github.com/duckmesh/duckask/internal/nl2sql"
	"github.com/duckmesh/duckask/internal/query"
)

type scriptedGenerator struct {
	responses []string
	errs      []error
	calls     [][]nl2sql.Message
}

func (g *scriptedGenerator) Complete(_ context.Context, messages []nl2sql.Message) (string, error) {
	idx := len(g.calls)
	g.calls = append(g.calls, messages)
	var err error
	if idx < len(g.errs) {
		err = g.errs[idx]
	}
	if idx >= len(g.responses) {
		return "", err
	}
	return g.responses[idx], err
}

type scriptedExecutor struct {
	outcomes   []query.Outcome
	statements []string
}

func (e *scriptedExecutor) Execute(_ context.Context, statement string) query.Outcome {
	idx := len(e.statements)
	e.statements = append(e.statements, statement)
	if idx >= len(e.outcomes) {
		return query.Failed("unexpected execution")
	}
	return e.outcomes[idx]
}

type staticDescriber struct {
	columns map[string][]query.Column
	calls   int
}

func (d *staticDescriber) DescribeTable(_ context.Context, table string) ([]query.Column, error) {
	d.calls++
	columns, ok := d.columns[table]
	if !ok {
		return nil, errors.New("table does not exist")
	}
	return columns, nil
}

func rowsResult(values ...int) query.Result {
	rows := make([][]any, 0, len(values))
	for _, value := range values {
		rows = append(rows, []any{value})
	}
	return query.Result{Columns: []string{"n"}, Rows: rows}
}

func newTestOrchestrator(t *testing.T, capacity int, generator *scriptedGenerator, executor *scriptedExecutor) *Orchestrator {
	t.Helper()
	store, err := memory.New(capacity)
	require.NoError(t, err)
	describer := &staticDescriber{columns: map[string][]query.Column{
		"US_DATA": {{Name: "n", Type: "INTEGER"}, {Name: "region", Type: "VARCHAR"}},
	}}
	o := &Orchestrator{
		Generator: generator,
		Executor:  executor,
		Schemas:   query.NewSchemaProvider(describer),
		Memory:    store,
		Dialect:   "DuckDB",
	}
	_, err = o.Select(context.Background(), "us")
	require.NoError(t, err)
	return o
}

func TestAskSucceedsFirstTry(t *testing.T) {
	generator := &scriptedGenerator{responses: []string{"```sql\nSELECT n FROM US_DATA LIMIT 50;\n```"}}
	executor := &scriptedExecutor{outcomes: []query.Outcome{query.Succeeded(rowsResult(1, 2))}}
	o := newTestOrchestrator(t, 3, generator, executor)

	outcome := o.Ask(context.Background(), "list n")

	require.NoError(t, outcome.Err)
	assert.True(t, outcome.Succeeded())
	assert.Equal(t, []State{StateIdle, StateGenerating, StateExtracting, StateExecuting, StateSuccess}, outcome.Path)
	assert.Equal(t, "SELECT n FROM US_DATA LIMIT 50;", outcome.Statement)
	assert.False(t, outcome.Repaired)
	assert.Len(t, outcome.Result.Rows, 2)
	assert.Equal(t, []string{"SELECT n FROM US_DATA LIMIT 50;"}, executor.statements)

	entries := o.Memory.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "list n", entries[0].Question)
	assert.Equal(t, "SELECT n FROM US_DATA LIMIT 50;", entries[0].Statement)

	require.Len(t, generator.calls, 1)
	require.Len(t, generator.calls[0], 2)
	assert.Contains(t, generator.calls[0][0].Content, "Use ONLY this table: US_DATA")
	assert.Contains(t, generator.calls[0][0].Content, "n (INTEGER)\nregion (VARCHAR)")
	assert.Equal(t, "list n", generator.calls[0][1].Content)
}

func TestAskWithoutStatementFailsWithoutExecuting(t *testing.T) {
	generator := &scriptedGenerator{responses: []string{"I cannot help with that"}}
	executor := &scriptedExecutor{}
	o := newTestOrchestrator(t, 3, generator, executor)

	outcome := o.Ask(context.Background(), "write me a poem")

	assert.Equal(t, StateFailed, outcome.State)
	assert.ErrorIs(t, outcome.Err, ErrGenerationEmpty)
	assert.Empty(t, executor.statements)
	assert.Equal(t, 0, o.Memory.Len())
	assert.Len(t, generator.calls, 1)
}

func TestAskRepairSuccessRecordsRepairedStatement(t *testing.T) {
	generator := &scriptedGenerator{responses: []string{
		"SELECT nope FROM US_DATA;",
		"SELECT n FROM US_DATA;",
	}}
	executor := &scriptedExecutor{outcomes: []query.Outcome{
		query.Failed(`Binder Error: Referenced column "nope" not found`),
		query.Succeeded(rowsResult(7)),
	}}
	o := newTestOrchestrator(t, 3, generator, executor)

	outcome := o.Ask(context.Background(), "what is n")

	require.NoError(t, outcome.Err)
	assert.True(t, outcome.Succeeded())
	assert.True(t, outcome.Repaired)
	assert.Equal(t, "SELECT nope FROM US_DATA;", outcome.FirstStatement)
	assert.Equal(t, `Binder Error: Referenced column "nope" not found`, outcome.FirstDiagnostic)
	assert.Equal(t, []State{
		StateIdle, StateGenerating, StateExtracting, StateExecuting,
		StateRepairing, StateReExtracting, StateReExecuting, StateSuccess,
	}, outcome.Path)
	assert.Len(t, executor.statements, 2)

	entries := o.Memory.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "what is n", entries[0].Question)
	assert.Equal(t, "SELECT n FROM US_DATA;", entries[0].Statement)

	require.Len(t, generator.calls, 2)
	repair := generator.calls[1]
	require.Len(t, repair, 1)
	assert.Equal(t, nl2sql.RoleSystem, repair[0].Role)
	assert.Contains(t, repair[0].Content, "SQL:\nSELECT nope FROM US_DATA;")
	assert.Contains(t, repair[0].Content, `DuckDB Error:`+"\n"+`Binder Error: Referenced column "nope" not found`)
}

func TestAskRepairFailureStopsAfterTwoExecutions(t *testing.T) {
	generator := &scriptedGenerator{responses: []string{"SELECT a FROM US_DATA;", "SELECT b FROM US_DATA;"}}
	executor := &scriptedExecutor{outcomes: []query.Outcome{
		query.Failed("column a missing"),
		query.Failed("column b missing"),
		query.Succeeded(rowsResult(1)),
	}}
	o := newTestOrchestrator(t, 3, generator, executor)

	outcome := o.Ask(context.Background(), "q")

	assert.Equal(t, StateFailed, outcome.State)
	assert.ErrorIs(t, outcome.Err, ErrRepairExhausted)
	assert.Equal(t, "column b missing", outcome.Diagnostic)
	assert.Equal(t, "column a missing", outcome.FirstDiagnostic)
	assert.Len(t, executor.statements, 2)
	assert.Len(t, generator.calls, 2)
	assert.Equal(t, 0, o.Memory.Len())
}

func TestAskRepairWithoutStatementIsExhausted(t *testing.T) {
	generator := &scriptedGenerator{responses: []string{"SELECT a FROM US_DATA;", "Sorry, no idea."}}
	executor := &scriptedExecutor{outcomes: []query.Outcome{query.Failed("boom")}}
	o := newTestOrchestrator(t, 3, generator, executor)

	outcome := o.Ask(context.Background(), "q")

	assert.ErrorIs(t, outcome.Err, ErrRepairExhausted)
	assert.Equal(t, StateFailed, outcome.State)
	assert.Equal(t, StateReExtracting, outcome.Path[len(outcome.Path)-2])
	assert.Len(t, executor.statements, 1)
	assert.Equal(t, 0, o.Memory.Len())
}

func TestRepairPromptOmitsMemoryContext(t *testing.T) {
	generator := &scriptedGenerator{responses: []string{
		"SELECT n FROM US_DATA;",
		"SELECT bad FROM US_DATA;",
		"SELECT n FROM US_DATA WHERE n > 1;",
	}}
	executor := &scriptedExecutor{outcomes: []query.Outcome{
		query.Succeeded(rowsResult(1)),
		query.Failed("bad column"),
		query.Succeeded(rowsResult(2)),
	}}
	o := newTestOrchestrator(t, 3, generator, executor)

	require.True(t, o.Ask(context.Background(), "first").Succeeded())
	require.True(t, o.Ask(context.Background(), "second").Succeeded())

	require.Len(t, generator.calls, 3)
	assert.Contains(t, generator.calls[1][0].Content, "Previous Query History:")
	assert.Contains(t, generator.calls[1][0].Content, "User Question: first")
	assert.NotContains(t, generator.calls[2][0].Content, "Previous Query History")
}

func TestAskGenerationTransportError(t *testing.T) {
	generator := &scriptedGenerator{errs: []error{errors.New("connection refused")}}
	executor := &scriptedExecutor{}
	o := newTestOrchestrator(t, 3, generator, executor)

	outcome := o.Ask(context.Background(), "q")

	assert.ErrorIs(t, outcome.Err, ErrGenerationFailed)
	assert.Empty(t, executor.statements)
}

func TestAskRequiresDataset(t *testing.T) {
	o := &Orchestrator{Generator: &scriptedGenerator{}, Executor: &scriptedExecutor{}}
	outcome := o.Ask(context.Background(), "q")
	assert.ErrorIs(t, outcome.Err, ErrNoDataset)
	assert.Equal(t, StateFailed, outcome.State)
}

func TestMemoryKeepsLastTwoOfThreeQuestions(t *testing.T) {
	generator := &scriptedGenerator{responses: []string{
		"SELECT 1;", "SELECT 2;", "SELECT 3;",
	}}
	executor := &scriptedExecutor{outcomes: []query.Outcome{
		query.Succeeded(rowsResult(1)),
		query.Succeeded(rowsResult(2)),
		query.Succeeded(rowsResult(3)),
	}}
	o := newTestOrchestrator(t, 2, generator, executor)

	for _, question := range []string{"Q1", "Q2", "Q3"} {
		require.True(t, o.Ask(context.Background(), question).Succeeded())
	}

	rendered := o.Memory.RenderContext()
	assert.NotContains(t, rendered, "User Question: Q1")
	q2 := strings.Index(rendered, "User Question: Q2")
	q3 := strings.Index(rendered, "User Question: Q3")
	require.GreaterOrEqual(t, q2, 0)
	assert.Greater(t, q3, q2)
}

func TestSelectReplacesSessionOnlyOnSuccess(t *testing.T) {
	o := newTestOrchestrator(t, 3, &scriptedGenerator{}, &scriptedExecutor{})
	require.Equal(t, "US_DATA", o.Session().Table())

	_, err := o.Select(context.Background(), "USA")
	assert.ErrorIs(t, err, query.ErrInvalidDatasetCode)
	_, err = o.Select(context.Background(), "fr")
	assert.ErrorIs(t, err, query.ErrSchemaNotFound)

	assert.Equal(t, "US_DATA", o.Session().Table())
	assert.Equal(t, "US", o.Session().Dataset().Code)
}

func TestCloseClearsMemoryAndSession(t *testing.T) {
	generator := &scriptedGenerator{responses: []string{"SELECT 1;"}}
	executor := &scriptedExecutor{outcomes: []query.Outcome{query.Succeeded(rowsResult(1))}}
	o := newTestOrchestrator(t, 3, generator, executor)
	require.True(t, o.Ask(context.Background(), "q").Succeeded())

	o.Close()

	assert.Equal(t, 0, o.Memory.Len())
	assert.False(t, o.Session().Active())
}
