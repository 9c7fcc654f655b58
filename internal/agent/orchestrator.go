// Package agent drives one question through generation, extraction, execution
// and at most one repair, and records successful interactions in memory.
package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/duckmesh/duckask/internal/memory"
	"github.com/duckmesh/duckask/internal/nl2sql"
	"github.com/duckmesh/duckask/internal/observability"
	"github.com/duckmesh/duckask/internal/query"
)

var (
	ErrNoDataset        = errors.New("no dataset selected")
	ErrGenerationFailed = errors.New("generation failed")
	ErrGenerationEmpty  = errors.New("no SQL generated")
	ErrRepairExhausted  = errors.New("could not auto-fix")
)

const (
	stageInitial = "initial"
	stageRepair  = "repair"
)

// Outcome describes how a single question ended.
type Outcome struct {
	State    State
	Path     []State
	Question string
	// Statement is the last statement executed, if any.
	Statement       string
	Repaired        bool
	FirstStatement  string
	FirstDiagnostic string
	Diagnostic      string
	Result          query.Result
	Err             error
}

func (o Outcome) Succeeded() bool {
	return o.State == StateSuccess
}

type Orchestrator struct {
	Generator nl2sql.Generator
	Extractor nl2sql.Extractor
	Executor  query.Executor
	Schemas   *query.SchemaProvider
	Memory    *memory.Store
	Dialect   string
	// TableSuffix is appended to dataset codes; empty means query.DefaultTableSuffix.
	TableSuffix string
	Logger      *slog.Logger
	Clock       func() time.Time

	session Session
}

// Session returns the active per-dataset context.
func (o *Orchestrator) Session() Session {
	return o.session
}

// Select validates code, fetches the table schema once and replaces the active
// session. On failure the previous session stays active.
func (o *Orchestrator) Select(ctx context.Context, code string) (Session, error) {
	o.ensureDefaults()
	dataset, err := query.ParseDataset(code, o.TableSuffix)
	if err != nil {
		return Session{}, err
	}
	if o.Schemas == nil {
		return Session{}, fmt.Errorf("schema provider is required")
	}
	schema, err := o.Schemas.Describe(ctx, dataset)
	if err != nil {
		return Session{}, err
	}
	o.session = NewSession(dataset, schema)
	o.Logger.InfoContext(ctx, "dataset selected",
		slog.String("table", dataset.Table),
		slog.Int("columns", len(schema.Columns)),
	)
	return o.session, nil
}

// Ask runs the question through the state machine. It issues at most two
// generation calls and two executions.
func (o *Orchestrator) Ask(ctx context.Context, question string) Outcome {
	o.ensureDefaults()
	if observability.TraceIDFromContext(ctx) == "" {
		ctx = observability.ContextWithTraceID(ctx, observability.NewTraceID())
	}
	logger := o.Logger.With(slog.String("trace_id", observability.TraceIDFromContext(ctx)))

	run := &cycle{outcome: Outcome{State: StateIdle, Path: []State{StateIdle}, Question: question}}
	outcome := o.ask(ctx, logger, run)

	observability.ObserveQuestion(string(outcome.State))
	if outcome.Err != nil {
		logger.WarnContext(ctx, "question failed",
			slog.String("table", o.session.Table()),
			slog.Any("error", outcome.Err),
		)
	}
	return outcome
}

func (o *Orchestrator) ask(ctx context.Context, logger *slog.Logger, run *cycle) Outcome {
	if !o.session.Active() {
		return run.fail(ErrNoDataset)
	}
	if o.Generator == nil || o.Executor == nil {
		return run.fail(fmt.Errorf("generator and executor are required"))
	}

	run.enter(StateGenerating)
	messages := nl2sql.BuildGenerationMessages(nl2sql.GenerationInput{
		Dialect:       o.Dialect,
		Table:         o.session.Table(),
		Schema:        o.session.Schema().Render(),
		MemoryContext: o.Memory.RenderContext(),
		Question:      run.outcome.Question,
	})
	response, err := o.generate(ctx, stageInitial, messages)
	if err != nil {
		return run.fail(fmt.Errorf("%w: %v", ErrGenerationFailed, err))
	}

	run.enter(StateExtracting)
	statement, ok := o.Extractor.Extract(response)
	if !ok {
		logger.DebugContext(ctx, "no statement in generation response", slog.Int("response_bytes", len(response)))
		return run.fail(ErrGenerationEmpty)
	}

	run.enter(StateExecuting)
	run.outcome.Statement = statement
	result := o.execute(ctx, stageInitial, statement)
	if result.OK() {
		return o.succeed(ctx, logger, run, statement, result.Result)
	}

	run.outcome.FirstStatement = statement
	run.outcome.FirstDiagnostic = result.Diagnostic
	run.outcome.Diagnostic = result.Diagnostic
	logger.InfoContext(ctx, "statement failed, requesting repair", slog.String("diagnostic", result.Diagnostic))

	run.enter(StateRepairing)
	repairMessages := nl2sql.BuildRepairMessages(nl2sql.RepairInput{
		Dialect:    o.Dialect,
		Table:      o.session.Table(),
		Schema:     o.session.Schema().Render(),
		Statement:  statement,
		Diagnostic: result.Diagnostic,
	})
	repairResponse, err := o.generate(ctx, stageRepair, repairMessages)
	if err != nil {
		observability.ObserveRepair("generation_error")
		return run.fail(fmt.Errorf("%w: %v", ErrRepairExhausted, err))
	}

	run.enter(StateReExtracting)
	repaired, ok := o.Extractor.Extract(repairResponse)
	if !ok {
		observability.ObserveRepair("empty")
		return run.fail(ErrRepairExhausted)
	}

	run.enter(StateReExecuting)
	run.outcome.Statement = repaired
	run.outcome.Repaired = true
	result = o.execute(ctx, stageRepair, repaired)
	if !result.OK() {
		observability.ObserveRepair("failed")
		run.outcome.Diagnostic = result.Diagnostic
		return run.fail(fmt.Errorf("%w: %s", ErrRepairExhausted, result.Diagnostic))
	}
	observability.ObserveRepair("succeeded")
	return o.succeed(ctx, logger, run, repaired, result.Result)
}

func (o *Orchestrator) succeed(ctx context.Context, logger *slog.Logger, run *cycle, statement string, result query.Result) Outcome {
	o.Memory.Append(memory.NewEntry(run.outcome.Question, statement, result.Columns, result.Rows))
	observability.SetMemoryEntries(o.Memory.Len())

	run.outcome.Result = result
	run.outcome.Diagnostic = ""
	run.enter(StateSuccess)
	logger.InfoContext(ctx, "question answered",
		slog.String("table", o.session.Table()),
		slog.Bool("repaired", run.outcome.Repaired),
		slog.Int("rows", len(result.Rows)),
		slog.Duration("duration", result.Duration),
	)
	return run.outcome
}

func (o *Orchestrator) generate(ctx context.Context, stage string, messages []nl2sql.Message) (string, error) {
	started := o.Clock()
	response, err := o.Generator.Complete(ctx, messages)
	observability.ObserveGeneration(stage, o.Clock().Sub(started))
	return response, err
}

func (o *Orchestrator) execute(ctx context.Context, stage, statement string) query.Outcome {
	started := o.Clock()
	outcome := o.Executor.Execute(ctx, statement)
	observability.ObserveExecution(stage, outcome.OK(), o.Clock().Sub(started))
	return outcome
}

// Close drops the session and clears memory. The data store is owned by the
// caller and closed separately.
func (o *Orchestrator) Close() {
	o.session = Session{}
	if o.Memory != nil {
		o.Memory.Clear()
		observability.SetMemoryEntries(0)
	}
}

func (o *Orchestrator) ensureDefaults() {
	if o.Extractor == nil {
		o.Extractor = nl2sql.RegexExtractor{}
	}
	if o.Memory == nil {
		store, _ := memory.New(memory.DefaultCapacity)
		o.Memory = store
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
}

type cycle struct {
	outcome Outcome
}

func (c *cycle) enter(state State) {
	c.outcome.State = state
	c.outcome.Path = append(c.outcome.Path, state)
}

func (c *cycle) fail(err error) Outcome {
	c.outcome.Err = err
	c.enter(StateFailed)
	return c.outcome
}
