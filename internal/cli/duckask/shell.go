package duckask

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/duckmesh/duckask/internal/agent"
	"github.com/duckmesh/duckask/internal/memory"
	"github.com/duckmesh/duckask/internal/query"
)

const (
	commandExit   = "exit"
	commandChange = "change"
)

// Shell is the interactive loop: pick a dataset, ask questions about it,
// switch or leave.
type Shell struct {
	In    io.Reader
	Out   io.Writer
	Agent *agent.Orchestrator
	// MemoryLimit is used as-is when AskMemoryLimit is false and as the
	// default answer otherwise.
	MemoryLimit    int
	AskMemoryLimit bool
	// Dataset preselects the first dataset code instead of prompting.
	Dataset string

	lines <-chan string
}

func (s *Shell) Run(ctx context.Context) error {
	if s.Agent == nil {
		return fmt.Errorf("agent is required")
	}
	s.lines = readLines(s.In)
	defer s.shutdown()

	_, _ = fmt.Fprintln(s.Out, "\nAI SQL Agent Started.")
	_, _ = fmt.Fprintln(s.Out, "Type 'exit' anytime to stop.")

	limit := s.MemoryLimit
	if s.AskMemoryLimit {
		var ok bool
		if limit, ok = s.promptMemoryLimit(ctx); !ok {
			return nil
		}
	}
	store, err := memory.New(limit)
	if err != nil {
		return err
	}
	s.Agent.Memory = store

	preselected := strings.TrimSpace(s.Dataset)
	for ctx.Err() == nil {
		code := preselected
		preselected = ""
		if code == "" {
			line, ok := s.prompt(ctx, "\nEnter country code (2 letters) or type 'exit': ")
			if !ok || strings.EqualFold(line, commandExit) {
				return nil
			}
			code = line
		}

		session, err := s.Agent.Select(ctx, code)
		switch {
		case errors.Is(err, query.ErrInvalidDatasetCode):
			_, _ = fmt.Fprintln(s.Out, "Invalid country code.")
			continue
		case errors.Is(err, query.ErrSchemaNotFound):
			_, _ = fmt.Fprintf(s.Out, "Table %s not found.\n", s.tableFor(code))
			continue
		case err != nil:
			return err
		}
		_, _ = fmt.Fprintf(s.Out, "\nCountry set to: %s\n", session.Table())

		if leave := s.questionLoop(ctx); leave {
			return nil
		}
	}
	return nil
}

// questionLoop reports whether the user asked to leave the shell.
func (s *Shell) questionLoop(ctx context.Context) bool {
	for ctx.Err() == nil {
		question, ok := s.prompt(ctx, "\nWhat would you like to query? (or type 'change' / 'exit'): ")
		if !ok || strings.EqualFold(question, commandExit) {
			return true
		}
		if strings.EqualFold(question, commandChange) {
			return false
		}
		if question == "" {
			continue
		}

		s.report(s.Agent.Ask(ctx, question))
		_, _ = fmt.Fprintln(s.Out, "\nDone.")
	}
	return true
}

func (s *Shell) report(outcome agent.Outcome) {
	switch {
	case errors.Is(outcome.Err, agent.ErrGenerationEmpty):
		_, _ = fmt.Fprintln(s.Out, "Could not generate SQL.")
		return
	case errors.Is(outcome.Err, agent.ErrGenerationFailed), errors.Is(outcome.Err, agent.ErrNoDataset):
		renderError(s.Out, outcome.Err.Error())
		return
	}

	if outcome.FirstStatement != "" {
		renderStatement(s.Out, "Generated SQL:", outcome.FirstStatement)
		renderError(s.Out, "SQL Error: "+outcome.FirstDiagnostic)
		if !outcome.Repaired {
			_, _ = fmt.Fprintln(s.Out, "Could not auto-fix SQL.")
			return
		}
		renderStatement(s.Out, "Corrected SQL:", outcome.Statement)
	} else {
		renderStatement(s.Out, "Generated SQL:", outcome.Statement)
	}

	if outcome.Succeeded() {
		renderResult(s.Out, outcome.Result)
		return
	}
	if outcome.Diagnostic != "" {
		renderError(s.Out, "SQL Error: "+outcome.Diagnostic)
	}
	renderWarning(s.Out, "Repaired statement failed; giving up on this question.")
}

func (s *Shell) promptMemoryLimit(ctx context.Context) (int, bool) {
	for {
		line, ok := s.prompt(ctx, fmt.Sprintf("How many last query results to store? [%d] ", s.MemoryLimit))
		if !ok {
			return 0, false
		}
		if line == "" {
			return s.MemoryLimit, true
		}
		value, err := strconv.Atoi(line)
		if err != nil || value < 1 {
			_, _ = fmt.Fprintln(s.Out, "Please enter a whole number of at least 1.")
			continue
		}
		return value, true
	}
}

// prompt returns the trimmed next line; false means input is exhausted or
// ctx was cancelled.
func (s *Shell) prompt(ctx context.Context, text string) (string, bool) {
	_, _ = fmt.Fprint(s.Out, text)
	select {
	case <-ctx.Done():
		_, _ = fmt.Fprintln(s.Out)
		return "", false
	case line, ok := <-s.lines:
		return strings.TrimSpace(line), ok
	}
}

// readLines feeds lines from r until EOF. The goroutine outlives the shell
// when it is blocked on a terminal read at exit.
func readLines(r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	return lines
}

func (s *Shell) tableFor(code string) string {
	dataset, err := query.ParseDataset(code, s.Agent.TableSuffix)
	if err != nil {
		return strings.ToUpper(strings.TrimSpace(code))
	}
	return dataset.Table
}

func (s *Shell) shutdown() {
	_, _ = fmt.Fprintln(s.Out, "\nShutting down agent...")
	s.Agent.Close()
	_, _ = fmt.Fprintln(s.Out, "Memory cleared. Agent stopped.")
}
