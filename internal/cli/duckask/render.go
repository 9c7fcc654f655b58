package duckask

import (
	"fmt"
	"io"
	"time"

	"github.com/pterm/pterm"

	"github.com/duckmesh/duckask/internal/query"
)

// renderResult prints a full result table, or the empty-result notice.
func renderResult(w io.Writer, result query.Result) {
	if len(result.Rows) == 0 {
		_, _ = fmt.Fprintln(w, "\nQuery executed successfully. No rows returned.")
		return
	}

	data := make(pterm.TableData, 0, len(result.Rows)+1)
	data = append(data, result.Columns)
	for _, row := range result.Rows {
		cells := make([]string, len(row))
		for i, value := range row {
			cells[i] = formatCell(value)
		}
		data = append(data, cells)
	}

	table, err := pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(data).Srender()
	if err != nil {
		_, _ = fmt.Fprintf(w, "render table: %v\n", err)
		return
	}
	_, _ = fmt.Fprintln(w, "\nQuery Results:")
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, table)
	_, _ = fmt.Fprintln(w, pterm.Gray(fmt.Sprintf("%d rows in %s", len(result.Rows), result.Duration.Round(time.Millisecond))))
}

func renderStatement(w io.Writer, label, statement string) {
	_, _ = fmt.Fprintf(w, "\n%s\n %s\n", label, statement)
}

func renderError(w io.Writer, message string) {
	_, _ = fmt.Fprint(w, pterm.Error.Sprintln(message))
}

func renderWarning(w io.Writer, message string) {
	_, _ = fmt.Fprint(w, pterm.Warning.Sprintln(message))
}

func formatCell(value any) string {
	if value == nil {
		return "NULL"
	}
	return fmt.Sprint(value)
}
