package memory

import (
	"fmt"
	"strings"
	"text/tabwriter"
)

// NewEntry builds an entry whose preview holds at most PreviewRows rows.
func NewEntry(question, statement string, columns []string, rows [][]any) Entry {
	return Entry{
		Question:  question,
		Statement: statement,
		Preview:   RenderPreview(columns, rows, PreviewRows),
	}
}

// RenderPreview renders the first limit rows as an aligned plain-text grid.
// The output carries no terminal styling so it can be embedded in prompts.
func RenderPreview(columns []string, rows [][]any, limit int) string {
	if limit < 0 {
		limit = 0
	}
	if len(rows) > limit {
		rows = rows[:limit]
	}
	if len(columns) == 0 {
		return "(no columns)"
	}

	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 1, ' ', tabwriter.Debug)
	writeRow(w, columns)
	separators := make([]string, len(columns))
	for i, column := range columns {
		separators[i] = strings.Repeat("-", max(len(column), 3))
	}
	writeRow(w, separators)
	for _, row := range rows {
		cells := make([]string, len(columns))
		for i := range columns {
			if i < len(row) {
				cells[i] = formatCell(row[i])
			}
		}
		writeRow(w, cells)
	}
	_ = w.Flush()
	if len(rows) == 0 {
		b.WriteString("(no rows)\n")
	}
	return b.String()
}

func writeRow(w *tabwriter.Writer, cells []string) {
	_, _ = fmt.Fprintln(w, strings.Join(cells, "\t")+"\t")
}

func formatCell(value any) string {
	if value == nil {
		return "NULL"
	}
	text := fmt.Sprint(value)
	text = strings.ReplaceAll(text, "\t", " ")
	return strings.ReplaceAll(text, "\n", " ")
}
