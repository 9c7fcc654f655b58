package memory

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewEntryCapsPreviewRows(t *testing.T) {
	t.Parallel()

	rows := make([][]any, 0, 12)
	for i := 0; i < 12; i++ {
		rows = append(rows, []any{int64(i), "row"})
	}
	entry := NewEntry("q", "SELECT id, label FROM T;", []string{"id", "label"}, rows)

	lines := strings.Split(strings.TrimRight(entry.Preview, "\n"), "\n")
	// header + separator + PreviewRows
	assert.Len(t, lines, 2+PreviewRows)
	assert.True(t, strings.HasPrefix(lines[len(lines)-1], "4 "), "last preview line = %q", lines[len(lines)-1])
	assert.Equal(t, "q", entry.Question)
	assert.Equal(t, "SELECT id, label FROM T;", entry.Statement)
}

func TestRenderPreviewHandlesNullsAndEmptyResults(t *testing.T) {
	t.Parallel()

	out := RenderPreview([]string{"name"}, [][]any{{nil}}, PreviewRows)
	assert.Contains(t, out, "NULL")

	empty := RenderPreview([]string{"name"}, nil, PreviewRows)
	assert.Contains(t, empty, "(no rows)")
	assert.NotContains(t, empty, "\x1b[")
}
