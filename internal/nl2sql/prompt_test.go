package nl2sql

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildGenerationMessages(t *testing.T) {
	messages := BuildGenerationMessages(GenerationInput{
		Dialect:       "DuckDB",
		Table:         "US_DATA",
		Schema:        "id (INTEGER)\namount (DOUBLE)",
		MemoryContext: "Previous Query History:\n\nQuery 1:\nUser Question: total?\n",
		Question:      "top 5 by amount",
	})
	require.Len(t, messages, 2)
	assert.Equal(t, RoleSystem, messages[0].Role)
	assert.Equal(t, RoleUser, messages[1].Role)
	assert.Equal(t, "top 5 by amount", messages[1].Content)

	system := messages[0].Content
	assert.True(t, strings.HasPrefix(system, "You are a DuckDB SQL generator."))
	assert.Contains(t, system, "- Use ONLY this table: US_DATA\n")
	assert.Contains(t, system, "- Add LIMIT 50 unless user specifies limit\n")
	assert.Contains(t, system, "Table Schema:\nid (INTEGER)\namount (DOUBLE)\n")
	assert.Contains(t, system, "Previous Query History:")
	assert.Less(t, strings.Index(system, "Table Schema:"), strings.Index(system, "Previous Query History:"))
}

func TestBuildGenerationMessagesWithoutMemory(t *testing.T) {
	messages := BuildGenerationMessages(GenerationInput{Table: "US_DATA", Schema: "id (INTEGER)", Question: "q"})
	require.Len(t, messages, 2)
	assert.NotContains(t, messages[0].Content, "Previous Query History")
	assert.True(t, strings.HasPrefix(messages[0].Content, "You are a SQL generator."))
}

func TestBuildRepairMessages(t *testing.T) {
	messages := BuildRepairMessages(RepairInput{
		Dialect:    "PostgreSQL",
		Table:      "FR_DATA",
		Schema:     "id (integer)",
		Statement:  "SELECT nope FROM FR_DATA;",
		Diagnostic: `column "nope" does not exist`,
	})
	require.Len(t, messages, 1)
	assert.Equal(t, RoleSystem, messages[0].Role)

	content := messages[0].Content
	assert.Contains(t, content, "SQL:\nSELECT nope FROM FR_DATA;\n")
	assert.Contains(t, content, "PostgreSQL Error:\ncolumn \"nope\" does not exist\n")
	assert.Contains(t, content, "- Use table FR_DATA\n")
	assert.Contains(t, content, "Schema:\nid (integer)\n")
	assert.NotContains(t, content, "Previous Query History")
}
