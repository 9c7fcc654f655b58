package nl2sql

import (
	"fmt"
	"strings"
)

// RowLimit is the LIMIT the model is told to add when the question names none.
const RowLimit = 50

type GenerationInput struct {
	Dialect       string
	Table         string
	Schema        string
	MemoryContext string
	Question      string
}

type RepairInput struct {
	Dialect    string
	Table      string
	Schema     string
	Statement  string
	Diagnostic string
}

// BuildGenerationMessages returns a system message carrying the rules, schema
// and history, followed by the user's question verbatim.
func BuildGenerationMessages(in GenerationInput) []Message {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a %s generator.\n\n", sqlFlavor(in.Dialect))
	b.WriteString("STRICT RULES:\n")
	fmt.Fprintf(&b, "- Use ONLY this table: %s\n", in.Table)
	b.WriteString("- Only generate SELECT queries\n")
	b.WriteString("- No explanations\n")
	b.WriteString("- No markdown\n")
	b.WriteString("- Use exact column names from schema\n")
	fmt.Fprintf(&b, "- Add LIMIT %d unless user specifies limit\n", RowLimit)
	b.WriteString("- Use previous query history if user refers to previous result\n\n")
	b.WriteString("Table Schema:\n")
	b.WriteString(in.Schema)
	b.WriteString("\n")
	if memory := strings.TrimSpace(in.MemoryContext); memory != "" {
		b.WriteString("\n")
		b.WriteString(in.MemoryContext)
	}

	return []Message{
		{Role: RoleSystem, Content: b.String()},
		{Role: RoleUser, Content: in.Question},
	}
}

// BuildRepairMessages returns a single system message describing the failed
// statement and its diagnostic. History is deliberately absent.
func BuildRepairMessages(in RepairInput) []Message {
	var b strings.Builder
	b.WriteString("The following SQL caused an error:\n\n")
	b.WriteString("SQL:\n")
	b.WriteString(in.Statement)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "%s Error:\n", engineName(in.Dialect))
	b.WriteString(in.Diagnostic)
	b.WriteString("\n\n")
	b.WriteString("Fix the SQL.\n")
	b.WriteString("Rules:\n")
	b.WriteString("- Only SELECT query\n")
	fmt.Fprintf(&b, "- Use table %s\n", in.Table)
	b.WriteString("- Use correct column names\n")
	b.WriteString("- No explanation\n")
	b.WriteString("- No markdown\n\n")
	b.WriteString("Schema:\n")
	b.WriteString(in.Schema)
	b.WriteString("\n")

	return []Message{{Role: RoleSystem, Content: b.String()}}
}

func sqlFlavor(dialect string) string {
	if dialect = strings.TrimSpace(dialect); dialect == "" {
		return "SQL"
	}
	return dialect + " SQL"
}

func engineName(dialect string) string {
	if dialect = strings.TrimSpace(dialect); dialect == "" {
		return "Database"
	}
	return dialect
}
