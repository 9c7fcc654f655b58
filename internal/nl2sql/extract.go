package nl2sql

import (
	"regexp"
	"strings"
)

// Extractor isolates the first SELECT statement from free-form model output.
type Extractor interface {
	Extract(text string) (string, bool)
}

var (
	codeFencePattern      = regexp.MustCompile("(?i)```(?:sql)?")
	terminatedSelectRegex = regexp.MustCompile(`(?i)\bSELECT\b[\s\S]+?;`)
	openSelectRegex       = regexp.MustCompile(`(?i)\bSELECT\b[\s\S]+`)
)

// RegexExtractor strips code fences, then prefers the shortest SELECT run that
// ends in a semicolon, falling back to everything from the first SELECT on.
// Extracting an already extracted statement returns it unchanged.
type RegexExtractor struct{}

func (RegexExtractor) Extract(text string) (string, bool) {
	return ExtractStatement(text)
}

func ExtractStatement(text string) (string, bool) {
	cleaned := strings.TrimSpace(codeFencePattern.ReplaceAllString(text, ""))
	if cleaned == "" {
		return "", false
	}
	if match := terminatedSelectRegex.FindString(cleaned); match != "" {
		return strings.TrimSpace(match), true
	}
	if match := openSelectRegex.FindString(cleaned); match != "" {
		return strings.TrimSpace(match), true
	}
	return "", false
}
