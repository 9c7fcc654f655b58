// Package nl2sql turns questions into candidate SELECT statements: it builds
// prompts, calls a text-generation backend and isolates the statement from the
// model's reply.
package nl2sql

import "context"

type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Generator is the opaque text-generation capability: role-tagged messages in,
// a single completion out.
type Generator interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}
