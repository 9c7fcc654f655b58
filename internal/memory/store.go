// Package memory keeps the rolling conversational history that lets follow-up
// questions refer to earlier results.
package memory

import (
	"fmt"
	"strings"
)

// PreviewRows caps how many result rows an entry keeps, regardless of the
// size of the underlying result.
const PreviewRows = 5

// DefaultCapacity is used when the operator does not choose a capacity.
const DefaultCapacity = 3

// Entry is one successful interaction.
type Entry struct {
	Question  string
	Statement string
	Preview   string
}

// Store is a fixed-capacity FIFO of entries, oldest first.
type Store struct {
	capacity int
	entries  []Entry
}

func New(capacity int) (*Store, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("memory capacity must be >= 1, got %d", capacity)
	}
	return &Store{
		capacity: capacity,
		entries:  make([]Entry, 0, capacity),
	}, nil
}

func (s *Store) Capacity() int {
	return s.capacity
}

func (s *Store) Len() int {
	return len(s.entries)
}

// Append adds entry at the tail, evicting the head when the store is full.
func (s *Store) Append(entry Entry) {
	if len(s.entries) >= s.capacity {
		s.entries[0] = Entry{}
		s.entries = s.entries[1:]
	}
	s.entries = append(s.entries, entry)
}

// Entries returns a copy of the stored entries, oldest first.
func (s *Store) Entries() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Clear drops every entry. It is called once when the session ends.
func (s *Store) Clear() {
	s.entries = make([]Entry, 0, s.capacity)
}

// RenderContext returns the history block injected into generation prompts,
// or "" when nothing has been recorded yet.
func (s *Store) RenderContext() string {
	if len(s.entries) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Previous Query History:\n")
	for i, entry := range s.entries {
		fmt.Fprintf(&b, "\nQuery %d:\n", i+1)
		fmt.Fprintf(&b, "User Question: %s\n", entry.Question)
		fmt.Fprintf(&b, "SQL Used: %s\n", entry.Statement)
		b.WriteString("Result Preview:\n")
		b.WriteString(strings.TrimRight(entry.Preview, "\n"))
		b.WriteString("\n")
	}
	return b.String()
}
