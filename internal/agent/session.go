package agent

import "github.com/duckmesh/duckask/internal/query"

// Session is the per-dataset context: the active table and the schema fetched
// once when it was selected. A new Session replaces the old one on switch.
type Session struct {
	dataset query.Dataset
	schema  query.Schema
}

func NewSession(dataset query.Dataset, schema query.Schema) Session {
	return Session{dataset: dataset, schema: schema}
}

func (s Session) Dataset() query.Dataset {
	return s.dataset
}

func (s Session) Schema() query.Schema {
	return s.schema
}

func (s Session) Table() string {
	return s.dataset.Table
}

func (s Session) Active() bool {
	return !s.dataset.IsZero()
}
