package query

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var ErrInvalidDatasetCode = errors.New("invalid dataset code")

var datasetCodePattern = regexp.MustCompile(`^[A-Z]{2}$`)

const DefaultTableSuffix = "_DATA"

// Dataset identifies the active table. It is immutable; switching datasets
// means building a new one.
type Dataset struct {
	Code  string
	Table string
}

// ParseDataset validates a 2-letter code (case-insensitive input) and derives
// the table name by appending suffix.
func ParseDataset(code, suffix string) (Dataset, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if !datasetCodePattern.MatchString(normalized) {
		return Dataset{}, fmt.Errorf("%w: %q", ErrInvalidDatasetCode, code)
	}
	if suffix == "" {
		suffix = DefaultTableSuffix
	}
	return Dataset{Code: normalized, Table: normalized + suffix}, nil
}

func (d Dataset) IsZero() bool {
	return d.Table == ""
}
