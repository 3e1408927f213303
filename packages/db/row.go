package db

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrMissingColumn is matched by every MissingColumnError.
var ErrMissingColumn = errors.New("column not found")

// MissingColumnError reports a column absent from a row.
type MissingColumnError struct {
	Column    string
	Available []string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("%s: %q (available: %s)", ErrMissingColumn, e.Column, strings.Join(e.Available, ", "))
}

func (e *MissingColumnError) Unwrap() error { return ErrMissingColumn }

// Row is one result row keyed by column name.
type Row map[string]any

// Empty reports whether the query returned no row.
func (r Row) Empty() bool {
	return len(r) == 0
}

// Column returns the value of a column. An exact match wins over a
// case-insensitive one.
func (r Row) Column(name string) (any, error) {
	if v, ok := r[name]; ok {
		return v, nil
	}
	for k, v := range r {
		if strings.EqualFold(k, name) {
			return v, nil
		}
	}
	return nil, &MissingColumnError{Column: name, Available: r.Columns()}
}

// Columns returns the column names in sorted order.
func (r Row) Columns() []string {
	cols := make([]string, 0, len(r))
	for k := range r {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}
