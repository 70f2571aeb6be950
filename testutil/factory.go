package testutil

import (
	"fmt"
	"sync/atomic"

	"github.com/dan-strohschein/resilientdb/client"
)

// RowsFactory builds result sets for MockConn expectations.
type RowsFactory struct {
	columns  []string
	defaults []interface{}
}

// Option overrides one column of a generated row.
type Option func(columns []string, row []interface{})

// NewRowsFactory creates a factory for rows with the given columns and
// default values, one per column.
func NewRowsFactory(columns []string, defaults ...interface{}) *RowsFactory {
	if len(defaults) != len(columns) {
		panic(fmt.Sprintf("testutil: %d defaults for %d columns", len(defaults), len(columns)))
	}
	return &RowsFactory{columns: columns, defaults: defaults}
}

// Columns returns the factory's column names.
func (f *RowsFactory) Columns() []string {
	return append([]string(nil), f.columns...)
}

// Build creates a single row with optional overrides.
func (f *RowsFactory) Build(options ...Option) []interface{} {
	row := append([]interface{}(nil), f.defaults...)
	for _, opt := range options {
		opt(f.columns, row)
	}
	return row
}

// BuildList creates count rows. Columns named "id" get sequential values.
func (f *RowsFactory) BuildList(count int, options ...Option) [][]interface{} {
	rows := make([][]interface{}, count)
	for i := 0; i < count; i++ {
		rows[i] = f.Build(append([]Option{WithField("id", SequenceID())}, options...)...)
	}
	return rows
}

// Rows renders rows as a client.Rows.
func (f *RowsFactory) Rows(rows ...[]interface{}) *client.Rows {
	return &client.Rows{Columns: f.Columns(), Values: rows}
}

// WithField sets a specific column value. Unknown columns are ignored.
func WithField(name string, value interface{}) Option {
	return func(columns []string, row []interface{}) {
		for i, c := range columns {
			if c == name {
				row[i] = value
			}
		}
	}
}

// WithFields sets multiple column values.
func WithFields(fields map[string]interface{}) Option {
	return func(columns []string, row []interface{}) {
		for name, v := range fields {
			WithField(name, v)(columns, row)
		}
	}
}

// Sequence generators for unique values

var (
	idSequence   uint64
	nameSequence uint64
)

// SequenceID generates unique IDs.
func SequenceID() int64 {
	return int64(atomic.AddUint64(&idSequence, 1))
}

// SequenceName generates unique names with prefix, e.g. "user_3".
func SequenceName(prefix string) string {
	n := atomic.AddUint64(&nameSequence, 1)
	return fmt.Sprintf("%s_%d", prefix, n)
}
