// Package table implements the tabular storage the DataTable is built on:
// named column stores with row-indexed cells and table-level keywords,
// kept in memory and persisted as Parquet files.
package table

import "errors"

var (
	ErrColumnNotFound  = errors.New("column not found")
	ErrKeywordNotFound = errors.New("keyword not found")
	ErrRowOutOfRange   = errors.New("row out of range")
	ErrWrongType       = errors.New("wrong cell type")
	ErrClosed          = errors.New("store is closed")
)

// Store is a column store with a fixed schema.
// Cells hold the Go type matching their column Kind. Getters return copies,
// so callers can modify returned vectors freely.
type Store interface {
	Name() string
	Schema() Schema
	NRows() int
	// Appends n rows holding zero values
	AddRows(n int) error

	GetCell(col string, row int) (any, error)
	PutCell(col string, row int, value any) error
	// n = -1 selects every row from start to the end of the table
	GetCol(col string, start, n, stride int) (any, error)
	PutCol(col string, value any, start, n, stride int) error

	GetKeyword(name string) (any, error)
	PutKeyword(name string, value any) error
	KeywordNames() []string

	Close() error
}

// Rows resolves a (start, n, stride) selection into row indices
func Rows(nrows, start, n, stride int) ([]int, error) {
	if stride < 1 {
		return nil, errors.Join(ErrRowOutOfRange, errors.New("stride must be positive"))
	}
	if start < 0 || start > nrows {
		return nil, ErrRowOutOfRange
	}

	available := (nrows - start + stride - 1) / stride
	if n < 0 {
		n = available
	}
	if n > available {
		return nil, ErrRowOutOfRange
	}

	rows := make([]int, n)
	for i := range rows {
		rows[i] = start + i*stride
	}
	return rows, nil
}
