package table

import (
	"fmt"
	"slices"
	"sort"
)

// Memory is an in-memory Store
type Memory struct {
	name     string
	schema   Schema
	nrows    int
	columns  map[string]column
	keywords map[string]any
	closed   bool
}

// NewMemory creates an empty store with the given schema and initial row count
func NewMemory(name string, schema Schema, nrows int) (*Memory, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}

	m := &Memory{
		name:     name,
		schema:   slices.Clone(schema),
		columns:  make(map[string]column, len(schema)),
		keywords: make(map[string]any),
	}
	for _, spec := range schema {
		m.columns[spec.Name] = newColumn(spec)
	}

	if err := m.AddRows(nrows); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Memory) Name() string {
	return m.name
}

func (m *Memory) Schema() Schema {
	return slices.Clone(m.schema)
}

func (m *Memory) NRows() int {
	if m.closed {
		return 0
	}
	return m.nrows
}

func (m *Memory) AddRows(n int) error {
	if m.closed {
		return ErrClosed
	}
	if n < 0 {
		return fmt.Errorf("%w: cannot add %d rows", ErrRowOutOfRange, n)
	}
	for _, col := range m.columns {
		col.grow(n)
	}
	m.nrows += n
	return nil
}

func (m *Memory) column(name string) (column, error) {
	if m.closed {
		return nil, ErrClosed
	}
	col, ok := m.columns[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q in %s", ErrColumnNotFound, name, m.name)
	}
	return col, nil
}

func (m *Memory) checkRow(row int) error {
	if row < 0 || row >= m.nrows {
		return fmt.Errorf("%w: %d (nrows = %d)", ErrRowOutOfRange, row, m.nrows)
	}
	return nil
}

func (m *Memory) GetCell(name string, row int) (any, error) {
	col, err := m.column(name)
	if err != nil {
		return nil, err
	}
	if err := m.checkRow(row); err != nil {
		return nil, err
	}
	return col.get(row), nil
}

func (m *Memory) PutCell(name string, row int, value any) error {
	col, err := m.column(name)
	if err != nil {
		return err
	}
	if err := m.checkRow(row); err != nil {
		return err
	}
	if err := col.put(row, value); err != nil {
		return fmt.Errorf("%s[%d]: %w", name, row, err)
	}
	return nil
}

func (m *Memory) GetCol(name string, start, n, stride int) (any, error) {
	col, err := m.column(name)
	if err != nil {
		return nil, err
	}
	rows, err := Rows(m.nrows, start, n, stride)
	if err != nil {
		return nil, err
	}
	return col.gather(rows), nil
}

func (m *Memory) PutCol(name string, value any, start, n, stride int) error {
	col, err := m.column(name)
	if err != nil {
		return err
	}
	rows, err := Rows(m.nrows, start, n, stride)
	if err != nil {
		return err
	}
	if err := col.scatter(rows, value); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func (m *Memory) GetKeyword(name string) (any, error) {
	if m.closed {
		return nil, ErrClosed
	}
	value, ok := m.keywords[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q in %s", ErrKeywordNotFound, name, m.name)
	}
	return cloneKeyword(value), nil
}

func (m *Memory) PutKeyword(name string, value any) error {
	if m.closed {
		return ErrClosed
	}
	m.keywords[name] = cloneKeyword(value)
	return nil
}

// Lists are copied in and out. Other reference types are copied by their owner.
func cloneKeyword(value any) any {
	switch v := value.(type) {
	case []int:
		return slices.Clone(v)
	case []float64:
		return slices.Clone(v)
	case []string:
		return slices.Clone(v)
	}
	return value
}

func (m *Memory) KeywordNames() []string {
	names := make([]string, 0, len(m.keywords))
	for name := range m.keywords {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (m *Memory) Close() error {
	m.closed = true
	m.columns = nil
	m.keywords = nil
	return nil
}

type column interface {
	grow(n int)
	get(row int) any
	put(row int, value any) error
	gather(rows []int) any
	scatter(rows []int, value any) error
}

// Typed storage for a single column.
// clone is used on every boundary crossing so vectors never alias caller memory.
type typedColumn[T any] struct {
	values []T
	zero   func() T
	clone  func(T) T
	check  func(T) error
}

func (c *typedColumn[T]) grow(n int) {
	for i := 0; i < n; i++ {
		c.values = append(c.values, c.zero())
	}
}

func (c *typedColumn[T]) get(row int) any {
	return c.clone(c.values[row])
}

func (c *typedColumn[T]) put(row int, value any) error {
	v, ok := value.(T)
	if !ok {
		return fmt.Errorf("%w: got %T", ErrWrongType, value)
	}
	if err := c.check(v); err != nil {
		return err
	}
	c.values[row] = c.clone(v)
	return nil
}

func (c *typedColumn[T]) gather(rows []int) any {
	out := make([]T, len(rows))
	for i, row := range rows {
		out[i] = c.clone(c.values[row])
	}
	return out
}

func (c *typedColumn[T]) scatter(rows []int, value any) error {
	values, ok := value.([]T)
	if !ok {
		return fmt.Errorf("%w: got %T", ErrWrongType, value)
	}
	if len(values) != len(rows) {
		return fmt.Errorf("%w: %d values for %d rows", ErrRowOutOfRange, len(values), len(rows))
	}
	for _, v := range values {
		if err := c.check(v); err != nil {
			return err
		}
	}
	for i, row := range rows {
		c.values[row] = c.clone(values[i])
	}
	return nil
}

func identity[T any](v T) T { return v }

func noCheck[T any](T) error { return nil }

func cloneSlice[T any](v []T) []T { return slices.Clone(v) }

func checkShape[T any](shape int) func([]T) error {
	if shape == 0 {
		return noCheck[[]T]
	}
	return func(v []T) error {
		if len(v) != shape {
			return fmt.Errorf("%w: vector of length %d, column shape is %d", ErrWrongType, len(v), shape)
		}
		return nil
	}
}

func zeroVector[T any](shape int) func() []T {
	return func() []T { return make([]T, shape) }
}

func newColumn(spec ColumnSpec) column {
	switch spec.Kind {
	case Int:
		return &typedColumn[int]{zero: func() int { return 0 }, clone: identity[int], check: noCheck[int]}
	case Double:
		return &typedColumn[float64]{zero: func() float64 { return 0 }, clone: identity[float64], check: noCheck[float64]}
	case String:
		return &typedColumn[string]{zero: func() string { return "" }, clone: identity[string], check: noCheck[string]}
	case IntVector:
		return &typedColumn[[]int]{zero: zeroVector[int](spec.Shape), clone: cloneSlice[int], check: checkShape[int](spec.Shape)}
	case DoubleVector:
		return &typedColumn[[]float64]{zero: zeroVector[float64](spec.Shape), clone: cloneSlice[float64], check: checkShape[float64](spec.Shape)}
	case PairList:
		return &typedColumn[[][2]int]{zero: zeroVector[[2]int](0), clone: cloneSlice[[2]int], check: noCheck[[][2]int]}
	}
	panic("table: unknown column kind " + spec.Kind.String())
}
