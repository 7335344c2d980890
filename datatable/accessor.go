package datatable

import (
	"fmt"
	"slices"

	"github.com/radio-astro/casa-sub011/table"
)

// NoChange records since which processing iteration a row's result has not changed.
// The zero value is unset.
type NoChange struct {
	Iteration int
	Set       bool
}

// Stored value of an unset NoChange
const noChangeUnset = -1

func NoChangeSince(iteration int) NoChange {
	return NoChange{Iteration: iteration, Set: true}
}

func (n NoChange) encode() int {
	if !n.Set {
		return noChangeUnset
	}
	return n.Iteration
}

func decodeNoChange(v int) NoChange {
	if v < 0 {
		return NoChange{}
	}
	return NoChangeSince(v)
}

func (n NoChange) String() string {
	if !n.Set {
		return "false"
	}
	return fmt.Sprint(n.Iteration)
}

// MaskRange is an inclusive [start, end] channel range
type MaskRange [2]int

// MaskList holds the channel ranges excluded from baseline fitting.
// An empty list means no mask.
type MaskList []MaskRange

// Stored form of an empty MaskList
var NoMask = [][2]int{{-1, -1}}

func (m MaskList) encode() [][2]int {
	if len(m) == 0 {
		return slices.Clone(NoMask)
	}
	out := make([][2]int, len(m))
	for i, r := range m {
		out[i] = r
	}
	return out
}

func decodeMaskList(v [][2]int) MaskList {
	if len(v) == 1 && v[0] == NoMask[0] {
		return MaskList{}
	}
	out := make(MaskList, len(v))
	for i, p := range v {
		out[i] = p
	}
	return out
}

// Equal reports whether both lists hold the same ranges in the same order
func (m MaskList) Equal(other MaskList) bool {
	return slices.Equal(m, other)
}

// Accessor reads and writes one column of a store.
// Values cross the boundary as the column's logical Go type:
// NoChange for NOCHANGE, MaskList for MASKLIST and the table cell type otherwise.
type Accessor interface {
	Column() Column
	ReadOnly() bool
	GetCell(row int) (any, error)
	PutCell(row int, value any) error
	GetCol(start, n, stride int) (any, error)
	PutCol(values any, start, n, stride int) error
}

func newAccessor(store table.Store, col Column, readOnly bool) Accessor {
	base := baseAccessor{store: store, col: col, name: col.String(), readOnly: readOnly}
	switch col.Descriptor().Codec {
	case NoChangeCodec:
		return &noChangeAccessor{base}
	case MaskListCodec:
		return &maskListAccessor{base}
	}
	return &genericAccessor{base}
}

type baseAccessor struct {
	store    table.Store
	col      Column
	name     string
	readOnly bool
}

func (a *baseAccessor) Column() Column {
	return a.col
}

func (a *baseAccessor) ReadOnly() bool {
	return a.readOnly
}

func (a *baseAccessor) checkWritable() error {
	if a.readOnly {
		return fmt.Errorf("%w: %s", ErrReadOnly, a.name)
	}
	return nil
}

type genericAccessor struct {
	baseAccessor
}

func (a *genericAccessor) GetCell(row int) (any, error) {
	return a.store.GetCell(a.name, row)
}

func (a *genericAccessor) GetCol(start, n, stride int) (any, error) {
	return a.store.GetCol(a.name, start, n, stride)
}

func (a *genericAccessor) PutCell(row int, value any) error {
	if err := a.checkWritable(); err != nil {
		return err
	}
	v, err := coerceCell(a.col.Descriptor().Kind, value)
	if err != nil {
		return fmt.Errorf("%s: %w", a.name, err)
	}
	return a.store.PutCell(a.name, row, v)
}

func (a *genericAccessor) PutCol(values any, start, n, stride int) error {
	if err := a.checkWritable(); err != nil {
		return err
	}
	v, err := coerceCol(a.col.Descriptor().Kind, values)
	if err != nil {
		return fmt.Errorf("%s: %w", a.name, err)
	}
	return a.store.PutCol(a.name, v, start, n, stride)
}

type noChangeAccessor struct {
	baseAccessor
}

func (a *noChangeAccessor) GetCell(row int) (any, error) {
	v, err := a.store.GetCell(a.name, row)
	if err != nil {
		return nil, err
	}
	return decodeNoChange(v.(int)), nil
}

func (a *noChangeAccessor) GetCol(start, n, stride int) (any, error) {
	v, err := a.store.GetCol(a.name, start, n, stride)
	if err != nil {
		return nil, err
	}
	stored := v.([]int)
	out := make([]NoChange, len(stored))
	for i, s := range stored {
		out[i] = decodeNoChange(s)
	}
	return out, nil
}

func (a *noChangeAccessor) PutCell(row int, value any) error {
	if err := a.checkWritable(); err != nil {
		return err
	}
	v, err := encodeNoChange(value)
	if err != nil {
		return fmt.Errorf("%s: %w", a.name, err)
	}
	return a.store.PutCell(a.name, row, v)
}

func (a *noChangeAccessor) PutCol(values any, start, n, stride int) error {
	if err := a.checkWritable(); err != nil {
		return err
	}

	var stored []int
	switch v := values.(type) {
	case []NoChange:
		stored = make([]int, len(v))
		for i, nc := range v {
			stored[i] = nc.encode()
		}
	case []bool:
		stored = make([]int, len(v))
		for i := range v {
			stored[i] = noChangeUnset
		}
	default:
		ints, err := coerceCol(table.Int, values)
		if err != nil {
			return fmt.Errorf("%s: %w", a.name, err)
		}
		stored = ints.([]int)
	}
	return a.store.PutCol(a.name, stored, start, n, stride)
}

// Any boolean is stored as unset, integers are stored as-is
func encodeNoChange(value any) (int, error) {
	switch v := value.(type) {
	case NoChange:
		return v.encode(), nil
	case bool:
		return noChangeUnset, nil
	}
	v, err := coerceCell(table.Int, value)
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

type maskListAccessor struct {
	baseAccessor
}

func (a *maskListAccessor) GetCell(row int) (any, error) {
	v, err := a.store.GetCell(a.name, row)
	if err != nil {
		return nil, err
	}
	return decodeMaskList(v.([][2]int)), nil
}

func (a *maskListAccessor) GetCol(start, n, stride int) (any, error) {
	v, err := a.store.GetCol(a.name, start, n, stride)
	if err != nil {
		return nil, err
	}
	stored := v.([][][2]int)
	out := make([]MaskList, len(stored))
	for i, s := range stored {
		out[i] = decodeMaskList(s)
	}
	return out, nil
}

func (a *maskListAccessor) PutCell(row int, value any) error {
	if err := a.checkWritable(); err != nil {
		return err
	}
	m, err := toMaskList(value)
	if err != nil {
		return fmt.Errorf("%s: %w", a.name, err)
	}
	return a.store.PutCell(a.name, row, m.encode())
}

func (a *maskListAccessor) PutCol(values any, start, n, stride int) error {
	if err := a.checkWritable(); err != nil {
		return err
	}

	var stored [][][2]int
	switch v := values.(type) {
	case []MaskList:
		stored = make([][][2]int, len(v))
		for i, m := range v {
			stored[i] = m.encode()
		}
	case [][][2]int:
		stored = make([][][2]int, len(v))
		for i, m := range v {
			stored[i] = decodeMaskList(m).encode()
		}
	default:
		return fmt.Errorf("%s: %w: got %T", a.name, ErrTypeMismatch, values)
	}
	return a.store.PutCol(a.name, stored, start, n, stride)
}

func toMaskList(value any) (MaskList, error) {
	switch v := value.(type) {
	case MaskList:
		return v, nil
	case []MaskRange:
		return MaskList(v), nil
	case [][2]int:
		return decodeMaskList(v), nil
	case nil:
		return MaskList{}, nil
	}
	return nil, fmt.Errorf("%w: got %T", ErrTypeMismatch, value)
}

// Converts a cell value to the Go type stored for kind
func coerceCell(kind table.Kind, value any) (any, error) {
	switch kind {
	case table.Int:
		switch v := value.(type) {
		case int:
			return v, nil
		case int8:
			return int(v), nil
		case int16:
			return int(v), nil
		case int32:
			return int(v), nil
		case int64:
			return int(v), nil
		case uint8:
			return int(v), nil
		case uint16:
			return int(v), nil
		case uint32:
			return int(v), nil
		case bool:
			if v {
				return 1, nil
			}
			return 0, nil
		}
	case table.Double:
		switch v := value.(type) {
		case float64:
			return v, nil
		case float32:
			return float64(v), nil
		case int:
			return float64(v), nil
		case int32:
			return float64(v), nil
		case int64:
			return float64(v), nil
		}
	case table.String:
		switch v := value.(type) {
		case string:
			return v, nil
		case fmt.Stringer:
			return v.String(), nil
		}
	case table.IntVector:
		switch v := value.(type) {
		case []int:
			return v, nil
		case []int32:
			return convertSlice(v, func(x int32) int { return int(x) }), nil
		case []int64:
			return convertSlice(v, func(x int64) int { return int(x) }), nil
		}
	case table.DoubleVector:
		switch v := value.(type) {
		case []float64:
			return v, nil
		case []float32:
			return convertSlice(v, func(x float32) float64 { return float64(x) }), nil
		}
	case table.PairList:
		switch v := value.(type) {
		case [][2]int:
			return v, nil
		case MaskList:
			return v.encode(), nil
		}
	}
	return nil, fmt.Errorf("%w: cannot store %T in %v column", ErrTypeMismatch, value, kind)
}

// Converts a column of values to the slice type stored for kind
func coerceCol(kind table.Kind, values any) (any, error) {
	switch kind {
	case table.Int:
		switch v := values.(type) {
		case []int:
			return v, nil
		case []int32:
			return convertSlice(v, func(x int32) int { return int(x) }), nil
		case []int64:
			return convertSlice(v, func(x int64) int { return int(x) }), nil
		}
	case table.Double:
		switch v := values.(type) {
		case []float64:
			return v, nil
		case []float32:
			return convertSlice(v, func(x float32) float64 { return float64(x) }), nil
		}
	case table.String:
		if v, ok := values.([]string); ok {
			return v, nil
		}
	case table.IntVector:
		if v, ok := values.([][]int); ok {
			return v, nil
		}
	case table.DoubleVector:
		if v, ok := values.([][]float64); ok {
			return v, nil
		}
	case table.PairList:
		if v, ok := values.([][][2]int); ok {
			return v, nil
		}
	}
	return nil, fmt.Errorf("%w: cannot store %T in %v column", ErrTypeMismatch, values, kind)
}

func convertSlice[S, T any](in []S, f func(S) T) []T {
	out := make([]T, len(in))
	for i, v := range in {
		out[i] = f(v)
	}
	return out
}
