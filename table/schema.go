package table

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
)

// Kind is the storage type of a column.
// Each kind maps to exactly one Go cell type:
//
//	Int          -> int
//	Double       -> float64
//	String       -> string
//	IntVector    -> []int
//	DoubleVector -> []float64
//	PairList     -> [][2]int
//
// and GetCol/PutCol work with a slice of the cell type.
type Kind int

const (
	Int Kind = iota
	Double
	String
	IntVector
	DoubleVector
	PairList
)

func (k Kind) String() string {
	switch k {
	case Int:
		return "Int"
	case Double:
		return "Double"
	case String:
		return "String"
	case IntVector:
		return "IntVector"
	case DoubleVector:
		return "DoubleVector"
	case PairList:
		return "PairList"
	default:
		return fmt.Sprintf("Unknown(%d)", k)
	}
}

// IsVector reports whether cells of this kind are slices
func (k Kind) IsVector() bool {
	return k == IntVector || k == DoubleVector || k == PairList
}

func (k Kind) arrowType() arrow.DataType {
	switch k {
	case Int:
		return arrow.PrimitiveTypes.Int64
	case Double:
		return arrow.PrimitiveTypes.Float64
	case String:
		return arrow.BinaryTypes.String
	case IntVector:
		return arrow.ListOf(arrow.PrimitiveTypes.Int64)
	case DoubleVector:
		return arrow.ListOf(arrow.PrimitiveTypes.Float64)
	case PairList:
		return arrow.ListOf(arrow.ListOf(arrow.PrimitiveTypes.Int64))
	}
	panic("table: no arrow type for kind " + k.String())
}

// ColumnSpec describes a single stored column
type ColumnSpec struct {
	Name string
	Kind Kind
	// Fixed number of elements for IntVector/DoubleVector cells, 0 when ragged
	Shape int
}

// Schema is the ordered list of columns of a store
type Schema []ColumnSpec

// Index returns the position of the named column or -1
func (s Schema) Index(name string) int {
	for i, c := range s {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Validate checks that names are unique and shapes only appear on fixed vectors
func (s Schema) Validate() error {
	seen := make(map[string]bool, len(s))
	for _, c := range s {
		if c.Name == "" {
			return fmt.Errorf("table: empty column name")
		}
		if seen[c.Name] {
			return fmt.Errorf("table: duplicate column %q", c.Name)
		}
		seen[c.Name] = true

		if c.Shape < 0 {
			return fmt.Errorf("table: negative shape for column %q", c.Name)
		}
		if c.Shape > 0 && c.Kind != IntVector && c.Kind != DoubleVector {
			return fmt.Errorf("table: column %q of kind %v cannot have a fixed shape", c.Name, c.Kind)
		}
	}
	return nil
}

func (s Schema) arrowSchema() *arrow.Schema {
	fields := make([]arrow.Field, len(s))
	for i, c := range s {
		fields[i] = arrow.Field{Name: c.Name, Type: c.Kind.arrowType()}
	}
	return arrow.NewSchema(fields, nil)
}
